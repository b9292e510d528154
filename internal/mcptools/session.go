// Package mcptools exposes the orchestrator's operations (tick, status,
// resolve, ledger query/supersede) as MCP tools, grounded in the teacher's
// internal/tools/* pattern of thin Tool adapters delegating to a shared
// session object.
package mcptools

import (
	"context"
	"sync"

	"github.com/jackedney/criticality/internal/ledger"
	"github.com/jackedney/criticality/internal/orchestrator"
	"github.com/jackedney/criticality/internal/persistence"
	"github.com/jackedney/criticality/internal/protocol"
)

// Session guards concurrent access to one orchestrator's in-memory
// snapshot and pending-resolution queue on behalf of every tool.
type Session struct {
	mu         sync.Mutex
	Orch       *orchestrator.Orchestrator
	Operations orchestrator.Operations
	snapshot   protocol.ProtocolStateSnapshot
	pending    []orchestrator.Resolution
}

// NewSession wraps an already-constructed Orchestrator and its starting
// snapshot.
func NewSession(orch *orchestrator.Orchestrator, ops orchestrator.Operations, snapshot protocol.ProtocolStateSnapshot) *Session {
	return &Session{Orch: orch, Operations: ops, snapshot: snapshot}
}

// Tick runs exactly one Orchestrator.Step and returns the result.
func (s *Session) Tick() (protocol.ProtocolStateSnapshot, orchestrator.TickResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := s.pending
	s.pending = nil

	newSnapshot, result, err := s.Orch.Step(context.Background(), s.snapshot, pending, s.Operations)
	if err != nil {
		return s.snapshot, result, err
	}
	s.snapshot = newSnapshot
	return s.snapshot, result, nil
}

// Status returns the current snapshot without advancing it.
func (s *Session) Status() protocol.ProtocolStateSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

// QueueResolution enqueues an answer for the next Tick to consume.
func (s *Session) QueueResolution(response string, allowCustom bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, orchestrator.Resolution{Response: response, AllowCustomResponse: allowCustom})
}

// RecoverFailure attempts a caller-driven failure transition out of a
// recoverable Failed substate to target, persisting the recovered snapshot
// as the session's current one on success.
func (s *Session) RecoverFailure(target protocol.Phase) (protocol.ProtocolStateSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recovered, err := s.Orch.Recover(context.Background(), s.snapshot, target)
	if err != nil {
		return s.snapshot, err
	}
	s.snapshot = recovered
	return s.snapshot, nil
}

// LedgerDecisions returns a copy of every decision in the session's ledger.
func (s *Session) LedgerDecisions() []ledger.Decision {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Orch.Ledger.Decisions()
}

// LedgerSupersede supersedes an existing decision and persists the ledger.
func (s *Session) LedgerSupersede(oldID string, input ledger.AppendInput, force bool) (ledger.Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.Orch.Ledger.Supersede(oldID, input, force, s.Orch.Clock())
	if err != nil {
		return ledger.Decision{}, err
	}
	if err := s.Orch.Ledger.Save(s.Orch.LedgerPath); err != nil {
		return ledger.Decision{}, err
	}
	return d, nil
}

// LoadSession restores a Session from persisted state and ledger files.
func LoadSession(orch *orchestrator.Orchestrator, ops orchestrator.Operations) (*Session, error) {
	snapshot, err := persistence.LoadState(orch.StatePath)
	if err != nil {
		return nil, err
	}
	return NewSession(orch, ops, snapshot), nil
}
