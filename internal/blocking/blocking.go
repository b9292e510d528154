// Package blocking implements the blocking-query lifecycle: entering a
// Blocking substate, classifying timeout, and resolving a query against
// the ledger.
package blocking

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackedney/criticality/internal/ledger"
	"github.com/jackedney/criticality/internal/protocol"
)

// Sentinel errors for Resolve (spec section 7).
var (
	ErrAlreadyResolved = errors.New("blocking: query already resolved")
	ErrInvalidOption   = errors.New("blocking: response is not one of the offered options")
	ErrCustomNotAllowed = errors.New("blocking: custom response not allowed for this query")
)

// EnterParams are the caller-supplied fields for a new blocking query.
type EnterParams struct {
	Query     string
	Options   []string
	TimeoutMs *int64
}

// Enter replaces state's Active substate with Blocking and returns both the
// new state and the BlockingRecord to append to the snapshot's
// BlockingQueries. The phase is unchanged.
func Enter(state protocol.ProtocolState, params EnterParams, now time.Time) (protocol.ProtocolState, protocol.BlockingRecord) {
	substate := protocol.NewBlocking(params.Query, params.Options, params.TimeoutMs, now)
	newState := protocol.ProtocolState{Phase: state.Phase, Substate: substate}

	record := protocol.BlockingRecord{
		ID:        fmt.Sprintf("blocking-%s", strings.ToLower(string(state.Phase))),
		Phase:     state.Phase,
		Query:     params.Query,
		BlockedAt: now,
		Resolved:  false,
		Options:   params.Options,
		TimeoutMs: params.TimeoutMs,
	}
	return newState, record
}

// TimeoutStatus is the result of CheckTimeout.
type TimeoutStatus struct {
	TimedOut  bool
	ElapsedMs int64
}

// CheckTimeout classifies a BlockingRecord against now. A record with no
// TimeoutMs never times out. The boundary is inclusive: elapsed ==
// timeoutMs counts as timed out (spec section 8: "blockedAt + timeoutMs is
// classified as timed out; at blockedAt + timeoutMs - 1 as not timed out").
func CheckTimeout(record protocol.BlockingRecord, now time.Time) TimeoutStatus {
	if record.TimeoutMs == nil {
		return TimeoutStatus{TimedOut: false}
	}
	elapsed := now.Sub(record.BlockedAt).Milliseconds()
	return TimeoutStatus{TimedOut: elapsed >= *record.TimeoutMs, ElapsedMs: elapsed}
}

// ResolveInput is the caller-supplied content for resolving a blocking
// query.
type ResolveInput struct {
	Response            string
	AllowCustomResponse bool
}

// Resolve validates response against record, appends a canonical
// human_resolution decision to ledg, and — only if the ledger append
// succeeds — marks record resolved and returns a new ProtocolState whose
// substate reverts to Active. record is mutated in place on success; on
// any error it is left untouched, matching spec section 7's policy that a
// failed ledger append must not mark the blocking record resolved.
func Resolve(ledg *ledger.Ledger, state protocol.ProtocolState, record *protocol.BlockingRecord, input ResolveInput, now time.Time) (protocol.ProtocolState, error) {
	if record.Resolved {
		return protocol.ProtocolState{}, ErrAlreadyResolved
	}

	if !containsString(record.Options, input.Response) {
		if !input.AllowCustomResponse {
			return protocol.ProtocolState{}, ErrInvalidOption
		}
		if strings.TrimSpace(input.Response) == "" {
			return protocol.ProtocolState{}, ErrCustomNotAllowed
		}
	}

	_, err := ledg.Append(ledger.AppendInput{
		Category:     ledger.CategoryBlocking,
		Constraint:   input.Response,
		Source:       ledger.SourceHumanResolution,
		Confidence:   ledger.ConfidenceCanonical,
		Phase:        decisionPhaseFor(record.Phase),
		HumanQueryID: record.ID,
	}, now)
	if err != nil {
		return protocol.ProtocolState{}, fmt.Errorf("blocking: recording resolution: %w", err)
	}

	response := input.Response
	record.Resolved = true
	record.ResolvedAt = &now
	record.Response = &response

	return protocol.ProtocolState{Phase: state.Phase, Substate: protocol.NewActive("", "")}, nil
}

func containsString(ss []string, s string) bool {
	if len(ss) == 0 {
		return false
	}
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}

// decisionPhaseFor maps a protocol.Phase onto the ledger's DecisionPhase
// enum. Complete has no ledger.DecisionPhase counterpart (decisions are
// never attributed to the terminal phase by this core), so it falls back
// to mass_defect, the last phase that can legally hold a blocking query.
func decisionPhaseFor(p protocol.Phase) ledger.DecisionPhase {
	switch p {
	case protocol.Ignition:
		return ledger.PhaseIgnition
	case protocol.Lattice:
		return ledger.PhaseLattice
	case protocol.CompositionAudit:
		return ledger.PhaseCompositionAudit
	case protocol.Injection:
		return ledger.PhaseInjection
	case protocol.Mesoscopic:
		return ledger.PhaseMesoscopic
	default:
		return ledger.PhaseMassDefect
	}
}
