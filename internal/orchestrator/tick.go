package orchestrator

import (
	"fmt"
	"time"

	"github.com/jackedney/criticality/internal/blocking"
	"github.com/jackedney/criticality/internal/ledger"
	"github.com/jackedney/criticality/internal/protocol"
	"github.com/jackedney/criticality/internal/transitions"
)

// Resolution is an answer queued for the current blocking query. Response is
// validated against the query's options (or accepted as custom input) the
// same way blocking.Resolve validates a direct call.
type Resolution struct {
	Response            string
	AllowCustomResponse bool
}

// TickContext is everything one call to Tick needs: the current snapshot,
// any resolutions queued for an outstanding blocking query, and the port to
// external collaborators.
type TickContext struct {
	Snapshot           protocol.ProtocolStateSnapshot
	PendingResolutions []Resolution
	Operations         Operations
}

// StopReason classifies why Run (or a single Tick) stopped making progress.
type StopReason string

const (
	ReasonNone              StopReason = ""
	ReasonComplete          StopReason = "COMPLETE"
	ReasonBlocked           StopReason = "BLOCKED"
	ReasonFailed            StopReason = "FAILED"
	ReasonNoValidTransition StopReason = "NO_VALID_TRANSITION"
	ReasonExternalError     StopReason = "EXTERNAL_ERROR"
)

// TickResult reports what one tick did.
type TickResult struct {
	Transitioned   bool
	ShouldContinue bool
	StopReason     StopReason
	Error          string
}

// Tick classifies and advances one step of the protocol, following the four
// rules in order: terminal phase, failed substate, blocking substate
// (timeout / resolve / still-blocked), and active-phase forward progress.
// It is pure: all side effects (ledger append on resolution) happen against
// the ledger passed in, and the returned snapshot is a fresh value the
// caller is responsible for persisting.
func Tick(tc TickContext, now time.Time, ledg *ledger.Ledger) (protocol.ProtocolStateSnapshot, TickResult, error) {
	snap := tc.Snapshot.Clone()

	// Rule 1: terminal phase.
	if snap.State.Phase == protocol.Complete {
		return snap, TickResult{ShouldContinue: false, StopReason: ReasonComplete}, nil
	}

	// Rule 2: failed substate halts the loop regardless of phase.
	if snap.State.Substate.IsFailed() {
		return snap, TickResult{ShouldContinue: false, StopReason: ReasonFailed, Error: snap.State.Substate.Error}, nil
	}

	// Rule 3: blocking substate.
	if snap.State.Substate.IsBlocking() {
		return tickBlocking(tc, snap, now, ledg)
	}

	// Rule 4: active phase, attempt forward progress.
	return tickActive(snap, now)
}

// tickBlocking handles Rule 3's three sub-branches: timed out, a queued
// resolution to apply, or still waiting.
func tickBlocking(tc TickContext, snap protocol.ProtocolStateSnapshot, now time.Time, ledg *ledger.Ledger) (protocol.ProtocolStateSnapshot, TickResult, error) {
	recordIdx := findOpenBlockingRecord(snap, snap.State.Phase)
	if recordIdx < 0 {
		// No record of the current blocking query; treat conservatively as
		// blocked rather than silently advancing.
		return snap, TickResult{ShouldContinue: false, StopReason: ReasonBlocked}, nil
	}
	record := &snap.BlockingQueries[recordIdx]

	status := blocking.CheckTimeout(*record, now)
	if status.TimedOut {
		snap.State.Substate = protocol.NewFailed(
			fmt.Sprintf("blocking query %q timed out after %dms", record.Query, status.ElapsedMs),
			now, true, "BLOCKING_TIMEOUT", nil,
		)
		return snap, TickResult{Transitioned: true, ShouldContinue: false, StopReason: ReasonFailed, Error: snap.State.Substate.Error}, nil
	}

	if len(tc.PendingResolutions) > 0 {
		res := tc.PendingResolutions[0]
		newState, err := blocking.Resolve(ledg, snap.State, record, blocking.ResolveInput{
			Response: res.Response, AllowCustomResponse: res.AllowCustomResponse,
		}, now)
		if err != nil {
			return snap, TickResult{}, fmt.Errorf("orchestrator: resolving blocking query: %w", err)
		}
		snap.State = newState
		return snap, TickResult{Transitioned: true, ShouldContinue: true}, nil
	}

	return snap, TickResult{ShouldContinue: false, StopReason: ReasonBlocked}, nil
}

// tickActive attempts each valid forward target in declared order, taking
// the first whose required artifacts are already available.
func tickActive(snap protocol.ProtocolStateSnapshot, now time.Time) (protocol.ProtocolStateSnapshot, TickResult, error) {
	targets := transitions.ValidForwardTargets(snap.State.Phase)
	if len(targets) == 0 {
		return snap, TickResult{ShouldContinue: false, StopReason: ReasonNoValidTransition}, nil
	}

	for _, target := range targets {
		newState, err := transitions.Transition(snap.State, target, snap.Artifacts)
		if err != nil {
			continue
		}
		snap.State = newState
		result := TickResult{Transitioned: true, ShouldContinue: target != protocol.Complete}
		if target == protocol.Complete {
			result.StopReason = ReasonComplete
		}
		return snap, result, nil
	}

	// A valid edge exists but its artifacts are not ready yet; wait.
	return snap, TickResult{ShouldContinue: true}, nil
}

// findOpenBlockingRecord returns the index of the most recent unresolved
// blocking record for phase, or -1 if none exists.
func findOpenBlockingRecord(snap protocol.ProtocolStateSnapshot, phase protocol.Phase) int {
	for i := len(snap.BlockingQueries) - 1; i >= 0; i-- {
		r := snap.BlockingQueries[i]
		if r.Phase == phase && !r.Resolved {
			return i
		}
	}
	return -1
}
