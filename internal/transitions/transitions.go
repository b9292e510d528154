// Package transitions is the static graph of forward and failure edges
// between protocol phases, and the per-target required-artifact sets.
//
// It is grounded in the teacher's internal/validation package, which
// registered a per-entity-type Validator over a map[string][]string of
// allowed transitions (see isAllowedTransition, transitionError there).
// This package generalizes that idiom from a flat allowed-transition map
// to the two maps the protocol needs (forward progress, failure rollback)
// plus a required-artifact precondition per target.
package transitions

import (
	"fmt"

	"github.com/jackedney/criticality/internal/protocol"
)

// ForwardTransitions is the linear happy-path graph. The map value is a
// slice, not a single Phase, because the transition API admits branching
// even though the current graph is linear (spec section 4.B).
var ForwardTransitions = map[protocol.Phase][]protocol.Phase{
	protocol.Ignition:         {protocol.Lattice},
	protocol.Lattice:          {protocol.CompositionAudit},
	protocol.CompositionAudit: {protocol.Injection},
	protocol.Injection:        {protocol.Mesoscopic},
	protocol.Mesoscopic:       {protocol.MassDefect},
	protocol.MassDefect:       {protocol.Complete},
}

// FailureTransitions are the reverse edges enabling rollback when a phase
// worker reports a recoverable failure (circuit breaker trip, contradiction
// found during composition audit, ...).
var FailureTransitions = map[protocol.Phase][]protocol.Phase{
	protocol.Injection:        {protocol.Lattice},
	protocol.CompositionAudit: {protocol.Lattice},
}

// RequiredArtifacts declares, for each target phase, the artifact set that
// must be present to legally arrive there. Taken verbatim from spec
// section 4.B, including the Injection entry's literal union with
// Lattice's own required set (not CompositionAudit's) — an oddity of the
// source table that the spec marks "authoritative ... used verbatim for
// tests", so it is reproduced exactly rather than "fixed" to the more
// intuitive cumulative reading.
var RequiredArtifacts = map[protocol.Phase]protocol.ArtifactSet{
	protocol.Lattice:          protocol.NewArtifactSet(protocol.ArtifactSpec),
	protocol.CompositionAudit: protocol.NewArtifactSet(protocol.ArtifactLatticeCode, protocol.ArtifactWitnesses, protocol.ArtifactContracts),
	protocol.Injection:        protocol.NewArtifactSet(protocol.ArtifactAuditReport, protocol.ArtifactSpec),
	protocol.Mesoscopic:       protocol.NewArtifactSet(protocol.ArtifactImplementation),
	protocol.MassDefect:       protocol.NewArtifactSet(protocol.ArtifactTests),
	protocol.Complete:         protocol.NewArtifactSet(protocol.ArtifactFinalArtifact),
}

// ErrorKind identifies why a Transition call was rejected.
type ErrorKind string

const (
	InactiveSubstate ErrorKind = "InactiveSubstate"
	InvalidEdge      ErrorKind = "InvalidEdge"
	MissingArtifacts ErrorKind = "MissingArtifacts"
	TerminalState    ErrorKind = "TerminalState"
)

// Error is the structured error Transition returns on failure.
type Error struct {
	Kind    ErrorKind
	From    protocol.Phase
	To      protocol.Phase
	Missing protocol.ArtifactSet
}

func (e *Error) Error() string {
	switch e.Kind {
	case MissingArtifacts:
		return fmt.Sprintf("transitions: cannot reach %s: missing artifacts %v", e.To, e.Missing.Slice())
	case InvalidEdge:
		return fmt.Sprintf("transitions: no edge %s -> %s", e.From, e.To)
	case InactiveSubstate:
		return fmt.Sprintf("transitions: state %s is not Active", e.From)
	case TerminalState:
		return fmt.Sprintf("transitions: phase %s is terminal", e.From)
	default:
		return fmt.Sprintf("transitions: transition rejected (%s)", e.Kind)
	}
}

// ValidForwardTargets returns the ordered list of phases reachable from
// phase via ForwardTransitions, or nil if phase has no forward edges.
func ValidForwardTargets(phase protocol.Phase) []protocol.Phase {
	return ForwardTransitions[phase]
}

// ValidFailureTargets returns the ordered list of phases reachable from
// phase via FailureTransitions, or nil if phase has no failure edges.
func ValidFailureTargets(phase protocol.Phase) []protocol.Phase {
	return FailureTransitions[phase]
}

// edgeExists reports whether from->to is a registered forward or failure
// edge.
func edgeExists(from, to protocol.Phase) bool {
	for _, p := range ForwardTransitions[from] {
		if p == to {
			return true
		}
	}
	for _, p := range FailureTransitions[from] {
		if p == to {
			return true
		}
	}
	return false
}

// Transition attempts to move state to the target phase given the
// currently available artifacts. It returns the new ProtocolState (phase =
// target, substate = Active) on success, or a structured *Error on
// failure. Context-shedding: the returned state carries no transient
// per-phase context — only the artifact set (owned by the caller) persists
// across the transition.
func Transition(state protocol.ProtocolState, target protocol.Phase, available protocol.ArtifactSet) (protocol.ProtocolState, error) {
	if !state.Substate.IsActive() {
		return protocol.ProtocolState{}, &Error{Kind: InactiveSubstate, From: state.Phase, To: target}
	}
	if state.Phase == protocol.Complete {
		return protocol.ProtocolState{}, &Error{Kind: TerminalState, From: state.Phase, To: target}
	}
	if !edgeExists(state.Phase, target) {
		return protocol.ProtocolState{}, &Error{Kind: InvalidEdge, From: state.Phase, To: target}
	}

	required := RequiredArtifacts[target]
	if !available.ContainsAll(required) {
		return protocol.ProtocolState{}, &Error{Kind: MissingArtifacts, From: state.Phase, To: target, Missing: available.Missing(required)}
	}

	return protocol.ProtocolState{Phase: target, Substate: protocol.NewActive("", "")}, nil
}

// RecoverFailure attempts a caller-driven rollback out of a recoverable
// Failed substate, along a registered FailureTransitions edge. Unlike
// Transition, it accepts a state whose Substate is Failed rather than
// Active — a Failed substate is precisely the state Transition refuses to
// move out of, so this is the only legal way back to Active once a worker
// has reported a recoverable error (spec section 7).
//
// It shares Transition's edge and required-artifact checks by evaluating
// them against the same phase with the substate flipped to Active; the
// Failed substate itself carries no bearing on which edges or artifacts are
// valid, only on whether the attempt is permitted to begin with.
func RecoverFailure(state protocol.ProtocolState, target protocol.Phase, available protocol.ArtifactSet) (protocol.ProtocolState, error) {
	if !state.Substate.IsFailed() {
		return protocol.ProtocolState{}, &Error{Kind: InactiveSubstate, From: state.Phase, To: target}
	}
	if !state.Substate.Recoverable {
		return protocol.ProtocolState{}, &Error{Kind: InactiveSubstate, From: state.Phase, To: target}
	}

	asActive := state
	asActive.Substate = protocol.NewActive("", "")
	return Transition(asActive, target, available)
}
