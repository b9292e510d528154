package orchestrator

import "github.com/jackedney/criticality/internal/protocol"

// Guard is a composable predicate over a TickContext, used by the optional
// auto-advance Rule extension (not by the literal tick() classification,
// which hard-codes its own checks per spec section 4.F).
type Guard func(tc TickContext) bool

// And is satisfied when every guard is.
func And(guards ...Guard) Guard {
	return func(tc TickContext) bool {
		for _, g := range guards {
			if !g(tc) {
				return false
			}
		}
		return true
	}
}

// Or is satisfied when any guard is.
func Or(guards ...Guard) Guard {
	return func(tc TickContext) bool {
		for _, g := range guards {
			if g(tc) {
				return true
			}
		}
		return false
	}
}

// Not inverts a guard.
func Not(g Guard) Guard {
	return func(tc TickContext) bool { return !g(tc) }
}

// Always is a guard that is always satisfied.
func Always() Guard { return func(TickContext) bool { return true } }

// Never is a guard that is never satisfied.
func Never() Guard { return func(TickContext) bool { return false } }

// HasArtifacts is satisfied when the snapshot's artifact set contains every
// one of the given artifacts.
func HasArtifacts(want ...protocol.Artifact) Guard {
	required := protocol.NewArtifactSet(want...)
	return func(tc TickContext) bool {
		return tc.Snapshot.Artifacts.ContainsAll(required)
	}
}

// IsActive is satisfied when the current substate is Active.
func IsActive() Guard {
	return func(tc TickContext) bool { return tc.Snapshot.State.Substate.IsActive() }
}

// BlockingResolved is satisfied when there is at least one pending
// resolution queued for the current blocking query.
func BlockingResolved() Guard {
	return func(tc TickContext) bool {
		return tc.Snapshot.State.Substate.IsBlocking() && len(tc.PendingResolutions) > 0
	}
}
