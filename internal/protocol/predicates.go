package protocol

// The following free functions mirror the total pattern-matching predicates
// named in spec section 4.A. The substate predicates delegate to the
// Substate methods and the state predicates to the ProtocolState methods;
// both forms are kept because callers sometimes hold a bare Substate.

// IsActive reports whether s is an Active substate.
func IsActive(s Substate) bool { return s.IsActive() }

// IsBlocking reports whether s is a Blocking substate.
func IsBlocking(s Substate) bool { return s.IsBlocking() }

// IsFailed reports whether s is a Failed substate.
func IsFailed(s Substate) bool { return s.IsFailed() }

// IsTerminal reports whether state can no longer progress.
func IsTerminal(state ProtocolState) bool { return state.IsTerminal() }

// CanTransition reports whether state is eligible for a transition.
func CanTransition(state ProtocolState) bool { return state.CanTransition() }
