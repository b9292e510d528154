package protocol

// ProtocolState pairs a Phase with its current Substate.
type ProtocolState struct {
	Phase    Phase
	Substate Substate
}

// IsActive reports whether the state's substate is Active.
func (s ProtocolState) IsActive() bool { return s.Substate.IsActive() }

// IsBlocking reports whether the state's substate is Blocking.
func (s ProtocolState) IsBlocking() bool { return s.Substate.IsBlocking() }

// IsFailed reports whether the state's substate is Failed.
func (s ProtocolState) IsFailed() bool { return s.Substate.IsFailed() }

// IsTerminal reports whether the state can no longer progress: the phase is
// Complete, or the substate is Failed, regardless of phase.
func (s ProtocolState) IsTerminal() bool {
	return s.Phase == Complete || s.Substate.IsFailed()
}

// CanTransition reports whether the state is eligible for a forward or
// failure transition: Active and not terminal.
func (s ProtocolState) CanTransition() bool {
	return s.IsActive() && !s.IsTerminal()
}
