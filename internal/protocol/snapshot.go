package protocol

// ProtocolStateSnapshot is the full persisted state of one orchestrator
// session: the current (Phase, Substate), the artifacts produced so far,
// and the history of blocking queries. Artifacts only ever grow within a
// session; the core never revokes one.
type ProtocolStateSnapshot struct {
	State           ProtocolState
	Artifacts       ArtifactSet
	BlockingQueries []BlockingRecord
}

// NewSnapshot returns the snapshot an orchestrator session is born with:
// Ignition/Active, no artifacts, no blocking history.
func NewSnapshot() ProtocolStateSnapshot {
	return ProtocolStateSnapshot{
		State:           ProtocolState{Phase: Ignition, Substate: NewActive("", "")},
		Artifacts:       NewArtifactSet(),
		BlockingQueries: nil,
	}
}

// Clone returns an independent deep copy of the snapshot's mutable parts
// (the artifact set and blocking query slice), so callers can evolve a new
// snapshot without aliasing the original.
func (s ProtocolStateSnapshot) Clone() ProtocolStateSnapshot {
	out := ProtocolStateSnapshot{
		State:     s.State,
		Artifacts: s.Artifacts.Clone(),
	}
	if s.BlockingQueries != nil {
		out.BlockingQueries = make([]BlockingRecord, len(s.BlockingQueries))
		copy(out.BlockingQueries, s.BlockingQueries)
	}
	return out
}
