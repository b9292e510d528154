package transitions

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackedney/criticality/internal/protocol"
)

func active(phase protocol.Phase) protocol.ProtocolState {
	return protocol.ProtocolState{Phase: phase, Substate: protocol.NewActive("", "")}
}

func TestTransitionLinearHappyPath(t *testing.T) {
	state := active(protocol.Ignition)

	state, err := Transition(state, protocol.Lattice, protocol.NewArtifactSet(protocol.ArtifactSpec))
	require.NoError(t, err)
	assert.Equal(t, protocol.Lattice, state.Phase)
	assert.True(t, state.Substate.IsActive())
}

func TestTransitionMissingArtifacts(t *testing.T) {
	state := active(protocol.MassDefect)

	_, err := Transition(state, protocol.Complete, protocol.NewArtifactSet())
	require.Error(t, err)

	var tErr *Error
	require.True(t, errors.As(err, &tErr))
	assert.Equal(t, MissingArtifacts, tErr.Kind)
	assert.True(t, tErr.Missing.Contains(protocol.ArtifactFinalArtifact))
}

func TestTransitionInvalidEdge(t *testing.T) {
	state := active(protocol.Ignition)

	_, err := Transition(state, protocol.MassDefect, protocol.NewArtifactSet())
	var tErr *Error
	require.True(t, errors.As(err, &tErr))
	assert.Equal(t, InvalidEdge, tErr.Kind)
}

func TestTransitionInactiveSubstateRejected(t *testing.T) {
	blocked := protocol.ProtocolState{
		Phase:    protocol.Lattice,
		Substate: protocol.NewBlocking("q", nil, nil, time.Now()),
	}
	_, err := Transition(blocked, protocol.CompositionAudit, protocol.NewArtifactSet(protocol.ArtifactLatticeCode, protocol.ArtifactWitnesses, protocol.ArtifactContracts))
	var tErr *Error
	require.True(t, errors.As(err, &tErr))
	assert.Equal(t, InactiveSubstate, tErr.Kind)
}

func TestTransitionTerminalStateRejected(t *testing.T) {
	complete := active(protocol.Complete)
	_, err := Transition(complete, protocol.Lattice, protocol.NewArtifactSet())
	var tErr *Error
	require.True(t, errors.As(err, &tErr))
	assert.Equal(t, TerminalState, tErr.Kind)
}

func TestFailureTransitionEdge(t *testing.T) {
	state := active(protocol.Injection)
	state, err := Transition(state, protocol.Lattice, protocol.NewArtifactSet(protocol.ArtifactSpec))
	require.NoError(t, err)
	assert.Equal(t, protocol.Lattice, state.Phase)
}

func TestInjectionRequiredArtifactsMatchesSpecVerbatim(t *testing.T) {
	required := RequiredArtifacts[protocol.Injection]
	assert.True(t, required.Contains(protocol.ArtifactAuditReport))
	assert.True(t, required.Contains(protocol.ArtifactSpec))
	assert.Equal(t, 2, len(required))
}
