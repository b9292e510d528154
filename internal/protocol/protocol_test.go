package protocol

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubstatePredicates(t *testing.T) {
	active := NewActive("write-tests", "")
	blocking := NewBlocking("Auth mechanism?", []string{"password", "oauth"}, nil, time.Now())
	failed := NewFailed("boom", time.Now(), true, "TIMEOUT", nil)

	assert.True(t, active.IsActive())
	assert.False(t, active.IsBlocking())
	assert.False(t, active.IsFailed())

	assert.True(t, blocking.IsBlocking())
	assert.False(t, blocking.IsActive())

	assert.True(t, failed.IsFailed())
	assert.False(t, failed.IsActive())
}

func TestProtocolStateTerminal(t *testing.T) {
	tests := []struct {
		name  string
		state ProtocolState
		want  bool
	}{
		{"complete+active is terminal", ProtocolState{Phase: Complete, Substate: NewActive("", "")}, true},
		{"failed is terminal regardless of phase", ProtocolState{Phase: Lattice, Substate: NewFailed("x", time.Now(), true, "", nil)}, true},
		{"active mid-phase is not terminal", ProtocolState{Phase: Lattice, Substate: NewActive("", "")}, false},
		{"blocking mid-phase is not terminal", ProtocolState{Phase: Lattice, Substate: NewBlocking("q", nil, nil, time.Now())}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.state.IsTerminal())
		})
	}
}

func TestCanTransition(t *testing.T) {
	assert.True(t, ProtocolState{Phase: Lattice, Substate: NewActive("", "")}.CanTransition())
	assert.False(t, ProtocolState{Phase: Complete, Substate: NewActive("", "")}.CanTransition())
	assert.False(t, ProtocolState{Phase: Lattice, Substate: NewBlocking("q", nil, nil, time.Now())}.CanTransition())
	assert.False(t, ProtocolState{Phase: Lattice, Substate: NewFailed("x", time.Now(), true, "", nil)}.CanTransition())
}

func TestParsePhase(t *testing.T) {
	p, err := ParsePhase("Lattice")
	require.NoError(t, err)
	assert.Equal(t, Lattice, p)

	_, err = ParsePhase("NotAPhase")
	assert.Error(t, err)
}

func TestArtifactSetOperations(t *testing.T) {
	s := NewArtifactSet(ArtifactSpec)
	s2 := s.Add(ArtifactLatticeCode)

	// Add must not mutate the receiver (artifacts only grow by replacement).
	assert.False(t, s.Contains(ArtifactLatticeCode))
	assert.True(t, s2.Contains(ArtifactSpec))
	assert.True(t, s2.Contains(ArtifactLatticeCode))

	required := NewArtifactSet(ArtifactLatticeCode, ArtifactWitnesses, ArtifactContracts)
	assert.False(t, s2.ContainsAll(required))
	missing := s2.Missing(required)
	assert.True(t, missing.Contains(ArtifactWitnesses))
	assert.True(t, missing.Contains(ArtifactContracts))
	assert.False(t, missing.Contains(ArtifactLatticeCode))

	full := s2.Add(ArtifactWitnesses, ArtifactContracts)
	assert.True(t, full.ContainsAll(required))
}

func TestSubstateJSONRoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	timeout := int64(5000)

	cases := []Substate{
		NewActive("implement-module", "generate"),
		NewBlocking("Auth mechanism?", []string{"password", "oauth"}, &timeout, now),
		NewFailed("compile failed", now, true, "COMPILE_ERROR", map[string]any{"retries": float64(2)}),
	}

	for _, want := range cases {
		data, err := json.Marshal(want)
		require.NoError(t, err)

		var got Substate
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, want.Kind, got.Kind)

		switch want.Kind {
		case SubstateActive:
			assert.Equal(t, want.Task, got.Task)
			assert.Equal(t, want.Operation, got.Operation)
		case SubstateBlocking:
			assert.Equal(t, want.Query, got.Query)
			assert.Equal(t, want.Options, got.Options)
			assert.True(t, want.BlockedAt.Equal(got.BlockedAt))
			require.NotNil(t, got.TimeoutMs)
			assert.Equal(t, *want.TimeoutMs, *got.TimeoutMs)
		case SubstateFailed:
			assert.Equal(t, want.Error, got.Error)
			assert.Equal(t, want.Code, got.Code)
			assert.Equal(t, want.Recoverable, got.Recoverable)
			assert.True(t, want.FailedAt.Equal(got.FailedAt))
			assert.Equal(t, want.Context, got.Context)
		}
	}
}

func TestSubstateUnmarshalRejectsMissingRequiredFields(t *testing.T) {
	_, err := parseSubstate(t, `{"kind":"Blocking"}`)
	assert.Error(t, err)

	_, err = parseSubstate(t, `{"kind":"Failed","error":"x"}`)
	assert.Error(t, err)

	_, err = parseSubstate(t, `{"kind":"NotAKind"}`)
	assert.Error(t, err)
}

func parseSubstate(t *testing.T, raw string) (Substate, error) {
	t.Helper()
	var s Substate
	err := json.Unmarshal([]byte(raw), &s)
	return s, err
}
