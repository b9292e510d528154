package blocking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackedney/criticality/internal/ledger"
	"github.com/jackedney/criticality/internal/protocol"
)

func TestEnterReplacesSubstateKeepsPhase(t *testing.T) {
	state := protocol.ProtocolState{Phase: protocol.Ignition, Substate: protocol.NewActive("", "")}
	timeout := int64(1000)

	newState, record := Enter(state, EnterParams{
		Query: "Auth mechanism?", Options: []string{"password", "oauth"}, TimeoutMs: &timeout,
	}, time.Unix(0, 0))

	assert.Equal(t, protocol.Ignition, newState.Phase)
	assert.True(t, newState.Substate.IsBlocking())
	assert.Equal(t, "blocking-ignition", record.ID)
	assert.Equal(t, protocol.Ignition, record.Phase)
	assert.False(t, record.Resolved)
}

func TestCheckTimeoutBoundary(t *testing.T) {
	blockedAt := time.Unix(1000, 0)
	timeoutMs := int64(1000)
	record := protocol.BlockingRecord{BlockedAt: blockedAt, TimeoutMs: &timeoutMs}

	notYet := CheckTimeout(record, blockedAt.Add(999*time.Millisecond))
	assert.False(t, notYet.TimedOut)

	exactly := CheckTimeout(record, blockedAt.Add(1000*time.Millisecond))
	assert.True(t, exactly.TimedOut)

	past := CheckTimeout(record, blockedAt.Add(1001*time.Millisecond))
	assert.True(t, past.TimedOut)
}

func TestCheckTimeoutNeverForNoDeadline(t *testing.T) {
	record := protocol.BlockingRecord{BlockedAt: time.Now()}
	status := CheckTimeout(record, time.Now().Add(10*time.Hour))
	assert.False(t, status.TimedOut)
}

func TestResolveWithOptionAppendsCanonicalDecision(t *testing.T) {
	l := ledger.New("criticality", time.Now())
	state := protocol.ProtocolState{Phase: protocol.Ignition, Substate: protocol.NewBlocking("Auth mechanism?", []string{"password", "oauth"}, nil, time.Now())}
	record := &protocol.BlockingRecord{ID: "blocking-ignition", Phase: protocol.Ignition, Query: "Auth mechanism?", Options: []string{"password", "oauth"}}

	newState, err := Resolve(l, state, record, ResolveInput{Response: "oauth"}, time.Now())
	require.NoError(t, err)
	assert.True(t, newState.Substate.IsActive())
	assert.True(t, record.Resolved)
	require.NotNil(t, record.Response)
	assert.Equal(t, "oauth", *record.Response)

	require.Equal(t, 1, l.Len())
	decisions := l.Decisions()
	assert.Equal(t, ledger.SourceHumanResolution, decisions[0].Source)
	assert.Equal(t, ledger.ConfidenceCanonical, decisions[0].Confidence)
	assert.Equal(t, "oauth", decisions[0].Constraint)
	assert.Equal(t, "blocking-ignition", decisions[0].HumanQueryID)
}

func TestResolveRejectsInvalidOption(t *testing.T) {
	l := ledger.New("criticality", time.Now())
	state := protocol.ProtocolState{Phase: protocol.Ignition, Substate: protocol.NewBlocking("q", []string{"a", "b"}, nil, time.Now())}
	record := &protocol.BlockingRecord{ID: "blocking-ignition", Phase: protocol.Ignition, Query: "q", Options: []string{"a", "b"}}

	_, err := Resolve(l, state, record, ResolveInput{Response: "c"}, time.Now())
	require.ErrorIs(t, err, ErrInvalidOption)
	assert.False(t, record.Resolved, "ledger append must not occur, and record must stay unresolved")
	assert.Equal(t, 0, l.Len())
}

func TestResolveAllowsCustomResponseWhenPermitted(t *testing.T) {
	l := ledger.New("criticality", time.Now())
	state := protocol.ProtocolState{Phase: protocol.Ignition, Substate: protocol.NewBlocking("q", []string{"a", "b"}, nil, time.Now())}
	record := &protocol.BlockingRecord{ID: "blocking-ignition", Phase: protocol.Ignition, Query: "q", Options: []string{"a", "b"}}

	_, err := Resolve(l, state, record, ResolveInput{Response: "custom answer", AllowCustomResponse: true}, time.Now())
	require.NoError(t, err)
	assert.True(t, record.Resolved)
}

func TestResolveRejectsEmptyCustomResponse(t *testing.T) {
	l := ledger.New("criticality", time.Now())
	state := protocol.ProtocolState{Phase: protocol.Ignition, Substate: protocol.NewBlocking("q", []string{"a"}, nil, time.Now())}
	record := &protocol.BlockingRecord{ID: "blocking-ignition", Phase: protocol.Ignition, Query: "q", Options: []string{"a"}}

	_, err := Resolve(l, state, record, ResolveInput{Response: "   ", AllowCustomResponse: true}, time.Now())
	require.ErrorIs(t, err, ErrCustomNotAllowed)
}

func TestResolveAlreadyResolved(t *testing.T) {
	l := ledger.New("criticality", time.Now())
	state := protocol.ProtocolState{Phase: protocol.Ignition, Substate: protocol.NewBlocking("q", []string{"a"}, nil, time.Now())}
	resolvedAt := time.Now()
	response := "a"
	record := &protocol.BlockingRecord{ID: "blocking-ignition", Phase: protocol.Ignition, Query: "q", Options: []string{"a"}, Resolved: true, ResolvedAt: &resolvedAt, Response: &response}

	_, err := Resolve(l, state, record, ResolveInput{Response: "a"}, time.Now())
	require.ErrorIs(t, err, ErrAlreadyResolved)
}
