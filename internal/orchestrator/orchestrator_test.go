package orchestrator

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackedney/criticality/internal/ledger"
	"github.com/jackedney/criticality/internal/persistence"
	"github.com/jackedney/criticality/internal/protocol"
)

// stubOperations succeeds every call with no artifacts by default; tests
// override individual fields to exercise failure paths.
type stubOperations struct {
	modelCall func(ctx context.Context, phase protocol.Phase) (ActionResult, error)
	notified  []string
}

func (s *stubOperations) ExecuteModelCall(ctx context.Context, phase protocol.Phase) (ActionResult, error) {
	if s.modelCall != nil {
		return s.modelCall(ctx, phase)
	}
	return Ok(), nil
}
func (s *stubOperations) RunCompilation(ctx context.Context) (ActionResult, error) { return Ok(), nil }
func (s *stubOperations) RunTests(ctx context.Context) (ActionResult, error)       { return Ok(), nil }
func (s *stubOperations) ArchivePhaseArtifacts(ctx context.Context, phase protocol.Phase) (ActionResult, error) {
	return Ok(), nil
}
func (s *stubOperations) SendBlockingNotification(ctx context.Context, query string) {
	s.notified = append(s.notified, query)
}

func withArtifacts(snap protocol.ProtocolStateSnapshot, as ...protocol.Artifact) protocol.ProtocolStateSnapshot {
	snap.Artifacts = snap.Artifacts.Union(protocol.NewArtifactSet(as...))
	return snap
}

func TestTickTerminalPhaseStopsWithComplete(t *testing.T) {
	snap := protocol.NewSnapshot()
	snap.State.Phase = protocol.Complete
	l := ledger.New("test", time.Now())

	_, result, err := Tick(TickContext{Snapshot: snap, Operations: &stubOperations{}}, time.Now(), l)
	require.NoError(t, err)
	assert.Equal(t, ReasonComplete, result.StopReason)
	assert.False(t, result.ShouldContinue)
}

func TestTickFailedSubstateStops(t *testing.T) {
	snap := protocol.NewSnapshot()
	snap.State.Substate = protocol.NewFailed("compile error", time.Now(), true, "COMPILE_ERROR", nil)
	l := ledger.New("test", time.Now())

	_, result, err := Tick(TickContext{Snapshot: snap, Operations: &stubOperations{}}, time.Now(), l)
	require.NoError(t, err)
	assert.Equal(t, ReasonFailed, result.StopReason)
	assert.Equal(t, "compile error", result.Error)
}

func TestTickActiveAdvancesWhenArtifactsPresent(t *testing.T) {
	snap := withArtifacts(protocol.NewSnapshot(), protocol.ArtifactSpec)
	l := ledger.New("test", time.Now())

	next, result, err := Tick(TickContext{Snapshot: snap, Operations: &stubOperations{}}, time.Now(), l)
	require.NoError(t, err)
	assert.True(t, result.Transitioned)
	assert.True(t, result.ShouldContinue)
	assert.Equal(t, protocol.Lattice, next.State.Phase)
}

func TestTickActiveWaitsWithoutArtifacts(t *testing.T) {
	snap := protocol.NewSnapshot()
	l := ledger.New("test", time.Now())

	_, result, err := Tick(TickContext{Snapshot: snap, Operations: &stubOperations{}}, time.Now(), l)
	require.NoError(t, err)
	assert.False(t, result.Transitioned)
	assert.True(t, result.ShouldContinue)
	assert.Equal(t, ReasonNone, result.StopReason)
}

func TestTickWaitsAtMassDefectWithoutFinalArtifact(t *testing.T) {
	snap := protocol.NewSnapshot()
	snap.State.Phase = protocol.MassDefect
	l := ledger.New("test", time.Now())

	_, result, err := Tick(TickContext{Snapshot: snap, Operations: &stubOperations{}}, time.Now(), l)
	require.NoError(t, err)
	assert.False(t, result.Transitioned)
	assert.True(t, result.ShouldContinue, "artifacts might still arrive for the one valid edge")
	assert.Equal(t, ReasonNone, result.StopReason)
}

func TestTickBlockingTimesOutToFailed(t *testing.T) {
	blockedAt := time.Unix(1000, 0)
	timeoutMs := int64(500)
	snap := protocol.NewSnapshot()
	snap.State.Substate = protocol.NewBlocking("auth?", []string{"a", "b"}, &timeoutMs, blockedAt)
	snap.BlockingQueries = []protocol.BlockingRecord{
		{ID: "blocking-ignition", Phase: protocol.Ignition, Query: "auth?", BlockedAt: blockedAt, Options: []string{"a", "b"}, TimeoutMs: &timeoutMs},
	}
	l := ledger.New("test", time.Now())

	next, result, err := Tick(TickContext{Snapshot: snap, Operations: &stubOperations{}}, blockedAt.Add(600*time.Millisecond), l)
	require.NoError(t, err)
	assert.Equal(t, ReasonFailed, result.StopReason)
	assert.True(t, next.State.Substate.IsFailed())
	assert.Equal(t, "BLOCKING_TIMEOUT", next.State.Substate.Code)
}

func TestTickBlockingAppliesPendingResolution(t *testing.T) {
	blockedAt := time.Now()
	snap := protocol.NewSnapshot()
	snap.State.Substate = protocol.NewBlocking("auth?", []string{"oauth", "password"}, nil, blockedAt)
	snap.BlockingQueries = []protocol.BlockingRecord{
		{ID: "blocking-ignition", Phase: protocol.Ignition, Query: "auth?", BlockedAt: blockedAt, Options: []string{"oauth", "password"}},
	}
	l := ledger.New("test", time.Now())

	next, result, err := Tick(TickContext{
		Snapshot:           snap,
		PendingResolutions: []Resolution{{Response: "oauth"}},
		Operations:         &stubOperations{},
	}, time.Now(), l)
	require.NoError(t, err)
	assert.True(t, result.Transitioned)
	assert.True(t, result.ShouldContinue)
	assert.True(t, next.State.Substate.IsActive())
	assert.Equal(t, 1, l.Len())
	assert.True(t, next.BlockingQueries[0].Resolved)
}

func TestTickBlockingWithoutResolutionStaysBlocked(t *testing.T) {
	blockedAt := time.Now()
	snap := protocol.NewSnapshot()
	snap.State.Substate = protocol.NewBlocking("auth?", []string{"oauth"}, nil, blockedAt)
	snap.BlockingQueries = []protocol.BlockingRecord{
		{ID: "blocking-ignition", Phase: protocol.Ignition, Query: "auth?", BlockedAt: blockedAt, Options: []string{"oauth"}},
	}
	l := ledger.New("test", time.Now())

	_, result, err := Tick(TickContext{Snapshot: snap, Operations: &stubOperations{}}, time.Now(), l)
	require.NoError(t, err)
	assert.Equal(t, ReasonBlocked, result.StopReason)
	assert.False(t, result.ShouldContinue)
}

// TestRunLinearHappyPath drives a full Ignition->Complete run using an
// auto-advance Rule that materializes each phase's artifacts on demand,
// exercising the Operations port end to end (scenario S1).
func TestRunLinearHappyPath(t *testing.T) {
	dir := t.TempDir()
	statePath := filepath.Join(dir, "state.json")
	ledgerPath := filepath.Join(dir, "ledger.json")

	clock := protocol.FixedClock(time.Unix(0, 0))
	l := ledger.New("test", clock())
	o := New(clock, nil, statePath, ledgerPath, l)
	o.Rules = []Rule{
		{Name: "produce-spec", Guard: Not(HasArtifacts(protocol.ArtifactSpec)), Action: ProduceArtifacts(protocol.ArtifactSpec)},
		{Name: "produce-lattice", Guard: And(HasArtifacts(protocol.ArtifactSpec), Not(HasArtifacts(protocol.ArtifactLatticeCode))), Action: ProduceArtifacts(protocol.ArtifactLatticeCode, protocol.ArtifactWitnesses, protocol.ArtifactContracts)},
		{Name: "produce-audit", Guard: And(HasArtifacts(protocol.ArtifactContracts), Not(HasArtifacts(protocol.ArtifactAuditReport))), Action: ProduceArtifacts(protocol.ArtifactAuditReport)},
		{Name: "produce-impl", Guard: And(HasArtifacts(protocol.ArtifactAuditReport), Not(HasArtifacts(protocol.ArtifactImplementation))), Action: ProduceArtifacts(protocol.ArtifactImplementation)},
		{Name: "produce-tests", Guard: And(HasArtifacts(protocol.ArtifactImplementation), Not(HasArtifacts(protocol.ArtifactTests))), Action: ProduceArtifacts(protocol.ArtifactTests)},
		{Name: "produce-final", Guard: And(HasArtifacts(protocol.ArtifactTests), Not(HasArtifacts(protocol.ArtifactFinalArtifact))), Action: ProduceArtifacts(protocol.ArtifactFinalArtifact)},
	}
	o.MaxTicks = 50

	final, result, err := o.Run(context.Background(), protocol.NewSnapshot(), &stubOperations{}, nil)
	require.NoError(t, err)
	assert.Equal(t, ReasonComplete, result.StopReason)
	assert.Equal(t, protocol.Complete, final.State.Phase)
}

func TestRunStopsAtMaxTicksWhenStalled(t *testing.T) {
	dir := t.TempDir()
	clock := protocol.FixedClock(time.Unix(0, 0))
	l := ledger.New("test", clock())
	o := New(clock, nil, filepath.Join(dir, "state.json"), filepath.Join(dir, "ledger.json"), l)
	o.MaxTicks = 5

	_, result, err := o.Run(context.Background(), protocol.NewSnapshot(), &stubOperations{}, nil)
	require.NoError(t, err)
	assert.Equal(t, ReasonExternalError, result.StopReason)
	assert.Contains(t, result.Error, "maxTicks")
}

// TestRunRecoversViaFailureTransition drives scenario S6 end to end: a
// worker reports a recoverable circuit-break during Injection, Tick's Rule 2
// halts the run with the substate Failed{recoverable: true}, a caller-driven
// Recover call routes back to Lattice via FailureTransitions with the
// artifact set preserved, and the tick loop resumes from there.
func TestRunRecoversViaFailureTransition(t *testing.T) {
	dir := t.TempDir()
	statePath := filepath.Join(dir, "state.json")
	ledgerPath := filepath.Join(dir, "ledger.json")

	clock := protocol.FixedClock(time.Unix(0, 0))
	l := ledger.New("test", clock())
	o := New(clock, nil, statePath, ledgerPath, l)

	attempts := 0
	ops := &stubOperations{
		modelCall: func(ctx context.Context, phase protocol.Phase) (ActionResult, error) {
			if phase == protocol.Injection {
				attempts++
				if attempts == 1 {
					return Failed("circuit breaker tripped", true), nil
				}
			}
			return Ok(), nil
		},
	}
	o.Rules = []Rule{
		{
			Name: "inject",
			Guard: func(tc TickContext) bool {
				return tc.Snapshot.State.Phase == protocol.Injection &&
					tc.Snapshot.State.Substate.IsActive() &&
					!tc.Snapshot.Artifacts.Contains(protocol.ArtifactImplementation)
			},
			Action: CallModel(protocol.Injection),
		},
	}
	o.MaxTicks = 10

	snap := withArtifacts(protocol.NewSnapshot(), protocol.ArtifactSpec, protocol.ArtifactAuditReport)
	snap.State.Phase = protocol.Injection

	failed, result, err := o.Run(context.Background(), snap, ops, nil)
	require.NoError(t, err)
	assert.Equal(t, ReasonFailed, result.StopReason)
	require.True(t, failed.State.Substate.IsFailed())
	assert.True(t, failed.State.Substate.Recoverable)
	preserved := failed.Artifacts.Slice()

	recovered, err := o.Recover(context.Background(), failed, protocol.Lattice)
	require.NoError(t, err)
	assert.Equal(t, protocol.Lattice, recovered.State.Phase)
	assert.True(t, recovered.State.Substate.IsActive())
	assert.Equal(t, preserved, recovered.Artifacts.Slice())

	persisted, err := persistence.LoadState(statePath)
	require.NoError(t, err)
	assert.Equal(t, protocol.Lattice, persisted.State.Phase)

	_, resumed, err := o.Step(context.Background(), recovered, nil, ops)
	require.NoError(t, err)
	assert.True(t, resumed.ShouldContinue)
}

func TestGuardCombinators(t *testing.T) {
	tc := TickContext{Snapshot: withArtifacts(protocol.NewSnapshot(), protocol.ArtifactSpec)}
	assert.True(t, HasArtifacts(protocol.ArtifactSpec)(tc))
	assert.False(t, HasArtifacts(protocol.ArtifactSpec, protocol.ArtifactLatticeCode)(tc))
	assert.True(t, Or(Never(), Always())(tc))
	assert.False(t, And(Always(), Never())(tc))
	assert.True(t, Not(Never())(tc))
}

func TestSequenceActionStopsAtFirstFailure(t *testing.T) {
	calls := 0
	failing := func(context.Context, TickContext) (ActionResult, error) {
		calls++
		return Failed("boom", false), nil
	}
	neverCalled := func(context.Context, TickContext) (ActionResult, error) {
		calls++
		return Ok(), nil
	}
	result, err := Sequence(ProduceArtifacts(protocol.ArtifactSpec), failing, neverCalled)(context.Background(), TickContext{})
	require.NoError(t, err)
	assert.False(t, result.OK)
	assert.Equal(t, 1, calls)
	assert.Contains(t, result.Artifacts, protocol.ArtifactSpec)
}
