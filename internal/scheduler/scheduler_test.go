package scheduler

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackedney/criticality/internal/ledger"
	"github.com/jackedney/criticality/internal/orchestrator"
	"github.com/jackedney/criticality/internal/protocol"
)

type stubOperations struct{}

func (stubOperations) ExecuteModelCall(ctx context.Context, phase protocol.Phase) (orchestrator.ActionResult, error) {
	return orchestrator.Ok(), nil
}
func (stubOperations) RunCompilation(ctx context.Context) (orchestrator.ActionResult, error) {
	return orchestrator.Ok(), nil
}
func (stubOperations) RunTests(ctx context.Context) (orchestrator.ActionResult, error) {
	return orchestrator.Ok(), nil
}
func (stubOperations) ArchivePhaseArtifacts(ctx context.Context, phase protocol.Phase) (orchestrator.ActionResult, error) {
	return orchestrator.Ok(), nil
}
func (stubOperations) SendBlockingNotification(ctx context.Context, query string) {}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestOrchestrator(t *testing.T) *orchestrator.Orchestrator {
	t.Helper()
	dir := t.TempDir()
	clock := protocol.FixedClock(time.Unix(0, 0))
	l := ledger.New("test", clock())
	return orchestrator.New(clock, testLogger(), filepath.Join(dir, "state.json"), filepath.Join(dir, "ledger.json"), l)
}

func TestTickSchedulerTickAdvancesSnapshot(t *testing.T) {
	orch := newTestOrchestrator(t)
	s := NewTickScheduler(testLogger(), orch, stubOperations{}, protocol.NewSnapshot(), time.Hour, nil)

	s.tick(context.Background())

	require.NoError(t, s.LastError())
	assert.True(t, s.LastResult().ShouldContinue)
	assert.Equal(t, protocol.Ignition, s.Snapshot().State.Phase)
}

func TestTickSchedulerRunsOnTicker(t *testing.T) {
	orch := newTestOrchestrator(t)
	s := NewTickScheduler(testLogger(), orch, stubOperations{}, protocol.NewSnapshot(), 10*time.Millisecond, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	s.Start(ctx)
	time.Sleep(50 * time.Millisecond)
	s.Stop()

	require.NoError(t, s.LastError())
	assert.Equal(t, protocol.Ignition, s.Snapshot().State.Phase)
}

func TestTickSchedulerStopsAfterStoppingCondition(t *testing.T) {
	orch := newTestOrchestrator(t)
	orch.Rules = []orchestrator.Rule{
		{Name: "produce-spec", Guard: orchestrator.Not(orchestrator.HasArtifacts(protocol.ArtifactSpec)), Action: orchestrator.ProduceArtifacts(protocol.ArtifactSpec)},
	}
	blockedSnap := protocol.NewSnapshot()
	blockedSnap.State.Substate = protocol.NewBlocking("auth?", []string{"oauth"}, nil, time.Now())
	blockedSnap.BlockingQueries = []protocol.BlockingRecord{
		{ID: "blocking-ignition", Phase: protocol.Ignition, Query: "auth?", BlockedAt: time.Now(), Options: []string{"oauth"}},
	}

	s := NewTickScheduler(testLogger(), orch, stubOperations{}, blockedSnap, 10*time.Millisecond, nil)

	s.tick(context.Background())

	require.NoError(t, s.LastError())
	assert.False(t, s.LastResult().ShouldContinue)
	assert.Equal(t, orchestrator.ReasonBlocked, s.LastResult().StopReason)
}
