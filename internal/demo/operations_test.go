package demo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackedney/criticality/internal/ledger"
	"github.com/jackedney/criticality/internal/orchestrator"
	"github.com/jackedney/criticality/internal/protocol"
)

func TestExecuteModelCallProducesExpectedArtifacts(t *testing.T) {
	ops := New(nil)
	result, err := ops.ExecuteModelCall(context.Background(), protocol.Ignition)
	require.NoError(t, err)
	assert.True(t, result.OK)
	assert.Contains(t, result.Artifacts, protocol.ArtifactSpec)
}

func TestExecuteModelCallFailsForUnknownPhase(t *testing.T) {
	ops := New(nil)
	result, err := ops.ExecuteModelCall(context.Background(), protocol.Complete)
	require.NoError(t, err)
	assert.False(t, result.OK)
}

func TestDefaultRulesDriveFullRun(t *testing.T) {
	dir := t.TempDir()
	clock := protocol.FixedClock(time.Unix(0, 0))
	l := ledger.New("demo", clock())
	o := orchestrator.New(clock, nil, dir+"/state.json", dir+"/ledger.json", l)
	o.Rules = DefaultRules()
	o.MaxTicks = 100

	final, result, err := o.Run(context.Background(), protocol.NewSnapshot(), New(nil), nil)
	require.NoError(t, err)
	assert.Equal(t, orchestrator.ReasonComplete, result.StopReason)
	assert.Equal(t, protocol.Complete, final.State.Phase)
}
