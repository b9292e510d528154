// Package orchestrator implements the tick loop: per-tick classification
// over (snapshot, artifacts, pendingResolutions, operations), composable
// guards/actions for extending the forward-progress rules, and the
// maxTicks-capped run loop.
package orchestrator

import (
	"context"

	"github.com/jackedney/criticality/internal/protocol"
)

// ActionResult is what an Operations call (or a composed Action) reports:
// either a successful set of newly produced artifacts, or a recoverable or
// fatal error.
type ActionResult struct {
	OK          bool
	Artifacts   []protocol.Artifact
	Err         string
	Recoverable bool
}

// Ok builds a successful ActionResult carrying the given artifacts.
func Ok(artifacts ...protocol.Artifact) ActionResult {
	return ActionResult{OK: true, Artifacts: artifacts}
}

// Failed builds a failing ActionResult.
func Failed(errMsg string, recoverable bool) ActionResult {
	return ActionResult{OK: false, Err: errMsg, Recoverable: recoverable}
}

// Operations is the port through which the core invokes phase workers. The
// core never inspects artifact contents or model output — only whether the
// call succeeded and what artifact kinds it produced.
type Operations interface {
	// ExecuteModelCall drives the model used to produce phase's artifacts.
	ExecuteModelCall(ctx context.Context, phase protocol.Phase) (ActionResult, error)
	// RunCompilation performs an external typecheck/build.
	RunCompilation(ctx context.Context) (ActionResult, error)
	// RunTests performs an external test run.
	RunTests(ctx context.Context) (ActionResult, error)
	// ArchivePhaseArtifacts snapshots a phase's outputs on completion.
	ArchivePhaseArtifacts(ctx context.Context, phase protocol.Phase) (ActionResult, error)
	// SendBlockingNotification is fire-and-forget; failures are logged,
	// never propagated.
	SendBlockingNotification(ctx context.Context, query string)
}
