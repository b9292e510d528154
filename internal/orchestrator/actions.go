package orchestrator

import (
	"context"

	"github.com/jackedney/criticality/internal/protocol"
)

// Action is a composable step that may call into Operations, used by the
// optional auto-advance Rule extension to actually drive phase workers when
// a target phase's required artifacts are not yet present. The literal
// tick() classification never invokes an Action on its own; a caller wires
// Rules explicitly (see Orchestrator.Rules).
type Action func(ctx context.Context, tc TickContext) (ActionResult, error)

// Sequence runs actions in order, stopping at the first failure. Artifacts
// from every action that ran are accumulated into the returned result.
func Sequence(actions ...Action) Action {
	return func(ctx context.Context, tc TickContext) (ActionResult, error) {
		var produced []protocol.Artifact
		for _, a := range actions {
			result, err := a(ctx, tc)
			if err != nil {
				return ActionResult{}, err
			}
			produced = append(produced, result.Artifacts...)
			if !result.OK {
				return ActionResult{OK: false, Artifacts: produced, Err: result.Err, Recoverable: result.Recoverable}, nil
			}
		}
		return ActionResult{OK: true, Artifacts: produced}, nil
	}
}

// ProduceArtifacts is a pure Action: it succeeds unconditionally and reports
// the given artifacts as produced, without touching Operations. Useful in
// tests and for demo wiring.
func ProduceArtifacts(artifacts ...protocol.Artifact) Action {
	return func(context.Context, TickContext) (ActionResult, error) {
		return Ok(artifacts...), nil
	}
}

// Noop succeeds and produces nothing.
func Noop() Action {
	return func(context.Context, TickContext) (ActionResult, error) {
		return Ok(), nil
	}
}

// CallModel invokes tc.Operations.ExecuteModelCall for phase.
func CallModel(phase protocol.Phase) Action {
	return func(ctx context.Context, tc TickContext) (ActionResult, error) {
		return tc.Operations.ExecuteModelCall(ctx, phase)
	}
}

// Compile invokes tc.Operations.RunCompilation.
func Compile() Action {
	return func(ctx context.Context, tc TickContext) (ActionResult, error) {
		return tc.Operations.RunCompilation(ctx)
	}
}

// Test invokes tc.Operations.RunTests.
func Test() Action {
	return func(ctx context.Context, tc TickContext) (ActionResult, error) {
		return tc.Operations.RunTests(ctx)
	}
}

// Archive invokes tc.Operations.ArchivePhaseArtifacts for phase.
func Archive(phase protocol.Phase) Action {
	return func(ctx context.Context, tc TickContext) (ActionResult, error) {
		return tc.Operations.ArchivePhaseArtifacts(ctx, phase)
	}
}
