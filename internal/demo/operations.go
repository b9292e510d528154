// Package demo provides a self-contained Operations implementation and a
// default Rule set so criticalityd can run a protocol session end to end
// without a real model router or compiler wired in. It is the reference
// wiring for internal/orchestrator.Operations, not a production worker.
package demo

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackedney/criticality/internal/orchestrator"
	"github.com/jackedney/criticality/internal/protocol"
)

// phaseArtifacts is what ExecuteModelCall "produces" for each phase, chosen
// to satisfy internal/transitions.RequiredArtifacts for the next forward
// target.
var phaseArtifacts = map[protocol.Phase][]protocol.Artifact{
	protocol.Ignition:         {protocol.ArtifactSpec},
	protocol.Lattice:          {protocol.ArtifactLatticeCode, protocol.ArtifactWitnesses, protocol.ArtifactContracts},
	protocol.CompositionAudit: {protocol.ArtifactAuditReport},
	protocol.Injection:        {protocol.ArtifactImplementation},
	protocol.Mesoscopic:       {protocol.ArtifactTests},
	protocol.MassDefect:       {protocol.ArtifactFinalArtifact},
}

// Operations is an in-memory stand-in for the real phase workers and model
// router: every call succeeds deterministically and logs what it did.
type Operations struct {
	Logger *slog.Logger
}

// New builds a demo Operations, defaulting to slog.Default() if logger is
// nil.
func New(logger *slog.Logger) *Operations {
	if logger == nil {
		logger = slog.Default()
	}
	return &Operations{Logger: logger}
}

func (o *Operations) ExecuteModelCall(ctx context.Context, phase protocol.Phase) (orchestrator.ActionResult, error) {
	artifacts, ok := phaseArtifacts[phase]
	if !ok {
		return orchestrator.Failed(fmt.Sprintf("demo: no simulated output for phase %s", phase), false), nil
	}
	o.Logger.Info("demo model call", "phase", phase, "artifacts", artifacts)
	return orchestrator.Ok(artifacts...), nil
}

func (o *Operations) RunCompilation(ctx context.Context) (orchestrator.ActionResult, error) {
	o.Logger.Info("demo compilation", "result", "ok")
	return orchestrator.Ok(), nil
}

func (o *Operations) RunTests(ctx context.Context) (orchestrator.ActionResult, error) {
	o.Logger.Info("demo test run", "result", "ok")
	return orchestrator.Ok(), nil
}

func (o *Operations) ArchivePhaseArtifacts(ctx context.Context, phase protocol.Phase) (orchestrator.ActionResult, error) {
	o.Logger.Info("demo archive", "phase", phase)
	return orchestrator.Ok(), nil
}

func (o *Operations) SendBlockingNotification(ctx context.Context, query string) {
	o.Logger.Info("demo blocking notification", "query", query)
}

// DefaultRules wires one auto-advance Rule per phase: whenever that phase
// is active and hasn't yet produced its model-call artifacts, call the
// model and merge what it returns. This is the concrete exercise of the
// Guard/Action combinators against a real (if simulated) Operations value.
func DefaultRules() []orchestrator.Rule {
	rules := make([]orchestrator.Rule, 0, len(phaseArtifacts))
	for phase, artifacts := range phaseArtifacts {
		phase, artifacts := phase, artifacts
		rules = append(rules, orchestrator.Rule{
			Name: "model-call-" + string(phase),
			Guard: orchestrator.And(
				phaseIs(phase),
				orchestrator.Not(orchestrator.HasArtifacts(artifacts...)),
			),
			Action: orchestrator.CallModel(phase),
		})
	}
	return rules
}

func phaseIs(phase protocol.Phase) orchestrator.Guard {
	return func(tc orchestrator.TickContext) bool {
		return tc.Snapshot.State.Phase == phase && tc.Snapshot.State.Substate.IsActive()
	}
}
