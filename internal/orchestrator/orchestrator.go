package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackedney/criticality/internal/ledger"
	"github.com/jackedney/criticality/internal/persistence"
	"github.com/jackedney/criticality/internal/protocol"
	"github.com/jackedney/criticality/internal/transitions"
)

// DefaultMaxTicks bounds Run's loop. Idle ticks (ShouldContinue true but no
// transition, i.e. waiting on artifacts) count against the cap the same as
// productive ones, so a stalled run still terminates.
const DefaultMaxTicks = 1000

// Rule is an optional auto-advance binding: when Guard is satisfied against
// the current tick context, Action runs before the next Tick call, and any
// artifacts it produces are merged into the snapshot. Rules let a CLI or
// daemon exercise the Operations port; the core classification in Tick
// never consults them on its own.
type Rule struct {
	Name   string
	Guard  Guard
	Action Action
}

// Orchestrator owns the persisted state and ledger for one protocol session
// and drives Tick in a loop, persisting after every tick via the shared
// atomic write discipline.
type Orchestrator struct {
	Clock      protocol.Clock
	Logger     *slog.Logger
	StatePath  string
	LedgerPath string
	Ledger     *ledger.Ledger
	MaxTicks   int
	Rules      []Rule
}

// New builds an Orchestrator wired to statePath/ledgerPath. If a prior state
// or ledger file already exists, the caller should use Resume instead.
func New(clock protocol.Clock, logger *slog.Logger, statePath, ledgerPath string, ledg *ledger.Ledger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		Clock:      clock,
		Logger:     logger,
		StatePath:  statePath,
		LedgerPath: ledgerPath,
		Ledger:     ledg,
		MaxTicks:   DefaultMaxTicks,
	}
}

// Resume loads a persisted snapshot and ledger from disk, returning an
// Orchestrator and the recovered snapshot ready for the next tick.
func Resume(clock protocol.Clock, logger *slog.Logger, statePath, ledgerPath string) (*Orchestrator, protocol.ProtocolStateSnapshot, error) {
	snapshot, err := persistence.LoadState(statePath)
	if err != nil {
		return nil, protocol.ProtocolStateSnapshot{}, err
	}
	ledg, err := ledger.Load(ledgerPath)
	if err != nil {
		return nil, protocol.ProtocolStateSnapshot{}, err
	}
	return New(clock, logger, statePath, ledgerPath, ledg), snapshot, nil
}

// applyRules runs every Rule whose Guard is satisfied, merging produced
// artifacts into snapshot. A Rule action error is logged and the rule is
// skipped (transient, worth retrying next tick). A Rule action that
// completes with ActionResult.OK false is a reported phase-worker failure:
// per spec section 7 it moves the snapshot's Substate to Failed with the
// reported recoverability, and no further rules run this tick — the next
// Tick call will classify the Failed substate and stop the loop until a
// caller-driven recovery (see Orchestrator.Recover) moves it back to Active.
func (o *Orchestrator) applyRules(ctx context.Context, tc TickContext) protocol.ProtocolStateSnapshot {
	snap := tc.Snapshot
	for _, rule := range o.Rules {
		if !rule.Guard(TickContext{Snapshot: snap, PendingResolutions: tc.PendingResolutions, Operations: tc.Operations}) {
			continue
		}
		result, err := rule.Action(ctx, TickContext{Snapshot: snap, Operations: tc.Operations})
		if err != nil {
			o.Logger.Error("rule action errored", "rule", rule.Name, "error", err)
			continue
		}
		if !result.OK {
			o.Logger.Warn("rule action failed, transitioning to Failed", "rule", rule.Name, "error", result.Err, "recoverable", result.Recoverable)
			snap = snap.Clone()
			snap.State.Substate = protocol.NewFailed(result.Err, o.Clock(), result.Recoverable, "RULE_ACTION_FAILED", nil)
			return snap
		}
		if len(result.Artifacts) > 0 {
			snap = snap.Clone()
			snap.Artifacts = snap.Artifacts.Union(protocol.NewArtifactSet(result.Artifacts...))
			o.Logger.Info("rule produced artifacts", "rule", rule.Name, "artifacts", result.Artifacts)
		}
	}
	return snap
}

// Recover is the caller-driven counterpart to Rule-triggered failure: it
// attempts to move a recoverable Failed snapshot back to Active along a
// registered FailureTransitions edge to target, then persists the result.
// It is the only way out of Failed{recoverable: true} — Tick's Rule 2 never
// leaves Failed on its own (spec section 7).
func (o *Orchestrator) Recover(ctx context.Context, snapshot protocol.ProtocolStateSnapshot, target protocol.Phase) (protocol.ProtocolStateSnapshot, error) {
	newState, err := transitions.RecoverFailure(snapshot.State, target, snapshot.Artifacts)
	if err != nil {
		return snapshot, err
	}

	recovered := snapshot.Clone()
	recovered.State = newState

	now := o.Clock()
	if err := persistence.SaveState(recovered, o.StatePath, now); err != nil {
		o.Logger.Error("failed to persist recovered state", "error", err)
		return recovered, err
	}
	if err := o.Ledger.Save(o.LedgerPath); err != nil {
		o.Logger.Error("failed to persist ledger", "error", err)
		return recovered, err
	}

	o.Logger.Info("recovered from failure", "target", target)
	return recovered, nil
}

// Step runs the registered Rules, then one Tick, then persists the
// resulting snapshot. It is the unit Run loops over, also callable directly
// for a single-step CLI command.
func (o *Orchestrator) Step(ctx context.Context, snapshot protocol.ProtocolStateSnapshot, pending []Resolution, ops Operations) (protocol.ProtocolStateSnapshot, TickResult, error) {
	snapshot = o.applyRules(ctx, TickContext{Snapshot: snapshot, PendingResolutions: pending, Operations: ops})

	now := o.Clock()
	newSnapshot, result, err := Tick(TickContext{Snapshot: snapshot, PendingResolutions: pending, Operations: ops}, now, o.Ledger)
	if err != nil {
		return snapshot, TickResult{StopReason: ReasonExternalError, Error: err.Error()}, err
	}

	if err := persistence.SaveState(newSnapshot, o.StatePath, now); err != nil {
		o.Logger.Error("failed to persist state", "error", err)
		return newSnapshot, TickResult{StopReason: ReasonExternalError, Error: err.Error()}, err
	}
	if err := o.Ledger.Save(o.LedgerPath); err != nil {
		o.Logger.Error("failed to persist ledger", "error", err)
		return newSnapshot, TickResult{StopReason: ReasonExternalError, Error: err.Error()}, err
	}

	return newSnapshot, result, nil
}

// Run drives Step in a loop until ShouldContinue is false, ctx is cancelled,
// or MaxTicks ticks have elapsed (0 means DefaultMaxTicks). pendingResolver
// is consulted once per tick to fetch any queued Resolution; it may return
// nil.
func (o *Orchestrator) Run(ctx context.Context, snapshot protocol.ProtocolStateSnapshot, ops Operations, pendingResolver func() []Resolution) (protocol.ProtocolStateSnapshot, TickResult, error) {
	maxTicks := o.MaxTicks
	if maxTicks <= 0 {
		maxTicks = DefaultMaxTicks
	}

	var result TickResult
	for i := 0; i < maxTicks; i++ {
		select {
		case <-ctx.Done():
			return snapshot, TickResult{StopReason: ReasonExternalError, Error: ctx.Err().Error()}, ctx.Err()
		default:
		}

		var pending []Resolution
		if pendingResolver != nil {
			pending = pendingResolver()
		}

		var err error
		snapshot, result, err = o.Step(ctx, snapshot, pending, ops)
		if err != nil {
			return snapshot, result, err
		}
		o.Logger.Debug("tick complete", "phase", snapshot.State.Phase, "transitioned", result.Transitioned, "continue", result.ShouldContinue)

		if !result.ShouldContinue {
			return snapshot, result, nil
		}
	}

	o.Logger.Warn("run stopped: max ticks reached", "maxTicks", maxTicks)
	return snapshot, TickResult{StopReason: ReasonExternalError, Error: fmt.Sprintf("exceeded maxTicks cap of %d without reaching a stopping condition", maxTicks)}, nil
}
