package main

import (
	"os"

	"github.com/jackedney/criticality/internal/config"
	"github.com/jackedney/criticality/internal/demo"
	"github.com/jackedney/criticality/internal/ledger"
	"github.com/jackedney/criticality/internal/orchestrator"
	"github.com/jackedney/criticality/internal/protocol"
)

// openSession loads the persisted snapshot and ledger at cfg's configured
// paths if they exist, or starts a fresh Ignition/Active session with an
// empty ledger otherwise. It wires the demo Operations port and its
// DefaultRules as the concrete (non-production) phase-worker stand-in.
func openSession(cfg *config.Config) (*orchestrator.Orchestrator, protocol.ProtocolStateSnapshot, orchestrator.Operations, error) {
	clock := protocol.RealClock()
	ops := demo.New(logger)

	if _, err := os.Stat(cfg.Storage.StatePath); err == nil {
		orch, snapshot, err := orchestrator.Resume(clock, logger, cfg.Storage.StatePath, cfg.Storage.LedgerPath)
		if err != nil {
			return nil, protocol.ProtocolStateSnapshot{}, nil, err
		}
		orch.MaxTicks = cfg.Run.MaxTicks
		orch.Rules = demo.DefaultRules()
		return orch, snapshot, ops, nil
	}

	l := ledger.New(cfg.Storage.Project, clock())
	orch := orchestrator.New(clock, logger, cfg.Storage.StatePath, cfg.Storage.LedgerPath, l)
	orch.MaxTicks = cfg.Run.MaxTicks
	orch.Rules = demo.DefaultRules()
	return orch, protocol.NewSnapshot(), ops, nil
}
