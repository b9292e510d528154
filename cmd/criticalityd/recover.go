package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jackedney/criticality/internal/protocol"
)

var recoverCmd = &cobra.Command{
	Use:   "recover <target-phase>",
	Short: "Route a recoverable Failed substate back to Active via a failure transition",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}

		orch, snapshot, _, err := openSession(cfg)
		if err != nil {
			return err
		}

		if !snapshot.State.Substate.IsFailed() {
			return fmt.Errorf("session is not in a Failed substate (phase=%s substate=%s)", snapshot.State.Phase, snapshot.State.Substate.Kind)
		}
		if !snapshot.State.Substate.Recoverable {
			return fmt.Errorf("failure at phase %s is not recoverable: %s", snapshot.State.Phase, snapshot.State.Substate.Error)
		}

		recovered, err := orch.Recover(context.Background(), snapshot, protocol.Phase(args[0]))
		if err != nil {
			return err
		}

		fmt.Printf("phase=%s substate=%s artifacts=%v\n", recovered.State.Phase, recovered.State.Substate.Kind, recovered.Artifacts.Slice())
		return nil
	},
}
