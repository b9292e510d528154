package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jackedney/criticality/internal/orchestrator"
)

var (
	resolveAllowCustom bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <response>",
	Short: "Answer the current blocking query and advance one tick",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}

		orch, snapshot, ops, err := openSession(cfg)
		if err != nil {
			return err
		}

		if !snapshot.State.Substate.IsBlocking() {
			return fmt.Errorf("session is not in a Blocking substate (phase=%s substate=%s)", snapshot.State.Phase, snapshot.State.Substate.Kind)
		}

		resolution := []orchestrator.Resolution{{Response: args[0], AllowCustomResponse: resolveAllowCustom}}
		newSnapshot, result, err := orch.Step(context.Background(), snapshot, resolution, ops)
		if err != nil {
			return err
		}

		fmt.Printf("phase=%s substate=%s transitioned=%t\n", newSnapshot.State.Phase, newSnapshot.State.Substate.Kind, result.Transitioned)
		return nil
	},
}

func init() {
	resolveCmd.Flags().BoolVar(&resolveAllowCustom, "allow-custom", false, "accept a response not in the query's offered options")
}
