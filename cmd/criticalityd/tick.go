package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var tickCmd = &cobra.Command{
	Use:   "tick",
	Short: "Advance a protocol session by exactly one tick",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}

		orch, snapshot, ops, err := openSession(cfg)
		if err != nil {
			return err
		}

		newSnapshot, result, err := orch.Step(context.Background(), snapshot, nil, ops)
		if err != nil {
			return err
		}

		fmt.Printf("phase=%s substate=%s transitioned=%t shouldContinue=%t stopReason=%s\n",
			newSnapshot.State.Phase, newSnapshot.State.Substate.Kind, result.Transitioned, result.ShouldContinue, result.StopReason)
		return nil
	},
}
