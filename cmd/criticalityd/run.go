package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a protocol session to completion, blocking, or failure",
	Long: `run drives the tick loop until it stops making progress: the
protocol reaches Complete, a substate goes Blocking or Failed, no valid
transition remains, or the configured max-ticks cap is exceeded.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}

		orch, snapshot, ops, err := openSession(cfg)
		if err != nil {
			return err
		}

		final, result, err := orch.Run(context.Background(), snapshot, ops, nil)
		if err != nil {
			return err
		}

		fmt.Printf("phase=%s stopReason=%s transitioned=%t\n", final.State.Phase, result.StopReason, result.Transitioned)
		if result.Error != "" {
			fmt.Printf("error: %s\n", result.Error)
		}
		return nil
	},
}
