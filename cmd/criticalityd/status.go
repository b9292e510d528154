package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jackedney/criticality/internal/persistence"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report the current phase, substate, and artifacts without advancing",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}

		snapshot, err := persistence.LoadState(cfg.Storage.StatePath)
		if err != nil {
			return fmt.Errorf("no session at %s yet: %w", cfg.Storage.StatePath, err)
		}

		fmt.Printf("phase: %s\n", snapshot.State.Phase)
		fmt.Printf("substate: %s\n", snapshot.State.Substate.Kind)
		switch snapshot.State.Substate.Kind {
		case "Blocking":
			fmt.Printf("  query: %s\n", snapshot.State.Substate.Query)
			if len(snapshot.State.Substate.Options) > 0 {
				fmt.Printf("  options: %v\n", snapshot.State.Substate.Options)
			}
		case "Failed":
			fmt.Printf("  error: %s\n", snapshot.State.Substate.Error)
			fmt.Printf("  recoverable: %t\n", snapshot.State.Substate.Recoverable)
		}

		fmt.Printf("artifacts: %v\n", snapshot.Artifacts.Slice())

		if len(snapshot.BlockingQueries) > 0 {
			fmt.Println("blocking history:")
			for _, r := range snapshot.BlockingQueries {
				fmt.Printf("  %s (phase=%s resolved=%t)\n", r.ID, r.Phase, r.Resolved)
			}
		}
		return nil
	},
}
