package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	ledgerpkg "github.com/jackedney/criticality/internal/ledger"
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect and manage the decision ledger",
}

var ledgerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every decision recorded in the ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}

		l, err := ledgerpkg.Load(cfg.Storage.LedgerPath)
		if err != nil {
			return fmt.Errorf("no ledger at %s yet: %w", cfg.Storage.LedgerPath, err)
		}

		for _, d := range l.Decisions() {
			fmt.Printf("%-20s [%s/%s] %s — %s\n", d.ID, d.Status, d.Confidence, d.Phase, d.Constraint)
		}
		return nil
	},
}

var (
	supersedeCategory   string
	supersedeSource     string
	supersedeConfidence string
	supersedePhase      string
	supersedeRationale  string
	supersedeForce      bool
)

var ledgerSupersedeCmd = &cobra.Command{
	Use:   "supersede <oldId> <constraint>",
	Short: "Supersede an existing decision with a new one",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}

		l, err := ledgerpkg.Load(cfg.Storage.LedgerPath)
		if err != nil {
			return fmt.Errorf("no ledger at %s yet: %w", cfg.Storage.LedgerPath, err)
		}

		input := ledgerpkg.AppendInput{
			Category:   ledgerpkg.Category(supersedeCategory),
			Constraint: args[1],
			Source:     ledgerpkg.Source(supersedeSource),
			Confidence: ledgerpkg.Confidence(supersedeConfidence),
			Phase:      ledgerpkg.DecisionPhase(supersedePhase),
			Rationale:  supersedeRationale,
		}

		d, err := l.Supersede(args[0], input, supersedeForce, time.Now())
		if err != nil {
			return err
		}

		if err := l.Save(cfg.Storage.LedgerPath); err != nil {
			return err
		}

		fmt.Printf("%s supersedes %s\n", d.ID, args[0])
		return nil
	},
}

func init() {
	ledgerSupersedeCmd.Flags().StringVar(&supersedeCategory, "category", "architectural", "decision category")
	ledgerSupersedeCmd.Flags().StringVar(&supersedeSource, "source", "discussion", "decision source")
	ledgerSupersedeCmd.Flags().StringVar(&supersedeConfidence, "confidence", "inferred", "decision confidence tier")
	ledgerSupersedeCmd.Flags().StringVar(&supersedePhase, "phase", "design", "decision phase")
	ledgerSupersedeCmd.Flags().StringVar(&supersedeRationale, "rationale", "", "optional rationale")
	ledgerSupersedeCmd.Flags().BoolVar(&supersedeForce, "force", false, "override a canonical decision")

	ledgerCmd.AddCommand(ledgerListCmd)
	ledgerCmd.AddCommand(ledgerSupersedeCmd)
}
