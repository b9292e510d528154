// Command criticalityd runs and inspects Criticality Protocol sessions: a
// deterministic, crash-safe tick-loop orchestrator over a fixed phase graph,
// with a decision ledger and an optional MCP tool surface.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	configPath string
	logger     *slog.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "criticalityd",
	Short: "Run and inspect Criticality Protocol sessions",
	Long: `criticalityd drives a Criticality Protocol session: a phase-graph tick
loop with artifact preconditions, a blocking-query lifecycle, and an
append-only decision ledger, all persisted crash-safely to disk.`,
	Version: version(),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfigForLogging()
		level := slog.LevelInfo
		if err == nil {
			level = parseLogLevel(cfg.Log.Level)
		}
		logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to criticality.toml (optional)")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(tickCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(recoverCmd)
	rootCmd.AddCommand(ledgerCmd)
	rootCmd.AddCommand(mcpServeCmd)
}

// loadConfigForLogging loads just enough config to pick a log level before
// the rest of main's logic runs; a missing config file is not an error here.
func loadConfigForLogging() (*configShim, error) {
	return loadConfig(configPath)
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Version is set via ldflags at build time.
var Version = "dev"

func version() string {
	return Version
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "criticalityd: "+format+"\n", args...)
	os.Exit(1)
}
