// Package config loads criticalityd's configuration from a TOML file
// layered with environment variable overrides, mirroring the precedence
// rules the teacher's config layer uses: environment variables > config
// file > defaults.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config holds all configuration for the criticality daemon/CLI.
// Precedence: environment variables > config file > defaults.
type Config struct {
	Storage   StorageConfig   `toml:"storage"`
	Run       RunConfig       `toml:"run"`
	Server    ServerConfig    `toml:"server"`
	Transport TransportConfig `toml:"transport"`
	Log       LogConfig       `toml:"log"`
}

// StorageConfig locates the two persisted files a session owns.
type StorageConfig struct {
	StatePath  string `toml:"state_path"`
	LedgerPath string `toml:"ledger_path"`
	Project    string `toml:"project"`
}

// RunConfig controls the tick loop's run-to-completion behavior.
type RunConfig struct {
	MaxTicks int `toml:"max_ticks"` // 0 means orchestrator.DefaultMaxTicks
	// TickIntervalMs is loaded from the config file but no command reads it;
	// internal/scheduler takes its interval as a constructor argument.
	TickIntervalMs int `toml:"tick_interval_ms"`
}

// ServerConfig holds MCP server metadata.
type ServerConfig struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// TransportConfig holds transport-related settings for the MCP tool
// surface (internal/mcp).
type TransportConfig struct {
	// Mode selects the transport: "stdio" (default) or "http".
	Mode string `toml:"mode"`
	// Port is the HTTP listen port (default: 21452). Only used when Mode is "http".
	Port string `toml:"port"`
	// Host is the HTTP listen address (default: "0.0.0.0"). Only used when Mode is "http".
	Host string `toml:"host"`
	// CORSOrigins is a comma-separated list of allowed CORS origins (default: "*").
	CORSOrigins string `toml:"cors_origins"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `toml:"level"` // debug, info, warn, error
}

// Load creates a Config by reading from a TOML config file and environment
// variables. Precedence: environment variables > config file > defaults.
//
// Config file search order (first found wins):
//  1. Path passed via configPath parameter (from --config flag)
//  2. CRITICALITY_CONFIG environment variable
//  3. ./criticality.toml (current directory)
//  4. ~/.config/criticality/criticality.toml (XDG-style)
//
// All fields are optional in the config file. Environment variables always
// override file values.
func Load(configPath string) (*Config, error) {
	cfg := &Config{
		Storage: StorageConfig{
			StatePath:  ".criticality/state.json",
			LedgerPath: ".criticality/ledger.json",
			Project:    "criticality",
		},
		Run: RunConfig{
			MaxTicks:       0,
			TickIntervalMs: 0,
		},
		Server: ServerConfig{
			Name:    "criticalityd",
			Version: "0.1.0",
		},
		Transport: TransportConfig{
			Mode:        "stdio",
			Port:        "21452",
			Host:        "0.0.0.0",
			CORSOrigins: "*",
		},
		Log: LogConfig{
			Level: "info",
		},
	}

	if err := cfg.loadFile(configPath); err != nil {
		return nil, err
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFile(configPath string) error {
	path := resolveConfigPath(configPath)
	if path == "" {
		return nil
	}

	if _, err := toml.DecodeFile(path, c); err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}

	return nil
}

// resolveConfigPath determines which config file to use. Returns empty string
// if no config file is found (config file is optional).
func resolveConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}

	if p := os.Getenv("CRITICALITY_CONFIG"); p != "" {
		return p
	}

	if _, err := os.Stat("criticality.toml"); err == nil {
		return "criticality.toml"
	}

	if home, err := os.UserHomeDir(); err == nil {
		p := home + "/.config/criticality/criticality.toml"
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}

// applyEnv overlays environment variables on top of existing config values.
// An env var only takes effect if it is non-empty.
func (c *Config) applyEnv() {
	envOverride("CRITICALITY_STATE_PATH", &c.Storage.StatePath)
	envOverride("CRITICALITY_LEDGER_PATH", &c.Storage.LedgerPath)
	envOverride("CRITICALITY_PROJECT", &c.Storage.Project)

	if v := os.Getenv("CRITICALITY_MAX_TICKS"); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil && n > 0 {
			c.Run.MaxTicks = n
		}
	}

	envOverride("CRITICALITY_TRANSPORT", &c.Transport.Mode)
	envOverride("CRITICALITY_PORT", &c.Transport.Port)
	envOverride("CRITICALITY_HOST", &c.Transport.Host)
	envOverride("CRITICALITY_CORS_ORIGINS", &c.Transport.CORSOrigins)

	envOverride("CRITICALITY_LOG_LEVEL", &c.Log.Level)
}

// Validate checks that required fields are present.
func (c *Config) Validate() error {
	switch c.Transport.Mode {
	case "stdio", "http":
	default:
		return fmt.Errorf("invalid transport mode: %q (must be \"stdio\" or \"http\")", c.Transport.Mode)
	}
	if c.Storage.StatePath == "" || c.Storage.LedgerPath == "" {
		return fmt.Errorf("storage.state_path and storage.ledger_path are required")
	}
	return nil
}

// envOverride sets *dst to the value of the named env var, if it is non-empty.
func envOverride(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
