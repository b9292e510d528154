package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackedney/criticality/internal/mcp"
	"github.com/jackedney/criticality/internal/mcptools"
)

var mcpServeCmd = &cobra.Command{
	Use:   "mcp-serve",
	Short: "Expose a protocol session as MCP tools (tick, status, resolve_blocking, recover_failure, ledger_*)",
	Long: `mcp-serve loads (or starts) a protocol session and serves it over the
Model Context Protocol, so an MCP-capable client can drive the tick loop,
inspect status, and resolve blocking queries interactively. Transport is
selected by config: "stdio" (default) or "http".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}

		orch, snapshot, ops, err := openSession(cfg)
		if err != nil {
			return err
		}

		session := mcptools.NewSession(orch, ops, snapshot)
		registry := mcp.NewRegistry()
		mcptools.Register(registry, session)

		server := mcp.NewServer(registry, mcp.ServerInfo{
			Name:    cfg.Server.Name,
			Version: cfg.Server.Version,
		}, logger)

		switch cfg.Transport.Mode {
		case "http":
			httpServer := mcp.NewHTTPServer(server, cfg.Transport.CORSOrigins, logger)
			addr := fmt.Sprintf("%s:%s", cfg.Transport.Host, cfg.Transport.Port)
			logger.Info("mcp http server listening", "addr", addr)
			return http.ListenAndServe(addr, httpServer.Handler())
		default:
			return server.Run(context.Background())
		}
	},
}
