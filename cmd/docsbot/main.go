package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/joho/godotenv"

	"github.com/petasbytes/docsbot/internal/config"
	"github.com/petasbytes/docsbot/internal/dispatch"
	"github.com/petasbytes/docsbot/internal/invoker"
	"github.com/petasbytes/docsbot/internal/orchestrator"
	"github.com/petasbytes/docsbot/internal/provider"
	"github.com/petasbytes/docsbot/internal/session"
	"github.com/petasbytes/docsbot/internal/telegram"
	"github.com/petasbytes/docsbot/internal/telemetry"
	"github.com/petasbytes/docsbot/tools"
)

func main() {
	// Optional .env next to the binary; real env always wins.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := telemetry.New(os.Stderr, cfg.LogLevel)

	// Graceful shutdown on Ctrl-C (SIGINT) / SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		registry *tools.Registry
		caller   invoker.ToolCaller
	)
	if cfg.MCPServerURL == "" {
		// Degraded but valid: the model runs with no tools available.
		logger.Warn().Msg("MCP_SERVER_URL not set; running without documentation tools")
		registry, err = tools.NewStatic()
		if err != nil {
			logger.Fatal().Err(err).Msg("registry setup failed")
		}
	} else {
		mcpClient, err := provider.NewToolServerClient(ctx, cfg.MCPServerURL)
		if err != nil {
			logger.Fatal().Err(err).Str("url", cfg.MCPServerURL).Msg("cannot reach documentation server")
		}
		defer mcpClient.Close()
		caller = mcpClient

		registry, err = tools.Fetch(ctx, mcpClient)
		if err != nil {
			if !cfg.FallbackTool {
				logger.Fatal().Err(err).Msg("tool discovery failed")
			}
			// The server answers tools/call but not tools/list; fall back to
			// the built-in search definition.
			logger.Warn().Err(err).Msg("tool discovery failed; using built-in search definition")
			registry, err = tools.NewStatic(tools.SearchDocumentationDefinition)
			if err != nil {
				logger.Fatal().Err(err).Msg("registry setup failed")
			}
		}
	}
	logger.Info().Strs("tools", registry.Names()).Msg("tool registry ready")

	client := provider.NewAnthropicClient(cfg.AnthropicAPIKey)
	sessions := session.NewStore(cfg.HistoryWindow)
	inv := invoker.New(caller, registry, logger, invoker.Options{
		Timeout:  cfg.ToolTimeout,
		Attempts: cfg.ToolAttempts,
	})
	orch := orchestrator.New(client, registry, inv, sessions, orchestrator.Config{
		Model:         anthropic.Model(cfg.Model),
		SystemPrompt:  cfg.SystemPrompt,
		HistoryWindow: cfg.HistoryWindow,
		MaxToolRounds: cfg.MaxToolRounds,
	}, logger)

	dispatcher := dispatch.New(0)
	bot, err := telegram.New(cfg.TelegramToken, dispatcher, orch.HandleMessage, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("telegram setup failed")
	}

	bot.Run(ctx)
	dispatcher.Close()
	logger.Info().Msg("shutdown complete")
}
