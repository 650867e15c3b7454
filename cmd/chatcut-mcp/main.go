// Command chatcut-mcp serves ChatCut prompt processing as MCP tools over
// stdio.
package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/chatcut/chatcut/internal/ai"
	"github.com/chatcut/chatcut/internal/config"
	"github.com/chatcut/chatcut/internal/logging"
	"github.com/chatcut/chatcut/internal/mcpserver"
	"github.com/chatcut/chatcut/internal/metrics"
	"github.com/chatcut/chatcut/internal/service"
	"github.com/rs/zerolog/log"
)

var version = "dev"

func main() {
	settings, err := config.Load()
	if err != nil {
		logging.Init(logging.Options{})
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	// stdout carries the protocol; logs stay on stderr and metrics are off.
	closer := logging.Init(logging.Options{Level: settings.Log.Level, File: settings.Log.File})
	defer closer.Close()
	metrics.SetOutput(io.Discard)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc := service.New(ai.New(settings, nil), nil)
	logging.NewStartupLogger("chatcut-mcp").
		Version(version).
		Config("provider", svc.ProviderInfo().Name).
		Log()

	if err := mcpserver.Run(ctx, svc, version); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("MCP server stopped")
		os.Exit(1)
	}
}
