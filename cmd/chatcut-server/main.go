// Command chatcut-server runs the ChatCut backend on a local port.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chatcut/chatcut/internal/ai"
	"github.com/chatcut/chatcut/internal/api"
	"github.com/chatcut/chatcut/internal/config"
	"github.com/chatcut/chatcut/internal/filehandler"
	"github.com/chatcut/chatcut/internal/logging"
	"github.com/chatcut/chatcut/internal/metrics"
	"github.com/chatcut/chatcut/internal/service"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Set at build time with -ldflags "-X main.version=... -X main.commitHash=...".
var (
	version    = "dev"
	commitHash = ""
)

var (
	portFlag     int
	hostFlag     string
	providerFlag string
)

var rootCmd = &cobra.Command{
	Use:   "chatcut-server",
	Short: "Run the ChatCut prompt-processing backend",
	Long: `chatcut-server turns natural-language editing requests into structured
actions for the ChatCut editing panel.

Configuration is read from the environment and from a .env file in the
working directory. Flags override the environment.

Examples:
  chatcut-server
  chatcut-server --port 3002 --provider openai
  AI_PROVIDER=stub chatcut-server`,
	SilenceUsage: true,
	RunE:         runServer,
}

func init() {
	rootCmd.Flags().IntVar(&portFlag, "port", 0, "Port to listen on (default $CHATCUT_PORT or 3001)")
	rootCmd.Flags().StringVar(&hostFlag, "host", "", "Address to bind (default $CHATCUT_HOST or 127.0.0.1)")
	rootCmd.Flags().StringVar(&providerFlag, "provider", "", "AI provider: gemini, openai, anthropic, stub, colab")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	initStart := time.Now()
	settings, err := config.Load()
	if err != nil {
		return err
	}
	if portFlag != 0 {
		settings.Server.Port = portFlag
	}
	if hostFlag != "" {
		settings.Server.Host = hostFlag
	}
	if providerFlag != "" {
		settings.Provider = config.NormalizeProvider(providerFlag)
	}

	closer := logging.Init(logging.Options{Level: settings.Log.Level, File: settings.Log.File})
	defer closer.Close()
	if !settings.MetricsEnabled {
		metrics.SetOutput(io.Discard)
	}

	svc := service.New(ai.New(settings, nil), nil)
	info := svc.ProviderInfo()
	if !info.Configured {
		log.Warn().Str("provider", info.Name).Str("error", info.Error).Msg("Provider is not configured; prompts will return an error until it is")
	}

	srv := &http.Server{
		Addr:              settings.Server.Addr(),
		Handler:           api.New(svc, version).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Media requests wait on uploads and remote jobs.
		WriteTimeout: 15 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		log.Info().Msg("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Graceful shutdown failed")
		}
	}()

	logging.NewStartupLogger("chatcut-server").
		Version(version).
		CommitHash(commitHash).
		Config("addr", srv.Addr).
		Config("provider", info.Name).
		Config("outputDir", settings.Output.Dir).
		Feature("providerConfigured", info.Configured).
		Feature("metrics", settings.MetricsEnabled).
		Feature("ffprobe", filehandler.HasFFprobe()).
		Feature("logFile", settings.Log.File != "").
		InitDuration(time.Since(initStart)).
		Log()
	fmt.Fprintf(os.Stderr, "\n  ChatCut backend: http://%s\n\n", srv.Addr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}
