package cli

import (
	"io"

	"github.com/chatcut/chatcut/internal/ai"
	"github.com/chatcut/chatcut/internal/client"
	"github.com/chatcut/chatcut/internal/config"
	"github.com/chatcut/chatcut/internal/logging"
	"github.com/chatcut/chatcut/internal/metrics"
	"github.com/chatcut/chatcut/internal/service"
	"github.com/chatcut/chatcut/internal/session"
)

// Options select how the command reaches a provider.
type Options struct {
	// Local runs the service in-process instead of calling a backend.
	Local     bool
	ServerURL string
	Provider  string
	Verbose   bool
}

// InitLogging configures the global logger for interactive use. Metrics
// are disabled so they do not mix with command output.
func InitLogging(opts Options) io.Closer {
	level := "warn"
	if opts.Verbose {
		level = "debug"
	}
	metrics.SetOutput(io.Discard)
	return logging.Init(logging.Options{Level: level})
}

// LocalService loads settings and builds an in-process service.
func LocalService(opts Options) (*service.Service, error) {
	settings, err := config.Load()
	if err != nil {
		return nil, err
	}
	if opts.Provider != "" {
		settings.Provider = config.NormalizeProvider(opts.Provider)
	}
	return service.New(ai.New(settings, nil), nil), nil
}

// NewPrompter returns the in-process service or an HTTP client, per opts.
func NewPrompter(opts Options) (session.Prompter, error) {
	if opts.Local {
		return LocalService(opts)
	}
	return client.New(opts.ServerURL), nil
}
