// Package service is the prompt-processing entry point shared by the HTTP
// server, the Lambda handler and the MCP server. It validates input, filters
// small talk, calls the configured provider and records provider metrics.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/chatcut/chatcut/internal/action"
	"github.com/chatcut/chatcut/internal/ai"
	"github.com/chatcut/chatcut/internal/filehandler"
	"github.com/chatcut/chatcut/internal/metrics"
	"github.com/rs/zerolog/log"
)

// DefaultMaxMediaBytes applies when the provider declares no limit.
const DefaultMaxMediaBytes = 2 << 30

// Service processes prompts with a single provider.
type Service struct {
	provider ai.Provider
	catalog  action.Catalog
}

// New creates a Service. A nil catalog means action.DefaultCatalog.
func New(provider ai.Provider, catalog action.Catalog) *Service {
	if catalog == nil {
		catalog = action.DefaultCatalog()
	}
	return &Service{provider: provider, catalog: catalog}
}

// Catalog returns the actions offered to the provider.
func (s *Service) Catalog() action.Catalog { return s.catalog }

// Info describes the configured provider.
type Info struct {
	Name       string `json:"name"`
	Configured bool   `json:"configured"`
	Error      string `json:"error,omitempty"`
}

// ProviderInfo reports the provider name and whether it is configured. It
// makes no network calls.
func (s *Service) ProviderInfo() Info {
	info := Info{Name: s.provider.Name(), Configured: s.provider.IsConfigured()}
	if ai.IsUnknown(s.provider) {
		info.Configured = false
		info.Error = action.CodeUnknownProvider
	}
	return info
}

// Connection states reported by Probe.
const (
	ConnectionConnected = "connected"
	ConnectionError     = "error"
	ConnectionSkipped   = "skipped"
)

// Probe makes a minimal upstream call when the provider supports it.
func (s *Service) Probe(ctx context.Context) string {
	pinger, ok := s.provider.(ai.Pinger)
	if !ok || !s.provider.IsConfigured() {
		return ConnectionSkipped
	}
	if err := pinger.Ping(ctx); err != nil {
		log.Warn().Err(err).Str("provider", s.provider.Name()).Msg("Provider connection probe failed")
		return ConnectionError
	}
	return ConnectionConnected
}

// ProcessPrompt turns text into an action result. contextParams, when
// present, are appended to the prompt as extra context.
func (s *Service) ProcessPrompt(ctx context.Context, text string, contextParams map[string]any) action.Result {
	text = strings.TrimSpace(text)
	if text == "" {
		return action.Failure(action.CodeNeedsSpecification, "Please describe the edit you want to make.")
	}
	if res, ok := SmallTalk(text); ok {
		log.Debug().Str("prompt", text).Msg("Prompt handled as small talk")
		return res
	}

	prompt := withContext(text, contextParams)
	return s.call(ctx, prompt, nil)
}

// ProcessMedia validates every path and then sends prompt and files to the
// provider. No upstream call is made when any file fails validation.
func (s *Service) ProcessMedia(ctx context.Context, text string, paths []string) action.Result {
	text = strings.TrimSpace(text)
	if text == "" {
		return action.Failure(action.CodeNeedsSpecification, "Please describe what to do with the media.")
	}
	if len(paths) == 0 {
		return action.Failure(action.CodeNeedsSpecification, "No media files were provided.")
	}

	limit := int64(DefaultMaxMediaBytes)
	if limiter, ok := s.provider.(ai.MediaLimiter); ok {
		limit = limiter.MaxMediaBytes()
	}

	media := make([]*filehandler.MediaFile, 0, len(paths))
	for _, p := range paths {
		mf, err := filehandler.Load(ctx, p, limit)
		if err != nil {
			res := FileFailure(err)
			log.Warn().Err(err).Str("path", p).Str("code", res.Error).Msg("Media validation failed")
			return res
		}
		media = append(media, mf)
	}
	return s.call(ctx, text, media)
}

// FileFailure converts a media validation error into a result.
func FileFailure(err error) action.Result {
	var fe *filehandler.FileError
	if !errors.As(err, &fe) {
		return action.Failure(action.CodeFileAccessError, fmt.Sprintf("Could not read media file: %v", err))
	}
	switch fe.Kind {
	case filehandler.ErrKindNotFound:
		return action.Failure(action.CodeFileNotFound, fmt.Sprintf("File not found: %s", fe.Path))
	case filehandler.ErrKindTooLarge:
		return action.Failure(action.CodeFileTooLarge, fmt.Sprintf("File is too large: %s (%v)", fe.Path, fe.Err))
	case filehandler.ErrKindUnsupported:
		return action.Failure(action.CodeUnsupportedFileType, fmt.Sprintf("Unsupported file type: %s", fe.Path))
	default:
		return action.Failure(action.CodeFileAccessError, fmt.Sprintf("Cannot read file: %s", fe.Path))
	}
}

// call runs the provider, re-normalizes its output and records metrics.
func (s *Service) call(ctx context.Context, prompt string, media []*filehandler.MediaFile) action.Result {
	name := s.provider.Name()
	start := time.Now()

	res := action.Normalize(s.provider.ProcessPrompt(ctx, prompt, s.catalog, media))
	elapsed := time.Since(start)

	code := res.Error
	if code == "" {
		code = "none"
	}
	rec := metrics.New(metrics.Namespace).
		Dimension("Provider", name).
		Dimension("ErrorCode", code).
		Duration("ProviderLatencyMs", elapsed).
		Count("ProviderCalls")
	if res.IsError() {
		rec.Count("ProviderErrors")
	}
	rec.Flush()

	event := log.Info()
	if res.IsError() {
		event = log.Warn()
	}
	event.
		Str("provider", name).
		Str("action", res.Action).
		Int("action_count", len(res.Steps())).
		Str("error", res.Error).
		Int("media_count", len(media)).
		Dur("elapsed", elapsed).
		Msg("Prompt processed")
	return res
}

func withContext(prompt string, params map[string]any) string {
	if len(params) == 0 {
		return prompt
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(prompt)
	sb.WriteString("\n\nContext:")
	for _, k := range keys {
		fmt.Fprintf(&sb, "\n- %s: %v", k, params[k])
	}
	return sb.String()
}
