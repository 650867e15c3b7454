// Package ai turns natural-language editing requests into structured actions.
//
// A Provider wraps one backend (a hosted language model, the deterministic
// stub, or the remote video-processing worker). Providers never return Go
// errors from ProcessPrompt: every failure is reported as an action.Result
// carrying an error code and confidence 0.
package ai

import (
	"context"

	"github.com/chatcut/chatcut/internal/action"
	"github.com/chatcut/chatcut/internal/filehandler"
)

// Provider is the capability contract shared by every backend.
type Provider interface {
	// Name is the stable identifier used in health reporting.
	Name() string
	// IsConfigured reports whether credentials or endpoints are present.
	// It performs no network I/O.
	IsConfigured() bool
	// ProcessPrompt extracts the action(s) for prompt. The result always
	// satisfies action.Valid.
	ProcessPrompt(ctx context.Context, prompt string, catalog action.Catalog, media []*filehandler.MediaFile) action.Result
}

// Message is one turn of a help conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Conversation roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Answerer is implemented by providers that can hold a free-form help
// conversation.
type Answerer interface {
	Answer(ctx context.Context, system string, history []Message) (string, error)
}

// MediaLimiter is implemented by providers with a per-file upload limit.
type MediaLimiter interface {
	MaxMediaBytes() int64
}

// Pinger is implemented by providers that can verify upstream connectivity
// with a minimal call.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Trim is a source range in seconds for providers that render video. A zero
// End means the end of the clip.
type Trim struct {
	Start float64
	End   float64
}

type trimKey struct{}

// WithTrim attaches a source range to ctx.
func WithTrim(ctx context.Context, t Trim) context.Context {
	return context.WithValue(ctx, trimKey{}, t)
}

// TrimFrom returns the range attached by WithTrim.
func TrimFrom(ctx context.Context) (Trim, bool) {
	t, ok := ctx.Value(trimKey{}).(Trim)
	return t, ok
}
