package ai

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chatcut/chatcut/internal/action"
	"github.com/chatcut/chatcut/internal/assets"
	"github.com/chatcut/chatcut/internal/auth"
	"github.com/chatcut/chatcut/internal/filehandler"
	"github.com/chatcut/chatcut/internal/jsonutil"
	"github.com/rs/zerolog/log"
)

// modelReply is the JSON shape requested from language models.
type modelReply struct {
	Action     string         `json:"action"`
	Actions    []action.Step  `json:"actions"`
	Parameters map[string]any `json:"parameters"`
	Message    string         `json:"message"`
	Error      string         `json:"error"`
}

// parseReply converts raw model text into a normalized result. Action names
// outside catalog are rejected.
func parseReply(raw string, catalog action.Catalog) action.Result {
	reply, err := jsonutil.ParseJSON[modelReply](raw)
	if err != nil {
		log.Warn().Err(err).Int("raw_length", len(raw)).Msg("Model reply is not valid JSON")
		return action.Failure(action.CodeInvalidResponse, "The AI response could not be understood. Try rephrasing your request.")
	}

	res := action.Normalize(action.Result{
		Action:     reply.Action,
		Actions:    reply.Actions,
		Parameters: reply.Parameters,
		Message:    strings.TrimSpace(reply.Message),
		Error:      strings.ToUpper(reply.Error),
	})
	if res.IsError() {
		if res.Message == "" {
			res.Message = defaultErrorMessage(res.Error)
		}
		return res
	}

	for _, step := range res.Steps() {
		if !catalog.Has(step.Action) {
			log.Warn().Str("action", step.Action).Msg("Model returned an action outside the catalog")
			return action.Failure(action.CodeInvalidResponse, fmt.Sprintf("The AI suggested an unsupported action %q.", step.Action))
		}
	}
	if res.Message == "" {
		res.Message = describeSteps(res.Steps())
	}
	return res
}

// failureFromError classifies an upstream error into a result.
func failureFromError(provider string, err error) action.Result {
	valErr := auth.Classify(err)
	log.Error().Err(err).Str("provider", provider).Str("code", valErr.Code()).Msg("Provider call failed")
	return action.Failure(valErr.Code(), remedy(valErr))
}

func remedy(valErr *auth.ValidationError) string {
	switch valErr.Type {
	case auth.ErrTypeNoKey, auth.ErrTypeInvalidKey:
		return valErr.Message + "."
	case auth.ErrTypeQuotaExceeded:
		return "The AI provider is rate limiting requests. Wait a moment and try again."
	case auth.ErrTypeNetworkError:
		return "Could not reach the AI provider. Check your internet connection and try again."
	case auth.ErrTypeTimeout:
		return "The AI provider took too long to respond. Try again."
	default:
		return "The AI provider returned an error. Try again."
	}
}

func defaultErrorMessage(code string) string {
	switch code {
	case action.CodeNeedsSelection:
		return "Select one or more clips on the timeline first."
	case action.CodeNeedsSpecification:
		return "Could you be more specific about the edit you want?"
	case action.CodeSmallTalk:
		return "Hi! Tell me what edit you'd like to make."
	default:
		return "The request could not be completed."
	}
}

func describeSteps(steps []action.Step) string {
	names := make([]string, len(steps))
	for i, s := range steps {
		names[i] = s.Action
	}
	return "Applying " + strings.Join(names, ", ") + "."
}

// buildUserPrompt appends the media context block, if any, to prompt.
func buildUserPrompt(prompt string, media []*filehandler.MediaFile) string {
	if len(media) == 0 {
		return prompt
	}
	files := make([]assets.MediaFileData, len(media))
	for i, m := range media {
		meta := ""
		if m.Metadata != nil {
			meta = m.Metadata.FormatMetadataContext()
		}
		files[i] = assets.MediaFileData{
			Name:     m.Name(),
			MIMEType: m.MIMEType,
			SizeMB:   fmt.Sprintf("%.1f", m.SizeMB()),
			Metadata: meta,
		}
	}
	return prompt + "\n\n" + assets.RenderMediaContext(files)
}

// LastMessages returns at most n trailing messages with blank turns removed.
func LastMessages(history []Message, n int) []Message {
	out := make([]Message, 0, len(history))
	for _, m := range history {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		role := RoleUser
		if m.Role == RoleAssistant || m.Role == "model" {
			role = RoleAssistant
		}
		out = append(out, Message{Role: role, Content: m.Content})
	}
	if len(out) > n {
		out = out[len(out)-n:]
	}
	return out
}

// errNotConfigured is returned by Ping when the provider has no credentials.
var errNotConfigured = errors.New("provider not configured")

// guard runs fn, converting a panic into UPSTREAM_ERROR and normalizing the
// result.
func guard(provider string, fn func() action.Result) (res action.Result) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("provider", provider).Msg("Recovered panic in provider")
			res = action.Failure(action.CodeUpstreamError, "An unexpected error occurred while processing your request.")
		}
	}()
	return action.Normalize(fn())
}
