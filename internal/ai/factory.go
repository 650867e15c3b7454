package ai

import (
	"context"
	"fmt"

	"github.com/chatcut/chatcut/internal/action"
	"github.com/chatcut/chatcut/internal/artifacts"
	"github.com/chatcut/chatcut/internal/config"
	"github.com/chatcut/chatcut/internal/filehandler"
)

// New builds the provider selected by settings. Cloud clients are created
// lazily, so New never fails on missing credentials. store receives media
// produced by the video-processing provider.
func New(settings config.Settings, store artifacts.Store) Provider {
	llm := settings.LLM
	switch settings.Provider {
	case config.ProviderGemini:
		return NewGemini(settings.Gemini.APIKey, settings.Gemini.Model, llm.Temperature, llm.MaxTokens)
	case config.ProviderOpenAI:
		return NewOpenAI(settings.OpenAI.APIKey, settings.OpenAI.Model, settings.OpenAI.BaseURL, llm.Temperature, llm.MaxTokens)
	case config.ProviderAnthropic:
		return NewAnthropic(settings.Anthropic.APIKey, settings.Anthropic.Model, settings.Anthropic.BaseURL, llm.Temperature, llm.MaxTokens)
	case config.ProviderStub:
		return NewStub()
	case config.ProviderColab:
		if store == nil {
			store = artifacts.NewLocalStore(settings.Output.Dir)
		}
		return NewColab(settings.Colab.URL, store, settings.Colab.PollInterval, settings.Colab.JobTimeout)
	default:
		return &unknownProvider{name: settings.Provider}
	}
}

// unknownProvider stands in for an unrecognized selector so the error is
// reported per request instead of at startup.
type unknownProvider struct {
	name string
}

func (u *unknownProvider) Name() string { return u.name }

func (u *unknownProvider) IsConfigured() bool { return false }

func (u *unknownProvider) ProcessPrompt(ctx context.Context, prompt string, catalog action.Catalog, media []*filehandler.MediaFile) action.Result {
	return action.Failure(action.CodeUnknownProvider,
		fmt.Sprintf("Unknown AI provider %q. Set AI_PROVIDER to one of %v.", u.name, config.SupportedProviders()))
}

// IsUnknown reports whether p stands in for an unrecognized selector.
func IsUnknown(p Provider) bool {
	_, ok := p.(*unknownProvider)
	return ok
}
