package ai

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/chatcut/chatcut/internal/action"
	"github.com/chatcut/chatcut/internal/assets"
	"github.com/chatcut/chatcut/internal/filehandler"
	"github.com/rs/zerolog/log"
)

// Anthropic calls the Claude Messages API.
type Anthropic struct {
	cred        credential
	model       string
	baseURL     string
	temperature float64
	maxTokens   int64

	mu        sync.Mutex
	client    *anthropic.Client
	clientKey string
}

// NewAnthropic creates an Anthropic provider. An empty baseURL uses the
// public API.
func NewAnthropic(apiKey, model, baseURL string, temperature float64, maxTokens uint32) *Anthropic {
	return &Anthropic{
		cred:        credential{provider: "anthropic", configured: apiKey},
		model:       model,
		baseURL:     baseURL,
		temperature: temperature,
		maxTokens:   int64(maxTokens),
	}
}

func (p *Anthropic) Name() string { return "anthropic" }

func (p *Anthropic) IsConfigured() bool { return p.cred.present() }

func (p *Anthropic) getClient() (*anthropic.Client, error) {
	key, err := p.cred.key()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil && p.clientKey == key {
		return p.client, nil
	}
	opts := []option.RequestOption{option.WithAPIKey(key)}
	if p.baseURL != "" {
		opts = append(opts, option.WithBaseURL(p.baseURL))
	}
	client := anthropic.NewClient(opts...)
	p.client, p.clientKey = &client, key
	return p.client, nil
}

func (p *Anthropic) complete(ctx context.Context, system string, messages []anthropic.MessageParam) (string, error) {
	client, err := p.getClient()
	if err != nil {
		return "", err
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(p.model),
		MaxTokens:   p.maxTokens,
		Messages:    messages,
		Temperature: anthropic.Float(p.temperature),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	message, err := client.Messages.New(ctx, params)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, block := range message.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			sb.WriteString(variant.Text)
		}
	}
	log.Debug().
		Str("model", p.model).
		Int64("input_tokens", message.Usage.InputTokens).
		Int64("output_tokens", message.Usage.OutputTokens).
		Msg("Anthropic response received")
	return sb.String(), nil
}

// ProcessPrompt asks Claude for a JSON action constrained to catalog.
func (p *Anthropic) ProcessPrompt(ctx context.Context, prompt string, catalog action.Catalog, media []*filehandler.MediaFile) action.Result {
	return guard(p.Name(), func() action.Result {
		text, err := p.complete(ctx,
			assets.RenderActionSystemPrompt(catalog.Describe()),
			[]anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(buildUserPrompt(prompt, media)))},
		)
		if err != nil {
			return failureFromError(p.Name(), err)
		}
		return parseReply(text, catalog)
	})
}

// Answer holds a help conversation. Claude requires the first turn to be
// from the user, so leading assistant turns are dropped.
func (p *Anthropic) Answer(ctx context.Context, system string, history []Message) (string, error) {
	var messages []anthropic.MessageParam
	for _, m := range history {
		switch m.Role {
		case RoleAssistant:
			if len(messages) == 0 {
				continue
			}
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	if len(messages) == 0 {
		return "", fmt.Errorf("no user message to answer")
	}

	text, err := p.complete(ctx, system, messages)
	if err != nil {
		return "", fmt.Errorf("anthropic answer: %w", err)
	}
	if text == "" {
		return "", fmt.Errorf("empty response from Anthropic")
	}
	return text, nil
}
