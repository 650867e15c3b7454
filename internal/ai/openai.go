package ai

import (
	"context"
	"fmt"
	"sync"

	"github.com/chatcut/chatcut/internal/action"
	"github.com/chatcut/chatcut/internal/assets"
	"github.com/chatcut/chatcut/internal/filehandler"
	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAI calls the Chat Completions API. Media is described to the model as
// metadata text; files are not uploaded.
type OpenAI struct {
	cred        credential
	model       string
	baseURL     string
	temperature float32
	maxTokens   int

	mu        sync.Mutex
	client    *openai.Client
	clientKey string
}

// NewOpenAI creates an OpenAI provider. An empty baseURL uses the public API.
func NewOpenAI(apiKey, model, baseURL string, temperature float64, maxTokens uint32) *OpenAI {
	return &OpenAI{
		cred:        credential{provider: "openai", configured: apiKey},
		model:       model,
		baseURL:     baseURL,
		temperature: float32(temperature),
		maxTokens:   int(maxTokens),
	}
}

func (p *OpenAI) Name() string { return "openai" }

func (p *OpenAI) IsConfigured() bool { return p.cred.present() }

func (p *OpenAI) getClient() (*openai.Client, error) {
	key, err := p.cred.key()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil && p.clientKey == key {
		return p.client, nil
	}
	cfg := openai.DefaultConfig(key)
	if p.baseURL != "" {
		cfg.BaseURL = p.baseURL
	}
	p.client, p.clientKey = openai.NewClientWithConfig(cfg), key
	return p.client, nil
}

// ProcessPrompt requests a JSON object constrained to catalog.
func (p *OpenAI) ProcessPrompt(ctx context.Context, prompt string, catalog action.Catalog, media []*filehandler.MediaFile) action.Result {
	return guard(p.Name(), func() action.Result {
		client, err := p.getClient()
		if err != nil {
			return failureFromError(p.Name(), err)
		}

		req := openai.ChatCompletionRequest{
			Model: p.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: assets.RenderActionSystemPrompt(catalog.Describe())},
				{Role: openai.ChatMessageRoleUser, Content: buildUserPrompt(prompt, media)},
			},
			MaxTokens:   p.maxTokens,
			Temperature: p.temperature,
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		}

		resp, err := client.CreateChatCompletion(ctx, req)
		if err != nil {
			return failureFromError(p.Name(), err)
		}
		if len(resp.Choices) == 0 {
			return action.Failure(action.CodeInvalidResponse, "The AI returned an empty response. Try again.")
		}

		log.Debug().
			Str("model", p.model).
			Int("prompt_tokens", resp.Usage.PromptTokens).
			Int("completion_tokens", resp.Usage.CompletionTokens).
			Msg("OpenAI response received")
		return parseReply(resp.Choices[0].Message.Content, catalog)
	})
}

// Answer holds a help conversation.
func (p *OpenAI) Answer(ctx context.Context, system string, history []Message) (string, error) {
	client, err := p.getClient()
	if err != nil {
		return "", err
	}

	messages := []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleSystem, Content: system}}
	for _, m := range history {
		messages = append(messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    messages,
		MaxTokens:   p.maxTokens,
		Temperature: p.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("empty response from OpenAI")
	}
	return resp.Choices[0].Message.Content, nil
}

// Ping lists models, which needs a valid key but no generation quota.
func (p *OpenAI) Ping(ctx context.Context) error {
	if !p.IsConfigured() {
		return errNotConfigured
	}
	client, err := p.getClient()
	if err != nil {
		return err
	}
	if _, err := client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}
