package ai

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/chatcut/chatcut/internal/action"
	"github.com/chatcut/chatcut/internal/assets"
	"github.com/chatcut/chatcut/internal/auth"
	"github.com/chatcut/chatcut/internal/filehandler"
	"github.com/chatcut/chatcut/internal/metrics"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

const (
	geminiUploadPollInterval = 5 * time.Second
	geminiUploadTimeout      = 10 * time.Minute
	// Files API per-file limit.
	geminiMaxMediaBytes = 2 << 30
)

// Gemini calls the Google Gemini API through the genai SDK.
type Gemini struct {
	cred        credential
	model       string
	temperature float32
	maxTokens   int32

	mu        sync.Mutex
	client    *genai.Client
	clientKey string
}

// NewGemini creates a Gemini provider. apiKey may be empty; the key is then
// resolved on each call.
func NewGemini(apiKey, model string, temperature float64, maxTokens uint32) *Gemini {
	return &Gemini{
		cred:        credential{provider: "gemini", configured: apiKey},
		model:       model,
		temperature: float32(temperature),
		maxTokens:   int32(maxTokens),
	}
}

// Name returns "gemini".
func (g *Gemini) Name() string { return "gemini" }

// IsConfigured reports whether an API key source exists.
func (g *Gemini) IsConfigured() bool { return g.cred.present() }

// MaxMediaBytes returns the Files API upload limit.
func (g *Gemini) MaxMediaBytes() int64 { return geminiMaxMediaBytes }

// getClient creates the SDK client on first use, or again if the key changed.
func (g *Gemini) getClient(ctx context.Context) (*genai.Client, error) {
	key, err := g.cred.key()
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.client != nil && g.clientKey == key {
		return g.client, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
	}
	g.client, g.clientKey = client, key
	return client, nil
}

// ProcessPrompt asks Gemini for a JSON action constrained to catalog.
// Attached media is uploaded through the Files API and deleted afterwards.
func (g *Gemini) ProcessPrompt(ctx context.Context, prompt string, catalog action.Catalog, media []*filehandler.MediaFile) action.Result {
	return guard(g.Name(), func() action.Result {
		client, err := g.getClient(ctx)
		if err != nil {
			return failureFromError(g.Name(), err)
		}

		parts, cleanup, err := g.uploadMedia(ctx, client, media)
		defer cleanup()
		if err != nil {
			return failureFromError(g.Name(), err)
		}
		parts = append(parts, &genai.Part{Text: buildUserPrompt(prompt, media)})

		config := &genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{
				Parts: []*genai.Part{{Text: assets.RenderActionSystemPrompt(catalog.Describe())}},
			},
			Temperature:      genai.Ptr(g.temperature),
			MaxOutputTokens:  g.maxTokens,
			ResponseMIMEType: "application/json",
		}

		log.Debug().
			Str("model", g.model).
			Int("part_count", len(parts)).
			Msg("Starting Gemini API call for action extraction")

		resp, err := client.Models.GenerateContent(ctx, g.model, []*genai.Content{{Role: genai.RoleUser, Parts: parts}}, config)
		if err != nil {
			return failureFromError(g.Name(), err)
		}
		if resp == nil {
			return action.Failure(action.CodeInvalidResponse, "The AI returned an empty response. Try again.")
		}

		text := resp.Text()
		log.Debug().Int("response_length", len(text)).Msg("Gemini API response received")
		res := parseReply(text, catalog)
		return res
	})
}

// uploadMedia uploads each file and returns FileData parts plus a cleanup
// that deletes every uploaded file.
func (g *Gemini) uploadMedia(ctx context.Context, client *genai.Client, media []*filehandler.MediaFile) ([]*genai.Part, func(), error) {
	var uploaded []*genai.File
	cleanup := func() {
		for _, f := range uploaded {
			// The request context may already be done; deletion should still run.
			delCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
			if _, err := client.Files.Delete(delCtx, f.Name, nil); err != nil {
				log.Warn().Err(err).Str("file", f.Name).Msg("Failed to delete uploaded Gemini file")
			} else {
				log.Debug().Str("file", f.Name).Msg("Uploaded Gemini file deleted")
			}
			cancel()
		}
	}

	var parts []*genai.Part
	for _, m := range media {
		file, err := uploadFile(ctx, client, m)
		if err != nil {
			return nil, cleanup, err
		}
		uploaded = append(uploaded, file)
		parts = append(parts, &genai.Part{
			FileData: &genai.FileData{
				MIMEType: file.MIMEType,
				FileURI:  file.URI,
			},
		})
	}
	return parts, cleanup, nil
}

// uploadFile streams one file to the Files API and waits for processing.
func uploadFile(ctx context.Context, client *genai.Client, m *filehandler.MediaFile) (*genai.File, error) {
	f, err := os.Open(m.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	log.Debug().
		Str("path", m.Path).
		Int64("size_bytes", m.Size).
		Str("mime_type", m.MIMEType).
		Msg("Starting Gemini Files API upload")

	uploadStart := time.Now()
	file, err := client.Files.Upload(ctx, f, &genai.UploadFileConfig{
		MIMEType: m.MIMEType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload file: %w", err)
	}

	deadline := time.Now().Add(geminiUploadTimeout)
	pollIteration := 0
	for file.State == genai.FileStateProcessing {
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("timeout waiting for file processing after %v: %w", geminiUploadTimeout, context.DeadlineExceeded)
		}
		pollIteration++
		log.Debug().
			Str("state", string(file.State)).
			Int("poll_iteration", pollIteration).
			Msg("File still processing, waiting...")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(geminiUploadPollInterval):
		}

		file, err = client.Files.Get(ctx, file.Name, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to get file state: %w", err)
		}
	}
	if file.State == genai.FileStateFailed {
		return nil, fmt.Errorf("file processing failed for %s", m.Name())
	}

	elapsed := time.Since(uploadStart)
	log.Info().
		Str("name", file.Name).
		Dur("total_time", elapsed).
		Int("poll_iterations", pollIteration).
		Msg("File ready for inference")

	metrics.New(metrics.Namespace).
		Dimension("Operation", "filesApiUpload").
		Duration("GeminiFilesApiUploadMs", elapsed).
		Metric("GeminiFilesApiUploadBytes", float64(m.Size), metrics.UnitBytes).
		Flush()

	return file, nil
}

// Answer holds a help conversation with system as the instruction.
func (g *Gemini) Answer(ctx context.Context, system string, history []Message) (string, error) {
	client, err := g.getClient(ctx)
	if err != nil {
		return "", err
	}

	var contents []*genai.Content
	for _, m := range history {
		role := genai.Role(genai.RoleUser)
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       genai.Ptr(g.temperature),
		MaxOutputTokens:   g.maxTokens,
	}
	resp, err := client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini answer: %w", err)
	}
	if resp == nil || resp.Text() == "" {
		return "", fmt.Errorf("empty response from Gemini")
	}
	return resp.Text(), nil
}

// Ping validates the key with a minimal generation call.
func (g *Gemini) Ping(ctx context.Context) error {
	if !g.IsConfigured() {
		return errNotConfigured
	}
	client, err := g.getClient(ctx)
	if err != nil {
		return err
	}
	return auth.ValidateAPIKey(ctx, client, g.model)
}
