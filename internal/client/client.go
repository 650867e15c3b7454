// Package client calls the ChatCut backend over HTTP. Prompt calls never
// return Go errors: transport failures become action results with
// NETWORK_ERROR or TIMEOUT so callers can show them like any other outcome.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/chatcut/chatcut/internal/action"
	"github.com/chatcut/chatcut/internal/ai"
	"github.com/chatcut/chatcut/internal/store"
	"github.com/rs/zerolog/log"
)

// DefaultBaseURL is the local backend address.
const DefaultBaseURL = "http://127.0.0.1:3001"

const (
	defaultUnaryTimeout  = 10 * time.Second
	defaultPromptTimeout = 60 * time.Second
	defaultMediaTimeout  = 10 * time.Minute
)

// Client talks to one backend.
type Client struct {
	baseURL       string
	client        *http.Client
	unaryTimeout  time.Duration
	promptTimeout time.Duration
	mediaTimeout  time.Duration
}

// New creates a client for baseURL using a default http.Client.
func New(baseURL string) *Client {
	return NewWithClient(baseURL, nil)
}

// NewWithClient creates a client with a caller-supplied http.Client.
func NewWithClient(baseURL string, client *http.Client) *Client {
	if client == nil {
		client = &http.Client{}
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		client:        client,
		unaryTimeout:  defaultUnaryTimeout,
		promptTimeout: defaultPromptTimeout,
		mediaTimeout:  defaultMediaTimeout,
	}
}

// WithTimeouts returns a copy using the given prompt and media timeouts.
// Zero keeps the current value.
func (c *Client) WithTimeouts(prompt, media time.Duration) *Client {
	clone := *c
	if prompt > 0 {
		clone.promptTimeout = prompt
	}
	if media > 0 {
		clone.mediaTimeout = media
	}
	return &clone
}

// BaseURL returns the backend address.
func (c *Client) BaseURL() string { return c.baseURL }

// ErrDecodeResponse wraps a 2xx body that is not the expected JSON.
var ErrDecodeResponse = errors.New("decode response")

// RequestError is a non-2xx response.
type RequestError struct {
	StatusCode int
	Message    string
}

func (e *RequestError) Error() string {
	if e == nil {
		return ""
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		return fmt.Sprintf("http %d: %s", e.StatusCode, msg)
	}
	return fmt.Sprintf("http %d", e.StatusCode)
}

// ProviderInfo mirrors the backend's provider description.
type ProviderInfo struct {
	Name       string `json:"name"`
	Configured bool   `json:"configured"`
	Error      string `json:"error,omitempty"`
}

// PingResponse is returned by Ping.
type PingResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Received string `json:"received"`
}

// HealthResponse is returned by Health.
type HealthResponse struct {
	Status     string       `json:"status"`
	Provider   ProviderInfo `json:"provider"`
	Connection string       `json:"connection,omitempty"`
}

// Answer is returned by AskQuestion.
type Answer struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// Ping checks that the backend is reachable.
func (c *Client) Ping(ctx context.Context, message string) (PingResponse, error) {
	var out PingResponse
	err := c.request(ctx, c.unaryTimeout, http.MethodPost, "/api/ping", map[string]string{"message": message}, &out)
	return out, err
}

// Health reports the backend status. probe asks the backend to contact the
// provider.
func (c *Client) Health(ctx context.Context, probe bool) (HealthResponse, error) {
	path := "/health"
	timeout := c.unaryTimeout
	if probe {
		path += "?probe=1"
		timeout = c.promptTimeout
	}
	var out HealthResponse
	err := c.request(ctx, timeout, http.MethodGet, path, nil, &out)
	return out, err
}

// ProcessPrompt sends text to the backend. contextParams may be nil.
func (c *Client) ProcessPrompt(ctx context.Context, text string, contextParams map[string]any) action.Result {
	body := map[string]any{"prompt": text}
	if len(contextParams) > 0 {
		body["context_params"] = contextParams
	}
	return c.result(ctx, c.promptTimeout, "/api/process-prompt", body)
}

// ProcessMedia sends text plus local media paths to the backend.
func (c *Client) ProcessMedia(ctx context.Context, text string, paths []string) action.Result {
	body := map[string]any{"prompt": text, "filePaths": paths}
	return c.result(ctx, c.mediaTimeout, "/api/process-media", body)
}

// AskQuestion sends a help conversation to the backend.
func (c *Client) AskQuestion(ctx context.Context, messages []ai.Message) (Answer, error) {
	var out Answer
	err := c.request(ctx, c.promptTimeout, http.MethodPost, "/api/ask-question", map[string]any{"messages": messages}, &out)
	return out, err
}

// Job fetches the stored outcome of a process-media request. The ID is the
// task_id of its result.
func (c *Client) Job(ctx context.Context, id string) (store.Job, error) {
	var out store.Job
	err := c.request(ctx, c.unaryTimeout, http.MethodGet, "/api/jobs/"+url.PathEscape(id), nil, &out)
	return out, err
}

func (c *Client) result(ctx context.Context, timeout time.Duration, path string, body any) action.Result {
	var res action.Result
	err := c.request(ctx, timeout, http.MethodPost, path, body, &res)
	if err == nil {
		return action.Normalize(res)
	}

	log.Warn().Err(err).Str("path", path).Msg("Backend request failed")
	var reqErr *RequestError
	switch {
	case errors.As(err, &reqErr) && reqErr.StatusCode == http.StatusUnprocessableEntity:
		return action.Failure(action.CodeNeedsSpecification, "The request was incomplete: "+reqErr.Message)
	case errors.As(err, &reqErr):
		return action.Failure(action.CodeUpstreamError, "The backend returned an error: "+reqErr.Error())
	case errors.Is(err, ErrDecodeResponse):
		return action.Failure(action.CodeInvalidResponse, "The backend sent a response that could not be read.")
	case isTimeout(err):
		return action.Failure(action.CodeTimeout, fmt.Sprintf("The backend did not respond within %s. Try again.", timeout))
	default:
		return action.Failure(action.CodeNetworkError, "Could not reach the backend at "+c.baseURL+". Make sure the backend is running.")
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func (c *Client) request(ctx context.Context, timeout time.Duration, method, path string, body, out any) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	var reqBody io.Reader
	if body != nil {
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(body); err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reqBody = buf
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		var er struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(payload, &er); err == nil && er.Error != "" {
			return &RequestError{StatusCode: resp.StatusCode, Message: er.Error}
		}
		return &RequestError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(payload))}
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("%w: %w", ErrDecodeResponse, err)
	}
	return nil
}
