// Package auth resolves provider credentials and classifies upstream API
// failures into the error codes reported to clients.
package auth

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/chatcut/chatcut/internal/action"
	"github.com/chatcut/chatcut/internal/metrics"
	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

// ValidationError represents a classified credential or upstream failure.
type ValidationError struct {
	Type    ValidationErrorType
	Message string
	Err     error
}

// ValidationErrorType categorizes failures.
type ValidationErrorType int

const (
	// ErrTypeNoKey indicates no API key was found.
	ErrTypeNoKey ValidationErrorType = iota
	// ErrTypeInvalidKey indicates the API key is invalid or revoked.
	ErrTypeInvalidKey
	// ErrTypeNetworkError indicates a network connectivity issue.
	ErrTypeNetworkError
	// ErrTypeQuotaExceeded indicates the API quota has been exceeded.
	ErrTypeQuotaExceeded
	// ErrTypeTimeout indicates the call exceeded its deadline.
	ErrTypeTimeout
	// ErrTypeUnknown indicates an unknown error occurred.
	ErrTypeUnknown
)

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Code maps the failure type to the result error code.
func (e *ValidationError) Code() string {
	switch e.Type {
	case ErrTypeNoKey:
		return action.CodeAPIKeyMissing
	case ErrTypeInvalidKey:
		return action.CodeAPIKeyInvalid
	case ErrTypeQuotaExceeded:
		return action.CodeQuotaExceeded
	case ErrTypeNetworkError:
		return action.CodeNetworkError
	case ErrTypeTimeout:
		return action.CodeTimeout
	default:
		return action.CodeUpstreamError
	}
}

// ValidateAPIKey verifies a Gemini key with a minimal generation call.
func ValidateAPIKey(ctx context.Context, client *genai.Client, model string) error {
	log.Debug().Str("model", model).Msg("Validating API key with Gemini API")

	start := time.Now()
	resp, err := client.Models.GenerateContent(ctx, model, genai.Text("hi"), nil)
	elapsed := time.Since(start)

	result := "success"
	var valErr *ValidationError
	switch {
	case err != nil:
		valErr = Classify(err)
		result = resultLabel(valErr.Type)
	case resp == nil || len(resp.Candidates) == 0:
		log.Warn().Msg("API key validation returned empty response")
		result = "empty_response"
		valErr = &ValidationError{Type: ErrTypeUnknown, Message: "API returned empty response"}
	}

	metrics.New(metrics.Namespace).
		Dimension("Result", result).
		Duration("ApiKeyValidationMs", elapsed).
		Count("ApiKeyValidationResult").
		Flush()

	log.Debug().
		Str("result", result).
		Dur("duration", elapsed).
		Msg("API key validation result")

	if valErr != nil {
		return valErr
	}
	return nil
}

func resultLabel(t ValidationErrorType) string {
	switch t {
	case ErrTypeInvalidKey:
		return "invalid"
	case ErrTypeNetworkError:
		return "network_error"
	case ErrTypeQuotaExceeded:
		return "quota"
	case ErrTypeTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Classify analyzes an upstream error from any provider SDK.
func Classify(err error) *ValidationError {
	if err == nil {
		return nil
	}

	var valErr *ValidationError
	if errors.As(err, &valErr) {
		return valErr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &ValidationError{Type: ErrTypeTimeout, Message: "Request timed out", Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &ValidationError{Type: ErrTypeTimeout, Message: "Request timed out", Err: err}
	}

	var geminiErr *genai.APIError
	if errors.As(err, &geminiErr) {
		return classifyStatus(geminiErr.Code, geminiErr.Message, err)
	}
	var openaiErr *openai.APIError
	if errors.As(err, &openaiErr) {
		return classifyStatus(openaiErr.HTTPStatusCode, openaiErr.Message, err)
	}
	var openaiReqErr *openai.RequestError
	if errors.As(err, &openaiReqErr) {
		return classifyStatus(openaiReqErr.HTTPStatusCode, openaiReqErr.HTTPStatus, err)
	}
	var anthropicErr *anthropic.Error
	if errors.As(err, &anthropicErr) {
		return classifyStatus(anthropicErr.StatusCode, "", err)
	}

	return classifyMessage(err)
}

func classifyMessage(err error) *ValidationError {
	errLower := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errLower, "api key not valid") ||
		strings.Contains(errLower, "invalid api key") ||
		strings.Contains(errLower, "invalid x-api-key") ||
		strings.Contains(errLower, "api_key_invalid") ||
		strings.Contains(errLower, "incorrect api key") ||
		strings.Contains(errLower, "permission denied"):
		log.Error().Err(err).Msg("Invalid API key")
		return &ValidationError{
			Type:    ErrTypeInvalidKey,
			Message: "API key is invalid or has been revoked",
			Err:     err,
		}

	case strings.Contains(errLower, "quota") ||
		strings.Contains(errLower, "resource exhausted") ||
		strings.Contains(errLower, "rate limit"):
		log.Error().Err(err).Msg("API quota exceeded")
		return &ValidationError{
			Type:    ErrTypeQuotaExceeded,
			Message: "API quota exceeded or rate limited",
			Err:     err,
		}

	case strings.Contains(errLower, "timeout") ||
		strings.Contains(errLower, "deadline exceeded"):
		log.Error().Err(err).Msg("Upstream request timed out")
		return &ValidationError{
			Type:    ErrTypeTimeout,
			Message: "Request timed out",
			Err:     err,
		}

	case strings.Contains(errLower, "connection") ||
		strings.Contains(errLower, "network") ||
		strings.Contains(errLower, "dial") ||
		strings.Contains(errLower, "no such host") ||
		strings.Contains(errLower, "unreachable"):
		log.Error().Err(err).Msg("Network error calling provider")
		return &ValidationError{
			Type:    ErrTypeNetworkError,
			Message: "Network error - check your internet connection",
			Err:     err,
		}

	default:
		log.Error().Err(err).Msg("Unknown upstream error")
		return &ValidationError{
			Type:    ErrTypeUnknown,
			Message: "The AI provider returned an error",
			Err:     err,
		}
	}
}

// classifyStatus categorizes an HTTP status reported by a provider SDK.
func classifyStatus(code int, message string, err error) *ValidationError {
	switch code {
	case 400:
		// Gemini reports malformed keys as 400; other 400s fall through to
		// message matching.
		if strings.Contains(strings.ToLower(message+" "+err.Error()), "api key") {
			log.Error().Int("code", code).Msg("Bad request - possibly invalid API key format")
			return &ValidationError{
				Type:    ErrTypeInvalidKey,
				Message: "Bad request - API key may be malformed",
				Err:     err,
			}
		}
		return classifyMessage(err)

	case 401, 403:
		log.Error().Int("code", code).Msg("Authentication failed - invalid API key")
		return &ValidationError{
			Type:    ErrTypeInvalidKey,
			Message: "API key is invalid, expired, or lacks permissions",
			Err:     err,
		}

	case 429:
		log.Error().Int("code", code).Msg("Rate limit exceeded")
		return &ValidationError{
			Type:    ErrTypeQuotaExceeded,
			Message: "API rate limit exceeded - try again later",
			Err:     err,
		}

	case 408, 504:
		log.Error().Int("code", code).Msg("Upstream timeout")
		return &ValidationError{
			Type:    ErrTypeTimeout,
			Message: "The AI provider timed out - try again later",
			Err:     err,
		}

	case 500, 502, 503, 529:
		log.Error().Int("code", code).Msg("Provider server error")
		return &ValidationError{
			Type:    ErrTypeNetworkError,
			Message: "AI provider server error - try again later",
			Err:     err,
		}

	default:
		log.Error().Int("code", code).Str("message", message).Msg("Provider API error")
		return &ValidationError{
			Type:    ErrTypeUnknown,
			Message: "The AI provider returned an error",
			Err:     err,
		}
	}
}
