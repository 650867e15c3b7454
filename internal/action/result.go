// Package action defines the structured edit actions exchanged between the
// prompt-processing backend and the editing session: the normalized
// ActionResult, its error codes, and the catalog of recognized actions.
package action

import "strings"

// Error codes surfaced in Result.Error.
const (
	CodeAPIKeyMissing       = "API_KEY_MISSING"
	CodeAPIKeyInvalid       = "API_KEY_INVALID"
	CodeQuotaExceeded       = "QUOTA_EXCEEDED"
	CodeSmallTalk           = "SMALL_TALK"
	CodeNeedsSelection      = "NEEDS_SELECTION"
	CodeNeedsSpecification  = "NEEDS_SPECIFICATION"
	CodeInvalidResponse     = "INVALID_RESPONSE"
	CodeUnknownProvider     = "UNKNOWN_PROVIDER"
	CodeUpstreamError       = "UPSTREAM_ERROR"
	CodeNetworkError        = "NETWORK_ERROR"
	CodeTimeout             = "TIMEOUT"
	CodeFileNotFound        = "FILE_NOT_FOUND"
	CodeFileTooLarge        = "FILE_TOO_LARGE"
	CodeFileAccessError     = "FILE_ACCESS_ERROR"
	CodeUnsupportedFileType = "UNSUPPORTED_FILE_TYPE"
	CodeColabServerError    = "COLAB_SERVER_ERROR"
	CodeNoJobID             = "NO_JOB_ID"
	CodeJobFailed           = "JOB_FAILED"
	CodeNoDownloadURL       = "NO_DOWNLOAD_URL"
	CodeProgressCheckFailed = "PROGRESS_CHECK_FAILED"
	CodeDownloadFailed      = "DOWNLOAD_FAILED"
	CodeNeedsVideoProvider  = "NEEDS_VIDEO_PROVIDER"
)

// Step is one operation inside a multi-action result.
type Step struct {
	Action     string         `json:"action"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// Result is the normalized output of prompt processing.
//
// Exactly one of Action, Actions or Error is populated once the value has
// passed through Normalize. Error implies Confidence == 0.
type Result struct {
	Action     string         `json:"action,omitempty"`
	Actions    []Step         `json:"actions,omitempty"`
	Parameters map[string]any `json:"parameters"`
	Confidence float64        `json:"confidence"`
	Message    string         `json:"message"`
	Error      string         `json:"error,omitempty"`

	// Set by the video-generation provider.
	OriginalPath string `json:"original_path,omitempty"`
	OutputPath   string `json:"output_path,omitempty"`
	TaskID       string `json:"task_id,omitempty"`

	RawResponse string `json:"raw_response,omitempty"`
}

// Failure builds an error result.
func Failure(code, message string) Result {
	return Result{
		Parameters: map[string]any{},
		Confidence: 0,
		Message:    message,
		Error:      code,
	}
}

// Success builds a single-action result.
func Success(name string, params map[string]any, message string) Result {
	if params == nil {
		params = map[string]any{}
	}
	return Result{
		Action:     name,
		Parameters: params,
		Confidence: 1,
		Message:    message,
	}
}

// IsError reports whether the result carries an error code.
func (r Result) IsError() bool {
	return r.Error != ""
}

// Steps flattens the result into the ordered list of operations to apply.
// Error results have no steps.
func (r Result) Steps() []Step {
	if r.IsError() {
		return nil
	}
	if len(r.Actions) > 0 {
		return r.Actions
	}
	if r.Action == "" {
		return nil
	}
	return []Step{{Action: r.Action, Parameters: r.Parameters}}
}

// Normalize enforces the result invariant:
//   - an error code wins over any action payload and forces confidence 0
//   - a multi-action list wins over a single action; a list of one collapses
//   - a result with no action and no error becomes INVALID_RESPONSE
//   - successful results carry confidence 1
func Normalize(r Result) Result {
	r.Error = strings.TrimSpace(r.Error)
	if r.Parameters == nil {
		r.Parameters = map[string]any{}
	}

	if r.Error != "" {
		r.Action = ""
		r.Actions = nil
		r.Confidence = 0
		return r
	}

	steps := make([]Step, 0, len(r.Actions))
	for _, s := range r.Actions {
		s.Action = strings.TrimSpace(s.Action)
		if s.Action == "" {
			continue
		}
		if s.Parameters == nil {
			s.Parameters = map[string]any{}
		}
		steps = append(steps, s)
	}

	switch {
	case len(steps) > 1:
		r.Action = ""
		r.Actions = steps
		r.Parameters = map[string]any{}
	case len(steps) == 1:
		r.Action = steps[0].Action
		r.Parameters = steps[0].Parameters
		r.Actions = nil
	default:
		r.Actions = nil
		r.Action = strings.TrimSpace(r.Action)
	}

	if r.Action == "" && len(r.Actions) == 0 {
		msg := r.Message
		if msg == "" {
			msg = "The response did not contain a recognizable action."
		}
		return Failure(CodeInvalidResponse, msg)
	}

	r.Confidence = 1
	return r
}

// Valid reports whether r satisfies the result invariant.
func Valid(r Result) bool {
	n := 0
	if r.Action != "" {
		n++
	}
	if len(r.Actions) > 0 {
		n++
	}
	if r.Error != "" {
		n++
		if r.Confidence != 0 {
			return false
		}
	}
	return n == 1
}
