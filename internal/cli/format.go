// Package cli holds the helpers shared by the chatcut command: backend
// selection, terminal formatting and input handling.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/chatcut/chatcut/internal/action"
	"github.com/chatcut/chatcut/internal/session"
)

// WriteJSON writes v as indented JSON followed by a newline.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// FormatResult renders an action result for a terminal.
func FormatResult(r action.Result) string {
	var b strings.Builder
	if r.IsError() {
		fmt.Fprintf(&b, "error: %s\n", r.Error)
		if r.Message != "" {
			fmt.Fprintf(&b, "  %s\n", r.Message)
		}
		return b.String()
	}
	for i, st := range r.Steps() {
		fmt.Fprintf(&b, "%d. %s%s\n", i+1, st.Action, formatParams(st.Parameters))
	}
	if r.Message != "" {
		fmt.Fprintf(&b, "  %s\n", r.Message)
	}
	if r.OutputPath != "" {
		fmt.Fprintf(&b, "  output: %s\n", r.OutputPath)
	}
	return b.String()
}

func formatParams(params map[string]any) string {
	if len(params) == 0 {
		return ""
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, params[k]))
	}
	return " (" + strings.Join(parts, ", ") + ")"
}

// FormatMessage renders one chat line as "[15:04:05] assistant: text".
func FormatMessage(m session.Message) string {
	return fmt.Sprintf("[%s] %s: %s", m.At.Format(time.TimeOnly), m.Role, m.Text)
}
