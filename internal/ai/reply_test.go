package ai

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/chatcut/chatcut/internal/action"
	"github.com/chatcut/chatcut/internal/auth"
)

func TestParseReply(t *testing.T) {
	catalog := action.DefaultCatalog()
	tests := []struct {
		name      string
		raw       string
		wantErr   string
		wantName  string
		wantSteps int
	}{
		{
			name:      "single action",
			raw:       `{"action":"zoomIn","parameters":{"endScale":130},"message":"Zooming in"}`,
			wantName:  action.ZoomIn,
			wantSteps: 1,
		},
		{
			name:      "fenced json",
			raw:       "```json\n{\"action\":\"applyBlur\",\"parameters\":{}}\n```",
			wantName:  action.ApplyBlur,
			wantSteps: 1,
		},
		{
			name:      "multiple actions",
			raw:       `{"actions":[{"action":"zoomIn","parameters":{}},{"action":"applyBlur","parameters":{"blurriness":20}}]}`,
			wantSteps: 2,
		},
		{
			name:      "single element list collapses",
			raw:       `{"actions":[{"action":"applyBlur","parameters":{"blurriness":20}}]}`,
			wantName:  action.ApplyBlur,
			wantSteps: 1,
		},
		{
			name:    "model reported error",
			raw:     `{"action":null,"error":"small_talk"}`,
			wantErr: action.CodeSmallTalk,
		},
		{
			name:    "action outside catalog",
			raw:     `{"action":"deleteEverything","parameters":{}}`,
			wantErr: action.CodeInvalidResponse,
		},
		{
			name:    "not json",
			raw:     "Sure! I'll zoom in for you.",
			wantErr: action.CodeInvalidResponse,
		},
		{
			name:    "empty object",
			raw:     `{}`,
			wantErr: action.CodeInvalidResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := parseReply(tt.raw, catalog)
			if !action.Valid(res) {
				t.Fatalf("result violates invariant: %+v", res)
			}
			if res.Error != tt.wantErr {
				t.Fatalf("Error = %q, want %q", res.Error, tt.wantErr)
			}
			if res.Message == "" {
				t.Error("Message should always be filled")
			}
			if tt.wantErr != "" {
				return
			}
			if res.Action != tt.wantName {
				t.Errorf("Action = %q, want %q", res.Action, tt.wantName)
			}
			if got := len(res.Steps()); got != tt.wantSteps {
				t.Errorf("len(Steps()) = %d, want %d", got, tt.wantSteps)
			}
		})
	}
}

func TestFailureFromError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&auth.ValidationError{Type: auth.ErrTypeNoKey, Message: "no key", Err: auth.ErrNoKey}, action.CodeAPIKeyMissing},
		{errors.New("Error 429: resource exhausted"), action.CodeQuotaExceeded},
		{fmt.Errorf("call: %w", errors.New("connection refused")), action.CodeNetworkError},
	}
	for _, tt := range tests {
		res := failureFromError("gemini", tt.err)
		if res.Error != tt.want {
			t.Errorf("failureFromError(%v).Error = %q, want %q", tt.err, res.Error, tt.want)
		}
		if res.Confidence != 0 || res.Message == "" {
			t.Errorf("failure result malformed: %+v", res)
		}
	}
}

func TestGuardRecoversPanic(t *testing.T) {
	res := guard("test", func() action.Result {
		panic("boom")
	})
	if res.Error != action.CodeUpstreamError {
		t.Errorf("Error = %q, want %q", res.Error, action.CodeUpstreamError)
	}
	if !action.Valid(res) {
		t.Errorf("result violates invariant: %+v", res)
	}
}

func TestLastMessages(t *testing.T) {
	var history []Message
	for i := 0; i < 14; i++ {
		role := RoleUser
		if i%2 == 1 {
			role = "model"
		}
		history = append(history, Message{Role: role, Content: fmt.Sprintf("m%d", i)})
	}
	history = append(history, Message{Role: RoleUser, Content: "   "})

	got := LastMessages(history, 10)
	if len(got) != 10 {
		t.Fatalf("len = %d, want 10", len(got))
	}
	if got[0].Content != "m4" || got[9].Content != "m13" {
		t.Errorf("window = %q..%q, want m4..m13", got[0].Content, got[9].Content)
	}
	if got[9].Role != RoleAssistant {
		t.Errorf("model role not normalized: %q", got[9].Role)
	}
}

func TestBuildUserPromptWithoutMedia(t *testing.T) {
	if got := buildUserPrompt("zoom in", nil); got != "zoom in" {
		t.Errorf("got %q", got)
	}
	if !strings.HasPrefix(describeSteps([]action.Step{{Action: "zoomIn"}}), "Applying zoomIn") {
		t.Error("describeSteps should name the action")
	}
}
