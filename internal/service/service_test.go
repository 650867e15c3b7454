package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chatcut/chatcut/internal/action"
	"github.com/chatcut/chatcut/internal/ai"
	"github.com/chatcut/chatcut/internal/config"
	"github.com/chatcut/chatcut/internal/filehandler"
)

// recordingProvider returns a fixed result and remembers what it was sent.
type recordingProvider struct {
	result     action.Result
	limit      int64
	answer     string
	answerErr  error
	calls      int
	lastPrompt string
	lastMedia  []*filehandler.MediaFile
	lastChat   []ai.Message
}

func (p *recordingProvider) Name() string       { return "recording" }
func (p *recordingProvider) IsConfigured() bool { return true }
func (p *recordingProvider) MaxMediaBytes() int64 {
	return p.limit
}

func (p *recordingProvider) ProcessPrompt(ctx context.Context, prompt string, catalog action.Catalog, media []*filehandler.MediaFile) action.Result {
	p.calls++
	p.lastPrompt = prompt
	p.lastMedia = media
	return p.result
}

func (p *recordingProvider) Answer(ctx context.Context, system string, history []ai.Message) (string, error) {
	p.lastChat = history
	return p.answer, p.answerErr
}

func TestProcessPromptScenarios(t *testing.T) {
	svc := New(ai.NewStub(), nil)

	res := svc.ProcessPrompt(context.Background(), "zoom in by 120%", nil)
	if res.Action != action.ZoomIn || res.Parameters["endScale"] != 120.0 || res.Confidence != 1 {
		t.Errorf("zoom in by 120%%: %+v", res)
	}

	res = svc.ProcessPrompt(context.Background(), "add reverb", nil)
	if res.Action != action.ApplyAudioFilter || res.Parameters["filterDisplayName"] != "Reverb" {
		t.Errorf("add reverb: %+v", res)
	}
}

func TestProcessPromptEmpty(t *testing.T) {
	p := &recordingProvider{}
	res := New(p, nil).ProcessPrompt(context.Background(), "   ", nil)
	if res.Error != action.CodeNeedsSpecification {
		t.Errorf("Error = %q, want %q", res.Error, action.CodeNeedsSpecification)
	}
	if p.calls != 0 {
		t.Error("provider should not be called for an empty prompt")
	}
}

func TestProcessPromptSmallTalkShortCircuits(t *testing.T) {
	p := &recordingProvider{}
	res := New(p, nil).ProcessPrompt(context.Background(), "hello!", nil)
	if res.Error != action.CodeSmallTalk || res.Confidence != 0 {
		t.Errorf("result = %+v", res)
	}
	if p.calls != 0 {
		t.Error("provider should not be called for small talk")
	}
}

func TestProcessPromptEditAfterGreetingReachesProvider(t *testing.T) {
	svc := New(ai.NewStub(), nil)
	for _, text := range []string{"ok make it grayscale", "hey, make it monochrome"} {
		res := svc.ProcessPrompt(context.Background(), text, nil)
		if res.Error == action.CodeSmallTalk || res.Action != action.ApplyFilter {
			t.Errorf("%q: result = %+v", text, res)
		}
	}
}

func TestProcessPromptNormalizesProviderOutput(t *testing.T) {
	p := &recordingProvider{result: action.Result{
		Action:     "zoomIn",
		Actions:    []action.Step{{Action: "applyBlur"}},
		Confidence: 0.4,
	}}
	res := New(p, nil).ProcessPrompt(context.Background(), "do something", nil)
	if !action.Valid(res) {
		t.Fatalf("result violates invariant: %+v", res)
	}
	if res.Action != "applyBlur" || res.Confidence != 1 {
		t.Errorf("result = %+v", res)
	}
}

func TestProcessPromptContextParams(t *testing.T) {
	p := &recordingProvider{result: action.Success(action.ZoomIn, nil, "")}
	New(p, nil).ProcessPrompt(context.Background(), "zoom in", map[string]any{"clipCount": 2, "duration": 4.5})
	if !strings.Contains(p.lastPrompt, "- clipCount: 2") || !strings.Contains(p.lastPrompt, "- duration: 4.5") {
		t.Errorf("context not forwarded: %q", p.lastPrompt)
	}
	if !strings.HasPrefix(p.lastPrompt, "zoom in") {
		t.Errorf("prompt should lead: %q", p.lastPrompt)
	}
}

func TestProcessMediaValidation(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, size int) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
			t.Fatal(err)
		}
		return path
	}
	small := write("clip.wav", 10)
	big := write("big.mp4", 200)
	doc := write("notes.txt", 10)

	tests := []struct {
		name  string
		paths []string
		want  string
	}{
		{"nonexistent media file", []string{filepath.Join(dir, "missing.mp4")}, action.CodeFileNotFound},
		{"directory", []string{dir}, action.CodeFileAccessError},
		{"too large", []string{big}, action.CodeFileTooLarge},
		{"unsupported", []string{doc}, action.CodeUnsupportedFileType},
		{"second file invalid", []string{small, filepath.Join(dir, "gone.wav")}, action.CodeFileNotFound},
		{"no files", nil, action.CodeNeedsSpecification},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &recordingProvider{limit: 100}
			res := New(p, nil).ProcessMedia(context.Background(), "track the person", tt.paths)
			if res.Error != tt.want {
				t.Errorf("Error = %q, want %q", res.Error, tt.want)
			}
			if p.calls != 0 {
				t.Error("provider must not be called when validation fails")
			}
		})
	}
}

func TestProcessMediaForwardsFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voice.wav")
	if err := os.WriteFile(path, []byte("RIFF"), 0o644); err != nil {
		t.Fatal(err)
	}
	p := &recordingProvider{limit: 1 << 20, result: action.Success(action.ApplyAudioFilter, map[string]any{"filterDisplayName": "DeNoise"}, "")}
	res := New(p, nil).ProcessMedia(context.Background(), "remove noise", []string{path})
	if res.IsError() {
		t.Fatalf("unexpected error %s", res.Error)
	}
	if len(p.lastMedia) != 1 || p.lastMedia[0].MIMEType != "audio/wav" {
		t.Errorf("media = %+v", p.lastMedia)
	}
}

func TestProviderInfo(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("GEMINI_API_KEY", "")

	svc := New(ai.New(config.Settings{Provider: "watson"}, nil), nil)
	first := svc.ProviderInfo()
	if first.Name != "watson" || first.Configured || first.Error != action.CodeUnknownProvider {
		t.Errorf("unknown provider info = %+v", first)
	}
	if second := svc.ProviderInfo(); second != first {
		t.Errorf("ProviderInfo not idempotent: %+v != %+v", second, first)
	}

	svc = New(ai.New(config.Settings{Provider: config.ProviderGemini}, nil), nil)
	if info := svc.ProviderInfo(); info.Configured || info.Error != "" || info.Name != "gemini" {
		t.Errorf("unconfigured gemini info = %+v", info)
	}

	svc = New(ai.NewStub(), nil)
	if info := svc.ProviderInfo(); !info.Configured {
		t.Errorf("stub info = %+v", info)
	}
}

func TestProbe(t *testing.T) {
	if got := New(ai.NewStub(), nil).Probe(context.Background()); got != ConnectionConnected {
		t.Errorf("stub probe = %q", got)
	}
	if got := New(&recordingProvider{}, nil).Probe(context.Background()); got != ConnectionSkipped {
		t.Errorf("non-pinger probe = %q", got)
	}
}

func TestAskQuestion(t *testing.T) {
	var messages []ai.Message
	for i := 0; i < 12; i++ {
		messages = append(messages, ai.Message{Role: ai.RoleUser, Content: "question"})
	}
	p := &recordingProvider{answer: "  Use the Razor tool.  "}
	ans := New(p, nil).AskQuestion(context.Background(), messages)
	if ans.Message != "Use the Razor tool." || ans.Error != "" {
		t.Errorf("answer = %+v", ans)
	}
	if len(p.lastChat) != 10 {
		t.Errorf("sent %d messages, want 10", len(p.lastChat))
	}

	p = &recordingProvider{answerErr: errors.New("rate limit reached")}
	ans = New(p, nil).AskQuestion(context.Background(), messages)
	if ans.Message != FallbackAnswer || ans.Error != action.CodeQuotaExceeded {
		t.Errorf("failed answer = %+v", ans)
	}

	ans = New(p, nil).AskQuestion(context.Background(), nil)
	if ans.Error != action.CodeNeedsSpecification {
		t.Errorf("empty conversation = %+v", ans)
	}
}

func TestSmallTalk(t *testing.T) {
	tests := map[string]bool{
		"hi":                          true,
		"Thanks!":                     true,
		"what can you do?":            true,
		"bye":                         true,
		"hi, zoom in please":          false,
		"zoom in by 120%":             false,
		"hello can you blur the clip": false,
		"make it pop":                 false,
		"Hello there!":                true,
		"ok, thanks so much":          true,
		"Thanks, ChatCut!":            true,
		"ok make it grayscale":        false,
		"hey, make it monochrome":     false,
		"thanks, now sharpen it":      false,
		"cool, add lumetri":           false,
		"hi can you help me":          false,
	}
	for text, want := range tests {
		res, got := SmallTalk(text)
		if got != want {
			t.Errorf("SmallTalk(%q) = %v, want %v", text, got, want)
		}
		if got && (res.Error != action.CodeSmallTalk || res.Message == "") {
			t.Errorf("SmallTalk(%q) result = %+v", text, res)
		}
	}
}
