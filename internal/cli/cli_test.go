package cli

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/chatcut/chatcut/internal/action"
	"github.com/chatcut/chatcut/internal/client"
	"github.com/chatcut/chatcut/internal/service"
	"github.com/chatcut/chatcut/internal/session"
)

func TestFormatResult(t *testing.T) {
	tests := []struct {
		name string
		in   action.Result
		want string
	}{
		{
			name: "single",
			in:   action.Success(action.ZoomIn, map[string]any{"endScale": 120.0, "animated": false}, ""),
			want: "1. zoomIn (animated=false, endScale=120)\n",
		},
		{
			name: "error",
			in:   action.Failure(action.CodeAPIKeyMissing, "Set GEMINI_API_KEY."),
			want: "error: API_KEY_MISSING\n  Set GEMINI_API_KEY.\n",
		},
		{
			name: "multi",
			in: action.Result{Actions: []action.Step{
				{Action: action.ApplyBlur},
				{Action: action.ApplyAudioFilter, Parameters: map[string]any{"filterDisplayName": "Reverb"}},
			}},
			want: "1. applyBlur\n2. applyAudioFilter (filterDisplayName=Reverb)\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatResult(tt.in); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatMessage(t *testing.T) {
	m := session.Message{Role: "assistant", Text: "Done.", At: time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)}
	if got := FormatMessage(m); got != "[15:04:05] assistant: Done." {
		t.Errorf("got %q", got)
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, map[string]int{"a": 1}); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "{\n  \"a\": 1\n}\n" {
		t.Errorf("got %q", buf.String())
	}
}

func TestReadLine(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("  zoom in \nlast"))
	var out bytes.Buffer

	line, err := ReadLine(r, &out, "> ")
	if err != nil || line != "zoom in" {
		t.Fatalf("first line = %q, %v", line, err)
	}
	line, err = ReadLine(r, &out, "> ")
	if err != nil || line != "last" {
		t.Fatalf("unterminated line = %q, %v", line, err)
	}
	if _, err := ReadLine(r, &out, "> "); !errors.Is(err, io.EOF) {
		t.Errorf("err = %v, want EOF", err)
	}
	if out.String() != "> > > " {
		t.Errorf("prompts = %q", out.String())
	}
}

func TestIsQuit(t *testing.T) {
	for _, s := range []string{"exit", "QUIT", " /quit ", ":q"} {
		if !IsQuit(s) {
			t.Errorf("IsQuit(%q) = false", s)
		}
	}
	if IsQuit("undo") {
		t.Error("IsQuit(undo) = true")
	}
}

func TestResolveMediaPaths(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	if err := os.WriteFile("clip.mp4", []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := ResolveMediaPaths([]string{"clip.mp4"})
	if err != nil {
		t.Fatal(err)
	}
	if !filepath.IsAbs(got[0]) || !FileExists(got[0]) {
		t.Errorf("resolved = %v", got)
	}
	if FileExists(dir) {
		t.Error("FileExists(dir) = true")
	}
}

func TestExitCode(t *testing.T) {
	tests := map[string]int{
		"":                             0,
		action.CodeNeedsSpecification: 2,
		action.CodeSmallTalk:          2,
		action.CodeNetworkError:       1,
	}
	for code, want := range tests {
		if got := ExitCode(code); got != want {
			t.Errorf("ExitCode(%q) = %d, want %d", code, got, want)
		}
	}
}

func TestNewPrompter(t *testing.T) {
	t.Chdir(t.TempDir())
	p, err := NewPrompter(Options{ServerURL: "http://example.invalid:1"})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := p.(*client.Client); !ok {
		t.Errorf("remote prompter is %T", p)
	}

	p, err = NewPrompter(Options{Local: true, Provider: "stub"})
	if err != nil {
		t.Fatal(err)
	}
	svc, ok := p.(*service.Service)
	if !ok {
		t.Fatalf("local prompter is %T", p)
	}
	if svc.ProviderInfo().Name != "stub" {
		t.Errorf("provider = %q", svc.ProviderInfo().Name)
	}
}
