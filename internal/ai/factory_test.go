package ai

import (
	"context"
	"testing"

	"github.com/chatcut/chatcut/internal/action"
	"github.com/chatcut/chatcut/internal/config"
)

// isolateCredentials clears every key source so lookups fail fast.
func isolateCredentials(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")
}

func TestNewSelectsProvider(t *testing.T) {
	isolateCredentials(t)
	tests := map[string]string{
		config.ProviderGemini:    "gemini",
		config.ProviderOpenAI:    "openai",
		config.ProviderAnthropic: "anthropic",
		config.ProviderStub:      "stub",
		config.ProviderColab:     "colab",
	}
	for selector, want := range tests {
		p := New(config.Settings{Provider: selector}, nil)
		if p.Name() != want {
			t.Errorf("New(%q).Name() = %q, want %q", selector, p.Name(), want)
		}
		if IsUnknown(p) {
			t.Errorf("New(%q) should not be unknown", selector)
		}
	}
}

func TestUnknownProvider(t *testing.T) {
	p := New(config.Settings{Provider: "watson"}, nil)
	if !IsUnknown(p) {
		t.Fatal("expected unknown provider")
	}
	if p.IsConfigured() {
		t.Error("unknown provider must not report configured")
	}
	res := p.ProcessPrompt(context.Background(), "zoom in", action.DefaultCatalog(), nil)
	if res.Error != action.CodeUnknownProvider {
		t.Errorf("Error = %q, want %q", res.Error, action.CodeUnknownProvider)
	}
	if !action.Valid(res) {
		t.Errorf("result violates invariant: %+v", res)
	}
}

func TestMissingKeyReportedPerCall(t *testing.T) {
	isolateCredentials(t)
	for _, selector := range []string{config.ProviderGemini, config.ProviderOpenAI, config.ProviderAnthropic} {
		t.Run(selector, func(t *testing.T) {
			p := New(config.Settings{Provider: selector}, nil)
			if p.IsConfigured() {
				t.Fatal("provider should be unconfigured without a key")
			}
			res := p.ProcessPrompt(context.Background(), "zoom in by 120%", action.DefaultCatalog(), nil)
			if res.Error != action.CodeAPIKeyMissing {
				t.Errorf("Error = %q, want %q", res.Error, action.CodeAPIKeyMissing)
			}
			if res.Confidence != 0 {
				t.Errorf("Confidence = %v, want 0", res.Confidence)
			}
			if pinger, ok := p.(Pinger); ok {
				if err := pinger.Ping(context.Background()); err == nil {
					t.Error("Ping() should fail without a key")
				}
			}
		})
	}
}

func TestProviderCapabilities(t *testing.T) {
	var p Provider = NewStub()
	if _, ok := p.(Answerer); !ok {
		t.Error("stub should answer questions")
	}
	if _, ok := p.(Pinger); !ok {
		t.Error("stub should support Ping")
	}

	p = NewGemini("key", "gemini-2.5-flash", 0.2, 256)
	if lim, ok := p.(MediaLimiter); !ok || lim.MaxMediaBytes() != 2<<30 {
		t.Error("gemini should expose the Files API limit")
	}
	if !p.IsConfigured() {
		t.Error("explicit key should configure the provider")
	}
}
