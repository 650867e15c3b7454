package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// clearEnv blanks every variable FromEnv reads so host settings do not leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"AI_PROVIDER", "GEMINI_API_KEY", "GEMINI_MODEL", "OPENAI_API_KEY", "OPENAI_MODEL",
		"ANTHROPIC_API_KEY", "ANTHROPIC_MODEL", "COLAB_URL", "COLAB_POLL_INTERVAL", "COLAB_JOB_TIMEOUT",
		"LLM_TEMPERATURE", "LLM_MAX_TOKENS", "CHATCUT_PORT", "CHATCUT_HOST", "CHATCUT_OUTPUT_DIR",
		"CHATCUT_OUTPUT_BUCKET", "CHATCUT_LOG_LEVEL", "CHATCUT_LOG_FILE", "CHATCUT_METRICS",
		"AWS_LAMBDA_FUNCTION_NAME",
	} {
		t.Setenv(key, "")
	}
}

func TestFromEnvDefaults(t *testing.T) {
	clearEnv(t)

	s, err := FromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Provider != ProviderGemini {
		t.Errorf("provider = %q, want gemini", s.Provider)
	}
	if s.Gemini.Model != "gemini-2.5-flash" {
		t.Errorf("gemini model = %q", s.Gemini.Model)
	}
	if s.OpenAI.Model != "gpt-4o-mini" {
		t.Errorf("openai model = %q", s.OpenAI.Model)
	}
	if s.Server.Addr() != "127.0.0.1:3001" {
		t.Errorf("addr = %q", s.Server.Addr())
	}
	if s.LLM.Temperature != 0.2 || s.LLM.MaxTokens != 2048 {
		t.Errorf("llm = %+v", s.LLM)
	}
	if s.Colab.PollInterval != 5*time.Second || s.Colab.JobTimeout != 10*time.Minute {
		t.Errorf("colab = %+v", s.Colab)
	}
	if s.Output.Dir != "output" {
		t.Errorf("output dir = %q", s.Output.Dir)
	}
	if s.MetricsEnabled {
		t.Error("metrics should be off outside Lambda")
	}
}

func TestFromEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("AI_PROVIDER", " Claude ")
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("CHATCUT_PORT", "8080")
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "chatcut")

	s, err := FromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Provider != ProviderAnthropic {
		t.Errorf("provider = %q, want anthropic", s.Provider)
	}
	pc, ok := s.ProviderConfigFor("anthropic")
	if !ok || pc.APIKey != "sk-test" {
		t.Errorf("anthropic config = %+v", pc)
	}
	if s.Server.Port != 8080 {
		t.Errorf("port = %d", s.Server.Port)
	}
	if !s.MetricsEnabled {
		t.Error("metrics should default on under Lambda")
	}
}

func TestFromEnvUnknownProviderIsNotAnError(t *testing.T) {
	clearEnv(t)
	t.Setenv("AI_PROVIDER", "bogus")

	s, err := FromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Provider != "bogus" {
		t.Errorf("provider = %q", s.Provider)
	}
	if _, ok := s.ProviderConfigFor("bogus"); ok {
		t.Error("bogus provider should have no config")
	}
}

func TestFromEnvInvalidValues(t *testing.T) {
	for _, key := range []string{"LLM_MAX_TOKENS", "LLM_TEMPERATURE", "CHATCUT_PORT", "COLAB_POLL_INTERVAL", "CHATCUT_METRICS"} {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, "not-a-value")
			if _, err := FromEnv(); err == nil {
				t.Errorf("expected error for invalid %s", key)
			}
		})
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("COLAB_URL")

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("COLAB_URL=abc.ngrok.io\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		os.Chdir(wd)
		os.Unsetenv("COLAB_URL")
	})

	s, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Colab.URL != "abc.ngrok.io" {
		t.Errorf("colab url = %q", s.Colab.URL)
	}
}

func TestLoadWithoutDotEnv(t *testing.T) {
	clearEnv(t)
	wd, _ := os.Getwd()
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })

	if _, err := Load(); err != nil {
		t.Fatalf("missing .env should not fail: %v", err)
	}
}

func TestNormalizeProvider(t *testing.T) {
	tests := map[string]string{
		"Gemini": "gemini",
		"google": "gemini",
		"gpt":    "openai",
		"mock":   "stub",
		" colab": "colab",
	}
	for in, want := range tests {
		if got := NormalizeProvider(in); got != want {
			t.Errorf("NormalizeProvider(%q) = %q, want %q", in, got, want)
		}
	}
}
