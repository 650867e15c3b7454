package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug": zerolog.DebugLevel,
		"warn":  zerolog.WarnLevel,
		"error": zerolog.ErrorLevel,
		"info":  zerolog.InfoLevel,
		"":      zerolog.InfoLevel,
		"loud":  zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestInitWithFile(t *testing.T) {
	prev := log.Logger
	prevLevel := zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(prevLevel)
	})

	path := filepath.Join(t.TempDir(), "chatcut.log")
	closer := Init(Options{Level: "debug", File: path, JSON: true})
	log.Info().Str("k", "v").Msg("hello file")
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"message":"hello file"`) {
		t.Errorf("log file missing event: %s", data)
	}
	if zerolog.GlobalLevel() != zerolog.DebugLevel {
		t.Errorf("level = %v, want debug", zerolog.GlobalLevel())
	}
}

func TestStartupLoggerEvent(t *testing.T) {
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })

	var buf bytes.Buffer
	log.Logger = zerolog.New(&buf)

	NewStartupLogger("chatcut-server").
		Version("0.1.0").
		Resource("outputBucket", "media-out").
		Resource("ssmParam", "").
		Feature("gzip", true).
		Config("provider", "stub").
		Log()

	var doc map[string]any
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	process := doc["process"].(map[string]any)
	if process["name"] != "chatcut-server" || process["version"] != "0.1.0" {
		t.Errorf("process = %v", process)
	}
	resources := doc["resources"].(map[string]any)
	if resources["outputBucket"] != "media-out" {
		t.Errorf("resources = %v", resources)
	}
	if _, ok := resources["ssmParam"]; ok {
		t.Error("empty resources should be skipped")
	}
	if doc["config"].(map[string]any)["provider"] != "stub" {
		t.Errorf("config = %v", doc["config"])
	}
}

func TestEnvOrDefault(t *testing.T) {
	t.Setenv("CHATCUT_TEST_VALUE", "")
	if got := EnvOrDefault("CHATCUT_TEST_VALUE", "fallback"); got != "fallback" {
		t.Errorf("got %q", got)
	}
	t.Setenv("CHATCUT_TEST_VALUE", "set")
	if got := EnvOrDefault("CHATCUT_TEST_VALUE", "fallback"); got != "set" {
		t.Errorf("got %q", got)
	}
}
