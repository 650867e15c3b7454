// Package config provides application settings loaded from environment
// variables, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Provider selectors.
const (
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderStub      = "stub"
	ProviderColab     = "colab"
)

// DefaultProvider is used when AI_PROVIDER is unset.
const DefaultProvider = ProviderGemini

// Settings holds all application configuration.
type Settings struct {
	// Provider is the normalized selector. It may name an unknown provider;
	// that is reported per request, not here.
	Provider string

	Gemini    ProviderConfig
	OpenAI    ProviderConfig
	Anthropic ProviderConfig
	Colab     ColabConfig

	LLM    LLMConfig
	Server ServerConfig
	Output OutputConfig
	Log    LogConfig

	// MetricsEnabled controls EMF output. Defaults to true on Lambda.
	MetricsEnabled bool
}

// ProviderConfig holds credentials for one cloud provider.
type ProviderConfig struct {
	APIKey string
	Model  string
	// BaseURL overrides the API endpoint (proxies, compatible servers).
	BaseURL string
}

// ColabConfig locates the remote video-processing worker.
type ColabConfig struct {
	URL          string
	PollInterval time.Duration
	JobTimeout   time.Duration
}

// LLMConfig holds generation settings shared by the language-model providers.
type LLMConfig struct {
	Temperature float64
	MaxTokens   uint32
}

// ServerConfig holds the HTTP listener address.
type ServerConfig struct {
	Host string
	Port int
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// OutputConfig controls where processed media is written.
type OutputConfig struct {
	Dir    string
	Bucket string
	// JobsTable is the DynamoDB table for job records. Empty keeps them in
	// memory.
	JobsTable string
}

// LogConfig controls the global logger.
type LogConfig struct {
	Level string
	File  string
}

type providerInfo struct {
	modelEnv     string
	defaultModel string
	apiKeyEnv    string
}

var providers = map[string]providerInfo{
	ProviderGemini:    {"GEMINI_MODEL", "gemini-2.5-flash", "GEMINI_API_KEY"},
	ProviderOpenAI:    {"OPENAI_MODEL", "gpt-4o-mini", "OPENAI_API_KEY"},
	ProviderAnthropic: {"ANTHROPIC_MODEL", "claude-sonnet-4-20250514", "ANTHROPIC_API_KEY"},
}

var providerAliases = map[string]string{
	"claude": ProviderAnthropic,
	"google": ProviderGemini,
	"gpt":    ProviderOpenAI,
	"mock":   ProviderStub,
}

// Load reads .env from the working directory when present, then builds
// Settings from the environment. Existing environment variables win over
// .env values.
func Load() (Settings, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Settings{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds Settings from environment variables only.
func FromEnv() (Settings, error) {
	temperature, err := getEnvFloat64("LLM_TEMPERATURE", 0.2)
	if err != nil {
		return Settings{}, err
	}
	maxTokens, err := getEnvUint32("LLM_MAX_TOKENS", 2048)
	if err != nil {
		return Settings{}, err
	}
	port, err := getEnvInt("CHATCUT_PORT", 3001)
	if err != nil {
		return Settings{}, err
	}
	pollInterval, err := getEnvDuration("COLAB_POLL_INTERVAL", 5*time.Second)
	if err != nil {
		return Settings{}, err
	}
	jobTimeout, err := getEnvDuration("COLAB_JOB_TIMEOUT", 10*time.Minute)
	if err != nil {
		return Settings{}, err
	}
	metricsEnabled, err := getEnvBool("CHATCUT_METRICS", os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "")
	if err != nil {
		return Settings{}, err
	}

	return Settings{
		Provider:  NormalizeProvider(getEnv("AI_PROVIDER", DefaultProvider)),
		Gemini:    providerFromEnv(ProviderGemini),
		OpenAI:    providerFromEnv(ProviderOpenAI),
		Anthropic: providerFromEnv(ProviderAnthropic),
		Colab: ColabConfig{
			URL:          strings.TrimSpace(os.Getenv("COLAB_URL")),
			PollInterval: pollInterval,
			JobTimeout:   jobTimeout,
		},
		LLM: LLMConfig{
			Temperature: temperature,
			MaxTokens:   maxTokens,
		},
		Server: ServerConfig{
			Host: getEnv("CHATCUT_HOST", "127.0.0.1"),
			Port: port,
		},
		Output: OutputConfig{
			Dir:       getEnv("CHATCUT_OUTPUT_DIR", "output"),
			Bucket:    strings.TrimSpace(os.Getenv("CHATCUT_OUTPUT_BUCKET")),
			JobsTable: strings.TrimSpace(os.Getenv("CHATCUT_JOBS_TABLE")),
		},
		Log: LogConfig{
			Level: strings.ToLower(getEnv("CHATCUT_LOG_LEVEL", "info")),
			File:  strings.TrimSpace(os.Getenv("CHATCUT_LOG_FILE")),
		},
		MetricsEnabled: metricsEnabled,
	}, nil
}

// ProviderConfigFor returns the credentials for a cloud provider.
func (s Settings) ProviderConfigFor(name string) (ProviderConfig, bool) {
	switch NormalizeProvider(name) {
	case ProviderGemini:
		return s.Gemini, true
	case ProviderOpenAI:
		return s.OpenAI, true
	case ProviderAnthropic:
		return s.Anthropic, true
	}
	return ProviderConfig{}, false
}

// NormalizeProvider lowercases a selector and resolves aliases.
func NormalizeProvider(provider string) string {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if canonical, ok := providerAliases[provider]; ok {
		return canonical
	}
	return provider
}

// SupportedProviders returns the recognized selectors.
func SupportedProviders() []string {
	return []string{ProviderGemini, ProviderOpenAI, ProviderAnthropic, ProviderStub, ProviderColab}
}

func providerFromEnv(name string) ProviderConfig {
	info := providers[name]
	return ProviderConfig{
		APIKey:  strings.TrimSpace(os.Getenv(info.apiKeyEnv)),
		Model:   getEnv(info.modelEnv, info.defaultModel),
		BaseURL: strings.TrimSpace(os.Getenv(strings.ToUpper(name) + "_BASE_URL")),
	}
}

func getEnv(key, defaultVal string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return i, nil
}

func getEnvUint32(key string, defaultVal uint32) (uint32, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.ParseUint(val, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return uint32(i), nil
}

func getEnvFloat64(key string, defaultVal float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return f, nil
}

func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return b, nil
}

func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return d, nil
}
