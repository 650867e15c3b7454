package auth

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

const credentialDir = ".chatcut"

// ErrNoKey is wrapped by GetAPIKey when no credential source is available.
var ErrNoKey = errors.New("API key not found")

// envVars maps provider names to the environment variable holding their key.
var envVars = map[string]string{
	"gemini":    "GEMINI_API_KEY",
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
}

// EnvVar returns the environment variable that holds provider's API key.
func EnvVar(provider string) string {
	if v, ok := envVars[provider]; ok {
		return v
	}
	return strings.ToUpper(provider) + "_API_KEY"
}

// GetAPIKey retrieves the API key for provider.
// Priority order:
//  1. <PROVIDER>_API_KEY environment variable
//  2. GPG-encrypted file at ~/.chatcut/<provider>.gpg
func GetAPIKey(provider string) (string, error) {
	if key := strings.TrimSpace(os.Getenv(EnvVar(provider))); key != "" {
		log.Debug().Str("provider", provider).Msg("Using API key from environment variable")
		return key, nil
	}

	key, err := getFromGPG(provider)
	if err == nil && key != "" {
		log.Debug().Str("provider", provider).Msg("Using API key from GPG encrypted file")
		return key, nil
	}

	log.Debug().Err(err).Str("provider", provider).Msg("No API key available")
	return "", &ValidationError{
		Type:    ErrTypeNoKey,
		Message: fmt.Sprintf("%s API key not configured. Set %s in your environment or .env file", provider, EnvVar(provider)),
		Err:     ErrNoKey,
	}
}

// HasAPIKey reports whether a key source exists for provider. It checks the
// environment and the presence of the credential file but never decrypts.
func HasAPIKey(provider string) bool {
	if strings.TrimSpace(os.Getenv(EnvVar(provider))) != "" {
		return true
	}
	path, err := getCredentialPath(provider)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

func getFromGPG(provider string) (string, error) {
	credPath, err := getCredentialPath(provider)
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(credPath); os.IsNotExist(err) {
		return "", fmt.Errorf("GPG credentials file not found at %s", credPath)
	}

	log.Debug().Str("file", credPath).Msg("Decrypting GPG credentials")

	cmd := exec.Command("gpg", "--decrypt", "--quiet", credPath)
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("GPG decryption failed: %s", string(exitErr.Stderr))
		}
		return "", fmt.Errorf("GPG decryption failed: %w", err)
	}

	return strings.TrimSpace(string(output)), nil
}

func getCredentialPath(provider string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return filepath.Join(home, credentialDir, provider+".gpg"), nil
}
