package ai

import (
	"github.com/chatcut/chatcut/internal/auth"
)

// credential resolves an API key at call time. A key from settings wins;
// otherwise the auth package consults the environment and the encrypted
// credential file.
type credential struct {
	provider   string
	configured string
}

func (c credential) key() (string, error) {
	if c.configured != "" {
		return c.configured, nil
	}
	return auth.GetAPIKey(c.provider)
}

func (c credential) present() bool {
	return c.configured != "" || auth.HasAPIKey(c.provider)
}
