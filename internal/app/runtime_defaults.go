package app

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/charlesng35/authflow/pkg/crypto"
)

const jwtSecretBytes = 48

var (
	// ErrMissingSecret is returned in production when a signing secret is not configured.
	ErrMissingSecret = errors.New("auth.jwt.secret must be configured in production")
	// ErrMissingClientURL is returned in production when reset links would have no origin.
	ErrMissingClientURL = errors.New("app.client_url must be configured in production")
)

// ApplyRuntimeDefaults fills values left empty by configuration and returns
// the keys it filled in. Secret values are never returned. Production refuses
// to start without a JWT secret or a client URL.
func ApplyRuntimeDefaults(cfg *Config) ([]string, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	var filled []string
	if strings.TrimSpace(cfg.Auth.JWT.Secret) == "" {
		if cfg.IsProduction() {
			return nil, ErrMissingSecret
		}
		secret, err := crypto.GenerateToken(jwtSecretBytes)
		if err != nil {
			return nil, fmt.Errorf("generate jwt secret: %w", err)
		}
		cfg.Auth.JWT.Secret = secret
		filled = append(filled, "auth.jwt.secret")
	}

	cfg.App.ClientURL = strings.TrimRight(strings.TrimSpace(cfg.App.ClientURL), "/")
	if cfg.App.ClientURL == "" {
		if cfg.IsProduction() {
			return nil, ErrMissingClientURL
		}
		cfg.App.ClientURL = defaultClientURL
		filled = append(filled, "app.client_url")
	}
	if err := validateClientURL(cfg.App.ClientURL); err != nil {
		return nil, err
	}
	return filled, nil
}

// validateClientURL requires an absolute http(s) origin so reset links are never relative.
func validateClientURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("app.client_url %q must be an absolute http(s) URL", raw)
	}
	return nil
}
