package app

import (
	"time"

	"github.com/charlesng35/authflow/internal/auth"
	"github.com/charlesng35/authflow/internal/handlers"
	"github.com/charlesng35/authflow/internal/middleware"
)

const (
	defaultVerificationTTL = 24 * time.Hour
	defaultResetTTL        = time.Hour
)

// JWTServiceConfig converts AuthConfig into the parameters expected by the JWT service.
func (c AuthConfig) JWTServiceConfig() auth.JWTConfig {
	ttl := c.JWT.SessionTTL
	if ttl <= 0 {
		ttl = auth.DefaultSessionTTL
	}

	return auth.JWTConfig{
		Secret:     c.JWT.Secret,
		Issuer:     c.JWT.Issuer,
		SessionTTL: ttl,
	}
}

// CookieSettings converts the cookie section into handler settings. Production
// always marks the cookie Secure.
func (c AuthConfig) CookieSettings(production bool) handlers.CookieSettings {
	name := c.Cookie.Name
	if name == "" {
		name = middleware.DefaultSessionCookie
	}

	return handlers.CookieSettings{
		Name:   name,
		Path:   "/",
		Secure: c.Cookie.Secure || production,
		MaxAge: c.JWTServiceConfig().SessionTTL,
	}
}

// SecretTTLs returns the verification code and reset token lifetimes.
func (c AuthConfig) SecretTTLs() (verification, reset time.Duration) {
	verification = c.Tokens.VerificationTTL
	if verification <= 0 {
		verification = defaultVerificationTTL
	}
	reset = c.Tokens.ResetTTL
	if reset <= 0 {
		reset = defaultResetTTL
	}
	return verification, reset
}
