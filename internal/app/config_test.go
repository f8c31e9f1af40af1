package app

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/authflow/internal/auth"
	"github.com/charlesng35/authflow/internal/database"
)

func TestLoadConfigFromFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("testdata"))
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "debug", cfg.Server.LogLevel)
	require.True(t, cfg.IsProduction())

	require.Equal(t, "postgres", cfg.Database.Driver)
	require.Equal(t, "db.example.com", cfg.Database.Postgres.Host)
	require.Equal(t, 5433, cfg.Database.Postgres.Port)
	require.False(t, cfg.Database.UsesMongo())

	require.Equal(t, "jwt-secret", cfg.Auth.JWT.Secret)
	require.Equal(t, 48*time.Hour, cfg.Auth.JWT.SessionTTL)
	require.Equal(t, "sid", cfg.Auth.Cookie.Name)
	require.Equal(t, 12*time.Hour, cfg.Auth.Tokens.VerificationTTL)
	require.Equal(t, 30*time.Minute, cfg.Auth.Tokens.ResetTTL)

	require.Equal(t, "Acme", cfg.Email.AppName)
	require.Equal(t, 3*time.Second, cfg.Email.SendTimeout)
	require.True(t, cfg.Email.SMTP.Enabled)
	require.Equal(t, "smtp.example.com", cfg.Email.SMTP.Host)
	require.Equal(t, 2525, cfg.Email.SMTP.Port)
	require.Equal(t, 15*time.Second, cfg.Email.SMTP.Timeout)

	require.Equal(t, "https://app.example.com", cfg.App.ClientURL)
	require.False(t, cfg.Maintenance.Enabled)
	require.Equal(t, "@every 10m", cfg.Maintenance.SweepSchedule)
}

func TestLoadConfigExplicitFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("testdata", "config.yaml"))
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Server.Port)

	_, err = LoadConfig(filepath.Join("testdata", "missing.yaml"))
	require.Error(t, err)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 8000, cfg.Server.Port)
	require.Equal(t, "development", cfg.Server.Environment)
	require.False(t, cfg.IsProduction())
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, 168*time.Hour, cfg.Auth.JWT.SessionTTL)
	require.Equal(t, "token", cfg.Auth.Cookie.Name)
	require.Equal(t, 24*time.Hour, cfg.Auth.Tokens.VerificationTTL)
	require.Equal(t, time.Hour, cfg.Auth.Tokens.ResetTTL)
	require.Equal(t, 5*time.Second, cfg.Email.SendTimeout)
	require.True(t, cfg.Maintenance.Enabled)
	require.Equal(t, "@hourly", cfg.Maintenance.SweepSchedule)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("AUTHFLOW_SERVER_PORT", "7000")
	t.Setenv("AUTHFLOW_DATABASE_DRIVER", "mongodb")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	require.Equal(t, 7000, cfg.Server.Port)
	require.True(t, cfg.Database.UsesMongo())
	require.Equal(t, "authflow", cfg.Database.MongoConfig().Database)
}

func TestAuthConfigAdapters(t *testing.T) {
	cfg := AuthConfig{
		JWT:    JWTSettings{Secret: "secret", Issuer: "issuer", SessionTTL: 30 * time.Minute},
		Cookie: CookieSettings{Name: "sid"},
		Tokens: TokenSettings{VerificationTTL: time.Hour, ResetTTL: 10 * time.Minute},
	}

	require.Equal(t, auth.JWTConfig{
		Secret:     "secret",
		Issuer:     "issuer",
		SessionTTL: 30 * time.Minute,
	}, cfg.JWTServiceConfig())

	cookie := cfg.CookieSettings(true)
	require.Equal(t, "sid", cookie.Name)
	require.True(t, cookie.Secure)
	require.Equal(t, 30*time.Minute, cookie.MaxAge)
	require.False(t, cfg.CookieSettings(false).Secure)

	verification, reset := cfg.SecretTTLs()
	require.Equal(t, time.Hour, verification)
	require.Equal(t, 10*time.Minute, reset)
}

func TestAuthConfigAdaptersFallback(t *testing.T) {
	var cfg AuthConfig

	require.Equal(t, auth.DefaultSessionTTL, cfg.JWTServiceConfig().SessionTTL)
	require.Equal(t, "token", cfg.CookieSettings(false).Name)

	verification, reset := cfg.SecretTTLs()
	require.Equal(t, defaultVerificationTTL, verification)
	require.Equal(t, defaultResetTTL, reset)
}

func TestEmailConfigAdapter(t *testing.T) {
	cfg := EmailConfig{
		SMTP: SMTPConfig{
			Enabled:  true,
			Host:     "smtp.example.com",
			Port:     2525,
			Username: "user",
			Password: "pass",
			From:     "no-reply@example.com",
			UseTLS:   true,
			Timeout:  10 * time.Second,
		},
	}

	settings := cfg.SMTPSettings()
	require.True(t, settings.Enabled)
	require.Equal(t, "smtp.example.com", settings.Host)
	require.Equal(t, 2525, settings.Port)
	require.Equal(t, "user", settings.Username)
	require.Equal(t, "pass", settings.Password)
	require.Equal(t, "no-reply@example.com", settings.From)
	require.True(t, settings.UseTLS)
	require.Equal(t, 10*time.Second, settings.Timeout)
	require.Len(t, cfg.NotifierOptions(), 3)
}

func TestDatabaseConfigAdapters(t *testing.T) {
	cfg := DatabaseConfig{
		Driver: "mysql",
		MySQL:  DBAuthConfig{Host: "mysql.local", Port: 3307, Database: "accounts", Username: "u", Password: "p"},
	}

	require.Equal(t, database.Config{
		Driver:   "mysql",
		Host:     "mysql.local",
		Port:     3307,
		Name:     "accounts",
		User:     "u",
		Password: "p",
	}, cfg.SQLConfig())

	sqlite := DatabaseConfig{Driver: "sqlite", Path: "./data/test.sqlite"}
	require.Equal(t, database.Config{Driver: "sqlite", Path: "./data/test.sqlite"}, sqlite.SQLConfig())
}
