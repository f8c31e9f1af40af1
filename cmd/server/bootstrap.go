package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/authflow/internal/api"
	"github.com/charlesng35/authflow/internal/app"
	"github.com/charlesng35/authflow/internal/app/maintenance"
	iauth "github.com/charlesng35/authflow/internal/auth"
	"github.com/charlesng35/authflow/internal/database"
	"github.com/charlesng35/authflow/internal/monitoring"
	"github.com/charlesng35/authflow/internal/monitoring/checks"
	"github.com/charlesng35/authflow/internal/services"
	"github.com/charlesng35/authflow/internal/store"
	"github.com/charlesng35/authflow/pkg/logger"
	"github.com/charlesng35/authflow/pkg/mail"
)

// accountStore is what the runtime needs from a storage backend.
type accountStore interface {
	store.CredentialStore
	store.SecretSweeper
	store.Migrator
}

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	Store   accountStore
	Cleaner *maintenance.Cleaner
	Router  *gin.Engine

	closeStore func(context.Context) error
}

// loadRuntimeConfig reads configuration, fills generated secrets and
// initialises logging.
func loadRuntimeConfig() (*app.Config, *zap.Logger, error) {
	var paths []string
	if configFile != "" {
		if _, err := os.Stat(configFile); err != nil {
			return nil, nil, fmt.Errorf("config path %q: %w", configFile, err)
		}
		paths = append(paths, configFile)
	}

	cfg, err := app.LoadConfig(paths...)
	if err != nil {
		return nil, nil, err
	}

	generated, err := app.ApplyRuntimeDefaults(cfg)
	if err != nil {
		return nil, nil, err
	}

	if err := app.ConfigureLogging(cfg); err != nil {
		return nil, nil, fmt.Errorf("configure logging: %w", err)
	}

	log := logger.WithModule("bootstrap")
	for _, key := range generated {
		if key == "auth.jwt.secret" {
			log.Warn("generated runtime secret; sessions will not survive a restart", zap.String("key", key))
			continue
		}
		log.Warn("configuration value missing, using development default", zap.String("key", key))
	}

	return cfg, log, nil
}

// openStore connects the configured backend. The returned close function
// releases its connections.
func openStore(ctx context.Context, cfg *app.Config) (accountStore, func(context.Context) error, error) {
	log := logger.WithModule("database")

	if cfg.Database.UsesMongo() {
		client, db, err := database.OpenMongo(ctx, cfg.Database.MongoConfig())
		if err != nil {
			return nil, nil, fmt.Errorf("open mongodb: %w", err)
		}
		log.Info("database connected", zap.String("driver", "mongodb"), zap.String("database", db.Name()))
		return store.NewMongoStore(db), client.Disconnect, nil
	}

	sqlCfg := cfg.Database.SQLConfig()
	db, err := database.Open(sqlCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	log.Info("database connected", zap.String("driver", sqlCfg.Driver))

	closeFn := func(context.Context) error { return database.Close(db) }
	return store.NewGormStore(db), closeFn, nil
}

// bootstrapRuntime opens the store, applies the schema and wires services and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	// enable gin debug mode
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	var err error
	stack.Store, stack.closeStore, err = openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := stack.Store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrate store: %w", err)
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	mailer, err := mail.NewSMTPMailer(cfg.Email.SMTPSettings())
	if err != nil {
		return nil, fmt.Errorf("initialise mailer: %w", err)
	}
	if !cfg.Email.SMTP.Enabled {
		log.Warn("smtp disabled; account emails will not be delivered")
	}

	notifier, err := services.NewEmailNotifier(mailer, cfg.Email.NotifierOptions()...)
	if err != nil {
		return nil, fmt.Errorf("initialise notifier: %w", err)
	}

	verificationTTL, resetTTL := cfg.Auth.SecretTTLs()
	accounts, err := services.NewAuthService(stack.Store, jwtSvc, notifier,
		services.WithClientURL(cfg.App.ClientURL),
		services.WithVerificationTTL(verificationTTL),
		services.WithResetTTL(resetTTL),
	)
	if err != nil {
		return nil, fmt.Errorf("initialise auth service: %w", err)
	}

	if cfg.Maintenance.Enabled {
		stack.Cleaner, err = maintenance.NewCleaner(stack.Store, maintenance.WithSchedule(cfg.Maintenance.SweepSchedule))
		if err != nil {
			return nil, err
		}
		if err := stack.Cleaner.Start(); err != nil {
			return nil, fmt.Errorf("start maintenance jobs: %w", err)
		}
	}

	stack.Router, err = api.NewRouter(api.Dependencies{
		Accounts:   accounts,
		Sessions:   jwtSvc,
		Health:     monitoring.NewHealthManager(checks.Store(stack.Store, 0)),
		Cookie:     cfg.Auth.CookieSettings(cfg.IsProduction()),
		CORSOrigin: cfg.App.ClientURL,
		HSTS:       cfg.IsProduction(),
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// Shutdown gracefully stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Cleaner != nil {
		<-s.Cleaner.Stop().Done()
	}

	if s.closeStore != nil {
		if err := s.closeStore(ctx); err != nil {
			log.Warn("failed to close store", zap.Error(err))
		}
	}
}
