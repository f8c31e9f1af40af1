package maintenance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/charlesng35/authflow/internal/store"
	"github.com/charlesng35/authflow/pkg/logger"
	"github.com/charlesng35/authflow/pkg/metrics"
)

const (
	defaultSweepSpec    = "@hourly"
	defaultSweepTimeout = time.Minute
)

// Cleaner clears expired verification codes and reset tokens on a schedule.
// Lookups already ignore expired secrets, so the sweep only tidies storage.
type Cleaner struct {
	sweeper  store.SecretSweeper
	cron     *cron.Cron
	now      func() time.Time
	log      *zap.Logger
	schedule string
	timeout  time.Duration
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for expiry comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithSchedule overrides the cron expression for the sweep.
func WithSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.schedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner over the store's sweeper.
func NewCleaner(sweeper store.SecretSweeper, opts ...Option) (*Cleaner, error) {
	if sweeper == nil {
		return nil, errors.New("maintenance: secret sweeper is required")
	}

	cleaner := &Cleaner{
		sweeper:  sweeper,
		now:      time.Now,
		schedule: defaultSweepSpec,
		timeout:  defaultSweepTimeout,
		log:      logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner, nil
}

// Start registers the sweep with the cron scheduler and launches it.
func (c *Cleaner) Start() error {
	if _, err := c.cron.AddFunc(c.schedule, c.sweep); err != nil {
		return fmt.Errorf("maintenance: schedule %q: %w", c.schedule, err)
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

func (c *Cleaner) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	stats, err := c.RunOnce(ctx)
	if err != nil {
		c.log.Warn("secret sweep failed", zap.Error(err))
	}
	if stats.Total() > 0 {
		c.log.Info("expired secrets cleared",
			zap.Int64("verification_codes", stats.VerificationCodes),
			zap.Int64("reset_tokens", stats.ResetTokens),
		)
	}
}

// SweepStats captures the number of accounts cleared per secret kind.
type SweepStats struct {
	VerificationCodes int64
	ResetTokens       int64
}

// Total returns the number of secrets cleared.
func (s SweepStats) Total() int64 {
	return s.VerificationCodes + s.ResetTokens
}

// RunOnce clears both secret kinds. Both passes run even when the first fails;
// their errors are combined.
func (c *Cleaner) RunOnce(ctx context.Context) (SweepStats, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	now := c.now().UTC()
	var (
		stats SweepStats
		errs  error
	)

	if n, err := c.sweeper.ClearExpiredVerificationCodes(ctx, now); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("verification codes: %w", err))
	} else {
		stats.VerificationCodes = n
		metrics.SweptSecrets.WithLabelValues(store.SecretVerificationCode.String()).Add(float64(n))
	}

	if n, err := c.sweeper.ClearExpiredResetTokens(ctx, now); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("reset tokens: %w", err))
	} else {
		stats.ResetTokens = n
		metrics.SweptSecrets.WithLabelValues(store.SecretResetToken.String()).Add(float64(n))
	}

	return stats, errs
}
