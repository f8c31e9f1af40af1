package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/charlesng35/authflow/internal/auth"
	"github.com/charlesng35/authflow/internal/models"
	"github.com/charlesng35/authflow/internal/store"
	"github.com/charlesng35/authflow/pkg/crypto"
	apperrors "github.com/charlesng35/authflow/pkg/errors"
	"github.com/charlesng35/authflow/pkg/logger"
	"github.com/charlesng35/authflow/pkg/metrics"
)

const (
	defaultVerificationTTL = 24 * time.Hour
	defaultResetTTL        = time.Hour
	maxCodeDraws           = 5

	// bcrypt ignores input past 72 bytes and x/crypto rejects it outright.
	maxPasswordBytes = 72
)

var errPasswordTooLong = apperrors.NewValidation("Password must be at most 72 bytes")

// SessionIssuer signs session tokens for authenticated accounts.
type SessionIssuer interface {
	IssueSessionToken(accountID string) (auth.SessionToken, error)
}

// SecretSource produces one-time secrets.
type SecretSource interface {
	VerificationCode() (string, error)
	ResetToken() (string, error)
}

// AuthOption customises the AuthService.
type AuthOption func(*AuthService)

// WithClientURL sets the base URL that reset links point at.
func WithClientURL(url string) AuthOption {
	return func(s *AuthService) {
		s.clientURL = strings.TrimRight(strings.TrimSpace(url), "/")
	}
}

// WithVerificationTTL overrides the verification code lifetime.
func WithVerificationTTL(d time.Duration) AuthOption {
	return func(s *AuthService) {
		if d > 0 {
			s.verificationTTL = d
		}
	}
}

// WithResetTTL overrides the reset token lifetime.
func WithResetTTL(d time.Duration) AuthOption {
	return func(s *AuthService) {
		if d > 0 {
			s.resetTTL = d
		}
	}
}

// WithAuthClock injects a custom time source.
func WithAuthClock(clock func() time.Time) AuthOption {
	return func(s *AuthService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithSecretSource replaces the default crypto/rand backed generator.
func WithSecretSource(src SecretSource) AuthOption {
	return func(s *AuthService) {
		if src != nil {
			s.secrets = src
		}
	}
}

// WithPasswordCost sets the bcrypt cost used for new hashes.
func WithPasswordCost(cost int) AuthOption {
	return func(s *AuthService) {
		s.hashCost = cost
	}
}

// RegisterInput carries the signup form.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

// SessionResult is returned by operations that authenticate the caller.
type SessionResult struct {
	Account models.PublicAccount
	Session auth.SessionToken
}

// AuthService drives the account lifecycle: registration, verification,
// login and password reset. It keeps no state between calls.
type AuthService struct {
	store    store.CredentialStore
	tokens   SessionIssuer
	notifier Notifier
	secrets  SecretSource

	clientURL       string
	verificationTTL time.Duration
	resetTTL        time.Duration
	hashCost        int
	now             func() time.Time
	log             *zap.Logger

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService constructs the service with its collaborators.
func NewAuthService(credentials store.CredentialStore, tokens SessionIssuer, notifier Notifier, opts ...AuthOption) (*AuthService, error) {
	if credentials == nil {
		return nil, errors.New("auth service: credential store is required")
	}
	if tokens == nil {
		return nil, errors.New("auth service: session issuer is required")
	}
	if notifier == nil {
		return nil, errors.New("auth service: notifier is required")
	}

	svc := &AuthService{
		store:           credentials,
		tokens:          tokens,
		notifier:        notifier,
		secrets:         auth.NewSecretGenerator(nil),
		verificationTTL: defaultVerificationTTL,
		resetTTL:        defaultResetTTL,
		hashCost:        bcrypt.DefaultCost,
		now:             time.Now,
		log:             logger.WithModule("auth"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Register creates an unverified account, signs the caller in and emails a
// verification code. When the email cannot be delivered the account is kept
// and the result is returned together with ErrNotificationDelivery.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*SessionResult, error) {
	email := store.NormalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)
	if email == "" || strings.TrimSpace(in.Password) == "" || name == "" {
		return nil, apperrors.ErrValidation
	}
	if len(in.Password) > maxPasswordBytes {
		return nil, errPasswordTooLong
	}

	if _, err := s.store.FindByEmail(ctx, email); err == nil {
		return nil, apperrors.ErrDuplicateAccount
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, s.internal("register: lookup email", err)
	}

	hash, err := crypto.HashPasswordWithCost(in.Password, s.hashCost)
	if err != nil {
		return nil, s.internal("register: hash password", err)
	}

	now := s.now()
	code, err := s.drawVerificationCode(ctx, now)
	if err != nil {
		return nil, s.internal("register: generate code", err)
	}
	expiresAt := now.Add(s.verificationTTL)

	account := &models.Account{
		Email:                     email,
		DisplayName:               name,
		PasswordHash:              hash,
		VerificationCode:          &code,
		VerificationCodeExpiresAt: &expiresAt,
	}
	if err := s.store.Insert(ctx, account); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperrors.ErrDuplicateAccount
		}
		return nil, s.internal("register: insert account", err)
	}
	metrics.AccountEvents.WithLabelValues("registered").Inc()

	session, err := s.tokens.IssueSessionToken(account.ID)
	if err != nil {
		return nil, s.internal("register: issue session", err)
	}
	result := &SessionResult{Account: account.Public(), Session: session}

	if err := s.notifier.SendVerification(ctx, account.Email, code); err != nil {
		s.log.Error("verification email failed", zap.String("account_id", account.ID), zap.Error(err))
		return result, apperrors.ErrNotificationDelivery.WithInternal(err)
	}

	return result, nil
}

// drawVerificationCode redraws while the candidate is held by another live
// account so that a code resolves to a single account.
func (s *AuthService) drawVerificationCode(ctx context.Context, now time.Time) (string, error) {
	var code string
	for attempt := 0; attempt < maxCodeDraws; attempt++ {
		var err error
		code, err = s.secrets.VerificationCode()
		if err != nil {
			return "", err
		}

		_, err = s.store.FindByVerificationCode(ctx, code, now)
		if errors.Is(err, store.ErrNotFound) {
			return code, nil
		}
		if err != nil {
			return "", err
		}
	}
	s.log.Warn("verification code collision persisted, using last draw", zap.Int("attempts", maxCodeDraws))
	return code, nil
}

// VerifyEmail consumes a verification code and marks its account verified.
// Wrong and expired codes fail identically. When the welcome email fails the
// account stays verified and is returned with ErrNotificationDelivery.
func (s *AuthService) VerifyEmail(ctx context.Context, code string) (*models.PublicAccount, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, apperrors.ErrInvalidOrExpiredCode
	}

	now := s.now()
	account, err := s.store.FindByVerificationCode(ctx, code, now)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.ErrInvalidOrExpiredCode
		}
		return nil, s.internal("verify email: lookup code", err)
	}
	// Case-insensitive collations (MySQL) can match a code that differs in case.
	if !account.HasVerificationCode(code, now) {
		return nil, apperrors.ErrInvalidOrExpiredCode
	}

	err = s.store.Update(ctx, account.ID,
		store.Patch{MarkVerified: true, ClearVerification: true},
		&store.Guard{Kind: store.SecretVerificationCode, Value: code, Now: now},
	)
	if err != nil {
		if errors.Is(err, store.ErrStaleSecret) {
			return nil, apperrors.ErrInvalidOrExpiredCode
		}
		return nil, s.internal("verify email: update account", err)
	}
	metrics.AccountEvents.WithLabelValues("verified").Inc()

	updated, err := s.store.FindByID(ctx, account.ID)
	if err != nil {
		return nil, s.internal("verify email: reload account", err)
	}

	public := updated.Public()
	if err := s.notifier.SendWelcome(ctx, updated.Email, updated.DisplayName); err != nil {
		s.log.Error("welcome email failed", zap.String("account_id", updated.ID), zap.Error(err))
		return &public, apperrors.ErrNotificationDelivery.WithInternal(err)
	}
	return &public, nil
}

// Login authenticates by email and password. Unknown emails and wrong
// passwords fail with the same error and comparable latency.
func (s *AuthService) Login(ctx context.Context, email, password string) (*SessionResult, error) {
	email = store.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, s.loginFailed()
	}

	account, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return nil, s.internal("login: lookup email", err)
		}
		crypto.VerifyPassword(s.fallbackHash(), password)
		return nil, s.loginFailed()
	}

	if !crypto.VerifyPassword(account.PasswordHash, password) {
		return nil, s.loginFailed()
	}

	session, err := s.tokens.IssueSessionToken(account.ID)
	if err != nil {
		return nil, s.internal("login: issue session", err)
	}

	loginAt := s.now()
	if err := s.store.Update(ctx, account.ID, store.Patch{LastLoginAt: &loginAt}, nil); err != nil {
		return nil, s.internal("login: record last login", err)
	}
	account.LastLoginAt = &loginAt
	metrics.AuthAttempts.WithLabelValues("success").Inc()

	return &SessionResult{Account: account.Public(), Session: session}, nil
}

func (s *AuthService) loginFailed() error {
	metrics.AuthAttempts.WithLabelValues("failure").Inc()
	return apperrors.ErrInvalidCredentials
}

func (s *AuthService) fallbackHash() string {
	s.dummyOnce.Do(func() {
		hash, err := crypto.HashPasswordWithCost("authflow-timing-equaliser", s.hashCost)
		if err == nil {
			s.dummyHash = hash
		}
	})
	return s.dummyHash
}

// Logout is stateless: session tokens stay valid until they expire and the
// caller is expected to discard the cookie.
func (s *AuthService) Logout(ctx context.Context) error {
	return nil
}

// ForgotPassword issues a reset token for the account and emails a link to it.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = store.NormalizeEmail(email)
	if email == "" {
		return apperrors.ErrValidation
	}

	account, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperrors.ErrAccountNotFound
		}
		return s.internal("forgot password: lookup email", err)
	}

	token, err := s.secrets.ResetToken()
	if err != nil {
		return s.internal("forgot password: generate token", err)
	}

	err = s.store.Update(ctx, account.ID, store.Patch{
		SetReset: &store.SecretPair{Value: token, ExpiresAt: s.now().Add(s.resetTTL)},
	}, nil)
	if err != nil {
		return s.internal("forgot password: store token", err)
	}
	metrics.AccountEvents.WithLabelValues("reset_requested").Inc()

	if err := s.notifier.SendResetRequest(ctx, account.Email, s.resetURL(token)); err != nil {
		s.log.Error("password reset email failed", zap.String("account_id", account.ID), zap.Error(err))
		return apperrors.ErrNotificationDelivery.WithInternal(err)
	}
	return nil
}

func (s *AuthService) resetURL(token string) string {
	return fmt.Sprintf("%s/reset-password/%s", s.clientURL, token)
}

// ResetPassword consumes a reset token and replaces the password. Of two
// concurrent calls with the same token only one succeeds. A failed
// confirmation email yields ErrNotificationDelivery after the new password
// has been stored.
func (s *AuthService) ResetPassword(ctx context.Context, token, password string) error {
	token = strings.TrimSpace(token)
	if strings.TrimSpace(password) == "" {
		return apperrors.ErrValidation
	}
	if len(password) > maxPasswordBytes {
		return errPasswordTooLong
	}
	if token == "" {
		return apperrors.ErrInvalidOrExpiredToken
	}

	now := s.now()
	account, err := s.store.FindByResetToken(ctx, token, now)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperrors.ErrInvalidOrExpiredToken
		}
		return s.internal("reset password: lookup token", err)
	}
	if !account.HasResetToken(token, now) {
		return apperrors.ErrInvalidOrExpiredToken
	}

	hash, err := crypto.HashPasswordWithCost(password, s.hashCost)
	if err != nil {
		return s.internal("reset password: hash password", err)
	}

	err = s.store.Update(ctx, account.ID,
		store.Patch{PasswordHash: &hash, ClearReset: true},
		&store.Guard{Kind: store.SecretResetToken, Value: token, Now: now},
	)
	if err != nil {
		if errors.Is(err, store.ErrStaleSecret) {
			return apperrors.ErrInvalidOrExpiredToken
		}
		return s.internal("reset password: update account", err)
	}
	metrics.AccountEvents.WithLabelValues("password_reset").Inc()

	if err := s.notifier.SendResetSuccess(ctx, account.Email); err != nil {
		s.log.Error("password reset confirmation failed", zap.String("account_id", account.ID), zap.Error(err))
		return apperrors.ErrNotificationDelivery.WithInternal(err)
	}
	return nil
}

// CheckAuth resolves the account behind an authenticated session.
func (s *AuthService) CheckAuth(ctx context.Context, accountID string) (*models.PublicAccount, error) {
	account, err := s.store.FindByID(ctx, strings.TrimSpace(accountID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.ErrAccountNotFound
		}
		return nil, s.internal("check auth: lookup account", err)
	}
	public := account.Public()
	return &public, nil
}

func (s *AuthService) internal(op string, err error) error {
	s.log.Error("auth operation failed", zap.String("op", op), zap.Error(err))
	return apperrors.ErrInternalServer.WithInternal(fmt.Errorf("%s: %w", op, err))
}
