// Package store persists accounts and their one-time secrets. It is the only
// package that talks to a data store.
package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charlesng35/authflow/internal/models"
)

var (
	// ErrNotFound indicates no account matched the lookup.
	ErrNotFound = errors.New("store: account not found")
	// ErrDuplicate indicates the email is already registered.
	ErrDuplicate = errors.New("store: duplicate account")
	// ErrStaleSecret indicates a guarded update lost because the secret was
	// consumed, replaced or expired in the meantime.
	ErrStaleSecret = errors.New("store: secret no longer valid")
	// ErrInvalidPatch indicates a patch that both sets and clears the same secret.
	ErrInvalidPatch = errors.New("store: conflicting patch")
)

// SecretKind selects which one-time secret a Guard checks.
type SecretKind int

const (
	SecretVerificationCode SecretKind = iota + 1
	SecretResetToken
)

func (k SecretKind) String() string {
	switch k {
	case SecretVerificationCode:
		return "verification_code"
	case SecretResetToken:
		return "reset_token"
	default:
		return "unknown"
	}
}

// Guard turns an update into a compare-and-set: it only applies while the
// account still holds Value for Kind and that secret expires after Now.
type Guard struct {
	Kind  SecretKind
	Value string
	Now   time.Time
}

// SecretPair is a one-time secret written together with its expiry.
type SecretPair struct {
	Value     string
	ExpiresAt time.Time
}

// Patch lists the fields an update writes. Unset fields are left untouched so
// concurrent updates to different fields never overwrite each other.
type Patch struct {
	PasswordHash *string
	// MarkVerified sets IsVerified. Verification cannot be revoked.
	MarkVerified bool

	// Verification codes are only written on insert.
	ClearVerification bool

	SetReset   *SecretPair
	ClearReset bool

	LastLoginAt *time.Time
}

// Empty reports whether the patch writes nothing.
func (p Patch) Empty() bool {
	return p.PasswordHash == nil &&
		!p.MarkVerified &&
		!p.ClearVerification &&
		p.SetReset == nil &&
		!p.ClearReset &&
		p.LastLoginAt == nil
}

func (p Patch) validate() error {
	if p.SetReset != nil && p.ClearReset {
		return ErrInvalidPatch
	}
	return nil
}

// CredentialStore is the account persistence contract used by the auth service.
// Lookups by secret ignore secrets whose expiry has passed.
type CredentialStore interface {
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	FindByID(ctx context.Context, id string) (*models.Account, error)
	FindByVerificationCode(ctx context.Context, code string, now time.Time) (*models.Account, error)
	FindByResetToken(ctx context.Context, token string, now time.Time) (*models.Account, error)
	Insert(ctx context.Context, account *models.Account) error
	Update(ctx context.Context, id string, patch Patch, guard *Guard) error
	Ping(ctx context.Context) error
}

// SecretSweeper clears expired secret pairs in bulk.
type SecretSweeper interface {
	ClearExpiredVerificationCodes(ctx context.Context, now time.Time) (int64, error)
	ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
}

// Migrator prepares the backing schema or indexes.
type Migrator interface {
	Migrate(ctx context.Context) error
}

// NormalizeEmail trims and lower-cases an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
