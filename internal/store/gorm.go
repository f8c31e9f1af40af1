package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/authflow/internal/database"
	"github.com/charlesng35/authflow/internal/models"
)

const (
	colVerificationCode    = "verification_code"
	colVerificationExpires = "verification_code_expires_at"
	colResetToken          = "reset_token"
	colResetExpires        = "reset_token_expires_at"
)

// GormStore implements CredentialStore on top of a relational database.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an open gorm handle.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate applies the account schema.
func (s *GormStore) Migrate(ctx context.Context) error {
	return database.Migrate(s.db.WithContext(ctx))
}

func (s *GormStore) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	return s.first(ctx, "email = ?", NormalizeEmail(email))
}

func (s *GormStore) FindByID(ctx context.Context, id string) (*models.Account, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	return s.first(ctx, "id = ?", id)
}

func (s *GormStore) FindByVerificationCode(ctx context.Context, code string, now time.Time) (*models.Account, error) {
	if code == "" {
		return nil, ErrNotFound
	}
	return s.first(ctx, colVerificationCode+" = ? AND "+colVerificationExpires+" > ?", code, now.UTC())
}

func (s *GormStore) FindByResetToken(ctx context.Context, token string, now time.Time) (*models.Account, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	return s.first(ctx, colResetToken+" = ? AND "+colResetExpires+" > ?", token, now.UTC())
}

func (s *GormStore) first(ctx context.Context, query string, args ...any) (*models.Account, error) {
	var account models.Account
	err := s.db.WithContext(ctx).Where(query, args...).Order("created_at ASC").First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: find account: %w", err)
	}
	return &account, nil
}

// Insert persists a new account. The email is normalised before writing.
func (s *GormStore) Insert(ctx context.Context, account *models.Account) error {
	if account == nil {
		return errors.New("store: nil account")
	}
	account.Email = NormalizeEmail(account.Email)
	normaliseTimes(account)

	if err := s.db.WithContext(ctx).Create(account).Error; err != nil {
		if isUniqueConstraintError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("store: insert account: %w", err)
	}
	return nil
}

// Update applies patch to the account identified by id. With a guard, the
// write only lands while the guarded secret is still held and unexpired.
func (s *GormStore) Update(ctx context.Context, id string, patch Patch, guard *Guard) error {
	if err := patch.validate(); err != nil {
		return err
	}
	if patch.Empty() {
		return nil
	}

	query := s.db.WithContext(ctx).Model(&models.Account{}).Where("id = ?", id)
	if guard != nil {
		code, expires, err := guardColumns(guard.Kind)
		if err != nil {
			return err
		}
		query = query.Where(code+" = ? AND "+expires+" > ?", guard.Value, guard.Now.UTC())
	}

	result := query.Updates(patchColumns(patch))
	if result.Error != nil {
		if isUniqueConstraintError(result.Error) {
			return ErrDuplicate
		}
		return fmt.Errorf("store: update account: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		if guard != nil {
			return ErrStaleSecret
		}
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) ClearExpiredVerificationCodes(ctx context.Context, now time.Time) (int64, error) {
	return s.clearExpired(ctx, colVerificationCode, colVerificationExpires, now)
}

func (s *GormStore) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	return s.clearExpired(ctx, colResetToken, colResetExpires, now)
}

func (s *GormStore) clearExpired(ctx context.Context, secretCol, expiresCol string, now time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Model(&models.Account{}).
		Where(expiresCol+" IS NOT NULL AND "+expiresCol+" <= ?", now.UTC()).
		Updates(map[string]any{secretCol: nil, expiresCol: nil})
	if result.Error != nil {
		return 0, fmt.Errorf("store: clear expired %s: %w", secretCol, result.Error)
	}
	return result.RowsAffected, nil
}

// Ping checks the connection pool can reach the database.
func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func guardColumns(kind SecretKind) (string, string, error) {
	switch kind {
	case SecretVerificationCode:
		return colVerificationCode, colVerificationExpires, nil
	case SecretResetToken:
		return colResetToken, colResetExpires, nil
	default:
		return "", "", fmt.Errorf("store: unsupported guard kind %d", kind)
	}
}

func patchColumns(p Patch) map[string]any {
	values := map[string]any{"updated_at": time.Now().UTC()}
	if p.PasswordHash != nil {
		values["password_hash"] = *p.PasswordHash
	}
	if p.MarkVerified {
		values["is_verified"] = true
	}
	if p.ClearVerification {
		values[colVerificationCode] = nil
		values[colVerificationExpires] = nil
	}
	switch {
	case p.SetReset != nil:
		values[colResetToken] = p.SetReset.Value
		values[colResetExpires] = p.SetReset.ExpiresAt.UTC()
	case p.ClearReset:
		values[colResetToken] = nil
		values[colResetExpires] = nil
	}
	if p.LastLoginAt != nil {
		values["last_login_at"] = p.LastLoginAt.UTC()
	}
	return values
}

func normaliseTimes(account *models.Account) {
	if account.VerificationCodeExpiresAt != nil {
		t := account.VerificationCodeExpiresAt.UTC()
		account.VerificationCodeExpiresAt = &t
	}
	if account.ResetTokenExpiresAt != nil {
		t := account.ResetTokenExpiresAt.UTC()
		account.ResetTokenExpiresAt = &t
	}
	if account.LastLoginAt != nil {
		t := account.LastLoginAt.UTC()
		account.LastLoginAt = &t
	}
}

var (
	_ CredentialStore = (*GormStore)(nil)
	_ SecretSweeper   = (*GormStore)(nil)
	_ Migrator        = (*GormStore)(nil)
)
