package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Account is a registered user's persisted identity and credential state.
type Account struct {
	ID           string `gorm:"primaryKey;size:36" bson:"_id" json:"id"`
	Email        string `gorm:"uniqueIndex;size:255;not null" bson:"email" json:"email"`
	DisplayName  string `gorm:"size:255;not null" bson:"display_name" json:"name"`
	PasswordHash string `gorm:"not null" bson:"password_hash" json:"-"`

	IsVerified                bool       `gorm:"default:false" bson:"is_verified" json:"is_verified"`
	VerificationCode          *string    `gorm:"index;size:16" bson:"verification_code,omitempty" json:"-"`
	VerificationCodeExpiresAt *time.Time `bson:"verification_code_expires_at,omitempty" json:"-"`

	ResetToken          *string    `gorm:"uniqueIndex;size:64" bson:"reset_token,omitempty" json:"-"`
	ResetTokenExpiresAt *time.Time `bson:"reset_token_expires_at,omitempty" json:"-"`

	LastLoginAt *time.Time `bson:"last_login_at,omitempty" json:"last_login_at"`
	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at" json:"updated_at"`
}

// BeforeCreate ensures a UUID is present before persisting.
func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// HasVerificationCode reports whether code is currently held and unexpired.
func (a *Account) HasVerificationCode(code string, now time.Time) bool {
	return secretMatches(a.VerificationCode, a.VerificationCodeExpiresAt, code, now)
}

// HasResetToken reports whether token is currently held and unexpired.
func (a *Account) HasResetToken(token string, now time.Time) bool {
	return secretMatches(a.ResetToken, a.ResetTokenExpiresAt, token, now)
}

func secretMatches(held *string, expiresAt *time.Time, value string, now time.Time) bool {
	if held == nil || expiresAt == nil || value == "" {
		return false
	}
	return *held == value && expiresAt.After(now)
}

// PublicAccount is the representation of an Account that may cross the
// service boundary. It carries no password hash and no one-time secrets.
type PublicAccount struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	IsVerified  bool       `json:"is_verified"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Public returns the sanitized view of the account.
func (a *Account) Public() PublicAccount {
	if a == nil {
		return PublicAccount{}
	}
	return PublicAccount{
		ID:          a.ID,
		Email:       a.Email,
		Name:        a.DisplayName,
		IsVerified:  a.IsVerified,
		LastLoginAt: a.LastLoginAt,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}
