package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/authflow/internal/database"
)

// Option adjusts the database returned by MustOpenTestDB.
type Option func(t *testing.T, db *gorm.DB)

// WithAutoMigrate creates the account schema.
func WithAutoMigrate() Option {
	return func(t *testing.T, db *gorm.DB) {
		require.NoError(t, database.Migrate(db))
	}
}

// WithAccounts migrates and inserts rows before the test starts.
func WithAccounts(rows ...any) Option {
	return func(t *testing.T, db *gorm.DB) {
		require.NoError(t, database.Migrate(db))
		for _, row := range rows {
			require.NoError(t, db.Create(row).Error)
		}
	}
}

// MustOpenTestDB opens a private in-memory SQLite database closed at test end.
func MustOpenTestDB(t *testing.T, opts ...Option) *gorm.DB {
	t.Helper()

	db, err := database.Open(database.Config{Driver: "sqlite"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	for _, opt := range opts {
		opt(t, db)
	}
	return db
}
