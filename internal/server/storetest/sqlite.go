// Package storetest provides a migrated in-memory SQLite database for
// package tests.
package storetest

import (
	"context"
	"database/sql"
	"io/fs"
	"testing"

	"github.com/PromptVision-AI/promptvision-app/internal/dbx"
	"github.com/PromptVision-AI/promptvision-app/internal/server/migrations"
	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"
)

// NewSQLite opens a private in-memory database with the full schema applied.
// It is closed when the test ends.
func NewSQLite(t testing.TB) *sql.DB {
	t.Helper()

	db, err := dbx.Open(dbx.SQLite, "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	sub, err := fs.Sub(migrations.Migrations, string(dbx.SQLite))
	require.NoError(t, err)

	p, err := goose.NewProvider(goose.DialectSQLite3, db, sub)
	require.NoError(t, err)

	_, err = p.Up(context.Background())
	require.NoError(t, err)

	return db
}
