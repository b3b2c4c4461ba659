package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/PromptVision-AI/promptvision-app/internal/dbx"
	"github.com/PromptVision-AI/promptvision-app/internal/logging"
	"github.com/PromptVision-AI/promptvision-app/internal/server/migrations"
	"github.com/PromptVision-AI/promptvision-app/internal/server/models"
	"github.com/PromptVision-AI/promptvision-app/internal/server/recordstore"
	"github.com/PromptVision-AI/promptvision-app/internal/server/repositories/refreshtokens"
	"github.com/PromptVision-AI/promptvision-app/internal/server/repositories/users"
	"github.com/pressly/goose/v3"
)

// SQLRepositoryManager builds repositories for one dialect.
type SQLRepositoryManager struct {
	dialect dbx.Dialect
	logger  logging.Logger
}

// NewRepositoryManager constructs a RepositoryManager for dialect.
func NewRepositoryManager(dialect dbx.Dialect, logger logging.Logger) RepositoryManager {
	return &SQLRepositoryManager{dialect: dialect, logger: logger}
}

func (m *SQLRepositoryManager) Dialect() dbx.Dialect { return m.dialect }

func (m *SQLRepositoryManager) Accounts(db dbx.DBTX) *AccountTable {
	return recordstore.NewTable[models.Account](db, m.dialect, "accounts", m.logger)
}

func (m *SQLRepositoryManager) Conversations(db dbx.DBTX) *ConversationTable {
	return recordstore.NewTable[models.Conversation](db, m.dialect, "conversations", m.logger)
}

func (m *SQLRepositoryManager) Prompts(db dbx.DBTX) *PromptTable {
	return recordstore.NewTable[models.Prompt](db, m.dialect, "prompts", m.logger)
}

func (m *SQLRepositoryManager) Files(db dbx.DBTX) *FileTable {
	return recordstore.NewTable[models.File](db, m.dialect, "files", m.logger)
}

func (m *SQLRepositoryManager) Sessions(db dbx.DBTX) *SessionTable {
	return recordstore.NewTable[models.Session](db, m.dialect, "sessions", m.logger)
}

func (m *SQLRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewSQLRepository(db, m.dialect)
}

func (m *SQLRepositoryManager) RefreshTokens(db dbx.DBTX) refreshtokens.Repository {
	return refreshtokens.NewSQLRepository(db, m.dialect)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded migrations of the manager's dialect.
func (m *SQLRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect(m.dialect.GooseDialect()); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := gooseUpContext(ctx, db, string(m.dialect)); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
