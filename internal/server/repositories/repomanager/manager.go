// Package repomanager vends the repositories of the PromptVision server for
// the configured SQL dialect and runs the embedded goose migrations.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/PromptVision-AI/promptvision-app/internal/dbx"
	"github.com/PromptVision-AI/promptvision-app/internal/server/models"
	"github.com/PromptVision-AI/promptvision-app/internal/server/recordstore"
	"github.com/PromptVision-AI/promptvision-app/internal/server/repositories/refreshtokens"
	"github.com/PromptVision-AI/promptvision-app/internal/server/repositories/users"
)

type (
	AccountTable      = recordstore.Table[models.Account, *models.Account]
	ConversationTable = recordstore.Table[models.Conversation, *models.Conversation]
	PromptTable       = recordstore.Table[models.Prompt, *models.Prompt]
	FileTable         = recordstore.Table[models.File, *models.File]
	SessionTable      = recordstore.Table[models.Session, *models.Session]
)

type RepositoryManager interface {
	Dialect() dbx.Dialect
	RunMigrations(context.Context, *sql.DB) error

	Accounts(db dbx.DBTX) *AccountTable
	Conversations(db dbx.DBTX) *ConversationTable
	Prompts(db dbx.DBTX) *PromptTable
	Files(db dbx.DBTX) *FileTable
	Sessions(db dbx.DBTX) *SessionTable

	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
}
