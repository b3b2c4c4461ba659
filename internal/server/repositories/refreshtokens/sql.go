package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/PromptVision-AI/promptvision-app/internal/common"
	"github.com/PromptVision-AI/promptvision-app/internal/dbx"
	"github.com/PromptVision-AI/promptvision-app/internal/server/models"
)

// SQLRepository implements Repository over dbx.DBTX, so it can run inside
// a transaction.
type SQLRepository struct {
	db      dbx.DBTX
	dialect dbx.Dialect
}

func NewSQLRepository(db dbx.DBTX, dialect dbx.Dialect) *SQLRepository {
	return &SQLRepository{db: db, dialect: dialect}
}

// Create stores token for userID, valid until now+validity.
func (r *SQLRepository) Create(ctx context.Context, userID string, token string, validity time.Duration) error {
	query := r.dialect.Rebind(`
		INSERT INTO refresh_tokens (token, user_id, expires_at)
		VALUES (?, ?, ?)
	`)
	if _, err := r.db.ExecContext(ctx, query, token, userID, time.Now().UTC().Add(validity)); err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

// Find returns the row for token, or common.ErrorNotFound.
func (r *SQLRepository) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	query := r.dialect.Rebind(`
		SELECT token, user_id, expires_at
		FROM refresh_tokens
		WHERE token = ?
	`)
	rt := &models.RefreshToken{}
	if err := r.db.QueryRowContext(ctx, query, token).Scan(&rt.Token, &rt.UserID, &rt.Expires); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return rt, nil
}

func (r *SQLRepository) Delete(ctx context.Context, token string) error {
	query := r.dialect.Rebind(`DELETE FROM refresh_tokens WHERE token = ?`)
	if _, err := r.db.ExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// DeleteForUser revokes every refresh token of userID.
func (r *SQLRepository) DeleteForUser(ctx context.Context, userID string) error {
	query := r.dialect.Rebind(`DELETE FROM refresh_tokens WHERE user_id = ?`)
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
