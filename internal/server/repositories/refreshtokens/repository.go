// Package refreshtokens stores the opaque refresh tokens issued by the local
// auth provider.
package refreshtokens

import (
	"context"
	"time"

	"github.com/PromptVision-AI/promptvision-app/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, userID string, token string, validity time.Duration) error
	Find(ctx context.Context, token string) (*models.RefreshToken, error)
	Delete(ctx context.Context, token string) error
	DeleteForUser(ctx context.Context, userID string) error
}
