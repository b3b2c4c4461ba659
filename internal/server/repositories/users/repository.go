// Package users stores the credential rows of the local auth provider.
package users

import (
	"context"

	"github.com/PromptVision-AI/promptvision-app/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}
