package authprovider

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/PromptVision-AI/promptvision-app/internal/common"
	"github.com/PromptVision-AI/promptvision-app/internal/cryptox"
	"github.com/PromptVision-AI/promptvision-app/internal/dbx"
	"github.com/PromptVision-AI/promptvision-app/internal/logging"
	"github.com/PromptVision-AI/promptvision-app/internal/server/auth"
	"github.com/PromptVision-AI/promptvision-app/internal/server/models"
	"github.com/PromptVision-AI/promptvision-app/internal/server/repositories/repomanager"
	"github.com/PromptVision-AI/promptvision-app/internal/server/repositories/users"
)

const minPasswordLength = 6

// Local is a self-hosted Provider: argon2id password hashes in the users
// table, HS256 access tokens and rotating opaque refresh tokens.
type Local struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	logger                       logging.Logger
}

func NewLocal(db *sql.DB, m repomanager.RepositoryManager, secret []byte, accessTTL, refreshTTL time.Duration, logger logging.Logger) *Local {
	return &Local{
		db:                           db,
		repomanager:                  m,
		jwtSecret:                    secret,
		accessTokenValidityDuration:  accessTTL,
		refreshTokenValidityDuration: refreshTTL,
		logger:                       logger.With("module", "local_auth"),
	}
}

func (p *Local) SignUp(ctx context.Context, email, password string) (*Identity, error) {
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: invalid email address", common.ErrRegistration)
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password should be at least %d characters", common.ErrRegistration, minPasswordLength)
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return nil, common.ErrorInternal
	}

	u, err := p.repomanager.Users(p.db).Create(ctx, &models.User{Email: email, PasswordHash: hash})
	if err != nil {
		if errors.Is(err, users.ErrEmailTaken) {
			return nil, fmt.Errorf("%w: user already registered", common.ErrRegistration)
		}
		p.logger.Error(ctx, "create user failed", "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrProvider, err)
	}
	return &Identity{ID: u.ID, Email: u.Email}, nil
}

func (p *Local) SignInWithPassword(ctx context.Context, email, password string) (*Identity, *TokenPair, error) {
	u, err := p.repomanager.Users(p.db).GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil, common.ErrAuthentication
		}
		p.logger.Error(ctx, "load user failed", "error", err)
		return nil, nil, fmt.Errorf("%w: %v", common.ErrProvider, err)
	}

	ok, err := cryptox.VerifyPassword(u.PasswordHash, password)
	if err != nil || !ok {
		return nil, nil, common.ErrAuthentication
	}

	pair, err := p.generateTokenPair(ctx, u.ID, u.Email, p.db)
	if err != nil {
		return nil, nil, err
	}
	return &Identity{ID: u.ID, Email: u.Email}, pair, nil
}

// RefreshSession validates the refresh token, rotates it transactionally
// and returns a fresh pair.
func (p *Local) RefreshSession(ctx context.Context, current TokenPair) (*TokenPair, error) {
	rt, err := p.repomanager.RefreshTokens(p.db).Find(ctx, current.RefreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrRefreshTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", common.ErrProvider, err)
	}
	if rt.Expires.Before(time.Now()) {
		return nil, common.ErrRefreshTokenExpired
	}

	email := ""
	if claims, err := auth.ParseTokenAllowExpired(current.AccessToken, p.jwtSecret); err == nil {
		email = claims.Email
	}

	var pair *TokenPair
	err = dbx.WithTx(ctx, p.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := p.repomanager.RefreshTokens(tx).Delete(ctx, current.RefreshToken); err != nil {
			return fmt.Errorf("error deleting refresh token: %w", err)
		}
		var genErr error
		pair, genErr = p.generateTokenPair(ctx, rt.UserID, email, tx)
		return genErr
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// SignOut revokes every refresh token of the token's owner. Expired access
// tokens are accepted as long as the signature holds.
func (p *Local) SignOut(ctx context.Context, accessToken string) error {
	claims, err := auth.ParseTokenAllowExpired(accessToken, p.jwtSecret)
	if err != nil {
		return err
	}
	return p.repomanager.RefreshTokens(p.db).DeleteForUser(ctx, claims.Subject)
}

func (p *Local) generateTokenPair(ctx context.Context, userID, email string, db dbx.DBTX) (*TokenPair, error) {
	access, err := auth.GenerateToken(userID, email, p.jwtSecret, p.accessTokenValidityDuration)
	if err != nil {
		return nil, common.ErrorInternal
	}
	refresh, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, common.ErrorInternal
	}
	if err := p.repomanager.RefreshTokens(db).Create(ctx, userID, refresh, p.refreshTokenValidityDuration); err != nil {
		p.logger.Error(ctx, "store refresh token failed", "error", err)
		return nil, common.ErrorInternal
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
