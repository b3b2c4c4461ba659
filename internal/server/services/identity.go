// Package services contains the server-side business logic: identity and
// session validation, the conversation orchestrator and file management.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PromptVision-AI/promptvision-app/internal/common"
	"github.com/PromptVision-AI/promptvision-app/internal/dbx"
	"github.com/PromptVision-AI/promptvision-app/internal/logging"
	"github.com/PromptVision-AI/promptvision-app/internal/server/auth"
	"github.com/PromptVision-AI/promptvision-app/internal/server/authprovider"
	"github.com/PromptVision-AI/promptvision-app/internal/server/models"
	"github.com/PromptVision-AI/promptvision-app/internal/server/recordstore"
	"github.com/PromptVision-AI/promptvision-app/internal/server/repositories/repomanager"
	"github.com/PromptVision-AI/promptvision-app/internal/server/session"
)

// RefreshThreshold is the remaining access token lifetime below which
// ValidateToken refreshes the pair.
const RefreshThreshold = 300 * time.Second

// SessionSaver persists a session after its tokens changed.
type SessionSaver interface {
	Save(ctx context.Context, st *session.State) error
}

// IdentityService drives the auth provider and keeps the session and the
// account row in step with it.
type IdentityService struct {
	db          dbx.DBTX
	repomanager repomanager.RepositoryManager
	provider    authprovider.Provider
	sessions    SessionSaver
	logger      logging.Logger

	now func() time.Time
}

func NewIdentityService(db dbx.DBTX, m repomanager.RepositoryManager, provider authprovider.Provider, sessions SessionSaver, logger logging.Logger) *IdentityService {
	return &IdentityService{
		db:          db,
		repomanager: m,
		provider:    provider,
		sessions:    sessions,
		logger:      logger.With("module", "identity"),
		now:         time.Now,
	}
}

// SignUp registers the user with the provider and mirrors the account row.
// A failed mirror is logged only.
func (s *IdentityService) SignUp(ctx context.Context, email, password string) (*authprovider.Identity, error) {
	id, err := s.provider.SignUp(ctx, email, password)
	if err != nil {
		if errors.Is(err, common.ErrRegistration) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", common.ErrRegistration, err)
	}

	if s.repomanager.Accounts(s.db).Insert(ctx, &models.Account{ID: id.ID, Email: id.Email}) == nil {
		s.logger.Warn(ctx, "account mirror failed", "user_id", id.ID)
	}
	return id, nil
}

// SignIn authenticates with the provider and stores the token pair on the
// account, creating the row when it is missing.
func (s *IdentityService) SignIn(ctx context.Context, email, password string) (*authprovider.Identity, *authprovider.TokenPair, error) {
	id, pair, err := s.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		if errors.Is(err, common.ErrAuthentication) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("%w: %v", common.ErrAuthentication, err)
	}

	if !s.mirrorTokens(ctx, id.ID, pair.AccessToken, pair.RefreshToken) {
		acct := &models.Account{ID: id.ID, Email: id.Email, AccessToken: &pair.AccessToken, RefreshToken: &pair.RefreshToken}
		if s.repomanager.Accounts(s.db).Insert(ctx, acct) == nil {
			s.logger.Warn(ctx, "account token write failed", "user_id", id.ID)
		}
	}
	return id, pair, nil
}

// SignOut clears the account tokens and signs out at the provider, both
// best effort, then clears and saves the session. A session that holds
// nothing is left unwritten.
func (s *IdentityService) SignOut(ctx context.Context, st *session.State) {
	if st == nil || st.Empty() {
		return
	}

	if st.UserID != "" {
		s.repomanager.Accounts(s.db).UpdateByID(ctx, st.UserID, recordstore.Fields{
			"supabase_access_token":  nil,
			"supabase_refresh_token": nil,
		})
	}
	if st.AccessToken != "" {
		if err := s.provider.SignOut(ctx, st.AccessToken); err != nil {
			s.logger.Warn(ctx, "provider sign out failed", "error", err)
		}
	}

	st.Clear()
	if err := s.sessions.Save(ctx, st); err != nil {
		s.logger.Error(ctx, "session save failed", "error", err)
	}
}

// ValidateToken reports whether the session holds a usable access token.
// The exp claim is read without verifying the signature; the provider
// remains the authority on every call that uses the token. At most one
// refresh is attempted.
func (s *IdentityService) ValidateToken(ctx context.Context, st *session.State) bool {
	if st == nil || st.AccessToken == "" {
		return false
	}

	exp, err := auth.UnverifiedExpiry(st.AccessToken)
	if err != nil {
		s.logger.Debug(ctx, "access token not decodable", "error", err)
		return false
	}
	if exp.Sub(s.now()) > RefreshThreshold {
		return true
	}

	pair, err := s.provider.RefreshSession(ctx, authprovider.TokenPair{
		AccessToken:  st.AccessToken,
		RefreshToken: st.RefreshToken,
	})
	if err != nil {
		s.logger.Info(ctx, "token refresh failed", "user_id", st.UserID, "error", err)
		return false
	}

	st.SetTokens(pair.AccessToken, pair.RefreshToken)
	if err := s.sessions.Save(ctx, st); err != nil {
		s.logger.Error(ctx, "session save failed", "error", err)
	}
	if st.UserID != "" && !s.mirrorTokens(ctx, st.UserID, pair.AccessToken, pair.RefreshToken) {
		s.logger.Warn(ctx, "account token write failed", "user_id", st.UserID)
	}
	return true
}

func (s *IdentityService) mirrorTokens(ctx context.Context, accountID, access, refresh string) bool {
	return s.repomanager.Accounts(s.db).UpdateByID(ctx, accountID, recordstore.Fields{
		"supabase_access_token":  access,
		"supabase_refresh_token": refresh,
	}) != nil
}
