// Package session keeps the server-side browser session: a typed State
// persisted in the sessions table and addressed by an opaque cookie.
package session

import (
	"context"
	"time"
)

// Reserved session keys. Each maps to one State field and one sessions
// column.
const (
	KeyUserID       = "user_id"
	KeyUserEmail    = "user_email"
	KeyAccessToken  = "supabase_access_token"
	KeyRefreshToken = "supabase_refresh_token"
)

// State is one browser session. The zero value of the user fields means
// anonymous.
type State struct {
	ID           string
	UserID       string
	UserEmail    string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Authenticated reports whether a user is bound to the session.
func (s *State) Authenticated() bool {
	return s != nil && s.UserID != ""
}

func (s *State) SetUser(id, email string) {
	s.UserID = id
	s.UserEmail = email
}

func (s *State) SetTokens(accessToken, refreshToken string) {
	s.AccessToken = accessToken
	s.RefreshToken = refreshToken
}

// Empty reports whether neither a user nor a token is held.
func (s *State) Empty() bool {
	return s.UserID == "" && s.UserEmail == "" && s.AccessToken == "" && s.RefreshToken == ""
}

// Clear drops the user and both tokens together.
func (s *State) Clear() {
	s.UserID = ""
	s.UserEmail = ""
	s.AccessToken = ""
	s.RefreshToken = ""
}

type ctxKey struct{}

func NewContext(ctx context.Context, s *State) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the request's session, or nil outside Middleware.
func FromContext(ctx context.Context) *State {
	s, _ := ctx.Value(ctxKey{}).(*State)
	return s
}
