package models

import "time"

// Session is the server-side half of a browser session, keyed by the opaque
// cookie value.
type Session struct {
	ID           string
	UserID       *string
	UserEmail    *string
	AccessToken  *string
	RefreshToken *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	ExpiresAt    time.Time
}

func (s *Session) RecordID() string      { return s.ID }
func (s *Session) SetRecordID(id string) { s.ID = id }

func (s *Session) Stamp(now time.Time) {
	stamp(&s.CreatedAt, now)
	stamp(&s.UpdatedAt, now)
}

func (s *Session) Columns() []string {
	return []string{"id", "user_id", "user_email", "access_token", "refresh_token", "created_at", "updated_at", "expires_at"}
}

func (s *Session) Values() []any {
	return []any{s.ID, s.UserID, s.UserEmail, s.AccessToken, s.RefreshToken, s.CreatedAt, s.UpdatedAt, s.ExpiresAt}
}

func (s *Session) ScanDest() []any {
	return []any{&s.ID, &s.UserID, &s.UserEmail, &s.AccessToken, &s.RefreshToken, &s.CreatedAt, &s.UpdatedAt, &s.ExpiresAt}
}
