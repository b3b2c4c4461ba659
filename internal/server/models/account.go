package models

import "time"

// Account mirrors an auth provider user. The provider tokens are written on
// sign-in and refresh and cleared on sign-out.
type Account struct {
	ID           string
	Email        string
	AccessToken  *string
	RefreshToken *string
	CreatedAt    time.Time
}

func (a *Account) RecordID() string      { return a.ID }
func (a *Account) SetRecordID(id string) { a.ID = id }
func (a *Account) Stamp(now time.Time)   { stamp(&a.CreatedAt, now) }

func (a *Account) Columns() []string {
	return []string{"id", "email", "supabase_access_token", "supabase_refresh_token", "created_at"}
}

func (a *Account) Values() []any {
	return []any{a.ID, a.Email, a.AccessToken, a.RefreshToken, a.CreatedAt}
}

func (a *Account) ScanDest() []any {
	return []any{&a.ID, &a.Email, &a.AccessToken, &a.RefreshToken, &a.CreatedAt}
}
