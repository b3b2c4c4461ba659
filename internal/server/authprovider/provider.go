// Package authprovider is the boundary to the identity provider. Two
// implementations exist: GoTrue talks to a Supabase/GoTrue compatible auth
// server over HTTP, Local keeps credentials in our own database.
package authprovider

import "context"

// Identity is the provider's view of a user.
type Identity struct {
	ID    string
	Email string
}

// TokenPair is the access/refresh token pair of a signed-in session.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Provider is implemented by every identity backend.
//
// Errors are wrapped around the common sentinels: ErrRegistration for a
// rejected sign-up, ErrAuthentication for bad credentials,
// ErrRefreshTokenExpired for a refresh the provider refuses and ErrProvider
// for transport failures.
type Provider interface {
	SignUp(ctx context.Context, email, password string) (*Identity, error)
	SignInWithPassword(ctx context.Context, email, password string) (*Identity, *TokenPair, error)

	// RefreshSession exchanges the stored pair for a new one. The provider
	// client is bound to the current pair before refreshing.
	RefreshSession(ctx context.Context, current TokenPair) (*TokenPair, error)

	SignOut(ctx context.Context, accessToken string) error
}
