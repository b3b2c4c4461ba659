package auth

import (
	"fmt"
	"time"

	"github.com/PromptVision-AI/promptvision-app/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// UnverifiedExpiry reads the exp claim of tokenString WITHOUT checking the
// signature.
//
// The only tokens passed here were issued by the auth provider at sign-in
// or refresh and are read back from the server-side session store, which
// clients cannot write. Within that boundary the exp claim is trusted to
// decide whether the token is still usable or needs a refresh. Never call
// it on a token taken from a request.
func UnverifiedExpiry(tokenString string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
	if exp == nil {
		return time.Time{}, fmt.Errorf("%w: no exp claim", common.ErrInvalidToken)
	}
	return exp.Time, nil
}
