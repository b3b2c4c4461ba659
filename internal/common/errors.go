// Package common defines sentinel errors and small helpers shared by the
// PromptVision server packages. Callers should use errors.Is to match the
// error values.
package common

import "errors"

var (
	// Record-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Identity errors surfaced to the user as form notices.
	ErrRegistration   = errors.New("registration failed")
	ErrAuthentication = errors.New("invalid credentials")

	// Token errors.
	ErrInvalidToken        = errors.New("invalid token")
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")

	// Remote collaborators.
	ErrProvider = errors.New("auth provider error")
	ErrPipeline = errors.New("ai pipeline error")
)
