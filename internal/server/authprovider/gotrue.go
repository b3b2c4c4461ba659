package authprovider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/PromptVision-AI/promptvision-app/internal/common"
	"github.com/PromptVision-AI/promptvision-app/internal/logging"
	"github.com/PromptVision-AI/promptvision-app/internal/netx"
)

// GoTrue is a Provider backed by the GoTrue HTTP API that Supabase exposes
// under /auth/v1.
type GoTrue struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  logging.Logger
}

func NewGoTrue(baseURL, apiKey string, client *http.Client, logger logging.Logger) *GoTrue {
	if client == nil {
		client = http.DefaultClient
	}
	return &GoTrue{
		baseURL: strings.TrimRight(baseURL, "/") + "/auth/v1",
		apiKey:  apiKey,
		client:  client,
		logger:  logger.With("module", "gotrue"),
	}
}

type gotrueUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type gotrueSession struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	User         *gotrueUser `json:"user"`
}

// signUpResponse covers both shapes GoTrue returns: a bare user when email
// confirmation is on, a session with a nested user when it is off.
type signUpResponse struct {
	gotrueUser
	User *gotrueUser `json:"user"`
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (g *GoTrue) SignUp(ctx context.Context, email, password string) (*Identity, error) {
	var out signUpResponse
	err := netx.DoJSON(ctx, g.client, http.MethodPost, g.baseURL+"/signup", g.headers(""), credentials{email, password}, &out)
	if err != nil {
		return nil, g.mapError(ctx, "sign up", err, common.ErrRegistration)
	}

	u := out.gotrueUser
	if out.User != nil {
		u = *out.User
	}
	if u.ID == "" {
		return nil, fmt.Errorf("%w: provider returned no user", common.ErrRegistration)
	}
	return &Identity{ID: u.ID, Email: u.Email}, nil
}

func (g *GoTrue) SignInWithPassword(ctx context.Context, email, password string) (*Identity, *TokenPair, error) {
	var out gotrueSession
	err := netx.DoJSON(ctx, g.client, http.MethodPost, g.baseURL+"/token?grant_type=password", g.headers(""), credentials{email, password}, &out)
	if err != nil {
		return nil, nil, g.mapError(ctx, "sign in", err, common.ErrAuthentication)
	}
	if out.User == nil || out.AccessToken == "" {
		return nil, nil, fmt.Errorf("%w: provider returned no session", common.ErrAuthentication)
	}
	return &Identity{ID: out.User.ID, Email: out.User.Email},
		&TokenPair{AccessToken: out.AccessToken, RefreshToken: out.RefreshToken}, nil
}

func (g *GoTrue) RefreshSession(ctx context.Context, current TokenPair) (*TokenPair, error) {
	if current.RefreshToken == "" {
		return nil, common.ErrRefreshTokenExpired
	}

	body := map[string]string{"refresh_token": current.RefreshToken}
	var out gotrueSession
	err := netx.DoJSON(ctx, g.client, http.MethodPost, g.baseURL+"/token?grant_type=refresh_token", g.headers(current.AccessToken), body, &out)
	if err != nil {
		return nil, g.mapError(ctx, "refresh", err, common.ErrRefreshTokenExpired)
	}
	if out.AccessToken == "" || out.RefreshToken == "" {
		return nil, fmt.Errorf("%w: provider returned no session", common.ErrRefreshTokenExpired)
	}
	return &TokenPair{AccessToken: out.AccessToken, RefreshToken: out.RefreshToken}, nil
}

func (g *GoTrue) SignOut(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}
	err := netx.DoJSON(ctx, g.client, http.MethodPost, g.baseURL+"/logout", g.headers(accessToken), nil, nil)
	if err != nil {
		return g.mapError(ctx, "sign out", err, common.ErrorUnauthorized)
	}
	return nil
}

// headers authenticates with the project key, or with the user's access
// token for user-scoped calls.
func (g *GoTrue) headers(userToken string) map[string]string {
	bearer := g.apiKey
	if userToken != "" {
		bearer = userToken
	}
	return map[string]string{
		"apikey":        g.apiKey,
		"Authorization": "Bearer " + bearer,
	}
}

// mapError turns a 4xx into rejected and anything else into ErrProvider.
func (g *GoTrue) mapError(ctx context.Context, op string, err error, rejected error) error {
	var se *netx.StatusError
	if errors.As(err, &se) && se.StatusCode >= 400 && se.StatusCode < 500 {
		g.logger.Info(ctx, "provider rejected request", "op", op, "status", se.StatusCode)
		return fmt.Errorf("%w: %s", rejected, se.Body)
	}
	g.logger.Error(ctx, "provider call failed", "op", op, "error", err)
	return fmt.Errorf("%w: %s: %v", common.ErrProvider, op, err)
}
