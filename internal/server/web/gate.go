package web

import (
	"context"
	"net/http"
	"strings"

	"github.com/PromptVision-AI/promptvision-app/internal/server/session"
)

var publicPrefixes = []string{"/login", "/register", "/logout", "/static/", "/healthz"}

type accountKey struct{}

// accountID returns the account id the gate put into ctx.
func accountID(ctx context.Context) string {
	id, _ := ctx.Value(accountKey{}).(string)
	return id
}

func isPublic(path string) bool {
	if path == "/" {
		return true
	}
	for _, p := range publicPrefixes {
		if path == p || strings.HasPrefix(path, p+"/") || (strings.HasSuffix(p, "/") && strings.HasPrefix(path, p)) {
			return true
		}
	}
	return false
}

func isAdmin(path string) bool {
	return path == "/admin" || strings.HasPrefix(path, "/admin/")
}

// accessGate lets public paths through, bounces admin paths to the landing
// page and requires a valid access token everywhere else. A failed check
// signs the session out before redirecting to /login.
func (s *Server) accessGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if isAdmin(path) {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
		if isPublic(path) {
			next.ServeHTTP(w, r)
			return
		}

		st := session.FromContext(r.Context())
		if !st.Authenticated() || !s.identity.ValidateToken(r.Context(), st) {
			s.identity.SignOut(r.Context(), st)
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}

		ctx := context.WithValue(r.Context(), accountKey{}, st.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// publicOnly keeps signed-in users away from the login and register forms.
func (s *Server) publicOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if session.FromContext(r.Context()).Authenticated() {
			http.Redirect(w, r, "/conversations", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}
