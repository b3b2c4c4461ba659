package session

import (
	"context"
	"net/http"

	"github.com/PromptVision-AI/promptvision-app/internal/logging"
)

// Manager binds a Store to the session cookie.
type Manager struct {
	store      *Store
	cookieName string
	secure     bool
	logger     logging.Logger
}

func NewManager(store *Store, cookieName string, secure bool, logger logging.Logger) *Manager {
	return &Manager{store: store, cookieName: cookieName, secure: secure, logger: logger.With("module", "session")}
}

func (m *Manager) Store() *Store { return m.store }

// Middleware loads the State named by the cookie, or starts a new one, and
// puts it into the request context. New sessions are written on first Save.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var st *State
		if c, err := r.Cookie(m.cookieName); err == nil {
			st = m.store.Load(r.Context(), c.Value)
		}
		if st == nil {
			st = m.store.New()
			m.logger.Debug(r.Context(), "new session", "path", r.URL.Path)
		}

		m.setCookie(w, st)

		next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), st)))
	})
}

// Renew moves the user and tokens of st to a session with a fresh id,
// removes the old row and points the cookie at the new one. Call it
// whenever the privilege level of a session changes.
func (m *Manager) Renew(ctx context.Context, w http.ResponseWriter, st *State) (*State, error) {
	next := m.store.New()
	next.SetUser(st.UserID, st.UserEmail)
	next.SetTokens(st.AccessToken, st.RefreshToken)
	if err := m.store.Save(ctx, next); err != nil {
		return nil, err
	}
	m.store.Delete(ctx, st.ID)
	m.setCookie(w, next)
	return next, nil
}

func (m *Manager) setCookie(w http.ResponseWriter, st *State) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    st.ID,
		Path:     "/",
		Expires:  st.ExpiresAt,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
