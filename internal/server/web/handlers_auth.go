package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/PromptVision-AI/promptvision-app/internal/common"
	"github.com/PromptVision-AI/promptvision-app/internal/server/services"
	"github.com/PromptVision-AI/promptvision-app/internal/server/session"
)

func errorNotice(msg string) services.Notice {
	return services.Notice{Level: services.LevelError, Message: msg}
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "home.html", "", nil)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		s.render(w, r, http.StatusOK, "login.html", "Log in", map[string]any{"Email": ""})
		return
	}

	email := strings.TrimSpace(strings.ToLower(r.FormValue("email")))
	password := r.FormValue("password")
	form := map[string]any{"Email": email}

	if email == "" || password == "" {
		s.render(w, r, http.StatusOK, "login.html", "Log in", form, errorNotice("Email and password are required."))
		return
	}

	id, pair, err := s.identity.SignIn(r.Context(), email, password)
	if err != nil {
		msg := "Sign in is temporarily unavailable. Please try again."
		if errors.Is(err, common.ErrAuthentication) {
			msg = "Invalid email or password."
		}
		s.logger.Info(r.Context(), "sign in failed", "error", err)
		s.render(w, r, http.StatusOK, "login.html", "Log in", form, errorNotice(msg))
		return
	}

	st := session.FromContext(r.Context())
	st.SetUser(id.ID, id.Email)
	st.SetTokens(pair.AccessToken, pair.RefreshToken)
	if _, err := s.sessions.Renew(r.Context(), w, st); err != nil {
		s.logger.Error(r.Context(), "session save failed", "error", err)
		s.render(w, r, http.StatusOK, "login.html", "Log in", form, errorNotice("Could not start your session. Please try again."))
		return
	}

	http.Redirect(w, r, "/conversations", http.StatusSeeOther)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		s.render(w, r, http.StatusOK, "register.html", "Register", map[string]any{"Email": ""})
		return
	}

	email := strings.TrimSpace(strings.ToLower(r.FormValue("email")))
	p1, p2 := r.FormValue("password1"), r.FormValue("password2")
	form := map[string]any{"Email": email}

	switch {
	case email == "" || p1 == "":
		s.render(w, r, http.StatusOK, "register.html", "Register", form, errorNotice("Email and password are required."))
		return
	case p1 != p2:
		s.render(w, r, http.StatusOK, "register.html", "Register", form, errorNotice("Passwords do not match."))
		return
	}

	if _, err := s.identity.SignUp(r.Context(), email, p1); err != nil {
		s.logger.Info(r.Context(), "sign up failed", "error", err)
		s.render(w, r, http.StatusOK, "register.html", "Register", form,
			errorNotice("Registration failed. Check your email and password and try again."))
		return
	}

	redirectWith(w, r, "/login", services.Notice{
		Level:   services.LevelSuccess,
		Message: "Registration successful. Please log in.",
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.identity.SignOut(r.Context(), session.FromContext(r.Context()))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
