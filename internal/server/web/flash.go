package web

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/PromptVision-AI/promptvision-app/internal/server/services"
)

const flashCookie = "promptvision_flash"

// setFlash stores notices for the next rendered page. Call it once, before
// the redirect.
func setFlash(w http.ResponseWriter, notices ...services.Notice) {
	if len(notices) == 0 {
		return
	}
	b, err := json.Marshal(notices)
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    base64.RawURLEncoding.EncodeToString(b),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash returns and clears the pending notices.
func popFlash(w http.ResponseWriter, r *http.Request) []services.Notice {
	c, err := r.Cookie(flashCookie)
	if err != nil {
		return nil
	}
	http.SetCookie(w, &http.Cookie{Name: flashCookie, Path: "/", MaxAge: -1})

	b, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil
	}
	var notices []services.Notice
	if err := json.Unmarshal(b, &notices); err != nil {
		return nil
	}
	return notices
}

func redirectWith(w http.ResponseWriter, r *http.Request, to string, notices ...services.Notice) {
	setFlash(w, notices...)
	http.Redirect(w, r, to, http.StatusSeeOther)
}
