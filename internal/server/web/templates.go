package web

import (
	"bytes"
	"embed"
	"encoding/json"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/PromptVision-AI/promptvision-app/internal/server/services"
	"github.com/PromptVision-AI/promptvision-app/internal/server/session"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

func parseTemplates() *template.Template {
	funcMap := template.FuncMap{
		"formatTime": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Local().Format("2006-01-02 15:04")
		},
		"toJSON": func(v any) string {
			b, err := json.MarshalIndent(v, "", "  ")
			if err != nil {
				return ""
			}
			return string(b)
		},
		"isString": func(v any) bool {
			_, ok := v.(string)
			return ok
		},
		"upper": strings.ToUpper,
	}
	return template.Must(template.New("").Funcs(funcMap).ParseFS(templateFS, "templates/*.html"))
}

// page is the data every template receives.
type page struct {
	Title         string
	Authenticated bool
	UserEmail     string
	Notices       []services.Notice
	Data          map[string]any
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name, title string, data map[string]any, inline ...services.Notice) {
	st := session.FromContext(r.Context())
	p := page{
		Title:         title,
		Authenticated: st.Authenticated(),
		Notices:       append(popFlash(w, r), inline...),
		Data:          data,
	}
	if st != nil {
		p.UserEmail = st.UserEmail
	}

	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, name, p); err != nil {
		s.logger.Error(r.Context(), "template error", "template", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) staticHandler() http.Handler {
	if s.staticDir != "" {
		return http.FileServer(http.Dir(s.staticDir))
	}
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}
