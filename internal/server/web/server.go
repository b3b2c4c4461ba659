// Package web is the server-rendered HTML front end: routes, the access
// gate, flash notices and templates.
package web

import (
	"context"
	"html/template"
	"net/http"

	"github.com/PromptVision-AI/promptvision-app/internal/logging"
	"github.com/PromptVision-AI/promptvision-app/internal/server/authprovider"
	"github.com/PromptVision-AI/promptvision-app/internal/server/media"
	"github.com/PromptVision-AI/promptvision-app/internal/server/models"
	"github.com/PromptVision-AI/promptvision-app/internal/server/services"
	"github.com/PromptVision-AI/promptvision-app/internal/server/session"
)

type Identity interface {
	SignUp(ctx context.Context, email, password string) (*authprovider.Identity, error)
	SignIn(ctx context.Context, email, password string) (*authprovider.Identity, *authprovider.TokenPair, error)
	SignOut(ctx context.Context, st *session.State)
	ValidateToken(ctx context.Context, st *session.State) bool
}

type Conversations interface {
	Owns(ctx context.Context, conversationID, accountID string) bool
	SendPrompt(ctx context.Context, in services.SendPromptInput) (*services.SendPromptResult, error)
	LoadConversationDetail(ctx context.Context, conversationID, accountID string) (*services.ConversationDetail, error)
	ListConversations(ctx context.Context, accountID string) []*models.Conversation
}

type Files interface {
	Upload(ctx context.Context, accountID string, in services.FileUpload) services.Notice
	Delete(ctx context.Context, accountID, fileID string) services.Notice
	ListUserFiles(ctx context.Context, accountID string) []*models.File
	ListFolder(ctx context.Context, folder, resourceType string) []media.Result
}

// Deps are the collaborators of Server.
type Deps struct {
	Identity      Identity
	Conversations Conversations
	Files         Files
	Sessions      *session.Manager
	Logger        logging.Logger

	// StaticDir overrides the embedded static assets when set.
	StaticDir string
	// MaxUploadBytes bounds multipart bodies; 0 means 32 MiB.
	MaxUploadBytes int64
}

type Server struct {
	identity      Identity
	conversations Conversations
	files         Files
	sessions      *session.Manager
	logger        logging.Logger
	tmpl          *template.Template
	staticDir     string
	maxUpload     int64
}

func NewServer(d Deps) *Server {
	maxUpload := d.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 32 << 20
	}
	return &Server{
		identity:      d.Identity,
		conversations: d.Conversations,
		files:         d.Files,
		sessions:      d.Sessions,
		logger:        d.Logger.With("module", "web"),
		tmpl:          parseTemplates(),
		staticDir:     d.StaticDir,
		maxUpload:     maxUpload,
	}
}

// Handler returns the full middleware chain around the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /static/", http.StripPrefix("/static/", s.staticHandler()))
	mux.HandleFunc("GET /healthz", s.handleHealthz)

	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.Handle("GET /login", s.publicOnly(http.HandlerFunc(s.handleLogin)))
	mux.Handle("POST /login", s.publicOnly(http.HandlerFunc(s.handleLogin)))
	mux.Handle("GET /register", s.publicOnly(http.HandlerFunc(s.handleRegister)))
	mux.Handle("POST /register", s.publicOnly(http.HandlerFunc(s.handleRegister)))
	mux.HandleFunc("POST /logout", s.handleLogout)

	mux.HandleFunc("GET /conversations", s.handleConversationList)
	mux.HandleFunc("GET /conversations/{id}", s.handleConversationDetail)
	mux.HandleFunc("POST /prompts", s.handleSendPrompt)

	mux.HandleFunc("GET /files", s.handleFiles)
	mux.HandleFunc("POST /files", s.handleUploadFile)
	mux.HandleFunc("POST /files/{id}/delete", s.handleDeleteFile)
	mux.HandleFunc("GET /files/folder", s.handleFolder)

	mux.HandleFunc("/", s.handleNotFound)

	var h http.Handler = mux
	h = s.accessGate(h)
	h = s.sessions.Middleware(h)
	h = s.logRequests(h)
	h = s.recoverPanics(h)
	return h
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

// handleNotFound sends anonymous visitors to the login page and everyone
// else to their conversations.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	if session.FromContext(r.Context()).Authenticated() {
		http.Redirect(w, r, "/conversations", http.StatusFound)
		return
	}
	http.Redirect(w, r, "/login", http.StatusFound)
}
