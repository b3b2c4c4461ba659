package web

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/PromptVision-AI/promptvision-app/internal/common"
	"github.com/PromptVision-AI/promptvision-app/internal/server/services"
)

func (s *Server) handleConversationList(w http.ResponseWriter, r *http.Request) {
	acct := accountID(r.Context())
	s.render(w, r, http.StatusOK, "conversations.html", "Conversations", map[string]any{
		"Conversations": s.conversations.ListConversations(r.Context(), acct),
		"Selected":      "",
		"Detail":        (*services.ConversationDetail)(nil),
	})
}

func (s *Server) handleConversationDetail(w http.ResponseWriter, r *http.Request) {
	acct := accountID(r.Context())
	detail, err := s.conversations.LoadConversationDetail(r.Context(), r.PathValue("id"), acct)
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			s.logger.Error(r.Context(), "load conversation failed", "error", err)
		}
		redirectWith(w, r, "/conversations", errorNotice("Conversation not found."))
		return
	}

	s.render(w, r, http.StatusOK, "conversations.html", detail.Conversation.Title, map[string]any{
		"Conversations": s.conversations.ListConversations(r.Context(), acct),
		"Selected":      detail.Conversation.ID,
		"Detail":        detail,
	})
}

func (s *Server) handleSendPrompt(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		redirectWith(w, r, "/conversations", errorNotice("The upload could not be read."))
		return
	}

	text := strings.TrimSpace(r.FormValue("prompt_text"))
	convID := r.FormValue("conversation_id")
	back := "/conversations"
	if convID != "" {
		back += "/" + convID
	}
	if text == "" {
		redirectWith(w, r, back, errorNotice("Please enter a prompt."))
		return
	}

	if convID != "" && !s.conversations.Owns(r.Context(), convID, accountID(r.Context())) {
		redirectWith(w, r, "/conversations", errorNotice("Conversation not found."))
		return
	}

	in := services.SendPromptInput{
		AccountID:      accountID(r.Context()),
		Text:           text,
		ConversationID: convID,
	}
	if file, hdr, err := r.FormFile("file"); err == nil {
		body, err := io.ReadAll(file)
		_ = file.Close()
		if err != nil {
			redirectWith(w, r, back, errorNotice("The upload could not be read."))
			return
		}
		if len(body) > 0 {
			in.Attachment = &services.Attachment{Body: body, Filename: hdr.Filename}
		}
	}

	res, err := s.conversations.SendPrompt(r.Context(), in)
	if err != nil {
		s.logger.Error(r.Context(), "send prompt failed", "error", err)
		redirectWith(w, r, back, errorNotice("Your prompt could not be saved."))
		return
	}

	redirectWith(w, r, "/conversations/"+res.ConversationID, res.Notices...)
}
