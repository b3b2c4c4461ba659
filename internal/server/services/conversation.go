package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/PromptVision-AI/promptvision-app/internal/common"
	"github.com/PromptVision-AI/promptvision-app/internal/dbx"
	"github.com/PromptVision-AI/promptvision-app/internal/logging"
	"github.com/PromptVision-AI/promptvision-app/internal/server/media"
	"github.com/PromptVision-AI/promptvision-app/internal/server/models"
	"github.com/PromptVision-AI/promptvision-app/internal/server/pipeline"
	"github.com/PromptVision-AI/promptvision-app/internal/server/recordstore"
	"github.com/PromptVision-AI/promptvision-app/internal/server/repositories/repomanager"
)

const (
	// ImageURLMarker joins the prompt text and the input image URL in the
	// text sent to the pipeline and stored on the prompt.
	ImageURLMarker = " Here is the image URL:"

	titleMaxRunes = 50
)

type Attachment struct {
	Body     []byte
	Filename string
}

type SendPromptInput struct {
	AccountID      string
	Text           string
	ConversationID string
	Attachment     *Attachment
}

type SendPromptResult struct {
	ConversationID string
	PromptID       string
	Notices        []Notice
}

// PromptView is a prompt prepared for display.
type PromptView struct {
	ID          string
	Text        string
	Response    any
	HasResponse bool
	CreatedAt   time.Time
}

// FileView is a file row prepared for display.
type FileView struct {
	*models.File
	Reasoning   any
	DownloadURL string
}

type ConversationDetail struct {
	Conversation *models.Conversation
	Prompts      []PromptView
	// InputOutputs and Steps are keyed by prompt id, each list ordered by
	// step index.
	InputOutputs map[string][]FileView
	Steps        map[string][]FileView
}

// ConversationService runs the prompt workflow: record the turn, upload the
// attachment, call the AI pipeline and record its steps.
type ConversationService struct {
	db          dbx.DBTX
	repomanager repomanager.RepositoryManager
	media       media.Gateway
	pipeline    pipeline.Caller
	logger      logging.Logger
}

func NewConversationService(db dbx.DBTX, m repomanager.RepositoryManager, g media.Gateway, p pipeline.Caller, logger logging.Logger) *ConversationService {
	return &ConversationService{
		db:          db,
		repomanager: m,
		media:       g,
		pipeline:    p,
		logger:      logger.With("module", "conversation"),
	}
}

// SendPrompt records one user turn and runs the pipeline for it.
//
// A failed conversation or prompt insert aborts with an error. Everything
// after that is reported through notices: an upload or pipeline failure
// leaves what was already written in place.
//
// in.ConversationID is not checked against in.AccountID; callers do that
// with Owns first.
func (s *ConversationService) SendPrompt(ctx context.Context, in SendPromptInput) (*SendPromptResult, error) {
	convID := in.ConversationID
	if convID == "" {
		conv := s.repomanager.Conversations(s.db).Insert(ctx, &models.Conversation{
			UserID: in.AccountID,
			Title:  truncateRunes(in.Text, titleMaxRunes),
		})
		if conv == nil {
			return nil, fmt.Errorf("create conversation: %w", common.ErrorInternal)
		}
		convID = conv.ID
	}

	prompt := s.repomanager.Prompts(s.db).Insert(ctx, &models.Prompt{ConversationID: convID, Text: in.Text})
	if prompt == nil {
		return nil, fmt.Errorf("create prompt: %w", common.ErrorInternal)
	}

	res := &SendPromptResult{ConversationID: convID, PromptID: prompt.ID}
	log := s.logger.With("conversation_id", convID, "prompt_id", prompt.ID)

	var inputURL *string
	if in.Attachment != nil && len(in.Attachment.Body) > 0 {
		url, n := s.storeInput(ctx, in.AccountID, prompt.ID, in.Attachment)
		if url != "" {
			inputURL = &url
		}
		if n != nil {
			res.Notices = append(res.Notices, *n)
		}
	}

	text := in.Text
	if inputURL != nil {
		text = fmt.Sprintf("%s%s %s", in.Text, ImageURLMarker, *inputURL)
	}

	out, err := s.pipeline.Call(ctx, pipeline.Request{
		UserID:         in.AccountID,
		PromptID:       prompt.ID,
		Prompt:         text,
		ConversationID: convID,
		InputImageURL:  inputURL,
	})
	if err != nil {
		log.Error(ctx, "pipeline call failed", "error", err)
		res.Notices = append(res.Notices, noticef(LevelError, "AI API Error: %v", err))
		return res, nil
	}

	response := string(out.FinalResponse)
	if len(out.FinalResponse) == 0 {
		response = `""`
	}
	if s.repomanager.Prompts(s.db).UpdateByID(ctx, prompt.ID, recordstore.Fields{
		"response": response,
		"text":     text,
	}) == nil {
		res.Notices = append(res.Notices, noticef(LevelWarning, "The AI response could not be saved."))
	}

	failed := 0
	for i, st := range out.Steps {
		if s.repomanager.Files(s.db).Insert(ctx, stepFile(in.AccountID, prompt.ID, i, st)) == nil {
			failed++
		}
	}
	if failed > 0 {
		res.Notices = append(res.Notices, noticef(LevelWarning, "%d of %d pipeline steps could not be saved.", failed, len(out.Steps)))
	}

	log.Info(ctx, "prompt processed", "steps", len(out.Steps))
	return res, nil
}

// storeInput uploads the attachment and records it as step 0. It returns
// the delivery URL, empty when the upload failed.
func (s *ConversationService) storeInput(ctx context.Context, accountID, promptID string, a *Attachment) (string, *Notice) {
	folder := accountID + "/inputs"
	up := s.media.Upload(ctx, a.Body, a.Filename, folder, promptID+"_input")
	if !up.Success {
		n := noticef(LevelWarning, "Image upload failed: %s", up.Error)
		return "", &n
	}

	f := s.repomanager.Files(s.db).Insert(ctx, &models.File{
		UserID:       accountID,
		PromptID:     &promptID,
		PublicID:     up.PublicID,
		Filename:     a.Filename,
		URL:          up.URL,
		ResourceType: up.ResourceType,
		Format:       up.Format,
		Folder:       folder,
		StepType:     models.StepTypeInput,
		StepIndex:    0,
	})
	if f == nil {
		n := noticef(LevelWarning, "Image uploaded but its record could not be saved.")
		return up.URL, &n
	}
	return up.URL, nil
}

func stepFile(accountID, promptID string, i int, st pipeline.Step) *models.File {
	stepType := st.StepType
	if stepType == "" {
		stepType = fmt.Sprintf("step_%d", i+1)
	}
	folderType := "steps"
	if stepType == models.StepTypeOutput {
		folderType = "outputs"
	}

	f := &models.File{
		UserID:       accountID,
		PromptID:     &promptID,
		PublicID:     st.PublicID,
		Filename:     st.Filename,
		URL:          st.URL,
		ResourceType: st.ResourceType,
		Format:       st.Format,
		Folder:       accountID + "/" + folderType,
		StepType:     stepType,
		StepIndex:    i + 1,
	}
	if len(st.ReasoningInfo) > 0 {
		r := string(st.ReasoningInfo)
		f.ReasoningInfo = &r
	}
	return f
}

// Owns reports whether the conversation exists and belongs to accountID.
func (s *ConversationService) Owns(ctx context.Context, conversationID, accountID string) bool {
	conv := s.repomanager.Conversations(s.db).GetByID(ctx, conversationID)
	return conv != nil && conv.UserID == accountID
}

// LoadConversationDetail assembles the conversation view. Conversations of
// other accounts are reported as common.ErrorNotFound.
func (s *ConversationService) LoadConversationDetail(ctx context.Context, conversationID, accountID string) (*ConversationDetail, error) {
	conv := s.repomanager.Conversations(s.db).GetByID(ctx, conversationID)
	if conv == nil || conv.UserID != accountID {
		return nil, common.ErrorNotFound
	}

	prompts := s.repomanager.Prompts(s.db).List(ctx, recordstore.Query{
		Filters: map[string]any{"conversation_id": conversationID},
		OrderBy: "created_at",
	})

	detail := &ConversationDetail{
		Conversation: conv,
		Prompts:      make([]PromptView, 0, len(prompts)),
		InputOutputs: map[string][]FileView{},
		Steps:        map[string][]FileView{},
	}

	ids := make([]string, 0, len(prompts))
	for _, p := range prompts {
		ids = append(ids, p.ID)
		detail.Prompts = append(detail.Prompts, promptView(p))
	}

	files := s.repomanager.Files(s.db).ListWhereIn(ctx, "prompt_id", ids, "step_index", false)
	for _, f := range files {
		if f.PromptID == nil {
			continue
		}
		pid := *f.PromptID
		v := fileView(f)
		switch f.StepType {
		case models.StepTypeInput, models.StepTypeOutput, "":
			detail.InputOutputs[pid] = append(detail.InputOutputs[pid], v)
		default:
			detail.Steps[pid] = append(detail.Steps[pid], v)
		}
	}
	return detail, nil
}

// ListConversations returns the account's conversations, newest first.
func (s *ConversationService) ListConversations(ctx context.Context, accountID string) []*models.Conversation {
	return s.repomanager.Conversations(s.db).List(ctx, recordstore.Query{
		Filters: map[string]any{"user_id": accountID},
		OrderBy: "created_at",
		Desc:    true,
	})
}

func promptView(p *models.Prompt) PromptView {
	v := PromptView{ID: p.ID, Text: p.Text, CreatedAt: p.CreatedAt}
	if p.Response == nil {
		return v
	}

	v.HasResponse = true
	var decoded any
	if err := json.Unmarshal([]byte(*p.Response), &decoded); err != nil {
		v.Response = *p.Response
	} else {
		v.Response = decoded
	}
	if before, _, found := strings.Cut(p.Text, ImageURLMarker); found {
		v.Text = before
	}
	return v
}

func fileView(f *models.File) FileView {
	v := FileView{File: f}
	if f.ReasoningInfo != nil && *f.ReasoningInfo != "" {
		var r any
		if err := json.Unmarshal([]byte(*f.ReasoningInfo), &r); err != nil {
			r = map[string]any{}
		}
		v.Reasoning = r
	}
	if f.StepType == models.StepTypeOutput && f.URL != "" {
		v.DownloadURL = strings.Replace(f.URL, "/upload/", "/upload/fl_attachment/", 1)
	}
	return v
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
