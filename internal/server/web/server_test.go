package web

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PromptVision-AI/promptvision-app/internal/common"
	"github.com/PromptVision-AI/promptvision-app/internal/dbx"
	"github.com/PromptVision-AI/promptvision-app/internal/logging"
	"github.com/PromptVision-AI/promptvision-app/internal/server/authprovider"
	"github.com/PromptVision-AI/promptvision-app/internal/server/media"
	"github.com/PromptVision-AI/promptvision-app/internal/server/models"
	"github.com/PromptVision-AI/promptvision-app/internal/server/repositories/repomanager"
	"github.com/PromptVision-AI/promptvision-app/internal/server/services"
	"github.com/PromptVision-AI/promptvision-app/internal/server/session"
	"github.com/PromptVision-AI/promptvision-app/internal/server/storetest"
	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIdentity struct {
	sessions    SessionSaver
	valid       bool
	signInErr   error
	signUpErr   error
	signOuts    int
	validations int
}

func (f *fakeIdentity) SignUp(_ context.Context, email, _ string) (*authprovider.Identity, error) {
	if f.signUpErr != nil {
		return nil, f.signUpErr
	}
	return &authprovider.Identity{ID: "a1", Email: email}, nil
}

func (f *fakeIdentity) SignIn(_ context.Context, email, _ string) (*authprovider.Identity, *authprovider.TokenPair, error) {
	if f.signInErr != nil {
		return nil, nil, f.signInErr
	}
	return &authprovider.Identity{ID: "a1", Email: email}, &authprovider.TokenPair{AccessToken: "at", RefreshToken: "rt"}, nil
}

func (f *fakeIdentity) SignOut(_ context.Context, st *session.State) {
	f.signOuts++
	if st != nil {
		st.Clear()
		_ = f.sessions.Save(context.Background(), st)
	}
}

func (f *fakeIdentity) ValidateToken(_ context.Context, st *session.State) bool {
	f.validations++
	return f.valid && st.AccessToken != ""
}

type fakeConversations struct {
	convs    []*models.Conversation
	detail   *services.ConversationDetail
	sent     []services.SendPromptInput
	sendErr  error
	notices  []services.Notice
	detailOf string
	owned    map[string]string
}

func (f *fakeConversations) Owns(_ context.Context, conversationID, accountID string) bool {
	owner, ok := f.owned[conversationID]
	return ok && owner == accountID
}

func (f *fakeConversations) SendPrompt(_ context.Context, in services.SendPromptInput) (*services.SendPromptResult, error) {
	f.sent = append(f.sent, in)
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	id := in.ConversationID
	if id == "" {
		id = "c1"
	}
	return &services.SendPromptResult{ConversationID: id, PromptID: "p1", Notices: f.notices}, nil
}

func (f *fakeConversations) LoadConversationDetail(_ context.Context, conversationID, accountID string) (*services.ConversationDetail, error) {
	f.detailOf = accountID
	if f.detail == nil || f.detail.Conversation.ID != conversationID {
		return nil, common.ErrorNotFound
	}
	return f.detail, nil
}

func (f *fakeConversations) ListConversations(context.Context, string) []*models.Conversation {
	return f.convs
}

type fakeFiles struct {
	files    []*models.File
	uploads  []services.FileUpload
	deleted  []string
	folder   []media.Result
	folderOf string
}

func (f *fakeFiles) Upload(_ context.Context, _ string, in services.FileUpload) services.Notice {
	f.uploads = append(f.uploads, in)
	return services.Notice{Level: services.LevelSuccess, Message: "File uploaded successfully!"}
}

func (f *fakeFiles) Delete(_ context.Context, _, fileID string) services.Notice {
	f.deleted = append(f.deleted, fileID)
	return services.Notice{Level: services.LevelSuccess, Message: "File deleted successfully!"}
}

func (f *fakeFiles) ListUserFiles(context.Context, string) []*models.File { return f.files }

func (f *fakeFiles) ListFolder(_ context.Context, folder, _ string) []media.Result {
	f.folderOf = folder
	return f.folder
}

type harness struct {
	srv           *httptest.Server
	store         *session.Store
	client        *http.Client
	identity      *fakeIdentity
	conversations *fakeConversations
	files         *fakeFiles
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := storetest.NewSQLite(t)
	rm := repomanager.NewRepositoryManager(dbx.SQLite, logging.Nop{})
	store := session.NewStore(db, rm, time.Hour)
	mgr := session.NewManager(store, "promptvision_session", false, logging.Nop{})

	h := &harness{
		store:         store,
		identity:      &fakeIdentity{sessions: store, valid: true},
		conversations: &fakeConversations{},
		files:         &fakeFiles{},
	}
	s := NewServer(Deps{
		Identity:      h.identity,
		Conversations: h.conversations,
		Files:         h.files,
		Sessions:      mgr,
		Logger:        logging.Nop{},
	})
	h.srv = httptest.NewServer(s.Handler())
	t.Cleanup(h.srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	h.client = &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return h
}

func (h *harness) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := h.client.Get(h.srv.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (h *harness) postForm(t *testing.T, path string, form url.Values) *http.Response {
	t.Helper()
	resp, err := h.client.PostForm(h.srv.URL+path, form)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (h *harness) postMultipart(t *testing.T, path string, fields map[string]string, filename string, content []byte) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	resp, err := h.client.Post(h.srv.URL+path, mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (h *harness) login(t *testing.T) {
	t.Helper()
	resp := h.postForm(t, "/login", url.Values{"email": {"a@b.c"}, "password": {"pw"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/conversations", resp.Header.Get("Location"))
}

func doc(t *testing.T, resp *http.Response) *goquery.Document {
	t.Helper()
	d, err := goquery.NewDocumentFromReader(resp.Body)
	require.NoError(t, err)
	return d
}

func TestPublicPages(t *testing.T) {
	h := newHarness(t)

	resp := h.get(t, "/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Log in", strings.TrimSpace(doc(t, resp).Find("header nav a[href='/login']").Text()))

	resp = h.get(t, "/login")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, doc(t, resp).Find("form#login-form").Length())

	resp = h.get(t, "/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = h.get(t, "/static/app.css")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Zero(t, h.identity.validations)
}

func TestGate_AnonymousIsRedirected(t *testing.T) {
	h := newHarness(t)

	for _, path := range []string{"/conversations", "/files", "/conversations/c1", "/no-such-page"} {
		resp := h.get(t, path)
		assert.Equal(t, http.StatusFound, resp.StatusCode, path)
		assert.Equal(t, "/login", resp.Header.Get("Location"), path)
	}
	assert.Equal(t, 4, h.identity.signOuts)
}

func TestGate_AdminGoesHome(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	for _, path := range []string{"/admin", "/admin/users"} {
		resp := h.get(t, path)
		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "/", resp.Header.Get("Location"))
	}
}

func TestGate_InvalidTokenSignsOut(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.identity.valid = false

	resp := h.get(t, "/conversations")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
	assert.Equal(t, 1, h.identity.signOuts)
}

func TestLogin_FlowAndPublicOnly(t *testing.T) {
	h := newHarness(t)
	h.conversations.convs = []*models.Conversation{{ID: "c1", Title: "first"}, {ID: "c2", Title: ""}}
	h.login(t)

	resp := h.get(t, "/conversations")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	d := doc(t, resp)
	assert.Equal(t, 2, d.Find("#conversations li a").Length())
	assert.Equal(t, "Untitled", d.Find("#conversations a[href='/conversations/c2']").Text())
	assert.Equal(t, "a@b.c", d.Find(".user-email").Text())

	resp = h.get(t, "/login")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/conversations", resp.Header.Get("Location"))

	resp = h.get(t, "/register")
	assert.Equal(t, "/conversations", resp.Header.Get("Location"))

	resp = h.get(t, "/missing")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/conversations", resp.Header.Get("Location"))
}

func TestLogin_BadCredentialsKeepsEmail(t *testing.T) {
	h := newHarness(t)
	h.identity.signInErr = common.ErrAuthentication

	resp := h.postForm(t, "/login", url.Values{"email": {"A@B.c"}, "password": {"nope"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	d := doc(t, resp)
	assert.Equal(t, "Invalid email or password.", d.Find(".notice-error").Text())
	v, _ := d.Find("input[name=email]").Attr("value")
	assert.Equal(t, "a@b.c", v)
}

func TestRegister(t *testing.T) {
	h := newHarness(t)

	resp := h.postForm(t, "/register", url.Values{"email": {"a@b.c"}, "password1": {"x1"}, "password2": {"x2"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Passwords do not match.", doc(t, resp).Find(".notice-error").Text())

	resp = h.postForm(t, "/register", url.Values{"email": {"a@b.c"}, "password1": {"secret1"}, "password2": {"secret1"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	resp = h.get(t, "/login")
	assert.Equal(t, "Registration successful. Please log in.", doc(t, resp).Find(".notice-success").Text())

	resp = h.get(t, "/login")
	assert.Zero(t, doc(t, resp).Find(".notice").Length(), "flash is shown once")
}

func TestLogout(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	resp := h.postForm(t, "/logout", nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
	assert.Equal(t, 1, h.identity.signOuts)

	resp = h.get(t, "/login")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSendPrompt(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.conversations.notices = []services.Notice{{Level: services.LevelError, Message: "AI API Error: down"}}

	resp := h.postMultipart(t, "/prompts", map[string]string{"prompt_text": "make it blue"}, "cat.png", []byte("png-bytes"))
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/conversations/c1", resp.Header.Get("Location"))

	require.Len(t, h.conversations.sent, 1)
	in := h.conversations.sent[0]
	assert.Equal(t, "a1", in.AccountID)
	assert.Equal(t, "make it blue", in.Text)
	require.NotNil(t, in.Attachment)
	assert.Equal(t, "cat.png", in.Attachment.Filename)
	assert.Equal(t, []byte("png-bytes"), in.Attachment.Body)

	h.conversations.owned = map[string]string{"c9": "a1"}
	resp = h.postMultipart(t, "/prompts", map[string]string{"prompt_text": "again", "conversation_id": "c9"}, "", nil)
	assert.Equal(t, "/conversations/c9", resp.Header.Get("Location"))
	assert.Nil(t, h.conversations.sent[1].Attachment)

	resp = h.postMultipart(t, "/prompts", map[string]string{"prompt_text": "  "}, "", nil)
	assert.Equal(t, "/conversations", resp.Header.Get("Location"))
	assert.Len(t, h.conversations.sent, 2)
}

func TestConversationDetail(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	pid := "p1"
	h.conversations.detail = &services.ConversationDetail{
		Conversation: &models.Conversation{ID: "c1", Title: "Cats"},
		Prompts: []services.PromptView{
			{ID: pid, Text: "make it blue", HasResponse: true, Response: map[string]any{"answer": "done"}},
		},
		InputOutputs: map[string][]services.FileView{
			pid: {
				{File: &models.File{StepType: "input", URL: "https://m/image/upload/in.png", Filename: "cat.png"}},
				{File: &models.File{StepType: "output", URL: "https://m/image/upload/out.png"}, DownloadURL: "https://m/image/upload/fl_attachment/out.png"},
			},
		},
		Steps: map[string][]services.FileView{
			pid: {{File: &models.File{StepType: "segmentation", StepIndex: 1, URL: "https://m/s.png"}, Reasoning: map[string]any{"k": "v"}}},
		},
	}

	resp := h.get(t, "/conversations/c1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	d := doc(t, resp)

	assert.Equal(t, "a1", h.conversations.detailOf)
	assert.Equal(t, "Cats", d.Find("#conversation-title").Text())
	article := d.Find("#prompt-p1")
	assert.Equal(t, "make it blue", article.Find(".prompt-text").Text())
	assert.Equal(t, 2, article.Find("figure").Length())
	href, _ := article.Find("a.download").Attr("href")
	assert.Equal(t, "https://m/image/upload/fl_attachment/out.png", href)
	assert.Contains(t, article.Find(".response pre").Text(), `"answer": "done"`)
	assert.Equal(t, 1, article.Find(".step").Length())
	assert.Contains(t, article.Find(".reasoning").Text(), `"k": "v"`)
	v, _ := d.Find("#prompt-form input[name=conversation_id]").Attr("value")
	assert.Equal(t, "c1", v)

	resp = h.get(t, "/conversations/other")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/conversations", resp.Header.Get("Location"))
}

func TestFiles(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.files.files = []*models.File{{ID: "f1", Filename: "beach_20240309_140507", URL: "https://m/f1.png", ResourceType: "image", Format: "png"}}

	resp := h.get(t, "/files")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	d := doc(t, resp)
	assert.Equal(t, 1, d.Find("#files tr[data-file-id='f1']").Length())
	assert.Equal(t, "image/png", strings.TrimSpace(d.Find("#files tr[data-file-id='f1'] td").Eq(1).Text()))

	resp = h.postMultipart(t, "/files", map[string]string{"folder": "/trips/", "custom_filename": "beach"}, "holiday.jpg", []byte("jpg"))
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Len(t, h.files.uploads, 1)
	assert.Equal(t, "trips", h.files.uploads[0].Folder)
	assert.Equal(t, "beach", h.files.uploads[0].CustomName)

	resp = h.get(t, "/files")
	assert.Equal(t, "File uploaded successfully!", doc(t, resp).Find(".notice-success").Text())

	resp = h.postForm(t, "/files/f1/delete", nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, []string{"f1"}, h.files.deleted)

	resp = h.postMultipart(t, "/files", nil, "", nil)
	assert.Equal(t, "/files", resp.Header.Get("Location"))
	assert.Len(t, h.files.uploads, 1)
}

func TestFolder(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.files.folder = []media.Result{{PublicID: "default_folder/a1/x", URL: "https://m/x.png", Format: "png"}}

	resp := h.get(t, "/files/folder")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Zero(t, doc(t, resp).Find("#folder-files li").Length())
	assert.Empty(t, h.files.folderOf)

	resp = h.get(t, "/files/folder?folder=default_folder/a1&resource_type=image")
	d := doc(t, resp)
	assert.Equal(t, "default_folder/a1", h.files.folderOf)
	assert.Equal(t, "default_folder/a1/x", d.Find("#folder-files li a").Text())
	sel, _ := d.Find("select[name=resource_type] option[selected]").Attr("value")
	assert.Equal(t, "image", sel)
}

func TestRecoverPanics(t *testing.T) {
	s := &Server{logger: logging.Nop{}}
	h := s.recoverPanics(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestIsPublic(t *testing.T) {
	for path, want := range map[string]bool{
		"/":                true,
		"/login":           true,
		"/login/":          true,
		"/static/app.css":  true,
		"/healthz":         true,
		"/loginx":          false,
		"/conversations":   false,
		"/files/f1/delete": false,
	} {
		assert.Equal(t, want, isPublic(path), path)
	}
	assert.True(t, isAdmin("/admin/x"))
	assert.False(t, isAdmin("/administrator"))
}

func (h *harness) sessionID(t *testing.T) string {
	t.Helper()
	u, err := url.Parse(h.srv.URL)
	require.NoError(t, err)
	for _, c := range h.client.Jar.Cookies(u) {
		if c.Name == "promptvision_session" {
			return c.Value
		}
	}
	return ""
}

func TestLogin_RotatesSessionID(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.get(t, "/conversations")
	before := h.sessionID(t)
	require.NotEmpty(t, before)
	require.NotNil(t, h.store.Load(ctx, before))

	h.login(t)
	after := h.sessionID(t)

	assert.NotEqual(t, before, after)
	assert.Nil(t, h.store.Load(ctx, before))
	st := h.store.Load(ctx, after)
	require.NotNil(t, st)
	assert.Equal(t, "a1", st.UserID)
	assert.Equal(t, "at", st.AccessToken)

	resp := h.get(t, "/conversations")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSendPrompt_RejectsForeignConversation(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.conversations.owned = map[string]string{"c-other": "a2"}

	for _, id := range []string{"c-other", "c-missing"} {
		resp := h.postMultipart(t, "/prompts", map[string]string{"prompt_text": "injected", "conversation_id": id}, "", nil)
		assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
		assert.Equal(t, "/conversations", resp.Header.Get("Location"))
	}
	assert.Empty(t, h.conversations.sent)

	resp := h.get(t, "/conversations")
	assert.Equal(t, "Conversation not found.", doc(t, resp).Find(".notice-error").Text())
}

func TestRegister_HidesProviderDetail(t *testing.T) {
	h := newHarness(t)
	h.identity.signUpErr = fmt.Errorf("%w: gotrue sign up: 422 {\"msg\":\"internal detail\"}", common.ErrRegistration)

	resp := h.postForm(t, "/register", url.Values{"email": {"a@b.c"}, "password1": {"secret1"}, "password2": {"secret1"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	msg := doc(t, resp).Find(".notice-error").Text()
	assert.Equal(t, "Registration failed. Check your email and password and try again.", msg)
	assert.NotContains(t, msg, "internal detail")
}
