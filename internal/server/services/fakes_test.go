package services

import (
	"context"
	"database/sql"
	"testing"

	"github.com/PromptVision-AI/promptvision-app/internal/dbx"
	"github.com/PromptVision-AI/promptvision-app/internal/logging"
	"github.com/PromptVision-AI/promptvision-app/internal/server/media"
	"github.com/PromptVision-AI/promptvision-app/internal/server/pipeline"
	"github.com/PromptVision-AI/promptvision-app/internal/server/repositories/repomanager"
	"github.com/PromptVision-AI/promptvision-app/internal/server/storetest"
)

type uploadCall struct {
	Filename, Folder, PublicID string
}

type fakeGateway struct {
	uploadErr string
	deleteErr string
	list      media.ListResult

	uploads []uploadCall
	deletes []string
}

func (g *fakeGateway) Upload(_ context.Context, body []byte, filename, folder, publicID string) media.Result {
	g.uploads = append(g.uploads, uploadCall{filename, folder, publicID})
	if g.uploadErr != "" {
		return media.Result{Error: g.uploadErr}
	}
	full := "default_folder/" + folder + "/" + publicID
	return media.Result{
		Success:      true,
		URL:          "https://media.local/image/upload/" + full + ".png",
		PublicID:     full,
		ResourceType: "image",
		Format:       "png",
	}
}

func (g *fakeGateway) Delete(_ context.Context, publicID, _ string) media.Result {
	g.deletes = append(g.deletes, publicID)
	if g.deleteErr != "" {
		return media.Result{Error: g.deleteErr}
	}
	return media.Result{Success: true, PublicID: publicID}
}

func (g *fakeGateway) Rename(context.Context, string, string, string) media.Result {
	return media.Result{Error: "not supported"}
}

func (g *fakeGateway) Update(context.Context, string, media.UpdateParams, string) media.Result {
	return media.Result{Error: "not supported"}
}

func (g *fakeGateway) List(_ context.Context, prefix, resourceType string, maxResults int) media.ListResult {
	return g.list
}

type fakePipeline struct {
	out  *pipeline.Response
	err  error
	reqs []pipeline.Request
}

func (p *fakePipeline) Call(_ context.Context, req pipeline.Request) (*pipeline.Response, error) {
	p.reqs = append(p.reqs, req)
	if p.err != nil {
		return nil, p.err
	}
	return p.out, nil
}

func newStore(t *testing.T) (*sql.DB, repomanager.RepositoryManager) {
	t.Helper()
	return storetest.NewSQLite(t), repomanager.NewRepositoryManager(dbx.SQLite, logging.Nop{})
}
