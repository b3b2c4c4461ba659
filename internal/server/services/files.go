package services

import (
	"context"
	"path"
	"strings"
	"time"

	"github.com/PromptVision-AI/promptvision-app/internal/dbx"
	"github.com/PromptVision-AI/promptvision-app/internal/logging"
	"github.com/PromptVision-AI/promptvision-app/internal/server/media"
	"github.com/PromptVision-AI/promptvision-app/internal/server/models"
	"github.com/PromptVision-AI/promptvision-app/internal/server/recordstore"
	"github.com/PromptVision-AI/promptvision-app/internal/server/repositories/repomanager"
)

type FileUpload struct {
	Body       []byte
	Filename   string
	Folder     string
	CustomName string
}

// FileService manages standalone uploads that do not belong to a prompt.
type FileService struct {
	db          dbx.DBTX
	repomanager repomanager.RepositoryManager
	media       media.Gateway
	logger      logging.Logger

	now func() time.Time
}

func NewFileService(db dbx.DBTX, m repomanager.RepositoryManager, g media.Gateway, logger logging.Logger) *FileService {
	return &FileService{
		db:          db,
		repomanager: m,
		media:       g,
		logger:      logger.With("module", "files"),
		now:         time.Now,
	}
}

// Upload stores the file under {name}_{YYYYMMDD_HHMMSS}, where name is the
// custom name or the filename stem.
func (s *FileService) Upload(ctx context.Context, accountID string, in FileUpload) Notice {
	name := strings.TrimSpace(in.CustomName)
	if name == "" {
		base := path.Base(strings.ReplaceAll(in.Filename, "\\", "/"))
		name = strings.TrimSuffix(base, path.Ext(base))
	}
	publicID := name + "_" + s.now().Format("20060102_150405")

	up := s.media.Upload(ctx, in.Body, in.Filename, in.Folder, publicID)
	if !up.Success {
		s.logger.Error(ctx, "file upload failed", "account_id", accountID, "error", up.Error)
		return noticef(LevelError, "File upload failed.")
	}

	f := s.repomanager.Files(s.db).Insert(ctx, &models.File{
		UserID:       accountID,
		PublicID:     up.PublicID,
		Filename:     publicID,
		URL:          up.URL,
		ResourceType: up.ResourceType,
		Format:       up.Format,
		Folder:       in.Folder,
	})
	if f == nil {
		return noticef(LevelWarning, "File uploaded to the media store but record creation failed.")
	}
	return noticef(LevelSuccess, "File uploaded successfully!")
}

// Delete removes a file the account owns from the media store, then its
// record.
func (s *FileService) Delete(ctx context.Context, accountID, fileID string) Notice {
	files := s.repomanager.Files(s.db)

	f := files.GetByID(ctx, fileID)
	if f == nil || f.UserID != accountID {
		return noticef(LevelError, "File not found or you don't have permission to delete it.")
	}

	if res := s.media.Delete(ctx, f.PublicID, f.ResourceType); !res.Success {
		s.logger.Error(ctx, "media delete failed", "file_id", fileID, "error", res.Error)
		return noticef(LevelError, "Failed to delete file from the media store.")
	}
	if !files.DeleteByID(ctx, fileID) {
		return noticef(LevelWarning, "File deleted from the media store but record deletion failed.")
	}
	return noticef(LevelSuccess, "File deleted successfully!")
}

// ListUserFiles returns every file of the account, newest first.
func (s *FileService) ListUserFiles(ctx context.Context, accountID string) []*models.File {
	if accountID == "" {
		return []*models.File{}
	}
	return s.repomanager.Files(s.db).List(ctx, recordstore.Query{
		Filters: map[string]any{"user_id": accountID},
		OrderBy: "created_at",
		Desc:    true,
	})
}

// ListFolder lists media assets under folder. An empty folder lists
// nothing.
func (s *FileService) ListFolder(ctx context.Context, folder, resourceType string) []media.Result {
	if folder == "" {
		return nil
	}
	if resourceType == "" {
		resourceType = media.ResourceImage
	}
	res := s.media.List(ctx, folder, resourceType, 100)
	if !res.Success {
		s.logger.Warn(ctx, "folder listing failed", "folder", folder, "error", res.Error)
		return nil
	}
	return res.Resources
}
