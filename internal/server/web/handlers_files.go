package web

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/PromptVision-AI/promptvision-app/internal/server/media"
	"github.com/PromptVision-AI/promptvision-app/internal/server/services"
)

var resourceTypes = []string{media.ResourceImage, media.ResourceVideo, media.ResourceRaw}

func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "files.html", "Files", map[string]any{
		"Files": s.files.ListUserFiles(r.Context(), accountID(r.Context())),
	})
}

func (s *Server) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		redirectWith(w, r, "/files", errorNotice("The upload could not be read."))
		return
	}

	file, hdr, err := r.FormFile("file")
	if err != nil {
		redirectWith(w, r, "/files", errorNotice("Please choose a file to upload."))
		return
	}
	body, err := io.ReadAll(file)
	_ = file.Close()
	if err != nil || len(body) == 0 {
		redirectWith(w, r, "/files", errorNotice("The upload could not be read."))
		return
	}

	n := s.files.Upload(r.Context(), accountID(r.Context()), services.FileUpload{
		Body:       body,
		Filename:   hdr.Filename,
		Folder:     strings.Trim(strings.TrimSpace(r.FormValue("folder")), "/"),
		CustomName: r.FormValue("custom_filename"),
	})
	redirectWith(w, r, "/files", n)
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	n := s.files.Delete(r.Context(), accountID(r.Context()), r.PathValue("id"))
	redirectWith(w, r, "/files", n)
}

func (s *Server) handleFolder(w http.ResponseWriter, r *http.Request) {
	folder := strings.TrimSpace(r.URL.Query().Get("folder"))
	rt := r.URL.Query().Get("resource_type")
	if rt == "" {
		rt = media.ResourceImage
	}

	var resources []media.Result
	if folder != "" {
		resources = s.files.ListFolder(r.Context(), folder, rt)
	}
	s.render(w, r, http.StatusOK, "folder.html", "Folder", map[string]any{
		"Folder":        folder,
		"ResourceType":  rt,
		"ResourceTypes": resourceTypes,
		"Resources":     resources,
	})
}
