package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/upb/contact-directory/services"
	"github.com/upb/contact-directory/services/importer"
	"go.uber.org/zap"
)

// UploadStore persists imported files
type UploadStore interface {
	Save(ctx context.Context, originalName string, r io.Reader) (*importer.Upload, error)
}

// UploadHandler accepts CSV imports. The body size limit is applied by the router.
type UploadHandler struct {
	store  UploadStore
	logger *zap.Logger
}

// NewUploadHandler creates a new UploadHandler
func NewUploadHandler(store UploadStore, logger *zap.Logger) *UploadHandler {
	return &UploadHandler{
		store:  store,
		logger: logger,
	}
}

// Upload handles POST /api/upload with a multipart "file" field
func (h *UploadHandler) Upload(r *http.Request) (*Outcome, error) {
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, services.ErrInvalidInput.WithDetail("file", "upload exceeds size limit")
		}
		h.logger.Debug("upload without file", zap.Error(err))
		return nil, services.ErrNoFile
	}
	defer file.Close()

	upload, err := h.store.Save(r.Context(), header.Filename, file)
	if err != nil {
		return nil, err
	}

	return &Outcome{
		Data:    map[string]string{"publicUrl": upload.PublicURL},
		Details: upload.Details(),
	}, nil
}
