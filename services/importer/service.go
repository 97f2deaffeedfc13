// Package importer stores uploaded import files for later processing.
package importer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/upb/contact-directory/services"
	"go.uber.org/zap"
)

// PublicPrefix is the URL path stored files are served under
const PublicPrefix = "/storage/imports/"

// Upload describes a stored file
type Upload struct {
	PublicURL    string `json:"publicUrl"`
	StoredName   string `json:"-"`
	OriginalName string `json:"-"`
	Size         int64  `json:"-"`
}

// Service writes uploads into a directory
type Service struct {
	dir    string
	logger *zap.Logger
}

// NewService creates a new importer rooted at dir
func NewService(dir string, logger *zap.Logger) *Service {
	return &Service{
		dir:    dir,
		logger: logger,
	}
}

// Dir returns the directory uploads are written to
func (s *Service) Dir() string {
	return s.dir
}

// Save copies r into a new file named after a fresh uuid and the original extension
func (s *Service) Save(ctx context.Context, originalName string, r io.Reader) (*Upload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, services.WrapInternal("failed to create upload directory", err)
	}

	stored := uuid.NewString() + safeExt(originalName)
	path := filepath.Join(s.dir, stored)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, services.WrapInternal("failed to create upload file", err)
	}

	n, copyErr := io.Copy(f, r)
	closeErr := f.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(path)
		if copyErr == nil {
			copyErr = closeErr
		}
		return nil, services.WrapInternal("failed to write upload", copyErr)
	}

	s.logger.Info("stored upload",
		zap.String("stored_name", stored),
		zap.String("original_name", originalName),
		zap.Int64("size", n))

	return &Upload{
		PublicURL:    PublicPrefix + stored,
		StoredName:   stored,
		OriginalName: originalName,
		Size:         n,
	}, nil
}

// Details summarises an upload for the audit trail
func (u *Upload) Details() string {
	return fmt.Sprintf("Imported %s (%d bytes) as %s", u.OriginalName, u.Size, u.StoredName)
}

// safeExt returns a short alphanumeric extension of name, or ""
func safeExt(name string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(name)))
	if len(ext) < 2 || len(ext) > 10 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
