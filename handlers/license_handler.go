package handlers

import (
	"context"
	"net/http"

	"github.com/upb/contact-directory/middleware"
	"github.com/upb/contact-directory/models"
	"github.com/upb/contact-directory/utils"
	"go.uber.org/zap"
)

// LicenseService defines the license operations used by the handler
type LicenseService interface {
	List(ctx context.Context) ([]*models.License, error)
	Create(ctx context.Context, actor *models.Principal, req *models.CreateLicenseRequest) (*models.License, error)
}

// LicenseHandler handles license-related HTTP requests
type LicenseHandler struct {
	licenses LicenseService
	logger   *zap.Logger
}

// NewLicenseHandler creates a new LicenseHandler
func NewLicenseHandler(licenses LicenseService, logger *zap.Logger) *LicenseHandler {
	return &LicenseHandler{
		licenses: licenses,
		logger:   logger,
	}
}

// HandleList handles GET /api/licenses
func (h *LicenseHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	licenses, err := h.licenses.List(r.Context())
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, licenses)
}

// Create handles POST /api/licenses
func (h *LicenseHandler) Create(r *http.Request) (*Outcome, error) {
	var req models.CreateLicenseRequest
	if err := utils.DecodeJSON(r.Body, &req); err != nil {
		return nil, err
	}

	license, err := h.licenses.Create(r.Context(), middleware.GetPrincipalFromContext(r.Context()), &req)
	if err != nil {
		return nil, err
	}
	return &Outcome{Status: http.StatusCreated, Data: license, EntityID: &license.ID}, nil
}
