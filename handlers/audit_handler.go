package handlers

import (
	"context"
	"net/http"

	"github.com/upb/contact-directory/models"
	"github.com/upb/contact-directory/services"
	"github.com/upb/contact-directory/utils"
	"go.uber.org/zap"
)

// AuditReader lists recent audit entries
type AuditReader interface {
	Recent(ctx context.Context) ([]*models.AuditLog, error)
}

// AuditLogHandler serves the audit trail
type AuditLogHandler struct {
	audit  AuditReader
	logger *zap.Logger
}

// NewAuditLogHandler creates a new AuditLogHandler
func NewAuditLogHandler(audit AuditReader, logger *zap.Logger) *AuditLogHandler {
	return &AuditLogHandler{
		audit:  audit,
		logger: logger,
	}
}

// HandleList handles GET /api/audit-logs
func (h *AuditLogHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	logs, err := h.audit.Recent(r.Context())
	if err != nil {
		HandleServiceError(w, services.FromRepository(err, nil, nil), h.logger)
		return
	}
	_ = utils.WriteOK(w, logs)
}
