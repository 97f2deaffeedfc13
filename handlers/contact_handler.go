package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/upb/contact-directory/middleware"
	"github.com/upb/contact-directory/models"
	"github.com/upb/contact-directory/services"
	"github.com/upb/contact-directory/utils"
	"go.uber.org/zap"
)

// ContactService defines the contact operations used by the handler
type ContactService interface {
	List(ctx context.Context) ([]*models.Contact, error)
	Get(ctx context.Context, id int64) (*models.Contact, error)
	Create(ctx context.Context, in *models.ContactInput) (*models.Contact, error)
	Update(ctx context.Context, id int64, patch *models.ContactPatch) (*models.Contact, error)
	Delete(ctx context.Context, id int64) error
}

// ContactHandler handles contact-related HTTP requests
type ContactHandler struct {
	contacts ContactService
	logger   *zap.Logger
}

// NewContactHandler creates a new ContactHandler
func NewContactHandler(contacts ContactService, logger *zap.Logger) *ContactHandler {
	return &ContactHandler{
		contacts: contacts,
		logger:   logger,
	}
}

// HandleList handles GET /api/contacts
func (h *ContactHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	contacts, err := h.contacts.List(r.Context())
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, contacts)
}

// HandleGet handles GET /api/contacts/{id}
func (h *ContactHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	contact, err := h.contacts.Get(r.Context(), id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, contact)
}

// Create handles POST /api/contacts
func (h *ContactHandler) Create(r *http.Request) (*Outcome, error) {
	var in models.ContactInput
	if err := utils.DecodeJSON(r.Body, &in); err != nil {
		return nil, err
	}

	contact, err := h.contacts.Create(r.Context(), &in)
	if err != nil {
		return nil, err
	}

	h.logger.Info("contact created",
		zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())),
		zap.Int64("contact_id", contact.ID))

	return &Outcome{Status: http.StatusCreated, Data: contact, EntityID: &contact.ID}, nil
}

// Update handles PUT and PATCH /api/contacts/{id}
func (h *ContactHandler) Update(r *http.Request) (*Outcome, error) {
	id, err := pathID(r)
	if err != nil {
		return nil, err
	}

	var patch models.ContactPatch
	if err := utils.DecodeJSON(r.Body, &patch); err != nil {
		return nil, err
	}

	contact, err := h.contacts.Update(r.Context(), id, &patch)
	if err != nil {
		return nil, err
	}
	return &Outcome{Data: contact}, nil
}

// Delete handles DELETE /api/contacts/{id}
func (h *ContactHandler) Delete(r *http.Request) (*Outcome, error) {
	id, err := pathID(r)
	if err != nil {
		return nil, err
	}

	if err := h.contacts.Delete(r.Context(), id); err != nil {
		return nil, err
	}
	return &Outcome{}, nil
}

// pathID parses the {id} route parameter
func pathID(r *http.Request) (int64, error) {
	id, err := utils.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		return 0, services.ErrInvalidID
	}
	return id, nil
}
