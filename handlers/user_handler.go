package handlers

import (
	"context"
	"net/http"

	"github.com/upb/contact-directory/models"
	"github.com/upb/contact-directory/utils"
	"go.uber.org/zap"
)

// UserService defines the account operations used by the handler
type UserService interface {
	List(ctx context.Context) ([]models.PublicUser, error)
	Create(ctx context.Context, req *models.CreateUserRequest) (*models.PublicUser, error)
	Update(ctx context.Context, id int64, req *models.UpdateUserRequest) (*models.PublicUser, error)
}

// UserHandler handles account management requests
type UserHandler struct {
	users  UserService
	logger *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(users UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		users:  users,
		logger: logger,
	}
}

// HandleList handles GET /api/users
func (h *UserHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, users)
}

// Create handles POST /api/users
func (h *UserHandler) Create(r *http.Request) (*Outcome, error) {
	var req models.CreateUserRequest
	if err := utils.DecodeJSON(r.Body, &req); err != nil {
		return nil, err
	}

	user, err := h.users.Create(r.Context(), &req)
	if err != nil {
		return nil, err
	}
	return &Outcome{Status: http.StatusCreated, Data: user, EntityID: &user.ID}, nil
}

// Update handles PUT and PATCH /api/users/{id}
func (h *UserHandler) Update(r *http.Request) (*Outcome, error) {
	id, err := pathID(r)
	if err != nil {
		return nil, err
	}

	var req models.UpdateUserRequest
	if err := utils.DecodeJSON(r.Body, &req); err != nil {
		return nil, err
	}

	user, err := h.users.Update(r.Context(), id, &req)
	if err != nil {
		return nil, err
	}
	return &Outcome{Data: user}, nil
}
