package handlers

import (
	"context"
	"net/http"

	"github.com/upb/contact-directory/middleware"
	"github.com/upb/contact-directory/models"
	"github.com/upb/contact-directory/services"
	"github.com/upb/contact-directory/services/auth"
	"github.com/upb/contact-directory/utils"
	"go.uber.org/zap"
)

// LoginService verifies credentials and issues tokens
type LoginService interface {
	Login(ctx context.Context, req models.LoginRequest, clientIP string) (*auth.LoginResult, error)
}

// LoginResponse is the body returned by a successful login
type LoginResponse struct {
	User        models.PublicUser `json:"user"`
	AccessToken string            `json:"access_token"`
	Error       *string           `json:"error"`
}

// AuthHandler handles login and identity requests
type AuthHandler struct {
	login  LoginService
	logger *zap.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(login LoginService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		login:  login,
		logger: logger,
	}
}

// HandleLogin handles POST /api/auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := utils.DecodeJSON(r.Body, &req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	result, err := h.login.Login(r.Context(), req, middleware.ClientIP(r))
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteJSON(w, http.StatusOK, LoginResponse{
		User:        result.User,
		AccessToken: result.AccessToken,
	}); err != nil {
		h.logger.Error("failed to write login response", zap.Error(err))
	}
}

// HandleMe handles GET /api/auth/me and returns the token claims
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipalFromContext(r.Context())
	if principal == nil {
		HandleServiceError(w, services.ErrUnauthenticated, h.logger)
		return
	}
	_ = utils.WriteJSON(w, http.StatusOK, principal)
}
