package middleware

import (
	"net/http"
	"strings"

	"github.com/upb/contact-directory/models"
	"github.com/upb/contact-directory/services"
	"github.com/upb/contact-directory/services/rbac"
	"github.com/upb/contact-directory/utils"
	"go.uber.org/zap"
)

// TokenVerifier verifies a session token and returns its principal
type TokenVerifier interface {
	Verify(token string) (*models.Principal, error)
}

// AuthMiddleware provides authentication middleware functionality
type AuthMiddleware struct {
	verifier       TokenVerifier
	publicPrefixes []string
	logger         *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware. Requests whose path starts
// with one of publicPrefixes skip authentication.
func NewAuthMiddleware(verifier TokenVerifier, publicPrefixes []string, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		verifier:       verifier,
		publicPrefixes: publicPrefixes,
		logger:         logger,
	}
}

// Authenticate requires a valid bearer token unless the path is public.
// A missing token is rejected with 401, an invalid or expired one with 403.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.isPublic(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		token := extractBearerToken(r)
		if token == "" {
			m.logger.Debug("missing bearer token",
				zap.String("request_id", requestID),
				zap.String("path", r.URL.Path))
			_ = utils.WriteUnauthorized(w, "Unauthorized")
			return
		}

		principal, err := m.verifier.Verify(token)
		if err != nil {
			kind := services.GetErrorType(err)
			if kind == "" {
				kind = services.ErrorTypeTokenInvalid
			}
			m.logger.Warn("token verification failed",
				zap.String("request_id", requestID),
				zap.String("path", r.URL.Path),
				zap.String("kind", string(kind)),
				zap.Error(err))
			_ = utils.WriteError(w, http.StatusForbidden, string(kind), "Forbidden", nil)
			return
		}

		m.logger.Debug("authentication successful",
			zap.String("request_id", requestID),
			zap.Int64("user_id", principal.ID),
			zap.String("role", string(principal.Role)))

		next.ServeHTTP(w, r.WithContext(WithPrincipal(ctx, principal)))
	})
}

// RequireRole is a middleware that requires the authenticated principal to hold role.
// It must be mounted behind Authenticate.
func (m *AuthMiddleware) RequireRole(role models.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			principal := GetPrincipalFromContext(ctx)

			if err := rbac.Require(principal, role); err != nil {
				m.logger.Warn("insufficient privilege",
					zap.String("request_id", GetRequestIDFromContext(ctx)),
					zap.Int64("user_id", principal.ID),
					zap.String("role", string(principal.Role)),
					zap.String("required_role", string(role)))
				_ = utils.WriteError(w, http.StatusForbidden,
					string(services.ErrorTypeInsufficientPrivilege),
					"Require "+string(role)+" privileges", nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (m *AuthMiddleware) isPublic(path string) bool {
	for _, prefix := range m.publicPrefixes {
		if prefix != "" && strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// extractBearerToken extracts the Bearer token from the Authorization header
func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
