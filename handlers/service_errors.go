package handlers

import (
	"net/http"

	"github.com/upb/contact-directory/services"
	"github.com/upb/contact-directory/utils"
	"go.uber.org/zap"
)

// statusFor maps a domain error type to its HTTP status
func statusFor(t services.ErrorType) int {
	switch t {
	case services.ErrorTypeNotFound:
		return http.StatusNotFound
	case services.ErrorTypeValidation:
		return http.StatusBadRequest
	case services.ErrorTypeUnauthenticated, services.ErrorTypeInvalidCredentials:
		return http.StatusUnauthorized
	case services.ErrorTypeTokenInvalid, services.ErrorTypeTokenExpired,
		services.ErrorTypeInsufficientPrivilege, services.ErrorTypeLicenseRequired:
		return http.StatusForbidden
	case services.ErrorTypeConflict:
		return http.StatusConflict
	case services.ErrorTypeRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// HandleServiceError maps domain errors to HTTP responses
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	if utils.IsValidationError(err) {
		HandleValidationError(w, err, logger)
		return
	}

	errType := services.GetErrorType(err)
	status := statusFor(errType)

	if status == http.StatusInternalServerError {
		// Log internal errors but return generic message
		logger.Error("internal server error",
			zap.Error(err),
			zap.String("error_type", string(errType)))
		if err := utils.WriteInternalServerError(w, "An internal error occurred"); err != nil {
			logger.Error("failed to write internal error response", zap.Error(err))
		}
		return
	}

	logger.Debug("handled service error",
		zap.String("type", string(errType)),
		zap.Error(err))

	if err := utils.WriteError(w, status, string(errType), services.GetErrorMessage(err), services.GetErrorDetails(err)); err != nil {
		logger.Error("failed to write error response", zap.Error(err))
	}
}

// HandleValidationError handles validation errors from request parsing
func HandleValidationError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if utils.IsValidationError(err) {
		fields := utils.GetValidationFields(err)
		details := make(map[string]interface{}, len(fields))
		for k, v := range fields {
			details[k] = v
		}
		if err := utils.WriteBadRequest(w, err.Error(), details); err != nil {
			logger.Error("failed to write validation error response", zap.Error(err))
		}
		return
	}

	// Generic validation error
	if err := utils.WriteBadRequest(w, err.Error(), nil); err != nil {
		logger.Error("failed to write validation error response", zap.Error(err))
	}
}
