package handlers

import (
	"errors"
	"net/http"

	"github.com/atlas-hitl/review-plane/internal/shared"
	"github.com/atlas-hitl/review-plane/utils"
	"go.uber.org/zap"
)

// HandleServiceError maps domain errors to HTTP responses
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, shared.ErrNotFound):
		if werr := utils.WriteNotFound(w, err.Error()); werr != nil {
			logger.Error("failed to write not found response", zap.Error(werr))
		}

	case errors.Is(err, shared.ErrInvalidCredentials):
		if werr := utils.WriteUnauthorized(w, "Invalid email or password"); werr != nil {
			logger.Error("failed to write unauthorized response", zap.Error(werr))
		}

	case errors.Is(err, shared.ErrUnauthorized):
		if werr := utils.WriteUnauthorized(w, err.Error()); werr != nil {
			logger.Error("failed to write unauthorized response", zap.Error(werr))
		}

	case errors.Is(err, shared.ErrEmailTaken):
		if werr := utils.WriteConflict(w, "Email already registered", nil); werr != nil {
			logger.Error("failed to write conflict response", zap.Error(werr))
		}

	case errors.Is(err, shared.ErrCaseAlreadyResolved):
		if werr := utils.WriteConflict(w, err.Error(), nil); werr != nil {
			logger.Error("failed to write conflict response", zap.Error(werr))
		}

	case errors.Is(err, shared.ErrInvalidDecision):
		if werr := utils.WriteBadRequest(w, err.Error(), nil); werr != nil {
			logger.Error("failed to write bad request response", zap.Error(werr))
		}

	default:
		logger.Error("internal server error", zap.Error(err))
		if werr := utils.WriteInternalServerError(w, "An internal error occurred"); werr != nil {
			logger.Error("failed to write internal error response", zap.Error(werr))
		}
	}
}

// HandleValidationError handles validation errors from request parsing
func HandleValidationError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if utils.IsValidationError(err) {
		fields := utils.GetValidationFields(err)
		details := make(map[string]interface{})
		for k, v := range fields {
			details[k] = v
		}
		if werr := utils.WriteBadRequest(w, "Validation failed", details); werr != nil {
			logger.Error("failed to write validation error response", zap.Error(werr))
		}
		return
	}

	if werr := utils.WriteBadRequest(w, err.Error(), nil); werr != nil {
		logger.Error("failed to write validation error response", zap.Error(werr))
	}
}
