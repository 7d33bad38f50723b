package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/heraerp/hera-engine/pkg/apperrors"
)

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// WriteError maps engine errors onto HTTP statuses. Unknown errors become an
// opaque 500 so internals never leak to clients.
func WriteError(w http.ResponseWriter, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, apperrors.ErrImbalance):
		_ = ErrorResponse(w, http.StatusUnprocessableEntity, "imbalance", err.Error())
	case errors.Is(err, apperrors.ErrValidation):
		_ = ErrorResponse(w, http.StatusUnprocessableEntity, "validation_failed", err.Error())
	case errors.Is(err, apperrors.ErrActorNotFound):
		_ = ErrorResponse(w, http.StatusNotFound, "actor_not_found", err.Error())
	case errors.Is(err, apperrors.ErrNotFound):
		_ = ErrorResponse(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, apperrors.ErrCrossOrgAccess):
		_ = ErrorResponse(w, http.StatusForbidden, "cross_org_access", err.Error())
	case errors.Is(err, apperrors.ErrDuplicateCode):
		_ = ErrorResponse(w, http.StatusConflict, "duplicate_code", err.Error())
	case errors.Is(err, apperrors.ErrCycle):
		_ = ErrorResponse(w, http.StatusConflict, "cycle_detected", err.Error())
	case errors.Is(err, apperrors.ErrStaleVersion):
		_ = ErrorResponse(w, http.StatusConflict, "stale_version", err.Error())
	default:
		logger.Error("request failed", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
