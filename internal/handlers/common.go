package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"groupsnap-backend/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
	Kind  string `json:"kind,omitempty"`
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}

// respondJSON writes v as the JSON response body
func respondJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// statusFor maps an error's kind and code to an HTTP status
func statusFor(err error) int {
	if models.CodeOf(err) == models.CodeInvalidCredentials {
		return http.StatusUnauthorized
	}
	switch models.KindOf(err) {
	case models.KindValidation:
		return http.StatusBadRequest
	case models.KindNotFound:
		return http.StatusNotFound
	case models.KindConflict:
		return http.StatusConflict
	case models.KindPermission:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// respondServiceError writes a service error. Server-side failures are logged.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", r.URL.Path).Msg(msg)
	} else {
		log.Debug().Err(err).Str("path", r.URL.Path).Msg(msg)
	}

	resp := ErrorResponse{
		Error: err.Error(),
		Code:  models.CodeOf(err),
		Kind:  string(models.KindOf(err)),
	}
	var e *models.Error
	if errors.As(err, &e) {
		resp.Error = e.Message
	}
	respondJSON(w, status, resp)
}

// decodeJSON reads the request body into v
func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return models.NewValidationError("invalid request body")
	}
	return nil
}

// uuidParam reads a URL parameter holding a row id
func uuidParam(r *http.Request, key string) (string, error) {
	v := chi.URLParam(r, key)
	if _, err := uuid.Parse(v); err != nil {
		return "", models.NewValidationError("%s must be a valid id", key)
	}
	return v, nil
}
