package handlers

import (
	"context"
	"net/http"

	"groupsnap-backend/internal/middleware"
	"groupsnap-backend/internal/models"
	"groupsnap-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// ProfileService reads and updates display names
type ProfileService interface {
	GetProfile(ctx context.Context, userID string) (*services.Profile, error)
	SetDisplayName(ctx context.Context, userID, name string) (*models.User, error)
}

// UserHandler handles user-related HTTP requests
type UserHandler struct {
	profiles ProfileService
}

// NewUserHandler creates a new user handler
func NewUserHandler(profiles ProfileService) *UserHandler {
	return &UserHandler{
		profiles: profiles,
	}
}

type setNameRequest struct {
	Name string `json:"name"`
}

// Me handles GET /api/v1/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	profile, err := h.profiles.GetProfile(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, err, "Failed to load profile")
		return
	}

	respondJSON(w, http.StatusOK, profile)
}

// SetName handles PUT /api/v1/me/name
func (h *UserHandler) SetName(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req setNameRequest
	if err := decodeJSON(r, &req); err != nil {
		respondServiceError(w, r, err, "Invalid name request")
		return
	}

	user, err := h.profiles.SetDisplayName(r.Context(), userID, req.Name)
	if err != nil {
		respondServiceError(w, r, err, "Failed to set display name")
		return
	}

	log.Info().Str("user_id", userID).Msg("Display name updated")
	respondJSON(w, http.StatusOK, user)
}
