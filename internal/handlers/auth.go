package handlers

import (
	"context"
	"net/http"

	"groupsnap-backend/internal/middleware"
	"groupsnap-backend/internal/models"
	"groupsnap-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// Authenticator is the identity store used by AuthHandler
type Authenticator interface {
	SignUp(ctx context.Context, email, password, displayName string) (*services.AuthResult, error)
	SignIn(ctx context.Context, email, password string) (*models.Session, error)
	SignOut(ctx context.Context, session *models.Session) error
}

// AuthHandler handles sign-up, sign-in and sign-out
type AuthHandler struct {
	auth Authenticator
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(auth Authenticator) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type signUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUp handles POST /api/v1/auth/signup
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := decodeJSON(r, &req); err != nil {
		respondServiceError(w, r, err, "Invalid sign-up request")
		return
	}

	res, err := h.auth.SignUp(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		respondServiceError(w, r, err, "Failed to sign up")
		return
	}

	log.Info().Str("user_id", res.User.ID).Msg("User signed up")
	respondJSON(w, http.StatusCreated, res)
}

// SignIn handles POST /api/v1/auth/signin
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decodeJSON(r, &req); err != nil {
		respondServiceError(w, r, err, "Invalid sign-in request")
		return
	}

	session, err := h.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		respondServiceError(w, r, err, "Failed to sign in")
		return
	}

	respondJSON(w, http.StatusOK, session)
}

// SignOut handles POST /api/v1/auth/signout
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r.Context())
	if session == nil {
		respondError(w, "Not signed in", http.StatusUnauthorized)
		return
	}

	if err := h.auth.SignOut(r.Context(), session); err != nil {
		respondServiceError(w, r, err, "Failed to sign out")
		return
	}

	log.Info().Str("user_id", session.UserID).Msg("User signed out")
	w.WriteHeader(http.StatusNoContent)
}
