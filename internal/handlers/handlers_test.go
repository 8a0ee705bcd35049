package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"groupsnap-backend/internal/middleware"
	"groupsnap-backend/internal/models"
	"groupsnap-backend/internal/services"
)

func jsonRequest(t *testing.T, method, target string, body interface{}) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func asUser(req *http.Request, userID string) *http.Request {
	session := &models.Session{UserID: userID, TokenID: "tok-" + userID, ExpiresAt: time.Now().Add(time.Hour)}
	return req.WithContext(middleware.WithSession(req.Context(), session))
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return resp
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", models.NewValidationError("bad"), http.StatusBadRequest},
		{"invalid join code", models.NewInvalidJoinCodeError("XXXXXX"), http.StatusNotFound},
		{"already member", models.NewAlreadyMemberError("g1"), http.StatusConflict},
		{"upload in progress", models.NewUploadInProgressError(), http.StatusConflict},
		{"permission", models.NewPermissionDeniedError("no"), http.StatusForbidden},
		{"credentials", models.NewInvalidCredentialsError(), http.StatusUnauthorized},
		{"remote", models.NewRemoteError(errors.New("down")), http.StatusInternalServerError},
		{"orphan", models.NewOrphanedObjectError("photos/x", errors.New("x")), http.StatusInternalServerError},
		{"foreign", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Errorf("statusFor() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAuthHandler_SignUp(t *testing.T) {
	auth := &mockAuth{
		signUpFn: func(ctx context.Context, email, password, name string) (*services.AuthResult, error) {
			if email == "taken@b.c" {
				return nil, models.NewEmailTakenError()
			}
			return &services.AuthResult{
				User:    &models.User{ID: "u1", Name: strPtr(name)},
				Session: &models.Session{UserID: "u1", Token: "jwt"},
			}, nil
		},
	}
	h := NewAuthHandler(auth)

	w := httptest.NewRecorder()
	h.SignUp(w, jsonRequest(t, http.MethodPost, "/api/v1/auth/signup", signUpRequest{Email: "a@b.c", Password: "secret1", Name: "Alice"}))
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", w.Code)
	}
	var res struct {
		User    models.User `json:"user"`
		Session struct {
			Token string `json:"access_token"`
		} `json:"session"`
	}
	if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Session.Token != "jwt" || *res.User.Name != "Alice" {
		t.Errorf("response = %+v", res)
	}

	w = httptest.NewRecorder()
	h.SignUp(w, jsonRequest(t, http.MethodPost, "/api/v1/auth/signup", signUpRequest{Email: "taken@b.c", Password: "secret1", Name: "B"}))
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", w.Code)
	}
	if resp := decodeError(t, w); resp.Code != models.CodeEmailTaken {
		t.Errorf("code = %q, want %q", resp.Code, models.CodeEmailTaken)
	}
}

func TestAuthHandler_SignInBadBody(t *testing.T) {
	h := NewAuthHandler(&mockAuth{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/signin", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	h.SignIn(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestAuthHandler_SignInWrongPassword(t *testing.T) {
	h := NewAuthHandler(&mockAuth{
		signInFn: func(ctx context.Context, email, password string) (*models.Session, error) {
			return nil, models.NewInvalidCredentialsError()
		},
	})

	w := httptest.NewRecorder()
	h.SignIn(w, jsonRequest(t, http.MethodPost, "/api/v1/auth/signin", signInRequest{Email: "a@b.c", Password: "nope"}))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuthHandler_SignOut(t *testing.T) {
	var signedOut *models.Session
	h := NewAuthHandler(&mockAuth{
		signOutFn: func(ctx context.Context, session *models.Session) error {
			signedOut = session
			return nil
		},
	})

	w := httptest.NewRecorder()
	h.SignOut(w, asUser(httptest.NewRequest(http.MethodPost, "/api/v1/auth/signout", nil), "u1"))
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}
	if signedOut == nil || signedOut.TokenID != "tok-u1" {
		t.Errorf("signed out session = %+v", signedOut)
	}

	w = httptest.NewRecorder()
	h.SignOut(w, httptest.NewRequest(http.MethodPost, "/api/v1/auth/signout", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("without session: status = %d, want 401", w.Code)
	}
}

func TestUserHandler_MeAndSetName(t *testing.T) {
	names := map[string]string{}
	h := NewUserHandler(&mockProfiles{
		getFn: func(ctx context.Context, userID string) (*services.Profile, error) {
			name, ok := names[userID]
			if !ok {
				return &services.Profile{User: &models.User{ID: userID}, NeedsName: true}, nil
			}
			return &services.Profile{User: &models.User{ID: userID, Name: &name}}, nil
		},
		setFn: func(ctx context.Context, userID, name string) (*models.User, error) {
			if name == "" {
				return nil, models.NewValidationError("name is required")
			}
			names[userID] = name
			return &models.User{ID: userID, Name: &name}, nil
		},
	})

	w := httptest.NewRecorder()
	h.Me(w, asUser(httptest.NewRequest(http.MethodGet, "/api/v1/me", nil), "u1"))
	var profile services.Profile
	if err := json.NewDecoder(w.Body).Decode(&profile); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !profile.NeedsName {
		t.Error("expected needs_name before a name is set")
	}

	w = httptest.NewRecorder()
	h.SetName(w, asUser(jsonRequest(t, http.MethodPut, "/api/v1/me/name", setNameRequest{Name: "Sam"}), "u1"))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	w = httptest.NewRecorder()
	h.SetName(w, asUser(jsonRequest(t, http.MethodPut, "/api/v1/me/name", setNameRequest{}), "u1"))
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty name: status = %d, want 400", w.Code)
	}
}
