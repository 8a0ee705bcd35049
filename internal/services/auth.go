package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"groupsnap-backend/internal/models"
	"groupsnap-backend/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

// AuthEvent is a session change delivered to listeners
type AuthEvent string

const (
	AuthSignedIn  AuthEvent = "SIGNED_IN"
	AuthSignedOut AuthEvent = "SIGNED_OUT"
)

// AuthListener receives session changes. Listeners run synchronously and must not block.
type AuthListener func(event AuthEvent, session *models.Session)

// UserStore persists users and their credentials
type UserStore interface {
	CreateWithIdentity(ctx context.Context, user *models.User, identity *models.Identity) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	UpsertName(ctx context.Context, user *models.User) error
	GetIdentityByEmail(ctx context.Context, email string) (*models.Identity, error)
}

// TokenRevoker remembers signed-out token ids until they expire
type TokenRevoker interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// AuthService is the identity store: it registers users, issues and revokes sessions
type AuthService struct {
	users      UserStore
	revoker    TokenRevoker
	jwtSecret  string
	tokenTTL   time.Duration
	bcryptCost int
	now        func() time.Time

	mu        sync.RWMutex
	listeners map[int]AuthListener
	nextID    int
}

// NewAuthService creates a new auth service
func NewAuthService(users UserStore, revoker TokenRevoker, jwtSecret string, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		users:      users,
		revoker:    revoker,
		jwtSecret:  jwtSecret,
		tokenTTL:   tokenTTL,
		bcryptCost: bcrypt.DefaultCost,
		now:        time.Now,
		listeners:  make(map[int]AuthListener),
	}
}

// AuthResult is returned by SignUp
type AuthResult struct {
	User    *models.User    `json:"user"`
	Session *models.Session `json:"session"`
}

// SignUp registers a user with a display name and signs them in
func (s *AuthService) SignUp(ctx context.Context, email, password, displayName string) (*AuthResult, error) {
	email = normalizeEmail(email)
	password = strings.TrimSpace(password)
	displayName = cleanName(displayName)

	if email == "" || password == "" || displayName == "" {
		return nil, models.NewValidationError("email, password and name are required")
	}
	if !strings.Contains(email, "@") {
		return nil, models.NewValidationError("invalid email address")
	}
	if len(password) < minPasswordLength {
		return nil, models.NewValidationError("password must be at least %d characters", minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, models.NewRemoteError(err)
	}

	now := s.now()
	user := &models.User{
		ID:        uuid.New().String(),
		Name:      &displayName,
		CreatedAt: now,
	}
	identity := &models.Identity{
		UserID:       user.ID,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    now,
	}

	if err := s.users.CreateWithIdentity(ctx, user, identity); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, models.NewEmailTakenError()
		}
		return nil, models.NewRemoteError(err)
	}

	session, err := s.issueSession(user.ID)
	if err != nil {
		return nil, models.NewRemoteError(err)
	}

	s.emit(AuthSignedIn, session)
	return &AuthResult{User: user, Session: session}, nil
}

// SignIn checks credentials and issues a session
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	email = normalizeEmail(email)
	password = strings.TrimSpace(password)
	if email == "" || password == "" {
		return nil, models.NewValidationError("email and password are required")
	}

	identity, err := s.users.GetIdentityByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, models.NewInvalidCredentialsError()
		}
		return nil, models.NewRemoteError(err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(password)); err != nil {
		return nil, models.NewInvalidCredentialsError()
	}

	session, err := s.issueSession(identity.UserID)
	if err != nil {
		return nil, models.NewRemoteError(err)
	}

	s.emit(AuthSignedIn, session)
	return session, nil
}

// SignOut revokes the session's token until it would have expired
func (s *AuthService) SignOut(ctx context.Context, session *models.Session) error {
	if session == nil || session.TokenID == "" {
		return models.NewValidationError("session is required")
	}

	ttl := session.ExpiresAt.Sub(s.now())
	if err := s.revoker.Revoke(ctx, session.TokenID, ttl); err != nil {
		return models.NewRemoteError(err)
	}

	s.emit(AuthSignedOut, session)
	return nil
}

// ValidateToken parses a bearer token and checks that it was not signed out
func (s *AuthService) ValidateToken(ctx context.Context, tokenString string) (*models.Session, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return nil, models.NewPermissionDeniedError("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, models.NewPermissionDeniedError("invalid token claims")
	}

	userID, _ := claims["user_id"].(string)
	tokenID, _ := claims["jti"].(string)
	if userID == "" || tokenID == "" {
		return nil, models.NewPermissionDeniedError("invalid token claims")
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, models.NewPermissionDeniedError("token has no expiry")
	}

	revoked, err := s.revoker.IsRevoked(ctx, tokenID)
	if err != nil {
		return nil, models.NewRemoteError(err)
	}
	if revoked {
		return nil, models.NewPermissionDeniedError("session has been signed out")
	}

	return &models.Session{
		UserID:    userID,
		Token:     tokenString,
		TokenID:   tokenID,
		ExpiresAt: exp.Time,
	}, nil
}

// OnAuthStateChange registers a listener and returns a function that removes it
func (s *AuthService) OnAuthStateChange(listener AuthListener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = listener
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *AuthService) emit(event AuthEvent, session *models.Session) {
	s.mu.RLock()
	listeners := make([]AuthListener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.RUnlock()

	log.Debug().Str("event", string(event)).Str("user_id", session.UserID).Msg("Auth state changed")
	for _, l := range listeners {
		l(event, session)
	}
}

// issueSession signs an HS256 token for userID
func (s *AuthService) issueSession(userID string) (*models.Session, error) {
	now := s.now()
	expiresAt := now.Add(s.tokenTTL)
	tokenID := uuid.New().String()

	claims := jwt.MapClaims{
		"user_id": userID,
		"jti":     tokenID,
		"exp":     expiresAt.Unix(),
		"iat":     now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &models.Session{
		UserID:    userID,
		Token:     tokenString,
		TokenID:   tokenID,
		ExpiresAt: time.Unix(expiresAt.Unix(), 0),
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
