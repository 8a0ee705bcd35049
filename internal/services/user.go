package services

import (
	"context"
	"errors"
	"time"

	"groupsnap-backend/internal/models"
	"groupsnap-backend/internal/repository"
)

// UserService manages display names. The users row is the only place a
// display name is stored.
type UserService struct {
	users UserStore
	now   func() time.Time
}

// NewUserService creates a new user service
func NewUserService(users UserStore) *UserService {
	return &UserService{
		users: users,
		now:   time.Now,
	}
}

// Profile is a user plus whether they still have to pick a name
type Profile struct {
	User      *models.User `json:"user"`
	NeedsName bool         `json:"needs_name"`
}

// SetDisplayName stores the user's display name, overwriting any previous one
func (s *UserService) SetDisplayName(ctx context.Context, userID, name string) (*models.User, error) {
	name = cleanName(name)
	if userID == "" {
		return nil, models.NewValidationError("user id is required")
	}
	if name == "" {
		return nil, models.NewValidationError("name is required")
	}

	user := &models.User{
		ID:        userID,
		Name:      &name,
		CreatedAt: s.now(),
	}
	if err := s.users.UpsertName(ctx, user); err != nil {
		return nil, models.NewRemoteError(err)
	}
	return user, nil
}

// GetProfile loads the user's profile. A missing row is not an error; it
// means the name has not been set yet.
func (s *UserService) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &Profile{User: &models.User{ID: userID}, NeedsName: true}, nil
		}
		return nil, models.NewRemoteError(err)
	}

	return &Profile{
		User:      user,
		NeedsName: user.Name == nil || *user.Name == "",
	}, nil
}
