package services

import (
	"context"
	"errors"

	"groupsnap-backend/internal/models"
	"groupsnap-backend/internal/repository"

	"github.com/google/uuid"
)

// MembershipStore persists group_members rows
type MembershipStore interface {
	Create(ctx context.Context, m *models.Membership) error
	Exists(ctx context.Context, userID, groupID string) (bool, error)
	ListUserIDs(ctx context.Context, groupID string) ([]string, error)
}

// MembershipService links users to groups, at most once per pair
type MembershipService struct {
	repo MembershipStore
}

// NewMembershipService creates a new membership service
func NewMembershipService(repo MembershipStore) *MembershipService {
	return &MembershipService{repo: repo}
}

// Add links userID to groupID. An existing link is an ALREADY_MEMBER conflict,
// whether it is seen by the existence check or by the unique constraint.
func (s *MembershipService) Add(ctx context.Context, userID, groupID string) (*models.Membership, error) {
	if userID == "" || groupID == "" {
		return nil, models.NewValidationError("user id and group id are required")
	}

	exists, err := s.repo.Exists(ctx, userID, groupID)
	if err != nil {
		return nil, models.NewRemoteError(err)
	}
	if exists {
		return nil, models.NewAlreadyMemberError(groupID)
	}

	m := &models.Membership{
		ID:      uuid.New().String(),
		UserID:  userID,
		GroupID: groupID,
	}
	if err := s.repo.Create(ctx, m); err != nil {
		if errors.Is(err, repository.ErrDuplicateMembership) {
			return nil, models.NewAlreadyMemberError(groupID)
		}
		return nil, models.NewRemoteError(err)
	}
	return m, nil
}

// RequireMember fails with a permission error unless userID belongs to groupID
func (s *MembershipService) RequireMember(ctx context.Context, userID, groupID string) error {
	ok, err := s.repo.Exists(ctx, userID, groupID)
	if err != nil {
		return models.NewRemoteError(err)
	}
	if !ok {
		return models.NewPermissionDeniedError("not a member of this group")
	}
	return nil
}

// MemberIDs lists the users in a group
func (s *MembershipService) MemberIDs(ctx context.Context, groupID string) ([]string, error) {
	ids, err := s.repo.ListUserIDs(ctx, groupID)
	if err != nil {
		return nil, models.NewRemoteError(err)
	}
	return ids, nil
}
