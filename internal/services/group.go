package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"groupsnap-backend/internal/metrics"
	"groupsnap-backend/internal/models"
	"groupsnap-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// maxCodeAttempts bounds join code generation. The keyspace is 32^6, so
// hitting this bound means the registry is close to saturation; treat it as
// a capacity signal rather than raising the bound.
const maxCodeAttempts = 10

// GroupStore persists groups. Create must return repository.ErrDuplicateJoinCode
// when the join code is already taken.
type GroupStore interface {
	Create(ctx context.Context, group *models.Group) error
	GetByJoinCode(ctx context.Context, code string) (*models.Group, error)
	ListByUserID(ctx context.Context, userID string) ([]*models.Group, error)
}

// GroupService owns group records and join codes
type GroupService struct {
	groups   GroupStore
	members  *MembershipService
	generate CodeGenerator
	metrics  metrics.Recorder
	now      func() time.Time
}

// NewGroupService creates a new group service
func NewGroupService(groups GroupStore, members *MembershipService, generate CodeGenerator, rec metrics.Recorder) *GroupService {
	return &GroupService{
		groups:   groups,
		members:  members,
		generate: generate,
		metrics:  rec,
		now:      time.Now,
	}
}

// GroupCreation is the result of CreateGroup. MembershipWarning is set when the
// group exists but the creator could not be added; joining with the code retries it.
type GroupCreation struct {
	Group             *models.Group `json:"group"`
	MembershipWarning string        `json:"warning,omitempty"`
}

// CreateGroup creates a group with a fresh join code and adds the creator as a member.
// The unique constraint on join_code decides collisions; each collision draws a new code.
func (s *GroupService) CreateGroup(ctx context.Context, name, creatorUserID string) (*GroupCreation, error) {
	name = cleanName(name)
	if name == "" {
		return nil, models.NewValidationError("group name is required")
	}
	if creatorUserID == "" {
		return nil, models.NewValidationError("user id is required")
	}

	var group *models.Group
	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		code, err := s.generate()
		if err != nil {
			return nil, models.NewRemoteError(err)
		}

		candidate := &models.Group{
			ID:        uuid.New().String(),
			JoinCode:  code,
			GroupName: name,
			CreatedAt: s.now(),
		}
		err = s.groups.Create(ctx, candidate)
		if errors.Is(err, repository.ErrDuplicateJoinCode) {
			s.metrics.RecordJoinCodeCollision()
			log.Debug().Int("attempt", attempt).Msg("Join code collision, retrying")
			continue
		}
		if err != nil {
			return nil, models.NewRemoteError(err)
		}
		group = candidate
		break
	}

	if group == nil {
		log.Error().Int("attempts", maxCodeAttempts).Msg("Join code space exhausted")
		return nil, models.NewCodeGenerationExhaustedError(maxCodeAttempts)
	}
	s.metrics.RecordGroupCreated()

	result := &GroupCreation{Group: group}
	if _, err := s.members.Add(ctx, creatorUserID, group.ID); err != nil {
		log.Warn().
			Err(err).
			Str("user_id", creatorUserID).
			Str("group_id", group.ID).
			Msg("Group created but creator membership failed")
		result.MembershipWarning = fmt.Sprintf("group created but membership was not recorded: %v", err)
	}

	return result, nil
}

// JoinGroup adds userID to the group identified by code (case-insensitive)
func (s *GroupService) JoinGroup(ctx context.Context, code, userID string) (*models.Group, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, models.NewValidationError("join code is required")
	}
	if userID == "" {
		return nil, models.NewValidationError("user id is required")
	}

	group, err := s.joinGroup(ctx, code, userID)
	if err != nil {
		s.metrics.RecordJoinAttempt(models.CodeOf(err))
		return nil, err
	}
	s.metrics.RecordJoinAttempt("joined")
	return group, nil
}

func (s *GroupService) joinGroup(ctx context.Context, code, userID string) (*models.Group, error) {
	group, err := s.groups.GetByJoinCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, models.NewInvalidJoinCodeError(code)
		}
		return nil, models.NewRemoteError(err)
	}

	if _, err := s.members.Add(ctx, userID, group.ID); err != nil {
		return nil, err
	}
	return group, nil
}

// ListUserGroups returns the groups userID belongs to, in no particular order
func (s *GroupService) ListUserGroups(ctx context.Context, userID string) ([]*models.Group, error) {
	if userID == "" {
		return nil, models.NewValidationError("user id is required")
	}
	groups, err := s.groups.ListByUserID(ctx, userID)
	if err != nil {
		return nil, models.NewRemoteError(err)
	}
	return groups, nil
}
