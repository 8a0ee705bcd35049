package repository

import (
	"context"
	"fmt"

	"groupsnap-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// MembershipRepository handles database operations for group_members
type MembershipRepository struct {
	db *pgxpool.Pool
}

// NewMembershipRepository creates a new membership repository
func NewMembershipRepository(db *pgxpool.Pool) *MembershipRepository {
	return &MembershipRepository{db: db}
}

// Create inserts a membership. An existing (user, group) pair returns ErrDuplicateMembership.
func (r *MembershipRepository) Create(ctx context.Context, m *models.Membership) error {
	query := `
		INSERT INTO group_members (id, user_id, group_id)
		VALUES ($1, $2, $3)
	`
	_, err := r.db.Exec(ctx, query, m.ID, m.UserID, m.GroupID)
	if err != nil {
		if isUniqueViolation(err, membershipConstraint) {
			return fmt.Errorf("failed to create membership: %w", ErrDuplicateMembership)
		}
		return fmt.Errorf("failed to create membership: %w", err)
	}
	return nil
}

// Exists checks whether the user belongs to the group
func (r *MembershipRepository) Exists(ctx context.Context, userID, groupID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM group_members WHERE user_id = $1 AND group_id = $2)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, userID, groupID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return exists, nil
}

// ListUserIDs returns the ids of all members of a group
func (r *MembershipRepository) ListUserIDs(ctx context.Context, groupID string) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT user_id FROM group_members WHERE group_id = $1`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating members: %w", err)
	}
	return ids, nil
}
