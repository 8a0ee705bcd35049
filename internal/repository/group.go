package repository

import (
	"context"
	"errors"
	"fmt"

	"groupsnap-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// GroupRepository handles database operations for groups
type GroupRepository struct {
	db *pgxpool.Pool
}

// NewGroupRepository creates a new group repository
func NewGroupRepository(db *pgxpool.Pool) *GroupRepository {
	return &GroupRepository{db: db}
}

// Create inserts a group. A join code collision returns ErrDuplicateJoinCode.
func (r *GroupRepository) Create(ctx context.Context, group *models.Group) error {
	query := `
		INSERT INTO groups (id, join_code, group_name, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.db.Exec(ctx, query, group.ID, group.JoinCode, group.GroupName, group.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, joinCodeConstraint) {
			return fmt.Errorf("failed to create group: %w", ErrDuplicateJoinCode)
		}
		return fmt.Errorf("failed to create group: %w", err)
	}
	return nil
}

// GetByJoinCode retrieves a group by its exact join code
func (r *GroupRepository) GetByJoinCode(ctx context.Context, code string) (*models.Group, error) {
	query := `
		SELECT id, join_code, group_name, created_at
		FROM groups
		WHERE join_code = $1
	`
	var group models.Group
	err := r.db.QueryRow(ctx, query, code).Scan(
		&group.ID, &group.JoinCode, &group.GroupName, &group.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("group with code %s: %w", code, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get group by code: %w", err)
	}
	return &group, nil
}

// ListByUserID returns every group the user is a member of
func (r *GroupRepository) ListByUserID(ctx context.Context, userID string) ([]*models.Group, error) {
	query := `
		SELECT g.id, g.join_code, g.group_name, g.created_at
		FROM groups g
		JOIN group_members m ON m.group_id = g.id
		WHERE m.user_id = $1
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	groups := []*models.Group{}
	for rows.Next() {
		var group models.Group
		if err := rows.Scan(&group.ID, &group.JoinCode, &group.GroupName, &group.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, &group)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating groups: %w", err)
	}

	return groups, nil
}
