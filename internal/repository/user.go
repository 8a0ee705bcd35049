package repository

import (
	"context"
	"errors"
	"fmt"

	"groupsnap-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository handles database operations for users and their identities
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// CreateWithIdentity inserts the profile row and the credentials row in one transaction
func (r *UserRepository) CreateWithIdentity(ctx context.Context, user *models.User, identity *models.Identity) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO users (id, name, created_at) VALUES ($1, $2, $3)`,
		user.ID, user.Name, user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO identities (user_id, email, password_hash, created_at) VALUES ($1, $2, $3, $4)`,
		identity.UserID, identity.Email, identity.PasswordHash, identity.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, emailConstraint) {
			return fmt.Errorf("failed to create identity: %w", ErrDuplicateEmail)
		}
		return fmt.Errorf("failed to create identity: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `
		SELECT id, name, created_at
		FROM users
		WHERE id = $1
	`
	var user models.User
	err := r.db.QueryRow(ctx, query, id).Scan(&user.ID, &user.Name, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// UpsertName sets the display name, creating the row if it does not exist yet
func (r *UserRepository) UpsertName(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, name, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name
		RETURNING created_at
	`
	err := r.db.QueryRow(ctx, query, user.ID, user.Name, user.CreatedAt).Scan(&user.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert user name: %w", err)
	}
	return nil
}

// GetIdentityByEmail retrieves credentials by lower-cased email
func (r *UserRepository) GetIdentityByEmail(ctx context.Context, email string) (*models.Identity, error) {
	query := `
		SELECT user_id, email, password_hash, created_at
		FROM identities
		WHERE email = $1
	`
	var identity models.Identity
	err := r.db.QueryRow(ctx, query, email).Scan(
		&identity.UserID, &identity.Email, &identity.PasswordHash, &identity.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("identity %s: %w", email, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get identity: %w", err)
	}
	return &identity, nil
}
