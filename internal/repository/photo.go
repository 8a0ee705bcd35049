package repository

import (
	"context"
	"errors"
	"fmt"

	"groupsnap-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PhotoRepository handles database operations for photos
type PhotoRepository struct {
	db *pgxpool.Pool
}

// NewPhotoRepository creates a new photo repository
func NewPhotoRepository(db *pgxpool.Pool) *PhotoRepository {
	return &PhotoRepository{db: db}
}

const photoColumns = `id, group_id, user_id, s3_key, uploaded_at, expires_at`

// Create creates a new photo
func (r *PhotoRepository) Create(ctx context.Context, photo *models.Photo) error {
	query := `
		INSERT INTO photos (id, group_id, user_id, s3_key, uploaded_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.Exec(ctx, query,
		photo.ID, photo.GroupID, photo.UserID, photo.StorageKey, photo.UploadedAt, photo.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create photo: %w", err)
	}
	return nil
}

// GetByID retrieves a photo by ID
func (r *PhotoRepository) GetByID(ctx context.Context, id string) (*models.Photo, error) {
	query := `SELECT ` + photoColumns + ` FROM photos WHERE id = $1`
	var photo models.Photo
	err := r.db.QueryRow(ctx, query, id).Scan(
		&photo.ID, &photo.GroupID, &photo.UserID, &photo.StorageKey,
		&photo.UploadedAt, &photo.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("photo %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get photo: %w", err)
	}
	return &photo, nil
}

// ListByGroupID returns a group's photos, newest first
func (r *PhotoRepository) ListByGroupID(ctx context.Context, groupID string) ([]*models.Photo, error) {
	query := `SELECT ` + photoColumns + ` FROM photos WHERE group_id = $1 ORDER BY uploaded_at DESC`
	return r.list(ctx, query, groupID)
}

// ListByUserID returns a user's uploads, newest first
func (r *PhotoRepository) ListByUserID(ctx context.Context, userID string) ([]*models.Photo, error) {
	query := `SELECT ` + photoColumns + ` FROM photos WHERE user_id = $1 ORDER BY uploaded_at DESC`
	return r.list(ctx, query, userID)
}

func (r *PhotoRepository) list(ctx context.Context, query string, arg string) ([]*models.Photo, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to get photos: %w", err)
	}
	defer rows.Close()

	photos := []*models.Photo{}
	for rows.Next() {
		var photo models.Photo
		err := rows.Scan(
			&photo.ID, &photo.GroupID, &photo.UserID, &photo.StorageKey,
			&photo.UploadedAt, &photo.ExpiresAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan photo: %w", err)
		}
		photos = append(photos, &photo)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating photos: %w", err)
	}

	return photos, nil
}

// Delete deletes a photo row by ID
func (r *PhotoRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM photos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete photo: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("photo %s: %w", id, ErrNotFound)
	}
	return nil
}
