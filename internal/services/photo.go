package services

import (
	"context"
	"errors"
	"slices"
	"time"

	"groupsnap-backend/internal/models"
	"groupsnap-backend/internal/repository"
	"groupsnap-backend/internal/storage"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// PhotoStore persists photo metadata
type PhotoStore interface {
	Create(ctx context.Context, photo *models.Photo) error
	GetByID(ctx context.Context, id string) (*models.Photo, error)
	ListByGroupID(ctx context.Context, groupID string) ([]*models.Photo, error)
	ListByUserID(ctx context.Context, userID string) ([]*models.Photo, error)
	Delete(ctx context.Context, id string) error
}

// URLCache caches presigned URLs by storage key
type URLCache interface {
	GetURL(ctx context.Context, storageKey string) (string, bool, error)
	SetURL(ctx context.Context, storageKey, url string, ttl time.Duration) error
	DeleteURL(ctx context.Context, storageKey string) error
}

// PhotoService handles photo metadata and display URLs
type PhotoService struct {
	photos     PhotoStore
	objects    storage.ObjectStore
	urls       URLCache
	presignTTL time.Duration
	now        func() time.Time
}

// NewPhotoService creates a new photo service
func NewPhotoService(photos PhotoStore, objects storage.ObjectStore, urls URLCache, presignTTL time.Duration) *PhotoService {
	if presignTTL <= 0 {
		presignTTL = time.Hour
	}
	return &PhotoService{
		photos:     photos,
		objects:    objects,
		urls:       urls,
		presignTTL: presignTTL,
		now:        time.Now,
	}
}

// RecordPhoto inserts metadata for bytes already in object storage.
// A nil expiresAt means uploaded_at plus models.PhotoRetention.
func (s *PhotoService) RecordPhoto(ctx context.Context, groupID, userID, storageKey string, expiresAt *time.Time) (*models.Photo, error) {
	if groupID == "" || userID == "" || storageKey == "" {
		return nil, models.NewValidationError("group id, user id and storage key are required")
	}

	uploadedAt := s.now().UTC()
	expires := uploadedAt.Add(models.PhotoRetention)
	if expiresAt != nil {
		expires = *expiresAt
	}
	return s.record(ctx, groupID, userID, storageKey, uploadedAt, expires)
}

// RecordUpload inserts metadata for bytes stored at uploadedAt. The row expires
// together with the object written at that instant.
func (s *PhotoService) RecordUpload(ctx context.Context, groupID, userID, storageKey string, uploadedAt time.Time) (*models.Photo, error) {
	if groupID == "" || userID == "" || storageKey == "" {
		return nil, models.NewValidationError("group id, user id and storage key are required")
	}
	uploadedAt = uploadedAt.UTC()
	return s.record(ctx, groupID, userID, storageKey, uploadedAt, uploadedAt.Add(models.PhotoRetention))
}

func (s *PhotoService) record(ctx context.Context, groupID, userID, storageKey string, uploadedAt, expires time.Time) (*models.Photo, error) {
	photo := &models.Photo{
		ID:         uuid.New().String(),
		GroupID:    groupID,
		UserID:     &userID,
		StorageKey: storageKey,
		UploadedAt: uploadedAt,
		ExpiresAt:  expires,
	}
	if err := s.photos.Create(ctx, photo); err != nil {
		return nil, models.NewRemoteError(err)
	}
	return photo, nil
}

// ListGroupPhotos returns a group's photos, newest first
func (s *PhotoService) ListGroupPhotos(ctx context.Context, groupID string) ([]*models.Photo, error) {
	if groupID == "" {
		return nil, models.NewValidationError("group id is required")
	}
	photos, err := s.photos.ListByGroupID(ctx, groupID)
	if err != nil {
		return nil, models.NewRemoteError(err)
	}
	sortNewestFirst(photos)
	return photos, nil
}

// ListUserPhotos returns a user's uploads, newest first
func (s *PhotoService) ListUserPhotos(ctx context.Context, userID string) ([]*models.Photo, error) {
	if userID == "" {
		return nil, models.NewValidationError("user id is required")
	}
	photos, err := s.photos.ListByUserID(ctx, userID)
	if err != nil {
		return nil, models.NewRemoteError(err)
	}
	sortNewestFirst(photos)
	return photos, nil
}

func sortNewestFirst(photos []*models.Photo) {
	slices.SortStableFunc(photos, func(a, b *models.Photo) int {
		return b.UploadedAt.Compare(a.UploadedAt)
	})
}

// GetPhoto retrieves a photo by ID
func (s *PhotoService) GetPhoto(ctx context.Context, photoID string) (*models.Photo, error) {
	photo, err := s.photos.GetByID(ctx, photoID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, models.NewNotFoundError("photo", photoID)
		}
		return nil, models.NewRemoteError(err)
	}
	return photo, nil
}

// DeletePhoto deletes the metadata row only. The bytes under storageKey must
// be removed separately with DeleteObject; the two deletes are not atomic.
func (s *PhotoService) DeletePhoto(ctx context.Context, photoID, storageKey string) error {
	if photoID == "" {
		return models.NewValidationError("photo id is required")
	}
	if err := s.photos.Delete(ctx, photoID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.NewNotFoundError("photo", photoID)
		}
		return models.NewRemoteError(err)
	}

	if storageKey != "" {
		if err := s.urls.DeleteURL(ctx, storageKey); err != nil {
			log.Warn().Err(err).Str("s3_key", storageKey).Msg("Failed to drop cached photo url")
		}
	}
	return nil
}

// DeleteObject removes a photo's bytes from object storage
func (s *PhotoService) DeleteObject(ctx context.Context, storageKey string) error {
	if err := s.objects.Delete(ctx, storageKey); err != nil {
		return models.NewRemoteError(err)
	}
	return nil
}

// ResolveURL returns a display URL for storageKey: a cached or fresh presigned
// URL, or the public URL when presigning fails.
func (s *PhotoService) ResolveURL(ctx context.Context, storageKey string) string {
	if url, ok, err := s.urls.GetURL(ctx, storageKey); err == nil && ok {
		return url
	} else if err != nil {
		log.Warn().Err(err).Str("s3_key", storageKey).Msg("Failed to read cached photo url")
	}

	url, err := s.objects.PresignGet(ctx, storageKey, s.presignTTL)
	if err != nil {
		log.Warn().Err(err).Str("s3_key", storageKey).Msg("Presign failed, using public url")
		return s.objects.PublicURL(storageKey)
	}

	// cache for half the lifetime so a cached URL never expires in the client's hands
	if err := s.urls.SetURL(ctx, storageKey, url, s.presignTTL/2); err != nil {
		log.Warn().Err(err).Str("s3_key", storageKey).Msg("Failed to cache photo url")
	}
	return url
}
