package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"groupsnap-backend/internal/metrics"
	"groupsnap-backend/internal/models"
	"groupsnap-backend/internal/storage"

	"github.com/rs/zerolog/log"
)

// UploadState is a step of a single upload attempt
type UploadState string

const (
	UploadIdle                UploadState = "idle"
	UploadPermissionRequested UploadState = "permission_requested"
	UploadPermissionDenied    UploadState = "permission_denied"
	UploadPermissionFailed    UploadState = "permission_failed"
	UploadCapturing           UploadState = "capturing"
	UploadCaptureFailed       UploadState = "capture_failed"
	UploadCanceled            UploadState = "canceled"
	UploadCaptured            UploadState = "captured"
	UploadUploading           UploadState = "uploading"
	UploadFailed              UploadState = "upload_failed"
	UploadUploaded            UploadState = "uploaded"
	UploadRecordingMetadata   UploadState = "recording_metadata"
	UploadMetadataFailed      UploadState = "metadata_failed"
	UploadComplete            UploadState = "complete"
)

const (
	defaultContentType = "image/jpeg"
	compensateTimeout  = 10 * time.Second
)

// ErrCaptureCanceled is returned by a CaptureSource when the user aborts capture
var ErrCaptureCanceled = errors.New("capture canceled")

// CapturedPhoto is the output of a capture
type CapturedPhoto struct {
	FileName    string
	ContentType string
	Data        []byte
}

// CaptureSource provides the photo bytes for one upload attempt
type CaptureSource interface {
	RequestPermission(ctx context.Context) (bool, error)
	Capture(ctx context.Context) (*CapturedPhoto, error)
}

// PhotoRecorder records metadata for bytes stored at uploadedAt
type PhotoRecorder interface {
	RecordUpload(ctx context.Context, groupID, userID, storageKey string, uploadedAt time.Time) (*models.Photo, error)
}

// UploadResult is a successful or canceled upload
type UploadResult struct {
	State UploadState   `json:"state"`
	Photo *models.Photo `json:"photo,omitempty"`
}

// UploadOrchestrator runs capture, store and record as one sequential operation.
// Each user has at most one upload in flight.
type UploadOrchestrator struct {
	objects storage.ObjectStore
	photos  PhotoRecorder
	folder  string
	metrics metrics.Recorder
	now     func() time.Time

	mu   sync.Mutex
	busy map[string]struct{}
}

// NewUploadOrchestrator creates an orchestrator storing objects under folder
func NewUploadOrchestrator(objects storage.ObjectStore, photos PhotoRecorder, folder string, rec metrics.Recorder) *UploadOrchestrator {
	return &UploadOrchestrator{
		objects: objects,
		photos:  photos,
		folder:  folder,
		metrics: rec,
		now:     time.Now,
		busy:    make(map[string]struct{}),
	}
}

// Busy reports whether userID has an upload in flight
func (o *UploadOrchestrator) Busy(userID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.busy[userID]
	return ok
}

func (o *UploadOrchestrator) acquire(userID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.busy[userID]; ok {
		return false
	}
	o.busy[userID] = struct{}{}
	return true
}

func (o *UploadOrchestrator) release(userID string) {
	o.mu.Lock()
	delete(o.busy, userID)
	o.mu.Unlock()
}

// Upload captures a photo from src, stores it and records its metadata in groupID.
// A canceled capture returns a result in state UploadCanceled and no error.
func (o *UploadOrchestrator) Upload(ctx context.Context, groupID, userID string, src CaptureSource) (*UploadResult, error) {
	if groupID == "" || userID == "" {
		return nil, models.NewValidationError("group id and user id are required")
	}
	if !o.acquire(userID) {
		return nil, models.NewUploadInProgressError()
	}
	defer o.release(userID)

	u := &uploadAttempt{groupID: groupID, userID: userID, state: UploadIdle}
	result, err := o.run(ctx, u, src)
	o.metrics.RecordUploadOutcome(string(u.state))

	logEvent := log.Info()
	if err != nil {
		logEvent = log.Error().Err(err)
	}
	logEvent.
		Str("user_id", userID).
		Str("group_id", groupID).
		Str("state", string(u.state)).
		Str("s3_key", u.key).
		Msg("Upload finished")

	return result, err
}

type uploadAttempt struct {
	groupID string
	userID  string
	key     string
	state   UploadState
}

func (u *uploadAttempt) to(state UploadState) {
	log.Debug().Str("user_id", u.userID).Str("from", string(u.state)).Str("to", string(state)).Msg("Upload state")
	u.state = state
}

func (o *UploadOrchestrator) run(ctx context.Context, u *uploadAttempt, src CaptureSource) (*UploadResult, error) {
	u.to(UploadPermissionRequested)
	granted, err := src.RequestPermission(ctx)
	if err != nil {
		u.to(UploadPermissionFailed)
		return nil, models.AsRemote(err)
	}
	if !granted {
		u.to(UploadPermissionDenied)
		return nil, models.NewPermissionDeniedError("permission to capture photos was denied")
	}

	u.to(UploadCapturing)
	captured, err := src.Capture(ctx)
	if errors.Is(err, ErrCaptureCanceled) || (err == nil && ctx.Err() != nil) {
		u.to(UploadCanceled)
		return &UploadResult{State: UploadCanceled}, nil
	}
	if err != nil {
		u.to(UploadCaptureFailed)
		return nil, models.AsRemote(err)
	}
	u.to(UploadCaptured)

	// remote calls below run to completion even if the caller goes away
	ctx = context.WithoutCancel(ctx)

	now := o.now().UTC()
	u.key = storage.PhotoKey(o.folder, now, captured.FileName)
	contentType := captured.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}
	expires := now.Add(models.PhotoRetention)

	u.to(UploadUploading)
	_, err = o.objects.Put(ctx, u.key, captured.Data, storage.PutOptions{
		ContentType: contentType,
		Expires:     expires,
		Metadata: map[string]string{
			"expires-at":  expires.Format(time.RFC3339),
			"auto-delete": "true",
		},
	})
	if err != nil {
		u.to(UploadFailed)
		return nil, models.NewRemoteError(err)
	}
	u.to(UploadUploaded)

	u.to(UploadRecordingMetadata)
	photo, err := o.photos.RecordUpload(ctx, u.groupID, u.userID, u.key, now)
	if err != nil {
		u.to(UploadMetadataFailed)
		return nil, o.compensate(ctx, u.key, err)
	}

	u.to(UploadComplete)
	return &UploadResult{State: UploadComplete, Photo: photo}, nil
}

// compensate removes bytes whose metadata insert failed. If that fails too the
// object is orphaned and the error becomes a partial failure.
func (o *UploadOrchestrator) compensate(ctx context.Context, key string, cause error) error {
	ctx, cancel := context.WithTimeout(ctx, compensateTimeout)
	defer cancel()

	if err := o.objects.Delete(ctx, key); err != nil {
		o.metrics.RecordOrphanedObject()
		log.Error().
			Err(err).
			AnErr("cause", cause).
			Str("s3_key", key).
			Msg("Orphaned object: metadata insert and cleanup both failed")
		return models.NewOrphanedObjectError(key, errors.Join(cause, err))
	}
	return models.AsRemote(cause)
}
