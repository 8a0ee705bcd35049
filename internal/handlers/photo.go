package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"groupsnap-backend/internal/middleware"
	"groupsnap-backend/internal/models"
	"groupsnap-backend/internal/services"

	"github.com/rs/zerolog/log"
)

const photoFormField = "photo"

// PhotoManager reads and deletes photo metadata and objects
type PhotoManager interface {
	ListGroupPhotos(ctx context.Context, groupID string) ([]*models.Photo, error)
	ListUserPhotos(ctx context.Context, userID string) ([]*models.Photo, error)
	GetPhoto(ctx context.Context, photoID string) (*models.Photo, error)
	DeletePhoto(ctx context.Context, photoID, storageKey string) error
	DeleteObject(ctx context.Context, storageKey string) error
	ResolveURL(ctx context.Context, storageKey string) string
}

// MembershipChecker gates group-scoped requests
type MembershipChecker interface {
	RequireMember(ctx context.Context, userID, groupID string) error
}

// Uploader runs the capture, store and record sequence
type Uploader interface {
	Upload(ctx context.Context, groupID, userID string, src services.CaptureSource) (*services.UploadResult, error)
	Busy(userID string) bool
}

// PhotoHandler handles photo-related HTTP requests
type PhotoHandler struct {
	photos         PhotoManager
	members        MembershipChecker
	uploads        Uploader
	events         Broadcaster
	maxUploadBytes int64
}

// NewPhotoHandler creates a new photo handler
func NewPhotoHandler(photos PhotoManager, members MembershipChecker, uploads Uploader, events Broadcaster, maxUploadBytes int64) *PhotoHandler {
	return &PhotoHandler{
		photos:         photos,
		members:        members,
		uploads:        uploads,
		events:         events,
		maxUploadBytes: maxUploadBytes,
	}
}

// PhotoView is a photo with a URL the client can display
type PhotoView struct {
	*models.Photo
	URL string `json:"url"`
}

func (h *PhotoHandler) views(ctx context.Context, photos []*models.Photo) []PhotoView {
	out := make([]PhotoView, 0, len(photos))
	for _, p := range photos {
		out = append(out, PhotoView{Photo: p, URL: h.photos.ResolveURL(ctx, p.StorageKey)})
	}
	return out
}

// ListGroupPhotos handles GET /api/v1/groups/{group_id}/photos
func (h *PhotoHandler) ListGroupPhotos(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	groupID, err := uuidParam(r, "group_id")
	if err != nil {
		respondServiceError(w, r, err, "Invalid group id")
		return
	}

	if err := h.members.RequireMember(ctx, userID, groupID); err != nil {
		respondServiceError(w, r, err, "Photo list denied")
		return
	}

	photos, err := h.photos.ListGroupPhotos(ctx, groupID)
	if err != nil {
		respondServiceError(w, r, err, "Failed to list group photos")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"photos": h.views(ctx, photos),
		"total":  len(photos),
	})
}

// ListMyPhotos handles GET /api/v1/photos/mine
func (h *PhotoHandler) ListMyPhotos(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	photos, err := h.photos.ListUserPhotos(ctx, userID)
	if err != nil {
		respondServiceError(w, r, err, "Failed to list user photos")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"photos": h.views(ctx, photos),
		"total":  len(photos),
	})
}

// DeletePhoto handles DELETE /api/v1/photos/{photo_id}. Only the uploader may
// delete. The row goes first; a failed object delete is logged and left for
// the bucket lifecycle rule.
func (h *PhotoHandler) DeletePhoto(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	photoID, err := uuidParam(r, "photo_id")
	if err != nil {
		respondServiceError(w, r, err, "Invalid photo id")
		return
	}

	photo, err := h.photos.GetPhoto(ctx, photoID)
	if err != nil {
		respondServiceError(w, r, err, "Failed to load photo")
		return
	}
	if photo.UserID == nil || *photo.UserID != userID {
		respondServiceError(w, r, models.NewPermissionDeniedError("only the uploader can delete this photo"), "Photo delete denied")
		return
	}

	if err := h.photos.DeletePhoto(ctx, photo.ID, photo.StorageKey); err != nil {
		respondServiceError(w, r, err, "Failed to delete photo")
		return
	}
	if err := h.photos.DeleteObject(ctx, photo.StorageKey); err != nil {
		log.Warn().
			Err(err).
			Str("photo_id", photo.ID).
			Str("s3_key", photo.StorageKey).
			Msg("Photo row deleted but object delete failed")
	}

	log.Info().Str("user_id", userID).Str("photo_id", photo.ID).Msg("Photo deleted")
	w.WriteHeader(http.StatusNoContent)
}

// UploadPhoto handles POST /api/v1/groups/{group_id}/photos with a multipart
// "photo" file part.
func (h *PhotoHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	groupID, err := uuidParam(r, "group_id")
	if err != nil {
		respondServiceError(w, r, err, "Invalid group id")
		return
	}

	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}
	src := &multipartCapture{
		r:        r,
		members:  h.members,
		userID:   userID,
		groupID:  groupID,
		maxBytes: h.maxUploadBytes,
	}

	res, err := h.uploads.Upload(ctx, groupID, userID, src)
	if err != nil {
		respondServiceError(w, r, err, "Photo upload failed")
		return
	}
	if res.State == services.UploadCanceled {
		respondJSON(w, http.StatusOK, res)
		return
	}

	view := PhotoView{Photo: res.Photo, URL: h.photos.ResolveURL(ctx, res.Photo.StorageKey)}
	msg := services.WSMessage{
		Type:    services.EventPhotoAdded,
		GroupID: groupID,
		UserID:  userID,
		PhotoID: res.Photo.ID,
		URL:     view.URL,
	}
	if _, err := h.events.BroadcastToGroup(ctx, groupID, userID, msg); err != nil {
		log.Warn().Err(err).Str("group_id", groupID).Msg("Failed to broadcast photo_added")
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"state": res.State,
		"photo": view,
	})
}

// UploadStatus handles GET /api/v1/uploads/status
func (h *PhotoHandler) UploadStatus(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	respondJSON(w, http.StatusOK, map[string]bool{"busy": h.uploads.Busy(userID)})
}

// multipartCapture is the HTTP capture source: permission is group
// membership and the captured bytes are the request's photo part.
type multipartCapture struct {
	r        *http.Request
	members  MembershipChecker
	userID   string
	groupID  string
	maxBytes int64
}

func (c *multipartCapture) RequestPermission(ctx context.Context) (bool, error) {
	err := c.members.RequireMember(ctx, c.userID, c.groupID)
	if models.KindOf(err) == models.KindPermission {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (c *multipartCapture) Capture(ctx context.Context) (*services.CapturedPhoto, error) {
	if ctx.Err() != nil {
		return nil, services.ErrCaptureCanceled
	}

	reader, err := c.r.MultipartReader()
	if err != nil {
		return nil, models.NewValidationError("expected multipart/form-data with a %q file", photoFormField)
	}

	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			return nil, models.NewValidationError("%q file is required", photoFormField)
		}
		if err != nil {
			return nil, c.readError(ctx, err)
		}
		if part.FormName() != photoFormField {
			part.Close()
			continue
		}
		return c.read(ctx, part)
	}
}

func (c *multipartCapture) read(ctx context.Context, part *multipart.Part) (*services.CapturedPhoto, error) {
	defer part.Close()

	data, err := io.ReadAll(part)
	if err != nil {
		return nil, c.readError(ctx, err)
	}
	if len(data) == 0 {
		return nil, models.NewValidationError("%q file is empty", photoFormField)
	}

	contentType := part.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, models.NewValidationError("unsupported content type %q", contentType)
	}

	fileName := part.FileName()
	if fileName == "" {
		fileName = fmt.Sprintf("photo-%d.jpg", time.Now().UnixMilli())
	}

	return &services.CapturedPhoto{
		FileName:    fileName,
		ContentType: contentType,
		Data:        data,
	}, nil
}

func (c *multipartCapture) readError(ctx context.Context, err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return models.NewValidationError("photo exceeds %d bytes", c.maxBytes)
	}
	if ctx.Err() != nil {
		return services.ErrCaptureCanceled
	}
	return models.NewValidationError("failed to read upload: %v", err)
}
