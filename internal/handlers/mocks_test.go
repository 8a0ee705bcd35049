package handlers

import (
	"context"
	"sync"

	"groupsnap-backend/internal/models"
	"groupsnap-backend/internal/services"
)

type mockAuth struct {
	signUpFn  func(ctx context.Context, email, password, name string) (*services.AuthResult, error)
	signInFn  func(ctx context.Context, email, password string) (*models.Session, error)
	signOutFn func(ctx context.Context, session *models.Session) error
}

func (m *mockAuth) SignUp(ctx context.Context, email, password, name string) (*services.AuthResult, error) {
	return m.signUpFn(ctx, email, password, name)
}

func (m *mockAuth) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	return m.signInFn(ctx, email, password)
}

func (m *mockAuth) SignOut(ctx context.Context, session *models.Session) error {
	return m.signOutFn(ctx, session)
}

type mockProfiles struct {
	getFn func(ctx context.Context, userID string) (*services.Profile, error)
	setFn func(ctx context.Context, userID, name string) (*models.User, error)
}

func (m *mockProfiles) GetProfile(ctx context.Context, userID string) (*services.Profile, error) {
	return m.getFn(ctx, userID)
}

func (m *mockProfiles) SetDisplayName(ctx context.Context, userID, name string) (*models.User, error) {
	return m.setFn(ctx, userID, name)
}

type mockGroups struct {
	createFn func(ctx context.Context, name, userID string) (*services.GroupCreation, error)
	joinFn   func(ctx context.Context, code, userID string) (*models.Group, error)
	listFn   func(ctx context.Context, userID string) ([]*models.Group, error)
}

func (m *mockGroups) CreateGroup(ctx context.Context, name, userID string) (*services.GroupCreation, error) {
	return m.createFn(ctx, name, userID)
}

func (m *mockGroups) JoinGroup(ctx context.Context, code, userID string) (*models.Group, error) {
	return m.joinFn(ctx, code, userID)
}

func (m *mockGroups) ListUserGroups(ctx context.Context, userID string) ([]*models.Group, error) {
	return m.listFn(ctx, userID)
}

type broadcast struct {
	groupID string
	skip    string
	msg     services.WSMessage
}

type mockBroadcaster struct {
	mu   sync.Mutex
	sent []broadcast
}

func (m *mockBroadcaster) BroadcastToGroup(ctx context.Context, groupID, skipUserID string, msg services.WSMessage) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, broadcast{groupID: groupID, skip: skipUserID, msg: msg})
	return 1, nil
}

type mockPhotos struct {
	photos       map[string]*models.Photo
	deletedRows  []string
	deletedObjs  []string
	deleteObjErr error
}

func newMockPhotos(photos ...*models.Photo) *mockPhotos {
	m := &mockPhotos{photos: make(map[string]*models.Photo)}
	for _, p := range photos {
		m.photos[p.ID] = p
	}
	return m
}

func (m *mockPhotos) ListGroupPhotos(ctx context.Context, groupID string) ([]*models.Photo, error) {
	var out []*models.Photo
	for _, p := range m.photos {
		if p.GroupID == groupID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockPhotos) ListUserPhotos(ctx context.Context, userID string) ([]*models.Photo, error) {
	var out []*models.Photo
	for _, p := range m.photos {
		if p.UserID != nil && *p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockPhotos) GetPhoto(ctx context.Context, photoID string) (*models.Photo, error) {
	p, ok := m.photos[photoID]
	if !ok {
		return nil, models.NewNotFoundError("photo", photoID)
	}
	return p, nil
}

func (m *mockPhotos) DeletePhoto(ctx context.Context, photoID, storageKey string) error {
	m.deletedRows = append(m.deletedRows, photoID)
	delete(m.photos, photoID)
	return nil
}

func (m *mockPhotos) DeleteObject(ctx context.Context, storageKey string) error {
	m.deletedObjs = append(m.deletedObjs, storageKey)
	return m.deleteObjErr
}

func (m *mockPhotos) ResolveURL(ctx context.Context, storageKey string) string {
	return "https://cdn.example/" + storageKey
}

// mockMembers treats "userID|groupID" pairs in members as memberships
type mockMembers struct {
	members map[string]bool
}

func (m *mockMembers) RequireMember(ctx context.Context, userID, groupID string) error {
	if !m.members[userID+"|"+groupID] {
		return models.NewPermissionDeniedError("not a member of this group")
	}
	return nil
}

type mockUploader struct {
	busy     bool
	uploadFn func(ctx context.Context, groupID, userID string, src services.CaptureSource) (*services.UploadResult, error)
}

func (m *mockUploader) Upload(ctx context.Context, groupID, userID string, src services.CaptureSource) (*services.UploadResult, error) {
	return m.uploadFn(ctx, groupID, userID, src)
}

func (m *mockUploader) Busy(userID string) bool {
	return m.busy
}

type mockValidator struct {
	sessions map[string]*models.Session
}

func (m *mockValidator) ValidateToken(ctx context.Context, token string) (*models.Session, error) {
	s, ok := m.sessions[token]
	if !ok {
		return nil, models.NewPermissionDeniedError("invalid token")
	}
	return s, nil
}

func strPtr(s string) *string {
	return &s
}
