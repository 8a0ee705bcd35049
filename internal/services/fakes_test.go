package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"groupsnap-backend/internal/models"
	"groupsnap-backend/internal/repository"
	"groupsnap-backend/internal/storage"
)

// In-memory stores mirroring the constraints of the Postgres schema

type fakeGroupStore struct {
	mu      sync.Mutex
	byCode  map[string]*models.Group
	members *fakeMembershipStore
	err     error
}

func newFakeGroupStore(members *fakeMembershipStore) *fakeGroupStore {
	return &fakeGroupStore{byCode: make(map[string]*models.Group), members: members}
}

func (f *fakeGroupStore) Create(ctx context.Context, g *models.Group) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if _, ok := f.byCode[g.JoinCode]; ok {
		return repository.ErrDuplicateJoinCode
	}
	f.byCode[g.JoinCode] = g
	return nil
}

func (f *fakeGroupStore) GetByJoinCode(ctx context.Context, code string) (*models.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.byCode[code]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return g, nil
}

func (f *fakeGroupStore) ListByUserID(ctx context.Context, userID string) ([]*models.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Group
	for _, g := range f.byCode {
		if ok, _ := f.members.Exists(ctx, userID, g.ID); ok {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeGroupStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byCode)
}

// existsLies makes Exists report false so the unique constraint path is exercised
type fakeMembershipStore struct {
	mu         sync.Mutex
	rows       map[string]*models.Membership
	createErr  error
	existsLies bool
}

func newFakeMembershipStore() *fakeMembershipStore {
	return &fakeMembershipStore{rows: make(map[string]*models.Membership)}
}

func membershipKey(userID, groupID string) string {
	return userID + "|" + groupID
}

func (f *fakeMembershipStore) Create(ctx context.Context, m *models.Membership) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	key := membershipKey(m.UserID, m.GroupID)
	if _, ok := f.rows[key]; ok {
		return repository.ErrDuplicateMembership
	}
	f.rows[key] = m
	return nil
}

func (f *fakeMembershipStore) Exists(ctx context.Context, userID, groupID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.existsLies {
		return false, nil
	}
	_, ok := f.rows[membershipKey(userID, groupID)]
	return ok, nil
}

func (f *fakeMembershipStore) ListUserIDs(ctx context.Context, groupID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for _, m := range f.rows {
		if m.GroupID == groupID {
			ids = append(ids, m.UserID)
		}
	}
	return ids, nil
}

func (f *fakeMembershipStore) countFor(userID, groupID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, m := range f.rows {
		if m.UserID == userID && m.GroupID == groupID {
			n++
		}
	}
	return n
}

type fakePhotoStore struct {
	mu        sync.Mutex
	rows      map[string]*models.Photo
	createErr error
}

func newFakePhotoStore() *fakePhotoStore {
	return &fakePhotoStore{rows: make(map[string]*models.Photo)}
}

func (f *fakePhotoStore) Create(ctx context.Context, p *models.Photo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.rows[p.ID] = p
	return nil
}

func (f *fakePhotoStore) GetByID(ctx context.Context, id string) (*models.Photo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return p, nil
}

func (f *fakePhotoStore) ListByGroupID(ctx context.Context, groupID string) ([]*models.Photo, error) {
	return f.filter(func(p *models.Photo) bool { return p.GroupID == groupID }), nil
}

func (f *fakePhotoStore) ListByUserID(ctx context.Context, userID string) ([]*models.Photo, error) {
	return f.filter(func(p *models.Photo) bool { return p.UserID != nil && *p.UserID == userID }), nil
}

func (f *fakePhotoStore) filter(keep func(*models.Photo) bool) []*models.Photo {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Photo
	for _, p := range f.rows {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

func (f *fakePhotoStore) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.rows, id)
	return nil
}

func (f *fakePhotoStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

type putCall struct {
	key  string
	body []byte
	opts storage.PutOptions
}

type fakeObjectStore struct {
	mu         sync.Mutex
	objects    map[string][]byte
	puts       []putCall
	deletes    []string
	putErr     error
	deleteErr  error
	presignErr error
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: make(map[string][]byte)}
}

func (f *fakeObjectStore) Put(ctx context.Context, key string, body []byte, opts storage.PutOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts = append(f.puts, putCall{key: key, body: body, opts: opts})
	if f.putErr != nil {
		return "", f.putErr
	}
	f.objects[key] = body
	return f.PublicURL(key), nil
}

func (f *fakeObjectStore) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, key)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.objects, key)
	return nil
}

func (f *fakeObjectStore) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if f.presignErr != nil {
		return "", f.presignErr
	}
	return fmt.Sprintf("https://signed.example/%s?ttl=%d", key, int(ttl.Seconds())), nil
}

func (f *fakeObjectStore) CheckBucket(ctx context.Context) error {
	return nil
}

func (f *fakeObjectStore) PublicURL(key string) string {
	return storage.PublicURL("bucket", "us-east-1", key)
}

func (f *fakeObjectStore) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok
}

type fakeURLCache struct {
	mu   sync.Mutex
	urls map[string]string
	ttls map[string]time.Duration
}

func newFakeURLCache() *fakeURLCache {
	return &fakeURLCache{urls: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (f *fakeURLCache) GetURL(ctx context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.urls[key]
	return u, ok, nil
}

func (f *fakeURLCache) SetURL(ctx context.Context, key, url string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.urls[key] = url
	f.ttls[key] = ttl
	return nil
}

func (f *fakeURLCache) DeleteURL(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.urls, key)
	return nil
}

type fakeUserStore struct {
	mu         sync.Mutex
	users      map[string]*models.User
	identities map[string]*models.Identity
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		users:      make(map[string]*models.User),
		identities: make(map[string]*models.Identity),
	}
}

func (f *fakeUserStore) CreateWithIdentity(ctx context.Context, u *models.User, id *models.Identity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.identities[id.Email]; ok {
		return repository.ErrDuplicateEmail
	}
	f.users[u.ID] = u
	f.identities[id.Email] = id
	return nil
}

func (f *fakeUserStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

func (f *fakeUserStore) UpsertName(ctx context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.users[u.ID]; ok {
		existing.Name = u.Name
		u.CreatedAt = existing.CreatedAt
		return nil
	}
	f.users[u.ID] = u
	return nil
}

func (f *fakeUserStore) GetIdentityByEmail(ctx context.Context, email string) (*models.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.identities[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return id, nil
}

type fakeRevoker struct {
	mu      sync.Mutex
	revoked map[string]time.Duration
}

func newFakeRevoker() *fakeRevoker {
	return &fakeRevoker{revoked: make(map[string]time.Duration)}
}

func (f *fakeRevoker) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ttl > 0 {
		f.revoked[tokenID] = ttl
	}
	return nil
}

func (f *fakeRevoker) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.revoked[tokenID]
	return ok, nil
}

type fakeRecorder struct {
	mu         sync.Mutex
	created    int
	collisions int
	joins      map[string]int
	uploads    map[string]int
	orphans    int
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{joins: make(map[string]int), uploads: make(map[string]int)}
}

func (f *fakeRecorder) RecordGroupCreated() {
	f.mu.Lock()
	f.created++
	f.mu.Unlock()
}

func (f *fakeRecorder) RecordJoinCodeCollision() {
	f.mu.Lock()
	f.collisions++
	f.mu.Unlock()
}

func (f *fakeRecorder) RecordJoinAttempt(result string) {
	f.mu.Lock()
	f.joins[result]++
	f.mu.Unlock()
}

func (f *fakeRecorder) RecordUploadOutcome(state string) {
	f.mu.Lock()
	f.uploads[state]++
	f.mu.Unlock()
}

func (f *fakeRecorder) RecordOrphanedObject() {
	f.mu.Lock()
	f.orphans++
	f.mu.Unlock()
}

// sequenceGenerator returns codes in order, then repeats the last one
func sequenceGenerator(codes ...string) CodeGenerator {
	var mu sync.Mutex
	i := 0
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		code := codes[i]
		if i < len(codes)-1 {
			i++
		}
		return code, nil
	}
}
