package services

import (
	"bytes"
	"context"
	"database/sql"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/mediavault/internal/common"
	"github.com/dmitrijs2005/mediavault/internal/dbx"
	"github.com/dmitrijs2005/mediavault/internal/server/models"
	"github.com/dmitrijs2005/mediavault/internal/server/repositories/documents"
	"github.com/dmitrijs2005/mediavault/internal/server/repositories/folders"
	"github.com/dmitrijs2005/mediavault/internal/server/repositories/media"
	"github.com/dmitrijs2005/mediavault/internal/server/repositories/shares"
	"github.com/dmitrijs2005/mediavault/internal/server/repositories/tokens"
	"github.com/dmitrijs2005/mediavault/internal/server/repositories/users"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// newTxDB returns an in-memory database; services only need it to open
// transactions, the data lives in memStore.
func newTxDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// memStore is an in-memory backend behind every fake repository.
type memStore struct {
	mu   sync.Mutex
	now  func() time.Time
	seq  int
	user map[string]*models.User
	tok  map[string]*models.AuthToken
	fold map[string]*models.Folder
	shr  map[string]*models.FolderShare
	med  map[string]*models.Media
	per  map[string]*models.TrackedPerson
	doc  map[string]*models.MedicalDocument
}

func newMemStore() *memStore {
	return &memStore{
		now:  time.Now,
		user: map[string]*models.User{},
		tok:  map[string]*models.AuthToken{},
		fold: map[string]*models.Folder{},
		shr:  map[string]*models.FolderShare{},
		med:  map[string]*models.Media{},
		per:  map[string]*models.TrackedPerson{},
		doc:  map[string]*models.MedicalDocument{},
	}
}

// created returns a strictly increasing timestamp so orderings are stable.
func (m *memStore) created() time.Time {
	m.seq++
	return m.now().Add(time.Duration(m.seq) * time.Microsecond)
}

type memManager struct {
	s *memStore
}

func (r memManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (r memManager) Users(dbx.DBTX) users.Repository { return memUsers(r) }
func (r memManager) Tokens(dbx.DBTX) tokens.Repository { return memTokens(r) }
func (r memManager) Folders(dbx.DBTX) folders.Repository { return memFolders(r) }
func (r memManager) Shares(dbx.DBTX) shares.Repository { return memShares(r) }
func (r memManager) Media(dbx.DBTX) media.Repository { return memMedia(r) }
func (r memManager) Documents(dbx.DBTX) documents.Repository { return memDocuments(r) }

// --- users ---

type memUsers memManager

func (r memUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.user {
		if e.Email == u.Email {
			return nil, common.ErrDuplicateEmail
		}
		if e.Username == u.Username {
			return nil, common.ErrDuplicateUsername
		}
	}
	c := *u
	c.ID = uuid.NewString()
	c.CreatedAt = r.s.created()
	c.UpdatedAt = c.CreatedAt
	r.s.user[c.ID] = &c
	out := c
	return &out, nil
}

func (r memUsers) find(match func(*models.User) bool) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.user {
		if match(u) {
			c := *u
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r memUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.ID == id })
}

func (r memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.Email == email })
}

func (r memUsers) GetByUsername(_ context.Context, username string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.Username == username })
}

func (r memUsers) GetByLogin(_ context.Context, login string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.Email == login || u.Username == login })
}

func (r memUsers) update(id string, fn func(*models.User)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.user[id]
	if !ok {
		return common.ErrorNotFound
	}
	fn(u)
	return nil
}

func (r memUsers) RegisterFailedLogin(_ context.Context, id string, maxAttempts int, lockout time.Duration) (int, *time.Time, error) {
	var (
		n      int
		locked *time.Time
	)
	err := r.update(id, func(u *models.User) {
		u.FailedAttempts++
		if u.FailedAttempts >= maxAttempts {
			until := r.s.now().Add(lockout)
			u.LockedUntil = &until
			u.FailedAttempts = 0
		}
		n, locked = u.FailedAttempts, u.LockedUntil
	})
	return n, locked, err
}

func (r memUsers) ResetFailedLogins(_ context.Context, id string) error {
	return r.update(id, func(u *models.User) { u.FailedAttempts = 0; u.LockedUntil = nil })
}

func (r memUsers) SetEmailVerified(_ context.Context, id string) error {
	return r.update(id, func(u *models.User) { u.EmailVerified = true })
}

func (r memUsers) UpdatePassword(_ context.Context, id, hash string) error {
	return r.update(id, func(u *models.User) {
		u.PasswordHash = hash
		u.FailedAttempts = 0
		u.LockedUntil = nil
	})
}

func (r memUsers) Unlock(_ context.Context, id string) error {
	return r.ResetFailedLogins(context.Background(), id)
}

// --- tokens ---

type memTokens memManager

func (r memTokens) Create(_ context.Context, t *models.AuthToken) (*models.AuthToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *t
	c.ID = uuid.NewString()
	c.CreatedAt = r.s.created()
	r.s.tok[c.ID] = &c
	out := c
	return &out, nil
}

func (r memTokens) FindByHash(_ context.Context, hash []byte, purpose models.TokenPurpose) (*models.AuthToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.tok {
		if bytes.Equal(t.TokenHash, hash) && t.Purpose == purpose {
			c := *t
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r memTokens) Consume(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tok[id]
	if !ok || t.ConsumedAt != nil {
		return common.ErrTokenConsumed
	}
	now := r.s.now()
	t.ConsumedAt = &now
	return nil
}

func (r memTokens) ConsumeAllForUser(_ context.Context, userID string, purpose models.TokenPurpose) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	now := r.s.now()
	for _, t := range r.s.tok {
		if t.UserID == userID && t.Purpose == purpose && t.ConsumedAt == nil {
			t.ConsumedAt = &now
			n++
		}
	}
	return n, nil
}

func (r memTokens) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, t := range r.s.tok {
		if t.ExpiresAt.Before(before) {
			delete(r.s.tok, id)
			n++
		}
	}
	return n, nil
}

// --- folders ---

type memFolders memManager

func (r memFolders) Create(_ context.Context, f *models.Folder) (*models.Folder, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *f
	c.ID = uuid.NewString()
	c.CreatedAt = r.s.created()
	c.UpdatedAt = c.CreatedAt
	r.s.fold[c.ID] = &c
	out := c
	return &out, nil
}

func (r memFolders) GetByID(_ context.Context, id string) (*models.Folder, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	f, ok := r.s.fold[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *f
	return &c, nil
}

func sameParent(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (r memFolders) ListChildren(_ context.Context, ownerID string, parentID *string) ([]*models.Folder, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Folder
	for _, f := range r.s.fold {
		if f.UserID == ownerID && sameParent(f.ParentID, parentID) {
			c := *f
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r memFolders) Rename(_ context.Context, id, name string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	f, ok := r.s.fold[id]
	if !ok {
		return common.ErrorNotFound
	}
	f.Name = name
	return nil
}

// Delete cascades like the schema does.
func (r memFolders) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.fold[id]; !ok {
		return common.ErrorNotFound
	}
	r.deleteLocked(id)
	return nil
}

func (r memFolders) deleteLocked(id string) {
	delete(r.s.fold, id)
	for sid, sh := range r.s.shr {
		if sh.FolderID == id {
			delete(r.s.shr, sid)
		}
	}
	for mid, m := range r.s.med {
		if m.FolderID != nil && *m.FolderID == id {
			delete(r.s.med, mid)
		}
	}
	for cid, f := range r.s.fold {
		if f.ParentID != nil && *f.ParentID == id {
			r.deleteLocked(cid)
		}
	}
}

// --- shares ---

type memShares memManager

func (r memShares) Create(_ context.Context, sh *models.FolderShare) (*models.FolderShare, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.shr {
		if e.FolderID == sh.FolderID && e.TargetUserID == sh.TargetUserID {
			return nil, common.ErrDuplicateShare
		}
	}
	c := *sh
	c.ID = uuid.NewString()
	c.CreatedAt = r.s.created()
	c.UpdatedAt = c.CreatedAt
	r.s.shr[c.ID] = &c
	out := c
	return &out, nil
}

func (r memShares) lookupLocked(folderID, targetUserID string) *models.FolderShare {
	for _, e := range r.s.shr {
		if e.FolderID == folderID && e.TargetUserID == targetUserID {
			return e
		}
	}
	return nil
}

func (r memShares) Get(_ context.Context, folderID, targetUserID string) (*models.FolderShare, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e := r.lookupLocked(folderID, targetUserID)
	if e == nil {
		return nil, common.ErrorNotFound
	}
	c := *e
	return &c, nil
}

func (r memShares) Update(_ context.Context, folderID, targetUserID string, p models.Permission, cascade bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e := r.lookupLocked(folderID, targetUserID)
	if e == nil {
		return common.ErrorNotFound
	}
	e.Permission, e.Cascade = p, cascade
	return nil
}

func (r memShares) Delete(_ context.Context, folderID, targetUserID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e := r.lookupLocked(folderID, targetUserID)
	if e == nil {
		return false, nil
	}
	delete(r.s.shr, e.ID)
	return true, nil
}

func (r memShares) ListByFolder(_ context.Context, folderID string) ([]*models.FolderShare, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.FolderShare
	for _, e := range r.s.shr {
		if e.FolderID == folderID {
			c := *e
			c.TargetUsername = r.s.user[e.TargetUserID].Username
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TargetUsername < out[j].TargetUsername })
	return out, nil
}

func (r memShares) ListSharedWith(_ context.Context, targetUserID string) ([]*models.SharedFolder, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.SharedFolder
	for _, e := range r.s.shr {
		if e.TargetUserID == targetUserID {
			out = append(out, &models.SharedFolder{
				Folder:        *r.s.fold[e.FolderID],
				OwnerUsername: r.s.user[e.OwnerID].Username,
				Permission:    e.Permission,
				Cascade:       e.Cascade,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Folder.Name < out[j].Folder.Name })
	return out, nil
}

// --- media ---

type memMedia memManager

func (r memMedia) Create(_ context.Context, m *models.Media) (*models.Media, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *m
	c.ID = uuid.NewString()
	c.CreatedAt = r.s.created()
	r.s.med[c.ID] = &c
	out := c
	return &out, nil
}

func (r memMedia) GetByID(_ context.Context, id string) (*models.Media, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.med[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *m
	return &c, nil
}

func (r memMedia) ListByFolder(_ context.Context, ownerID string, folderID *string) ([]*models.Media, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Media
	for _, m := range r.s.med {
		if m.UserID == ownerID && sameParent(m.FolderID, folderID) {
			c := *m
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r memMedia) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.med[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.s.med, id)
	return nil
}

// --- documents ---

type memDocuments memManager

func (r memDocuments) CreatePerson(_ context.Context, p *models.TrackedPerson) (*models.TrackedPerson, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *p
	c.ID = uuid.NewString()
	c.CreatedAt = r.s.created()
	r.s.per[c.ID] = &c
	out := c
	return &out, nil
}

func (r memDocuments) GetPerson(_ context.Context, id string) (*models.TrackedPerson, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.per[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *p
	return &c, nil
}

func (r memDocuments) ListPersons(_ context.Context, userID string) ([]*models.TrackedPerson, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.TrackedPerson
	for _, p := range r.s.per {
		if p.UserID == userID {
			c := *p
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r memDocuments) CreateDocument(_ context.Context, d *models.MedicalDocument) (*models.MedicalDocument, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *d
	c.ID = uuid.NewString()
	c.CreatedAt = r.s.created()
	r.s.doc[c.ID] = &c
	out := c
	return &out, nil
}

func (r memDocuments) GetDocument(_ context.Context, id string) (*models.MedicalDocument, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.doc[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *d
	return &c, nil
}

func (r memDocuments) ListDocuments(_ context.Context, personID string, category *models.DocumentCategory) ([]*models.MedicalDocument, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.MedicalDocument
	for _, d := range r.s.doc {
		if d.PersonID == personID && (category == nil || d.Category == *category) {
			c := *d
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r memDocuments) DeleteDocument(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.doc[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.s.doc, id)
	return nil
}
