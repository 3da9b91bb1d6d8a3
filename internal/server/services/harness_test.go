package services

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/mediavault/internal/cryptox"
	"github.com/dmitrijs2005/mediavault/internal/logging"
	"github.com/dmitrijs2005/mediavault/internal/server/config"
	"github.com/dmitrijs2005/mediavault/internal/server/models"
	"github.com/dmitrijs2005/mediavault/internal/server/storage"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) SendVerification(ctx context.Context, to, username, token string) {
	m.Called(ctx, to, username, token)
}

func (m *mockNotifier) SendPasswordReset(ctx context.Context, to, username, token string) {
	m.Called(ctx, to, username, token)
}

// clock is a settable time source shared by services and fakes.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type harness struct {
	mem      *memStore
	clock    *clock
	blobs    *storage.MemoryStore
	notifier *mockNotifier

	tokens  *TokenService
	auth    *AuthService
	folders *FolderService
	shares  *ShareService
	media   *MediaService
	docs    *DocumentService
}

var testMasterKey = bytes.Repeat([]byte{7}, cryptox.MasterKeySize)

func newHarness(t *testing.T) *harness {
	t.Helper()

	db := newTxDB(t)
	clk := &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	mem := newMemStore()
	mem.now = clk.Now
	rm := memManager{s: mem}
	blobs := storage.NewMemoryStore()
	n := &mockNotifier{}

	cfg := &config.Config{}
	cfg.LoadDefaults()

	log := logging.Nop{}
	h := &harness{mem: mem, clock: clk, blobs: blobs, notifier: n}

	h.tokens = NewTokenService(db, rm, cfg)
	h.tokens.now = clk.Now
	h.auth = NewAuthService(db, rm, cfg, h.tokens, cryptox.NewBcryptHasher(4), n, log)
	h.auth.now = clk.Now
	h.folders = NewFolderService(db, rm, blobs, log)
	h.shares = NewShareService(db, rm, log)
	h.media = NewMediaService(db, rm, h.folders, blobs, testMasterKey, log)
	h.media.now = clk.Now
	h.docs = NewDocumentService(db, rm, blobs, testMasterKey, log)
	h.docs.now = clk.Now
	return h
}

// allowMail accepts any notification.
func (h *harness) allowMail() {
	h.notifier.On("SendVerification", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Maybe()
	h.notifier.On("SendPasswordReset", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Maybe()
}

// addUser creates a verified account with password "password1".
func (h *harness) addUser(t *testing.T, username string) *models.User {
	t.Helper()
	u, err := h.auth.CreateVerifiedUser(context.Background(), username+"@example.com", username, "password1", false)
	require.NoError(t, err)
	return u
}

func (h *harness) addFolder(t *testing.T, owner *models.User, name string, parent *models.Folder) *models.Folder {
	t.Helper()
	var pid *string
	if parent != nil {
		pid = &parent.ID
	}
	f, err := h.folders.CreateFolder(context.Background(), owner.ID, name, pid)
	require.NoError(t, err)
	return f
}

func (h *harness) share(t *testing.T, f *models.Folder, owner, target *models.User, p models.Permission, cascade bool) {
	t.Helper()
	_, err := h.shares.CreateShare(context.Background(), f.ID, owner.ID, target.ID, p, cascade)
	require.NoError(t, err)
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
