package httpapi

import (
	"context"
	"time"

	"github.com/dmitrijs2005/mediavault/internal/server/models"
	"github.com/dmitrijs2005/mediavault/internal/server/services"
	"github.com/stretchr/testify/mock"
)

func typed[T any](v any) T {
	t, _ := v.(T)
	return t
}

type mockAuth struct{ mock.Mock }

func (m *mockAuth) Register(ctx context.Context, email, username, password string) (*models.User, string, error) {
	args := m.Called(ctx, email, username, password)
	return typed[*models.User](args.Get(0)), args.String(1), args.Error(2)
}

func (m *mockAuth) Login(ctx context.Context, login, password string) (*services.LoginResult, error) {
	args := m.Called(ctx, login, password)
	return typed[*services.LoginResult](args.Get(0)), args.Error(1)
}

func (m *mockAuth) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	args := m.Called(ctx, email)
	return args.String(0), args.Error(1)
}

func (m *mockAuth) CheckResetToken(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

func (m *mockAuth) ResetPassword(ctx context.Context, token, newPassword string) error {
	return m.Called(ctx, token, newPassword).Error(0)
}

func (m *mockAuth) VerifyEmail(ctx context.Context, token string) (string, error) {
	args := m.Called(ctx, token)
	return args.String(0), args.Error(1)
}

func (m *mockAuth) ResendVerification(ctx context.Context, userID string) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

func (m *mockAuth) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	return m.Called(ctx, userID, oldPassword, newPassword).Error(0)
}

func (m *mockAuth) UnlockAccount(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *mockAuth) GetUser(ctx context.Context, userID string) (*models.User, error) {
	args := m.Called(ctx, userID)
	return typed[*models.User](args.Get(0)), args.Error(1)
}

type mockFolders struct{ mock.Mock }

func (m *mockFolders) ListSharedFolders(ctx context.Context, targetUserID string) ([]*models.SharedFolder, error) {
	args := m.Called(ctx, targetUserID)
	return typed[[]*models.SharedFolder](args.Get(0)), args.Error(1)
}

func (m *mockFolders) Browse(ctx context.Context, userID string, folderID *string) (*services.FolderView, error) {
	args := m.Called(ctx, userID, folderID)
	return typed[*services.FolderView](args.Get(0)), args.Error(1)
}

func (m *mockFolders) CreateFolder(ctx context.Context, userID, name string, parentID *string) (*models.Folder, error) {
	args := m.Called(ctx, userID, name, parentID)
	return typed[*models.Folder](args.Get(0)), args.Error(1)
}

func (m *mockFolders) RenameFolder(ctx context.Context, userID, folderID, name string) error {
	return m.Called(ctx, userID, folderID, name).Error(0)
}

func (m *mockFolders) DeleteFolder(ctx context.Context, userID, folderID string) error {
	return m.Called(ctx, userID, folderID).Error(0)
}

type mockShares struct{ mock.Mock }

func (m *mockShares) CreateShare(ctx context.Context, folderID, ownerID, targetUserID string, permission models.Permission, cascade bool) (*models.FolderShare, error) {
	args := m.Called(ctx, folderID, ownerID, targetUserID, permission, cascade)
	return typed[*models.FolderShare](args.Get(0)), args.Error(1)
}

func (m *mockShares) UpdateShare(ctx context.Context, folderID, ownerID, targetUserID string, permission models.Permission, cascade bool) error {
	return m.Called(ctx, folderID, ownerID, targetUserID, permission, cascade).Error(0)
}

func (m *mockShares) RevokeShare(ctx context.Context, folderID, ownerID, targetUserID string) error {
	return m.Called(ctx, folderID, ownerID, targetUserID).Error(0)
}

func (m *mockShares) ListShares(ctx context.Context, folderID, ownerID string) ([]*models.FolderShare, error) {
	args := m.Called(ctx, folderID, ownerID)
	return typed[[]*models.FolderShare](args.Get(0)), args.Error(1)
}

func (m *mockShares) LookupUser(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	return typed[*models.User](args.Get(0)), args.Error(1)
}

type mockMedia struct{ mock.Mock }

func (m *mockMedia) Upload(ctx context.Context, userID string, u services.Upload) (*models.Media, error) {
	args := m.Called(ctx, userID, u)
	return typed[*models.Media](args.Get(0)), args.Error(1)
}

func (m *mockMedia) Get(ctx context.Context, userID, mediaID string) (*models.Media, *services.Access, error) {
	args := m.Called(ctx, userID, mediaID)
	return typed[*models.Media](args.Get(0)), typed[*services.Access](args.Get(1)), args.Error(2)
}

func (m *mockMedia) Content(ctx context.Context, userID, mediaID string) (*models.Media, []byte, error) {
	args := m.Called(ctx, userID, mediaID)
	return typed[*models.Media](args.Get(0)), typed[[]byte](args.Get(1)), args.Error(2)
}

func (m *mockMedia) Thumbnail(ctx context.Context, userID, mediaID string) ([]byte, error) {
	args := m.Called(ctx, userID, mediaID)
	return typed[[]byte](args.Get(0)), args.Error(1)
}

func (m *mockMedia) ContentURL(ctx context.Context, userID, mediaID string, ttl time.Duration) (string, error) {
	args := m.Called(ctx, userID, mediaID, ttl)
	return args.String(0), args.Error(1)
}

func (m *mockMedia) Delete(ctx context.Context, userID, mediaID string) error {
	return m.Called(ctx, userID, mediaID).Error(0)
}

type mockDocuments struct{ mock.Mock }

func (m *mockDocuments) CreatePerson(ctx context.Context, userID, name string) (*models.TrackedPerson, error) {
	args := m.Called(ctx, userID, name)
	return typed[*models.TrackedPerson](args.Get(0)), args.Error(1)
}

func (m *mockDocuments) ListPersons(ctx context.Context, userID string) ([]*models.TrackedPerson, error) {
	args := m.Called(ctx, userID)
	return typed[[]*models.TrackedPerson](args.Get(0)), args.Error(1)
}

func (m *mockDocuments) Upload(ctx context.Context, userID string, u services.DocumentUpload) (*models.MedicalDocument, error) {
	args := m.Called(ctx, userID, u)
	return typed[*models.MedicalDocument](args.Get(0)), args.Error(1)
}

func (m *mockDocuments) ListDocuments(ctx context.Context, userID, personID string, category *models.DocumentCategory) ([]*models.MedicalDocument, error) {
	args := m.Called(ctx, userID, personID, category)
	return typed[[]*models.MedicalDocument](args.Get(0)), args.Error(1)
}

func (m *mockDocuments) GetDocument(ctx context.Context, userID, documentID string) (*models.MedicalDocument, error) {
	args := m.Called(ctx, userID, documentID)
	return typed[*models.MedicalDocument](args.Get(0)), args.Error(1)
}

func (m *mockDocuments) Content(ctx context.Context, userID, documentID string) (*models.MedicalDocument, []byte, error) {
	args := m.Called(ctx, userID, documentID)
	return typed[*models.MedicalDocument](args.Get(0)), typed[[]byte](args.Get(1)), args.Error(2)
}

func (m *mockDocuments) DeleteDocument(ctx context.Context, userID, documentID string) error {
	return m.Called(ctx, userID, documentID).Error(0)
}
