package httpapi

import (
	"context"
	"time"

	"github.com/dmitrijs2005/mediavault/internal/server/models"
	"github.com/dmitrijs2005/mediavault/internal/server/services"
)

// AuthService is the part of services.AuthService the handlers use.
type AuthService interface {
	Register(ctx context.Context, email, username, password string) (*models.User, string, error)
	Login(ctx context.Context, login, password string) (*services.LoginResult, error)
	RequestPasswordReset(ctx context.Context, email string) (string, error)
	CheckResetToken(ctx context.Context, token string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	VerifyEmail(ctx context.Context, token string) (string, error)
	ResendVerification(ctx context.Context, userID string) (string, error)
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error
	UnlockAccount(ctx context.Context, userID string) error
	GetUser(ctx context.Context, userID string) (*models.User, error)
}

type FolderService interface {
	ListSharedFolders(ctx context.Context, targetUserID string) ([]*models.SharedFolder, error)
	Browse(ctx context.Context, userID string, folderID *string) (*services.FolderView, error)
	CreateFolder(ctx context.Context, userID, name string, parentID *string) (*models.Folder, error)
	RenameFolder(ctx context.Context, userID, folderID, name string) error
	DeleteFolder(ctx context.Context, userID, folderID string) error
}

type ShareService interface {
	CreateShare(ctx context.Context, folderID, ownerID, targetUserID string, permission models.Permission, cascade bool) (*models.FolderShare, error)
	UpdateShare(ctx context.Context, folderID, ownerID, targetUserID string, permission models.Permission, cascade bool) error
	RevokeShare(ctx context.Context, folderID, ownerID, targetUserID string) error
	ListShares(ctx context.Context, folderID, ownerID string) ([]*models.FolderShare, error)
	LookupUser(ctx context.Context, username string) (*models.User, error)
}

type MediaService interface {
	Upload(ctx context.Context, userID string, u services.Upload) (*models.Media, error)
	Get(ctx context.Context, userID, mediaID string) (*models.Media, *services.Access, error)
	Content(ctx context.Context, userID, mediaID string) (*models.Media, []byte, error)
	Thumbnail(ctx context.Context, userID, mediaID string) ([]byte, error)
	ContentURL(ctx context.Context, userID, mediaID string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, userID, mediaID string) error
}

type DocumentService interface {
	CreatePerson(ctx context.Context, userID, name string) (*models.TrackedPerson, error)
	ListPersons(ctx context.Context, userID string) ([]*models.TrackedPerson, error)
	Upload(ctx context.Context, userID string, u services.DocumentUpload) (*models.MedicalDocument, error)
	ListDocuments(ctx context.Context, userID, personID string, category *models.DocumentCategory) ([]*models.MedicalDocument, error)
	GetDocument(ctx context.Context, userID, documentID string) (*models.MedicalDocument, error)
	Content(ctx context.Context, userID, documentID string) (*models.MedicalDocument, []byte, error)
	DeleteDocument(ctx context.Context, userID, documentID string) error
}

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error
