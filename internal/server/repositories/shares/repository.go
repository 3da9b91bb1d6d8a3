package shares

import (
	"context"

	"github.com/dmitrijs2005/mediavault/internal/server/models"
)

// Repository is the share registry. At most one share exists per
// (folder, target user) pair.
type Repository interface {
	// Create stores a share; common.ErrDuplicateShare if the pair exists.
	Create(ctx context.Context, share *models.FolderShare) (*models.FolderShare, error)
	// Get returns the share of folderID with targetUserID, or common.ErrorNotFound.
	Get(ctx context.Context, folderID, targetUserID string) (*models.FolderShare, error)
	Update(ctx context.Context, folderID, targetUserID string, permission models.Permission, cascade bool) error
	// Delete removes the share and reports whether one existed.
	Delete(ctx context.Context, folderID, targetUserID string) (bool, error)
	// ListByFolder returns every share of folderID with target usernames filled in.
	ListByFolder(ctx context.Context, folderID string) ([]*models.FolderShare, error)
	// ListSharedWith returns folders shared directly with targetUserID.
	ListSharedWith(ctx context.Context, targetUserID string) ([]*models.SharedFolder, error)
}
