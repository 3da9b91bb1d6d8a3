package folders

import (
	"context"

	"github.com/dmitrijs2005/mediavault/internal/server/models"
)

// Repository stores the per-owner folder forest.
type Repository interface {
	Create(ctx context.Context, folder *models.Folder) (*models.Folder, error)
	GetByID(ctx context.Context, id string) (*models.Folder, error)
	// ListChildren returns ownerID's folders under parentID (roots when nil),
	// ordered by name.
	ListChildren(ctx context.Context, ownerID string, parentID *string) ([]*models.Folder, error)
	Rename(ctx context.Context, id string, name string) error
	// Delete removes the folder; descendants, shares and media go with it.
	Delete(ctx context.Context, id string) error
}
