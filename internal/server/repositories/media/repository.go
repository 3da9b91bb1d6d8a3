package media

import (
	"context"

	"github.com/dmitrijs2005/mediavault/internal/server/models"
)

// Repository stores media metadata; the bytes live in object storage.
type Repository interface {
	Create(ctx context.Context, m *models.Media) (*models.Media, error)
	GetByID(ctx context.Context, id string) (*models.Media, error)
	// ListByFolder returns ownerID's media in folderID (the root when nil),
	// newest first.
	ListByFolder(ctx context.Context, ownerID string, folderID *string) ([]*models.Media, error)
	Delete(ctx context.Context, id string) error
}
