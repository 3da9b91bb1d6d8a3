package documents

import (
	"context"

	"github.com/dmitrijs2005/mediavault/internal/server/models"
)

// Repository stores tracked persons and their medical documents.
type Repository interface {
	CreatePerson(ctx context.Context, p *models.TrackedPerson) (*models.TrackedPerson, error)
	GetPerson(ctx context.Context, id string) (*models.TrackedPerson, error)
	ListPersons(ctx context.Context, userID string) ([]*models.TrackedPerson, error)

	CreateDocument(ctx context.Context, d *models.MedicalDocument) (*models.MedicalDocument, error)
	GetDocument(ctx context.Context, id string) (*models.MedicalDocument, error)
	// ListDocuments returns a person's documents, optionally narrowed to one category.
	ListDocuments(ctx context.Context, personID string, category *models.DocumentCategory) ([]*models.MedicalDocument, error)
	DeleteDocument(ctx context.Context, id string) error
}
