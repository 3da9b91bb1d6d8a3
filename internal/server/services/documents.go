package services

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/dmitrijs2005/mediavault/internal/common"
	"github.com/dmitrijs2005/mediavault/internal/logging"
	"github.com/dmitrijs2005/mediavault/internal/server/models"
	"github.com/dmitrijs2005/mediavault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/mediavault/internal/server/storage"
)

var documentTypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/png":       true,
	"image/gif":       true,
	"image/webp":      true,
}

// DocumentUpload is a medical document sent by a client.
type DocumentUpload struct {
	PersonID    string
	Category    models.DocumentCategory
	Title       string
	FileName    string
	ContentType string
	Data        []byte
}

// DocumentService keeps tracked persons and their medical documents. Both
// are private to the user who created them; other users get ErrorNotFound.
type DocumentService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       storage.Store
	codec       blobCodec
	log         logging.Logger
	now         func() time.Time
}

func NewDocumentService(db *sql.DB, m repomanager.RepositoryManager, store storage.Store,
	masterKey []byte, log logging.Logger) *DocumentService {
	return &DocumentService{
		db:          db,
		repomanager: m,
		store:       store,
		codec:       blobCodec{masterKey: masterKey},
		log:         log,
		now:         time.Now,
	}
}

func (s *DocumentService) CreatePerson(ctx context.Context, userID, name string) (*models.TrackedPerson, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, common.ErrorValidation
	}
	return s.repomanager.Documents(s.db).CreatePerson(ctx, &models.TrackedPerson{UserID: userID, Name: name})
}

func (s *DocumentService) ListPersons(ctx context.Context, userID string) ([]*models.TrackedPerson, error) {
	return s.repomanager.Documents(s.db).ListPersons(ctx, userID)
}

func (s *DocumentService) GetPerson(ctx context.Context, userID, personID string) (*models.TrackedPerson, error) {
	p, err := s.repomanager.Documents(s.db).GetPerson(ctx, personID)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, common.ErrorNotFound
	}
	return p, nil
}

// Upload stores a document for one of userID's tracked persons.
func (s *DocumentService) Upload(ctx context.Context, userID string, u DocumentUpload) (*models.MedicalDocument, error) {
	if !u.Category.Valid() {
		return nil, common.ErrorValidation
	}
	if err := checkUploadSize(u.Data); err != nil {
		return nil, err
	}
	contentType, err := sniffContentType(u.Data, u.ContentType, documentTypes)
	if err != nil {
		return nil, err
	}

	p, err := s.GetPerson(ctx, userID, u.PersonID)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(u.Title)
	fileName := cleanFileName(u.FileName, "document")
	if title == "" {
		title = fileName
	}

	body, err := s.codec.seal(u.Data)
	if err != nil {
		return nil, err
	}

	key := storage.NewObjectKey("documents", s.now())
	if err := s.store.Put(ctx, key, contentType, body.Body); err != nil {
		return nil, err
	}

	d, err := s.repomanager.Documents(s.db).CreateDocument(ctx, &models.MedicalDocument{
		UserID:           userID,
		PersonID:         p.ID,
		Category:         u.Category,
		Title:            title,
		FileName:         fileName,
		ContentType:      contentType,
		SizeBytes:        int64(len(u.Data)),
		StorageKey:       key,
		Encrypted:        body.Encrypted,
		EncryptedFileKey: body.WrappedKey,
		Nonce:            body.Nonce,
	})
	if err != nil {
		if derr := s.store.Delete(ctx, key); derr != nil {
			s.log.Warn(ctx, "error deleting object", "key", key, "error", derr)
		}
		return nil, err
	}

	s.log.Info(ctx, "document uploaded", "document_id", d.ID, "person_id", p.ID, "category", d.Category)
	return d, nil
}

// ListDocuments returns a person's documents, narrowed to category when given.
func (s *DocumentService) ListDocuments(ctx context.Context, userID, personID string, category *models.DocumentCategory) ([]*models.MedicalDocument, error) {
	if category != nil && !category.Valid() {
		return nil, common.ErrorValidation
	}
	if _, err := s.GetPerson(ctx, userID, personID); err != nil {
		return nil, err
	}
	return s.repomanager.Documents(s.db).ListDocuments(ctx, personID, category)
}

func (s *DocumentService) GetDocument(ctx context.Context, userID, documentID string) (*models.MedicalDocument, error) {
	d, err := s.repomanager.Documents(s.db).GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if d.UserID != userID {
		return nil, common.ErrorNotFound
	}
	return d, nil
}

// Content returns the document together with its decrypted bytes.
func (s *DocumentService) Content(ctx context.Context, userID, documentID string) (*models.MedicalDocument, []byte, error) {
	d, err := s.GetDocument(ctx, userID, documentID)
	if err != nil {
		return nil, nil, err
	}

	body, err := s.store.Get(ctx, d.StorageKey)
	if err != nil {
		return nil, nil, err
	}
	data, err := s.codec.open(body, d.EncryptedFileKey, d.Nonce, d.Encrypted)
	if err != nil {
		return nil, nil, err
	}
	return d, data, nil
}

func (s *DocumentService) DeleteDocument(ctx context.Context, userID, documentID string) error {
	d, err := s.GetDocument(ctx, userID, documentID)
	if err != nil {
		return err
	}
	if err := s.repomanager.Documents(s.db).DeleteDocument(ctx, d.ID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, d.StorageKey); err != nil {
		s.log.Warn(ctx, "error deleting object", "key", d.StorageKey, "error", err)
	}
	return nil
}
