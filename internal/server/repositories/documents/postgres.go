// Package documents provides the PostgreSQL repository for tracked persons
// and their medical documents.
package documents

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/mediavault/internal/common"
	"github.com/dmitrijs2005/mediavault/internal/dbx"
	"github.com/dmitrijs2005/mediavault/internal/server/models"
)

const documentColumns = `id, user_id, person_id, category, title, file_name, content_type, size_bytes, storage_key, encrypted, encrypted_file_key, nonce, created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) CreatePerson(ctx context.Context, p *models.TrackedPerson) (*models.TrackedPerson, error) {
	query := `
		INSERT INTO tracked_persons (user_id, name)
		VALUES ($1, $2)
		RETURNING id, created_at
	`
	if err := r.db.QueryRowContext(ctx, query, p.UserID, p.Name).Scan(&p.ID, &p.CreatedAt); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) GetPerson(ctx context.Context, id string) (*models.TrackedPerson, error) {
	query := `SELECT id, user_id, name, created_at FROM tracked_persons WHERE id = $1`

	p := &models.TrackedPerson{}
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.UserID, &p.Name, &p.CreatedAt); err != nil {
		if dbx.NoRows(err) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) ListPersons(ctx context.Context, userID string) ([]*models.TrackedPerson, error) {
	query := `SELECT id, user_id, name, created_at FROM tracked_persons WHERE user_id = $1 ORDER BY name, id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.TrackedPerson
	for rows.Next() {
		p := &models.TrackedPerson{}
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) CreateDocument(ctx context.Context, d *models.MedicalDocument) (*models.MedicalDocument, error) {
	query := `
		INSERT INTO medical_documents (user_id, person_id, category, title, file_name, content_type, size_bytes, storage_key, encrypted, encrypted_file_key, nonce)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		d.UserID, d.PersonID, string(d.Category), d.Title, d.FileName, d.ContentType, d.SizeBytes,
		d.StorageKey, d.Encrypted, d.EncryptedFileKey, d.Nonce).
		Scan(&d.ID, &d.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return d, nil
}

func (r *PostgresRepository) GetDocument(ctx context.Context, id string) (*models.MedicalDocument, error) {
	query := `SELECT ` + documentColumns + ` FROM medical_documents WHERE id = $1`

	d, err := scanDocument(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if dbx.NoRows(err) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return d, nil
}

func (r *PostgresRepository) ListDocuments(ctx context.Context, personID string, category *models.DocumentCategory) ([]*models.MedicalDocument, error) {
	query := `SELECT ` + documentColumns + ` FROM medical_documents
		WHERE person_id = $1 AND ($2::text IS NULL OR category = $2)
		ORDER BY created_at DESC, id`

	var cat sql.NullString
	if category != nil {
		cat = sql.NullString{String: string(*category), Valid: true}
	}

	rows, err := r.db.QueryContext(ctx, query, personID, cat)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.MedicalDocument
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) DeleteDocument(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM medical_documents WHERE id = $1`, id)
	if err != nil {
		if dbx.NoRows(err) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(s scanner) (*models.MedicalDocument, error) {
	d := &models.MedicalDocument{}
	var category string
	if err := s.Scan(&d.ID, &d.UserID, &d.PersonID, &category, &d.Title, &d.FileName, &d.ContentType,
		&d.SizeBytes, &d.StorageKey, &d.Encrypted, &d.EncryptedFileKey, &d.Nonce, &d.CreatedAt); err != nil {
		return nil, err
	}
	d.Category = models.DocumentCategory(category)
	return d, nil
}
