// Package media provides the PostgreSQL repository for uploaded images.
package media

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/mediavault/internal/common"
	"github.com/dmitrijs2005/mediavault/internal/dbx"
	"github.com/dmitrijs2005/mediavault/internal/server/models"
)

const mediaColumns = `id, user_id, uploaded_by, folder_id, file_name, content_type, size_bytes, storage_key, thumbnail_key, encrypted, encrypted_file_key, nonce, created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, m *models.Media) (*models.Media, error) {
	query := `
		INSERT INTO media (user_id, uploaded_by, folder_id, file_name, content_type, size_bytes, storage_key, thumbnail_key, encrypted, encrypted_file_key, nonce)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		m.UserID, m.UploadedBy, nullString(m.FolderID), m.FileName, m.ContentType, m.SizeBytes,
		m.StorageKey, nullString(m.ThumbnailKey), m.Encrypted, m.EncryptedFileKey, m.Nonce).
		Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return m, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Media, error) {
	query := `SELECT ` + mediaColumns + ` FROM media WHERE id = $1`

	m, err := scanMedia(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if dbx.NoRows(err) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return m, nil
}

func (r *PostgresRepository) ListByFolder(ctx context.Context, ownerID string, folderID *string) ([]*models.Media, error) {
	query := `SELECT ` + mediaColumns + ` FROM media
		WHERE user_id = $1 AND folder_id IS NOT DISTINCT FROM $2
		ORDER BY created_at DESC, id`

	rows, err := r.db.QueryContext(ctx, query, ownerID, nullString(folderID))
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Media
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM media WHERE id = $1`, id)
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

func scanMedia(s scanner) (*models.Media, error) {
	m := &models.Media{}
	var folderID, thumbKey sql.NullString
	if err := s.Scan(&m.ID, &m.UserID, &m.UploadedBy, &folderID, &m.FileName, &m.ContentType, &m.SizeBytes,
		&m.StorageKey, &thumbKey, &m.Encrypted, &m.EncryptedFileKey, &m.Nonce, &m.CreatedAt); err != nil {
		return nil, err
	}
	if folderID.Valid {
		m.FolderID = &folderID.String
	}
	if thumbKey.Valid {
		m.ThumbnailKey = &thumbKey.String
	}
	return m, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
