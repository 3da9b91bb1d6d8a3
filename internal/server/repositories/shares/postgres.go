// Package shares provides the PostgreSQL-backed share registry.
package shares

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/mediavault/internal/common"
	"github.com/dmitrijs2005/mediavault/internal/dbx"
	"github.com/dmitrijs2005/mediavault/internal/server/models"
)

const pairConstraint = "folder_shares_folder_target_key"

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, share *models.FolderShare) (*models.FolderShare, error) {
	query := `
		INSERT INTO folder_shares (folder_id, owner_id, target_user_id, permission, cascade)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		share.FolderID, share.OwnerID, share.TargetUserID, string(share.Permission), share.Cascade).
		Scan(&share.ID, &share.CreatedAt, &share.UpdatedAt)
	if err != nil {
		if constraint, ok := dbx.UniqueViolation(err); ok && constraint == pairConstraint {
			return nil, common.ErrDuplicateShare
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return share, nil
}

func (r *PostgresRepository) Get(ctx context.Context, folderID, targetUserID string) (*models.FolderShare, error) {
	query := `
		SELECT s.id, s.folder_id, s.owner_id, s.target_user_id, u.username, s.permission, s.cascade, s.created_at, s.updated_at
		FROM folder_shares s
		JOIN users u ON u.id = s.target_user_id
		WHERE s.folder_id = $1 AND s.target_user_id = $2
	`
	share, err := scanShare(r.db.QueryRowContext(ctx, query, folderID, targetUserID))
	if err != nil {
		if dbx.NoRows(err) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return share, nil
}

func (r *PostgresRepository) Update(ctx context.Context, folderID, targetUserID string, permission models.Permission, cascade bool) error {
	query := `
		UPDATE folder_shares SET permission = $3, cascade = $4, updated_at = now()
		WHERE folder_id = $1 AND target_user_id = $2
	`
	res, err := r.db.ExecContext(ctx, query, folderID, targetUserID, string(permission), cascade)
	if err != nil {
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

func (r *PostgresRepository) Delete(ctx context.Context, folderID, targetUserID string) (bool, error) {
	query := `
		DELETE FROM folder_shares
		WHERE folder_id = $1 AND target_user_id = $2
	`
	res, err := r.db.ExecContext(ctx, query, folderID, targetUserID)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

func (r *PostgresRepository) ListByFolder(ctx context.Context, folderID string) ([]*models.FolderShare, error) {
	query := `
		SELECT s.id, s.folder_id, s.owner_id, s.target_user_id, u.username, s.permission, s.cascade, s.created_at, s.updated_at
		FROM folder_shares s
		JOIN users u ON u.id = s.target_user_id
		WHERE s.folder_id = $1
		ORDER BY u.username
	`
	rows, err := r.db.QueryContext(ctx, query, folderID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.FolderShare
	for rows.Next() {
		share, err := scanShare(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, share)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) ListSharedWith(ctx context.Context, targetUserID string) ([]*models.SharedFolder, error) {
	query := `
		SELECT f.id, f.user_id, f.name, f.parent_id, f.created_at, f.updated_at, u.username, s.permission, s.cascade
		FROM folder_shares s
		JOIN folders f ON f.id = s.folder_id
		JOIN users u ON u.id = f.user_id
		WHERE s.target_user_id = $1
		ORDER BY f.name, f.id
	`
	rows, err := r.db.QueryContext(ctx, query, targetUserID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.SharedFolder
	for rows.Next() {
		sf := &models.SharedFolder{}
		var parentID sql.NullString
		var permission string
		if err := rows.Scan(&sf.Folder.ID, &sf.Folder.UserID, &sf.Folder.Name, &parentID,
			&sf.Folder.CreatedAt, &sf.Folder.UpdatedAt, &sf.OwnerUsername, &permission, &sf.Cascade); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if parentID.Valid {
			sf.Folder.ParentID = &parentID.String
		}
		sf.Permission = models.Permission(permission)
		result = append(result, sf)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanShare(s scanner) (*models.FolderShare, error) {
	share := &models.FolderShare{}
	var permission string
	if err := s.Scan(&share.ID, &share.FolderID, &share.OwnerID, &share.TargetUserID, &share.TargetUsername,
		&permission, &share.Cascade, &share.CreatedAt, &share.UpdatedAt); err != nil {
		return nil, err
	}
	share.Permission = models.Permission(permission)
	return share, nil
}
