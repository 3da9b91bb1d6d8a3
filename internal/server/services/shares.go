package services

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/mediavault/internal/common"
	"github.com/dmitrijs2005/mediavault/internal/logging"
	"github.com/dmitrijs2005/mediavault/internal/server/models"
	"github.com/dmitrijs2005/mediavault/internal/server/repositories/repomanager"
)

type ShareService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	log         logging.Logger
}

func NewShareService(db *sql.DB, m repomanager.RepositoryManager, log logging.Logger) *ShareService {
	return &ShareService{db: db, repomanager: m, log: log}
}

// requireOwner loads folderID and checks that ownerID owns it.
func (s *ShareService) requireOwner(ctx context.Context, folderID, ownerID string) (*models.Folder, error) {
	f, err := s.repomanager.Folders(s.db).GetByID(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if f.UserID != ownerID {
		return nil, common.ErrNotOwner
	}
	return f, nil
}

// CreateShare grants targetUserID access to folderID. An existing share for
// the pair is never replaced; use UpdateShare.
func (s *ShareService) CreateShare(ctx context.Context, folderID, ownerID, targetUserID string,
	permission models.Permission, cascade bool) (*models.FolderShare, error) {

	if _, err := s.requireOwner(ctx, folderID, ownerID); err != nil {
		return nil, err
	}
	if targetUserID == ownerID {
		return nil, common.ErrSelfShare
	}
	if !permission.Valid() {
		return nil, common.ErrInvalidPermission
	}

	target, err := s.repomanager.Users(s.db).GetByID(ctx, targetUserID)
	if err != nil {
		return nil, err
	}

	share, err := s.repomanager.Shares(s.db).Create(ctx, &models.FolderShare{
		FolderID:     folderID,
		OwnerID:      ownerID,
		TargetUserID: targetUserID,
		Permission:   permission,
		Cascade:      cascade,
	})
	if err != nil {
		return nil, err
	}
	share.TargetUsername = target.Username

	s.log.Info(ctx, "folder shared", "folder_id", folderID, "target_id", targetUserID,
		"permission", permission, "cascade", cascade)
	return share, nil
}

// UpdateShare changes the permission and cascade flag of an existing share.
func (s *ShareService) UpdateShare(ctx context.Context, folderID, ownerID, targetUserID string,
	permission models.Permission, cascade bool) error {

	if _, err := s.requireOwner(ctx, folderID, ownerID); err != nil {
		return err
	}
	if !permission.Valid() {
		return common.ErrInvalidPermission
	}
	return s.repomanager.Shares(s.db).Update(ctx, folderID, targetUserID, permission, cascade)
}

// RevokeShare removes the share of folderID with targetUserID. Revoking a
// share that does not exist succeeds.
func (s *ShareService) RevokeShare(ctx context.Context, folderID, ownerID, targetUserID string) error {
	if _, err := s.requireOwner(ctx, folderID, ownerID); err != nil {
		return err
	}

	removed, err := s.repomanager.Shares(s.db).Delete(ctx, folderID, targetUserID)
	if err != nil {
		return err
	}
	if removed {
		s.log.Info(ctx, "share revoked", "folder_id", folderID, "target_id", targetUserID)
	}
	return nil
}

// ListShares returns the shares of an owned folder.
func (s *ShareService) ListShares(ctx context.Context, folderID, ownerID string) ([]*models.FolderShare, error) {
	if _, err := s.requireOwner(ctx, folderID, ownerID); err != nil {
		return nil, err
	}
	return s.repomanager.Shares(s.db).ListByFolder(ctx, folderID)
}

// LookupUser resolves the username a share is addressed to.
func (s *ShareService) LookupUser(ctx context.Context, username string) (*models.User, error) {
	return s.repomanager.Users(s.db).GetByUsername(ctx, username)
}
