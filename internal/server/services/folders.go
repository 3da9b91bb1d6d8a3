package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/mediavault/internal/common"
	"github.com/dmitrijs2005/mediavault/internal/logging"
	"github.com/dmitrijs2005/mediavault/internal/server/models"
	"github.com/dmitrijs2005/mediavault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/mediavault/internal/server/storage"
)

// Access is a user's effective right on a folder.
type Access struct {
	Folder     *models.Folder
	OwnerID    string
	Permission models.Permission
	Owned      bool
	// GrantedBy is the folder whose share granted access; empty for owners.
	GrantedBy string
}

// CanWrite reports whether the user may change the folder and its contents.
func (a *Access) CanWrite() bool {
	return a.Permission.CanWrite()
}

// FolderView is everything needed to render one folder listing.
type FolderView struct {
	// Folder and Access are nil at the user's root.
	Folder   *models.Folder
	Access   *Access
	Path     []*models.Folder
	Children []*models.Folder
	Media    []*models.Media
}

type FolderService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       storage.Store
	log         logging.Logger
}

func NewFolderService(db *sql.DB, m repomanager.RepositoryManager, store storage.Store, log logging.Logger) *FolderService {
	return &FolderService{db: db, repomanager: m, store: store, log: log}
}

func (s *FolderService) GetOwnerID(ctx context.Context, folderID string) (string, error) {
	f, err := s.repomanager.Folders(s.db).GetByID(ctx, folderID)
	if err != nil {
		return "", err
	}
	return f.UserID, nil
}

// ListFolders returns ownerID's folders under parentID, or the roots when
// parentID is nil.
func (s *FolderService) ListFolders(ctx context.Context, ownerID string, parentID *string) ([]*models.Folder, error) {
	return s.repomanager.Folders(s.db).ListChildren(ctx, ownerID, parentID)
}

// ListSharedFolders returns folders shared directly with targetUserID,
// whether or not the shares cascade.
func (s *FolderService) ListSharedFolders(ctx context.Context, targetUserID string) ([]*models.SharedFolder, error) {
	return s.repomanager.Shares(s.db).ListSharedWith(ctx, targetUserID)
}

// parent loads the parent of f within the owner's tree. Anything other than
// a same-owner parent that has not been visited yet is a broken hierarchy.
func (s *FolderService) parent(ctx context.Context, f *models.Folder, ownerID string, seen map[string]bool) (*models.Folder, error) {
	if seen[*f.ParentID] {
		return nil, common.ErrCorruptHierarchy
	}

	p, err := s.repomanager.Folders(s.db).GetByID(ctx, *f.ParentID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrCorruptHierarchy
		}
		return nil, err
	}
	if p.UserID != ownerID {
		return nil, common.ErrCorruptHierarchy
	}
	return p, nil
}

// ResolvePath returns the breadcrumbs of folderID, root first. The folder
// must belong to contextOwnerID. A nil folderID yields an empty path.
func (s *FolderService) ResolvePath(ctx context.Context, folderID *string, contextOwnerID string) ([]*models.Folder, error) {
	if folderID == nil {
		return nil, nil
	}

	f, err := s.repomanager.Folders(s.db).GetByID(ctx, *folderID)
	if err != nil {
		return nil, err
	}
	if f.UserID != contextOwnerID {
		return nil, common.ErrorNotFound
	}

	path := []*models.Folder{f}
	seen := map[string]bool{f.ID: true}

	for f.ParentID != nil {
		if len(path) >= common.MaxFolderDepth {
			return nil, common.ErrCorruptHierarchy
		}
		f, err = s.parent(ctx, f, contextOwnerID, seen)
		if err != nil {
			return nil, err
		}
		seen[f.ID] = true
		path = append(path, f)
	}

	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, nil
}

// Access resolves userID's right on folderID. Owners get read-write.
// Otherwise the folder and its ancestors are searched bottom-up for a share
// with the user; the first one that applies decides. A share applies to the
// folder it is on, and to descendants only when it cascades.
func (s *FolderService) Access(ctx context.Context, userID, folderID string) (*Access, error) {
	target, err := s.repomanager.Folders(s.db).GetByID(ctx, folderID)
	if err != nil {
		return nil, err
	}

	if target.UserID == userID {
		return &Access{
			Folder:     target,
			OwnerID:    userID,
			Permission: models.PermissionReadWrite,
			Owned:      true,
		}, nil
	}

	shares := s.repomanager.Shares(s.db)
	seen := map[string]bool{}
	node := target

	for depth := 1; ; depth++ {
		if depth > common.MaxFolderDepth {
			return nil, common.ErrCorruptHierarchy
		}
		seen[node.ID] = true

		share, err := shares.Get(ctx, node.ID, userID)
		switch {
		case err == nil:
			if node.ID == target.ID || share.Cascade {
				return &Access{
					Folder:     target,
					OwnerID:    target.UserID,
					Permission: share.Permission,
					GrantedBy:  node.ID,
				}, nil
			}
		case !errors.Is(err, common.ErrorNotFound):
			return nil, err
		}

		if node.ParentID == nil {
			return nil, common.ErrAccessDenied
		}
		node, err = s.parent(ctx, node, target.UserID, seen)
		if err != nil {
			return nil, err
		}
	}
}

func folderName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 255 {
		return "", common.ErrorValidation
	}
	return name, nil
}

// CreateFolder makes a folder under parentID, or a root of userID when
// parentID is nil. A subfolder belongs to the owner of its parent, so
// collaborators with write access build inside the owner's tree. Trees stop
// at MaxFolderDepth levels.
func (s *FolderService) CreateFolder(ctx context.Context, userID, name string, parentID *string) (*models.Folder, error) {
	name, err := folderName(name)
	if err != nil {
		return nil, err
	}

	ownerID := userID
	if parentID != nil {
		a, err := s.Access(ctx, userID, *parentID)
		if err != nil {
			return nil, err
		}
		if !a.CanWrite() {
			return nil, common.ErrAccessDenied
		}
		ownerID = a.OwnerID

		path, err := s.ResolvePath(ctx, parentID, ownerID)
		if err != nil {
			return nil, err
		}
		if len(path) >= common.MaxFolderDepth {
			return nil, fmt.Errorf("%w: folders nest at most %d levels deep", common.ErrorValidation, common.MaxFolderDepth)
		}
	}

	f, err := s.repomanager.Folders(s.db).Create(ctx, &models.Folder{
		UserID:   ownerID,
		Name:     name,
		ParentID: parentID,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "folder created", "folder_id", f.ID, "owner_id", ownerID, "by", userID)
	return f, nil
}

func (s *FolderService) RenameFolder(ctx context.Context, userID, folderID, name string) error {
	name, err := folderName(name)
	if err != nil {
		return err
	}

	a, err := s.Access(ctx, userID, folderID)
	if err != nil {
		return err
	}
	if !a.CanWrite() {
		return common.ErrAccessDenied
	}
	return s.repomanager.Folders(s.db).Rename(ctx, folderID, name)
}

// DeleteFolder removes an owned folder with its subtree. Stored blobs of the
// removed media are deleted afterwards; failures there are only logged.
func (s *FolderService) DeleteFolder(ctx context.Context, userID, folderID string) error {
	folders := s.repomanager.Folders(s.db)

	f, err := folders.GetByID(ctx, folderID)
	if err != nil {
		return err
	}
	if f.UserID != userID {
		return common.ErrNotOwner
	}

	keys, err := s.subtreeKeys(ctx, f)
	if err != nil {
		return err
	}

	if err := folders.Delete(ctx, folderID); err != nil {
		return err
	}

	for _, k := range keys {
		if err := s.store.Delete(ctx, k); err != nil {
			s.log.Warn(ctx, "error deleting object", "key", k, "error", err)
		}
	}

	s.log.Info(ctx, "folder deleted", "folder_id", folderID, "objects", len(keys))
	return nil
}

// subtreeKeys collects the storage keys of all media under root.
func (s *FolderService) subtreeKeys(ctx context.Context, root *models.Folder) ([]string, error) {
	folders := s.repomanager.Folders(s.db)
	media := s.repomanager.Media(s.db)

	var keys []string
	seen := map[string]bool{}
	queue := []string{root.ID}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if seen[id] {
			continue
		}
		seen[id] = true

		items, err := media.ListByFolder(ctx, root.UserID, &id)
		if err != nil {
			return nil, err
		}
		for _, m := range items {
			keys = append(keys, m.StorageKey)
			if m.ThumbnailKey != nil {
				keys = append(keys, *m.ThumbnailKey)
			}
		}

		children, err := folders.ListChildren(ctx, root.UserID, &id)
		if err != nil {
			return nil, err
		}
		for _, c := range children {
			queue = append(queue, c.ID)
		}
	}
	return keys, nil
}

// Browse lists one folder for userID, or userID's root when folderID is nil.
// Collaborators see only the part of the path and the children they can
// access.
func (s *FolderService) Browse(ctx context.Context, userID string, folderID *string) (*FolderView, error) {
	if folderID == nil {
		children, err := s.ListFolders(ctx, userID, nil)
		if err != nil {
			return nil, err
		}
		items, err := s.repomanager.Media(s.db).ListByFolder(ctx, userID, nil)
		if err != nil {
			return nil, err
		}
		return &FolderView{Children: children, Media: items}, nil
	}

	a, err := s.Access(ctx, userID, *folderID)
	if err != nil {
		return nil, err
	}

	path, err := s.ResolvePath(ctx, folderID, a.OwnerID)
	if err != nil {
		return nil, err
	}

	children, err := s.ListFolders(ctx, a.OwnerID, folderID)
	if err != nil {
		return nil, err
	}

	if !a.Owned {
		for i, f := range path {
			if f.ID == a.GrantedBy {
				path = path[i:]
				break
			}
		}

		visible := children[:0]
		for _, c := range children {
			_, err := s.Access(ctx, userID, c.ID)
			if err == nil {
				visible = append(visible, c)
				continue
			}
			if !errors.Is(err, common.ErrAccessDenied) {
				return nil, err
			}
		}
		children = visible
	}

	items, err := s.repomanager.Media(s.db).ListByFolder(ctx, a.OwnerID, folderID)
	if err != nil {
		return nil, err
	}

	return &FolderView{
		Folder:   a.Folder,
		Access:   a,
		Path:     path,
		Children: children,
		Media:    items,
	}, nil
}
