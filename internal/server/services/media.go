package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/dmitrijs2005/mediavault/internal/common"
	"github.com/dmitrijs2005/mediavault/internal/logging"
	"github.com/dmitrijs2005/mediavault/internal/server/models"
	"github.com/dmitrijs2005/mediavault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/mediavault/internal/server/storage"
)

var imageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// Presigner is implemented by stores that can hand out direct download URLs.
type Presigner interface {
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Upload is an image sent by a client.
type Upload struct {
	FolderID    *string
	FileName    string
	ContentType string
	Data        []byte
}

type MediaService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	folders     *FolderService
	store       storage.Store
	codec       blobCodec
	log         logging.Logger
	now         func() time.Time

	thumbnail func([]byte) ([]byte, error)
}

// NewMediaService returns a media service; with a nil masterKey blobs are
// stored in the clear.
func NewMediaService(db *sql.DB, m repomanager.RepositoryManager, folders *FolderService, store storage.Store,
	masterKey []byte, log logging.Logger) *MediaService {
	return &MediaService{
		db:          db,
		repomanager: m,
		folders:     folders,
		store:       store,
		codec:       blobCodec{masterKey: masterKey},
		log:         log,
		now:         time.Now,
		thumbnail:   storage.MakeThumbnail,
	}
}

// Upload stores an image in a folder userID can write to, or in userID's
// root when no folder is given. The media row belongs to the folder owner.
func (s *MediaService) Upload(ctx context.Context, userID string, u Upload) (*models.Media, error) {
	if err := checkUploadSize(u.Data); err != nil {
		return nil, err
	}
	contentType, err := sniffContentType(u.Data, u.ContentType, imageTypes)
	if err != nil {
		return nil, err
	}

	ownerID := userID
	if u.FolderID != nil {
		a, err := s.folders.Access(ctx, userID, *u.FolderID)
		if err != nil {
			return nil, err
		}
		if !a.CanWrite() {
			return nil, common.ErrAccessDenied
		}
		ownerID = a.OwnerID
	}

	now := s.now()
	body, err := s.codec.seal(u.Data)
	if err != nil {
		return nil, err
	}

	key := storage.NewObjectKey("media", now)
	if err := s.store.Put(ctx, key, contentType, body.Body); err != nil {
		return nil, err
	}
	stored := []string{key}

	var thumbKey *string
	if thumb, err := s.thumbnail(u.Data); err != nil {
		s.log.Warn(ctx, "thumbnail failed", "file", u.FileName, "error", err)
	} else if thumb, err = s.codec.sealPacked(thumb); err != nil {
		s.log.Warn(ctx, "thumbnail seal failed", "file", u.FileName, "error", err)
	} else {
		k := storage.NewObjectKey("thumbnails", now)
		if err := s.store.Put(ctx, k, storage.ThumbnailContentType, thumb); err != nil {
			s.log.Warn(ctx, "thumbnail upload failed", "key", k, "error", err)
		} else {
			thumbKey = &k
			stored = append(stored, k)
		}
	}

	m, err := s.repomanager.Media(s.db).Create(ctx, &models.Media{
		UserID:           ownerID,
		UploadedBy:       userID,
		FolderID:         u.FolderID,
		FileName:         cleanFileName(u.FileName, "image"),
		ContentType:      contentType,
		SizeBytes:        int64(len(u.Data)),
		StorageKey:       key,
		ThumbnailKey:     thumbKey,
		Encrypted:        body.Encrypted,
		EncryptedFileKey: body.WrappedKey,
		Nonce:            body.Nonce,
	})
	if err != nil {
		s.removeObjects(ctx, stored)
		return nil, err
	}

	s.log.Info(ctx, "media uploaded", "media_id", m.ID, "owner_id", ownerID, "by", userID, "size", m.SizeBytes)
	return m, nil
}

func (s *MediaService) removeObjects(ctx context.Context, keys []string) {
	for _, k := range keys {
		if err := s.store.Delete(ctx, k); err != nil {
			s.log.Warn(ctx, "error deleting object", "key", k, "error", err)
		}
	}
}

// Get returns a media item userID may see, along with the user's right on
// it. Media outside any folder is visible to its owner only.
func (s *MediaService) Get(ctx context.Context, userID, mediaID string) (*models.Media, *Access, error) {
	m, err := s.repomanager.Media(s.db).GetByID(ctx, mediaID)
	if err != nil {
		return nil, nil, err
	}

	if m.FolderID == nil {
		if m.UserID != userID {
			return nil, nil, common.ErrorNotFound
		}
		return m, &Access{OwnerID: userID, Permission: models.PermissionReadWrite, Owned: true}, nil
	}

	a, err := s.folders.Access(ctx, userID, *m.FolderID)
	if err != nil {
		return nil, nil, err
	}
	return m, a, nil
}

// Content returns the original bytes of a media item.
func (s *MediaService) Content(ctx context.Context, userID, mediaID string) (*models.Media, []byte, error) {
	m, _, err := s.Get(ctx, userID, mediaID)
	if err != nil {
		return nil, nil, err
	}

	body, err := s.store.Get(ctx, m.StorageKey)
	if err != nil {
		return nil, nil, err
	}
	data, err := s.codec.open(body, m.EncryptedFileKey, m.Nonce, m.Encrypted)
	if err != nil {
		return nil, nil, err
	}
	return m, data, nil
}

// Thumbnail returns the JPEG preview of a media item.
func (s *MediaService) Thumbnail(ctx context.Context, userID, mediaID string) ([]byte, error) {
	m, _, err := s.Get(ctx, userID, mediaID)
	if err != nil {
		return nil, err
	}
	if m.ThumbnailKey == nil {
		return nil, common.ErrorNotFound
	}

	body, err := s.store.Get(ctx, *m.ThumbnailKey)
	if err != nil {
		return nil, err
	}
	return s.codec.openPacked(body, m.Encrypted)
}

// ContentURL returns a short-lived direct download URL when the store can
// sign one and the object is not sealed. The empty string means the content
// has to be streamed through the server.
func (s *MediaService) ContentURL(ctx context.Context, userID, mediaID string, ttl time.Duration) (string, error) {
	p, ok := s.store.(Presigner)
	if !ok {
		return "", nil
	}

	m, _, err := s.Get(ctx, userID, mediaID)
	if err != nil {
		return "", err
	}
	if m.Encrypted {
		return "", nil
	}
	return p.PresignGet(ctx, m.StorageKey, ttl)
}

// Delete removes a media item. It needs write access to its folder.
func (s *MediaService) Delete(ctx context.Context, userID, mediaID string) error {
	m, a, err := s.Get(ctx, userID, mediaID)
	if err != nil {
		return err
	}
	if !a.CanWrite() {
		return common.ErrAccessDenied
	}

	if err := s.repomanager.Media(s.db).Delete(ctx, m.ID); err != nil {
		return err
	}

	keys := []string{m.StorageKey}
	if m.ThumbnailKey != nil {
		keys = append(keys, *m.ThumbnailKey)
	}
	s.removeObjects(ctx, keys)

	s.log.Info(ctx, "media deleted", "media_id", m.ID, "by", userID)
	return nil
}
