package models

import "time"

// Media describes an uploaded image. UserID is the owner of the folder it
// lives in, UploadedBy the user who sent it. The bytes live in object
// storage under StorageKey; when Encrypted is set they are AES-GCM sealed
// with a per-file key wrapped by the server master key.
type Media struct {
	ID               string
	UserID           string
	UploadedBy       string
	FolderID         *string
	FileName         string
	ContentType      string
	SizeBytes        int64
	StorageKey       string
	ThumbnailKey     *string
	Encrypted        bool
	EncryptedFileKey []byte
	Nonce            []byte
	CreatedAt        time.Time
}
