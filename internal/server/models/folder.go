package models

import "time"

// Folder is a node in an owner's folder forest. ParentID is nil for roots.
type Folder struct {
	ID        string
	UserID    string
	Name      string
	ParentID  *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Permission is the access level granted by a share.
type Permission string

const (
	PermissionRead      Permission = "read"
	PermissionReadWrite Permission = "read_write"
)

// Valid reports whether p is one of the known permissions.
func (p Permission) Valid() bool {
	return p == PermissionRead || p == PermissionReadWrite
}

// CanWrite reports whether p allows modifying folder contents.
func (p Permission) CanWrite() bool {
	return p == PermissionReadWrite
}

// FolderShare grants TargetUserID access to FolderID. With Cascade set the
// grant also covers every descendant of the folder.
type FolderShare struct {
	ID             string
	FolderID       string
	OwnerID        string
	TargetUserID   string
	TargetUsername string
	Permission     Permission
	Cascade        bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// SharedFolder is a folder shared directly with a user, as listed on the
// "shared with me" page.
type SharedFolder struct {
	Folder        Folder
	OwnerUsername string
	Permission    Permission
	Cascade       bool
}
