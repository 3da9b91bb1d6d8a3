package httpapi

import (
	"time"

	"github.com/dmitrijs2005/mediavault/internal/server/models"
	"github.com/dmitrijs2005/mediavault/internal/server/services"
)

// Requests.

type registerRequest struct {
	Email    string `json:"email" form:"email" validate:"required,email,max=254"`
	Username string `json:"username" form:"username" validate:"required,alphanum,min=3,max=32"`
	Password string `json:"password" form:"password" validate:"required,max=72"`
}

type loginRequest struct {
	Login    string `json:"login" form:"login" validate:"required,max=254"`
	Password string `json:"password" form:"password" validate:"required,max=72"`
}

type tokenRequest struct {
	Token string `json:"token" form:"token" query:"token" validate:"required,max=128"`
}

type passwordResetRequest struct {
	Email string `json:"email" form:"email" validate:"required,email"`
}

type passwordResetConfirmRequest struct {
	Token    string `json:"token" form:"token" validate:"required,max=128"`
	Password string `json:"password" form:"password" validate:"required,max=72"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,max=72"`
}

type createFolderRequest struct {
	Name     string  `json:"name" validate:"required,max=255"`
	ParentID *string `json:"parent_id" validate:"omitempty,uuid"`
}

type renameFolderRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

type createShareRequest struct {
	Username   string `json:"username" validate:"required"`
	Permission string `json:"permission" validate:"required,oneof=read read_write"`
	Cascade    bool   `json:"cascade"`
}

type updateShareRequest struct {
	Permission string `json:"permission" validate:"required,oneof=read read_write"`
	Cascade    bool   `json:"cascade"`
}

type createPersonRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

// Responses.

type messageResponse struct {
	Message string `json:"message"`
}

type userResponse struct {
	ID            string   `json:"id"`
	Email         string   `json:"email"`
	Username      string   `json:"username"`
	EmailVerified bool     `json:"email_verified"`
	Roles         []string `json:"roles"`
}

func newUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:            u.ID,
		Email:         u.Email,
		Username:      u.Username,
		EmailVerified: u.EmailVerified,
		Roles:         u.Roles(),
	}
}

type loginResponse struct {
	User    userResponse `json:"user"`
	Warning string       `json:"warning,omitempty"`
}

type accessTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type folderResponse struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Name      string    `json:"name"`
	ParentID  *string   `json:"parent_id"`
	CreatedAt time.Time `json:"created_at"`
}

func newFolderResponse(f *models.Folder) folderResponse {
	return folderResponse{ID: f.ID, OwnerID: f.UserID, Name: f.Name, ParentID: f.ParentID, CreatedAt: f.CreatedAt}
}

func newFolderList(fs []*models.Folder) []folderResponse {
	out := make([]folderResponse, 0, len(fs))
	for _, f := range fs {
		out = append(out, newFolderResponse(f))
	}
	return out
}

type sharedFolderResponse struct {
	Folder        folderResponse `json:"folder"`
	OwnerUsername string         `json:"owner_username"`
	Permission    string         `json:"permission"`
	Cascade       bool           `json:"cascade"`
}

func newSharedList(fs []*models.SharedFolder) []sharedFolderResponse {
	out := make([]sharedFolderResponse, 0, len(fs))
	for _, f := range fs {
		out = append(out, sharedFolderResponse{
			Folder:        newFolderResponse(&f.Folder),
			OwnerUsername: f.OwnerUsername,
			Permission:    string(f.Permission),
			Cascade:       f.Cascade,
		})
	}
	return out
}

type mediaResponse struct {
	ID           string    `json:"id"`
	FolderID     *string   `json:"folder_id"`
	OwnerID      string    `json:"owner_id"`
	UploadedBy   string    `json:"uploaded_by"`
	FileName     string    `json:"file_name"`
	ContentType  string    `json:"content_type"`
	SizeBytes    int64     `json:"size_bytes"`
	HasThumbnail bool      `json:"has_thumbnail"`
	CreatedAt    time.Time `json:"created_at"`
}

func newMediaResponse(m *models.Media) mediaResponse {
	return mediaResponse{
		ID:           m.ID,
		FolderID:     m.FolderID,
		OwnerID:      m.UserID,
		UploadedBy:   m.UploadedBy,
		FileName:     m.FileName,
		ContentType:  m.ContentType,
		SizeBytes:    m.SizeBytes,
		HasThumbnail: m.ThumbnailKey != nil,
		CreatedAt:    m.CreatedAt,
	}
}

func newMediaList(ms []*models.Media) []mediaResponse {
	out := make([]mediaResponse, 0, len(ms))
	for _, m := range ms {
		out = append(out, newMediaResponse(m))
	}
	return out
}

// folderListing is the body of every folder listing. Fields that do not
// apply to a view are omitted.
type folderListing struct {
	Folder     *folderResponse        `json:"folder,omitempty"`
	Permission string                 `json:"permission,omitempty"`
	Owned      bool                   `json:"owned"`
	Path       []folderResponse       `json:"path"`
	Folders    []folderResponse       `json:"folders"`
	Media      []mediaResponse        `json:"media"`
	Shared     []sharedFolderResponse `json:"shared,omitempty"`
}

func newFolderListing(v *services.FolderView) folderListing {
	l := folderListing{
		Owned:   true,
		Path:    newFolderList(v.Path),
		Folders: newFolderList(v.Children),
		Media:   newMediaList(v.Media),
	}
	if v.Folder != nil {
		f := newFolderResponse(v.Folder)
		l.Folder = &f
	}
	if v.Access != nil {
		l.Permission = string(v.Access.Permission)
		l.Owned = v.Access.Owned
	}
	return l
}

type shareResponse struct {
	FolderID   string    `json:"folder_id"`
	Username   string    `json:"username"`
	Permission string    `json:"permission"`
	Cascade    bool      `json:"cascade"`
	CreatedAt  time.Time `json:"created_at"`
}

func newShareResponse(s *models.FolderShare) shareResponse {
	return shareResponse{
		FolderID:   s.FolderID,
		Username:   s.TargetUsername,
		Permission: string(s.Permission),
		Cascade:    s.Cascade,
		CreatedAt:  s.CreatedAt,
	}
}

type personResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type documentResponse struct {
	ID          string    `json:"id"`
	PersonID    string    `json:"person_id"`
	Category    string    `json:"category"`
	Title       string    `json:"title"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	CreatedAt   time.Time `json:"created_at"`
}

func newDocumentResponse(d *models.MedicalDocument) documentResponse {
	return documentResponse{
		ID:          d.ID,
		PersonID:    d.PersonID,
		Category:    string(d.Category),
		Title:       d.Title,
		FileName:    d.FileName,
		ContentType: d.ContentType,
		SizeBytes:   d.SizeBytes,
		CreatedAt:   d.CreatedAt,
	}
}
