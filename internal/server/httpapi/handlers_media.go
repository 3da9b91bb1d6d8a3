package httpapi

import (
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/dmitrijs2005/mediavault/internal/common"
	"github.com/dmitrijs2005/mediavault/internal/server/services"
	"github.com/dmitrijs2005/mediavault/internal/server/storage"
	"github.com/labstack/echo/v4"
)

type uploadedFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// readUpload reads the multipart file in field, refusing anything larger
// than common.MaxUploadSize.
func readUpload(c echo.Context, field string) (*uploadedFile, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, fmt.Errorf("%w: %s is required", common.ErrorValidation, field)
	}
	if fh.Size > common.MaxUploadSize {
		return nil, common.ErrFileTooLarge
	}

	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, common.MaxUploadSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > common.MaxUploadSize {
		return nil, common.ErrFileTooLarge
	}

	return &uploadedFile{Name: fh.Filename, ContentType: fh.Header.Get(echo.HeaderContentType), Data: data}, nil
}

// sendFile writes a stored file inline with a safe download name.
func sendFile(c echo.Context, name, contentType string, data []byte) error {
	h := c.Response().Header()
	h.Set(echo.HeaderContentDisposition, mime.FormatMediaType("inline", map[string]string{"filename": name}))
	h.Set(echo.HeaderXContentTypeOptions, "nosniff")
	h.Set("Cache-Control", "private, max-age=300")
	return c.Blob(http.StatusOK, contentType, data)
}

func (s *Server) handleUploadMedia(c echo.Context) error {
	file, err := readUpload(c, "file")
	if err != nil {
		return err
	}

	m, err := s.media.Upload(c.Request().Context(), identityFrom(c).UserID, services.Upload{
		FolderID:    optionalParam(c.FormValue("folder_id")),
		FileName:    file.Name,
		ContentType: file.ContentType,
		Data:        file.Data,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, newMediaResponse(m))
}

func (s *Server) handleGetMedia(c echo.Context) error {
	m, _, err := s.media.Get(c.Request().Context(), identityFrom(c).UserID, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newMediaResponse(m))
}

// handleMediaContent redirects to object storage when the blob can be
// fetched directly and streams it otherwise.
func (s *Server) handleMediaContent(c echo.Context) error {
	ctx := c.Request().Context()
	userID, mediaID := identityFrom(c).UserID, c.Param("id")

	if s.urlTTL > 0 {
		url, err := s.media.ContentURL(ctx, userID, mediaID, s.urlTTL)
		if err != nil {
			return err
		}
		if url != "" {
			return c.Redirect(http.StatusFound, url)
		}
	}

	m, data, err := s.media.Content(ctx, userID, mediaID)
	if err != nil {
		return err
	}
	return sendFile(c, m.FileName, m.ContentType, data)
}

func (s *Server) handleMediaThumbnail(c echo.Context) error {
	data, err := s.media.Thumbnail(c.Request().Context(), identityFrom(c).UserID, c.Param("id"))
	if err != nil {
		return err
	}
	return sendFile(c, "thumbnail.jpg", storage.ThumbnailContentType, data)
}

func (s *Server) handleDeleteMedia(c echo.Context) error {
	if err := s.media.Delete(c.Request().Context(), identityFrom(c).UserID, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
