package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/mediavault/internal/server/models"
	"github.com/dmitrijs2005/mediavault/internal/server/services"
	"github.com/labstack/echo/v4"
)

func (s *Server) handleListPersons(c echo.Context) error {
	list, err := s.documents.ListPersons(c.Request().Context(), identityFrom(c).UserID)
	if err != nil {
		return err
	}
	out := make([]personResponse, 0, len(list))
	for _, p := range list {
		out = append(out, personResponse{ID: p.ID, Name: p.Name, CreatedAt: p.CreatedAt})
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleCreatePerson(c echo.Context) error {
	var req createPersonRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	p, err := s.documents.CreatePerson(c.Request().Context(), identityFrom(c).UserID, req.Name)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, personResponse{ID: p.ID, Name: p.Name, CreatedAt: p.CreatedAt})
}

func (s *Server) handleListDocuments(c echo.Context) error {
	var category *models.DocumentCategory
	if v := c.QueryParam("category"); v != "" {
		cat := models.DocumentCategory(v)
		category = &cat
	}

	list, err := s.documents.ListDocuments(c.Request().Context(), identityFrom(c).UserID, c.Param("id"), category)
	if err != nil {
		return err
	}
	out := make([]documentResponse, 0, len(list))
	for _, d := range list {
		out = append(out, newDocumentResponse(d))
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleUploadDocument(c echo.Context) error {
	file, err := readUpload(c, "file")
	if err != nil {
		return err
	}

	d, err := s.documents.Upload(c.Request().Context(), identityFrom(c).UserID, services.DocumentUpload{
		PersonID:    c.Param("id"),
		Category:    models.DocumentCategory(c.FormValue("category")),
		Title:       c.FormValue("title"),
		FileName:    file.Name,
		ContentType: file.ContentType,
		Data:        file.Data,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, newDocumentResponse(d))
}

func (s *Server) handleGetDocument(c echo.Context) error {
	d, err := s.documents.GetDocument(c.Request().Context(), identityFrom(c).UserID, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newDocumentResponse(d))
}

func (s *Server) handleDocumentContent(c echo.Context) error {
	d, data, err := s.documents.Content(c.Request().Context(), identityFrom(c).UserID, c.Param("id"))
	if err != nil {
		return err
	}
	return sendFile(c, d.FileName, d.ContentType, data)
}

func (s *Server) handleDeleteDocument(c echo.Context) error {
	if err := s.documents.DeleteDocument(c.Request().Context(), identityFrom(c).UserID, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
