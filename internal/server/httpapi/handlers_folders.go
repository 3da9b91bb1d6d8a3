package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/mediavault/internal/common"
	"github.com/dmitrijs2005/mediavault/internal/server/models"
	"github.com/labstack/echo/v4"
)

// Root listing modes of GET /api/folders.
const (
	viewOwn    = "own"
	viewShared = "shared"
	viewAll    = "all"
)

func optionalParam(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func (s *Server) handleListFolders(c echo.Context) error {
	ctx := c.Request().Context()
	id := identityFrom(c)

	if parentID := optionalParam(c.QueryParam("parent_id")); parentID != nil {
		return s.renderFolder(c, id.UserID, parentID)
	}

	view := c.QueryParam("view")
	if view == "" {
		view = viewAll
	}

	listing := folderListing{
		Owned:   true,
		Path:    []folderResponse{},
		Folders: []folderResponse{},
		Media:   []mediaResponse{},
	}

	switch view {
	case viewOwn, viewAll:
		v, err := s.folders.Browse(ctx, id.UserID, nil)
		if err != nil {
			return err
		}
		listing = newFolderListing(v)
		if view == viewOwn {
			break
		}
		fallthrough
	case viewShared:
		shared, err := s.folders.ListSharedFolders(ctx, id.UserID)
		if err != nil {
			return err
		}
		listing.Shared = newSharedList(shared)
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "view must be one of own, shared, all")
	}

	return c.JSON(http.StatusOK, listing)
}

func (s *Server) renderFolder(c echo.Context, userID string, folderID *string) error {
	v, err := s.folders.Browse(c.Request().Context(), userID, folderID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newFolderListing(v))
}

func (s *Server) handleGetFolder(c echo.Context) error {
	id := c.Param("id")
	return s.renderFolder(c, identityFrom(c).UserID, &id)
}

func (s *Server) handleCreateFolder(c echo.Context) error {
	var req createFolderRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	f, err := s.folders.CreateFolder(c.Request().Context(), identityFrom(c).UserID, req.Name, req.ParentID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, newFolderResponse(f))
}

func (s *Server) handleRenameFolder(c echo.Context) error {
	var req renameFolderRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := s.folders.RenameFolder(c.Request().Context(), identityFrom(c).UserID, c.Param("id"), req.Name); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleDeleteFolder(c echo.Context) error {
	if err := s.folders.DeleteFolder(c.Request().Context(), identityFrom(c).UserID, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleSharedFolders(c echo.Context) error {
	shared, err := s.folders.ListSharedFolders(c.Request().Context(), identityFrom(c).UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newSharedList(shared))
}

func (s *Server) handleListShares(c echo.Context) error {
	list, err := s.shares.ListShares(c.Request().Context(), c.Param("id"), identityFrom(c).UserID)
	if err != nil {
		return err
	}
	out := make([]shareResponse, 0, len(list))
	for _, sh := range list {
		out = append(out, newShareResponse(sh))
	}
	return c.JSON(http.StatusOK, out)
}

// shareTarget resolves the username a share is addressed to.
func (s *Server) shareTarget(ctx context.Context, username string) (*models.User, error) {
	u, err := s.shares.LookupUser(ctx, username)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, echo.NewHTTPError(http.StatusNotFound, "user not found")
	}
	return u, err
}

func (s *Server) handleCreateShare(c echo.Context) error {
	var req createShareRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	target, err := s.shareTarget(ctx, req.Username)
	if err != nil {
		return err
	}

	sh, err := s.shares.CreateShare(ctx, c.Param("id"), identityFrom(c).UserID, target.ID,
		models.Permission(req.Permission), req.Cascade)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, newShareResponse(sh))
}

func (s *Server) handleUpdateShare(c echo.Context) error {
	var req updateShareRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	target, err := s.shareTarget(ctx, c.Param("username"))
	if err != nil {
		return err
	}

	err = s.shares.UpdateShare(ctx, c.Param("id"), identityFrom(c).UserID, target.ID,
		models.Permission(req.Permission), req.Cascade)
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// handleRevokeShare succeeds when there is nothing to revoke, including
// for unknown usernames.
func (s *Server) handleRevokeShare(c echo.Context) error {
	ctx := c.Request().Context()
	folderID, ownerID := c.Param("id"), identityFrom(c).UserID

	target, err := s.shares.LookupUser(ctx, c.Param("username"))
	switch {
	case errors.Is(err, common.ErrorNotFound):
		// Still check ownership so the answer does not depend on the username.
		if _, err := s.shares.ListShares(ctx, folderID, ownerID); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	case err != nil:
		return err
	}

	if err := s.shares.RevokeShare(ctx, folderID, ownerID, target.ID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
