package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/mediavault/internal/common"
	"github.com/labstack/echo/v4"
)

type errorResponse struct {
	Error string `json:"error"`
}

// errorStatus maps service errors to HTTP statuses. Order matters only for
// wrapped errors matching several entries.
var errorStatus = []struct {
	err    error
	status int
}{
	{common.ErrorValidation, http.StatusBadRequest},
	{common.ErrWeakPassword, http.StatusBadRequest},
	{common.ErrInvalidPermission, http.StatusBadRequest},
	{common.ErrSelfShare, http.StatusBadRequest},
	{common.ErrTokenNotFound, http.StatusBadRequest},
	{common.ErrInvalidCredentials, http.StatusUnauthorized},
	{common.ErrorUnauthorized, http.StatusUnauthorized},
	{common.ErrInvalidToken, http.StatusUnauthorized},
	{common.ErrNotOwner, http.StatusForbidden},
	{common.ErrAccessDenied, http.StatusForbidden},
	{common.ErrorNotFound, http.StatusNotFound},
	{common.ErrDuplicateEmail, http.StatusConflict},
	{common.ErrDuplicateUsername, http.StatusConflict},
	{common.ErrDuplicateShare, http.StatusConflict},
	{common.ErrAlreadyVerified, http.StatusConflict},
	{common.ErrTokenConsumed, http.StatusConflict},
	{common.ErrTokenExpired, http.StatusGone},
	{common.ErrFileTooLarge, http.StatusRequestEntityTooLarge},
	{common.ErrUnsupportedMedia, http.StatusUnsupportedMediaType},
	{common.ErrAccountLocked, http.StatusLocked},
}

// statusFor returns the status for err and whether err is a known service
// error whose text may be shown to the client.
func statusFor(err error) (int, bool) {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return e.status, true
		}
	}
	return http.StatusInternalServerError, false
}

// errorHandler renders every error returned by a handler as JSON.
func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, msg := http.StatusInternalServerError, "internal error"

	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(status)
		}
	} else if code, known := statusFor(err); known {
		status, msg = code, err.Error()
	} else {
		s.log.Error(c.Request().Context(), "request failed",
			"method", c.Request().Method, "path", c.Path(), "error", err)
	}

	var werr error
	if c.Request().Method == http.MethodHead {
		werr = c.NoContent(status)
	} else {
		werr = c.JSON(status, errorResponse{Error: msg})
	}
	if werr != nil {
		s.log.Warn(c.Request().Context(), "error writing error response", "error", werr)
	}
}
