package httpapi

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/mediavault/internal/common"
	"github.com/dmitrijs2005/mediavault/internal/server/auth"
	"github.com/labstack/echo/v4"
)

const (
	msgResetRequested  = "If the address belongs to an account, a password reset link has been sent."
	msgUnverifiedEmail = "Your e-mail address is not verified yet. Check your inbox or request a new link."
)

func (s *Server) handleHealth(c echo.Context) error {
	ctx := c.Request().Context()
	failed := map[string]string{}
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		return c.JSON(http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "failed": failed})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRegister(c echo.Context) error {
	var req registerRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	u, _, err := s.auth.Register(c.Request().Context(), req.Email, req.Username, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, newUserResponse(u))
}

func (s *Server) handleLogin(c echo.Context) error {
	var req loginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	res, err := s.auth.Login(c.Request().Context(), req.Login, req.Password)
	if err != nil {
		return err
	}
	if err := startSession(c, res.User); err != nil {
		return err
	}

	resp := loginResponse{User: newUserResponse(res.User)}
	if res.EmailUnverified {
		resp.Warning = msgUnverifiedEmail
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleLogout(c echo.Context) error {
	if err := endSession(c); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleVerifyEmail(c echo.Context) error {
	var req tokenRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	userID, err := s.auth.VerifyEmail(c.Request().Context(), req.Token)
	if err != nil {
		return err
	}
	if err := markSessionVerified(c, userID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "E-mail address verified."})
}

func (s *Server) handleResendVerification(c echo.Context) error {
	id := identityFrom(c)
	if _, err := s.auth.ResendVerification(c.Request().Context(), id.UserID); err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, messageResponse{Message: "A new verification link has been sent."})
}

// handlePasswordReset answers the same way whether or not the address is
// known, so it cannot be used to discover accounts.
func (s *Server) handlePasswordReset(c echo.Context) error {
	var req passwordResetRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	if _, err := s.auth.RequestPasswordReset(ctx, req.Email); err != nil {
		s.log.Error(ctx, "password reset request failed", "error", err)
	}
	return c.JSON(http.StatusAccepted, messageResponse{Message: msgResetRequested})
}

// handlePasswordResetCheck lets a client check a link before asking for a
// new password.
func (s *Server) handlePasswordResetCheck(c echo.Context) error {
	var req tokenRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := s.auth.CheckResetToken(c.Request().Context(), req.Token); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Reset link is valid."})
}

func (s *Server) handlePasswordResetConfirm(c echo.Context) error {
	var req passwordResetConfirmRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := s.auth.ResetPassword(c.Request().Context(), req.Token, req.Password); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Password changed. You can sign in now."})
}

// handleIssueToken exchanges a browser session for a bearer token usable by
// API clients.
func (s *Server) handleIssueToken(c echo.Context) error {
	id := identityFrom(c)
	token, err := auth.GenerateToken(id.UserID, s.jwtSecret, s.tokenTTL)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, accessTokenResponse{
		AccessToken: token,
		TokenType:   common.BearerScheme,
		ExpiresIn:   int64(s.tokenTTL / time.Second),
	})
}

func (s *Server) handleMe(c echo.Context) error {
	u, err := s.auth.GetUser(c.Request().Context(), identityFrom(c).UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newUserResponse(u))
}

func (s *Server) handleChangePassword(c echo.Context) error {
	var req changePasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	err := s.auth.ChangePassword(c.Request().Context(), identityFrom(c).UserID, req.OldPassword, req.NewPassword)
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleUnlockUser(c echo.Context) error {
	ctx := c.Request().Context()
	userID := c.Param("id")
	if err := s.auth.UnlockAccount(ctx, userID); err != nil {
		return err
	}
	s.log.Info(ctx, "account unlocked by admin", "user_id", userID, "admin_id", identityFrom(c).UserID)
	return c.NoContent(http.StatusNoContent)
}
