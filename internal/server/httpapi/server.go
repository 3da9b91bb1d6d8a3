// Package httpapi is the JSON HTTP surface of MediaVault, built on echo.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/mediavault/internal/logging"
	"github.com/dmitrijs2005/mediavault/internal/server/models"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const shutdownTimeout = 10 * time.Second

// Deps is what the HTTP server needs from the rest of the application.
type Deps struct {
	Address   string
	JWTSecret string
	// AccessTokenTTL is the lifetime of bearer tokens issued by /api/token.
	AccessTokenTTL time.Duration
	// ContentURLTTL is the lifetime of presigned media URLs.
	ContentURLTTL time.Duration

	Logger    logging.Logger
	Auth      AuthService
	Folders   FolderService
	Shares    ShareService
	Media     MediaService
	Documents DocumentService

	Sessions sessions.Store
	// RateLimit guards the /auth endpoints; nil means a per-process limiter.
	RateLimit middleware.RateLimiterStore
	Checks    map[string]HealthCheck
}

type Server struct {
	e         *echo.Echo
	address   string
	log       logging.Logger
	jwtSecret []byte
	tokenTTL  time.Duration
	urlTTL    time.Duration

	auth      AuthService
	folders   FolderService
	shares    ShareService
	media     MediaService
	documents DocumentService
	checks    map[string]HealthCheck
}

func NewServer(d Deps) *Server {
	s := &Server{
		e:         echo.New(),
		address:   d.Address,
		log:       d.Logger.With("module", "http_server"),
		jwtSecret: []byte(d.JWTSecret),
		tokenTTL:  d.AccessTokenTTL,
		urlTTL:    d.ContentURLTTL,
		auth:      d.Auth,
		folders:   d.Folders,
		shares:    d.Shares,
		media:     d.Media,
		documents: d.Documents,
		checks:    d.Checks,
	}

	s.e.HideBanner = true
	s.e.HidePort = true
	s.e.Validator = newRequestValidator()
	s.e.HTTPErrorHandler = s.errorHandler

	s.e.Use(middleware.RequestID())
	s.e.Use(middleware.RequestLoggerWithConfig(s.requestLoggerConfig()))
	s.e.Use(middleware.Recover())
	s.e.Use(session.Middleware(d.Sessions))

	limiter := d.RateLimit
	if limiter == nil {
		limiter = newMemoryRateStore(AuthRateLimit, AuthRateWindow)
	}
	s.routes(rateLimiter(limiter))
	return s
}

func (s *Server) routes(limit echo.MiddlewareFunc) {
	e := s.e

	e.GET("/healthz", s.handleHealth)

	a := e.Group("/auth", limit)
	a.POST("/register", s.handleRegister)
	a.POST("/login", s.handleLogin)
	a.POST("/logout", s.handleLogout, s.RequireSession)
	a.GET("/verify-email", s.handleVerifyEmail)
	a.POST("/verify-email", s.handleVerifyEmail)
	a.POST("/resend-verification", s.handleResendVerification, s.RequireSession)
	a.POST("/password-reset", s.handlePasswordReset)
	a.GET("/password-reset/confirm", s.handlePasswordResetCheck)
	a.POST("/password-reset/confirm", s.handlePasswordResetConfirm)

	// Leaves room for multipart framing around a maximum-size file.
	upload := middleware.BodyLimit("11M")

	api := e.Group("/api", s.RequireAuth)
	api.POST("/token", s.handleIssueToken, s.RequireSession)
	api.GET("/me", s.handleMe)
	api.POST("/me/password", s.handleChangePassword)

	api.GET("/folders", s.handleListFolders)
	api.POST("/folders", s.handleCreateFolder)
	api.GET("/folders/:id", s.handleGetFolder)
	api.PATCH("/folders/:id", s.handleRenameFolder)
	api.DELETE("/folders/:id", s.handleDeleteFolder)
	api.GET("/shared-folders", s.handleSharedFolders)

	api.GET("/folders/:id/shares", s.handleListShares)
	api.POST("/folders/:id/shares", s.handleCreateShare)
	api.PATCH("/folders/:id/shares/:username", s.handleUpdateShare)
	api.DELETE("/folders/:id/shares/:username", s.handleRevokeShare)

	api.POST("/media", s.handleUploadMedia, upload)
	api.GET("/media/:id", s.handleGetMedia)
	api.GET("/media/:id/content", s.handleMediaContent)
	api.GET("/media/:id/thumbnail", s.handleMediaThumbnail)
	api.DELETE("/media/:id", s.handleDeleteMedia)

	api.GET("/persons", s.handleListPersons)
	api.POST("/persons", s.handleCreatePerson)
	api.GET("/persons/:id/documents", s.handleListDocuments)
	api.POST("/persons/:id/documents", s.handleUploadDocument, upload)
	api.GET("/documents/:id", s.handleGetDocument)
	api.GET("/documents/:id/content", s.handleDocumentContent)
	api.DELETE("/documents/:id", s.handleDeleteDocument)

	admin := e.Group("/admin", s.RequireAuth, RequireRole(models.RoleAdmin))
	admin.POST("/users/:id/unlock", s.handleUnlockUser)
}

// ServeHTTP lets the server be mounted or driven by httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.e.ServeHTTP(w, r)
}

func (s *Server) requestLoggerConfig() middleware.RequestLoggerConfig {
	return middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/healthz"
		},
		LogLatency:   true,
		LogRemoteIP:  true,
		LogMethod:    true,
		LogURIPath:   true,
		LogRoutePath: true,
		LogRequestID: true,
		LogStatus:    true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			args := []any{
				"method", v.Method,
				"path", v.URIPath,
				"route", v.RoutePath,
				"status", v.Status,
				"latency", v.Latency,
				"remote_ip", v.RemoteIP,
				"request_id", v.RequestID,
			}
			if id := identityFrom(c); id != nil {
				args = append(args, "user_id", id.UserID)
			}
			if v.Error != nil {
				args = append(args, "error", v.Error)
			}

			ctx := c.Request().Context()
			switch {
			case v.Status >= http.StatusInternalServerError:
				s.log.Error(ctx, "request", args...)
			case v.Status >= http.StatusBadRequest:
				s.log.Warn(ctx, "request", args...)
			default:
				s.log.Info(ctx, "request", args...)
			}
			return nil
		},
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.e,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.log.Info(context.Background(), "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Error(shutdownCtx, "HTTP shutdown error", "error", err)
		}
	}()

	s.log.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
