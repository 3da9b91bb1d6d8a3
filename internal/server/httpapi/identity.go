package httpapi

import (
	"net/http"
	"slices"
	"strings"

	"github.com/dmitrijs2005/mediavault/internal/common"
	"github.com/dmitrijs2005/mediavault/internal/server/auth"
	"github.com/labstack/echo/v4"
)

// IdentitySource tells how a request was authenticated.
type IdentitySource int

const (
	SourceSession IdentitySource = iota
	SourceBearer
)

// Identity is the authenticated caller, resolved once per request.
type Identity struct {
	UserID        string
	Username      string
	Email         string
	EmailVerified bool
	Roles         []string
	Source        IdentitySource
}

// HasRole reports whether the caller holds role.
func (i *Identity) HasRole(role string) bool {
	return slices.Contains(i.Roles, role)
}

const identityKey = "identity"

// identityFrom returns the identity stored by RequireAuth.
func identityFrom(c echo.Context) *Identity {
	id, _ := c.Get(identityKey).(*Identity)
	return id
}

var errUnauthenticated = echo.NewHTTPError(http.StatusUnauthorized, "authentication required")

func bearerToken(c echo.Context) (string, bool) {
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, common.BearerScheme) || token == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

// RequireAuth accepts either a session cookie or a bearer access token and
// stores the caller's Identity on the context.
func (s *Server) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if token, ok := bearerToken(c); ok {
			id, err := s.bearerIdentity(c, token)
			if err != nil {
				return err
			}
			c.Set(identityKey, id)
			return next(c)
		}

		id, ok := sessionIdentity(c)
		if !ok {
			return errUnauthenticated
		}
		c.Set(identityKey, id)
		return next(c)
	}
}

// RequireSession is RequireAuth restricted to cookie sessions.
func (s *Server) RequireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := sessionIdentity(c)
		if !ok {
			return errUnauthenticated
		}
		c.Set(identityKey, id)
		return next(c)
	}
}

func (s *Server) bearerIdentity(c echo.Context, token string) (*Identity, error) {
	userID, err := auth.GetUserIDFromToken(token, s.jwtSecret)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}

	u, err := s.auth.GetUser(c.Request().Context(), userID)
	if err != nil || !u.IsActive {
		return nil, errUnauthenticated
	}
	return &Identity{
		UserID:        u.ID,
		Username:      u.Username,
		Email:         u.Email,
		EmailVerified: u.EmailVerified,
		Roles:         u.Roles(),
		Source:        SourceBearer,
	}, nil
}

// RequireRole rejects callers without role. It must run after RequireAuth.
func RequireRole(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := identityFrom(c)
			if id == nil {
				return errUnauthenticated
			}
			if !id.HasRole(role) {
				return echo.NewHTTPError(http.StatusForbidden, "insufficient role")
			}
			return next(c)
		}
	}
}

