package httpapi

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/boj/redistore"
	"github.com/dmitrijs2005/mediavault/internal/server/config"
	"github.com/dmitrijs2005/mediavault/internal/server/models"
	"github.com/gomodule/redigo/redis"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
)

const sessionName = "mediavault_session"

// Session value keys.
const (
	sessUserID        = "user_id"
	sessUsername      = "username"
	sessEmail         = "email"
	sessEmailVerified = "email_verified"
	sessRoles         = "roles"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewSessionStore returns a Redis-backed store when cfg.RedisAddr is set and
// a signed cookie store otherwise. The closer releases the Redis pool.
func NewSessionStore(cfg *config.Config) (sessions.Store, io.Closer, error) {
	opts := &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.SessionMaxAge / time.Second),
		HttpOnly: true,
		Secure:   strings.HasPrefix(cfg.BaseURL, "https://"),
		SameSite: http.SameSiteLaxMode,
	}

	if cfg.RedisAddr == "" {
		store := sessions.NewCookieStore([]byte(cfg.SessionSecret))
		store.Options = opts
		store.MaxAge(opts.MaxAge)
		return store, nopCloser{}, nil
	}

	pool := &redis.Pool{
		MaxIdle:     10,
		IdleTimeout: 240 * time.Second,
		Dial: func() (redis.Conn, error) {
			var options []redis.DialOption
			if cfg.RedisPassword != "" {
				options = append(options, redis.DialPassword(cfg.RedisPassword))
			}
			return redis.Dial("tcp", cfg.RedisAddr, options...)
		},
	}

	store, err := redistore.NewRediStoreWithPool(pool, []byte(cfg.SessionSecret))
	if err != nil {
		_ = pool.Close()
		return nil, nil, err
	}
	store.SetKeyPrefix("mediavault:session:")
	store.SetMaxAge(opts.MaxAge)
	store.Options = opts
	return store, store, nil
}

func getSession(c echo.Context) (*sessions.Session, error) {
	return session.Get(sessionName, c)
}

// startSession records a signed-in user in the session.
func startSession(c echo.Context, u *models.User) error {
	sess, err := getSession(c)
	if err != nil {
		return err
	}
	sess.Values[sessUserID] = u.ID
	sess.Values[sessUsername] = u.Username
	sess.Values[sessEmail] = u.Email
	sess.Values[sessEmailVerified] = u.EmailVerified
	sess.Values[sessRoles] = u.Roles()
	return sess.Save(c.Request(), c.Response())
}

// endSession drops every value and expires the cookie.
func endSession(c echo.Context) error {
	sess, err := getSession(c)
	if err != nil {
		return err
	}
	for k := range sess.Values {
		delete(sess.Values, k)
	}
	sess.Options.MaxAge = -1
	return sess.Save(c.Request(), c.Response())
}

// markSessionVerified flips the verified flag when the session belongs to userID.
func markSessionVerified(c echo.Context, userID string) error {
	sess, err := getSession(c)
	if err != nil {
		return err
	}
	if id, _ := sess.Values[sessUserID].(string); id != userID {
		return nil
	}
	sess.Values[sessEmailVerified] = true
	return sess.Save(c.Request(), c.Response())
}

// sessionIdentity reads the identity stored by startSession.
func sessionIdentity(c echo.Context) (*Identity, bool) {
	sess, err := getSession(c)
	if err != nil {
		return nil, false
	}
	id, _ := sess.Values[sessUserID].(string)
	if id == "" {
		return nil, false
	}
	username, _ := sess.Values[sessUsername].(string)
	email, _ := sess.Values[sessEmail].(string)
	verified, _ := sess.Values[sessEmailVerified].(bool)
	roles, _ := sess.Values[sessRoles].([]string)
	return &Identity{
		UserID:        id,
		Username:      username,
		Email:         email,
		EmailVerified: verified,
		Roles:         roles,
		Source:        SourceSession,
	}, true
}
