package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/dmitrijs2005/mediavault/internal/logging"
	"github.com/dmitrijs2005/mediavault/internal/server/models"
	"github.com/dmitrijs2005/mediavault/internal/server/services"
	"github.com/gorilla/sessions"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "jwt-secret-for-tests"

type testServer struct {
	srv       *Server
	auth      *mockAuth
	folders   *mockFolders
	shares    *mockShares
	media     *mockMedia
	documents *mockDocuments
}

func newTestServer(t *testing.T, tweak ...func(*Deps)) *testServer {
	t.Helper()

	store := sessions.NewCookieStore([]byte("0123456789abcdef0123456789abcdef"))
	store.Options = &sessions.Options{Path: "/", MaxAge: 3600, HttpOnly: true, SameSite: http.SameSiteLaxMode}

	ts := &testServer{
		auth:      &mockAuth{},
		folders:   &mockFolders{},
		shares:    &mockShares{},
		media:     &mockMedia{},
		documents: &mockDocuments{},
	}
	d := Deps{
		Address:        "127.0.0.1:0",
		JWTSecret:      testJWTSecret,
		AccessTokenTTL: 15 * time.Minute,
		Logger:         logging.Nop{},
		Auth:           ts.auth,
		Folders:        ts.folders,
		Shares:         ts.shares,
		Media:          ts.media,
		Documents:      ts.documents,
		Sessions:       store,
	}
	for _, f := range tweak {
		f(&d)
	}
	ts.srv = NewServer(d)

	t.Cleanup(func() {
		ts.auth.AssertExpectations(t)
		ts.folders.AssertExpectations(t)
		ts.shares.AssertExpectations(t)
		ts.media.AssertExpectations(t)
		ts.documents.AssertExpectations(t)
	})
	return ts
}

type call struct {
	method  string
	path    string
	body    any
	cookies []*http.Cookie
	bearer  string
}

func (ts *testServer) do(t *testing.T, c call) *httptest.ResponseRecorder {
	t.Helper()

	var body io.Reader
	if c.body != nil {
		b, err := json.Marshal(c.body)
		require.NoError(t, err)
		body = bytes.NewReader(b)
	}
	req := httptest.NewRequest(c.method, c.path, body)
	if c.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return ts.send(req, c.cookies, c.bearer)
}

func (ts *testServer) send(req *http.Request, cookies []*http.Cookie, bearer string) *httptest.ResponseRecorder {
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	ts.srv.ServeHTTP(rec, req)
	return rec
}

// login signs u in through /auth/login and returns the session cookies.
func (ts *testServer) login(t *testing.T, u *models.User) []*http.Cookie {
	t.Helper()

	ts.auth.On("Login", mock.Anything, u.Username, "password1").
		Return(&services.LoginResult{User: u, EmailUnverified: !u.EmailVerified}, nil).Once()

	rec := ts.do(t, call{
		method: http.MethodPost,
		path:   "/auth/login",
		body:   map[string]string{"login": u.Username, "password": "password1"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies
}

func testUser(id, username string) *models.User {
	return &models.User{
		ID:            id,
		Email:         username + "@example.com",
		Username:      username,
		IsActive:      true,
		EmailVerified: true,
	}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// multipartRequest builds a form upload with one file and extra fields.
func multipartRequest(t *testing.T, path, fileName, contentType string, data []byte, fields map[string]string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if fileName != "" {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", `form-data; name="file"; filename="`+fileName+`"`)
		h.Set("Content-Type", contentType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}
