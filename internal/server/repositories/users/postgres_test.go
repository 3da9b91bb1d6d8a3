package users

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/mediavault/internal/common"
	"github.com/dmitrijs2005/mediavault/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cols = []string{"id", "email", "username", "password_hash", "is_active", "is_admin", "email_verified", "failed_attempts", "locked_until", "created_at", "updated_at"}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

const insertQ = `(?s)^INSERT\s+INTO\s+users\s*\(email,\s*username,\s*password_hash,\s*is_active,\s*is_admin,\s*email_verified\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5,\s*\$6\)\s*RETURNING\s+id,\s*created_at,\s*updated_at\s*$`

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(insertQ).
		WithArgs("alice@example.com", "alice", "hash", true, false, false).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow("u-1", now, now))

	u := &models.User{Email: "alice@example.com", Username: "alice", PasswordHash: "hash", IsActive: true}
	got, err := repo.Create(context.Background(), u)
	require.NoError(t, err)
	assert.Equal(t, "u-1", got.ID)
	assert.Equal(t, now, got.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_UniqueViolations(t *testing.T) {
	tests := []struct {
		constraint string
		want       error
	}{
		{constraint: "users_email_key", want: common.ErrDuplicateEmail},
		{constraint: "users_username_key", want: common.ErrDuplicateUsername},
	}

	for _, tt := range tests {
		t.Run(tt.constraint, func(t *testing.T) {
			repo, mock, db := newRepoWithMock(t)
			defer db.Close()

			mock.ExpectQuery(insertQ).
				WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: tt.constraint})

			_, err := repo.Create(context.Background(), &models.User{Email: "a@b.c", Username: "a"})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertQ).WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.User{Email: "a@b.c", Username: "a"})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestGetters_Found(t *testing.T) {
	locked := time.Now().Add(time.Minute)

	tests := []struct {
		name  string
		where string
		call  func(r *PostgresRepository) (*models.User, error)
		arg   string
	}{
		{"by id", `id\s*=\s*\$1`, func(r *PostgresRepository) (*models.User, error) { return r.GetByID(context.Background(), "u-1") }, "u-1"},
		{"by email", `email\s*=\s*\$1`, func(r *PostgresRepository) (*models.User, error) {
			return r.GetByEmail(context.Background(), "alice@example.com")
		}, "alice@example.com"},
		{"by username", `username\s*=\s*\$1`, func(r *PostgresRepository) (*models.User, error) {
			return r.GetByUsername(context.Background(), "alice")
		}, "alice"},
		{"by login", `email\s*=\s*\$1\s+OR\s+username\s*=\s*\$1`, func(r *PostgresRepository) (*models.User, error) {
			return r.GetByLogin(context.Background(), "alice")
		}, "alice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, db := newRepoWithMock(t)
			defer db.Close()

			q := `(?s)^SELECT\s+id,\s*email,.*\s+FROM\s+users\s+WHERE\s+` + tt.where + `\s*$`
			now := time.Now()
			mock.ExpectQuery(q).WithArgs(tt.arg).WillReturnRows(sqlmock.NewRows(cols).
				AddRow("u-1", "alice@example.com", "alice", "hash", true, false, true, 2, locked, now, now))

			got, err := tt.call(repo)
			require.NoError(t, err)
			assert.Equal(t, "u-1", got.ID)
			assert.Equal(t, "alice", got.Username)
			assert.True(t, got.EmailVerified)
			assert.Equal(t, 2, got.FailedAttempts)
			require.NotNil(t, got.LockedUntil)
			assert.True(t, got.LockedUntil.Equal(locked))
		})
	}
}

func TestGetByID_NullLockedUntil(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`(?s)^SELECT .* FROM\s+users\s+WHERE\s+id`).WithArgs("u-1").WillReturnRows(sqlmock.NewRows(cols).
		AddRow("u-1", "alice@example.com", "alice", "hash", true, false, false, 0, nil, now, now))

	got, err := repo.GetByID(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Nil(t, got.LockedUntil)
}

func TestGetByLogin_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT .* FROM\s+users`).WithArgs("ghost").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByLogin(context.Background(), "ghost")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestGetByLogin_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT .* FROM\s+users`).WithArgs("alice").WillReturnError(errors.New("db err"))

	_, err := repo.GetByLogin(context.Background(), "alice")
	if err == nil || !regexp.MustCompile(`db error: .*db err`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

const failQ = `(?s)^UPDATE\s+users\s+SET\s+failed_attempts\s*=\s*CASE.*locked_until\s*=\s*CASE.*WHERE\s+id\s*=\s*\$1\s+RETURNING\s+failed_attempts,\s*locked_until\s*$`

func TestRegisterFailedLogin_BelowThreshold(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(failQ).
		WithArgs("u-1", 5, float64(900)).
		WillReturnRows(sqlmock.NewRows([]string{"failed_attempts", "locked_until"}).AddRow(3, nil))

	n, lockedUntil, err := repo.RegisterFailedLogin(context.Background(), "u-1", 5, 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Nil(t, lockedUntil)
}

func TestRegisterFailedLogin_Locks(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	until := time.Now().Add(15 * time.Minute)
	mock.ExpectQuery(failQ).
		WithArgs("u-1", 5, float64(900)).
		WillReturnRows(sqlmock.NewRows([]string{"failed_attempts", "locked_until"}).AddRow(0, until))

	n, lockedUntil, err := repo.RegisterFailedLogin(context.Background(), "u-1", 5, 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	require.NotNil(t, lockedUntil)
	assert.True(t, lockedUntil.Equal(until))
}

func TestRegisterFailedLogin_Errors(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(failQ).WillReturnError(sql.ErrNoRows)
	_, _, err := repo.RegisterFailedLogin(context.Background(), "u-x", 5, time.Minute)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	mock.ExpectQuery(failQ).WillReturnError(errors.New("boom"))
	_, _, err = repo.RegisterFailedLogin(context.Background(), "u-1", 5, time.Minute)
	assert.Regexp(t, regexp.MustCompile(`db error: .*boom`), err.Error())
}

func TestResetFailedLogins(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+users\s+SET\s+failed_attempts\s*=\s*0,\s*locked_until\s*=\s*NULL.*WHERE\s+id\s*=\s*\$1\s+AND`
	mock.ExpectExec(q).WithArgs("u-1").WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, repo.ResetFailedLogins(context.Background(), "u-1"))

	mock.ExpectExec(q).WithArgs("u-1").WillReturnError(errors.New("boom"))
	err := repo.ResetFailedLogins(context.Background(), "u-1")
	assert.Regexp(t, regexp.MustCompile(`db error: .*boom`), err.Error())
}

func TestSingleRowUpdates(t *testing.T) {
	tests := []struct {
		name string
		q    string
		args []driver.Value
		call func(r *PostgresRepository) error
	}{
		{"verify", `(?s)^UPDATE\s+users\s+SET\s+email_verified\s*=\s*TRUE`, []driver.Value{"u-1"},
			func(r *PostgresRepository) error { return r.SetEmailVerified(context.Background(), "u-1") }},
		{"password", `(?s)^UPDATE\s+users\s+SET\s+password_hash\s*=\s*\$2,\s*failed_attempts\s*=\s*0,\s*locked_until\s*=\s*NULL`, []driver.Value{"u-1", "newhash"},
			func(r *PostgresRepository) error { return r.UpdatePassword(context.Background(), "u-1", "newhash") }},
		{"unlock", `(?s)^UPDATE\s+users\s+SET\s+failed_attempts\s*=\s*0,\s*locked_until\s*=\s*NULL,\s*updated_at\s*=\s*now\(\)\s+WHERE\s+id\s*=\s*\$1$`, []driver.Value{"u-1"},
			func(r *PostgresRepository) error { return r.Unlock(context.Background(), "u-1") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, db := newRepoWithMock(t)
			defer db.Close()

			args := tt.args
			mock.ExpectExec(tt.q).WithArgs(args...).WillReturnResult(sqlmock.NewResult(0, 1))
			require.NoError(t, tt.call(repo))

			mock.ExpectExec(tt.q).WithArgs(args...).WillReturnResult(sqlmock.NewResult(0, 0))
			assert.ErrorIs(t, tt.call(repo), common.ErrorNotFound)

			mock.ExpectExec(tt.q).WithArgs(args...).WillReturnError(&pgconn.PgError{Code: "22P02"})
			assert.ErrorIs(t, tt.call(repo), common.ErrorNotFound)

			mock.ExpectExec(tt.q).WithArgs(args...).WillReturnError(errors.New("boom"))
			err := tt.call(repo)
			assert.Regexp(t, regexp.MustCompile(`db error: .*boom`), err.Error())

			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
