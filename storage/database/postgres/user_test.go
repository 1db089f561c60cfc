package pgrepos

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aulanet/campus/core/authz"
	"github.com/aulanet/campus/core/user"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

var userCols = []string{
	"id", "name", "email", "role", "year", "division", "approval_status", "is_active",
	"password_hash", "totp_secret", "totp_enabled", "created_at", "updated_at", "last_login",
}

func TestUserRepositoryGetByEmail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT \* FROM "user" WHERE email = \$1`).
		WithArgs("ana@school.test").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(
			"7f9c34cc-6bd8-4d38-8714-a61b4e1e3217", "Ana", "ana@school.test", "student",
			3, "A", "approved", true, []byte("$2a$10$hash"), nil, false, now, now, nil,
		))

	usr, err := repo.GetUserByEmail(ctx, "ana@school.test")
	require.NoError(t, err)
	assert.Equal(t, "Ana", usr.Name)
	assert.Equal(t, authz.RoleStudent, usr.Role)
	assert.Equal(t, 3, usr.Year)
	assert.Equal(t, authz.ApprovalApproved, usr.ApprovalStatus)
	assert.True(t, usr.LastLogin.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryGetByEmailNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "user" WHERE email = \$1`).
		WithArgs("nobody@school.test").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetUserByEmail(context.Background(), "nobody@school.test")
	assert.Equal(t, user.ErrNotFound, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryCheckEmailUniqueness(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM "user" WHERE email = \$1\)`).
		WithArgs("taken@school.test").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	assert.Equal(t, user.ErrEmailExists, repo.CheckEmailUniqueness(ctx, "taken@school.test"))

	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM "user" WHERE email = \$1\)`).
		WithArgs("free@school.test").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	assert.NoError(t, repo.CheckEmailUniqueness(ctx, "free@school.test"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryDeactivateUsersByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	// no-op without ids
	assert.NoError(t, repo.DeactivateUsersByID(ctx))

	ids := []string{"a0eebc99-9c0b-4ef8-bb6d-6bb9bd380a11"}
	mock.ExpectExec(`UPDATE "user" SET is_active = FALSE`).
		WithArgs(pq.Array(ids)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(t, repo.DeactivateUsersByID(ctx, ids...))
	assert.NoError(t, mock.ExpectationsWereMet())
}
