package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coopvalles/asamblea-api/internal/models"
)

func newUserMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestUserRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newUserMock(t)
	defer cleanup()
	repo := NewUserRepository(db)
	now := time.Now()

	rows := sqlmock.NewRows([]string{"id", "email", "password_hash", "full_name", "role", "active", "last_login", "created_at", "updated_at"}).
		AddRow("u-1", "ana@coop.test", "hash", "Ana Beltran", "OPERATOR", true, nil, now, now)
	mock.ExpectQuery("SELECT id, email, password_hash, full_name, role, active").
		WithArgs("u-1").
		WillReturnRows(rows)

	user, err := repo.FindByID(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleOperator, user.Role)
	require.NotNil(t, user.Email)
	assert.Equal(t, "ana@coop.test", *user.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryListRecipientIDsAll(t *testing.T) {
	db, mock, cleanup := newUserMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM users WHERE active = TRUE AND email IS NOT NULL ORDER BY id")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("u-1").AddRow("u-2"))

	ids, err := repo.ListRecipientIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"u-1", "u-2"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryListRecipientIDsByRole(t *testing.T) {
	db, mock, cleanup := newUserMock(t)
	defer cleanup()
	repo := NewUserRepository(db)
	role := models.RoleOperator

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM users WHERE active = TRUE AND email IS NOT NULL AND role = $1 ORDER BY id")).
		WithArgs(role).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("u-2"))

	ids, err := repo.ListRecipientIDs(context.Background(), &role)
	require.NoError(t, err)
	assert.Equal(t, []string{"u-2"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}
