package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/volunteer-map/internal/model"
)

var userCols = []string{"id", "email", "name", "password_hash", "role", "provider", "google_id", "avatar_url", "created_at", "updated_at"}

func TestUserRepo_CreateNormalisesEmail(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepo(db)

	hash := "h"
	u := &model.User{Email: "  Ann@Example.COM ", PasswordHash: &hash, Role: model.RoleVolunteer, Provider: model.ProviderLocal}
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs("ann@example.com", nil, &hash, model.RoleVolunteer, model.ProviderLocal, nil, nil).
		WillReturnResult(sqlmock.NewResult(11, 1))

	require.NoError(t, repo.Create(context.Background(), u))
	assert.Equal(t, uint64(11), u.ID)
	assert.Equal(t, "ann@example.com", u.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_CreateDuplicate(t *testing.T) {
	cases := map[string]error{
		"Duplicate entry 'a@b.c' for key 'users.uq_users_email'":  ErrEmailExists,
		"Duplicate entry '123' for key 'users.uq_users_google_id'": ErrGoogleIDExists,
	}
	for msg, want := range cases {
		db, mock := setupMockDB(t)
		repo := NewUserRepo(db)
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
			WillReturnError(&mysql.MySQLError{Number: 1062, Message: msg})

		err := repo.Create(context.Background(), &model.User{Email: "a@b.c"})
		assert.ErrorIs(t, err, want)
	}
}

func TestUserRepo_FindByLogin(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepo(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE LOWER(email)=? OR LOWER(name)=?")).
		WithArgs("ann", "ann", MaxLoginCandidates).
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(1, "ann@a.com", "Ann", "h1", "VOLUNTEER", "LOCAL", nil, nil, now, now).
			AddRow(2, "ann@b.com", "ann", nil, "VOLUNTEER", "GOOGLE", "g-2", "http://img", now, now))

	users, err := repo.FindByLogin(context.Background(), " ANN ")
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.True(t, users[0].HasPassword())
	assert.False(t, users[1].HasPassword())
	require.NotNil(t, users[1].GoogleID)
	assert.Equal(t, "g-2", *users[1].GoogleID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_GetByIDNotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id=?")).
		WithArgs(uint64(9)).
		WillReturnRows(sqlmock.NewRows(userCols))

	_, err := repo.GetByID(context.Background(), 9)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepo_LinkGoogle(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepo(db)
	gid := "g-1"
	u := &model.User{ID: 3, Provider: model.ProviderLocalGoogle, GoogleID: &gid}

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET google_id=?, provider=?")).
		WithArgs(&gid, model.ProviderLocalGoogle, nil, nil, uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.LinkGoogle(context.Background(), u))
	assert.NoError(t, mock.ExpectationsWereMet())
}
