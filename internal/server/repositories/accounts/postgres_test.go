package accounts

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/distrischool/authservice/internal/common"
	"github.com/distrischool/authservice/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

var accountColumns = []string{
	"id", "email", "name", "role", "password_digest", "email_verified", "enabled",
	"verification_token", "reset_token", "reset_expires_at", "created_at", "last_login",
}

var created = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func sampleAccount() *models.Account {
	return &models.Account{
		ID:                "7f0c1f5e-0000-4000-8000-000000000001",
		Email:             "ana@school.edu",
		Name:              "Ana",
		Role:              models.RoleStudent,
		PasswordDigest:    "$2a$digest",
		Enabled:           true,
		VerificationToken: "vtok",
		CreatedAt:         created,
	}
}

const insertQ = `(?s)^INSERT\s+INTO\s+accounts\s*\(id,\s*email,.*last_login\)\s*VALUES\s*\(\$1,.*\$12\)\s*$`

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	a := sampleAccount()
	mock.ExpectExec(insertQ).
		WithArgs(a.ID, a.Email, a.Name, "STUDENT", a.PasswordDigest, false, true,
			"vtok", nil, nil, created, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	got, err := repo.Create(context.Background(), a)
	require.NoError(t, err)
	assert.Same(t, a, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_UniqueViolation(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(insertQ).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "accounts_email_key"})

	_, err := repo.Create(context.Background(), sampleAccount())
	require.ErrorIs(t, err, common.ErrEmailTaken)
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(insertQ).WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), sampleAccount())
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestFindByEmail_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+id,\s*email,.*FROM\s+accounts\s+WHERE\s+email\s*=\s*\$1\s+FOR\s+UPDATE\s*$`
	login := created.Add(time.Hour)
	rows := sqlmock.NewRows(accountColumns).
		AddRow("id-1", "ana@school.edu", "Ana", "TEACHER", "d", true, true, nil, nil, nil, created, login)
	mock.ExpectQuery(q).WithArgs("ana@school.edu").WillReturnRows(rows)

	got, err := repo.FindByEmail(context.Background(), "ana@school.edu")
	require.NoError(t, err)
	assert.Equal(t, "id-1", got.ID)
	assert.Equal(t, models.RoleTeacher, got.Role)
	assert.True(t, got.EmailVerified)
	assert.Empty(t, got.VerificationToken)
	assert.Nil(t, got.ResetExpiresAt)
	require.NotNil(t, got.LastLogin)
	assert.True(t, login.Equal(*got.LastLogin))
}

func TestFindByEmail_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT.*WHERE\s+email\s*=\s*\$1`).
		WithArgs("ghost@school.edu").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByEmail(context.Background(), "ghost@school.edu")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestFindByEmail_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT.*WHERE\s+email\s*=\s*\$1`).
		WillReturnError(errors.New("db err"))

	_, err := repo.FindByEmail(context.Background(), "ana@school.edu")
	if err == nil || !regexp.MustCompile(`db error: .*db err`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestExistsByEmail(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+EXISTS\s*\(SELECT\s+1\s+FROM\s+accounts\s+WHERE\s+email\s*=\s*\$1\)$`
	mock.ExpectQuery(q).WithArgs("ana@school.edu").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(q).WithArgs("ghost@school.edu").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	ok, err := repo.ExistsByEmail(context.Background(), "ana@school.edu")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.ExistsByEmail(context.Background(), "ghost@school.edu")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFindByVerificationToken(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT.*FROM\s+accounts\s+WHERE\s+verification_token\s*=\s*\$1\s+FOR\s+UPDATE\s*$`
	rows := sqlmock.NewRows(accountColumns).
		AddRow("id-1", "ana@school.edu", "Ana", "STUDENT", "d", false, true, "vtok", nil, nil, created, nil)
	mock.ExpectQuery(q).WithArgs("vtok").WillReturnRows(rows)

	got, err := repo.FindByVerificationToken(context.Background(), "vtok")
	require.NoError(t, err)
	assert.Equal(t, "vtok", got.VerificationToken)
	assert.Nil(t, got.LastLogin)
}

func TestFindByResetTokenValid(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := created.Add(10 * time.Minute)
	expires := created.Add(time.Hour)
	q := `(?s)^SELECT.*WHERE\s+reset_token\s*=\s*\$1\s+AND\s+reset_expires_at\s*>=\s*\$2\s+FOR\s+UPDATE\s*$`
	rows := sqlmock.NewRows(accountColumns).
		AddRow("id-1", "ana@school.edu", "Ana", "STUDENT", "d", true, true, nil, "rtok", expires, created, nil)
	mock.ExpectQuery(q).WithArgs("rtok", now).WillReturnRows(rows)

	got, err := repo.FindByResetTokenValid(context.Background(), "rtok", now)
	require.NoError(t, err)
	assert.True(t, got.ResetPending())
	assert.True(t, expires.Equal(*got.ResetExpiresAt))
}

func TestFindByResetTokenValid_Expired(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT.*WHERE\s+reset_token`).WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByResetTokenValid(context.Background(), "rtok", created)
	require.ErrorIs(t, err, common.ErrorNotFound)
}

const updateQ = `(?s)^UPDATE\s+accounts\s+SET\s+name\s*=\s*\$2,.*last_login\s*=\s*\$10\s+WHERE\s+id\s*=\s*\$1\s*$`

func TestSave_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	a := sampleAccount()
	a.MarkVerified()
	exp := created.Add(time.Hour)
	a.SetReset("rtok", exp)

	mock.ExpectExec(updateQ).
		WithArgs(a.ID, "Ana", "STUDENT", a.PasswordDigest, true, true, nil, "rtok", exp, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Save(context.Background(), a))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSave_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(updateQ).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Save(context.Background(), sampleAccount())
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestSave_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(updateQ).WillReturnError(errors.New("db err"))

	err := repo.Save(context.Background(), sampleAccount())
	if err == nil || !regexp.MustCompile(`db error: .*db err`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}
