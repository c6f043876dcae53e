package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/distrischool/authservice/internal/common"
	"github.com/distrischool/authservice/internal/dbx"
	"github.com/distrischool/authservice/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectColumns = `id, email, name, role, password_digest, email_verified, enabled,
		        verification_token, reset_token, reset_expires_at, created_at, last_login`

func (r *PostgresRepository) Create(ctx context.Context, a *models.Account) (*models.Account, error) {
	query :=
		`INSERT INTO accounts (id, email, name, role, password_digest, email_verified, enabled,
		                       verification_token, reset_token, reset_expires_at, created_at, last_login)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 `

	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.Email, a.Name, string(a.Role), a.PasswordDigest, a.EmailVerified, a.Enabled,
		nullString(a.VerificationToken), nullString(a.ResetToken), nullTime(a.ResetExpiresAt),
		a.CreatedAt, nullTime(a.LastLogin))

	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrEmailTaken
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return a, nil
}

// FindByEmail locks the row when called inside a transaction.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `SELECT ` + selectColumns + `
		 FROM accounts
		 WHERE email = $1
		 FOR UPDATE
		 `
	return r.queryOne(ctx, query, email)
}

func (r *PostgresRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM accounts WHERE email = $1)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) FindByVerificationToken(ctx context.Context, token string) (*models.Account, error) {
	query := `SELECT ` + selectColumns + `
		 FROM accounts
		 WHERE verification_token = $1
		 FOR UPDATE
		 `
	return r.queryOne(ctx, query, token)
}

func (r *PostgresRepository) FindByResetTokenValid(ctx context.Context, token string, now time.Time) (*models.Account, error) {
	query := `SELECT ` + selectColumns + `
		 FROM accounts
		 WHERE reset_token = $1 AND reset_expires_at >= $2
		 FOR UPDATE
		 `
	return r.queryOne(ctx, query, token, now.UTC())
}

func (r *PostgresRepository) Save(ctx context.Context, a *models.Account) error {
	query :=
		`UPDATE accounts
		 SET name = $2, role = $3, password_digest = $4, email_verified = $5, enabled = $6,
		     verification_token = $7, reset_token = $8, reset_expires_at = $9, last_login = $10
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query,
		a.ID, a.Name, string(a.Role), a.PasswordDigest, a.EmailVerified, a.Enabled,
		nullString(a.VerificationToken), nullString(a.ResetToken), nullTime(a.ResetExpiresAt),
		nullTime(a.LastLogin))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) queryOne(ctx context.Context, query string, args ...any) (*models.Account, error) {
	var (
		a                    models.Account
		role                 string
		verification, reset  sql.NullString
		resetExpires, logged sql.NullTime
	)

	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&a.ID, &a.Email, &a.Name, &role, &a.PasswordDigest, &a.EmailVerified, &a.Enabled,
		&verification, &reset, &resetExpires, &a.CreatedAt, &logged)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	a.Role = models.Role(role)
	a.VerificationToken = verification.String
	a.ResetToken = reset.String
	if resetExpires.Valid {
		t := resetExpires.Time.UTC()
		a.ResetExpiresAt = &t
	}
	if logged.Valid {
		t := logged.Time.UTC()
		a.LastLogin = &t
	}
	a.CreatedAt = a.CreatedAt.UTC()

	return &a, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
