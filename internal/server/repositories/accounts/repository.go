// Package accounts persists Account records. Implementations return
// common.ErrorNotFound for missing rows and common.ErrEmailTaken when the
// email uniqueness constraint rejects a write.
package accounts

import (
	"context"
	"time"

	"github.com/distrischool/authservice/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	FindByVerificationToken(ctx context.Context, token string) (*models.Account, error)
	// FindByResetTokenValid matches only while now <= resetExpiresAt.
	FindByResetTokenValid(ctx context.Context, token string, now time.Time) (*models.Account, error)
	// Save overwrites every mutable field of the row with account.ID.
	Save(ctx context.Context, account *models.Account) error
}
