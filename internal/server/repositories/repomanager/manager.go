package repomanager

import (
	"context"

	"github.com/distrischool/authservice/internal/server/repositories/accounts"
)

// RepositoryManager vends account repositories and runs per-account
// read-modify-write sequences atomically.
type RepositoryManager interface {
	RunMigrations(ctx context.Context) error
	Accounts() accounts.Repository
	WithinTx(ctx context.Context, fn func(ctx context.Context, repo accounts.Repository) error) error
	Close() error
}
