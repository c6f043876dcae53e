package repomanager

import (
	"context"

	"github.com/distrischool/authservice/internal/server/repositories/accounts"
)

// MemoryRepositoryManager serves a single in-process store. Data is lost on
// restart.
type MemoryRepositoryManager struct {
	store *accounts.MemoryStore
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{store: accounts.NewMemoryStore()}
}

func (m *MemoryRepositoryManager) RunMigrations(context.Context) error { return nil }

func (m *MemoryRepositoryManager) Accounts() accounts.Repository { return m.store.Repository() }

func (m *MemoryRepositoryManager) WithinTx(ctx context.Context, fn func(ctx context.Context, repo accounts.Repository) error) error {
	return m.store.WithinTx(ctx, fn)
}

func (m *MemoryRepositoryManager) Close() error { return nil }
