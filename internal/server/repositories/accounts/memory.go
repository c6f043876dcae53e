package accounts

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/distrischool/authservice/internal/common"
	"github.com/distrischool/authservice/internal/server/models"
)

// MemoryStore keeps accounts in process memory. It backs development runs
// without a database and the service-level tests.
//
// Transactions are serialised by a single mutex and work on a private copy
// of the data that replaces the shared map on commit. Writes to different
// accounts therefore contend, and each transaction costs a copy of the whole
// store. Use the Postgres repository where that matters.
type MemoryStore struct {
	mu       sync.Mutex
	accounts map[string]*models.Account
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: make(map[string]*models.Account)}
}

// Repository returns a non-transactional view where every call is atomic.
func (s *MemoryStore) Repository() Repository {
	return &memoryRepository{store: s}
}

// WithinTx runs fn against a snapshot. The snapshot is published only if fn
// returns nil.
func (s *MemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make(map[string]*models.Account, len(s.accounts))
	for id, a := range s.accounts {
		snapshot[id] = a.Clone()
	}

	if err := fn(ctx, &memoryRepository{store: s, tx: snapshot}); err != nil {
		return err
	}
	s.accounts = snapshot
	return nil
}

type memoryRepository struct {
	store *MemoryStore
	tx    map[string]*models.Account
}

func (r *memoryRepository) view() (map[string]*models.Account, func()) {
	if r.tx != nil {
		return r.tx, func() {}
	}
	r.store.mu.Lock()
	return r.store.accounts, r.store.mu.Unlock
}

func (r *memoryRepository) Create(ctx context.Context, a *models.Account) (*models.Account, error) {
	data, unlock := r.view()
	defer unlock()

	for _, existing := range data {
		if existing.Email == a.Email {
			return nil, common.ErrEmailTaken
		}
	}
	data[a.ID] = a.Clone()
	return a, nil
}

func (r *memoryRepository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	return r.find(func(a *models.Account) bool { return a.Email == email })
}

func (r *memoryRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.FindByEmail(ctx, email)
	if errors.Is(err, common.ErrorNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (r *memoryRepository) FindByVerificationToken(ctx context.Context, token string) (*models.Account, error) {
	return r.find(func(a *models.Account) bool {
		return token != "" && a.VerificationToken == token
	})
}

func (r *memoryRepository) FindByResetTokenValid(ctx context.Context, token string, now time.Time) (*models.Account, error) {
	return r.find(func(a *models.Account) bool {
		return token != "" && a.ResetToken == token &&
			a.ResetExpiresAt != nil && !now.After(*a.ResetExpiresAt)
	})
}

func (r *memoryRepository) Save(ctx context.Context, a *models.Account) error {
	data, unlock := r.view()
	defer unlock()

	existing, ok := data[a.ID]
	if !ok {
		return common.ErrorNotFound
	}
	updated := a.Clone()
	updated.Email = existing.Email
	updated.CreatedAt = existing.CreatedAt
	data[a.ID] = updated
	return nil
}

func (r *memoryRepository) find(match func(*models.Account) bool) (*models.Account, error) {
	data, unlock := r.view()
	defer unlock()

	for _, a := range data {
		if match(a) {
			return a.Clone(), nil
		}
	}
	return nil, common.ErrorNotFound
}
