package accounts

import (
	"context"
	"strings"
	"sync"

	"github.com/dmitrijs2005/propscan/internal/common"
)

type Repository interface {
	Create(ctx context.Context, a *Account) error
	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByID(ctx context.Context, id string) (*Account, error)
	// Update applies fn to the stored account atomically.
	Update(ctx context.Context, id string, fn func(a *Account) error) (*Account, error)
}

// MemoryRepository keeps accounts in process memory.
type MemoryRepository struct {
	mu      sync.RWMutex
	byID    map[string]*Account
	byEmail map[string]string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:    make(map[string]*Account),
		byEmail: make(map[string]string),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *MemoryRepository) Create(_ context.Context, a *Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := normalizeEmail(a.Email)
	if _, ok := r.byEmail[key]; ok {
		return common.ErrConflict
	}
	r.byID[a.ID] = a.clone()
	r.byEmail[key] = a.ID
	return nil
}

func (r *MemoryRepository) GetByEmail(_ context.Context, email string) (*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[normalizeEmail(email)]
	if !ok {
		return nil, common.ErrNotFound
	}
	return r.byID[id].clone(), nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return a.clone(), nil
}

func (r *MemoryRepository) Update(_ context.Context, id string, fn func(a *Account) error) (*Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	next := a.clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	r.byID[id] = next
	return next.clone(), nil
}
