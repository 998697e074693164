package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	domain "github.com/Zhima-Mochi/travelshop/internal/domain/payment"
)

type LedgerRepository struct {
	mu      sync.RWMutex
	entries map[string]*domain.Entry
}

func NewLedgerRepository() *LedgerRepository {
	return &LedgerRepository{entries: make(map[string]*domain.Entry)}
}

func (r *LedgerRepository) Insert(ctx context.Context, entry *domain.Entry) error {
	_ = ctx
	if entry == nil || entry.ID == "" {
		return fmt.Errorf("ledger repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[entry.ID]; exists {
		return domain.ErrConflict
	}
	if entry.Version == 0 {
		entry.Version = 1
	}
	r.entries[entry.ID] = entry.Clone()
	return nil
}

func (r *LedgerRepository) Get(ctx context.Context, id string) (*domain.Entry, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return entry.Clone(), nil
}

func (r *LedgerRepository) Update(ctx context.Context, entry *domain.Entry) error {
	_ = ctx
	if entry == nil || entry.ID == "" {
		return fmt.Errorf("ledger repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current, exists := r.entries[entry.ID]
	if !exists {
		return domain.ErrNotFound
	}
	if current.Version != entry.Version {
		return domain.ErrConflict
	}
	entry.Version++
	r.entries[entry.ID] = entry.Clone()
	return nil
}

func (r *LedgerRepository) ListByOrder(ctx context.Context, orderID string) ([]*domain.Entry, error) {
	_ = ctx

	r.mu.RLock()
	out := make([]*domain.Entry, 0)
	for _, e := range r.entries {
		if e.OrderID == orderID {
			out = append(out, e.Clone())
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
