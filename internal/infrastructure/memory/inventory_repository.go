package memory

import (
	"context"
	"sync"

	domain "github.com/Zhima-Mochi/travelshop/internal/domain/inventory"
)

type InventoryRepository struct {
	mu    sync.Mutex
	items map[string]*domain.Record
}

func NewInventoryRepository() *InventoryRepository {
	return &InventoryRepository{items: make(map[string]*domain.Record)}
}

func (r *InventoryRepository) Get(ctx context.Context, id string) (*domain.Record, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneRecord(rec), nil
}

func (r *InventoryRepository) Set(ctx context.Context, record *domain.Record) error {
	_ = ctx
	if record == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[record.ID] = cloneRecord(record)
	return nil
}

// Adjust applies delta under the lock so concurrent reservations never
// drive stock below zero.
func (r *InventoryRepository) Adjust(ctx context.Context, id string, delta int) (int, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.items[id]
	if !ok {
		return 0, domain.ErrNotFound
	}
	if err := rec.Apply(delta); err != nil {
		return rec.Stock, err
	}
	return rec.Stock, nil
}

func cloneRecord(rec *domain.Record) *domain.Record {
	if rec == nil {
		return nil
	}
	clone := *rec
	return &clone
}
