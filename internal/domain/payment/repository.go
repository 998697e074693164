package payment

import "context"

// Ledger persists payment entries. Update compares Version like the order
// repository does; entries are never deleted.
type Ledger interface {
	Insert(ctx context.Context, entry *Entry) error
	Get(ctx context.Context, id string) (*Entry, error)
	Update(ctx context.Context, entry *Entry) error
	ListByOrder(ctx context.Context, orderID string) ([]*Entry, error)
}
