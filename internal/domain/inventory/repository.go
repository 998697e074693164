package inventory

import "context"

// Repository stores stock counts. Adjust must apply delta atomically on the
// single stock field and return the remaining stock.
type Repository interface {
	Get(ctx context.Context, id string) (*Record, error)
	Set(ctx context.Context, record *Record) error
	Adjust(ctx context.Context, id string, delta int) (int, error)
}
