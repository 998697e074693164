package order

import (
	"context"
	"time"
)

// Repository persists orders. Update is a compare-and-swap on Version: the
// stored version must equal order.Version, and on success order.Version is
// incremented. A stale write returns ErrConflict.
type Repository interface {
	Insert(ctx context.Context, order *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	Update(ctx context.Context, order *Order) error
	Delete(ctx context.Context, id string) error
	ListByCustomer(ctx context.Context, userID string) ([]*Order, error)
	List(ctx context.Context, filter ListFilter) ([]*Order, int, error)
}

type SortKey string

const (
	SortCreatedAt SortKey = "createdAt"
	SortTotal     SortKey = "total"
	SortStatus    SortKey = "status"
	SortNumber    SortKey = "orderNumber"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ListFilter drives the administrative order listing. Zero values disable a
// criterion.
type ListFilter struct {
	Statuses      []Status
	CreatedFrom   time.Time
	CreatedTo     time.Time
	MinTotal      int64
	MaxTotal      int64
	PaymentMethod string
	PaymentStatus PaymentStatus
	ProductID     string
	Search        string
	Sort          SortKey
	Desc          bool
	Page          int
	Limit         int
}

// Normalize fills defaults and clamps paging.
func (f ListFilter) Normalize() ListFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
	switch f.Sort {
	case SortCreatedAt, SortTotal, SortStatus, SortNumber:
	default:
		f.Sort = SortCreatedAt
		f.Desc = true
	}
	return f
}

func (f ListFilter) Offset() int { return (f.Page - 1) * f.Limit }
