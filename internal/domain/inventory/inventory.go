package inventory

import (
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("inventory: item not found")
	ErrInvalidQuantity   = errors.New("inventory: quantity must be greater than zero")
	ErrInsufficientStock = errors.New("inventory: insufficient stock")
)

// Record is the stock count of one bookable inventory unit (a tour date, a
// room type, ...). It has no link back to the orders that reserved from it.
type Record struct {
	ID        string
	Stock     int
	UpdatedAt time.Time
}

func NewRecord(id string, stock int) (*Record, error) {
	if stock < 0 {
		return nil, ErrInvalidQuantity
	}
	return &Record{
		ID:        id,
		Stock:     stock,
		UpdatedAt: time.Now().UTC(),
	}, nil
}

// Apply adds delta to the stock. A negative delta larger than the stock
// fails and leaves the record unchanged.
func (r *Record) Apply(delta int) error {
	if r.Stock+delta < 0 {
		return ErrInsufficientStock
	}
	r.Stock += delta
	r.touch()
	return nil
}

func (r *Record) touch() {
	r.UpdatedAt = time.Now().UTC()
}
