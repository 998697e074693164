package order

import (
	"errors"
	"time"
)

var (
	ErrNotFound             = errors.New("order: not found")
	ErrConflict             = errors.New("order: concurrent modification")
	ErrInvalidTransition    = errors.New("order: invalid status transition")
	ErrInvalidStatus        = errors.New("order: unknown status")
	ErrInvalidQuantity      = errors.New("order: quantity must be greater than zero")
	ErrInvalidAmount        = errors.New("order: amount must be zero or greater")
	ErrNoItems              = errors.New("order: at least one line item is required")
	ErrTotalMismatch        = errors.New("order: total does not match line items")
	ErrInventoryUnavailable = errors.New("order: inventory could not be reserved")
)

const DefaultCurrency = "KRW"

// Customer is a snapshot of the orderer taken at checkout. It is not kept in
// sync with the user's profile.
type Customer struct {
	UserID  string
	Name    string
	Email   string
	Phone   string
	Address string
}

type TravelerType string

const (
	TravelerAdult  TravelerType = "adult"
	TravelerChild  TravelerType = "child"
	TravelerInfant TravelerType = "infant"
)

type Traveler struct {
	Name      string
	Type      TravelerType
	Phone     string
	BirthDate string
}

// TravelerCounts holds per-traveler-type sub-quantities of a line item.
type TravelerCounts struct {
	Adult  int
	Child  int
	Infant int
}

func (c TravelerCounts) Total() int { return c.Adult + c.Child + c.Infant }

// TravelerPrices holds per-traveler-type unit prices. A zero price means the
// line item's UnitPrice applies to that type.
type TravelerPrices struct {
	Adult  int64
	Child  int64
	Infant int64
}

type DateRange struct {
	Start time.Time
	End   time.Time
}

type LineItem struct {
	ProductID   string
	InventoryID string
	Title       string
	UnitPrice   int64
	Quantity    int
	Travel      *DateRange
	Travelers   *TravelerCounts
	Prices      *TravelerPrices
	// Reserved is the stock actually taken from InventoryID for this item.
	Reserved int
}

// Units is the stock this item consumes: the traveler sub-quantities when
// present, the flat quantity otherwise.
func (li LineItem) Units() int {
	if li.Travelers != nil && li.Travelers.Total() > 0 {
		return li.Travelers.Total()
	}
	return li.Quantity
}

func (li LineItem) Subtotal() int64 {
	if li.Travelers != nil && li.Travelers.Total() > 0 && li.Prices != nil {
		return int64(li.Travelers.Adult)*li.priceOr(li.Prices.Adult) +
			int64(li.Travelers.Child)*li.priceOr(li.Prices.Child) +
			int64(li.Travelers.Infant)*li.priceOr(li.Prices.Infant)
	}
	return li.UnitPrice * int64(li.Units())
}

func (li LineItem) priceOr(p int64) int64 {
	if p > 0 {
		return p
	}
	return li.UnitPrice
}

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusReady     PaymentStatus = "ready"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// Payment mirrors the latest payment attempt on the order.
type Payment struct {
	Method         string
	Provider       string
	PaymentID      string
	TransactionID  string
	Status         PaymentStatus
	VerifiedAmount int64
	ApprovedAt     *time.Time
	FailureCode    string
}

type HistoryEntry struct {
	Status Status
	At     time.Time
	Note   string
	Actor  string
}

type Order struct {
	ID              string
	Number          string
	Status          Status
	Total           int64
	Currency        string
	Customer        Customer
	Items           []LineItem
	Travelers       []Traveler
	SpecialRequests string
	Payment         Payment
	History         []HistoryEntry
	Version         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// New builds a pending order and derives its total from the line items.
func New(id, number string, customer Customer, items []LineItem, travelers []Traveler, currency string) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	var total int64
	for _, it := range items {
		if it.Units() <= 0 {
			return nil, ErrInvalidQuantity
		}
		if it.UnitPrice < 0 {
			return nil, ErrInvalidAmount
		}
		total += it.Subtotal()
	}
	if currency == "" {
		currency = DefaultCurrency
	}

	now := time.Now().UTC()
	return &Order{
		ID:        id,
		Number:    number,
		Status:    StatusPending,
		Total:     total,
		Currency:  currency,
		Customer:  customer,
		Items:     append([]LineItem(nil), items...),
		Travelers: append([]Traveler(nil), travelers...),
		Payment:   Payment{Status: PaymentStatusPending},
		History:   []HistoryEntry{{Status: StatusPending, At: now, Actor: customer.UserID}},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (o *Order) OwnedBy(userID string) bool {
	return userID != "" && o.Customer.UserID == userID
}

// ReservedItems returns the indexes of items that currently hold stock.
func (o *Order) ReservedItems() []int {
	var idx []int
	for i, it := range o.Items {
		if it.InventoryID != "" && it.Reserved > 0 {
			idx = append(idx, i)
		}
	}
	return idx
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	c := *o
	c.Items = make([]LineItem, len(o.Items))
	for i, it := range o.Items {
		c.Items[i] = it
		if it.Travel != nil {
			tr := *it.Travel
			c.Items[i].Travel = &tr
		}
		if it.Travelers != nil {
			tc := *it.Travelers
			c.Items[i].Travelers = &tc
		}
		if it.Prices != nil {
			tp := *it.Prices
			c.Items[i].Prices = &tp
		}
	}
	c.Travelers = append([]Traveler(nil), o.Travelers...)
	c.History = append([]HistoryEntry(nil), o.History...)
	if o.Payment.ApprovedAt != nil {
		at := *o.Payment.ApprovedAt
		c.Payment.ApprovedAt = &at
	}
	return &c
}

func (o *Order) touch() {
	o.UpdatedAt = time.Now().UTC()
}
