package payment

import (
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("payment: ledger entry not found")
	ErrConflict          = errors.New("payment: concurrent modification")
	ErrInvalidTransition = errors.New("payment: invalid ledger transition")
)

type Status string

const (
	StatusReady     Status = "ready"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

type Callbacks struct {
	SuccessURL string
	FailURL    string
	CancelURL  string
}

// Entry is the locally owned record of one payment attempt. Its ID is
// distinct from both the order id and the provider's transaction id.
type Entry struct {
	ID              string
	OrderID         string
	UserID          string
	Amount          int64
	Currency        string
	Status          Status
	Provider        string
	ProviderOrderID string
	TransactionID   string
	Callbacks       Callbacks
	Metadata        map[string]string
	FailureCode     string
	ApprovedAt      *time.Time
	Version         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func NewEntry(id, orderID, userID, provider string, amount int64, currency string, metadata map[string]string) *Entry {
	now := time.Now().UTC()
	md := make(map[string]string, len(metadata))
	for k, v := range metadata {
		md[k] = v
	}
	return &Entry{
		ID:        id,
		OrderID:   orderID,
		UserID:    userID,
		Amount:    amount,
		Currency:  currency,
		Status:    StatusReady,
		Provider:  provider,
		Metadata:  md,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (e *Entry) Complete(transactionID string, approvedAt time.Time) error {
	if e.Status != StatusReady {
		return ErrInvalidTransition
	}
	e.Status = StatusCompleted
	if transactionID != "" {
		e.TransactionID = transactionID
	}
	at := approvedAt.UTC()
	e.ApprovedAt = &at
	e.touch()
	return nil
}

func (e *Entry) Fail(code string) error {
	if e.Status != StatusReady {
		return ErrInvalidTransition
	}
	e.Status = StatusFailed
	e.FailureCode = code
	e.touch()
	return nil
}

func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	c := *e
	c.Metadata = make(map[string]string, len(e.Metadata))
	for k, v := range e.Metadata {
		c.Metadata[k] = v
	}
	if e.ApprovedAt != nil {
		at := *e.ApprovedAt
		c.ApprovedAt = &at
	}
	return &c
}

func (e *Entry) touch() {
	e.UpdatedAt = time.Now().UTC()
}
