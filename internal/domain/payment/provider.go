package payment

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type InitiateRequest struct {
	PaymentID       string
	OrderID         string
	ProviderOrderID string
	UserID          string
	ItemName        string
	Quantity        int
	Amount          int64
	Currency        string
	Callbacks       Callbacks
}

// Initiation is what the payer's browser needs to continue at the provider.
type Initiation struct {
	TransactionID string
	RedirectURL   string
	MobileURL     string
	AppURL        string
	CreatedAt     time.Time
}

type ConfirmRequest struct {
	PaymentID       string
	OrderID         string
	ProviderOrderID string
	UserID          string
	TransactionID   string
	Token           string
	Amount          int64
}

// Approval is the provider's authoritative view of a confirmed transaction.
// ApprovedAt is zero when the provider did not report an approval.
type Approval struct {
	TransactionID   string
	ProviderOrderID string
	Amount          decimal.Decimal
	Method          string
	ApprovedAt      time.Time
	Raw             map[string]any
}

// Callback is the normalized provider redirect back to this service.
type Callback struct {
	PaymentID string
	Result    string
	Token     string
	// TransactionID is set by providers that echo their id on redirect.
	TransactionID string
	// Amount is set by providers that echo the amount on redirect.
	Amount    *decimal.Decimal
	ErrorCode string
	ErrorMsg  string
}

const (
	CallbackSuccess = "success"
	CallbackFail    = "fail"
	CallbackCancel  = "cancel"
)

// Provider is one external payment network.
type Provider interface {
	Name() string
	// ProviderOrderID is the order reference sent to the provider. The
	// provider echoes it back on confirm and the verifier compares it.
	ProviderOrderID(entry *Entry) string
	Initiate(ctx context.Context, req InitiateRequest) (*Initiation, error)
	Confirm(ctx context.Context, req ConfirmRequest) (*Approval, error)
	// ParseCallback extracts the provider specific query parameters.
	ParseCallback(query map[string][]string) (Callback, error)
}
