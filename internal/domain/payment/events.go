package payment

import "time"

// PaymentCompletedEvent is emitted after a verified payment was recorded.
type PaymentCompletedEvent struct {
	PaymentID     string
	OrderID       string
	Provider      string
	TransactionID string
	Amount        int64
	OccurredAt    time.Time
}

func (PaymentCompletedEvent) EventName() string      { return "payment.completed" }
func (e PaymentCompletedEvent) PartitionKey() string { return e.OrderID }

// PaymentFailedEvent is emitted whenever an attempt ends in failed.
type PaymentFailedEvent struct {
	PaymentID  string
	OrderID    string
	Provider   string
	Code       string
	OccurredAt time.Time
}

func (PaymentFailedEvent) EventName() string      { return "payment.failed" }
func (e PaymentFailedEvent) PartitionKey() string { return e.OrderID }

func NewPaymentCompletedEvent(e *Entry) PaymentCompletedEvent {
	return PaymentCompletedEvent{
		PaymentID:     e.ID,
		OrderID:       e.OrderID,
		Provider:      e.Provider,
		TransactionID: e.TransactionID,
		Amount:        e.Amount,
		OccurredAt:    time.Now().UTC(),
	}
}

func NewPaymentFailedEvent(e *Entry) PaymentFailedEvent {
	return PaymentFailedEvent{
		PaymentID:  e.ID,
		OrderID:    e.OrderID,
		Provider:   e.Provider,
		Code:       e.FailureCode,
		OccurredAt: time.Now().UTC(),
	}
}
