package order

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusPaid       Status = "paid"
	StatusProcessing Status = "processing"
	StatusReady      Status = "ready"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusRefunded   Status = "refunded"
)

// transitions is the only place that decides which status moves are legal.
// Every path that mutates Order.Status goes through Order.Transition.
var transitions = map[Status][]Status{
	StatusPending:    {StatusConfirmed, StatusPaid, StatusProcessing, StatusReady, StatusCompleted, StatusCancelled, StatusRefunded},
	StatusConfirmed:  {StatusPending, StatusPaid, StatusProcessing, StatusReady, StatusCompleted, StatusCancelled, StatusRefunded},
	StatusPaid:       {StatusConfirmed, StatusProcessing, StatusReady, StatusCompleted, StatusCancelled, StatusRefunded},
	StatusProcessing: {StatusPaid, StatusReady, StatusCompleted, StatusCancelled, StatusRefunded},
	StatusReady:      {StatusProcessing, StatusCompleted, StatusCancelled, StatusRefunded},
	StatusCompleted:  {StatusRefunded},
	StatusCancelled:  {StatusRefunded},
	StatusRefunded:   {},
}

// Statuses lists every legal status in lifecycle order.
func Statuses() []Status {
	return []Status{
		StatusPending, StatusConfirmed, StatusPaid, StatusProcessing,
		StatusReady, StatusCompleted, StatusCancelled, StatusRefunded,
	}
}

func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if _, ok := transitions[st]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return st, nil
}

func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Terminal reports whether no further lifecycle work happens in s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusRefunded
}

// CustomerCancellable reports whether a non-administrator may cancel from s.
func (s Status) CustomerCancellable() bool {
	return s == StatusPending || s == StatusConfirmed
}

// CanTransition reports whether from → to is allowed. Staying in the same
// status is always allowed and is treated as a no-op by Transition.
func CanTransition(from, to Status) bool {
	if from == to {
		return from.Valid()
	}
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// Transition moves the order to status to and appends a history record.
// It returns false without touching the order when the order is already in to.
func (o *Order) Transition(to Status, actor, note string) (bool, error) {
	if !to.Valid() {
		return false, fmt.Errorf("%w: %q", ErrInvalidStatus, to)
	}
	if o.Status == to {
		return false, nil
	}
	if !CanTransition(o.Status, to) {
		return false, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, to)
	}
	o.Status = to
	o.History = append(o.History, HistoryEntry{
		Status: to,
		At:     time.Now().UTC(),
		Note:   note,
		Actor:  actor,
	})
	o.touch()
	return true, nil
}

// CanPay reports whether a payment attempt may start for the order.
func (o *Order) CanPay() bool {
	return o.Status == StatusPending || o.Status == StatusConfirmed
}

// MarkPaymentReady records a fresh payment attempt.
func (o *Order) MarkPaymentReady(provider, paymentID, transactionID string) {
	o.Payment.Provider = provider
	o.Payment.PaymentID = paymentID
	o.Payment.TransactionID = transactionID
	o.Payment.Status = PaymentStatusReady
	o.Payment.FailureCode = ""
	o.touch()
}

// MarkPaid records a verified payment and moves the order to paid.
func (o *Order) MarkPaid(p Payment, actor string) error {
	if !o.CanPay() {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, StatusPaid)
	}
	if _, err := o.Transition(StatusPaid, actor, "payment verified"); err != nil {
		return err
	}
	if p.Method == "" {
		p.Method = o.Payment.Method
	}
	p.Status = PaymentStatusCompleted
	o.Payment = p
	return nil
}

// MarkPaymentFailed records a failed attempt. The order status is left alone.
func (o *Order) MarkPaymentFailed(paymentID, code string) {
	if o.Payment.PaymentID != "" && paymentID != "" && o.Payment.PaymentID != paymentID {
		return
	}
	o.Payment.Status = PaymentStatusFailed
	o.Payment.FailureCode = code
	o.touch()
}
