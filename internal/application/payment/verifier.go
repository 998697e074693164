package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/Zhima-Mochi/travelshop/internal/application"
	dompay "github.com/Zhima-Mochi/travelshop/internal/domain/payment"
	"github.com/Zhima-Mochi/travelshop/internal/observability"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

// Verification is the verdict on a provider approval. Entry is nil when the
// payment id is unknown.
type Verification struct {
	Valid  bool
	Entry  *dompay.Entry
	Code   string
	Reason string
}

// Verifier cross-checks a provider approval against the ledger. It never
// writes; the caller decides what to do with an invalid verdict.
type Verifier struct {
	ledger dompay.Ledger
	in     application.Instruments

	results observability.Counter // payment_verifications_total{provider,outcome}
}

func NewVerifier(ledger dompay.Ledger, tel observability.Observability) *Verifier {
	in := application.NewInstruments(tel, paymentService)
	return &Verifier{
		ledger:  ledger,
		in:      in,
		results: in.Metrics().Counter(observability.MPaymentVerifications),
	}
}

// Verify returns an error only when the ledger itself cannot be read.
func (v *Verifier) Verify(ctx context.Context, provider, paymentID string, approval *dompay.Approval) (_ *Verification, err error) {
	ctx, call := v.in.Begin(ctx, useCasePayVerify, "VerifyPayment",
		attribute.String("payment.provider", provider),
		attribute.String("payment.id", paymentID),
	)
	call.Field("provider", provider)
	call.Field("payment_id", paymentID)
	defer func() { call.End(err) }()

	res, err := v.verify(ctx, provider, paymentID, approval)
	if err != nil {
		call.Fail("LEDGER_LOOKUP_FAILED")
		return nil, err
	}
	outcome := "valid"
	if !res.Valid {
		outcome = "invalid"
		call.Status = res.Code
		call.Field("reason", res.Reason)
	}
	v.results.Add(1, observability.L("provider", provider), observability.L("outcome", outcome))
	return res, nil
}

func (v *Verifier) verify(ctx context.Context, provider, paymentID string, approval *dompay.Approval) (*Verification, error) {
	entry, err := v.ledger.Get(ctx, paymentID)
	if errors.Is(err, dompay.ErrNotFound) {
		return invalid(nil, dompay.CodeEntryNotFound, "unknown payment id"), nil
	}
	if err != nil {
		return nil, fmt.Errorf("payment: load entry %s: %w", paymentID, err)
	}
	if approval == nil {
		return invalid(entry, dompay.CodeNotApproved, "no approval to verify"), nil
	}
	if entry.Provider != provider {
		return invalid(entry, dompay.CodeProviderMismatch,
			fmt.Sprintf("entry belongs to %s, approval came from %s", entry.Provider, provider)), nil
	}
	if approval.ProviderOrderID != entry.ProviderOrderID {
		return invalid(entry, dompay.CodeOrderMismatch,
			fmt.Sprintf("provider echoed order %q, expected %q", approval.ProviderOrderID, entry.ProviderOrderID)), nil
	}
	if entry.TransactionID != "" && approval.TransactionID != "" && approval.TransactionID != entry.TransactionID {
		return invalid(entry, dompay.CodeOrderMismatch,
			fmt.Sprintf("provider transaction %q, expected %q", approval.TransactionID, entry.TransactionID)), nil
	}
	if want := decimalOf(entry.Amount); !approval.Amount.Equal(want) {
		return invalid(entry, dompay.CodeAmountMismatch,
			fmt.Sprintf("provider amount %s, ledger amount %s", approval.Amount.String(), want.String())), nil
	}
	if approval.ApprovedAt.IsZero() {
		return invalid(entry, dompay.CodeNotApproved, "provider reported no approval time"), nil
	}
	return &Verification{Valid: true, Entry: entry}, nil
}

func invalid(entry *dompay.Entry, code, reason string) *Verification {
	return &Verification{Entry: entry, Code: code, Reason: reason}
}

func decimalOf(amount int64) decimal.Decimal { return decimal.NewFromInt(amount) }
