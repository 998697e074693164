package payment

import (
	"context"
	"testing"
	"time"

	dompay "github.com/Zhima-Mochi/travelshop/internal/domain/payment"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifier(t *testing.T) {
	f := newFixture(t)
	entry := dompay.NewEntry("PAY-1", "o1", "user-1", "stubpay", 280000, "KRW", nil)
	entry.ProviderOrderID = "o1"
	entry.TransactionID = "tx-1"
	require.NoError(t, f.ledger.Insert(context.Background(), entry))

	good := func() *dompay.Approval {
		return &dompay.Approval{
			TransactionID:   "tx-1",
			ProviderOrderID: "o1",
			Amount:          decimal.NewFromInt(280000),
			ApprovedAt:      time.Now(),
		}
	}
	tests := []struct {
		name      string
		provider  string
		paymentID string
		mutate    func(*dompay.Approval) *dompay.Approval
		wantCode  string
	}{
		{name: "valid", provider: "stubpay", paymentID: "PAY-1"},
		{name: "decimal with trailing zeros", provider: "stubpay", paymentID: "PAY-1",
			mutate: func(a *dompay.Approval) *dompay.Approval { a.Amount = decimal.RequireFromString("280000.00"); return a }},
		{name: "unknown id", provider: "stubpay", paymentID: "PAY-2", wantCode: dompay.CodeEntryNotFound},
		{name: "nil approval", provider: "stubpay", paymentID: "PAY-1",
			mutate: func(*dompay.Approval) *dompay.Approval { return nil }, wantCode: dompay.CodeNotApproved},
		{name: "other provider", provider: "kakaopay", paymentID: "PAY-1", wantCode: dompay.CodeProviderMismatch},
		{name: "order echo differs", provider: "stubpay", paymentID: "PAY-1",
			mutate: func(a *dompay.Approval) *dompay.Approval { a.ProviderOrderID = "o2"; return a }, wantCode: dompay.CodeOrderMismatch},
		{name: "transaction differs", provider: "stubpay", paymentID: "PAY-1",
			mutate: func(a *dompay.Approval) *dompay.Approval { a.TransactionID = "tx-9"; return a }, wantCode: dompay.CodeOrderMismatch},
		{name: "short amount", provider: "stubpay", paymentID: "PAY-1",
			mutate: func(a *dompay.Approval) *dompay.Approval { a.Amount = decimal.NewFromInt(150000); return a }, wantCode: dompay.CodeAmountMismatch},
		{name: "no approval time", provider: "stubpay", paymentID: "PAY-1",
			mutate: func(a *dompay.Approval) *dompay.Approval { a.ApprovedAt = time.Time{}; return a }, wantCode: dompay.CodeNotApproved},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := good()
			if tt.mutate != nil {
				a = tt.mutate(a)
			}
			v, err := f.verifier.Verify(context.Background(), tt.provider, tt.paymentID, a)
			require.NoError(t, err)
			if tt.wantCode == "" {
				assert.True(t, v.Valid)
				assert.Equal(t, "PAY-1", v.Entry.ID)
				return
			}
			assert.False(t, v.Valid)
			assert.Equal(t, tt.wantCode, v.Code)
			assert.NotEmpty(t, v.Reason)
		})
	}

	// verification never writes
	stored, err := f.ledger.Get(context.Background(), "PAY-1")
	require.NoError(t, err)
	assert.Equal(t, dompay.StatusReady, stored.Status)
	assert.Equal(t, int64(1), stored.Version)
}

func TestProvidersNames(t *testing.T) {
	ps := NewProviders(&stubProvider{}, nil)
	assert.Equal(t, []string{"stubpay"}, ps.Names())
	_, ok := ps.Get("tosspayments")
	assert.False(t, ok)
}
