package payment

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Zhima-Mochi/travelshop/internal/application"
	domorder "github.com/Zhima-Mochi/travelshop/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/travelshop/internal/domain/outbox"
	dompay "github.com/Zhima-Mochi/travelshop/internal/domain/payment"
	"github.com/Zhima-Mochi/travelshop/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/travelshop/internal/observability"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// stubProvider approves whatever amount it is told to report.
type stubProvider struct {
	mu sync.Mutex

	approveAmount *decimal.Decimal
	initiateErr   error
	confirmErr    error
	confirms      int
	lastInitiate  dompay.InitiateRequest
}

func (p *stubProvider) Name() string { return "stubpay" }

func (p *stubProvider) ProviderOrderID(entry *dompay.Entry) string { return entry.OrderID }

func (p *stubProvider) Initiate(_ context.Context, req dompay.InitiateRequest) (*dompay.Initiation, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastInitiate = req
	if p.initiateErr != nil {
		return nil, p.initiateErr
	}
	return &dompay.Initiation{
		TransactionID: "tx-" + req.PaymentID,
		RedirectURL:   "https://pay.example.com/checkout/" + req.PaymentID,
		CreatedAt:     time.Now(),
	}, nil
}

func (p *stubProvider) Confirm(_ context.Context, req dompay.ConfirmRequest) (*dompay.Approval, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.confirms++
	if p.confirmErr != nil {
		return nil, p.confirmErr
	}
	amount := decimal.NewFromInt(req.Amount)
	if p.approveAmount != nil {
		amount = *p.approveAmount
	}
	return &dompay.Approval{
		TransactionID:   req.TransactionID,
		ProviderOrderID: req.ProviderOrderID,
		Amount:          amount,
		Method:          "CARD",
		ApprovedAt:      time.Now(),
	}, nil
}

func (p *stubProvider) ParseCallback(q map[string][]string) (dompay.Callback, error) {
	first := func(k string) string {
		if v := q[k]; len(v) > 0 {
			return v[0]
		}
		return ""
	}
	if first("paymentId") == "" {
		return dompay.Callback{}, dompay.NewError(dompay.KindVerificationFailed, dompay.CodeInvalidRequest, "paymentId missing", nil)
	}
	return dompay.Callback{PaymentID: first("paymentId"), Result: first("result"), Token: first("token")}, nil
}

func (p *stubProvider) confirmCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.confirms
}

type seqPaymentIDs struct {
	mu sync.Mutex
	n  int
}

func (s *seqPaymentIDs) NewPaymentID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return "PAY-" + string(rune('A'+s.n-1))
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domoutbox.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e domoutbox.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) paidNotifications() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if sc, ok := e.(domorder.OrderStatusChangedEvent); ok && sc.To == domorder.StatusPaid {
			n++
		}
	}
	return n
}

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventName())
	}
	return out
}

var (
	buyer = application.Actor{ID: "user-1", Role: application.RoleCustomer}
	other = application.Actor{ID: "user-2", Role: application.RoleCustomer}
)

type fixture struct {
	orders    *memory.OrderRepository
	ledger    *memory.LedgerRepository
	provider  *stubProvider
	publisher *recordingPublisher

	initiate *InitiatePaymentUseCase
	confirm  *ConfirmPaymentUseCase
	verifier *Verifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tel := observability.Nop()
	f := &fixture{
		orders:    memory.NewOrderRepository(),
		ledger:    memory.NewLedgerRepository(),
		provider:  &stubProvider{},
		publisher: &recordingPublisher{},
	}
	providers := NewProviders(f.provider)
	f.verifier = NewVerifier(f.ledger, tel)
	f.initiate = NewInitiatePaymentUseCase(providers, f.orders, f.ledger, &seqPaymentIDs{}, f.publisher, time.Second, tel)
	f.confirm = NewConfirmPaymentUseCase(providers, f.orders, f.ledger, f.verifier, f.publisher, time.Second, tel)
	return f
}

// seedOrder stores a pending 280,000 KRW order: two adults and one child.
func (f *fixture) seedOrder(t *testing.T, id string) *domorder.Order {
	t.Helper()
	o, err := domorder.New(id, "2610140001"+id, domorder.Customer{UserID: buyer.ID, Name: "Kim", Email: "kim@example.com"},
		[]domorder.LineItem{{
			ProductID: "jeju-tour",
			Title:     "Jeju 3 days",
			UnitPrice: 100000,
			Travelers: &domorder.TravelerCounts{Adult: 2, Child: 1},
			Prices:    &domorder.TravelerPrices{Adult: 100000, Child: 80000},
		}},
		[]domorder.Traveler{{Name: "Kim", Type: domorder.TravelerAdult}}, "KRW")
	require.NoError(t, err)
	require.Equal(t, int64(280000), o.Total)
	require.NoError(t, f.orders.Insert(context.Background(), o))
	return o
}

func (f *fixture) start(t *testing.T, orderID string) *InitiatePaymentResult {
	t.Helper()
	res, err := f.initiate.Execute(context.Background(), InitiatePaymentInput{
		Actor:    buyer,
		Provider: "stubpay",
		OrderID:  orderID,
		BaseURL:  "https://shop.example.com/",
	})
	require.NoError(t, err)
	return res
}

func callback(paymentID, result string) ConfirmPaymentInput {
	return ConfirmPaymentInput{
		Provider: "stubpay",
		Query:    map[string][]string{"paymentId": {paymentID}, "result": {result}, "token": {"tok"}},
	}
}
