package order

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Zhima-Mochi/travelshop/internal/application"
	appinv "github.com/Zhima-Mochi/travelshop/internal/application/inventory"
	dominv "github.com/Zhima-Mochi/travelshop/internal/domain/inventory"
	domain "github.com/Zhima-Mochi/travelshop/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/travelshop/internal/domain/outbox"
	"github.com/Zhima-Mochi/travelshop/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/travelshop/internal/observability"
	"github.com/stretchr/testify/require"
)

type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (s *seqIDs) NewID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("order-%d", s.n)
}

type fixedNumbers struct{}

func (fixedNumbers) NewOrderNumber(now time.Time) string {
	return now.UTC().Format("060102150405") + "0001"
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

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventName())
	}
	return out
}

func (p *recordingPublisher) statusChanges() []domain.OrderStatusChangedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []domain.OrderStatusChangedEvent
	for _, e := range p.events {
		if sc, ok := e.(domain.OrderStatusChangedEvent); ok {
			out = append(out, sc)
		}
	}
	return out
}

type fixture struct {
	orders    *memory.OrderRepository
	stock     *memory.InventoryRepository
	publisher *recordingPublisher

	create *CreateOrderUseCase
	get    *GetOrderUseCase
	list   *ListOrdersUseCase
	admin  *ListAdminOrdersUseCase
	status *UpdateStatusUseCase
	bulk   *BulkUpdateStatusUseCase
	delete *DeleteOrderUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tel := observability.Nop()
	f := &fixture{
		orders:    memory.NewOrderRepository(),
		stock:     memory.NewInventoryRepository(),
		publisher: &recordingPublisher{},
	}
	adjuster := appinv.NewAdjuster(f.stock, nil, tel)
	f.create = NewCreateOrderUseCase(f.orders, adjuster, &seqIDs{}, fixedNumbers{}, f.publisher, "KRW", tel)
	f.get = NewGetOrderUseCase(f.orders, tel)
	f.list = NewListOrdersUseCase(f.orders, tel)
	f.admin = NewListAdminOrdersUseCase(f.orders, tel)
	f.status = NewUpdateStatusUseCase(f.orders, adjuster, f.publisher, tel)
	f.bulk = NewBulkUpdateStatusUseCase(f.status, tel)
	f.delete = NewDeleteOrderUseCase(f.orders, f.status, f.publisher, tel)
	return f
}

func (f *fixture) setStock(t *testing.T, id string, stock int) {
	t.Helper()
	rec, err := dominv.NewRecord(id, stock)
	require.NoError(t, err)
	require.NoError(t, f.stock.Set(context.Background(), rec))
}

func (f *fixture) stockOf(t *testing.T, id string) int {
	t.Helper()
	rec, err := f.stock.Get(context.Background(), id)
	require.NoError(t, err)
	return rec.Stock
}

var (
	customer = application.Actor{ID: "user-1", Role: application.RoleCustomer, Email: "kim@example.com", Name: "Kim"}
	stranger = application.Actor{ID: "user-2", Role: application.RoleCustomer}
	admin    = application.Actor{ID: "admin-1", Role: application.RoleAdmin}
)

func checkout(items ...domain.LineItem) CreateOrderInput {
	return CreateOrderInput{
		Actor:         customer,
		Items:         items,
		Orderer:       Orderer{Name: "Kim Minji", Email: "kim@example.com", Phone: "010-1234-5678"},
		Travelers:     []domain.Traveler{{Name: "Kim Minji", Type: domain.TravelerAdult}},
		PaymentMethod: "card",
	}
}

func (f *fixture) placeOrder(t *testing.T, items ...domain.LineItem) *CreateOrderResult {
	t.Helper()
	res, err := f.create.Execute(context.Background(), checkout(items...))
	require.NoError(t, err)
	return res
}
