package order

import (
	"context"
	"testing"

	"github.com/Zhima-Mochi/travelshop/internal/application"
	domain "github.com/Zhima-Mochi/travelshop/internal/domain/order"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateOrderReservesStock(t *testing.T) {
	f := newFixture(t)
	f.setStock(t, "jeju-0301", 10)

	res := f.placeOrder(t, domain.LineItem{
		ProductID:   "jeju-tour",
		InventoryID: "jeju-0301",
		Title:       "Jeju 3 days",
		UnitPrice:   100000,
		Travelers:   &domain.TravelerCounts{Adult: 2, Child: 1},
		Prices:      &domain.TravelerPrices{Adult: 100000, Child: 80000},
	})

	assert.Equal(t, domain.StatusPending, res.Status)
	assert.Equal(t, int64(280000), res.Total)
	assert.Equal(t, "KRW", res.Currency)
	assert.Len(t, res.OrderNumber, 16)
	assert.Equal(t, 7, f.stockOf(t, "jeju-0301"))

	stored, err := f.orders.Get(context.Background(), res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.Items[0].Reserved)
	assert.Equal(t, "card", stored.Payment.Method)
	require.Len(t, stored.History, 1)
	assert.Equal(t, domain.StatusPending, stored.History[0].Status)
	assert.Equal(t, []string{"order.created"}, f.publisher.names())
}

func TestCreateOrderValidation(t *testing.T) {
	item := domain.LineItem{ProductID: "p1", UnitPrice: 1000, Quantity: 1}
	tests := []struct {
		name   string
		mutate func(*CreateOrderInput)
		want   error
	}{
		{name: "anonymous", mutate: func(in *CreateOrderInput) { in.Actor = application.Actor{} }, want: application.ErrUnauthenticated},
		{name: "no items", mutate: func(in *CreateOrderInput) { in.Items = nil }, want: application.ErrValidation},
		{name: "no orderer email", mutate: func(in *CreateOrderInput) { in.Orderer.Email = " " }, want: application.ErrValidation},
		{name: "no travelers", mutate: func(in *CreateOrderInput) { in.Travelers = nil }, want: application.ErrValidation},
		{name: "zero quantity", mutate: func(in *CreateOrderInput) { in.Items[0].Quantity = 0 }, want: application.ErrValidation},
		{name: "negative price", mutate: func(in *CreateOrderInput) { in.Items[0].UnitPrice = -1 }, want: application.ErrValidation},
		{name: "total mismatch", mutate: func(in *CreateOrderInput) { total := int64(999); in.Total = &total }, want: application.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			in := checkout(item)
			tt.mutate(&in)
			_, err := f.create.Execute(context.Background(), in)
			require.ErrorIs(t, err, tt.want)

			all, total, lerr := f.orders.List(context.Background(), domain.ListFilter{})
			require.NoError(t, lerr)
			assert.Empty(t, all)
			assert.Zero(t, total)
		})
	}
}

func TestCreateOrderAcceptsMatchingTotal(t *testing.T) {
	f := newFixture(t)
	in := checkout(domain.LineItem{ProductID: "p1", UnitPrice: 1500, Quantity: 2})
	total := int64(3000)
	in.Total = &total
	res, err := f.create.Execute(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), res.Total)
}

func TestCreateOrderCompensatesFailedReservation(t *testing.T) {
	f := newFixture(t)
	f.setStock(t, "seoul-0501", 5)
	f.setStock(t, "busan-0502", 1)

	_, err := f.create.Execute(context.Background(), checkout(
		domain.LineItem{ProductID: "seoul", InventoryID: "seoul-0501", UnitPrice: 50000, Quantity: 2},
		domain.LineItem{ProductID: "busan", InventoryID: "busan-0502", UnitPrice: 70000, Quantity: 2},
	))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInventoryUnavailable)

	assert.Equal(t, 5, f.stockOf(t, "seoul-0501"))
	assert.Equal(t, 1, f.stockOf(t, "busan-0502"))

	all, _, lerr := f.orders.List(context.Background(), domain.ListFilter{})
	require.NoError(t, lerr)
	assert.Empty(t, all)
	assert.Empty(t, f.publisher.names())
}

func TestCreateOrderUnknownInventory(t *testing.T) {
	f := newFixture(t)
	_, err := f.create.Execute(context.Background(), checkout(
		domain.LineItem{ProductID: "ghost", InventoryID: "missing", UnitPrice: 1000, Quantity: 1},
	))
	assert.ErrorIs(t, err, domain.ErrInventoryUnavailable)
}

func TestCreateOrderWithoutInventoryReference(t *testing.T) {
	f := newFixture(t)
	res := f.placeOrder(t, domain.LineItem{ProductID: "voucher", UnitPrice: 20000, Quantity: 3})
	stored, err := f.orders.Get(context.Background(), res.OrderID)
	require.NoError(t, err)
	assert.Zero(t, stored.Items[0].Reserved)
	assert.Equal(t, int64(60000), stored.Total)
}
