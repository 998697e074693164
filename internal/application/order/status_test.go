package order

import (
	"context"
	"sync"
	"testing"

	"github.com/Zhima-Mochi/travelshop/internal/application"
	domain "github.com/Zhima-Mochi/travelshop/internal/domain/order"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tour(inventoryID string, adults int) domain.LineItem {
	return domain.LineItem{
		ProductID:   "jeju-tour",
		InventoryID: inventoryID,
		Title:       "Jeju 3 days",
		UnitPrice:   100000,
		Travelers:   &domain.TravelerCounts{Adult: adults},
	}
}

func TestCustomerCancelRestoresStock(t *testing.T) {
	f := newFixture(t)
	f.setStock(t, "jeju-0301", 5)
	placed := f.placeOrder(t, tour("jeju-0301", 2))
	require.Equal(t, 3, f.stockOf(t, "jeju-0301"))

	res, err := f.status.Execute(context.Background(), UpdateStatusInput{
		Actor: customer, OrderID: placed.OrderID, Status: "cancelled", Note: "plans changed",
	})
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Empty(t, res.RestockErrors)
	assert.Equal(t, domain.StatusCancelled, res.Order.Status)
	assert.Equal(t, 5, f.stockOf(t, "jeju-0301"))

	stored, err := f.orders.Get(context.Background(), placed.OrderID)
	require.NoError(t, err)
	assert.Zero(t, stored.Items[0].Reserved)
	require.Len(t, stored.History, 2)
	assert.Equal(t, "plans changed", stored.History[1].Note)
	assert.Equal(t, customer.ID, stored.History[1].Actor)

	changes := f.publisher.statusChanges()
	require.Len(t, changes, 1)
	assert.Equal(t, domain.StatusPending, changes[0].From)
	assert.Equal(t, domain.StatusCancelled, changes[0].To)

	// cancelled → refunded releases nothing twice
	res, err = f.status.Execute(context.Background(), UpdateStatusInput{Actor: admin, OrderID: placed.OrderID, Status: "refunded"})
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, 5, f.stockOf(t, "jeju-0301"))
}

func TestUpdateStatusSameStatusIsNoop(t *testing.T) {
	f := newFixture(t)
	placed := f.placeOrder(t, tour("", 1))

	res, err := f.status.Execute(context.Background(), UpdateStatusInput{Actor: admin, OrderID: placed.OrderID, Status: "pending"})
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Empty(t, f.publisher.statusChanges())

	stored, err := f.orders.Get(context.Background(), placed.OrderID)
	require.NoError(t, err)
	assert.Len(t, stored.History, 1)
}

func TestUpdateStatusRules(t *testing.T) {
	tests := []struct {
		name  string
		actor application.Actor
		setup []domain.Status
		to    string
		want  error
	}{
		{name: "unknown status", actor: admin, to: "shipped", want: application.ErrValidation},
		{name: "anonymous", actor: application.Actor{}, to: "cancelled", want: application.ErrUnauthenticated},
		{name: "other customer", actor: stranger, to: "cancelled", want: application.ErrPermission},
		{name: "customer confirms", actor: customer, to: "confirmed", want: application.ErrPermission},
		{name: "customer cancels paid order", actor: customer, setup: []domain.Status{domain.StatusPaid}, to: "cancelled", want: domain.ErrInvalidTransition},
		{name: "completed back to ready", actor: admin, setup: []domain.Status{domain.StatusCompleted}, to: "ready", want: domain.ErrInvalidTransition},
		{name: "refunded is final", actor: admin, setup: []domain.Status{domain.StatusRefunded}, to: "pending", want: domain.ErrInvalidTransition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			placed := f.placeOrder(t, tour("", 1))
			for _, st := range tt.setup {
				_, err := f.status.Execute(context.Background(), UpdateStatusInput{Actor: admin, OrderID: placed.OrderID, Status: string(st)})
				require.NoError(t, err)
			}
			_, err := f.status.Execute(context.Background(), UpdateStatusInput{Actor: tt.actor, OrderID: placed.OrderID, Status: tt.to})
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestUpdateStatusMissingOrder(t *testing.T) {
	f := newFixture(t)
	_, err := f.status.Execute(context.Background(), UpdateStatusInput{Actor: admin, OrderID: "nope", Status: "paid"})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConcurrentCancelRestocksOnce(t *testing.T) {
	f := newFixture(t)
	f.setStock(t, "jeju-0301", 4)
	placed := f.placeOrder(t, tour("jeju-0301", 4))
	require.Equal(t, 0, f.stockOf(t, "jeju-0301"))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.status.Execute(context.Background(), UpdateStatusInput{Actor: admin, OrderID: placed.OrderID, Status: "cancelled"})
		}()
	}
	wg.Wait()

	assert.Equal(t, 4, f.stockOf(t, "jeju-0301"))
	assert.Len(t, f.publisher.statusChanges(), 1)
}

func TestBulkUpdateStatus(t *testing.T) {
	f := newFixture(t)
	f.setStock(t, "jeju-0301", 10)
	a := f.placeOrder(t, tour("jeju-0301", 2))
	b := f.placeOrder(t, tour("jeju-0301", 3))
	done := f.placeOrder(t, tour("", 1))
	_, err := f.status.Execute(context.Background(), UpdateStatusInput{Actor: admin, OrderID: done.OrderID, Status: "completed"})
	require.NoError(t, err)

	res, err := f.bulk.Execute(context.Background(), BulkUpdateStatusInput{
		Actor:    admin,
		OrderIDs: []string{a.OrderID, b.OrderID, a.OrderID, done.OrderID, "missing"},
		Status:   "cancelled",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{a.OrderID, b.OrderID}, res.Updated)
	require.Len(t, res.Errors, 2)
	assert.Equal(t, done.OrderID, res.Errors[0].OrderID)
	assert.ErrorIs(t, res.Errors[0].Err, domain.ErrInvalidTransition)
	assert.Equal(t, "missing", res.Errors[1].OrderID)
	assert.ErrorIs(t, res.Errors[1].Err, domain.ErrNotFound)
	assert.Equal(t, 10, f.stockOf(t, "jeju-0301"))
}

func TestBulkUpdateStatusRepeatedRequestIsStable(t *testing.T) {
	f := newFixture(t)
	f.setStock(t, "jeju-0301", 10)
	a := f.placeOrder(t, tour("jeju-0301", 2))
	b := f.placeOrder(t, tour("jeju-0301", 3))
	done := f.placeOrder(t, tour("", 1))
	_, err := f.status.Execute(context.Background(), UpdateStatusInput{Actor: admin, OrderID: done.OrderID, Status: "completed"})
	require.NoError(t, err)

	req := BulkUpdateStatusInput{
		Actor:    admin,
		OrderIDs: []string{a.OrderID, b.OrderID, done.OrderID},
		Status:   "cancelled",
		Note:     "tour cancelled by operator",
	}
	snapshot := func() (map[string]domain.Status, map[string]int) {
		statuses, histories := map[string]domain.Status{}, map[string]int{}
		for _, id := range req.OrderIDs {
			o, gerr := f.orders.Get(context.Background(), id)
			require.NoError(t, gerr)
			statuses[id] = o.Status
			histories[id] = len(o.History)
		}
		return statuses, histories
	}

	first, err := f.bulk.Execute(context.Background(), req)
	require.NoError(t, err)
	statuses, histories := snapshot()
	stock := f.stockOf(t, "jeju-0301")
	changes := len(f.publisher.statusChanges())
	assert.Equal(t, 10, stock)

	second, err := f.bulk.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first.Updated, second.Updated)
	require.Len(t, second.Errors, len(first.Errors))
	for i := range first.Errors {
		assert.Equal(t, first.Errors[i].OrderID, second.Errors[i].OrderID)
	}

	statusesAgain, historiesAgain := snapshot()
	assert.Equal(t, statuses, statusesAgain)
	assert.Equal(t, histories, historiesAgain)
	assert.Equal(t, domain.StatusCancelled, statusesAgain[a.OrderID])
	assert.Equal(t, domain.StatusCompleted, statusesAgain[done.OrderID])
	assert.Equal(t, stock, f.stockOf(t, "jeju-0301"))
	assert.Len(t, f.publisher.statusChanges(), changes)
}

func TestBulkUpdateStatusRejects(t *testing.T) {
	f := newFixture(t)
	_, err := f.bulk.Execute(context.Background(), BulkUpdateStatusInput{Actor: customer, OrderIDs: []string{"x"}, Status: "paid"})
	require.ErrorIs(t, err, application.ErrPermission)

	_, err = f.bulk.Execute(context.Background(), BulkUpdateStatusInput{Actor: admin, Status: "paid"})
	require.ErrorIs(t, err, application.ErrValidation)

	_, err = f.bulk.Execute(context.Background(), BulkUpdateStatusInput{Actor: admin, OrderIDs: []string{"x"}, Status: "lost"})
	require.ErrorIs(t, err, application.ErrValidation)
}

func TestDeleteOrderReturnsStock(t *testing.T) {
	f := newFixture(t)
	f.setStock(t, "jeju-0301", 6)
	placed := f.placeOrder(t, tour("jeju-0301", 2))

	err := f.delete.Execute(context.Background(), DeleteOrderInput{Actor: customer, OrderID: placed.OrderID})
	require.ErrorIs(t, err, application.ErrPermission)

	require.NoError(t, f.delete.Execute(context.Background(), DeleteOrderInput{Actor: admin, OrderID: placed.OrderID}))
	assert.Equal(t, 6, f.stockOf(t, "jeju-0301"))
	_, err = f.orders.Get(context.Background(), placed.OrderID)
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Contains(t, f.publisher.names(), "order.deleted")

	err = f.delete.Execute(context.Background(), DeleteOrderInput{Actor: admin, OrderID: placed.OrderID})
	require.ErrorIs(t, err, domain.ErrNotFound)
}
