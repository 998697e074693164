package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/Zhima-Mochi/travelshop/internal/application"
	dominv "github.com/Zhima-Mochi/travelshop/internal/domain/inventory"
	domoutbox "github.com/Zhima-Mochi/travelshop/internal/domain/outbox"
	"github.com/Zhima-Mochi/travelshop/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

const (
	inventoryService = "inventory-service"
	useCaseDecrement = "inventory.decrement"
	useCaseRestore   = "inventory.restore"
	useCaseSet       = "inventory.set"
	useCaseGet       = "inventory.get"
)

// Adjuster changes stock counts one item at a time. It does not coordinate
// across items; callers that need all-or-nothing compensate with Restore.
type Adjuster struct {
	repo      dominv.Repository
	publisher domoutbox.Publisher
	in        application.Instruments
}

func NewAdjuster(repo dominv.Repository, publisher domoutbox.Publisher, tel observability.Observability) *Adjuster {
	return &Adjuster{
		repo:      repo,
		publisher: publisher,
		in:        application.NewInstruments(tel, inventoryService),
	}
}

// Decrement takes quantity units of stock for orderID and returns the remaining stock.
func (a *Adjuster) Decrement(ctx context.Context, inventoryID, orderID string, quantity int) (int, error) {
	return a.adjust(ctx, useCaseDecrement, "DecrementStock", inventoryID, orderID, -quantity, quantity)
}

// Restore gives quantity units back, e.g. when an order is cancelled.
func (a *Adjuster) Restore(ctx context.Context, inventoryID, orderID string, quantity int) (int, error) {
	return a.adjust(ctx, useCaseRestore, "RestoreStock", inventoryID, orderID, quantity, quantity)
}

func (a *Adjuster) adjust(ctx context.Context, useCase, spanName, inventoryID, orderID string, delta, quantity int) (_ int, err error) {
	ctx, call := a.in.Begin(ctx, useCase, spanName,
		attribute.String("inventory.id", inventoryID),
		attribute.String("order.id", orderID),
		attribute.Int("inventory.delta", delta),
	)
	call.Field("inventory_id", inventoryID)
	call.Field("order_id", orderID)
	call.Field("delta", delta)
	defer func() { call.End(err) }()

	if inventoryID == "" {
		call.Fail("INVENTORY_ID_REQUIRED")
		return 0, application.Validation("inventory id is required")
	}
	if quantity <= 0 {
		call.Fail("QUANTITY_INVALID")
		return 0, dominv.ErrInvalidQuantity
	}

	remaining, err := a.repo.Adjust(ctx, inventoryID, delta)
	if err != nil {
		call.Fail(failureStatus(err))
		return 0, fmt.Errorf("inventory: adjust %s: %w", inventoryID, err)
	}
	call.Field("remaining", remaining)

	_ = a.in.Publish(ctx, a.publisher, dominv.NewStockAdjustedEvent(inventoryID, orderID, delta, remaining))
	return remaining, nil
}

// Set overwrites the stock of an item, creating it when missing.
func (a *Adjuster) Set(ctx context.Context, inventoryID string, stock int) (_ *dominv.Record, err error) {
	ctx, call := a.in.Begin(ctx, useCaseSet, "SetStock",
		attribute.String("inventory.id", inventoryID),
		attribute.Int("inventory.stock", stock),
	)
	defer func() { call.End(err) }()

	if inventoryID == "" {
		call.Fail("INVENTORY_ID_REQUIRED")
		return nil, application.Validation("inventory id is required")
	}
	rec, err := dominv.NewRecord(inventoryID, stock)
	if err != nil {
		call.Fail("STOCK_INVALID")
		return nil, err
	}
	if err := a.repo.Set(ctx, rec); err != nil {
		call.Fail("REPO_SET_FAILED")
		return nil, fmt.Errorf("inventory: set %s: %w", inventoryID, err)
	}
	return rec, nil
}

func (a *Adjuster) Get(ctx context.Context, inventoryID string) (_ *dominv.Record, err error) {
	ctx, call := a.in.Begin(ctx, useCaseGet, "GetStock", attribute.String("inventory.id", inventoryID))
	defer func() { call.End(err) }()

	rec, err := a.repo.Get(ctx, inventoryID)
	if err != nil {
		call.Fail(failureStatus(err))
		return nil, err
	}
	return rec, nil
}

func failureStatus(err error) string {
	switch {
	case errors.Is(err, dominv.ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, dominv.ErrInsufficientStock):
		return "INSUFFICIENT_STOCK"
	default:
		return "REPO_ADJUST_FAILED"
	}
}

// FailureReason maps an adjustment error onto a stable reason string.
func FailureReason(err error) string {
	switch {
	case errors.Is(err, dominv.ErrNotFound):
		return dominv.FailureReasonNotFound
	case errors.Is(err, dominv.ErrInsufficientStock):
		return dominv.FailureReasonInsufficientStock
	default:
		return dominv.FailureReasonPersistenceError
	}
}
