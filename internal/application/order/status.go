package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/travelshop/internal/application"
	domain "github.com/Zhima-Mochi/travelshop/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/travelshop/internal/domain/outbox"
	"github.com/Zhima-Mochi/travelshop/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

const (
	useCaseOrderStatus     = "order.update_status"
	useCaseOrderStatusBulk = "order.update_status_bulk"
	useCaseOrderDelete     = "order.delete"
)

type UpdateStatusInput struct {
	Actor   application.Actor
	OrderID string
	Status  string
	Note    string
}

type UpdateStatusResult struct {
	Order   *domain.Order
	Changed bool
	// RestockErrors lists stock that could not be returned on cancellation.
	RestockErrors []error
}

// UpdateStatusUseCase applies one status change through the shared
// transition table. Cancelling or refunding an order returns its reserved
// stock before the call completes.
type UpdateStatusUseCase struct {
	repo      domain.Repository
	inventory InventoryPort
	publisher domoutbox.Publisher
	in        application.Instruments
}

func NewUpdateStatusUseCase(repo domain.Repository, inventory InventoryPort, publisher domoutbox.Publisher, tel observability.Observability) *UpdateStatusUseCase {
	return &UpdateStatusUseCase{
		repo:      repo,
		inventory: inventory,
		publisher: publisher,
		in:        application.NewInstruments(tel, orderService),
	}
}

func (uc *UpdateStatusUseCase) Execute(ctx context.Context, cmd UpdateStatusInput) (_ *UpdateStatusResult, err error) {
	ctx, call := uc.in.Begin(ctx, useCaseOrderStatus, "UpdateOrderStatus",
		attribute.String("order.id", cmd.OrderID),
		attribute.String("order.target_status", cmd.Status),
	)
	call.Field("order_id", cmd.OrderID)
	call.Field("target_status", cmd.Status)
	defer func() { call.End(err) }()

	if !cmd.Actor.Authenticated() {
		call.Fail("UNAUTHENTICATED")
		return nil, application.ErrUnauthenticated
	}
	to, err := domain.ParseStatus(cmd.Status)
	if err != nil {
		call.Fail("STATUS_INVALID")
		return nil, application.Validation(err.Error())
	}
	res, status, err := uc.apply(ctx, call.Logger(), cmd.Actor, cmd.OrderID, to, cmd.Note)
	if err != nil {
		call.Fail(status)
		return nil, err
	}
	call.Field("changed", res.Changed)
	if len(res.RestockErrors) > 0 {
		call.Status = "RESTOCK_INCOMPLETE"
	}
	return res, nil
}

// apply loads, authorizes, transitions and persists one order. The returned
// status string labels the failure for metrics and logs.
func (uc *UpdateStatusUseCase) apply(ctx context.Context, logger observability.Logger, actor application.Actor, orderID string, to domain.Status, note string) (*UpdateStatusResult, string, error) {
	if orderID == "" {
		return nil, "ORDER_ID_REQUIRED", application.Validation("order id is required")
	}
	o, err := uc.repo.Get(ctx, orderID)
	if err != nil {
		return nil, "ORDER_LOOKUP_FAILED", wrapRepositoryError(err)
	}

	if !actor.IsAdmin() {
		if !o.OwnedBy(actor.ID) {
			return nil, "FORBIDDEN", application.Permission("order belongs to another customer")
		}
		if !o.Status.CustomerCancellable() {
			return nil, "STATE_INVALID", fmt.Errorf("%w: customers cannot change an order in %s", domain.ErrInvalidTransition, o.Status)
		}
		if to != domain.StatusCancelled {
			return nil, "FORBIDDEN", application.Permission("customers may only cancel orders")
		}
	}

	from := o.Status
	changed, err := o.Transition(to, actor.Label(), note)
	if err != nil {
		return nil, "STATE_TRANSITION_FAILED", err
	}
	res := &UpdateStatusResult{Order: o, Changed: changed}
	if !changed {
		return res, "", nil
	}

	if err := uc.repo.Update(ctx, o); err != nil {
		return nil, "ORDER_UPDATE_FAILED", wrapRepositoryError(err)
	}

	if releasesStock(to) {
		res.RestockErrors = uc.restock(ctx, logger, o)
	}

	_ = uc.in.Publish(ctx, uc.publisher, domain.NewOrderStatusChangedEvent(o, from, actor.Label(), note))
	return res, "", nil
}

func releasesStock(s domain.Status) bool {
	return s == domain.StatusCancelled || s == domain.StatusRefunded
}

// restock returns reserved stock for every item and records what came back.
// It runs after the status write, so an order is only ever restocked once.
func (uc *UpdateStatusUseCase) restock(ctx context.Context, logger observability.Logger, o *domain.Order) []error {
	reserved := o.ReservedItems()
	if uc.inventory == nil || len(reserved) == 0 {
		return nil
	}

	var errs []error
	restored := false
	for _, i := range reserved {
		it := o.Items[i]
		if _, err := uc.inventory.Restore(ctx, it.InventoryID, o.ID, it.Reserved); err != nil {
			logger.Error("inventory_restore_failed",
				observability.F("order_id", o.ID),
				observability.F("inventory_id", it.InventoryID),
				observability.F("quantity", it.Reserved),
				observability.F("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("restore %s: %w", it.InventoryID, err))
			continue
		}
		o.Items[i].Reserved = 0
		restored = true
	}

	if restored {
		if err := uc.repo.Update(ctx, o); err != nil {
			logger.Error("order_reservation_update_failed",
				observability.F("order_id", o.ID),
				observability.F("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("record restock: %w", err))
		}
	}
	return errs
}

type BulkUpdateStatusInput struct {
	Actor    application.Actor
	OrderIDs []string
	Status   string
	Note     string
}

type BulkError struct {
	OrderID string
	Err     error
}

type BulkUpdateStatusResult struct {
	Updated []string
	Errors  []BulkError
}

// BulkUpdateStatusUseCase applies one target status to many orders. Each
// order succeeds or fails on its own; nothing is rolled back.
type BulkUpdateStatusUseCase struct {
	single *UpdateStatusUseCase
	in     application.Instruments
}

func NewBulkUpdateStatusUseCase(single *UpdateStatusUseCase, tel observability.Observability) *BulkUpdateStatusUseCase {
	return &BulkUpdateStatusUseCase{single: single, in: application.NewInstruments(tel, orderService)}
}

func (uc *BulkUpdateStatusUseCase) Execute(ctx context.Context, cmd BulkUpdateStatusInput) (_ *BulkUpdateStatusResult, err error) {
	ctx, call := uc.in.Begin(ctx, useCaseOrderStatusBulk, "BulkUpdateOrderStatus",
		attribute.Int("order.count", len(cmd.OrderIDs)),
		attribute.String("order.target_status", cmd.Status),
	)
	call.Field("target_status", cmd.Status)
	defer func() { call.End(err) }()

	if !cmd.Actor.IsAdmin() {
		call.Fail("FORBIDDEN")
		return nil, application.Permission("administrator role required")
	}
	if len(cmd.OrderIDs) == 0 {
		call.Fail("ORDER_IDS_REQUIRED")
		return nil, application.Validation("at least one order id is required")
	}
	to, err := domain.ParseStatus(cmd.Status)
	if err != nil {
		call.Fail("STATUS_INVALID")
		return nil, application.Validation(err.Error())
	}

	res := &BulkUpdateStatusResult{Updated: []string{}, Errors: []BulkError{}}
	seen := make(map[string]struct{}, len(cmd.OrderIDs))
	for _, id := range cmd.OrderIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		if _, _, aerr := uc.single.apply(ctx, call.Logger(), cmd.Actor, id, to, cmd.Note); aerr != nil {
			res.Errors = append(res.Errors, BulkError{OrderID: id, Err: aerr})
			continue
		}
		res.Updated = append(res.Updated, id)
	}

	call.Field("updated", len(res.Updated))
	call.Field("failed", len(res.Errors))
	if len(res.Errors) > 0 {
		call.Status = "PARTIAL_FAILURE"
	}
	return res, nil
}

type DeleteOrderInput struct {
	Actor   application.Actor
	OrderID string
}

// DeleteOrderUseCase hard-deletes an order. Stock still held by the order is
// returned first.
type DeleteOrderUseCase struct {
	repo      domain.Repository
	single    *UpdateStatusUseCase
	publisher domoutbox.Publisher
	in        application.Instruments
}

func NewDeleteOrderUseCase(repo domain.Repository, single *UpdateStatusUseCase, publisher domoutbox.Publisher, tel observability.Observability) *DeleteOrderUseCase {
	return &DeleteOrderUseCase{
		repo:      repo,
		single:    single,
		publisher: publisher,
		in:        application.NewInstruments(tel, orderService),
	}
}

func (uc *DeleteOrderUseCase) Execute(ctx context.Context, cmd DeleteOrderInput) (err error) {
	ctx, call := uc.in.Begin(ctx, useCaseOrderDelete, "DeleteOrder", attribute.String("order.id", cmd.OrderID))
	call.Field("order_id", cmd.OrderID)
	defer func() { call.End(err) }()

	if !cmd.Actor.IsAdmin() {
		call.Fail("FORBIDDEN")
		return application.Permission("administrator role required")
	}
	o, err := uc.repo.Get(ctx, cmd.OrderID)
	if err != nil {
		call.Fail("ORDER_LOOKUP_FAILED")
		return wrapRepositoryError(err)
	}
	if errs := uc.single.restock(ctx, call.Logger(), o); len(errs) > 0 {
		call.Field("restock_errors", errors.Join(errs...).Error())
	}
	if err := uc.repo.Delete(ctx, o.ID); err != nil {
		call.Fail("REPO_DELETE_FAILED")
		return wrapRepositoryError(err)
	}

	_ = uc.in.Publish(ctx, uc.publisher, domain.OrderDeletedEvent{OrderID: o.ID, Actor: cmd.Actor.Label(), OccurredAt: time.Now().UTC()})
	return nil
}
