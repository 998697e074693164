package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Zhima-Mochi/travelshop/internal/application"
	appinv "github.com/Zhima-Mochi/travelshop/internal/application/inventory"
	domain "github.com/Zhima-Mochi/travelshop/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/travelshop/internal/domain/outbox"
	"github.com/Zhima-Mochi/travelshop/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	orderService       = "order-service"
	useCaseOrderCreate = "order.create"
)

// CreateOrderUseCase persists a checkout and reserves stock for it. Stock
// reservation is a saga: a failed decrement restores every earlier one and
// removes the order again.
type CreateOrderUseCase struct {
	repo        domain.Repository
	inventory   InventoryPort
	idGenerator IDGenerator
	numbers     NumberGenerator
	publisher   domoutbox.Publisher
	currency    string
	in          application.Instruments

	compensations observability.Counter // inventory_compensations_total{use_case,outcome}
}

func NewCreateOrderUseCase(
	repo domain.Repository,
	inventory InventoryPort,
	idGen IDGenerator,
	numbers NumberGenerator,
	publisher domoutbox.Publisher,
	currency string,
	tel observability.Observability,
) *CreateOrderUseCase {
	in := application.NewInstruments(tel, orderService)
	return &CreateOrderUseCase{
		repo:          repo,
		inventory:     inventory,
		idGenerator:   idGen,
		numbers:       numbers,
		publisher:     publisher,
		currency:      currency,
		in:            in,
		compensations: in.Metrics().Counter(observability.MInventoryCompensations),
	}
}

type Orderer struct {
	Name    string
	Email   string
	Phone   string
	Address string
}

type CreateOrderInput struct {
	Actor           application.Actor
	Items           []domain.LineItem
	Orderer         Orderer
	Travelers       []domain.Traveler
	PaymentMethod   string
	SpecialRequests string
	// Total, when set, must equal the sum of the line item subtotals.
	Total *int64
}

type CreateOrderResult struct {
	OrderID     string
	OrderNumber string
	Status      domain.Status
	Total       int64
	Currency    string
}

func (uc *CreateOrderUseCase) Execute(ctx context.Context, cmd CreateOrderInput) (_ *CreateOrderResult, err error) {
	ctx, call := uc.in.Begin(ctx, useCaseOrderCreate, "CreateOrder",
		attribute.String("order.customer_id", cmd.Actor.ID),
		attribute.Int("order.items", len(cmd.Items)),
	)
	defer func() { call.End(err) }()

	if !cmd.Actor.Authenticated() {
		call.Fail("UNAUTHENTICATED")
		return nil, application.ErrUnauthenticated
	}
	if status, verr := validateCreate(cmd); verr != nil {
		call.Fail(status)
		return nil, verr
	}
	if err := ctx.Err(); err != nil {
		call.Fail("CONTEXT_CANCELED")
		return nil, err
	}

	orderID := uc.idGenerator.NewID()
	number := uc.numbers.NewOrderNumber(time.Now())
	customer := domain.Customer{
		UserID:  cmd.Actor.ID,
		Name:    strings.TrimSpace(cmd.Orderer.Name),
		Email:   strings.TrimSpace(cmd.Orderer.Email),
		Phone:   strings.TrimSpace(cmd.Orderer.Phone),
		Address: strings.TrimSpace(cmd.Orderer.Address),
	}
	entity, derr := domain.New(orderID, number, customer, cmd.Items, cmd.Travelers, uc.currency)
	if derr != nil {
		call.Fail("DOMAIN_CONSTRUCTION_FAILED")
		return nil, application.Validation(derr.Error())
	}
	if cmd.Total != nil && *cmd.Total != entity.Total {
		call.Fail("TOTAL_MISMATCH")
		return nil, application.Validation(fmt.Sprintf("%s: got %d, items sum to %d", domain.ErrTotalMismatch, *cmd.Total, entity.Total))
	}
	entity.SpecialRequests = strings.TrimSpace(cmd.SpecialRequests)
	entity.Payment.Method = cmd.PaymentMethod
	for i := range entity.Items {
		if entity.Items[i].InventoryID != "" {
			entity.Items[i].Reserved = entity.Items[i].Units()
		}
	}
	call.Field("order_id", orderID)
	call.Field("order_number", number)
	call.Field("total", entity.Total)

	if err := uc.repo.Insert(ctx, entity); err != nil {
		call.Fail("REPO_INSERT_FAILED")
		return nil, wrapRepositoryError(err)
	}

	if rerr := uc.reserve(ctx, call, entity); rerr != nil {
		call.Fail("INVENTORY_RESERVATION_FAILED")
		return nil, rerr
	}

	if perr := uc.in.Publish(ctx, uc.publisher, domain.NewOrderCreatedEvent(entity)); perr != nil {
		call.Status = "EVENT_PUBLISH_FAILED"
	}

	call.Span().SetAttributes(attribute.String("order.status", string(entity.Status)))
	call.Span().AddEvent("order.created",
		trace.WithAttributes(attribute.String("order.id", orderID)),
	)

	return &CreateOrderResult{
		OrderID:     entity.ID,
		OrderNumber: entity.Number,
		Status:      entity.Status,
		Total:       entity.Total,
		Currency:    entity.Currency,
	}, nil
}

// reserve decrements stock once per item that references inventory. On the
// first failure it restores what was taken and deletes the order.
func (uc *CreateOrderUseCase) reserve(ctx context.Context, call *application.Call, o *domain.Order) error {
	if uc.inventory == nil {
		return nil
	}
	logger := call.Logger()

	var taken []int
	for i, it := range o.Items {
		if it.InventoryID == "" {
			continue
		}
		if _, err := uc.inventory.Decrement(ctx, it.InventoryID, o.ID, it.Reserved); err != nil {
			reason := appinv.FailureReason(err)
			logger.Warn("inventory_reservation_failed",
				observability.F("order_id", o.ID),
				observability.F("inventory_id", it.InventoryID),
				observability.F("quantity", it.Reserved),
				observability.F("reason", reason),
				observability.F("error", err.Error()),
			)
			uc.compensate(ctx, logger, o, taken)
			return fmt.Errorf("%w: %s (%s): %w", domain.ErrInventoryUnavailable, it.InventoryID, reason, err)
		}
		taken = append(taken, i)
	}
	return nil
}

// compensate restores the decremented items and removes the order. Every
// failure here is logged; the caller already reports the reservation error.
func (uc *CreateOrderUseCase) compensate(ctx context.Context, logger observability.Logger, o *domain.Order, taken []int) {
	ctx = context.WithoutCancel(ctx)
	outcome := "success"
	for _, i := range taken {
		it := o.Items[i]
		if _, err := uc.inventory.Restore(ctx, it.InventoryID, o.ID, it.Reserved); err != nil {
			outcome = "error"
			logger.Error("inventory_compensation_failed",
				observability.F("order_id", o.ID),
				observability.F("inventory_id", it.InventoryID),
				observability.F("quantity", it.Reserved),
				observability.F("error", err.Error()),
			)
		}
	}
	if err := uc.repo.Delete(ctx, o.ID); err != nil {
		outcome = "error"
		logger.Error("order_compensation_delete_failed",
			observability.F("order_id", o.ID),
			observability.F("error", err.Error()),
		)
	}
	uc.compensations.Add(1,
		observability.L("use_case", useCaseOrderCreate),
		observability.L("outcome", outcome),
	)
}

func validateCreate(cmd CreateOrderInput) (string, error) {
	if len(cmd.Items) == 0 {
		return "ITEMS_REQUIRED", application.Validation("at least one item is required")
	}
	if strings.TrimSpace(cmd.Orderer.Name) == "" ||
		strings.TrimSpace(cmd.Orderer.Email) == "" ||
		strings.TrimSpace(cmd.Orderer.Phone) == "" {
		return "ORDERER_REQUIRED", application.Validation("orderer name, email and phone are required")
	}
	if len(cmd.Travelers) == 0 {
		return "TRAVELERS_REQUIRED", application.Validation("at least one traveler is required")
	}
	for i, it := range cmd.Items {
		if it.ProductID == "" {
			return "PRODUCT_ID_REQUIRED", application.Validation(fmt.Sprintf("item %d: product id is required", i))
		}
		if it.Units() <= 0 {
			return "QUANTITY_INVALID", application.Validation(fmt.Sprintf("item %d: quantity must be greater than zero", i))
		}
		if it.UnitPrice < 0 {
			return "AMOUNT_INVALID", application.Validation(fmt.Sprintf("item %d: price must be zero or greater", i))
		}
		if it.Travel != nil && !it.Travel.End.IsZero() && it.Travel.End.Before(it.Travel.Start) {
			return "TRAVEL_DATES_INVALID", application.Validation(fmt.Sprintf("item %d: travel end is before start", i))
		}
	}
	return "", nil
}
