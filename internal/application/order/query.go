package order

import (
	"context"

	"github.com/Zhima-Mochi/travelshop/internal/application"
	domain "github.com/Zhima-Mochi/travelshop/internal/domain/order"
	"github.com/Zhima-Mochi/travelshop/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

const (
	useCaseOrderGet       = "order.get"
	useCaseOrderList      = "order.list"
	useCaseOrderListAdmin = "order.list_admin"
)

type GetOrderInput struct {
	Actor   application.Actor
	OrderID string
}

type GetOrderUseCase struct {
	repo domain.Repository
	in   application.Instruments
}

func NewGetOrderUseCase(repo domain.Repository, tel observability.Observability) *GetOrderUseCase {
	return &GetOrderUseCase{repo: repo, in: application.NewInstruments(tel, orderService)}
}

// Execute returns the order when the actor owns it or is an administrator.
func (uc *GetOrderUseCase) Execute(ctx context.Context, cmd GetOrderInput) (_ *domain.Order, err error) {
	ctx, call := uc.in.Begin(ctx, useCaseOrderGet, "GetOrder", attribute.String("order.id", cmd.OrderID))
	call.Field("order_id", cmd.OrderID)
	defer func() { call.End(err) }()

	if !cmd.Actor.Authenticated() {
		call.Fail("UNAUTHENTICATED")
		return nil, application.ErrUnauthenticated
	}
	if cmd.OrderID == "" {
		call.Fail("ORDER_ID_REQUIRED")
		return nil, application.Validation("order id is required")
	}
	o, err := uc.repo.Get(ctx, cmd.OrderID)
	if err != nil {
		call.Fail("ORDER_LOOKUP_FAILED")
		return nil, wrapRepositoryError(err)
	}
	if !cmd.Actor.IsAdmin() && !o.OwnedBy(cmd.Actor.ID) {
		call.Fail("FORBIDDEN")
		return nil, application.Permission("order belongs to another customer")
	}
	return o, nil
}

type ListOrdersInput struct {
	Actor application.Actor
}

type ListOrdersUseCase struct {
	repo domain.Repository
	in   application.Instruments
}

func NewListOrdersUseCase(repo domain.Repository, tel observability.Observability) *ListOrdersUseCase {
	return &ListOrdersUseCase{repo: repo, in: application.NewInstruments(tel, orderService)}
}

// Execute lists the actor's own orders, newest first.
func (uc *ListOrdersUseCase) Execute(ctx context.Context, cmd ListOrdersInput) (_ []*domain.Order, err error) {
	ctx, call := uc.in.Begin(ctx, useCaseOrderList, "ListOrders")
	defer func() { call.End(err) }()

	if !cmd.Actor.Authenticated() {
		call.Fail("UNAUTHENTICATED")
		return nil, application.ErrUnauthenticated
	}
	orders, err := uc.repo.ListByCustomer(ctx, cmd.Actor.ID)
	if err != nil {
		call.Fail("REPO_LIST_FAILED")
		return nil, wrapRepositoryError(err)
	}
	call.Field("count", len(orders))
	return orders, nil
}

type ListAdminOrdersInput struct {
	Actor  application.Actor
	Filter domain.ListFilter
}

type ListAdminOrdersResult struct {
	Orders []*domain.Order
	Total  int
	Page   int
	Limit  int
}

type ListAdminOrdersUseCase struct {
	repo domain.Repository
	in   application.Instruments
}

func NewListAdminOrdersUseCase(repo domain.Repository, tel observability.Observability) *ListAdminOrdersUseCase {
	return &ListAdminOrdersUseCase{repo: repo, in: application.NewInstruments(tel, orderService)}
}

func (uc *ListAdminOrdersUseCase) Execute(ctx context.Context, cmd ListAdminOrdersInput) (_ *ListAdminOrdersResult, err error) {
	ctx, call := uc.in.Begin(ctx, useCaseOrderListAdmin, "ListAdminOrders")
	defer func() { call.End(err) }()

	if !cmd.Actor.IsAdmin() {
		call.Fail("FORBIDDEN")
		return nil, application.Permission("administrator role required")
	}
	for _, st := range cmd.Filter.Statuses {
		if !st.Valid() {
			call.Fail("STATUS_INVALID")
			return nil, application.Validation("unknown status filter " + string(st))
		}
	}
	f := cmd.Filter.Normalize()
	orders, total, err := uc.repo.List(ctx, f)
	if err != nil {
		call.Fail("REPO_LIST_FAILED")
		return nil, wrapRepositoryError(err)
	}
	call.Field("count", len(orders))
	call.Field("total", total)
	return &ListAdminOrdersResult{Orders: orders, Total: total, Page: f.Page, Limit: f.Limit}, nil
}
