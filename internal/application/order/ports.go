package order

import (
	"context"
	"time"

	"github.com/Zhima-Mochi/travelshop/internal/application"
	domain "github.com/Zhima-Mochi/travelshop/internal/domain/order"
)

var (
	_ application.UseCase[CreateOrderInput, *CreateOrderResult]           = (*CreateOrderUseCase)(nil)
	_ application.UseCase[GetOrderInput, *domain.Order]                   = (*GetOrderUseCase)(nil)
	_ application.UseCase[ListOrdersInput, []*domain.Order]               = (*ListOrdersUseCase)(nil)
	_ application.UseCase[ListAdminOrdersInput, *ListAdminOrdersResult]   = (*ListAdminOrdersUseCase)(nil)
	_ application.UseCase[UpdateStatusInput, *UpdateStatusResult]         = (*UpdateStatusUseCase)(nil)
	_ application.UseCase[BulkUpdateStatusInput, *BulkUpdateStatusResult] = (*BulkUpdateStatusUseCase)(nil)
)

type IDGenerator interface {
	NewID() string
}

// NumberGenerator produces the human readable order number.
type NumberGenerator interface {
	NewOrderNumber(now time.Time) string
}

// InventoryPort is the stock adjuster used for reservations and their compensation.
type InventoryPort interface {
	Decrement(ctx context.Context, inventoryID, orderID string, quantity int) (int, error)
	Restore(ctx context.Context, inventoryID, orderID string, quantity int) (int, error)
}
