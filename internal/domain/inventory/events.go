package inventory

import "time"

const (
	FailureReasonNotFound          = "not_found"
	FailureReasonInsufficientStock = "insufficient_stock"
	FailureReasonPersistenceError  = "persist_error"
)

// StockAdjustedEvent is emitted after every successful stock change.
type StockAdjustedEvent struct {
	InventoryID string
	OrderID     string
	Delta       int
	Remaining   int
	OccurredAt  time.Time
}

func (StockAdjustedEvent) EventName() string      { return "inventory.adjusted" }
func (e StockAdjustedEvent) PartitionKey() string { return e.InventoryID }

func NewStockAdjustedEvent(inventoryID, orderID string, delta, remaining int) StockAdjustedEvent {
	return StockAdjustedEvent{
		InventoryID: inventoryID,
		OrderID:     orderID,
		Delta:       delta,
		Remaining:   remaining,
		OccurredAt:  time.Now().UTC(),
	}
}
