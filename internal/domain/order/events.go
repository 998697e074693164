package order

import "time"

// OrderCreatedEvent is emitted once an order and its stock reservation succeeded.
type OrderCreatedEvent struct {
	OrderID     string
	OrderNumber string
	CustomerID  string
	Total       int64
	Currency    string
	Items       int
	OccurredAt  time.Time
}

func (OrderCreatedEvent) EventName() string      { return "order.created" }
func (e OrderCreatedEvent) PartitionKey() string { return e.OrderID }

func NewOrderCreatedEvent(o *Order) OrderCreatedEvent {
	return OrderCreatedEvent{
		OrderID:     o.ID,
		OrderNumber: o.Number,
		CustomerID:  o.Customer.UserID,
		Total:       o.Total,
		Currency:    o.Currency,
		Items:       len(o.Items),
		OccurredAt:  time.Now().UTC(),
	}
}

// OrderStatusChangedEvent is emitted after a status change has been persisted.
// It carries the customer snapshot so subscribers need not reload the order.
type OrderStatusChangedEvent struct {
	OrderID     string
	OrderNumber string
	From        Status
	To          Status
	Note        string
	Actor       string
	Total       int64
	Currency    string
	Customer    Customer
	OccurredAt  time.Time
}

func (OrderStatusChangedEvent) EventName() string      { return "order.status_changed" }
func (e OrderStatusChangedEvent) PartitionKey() string { return e.OrderID }

func NewOrderStatusChangedEvent(o *Order, from Status, actor, note string) OrderStatusChangedEvent {
	return OrderStatusChangedEvent{
		OrderID:     o.ID,
		OrderNumber: o.Number,
		From:        from,
		To:          o.Status,
		Note:        note,
		Actor:       actor,
		Total:       o.Total,
		Currency:    o.Currency,
		Customer:    o.Customer,
		OccurredAt:  time.Now().UTC(),
	}
}

// OrderDeletedEvent is emitted after an administrator hard-deleted an order.
type OrderDeletedEvent struct {
	OrderID    string
	Actor      string
	OccurredAt time.Time
}

func (OrderDeletedEvent) EventName() string      { return "order.deleted" }
func (e OrderDeletedEvent) PartitionKey() string { return e.OrderID }
