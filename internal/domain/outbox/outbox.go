package outbox

import "context"

// Event is a fact another part of the shop may react to. Names are dotted,
// e.g. "order.status_changed".
type Event interface {
	EventName() string
}

// Keyed events name the aggregate they belong to. Transports that partition
// use the key so events of one order stay in order.
type Keyed interface {
	PartitionKey() string
}

// Handler reacts to one event. A returned error is logged by the bus and
// never reaches the publisher.
type Handler func(ctx context.Context, e Event) error

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Subscriber registers handlers by event name. Implementations may accept a
// wildcard name that matches every event.
type Subscriber interface {
	Subscribe(eventName string, h Handler)
}
