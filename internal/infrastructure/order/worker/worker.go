package worker

import (
	"context"

	domorder "github.com/Zhima-Mochi/travelshop/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/travelshop/internal/domain/outbox"
	"github.com/Zhima-Mochi/travelshop/internal/observability"
	workerpresentation "github.com/Zhima-Mochi/travelshop/internal/presentation/worker"
)

// StatusNotifier reacts to a persisted status change.
type StatusNotifier interface {
	OrderStatusChanged(ctx context.Context, evt domorder.OrderStatusChangedEvent) error
}

// Worker routes order events from the bus to the notification side.
type Worker struct {
	subscriber domoutbox.Subscriber
	notifier   StatusNotifier
	log        observability.Logger
}

func New(subscriber domoutbox.Subscriber, notifier StatusNotifier, tel observability.Observability) *Worker {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Worker{
		subscriber: subscriber,
		notifier:   notifier,
		log:        tel.Logger().With(observability.F("component", "order-worker")),
	}
}

func (w *Worker) Start() {
	if w.subscriber == nil || w.notifier == nil {
		return
	}
	w.subscriber.Subscribe(domorder.OrderStatusChangedEvent{}.EventName(), w.handleStatusChanged)
}

func (w *Worker) handleStatusChanged(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(domorder.OrderStatusChangedEvent)
	if !ok {
		return nil
	}

	ctx = workerpresentation.WithEventContext(ctx, w.log, evt, observability.F("order_status", string(evt.To)))

	if err := w.notifier.OrderStatusChanged(ctx, evt); err != nil {
		w.log.Error("order_status_notify_failed",
			observability.F("order_id", evt.OrderID),
			observability.F("error", err.Error()),
		)
		return err
	}
	return nil
}
