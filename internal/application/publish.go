package application

import (
	"context"
	"time"

	domoutbox "github.com/Zhima-Mochi/travelshop/internal/domain/outbox"
	"github.com/Zhima-Mochi/travelshop/internal/observability"
)

const (
	publishPeer    = "outbox"
	publishTimeout = 300 * time.Millisecond
)

// Publish hands e to the publisher with a short timeout and records the
// attempt as an external call. A nil publisher is a no-op. Failures are
// logged and returned; callers treat them as best-effort.
func (in Instruments) Publish(ctx context.Context, publisher domoutbox.Publisher, e domoutbox.Event) error {
	if publisher == nil || e == nil {
		return nil
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	start := time.Now()
	err := publisher.Publish(pubCtx, e)
	outcome := "success"
	if err != nil {
		outcome = "error"
	} else if pubCtx.Err() != nil {
		outcome = "canceled"
		err = pubCtx.Err()
	}
	cancel()

	in.External(publishPeer, e.EventName(), outcome, start)
	if err != nil {
		in.Logger(ctx).Warn("event_publish_failed",
			observability.F("event", e.EventName()),
			observability.F("error", err.Error()),
		)
	}
	return err
}
