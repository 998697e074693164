package payment

import (
	"context"

	"github.com/Zhima-Mochi/travelshop/internal/application"
	domorder "github.com/Zhima-Mochi/travelshop/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/travelshop/internal/domain/outbox"
	dompay "github.com/Zhima-Mochi/travelshop/internal/domain/payment"
	"github.com/Zhima-Mochi/travelshop/internal/observability"
)

// recorder writes ledger outcomes and mirrors them onto the order. Failure
// recording is best effort: errors are logged and never retried.
type recorder struct {
	ledger    dompay.Ledger
	orders    domorder.Repository
	publisher domoutbox.Publisher
	in        application.Instruments
}

func (r *recorder) markFailed(ctx context.Context, logger observability.Logger, entry *dompay.Entry, code string) {
	ctx = context.WithoutCancel(ctx)
	if err := entry.Fail(code); err != nil {
		logger.Warn("payment_mark_failed_skipped",
			observability.F("payment_id", entry.ID),
			observability.F("ledger_status", string(entry.Status)),
		)
		return
	}
	if err := r.ledger.Update(ctx, entry); err != nil {
		logger.Error("payment_mark_failed_error",
			observability.F("payment_id", entry.ID),
			observability.F("order_id", entry.OrderID),
			observability.F("provider", entry.Provider),
			observability.F("error", err.Error()),
		)
		return
	}

	if o, err := r.orders.Get(ctx, entry.OrderID); err == nil {
		o.MarkPaymentFailed(entry.ID, code)
		if uerr := r.orders.Update(ctx, o); uerr != nil {
			logger.Warn("order_payment_status_update_failed",
				observability.F("order_id", entry.OrderID),
				observability.F("error", uerr.Error()),
			)
		}
	}

	_ = r.in.Publish(ctx, r.publisher, dompay.NewPaymentFailedEvent(entry))
}
