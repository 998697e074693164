package workerpresentation

import (
	"context"

	domoutbox "github.com/Zhima-Mochi/travelshop/internal/domain/outbox"
	"github.com/Zhima-Mochi/travelshop/internal/observability"
	"github.com/Zhima-Mochi/travelshop/internal/observability/logctx"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// WithEventContext attaches the logger a bus handler writes with. Every line
// carries a fresh delivery_id, the event name, the aggregate key when the
// event has one and the trace ids of the publishing request.
func WithEventContext(ctx context.Context, base observability.Logger, e domoutbox.Event, extra ...observability.Field) context.Context {
	if base == nil {
		base = observability.NopLogger()
	}

	fields := make([]observability.Field, 0, 5+len(extra))
	fields = append(fields,
		observability.F("delivery_id", uuid.NewString()),
		observability.F("event", e.EventName()),
	)
	if k, ok := e.(domoutbox.Keyed); ok && k.PartitionKey() != "" {
		fields = append(fields, observability.F("event_key", k.PartitionKey()))
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			observability.F("trace_id", sc.TraceID().String()),
			observability.F("span_id", sc.SpanID().String()),
		)
	}
	for _, f := range extra {
		if f.Key != "" {
			fields = append(fields, f)
		}
	}
	return logctx.With(ctx, base.With(fields...))
}
