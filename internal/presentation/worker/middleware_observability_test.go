package workerpresentation

import (
	"context"
	"testing"

	domorder "github.com/Zhima-Mochi/travelshop/internal/domain/order"
	"github.com/Zhima-Mochi/travelshop/internal/observability"
	"github.com/Zhima-Mochi/travelshop/internal/observability/logctx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

type fieldLogger struct {
	observability.Logger
	fields map[string]any
}

func (l *fieldLogger) With(fields ...observability.Field) observability.Logger {
	out := &fieldLogger{Logger: l.Logger, fields: map[string]any{}}
	for k, v := range l.fields {
		out.fields[k] = v
	}
	for _, f := range fields {
		out.fields[f.Key] = f.Value
	}
	return out
}

func TestWithEventContext(t *testing.T) {
	base := &fieldLogger{Logger: observability.NopLogger()}
	tid, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	sid, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: tid, SpanID: sid, TraceFlags: trace.FlagsSampled,
	}))

	ctx = WithEventContext(ctx, base, domorder.OrderStatusChangedEvent{OrderID: "o-1"}, observability.F("order_status", "paid"))

	l, ok := logctx.From(ctx).(*fieldLogger)
	require.True(t, ok)
	assert.Equal(t, "order.status_changed", l.fields["event"])
	assert.Equal(t, "o-1", l.fields["event_key"])
	assert.Equal(t, "paid", l.fields["order_status"])
	assert.Equal(t, tid.String(), l.fields["trace_id"])
	assert.NotEmpty(t, l.fields["delivery_id"])
}

func TestWithEventContextWithoutTrace(t *testing.T) {
	base := &fieldLogger{Logger: observability.NopLogger()}
	ctx := WithEventContext(context.Background(), base, domorder.OrderDeletedEvent{})

	l := logctx.From(ctx).(*fieldLogger)
	_, hasTrace := l.fields["trace_id"]
	assert.False(t, hasTrace)
	_, hasKey := l.fields["event_key"]
	assert.False(t, hasKey)
}
