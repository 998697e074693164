package logctx

import (
	"context"
	"testing"

	"github.com/Zhima-Mochi/travelshop/internal/observability"
	"github.com/stretchr/testify/assert"
)

type recordingLogger struct {
	observability.Logger
	fields []observability.Field
}

func (l *recordingLogger) With(fields ...observability.Field) observability.Logger {
	return &recordingLogger{Logger: l.Logger, fields: append(append([]observability.Field{}, l.fields...), fields...)}
}

func TestEnrich(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, ctx, Enrich(ctx, observability.F("user_id", "u1")))

	base := &recordingLogger{Logger: observability.NopLogger()}
	ctx = With(ctx, base)
	ctx = Enrich(ctx, observability.F("user_id", "u1"))

	got, ok := From(ctx).(*recordingLogger)
	assert.True(t, ok)
	assert.Equal(t, []observability.Field{observability.F("user_id", "u1")}, got.fields)
	assert.Empty(t, base.fields)
}

func TestFromOr(t *testing.T) {
	fallback := observability.NopLogger()
	assert.Equal(t, fallback, FromOr(context.Background(), fallback))
}
