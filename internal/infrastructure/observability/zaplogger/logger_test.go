package zaplogger

import (
	"errors"
	"testing"

	"github.com/Zhima-Mochi/travelshop/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWrapCarriesFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := Wrap(zap.New(core)).With(observability.F("service", "order-service"))

	l.Info("use_case_done", observability.F("outcome", "success"), observability.F("error", errors.New("boom")))
	l.Warn("event_publish_failed")

	entries := logs.All()
	require.Len(t, entries, 2)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "order-service", ctx["service"])
	assert.Equal(t, "success", ctx["outcome"])
	assert.Equal(t, "boom", ctx["error"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(Options{Level: "loud"})
	require.Error(t, err)
}

func TestNewWritesLogFile(t *testing.T) {
	path := t.TempDir() + "/logs/app.log"
	l, err := New(Options{Level: "debug", File: path}, observability.F("env", "test"))
	require.NoError(t, err)
	l.Debug("hello")
	Sync(l)
	assert.FileExists(t, path)
}
