package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func spanContext(t *testing.T) context.Context {
	t.Helper()
	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	return trace.ContextWithSpanContext(context.Background(), sc)
}

func TestFromContext(t *testing.T) {
	t.Run("returns attached logger", func(t *testing.T) {
		l := zap.NewExample()
		assert.Same(t, l, FromContext(WithContext(context.Background(), l)))
	})

	t.Run("falls back to a no-op logger", func(t *testing.T) {
		assert.NotNil(t, FromContext(context.Background()))
	})
}

func TestContextValues(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithDeviceID(ctx, "device-9")
	ctx = WithUserID(ctx, "user-3")

	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Equal(t, "device-9", GetDeviceID(ctx))
	assert.Equal(t, "user-3", GetUserID(ctx))
	assert.Empty(t, GetTraceID(ctx))
}

func TestFields(t *testing.T) {
	t.Run("empty context has no fields", func(t *testing.T) {
		assert.Empty(t, Fields(context.Background()))
	})

	t.Run("collects trace and session fields", func(t *testing.T) {
		ctx := WithDeviceID(WithRequestID(spanContext(t), "req-1"), "device-9")

		enc := zapcore.NewMapObjectEncoder()
		for _, f := range Fields(ctx) {
			f.AddTo(enc)
		}

		assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", enc.Fields["trace_id"])
		assert.Equal(t, "00f067aa0ba902b7", enc.Fields["span_id"])
		assert.Equal(t, "req-1", enc.Fields["request_id"])
		assert.Equal(t, "device-9", enc.Fields["device_id"])
		assert.NotContains(t, enc.Fields, "user_id")
		assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", GetTraceID(ctx))
	})
}

func TestContextLogger(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	ctx := WithContext(spanContext(t), zap.New(core))
	ctx = WithDeviceID(ctx, "device-9")

	L(ctx).With(zap.String("product_id", "p-1")).Warn("line dropped")

	entries := recorded.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "device-9", fields["device_id"])
	assert.Equal(t, "p-1", fields["product_id"])
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", fields["trace_id"])
}

func TestWithLogger(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)

	WithLogger(WithUserID(context.Background(), "user-3"), zap.New(core)).Info("signed in")

	require.Equal(t, 1, recorded.Len())
	assert.Equal(t, "user-3", recorded.All()[0].ContextMap()["user_id"])
}
