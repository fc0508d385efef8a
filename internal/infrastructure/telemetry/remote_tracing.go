package telemetry

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/cart"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const remoteSpanPrefix = "remote_cart"

// TracedRemoteCartStore decorates a RemoteCartStore with a span and a latency
// sample per call.
type TracedRemoteCartStore struct {
	next     cart.RemoteCartStore
	duration *Histogram
}

// NewTracedRemoteCartStore wraps next. meter may be nil to record spans only.
func NewTracedRemoteCartStore(next cart.RemoteCartStore, meter metric.Meter) (*TracedRemoteCartStore, error) {
	t := &TracedRemoteCartStore{next: next}
	if meter != nil {
		h, err := NewHistogram(meter, HistogramOpts{
			Name:        "storefront_remote_cart_duration_seconds",
			Description: "Latency of remote cart store calls",
			Unit:        "s",
			Boundaries:  DBDurationBuckets,
		})
		if err != nil {
			return nil, err
		}
		t.duration = h
	}
	return t, nil
}

func (t *TracedRemoteCartStore) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span, func(error)) {
	ctx, span := StartServiceSpan(ctx, remoteSpanPrefix, op, attrs...)
	started := time.Now()
	return ctx, span, func(err error) {
		outcome := "ok"
		if err != nil {
			outcome = "error"
			RecordError(span, err)
		}
		if t.duration != nil {
			t.duration.RecordDuration(ctx, time.Since(started),
				AttrOperation.String(op),
				AttrOutcome.String(outcome),
			)
		}
		span.End()
	}
}

// EnsureCart implements cart.RemoteCartStore
func (t *TracedRemoteCartStore) EnsureCart(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	ctx, span, end := t.start(ctx, "ensure_cart", attribute.String(SpanAttrUserID, userID.String()))
	cartID, err := t.next.EnsureCart(ctx, userID)
	if err == nil {
		span.SetAttributes(attribute.String(SpanAttrCartID, cartID.String()))
	}
	end(err)
	return cartID, err
}

// ListItems implements cart.RemoteCartStore
func (t *TracedRemoteCartStore) ListItems(ctx context.Context, cartID uuid.UUID) ([]cart.Line, error) {
	ctx, span, end := t.start(ctx, "list_items", attribute.String(SpanAttrCartID, cartID.String()))
	lines, err := t.next.ListItems(ctx, cartID)
	span.SetAttributes(attribute.Int(SpanAttrLineCount, len(lines)))
	end(err)
	return lines, err
}

// FindItem implements cart.RemoteCartStore
func (t *TracedRemoteCartStore) FindItem(ctx context.Context, cartID, productID uuid.UUID) (cart.Line, bool, error) {
	ctx, span, end := t.start(ctx, "find_item",
		attribute.String(SpanAttrCartID, cartID.String()),
		attribute.String(SpanAttrProductID, productID.String()),
	)
	line, found, err := t.next.FindItem(ctx, cartID, productID)
	span.SetAttributes(attribute.Bool(SpanAttrFound, found))
	end(err)
	return line, found, err
}

// UpsertItem implements cart.RemoteCartStore
func (t *TracedRemoteCartStore) UpsertItem(ctx context.Context, cartID, productID uuid.UUID, quantity int) (uuid.UUID, error) {
	ctx, _, end := t.start(ctx, "upsert_item",
		attribute.String(SpanAttrCartID, cartID.String()),
		attribute.String(SpanAttrProductID, productID.String()),
		attribute.Int(SpanAttrQuantity, quantity),
	)
	rowID, err := t.next.UpsertItem(ctx, cartID, productID, quantity)
	end(err)
	return rowID, err
}

// DeleteItem implements cart.RemoteCartStore
func (t *TracedRemoteCartStore) DeleteItem(ctx context.Context, cartID, productID uuid.UUID) error {
	ctx, _, end := t.start(ctx, "delete_item",
		attribute.String(SpanAttrCartID, cartID.String()),
		attribute.String(SpanAttrProductID, productID.String()),
	)
	err := t.next.DeleteItem(ctx, cartID, productID)
	end(err)
	return err
}

// ClearItems implements cart.RemoteCartStore
func (t *TracedRemoteCartStore) ClearItems(ctx context.Context, cartID uuid.UUID) error {
	ctx, _, end := t.start(ctx, "clear_items", attribute.String(SpanAttrCartID, cartID.String()))
	err := t.next.ClearItems(ctx, cartID)
	end(err)
	return err
}

var _ cart.RemoteCartStore = (*TracedRemoteCartStore)(nil)
