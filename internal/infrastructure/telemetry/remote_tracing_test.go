package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/cart"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type stubRemote struct {
	cartID uuid.UUID
	lines  []cart.Line
	err    error
}

func (s *stubRemote) EnsureCart(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	return s.cartID, s.err
}

func (s *stubRemote) ListItems(ctx context.Context, cartID uuid.UUID) ([]cart.Line, error) {
	return s.lines, s.err
}

func (s *stubRemote) FindItem(ctx context.Context, cartID, productID uuid.UUID) (cart.Line, bool, error) {
	for _, l := range s.lines {
		if l.ProductID == productID {
			return l, true, s.err
		}
	}
	return cart.Line{}, false, s.err
}

func (s *stubRemote) UpsertItem(ctx context.Context, cartID, productID uuid.UUID, quantity int) (uuid.UUID, error) {
	return uuid.New(), s.err
}

func (s *stubRemote) DeleteItem(ctx context.Context, cartID, productID uuid.UUID) error {
	return s.err
}

func (s *stubRemote) ClearItems(ctx context.Context, cartID uuid.UUID) error {
	return s.err
}

func TestTracedRemoteCartStore_Spans(t *testing.T) {
	recorder := installRecorder(t)
	ctx := context.Background()
	cartID := uuid.New()
	productID := uuid.New()
	stub := &stubRemote{cartID: cartID, lines: []cart.Line{{ProductID: productID, Quantity: 2}}}

	store, err := NewTracedRemoteCartStore(stub, nil)
	require.NoError(t, err)

	got, err := store.EnsureCart(ctx, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, cartID, got)

	lines, err := store.ListItems(ctx, cartID)
	require.NoError(t, err)
	assert.Len(t, lines, 1)

	_, found, err := store.FindItem(ctx, cartID, productID)
	require.NoError(t, err)
	assert.True(t, found)

	_, err = store.UpsertItem(ctx, cartID, productID, 3)
	require.NoError(t, err)
	require.NoError(t, store.DeleteItem(ctx, cartID, productID))
	require.NoError(t, store.ClearItems(ctx, cartID))

	ended := recorder.Ended()
	require.Len(t, ended, 6)
	names := make([]string, 0, len(ended))
	for _, s := range ended {
		names = append(names, s.Name())
		assert.Equal(t, codes.Unset, s.Status().Code)
	}
	assert.Equal(t, []string{
		"remote_cart.ensure_cart",
		"remote_cart.list_items",
		"remote_cart.find_item",
		"remote_cart.upsert_item",
		"remote_cart.delete_item",
		"remote_cart.clear_items",
	}, names)

	v, ok := spanAttr(ended[0], SpanAttrCartID)
	require.True(t, ok)
	assert.Equal(t, cartID.String(), v.AsString())

	v, ok = spanAttr(ended[1], SpanAttrLineCount)
	require.True(t, ok)
	assert.Equal(t, int64(1), v.AsInt64())

	v, ok = spanAttr(ended[2], SpanAttrFound)
	require.True(t, ok)
	assert.True(t, v.AsBool())
}

func TestTracedRemoteCartStore_ErrorsPassThrough(t *testing.T) {
	recorder := installRecorder(t)
	reader, provider := newTestMeter(t)
	errDown := errors.New("connection refused")

	store, err := NewTracedRemoteCartStore(&stubRemote{err: errDown}, provider.Meter("test"))
	require.NoError(t, err)

	err = store.DeleteItem(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, errDown)

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)

	m, ok := findMetric(collect(t, reader), "storefront_remote_cart_duration_seconds")
	require.True(t, ok)
	hist, ok := m.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)

	outcome, ok := hist.DataPoints[0].Attributes.Value(AttrOutcome)
	require.True(t, ok)
	assert.Equal(t, "error", outcome.AsString())
	op, ok := hist.DataPoints[0].Attributes.Value(AttrOperation)
	require.True(t, ok)
	assert.Equal(t, "delete_item", op.AsString())
}
