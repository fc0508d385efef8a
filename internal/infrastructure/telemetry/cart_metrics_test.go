package telemetry

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/cart"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartMetrics_Handle(t *testing.T) {
	reader, provider := newTestMeter(t)
	ctx := context.Background()

	m, err := NewCartMetrics(provider.Meter("test"))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{cart.EventTypeCartUpdated, cart.EventTypeCartReconciled}, m.EventTypes())

	c := cart.NewCart()
	productID := uuid.New()
	require.NoError(t, c.Set(cart.Line{ProductID: productID, Quantity: 1}))

	require.NoError(t, m.Handle(ctx, cart.NewCartUpdatedEvent("device-1", false, cart.OperationAdd, &productID, c)))
	require.NoError(t, m.Handle(ctx, cart.NewCartUpdatedEvent("device-1", false, cart.OperationAdd, &productID, c)))
	require.NoError(t, m.Handle(ctx, cart.NewCartUpdatedEvent(uuid.NewString(), true, cart.OperationClear, nil, cart.NewCart())))
	require.NoError(t, m.Handle(ctx, cart.NewCartReconciledEvent(uuid.New(), uuid.New(), cart.OutcomeImported, 3, 1)))
	require.NoError(t, m.Handle(ctx, cart.NewCartReconciledEvent(uuid.New(), uuid.New(), cart.OutcomeRemoteKept, 0, 0)))

	rm := collect(t, reader)
	assert.Equal(t, int64(2), sumValue(t, rm, "storefront_cart_mutations_total",
		AttrOperation.String(cart.OperationAdd), AttrAuthenticated.String("false")))
	assert.Equal(t, int64(1), sumValue(t, rm, "storefront_cart_mutations_total",
		AttrOperation.String(cart.OperationClear), AttrAuthenticated.String("true")))
	assert.Equal(t, int64(1), sumValue(t, rm, "storefront_cart_reconciliations_total",
		AttrOutcome.String(string(cart.OutcomeImported))))
	assert.Equal(t, int64(1), sumValue(t, rm, "storefront_cart_reconciliations_total",
		AttrOutcome.String(string(cart.OutcomeRemoteKept))))
	assert.Equal(t, int64(3), sumValue(t, rm, "storefront_cart_reconciled_lines_total", AttrLineKind.String("imported")))
	assert.Equal(t, int64(1), sumValue(t, rm, "storefront_cart_reconciled_lines_total", AttrLineKind.String("dropped")))
}

func TestNewCartMetrics_NilMeter(t *testing.T) {
	_, err := NewCartMetrics(nil)
	assert.ErrorIs(t, err, ErrMeterNil)
}
