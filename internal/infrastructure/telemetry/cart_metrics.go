package telemetry

import (
	"context"
	"strconv"

	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/shared"
	"go.opentelemetry.io/otel/metric"
)

// CartMetrics turns cart domain events into counters. It subscribes to the event bus.
type CartMetrics struct {
	mutations       *Counter
	reconciliations *Counter
	reconciledLines *Counter
}

// NewCartMetrics creates the cart counters on meter.
func NewCartMetrics(meter metric.Meter) (*CartMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	mutations, err := NewCounter(meter,
		"storefront_cart_mutations_total",
		"Cart mutations persisted, by operation and session kind",
		"{mutation}",
	)
	if err != nil {
		return nil, err
	}

	reconciliations, err := NewCounter(meter,
		"storefront_cart_reconciliations_total",
		"Sign-in reconciliations, by outcome",
		"{reconciliation}",
	)
	if err != nil {
		return nil, err
	}

	reconciledLines, err := NewCounter(meter,
		"storefront_cart_reconciled_lines_total",
		"Anonymous cart lines imported or dropped during reconciliation",
		"{line}",
	)
	if err != nil {
		return nil, err
	}

	return &CartMetrics{
		mutations:       mutations,
		reconciliations: reconciliations,
		reconciledLines: reconciledLines,
	}, nil
}

// Handle records the event
func (m *CartMetrics) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *cart.CartUpdatedEvent:
		m.mutations.Inc(ctx,
			AttrOperation.String(e.Operation),
			AttrAuthenticated.String(strconv.FormatBool(e.Authenticated)),
		)
	case *cart.CartReconciledEvent:
		m.reconciliations.Inc(ctx, AttrOutcome.String(string(e.Outcome)))
		if e.ImportedLines > 0 {
			m.reconciledLines.Add(ctx, int64(e.ImportedLines), AttrLineKind.String("imported"))
		}
		if e.DroppedLines > 0 {
			m.reconciledLines.Add(ctx, int64(e.DroppedLines), AttrLineKind.String("dropped"))
		}
	}
	return nil
}

// EventTypes returns the cart event types
func (m *CartMetrics) EventTypes() []string {
	return []string{cart.EventTypeCartUpdated, cart.EventTypeCartReconciled}
}

var _ shared.EventHandler = (*CartMetrics)(nil)
