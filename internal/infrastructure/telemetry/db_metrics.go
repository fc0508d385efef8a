package telemetry

import (
	"context"
	"database/sql"
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// DBPoolMetrics reports connection pool statistics of the remote cart database.
// Values are read from sql.DB.Stats at collection time.
type DBPoolMetrics struct {
	registration metric.Registration
}

// RegisterDBPoolMetrics registers observable pool gauges for sqlDB on meter.
func RegisterDBPoolMetrics(meter metric.Meter, sqlDB *sql.DB) (*DBPoolMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	connections, err := meter.Int64ObservableGauge(
		"db_pool_connections",
		metric.WithDescription("Number of connections in the pool by state"),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create db_pool_connections: %w", err)
	}

	maxOpen, err := meter.Int64ObservableGauge(
		"db_pool_connections_max",
		metric.WithDescription("Maximum number of open connections"),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create db_pool_connections_max: %w", err)
	}

	waits, err := meter.Int64ObservableCounter(
		"db_pool_wait_total",
		metric.WithDescription("Total number of connections waited for"),
		metric.WithUnit("{wait}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create db_pool_wait_total: %w", err)
	}

	registration, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats := sqlDB.Stats()
		o.ObserveInt64(connections, int64(stats.InUse), metric.WithAttributes(AttrDBState.String("in_use")))
		o.ObserveInt64(connections, int64(stats.Idle), metric.WithAttributes(AttrDBState.String("idle")))
		o.ObserveInt64(maxOpen, int64(stats.MaxOpenConnections))
		o.ObserveInt64(waits, stats.WaitCount)
		return nil
	}, connections, maxOpen, waits)
	if err != nil {
		return nil, fmt.Errorf("failed to register pool callback: %w", err)
	}

	return &DBPoolMetrics{registration: registration}, nil
}

// Unregister stops reporting pool statistics.
func (m *DBPoolMetrics) Unregister() error {
	return m.registration.Unregister()
}
