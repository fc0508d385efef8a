package event

import (
	"context"
	"encoding/json"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// AuditLogHandler writes every event it receives to the log as a JSON payload
type AuditLogHandler struct {
	logger     *zap.Logger
	eventTypes []string
}

// NewAuditLogHandler creates a handler for eventTypes; none means all events
func NewAuditLogHandler(log *zap.Logger, eventTypes ...string) *AuditLogHandler {
	return &AuditLogHandler{
		logger:     log.Named("audit"),
		eventTypes: eventTypes,
	}
}

// Handle logs the event
func (h *AuditLogHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	fields := append(logger.Fields(ctx),
		zap.String("event_type", event.EventType()),
		zap.String("event_id", event.EventID().String()),
		zap.String("aggregate_type", event.AggregateType()),
		zap.String("aggregate_id", event.AggregateID()),
		zap.Time("occurred_at", event.OccurredAt()),
		zap.ByteString("payload", payload),
	)
	h.logger.Info("Domain event", fields...)
	return nil
}

// EventTypes returns the subscribed event types
func (h *AuditLogHandler) EventTypes() []string {
	return h.eventTypes
}

var _ shared.EventHandler = (*AuditLogHandler)(nil)
