package messaging

import (
	"context"

	"go.uber.org/zap"

	"github.com/Widerk/shapesbonding/domain/events"
)

// LogPublisher writes events to the log; used when no event bus is configured
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher creates a log-only publisher
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, domainEvents []events.DomainEvent) error {
	for _, e := range domainEvents {
		p.logger.Info("Domain event",
			zap.String("event_id", e.GetEventID()),
			zap.String("event_type", e.GetEventType()),
			zap.String("aggregate_id", e.GetAggregateID()),
		)
	}
	return nil
}
