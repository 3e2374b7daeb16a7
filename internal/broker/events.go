package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"inventory-service/internal/models"
	"inventory-service/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventPublisher handles publishing record events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishRecordEvent publishes a record event keyed by resource and record,
// so all events of one record land on the same partition in order.
func (ep *EventPublisher) PublishRecordEvent(ctx context.Context, event *models.RecordEvent) error {
	key := fmt.Sprintf("%s-%s", event.Resource, event.RecordID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// RecordHandler is called for every record event of a resource
type RecordHandler func(ctx context.Context, event *models.RecordEvent) error

// EventHandler handles incoming events
type EventHandler struct {
	onRecordChanged map[string][]RecordHandler
	logger          *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{
		onRecordChanged: make(map[string][]RecordHandler),
		logger:          util.GetLogger(),
	}
}

// OnRecordChanged registers a handler for events of resource
func (eh *EventHandler) OnRecordChanged(resource string, handler RecordHandler) {
	eh.onRecordChanged[resource] = append(eh.onRecordChanged[resource], handler)
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	eh.logger.Debug("Handling event",
		zap.String("type", baseEvent.EventType),
		zap.String("id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeRecordCreated, models.EventTypeRecordUpdated, models.EventTypeRecordDeleted:
		var event models.RecordEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			return fmt.Errorf("failed to unmarshal record event: %w", err)
		}
		for _, handler := range eh.onRecordChanged[event.Resource] {
			if err := handler(ctx, &event); err != nil {
				return err
			}
		}

	default:
		eh.logger.Warn("Unhandled event type", zap.String("type", baseEvent.EventType))
	}

	return nil
}
