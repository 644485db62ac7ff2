package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"ops-engine/internal/models"
	"ops-engine/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventPublisher publishes domain events. Order lifecycle events go to the
// order topic, inventory signals to the inventory topic.
type EventPublisher struct {
	orders    *Producer
	inventory *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(orders, inventory *Producer) *EventPublisher {
	return &EventPublisher{orders: orders, inventory: inventory}
}

// PublishOrderCreated publishes an OrderCreated event
func (ep *EventPublisher) PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error {
	return ep.orders.PublishEvent(ctx, fmt.Sprintf("order-%d", event.OrderID), event)
}

// PublishOrderStatusChanged publishes an OrderStatusChanged event
func (ep *EventPublisher) PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error {
	return ep.orders.PublishEvent(ctx, fmt.Sprintf("order-%d", event.OrderID), event)
}

// PublishLowStock publishes a LowStock signal
func (ep *EventPublisher) PublishLowStock(ctx context.Context, event *models.LowStockEvent) error {
	return ep.inventory.PublishEvent(ctx, fmt.Sprintf("product-%d", event.ProductID), event)
}

// PublishStockRestocked publishes a StockRestocked event
func (ep *EventPublisher) PublishStockRestocked(ctx context.Context, event *models.StockRestockedEvent) error {
	return ep.inventory.PublishEvent(ctx, fmt.Sprintf("product-%d", event.ProductID), event)
}

// PublishPurchaseOrderDrafted publishes a PurchaseOrderDrafted event
func (ep *EventPublisher) PublishPurchaseOrderDrafted(ctx context.Context, event *models.PurchaseOrderDraftedEvent) error {
	return ep.inventory.PublishEvent(ctx, fmt.Sprintf("po-%d", event.PurchaseOrderID), event)
}

// PublishPurchaseOrderClosed publishes a PurchaseOrderClosed event
func (ep *EventPublisher) PublishPurchaseOrderClosed(ctx context.Context, event *models.PurchaseOrderClosedEvent) error {
	return ep.inventory.PublishEvent(ctx, fmt.Sprintf("po-%d", event.PurchaseOrderID), event)
}

// EventHandler routes incoming inventory events to registered handlers
type EventHandler struct {
	onLowStock       func(context.Context, *models.LowStockEvent) error
	onStockRestocked func(context.Context, *models.StockRestockedEvent) error
	logger           *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger()}
}

// OnLowStock registers a handler for LowStock events
func (eh *EventHandler) OnLowStock(handler func(context.Context, *models.LowStockEvent) error) {
	eh.onLowStock = handler
}

// OnStockRestocked registers a handler for StockRestocked events
func (eh *EventHandler) OnStockRestocked(handler func(context.Context, *models.StockRestockedEvent) error) {
	eh.onStockRestocked = handler
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
	case models.EventTypeLowStock:
		if eh.onLowStock != nil {
			var event models.LowStockEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal LowStock event: %w", err)
			}
			return eh.onLowStock(ctx, &event)
		}

	case models.EventTypeStockRestocked:
		if eh.onStockRestocked != nil {
			var event models.StockRestockedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal StockRestocked event: %w", err)
			}
			return eh.onStockRestocked(ctx, &event)
		}

	default:
		eh.logger.Debug("Unhandled event type", zap.String("type", baseEvent.EventType))
	}

	return nil
}
