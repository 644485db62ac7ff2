package worker

import (
	"context"

	"ops-engine/internal/broker"
	"ops-engine/internal/service"
	"ops-engine/internal/util"

	"go.uber.org/zap"
)

// ReorderWorker consumes inventory events and turns low-stock signals into
// draft purchase orders. It runs decoupled from the order transition path: no
// transition ever waits on it.
type ReorderWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	logger       *zap.Logger
}

// NewReorderWorker creates a new reorder worker
func NewReorderWorker(consumer *broker.Consumer, purchases *service.PurchaseService) *ReorderWorker {
	eventHandler := broker.NewEventHandler()
	eventHandler.OnLowStock(purchases.DraftReorder)

	return &ReorderWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
		logger:       util.GetLogger(),
	}
}

// Start starts the worker
func (w *ReorderWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting reorder worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *ReorderWorker) Stop() error {
	w.logger.Info("Stopping reorder worker")
	return w.consumer.Close()
}
