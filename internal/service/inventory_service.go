package service

import (
	"context"
	"time"

	"ops-engine/internal/apperr"
	"ops-engine/internal/broker"
	"ops-engine/internal/models"
	"ops-engine/internal/redisclient"
	"ops-engine/internal/store"
	"ops-engine/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// InventoryService is the inventory ledger: atomic deductions, idempotent
// restocks and edge-triggered low-stock signaling.
type InventoryService struct {
	store          *store.Store
	redis          *redisclient.Client
	eventPublisher *broker.EventPublisher
	logger         *zap.Logger
}

// NewInventoryService creates a new inventory service
func NewInventoryService(st *store.Store, redis *redisclient.Client, eventPublisher *broker.EventPublisher) *InventoryService {
	return &InventoryService{
		store:          st,
		redis:          redis,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
	}
}

// DeductRequest is one line of a deduction group
type DeductRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required,min=1"`
}

// Deduct applies an all-or-nothing deduction group. If any line would push its
// item below zero, no line is applied.
func (s *InventoryService) Deduct(ctx context.Context, reqs []DeductRequest) error {
	ctx, span := util.StartSpan(ctx, "InventoryService.Deduct")
	defer span.End()

	if len(reqs) == 0 {
		return apperr.New(apperr.KindValidation, "deduction group must contain at least one line")
	}
	lines := make([]store.StockLine, len(reqs))
	for i, req := range reqs {
		if req.Quantity < 1 {
			return apperr.New(apperr.KindValidation,
				"product %d: quantity must be at least 1", req.ProductID)
		}
		lines[i] = store.StockLine{ProductID: req.ProductID, Quantity: req.Quantity}
	}

	start := time.Now()
	crossings, err := s.store.DeductStock(ctx, lines)
	util.DeductionLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		if apperr.IsKind(err, apperr.KindInsufficientInventory) {
			util.InventoryDeductionsFailedTotal.Inc()
		}
		return err
	}

	s.publishCrossings(ctx, crossings)
	s.refreshStockCache(ctx, lines)
	return nil
}

// Restock applies an idempotent stock increment. A repeated idempotency key
// returns the prior result without moving stock; an empty key gets a generated
// one, giving up the duplicate protection the caller chose not to use.
func (s *InventoryService) Restock(ctx context.Context, productID, supplierID int64, quantity int, idempotencyKey string) (*models.InventoryItem, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.Restock")
	defer span.End()

	if quantity < 1 {
		return nil, apperr.New(apperr.KindValidation, "restock quantity must be at least 1")
	}
	if idempotencyKey == "" {
		idempotencyKey = uuid.New().String()
	}

	result, err := s.store.Restock(ctx, productID, supplierID, quantity, idempotencyKey)
	if err != nil {
		return nil, err
	}

	if !result.Applied {
		util.RestockDuplicatesTotal.Inc()
		s.logger.Info("Duplicate restock ignored",
			zap.String("idempotency_key", idempotencyKey),
			zap.Int64("product_id", productID))
		return &result.Item, nil
	}

	util.RestocksAppliedTotal.Inc()
	s.logger.Info("Stock restocked",
		zap.Int64("product_id", productID),
		zap.Int64("supplier_id", supplierID),
		zap.Int("quantity", quantity),
		zap.Int("new_quantity", result.Item.Quantity))

	if err := s.redis.RememberIdempotencyKey(ctx, idempotencyKey, 24*time.Hour); err != nil {
		s.logger.Warn("Failed to record idempotency key in cache", zap.Error(err))
	}
	if err := s.redis.CacheStockLevel(ctx, productID, result.Item.Quantity, result.Item.Threshold); err != nil {
		s.logger.Warn("Failed to refresh stock cache", zap.Error(err))
	}

	event := &models.StockRestockedEvent{
		BaseEvent:      newBaseEvent(models.EventTypeStockRestocked),
		ProductID:      productID,
		SupplierID:     supplierID,
		Quantity:       quantity,
		NewQuantity:    result.Item.Quantity,
		IdempotencyKey: idempotencyKey,
	}
	if err := s.eventPublisher.PublishStockRestocked(ctx, event); err != nil {
		s.logger.Error("Failed to publish StockRestocked event", zap.Error(err))
	}

	return &result.Item, nil
}

// GetItem retrieves the inventory row for a product
func (s *InventoryService) GetItem(ctx context.Context, productID int64) (*models.InventoryItem, error) {
	return s.store.GetInventoryItem(ctx, productID)
}

// List retrieves all inventory rows
func (s *InventoryService) List(ctx context.Context) ([]models.InventoryItem, error) {
	return s.store.ListInventory(ctx)
}

// SyncStockCache mirrors every inventory row into Redis for read-side
// consumers. Called once at startup.
func (s *InventoryService) SyncStockCache(ctx context.Context) error {
	items, err := s.store.ListInventory(ctx)
	if err != nil {
		return err
	}

	for _, item := range items {
		if err := s.redis.CacheStockLevel(ctx, item.ProductID, item.Quantity, item.Threshold); err != nil {
			s.logger.Warn("Failed to cache stock level",
				zap.Int64("product_id", item.ProductID),
				zap.Error(err))
		}
	}

	s.logger.Info("Stock cache synced", zap.Int("count", len(items)))
	return nil
}

// publishCrossings emits one LowStock event per threshold crossing collected
// inside a committed deduction.
func (s *InventoryService) publishCrossings(ctx context.Context, crossings []store.LowStockCrossing) {
	for _, c := range crossings {
		util.LowStockSignalsTotal.Inc()
		event := &models.LowStockEvent{
			BaseEvent:  newBaseEvent(models.EventTypeLowStock),
			ProductID:  c.ProductID,
			SupplierID: c.SupplierID,
			Quantity:   c.Quantity,
			Threshold:  c.Threshold,
		}
		if err := s.eventPublisher.PublishLowStock(ctx, event); err != nil {
			s.logger.Error("Failed to publish LowStock event",
				zap.Int64("product_id", c.ProductID),
				zap.Error(err))
		}
	}
}

// refreshStockCache re-reads the affected rows and updates the Redis mirror.
// Best effort; the cache is never the source of truth.
func (s *InventoryService) refreshStockCache(ctx context.Context, lines []store.StockLine) {
	for _, line := range lines {
		item, err := s.store.GetInventoryItem(ctx, line.ProductID)
		if err != nil {
			continue
		}
		if err := s.redis.CacheStockLevel(ctx, item.ProductID, item.Quantity, item.Threshold); err != nil {
			s.logger.Warn("Failed to refresh stock cache",
				zap.Int64("product_id", item.ProductID),
				zap.Error(err))
		}
	}
}
