package service

import (
	"context"
	"fmt"
	"time"

	"ops-engine/internal/apperr"
	"ops-engine/internal/broker"
	"ops-engine/internal/finance"
	"ops-engine/internal/models"
	"ops-engine/internal/store"
	"ops-engine/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PurchaseService manages supplier purchase orders: manual entry, the
// automatic reorder trigger, and delivery confirmation feeding back into the
// inventory ledger.
type PurchaseService struct {
	store           *store.Store
	inventory       *InventoryService
	eventPublisher  *broker.EventPublisher
	defaultReorderQ int
	logger          *zap.Logger
}

// NewPurchaseService creates a new purchase service
func NewPurchaseService(st *store.Store, inventory *InventoryService, eventPublisher *broker.EventPublisher, defaultReorderQuantity int) *PurchaseService {
	return &PurchaseService{
		store:           st,
		inventory:       inventory,
		eventPublisher:  eventPublisher,
		defaultReorderQ: defaultReorderQuantity,
		logger:          util.GetLogger(),
	}
}

// PurchaseOrderItemRequest is one line of a manual purchase order
type PurchaseOrderItemRequest struct {
	ProductID int64            `json:"product_id" binding:"required"`
	Quantity  int              `json:"quantity" binding:"required,min=1"`
	UnitCost  *decimal.Decimal `json:"unit_cost,omitempty"`
}

// CreatePurchaseOrderRequest represents a manual purchase order entry
type CreatePurchaseOrderRequest struct {
	SupplierID   int64                      `json:"supplier_id" binding:"required"`
	Items        []PurchaseOrderItemRequest `json:"items" binding:"required,min=1"`
	DeliveryDate *time.Time                 `json:"delivery_date,omitempty"`
}

// CreatePurchaseOrder validates and persists a manually entered purchase
// order. Unit costs default to the inventory ledger's recorded cost.
func (s *PurchaseService) CreatePurchaseOrder(ctx context.Context, req *CreatePurchaseOrderRequest) (*models.PurchaseOrder, []models.PurchaseOrderItem, error) {
	ctx, span := util.StartSpan(ctx, "PurchaseService.CreatePurchaseOrder")
	defer span.End()

	if len(req.Items) == 0 {
		return nil, nil, apperr.New(apperr.KindValidation, "purchase order must contain at least one item")
	}
	if _, err := s.store.GetSupplierByID(ctx, req.SupplierID); err != nil {
		return nil, nil, err
	}

	items := make([]models.PurchaseOrderItem, 0, len(req.Items))
	lines := make([]finance.Line, 0, len(req.Items))
	for _, item := range req.Items {
		if item.Quantity < 1 {
			return nil, nil, apperr.New(apperr.KindValidation,
				"product %d: quantity must be at least 1", item.ProductID)
		}

		cost := decimal.Zero
		if item.UnitCost != nil {
			cost = *item.UnitCost
		} else {
			inv, err := s.store.GetInventoryItem(ctx, item.ProductID)
			if err != nil {
				return nil, nil, err
			}
			cost = inv.UnitCost
		}
		if cost.IsNegative() {
			return nil, nil, apperr.New(apperr.KindValidation,
				"product %d: unit cost must not be negative", item.ProductID)
		}

		items = append(items, models.PurchaseOrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitCost:  cost,
		})
		lines = append(lines, finance.Line{Quantity: item.Quantity, UnitPrice: cost})
	}

	totals := finance.Compute(lines, decimal.Zero, decimal.Zero)

	po := &models.PurchaseOrder{
		SupplierID:   req.SupplierID,
		Status:       models.PurchaseOrderStatusPending,
		DeliveryDate: req.DeliveryDate,
		TotalAmount:  totals.Total,
	}
	if err := s.store.CreatePurchaseOrder(ctx, po, items); err != nil {
		return nil, nil, fmt.Errorf("failed to create purchase order: %w", err)
	}

	s.logger.Info("Purchase order created",
		zap.Int64("purchase_order_id", po.ID),
		zap.Int64("supplier_id", po.SupplierID))
	return po, items, nil
}

// DraftReorder synthesizes a pending purchase order from a low-stock signal.
// It never auto-confirms; an employee or supplier confirms before the order
// can affect inventory. Repeated signals for an item already covered by an
// open auto-generated order are skipped.
func (s *PurchaseService) DraftReorder(ctx context.Context, event *models.LowStockEvent) error {
	ctx, span := util.StartSpan(ctx, "PurchaseService.DraftReorder")
	defer span.End()

	processed, err := s.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		s.logger.Info("Event already processed", zap.String("event_id", event.EventID))
		return nil
	}

	open, err := s.store.HasOpenAutoReorder(ctx, event.ProductID, event.SupplierID)
	if err != nil {
		return err
	}
	if open {
		s.logger.Info("Open reorder already covers product, skipping",
			zap.Int64("product_id", event.ProductID),
			zap.Int64("supplier_id", event.SupplierID))
		return s.store.MarkEventProcessed(ctx, event.EventID, event.EventType)
	}

	inv, err := s.store.GetInventoryItem(ctx, event.ProductID)
	if err != nil {
		return err
	}

	quantity := s.defaultReorderQ
	items := []models.PurchaseOrderItem{{
		ProductID: event.ProductID,
		Quantity:  quantity,
		UnitCost:  inv.UnitCost,
	}}
	totals := finance.Compute(
		[]finance.Line{{Quantity: quantity, UnitPrice: inv.UnitCost}},
		decimal.Zero, decimal.Zero)

	po := &models.PurchaseOrder{
		SupplierID:    event.SupplierID,
		Status:        models.PurchaseOrderStatusPending,
		TotalAmount:   totals.Total,
		AutoGenerated: true,
	}
	if err := s.store.CreatePurchaseOrder(ctx, po, items); err != nil {
		return fmt.Errorf("failed to create reorder draft: %w", err)
	}

	util.ReorderDraftsTotal.Inc()
	s.logger.Info("Reorder draft created",
		zap.Int64("purchase_order_id", po.ID),
		zap.Int64("product_id", event.ProductID),
		zap.Int64("supplier_id", event.SupplierID),
		zap.Int("quantity", quantity))

	drafted := &models.PurchaseOrderDraftedEvent{
		BaseEvent:       newBaseEvent(models.EventTypePurchaseOrderDraft),
		PurchaseOrderID: po.ID,
		SupplierID:      po.SupplierID,
		ProductID:       event.ProductID,
		Quantity:        quantity,
	}
	if err := s.eventPublisher.PublishPurchaseOrderDrafted(ctx, drafted); err != nil {
		s.logger.Error("Failed to publish PurchaseOrderDrafted event", zap.Error(err))
	}

	return s.store.MarkEventProcessed(ctx, event.EventID, event.EventType)
}

// Confirm moves a pending purchase order to confirmed.
func (s *PurchaseService) Confirm(ctx context.Context, purchaseOrderID int64) (*models.PurchaseOrder, error) {
	ctx, span := util.StartSpan(ctx, "PurchaseService.Confirm")
	defer span.End()

	po, _, err := s.store.SetPurchaseOrderStatusTx(ctx, purchaseOrderID, models.PurchaseOrderStatusConfirmed, nil)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Purchase order confirmed", zap.Int64("purchase_order_id", po.ID))
	return po, nil
}

// MarkDelivered moves a confirmed purchase order to delivered and restocks
// every line item. The restock idempotency key is derived from the purchase
// order id, so a duplicate delivery confirmation cannot double-apply stock.
func (s *PurchaseService) MarkDelivered(ctx context.Context, purchaseOrderID int64, deliveryDate *time.Time) (*models.PurchaseOrder, error) {
	ctx, span := util.StartSpan(ctx, "PurchaseService.MarkDelivered")
	defer span.End()

	if deliveryDate == nil {
		now := time.Now()
		deliveryDate = &now
	}

	po, items, err := s.store.SetPurchaseOrderStatusTx(ctx, purchaseOrderID, models.PurchaseOrderStatusDelivered, deliveryDate)
	if err != nil {
		return nil, err
	}

	for _, item := range items {
		key := fmt.Sprintf("po-%d-product-%d", po.ID, item.ProductID)
		if _, err := s.inventory.Restock(ctx, item.ProductID, po.SupplierID, item.Quantity, key); err != nil {
			s.logger.Error("Failed to restock delivered item",
				zap.Int64("purchase_order_id", po.ID),
				zap.Int64("product_id", item.ProductID),
				zap.Error(err))
			return nil, err
		}
	}

	s.publishClosed(ctx, po)
	return po, nil
}

// Cancel moves a purchase order to cancelled.
func (s *PurchaseService) Cancel(ctx context.Context, purchaseOrderID int64) (*models.PurchaseOrder, error) {
	ctx, span := util.StartSpan(ctx, "PurchaseService.Cancel")
	defer span.End()

	po, _, err := s.store.SetPurchaseOrderStatusTx(ctx, purchaseOrderID, models.PurchaseOrderStatusCancelled, nil)
	if err != nil {
		return nil, err
	}

	s.publishClosed(ctx, po)
	return po, nil
}

// GetPurchaseOrder retrieves a purchase order with its items
func (s *PurchaseService) GetPurchaseOrder(ctx context.Context, id int64) (*models.PurchaseOrder, []models.PurchaseOrderItem, error) {
	return s.store.GetPurchaseOrderByID(ctx, id)
}

// ListSupplierPurchaseOrders retrieves purchase orders for a supplier
func (s *PurchaseService) ListSupplierPurchaseOrders(ctx context.Context, supplierID int64) ([]models.PurchaseOrder, error) {
	return s.store.GetPurchaseOrdersBySupplier(ctx, supplierID)
}

func (s *PurchaseService) publishClosed(ctx context.Context, po *models.PurchaseOrder) {
	event := &models.PurchaseOrderClosedEvent{
		BaseEvent:       newBaseEvent(models.EventTypePurchaseOrderClosed),
		PurchaseOrderID: po.ID,
		SupplierID:      po.SupplierID,
		Status:          po.Status,
	}
	if err := s.eventPublisher.PublishPurchaseOrderClosed(ctx, event); err != nil {
		s.logger.Error("Failed to publish PurchaseOrderClosed event", zap.Error(err))
	}
}
