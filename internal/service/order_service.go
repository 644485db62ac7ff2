package service

import (
	"context"
	"fmt"
	"time"

	"ops-engine/internal/apperr"
	"ops-engine/internal/broker"
	"ops-engine/internal/finance"
	"ops-engine/internal/models"
	"ops-engine/internal/redisclient"
	"ops-engine/internal/store"
	"ops-engine/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderService owns the order state machine. Every status transition runs as
// one atomic unit: the inventory deduction group, task spawning and the status
// write either all commit or none do.
type OrderService struct {
	store          *store.Store
	redis          *redisclient.Client
	eventPublisher *broker.EventPublisher
	inventory      *InventoryService
	defaultTaxRate decimal.Decimal
	lockTTL        time.Duration
	logger         *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(
	st *store.Store,
	redis *redisclient.Client,
	eventPublisher *broker.EventPublisher,
	inventory *InventoryService,
	defaultTaxRate decimal.Decimal,
	lockTTL time.Duration,
) *OrderService {
	return &OrderService{
		store:          st,
		redis:          redis,
		eventPublisher: eventPublisher,
		inventory:      inventory,
		defaultTaxRate: defaultTaxRate,
		lockTTL:        lockTTL,
		logger:         util.GetLogger(),
	}
}

// CreateOrderRequest represents a request to create an order
type CreateOrderRequest struct {
	CustomerID     int64              `json:"customer_id" binding:"required"`
	Items          []OrderItemRequest `json:"items" binding:"required,min=1"`
	DeliveryOption string             `json:"delivery_option"`
	TaxRatePercent *decimal.Decimal   `json:"tax_rate_percent,omitempty"`
	DiscountAmount *decimal.Decimal   `json:"discount_amount,omitempty"`
}

// OrderItemRequest represents an item in an order
type OrderItemRequest struct {
	CatalogItemID int64 `json:"catalog_item_id" binding:"required"`
	Quantity      int   `json:"quantity" binding:"required,min=1"`
}

// CreateOrder validates the request, snapshots catalog prices into line items,
// derives the totals through the finance calculator and persists the order as
// pending.
func (s *OrderService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*models.Order, []models.OrderItem, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CreateOrder")
	defer span.End()

	if len(req.Items) == 0 {
		return nil, nil, apperr.New(apperr.KindValidation, "order must contain at least one item")
	}
	for _, item := range req.Items {
		if item.Quantity < 1 {
			return nil, nil, apperr.New(apperr.KindValidation,
				"catalog item %d: quantity must be at least 1", item.CatalogItemID)
		}
	}

	delivery := models.DeliveryOption(req.DeliveryOption)
	if req.DeliveryOption == "" {
		delivery = models.DeliveryStandard
	}
	if !delivery.IsValid() {
		return nil, nil, apperr.New(apperr.KindValidation, "unknown delivery option %q", req.DeliveryOption)
	}

	taxRate := s.defaultTaxRate
	if req.TaxRatePercent != nil {
		taxRate = *req.TaxRatePercent
	}
	if taxRate.IsNegative() {
		return nil, nil, apperr.New(apperr.KindValidation, "tax rate must not be negative")
	}
	discount := decimal.Zero
	if req.DiscountAmount != nil {
		discount = *req.DiscountAmount
	}
	if discount.IsNegative() {
		return nil, nil, apperr.New(apperr.KindValidation, "discount must not be negative")
	}

	catalog, err := s.resolveCatalogItems(ctx, req.Items)
	if err != nil {
		return nil, nil, err
	}

	items := make([]models.OrderItem, 0, len(req.Items))
	lines := make([]finance.Line, 0, len(req.Items))
	for _, item := range req.Items {
		entry := catalog[item.CatalogItemID]
		if entry.Price.IsNegative() {
			return nil, nil, apperr.New(apperr.KindValidation,
				"catalog item %d: negative unit price", item.CatalogItemID)
		}
		items = append(items, models.OrderItem{
			CatalogItemID: entry.ID,
			ItemType:      entry.Type,
			Name:          entry.Name,
			Quantity:      item.Quantity,
			UnitPrice:     entry.Price,
		})
		lines = append(lines, finance.Line{Quantity: item.Quantity, UnitPrice: entry.Price})
	}

	totals := finance.Compute(lines, taxRate, discount)

	order := &models.Order{
		CustomerID:     req.CustomerID,
		Status:         models.OrderStatusPending,
		TaxRatePercent: taxRate,
		DiscountAmount: discount,
		Subtotal:       totals.Subtotal,
		TaxAmount:      totals.Tax,
		TotalAmount:    totals.Total,
		DeliveryOption: delivery,
	}

	if err := s.store.CreateOrder(ctx, order, items); err != nil {
		return nil, nil, fmt.Errorf("failed to create order: %w", err)
	}

	util.OrdersCreatedTotal.Inc()
	s.logger.Info("Order created",
		zap.Int64("order_id", order.ID),
		zap.String("total", order.TotalAmount.StringFixed(2)))

	event := &models.OrderCreatedEvent{
		BaseEvent:   newBaseEvent(models.EventTypeOrderCreated),
		OrderID:     order.ID,
		CustomerID:  order.CustomerID,
		TotalAmount: order.TotalAmount.StringFixed(2),
		Items:       toEventItems(items),
	}
	if err := s.eventPublisher.PublishOrderCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderCreated event", zap.Error(err))
	}

	return order, items, nil
}

// Transition moves an order to the target status under the transition table.
// Re-issuing the current status is a no-op success. A supplied expectedVersion
// turns a concurrent modification into a ConflictError instead of a silent
// retry on the newer state.
func (s *OrderService) Transition(ctx context.Context, orderID int64, target models.OrderStatus, actor models.Actor, expectedVersion *int64) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.Transition")
	defer span.End()

	if !target.IsValid() {
		return nil, apperr.New(apperr.KindValidation, "unknown order status %q", target)
	}

	unlock, err := s.lockOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	// Idempotent re-issue of the current status.
	if order.Status == target {
		return order, nil
	}

	if err := s.authorize(actor, order.Status, target); err != nil {
		util.OrderTransitionsFailedTotal.WithLabelValues("permission").Inc()
		return nil, err
	}

	if !order.Status.CanTransitionTo(target) {
		util.OrderTransitionsFailedTotal.WithLabelValues("invalid_transition").Inc()
		return nil, apperr.New(apperr.KindInvalidTransition,
			"order %d: cannot move from %s to %s", orderID, order.Status, target)
	}

	var (
		updated *models.Order
		changed bool
	)
	switch target {
	case models.OrderStatusProcessing:
		updated, changed, err = s.beginProcessing(ctx, order, actor, expectedVersion)
	case models.OrderStatusCompleted:
		updated, changed, err = s.complete(ctx, order, expectedVersion)
	case models.OrderStatusCancelled:
		updated, changed, err = s.cancel(ctx, order, expectedVersion)
	default:
		err = apperr.New(apperr.KindInvalidTransition,
			"order %d: cannot move from %s to %s", orderID, order.Status, target)
	}
	if err != nil {
		util.OrderTransitionsFailedTotal.WithLabelValues(string(apperr.KindOf(err))).Inc()
		return nil, err
	}
	if !changed {
		// Lost a race with an identical transition; treat as the no-op case.
		return updated, nil
	}

	util.OrderTransitionsTotal.WithLabelValues(string(target)).Inc()

	event := &models.OrderStatusChangedEvent{
		BaseEvent:  newBaseEvent(models.EventTypeOrderStatusChanged),
		OrderID:    updated.ID,
		CustomerID: updated.CustomerID,
		From:       order.Status,
		To:         updated.Status,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
	}
	if err := s.eventPublisher.PublishOrderStatusChanged(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderStatusChanged event", zap.Error(err))
	}

	return updated, nil
}

// GetOrder retrieves an order with its line items
func (s *OrderService) GetOrder(ctx context.Context, orderID int64) (*models.Order, []models.OrderItem, error) {
	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}

	items, err := s.store.GetOrderItems(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}

	return order, items, nil
}

// ListCustomerOrders retrieves a customer's orders
func (s *OrderService) ListCustomerOrders(ctx context.Context, customerID int64) ([]models.Order, error) {
	return s.store.GetOrdersByCustomer(ctx, customerID)
}

func (s *OrderService) beginProcessing(ctx context.Context, order *models.Order, actor models.Actor, expectedVersion *int64) (*models.Order, bool, error) {
	items, err := s.store.GetOrderItems(ctx, order.ID)
	if err != nil {
		return nil, false, err
	}

	lines := stockLines(items)
	tasks := PlanTasksForOrder(order, items, nil)

	start := time.Now()
	updated, crossings, changed, err := s.store.BeginProcessingTx(ctx, order.ID, expectedVersion, lines, tasks)
	util.DeductionLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		if apperr.IsKind(err, apperr.KindInsufficientInventory) {
			util.InventoryDeductionsFailedTotal.Inc()
		}
		return nil, false, err
	}

	if changed {
		util.TasksSpawnedTotal.Add(float64(len(tasks)))
		s.logger.Info("Order moved to processing",
			zap.Int64("order_id", order.ID),
			zap.Int64("actor_id", actor.ID),
			zap.Int("tasks", len(tasks)),
			zap.Int("stock_lines", len(lines)))

		s.inventory.publishCrossings(ctx, crossings)
		s.inventory.refreshStockCache(ctx, lines)
	}

	return updated, changed, nil
}

func (s *OrderService) complete(ctx context.Context, order *models.Order, expectedVersion *int64) (*models.Order, bool, error) {
	updated, changed, err := s.store.CompleteOrderTx(ctx, order.ID, expectedVersion)
	if err != nil {
		return nil, false, err
	}
	if changed {
		s.logger.Info("Order completed", zap.Int64("order_id", order.ID))
	}
	return updated, changed, nil
}

func (s *OrderService) cancel(ctx context.Context, order *models.Order, expectedVersion *int64) (*models.Order, bool, error) {
	// The store derives the compensation lines under the row lock, so a
	// cancel that raced with pending→processing still credits the deduction.
	updated, restored, changed, err := s.store.CancelOrderTx(ctx, order.ID, expectedVersion)
	if err != nil {
		return nil, false, err
	}
	if changed {
		s.logger.Info("Order cancelled",
			zap.Int64("order_id", order.ID),
			zap.String("from", string(order.Status)))
		s.inventory.refreshStockCache(ctx, restored)
	}
	return updated, changed, nil
}

// authorize enforces the role guard: only employees and admins move orders
// past pending. Customers may still cancel an order that has not started
// processing.
func (s *OrderService) authorize(actor models.Actor, current, target models.OrderStatus) error {
	if actor.Role.CanFulfill() {
		return nil
	}
	if target == models.OrderStatusCancelled && current == models.OrderStatusPending {
		return nil
	}
	return apperr.New(apperr.KindPermission,
		"role %s may not move an order from %s to %s", actor.Role, current, target)
}

// lockOrder takes the best-effort per-order lock. A busy lock means another
// transition on the same order is in flight.
func (s *OrderService) lockOrder(ctx context.Context, orderID int64) (func(), error) {
	entity := fmt.Sprintf("order:%d", orderID)
	token, err := s.redis.AcquireEntityLock(ctx, entity, s.lockTTL)
	if err != nil {
		// Redis being down never blocks the engine; the database row locks
		// still serialize.
		s.logger.Warn("Entity lock unavailable", zap.String("entity", entity), zap.Error(err))
		return func() {}, nil
	}
	if token == "" {
		return nil, apperr.New(apperr.KindConflict, "order %d: another operation in flight", orderID)
	}
	return func() {
		if err := s.redis.ReleaseEntityLock(ctx, entity, token); err != nil {
			s.logger.Warn("Failed to release entity lock", zap.String("entity", entity), zap.Error(err))
		}
	}, nil
}

func (s *OrderService) resolveCatalogItems(ctx context.Context, items []OrderItemRequest) (map[int64]*models.CatalogItem, error) {
	ids := make([]int64, len(items))
	for i, item := range items {
		ids[i] = item.CatalogItemID
	}

	found, err := s.store.GetCatalogItemsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	catalog := make(map[int64]*models.CatalogItem, len(found))
	for i := range found {
		catalog[found[i].ID] = &found[i]
	}
	for _, item := range items {
		if _, ok := catalog[item.CatalogItemID]; !ok {
			return nil, apperr.New(apperr.KindValidation, "catalog item %d does not exist", item.CatalogItemID)
		}
	}

	return catalog, nil
}

// stockLines extracts the deduction group from an order's line items. Service
// items consume no stock.
func stockLines(items []models.OrderItem) []store.StockLine {
	var lines []store.StockLine
	for _, item := range items {
		if item.ItemType != models.ItemTypeProduct {
			continue
		}
		lines = append(lines, store.StockLine{ProductID: item.CatalogItemID, Quantity: item.Quantity})
	}
	return lines
}

func toEventItems(items []models.OrderItem) []models.OrderItemData {
	data := make([]models.OrderItemData, len(items))
	for i, item := range items {
		data[i] = models.OrderItemData{
			CatalogItemID: item.CatalogItemID,
			ItemType:      item.ItemType,
			Quantity:      item.Quantity,
			UnitPrice:     item.UnitPrice.StringFixed(2),
		}
	}
	return data
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}
