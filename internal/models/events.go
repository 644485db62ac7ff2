package models

import "time"

// Event types
const (
	EventTypeOrderCreated        = "ORDER_CREATED"
	EventTypeOrderStatusChanged  = "ORDER_STATUS_CHANGED"
	EventTypeLowStock            = "LOW_STOCK"
	EventTypeStockRestocked      = "STOCK_RESTOCKED"
	EventTypePurchaseOrderDraft  = "PURCHASE_ORDER_DRAFTED"
	EventTypePurchaseOrderClosed = "PURCHASE_ORDER_CLOSED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderCreatedEvent published when a new order is accepted
type OrderCreatedEvent struct {
	BaseEvent
	OrderID     int64           `json:"order_id"`
	CustomerID  int64           `json:"customer_id"`
	TotalAmount string          `json:"total_amount"`
	Items       []OrderItemData `json:"items"`
}

// OrderStatusChangedEvent published on every successful transition
type OrderStatusChangedEvent struct {
	BaseEvent
	OrderID    int64       `json:"order_id"`
	CustomerID int64       `json:"customer_id"`
	From       OrderStatus `json:"from"`
	To         OrderStatus `json:"to"`
	ActorID    int64       `json:"actor_id"`
	ActorRole  Role        `json:"actor_role"`
}

// LowStockEvent published once per below-threshold crossing of an inventory
// item. Edge-triggered: repeated deductions while already below the threshold
// do not re-publish.
type LowStockEvent struct {
	BaseEvent
	ProductID  int64 `json:"product_id"`
	SupplierID int64 `json:"supplier_id"`
	Quantity   int   `json:"quantity"`
	Threshold  int   `json:"threshold"`
}

// StockRestockedEvent published after a restock is applied (not on duplicate
// idempotency keys)
type StockRestockedEvent struct {
	BaseEvent
	ProductID      int64  `json:"product_id"`
	SupplierID     int64  `json:"supplier_id"`
	Quantity       int    `json:"quantity"`
	NewQuantity    int    `json:"new_quantity"`
	IdempotencyKey string `json:"idempotency_key"`
}

// PurchaseOrderDraftedEvent published when the reorder trigger synthesizes a
// draft purchase order
type PurchaseOrderDraftedEvent struct {
	BaseEvent
	PurchaseOrderID int64 `json:"purchase_order_id"`
	SupplierID      int64 `json:"supplier_id"`
	ProductID       int64 `json:"product_id"`
	Quantity        int   `json:"quantity"`
}

// PurchaseOrderClosedEvent published when a purchase order reaches a terminal
// state
type PurchaseOrderClosedEvent struct {
	BaseEvent
	PurchaseOrderID int64               `json:"purchase_order_id"`
	SupplierID      int64               `json:"supplier_id"`
	Status          PurchaseOrderStatus `json:"status"`
}

// OrderItemData represents item data carried in events
type OrderItemData struct {
	CatalogItemID int64    `json:"catalog_item_id"`
	ItemType      ItemType `json:"item_type"`
	Quantity      int      `json:"quantity"`
	UnitPrice     string   `json:"unit_price"`
}
