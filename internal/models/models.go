package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ItemType distinguishes stocked products from service line items.
type ItemType string

const (
	ItemTypeProduct ItemType = "product"
	ItemTypeService ItemType = "service"
)

// IsValid reports whether the item type is a known value.
func (t ItemType) IsValid() bool {
	return t == ItemTypeProduct || t == ItemTypeService
}

// CatalogItem represents a sellable product or service
type CatalogItem struct {
	ID        int64           `db:"id" json:"id"`
	SKU       string          `db:"sku" json:"sku"`
	Name      string          `db:"name" json:"name"`
	Type      ItemType        `db:"type" json:"type"`
	Price     decimal.Decimal `db:"price" json:"price"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// Supplier represents a restocking source
type Supplier struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	Phone     string    `db:"phone" json:"phone,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Order represents a customer order. Monetary fields are derived through the
// finance calculator and never hand-edited.
type Order struct {
	ID             int64           `db:"id" json:"id"`
	CustomerID     int64           `db:"customer_id" json:"customer_id"`
	Status         OrderStatus     `db:"status" json:"status"`
	TaxRatePercent decimal.Decimal `db:"tax_rate_percent" json:"tax_rate_percent"`
	DiscountAmount decimal.Decimal `db:"discount_amount" json:"discount_amount"`
	Subtotal       decimal.Decimal `db:"subtotal" json:"subtotal"`
	TaxAmount      decimal.Decimal `db:"tax_amount" json:"tax_amount"`
	TotalAmount    decimal.Decimal `db:"total_amount" json:"total_amount"`
	DeliveryOption DeliveryOption  `db:"delivery_option" json:"delivery_option"`
	Version        int64           `db:"version" json:"version"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// OrderItem is a line item embedded in an order. Quantity and unit price are
// snapshots taken at order creation and do not follow later catalog changes.
type OrderItem struct {
	ID            int64           `db:"id" json:"id"`
	OrderID       int64           `db:"order_id" json:"order_id"`
	CatalogItemID int64           `db:"catalog_item_id" json:"catalog_item_id"`
	ItemType      ItemType        `db:"item_type" json:"item_type"`
	Name          string          `db:"name" json:"name"`
	Quantity      int             `db:"quantity" json:"quantity"`
	UnitPrice     decimal.Decimal `db:"unit_price" json:"unit_price"`
}

// Task is a fulfillment task attached to an order. The order reference is a
// lookup only; a task never drives the order lifecycle by itself.
type Task struct {
	ID         int64      `db:"id" json:"id"`
	OrderID    int64      `db:"order_id" json:"order_id"`
	Title      string     `db:"title" json:"title"`
	AssigneeID *int64     `db:"assignee_id" json:"assignee_id,omitempty"`
	Status     TaskStatus `db:"status" json:"status"`
	DueDate    time.Time  `db:"due_date" json:"due_date"`
	Priority   Priority   `db:"priority" json:"priority"`
	Version    int64      `db:"version" json:"version"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

// InventoryItem tracks stocked quantity for a product. Quantity never goes
// negative; a deduction that would underflow is rejected, not clamped.
// BelowThreshold latches the low-stock state so the signal fires only on the
// false-to-true crossing.
type InventoryItem struct {
	ProductID      int64           `db:"product_id" json:"product_id"`
	SupplierID     int64           `db:"supplier_id" json:"supplier_id"`
	Quantity       int             `db:"quantity" json:"quantity"`
	Threshold      int             `db:"threshold" json:"threshold"`
	UnitCost       decimal.Decimal `db:"unit_cost" json:"unit_cost"`
	BelowThreshold bool            `db:"below_threshold" json:"below_threshold"`
	LastRestocked  *time.Time      `db:"last_restocked" json:"last_restocked,omitempty"`
	Version        int64           `db:"version" json:"version"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// PurchaseOrder represents a supplier restock order, entered manually or
// drafted by the reorder trigger.
type PurchaseOrder struct {
	ID            int64               `db:"id" json:"id"`
	SupplierID    int64               `db:"supplier_id" json:"supplier_id"`
	Status        PurchaseOrderStatus `db:"status" json:"status"`
	DeliveryDate  *time.Time          `db:"delivery_date" json:"delivery_date,omitempty"`
	TotalAmount   decimal.Decimal     `db:"total_amount" json:"total_amount"`
	AutoGenerated bool                `db:"auto_generated" json:"auto_generated"`
	Version       int64               `db:"version" json:"version"`
	CreatedAt     time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time           `db:"updated_at" json:"updated_at"`
}

// PurchaseOrderItem is a line item in a purchase order
type PurchaseOrderItem struct {
	ID              int64           `db:"id" json:"id"`
	PurchaseOrderID int64           `db:"purchase_order_id" json:"purchase_order_id"`
	ProductID       int64           `db:"product_id" json:"product_id"`
	Quantity        int             `db:"quantity" json:"quantity"`
	UnitCost        decimal.Decimal `db:"unit_cost" json:"unit_cost"`
}

// Invoice is independently totaled; it may reference an order but does not
// share its lifecycle.
type Invoice struct {
	ID             int64           `db:"id" json:"id"`
	CustomerID     int64           `db:"customer_id" json:"customer_id"`
	OrderID        *int64          `db:"order_id" json:"order_id,omitempty"`
	TaxRatePercent decimal.Decimal `db:"tax_rate_percent" json:"tax_rate_percent"`
	DiscountAmount decimal.Decimal `db:"discount_amount" json:"discount_amount"`
	Subtotal       decimal.Decimal `db:"subtotal" json:"subtotal"`
	TaxAmount      decimal.Decimal `db:"tax_amount" json:"tax_amount"`
	GrandTotal     decimal.Decimal `db:"grand_total" json:"grand_total"`
	DueDate        time.Time       `db:"due_date" json:"due_date"`
	PaymentMethod  string          `db:"payment_method" json:"payment_method"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}

// InvoiceItem is a line item in an invoice
type InvoiceItem struct {
	ID          int64           `db:"id" json:"id"`
	InvoiceID   int64           `db:"invoice_id" json:"invoice_id"`
	Description string          `db:"description" json:"description"`
	Quantity    int             `db:"quantity" json:"quantity"`
	UnitPrice   decimal.Decimal `db:"unit_price" json:"unit_price"`
}

// RestockReceipt records an applied restock idempotency key together with the
// quantity that resulted, so a duplicate delivery confirmation returns the
// prior outcome instead of re-applying.
type RestockReceipt struct {
	IdempotencyKey string    `db:"idempotency_key" json:"idempotency_key"`
	ProductID      int64     `db:"product_id" json:"product_id"`
	SupplierID     int64     `db:"supplier_id" json:"supplier_id"`
	Quantity       int       `db:"quantity" json:"quantity"`
	ResultQuantity int       `db:"result_quantity" json:"result_quantity"`
	AppliedAt      time.Time `db:"applied_at" json:"applied_at"`
}

// ProcessedEvent for consumer-side idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}

// Role identifies the kind of actor performing an operation
type Role string

const (
	RoleCustomer Role = "customer"
	RoleEmployee Role = "employee"
	RoleSupplier Role = "supplier"
	RoleAdmin    Role = "admin"
)

// IsValid reports whether the role is a known value.
func (r Role) IsValid() bool {
	switch r {
	case RoleCustomer, RoleEmployee, RoleSupplier, RoleAdmin:
		return true
	}
	return false
}

// CanFulfill reports whether the role may move orders past pending.
func (r Role) CanFulfill() bool {
	return r == RoleEmployee || r == RoleAdmin
}

// Actor is the authenticated identity attached to a request, provided by the
// auth layer outside this engine.
type Actor struct {
	ID   int64 `json:"id"`
	Role Role  `json:"role"`
}
