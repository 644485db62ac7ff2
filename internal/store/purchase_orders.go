package store

import (
	"context"
	"database/sql"
	"time"

	"ops-engine/internal/apperr"
	"ops-engine/internal/models"
)

// CreatePurchaseOrder persists a purchase order with its line items in one
// transaction.
func (s *Store) CreatePurchaseOrder(ctx context.Context, po *models.PurchaseOrder, items []models.PurchaseOrderItem) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = tx.GetContext(ctx, po,
		`INSERT INTO purchase_orders (supplier_id, status, delivery_date, total_amount, auto_generated, version)
		 VALUES ($1, $2, $3, $4, $5, 1)
		 RETURNING id, version, created_at, updated_at`,
		po.SupplierID, po.Status, po.DeliveryDate, po.TotalAmount, po.AutoGenerated)
	if err != nil {
		return err
	}

	for i := range items {
		items[i].PurchaseOrderID = po.ID
		err = tx.GetContext(ctx, &items[i].ID,
			`INSERT INTO purchase_order_items (purchase_order_id, product_id, quantity, unit_cost)
			 VALUES ($1, $2, $3, $4)
			 RETURNING id`,
			items[i].PurchaseOrderID, items[i].ProductID, items[i].Quantity, items[i].UnitCost)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetPurchaseOrderByID retrieves a purchase order with its items
func (s *Store) GetPurchaseOrderByID(ctx context.Context, id int64) (*models.PurchaseOrder, []models.PurchaseOrderItem, error) {
	var po models.PurchaseOrder
	err := s.db.GetContext(ctx, &po, "SELECT * FROM purchase_orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil, apperr.New(apperr.KindNotFound, "purchase order %d not found", id)
	}
	if err != nil {
		return nil, nil, err
	}

	var items []models.PurchaseOrderItem
	err = s.db.SelectContext(ctx, &items,
		"SELECT * FROM purchase_order_items WHERE purchase_order_id = $1 ORDER BY id", id)
	if err != nil {
		return nil, nil, err
	}
	return &po, items, nil
}

// GetPurchaseOrdersBySupplier retrieves purchase orders for a supplier
func (s *Store) GetPurchaseOrdersBySupplier(ctx context.Context, supplierID int64) ([]models.PurchaseOrder, error) {
	var pos []models.PurchaseOrder
	err := s.db.SelectContext(ctx, &pos,
		"SELECT * FROM purchase_orders WHERE supplier_id = $1 ORDER BY created_at DESC", supplierID)
	return pos, err
}

// HasOpenAutoReorder reports whether a non-terminal auto-generated purchase
// order already covers the product/supplier pair. Keeps the reorder trigger
// from stacking drafts while stock stays below the threshold.
func (s *Store) HasOpenAutoReorder(ctx context.Context, productID, supplierID int64) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		`SELECT EXISTS(
		   SELECT 1 FROM purchase_orders po
		   JOIN purchase_order_items poi ON poi.purchase_order_id = po.id
		   WHERE po.supplier_id = $1
		     AND poi.product_id = $2
		     AND po.auto_generated
		     AND po.status IN ($3, $4)
		 )`,
		supplierID, productID, models.PurchaseOrderStatusPending, models.PurchaseOrderStatusConfirmed)
	return exists, err
}

// SetPurchaseOrderStatusTx moves a purchase order to the target status under
// the row lock, enforcing the purchase order transition table. Returns the
// updated order and its items.
func (s *Store) SetPurchaseOrderStatusTx(ctx context.Context, id int64, target models.PurchaseOrderStatus, deliveryDate *time.Time) (*models.PurchaseOrder, []models.PurchaseOrderItem, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	var po models.PurchaseOrder
	err = tx.GetContext(ctx, &po, "SELECT * FROM purchase_orders WHERE id = $1 FOR UPDATE", id)
	if err == sql.ErrNoRows {
		return nil, nil, apperr.New(apperr.KindNotFound, "purchase order %d not found", id)
	}
	if err != nil {
		return nil, nil, err
	}

	var items []models.PurchaseOrderItem
	err = tx.SelectContext(ctx, &items,
		"SELECT * FROM purchase_order_items WHERE purchase_order_id = $1 ORDER BY id", id)
	if err != nil {
		return nil, nil, err
	}

	if po.Status == target {
		if err := tx.Commit(); err != nil {
			return nil, nil, err
		}
		return &po, items, nil
	}
	if !po.Status.CanTransitionTo(target) {
		return nil, nil, apperr.New(apperr.KindInvalidTransition,
			"purchase order %d: cannot move from %s to %s", id, po.Status, target)
	}

	now := time.Now()
	if deliveryDate != nil {
		po.DeliveryDate = deliveryDate
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE purchase_orders
		 SET status = $1, delivery_date = $2, version = version + 1, updated_at = $3
		 WHERE id = $4`,
		target, po.DeliveryDate, now, id)
	if err != nil {
		return nil, nil, err
	}
	po.Status = target
	po.Version++
	po.UpdatedAt = now

	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}
	return &po, items, nil
}
