package store

import (
	"context"
	"database/sql"
	"time"

	"ops-engine/internal/apperr"
	"ops-engine/internal/models"

	"github.com/jmoiron/sqlx"
)

// CreateOrder persists a new order together with its line item snapshots in
// one transaction.
func (s *Store) CreateOrder(ctx context.Context, order *models.Order, items []models.OrderItem) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO orders (customer_id, status, tax_rate_percent, discount_amount,
		                    subtotal, tax_amount, total_amount, delivery_option, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 1)
		RETURNING id, version, created_at, updated_at`

	err = tx.GetContext(ctx, order, query,
		order.CustomerID, order.Status, order.TaxRatePercent, order.DiscountAmount,
		order.Subtotal, order.TaxAmount, order.TotalAmount, order.DeliveryOption)
	if err != nil {
		return err
	}

	for i := range items {
		items[i].OrderID = order.ID
		err = tx.GetContext(ctx, &items[i].ID,
			`INSERT INTO order_items (order_id, catalog_item_id, item_type, name, quantity, unit_price)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 RETURNING id`,
			items[i].OrderID, items[i].CatalogItemID, items[i].ItemType,
			items[i].Name, items[i].Quantity, items[i].UnitPrice)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetOrderByID retrieves an order by ID
func (s *Store) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, apperr.New(apperr.KindNotFound, "order %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderItems retrieves all line items for an order
func (s *Store) GetOrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM order_items WHERE order_id = $1 ORDER BY id", orderID)
	return items, err
}

// GetOrdersByCustomer retrieves orders for a customer
func (s *Store) GetOrdersByCustomer(ctx context.Context, customerID int64) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE customer_id = $1 ORDER BY created_at DESC", customerID)
	return orders, err
}

// BeginProcessingTx moves a pending order to processing, deducts its stock
// lines as one atomic group and spawns the given fulfillment tasks, all in one
// transaction. The order row is locked for the duration, so concurrent
// transitions on the same order serialize here; the losing call re-reads the
// already-updated status and resolves to a no-op or a rejection. On any failed
// deduction the whole transaction rolls back: no stock moves, no tasks appear.
func (s *Store) BeginProcessingTx(ctx context.Context, orderID int64, expectedVersion *int64, lines []StockLine, tasks []models.Task) (*models.Order, []LowStockCrossing, bool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, false, err
	}
	defer tx.Rollback()

	order, err := lockOrder(ctx, tx, orderID, expectedVersion)
	if err != nil {
		return nil, nil, false, err
	}

	if order.Status == models.OrderStatusProcessing {
		// Idempotent re-issue: already there, nothing to deduct.
		if err := tx.Commit(); err != nil {
			return nil, nil, false, err
		}
		return order, nil, false, nil
	}
	if order.Status != models.OrderStatusPending {
		return nil, nil, false, apperr.New(apperr.KindInvalidTransition,
			"order %d: cannot move from %s to processing", orderID, order.Status)
	}

	crossings, err := deductLocked(ctx, tx, lines)
	if err != nil {
		return nil, nil, false, err
	}

	if err := insertTasks(ctx, tx, tasks); err != nil {
		return nil, nil, false, err
	}

	if err := updateOrderStatus(ctx, tx, order, models.OrderStatusProcessing); err != nil {
		return nil, nil, false, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, false, err
	}
	return order, crossings, true, nil
}

// CompleteOrderTx moves a processing order to completed, rejecting while any
// attached task is still open. The task check runs under the order row lock so
// a task cannot be reopened between check and commit of the same call.
func (s *Store) CompleteOrderTx(ctx context.Context, orderID int64, expectedVersion *int64) (*models.Order, bool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback()

	order, err := lockOrder(ctx, tx, orderID, expectedVersion)
	if err != nil {
		return nil, false, err
	}

	if order.Status == models.OrderStatusCompleted {
		if err := tx.Commit(); err != nil {
			return nil, false, err
		}
		return order, false, nil
	}
	if order.Status != models.OrderStatusProcessing {
		return nil, false, apperr.New(apperr.KindInvalidTransition,
			"order %d: cannot move from %s to completed", orderID, order.Status)
	}

	var open int
	err = tx.GetContext(ctx, &open,
		"SELECT COUNT(*) FROM tasks WHERE order_id = $1 AND status <> $2",
		orderID, models.TaskStatusCompleted)
	if err != nil {
		return nil, false, err
	}
	if open > 0 {
		return nil, false, apperr.New(apperr.KindIncompleteTasks,
			"order %d: %d task(s) not completed", orderID, open)
	}

	if err := updateOrderStatus(ctx, tx, order, models.OrderStatusCompleted); err != nil {
		return nil, false, err
	}

	if err := tx.Commit(); err != nil {
		return nil, false, err
	}
	return order, true, nil
}

// CancelOrderTx cancels a pending or processing order. Cancelling from
// processing credits the previously deducted stock lines back in the same
// transaction; from pending there is nothing to compensate. The compensation
// lines are derived from order_items under the row lock, not from any status
// the caller observed earlier: a pending→processing commit racing ahead of the
// cancel still gets its deduction credited back. Returns the restored lines.
func (s *Store) CancelOrderTx(ctx context.Context, orderID int64, expectedVersion *int64) (*models.Order, []StockLine, bool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, false, err
	}
	defer tx.Rollback()

	order, err := lockOrder(ctx, tx, orderID, expectedVersion)
	if err != nil {
		return nil, nil, false, err
	}

	if order.Status == models.OrderStatusCancelled {
		if err := tx.Commit(); err != nil {
			return nil, nil, false, err
		}
		return order, nil, false, nil
	}
	if order.Status == models.OrderStatusCompleted {
		return nil, nil, false, apperr.New(apperr.KindInvalidTransition,
			"order %d: cannot cancel a completed order", orderID)
	}

	var lines []StockLine
	if order.Status == models.OrderStatusProcessing {
		lines, err = orderStockLines(ctx, tx, orderID)
		if err != nil {
			return nil, nil, false, err
		}
		if err := restoreLocked(ctx, tx, lines); err != nil {
			return nil, nil, false, err
		}
	}

	if err := updateOrderStatus(ctx, tx, order, models.OrderStatusCancelled); err != nil {
		return nil, nil, false, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, false, err
	}
	return order, lines, true, nil
}

// orderStockLines reads the deduction group an order's product line items
// represent.
func orderStockLines(ctx context.Context, tx *sqlx.Tx, orderID int64) ([]StockLine, error) {
	var lines []StockLine
	err := tx.SelectContext(ctx, &lines,
		`SELECT catalog_item_id AS product_id, quantity
		 FROM order_items WHERE order_id = $1 AND item_type = $2`,
		orderID, models.ItemTypeProduct)
	return lines, err
}

// lockOrder loads an order row FOR UPDATE and enforces the caller's optimistic
// version expectation when one is supplied.
func lockOrder(ctx context.Context, tx *sqlx.Tx, orderID int64, expectedVersion *int64) (*models.Order, error) {
	var order models.Order
	err := tx.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1 FOR UPDATE", orderID)
	if err == sql.ErrNoRows {
		return nil, apperr.New(apperr.KindNotFound, "order %d not found", orderID)
	}
	if err != nil {
		return nil, err
	}
	if expectedVersion != nil && order.Version != *expectedVersion {
		return nil, apperr.New(apperr.KindConflict,
			"order %d: version %d expected, have %d", orderID, *expectedVersion, order.Version)
	}
	return &order, nil
}

func updateOrderStatus(ctx context.Context, tx *sqlx.Tx, order *models.Order, target models.OrderStatus) error {
	now := time.Now()
	res, err := tx.ExecContext(ctx,
		"UPDATE orders SET status = $1, version = version + 1, updated_at = $2 WHERE id = $3 AND version = $4",
		target, now, order.ID, order.Version)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.New(apperr.KindConflict, "order %d: concurrent modification", order.ID)
	}
	order.Status = target
	order.Version++
	order.UpdatedAt = now
	return nil
}
