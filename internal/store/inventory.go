package store

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"ops-engine/internal/apperr"
	"ops-engine/internal/models"

	"github.com/jmoiron/sqlx"
)

// StockLine is one product deduction within an all-or-nothing group.
type StockLine struct {
	ProductID int64 `db:"product_id"`
	Quantity  int   `db:"quantity"`
}

// LowStockCrossing reports an inventory item that dropped below its threshold
// during a deduction. Emitted once per false-to-true crossing of the latch.
type LowStockCrossing struct {
	ProductID  int64
	SupplierID int64
	Quantity   int
	Threshold  int
}

// RestockResult is the outcome of an idempotent restock. Applied is false when
// the idempotency key had already been used; Item then carries the quantity
// recorded by the single prior application, not the row's current state.
type RestockResult struct {
	Item    models.InventoryItem
	Applied bool
}

// GetInventoryItem retrieves the inventory row for a product
func (s *Store) GetInventoryItem(ctx context.Context, productID int64) (*models.InventoryItem, error) {
	var item models.InventoryItem
	err := s.db.GetContext(ctx, &item, "SELECT * FROM inventory_items WHERE product_id = $1", productID)
	if err == sql.ErrNoRows {
		return nil, apperr.New(apperr.KindNotFound, "no inventory for product %d", productID)
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ListInventory retrieves all inventory rows
func (s *Store) ListInventory(ctx context.Context) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	err := s.db.SelectContext(ctx, &items, "SELECT * FROM inventory_items ORDER BY product_id")
	return items, err
}

// DeductStock deducts an all-or-nothing group of stock lines in one
// transaction. If any line would underflow, nothing is deducted.
func (s *Store) DeductStock(ctx context.Context, lines []StockLine) ([]LowStockCrossing, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	crossings, err := deductLocked(ctx, tx, lines)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return crossings, nil
}

// Restock applies an idempotent stock increment for a product/supplier pair.
// A repeated idempotency key is detected inside the transaction and ignored.
func (s *Store) Restock(ctx context.Context, productID, supplierID int64, quantity int, idempotencyKey string) (*RestockResult, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// The row lock comes before the receipt lookup: two restocks racing on the
	// same fresh key serialize here, so the loser sees the winner's receipt
	// instead of failing the insert on the key constraint.
	var item models.InventoryItem
	err = tx.GetContext(ctx, &item,
		"SELECT * FROM inventory_items WHERE product_id = $1 AND supplier_id = $2 FOR UPDATE",
		productID, supplierID)
	if err == sql.ErrNoRows {
		return nil, apperr.New(apperr.KindNotFound, "no inventory for product %d supplier %d", productID, supplierID)
	}
	if err != nil {
		return nil, err
	}

	var receipt models.RestockReceipt
	err = tx.GetContext(ctx, &receipt,
		"SELECT * FROM restock_receipts WHERE idempotency_key = $1", idempotencyKey)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	if err == nil {
		if receipt.ProductID != item.ProductID {
			if err := tx.GetContext(ctx, &item,
				"SELECT * FROM inventory_items WHERE product_id = $1", receipt.ProductID); err != nil {
				return nil, err
			}
		}
		// Report the outcome the prior application recorded, not whatever the
		// row has drifted to since.
		item.Quantity = receipt.ResultQuantity
		item.BelowThreshold = item.Quantity < item.Threshold
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		return &RestockResult{Item: item, Applied: false}, nil
	}

	now := time.Now()
	item.Quantity += quantity
	item.BelowThreshold = item.Quantity < item.Threshold
	item.LastRestocked = &now
	item.Version++
	item.UpdatedAt = now

	_, err = tx.ExecContext(ctx,
		`UPDATE inventory_items
		 SET quantity = $1, below_threshold = $2, last_restocked = $3, version = $4, updated_at = $5
		 WHERE product_id = $6`,
		item.Quantity, item.BelowThreshold, item.LastRestocked, item.Version, item.UpdatedAt, productID)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO restock_receipts (idempotency_key, product_id, supplier_id, quantity, result_quantity)
		 VALUES ($1, $2, $3, $4, $5)`,
		idempotencyKey, productID, supplierID, quantity, item.Quantity)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &RestockResult{Item: item, Applied: true}, nil
}

// deductLocked locks every inventory row in the group in ascending product-id
// order, verifies no line underflows, then applies all decrements. Rows stay
// locked until the surrounding transaction ends, so concurrent deductions on
// the same products cannot pass a stale quantity check.
func deductLocked(ctx context.Context, tx *sqlx.Tx, lines []StockLine) ([]LowStockCrossing, error) {
	sorted := make([]StockLine, len(lines))
	copy(sorted, lines)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ProductID < sorted[j].ProductID })

	items := make([]models.InventoryItem, len(sorted))
	for i, line := range sorted {
		err := tx.GetContext(ctx, &items[i],
			"SELECT * FROM inventory_items WHERE product_id = $1 FOR UPDATE", line.ProductID)
		if err == sql.ErrNoRows {
			return nil, apperr.New(apperr.KindNotFound, "no inventory for product %d", line.ProductID)
		}
		if err != nil {
			return nil, err
		}
		if items[i].Quantity < line.Quantity {
			return nil, apperr.New(apperr.KindInsufficientInventory,
				"product %d: requested %d, available %d", line.ProductID, line.Quantity, items[i].Quantity)
		}
	}

	var crossings []LowStockCrossing
	now := time.Now()
	for i, line := range sorted {
		item := &items[i]
		wasBelow := item.BelowThreshold
		item.Quantity -= line.Quantity
		item.BelowThreshold = item.Quantity < item.Threshold
		item.Version++

		_, err := tx.ExecContext(ctx,
			`UPDATE inventory_items
			 SET quantity = $1, below_threshold = $2, version = $3, updated_at = $4
			 WHERE product_id = $5`,
			item.Quantity, item.BelowThreshold, item.Version, now, item.ProductID)
		if err != nil {
			return nil, err
		}

		if item.BelowThreshold && !wasBelow {
			crossings = append(crossings, LowStockCrossing{
				ProductID:  item.ProductID,
				SupplierID: item.SupplierID,
				Quantity:   item.Quantity,
				Threshold:  item.Threshold,
			})
		}
	}

	return crossings, nil
}

// restoreLocked credits previously deducted quantities back. Used for the
// cancellation compensation of orders cancelled while processing.
func restoreLocked(ctx context.Context, tx *sqlx.Tx, lines []StockLine) error {
	sorted := make([]StockLine, len(lines))
	copy(sorted, lines)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ProductID < sorted[j].ProductID })

	now := time.Now()
	for _, line := range sorted {
		var item models.InventoryItem
		err := tx.GetContext(ctx, &item,
			"SELECT * FROM inventory_items WHERE product_id = $1 FOR UPDATE", line.ProductID)
		if err == sql.ErrNoRows {
			return apperr.New(apperr.KindNotFound, "no inventory for product %d", line.ProductID)
		}
		if err != nil {
			return err
		}

		item.Quantity += line.Quantity
		item.BelowThreshold = item.Quantity < item.Threshold
		item.Version++

		_, err = tx.ExecContext(ctx,
			`UPDATE inventory_items
			 SET quantity = $1, below_threshold = $2, version = $3, updated_at = $4
			 WHERE product_id = $5`,
			item.Quantity, item.BelowThreshold, item.Version, now, item.ProductID)
		if err != nil {
			return err
		}
	}

	return nil
}
