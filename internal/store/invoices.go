package store

import (
	"context"
	"database/sql"

	"ops-engine/internal/apperr"
	"ops-engine/internal/models"
)

// CreateInvoice persists an invoice with its line items in one transaction.
func (s *Store) CreateInvoice(ctx context.Context, inv *models.Invoice, items []models.InvoiceItem) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = tx.GetContext(ctx, inv,
		`INSERT INTO invoices (customer_id, order_id, tax_rate_percent, discount_amount,
		                       subtotal, tax_amount, grand_total, due_date, payment_method)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, created_at`,
		inv.CustomerID, inv.OrderID, inv.TaxRatePercent, inv.DiscountAmount,
		inv.Subtotal, inv.TaxAmount, inv.GrandTotal, inv.DueDate, inv.PaymentMethod)
	if err != nil {
		return err
	}

	for i := range items {
		items[i].InvoiceID = inv.ID
		err = tx.GetContext(ctx, &items[i].ID,
			`INSERT INTO invoice_items (invoice_id, description, quantity, unit_price)
			 VALUES ($1, $2, $3, $4)
			 RETURNING id`,
			items[i].InvoiceID, items[i].Description, items[i].Quantity, items[i].UnitPrice)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetInvoiceByID retrieves an invoice with its items
func (s *Store) GetInvoiceByID(ctx context.Context, id int64) (*models.Invoice, []models.InvoiceItem, error) {
	var inv models.Invoice
	err := s.db.GetContext(ctx, &inv, "SELECT * FROM invoices WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil, apperr.New(apperr.KindNotFound, "invoice %d not found", id)
	}
	if err != nil {
		return nil, nil, err
	}

	var items []models.InvoiceItem
	err = s.db.SelectContext(ctx, &items,
		"SELECT * FROM invoice_items WHERE invoice_id = $1 ORDER BY id", id)
	if err != nil {
		return nil, nil, err
	}
	return &inv, items, nil
}

// GetInvoicesByCustomer retrieves invoices for a customer
func (s *Store) GetInvoicesByCustomer(ctx context.Context, customerID int64) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := s.db.SelectContext(ctx, &invoices,
		"SELECT * FROM invoices WHERE customer_id = $1 ORDER BY created_at DESC", customerID)
	return invoices, err
}
