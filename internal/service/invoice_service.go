package service

import (
	"context"
	"fmt"
	"time"

	"ops-engine/internal/apperr"
	"ops-engine/internal/finance"
	"ops-engine/internal/models"
	"ops-engine/internal/store"
	"ops-engine/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// InvoiceService totals and persists invoices. An invoice may reference an
// order but is totaled independently, always through the finance calculator.
type InvoiceService struct {
	store  *store.Store
	logger *zap.Logger
}

// NewInvoiceService creates a new invoice service
func NewInvoiceService(st *store.Store) *InvoiceService {
	return &InvoiceService{store: st, logger: util.GetLogger()}
}

// InvoiceItemRequest is one line of an invoice
type InvoiceItemRequest struct {
	Description string          `json:"description" binding:"required"`
	Quantity    int             `json:"quantity" binding:"required,min=1"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// CreateInvoiceRequest represents a request to create an invoice
type CreateInvoiceRequest struct {
	CustomerID     int64                `json:"customer_id" binding:"required"`
	OrderID        *int64               `json:"order_id,omitempty"`
	Items          []InvoiceItemRequest `json:"items" binding:"required,min=1"`
	TaxRatePercent decimal.Decimal      `json:"tax_rate_percent"`
	DiscountAmount decimal.Decimal      `json:"discount_amount"`
	DueDate        time.Time            `json:"due_date"`
	PaymentMethod  string               `json:"payment_method"`
}

// CreateInvoice validates the request, derives subtotal, tax and grand total
// through the finance calculator and persists the invoice.
func (s *InvoiceService) CreateInvoice(ctx context.Context, req *CreateInvoiceRequest) (*models.Invoice, []models.InvoiceItem, error) {
	ctx, span := util.StartSpan(ctx, "InvoiceService.CreateInvoice")
	defer span.End()

	if len(req.Items) == 0 {
		return nil, nil, apperr.New(apperr.KindValidation, "invoice must contain at least one item")
	}
	if req.TaxRatePercent.IsNegative() {
		return nil, nil, apperr.New(apperr.KindValidation, "tax rate must not be negative")
	}
	if req.DiscountAmount.IsNegative() {
		return nil, nil, apperr.New(apperr.KindValidation, "discount must not be negative")
	}
	if req.OrderID != nil {
		if _, err := s.store.GetOrderByID(ctx, *req.OrderID); err != nil {
			return nil, nil, err
		}
	}

	items := make([]models.InvoiceItem, 0, len(req.Items))
	lines := make([]finance.Line, 0, len(req.Items))
	for _, item := range req.Items {
		if item.Quantity < 1 {
			return nil, nil, apperr.New(apperr.KindValidation,
				"invoice item %q: quantity must be at least 1", item.Description)
		}
		if item.UnitPrice.IsNegative() {
			return nil, nil, apperr.New(apperr.KindValidation,
				"invoice item %q: unit price must not be negative", item.Description)
		}
		items = append(items, models.InvoiceItem{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		})
		lines = append(lines, finance.Line{Quantity: item.Quantity, UnitPrice: item.UnitPrice})
	}

	totals := finance.Compute(lines, req.TaxRatePercent, req.DiscountAmount)

	invoice := &models.Invoice{
		CustomerID:     req.CustomerID,
		OrderID:        req.OrderID,
		TaxRatePercent: req.TaxRatePercent,
		DiscountAmount: req.DiscountAmount,
		Subtotal:       totals.Subtotal,
		TaxAmount:      totals.Tax,
		GrandTotal:     totals.Total,
		DueDate:        req.DueDate,
		PaymentMethod:  req.PaymentMethod,
	}
	if err := s.store.CreateInvoice(ctx, invoice, items); err != nil {
		return nil, nil, fmt.Errorf("failed to create invoice: %w", err)
	}

	s.logger.Info("Invoice created",
		zap.Int64("invoice_id", invoice.ID),
		zap.String("grand_total", invoice.GrandTotal.StringFixed(2)))
	return invoice, items, nil
}

// GetInvoice retrieves an invoice with its items
func (s *InvoiceService) GetInvoice(ctx context.Context, id int64) (*models.Invoice, []models.InvoiceItem, error) {
	return s.store.GetInvoiceByID(ctx, id)
}

// ListCustomerInvoices retrieves invoices for a customer
func (s *InvoiceService) ListCustomerInvoices(ctx context.Context, customerID int64) ([]models.Invoice, error) {
	return s.store.GetInvoicesByCustomer(ctx, customerID)
}
