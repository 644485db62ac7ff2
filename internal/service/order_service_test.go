package service

import (
	"testing"

	"ops-engine/internal/apperr"
	"ops-engine/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestAuthorizeTransitions(t *testing.T) {
	os := &OrderService{}

	employee := models.Actor{ID: 1, Role: models.RoleEmployee}
	admin := models.Actor{ID: 2, Role: models.RoleAdmin}
	customer := models.Actor{ID: 3, Role: models.RoleCustomer}

	assert.NoError(t, os.authorize(employee, models.OrderStatusPending, models.OrderStatusProcessing))
	assert.NoError(t, os.authorize(admin, models.OrderStatusProcessing, models.OrderStatusCompleted))

	// Customers may cancel an order that has not started processing.
	assert.NoError(t, os.authorize(customer, models.OrderStatusPending, models.OrderStatusCancelled))

	err := os.authorize(customer, models.OrderStatusPending, models.OrderStatusProcessing)
	assert.True(t, apperr.IsKind(err, apperr.KindPermission))

	err = os.authorize(customer, models.OrderStatusProcessing, models.OrderStatusCancelled)
	assert.True(t, apperr.IsKind(err, apperr.KindPermission))
}

func TestStockLinesSkipsServiceItems(t *testing.T) {
	items := []models.OrderItem{
		{CatalogItemID: 1, ItemType: models.ItemTypeProduct, Quantity: 2},
		{CatalogItemID: 2, ItemType: models.ItemTypeService, Quantity: 1},
		{CatalogItemID: 3, ItemType: models.ItemTypeProduct, Quantity: 5},
	}

	lines := stockLines(items)

	assert.Len(t, lines, 2)
	assert.Equal(t, int64(1), lines[0].ProductID)
	assert.Equal(t, 2, lines[0].Quantity)
	assert.Equal(t, int64(3), lines[1].ProductID)
	assert.Equal(t, 5, lines[1].Quantity)
}

func TestToEventItemsFormatsMoneyAsFixedPoint(t *testing.T) {
	items := []models.OrderItem{
		{CatalogItemID: 9, ItemType: models.ItemTypeProduct, Quantity: 2,
			UnitPrice: decimal.RequireFromString("19.9")},
	}

	data := toEventItems(items)

	assert.Len(t, data, 1)
	assert.Equal(t, "19.90", data[0].UnitPrice)
}

func TestNewBaseEvent(t *testing.T) {
	event := newBaseEvent(models.EventTypeOrderCreated)

	assert.Equal(t, models.EventTypeOrderCreated, event.EventType)
	assert.NotEmpty(t, event.EventID)
	assert.False(t, event.Timestamp.IsZero())
}
