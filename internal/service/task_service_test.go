package service

import (
	"testing"
	"time"

	"ops-engine/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestPlanTasksForOrderServiceItems(t *testing.T) {
	order := &models.Order{ID: 7, DeliveryOption: models.DeliveryStandard}
	items := []models.OrderItem{
		{CatalogItemID: 1, ItemType: models.ItemTypeProduct, Name: "Widget", Quantity: 2},
		{CatalogItemID: 2, ItemType: models.ItemTypeService, Name: "Installation", Quantity: 1},
		{CatalogItemID: 3, ItemType: models.ItemTypeService, Name: "Calibration", Quantity: 1},
	}

	tasks := PlanTasksForOrder(order, items, nil)

	assert.Len(t, tasks, 2)
	assert.Equal(t, "Perform service: Installation", tasks[0].Title)
	assert.Equal(t, "Perform service: Calibration", tasks[1].Title)
	for _, task := range tasks {
		assert.Equal(t, int64(7), task.OrderID)
		assert.Equal(t, models.TaskStatusPending, task.Status)
		assert.Equal(t, models.PriorityMedium, task.Priority)
		assert.Nil(t, task.AssigneeID)
	}
}

func TestPlanTasksForOrderFallbackTask(t *testing.T) {
	order := &models.Order{ID: 12, DeliveryOption: models.DeliveryPickup}
	items := []models.OrderItem{
		{CatalogItemID: 1, ItemType: models.ItemTypeProduct, Name: "Widget", Quantity: 3},
	}

	tasks := PlanTasksForOrder(order, items, nil)

	assert.Len(t, tasks, 1)
	assert.Equal(t, "Fulfill order #12", tasks[0].Title)
}

func TestPlanTasksForOrderExpressPriority(t *testing.T) {
	order := &models.Order{ID: 3, DeliveryOption: models.DeliveryExpress}
	assignee := int64(42)

	tasks := PlanTasksForOrder(order, nil, &assignee)

	assert.Len(t, tasks, 1)
	assert.Equal(t, models.PriorityHigh, tasks[0].Priority)
	assert.Equal(t, &assignee, tasks[0].AssigneeID)
}

func TestDueDateForDeliveryOption(t *testing.T) {
	now := time.Now()

	express := dueDateFor(models.DeliveryExpress)
	pickup := dueDateFor(models.DeliveryPickup)
	standard := dueDateFor(models.DeliveryStandard)

	assert.WithinDuration(t, now.Add(24*time.Hour), express, time.Minute)
	assert.WithinDuration(t, now.Add(48*time.Hour), pickup, time.Minute)
	assert.WithinDuration(t, now.Add(72*time.Hour), standard, time.Minute)
}
