package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderStatusTransitions(t *testing.T) {
	cases := []struct {
		from    OrderStatus
		to      OrderStatus
		allowed bool
	}{
		{OrderStatusPending, OrderStatusProcessing, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusPending, OrderStatusCompleted, false},
		{OrderStatusProcessing, OrderStatusCompleted, true},
		{OrderStatusProcessing, OrderStatusCancelled, true},
		{OrderStatusProcessing, OrderStatusPending, false},
		{OrderStatusCompleted, OrderStatusCancelled, false},
		{OrderStatusCompleted, OrderStatusProcessing, false},
		{OrderStatusCancelled, OrderStatusPending, false},
		{OrderStatusCancelled, OrderStatusProcessing, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	assert.False(t, OrderStatusPending.IsTerminal())
	assert.False(t, OrderStatusProcessing.IsTerminal())
	assert.True(t, OrderStatusCompleted.IsTerminal())
	assert.True(t, OrderStatusCancelled.IsTerminal())
}

func TestParseOrderStatusRejectsUnknown(t *testing.T) {
	_, err := ParseOrderStatus("shipped")
	assert.Error(t, err)

	s, err := ParseOrderStatus("processing")
	assert.NoError(t, err)
	assert.Equal(t, OrderStatusProcessing, s)
}

func TestTaskStatusCompletedIsTerminal(t *testing.T) {
	assert.True(t, TaskStatusPending.CanTransitionTo(TaskStatusInProgress))
	assert.True(t, TaskStatusInProgress.CanTransitionTo(TaskStatusPending))
	assert.True(t, TaskStatusPending.CanTransitionTo(TaskStatusCompleted))
	assert.True(t, TaskStatusInProgress.CanTransitionTo(TaskStatusCompleted))

	assert.False(t, TaskStatusCompleted.CanTransitionTo(TaskStatusPending))
	assert.False(t, TaskStatusCompleted.CanTransitionTo(TaskStatusInProgress))

	assert.False(t, TaskStatusPending.CanTransitionTo(TaskStatus("done")))
}

func TestPurchaseOrderStatusTransitions(t *testing.T) {
	cases := []struct {
		from    PurchaseOrderStatus
		to      PurchaseOrderStatus
		allowed bool
	}{
		{PurchaseOrderStatusPending, PurchaseOrderStatusConfirmed, true},
		{PurchaseOrderStatusPending, PurchaseOrderStatusCancelled, true},
		{PurchaseOrderStatusPending, PurchaseOrderStatusDelivered, false},
		{PurchaseOrderStatusConfirmed, PurchaseOrderStatusDelivered, true},
		{PurchaseOrderStatusConfirmed, PurchaseOrderStatusCancelled, true},
		{PurchaseOrderStatusConfirmed, PurchaseOrderStatusPending, false},
		{PurchaseOrderStatusDelivered, PurchaseOrderStatusCancelled, false},
		{PurchaseOrderStatusCancelled, PurchaseOrderStatusConfirmed, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestRoleCanFulfill(t *testing.T) {
	assert.True(t, RoleEmployee.CanFulfill())
	assert.True(t, RoleAdmin.CanFulfill())
	assert.False(t, RoleCustomer.CanFulfill())
}
