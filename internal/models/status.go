package models

import "fmt"

// OrderStatus is the closed order lifecycle enum. Any string outside the enum
// is rejected at the boundary by ParseOrderStatus.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// IsValid reports whether the status is a member of the enum.
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// CanTransitionTo is the single order transition table. Status never moves
// backward; cancelled is reachable from pending and processing only.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return target == OrderStatusProcessing || target == OrderStatusCancelled
	case OrderStatusProcessing:
		return target == OrderStatusCompleted || target == OrderStatusCancelled
	case OrderStatusCompleted, OrderStatusCancelled:
		return false
	}
	return false
}

func (s OrderStatus) String() string {
	return string(s)
}

// ParseOrderStatus validates an externally-sourced status string.
func ParseOrderStatus(raw string) (OrderStatus, error) {
	s := OrderStatus(raw)
	if !s.IsValid() {
		return "", fmt.Errorf("unknown order status %q", raw)
	}
	return s, nil
}

// TaskStatus is the fulfillment task lifecycle enum. Tasks move freely between
// pending and in_progress; completed is terminal.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

// IsValid reports whether the status is a member of the enum.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted:
		return true
	}
	return false
}

// CanTransitionTo allows free movement among the open states, with completed
// reachable from either and terminal once reached.
func (s TaskStatus) CanTransitionTo(target TaskStatus) bool {
	if !target.IsValid() {
		return false
	}
	if s == TaskStatusCompleted {
		return false
	}
	return true
}

// ParseTaskStatus validates an externally-sourced status string.
func ParseTaskStatus(raw string) (TaskStatus, error) {
	s := TaskStatus(raw)
	if !s.IsValid() {
		return "", fmt.Errorf("unknown task status %q", raw)
	}
	return s, nil
}

// PurchaseOrderStatus is the purchase order lifecycle enum.
type PurchaseOrderStatus string

const (
	PurchaseOrderStatusPending   PurchaseOrderStatus = "pending"
	PurchaseOrderStatusConfirmed PurchaseOrderStatus = "confirmed"
	PurchaseOrderStatusDelivered PurchaseOrderStatus = "delivered"
	PurchaseOrderStatusCancelled PurchaseOrderStatus = "cancelled"
)

// IsValid reports whether the status is a member of the enum.
func (s PurchaseOrderStatus) IsValid() bool {
	switch s {
	case PurchaseOrderStatusPending, PurchaseOrderStatusConfirmed,
		PurchaseOrderStatusDelivered, PurchaseOrderStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo is the purchase order transition table. Delivered and
// cancelled are terminal.
func (s PurchaseOrderStatus) CanTransitionTo(target PurchaseOrderStatus) bool {
	switch s {
	case PurchaseOrderStatusPending:
		return target == PurchaseOrderStatusConfirmed || target == PurchaseOrderStatusCancelled
	case PurchaseOrderStatusConfirmed:
		return target == PurchaseOrderStatusDelivered || target == PurchaseOrderStatusCancelled
	case PurchaseOrderStatusDelivered, PurchaseOrderStatusCancelled:
		return false
	}
	return false
}

// ParsePurchaseOrderStatus validates an externally-sourced status string.
func ParsePurchaseOrderStatus(raw string) (PurchaseOrderStatus, error) {
	s := PurchaseOrderStatus(raw)
	if !s.IsValid() {
		return "", fmt.Errorf("unknown purchase order status %q", raw)
	}
	return s, nil
}

// DeliveryOption is the closed delivery method enum.
type DeliveryOption string

const (
	DeliveryPickup   DeliveryOption = "pickup"
	DeliveryStandard DeliveryOption = "standard"
	DeliveryExpress  DeliveryOption = "express"
)

// IsValid reports whether the option is a member of the enum.
func (d DeliveryOption) IsValid() bool {
	switch d {
	case DeliveryPickup, DeliveryStandard, DeliveryExpress:
		return true
	}
	return false
}

// Priority is the task priority enum.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// IsValid reports whether the priority is a member of the enum.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}
