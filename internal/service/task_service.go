package service

import (
	"context"
	"fmt"
	"time"

	"ops-engine/internal/apperr"
	"ops-engine/internal/models"
	"ops-engine/internal/store"
	"ops-engine/internal/util"

	"go.uber.org/zap"
)

// TaskService coordinates fulfillment tasks. Completing the last open task
// never completes the order by itself; it only makes the order-level
// completion legal.
type TaskService struct {
	store  *store.Store
	logger *zap.Logger
}

// NewTaskService creates a new task service
func NewTaskService(st *store.Store) *TaskService {
	return &TaskService{store: st, logger: util.GetLogger()}
}

// PlanTasksForOrder derives the fulfillment tasks an order needs when it
// enters processing: one per service line item, or a single generic
// fulfillment task when the order has none. Assignment stays empty unless the
// caller names an assignee.
func PlanTasksForOrder(order *models.Order, items []models.OrderItem, assigneeID *int64) []models.Task {
	due := dueDateFor(order.DeliveryOption)
	priority := models.PriorityMedium
	if order.DeliveryOption == models.DeliveryExpress {
		priority = models.PriorityHigh
	}

	var tasks []models.Task
	for _, item := range items {
		if item.ItemType != models.ItemTypeService {
			continue
		}
		tasks = append(tasks, models.Task{
			OrderID:    order.ID,
			Title:      fmt.Sprintf("Perform service: %s", item.Name),
			AssigneeID: assigneeID,
			Status:     models.TaskStatusPending,
			DueDate:    due,
			Priority:   priority,
		})
	}

	if len(tasks) == 0 {
		tasks = append(tasks, models.Task{
			OrderID:    order.ID,
			Title:      fmt.Sprintf("Fulfill order #%d", order.ID),
			AssigneeID: assigneeID,
			Status:     models.TaskStatusPending,
			DueDate:    due,
			Priority:   priority,
		})
	}

	return tasks
}

// SpawnTasksForOrder creates additional fulfillment tasks for an order that is
// already processing.
func (s *TaskService) SpawnTasksForOrder(ctx context.Context, orderID int64, assigneeID *int64) ([]models.Task, error) {
	ctx, span := util.StartSpan(ctx, "TaskService.SpawnTasksForOrder")
	defer span.End()

	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != models.OrderStatusProcessing {
		return nil, apperr.New(apperr.KindInvalidTransition,
			"order %d: tasks can only be spawned while processing, status is %s", orderID, order.Status)
	}

	items, err := s.store.GetOrderItems(ctx, orderID)
	if err != nil {
		return nil, err
	}

	tasks := PlanTasksForOrder(order, items, assigneeID)
	if err := s.store.CreateTasks(ctx, tasks); err != nil {
		return nil, fmt.Errorf("failed to create tasks: %w", err)
	}

	util.TasksSpawnedTotal.Add(float64(len(tasks)))
	s.logger.Info("Tasks spawned", zap.Int64("order_id", orderID), zap.Int("count", len(tasks)))
	return tasks, nil
}

// SetTaskStatus moves a task to the target status.
func (s *TaskService) SetTaskStatus(ctx context.Context, taskID int64, target models.TaskStatus, expectedVersion *int64) (*models.Task, error) {
	ctx, span := util.StartSpan(ctx, "TaskService.SetTaskStatus")
	defer span.End()

	if !target.IsValid() {
		return nil, apperr.New(apperr.KindValidation, "unknown task status %q", target)
	}

	task, err := s.store.SetTaskStatusTx(ctx, taskID, target, expectedVersion)
	if err != nil {
		return nil, err
	}

	if target == models.TaskStatusCompleted {
		s.logger.Info("Task completed",
			zap.Int64("task_id", taskID),
			zap.Int64("order_id", task.OrderID))
	}
	return task, nil
}

// AssignTask sets or clears the assignee of a task.
func (s *TaskService) AssignTask(ctx context.Context, taskID int64, assigneeID *int64) (*models.Task, error) {
	return s.store.AssignTask(ctx, taskID, assigneeID)
}

// DeleteTask removes a task unless its parent order has completed.
func (s *TaskService) DeleteTask(ctx context.Context, taskID int64) error {
	ctx, span := util.StartSpan(ctx, "TaskService.DeleteTask")
	defer span.End()

	return s.store.DeleteTaskTx(ctx, taskID)
}

// GetTask retrieves a task by ID
func (s *TaskService) GetTask(ctx context.Context, taskID int64) (*models.Task, error) {
	return s.store.GetTaskByID(ctx, taskID)
}

// ListOrderTasks retrieves all tasks attached to an order
func (s *TaskService) ListOrderTasks(ctx context.Context, orderID int64) ([]models.Task, error) {
	return s.store.GetTasksByOrder(ctx, orderID)
}

func dueDateFor(option models.DeliveryOption) time.Time {
	switch option {
	case models.DeliveryExpress:
		return time.Now().Add(24 * time.Hour)
	case models.DeliveryPickup:
		return time.Now().Add(48 * time.Hour)
	default:
		return time.Now().Add(72 * time.Hour)
	}
}
