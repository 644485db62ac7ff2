package store

import (
	"context"
	"database/sql"
	"time"

	"ops-engine/internal/apperr"
	"ops-engine/internal/models"

	"github.com/jmoiron/sqlx"
)

// CreateTasks persists a batch of tasks in one transaction.
func (s *Store) CreateTasks(ctx context.Context, tasks []models.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := insertTasks(ctx, tx, tasks); err != nil {
		return err
	}

	return tx.Commit()
}

func insertTasks(ctx context.Context, tx *sqlx.Tx, tasks []models.Task) error {
	for i := range tasks {
		err := tx.GetContext(ctx, &tasks[i],
			`INSERT INTO tasks (order_id, title, assignee_id, status, due_date, priority, version)
			 VALUES ($1, $2, $3, $4, $5, $6, 1)
			 RETURNING id, version, created_at, updated_at`,
			tasks[i].OrderID, tasks[i].Title, tasks[i].AssigneeID,
			tasks[i].Status, tasks[i].DueDate, tasks[i].Priority)
		if err != nil {
			return err
		}
	}
	return nil
}

// GetTaskByID retrieves a task by ID
func (s *Store) GetTaskByID(ctx context.Context, id int64) (*models.Task, error) {
	var task models.Task
	err := s.db.GetContext(ctx, &task, "SELECT * FROM tasks WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, apperr.New(apperr.KindNotFound, "task %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// GetTasksByOrder retrieves all tasks attached to an order
func (s *Store) GetTasksByOrder(ctx context.Context, orderID int64) ([]models.Task, error) {
	var tasks []models.Task
	err := s.db.SelectContext(ctx, &tasks,
		"SELECT * FROM tasks WHERE order_id = $1 ORDER BY id", orderID)
	return tasks, err
}

// SetTaskStatusTx moves a task to the target status under the task row lock,
// enforcing the task transition table.
func (s *Store) SetTaskStatusTx(ctx context.Context, taskID int64, target models.TaskStatus, expectedVersion *int64) (*models.Task, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var task models.Task
	err = tx.GetContext(ctx, &task, "SELECT * FROM tasks WHERE id = $1 FOR UPDATE", taskID)
	if err == sql.ErrNoRows {
		return nil, apperr.New(apperr.KindNotFound, "task %d not found", taskID)
	}
	if err != nil {
		return nil, err
	}
	if expectedVersion != nil && task.Version != *expectedVersion {
		return nil, apperr.New(apperr.KindConflict,
			"task %d: version %d expected, have %d", taskID, *expectedVersion, task.Version)
	}

	if task.Status == target {
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		return &task, nil
	}
	if !task.Status.CanTransitionTo(target) {
		return nil, apperr.New(apperr.KindInvalidTransition,
			"task %d: cannot move from %s to %s", taskID, task.Status, target)
	}

	now := time.Now()
	_, err = tx.ExecContext(ctx,
		"UPDATE tasks SET status = $1, version = version + 1, updated_at = $2 WHERE id = $3",
		target, now, taskID)
	if err != nil {
		return nil, err
	}
	task.Status = target
	task.Version++
	task.UpdatedAt = now

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &task, nil
}

// AssignTask sets or clears the assignee of a task.
func (s *Store) AssignTask(ctx context.Context, taskID int64, assigneeID *int64) (*models.Task, error) {
	var task models.Task
	err := s.db.GetContext(ctx, &task,
		`UPDATE tasks SET assignee_id = $1, version = version + 1, updated_at = $2
		 WHERE id = $3
		 RETURNING *`,
		assigneeID, time.Now(), taskID)
	if err == sql.ErrNoRows {
		return nil, apperr.New(apperr.KindNotFound, "task %d not found", taskID)
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// DeleteTaskTx deletes a task unless its parent order has completed. The
// parent order row is locked first so the check cannot race with the order's
// completion.
func (s *Store) DeleteTaskTx(ctx context.Context, taskID int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var task models.Task
	err = tx.GetContext(ctx, &task, "SELECT * FROM tasks WHERE id = $1", taskID)
	if err == sql.ErrNoRows {
		return apperr.New(apperr.KindNotFound, "task %d not found", taskID)
	}
	if err != nil {
		return err
	}

	order, err := lockOrder(ctx, tx, task.OrderID, nil)
	if err != nil {
		return err
	}
	if order.Status == models.OrderStatusCompleted {
		return apperr.New(apperr.KindOrderLocked,
			"task %d: order %d is completed", taskID, order.ID)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM tasks WHERE id = $1", taskID); err != nil {
		return err
	}

	return tx.Commit()
}
