package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/taskdeck/taskdeck/internal/types"
)

const taskColumns = `t.id, t.user_id, t.title, t.description, t.completed,
	t.category_id, c.name, t.version, t.created_at, t.updated_at`

const taskFrom = `FROM tasks t LEFT JOIN categories c ON c.id = t.category_id`

// CreateTask inserts a new task for userID and returns it with its assigned
// id and version.
func (s *Store) CreateTask(userID string, req types.CreateTaskRequest) (types.Task, error) {
	return s.CreateTaskContext(context.Background(), userID, req)
}

// CreateTaskContext inserts a new task with context support.
func (s *Store) CreateTaskContext(ctx context.Context, userID string, req types.CreateTaskRequest) (types.Task, error) {
	now := nowUTC()
	res, err := s.conn.ExecContext(ctx, `
		INSERT INTO tasks (user_id, title, description, completed, category_id, version, created_at, updated_at)
		VALUES (?, ?, ?, 0, ?, 1, ?, ?)`,
		userID, req.Title, req.Description, nullInt(req.CategoryID), now, now,
	)
	if err != nil {
		return types.Task{}, fmt.Errorf("failed to insert task: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return types.Task{}, fmt.Errorf("failed to read inserted task id: %w", err)
	}
	return s.GetTaskContext(ctx, userID, int(id))
}

// GetTask retrieves one task owned by userID.
// Returns ErrNotFound for missing or foreign tasks.
func (s *Store) GetTask(userID string, taskID int) (types.Task, error) {
	return s.GetTaskContext(context.Background(), userID, taskID)
}

// GetTaskContext retrieves one task with context support.
func (s *Store) GetTaskContext(ctx context.Context, userID string, taskID int) (types.Task, error) {
	row := s.conn.QueryRowContext(ctx, `
		SELECT `+taskColumns+` `+taskFrom+`
		WHERE t.id = ? AND t.user_id = ?`,
		taskID, userID,
	)
	task, err := scanTask(row)
	if err == sql.ErrNoRows {
		return types.Task{}, ErrNotFound
	}
	if err != nil {
		return types.Task{}, fmt.Errorf("failed to get task %d: %w", taskID, err)
	}
	return task, nil
}

// ListTasks returns all of userID's tasks, newest first.
func (s *Store) ListTasks(userID string) ([]types.Task, error) {
	return s.ListTasksContext(context.Background(), userID)
}

// ListTasksContext returns all tasks with context support.
func (s *Store) ListTasksContext(ctx context.Context, userID string) ([]types.Task, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT `+taskColumns+` `+taskFrom+`
		WHERE t.user_id = ?
		ORDER BY t.created_at DESC, t.id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	return scanTasks(rows)
}

// UpdateTask applies a partial update to one task. A version carried in the
// request must match the stored version or ErrVersionConflict is returned;
// every successful update increments the version.
func (s *Store) UpdateTask(userID string, taskID int, req types.UpdateTaskRequest) (types.Task, error) {
	return s.UpdateTaskContext(context.Background(), userID, taskID, req)
}

// UpdateTaskContext applies a partial update with context support.
func (s *Store) UpdateTaskContext(ctx context.Context, userID string, taskID int, req types.UpdateTaskRequest) (types.Task, error) {
	current, err := s.GetTaskContext(ctx, userID, taskID)
	if err != nil {
		return types.Task{}, err
	}
	if req.Version != nil && *req.Version != current.Version {
		return types.Task{}, ErrVersionConflict
	}

	if req.Title != nil {
		current.Title = *req.Title
	}
	if req.Description != nil {
		current.Description = *req.Description
	}
	if req.Completed != nil {
		current.Completed = *req.Completed
	}
	if req.CategoryID != nil {
		current.CategoryID = req.CategoryID
	}

	// The WHERE version guard catches writers racing between the read above
	// and this update.
	res, err := s.conn.ExecContext(ctx, `
		UPDATE tasks
		SET title = ?, description = ?, completed = ?, category_id = ?,
		    version = version + 1, updated_at = ?
		WHERE id = ? AND user_id = ? AND version = ?`,
		current.Title, current.Description, current.Completed,
		nullInt(current.CategoryID), nowUTC(),
		taskID, userID, current.Version,
	)
	if err != nil {
		return types.Task{}, fmt.Errorf("failed to update task %d: %w", taskID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return types.Task{}, fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		return types.Task{}, ErrVersionConflict
	}

	return s.GetTaskContext(ctx, userID, taskID)
}

// ToggleTask flips one task's completion and returns the updated row.
func (s *Store) ToggleTask(userID string, taskID int) (types.Task, error) {
	return s.ToggleTaskContext(context.Background(), userID, taskID)
}

// ToggleTaskContext flips completion with context support.
func (s *Store) ToggleTaskContext(ctx context.Context, userID string, taskID int) (types.Task, error) {
	res, err := s.conn.ExecContext(ctx, `
		UPDATE tasks
		SET completed = 1 - completed, version = version + 1, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		nowUTC(), taskID, userID,
	)
	if err != nil {
		return types.Task{}, fmt.Errorf("failed to toggle task %d: %w", taskID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return types.Task{}, fmt.Errorf("failed to read toggle result: %w", err)
	}
	if affected == 0 {
		return types.Task{}, ErrNotFound
	}

	return s.GetTaskContext(ctx, userID, taskID)
}

// DeleteTask removes one task owned by userID.
func (s *Store) DeleteTask(userID string, taskID int) error {
	return s.DeleteTaskContext(context.Background(), userID, taskID)
}

// DeleteTaskContext removes one task with context support.
func (s *Store) DeleteTaskContext(ctx context.Context, userID string, taskID int) error {
	res, err := s.conn.ExecContext(ctx,
		`DELETE FROM tasks WHERE id = ? AND user_id = ?`,
		taskID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete task %d: %w", taskID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// TodayTasks returns tasks created during the current UTC day, newest first.
// The list is truncated to limit; Count is the true total and may exceed it.
func (s *Store) TodayTasks(userID string, limit int) (types.TodayTasks, error) {
	return s.TodayTasksContext(context.Background(), userID, limit)
}

// TodayTasksContext returns today's tasks with context support.
func (s *Store) TodayTasksContext(ctx context.Context, userID string, limit int) (types.TodayTasks, error) {
	dayStart := time.Now().UTC().Truncate(24 * time.Hour).Format(time.RFC3339)

	var count int
	err := s.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tasks WHERE user_id = ? AND created_at >= ?`,
		userID, dayStart,
	).Scan(&count)
	if err != nil {
		return types.TodayTasks{}, fmt.Errorf("failed to count today's tasks: %w", err)
	}

	rows, err := s.conn.QueryContext(ctx, `
		SELECT `+taskColumns+` `+taskFrom+`
		WHERE t.user_id = ? AND t.created_at >= ?
		ORDER BY t.created_at DESC, t.id DESC
		LIMIT ?`,
		userID, dayStart, limit,
	)
	if err != nil {
		return types.TodayTasks{}, fmt.Errorf("failed to query today's tasks: %w", err)
	}
	defer rows.Close()

	tasks, err := scanTasks(rows)
	if err != nil {
		return types.TodayTasks{}, err
	}
	return types.TodayTasks{Tasks: tasks, Count: count}, nil
}

// TaskStats returns userID's total/completed/pending counts.
func (s *Store) TaskStats(userID string) (types.TaskStats, error) {
	return s.TaskStatsContext(context.Background(), userID)
}

// TaskStatsContext returns aggregate counts with context support.
func (s *Store) TaskStatsContext(ctx context.Context, userID string) (types.TaskStats, error) {
	var stats types.TaskStats
	err := s.conn.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(completed), 0)
		FROM tasks WHERE user_id = ?`,
		userID,
	).Scan(&stats.Total, &stats.Completed)
	if err != nil {
		return types.TaskStats{}, fmt.Errorf("failed to compute task stats: %w", err)
	}
	stats.Pending = stats.Total - stats.Completed
	return stats, nil
}

// CategoryStats returns per-category task counts ordered by count descending.
// Every category appears, including those with no tasks.
func (s *Store) CategoryStats(userID string) ([]types.CategoryStat, error) {
	return s.CategoryStatsContext(context.Background(), userID)
}

// CategoryStatsContext returns per-category counts with context support.
func (s *Store) CategoryStatsContext(ctx context.Context, userID string) ([]types.CategoryStat, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT c.id, c.name, c.icon, COUNT(t.id)
		FROM categories c
		LEFT JOIN tasks t ON t.category_id = c.id
		WHERE c.user_id = ?
		GROUP BY c.id
		ORDER BY COUNT(t.id) DESC, c.name ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query category stats: %w", err)
	}
	defer rows.Close()

	stats := []types.CategoryStat{}
	for rows.Next() {
		var s types.CategoryStat
		if err := rows.Scan(&s.CategoryID, &s.Name, &s.Icon, &s.Count); err != nil {
			return nil, fmt.Errorf("failed to scan category stat: %w", err)
		}
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating category stats: %w", err)
	}
	return stats, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (types.Task, error) {
	var task types.Task
	var completed int
	var categoryID sql.NullInt64
	var categoryName sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(
		&task.ID,
		&task.UserID,
		&task.Title,
		&task.Description,
		&completed,
		&categoryID,
		&categoryName,
		&task.Version,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return types.Task{}, err
	}

	task.Completed = completed != 0
	task.CategoryID = intPtr(categoryID)
	task.CategoryName = categoryName.String
	task.CreatedAt = parseTime(createdAt)
	task.UpdatedAt = parseTime(updatedAt)
	return task, nil
}

func scanTasks(rows *sql.Rows) ([]types.Task, error) {
	tasks := []types.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}
	return tasks, nil
}
