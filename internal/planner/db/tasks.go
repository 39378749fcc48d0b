package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/rsned/endfield-planner-server/pkg/planner"
)

// taskDefaultsKey is the sync_metadata key holding the task defaults document.
const taskDefaultsKey = "task_defaults"

// TaskStore handles the recurring task list.
type TaskStore struct {
	db *DB
}

// NewTaskStore creates a new TaskStore.
func NewTaskStore(db *DB) *TaskStore {
	return &TaskStore{db: db}
}

// GetAllTasks returns every task with its steps, in import order.
func (s *TaskStore) GetAllTasks(ctx context.Context) ([]planner.TaskRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.type, t.title, t.description, t.access, t.default_order, st.step
		FROM tasks t
		LEFT JOIN task_steps st ON st.task_id = t.id
		ORDER BY t.position ASC, st.position ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []planner.TaskRecord
	index := make(map[string]int)
	for rows.Next() {
		var rec planner.TaskRecord
		var step sql.NullString
		if err := rows.Scan(
			&rec.ID,
			&rec.Type,
			&rec.Title,
			&rec.Desc,
			&rec.Access,
			&rec.DefaultOrder,
			&step,
		); err != nil {
			return nil, fmt.Errorf("scanning task: %w", err)
		}

		i, ok := index[rec.ID]
		if !ok {
			tasks = append(tasks, rec)
			i = len(tasks) - 1
			index[rec.ID] = i
		}
		if step.Valid {
			tasks[i].Steps = append(tasks[i].Steps, step.String)
		}
	}

	return tasks, rows.Err()
}

// CountTasks returns the total number of tasks.
func (s *TaskStore) CountTasks(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting tasks: %w", err)
	}
	return count, nil
}

// ReplaceTasks replaces the task list in a transaction.
func (s *TaskStore) ReplaceTasks(ctx context.Context, tasks []planner.TaskRecord) error {
	return s.db.InTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM tasks`); err != nil {
			return fmt.Errorf("clearing tasks: %w", err)
		}

		taskStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO tasks (id, type, title, description, access, default_order, position)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("preparing task statement: %w", err)
		}
		defer func() { _ = taskStmt.Close() }()

		stepStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO task_steps (task_id, position, step) VALUES (?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("preparing step statement: %w", err)
		}
		defer func() { _ = stepStmt.Close() }()

		for pos, t := range tasks {
			_, err := taskStmt.ExecContext(ctx,
				t.ID, string(t.Type), t.Title, t.Desc, t.Access, t.DefaultOrder, pos,
			)
			if err != nil {
				return fmt.Errorf("inserting task %s: %w", t.ID, err)
			}
			for spos, step := range t.Steps {
				if _, err := stepStmt.ExecContext(ctx, t.ID, spos, step); err != nil {
					return fmt.Errorf("inserting step for %s: %w", t.ID, err)
				}
			}
		}

		return nil
	})
}

// GetTaskDefaults returns the stored task defaults, or nil if none were imported.
func (s *TaskStore) GetTaskDefaults(ctx context.Context) (*planner.TaskDefaults, error) {
	raw, err := s.db.GetSyncMetadata(ctx, taskDefaultsKey)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}

	var defaults planner.TaskDefaults
	if err := json.Unmarshal([]byte(raw), &defaults); err != nil {
		return nil, fmt.Errorf("decoding task defaults: %w", err)
	}
	return &defaults, nil
}

// SetTaskDefaults stores the task defaults document.
func (s *TaskStore) SetTaskDefaults(ctx context.Context, defaults planner.TaskDefaults) error {
	data, err := json.Marshal(defaults)
	if err != nil {
		return fmt.Errorf("encoding task defaults: %w", err)
	}
	return s.db.SetSyncMetadata(ctx, taskDefaultsKey, string(data))
}

// ClearTasks removes all tasks and the task defaults.
func (s *TaskStore) ClearTasks(ctx context.Context) error {
	return s.db.InTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM tasks`); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM sync_metadata WHERE key = ?`, taskDefaultsKey)
		return err
	})
}
