// Package sqldb is the SQL TaskStore backed by sqlite.
package sqldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/quillfire/impetus/internal/domain"
	"github.com/quillfire/impetus/internal/storage"
)

// Store persists tasks and intervention actions in sqlite. Lock-id lists
// and anchors are stored as JSON text columns.
type Store struct {
	db *sqlx.DB
}

var _ storage.TaskStore = (*Store)(nil)

// New opens the database and initializes the schema.
func New(dsn string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS tasks (
id TEXT PRIMARY KEY,
content TEXT NOT NULL,
lock_ids TEXT NOT NULL,
version INTEGER NOT NULL,
created_at TIMESTAMP NOT NULL,
updated_at TIMESTAMP NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS intervention_actions (
id TEXT PRIMARY KEY,
task_id TEXT NOT NULL,
action_id TEXT NOT NULL,
action TEXT NOT NULL,
source TEXT NOT NULL,
content TEXT NOT NULL,
lock_id TEXT NOT NULL,
anchor TEXT NOT NULL,
context TEXT NOT NULL,
issued_at TIMESTAMP NOT NULL,
created_at TIMESTAMP NOT NULL,
FOREIGN KEY (task_id) REFERENCES tasks(id) ON DELETE CASCADE
)`,
		`CREATE INDEX IF NOT EXISTS idx_actions_task ON intervention_actions(task_id, created_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}

func (s *Store) CreateTask(ctx context.Context, task *storage.Task) error {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	task.Version = 1
	task.CreatedAt = now
	task.UpdatedAt = now

	lockIDs, err := json.Marshal(lockIDsOrEmpty(task.LockIDs))
	if err != nil {
		return fmt.Errorf("failed to encode lock ids: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tasks (id, content, lock_ids, version, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		task.ID, task.Content, string(lockIDs), task.Version, task.CreatedAt, task.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}
	return nil
}

type taskRow struct {
	ID        string    `db:"id"`
	Content   string    `db:"content"`
	LockIDs   string    `db:"lock_ids"`
	Version   int       `db:"version"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r taskRow) toTask() (*storage.Task, error) {
	var lockIDs []string
	if err := json.Unmarshal([]byte(r.LockIDs), &lockIDs); err != nil {
		return nil, fmt.Errorf("failed to decode lock ids: %w", err)
	}
	return &storage.Task{
		ID:        r.ID,
		Content:   r.Content,
		LockIDs:   lockIDs,
		Version:   r.Version,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}, nil
}

func (s *Store) GetTask(ctx context.Context, id string) (*storage.Task, error) {
	var row taskRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM tasks WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load task: %w", err)
	}
	return row.toTask()
}

func (s *Store) ListTasks(ctx context.Context) ([]*storage.Task, error) {
	var rows []taskRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT * FROM tasks ORDER BY created_at`); err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	result := make([]*storage.Task, 0, len(rows))
	for _, row := range rows {
		task, err := row.toTask()
		if err != nil {
			return nil, err
		}
		result = append(result, task)
	}
	return result, nil
}

func (s *Store) UpdateTask(ctx context.Context, task *storage.Task) error {
	lockIDs, err := json.Marshal(lockIDsOrEmpty(task.LockIDs))
	if err != nil {
		return fmt.Errorf("failed to encode lock ids: %w", err)
	}
	updatedAt := time.Now().UTC()

	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET content = ?, lock_ids = ?, version = version + 1, updated_at = ?
		 WHERE id = ? AND version = ?`,
		task.Content, string(lockIDs), updatedAt, task.ID, task.Version)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		// Distinguish missing from stale.
		var exists int
		if err := s.db.GetContext(ctx, &exists, `SELECT COUNT(1) FROM tasks WHERE id = ?`, task.ID); err != nil {
			return fmt.Errorf("failed to check task existence: %w", err)
		}
		if exists == 0 {
			return storage.ErrNotFound
		}
		return storage.ErrVersionConflict
	}

	task.Version++
	task.UpdatedAt = updatedAt
	return nil
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) RecordAction(ctx context.Context, action *storage.InterventionAction) error {
	if action.ID == "" {
		action.ID = uuid.NewString()
	}
	action.CreatedAt = time.Now().UTC()

	var taskCount int
	if err := s.db.GetContext(ctx, &taskCount, `SELECT COUNT(*) FROM tasks WHERE id = ?`, action.TaskID); err != nil {
		return fmt.Errorf("failed to check task: %w", err)
	}
	if taskCount == 0 {
		return storage.ErrNotFound
	}

	anchor, err := json.Marshal(action.Anchor)
	if err != nil {
		return fmt.Errorf("failed to encode anchor: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO intervention_actions
		 (id, task_id, action_id, action, source, content, lock_id, anchor, context, issued_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		action.ID, action.TaskID, action.ActionID, string(action.Action), string(action.Source),
		action.Content, action.LockID, string(anchor), action.Context, action.IssuedAt, action.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert action: %w", err)
	}
	return nil
}

type actionRow struct {
	ID        string    `db:"id"`
	TaskID    string    `db:"task_id"`
	ActionID  string    `db:"action_id"`
	Action    string    `db:"action"`
	Source    string    `db:"source"`
	Content   string    `db:"content"`
	LockID    string    `db:"lock_id"`
	Anchor    string    `db:"anchor"`
	Context   string    `db:"context"`
	IssuedAt  time.Time `db:"issued_at"`
	CreatedAt time.Time `db:"created_at"`
}

func (s *Store) ListActions(ctx context.Context, taskID string) ([]*storage.InterventionAction, error) {
	if _, err := s.GetTask(ctx, taskID); err != nil {
		return nil, err
	}

	var rows []actionRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM intervention_actions WHERE task_id = ? ORDER BY created_at`, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list actions: %w", err)
	}

	result := make([]*storage.InterventionAction, 0, len(rows))
	for _, row := range rows {
		var anchor domain.Anchor
		if err := json.Unmarshal([]byte(row.Anchor), &anchor); err != nil {
			return nil, fmt.Errorf("failed to decode anchor: %w", err)
		}
		result = append(result, &storage.InterventionAction{
			ID:        row.ID,
			TaskID:    row.TaskID,
			ActionID:  row.ActionID,
			Action:    domain.Action(row.Action),
			Source:    domain.Mode(row.Source),
			Content:   row.Content,
			LockID:    row.LockID,
			Anchor:    anchor,
			Context:   row.Context,
			IssuedAt:  row.IssuedAt,
			CreatedAt: row.CreatedAt,
		})
	}
	return result, nil
}

func (s *Store) Close() error { return s.db.Close() }

func lockIDsOrEmpty(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
