// Package storage defines the task and intervention-action entities and
// the store interface their persistence implementations satisfy.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/quillfire/impetus/internal/domain"
)

// ErrNotFound is returned when the requested task does not exist.
var ErrNotFound = errors.New("task not found")

// ErrVersionConflict is returned when an update carries a stale version.
var ErrVersionConflict = errors.New("task version conflict")

// Task is a writing task: the document a writer is working on plus the
// lock tokens interventions have placed into it. Version is bumped on
// every successful update and checked for optimistic locking.
type Task struct {
	ID        string    `db:"id" json:"id"`
	Content   string    `db:"content" json:"content"`
	LockIDs   []string  `db:"-" json:"lock_ids"`
	Version   int       `db:"version" json:"version"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// InterventionAction is the append-only audit record derived from one
// finalized intervention response plus its request context. Actions are
// never updated or deleted individually; they go away only when their
// parent task is deleted.
type InterventionAction struct {
	ID        string        `db:"id" json:"id"`
	TaskID    string        `db:"task_id" json:"task_id"`
	ActionID  string        `db:"action_id" json:"action_id"`
	Action    domain.Action `db:"action" json:"action"`
	Source    domain.Mode   `db:"source" json:"source"`
	Content   string        `db:"content" json:"content,omitempty"`
	LockID    string        `db:"lock_id" json:"lock_id,omitempty"`
	Anchor    domain.Anchor `db:"-" json:"anchor"`
	Context   string        `db:"context" json:"context"`
	IssuedAt  time.Time     `db:"issued_at" json:"issued_at"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
}

// TaskStore persists tasks and their intervention audit trail.
type TaskStore interface {
	CreateTask(ctx context.Context, task *Task) error
	GetTask(ctx context.Context, id string) (*Task, error)
	ListTasks(ctx context.Context) ([]*Task, error)
	// UpdateTask replaces content and lock ids if task.Version matches the
	// stored version, then bumps the version. Returns ErrVersionConflict
	// on a stale version and ErrNotFound for an unknown id.
	UpdateTask(ctx context.Context, task *Task) error
	// DeleteTask removes the task and cascade-deletes its actions.
	DeleteTask(ctx context.Context, id string) error

	RecordAction(ctx context.Context, action *InterventionAction) error
	ListActions(ctx context.Context, taskID string) ([]*InterventionAction, error)

	Close() error
}
