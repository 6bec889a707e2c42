// Package memory is the in-memory TaskStore used by default and in
// tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quillfire/impetus/internal/storage"
)

// Store keeps tasks and actions in maps guarded by one RW mutex.
type Store struct {
	mu      sync.RWMutex
	tasks   map[string]*storage.Task
	actions map[string][]*storage.InterventionAction // keyed by task id
	now     func() time.Time
}

var _ storage.TaskStore = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		tasks:   make(map[string]*storage.Task),
		actions: make(map[string][]*storage.InterventionAction),
		now:     time.Now,
	}
}

func (s *Store) CreateTask(ctx context.Context, task *storage.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	now := s.now().UTC()
	task.Version = 1
	task.CreatedAt = now
	task.UpdatedAt = now

	s.tasks[task.ID] = cloneTask(task)
	return nil
}

func (s *Store) GetTask(ctx context.Context, id string) (*storage.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cloneTask(task), nil
}

func (s *Store) ListTasks(ctx context.Context) ([]*storage.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*storage.Task, 0, len(s.tasks))
	for _, task := range s.tasks {
		result = append(result, cloneTask(task))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (s *Store) UpdateTask(ctx context.Context, task *storage.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.tasks[task.ID]
	if !ok {
		return storage.ErrNotFound
	}
	if current.Version != task.Version {
		return storage.ErrVersionConflict
	}

	current.Content = task.Content
	current.LockIDs = append([]string(nil), task.LockIDs...)
	current.Version++
	current.UpdatedAt = s.now().UTC()

	task.Version = current.Version
	task.UpdatedAt = current.UpdatedAt
	return nil
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.tasks, id)
	delete(s.actions, id)
	return nil
}

func (s *Store) RecordAction(ctx context.Context, action *storage.InterventionAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[action.TaskID]; !ok {
		return storage.ErrNotFound
	}
	if action.ID == "" {
		action.ID = uuid.NewString()
	}
	action.CreatedAt = s.now().UTC()

	stored := *action
	s.actions[action.TaskID] = append(s.actions[action.TaskID], &stored)
	return nil
}

func (s *Store) ListActions(ctx context.Context, taskID string) ([]*storage.InterventionAction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.tasks[taskID]; !ok {
		return nil, storage.ErrNotFound
	}
	records := s.actions[taskID]
	result := make([]*storage.InterventionAction, len(records))
	for i, record := range records {
		stored := *record
		result[i] = &stored
	}
	return result, nil
}

func (s *Store) Close() error { return nil }

func cloneTask(task *storage.Task) *storage.Task {
	clone := *task
	clone.LockIDs = append([]string(nil), task.LockIDs...)
	return &clone
}
