package sqldb

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/quillfire/impetus/internal/domain"
	"github.com/quillfire/impetus/internal/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "impetus.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestTaskRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	task := &storage.Task{Content: "他打开门，犹豫着要不要进去。", LockIDs: []string{"lock_a", "lock_b"}}
	if err := s.CreateTask(ctx, task); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	got, err := s.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got.Content != task.Content {
		t.Errorf("content = %q, want %q", got.Content, task.Content)
	}
	if len(got.LockIDs) != 2 || got.LockIDs[0] != "lock_a" || got.LockIDs[1] != "lock_b" {
		t.Errorf("lock_ids = %v, want [lock_a lock_b]", got.LockIDs)
	}
	if got.Version != 1 {
		t.Errorf("version = %d, want 1", got.Version)
	}
}

func TestGetTaskNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetTask(context.Background(), "nope"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetTask: %v, want ErrNotFound", err)
	}
}

func TestUpdateTaskOptimisticLocking(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	task := &storage.Task{Content: "first"}
	if err := s.CreateTask(ctx, task); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	fresh := &storage.Task{ID: task.ID, Content: "second", Version: 1}
	if err := s.UpdateTask(ctx, fresh); err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if fresh.Version != 2 {
		t.Errorf("version after update = %d, want 2", fresh.Version)
	}

	stale := &storage.Task{ID: task.ID, Content: "third", Version: 1}
	if err := s.UpdateTask(ctx, stale); !errors.Is(err, storage.ErrVersionConflict) {
		t.Errorf("stale UpdateTask: %v, want ErrVersionConflict", err)
	}

	missing := &storage.Task{ID: "nope", Content: "x", Version: 1}
	if err := s.UpdateTask(ctx, missing); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("missing UpdateTask: %v, want ErrNotFound", err)
	}
}

func TestListTasks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, content := range []string{"a", "b", "c"} {
		if err := s.CreateTask(ctx, &storage.Task{Content: content}); err != nil {
			t.Fatalf("CreateTask(%s): %v", content, err)
		}
	}
	tasks, err := s.ListTasks(ctx)
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(tasks) != 3 {
		t.Errorf("len(tasks) = %d, want 3", len(tasks))
	}
}

func TestActionsRecordAndCascadeDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	task := &storage.Task{Content: "content"}
	if err := s.CreateTask(ctx, task); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	action := &storage.InterventionAction{
		TaskID:   task.ID,
		ActionID: "act_1",
		Action:   domain.ActionRewrite,
		Source:   domain.ModeLoki,
		Content:  "改写。",
		LockID:   "lock_1",
		Anchor:   domain.RangeAnchor(80, 100),
		Context:  "原始上下文。",
	}
	if err := s.RecordAction(ctx, action); err != nil {
		t.Fatalf("RecordAction: %v", err)
	}

	actions, err := s.ListActions(ctx, task.ID)
	if err != nil {
		t.Fatalf("ListActions: %v", err)
	}
	if len(actions) != 1 {
		t.Fatalf("len(actions) = %d, want 1", len(actions))
	}
	got := actions[0]
	if got.Action != domain.ActionRewrite || got.Source != domain.ModeLoki {
		t.Errorf("action/source = %s/%s, want rewrite/loki", got.Action, got.Source)
	}
	if got.Anchor.Type != domain.AnchorTypeRange || got.Anchor.From != 80 || got.Anchor.To != 100 {
		t.Errorf("anchor = %+v, want range [80, 100)", got.Anchor)
	}

	if err := s.DeleteTask(ctx, task.ID); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	if _, err := s.ListActions(ctx, task.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("ListActions after delete: %v, want ErrNotFound", err)
	}
}

func TestRecordActionUnknownTask(t *testing.T) {
	s := newTestStore(t)
	err := s.RecordAction(context.Background(), &storage.InterventionAction{TaskID: "nope"})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("RecordAction: %v, want ErrNotFound", err)
	}
}

func TestDeleteTaskNotFound(t *testing.T) {
	s := newTestStore(t)
	if err := s.DeleteTask(context.Background(), "nope"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("DeleteTask: %v, want ErrNotFound", err)
	}
}
