package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/quillfire/impetus/internal/domain"
	"github.com/quillfire/impetus/internal/storage"
)

func TestTaskLifecycle(t *testing.T) {
	s := New()
	ctx := context.Background()

	task := &storage.Task{Content: "他打开门，犹豫着要不要进去。"}
	if err := s.CreateTask(ctx, task); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if task.ID == "" {
		t.Fatal("CreateTask left ID empty")
	}
	if task.Version != 1 {
		t.Errorf("version = %d, want 1", task.Version)
	}

	got, err := s.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got.Content != task.Content {
		t.Errorf("content = %q, want %q", got.Content, task.Content)
	}

	got.Content = "他推门进去了。"
	got.LockIDs = []string{"lock_1"}
	if err := s.UpdateTask(ctx, got); err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if got.Version != 2 {
		t.Errorf("version after update = %d, want 2", got.Version)
	}

	if err := s.DeleteTask(ctx, task.ID); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	if _, err := s.GetTask(ctx, task.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetTask after delete: %v, want ErrNotFound", err)
	}
}

func TestUpdateVersionConflict(t *testing.T) {
	s := New()
	ctx := context.Background()

	task := &storage.Task{Content: "first"}
	if err := s.CreateTask(ctx, task); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	stale := &storage.Task{ID: task.ID, Content: "from stale client", Version: task.Version}
	fresh := &storage.Task{ID: task.ID, Content: "from fresh client", Version: task.Version}
	if err := s.UpdateTask(ctx, fresh); err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if err := s.UpdateTask(ctx, stale); !errors.Is(err, storage.ErrVersionConflict) {
		t.Errorf("stale UpdateTask: %v, want ErrVersionConflict", err)
	}
}

func TestUpdateUnknownTask(t *testing.T) {
	s := New()
	err := s.UpdateTask(context.Background(), &storage.Task{ID: "nope", Version: 1})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("UpdateTask: %v, want ErrNotFound", err)
	}
}

func TestActionsAppendAndCascade(t *testing.T) {
	s := New()
	ctx := context.Background()

	task := &storage.Task{Content: "content"}
	if err := s.CreateTask(ctx, task); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	for _, actionID := range []string{"act_1", "act_2"} {
		err := s.RecordAction(ctx, &storage.InterventionAction{
			TaskID:   task.ID,
			ActionID: actionID,
			Action:   domain.ActionProvoke,
			Source:   domain.ModeMuse,
			Content:  "继续。",
			LockID:   "lock_x",
			Anchor:   domain.PosAnchor(10),
		})
		if err != nil {
			t.Fatalf("RecordAction(%s): %v", actionID, err)
		}
	}

	actions, err := s.ListActions(ctx, task.ID)
	if err != nil {
		t.Fatalf("ListActions: %v", err)
	}
	if len(actions) != 2 {
		t.Fatalf("len(actions) = %d, want 2", len(actions))
	}
	if actions[0].ActionID != "act_1" || actions[1].ActionID != "act_2" {
		t.Errorf("actions out of order: %s, %s", actions[0].ActionID, actions[1].ActionID)
	}

	if err := s.DeleteTask(ctx, task.ID); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	if _, err := s.ListActions(ctx, task.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("ListActions after delete: %v, want ErrNotFound", err)
	}
}

func TestRecordActionUnknownTask(t *testing.T) {
	s := New()
	err := s.RecordAction(context.Background(), &storage.InterventionAction{TaskID: "nope"})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("RecordAction: %v, want ErrNotFound", err)
	}
}

func TestGetTaskReturnsCopy(t *testing.T) {
	s := New()
	ctx := context.Background()

	task := &storage.Task{Content: "original", LockIDs: []string{"lock_a"}}
	if err := s.CreateTask(ctx, task); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	got, err := s.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	got.Content = "mutated"
	got.LockIDs[0] = "lock_mutated"

	again, err := s.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if again.Content != "original" || again.LockIDs[0] != "lock_a" {
		t.Error("GetTask result aliases stored task state")
	}
}
