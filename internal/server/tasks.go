package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/quillfire/impetus/internal/storage"
)

// TaskHandler serves the task CRUD and audit-history routes.
type TaskHandler struct {
	logger *slog.Logger
	store  storage.TaskStore
}

// NewTaskHandler builds the handler over a store.
func NewTaskHandler(logger *slog.Logger, store storage.TaskStore) *TaskHandler {
	return &TaskHandler{logger: logger, store: store}
}

// Register mounts the task routes.
func (h *TaskHandler) Register(r chi.Router) {
	r.Route("/api/v1/tasks", func(r chi.Router) {
		r.Post("/", h.create)
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.remove)
		r.Get("/{id}/actions", h.actions)
	})
}

type taskPayload struct {
	Content string   `json:"content"`
	LockIDs []string `json:"lock_ids"`
	Version int      `json:"version"`
}

func (h *TaskHandler) create(w http.ResponseWriter, r *http.Request) {
	var payload taskPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusUnprocessableEntity, codeValidationError, "invalid request body: "+err.Error(), "")
		return
	}
	if payload.Content == "" {
		writeError(w, http.StatusUnprocessableEntity, codeValidationError, "content cannot be empty", "")
		return
	}

	task := &storage.Task{Content: payload.Content, LockIDs: payload.LockIDs}
	if err := h.store.CreateTask(r.Context(), task); err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (h *TaskHandler) list(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.store.ListTasks(r.Context())
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) get(w http.ResponseWriter, r *http.Request) {
	task, err := h.store.GetTask(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) update(w http.ResponseWriter, r *http.Request) {
	var payload taskPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusUnprocessableEntity, codeValidationError, "invalid request body: "+err.Error(), "")
		return
	}
	if payload.Content == "" {
		writeError(w, http.StatusUnprocessableEntity, codeValidationError, "content cannot be empty", "")
		return
	}

	task := &storage.Task{
		ID:      chi.URLParam(r, "id"),
		Content: payload.Content,
		LockIDs: payload.LockIDs,
		Version: payload.Version,
	}
	if err := h.store.UpdateTask(r.Context(), task); err != nil {
		h.writeStoreError(w, r, err)
		return
	}

	updated, err := h.store.GetTask(r.Context(), task.ID)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *TaskHandler) remove(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteTask(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TaskHandler) actions(w http.ResponseWriter, r *http.Request) {
	actions, err := h.store.ListActions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, actions)
}

func (h *TaskHandler) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	AddError(r.Context(), err)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "task_not_found", err.Error(), "")
	case errors.Is(err, storage.ErrVersionConflict):
		writeError(w, http.StatusConflict, "version_conflict", err.Error(), "")
	default:
		writeError(w, http.StatusInternalServerError, "storage_error", err.Error(), "")
	}
}
