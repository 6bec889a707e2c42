package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/quillfire/impetus/internal/storage"
)

func doJSON(env *testEnv, method, path, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	env.server.Router.ServeHTTP(rec, req)
	return rec
}

func createTask(t *testing.T, env *testEnv, content string) storage.Task {
	t.Helper()
	rec := doJSON(env, http.MethodPost, "/api/v1/tasks", `{"content": "`+content+`"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	var task storage.Task
	if err := json.Unmarshal(rec.Body.Bytes(), &task); err != nil {
		t.Fatalf("decode task: %v", err)
	}
	return task
}

func TestTaskCRUD(t *testing.T) {
	env := newTestEnv(t, debugConfig())

	task := createTask(t, env, "初稿内容")
	if task.ID == "" || task.Version != 1 {
		t.Fatalf("created task = %+v", task)
	}

	rec := doJSON(env, http.MethodGet, "/api/v1/tasks/"+task.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	rec = doJSON(env, http.MethodPut, "/api/v1/tasks/"+task.ID,
		`{"content": "第二稿", "lock_ids": ["lock_1"], "version": 1}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", rec.Code, rec.Body.String())
	}
	var updated storage.Task
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("decode updated: %v", err)
	}
	if updated.Version != 2 || updated.Content != "第二稿" {
		t.Errorf("updated = %+v, want version 2 with new content", updated)
	}

	rec = doJSON(env, http.MethodDelete, "/api/v1/tasks/"+task.ID, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = doJSON(env, http.MethodGet, "/api/v1/tasks/"+task.ID, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", rec.Code)
	}
}

func TestTaskUpdateConflicts(t *testing.T) {
	env := newTestEnv(t, debugConfig())
	task := createTask(t, env, "内容")

	rec := doJSON(env, http.MethodPut, "/api/v1/tasks/"+task.ID,
		`{"content": "新内容", "version": 1}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d", rec.Code)
	}

	rec = doJSON(env, http.MethodPut, "/api/v1/tasks/"+task.ID,
		`{"content": "过期的写入", "version": 1}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("stale update status = %d, want 409", rec.Code)
	}
	if body := decodeError(t, rec); body.Code != "version_conflict" {
		t.Errorf("code = %q, want version_conflict", body.Code)
	}
}

func TestTaskValidation(t *testing.T) {
	env := newTestEnv(t, debugConfig())

	rec := doJSON(env, http.MethodPost, "/api/v1/tasks", `{"content": ""}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("empty content status = %d, want 422", rec.Code)
	}
	rec = doJSON(env, http.MethodPost, "/api/v1/tasks", "{")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("malformed body status = %d, want 422", rec.Code)
	}
}

func TestTaskActionsRoute(t *testing.T) {
	env := newTestEnv(t, debugConfig())
	task := createTask(t, env, "内容")

	headers := defaultHeaders("key-1")
	headers[HeaderTaskID] = task.ID
	rec := postIntervention(env, interventionBody("他打开门，犹豫着要不要进去。"), headers)
	if rec.Code != http.StatusOK {
		t.Fatalf("generate status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(env, http.MethodGet, "/api/v1/tasks/"+task.ID+"/actions", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("actions status = %d", rec.Code)
	}
	var actions []storage.InterventionAction
	if err := json.Unmarshal(rec.Body.Bytes(), &actions); err != nil {
		t.Fatalf("decode actions: %v", err)
	}
	if len(actions) != 1 {
		t.Errorf("len(actions) = %d, want 1", len(actions))
	}

	rec = doJSON(env, http.MethodGet, "/api/v1/tasks/nope/actions", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown task actions status = %d, want 404", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, debugConfig())
	rec := doJSON(env, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", rec.Code)
	}
}

func TestMetricsRouteGatedByConfig(t *testing.T) {
	disabled := newTestEnv(t, debugConfig())
	if rec := doJSON(disabled, http.MethodGet, "/metrics", ""); rec.Code != http.StatusNotFound {
		t.Errorf("metrics disabled status = %d, want 404", rec.Code)
	}

	cfg := debugConfig()
	cfg.Metrics.Enabled = true
	enabled := newTestEnv(t, cfg)
	if rec := doJSON(enabled, http.MethodGet, "/metrics", ""); rec.Code != http.StatusOK {
		t.Errorf("metrics enabled status = %d, want 200", rec.Code)
	}
}
