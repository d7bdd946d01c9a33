package tools

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nugget/todo-agent/internal/store"
)

func newTestRegistry(t *testing.T) (*Registry, *store.Store) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.SeedDevUser(); err != nil {
		t.Fatalf("SeedDevUser error: %v", err)
	}
	return NewRegistry(s, store.DevUserID, nil, nil), s
}

func decode(t *testing.T, result string) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(result), &m); err != nil {
		t.Fatalf("result is not JSON: %v\n%s", err, result)
	}
	return m
}

func TestList_FiveToolsInOpenAIShape(t *testing.T) {
	r, _ := newTestRegistry(t)

	list := r.List()
	if len(list) != 5 {
		t.Fatalf("len = %d, want 5", len(list))
	}
	for _, entry := range list {
		if entry["type"] != "function" {
			t.Errorf("type = %v, want function", entry["type"])
		}
		fn, ok := entry["function"].(map[string]any)
		if !ok {
			t.Fatalf("function block missing: %v", entry)
		}
		if fn["name"] == "" || fn["description"] == "" || fn["parameters"] == nil {
			t.Errorf("incomplete tool entry: %v", fn)
		}
	}
}

func TestExecute_AddTask(t *testing.T) {
	r, _ := newTestRegistry(t)

	result := r.Execute(context.Background(), "add_task", `{"title":"Buy milk","description":"2%"}`)
	m := decode(t, result)

	if m["error"] != nil {
		t.Fatalf("unexpected error: %v", m["error"])
	}
	if m["title"] != "Buy milk" {
		t.Errorf("title = %v", m["title"])
	}
	if m["message"] != "Task 'Buy milk' created successfully" {
		t.Errorf("message = %v", m["message"])
	}
	if m["task_id"] == "" {
		t.Error("missing task_id")
	}
}

func TestExecute_AddTask_EmptyTitle(t *testing.T) {
	r, _ := newTestRegistry(t)

	result := r.Execute(context.Background(), "add_task", `{"title":"  "}`)
	m := decode(t, result)

	if m["error"] != "Task title cannot be empty" {
		t.Errorf("error = %v", m["error"])
	}
	if m["tool"] != "add_task" {
		t.Errorf("tool = %v", m["tool"])
	}
}

func TestExecute_ListTasks(t *testing.T) {
	r, s := newTestRegistry(t)
	s.CreateTask(store.DevUserID, "one", "")
	s.CreateTask(store.DevUserID, "two", "details")

	result := r.Execute(context.Background(), "list_tasks", `{}`)
	m := decode(t, result)

	if m["count"] != float64(2) {
		t.Errorf("count = %v, want 2", m["count"])
	}
	tasks := m["tasks"].([]any)
	if len(tasks) != 2 {
		t.Fatalf("tasks len = %d", len(tasks))
	}
	// Newest first
	first := tasks[0].(map[string]any)
	if first["title"] != "two" {
		t.Errorf("first title = %v, want two", first["title"])
	}
	if first["description"] != "details" {
		t.Errorf("description = %v", first["description"])
	}
	second := tasks[1].(map[string]any)
	if second["description"] != nil {
		t.Errorf("empty description should be null, got %v", second["description"])
	}
}

func TestExecute_ListTasks_Filter(t *testing.T) {
	r, s := newTestRegistry(t)
	task, _ := s.CreateTask(store.DevUserID, "done", "")
	s.CreateTask(store.DevUserID, "pending", "")
	s.CompleteTask(task.ID, store.DevUserID)

	result := r.Execute(context.Background(), "list_tasks", `{"is_complete":true}`)
	m := decode(t, result)
	if m["count"] != float64(1) {
		t.Errorf("count = %v, want 1", m["count"])
	}
}

func TestExecute_CompleteTask(t *testing.T) {
	r, s := newTestRegistry(t)
	task, _ := s.CreateTask(store.DevUserID, "finish report", "")

	result := r.Execute(context.Background(), "complete_task", `{"task_id":"`+task.ID+`"}`)
	m := decode(t, result)

	if m["message"] != "Task 'finish report' marked as complete" {
		t.Errorf("message = %v", m["message"])
	}

	// Second completion reports already complete
	result = r.Execute(context.Background(), "complete_task", `{"task_id":"`+task.ID+`"}`)
	m = decode(t, result)
	if m["message"] != "Task 'finish report' is already complete" {
		t.Errorf("message = %v", m["message"])
	}
}

func TestExecute_CompleteTask_InvalidID(t *testing.T) {
	r, _ := newTestRegistry(t)

	result := r.Execute(context.Background(), "complete_task", `{"task_id":"not-a-uuid"}`)
	m := decode(t, result)

	if m["error"] != "Invalid task_id format: not-a-uuid" {
		t.Errorf("error = %v", m["error"])
	}
}

func TestExecute_CompleteTask_NotFound(t *testing.T) {
	r, _ := newTestRegistry(t)
	missing := "44444444-4444-4444-4444-444444444444"

	result := r.Execute(context.Background(), "complete_task", `{"task_id":"`+missing+`"}`)
	m := decode(t, result)

	if m["error"] != "Task not found: "+missing {
		t.Errorf("error = %v", m["error"])
	}
}

func TestExecute_DeleteTask(t *testing.T) {
	r, s := newTestRegistry(t)
	task, _ := s.CreateTask(store.DevUserID, "doomed", "")

	result := r.Execute(context.Background(), "delete_task", `{"task_id":"`+task.ID+`"}`)
	m := decode(t, result)

	if m["message"] != "Task 'doomed' deleted successfully" {
		t.Errorf("message = %v", m["message"])
	}
	if m["task_id"] != task.ID {
		t.Errorf("task_id = %v", m["task_id"])
	}
}

func TestExecute_UpdateTask(t *testing.T) {
	r, s := newTestRegistry(t)
	task, _ := s.CreateTask(store.DevUserID, "old", "keep")

	result := r.Execute(context.Background(), "update_task", `{"task_id":"`+task.ID+`","title":"new"}`)
	m := decode(t, result)

	if m["title"] != "new" {
		t.Errorf("title = %v", m["title"])
	}
	if m["description"] != "keep" {
		t.Errorf("description = %v, want unchanged", m["description"])
	}
	if m["message"] != "Task 'new' updated successfully" {
		t.Errorf("message = %v", m["message"])
	}
}

func TestExecute_UpdateTask_ClearDescription(t *testing.T) {
	r, s := newTestRegistry(t)
	task, _ := s.CreateTask(store.DevUserID, "title", "to clear")

	result := r.Execute(context.Background(), "update_task", `{"task_id":"`+task.ID+`","description":""}`)
	m := decode(t, result)

	if m["description"] != nil {
		t.Errorf("description = %v, want null", m["description"])
	}
}

func TestExecute_UpdateTask_NoFields(t *testing.T) {
	r, s := newTestRegistry(t)
	task, _ := s.CreateTask(store.DevUserID, "title", "")

	result := r.Execute(context.Background(), "update_task", `{"task_id":"`+task.ID+`"}`)
	m := decode(t, result)

	if m["error"] != "At least one field (title or description) must be provided for update" {
		t.Errorf("error = %v", m["error"])
	}
}

func TestExecute_UnknownTool(t *testing.T) {
	r, _ := newTestRegistry(t)

	result := r.Execute(context.Background(), "launch_rocket", `{}`)
	m := decode(t, result)

	if m["error"] != "Unknown tool: launch_rocket" {
		t.Errorf("error = %v", m["error"])
	}
	if m["tool"] != "launch_rocket" {
		t.Errorf("tool = %v", m["tool"])
	}
}

func TestExecute_MalformedArguments(t *testing.T) {
	r, _ := newTestRegistry(t)

	result := r.Execute(context.Background(), "add_task", `{"title": `)
	m := decode(t, result)

	errMsg, _ := m["error"].(string)
	if !strings.HasPrefix(errMsg, "Invalid arguments for add_task") {
		t.Errorf("error = %v", m["error"])
	}
}

func TestExecute_OtherUsersTaskLooksMissing(t *testing.T) {
	r, s := newTestRegistry(t)
	otherID := "00000000-0000-0000-0000-000000000002"
	if _, err := s.CreateUser(otherID, "other@example.com", "pw"); err != nil {
		t.Fatalf("CreateUser error: %v", err)
	}
	task, _ := s.CreateTask(otherID, "their secret", "")

	result := r.Execute(context.Background(), "delete_task", `{"task_id":"`+task.ID+`"}`)
	m := decode(t, result)

	if m["error"] != "Task not found: "+task.ID {
		t.Errorf("error = %v, must not reveal existence", m["error"])
	}

	// And the task survives.
	if _, err := s.GetTask(task.ID, otherID); err != nil {
		t.Errorf("other user's task should be untouched: %v", err)
	}
}
