package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nugget/todo-agent/internal/store"
)

// Tool represents a callable tool.
type Tool struct {
	Name        string                                                          `json:"name"`
	Description string                                                          `json:"description"`
	Parameters  map[string]any                                                  `json:"parameters"`
	Handler     func(ctx context.Context, args map[string]any) (string, error) `json:"-"`
}

// Recorder receives per-call timing. Implemented by the metrics
// collector; a nil Recorder disables recording.
type Recorder interface {
	RecordToolCall(name string, duration time.Duration, success bool)
}

// Registry holds the task tools, bound to one user and one store at
// construction so no request state leaks across users.
type Registry struct {
	tools   map[string]*Tool
	store   *store.Store
	userID  string
	logger  *slog.Logger
	metrics Recorder
}

// NewRegistry creates a tool registry scoped to userID.
func NewRegistry(st *store.Store, userID string, logger *slog.Logger, metrics Recorder) *Registry {
	r := &Registry{
		tools:   make(map[string]*Tool),
		store:   st,
		userID:  userID,
		logger:  logger,
		metrics: metrics,
	}
	r.registerBuiltins()
	return r
}

func (r *Registry) registerBuiltins() {
	r.Register(&Tool{
		Name:        "add_task",
		Description: "Create a new todo task for the user. Use when the user wants to add, create, or remember something to do.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"title": map[string]any{
					"type":        "string",
					"description": "Task title (1-200 characters)",
				},
				"description": map[string]any{
					"type":        "string",
					"description": "Optional task description (max 1000 characters)",
				},
			},
			"required": []string{"title"},
		},
		Handler: r.handleAddTask,
	})

	r.Register(&Tool{
		Name:        "list_tasks",
		Description: "List the user's tasks, newest first. Optionally filter by completion status.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"is_complete": map[string]any{
					"type":        "boolean",
					"description": "Filter by completion status. Omit to list all tasks.",
				},
			},
		},
		Handler: r.handleListTasks,
	})

	r.Register(&Tool{
		Name:        "complete_task",
		Description: "Mark a task as complete. Requires the task's ID; call list_tasks first if you only know the title.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"task_id": map[string]any{
					"type":        "string",
					"description": "UUID of the task to complete",
				},
			},
			"required": []string{"task_id"},
		},
		Handler: r.handleCompleteTask,
	})

	r.Register(&Tool{
		Name:        "delete_task",
		Description: "Delete a task permanently. Requires the task's ID; call list_tasks first if you only know the title.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"task_id": map[string]any{
					"type":        "string",
					"description": "UUID of the task to delete",
				},
			},
			"required": []string{"task_id"},
		},
		Handler: r.handleDeleteTask,
	})

	r.Register(&Tool{
		Name:        "update_task",
		Description: "Update a task's title and/or description. Requires the task's ID and at least one field to change.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"task_id": map[string]any{
					"type":        "string",
					"description": "UUID of the task to update",
				},
				"title": map[string]any{
					"type":        "string",
					"description": "New task title (1-200 characters)",
				},
				"description": map[string]any{
					"type":        "string",
					"description": "New task description (max 1000 characters). An empty string clears it.",
				},
			},
			"required": []string{"task_id"},
		},
		Handler: r.handleUpdateTask,
	})
}

// Register adds a tool to the registry.
func (r *Registry) Register(t *Tool) {
	r.tools[t.Name] = t
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) *Tool {
	return r.tools[name]
}

// List returns all tools in the OpenAI function-tool shape.
func (r *Registry) List() []map[string]any {
	names := []string{"add_task", "list_tasks", "complete_task", "delete_task", "update_task"}
	var result []map[string]any
	for _, name := range names {
		t := r.tools[name]
		if t == nil {
			continue
		}
		result = append(result, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        t.Name,
				"description": t.Description,
				"parameters":  t.Parameters,
			},
		})
	}
	return result
}

// errorResult is the payload fed back to the model when a call fails.
type errorResult struct {
	Error string `json:"error"`
	Tool  string `json:"tool"`
}

// Execute runs a tool by name with JSON-encoded arguments. Failures of
// any kind — unknown tool, malformed arguments, validation, storage —
// come back as an error payload in the result string, never as a
// raised error, so one bad call cannot abort the agent loop.
func (r *Registry) Execute(ctx context.Context, name string, argsJSON string) (result string) {
	start := time.Now()
	success := false
	defer func() {
		if p := recover(); p != nil {
			if r.logger != nil {
				r.logger.Error("tool handler panic", "tool", name, "panic", p)
			}
			result = r.errorJSON(name, fmt.Sprintf("Internal error in tool %s", name))
		}
		if r.metrics != nil {
			r.metrics.RecordToolCall(name, time.Since(start), success)
		}
	}()

	tool := r.tools[name]
	if tool == nil {
		if r.logger != nil {
			r.logger.Warn("unknown tool requested", "tool", name, "user_id", r.userID)
		}
		return r.errorJSON(name, (&ErrUnknownTool{ToolName: name}).Error())
	}

	var args map[string]any
	if argsJSON != "" {
		if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
			if r.logger != nil {
				r.logger.Warn("malformed tool arguments", "tool", name, "error", err)
			}
			return r.errorJSON(name, fmt.Sprintf("Invalid arguments for %s: %v", name, err))
		}
	}

	out, err := tool.Handler(ctx, args)
	if err != nil {
		if r.logger != nil {
			r.logger.Warn("tool call failed", "tool", name, "user_id", r.userID, "error", err)
		}
		return r.errorJSON(name, err.Error())
	}

	success = true
	if r.logger != nil {
		r.logger.Info("tool call succeeded", "tool", name, "user_id", r.userID,
			"duration_ms", time.Since(start).Milliseconds())
	}
	return out
}

func (r *Registry) errorJSON(tool, msg string) string {
	data, err := json.Marshal(errorResult{Error: msg, Tool: tool})
	if err != nil {
		return fmt.Sprintf(`{"error":%q,"tool":%q}`, msg, tool)
	}
	return string(data)
}

// parseTaskID validates the task_id argument as a UUID.
func parseTaskID(args map[string]any) (string, error) {
	raw, _ := args["task_id"].(string)
	if _, err := uuid.Parse(raw); err != nil {
		return "", &InvalidIDError{ID: raw}
	}
	return raw, nil
}

// optionalString distinguishes an absent key from an explicit value.
// Returns nil when the key is absent, a pointer otherwise.
func optionalString(args map[string]any, key string) *string {
	v, ok := args[key]
	if !ok || v == nil {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return &s
}

// nullableDesc renders an empty description as JSON null, matching the
// wire shape of the task payloads.
func nullableDesc(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Tool handlers

func (r *Registry) handleAddTask(ctx context.Context, args map[string]any) (string, error) {
	title, _ := args["title"].(string)
	description, _ := args["description"].(string)

	task, err := r.store.CreateTask(r.userID, title, description)
	if err != nil {
		return "", err
	}

	payload := struct {
		TaskID  string `json:"task_id"`
		Title   string `json:"title"`
		Message string `json:"message"`
	}{
		TaskID:  task.ID,
		Title:   task.Title,
		Message: fmt.Sprintf("Task '%s' created successfully", task.Title),
	}
	return marshal(payload)
}

func (r *Registry) handleListTasks(ctx context.Context, args map[string]any) (string, error) {
	var isComplete *bool
	if v, ok := args["is_complete"].(bool); ok {
		isComplete = &v
	}

	tasks, err := r.store.ListTasks(r.userID, isComplete)
	if err != nil {
		return "", err
	}

	type taskEntry struct {
		TaskID      string  `json:"task_id"`
		Title       string  `json:"title"`
		Description *string `json:"description"`
		IsComplete  bool    `json:"is_complete"`
		CreatedAt   string  `json:"created_at"`
	}
	entries := make([]taskEntry, len(tasks))
	for i, t := range tasks {
		entries[i] = taskEntry{
			TaskID:      t.ID,
			Title:       t.Title,
			Description: nullableDesc(t.Description),
			IsComplete:  t.IsComplete,
			CreatedAt:   t.CreatedAt.Format(time.RFC3339),
		}
	}

	payload := struct {
		Tasks []taskEntry `json:"tasks"`
		Count int         `json:"count"`
	}{Tasks: entries, Count: len(entries)}
	return marshal(payload)
}

func (r *Registry) handleCompleteTask(ctx context.Context, args map[string]any) (string, error) {
	taskID, err := parseTaskID(args)
	if err != nil {
		return "", err
	}

	task, already, err := r.store.CompleteTask(taskID, r.userID)
	if err != nil {
		return "", err
	}

	msg := fmt.Sprintf("Task '%s' marked as complete", task.Title)
	if already {
		msg = fmt.Sprintf("Task '%s' is already complete", task.Title)
	}

	payload := struct {
		TaskID  string `json:"task_id"`
		Title   string `json:"title"`
		Message string `json:"message"`
	}{TaskID: task.ID, Title: task.Title, Message: msg}
	return marshal(payload)
}

func (r *Registry) handleDeleteTask(ctx context.Context, args map[string]any) (string, error) {
	taskID, err := parseTaskID(args)
	if err != nil {
		return "", err
	}

	title, err := r.store.DeleteTask(taskID, r.userID)
	if err != nil {
		return "", err
	}

	payload := struct {
		TaskID  string `json:"task_id"`
		Message string `json:"message"`
	}{TaskID: taskID, Message: fmt.Sprintf("Task '%s' deleted successfully", title)}
	return marshal(payload)
}

func (r *Registry) handleUpdateTask(ctx context.Context, args map[string]any) (string, error) {
	taskID, err := parseTaskID(args)
	if err != nil {
		return "", err
	}

	title := optionalString(args, "title")
	description := optionalString(args, "description")

	task, err := r.store.UpdateTask(taskID, r.userID, title, description)
	if err != nil {
		return "", err
	}

	payload := struct {
		TaskID      string  `json:"task_id"`
		Title       string  `json:"title"`
		Description *string `json:"description"`
		Message     string  `json:"message"`
	}{
		TaskID:      task.ID,
		Title:       task.Title,
		Description: nullableDesc(task.Description),
		Message:     fmt.Sprintf("Task '%s' updated successfully", task.Title),
	}
	return marshal(payload)
}

func marshal(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal result: %w", err)
	}
	return string(data), nil
}
