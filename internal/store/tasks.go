package store

import (
	"database/sql"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Field limits for task input.
const (
	MaxTitleLen       = 200
	MaxDescriptionLen = 1000
)

// validateTitle trims and checks a task title. Limits count characters,
// not bytes, so multi-byte input is not penalized.
func validateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", &ValidationError{Field: "title", Message: "Task title cannot be empty"}
	}
	if utf8.RuneCountInString(title) > MaxTitleLen {
		return "", &ValidationError{Field: "title", Message: "Task title must be 200 characters or less"}
	}
	return title, nil
}

// validateDescription trims and checks a task description.
func validateDescription(desc string) (string, error) {
	desc = strings.TrimSpace(desc)
	if utf8.RuneCountInString(desc) > MaxDescriptionLen {
		return "", &ValidationError{Field: "description", Message: "Task description must be 1000 characters or less"}
	}
	return desc, nil
}

// CreateTask inserts a new task for the user. Title and description are
// trimmed and length-checked before insert.
func (s *Store) CreateTask(userID, title, description string) (*Task, error) {
	title, err := validateTitle(title)
	if err != nil {
		return nil, err
	}
	description, err = validateDescription(description)
	if err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, &StorageError{Op: "create task", Err: err}
	}
	now := time.Now().UTC()

	_, err = s.db.Exec(`
		INSERT INTO tasks (id, user_id, title, description, is_complete, created_at, updated_at)
		VALUES (?, ?, ?, ?, FALSE, ?, ?)
	`, id.String(), userID, title, nullable(description), now, now)
	if err != nil {
		return nil, &StorageError{Op: "create task", Err: err}
	}

	return &Task{
		ID:          id.String(),
		UserID:      userID,
		Title:       title,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// ListTasks returns the user's tasks, newest first. A nil isComplete
// returns all tasks; otherwise only matching completion state.
func (s *Store) ListTasks(userID string, isComplete *bool) ([]Task, error) {
	query := `
		SELECT id, user_id, title, COALESCE(description, ''), is_complete, created_at, updated_at
		FROM tasks
		WHERE user_id = ?
	`
	args := []any{userID}
	if isComplete != nil {
		query += ` AND is_complete = ?`
		args = append(args, *isComplete)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, &StorageError{Op: "list tasks", Err: err}
	}
	defer rows.Close()

	tasks := []Task{}
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.IsComplete, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, &StorageError{Op: "list tasks", Err: err}
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "list tasks", Err: err}
	}

	return tasks, nil
}

// GetTask fetches a task scoped to the owning user. A task that exists
// under a different owner reports the same not-found message as a
// missing one; only the log distinguishes them.
func (s *Store) GetTask(taskID, userID string) (*Task, error) {
	var t Task
	var owner string
	err := s.db.QueryRow(`
		SELECT id, user_id, title, COALESCE(description, ''), is_complete, created_at, updated_at
		FROM tasks WHERE id = ?
	`, taskID).Scan(&t.ID, &owner, &t.Title, &t.Description, &t.IsComplete, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Kind: "task", ID: taskID}
	}
	if err != nil {
		return nil, &StorageError{Op: "get task", Err: err}
	}

	if owner != userID {
		if s.logger != nil {
			s.logger.Warn("task access denied", "task_id", taskID, "owner", owner, "requester", userID)
		}
		return nil, &NotFoundError{Kind: "task", ID: taskID}
	}

	t.UserID = owner
	return &t, nil
}

// CompleteTask marks a task complete. Completing an already-complete
// task is a no-op that leaves updated_at untouched; the returned bool
// reports whether it was already complete.
func (s *Store) CompleteTask(taskID, userID string) (*Task, bool, error) {
	task, err := s.GetTask(taskID, userID)
	if err != nil {
		return nil, false, err
	}
	if task.IsComplete {
		return task, true, nil
	}

	now := time.Now().UTC()
	_, err = s.db.Exec(`
		UPDATE tasks SET is_complete = TRUE, updated_at = ?
		WHERE id = ? AND user_id = ?
	`, now, taskID, userID)
	if err != nil {
		return nil, false, &StorageError{Op: "complete task", Err: err}
	}

	task.IsComplete = true
	task.UpdatedAt = now
	return task, false, nil
}

// UpdateTask modifies a task's title and/or description. A nil pointer
// leaves that field as is; a non-nil empty description clears it.
// Last writer wins: the update is a single guarded statement with no
// compare-and-swap on updated_at.
func (s *Store) UpdateTask(taskID, userID string, title, description *string) (*Task, error) {
	if title == nil && description == nil {
		return nil, &ValidationError{Field: "update", Message: "At least one field (title or description) must be provided for update"}
	}

	task, err := s.GetTask(taskID, userID)
	if err != nil {
		return nil, err
	}

	if title != nil {
		t, err := validateTitle(*title)
		if err != nil {
			return nil, err
		}
		task.Title = t
	}
	if description != nil {
		d, err := validateDescription(*description)
		if err != nil {
			return nil, err
		}
		task.Description = d
	}

	now := time.Now().UTC()
	_, err = s.db.Exec(`
		UPDATE tasks SET title = ?, description = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`, task.Title, nullable(task.Description), now, taskID, userID)
	if err != nil {
		return nil, &StorageError{Op: "update task", Err: err}
	}

	task.UpdatedAt = now
	return task, nil
}

// DeleteTask removes a task permanently and returns its former title.
func (s *Store) DeleteTask(taskID, userID string) (string, error) {
	task, err := s.GetTask(taskID, userID)
	if err != nil {
		return "", err
	}

	_, err = s.db.Exec(`DELETE FROM tasks WHERE id = ? AND user_id = ?`, taskID, userID)
	if err != nil {
		return "", &StorageError{Op: "delete task", Err: err}
	}

	return task.Title, nil
}

// nullable maps an empty string to NULL for optional text columns.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
