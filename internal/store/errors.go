package store

import "fmt"

// ValidationError means the input fails a field constraint the caller
// can correct (empty title, over-length fields, bad role).
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return e.Message
}

// NotFoundError means the record does not exist for the requesting
// user. A record owned by another user reports the same message so
// the response never confirms existence.
type NotFoundError struct {
	Kind string // "task" or "conversation"
	ID   string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	switch e.Kind {
	case "conversation":
		return fmt.Sprintf("Conversation not found: %s", e.ID)
	case "user":
		return fmt.Sprintf("User not found: %s", e.ID)
	default:
		return fmt.Sprintf("Task not found: %s", e.ID)
	}
}

// StorageError wraps a driver-level failure the user cannot correct.
type StorageError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error during %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying driver error.
func (e *StorageError) Unwrap() error {
	return e.Err
}
