// Package tools defines the task tools available to the agent.
//
// This file defines sentinel error types for tool execution.
package tools

import "fmt"

// InvalidIDError is returned when a task_id argument is not a valid
// UUID. Distinct from not-found: the id could never name a task.
type InvalidIDError struct {
	ID string
}

// Error implements the error interface.
func (e *InvalidIDError) Error() string {
	return fmt.Sprintf("Invalid task_id format: %s", e.ID)
}

// ErrUnknownTool is returned when a tool call targets a tool that is
// not present in the registry. This indicates a capability mismatch,
// not a transient execution failure.
type ErrUnknownTool struct {
	ToolName string
}

// Error implements the error interface.
func (e *ErrUnknownTool) Error() string {
	return fmt.Sprintf("Unknown tool: %s", e.ToolName)
}
