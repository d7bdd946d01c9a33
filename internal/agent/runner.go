// Package agent implements the tool-calling orchestration loop.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nugget/todo-agent/internal/llm"
)

// DefaultMaxIterations bounds the tool-calling loop per request.
const DefaultMaxIterations = 5

// User-facing fallback strings. The empty-response apology covers a
// model that returns nothing; the iteration-cap message covers a model
// that never stops calling tools.
const (
	emptyResponseFallback = "I apologize, but I couldn't process your request. Please try again."
	iterationCapFallback  = "I apologize, but I encountered an issue processing your request. Please try rephrasing or breaking it into smaller steps."
	inlinePlaceholder     = "Let me help you with that."
)

// ToolSet is the tool surface the runner drives. Execute never fails:
// errors come back inside the result payload so one bad call cannot
// abort the loop.
type ToolSet interface {
	List() []map[string]any
	Execute(ctx context.Context, name, argsJSON string) string
}

// Recorder receives per-execution timing. Implemented by the metrics
// collector; a nil Recorder disables recording.
type Recorder interface {
	RecordAgentExecution(duration time.Duration, iterations int, success bool)
}

// Runner executes the agent loop: model call, tool dispatch, repeat
// until the model answers in plain text or the iteration cap hits.
type Runner struct {
	client        llm.Client
	model         string
	instructions  string
	maxIterations int
	logger        *slog.Logger
	metrics       Recorder
}

// NewRunner creates a runner. maxIterations <= 0 selects the default.
func NewRunner(client llm.Client, model string, maxIterations int, logger *slog.Logger, metrics Recorder) *Runner {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		client:        client,
		model:         model,
		instructions:  Instructions,
		maxIterations: maxIterations,
		logger:        logger,
		metrics:       metrics,
	}
}

// Run executes one user turn against the conversation history and
// returns the assistant's final text. Tool failures are contained by
// the ToolSet; only model call failures propagate as errors.
func (r *Runner) Run(ctx context.Context, userMessage string, history []llm.Message, toolset ToolSet) (string, error) {
	start := time.Now()

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: "system", Content: r.instructions})
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: "user", Content: userMessage})

	r.logger.Info("starting agent execution",
		"model", r.model,
		"history_len", len(history),
		"message_len", len(userMessage))

	tools := toolset.List()

	iterations := 0
	for iterations < r.maxIterations {
		iterations++
		r.logger.Debug("tool calling iteration", "iteration", iterations, "max", r.maxIterations)

		resp, err := r.client.Chat(ctx, r.model, messages, tools)
		if err != nil {
			r.record(start, iterations, false)
			return "", fmt.Errorf("chat completion: %w", err)
		}

		if resp.InputTokens > 0 || resp.OutputTokens > 0 {
			r.logger.Info("token usage",
				"iteration", iterations,
				"input", resp.InputTokens,
				"output", resp.OutputTokens)
		}

		assistant := resp.Message

		// Inline (content-embedded) calls take priority: a model using
		// that format leaves tool_calls empty and puts everything in text.
		if assistant.Content != "" && HasInlineCalls(assistant.Content) {
			if calls := ParseInlineCalls(r.logger, assistant.Content); len(calls) > 0 {
				r.logger.Info("detected inline function calls", "count", len(calls))

				clean := StripInlineCalls(assistant.Content)
				if clean == "" {
					clean = inlinePlaceholder
				}
				messages = append(messages, llm.Message{Role: "assistant", Content: clean})

				for _, call := range calls {
					argsJSON, err := json.Marshal(call.Arguments)
					if err != nil {
						r.logger.Error("marshal inline call arguments", "function", call.Name, "error", err)
						continue
					}
					result := toolset.Execute(ctx, call.Name, string(argsJSON))
					// No call id exists in this format, so the result rides
					// back as a user turn the model can read next iteration.
					messages = append(messages, llm.Message{
						Role:    "user",
						Content: fmt.Sprintf("Tool %s result: %s", call.Name, result),
					})
				}
				continue
			}
		}

		// Structured tool calls.
		if len(assistant.ToolCalls) > 0 {
			r.logger.Info("agent requested tool calls", "count", len(assistant.ToolCalls))

			messages = append(messages, assistant)

			for _, tc := range assistant.ToolCalls {
				result := toolset.Execute(ctx, tc.Function.Name, tc.Function.Arguments)
				messages = append(messages, llm.Message{
					Role:       "tool",
					ToolCallID: tc.ID,
					Content:    result,
				})
			}
			continue
		}

		// Plain text: the final response.
		content := assistant.Content
		if content == "" {
			r.logger.Warn("assistant returned empty response")
			content = emptyResponseFallback
		}

		r.logger.Info("agent execution completed",
			"iterations", iterations,
			"response_len", len(content),
			"duration_ms", time.Since(start).Milliseconds())
		r.record(start, iterations, true)
		return content, nil
	}

	r.logger.Warn("max iterations reached without final response", "max", r.maxIterations)
	r.record(start, iterations, false)
	return iterationCapFallback, nil
}

func (r *Runner) record(start time.Time, iterations int, success bool) {
	if r.metrics != nil {
		r.metrics.RecordAgentExecution(time.Since(start), iterations, success)
	}
}
