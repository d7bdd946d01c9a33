// Package metrics collects in-process counters and timings for the
// API, the agent loop, and tool calls. A heavier system (Prometheus
// and friends) can replace this without touching callers, which only
// see the Record methods.
package metrics

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Collector aggregates metrics since construction (or the last Reset).
type Collector struct {
	logger *slog.Logger

	mu sync.Mutex

	windowStart time.Time

	requestCount     int
	requestErrors    int
	requestDurations []time.Duration

	agentExecutions int
	agentErrors     int
	agentDurations  []time.Duration
	agentIterations int

	toolCalls     map[string]int
	toolErrors    map[string]int
	toolDurations map[string][]time.Duration

	rateLimitHits int

	conversationsCreated int
	messagesStored       int

	errorsByType map[string]int
}

// Summary is the snapshot shape served by the metrics endpoint.
type Summary struct {
	Window        WindowSummary          `json:"window"`
	Requests      RequestSummary         `json:"requests"`
	Agent         AgentSummary           `json:"agent"`
	Tools         map[string]ToolSummary `json:"tools"`
	RateLimiting  RateLimitSummary       `json:"rate_limiting"`
	Conversations ConversationSummary    `json:"conversations"`
	Errors        map[string]int         `json:"errors_by_type"`
}

// WindowSummary describes the collection window.
type WindowSummary struct {
	Start           string  `json:"start"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// RequestSummary aggregates API request metrics.
type RequestSummary struct {
	Total             int     `json:"total"`
	Errors            int     `json:"errors"`
	SuccessRate       float64 `json:"success_rate"`
	AvgDuration       float64 `json:"avg_duration"`
	P95Duration       float64 `json:"p95_duration"`
	RequestsPerSecond float64 `json:"requests_per_second"`
}

// AgentSummary aggregates agent loop metrics.
type AgentSummary struct {
	Executions    int     `json:"executions"`
	Errors        int     `json:"errors"`
	SuccessRate   float64 `json:"success_rate"`
	AvgDuration   float64 `json:"avg_duration"`
	AvgIterations float64 `json:"avg_iterations"`
}

// ToolSummary aggregates per-tool call metrics.
type ToolSummary struct {
	Calls       int     `json:"calls"`
	Errors      int     `json:"errors"`
	AvgDuration float64 `json:"avg_duration"`
	SuccessRate float64 `json:"success_rate"`
}

// RateLimitSummary counts limiter rejections.
type RateLimitSummary struct {
	Hits int `json:"hits"`
}

// ConversationSummary counts persistence activity.
type ConversationSummary struct {
	Created        int `json:"created"`
	MessagesStored int `json:"messages_stored"`
}

// New creates a collector.
func New(logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{
		logger:        logger,
		windowStart:   time.Now().UTC(),
		toolCalls:     make(map[string]int),
		toolErrors:    make(map[string]int),
		toolDurations: make(map[string][]time.Duration),
		errorsByType:  make(map[string]int),
	}
}

// RecordRequest records one API request.
func (c *Collector) RecordRequest(duration time.Duration, success bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requestCount++
	c.requestDurations = append(c.requestDurations, duration)
	if !success {
		c.requestErrors++
	}
}

// RecordAgentExecution records one agent loop run.
func (c *Collector) RecordAgentExecution(duration time.Duration, iterations int, success bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.agentExecutions++
	c.agentDurations = append(c.agentDurations, duration)
	c.agentIterations += iterations
	if !success {
		c.agentErrors++
	}
}

// RecordToolCall records one tool dispatch.
func (c *Collector) RecordToolCall(name string, duration time.Duration, success bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.toolCalls[name]++
	c.toolDurations[name] = append(c.toolDurations[name], duration)
	if !success {
		c.toolErrors[name]++
	}
}

// RecordError tallies an error by its type or status text.
func (c *Collector) RecordError(errType string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errorsByType[errType]++
}

// RecordRateLimitHit records one limiter rejection.
func (c *Collector) RecordRateLimitHit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rateLimitHits++
}

// RecordConversationCreated records a new conversation.
func (c *Collector) RecordConversationCreated() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conversationsCreated++
}

// RecordMessageStored records a persisted message.
func (c *Collector) RecordMessageStored() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messagesStored++
}

// GetSummary returns a snapshot of everything collected so far.
func (c *Collector) GetSummary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	windowDur := time.Since(c.windowStart).Seconds()

	tools := make(map[string]ToolSummary, len(c.toolCalls))
	for name, calls := range c.toolCalls {
		tools[name] = ToolSummary{
			Calls:       calls,
			Errors:      c.toolErrors[name],
			AvgDuration: avgSeconds(c.toolDurations[name]),
			SuccessRate: successRate(calls, c.toolErrors[name]),
		}
	}

	avgIter := 0.0
	if c.agentExecutions > 0 {
		avgIter = float64(c.agentIterations) / float64(c.agentExecutions)
	}

	rps := 0.0
	if windowDur > 0 {
		rps = float64(c.requestCount) / windowDur
	}

	errs := make(map[string]int, len(c.errorsByType))
	for k, v := range c.errorsByType {
		errs[k] = v
	}

	return Summary{
		Window: WindowSummary{
			Start:           c.windowStart.Format(time.RFC3339),
			DurationSeconds: windowDur,
		},
		Requests: RequestSummary{
			Total:             c.requestCount,
			Errors:            c.requestErrors,
			SuccessRate:       successRate(c.requestCount, c.requestErrors),
			AvgDuration:       avgSeconds(c.requestDurations),
			P95Duration:       p95Seconds(c.requestDurations),
			RequestsPerSecond: rps,
		},
		Agent: AgentSummary{
			Executions:    c.agentExecutions,
			Errors:        c.agentErrors,
			SuccessRate:   successRate(c.agentExecutions, c.agentErrors),
			AvgDuration:   avgSeconds(c.agentDurations),
			AvgIterations: avgIter,
		},
		Tools:        tools,
		RateLimiting: RateLimitSummary{Hits: c.rateLimitHits},
		Conversations: ConversationSummary{
			Created:        c.conversationsCreated,
			MessagesStored: c.messagesStored,
		},
		Errors: errs,
	}
}

// Reset clears all metrics and starts a new window.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.windowStart = time.Now().UTC()
	c.requestCount = 0
	c.requestErrors = 0
	c.requestDurations = nil
	c.agentExecutions = 0
	c.agentErrors = 0
	c.agentDurations = nil
	c.agentIterations = 0
	c.toolCalls = make(map[string]int)
	c.toolErrors = make(map[string]int)
	c.toolDurations = make(map[string][]time.Duration)
	c.rateLimitHits = 0
	c.conversationsCreated = 0
	c.messagesStored = 0
	c.errorsByType = make(map[string]int)
}

// LogSummaryLoop logs the summary on the interval until ctx is
// cancelled.
func (c *Collector) LogSummaryLoop(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s := c.GetSummary()
			c.logger.Info("metrics summary",
				"requests", s.Requests.Total,
				"request_errors", s.Requests.Errors,
				"agent_executions", s.Agent.Executions,
				"rate_limit_hits", s.RateLimiting.Hits,
				"messages_stored", s.Conversations.MessagesStored)
		}
	}
}

func avgSeconds(durations []time.Duration) float64 {
	if len(durations) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range durations {
		total += d
	}
	return (total / time.Duration(len(durations))).Seconds()
}

func p95Seconds(durations []time.Duration) float64 {
	if len(durations) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), durations...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return sorted[int(float64(len(sorted))*0.95)].Seconds()
}

func successRate(total, errors int) float64 {
	if total == 0 {
		return 0
	}
	return float64(total-errors) / float64(total) * 100
}
