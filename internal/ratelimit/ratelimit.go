// Package ratelimit provides an in-memory sliding-window limiter keyed
// by user id. For multi-instance deployments a shared backing store
// would be needed; a single process only needs this.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Limiter tracks request timestamps per user over minute and hour
// windows.
type Limiter struct {
	perMinute int
	perHour   int
	logger    *slog.Logger

	mu      sync.Mutex
	history map[string][]time.Time

	// now is swappable for tests.
	now func() time.Time
}

// Stats reports a user's current window usage.
type Stats struct {
	RequestsLastMinute int `json:"requests_last_minute"`
	RequestsLastHour   int `json:"requests_last_hour"`
	LimitPerMinute     int `json:"limit_per_minute"`
	LimitPerHour       int `json:"limit_per_hour"`
	RemainingMinute    int `json:"remaining_minute"`
	RemainingHour      int `json:"remaining_hour"`
}

// New creates a limiter. Non-positive limits fall back to 60/min and
// 1000/hour.
func New(perMinute, perHour int, logger *slog.Logger) *Limiter {
	if perMinute <= 0 {
		perMinute = 60
	}
	if perHour <= 0 {
		perHour = 1000
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Limiter{
		perMinute: perMinute,
		perHour:   perHour,
		logger:    logger,
		history:   make(map[string][]time.Time),
		now:       time.Now,
	}
}

// Allow checks the user's windows and, when under both limits, records
// the request. Returns false plus a user-facing message when limited.
func (l *Limiter) Allow(userID string) (bool, string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	hourAgo := now.Add(-time.Hour)
	minuteAgo := now.Add(-time.Minute)

	// Drop timestamps outside the hour window.
	kept := l.history[userID][:0]
	for _, ts := range l.history[userID] {
		if ts.After(hourAgo) {
			kept = append(kept, ts)
		}
	}
	l.history[userID] = kept

	if len(kept) >= l.perHour {
		l.logger.Warn("rate limit exceeded", "window", "hour", "user_id", userID, "count", len(kept))
		return false, fmt.Sprintf("Rate limit exceeded: %d requests per hour", l.perHour)
	}

	recent := 0
	for _, ts := range kept {
		if ts.After(minuteAgo) {
			recent++
		}
	}
	if recent >= l.perMinute {
		l.logger.Warn("rate limit exceeded", "window", "minute", "user_id", userID, "count", recent)
		return false, fmt.Sprintf("Rate limit exceeded: %d requests per minute", l.perMinute)
	}

	l.history[userID] = append(kept, now)
	return true, ""
}

// GetStats returns the user's current usage without recording anything.
func (l *Limiter) GetStats(userID string) Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	hourAgo := now.Add(-time.Hour)
	minuteAgo := now.Add(-time.Minute)

	var lastMinute, lastHour int
	for _, ts := range l.history[userID] {
		if ts.After(hourAgo) {
			lastHour++
			if ts.After(minuteAgo) {
				lastMinute++
			}
		}
	}

	return Stats{
		RequestsLastMinute: lastMinute,
		RequestsLastHour:   lastHour,
		LimitPerMinute:     l.perMinute,
		LimitPerHour:       l.perHour,
		RemainingMinute:    max(0, l.perMinute-lastMinute),
		RemainingHour:      max(0, l.perHour-lastHour),
	}
}

// Cleanup drops expired timestamps and forgets idle users. Returns the
// number of users removed.
func (l *Limiter) Cleanup() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	hourAgo := l.now().Add(-time.Hour)
	removed := 0
	for userID, timestamps := range l.history {
		kept := timestamps[:0]
		for _, ts := range timestamps {
			if ts.After(hourAgo) {
				kept = append(kept, ts)
			}
		}
		if len(kept) == 0 {
			delete(l.history, userID)
			removed++
		} else {
			l.history[userID] = kept
		}
	}

	l.logger.Info("rate limiter cleanup completed", "active_users", len(l.history), "removed", removed)
	return removed
}

// CleanupLoop runs Cleanup on the interval until ctx is cancelled.
func (l *Limiter) CleanupLoop(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			l.Cleanup()
		}
	}
}
