package http

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// TriggerLimiter caps how many sessions one client may start per interval.
type TriggerLimiter struct {
	mu       sync.Mutex
	clock    clockwork.Clock
	history  map[string][]time.Time
	limit    int
	interval time.Duration
}

func NewTriggerLimiter(limit int, interval time.Duration, clock clockwork.Clock) *TriggerLimiter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &TriggerLimiter{
		clock:    clock,
		history:  make(map[string][]time.Time),
		limit:    limit,
		interval: interval,
	}
}

func (rl *TriggerLimiter) Allow(client string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.clock.Now()
	windowStart := now.Add(-rl.interval)

	attempts := rl.history[client]
	fresh := make([]time.Time, 0, len(attempts)+1)
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}
	if len(fresh) >= rl.limit {
		rl.history[client] = fresh
		return false
	}
	rl.history[client] = append(fresh, now)
	return true
}
