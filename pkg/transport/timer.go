// Package transport provides the non-blocking UDP endpoint, its portable error
// taxonomy and the tick-driven timers used by the netplay session.
package transport

import (
	"sort"
	"sync"
	"time"

	"github.com/appnet-org/netplay/pkg/logging"
	"go.uber.org/zap"
)

// TimerCallback is a function type for timer callbacks
type TimerCallback func()

// TimerKey identifies a timer.
type TimerKey string

// Timer represents a single timer instance
type Timer struct {
	ID        TimerKey
	Duration  time.Duration
	Remaining time.Duration
	Periodic  bool
	Callback  TimerCallback
}

// TimerManager holds one-shot and periodic timers that are driven by the
// caller's tick. Nothing fires between calls to Advance.
type TimerManager struct {
	mu     sync.Mutex
	timers map[TimerKey]*Timer
}

// NewTimerManager creates a new timer manager
func NewTimerManager() *TimerManager {
	return &TimerManager{timers: make(map[TimerKey]*Timer)}
}

// Schedule creates a one-time timer that fires once duration has elapsed.
// An existing timer with the same id is replaced.
func (tm *TimerManager) Schedule(id TimerKey, duration time.Duration, callback TimerCallback) {
	tm.add(&Timer{ID: id, Duration: duration, Remaining: duration, Callback: callback})
}

// SchedulePeriodic creates a timer that fires every interval.
func (tm *TimerManager) SchedulePeriodic(id TimerKey, interval time.Duration, callback TimerCallback) {
	tm.add(&Timer{ID: id, Duration: interval, Remaining: interval, Periodic: true, Callback: callback})
}

func (tm *TimerManager) add(t *Timer) {
	tm.mu.Lock()
	tm.timers[t.ID] = t
	tm.mu.Unlock()
}

// StopTimer stops a specific timer
func (tm *TimerManager) StopTimer(id TimerKey) bool {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if _, exists := tm.timers[id]; !exists {
		return false
	}
	delete(tm.timers, id)
	return true
}

// HasTimer checks if a timer with the given ID exists
func (tm *TimerManager) HasTimer(id TimerKey) bool {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	_, ok := tm.timers[id]
	return ok
}

// Remaining returns the time left before the timer next fires.
func (tm *TimerManager) Remaining(id TimerKey) (time.Duration, bool) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	t, ok := tm.timers[id]
	if !ok {
		return 0, false
	}
	return t.Remaining, true
}

// Advance moves every timer forward by dt and runs the callbacks of those that
// expired, in key order. A timer fires at most once per call; a periodic
// timer then restarts from its full interval.
func (tm *TimerManager) Advance(dt time.Duration) {
	tm.mu.Lock()
	var due []*Timer
	for id, t := range tm.timers {
		t.Remaining -= dt
		if t.Remaining > 0 {
			continue
		}
		due = append(due, t)
		if t.Periodic {
			t.Remaining = t.Duration
		} else {
			delete(tm.timers, id)
		}
	}
	tm.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].ID < due[j].ID })
	for _, t := range due {
		tm.executeCallback(t)
	}
}

// executeCallback runs a timer callback with no locks held so callbacks may
// schedule or stop timers.
func (tm *TimerManager) executeCallback(t *Timer) {
	if t.Callback == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			logging.Error("Timer callback panicked",
				zap.String("timer", string(t.ID)),
				zap.Any("panic", r))
		}
	}()

	t.Callback()
}

// Stop removes all timers.
func (tm *TimerManager) Stop() {
	tm.mu.Lock()
	clear(tm.timers)
	tm.mu.Unlock()
}
