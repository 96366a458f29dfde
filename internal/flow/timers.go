package flow

import (
	"sync"
	"time"
)

// TimerRegistry owns delayed callbacks keyed by string. At most one timer is
// outstanding per key: scheduling replaces any previous timer for that key.
type TimerRegistry struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewTimerRegistry returns an empty registry.
func NewTimerRegistry() *TimerRegistry {
	return &TimerRegistry{
		timers: make(map[string]*time.Timer),
	}
}

// Schedule arms fn to run after delay under the given key, replacing and
// cancelling any timer previously scheduled for that key. The callback runs
// on its own goroutine and removes the key before firing.
func (r *TimerRegistry) Schedule(key string, delay time.Duration, fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.timers[key]; ok {
		prev.Stop()
	}

	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		r.mu.Lock()
		// A replacement may have been scheduled between fire and lock; only
		// the current owner clears the slot.
		if cur, ok := r.timers[key]; ok && cur == t {
			delete(r.timers, key)
		}
		r.mu.Unlock()
		fn()
	})
	r.timers[key] = t
}

// Cancel stops the timer for key if one is outstanding. Cancelling an
// already-fired or unknown key is a no-op.
func (r *TimerRegistry) Cancel(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.timers[key]; ok {
		t.Stop()
		delete(r.timers, key)
	}
}

// After runs fn once after delay, fire-and-forget. The callback is not keyed
// and cannot be cancelled; it is independent of any flow lifetime.
func (r *TimerRegistry) After(delay time.Duration, fn func()) {
	time.AfterFunc(delay, fn)
}

// Active returns the number of outstanding keyed timers.
func (r *TimerRegistry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.timers)
}

// Stop cancels every outstanding keyed timer.
func (r *TimerRegistry) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, t := range r.timers {
		t.Stop()
		delete(r.timers, key)
	}
}
