// Package timer enforces the wall-clock ceiling on one capture session and
// emits periodic progress ticks.
package timer

import (
	"fmt"
	"sync"
	"time"
)

const (
	// DefaultInterval is the progress tick period.
	DefaultInterval = time.Second
	// DefaultCeiling is the hard capture duration limit.
	DefaultCeiling = 180 * time.Second
)

// Recording is a cancellable periodic scheduler for one capture session.
// Each tick re-arms itself only after a liveness check, so a concurrent
// Stop produces at most one further tick and the terminal elapsed signal
// fires exactly once, never followed by another tick.
type Recording struct {
	interval  time.Duration
	ceiling   time.Duration
	onTick    func(elapsed time.Duration)
	onElapsed func()

	mu        sync.Mutex
	startedAt time.Time
	pending   *time.Timer
	running   bool
	elapsed   bool
}

// New builds a timer with the given schedule and callbacks. Callbacks are
// invoked from the timer goroutine; either may be nil.
func New(interval, ceiling time.Duration, onTick func(time.Duration), onElapsed func()) *Recording {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if ceiling <= 0 {
		ceiling = DefaultCeiling
	}
	return &Recording{
		interval:  interval,
		ceiling:   ceiling,
		onTick:    onTick,
		onElapsed: onElapsed,
	}
}

// Start records the start timestamp and arms the first tick. Starting an
// already running timer is a no-op.
func (r *Recording) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	r.running = true
	r.elapsed = false
	r.startedAt = time.Now()
	r.pending = time.AfterFunc(r.interval, r.tick)
}

// Stop halts ticking. Idempotent; safe concurrently with a pending tick.
func (r *Recording) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()
}

func (r *Recording) stopLocked() {
	if !r.running {
		return
	}
	r.running = false
	if r.pending != nil {
		r.pending.Stop()
		r.pending = nil
	}
}

// Elapsed returns wall-clock time since Start for the current session.
func (r *Recording) Elapsed() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.startedAt.IsZero() {
		return 0
	}
	return time.Since(r.startedAt)
}

// tick fires one scheduled beat: terminal signal at the ceiling, otherwise
// a progress tick plus re-arm.
func (r *Recording) tick() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	elapsed := time.Since(r.startedAt)

	if elapsed >= r.ceiling {
		if r.elapsed {
			r.mu.Unlock()
			return
		}
		r.elapsed = true
		r.stopLocked()
		onElapsed := r.onElapsed
		r.mu.Unlock()

		if onElapsed != nil {
			onElapsed()
		}
		return
	}

	r.pending = time.AfterFunc(r.interval, r.tick)
	onTick := r.onTick
	r.mu.Unlock()

	if onTick != nil {
		onTick(elapsed)
	}
}

// FormatElapsed renders a duration as MM:SS for display.
func FormatElapsed(elapsed time.Duration) string {
	if elapsed < 0 {
		elapsed = 0
	}
	total := int(elapsed / time.Second)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
