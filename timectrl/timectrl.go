package timectrl

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Day is the granularity of mission time.
const Day = 24 * time.Hour

// ErrInvalidDays indicates a non-positive day count.
var ErrInvalidDays = errors.New("days must be a positive integer")

// SimClock is the read-only view of mission time handed to components that
// need the current date but must not move it.
type SimClock interface {
	// Now returns the current mission date.
	Now() time.Time
}

// MissionClock owns the process-wide mission date. It only moves forward and
// only in whole days; the holder of the *MissionClock is the one component
// allowed to advance it.
type MissionClock struct {
	mu        sync.RWMutex
	StartTime time.Time

	current   time.Time
	listeners []func(time.Time)
}

// NewMissionClock constructs a clock at start, truncated to midnight UTC.
func NewMissionClock(start time.Time) *MissionClock {
	start = TruncateDay(start)
	return &MissionClock{
		StartTime: start,
		current:   start,
	}
}

// TruncateDay returns midnight UTC of t's calendar day.
func TruncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Now returns the current mission date. Implements SimClock.
func (mc *MissionClock) Now() time.Time {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.current
}

// Elapsed returns the number of whole days since StartTime.
func (mc *MissionClock) Elapsed() int {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return int(mc.current.Sub(mc.StartTime) / Day)
}

// AddListener registers a callback invoked once per simulated day with the
// new date.
func (mc *MissionClock) AddListener(fn func(time.Time)) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.listeners = append(mc.listeners, fn)
}

// AdvanceDays moves the clock forward by n days, notifying listeners after
// each day, and returns the new date.
func (mc *MissionClock) AdvanceDays(n int) (time.Time, error) {
	if n <= 0 {
		return time.Time{}, fmt.Errorf("%w: got %d", ErrInvalidDays, n)
	}

	for range n {
		mc.mu.Lock()
		mc.current = mc.current.Add(Day)
		now := mc.current
		listeners := append([]func(time.Time){}, mc.listeners...)
		mc.mu.Unlock()

		// Notify outside the lock so listeners may read the clock.
		for _, fn := range listeners {
			fn(now)
		}
	}
	return mc.Now(), nil
}

// RunEvery invokes fn on every tick until ctx is cancelled. It is the
// real-time autopilot used to advance mission days from wall-clock time.
// The returned channel is closed when the loop exits. Errors from fn are
// passed to onErr (if non-nil) and do not stop the loop.
func RunEvery(ctx context.Context, every time.Duration, fn func(context.Context) error, onErr func(error)) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		if every <= 0 || fn == nil {
			return
		}

		ticker := time.NewTicker(every)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := fn(ctx); err != nil && onErr != nil {
					onErr(err)
				}
			}
		}
	}()
	return done
}
