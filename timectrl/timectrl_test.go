package timectrl

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewMissionClockTruncatesToDay(t *testing.T) {
	start := time.Date(2025, time.March, 4, 17, 30, 0, 0, time.UTC)
	mc := NewMissionClock(start)

	want := time.Date(2025, time.March, 4, 0, 0, 0, 0, time.UTC)
	if got := mc.Now(); !got.Equal(want) {
		t.Fatalf("Now() = %v, want %v", got, want)
	}
}

func TestAdvanceDaysMovesForward(t *testing.T) {
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	mc := NewMissionClock(start)

	var seen []time.Time
	mc.AddListener(func(now time.Time) { seen = append(seen, now) })

	got, err := mc.AdvanceDays(3)
	if err != nil {
		t.Fatalf("AdvanceDays: %v", err)
	}
	want := start.AddDate(0, 0, 3)
	if !got.Equal(want) || !mc.Now().Equal(want) {
		t.Fatalf("AdvanceDays = %v, Now = %v, want %v", got, mc.Now(), want)
	}
	if len(seen) != 3 || !seen[0].Equal(start.AddDate(0, 0, 1)) {
		t.Fatalf("listener saw %v, want one notification per day", seen)
	}
	if mc.Elapsed() != 3 {
		t.Fatalf("Elapsed() = %d, want 3", mc.Elapsed())
	}
}

func TestAdvanceDaysRejectsNonPositive(t *testing.T) {
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	mc := NewMissionClock(start)

	for _, n := range []int{0, -2} {
		if _, err := mc.AdvanceDays(n); !errors.Is(err, ErrInvalidDays) {
			t.Fatalf("AdvanceDays(%d) err = %v, want ErrInvalidDays", n, err)
		}
	}
	if !mc.Now().Equal(start) {
		t.Fatalf("clock moved on invalid advance: %v", mc.Now())
	}
}

func TestRunEveryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	done := RunEvery(ctx, 2*time.Millisecond, func(context.Context) error {
		if calls.Add(1) >= 3 {
			cancel()
		}
		return nil
	}, nil)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("RunEvery did not stop after cancel")
	}
	if calls.Load() < 3 {
		t.Fatalf("fn called %d times, want >= 3", calls.Load())
	}
}

func TestRunEveryDisabled(t *testing.T) {
	done := RunEvery(context.Background(), 0, func(context.Context) error { return nil }, nil)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("RunEvery with zero interval should return immediately")
	}
}
