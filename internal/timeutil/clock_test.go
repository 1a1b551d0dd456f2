package timeutil

import (
	"testing"
	"time"
)

func TestRealClock_Now(t *testing.T) {
	clock := RealClock{}
	before := time.Now()
	now := clock.Now()
	after := time.Now()

	if now.Before(before) || now.After(after) {
		t.Errorf("Now() = %v, expected between %v and %v", now, before, after)
	}
}

func TestMockClock_Now(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := NewMockClock(start)

	if got := clock.Now(); !got.Equal(start) {
		t.Errorf("Now() = %v, want %v", got, start)
	}
}

func TestMockClock_Set(t *testing.T) {
	clock := NewMockClock(time.Time{})
	target := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	clock.Set(target)

	if got := clock.Now(); !got.Equal(target) {
		t.Errorf("Now() after Set = %v, want %v", got, target)
	}
}

func TestMockClock_Advance(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := NewMockClock(start)
	clock.Advance(5 * time.Second)
	clock.Advance(500 * time.Millisecond)

	want := start.Add(5500 * time.Millisecond)
	if got := clock.Now(); !got.Equal(want) {
		t.Errorf("Now() after Advance = %v, want %v", got, want)
	}
}

func TestStreamClock_At(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	mock := NewMockClock(start)
	clock := NewStreamClock(mock)

	// The first offset anchors the stream regardless of its value.
	if got := clock.At(10 * time.Second); !got.Equal(start) {
		t.Errorf("At(10s) = %v, want %v", got, start)
	}

	// Later offsets are relative to the first, not to the fallback clock.
	mock.Advance(time.Hour)
	if got := clock.At(12500 * time.Millisecond); !got.Equal(start.Add(2500 * time.Millisecond)) {
		t.Errorf("At(12.5s) = %v, want %v", got, start.Add(2500*time.Millisecond))
	}

	if got := clock.Now(); !got.Equal(start.Add(time.Hour)) {
		t.Errorf("Now() = %v, want fallback time", got)
	}
}

func TestNewStreamClock_NilFallback(t *testing.T) {
	clock := NewStreamClock(nil)
	before := time.Now()
	got := clock.At(0)
	if got.Before(before) {
		t.Errorf("At(0) = %v, expected at or after %v", got, before)
	}
}
