package ratelimit

import (
	"testing"
	"time"
)

func TestCounterThrottles(t *testing.T) {
	c := NewCounter(time.Minute)
	now := time.Date(2026, time.May, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	if total, ok := c.Inc(); !ok || total != 1 {
		t.Fatalf("first event must log, got %d %v", total, ok)
	}
	now = now.Add(30 * time.Second)
	if total, ok := c.Inc(); ok || total != 2 {
		t.Fatalf("second event inside the interval must be held, got %d %v", total, ok)
	}
	now = now.Add(31 * time.Second)
	if total, ok := c.Inc(); !ok || total != 3 {
		t.Fatalf("event after the interval must log, got %d %v", total, ok)
	}
	if c.Total() != 3 {
		t.Fatalf("expected total 3, got %d", c.Total())
	}
}

func TestCounterWithoutInterval(t *testing.T) {
	c := NewCounter(0)
	for i := 0; i < 3; i++ {
		if _, ok := c.Inc(); !ok {
			t.Fatalf("unthrottled counter must always log")
		}
	}
	var nilCounter *Counter
	if _, ok := nilCounter.Inc(); ok || nilCounter.Total() != 0 {
		t.Fatalf("nil counter never logs")
	}
}
