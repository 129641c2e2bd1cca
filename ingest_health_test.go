package main

import (
	"strings"
	"testing"
	"time"
)

func TestObserveTelemetryHealthReportsTransitionsOnly(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	var state telemetryHealthState

	state, line, changed := observeTelemetryHealth(state, telemetryHealthSnapshot{}, now)
	if !changed || line != "disconnected offline last_reading=never readings=0" {
		t.Fatalf("unexpected initial report %q (%v)", line, changed)
	}
	if _, _, changed = observeTelemetryHealth(state, telemetryHealthSnapshot{}, now.Add(time.Minute)); changed {
		t.Fatalf("unchanged state must not report")
	}

	live := telemetryHealthSnapshot{Connected: true, LastReadingAt: now, Readings: 7}
	state, line, changed = observeTelemetryHealth(state, live, now.Add(500*time.Millisecond))
	if !changed || line != "connected live last_reading=0s readings=7" {
		t.Fatalf("unexpected live report %q", line)
	}

	stale := live
	stale.Respawns = 2
	stale.DroppedLines = 1
	_, line, changed = observeTelemetryHealth(state, stale, now.Add(3*time.Second))
	if !changed || !strings.HasPrefix(line, "connected offline last_reading=3s") {
		t.Fatalf("unexpected stale report %q", line)
	}
	if !strings.Contains(line, "respawns=2") || !strings.Contains(line, "dropped_lines=1") {
		t.Fatalf("expected counters in %q", line)
	}
}

func TestAgeString(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	cases := []struct {
		at   time.Time
		want string
	}{
		{time.Time{}, "never"},
		{now.Add(time.Second), "0s"},
		{now.Add(-1500 * time.Millisecond), "1s"},
		{now.Add(-90 * time.Second), "1m30s"},
	}
	for _, tc := range cases {
		if got := ageString(now, tc.at); got != tc.want {
			t.Fatalf("ageString(%v) = %q, want %q", tc.at, got, tc.want)
		}
	}
}
