package telemetry

import (
	"testing"
	"time"
)

func TestOfflineBeforeFirstReading(t *testing.T) {
	if !Offline(Reading{}, time.Now()) {
		t.Fatalf("expected zero reading to be offline")
	}
}

func TestOfflineThresholdBoundary(t *testing.T) {
	at := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	r := Reading{Label: "P1", Value: "1.0", Unit: "V", At: at}
	tests := []struct {
		age     time.Duration
		offline bool
	}{
		{age: 0, offline: false},
		{age: 1999 * time.Millisecond, offline: false},
		{age: 2 * time.Second, offline: true},
		{age: 10 * time.Second, offline: true},
		{age: -time.Second, offline: false},
	}
	for _, tc := range tests {
		if got := Offline(r, at.Add(tc.age)); got != tc.offline {
			t.Fatalf("age %s: expected offline=%v, got %v", tc.age, tc.offline, got)
		}
	}
}

func TestLiveImmediatelyAfterNewLine(t *testing.T) {
	sp := &scriptSpawner{scripts: []*scriptSource{{data: []byte("P1 1 V\n")}}}
	a := newTestAssembler(newTestSupervisor(sp, SupervisorOptions{}), AssemblerOptions{})
	if !Offline(a.Reading(), time.Now()) {
		t.Fatalf("expected offline before any line")
	}
	if got := drain(a, 16); len(got) != 1 {
		t.Fatalf("expected one reading, got %d", len(got))
	}
	if Offline(a.Reading(), time.Now()) {
		t.Fatalf("expected live right after a completed line")
	}
}
