package telemetry

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestAssemblerPublishesTokens(t *testing.T) {
	tests := []struct {
		line  string
		label string
		value string
		unit  string
	}{
		{line: "P1 0.0312 V\n", label: "P1", value: "0.0312", unit: "V"},
		{line: "P1 -12.5 mA\r\n", label: "P1", value: "-12.5", unit: "mA"},
		{line: "P1  inf   Ohm\n", label: "P1", value: "inf", unit: "Ohm"},
		{line: "P1 230.1 V AC\n", label: "P1", value: "230.1", unit: "V AC"},
		{line: "P1 4.2\n", label: "P1", value: "4.2", unit: ""},
	}
	for _, tc := range tests {
		sp := &scriptSpawner{scripts: []*scriptSource{{data: []byte(tc.line)}}}
		a := newTestAssembler(newTestSupervisor(sp, SupervisorOptions{}), AssemblerOptions{})
		got := drain(a, len(tc.line)+2)
		if len(got) != 1 {
			t.Fatalf("%q: expected one reading, got %d", tc.line, len(got))
		}
		r := got[0]
		if r.Label != tc.label || r.Value != tc.value || r.Unit != tc.unit {
			t.Fatalf("%q: got label=%q value=%q unit=%q", tc.line, r.Label, r.Value, r.Unit)
		}
	}
}

func TestAssemblerTimestampsAreMonotonic(t *testing.T) {
	script := strings.Repeat("P1 1.000 V\n", 20)
	sp := &scriptSpawner{scripts: []*scriptSource{{data: []byte(script)}}}
	a := newTestAssembler(newTestSupervisor(sp, SupervisorOptions{}), AssemblerOptions{})
	got := drain(a, len(script)+1)
	if len(got) != 20 {
		t.Fatalf("expected 20 readings, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].At.Before(got[i-1].At) {
			t.Fatalf("reading %d timestamp %s before previous %s", i, got[i].At, got[i-1].At)
		}
	}
}

func TestAssemblerClampsBackwardClock(t *testing.T) {
	sp := &scriptSpawner{scripts: []*scriptSource{{data: []byte("A 1 V\nB 2 V\n")}}}
	a := newTestAssembler(newTestSupervisor(sp, SupervisorOptions{}), AssemblerOptions{})
	base := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	clock := &fakeClock{t: base, step: -time.Second}
	a.now = clock.Now
	got := drain(a, 16)
	if len(got) != 2 {
		t.Fatalf("expected two readings, got %d", len(got))
	}
	if got[1].At.Before(got[0].At) {
		t.Fatalf("expected clamped timestamp, got %s before %s", got[1].At, got[0].At)
	}
}

func TestAssemblerEmptyLineHasNoResidue(t *testing.T) {
	sp := &scriptSpawner{scripts: []*scriptSource{{data: []byte("P1 9.87 V\n\n")}}}
	a := newTestAssembler(newTestSupervisor(sp, SupervisorOptions{}), AssemblerOptions{})
	got := drain(a, 16)
	if len(got) != 2 {
		t.Fatalf("expected two readings, got %d", len(got))
	}
	empty := got[1]
	if empty.Label != "" || empty.Value != "" || empty.Unit != "" {
		t.Fatalf("expected empty reading, got %+v", empty)
	}
	if empty.IsZero() {
		t.Fatalf("empty line should still refresh the timestamp")
	}
}

func TestAssemblerIdleTickIsNoop(t *testing.T) {
	sp := &scriptSpawner{scripts: []*scriptSource{{data: []byte("P1 1 V\n"), idleGap: 3}}}
	a := newTestAssembler(newTestSupervisor(sp, SupervisorOptions{}), AssemblerOptions{})
	for i := 0; i < 3; i++ {
		if a.Tick() {
			t.Fatalf("idle tick %d published a reading", i)
		}
	}
	if len(a.buf) != 0 {
		t.Fatalf("idle ticks should not touch the line buffer")
	}
	if got := drain(a, 64); len(got) != 1 {
		t.Fatalf("expected one reading after idle gaps, got %d", len(got))
	}
}

func TestAssemblerDropsOverlongLine(t *testing.T) {
	long := strings.Repeat("X", 40)
	script := "P1 " + long + " V\nP1 1.5 V\n"
	sp := &scriptSpawner{scripts: []*scriptSource{{data: []byte(script)}}}
	var dropped []error
	a := newTestAssembler(newTestSupervisor(sp, SupervisorOptions{}), AssemblerOptions{
		MaxLine:   16,
		OnDropped: func(err error) { dropped = append(dropped, err) },
	})
	got := drain(a, len(script)+1)
	if len(dropped) != 1 || !errors.Is(dropped[0], ErrLineTooLong) {
		t.Fatalf("expected one ErrLineTooLong, got %v", dropped)
	}
	if len(got) != 1 {
		t.Fatalf("expected only the short line to publish, got %d readings", len(got))
	}
	if got[0].Value != "1.5" || got[0].Unit != "V" {
		t.Fatalf("unexpected reading after drop: %+v", got[0])
	}
	if len(a.buf) > 16 {
		t.Fatalf("line buffer exceeded bound: %d", len(a.buf))
	}
}

func TestAssemblerLineAtBoundPublishes(t *testing.T) {
	line := "P1 12.345 V"
	sp := &scriptSpawner{scripts: []*scriptSource{{data: []byte(line + "\n")}}}
	a := newTestAssembler(newTestSupervisor(sp, SupervisorOptions{}), AssemblerOptions{MaxLine: len(line)})
	got := drain(a, len(line)+2)
	if len(got) != 1 || got[0].Value != "12.345" {
		t.Fatalf("expected line at the bound to publish, got %+v", got)
	}
}

func TestAssemblerOnReadingHook(t *testing.T) {
	sp := &scriptSpawner{scripts: []*scriptSource{{data: []byte("P1 1 V\nP1 2 V\n")}}}
	var seen []string
	a := newTestAssembler(newTestSupervisor(sp, SupervisorOptions{}), AssemblerOptions{
		OnReading: func(r Reading) { seen = append(seen, r.Value) },
	})
	drain(a, 32)
	if strings.Join(seen, ",") != "1,2" {
		t.Fatalf("unexpected hook values %v", seen)
	}
}

func TestReadingOverflow(t *testing.T) {
	if !(Reading{Value: "inf"}).IsOverflow() {
		t.Fatalf("expected inf to be overflow")
	}
	if (Reading{Value: "1.0"}).IsOverflow() {
		t.Fatalf("expected 1.0 to be a regular value")
	}
}
