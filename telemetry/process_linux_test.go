//go:build linux

package telemetry

import (
	"testing"
	"time"
)

func TestCommandSpawnerReadsCombinedOutput(t *testing.T) {
	sp := CommandSpawner{Command: `printf 'P1 1.25 V\n'; printf 'P1 2.5 V\n' 1>&2`}
	sup := NewSupervisor(sp, SupervisorOptions{Cooldown: time.Millisecond, RetryBase: time.Second})
	defer sup.Close()
	a := NewLineAssembler(sup, AssemblerOptions{PollWait: time.Millisecond})

	var values []string
	deadline := time.Now().Add(5 * time.Second)
	for len(values) < 2 && time.Now().Before(deadline) {
		if a.Tick() {
			values = append(values, a.Reading().Value)
		}
	}
	if len(values) != 2 || values[0] != "1.25" || values[1] != "2.5" {
		t.Fatalf("expected stdout then stderr lines, got %v", values)
	}
}

func TestCommandSpawnerRespawnsAfterExit(t *testing.T) {
	sp := CommandSpawner{Command: `printf 'P1 3 V\n'`}
	sup := NewSupervisor(sp, SupervisorOptions{Cooldown: time.Millisecond, RetryBase: time.Second})
	defer sup.Close()
	a := NewLineAssembler(sup, AssemblerOptions{PollWait: time.Millisecond})

	readings := 0
	deadline := time.Now().Add(5 * time.Second)
	for readings < 3 && time.Now().Before(deadline) {
		if a.Tick() {
			readings++
		}
	}
	if readings < 3 {
		t.Fatalf("expected readings from three producer runs, got %d", readings)
	}
	if sup.Respawns() < 2 {
		t.Fatalf("expected at least two respawns, got %d", sup.Respawns())
	}
}

func TestProcessSourcePollTimesOut(t *testing.T) {
	src, err := CommandSpawner{Command: "sleep 5"}.Spawn()
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	start := time.Now()
	_, ok, err := src.PollByte(20 * time.Millisecond)
	if err != nil || ok {
		t.Fatalf("expected an empty poll, got ok=%v err=%v", ok, err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("poll blocked for %s", elapsed)
	}
	closeStart := time.Now()
	if err := src.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if elapsed := time.Since(closeStart); elapsed > 3*time.Second {
		t.Fatalf("close took %s; expected the process group to be stopped", elapsed)
	}
}
