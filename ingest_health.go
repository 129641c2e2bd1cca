package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/MajenkoProjects/InstrumentVideo/stats"
	"github.com/MajenkoProjects/InstrumentVideo/telemetry"
	"github.com/MajenkoProjects/InstrumentVideo/ui"
)

const (
	telemetryHealthInterval  = 5 * time.Second
	telemetryHealthLogPrefix = "Telemetry Health: "
)

type telemetryHealthSnapshot struct {
	Connected     bool
	LastReadingAt time.Time
	Readings      uint64
	Respawns      uint64
	DroppedLines  uint64
}

type telemetryHealthState struct {
	connected   bool
	offline     bool
	initialized bool
}

func snapshotTelemetryHealth(tracker *stats.Tracker) telemetryHealthSnapshot {
	return telemetryHealthSnapshot{
		Connected:     tracker.Connected(),
		LastReadingAt: tracker.LastReadingAt(),
		Readings:      tracker.Readings(),
		Respawns:      tracker.Respawns(),
		DroppedLines:  tracker.DroppedLines(),
	}
}

// Purpose: Periodically log telemetry health transitions with low noise.
// Key aspects: Reports only on connected/offline state changes; reads tracker
// atomics and never touches loop-owned state.
// Upstream: dmmcam startup.
// Downstream: log.Printf and ui.Surface.AppendEvent.
func startTelemetryHealthMonitor(ctx context.Context, interval time.Duration, tracker *stats.Tracker, surface ui.Surface) {
	if tracker == nil {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		var state telemetryHealthState
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				var line string
				var changed bool
				state, line, changed = observeTelemetryHealth(state, snapshotTelemetryHealth(tracker), time.Now())
				if !changed {
					continue
				}
				log.Printf("%s%s", telemetryHealthLogPrefix, line)
				if surface != nil {
					surface.AppendEvent(line)
				}
			}
		}
	}()
}

// observeTelemetryHealth folds snap into state and returns the line to report
// when the connected or offline status changed.
func observeTelemetryHealth(state telemetryHealthState, snap telemetryHealthSnapshot, now time.Time) (telemetryHealthState, string, bool) {
	offline := telemetry.Offline(telemetry.Reading{At: snap.LastReadingAt}, now)
	if state.initialized && state.connected == snap.Connected && state.offline == offline {
		return state, "", false
	}
	next := telemetryHealthState{connected: snap.Connected, offline: offline, initialized: true}
	return next, formatTelemetryHealthLine(snap, offline, now), true
}

func formatTelemetryHealthLine(snap telemetryHealthSnapshot, offline bool, now time.Time) string {
	status := "connected"
	if !snap.Connected {
		status = "disconnected"
	}
	state := "live"
	if offline {
		state = "offline"
	}
	var b strings.Builder
	b.WriteString(status)
	b.WriteString(" ")
	b.WriteString(state)
	b.WriteString(" last_reading=")
	b.WriteString(ageString(now, snap.LastReadingAt))
	fmt.Fprintf(&b, " readings=%d", snap.Readings)
	if snap.Respawns > 0 {
		fmt.Fprintf(&b, " respawns=%d", snap.Respawns)
	}
	if snap.DroppedLines > 0 {
		fmt.Fprintf(&b, " dropped_lines=%d", snap.DroppedLines)
	}
	return b.String()
}

func ageString(now time.Time, at time.Time) string {
	if at.IsZero() {
		return "never"
	}
	age := now.Sub(at)
	if age < 0 {
		age = 0
	}
	if age < time.Second {
		return "0s"
	}
	return age.Truncate(time.Second).String()
}
