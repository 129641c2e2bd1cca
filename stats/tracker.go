// Package stats tracks loop counters for display in the dashboard and the
// periodic console output. The frame loops are the only writers; observers on
// other goroutines read through the atomic accessors.
package stats

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
)

// Tracker holds counters for one bridge process.
type Tracker struct {
	// per-unit reading counts; units are few so a sync.Map of atomics is enough
	unitCounts sync.Map // string -> *atomic.Uint64

	start         atomic.Int64
	readings      atomic.Uint64
	droppedLines  atomic.Uint64
	respawns      atomic.Uint64
	framesWritten atomic.Uint64
	bytesWritten  atomic.Uint64
	writeErrors   atomic.Uint64
	acquireFails  atomic.Uint64
	reopens       atomic.Uint64
	lastReadingAt atomic.Int64
	lastReading   atomic.Value // string
	connected     atomic.Bool
	frameRate     atomic.Uint64 // float64 bits
}

// NewTracker creates a new stats tracker
func NewTracker() *Tracker {
	t := &Tracker{}
	t.start.Store(time.Now().UnixNano())
	t.lastReading.Store("")
	return t
}

// RecordReading counts a published reading and remembers when it arrived.
func (t *Tracker) RecordReading(label, value, unit string, at time.Time) {
	t.readings.Add(1)
	t.lastReadingAt.Store(at.UnixNano())
	t.lastReading.Store(strings.TrimSpace(label + " " + value + " " + unit))
	key := strings.TrimSpace(unit)
	if key == "" {
		key = "-"
	}
	incrementCounter(&t.unitCounts, key)
}

// IncrementDroppedLines counts a telemetry line discarded for length.
func (t *Tracker) IncrementDroppedLines() {
	t.droppedLines.Add(1)
}

// IncrementRespawns counts a telemetry source restart.
func (t *Tracker) IncrementRespawns() {
	t.respawns.Add(1)
}

// RecordFrame counts a frame written to the sink.
func (t *Tracker) RecordFrame(bytes int) {
	t.framesWritten.Add(1)
	t.bytesWritten.Add(uint64(bytes))
}

// IncrementWriteErrors counts a failed sink write.
func (t *Tracker) IncrementWriteErrors() {
	t.writeErrors.Add(1)
}

// IncrementAcquireFailures counts a failed scope acquisition.
func (t *Tracker) IncrementAcquireFailures() {
	t.acquireFails.Add(1)
}

// IncrementReopens counts a scope source close/reopen cycle.
func (t *Tracker) IncrementReopens() {
	t.reopens.Add(1)
}

// SetConnected records whether a telemetry source is currently attached.
func (t *Tracker) SetConnected(v bool) {
	t.connected.Store(v)
}

// SetFrameRate publishes the measured emission rate.
func (t *Tracker) SetFrameRate(fps float64) {
	t.frameRate.Store(math.Float64bits(fps))
}

func (t *Tracker) Readings() uint64      { return t.readings.Load() }
func (t *Tracker) DroppedLines() uint64  { return t.droppedLines.Load() }
func (t *Tracker) Respawns() uint64      { return t.respawns.Load() }
func (t *Tracker) FramesWritten() uint64 { return t.framesWritten.Load() }
func (t *Tracker) BytesWritten() uint64  { return t.bytesWritten.Load() }
func (t *Tracker) WriteErrors() uint64   { return t.writeErrors.Load() }
func (t *Tracker) AcquireFailures() uint64 {
	return t.acquireFails.Load()
}
func (t *Tracker) Reopens() uint64 { return t.reopens.Load() }
func (t *Tracker) Connected() bool { return t.connected.Load() }

// FrameRate returns the last published emission rate.
func (t *Tracker) FrameRate() float64 {
	return math.Float64frombits(t.frameRate.Load())
}

// LastReadingAt returns the arrival time of the newest reading, or the zero
// time when none has arrived.
func (t *Tracker) LastReadingAt() time.Time {
	ns := t.lastReadingAt.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// LastReading returns the newest reading as "label value unit".
func (t *Tracker) LastReading() string {
	v, _ := t.lastReading.Load().(string)
	return v
}

// GetUnitCounts returns a copy of reading counts by unit.
func (t *Tracker) GetUnitCounts() map[string]uint64 {
	counts := make(map[string]uint64)
	t.unitCounts.Range(func(key, value any) bool {
		counts[key.(string)] = value.(*atomic.Uint64).Load()
		return true
	})
	return counts
}

// GetUptime returns how long the tracker has been running
func (t *Tracker) GetUptime() time.Duration {
	start := t.start.Load()
	return time.Since(time.Unix(0, start))
}

// SnapshotLines returns human-readable stats ready for console display.
func (t *Tracker) SnapshotLines() []string {
	lines := make([]string, 0, 4)
	lines = append(lines, fmt.Sprintf("Frames: %s written (%s), %s write errors, %.2f fps",
		humanize.Comma(int64(t.FramesWritten())),
		humanize.Bytes(t.BytesWritten()),
		humanize.Comma(int64(t.WriteErrors())),
		t.FrameRate()))
	if t.AcquireFailures() > 0 || t.Reopens() > 0 {
		lines = append(lines, fmt.Sprintf("Acquisition: %s failures, %s reopens",
			humanize.Comma(int64(t.AcquireFailures())),
			humanize.Comma(int64(t.Reopens()))))
	}
	if t.Readings() > 0 || t.Respawns() > 0 || t.DroppedLines() > 0 {
		lines = append(lines, fmt.Sprintf("Telemetry: %s readings, %s dropped lines, %s respawns",
			humanize.Comma(int64(t.Readings())),
			humanize.Comma(int64(t.DroppedLines())),
			humanize.Comma(int64(t.Respawns()))))
		lines = append(lines, formatMapCounts("Readings by unit", &t.unitCounts))
	}
	return lines
}

func formatMapCounts(label string, counts *sync.Map) string {
	keys := make([]string, 0, 8)
	values := make(map[string]uint64)
	counts.Range(func(key, value any) bool {
		k := key.(string)
		keys = append(keys, k)
		values[k] = value.(*atomic.Uint64).Load()
		return true
	})
	sort.Strings(keys)
	var builder strings.Builder
	builder.WriteString(label)
	builder.WriteString(": ")
	for i, k := range keys {
		if i > 0 {
			builder.WriteString(", ")
		}
		fmt.Fprintf(&builder, "%s=%s", k, humanize.Comma(int64(values[k])))
	}
	if len(keys) == 0 {
		builder.WriteString("(none)")
	}
	return builder.String()
}

func incrementCounter(m *sync.Map, key string) {
	if strings.TrimSpace(key) == "" {
		return
	}
	if value, ok := m.Load(key); ok {
		value.(*atomic.Uint64).Add(1)
		return
	}
	counter := &atomic.Uint64{}
	actual, loaded := m.LoadOrStore(key, counter)
	if loaded {
		actual.(*atomic.Uint64).Add(1)
		return
	}
	counter.Add(1)
}
