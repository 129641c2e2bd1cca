// Package pacer decides when the next frame may be emitted. It enforces a
// minimum interval between frames and measures the rate actually achieved.
// It is not a periodic scheduler: a late loop skips frames instead of
// catching up.
package pacer

import "time"

// FrameInterval is the target spacing of emitted frames (nominal 30 fps).
const FrameInterval = 33300 * time.Microsecond

// Pacer holds the time of the last emission. It is owned by one loop and is
// not safe for concurrent use.
type Pacer struct {
	interval time.Duration
	last     time.Time

	// actual rate measurement
	actual    float64
	count     int
	countGoal int
	refTime   time.Time
}

// New returns a pacer with the given minimum interval; non-positive values
// select FrameInterval.
func New(interval time.Duration) *Pacer {
	if interval <= 0 {
		interval = FrameInterval
	}
	return &Pacer{interval: interval, countGoal: targetCount(interval)}
}

// Interval returns the configured minimum spacing.
func (p *Pacer) Interval() time.Duration {
	return p.interval
}

// Due reports whether a frame may be emitted at now. When it returns true the
// pacing clock is moved to now.
func (p *Pacer) Due(now time.Time) bool {
	if !p.last.IsZero() && now.Sub(p.last) < p.interval {
		return false
	}
	p.last = now
	p.measure(now)
	return true
}

// Mark records an emission for rate measurement without consulting the
// interval, for loops paced by something else.
func (p *Pacer) Mark(now time.Time) {
	p.measure(now)
}

// Actual returns the measured emission rate in frames per second. It is zero
// until the first measurement window completes.
func (p *Pacer) Actual() float64 {
	return p.actual
}

// measure recomputes the actual rate roughly once per second of frames.
func (p *Pacer) measure(now time.Time) {
	if p.refTime.IsZero() {
		p.refTime = now
		return
	}
	p.count++
	if p.count < p.countGoal {
		return
	}
	elapsed := now.Sub(p.refTime).Seconds()
	if elapsed > 0 {
		p.actual = float64(p.count) / elapsed
	}
	// re-measure about every second; slow rates are re-measured every frame
	if p.actual > 1 {
		p.countGoal = int(p.actual)
	} else {
		p.countGoal = 1
	}
	p.refTime = now
	p.count = 0
}

func targetCount(interval time.Duration) int {
	n := int(time.Second / interval)
	if n < 1 {
		return 1
	}
	return n
}
