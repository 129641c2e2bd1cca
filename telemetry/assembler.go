package telemetry

import (
	"errors"
	"io"
	"log"
	"time"
)

// ErrLineTooLong is reported through OnDropped when a line exceeds the buffer bound.
var ErrLineTooLong = errors.New("telemetry line too long")

// AssemblerOptions configures a LineAssembler.
type AssemblerOptions struct {
	// MaxLine bounds the line buffer. Longer lines are discarded up to the next terminator.
	MaxLine int
	// PollWait bounds how long a Tick waits for a byte.
	PollWait time.Duration
	// OnReading is called after each Reading is published.
	OnReading func(Reading)
	// OnDropped is called once per discarded overlong line.
	OnDropped func(err error)
}

// LineAssembler builds lines one byte at a time from the supervised producer
// and publishes a Reading for each completed line. It is not safe for
// concurrent use; the owning loop is its only caller.
type LineAssembler struct {
	sup       *Supervisor
	wait      time.Duration
	max       int
	buf       []byte
	dropping  bool
	current   Reading
	onReading func(Reading)
	onDropped func(error)

	now   func() time.Time
	sleep func(time.Duration)
}

// NewLineAssembler creates an assembler that reads through sup.
func NewLineAssembler(sup *Supervisor, opts AssemblerOptions) *LineAssembler {
	max := opts.MaxLine
	if max <= 0 {
		max = 100
	}
	return &LineAssembler{
		sup:       sup,
		wait:      opts.PollWait,
		max:       max,
		buf:       make([]byte, 0, max),
		onReading: opts.OnReading,
		onDropped: opts.OnDropped,
		now:       time.Now,
		sleep:     time.Sleep,
	}
}

// Reading returns the latest published Reading (zero before the first line).
func (a *LineAssembler) Reading() Reading {
	return a.current
}

// Tick polls for at most one byte and feeds it into the line buffer. It never
// blocks longer than the poll wait (plus a respawn cooldown after an
// end-of-stream). It reports whether a new Reading was published.
func (a *LineAssembler) Tick() bool {
	src := a.sup.Source()
	if src == nil {
		// producer unavailable; idle for one poll window
		a.sleep(a.wait)
		return false
	}
	b, ok, err := src.PollByte(a.wait)
	if err != nil {
		if !errors.Is(err, io.EOF) {
			log.Printf("Telemetry: read error: %v", err)
		}
		a.resetLine()
		a.sup.Restart(err)
		return false
	}
	if !ok {
		return false
	}
	return a.feed(b)
}

func (a *LineAssembler) feed(b byte) bool {
	switch b {
	case '\n':
		if a.dropping {
			a.resetLine()
			return false
		}
		a.publish()
		return true
	case '\r':
		return false
	}
	if a.dropping {
		return false
	}
	if len(a.buf) >= a.max {
		a.dropping = true
		a.buf = a.buf[:0]
		if a.onDropped != nil {
			a.onDropped(ErrLineTooLong)
		}
		return false
	}
	a.buf = append(a.buf, b)
	return false
}

func (a *LineAssembler) publish() {
	at := a.now()
	if at.Before(a.current.At) {
		at = a.current.At
	}
	a.current = parseLine(a.buf, at)
	a.resetLine()
	if a.onReading != nil {
		a.onReading(a.current)
	}
}

func (a *LineAssembler) resetLine() {
	a.buf = a.buf[:0]
	a.dropping = false
}
