// Package logging routes the standard logger to the console (or dashboard)
// and to optional daily log files.
package logging

import (
	"bytes"
	"io"
	"sync"
	"time"

	"github.com/MajenkoProjects/InstrumentVideo/config"
)

const (
	timestampLayout = "2006/01/02 15:04:05"
	maxPendingBytes = 16 * 1024
)

// LineSink receives complete log lines.
type LineSink interface {
	WriteLine(line string, now time.Time)
	Close() error
}

type writerSink struct {
	w             io.Writer
	withTimestamp bool
}

func (s *writerSink) WriteLine(line string, now time.Time) {
	if s == nil || s.w == nil {
		return
	}
	if s.withTimestamp {
		line = formatTimestamp(now) + " " + line
	}
	_, _ = io.WriteString(s.w, line+"\n")
}

func (s *writerSink) Close() error {
	return nil
}

// Fanout is an io.Writer for log.SetOutput that splits output into lines and
// hands each one to the console sink and the file sink.
type Fanout struct {
	mu      sync.Mutex
	pending []byte
	console LineSink
	file    LineSink
}

// NewFanout returns a fanout over the given sinks; either may be nil.
func NewFanout(console, file LineSink) *Fanout {
	return &Fanout{console: console, file: file}
}

// Setup builds the process log fanout.
//
// Purpose: Wire logging from config without blocking startup.
// Key aspects: Always returns a usable fanout; a file sink failure is
// returned alongside it so the caller can log a warning.
// Upstream: dmmcam and scopecam startup.
// Downstream: NewDailyFileSink.
func Setup(cfg config.LoggingConfig, console io.Writer) (*Fanout, error) {
	fanout := NewFanout(&writerSink{w: console, withTimestamp: true}, nil)
	if !cfg.Enabled {
		return fanout, nil
	}
	sink, err := NewDailyFileSink(cfg.Dir, cfg.RetentionDays)
	if err != nil {
		return fanout, err
	}
	fanout.SetFileSink(sink)
	return fanout, nil
}

// SetConsole swaps the console sink, e.g. to the dashboard log pane.
func (f *Fanout) SetConsole(w io.Writer, withTimestamp bool) {
	if f == nil {
		return
	}
	var sink LineSink
	if w != nil {
		sink = &writerSink{w: w, withTimestamp: withTimestamp}
	}
	f.mu.Lock()
	f.console = sink
	f.mu.Unlock()
}

// SetFileSink attaches or replaces the file sink.
func (f *Fanout) SetFileSink(sink LineSink) {
	if f == nil {
		return
	}
	f.mu.Lock()
	f.file = sink
	f.mu.Unlock()
}

// Write buffers partial lines and dispatches complete ones. Sinks are called
// outside the lock so a sink may itself log.
func (f *Fanout) Write(p []byte) (int, error) {
	if f == nil {
		return len(p), nil
	}
	f.mu.Lock()
	f.pending = append(f.pending, p...)
	data := f.pending
	var lines []string
	for {
		idx := bytes.IndexByte(data, '\n')
		if idx < 0 {
			break
		}
		lines = append(lines, string(bytes.TrimRight(data[:idx], "\r")))
		data = data[idx+1:]
	}
	if len(data) > maxPendingBytes {
		if rest := string(bytes.TrimRight(data, "\r")); rest != "" {
			lines = append(lines, rest)
		}
		data = data[:0]
	}
	f.pending = append(f.pending[:0], data...)
	console, file := f.console, f.file
	f.mu.Unlock()

	now := time.Now().UTC()
	for _, line := range lines {
		if console != nil {
			console.WriteLine(line, now)
		}
		if file != nil {
			file.WriteLine(line, now)
		}
	}
	return len(p), nil
}

// WriteFileOnly writes a line to the file sink only, for periodic lines that
// would flood the console.
func (f *Fanout) WriteFileOnly(line string, now time.Time) {
	if f == nil {
		return
	}
	f.mu.Lock()
	file := f.file
	f.mu.Unlock()
	if file != nil {
		file.WriteLine(line, now)
	}
}

// Close closes both sinks and returns the file sink's error.
func (f *Fanout) Close() error {
	if f == nil {
		return nil
	}
	f.mu.Lock()
	console, file := f.console, f.file
	f.mu.Unlock()
	if console != nil {
		_ = console.Close()
	}
	if file != nil {
		return file.Close()
	}
	return nil
}

func formatTimestamp(now time.Time) string {
	return now.UTC().Format(timestampLayout)
}
