package telemetry

import (
	"errors"
	"io"
	"time"
)

// scriptSource replays a fixed byte script, then reports io.EOF (or idles).
type scriptSource struct {
	data    []byte
	pos     int
	eof     bool
	closed  bool
	idleGap int // number of empty polls before each byte
	gap     int
}

func (s *scriptSource) PollByte(time.Duration) (byte, bool, error) {
	if s.pos >= len(s.data) {
		if s.eof {
			return 0, false, io.EOF
		}
		return 0, false, nil
	}
	if s.gap < s.idleGap {
		s.gap++
		return 0, false, nil
	}
	s.gap = 0
	b := s.data[s.pos]
	s.pos++
	return b, true, nil
}

func (s *scriptSource) Close() error {
	s.closed = true
	return nil
}

// scriptSpawner hands out one scriptSource per Spawn call.
type scriptSpawner struct {
	scripts []*scriptSource
	spawns  int
	failFor int
}

var errSpawn = errors.New("spawn refused")

func (s *scriptSpawner) Spawn() (ByteSource, error) {
	s.spawns++
	if s.failFor > 0 {
		s.failFor--
		return nil, errSpawn
	}
	if len(s.scripts) == 0 {
		return &scriptSource{}, nil
	}
	src := s.scripts[0]
	s.scripts = s.scripts[1:]
	return src, nil
}

func (s *scriptSpawner) String() string { return "script" }

// fakeClock advances by step on every call.
type fakeClock struct {
	t    time.Time
	step time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.t = c.t.Add(c.step)
	return c.t
}

func newTestSupervisor(sp Spawner, opts SupervisorOptions) *Supervisor {
	s := NewSupervisor(sp, opts)
	s.sleep = func(time.Duration) {}
	return s
}

func newTestAssembler(sup *Supervisor, opts AssemblerOptions) *LineAssembler {
	a := NewLineAssembler(sup, opts)
	a.sleep = func(time.Duration) {}
	return a
}

func drain(a *LineAssembler, ticks int) []Reading {
	var out []Reading
	for i := 0; i < ticks; i++ {
		if a.Tick() {
			out = append(out, a.Reading())
		}
	}
	return out
}
