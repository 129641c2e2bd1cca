// Package acquire drives the oscilloscope variant: frames are pulled from a
// hardware source under a retry supervisor, upscaled, packed and written to
// the capture sink back to back.
package acquire

import (
	"context"
	"image"
	"log"
	"time"
)

const (
	// FailureThreshold is the number of consecutive acquisition failures
	// tolerated before the source is closed and reopened.
	FailureThreshold = 10
	// RetryDelay is the pause after every failed open or acquisition.
	RetryDelay = time.Second
)

// FrameSource is an open/acquire/close triple over a frame-producing device.
// Acquire returns an indexed-palette frame of fixed dimensions.
type FrameSource interface {
	Open() error
	Acquire() (*image.Paletted, error)
	Close() error
}

// SupervisorOptions tunes the retry policy and exposes hooks for counters.
type SupervisorOptions struct {
	Threshold  int
	RetryDelay time.Duration
	OnOpen     func()
	OnFailure  func(fails int)
	OnReopen   func()
}

// Supervisor implements the CLOSED/OPEN acquisition state machine.
//
// Purpose: Keep frames flowing from a flaky hardware source.
// Key aspects: Up to Threshold consecutive failures are absorbed while the
// source stays open; the next one closes it so the following call reopens.
// Every failure sleeps RetryDelay so a dead device never spins the CPU.
// Upstream: Loop.Run.
// Downstream: FrameSource.
type Supervisor struct {
	src       FrameSource
	opened    bool
	fails     int
	threshold int
	delay     time.Duration
	hooks     SupervisorOptions
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewSupervisor wraps src; zero options select FailureThreshold and RetryDelay.
func NewSupervisor(src FrameSource, opts SupervisorOptions) *Supervisor {
	if opts.Threshold <= 0 {
		opts.Threshold = FailureThreshold
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = RetryDelay
	}
	return &Supervisor{
		src:       src,
		threshold: opts.Threshold,
		delay:     opts.RetryDelay,
		hooks:     opts,
		sleep:     sleepCtx,
	}
}

// Next runs the state machine until a frame is acquired or ctx is done. The
// returned image may be reused by the source on the following call.
func (s *Supervisor) Next(ctx context.Context) (*image.Paletted, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !s.opened {
			if err := s.src.Open(); err != nil {
				log.Printf("Acquire: unable to open source: %v", err)
				if err := s.sleep(ctx, s.delay); err != nil {
					return nil, err
				}
				continue
			}
			s.opened = true
			s.fails = 0
			if s.hooks.OnOpen != nil {
				s.hooks.OnOpen()
			}
		}

		img, err := s.src.Acquire()
		if err != nil || img == nil {
			s.fails++
			if err != nil {
				log.Printf("Acquire: frame failure (%d consecutive): %v", s.fails, err)
			} else {
				log.Printf("Acquire: frame failure (%d consecutive)", s.fails)
			}
			if s.hooks.OnFailure != nil {
				s.hooks.OnFailure(s.fails)
			}
			if err := s.sleep(ctx, s.delay); err != nil {
				return nil, err
			}
			if s.fails > s.threshold {
				log.Printf("Acquire: %d consecutive failures, reopening source", s.fails)
				s.closeSource()
				if s.hooks.OnReopen != nil {
					s.hooks.OnReopen()
				}
			}
			continue
		}
		s.fails = 0
		return img, nil
	}
}

// Fails returns the consecutive failure count.
func (s *Supervisor) Fails() int {
	return s.fails
}

// Opened reports whether the source is currently open.
func (s *Supervisor) Opened() bool {
	return s.opened
}

// Close releases the source if it is open.
func (s *Supervisor) Close() error {
	if !s.opened {
		return nil
	}
	s.opened = false
	return s.src.Close()
}

func (s *Supervisor) closeSource() {
	s.opened = false
	if err := s.src.Close(); err != nil {
		log.Printf("Acquire: close failed: %v", err)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
