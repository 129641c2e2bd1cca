package main

import (
	"context"
	"log"
	"time"

	"github.com/MajenkoProjects/InstrumentVideo/framebuf"
	"github.com/MajenkoProjects/InstrumentVideo/logging"
	"github.com/MajenkoProjects/InstrumentVideo/pacer"
	"github.com/MajenkoProjects/InstrumentVideo/render"
	"github.com/MajenkoProjects/InstrumentVideo/stats"
	"github.com/MajenkoProjects/InstrumentVideo/telemetry"
)

type frameSink interface {
	WriteFrame(frame []byte) error
}

// dmmLoop interleaves telemetry polling with paced frame emission on one
// goroutine. The bounded poll inside Tick is its only idle wait.
type dmmLoop struct {
	asm     *telemetry.LineAssembler
	panel   *render.Panel
	conv    framebuf.Converter
	sink    frameSink
	pace    *pacer.Pacer
	tracker *stats.Tracker
	limiter *logging.Limiter
	buf     []byte
	now     func() time.Time
}

func newDMMLoop(asm *telemetry.LineAssembler, panel *render.Panel, out frameSink, tracker *stats.Tracker) *dmmLoop {
	b := panel.Bounds()
	conv := framebuf.NewConverter(b.Dx(), b.Dy())
	return &dmmLoop{
		asm:     asm,
		panel:   panel,
		conv:    conv,
		sink:    out,
		pace:    pacer.New(pacer.FrameInterval),
		tracker: tracker,
		limiter: logging.NewLimiter(10 * time.Second),
		buf:     conv.NewBuffer(),
		now:     time.Now,
	}
}

// Run loops until ctx is done. Cancellation is checked between iterations, so
// a frame write in progress always completes.
func (l *dmmLoop) Run(ctx context.Context) {
	for ctx.Err() == nil {
		l.step()
	}
}

// step performs one iteration: poll for a byte, then emit a frame if the
// pacer allows. It reports whether a frame was written.
func (l *dmmLoop) step() bool {
	l.asm.Tick()
	now := l.now()
	if !l.pace.Due(now) {
		return false
	}
	img := l.panel.Render(l.asm.Reading(), now)
	if err := l.conv.Convert(l.buf, img); err != nil {
		if line, ok := l.limiter.Allow("convert", "DMM: frame conversion failed: "+err.Error()); ok {
			log.Print(line)
		}
		return false
	}
	if err := l.sink.WriteFrame(l.buf); err != nil {
		l.tracker.IncrementWriteErrors()
		if line, ok := l.limiter.Allow("write", "DMM: frame write failed: "+err.Error()); ok {
			log.Print(line)
		}
		return false
	}
	l.tracker.RecordFrame(len(l.buf))
	l.tracker.SetFrameRate(l.pace.Actual())
	return true
}
