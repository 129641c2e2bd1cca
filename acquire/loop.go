package acquire

import (
	"context"
	"errors"
	"image"
	"log"
	"time"

	"github.com/MajenkoProjects/InstrumentVideo/framebuf"
	"github.com/MajenkoProjects/InstrumentVideo/logging"
	"github.com/MajenkoProjects/InstrumentVideo/pacer"
	"github.com/MajenkoProjects/InstrumentVideo/stats"
)

// FrameWriter is the capture sink side of the loop.
type FrameWriter interface {
	WriteFrame(frame []byte) error
}

// Loop pulls frames from the supervisor and writes them upscaled 2x, back to
// back; acquisition latency is the only pacing.
type Loop struct {
	sup     *Supervisor
	conv    framebuf.Converter
	sink    FrameWriter
	tracker *stats.Tracker
	limiter *logging.Limiter
	rate    *pacer.Pacer

	up  *image.Paletted
	buf []byte
}

// NewLoop builds a loop writing outWidth x outHeight frames. tracker may be nil.
func NewLoop(sup *Supervisor, sink FrameWriter, outWidth, outHeight int, tracker *stats.Tracker) *Loop {
	conv := framebuf.NewConverter(outWidth, outHeight)
	return &Loop{
		sup:     sup,
		conv:    conv,
		sink:    sink,
		tracker: tracker,
		limiter: logging.NewLimiter(10 * time.Second),
		rate:    pacer.New(pacer.FrameInterval),
		buf:     conv.NewBuffer(),
	}
}

// Run loops until ctx is done and returns nil on cancellation. The source is
// closed on exit; an in-flight write always completes.
func (l *Loop) Run(ctx context.Context) error {
	defer l.sup.Close()
	for {
		img, err := l.sup.Next(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
		if err := l.Emit(img); err != nil {
			return err
		}
	}
}

// Emit upscales, packs and writes one frame. A sink failure is logged and
// counted but not returned; a geometry mismatch is returned.
func (l *Loop) Emit(img *image.Paletted) error {
	l.up = framebuf.UpscaleInto(l.up, img)
	if err := l.conv.Convert(l.buf, l.up); err != nil {
		return err
	}
	if err := l.sink.WriteFrame(l.buf); err != nil {
		if l.tracker != nil {
			l.tracker.IncrementWriteErrors()
		}
		if line, ok := l.limiter.Allow("write", "Scope: frame write failed: "+err.Error()); ok {
			log.Print(line)
		}
		return nil
	}
	if l.tracker != nil {
		l.tracker.RecordFrame(len(l.buf))
		l.rate.Mark(time.Now())
		l.tracker.SetFrameRate(l.rate.Actual())
	}
	return nil
}
