// Package sink writes packed frames to a virtual capture device. A write is a
// single blocking call of exactly one frame; failures are returned to the
// caller and never retried here.
package sink

import (
	"errors"
	"fmt"
	"io"
	"os"
)

var (
	ErrFrameSize  = errors.New("frame size does not match sink format")
	ErrShortWrite = io.ErrShortWrite
)

// Format is the frame geometry negotiated once at startup.
type Format struct {
	Width  int
	Height int
}

// BytesPerLine returns the packed row size (3 bytes per pixel).
func (f Format) BytesPerLine() int {
	return f.Width * 3
}

// SizeImage returns the size of one frame in bytes.
func (f Format) SizeImage() int {
	return f.BytesPerLine() * f.Height
}

func (f Format) String() string {
	return fmt.Sprintf("%dx%d RGB3", f.Width, f.Height)
}

// Capability is the identity reported by a capture device.
type Capability struct {
	Driver string
	Card   string
	Bus    string
}

// Writer is a frame sink.
type Writer struct {
	path      string
	format    Format
	w         io.WriteCloser
	caps      Capability
	formatErr error
}

// OpenFile opens path as a plain frame sink without device negotiation. It is
// suited to FIFOs and files consumed by other tools.
func OpenFile(path string, format Format) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("unable to open %s: %w", path, err)
	}
	return newWriter(path, format, f), nil
}

func newWriter(path string, format Format, w io.WriteCloser) *Writer {
	return &Writer{path: path, format: format, w: w}
}

// Path returns the sink location.
func (s *Writer) Path() string {
	return s.path
}

// Format returns the negotiated frame format.
func (s *Writer) Format() Format {
	return s.format
}

// Capability returns the device identity; it is empty for plain file sinks.
func (s *Writer) Capability() Capability {
	return s.caps
}

// FormatError returns the error from format negotiation, if the device
// rejected the requested format.
func (s *Writer) FormatError() error {
	return s.formatErr
}

// WriteFrame writes exactly one frame of SizeImage bytes.
func (s *Writer) WriteFrame(frame []byte) error {
	if len(frame) != s.format.SizeImage() {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrFrameSize, len(frame), s.format.SizeImage())
	}
	n, err := s.w.Write(frame)
	if err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	if n != len(frame) {
		return fmt.Errorf("write %s: %w (%d of %d bytes)", s.path, ErrShortWrite, n, len(frame))
	}
	return nil
}

// Close releases the sink.
func (s *Writer) Close() error {
	if s == nil || s.w == nil {
		return nil
	}
	err := s.w.Close()
	s.w = nil
	return err
}
