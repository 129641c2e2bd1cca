package acquire

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"
)

// ScopePalette is the 16-colour palette of the DSO screen buffer. Several
// indices are unused by the instrument and read as black.
var ScopePalette = color.Palette{
	color.RGBA{0x00, 0x00, 0x00, 0xff},
	color.RGBA{0x2b, 0x2b, 0x2b, 0xff},
	color.RGBA{0x00, 0x00, 0x00, 0xff},
	color.RGBA{0x60, 0x60, 0x60, 0xff},
	color.RGBA{0x00, 0x00, 0x00, 0xff},
	color.RGBA{0x00, 0x00, 0x00, 0xff},
	color.RGBA{20, 130, 218, 0xff},
	color.RGBA{0x00, 0x00, 0x00, 0xff},
	color.RGBA{0x00, 0x00, 0x00, 0xff},
	color.RGBA{0x00, 0x00, 0x00, 0xff},
	color.RGBA{0x00, 0x00, 0x00, 0xff},
	color.RGBA{0x40, 0x40, 0x40, 0xff},
	color.RGBA{0, 200, 80, 0xff},
	color.RGBA{200, 170, 0, 0xff},
	color.RGBA{200, 0, 100, 0xff},
	color.RGBA{0xff, 0xff, 0xff, 0xff},
}

var ErrNotOpen = errors.New("frame source not open")

// FileSource reads raw index frames, one byte per pixel, from a device node
// or FIFO fed by the instrument's acquisition tool. End of file counts as an
// acquisition failure, so a regular capture file replays after a reopen.
type FileSource struct {
	Path    string
	Width   int
	Height  int
	Palette color.Palette

	f   io.ReadCloser
	img *image.Paletted
}

// NewFileSource returns a source for width x height frames using ScopePalette.
func NewFileSource(path string, width, height int) *FileSource {
	return &FileSource{Path: path, Width: width, Height: height, Palette: ScopePalette}
}

func (s *FileSource) Open() error {
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("invalid frame size %dx%d", s.Width, s.Height)
	}
	f, err := os.Open(s.Path)
	if err != nil {
		return fmt.Errorf("open %s: %w", s.Path, err)
	}
	s.f = f
	return nil
}

// Acquire reads the next frame. The image is reused between calls.
func (s *FileSource) Acquire() (*image.Paletted, error) {
	if s.f == nil {
		return nil, ErrNotOpen
	}
	if s.img == nil {
		pal := s.Palette
		if pal == nil {
			pal = ScopePalette
		}
		s.img = image.NewPaletted(image.Rect(0, 0, s.Width, s.Height), pal)
	}
	if _, err := io.ReadFull(s.f, s.img.Pix); err != nil {
		return nil, fmt.Errorf("read frame from %s: %w", s.Path, err)
	}
	return s.img, nil
}

func (s *FileSource) Close() error {
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}
