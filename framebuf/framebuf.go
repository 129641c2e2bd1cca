// Package framebuf packs rendered or acquired images into the raw layout the
// capture sink expects: 3 bytes per pixel, rows top to bottom, no padding.
package framebuf

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

// Order is the component order written for each pixel.
type Order [3]int

var (
	// RGB matches the V4L2 RGB3 (RGB24) format.
	RGB = Order{0, 1, 2}
	// BGR matches the V4L2 BGR3 (BGR24) format.
	BGR = Order{2, 1, 0}
)

// BytesPerPixel is the size of one packed pixel.
const BytesPerPixel = 3

var ErrBufferSize = errors.New("frame buffer size mismatch")

// Converter packs images of a fixed size.
type Converter struct {
	Width  int
	Height int
	Order  Order
}

// NewConverter returns an RGB converter for width x height frames.
func NewConverter(width, height int) Converter {
	return Converter{Width: width, Height: height, Order: RGB}
}

// FrameSize returns the number of bytes in one packed frame.
func (c Converter) FrameSize() int {
	return c.Width * c.Height * BytesPerPixel
}

// NewBuffer allocates a buffer for one packed frame.
func (c Converter) NewBuffer() []byte {
	return make([]byte, c.FrameSize())
}

// Convert packs img into dst. img must cover at least Width x Height pixels
// from its bounds origin and dst must be exactly FrameSize bytes.
func (c Converter) Convert(dst []byte, img image.Image) error {
	if len(dst) != c.FrameSize() {
		return fmt.Errorf("%w: have %d bytes, need %d", ErrBufferSize, len(dst), c.FrameSize())
	}
	b := img.Bounds()
	if b.Dx() < c.Width || b.Dy() < c.Height {
		return fmt.Errorf("%w: image %dx%d smaller than frame %dx%d", ErrBufferSize, b.Dx(), b.Dy(), c.Width, c.Height)
	}
	switch src := img.(type) {
	case *image.RGBA:
		c.fromRGBA(dst, src)
	case *image.Paletted:
		c.fromPaletted(dst, src)
	default:
		c.fromImage(dst, img)
	}
	return nil
}

func (c Converter) fromRGBA(dst []byte, src *image.RGBA) {
	p := 0
	for y := 0; y < c.Height; y++ {
		row := src.Pix[src.PixOffset(src.Rect.Min.X, src.Rect.Min.Y+y):]
		for x := 0; x < c.Width; x++ {
			px := row[x*4 : x*4+3]
			dst[p] = px[c.Order[0]]
			dst[p+1] = px[c.Order[1]]
			dst[p+2] = px[c.Order[2]]
			p += BytesPerPixel
		}
	}
}

func (c Converter) fromPaletted(dst []byte, src *image.Paletted) {
	lut := paletteRGB(src.Palette)
	p := 0
	for y := 0; y < c.Height; y++ {
		row := src.Pix[src.PixOffset(src.Rect.Min.X, src.Rect.Min.Y+y):]
		for x := 0; x < c.Width; x++ {
			rgb := lut[row[x]]
			dst[p] = rgb[c.Order[0]]
			dst[p+1] = rgb[c.Order[1]]
			dst[p+2] = rgb[c.Order[2]]
			p += BytesPerPixel
		}
	}
}

func (c Converter) fromImage(dst []byte, img image.Image) {
	min := img.Bounds().Min
	p := 0
	for y := 0; y < c.Height; y++ {
		for x := 0; x < c.Width; x++ {
			r, g, b, _ := img.At(min.X+x, min.Y+y).RGBA()
			rgb := [3]byte{byte(r >> 8), byte(g >> 8), byte(b >> 8)}
			dst[p] = rgb[c.Order[0]]
			dst[p+1] = rgb[c.Order[1]]
			dst[p+2] = rgb[c.Order[2]]
			p += BytesPerPixel
		}
	}
}

// paletteRGB expands a palette to 256 RGB triples; out-of-range indices read black.
func paletteRGB(pal color.Palette) [256][3]byte {
	var lut [256][3]byte
	for i, col := range pal {
		if i >= len(lut) {
			break
		}
		r, g, b, _ := col.RGBA()
		lut[i] = [3]byte{byte(r >> 8), byte(g >> 8), byte(b >> 8)}
	}
	return lut
}

// Upscale2x replicates every source pixel into a 2x2 block of the same palette
// index. The palette is shared, so duplicate palette entries keep their identity.
func Upscale2x(src *image.Paletted) *image.Paletted {
	return UpscaleInto(nil, src)
}

// UpscaleInto is Upscale2x reusing dst when it already has the doubled size.
func UpscaleInto(dst, src *image.Paletted) *image.Paletted {
	sb := src.Bounds()
	w, h := sb.Dx(), sb.Dy()
	if dst == nil || dst.Rect.Dx() != w*2 || dst.Rect.Dy() != h*2 {
		dst = image.NewPaletted(image.Rect(0, 0, w*2, h*2), src.Palette)
	}
	dst.Palette = src.Palette
	for y := 0; y < h; y++ {
		srow := src.Pix[src.PixOffset(sb.Min.X, sb.Min.Y+y):]
		top := dst.Pix[dst.PixOffset(dst.Rect.Min.X, dst.Rect.Min.Y+2*y):]
		bottom := dst.Pix[dst.PixOffset(dst.Rect.Min.X, dst.Rect.Min.Y+2*y+1):]
		for x := 0; x < w; x++ {
			idx := srow[x]
			top[2*x] = idx
			top[2*x+1] = idx
			bottom[2*x] = idx
			bottom[2*x+1] = idx
		}
	}
	return dst
}
