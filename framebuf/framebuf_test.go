package framebuf

import (
	"errors"
	"image"
	"image/color"
	"testing"
)

func syntheticColor(x, y int) color.RGBA {
	return color.RGBA{R: uint8(x * 7), G: uint8(y * 13), B: uint8(x ^ y), A: 0xff}
}

func TestConvertRGBAPixelAddressing(t *testing.T) {
	const w, h = 17, 9
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, syntheticColor(x, y))
		}
	}
	c := NewConverter(w, h)
	buf := c.NewBuffer()
	if err := c.Convert(buf, img); err != nil {
		t.Fatalf("Convert: %v", err)
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			want := syntheticColor(x, y)
			off := 3 * (y*w + x)
			if buf[off] != want.R || buf[off+1] != want.G || buf[off+2] != want.B {
				t.Fatalf("pixel (%d,%d): got %v want %v", x, y, buf[off:off+3], want)
			}
		}
	}
}

func TestConvertGenericImageMatchesRGBA(t *testing.T) {
	const w, h = 8, 4
	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	nrgba := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			col := syntheticColor(x, y)
			rgba.SetRGBA(x, y, col)
			nrgba.Set(x, y, col)
		}
	}
	c := NewConverter(w, h)
	a, b := c.NewBuffer(), c.NewBuffer()
	if err := c.Convert(a, rgba); err != nil {
		t.Fatalf("Convert rgba: %v", err)
	}
	if err := c.Convert(b, nrgba); err != nil {
		t.Fatalf("Convert nrgba: %v", err)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("byte %d differs: %d vs %d", i, a[i], b[i])
		}
	}
}

func TestConvertBGROrder(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.SetRGBA(0, 0, color.RGBA{R: 1, G: 2, B: 3, A: 0xff})
	c := Converter{Width: 1, Height: 1, Order: BGR}
	buf := c.NewBuffer()
	if err := c.Convert(buf, img); err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if buf[0] != 3 || buf[1] != 2 || buf[2] != 1 {
		t.Fatalf("expected BGR bytes, got %v", buf)
	}
}

func TestConvertRejectsWrongSizes(t *testing.T) {
	c := NewConverter(4, 4)
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	if err := c.Convert(make([]byte, 10), img); !errors.Is(err, ErrBufferSize) {
		t.Fatalf("expected ErrBufferSize for short buffer, got %v", err)
	}
	small := image.NewRGBA(image.Rect(0, 0, 2, 2))
	if err := c.Convert(c.NewBuffer(), small); !errors.Is(err, ErrBufferSize) {
		t.Fatalf("expected ErrBufferSize for small image, got %v", err)
	}
}

func TestUpscale2xThenConvert(t *testing.T) {
	// two palette entries share the same colour, as in the scope palette
	pal := color.Palette{
		color.RGBA{0, 0, 0, 0xff},
		color.RGBA{0x2b, 0x2b, 0x2b, 0xff},
		color.RGBA{0, 0, 0, 0xff},
		color.RGBA{20, 130, 218, 0xff},
	}
	const w, h = 5, 3
	src := image.NewPaletted(image.Rect(0, 0, w, h), pal)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			src.SetColorIndex(x, y, uint8((x+2*y)%len(pal)))
		}
	}
	up := Upscale2x(src)
	if up.Bounds().Dx() != 2*w || up.Bounds().Dy() != 2*h {
		t.Fatalf("unexpected upscaled size %v", up.Bounds())
	}
	for y := 0; y < 2*h; y++ {
		for x := 0; x < 2*w; x++ {
			if got, want := up.ColorIndexAt(x, y), src.ColorIndexAt(x/2, y/2); got != want {
				t.Fatalf("index at (%d,%d): got %d want %d", x, y, got, want)
			}
		}
	}

	c := NewConverter(2*w, 2*h)
	buf := c.NewBuffer()
	if err := c.Convert(buf, up); err != nil {
		t.Fatalf("Convert: %v", err)
	}
	W := 2 * w
	for y := 0; y < 2*h; y++ {
		for x := 0; x < W; x++ {
			r, g, b, _ := pal[src.ColorIndexAt(x/2, y/2)].RGBA()
			off := 3 * (y*W + x)
			if buf[off] != byte(r>>8) || buf[off+1] != byte(g>>8) || buf[off+2] != byte(b>>8) {
				t.Fatalf("pixel (%d,%d): got %v", x, y, buf[off:off+3])
			}
		}
	}
}

func TestUpscaleIntoReusesDestination(t *testing.T) {
	pal := color.Palette{color.Black, color.White}
	src := image.NewPaletted(image.Rect(0, 0, 3, 2), pal)
	src.SetColorIndex(1, 1, 1)
	dst := image.NewPaletted(image.Rect(0, 0, 6, 4), pal)
	if got := UpscaleInto(dst, src); got != dst {
		t.Fatalf("expected destination to be reused")
	}
	if dst.ColorIndexAt(3, 3) != 1 || dst.ColorIndexAt(2, 2) != 1 || dst.ColorIndexAt(4, 2) != 0 {
		t.Fatalf("unexpected replicated block")
	}
}

func TestConvertPalettedOffsetBounds(t *testing.T) {
	pal := color.Palette{color.Black, color.RGBA{9, 8, 7, 0xff}}
	src := image.NewPaletted(image.Rect(10, 20, 12, 22), pal)
	src.SetColorIndex(11, 21, 1)
	c := NewConverter(2, 2)
	buf := c.NewBuffer()
	if err := c.Convert(buf, src); err != nil {
		t.Fatalf("Convert: %v", err)
	}
	last := buf[9:12]
	if last[0] != 9 || last[1] != 8 || last[2] != 7 {
		t.Fatalf("expected bottom-right pixel from offset bounds, got %v", last)
	}
}
