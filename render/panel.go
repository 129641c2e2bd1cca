// Package render draws the multimeter panel: a speckled background, the unit
// line and the measured value in large digits, or an offline notice when the
// latest reading is stale.
package render

import (
	"image"
	"image/color"
	"math/rand"
	"time"

	"golang.org/x/image/draw"

	"github.com/MajenkoProjects/InstrumentVideo/telemetry"
)

const (
	DefaultWidth  = 512
	DefaultHeight = 256

	// SpeckleSeed fixes the background pattern so every frame is identical.
	SpeckleSeed = 49803785
	// SpecklePercent is the share of background pixels drawn in Speckle.
	SpecklePercent = 10

	shadowOffset = 5
	textScale    = 2
	digitScale   = 8
	digitSpace   = 72
	dotSpace     = 20
)

var (
	Background = color.RGBA{180, 200, 200, 0xff}
	Speckle    = color.RGBA{140, 190, 190, 0xff}
	Shadow     = color.RGBA{150, 160, 160, 0xff}
	Text       = color.RGBA{50, 50, 50, 0xff}
)

// Layout positions are text baselines.
var (
	offlineAt = image.Pt(300, 50)
	unitAt    = image.Pt(50, 50)
	valueAt   = image.Pt(20, 180)
)

// Panel renders frames into one reused RGBA image. It is owned by the frame
// loop and is not safe for concurrent use.
type Panel struct {
	img        *image.RGBA
	background *image.RGBA
	glyphs     *glyphCache
}

// NewPanel prepares a width x height panel and its speckle background.
func NewPanel(width, height int) *Panel {
	if width <= 0 || height <= 0 {
		width, height = DefaultWidth, DefaultHeight
	}
	rect := image.Rect(0, 0, width, height)
	return &Panel{
		img:        image.NewRGBA(rect),
		background: speckleBackground(rect),
		glyphs:     newGlyphCache(),
	}
}

// Bounds returns the frame rectangle.
func (p *Panel) Bounds() image.Rectangle {
	return p.img.Rect
}

// Render draws the frame for r at now. The returned image is overwritten by
// the next call.
func (p *Panel) Render(r telemetry.Reading, now time.Time) *image.RGBA {
	draw.Draw(p.img, p.img.Rect, p.background, image.Point{}, draw.Src)
	if telemetry.Offline(r, now) {
		p.shadowText(offlineAt, "DMM Offline")
		return p.img
	}
	if r.Unit != "" {
		p.shadowText(unitAt, r.Unit)
	}
	p.shadowDigits(valueAt, FormatValue(r.Value))
	return p.img
}

func speckleBackground(rect image.Rectangle) *image.RGBA {
	bg := image.NewRGBA(rect)
	draw.Draw(bg, rect, image.NewUniform(Background), image.Point{}, draw.Src)
	rng := rand.New(rand.NewSource(SpeckleSeed))
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			if rng.Intn(100) < SpecklePercent {
				bg.SetRGBA(x, y, Speckle)
			}
		}
	}
	return bg
}

func (p *Panel) shadowText(baseline image.Point, s string) {
	mask := p.glyphs.get(s, textScale)
	top := baseline.Sub(image.Pt(0, p.glyphs.ascent(textScale)))
	paint(p.img, mask, top.Add(image.Pt(shadowOffset, shadowOffset)), Shadow)
	paint(p.img, mask, top, Text)
}

// shadowDigits lays the value out on a fixed pitch, right-aligning each
// character to its cell so narrow digits line up with wide ones.
func (p *Panel) shadowDigits(baseline image.Point, s string) {
	top := baseline.Y - p.glyphs.ascent(digitScale)
	for _, layer := range []struct {
		off int
		col color.RGBA
	}{{shadowOffset, Shadow}, {0, Text}} {
		x := baseline.X
		for _, ch := range s {
			if ch == '.' {
				x += dotSpace
			} else {
				x += digitSpace
			}
			mask := p.glyphs.get(string(ch), digitScale)
			_, maxX, ok := inkColumns(mask)
			if !ok {
				continue
			}
			at := image.Pt(x-maxX+layer.off, top+layer.off)
			paint(p.img, mask, at, layer.col)
		}
	}
}

func paint(dst *image.RGBA, mask *image.Alpha, at image.Point, col color.RGBA) {
	r := mask.Bounds().Sub(mask.Bounds().Min).Add(at)
	draw.DrawMask(dst, r, image.NewUniform(col), image.Point{}, mask, mask.Bounds().Min, draw.Over)
}
