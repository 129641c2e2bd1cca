package render

import (
	"image"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

type glyphKey struct {
	text  string
	scale int
}

// glyphCache keeps alpha masks of rendered strings, scaled up from the 7x13
// bitmap face with nearest-neighbour sampling.
type glyphCache struct {
	face    font.Face
	masks   map[glyphKey]*image.Alpha
	ascentY int
	heightY int
}

func newGlyphCache() *glyphCache {
	face := basicfont.Face7x13
	m := face.Metrics()
	return &glyphCache{
		face:    face,
		masks:   make(map[glyphKey]*image.Alpha),
		ascentY: m.Ascent.Ceil(),
		heightY: (m.Ascent + m.Descent).Ceil(),
	}
}

func (g *glyphCache) ascent(scale int) int {
	return g.ascentY * scale
}

func (g *glyphCache) get(s string, scale int) *image.Alpha {
	key := glyphKey{text: s, scale: scale}
	if mask, ok := g.masks[key]; ok {
		return mask
	}
	width := font.MeasureString(g.face, s).Ceil()
	if width <= 0 {
		width = 1
	}
	small := image.NewAlpha(image.Rect(0, 0, width, g.heightY))
	d := font.Drawer{
		Dst:  small,
		Src:  image.Opaque,
		Face: g.face,
		Dot:  fixed.P(0, g.ascentY),
	}
	d.DrawString(s)
	mask := small
	if scale > 1 {
		mask = image.NewAlpha(image.Rect(0, 0, width*scale, g.heightY*scale))
		draw.NearestNeighbor.Scale(mask, mask.Rect, small, small.Rect, draw.Src, nil)
	}
	g.masks[key] = mask
	return mask
}

// inkColumns returns the first and one-past-last columns holding any ink.
func inkColumns(mask *image.Alpha) (minX, maxX int, ok bool) {
	b := mask.Bounds()
	minX, maxX = b.Max.X, b.Min.X
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := mask.Pix[mask.PixOffset(b.Min.X, y):]
		for x := 0; x < b.Dx(); x++ {
			if row[x] == 0 {
				continue
			}
			if b.Min.X+x < minX {
				minX = b.Min.X + x
			}
			if b.Min.X+x+1 > maxX {
				maxX = b.Min.X + x + 1
			}
		}
	}
	return minX, maxX, minX < maxX
}
