package render

import (
	"image"
	"image/color"

	"github.com/gekko3d/gridbody/analysis"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

// DrawLabel writes a single line of text with its baseline at (x, y).
func DrawLabel(dst draw.Image, x, y int, text string, c color.Color) {
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

// LabelWidth returns the advance of text in pixels.
func LabelWidth(text string) int {
	return font.MeasureString(basicfont.Face7x13, text).Ceil()
}

// FillLoops rasterizes contour loops as an anti-aliased shape. Holes wind the
// other way and cancel out of the fill.
func FillLoops(dst draw.Image, loops []analysis.Loop, cam Camera, c color.Color) {
	b := dst.Bounds()
	if b.Empty() || len(loops) == 0 {
		return
	}
	z := cam.zoom()

	r := vector.NewRasterizer(b.Dx(), b.Dy())
	for _, l := range loops {
		if len(l.Points) < 3 {
			continue
		}
		for i, p := range l.Points {
			px := float32((float64(p.X)-cam.X)*z) - float32(b.Min.X)
			py := float32((float64(p.Y)-cam.Y)*z) - float32(b.Min.Y)
			if i == 0 {
				r.MoveTo(px, py)
			} else {
				r.LineTo(px, py)
			}
		}
		r.ClosePath()
	}
	r.Draw(dst, b, image.NewUniform(c), image.Point{})
}
