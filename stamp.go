package gridbody

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Stamp is a caller-owned rectangular bitmap in world cells. Data is row-major,
// one byte per cell, non-zero meaning solid. The engine only reads it.
type Stamp struct {
	WorldX, WorldY int
	W, H           int
	Data           []byte
}

// CellRect is an inclusive integer cell rectangle.
type CellRect struct {
	MinX, MinY, MaxX, MaxY int
}

func (r CellRect) Width() int  { return r.MaxX - r.MinX + 1 }
func (r CellRect) Height() int { return r.MaxY - r.MinY + 1 }

func (s Stamp) Validate() error {
	if s.W < 0 || s.H < 0 {
		return fmt.Errorf("%w: negative extents %dx%d", ErrInvalidStamp, s.W, s.H)
	}
	if s.H != 0 && s.W > math.MaxInt/s.H {
		return fmt.Errorf("%w: extents %dx%d overflow", ErrInvalidStamp, s.W, s.H)
	}
	if len(s.Data) != s.W*s.H {
		return fmt.Errorf("%w: data length %d, want %d", ErrInvalidStamp, len(s.Data), s.W*s.H)
	}
	return nil
}

func (s Stamp) At(sx, sy int) bool {
	return s.Data[sy*s.W+sx] != 0
}

func (s Stamp) SolidCount() int {
	n := 0
	for _, v := range s.Data {
		if v != 0 {
			n++
		}
	}
	return n
}

func (s Stamp) Bounds() CellRect {
	return CellRect{
		MinX: s.WorldX,
		MinY: s.WorldY,
		MaxX: s.WorldX + s.W - 1,
		MaxY: s.WorldY + s.H - 1,
	}
}

// AABB is the continuous half-open box covered by the stamp.
func (s Stamp) AABB() AABB {
	return AABB{
		Min: mgl64.Vec2{float64(s.WorldX), float64(s.WorldY)},
		Max: mgl64.Vec2{float64(s.WorldX + s.W), float64(s.WorldY + s.H)},
	}
}

// ForEachSolid visits the stamp's solid cells in world coordinates, row by row.
// Iteration stops when fn returns false.
func (s Stamp) ForEachSolid(fn func(wx, wy int) bool) {
	for sy := 0; sy < s.H; sy++ {
		row := s.Data[sy*s.W : (sy+1)*s.W]
		for sx, v := range row {
			if v == 0 {
				continue
			}
			if !fn(s.WorldX+sx, s.WorldY+sy) {
				return
			}
		}
	}
}

// RectStamp returns a fully solid w x h stamp.
func RectStamp(x, y, w, h int) Stamp {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	data := make([]byte, w*h)
	for i := range data {
		data[i] = 1
	}
	return Stamp{WorldX: x, WorldY: y, W: w, H: h, Data: data}
}

// CircleStamp rasterizes a disc: a cell is solid when its centre lies within r.
// Radii of one cell or less produce an empty stamp.
func CircleStamp(cx, cy, r float64) Stamp {
	if r <= 1 || math.IsNaN(r) {
		return Stamp{}
	}
	rInt := math.Ceil(r)
	minX := int(math.Floor(cx - rInt))
	maxX := int(math.Floor(cx + rInt))
	minY := int(math.Floor(cy - rInt))
	maxY := int(math.Floor(cy + rInt))

	st := Stamp{WorldX: minX, WorldY: minY, W: maxX - minX + 1, H: maxY - minY + 1}
	st.Data = make([]byte, st.W*st.H)

	r2 := r * r
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			dx := float64(x) + 0.5 - cx
			dy := float64(y) + 0.5 - cy
			if dx*dx+dy*dy <= r2 {
				st.Data[(y-minY)*st.W+(x-minX)] = 1
			}
		}
	}
	return st
}
