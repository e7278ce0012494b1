package gridbody

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// edgeEpsilon keeps touching edges (x1 == x0 after float error) from producing a cell column.
const edgeEpsilon = 1e-9

// Contact is the narrow-phase result for a body pair.
type Contact struct {
	Hit     bool
	Aborted bool // region exceeded the area cap; treated as no overlap

	// Normal is a unit axis vector pointing from A towards B.
	Normal mgl64.Vec2
	// Depth is the penetration in cells along Normal.
	Depth float64
	// Overlap is the tight box of cells solid in both bodies.
	Overlap CellRect
}

// overlapCells returns the integer cell range [x0,x1) x [y0,y1) covering the AABB intersection.
func overlapCells(a, b AABB) (x0, y0, x1, y1 int) {
	in := a.Intersect(b)
	x0 = int(math.Floor(in.Min.X() + edgeEpsilon))
	y0 = int(math.Floor(in.Min.Y() + edgeEpsilon))
	x1 = int(math.Ceil(in.Max.X() - edgeEpsilon))
	y1 = int(math.Ceil(in.Max.Y() - edgeEpsilon))
	return
}

// NarrowPhase tests whether the solid cells of a and b overlap. Only the cells
// inside the AABB intersection are scanned; regions larger than maxArea cells
// are skipped (maxArea <= 0 disables the cap).
//
// The separation axis is the thinner side of the overlap box and the direction
// comes from the AABB centres. For concave bodies this can pick the wrong side
// and pop a body around a corner; that is an accepted approximation.
//
// Contacts are discrete. A body that moves more than the thickness of another
// in one tick can pass through it, or be pushed out through the far side once
// its centre has crossed. Keep per-tick travel below the thinnest body.
func NarrowPhase(a, b *Body, maxArea int) Contact {
	if !a.AABB().Overlaps(b.AABB()) {
		return Contact{}
	}

	x0, y0, x1, y1 := overlapCells(a.AABB(), b.AABB())
	if x1 <= x0 || y1 <= y0 {
		return Contact{}
	}
	if maxArea > 0 && (x1-x0)*(y1-y0) > maxArea {
		return Contact{Aborted: true}
	}

	hit := false
	var r CellRect
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			if !a.HasSolidAtWorld(x, y) || !b.HasSolidAtWorld(x, y) {
				continue
			}
			if !hit {
				r = CellRect{MinX: x, MinY: y, MaxX: x, MaxY: y}
				hit = true
				continue
			}
			r.MinX = min(r.MinX, x)
			r.MaxX = max(r.MaxX, x)
			r.MinY = min(r.MinY, y)
			r.MaxY = max(r.MaxY, y)
		}
	}
	if !hit {
		return Contact{}
	}

	c := Contact{Hit: true, Overlap: r}
	ca, cb := a.AABB().Center(), b.AABB().Center()
	if r.Width() < r.Height() {
		c.Depth = float64(r.Width())
		c.Normal = mgl64.Vec2{axisSign(ca.X(), cb.X()), 0}
	} else {
		c.Depth = float64(r.Height())
		c.Normal = mgl64.Vec2{0, axisSign(ca.Y(), cb.Y())}
	}
	return c
}

// axisSign is +1 when B lies further along the axis than A, -1 otherwise.
func axisSign(a, b float64) float64 {
	if a < b {
		return 1
	}
	return -1
}
