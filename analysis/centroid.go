// Package analysis derives read-only shape data from bodies: centroids and
// boundary contours. Results are computed in body-local cell space and shifted
// to world space on the way out, so they stay valid while a body only moves.
package analysis

import (
	"github.com/gekko3d/gridbody"
	"github.com/gekko3d/gridbody/occupancy"
	"github.com/go-gl/mathgl/mgl64"
)

// LocalCentroid returns the mean of the cell centres of g. ok is false for an
// empty grid.
func LocalCentroid(g *occupancy.Grid) (c mgl64.Vec2, ok bool) {
	var sx, sy float64
	n := 0
	g.ForEach(func(lx, ly int) {
		sx += float64(lx) + 0.5
		sy += float64(ly) + 0.5
		n++
	})
	if n == 0 {
		return mgl64.Vec2{}, false
	}
	return mgl64.Vec2{sx / float64(n), sy / float64(n)}, true
}

// Centroid returns the world-space centre of mass of b. A body without cells
// reports the centre of its AABB.
func Centroid(b *gridbody.Body) mgl64.Vec2 {
	c, ok := LocalCentroid(b.Cells())
	if !ok {
		return b.AABB().Center()
	}
	return c.Add(origin(b))
}

// origin is the world position of local cell (0, 0).
func origin(b *gridbody.Body) mgl64.Vec2 {
	ox, oy := b.LocalToWorld(0, 0)
	return mgl64.Vec2{float64(ox), float64(oy)}
}
