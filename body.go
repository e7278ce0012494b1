package gridbody

import (
	"math"
	"sync/atomic"

	"github.com/gekko3d/gridbody/occupancy"
	"github.com/go-gl/mathgl/mgl64"
)

type BodyID int

// None is returned by operations that produce or find no body.
const None BodyID = 0

// AABB is a half-open box [Min, Max).
type AABB struct {
	Min mgl64.Vec2
	Max mgl64.Vec2
}

func (a AABB) Overlaps(b AABB) bool {
	return !(a.Max.X() <= b.Min.X() ||
		a.Min.X() >= b.Max.X() ||
		a.Max.Y() <= b.Min.Y() ||
		a.Min.Y() >= b.Max.Y())
}

// Intersect returns the overlap of two boxes. The result may be empty (Max <= Min).
func (a AABB) Intersect(b AABB) AABB {
	return AABB{
		Min: mgl64.Vec2{math.Max(a.Min.X(), b.Min.X()), math.Max(a.Min.Y(), b.Min.Y())},
		Max: mgl64.Vec2{math.Min(a.Max.X(), b.Max.X()), math.Min(a.Max.Y(), b.Max.Y())},
	}
}

func (a AABB) Center() mgl64.Vec2 {
	return a.Min.Add(a.Max).Mul(0.5)
}

func (a AABB) Contains(p mgl64.Vec2) bool {
	return p.X() >= a.Min.X() && p.Y() >= a.Min.Y() && p.X() < a.Max.X() && p.Y() < a.Max.Y()
}

// Body is a translation-only rigid body whose shape is a sparse occupancy grid.
// W and H describe the bounding rectangle in cells; it is advisory and may be
// looser than the solid cells it contains.
//
// The collision box is cached. Move a body with SetPos; code that writes Pos,
// W or H directly must call UpdateAABB before the next query or step.
type Body struct {
	ID     BodyID
	Pos    mgl64.Vec2
	W, H   int
	Vel    mgl64.Vec2
	Static bool

	cells    *occupancy.Grid
	aabb     AABB
	revision uint64
}

var revisionSeq atomic.Uint64

func newBody(id BodyID, x, y, w, h int) *Body {
	b := &Body{
		ID:    id,
		Pos:   mgl64.Vec2{float64(x), float64(y)},
		W:     w,
		H:     h,
		cells: occupancy.NewGrid(),
	}
	b.UpdateAABB()
	return b
}

// Mass is the number of solid cells.
func (b *Body) Mass() int {
	return b.cells.Count()
}

// InvMass is zero for static or empty bodies, which makes them immovable.
func (b *Body) InvMass() float64 {
	m := b.Mass()
	if b.Static || m <= 0 {
		return 0
	}
	return 1.0 / float64(m)
}

func (b *Body) IsDynamic() bool {
	return b.InvMass() > 0
}

// Revision changes every time a cell of the body changes. Revisions are drawn
// from one process-wide sequence, so (ID, Revision) never repeats even when a
// rebuilt body inherits an id.
func (b *Body) Revision() uint64 {
	return b.revision
}

// Cells exposes the tile storage for read-only consumers such as renderers.
func (b *Body) Cells() *occupancy.Grid {
	return b.cells
}

func (b *Body) AABB() AABB {
	return b.aabb
}

// UpdateAABB must be called after Pos, W or H change and before any collision query.
func (b *Body) UpdateAABB() {
	b.aabb.Min = b.Pos
	b.aabb.Max = b.Pos.Add(mgl64.Vec2{float64(b.W), float64(b.H)})
}

func (b *Body) SetPos(x, y float64) {
	b.Pos = mgl64.Vec2{x, y}
	b.UpdateAABB()
}

func (b *Body) GetLocal(lx, ly int) bool {
	if lx < 0 || ly < 0 || lx >= b.W || ly >= b.H {
		return false
	}
	return b.cells.Get(lx, ly)
}

// SetLocal is a silent no-op outside [0,W) x [0,H).
func (b *Body) SetLocal(lx, ly int, solid bool) {
	if lx < 0 || ly < 0 || lx >= b.W || ly >= b.H {
		return
	}
	if b.cells.Set(lx, ly, solid) != 0 {
		b.revision = revisionSeq.Add(1)
	}
}

// PointToLocal is the only world to local conversion: floor(p - pos).
// Every occupancy query, merge and narrow-phase test goes through it.
func (b *Body) PointToLocal(px, py float64) (int, int) {
	lx := int(math.Floor(px - b.Pos.X()))
	ly := int(math.Floor(py - b.Pos.Y()))
	return lx, ly
}

func (b *Body) WorldToLocal(wx, wy int) (int, int) {
	return b.PointToLocal(float64(wx), float64(wy))
}

// LocalToWorld returns the integer world cell that WorldToLocal maps back to (lx, ly).
func (b *Body) LocalToWorld(lx, ly int) (int, int) {
	return lx + int(math.Ceil(b.Pos.X())), ly + int(math.Ceil(b.Pos.Y()))
}

func (b *Body) HasSolidAtWorld(wx, wy int) bool {
	lx, ly := b.WorldToLocal(wx, wy)
	return b.GetLocal(lx, ly)
}

// ForEachSolidCell visits solid cells in world coordinates. It walks every tile
// and is meant for merge/split and derived data, not the per-tick solver.
func (b *Body) ForEachSolidCell(fn func(wx, wy int)) {
	ox, oy := b.LocalToWorld(0, 0)
	b.cells.ForEach(func(lx, ly int) {
		fn(ox+lx, oy+ly)
	})
}
