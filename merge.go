package gridbody

import (
	"sort"

	"github.com/go-gl/mathgl/mgl64"
)

type cellCoord [2]int

// component is one 4-connected region of the merged cell set.
type component struct {
	cells                  []cellCoord
	minX, minY, maxX, maxY int
}

// MergeStats describes the last stamp operation.
type MergeStats struct {
	Touched    int
	Components int
	Cells      int
}

// Engine fuses stamps with the bodies they touch and splits bodies whose cells
// are no longer connected. It is the only writer of body cells.
type Engine struct {
	reg   *Registry
	log   Logger
	stats MergeStats
}

func NewEngine(reg *Registry, log Logger) *Engine {
	if log == nil {
		log = NewNopLogger()
	}
	return &Engine{reg: reg, log: log}
}

func (e *Engine) LastStats() MergeStats {
	return e.stats
}

// ApplyStamp adds the stamp's solid cells to the world. Touched bodies and the
// stamp are unioned and rebuilt, one body per connected component. It returns
// the id of the largest resulting body, or None for an empty stamp.
func (e *Engine) ApplyStamp(s Stamp) (BodyID, error) {
	if err := s.Validate(); err != nil {
		return None, err
	}
	e.stats = MergeStats{}
	if s.SolidCount() == 0 {
		return None, nil
	}

	touched := e.findTouched(s)

	set := make(map[cellCoord]struct{})
	for _, b := range touched {
		b.ForEachSolidCell(func(wx, wy int) {
			set[cellCoord{wx, wy}] = struct{}{}
		})
	}
	s.ForEachSolid(func(wx, wy int) bool {
		set[cellCoord{wx, wy}] = struct{}{}
		return true
	})

	return e.rebuild(touched, set), nil
}

// EraseStamp removes the stamp's solid cells from every body they hit. Each
// touched body is split on its own: its largest remaining component keeps the
// body's id and the rest become new bodies with the same velocity and static
// flag. Bodies are never joined by an erase. Bodies left without cells are
// dropped. It returns the largest remaining body, or None.
func (e *Engine) EraseStamp(s Stamp) (BodyID, error) {
	if err := s.Validate(); err != nil {
		return None, err
	}
	e.stats = MergeStats{}
	if s.SolidCount() == 0 {
		return None, nil
	}

	touched := e.findTouched(s)
	if len(touched) == 0 {
		return None, nil
	}

	erased := make(map[cellCoord]struct{}, s.SolidCount())
	s.ForEachSolid(func(wx, wy int) bool {
		erased[cellCoord{wx, wy}] = struct{}{}
		return true
	})

	stats := MergeStats{Touched: len(touched)}
	primary, best := None, 0
	for _, b := range touched {
		set := make(map[cellCoord]struct{}, b.Mass())
		b.ForEachSolidCell(func(wx, wy int) {
			if _, gone := erased[cellCoord{wx, wy}]; !gone {
				set[cellCoord{wx, wy}] = struct{}{}
			}
		})

		comps := labelComponents(set)
		stats.Components += len(comps)
		stats.Cells += len(set)

		e.reg.remove(b.ID)
		if len(comps) == 0 {
			e.log.Debugf("body %d erased completely", b.ID)
			continue
		}
		built := e.build(comps, b)
		e.pushBuilt(built)
		if m := built[0].Mass(); m > best {
			primary, best = built[0].ID, m
		}
		if len(built) > 1 {
			e.log.Debugf("erase split body %d into %d bodies", b.ID, len(built))
		}
	}
	e.stats = stats
	return primary, nil
}

// findTouched returns bodies with at least one solid cell under a solid stamp cell.
// AABB overlap only nominates candidates; grids are sparse inside their boxes.
func (e *Engine) findTouched(s Stamp) []*Body {
	sb := s.AABB()
	var touched []*Body
	e.reg.Each(func(b *Body) bool {
		if !b.AABB().Overlaps(sb) {
			return true
		}
		hit := false
		s.ForEachSolid(func(wx, wy int) bool {
			hit = b.HasSolidAtWorld(wx, wy)
			return !hit
		})
		if hit {
			touched = append(touched, b)
		}
		return true
	})
	return touched
}

// rebuild replaces the touched bodies with one body per component of set.
func (e *Engine) rebuild(touched []*Body, set map[cellCoord]struct{}) BodyID {
	comps := labelComponents(set)

	// Survivor: heaviest touched body, lowest id on ties.
	var survivor *Body
	if len(touched) > 0 {
		sort.SliceStable(touched, func(i, j int) bool {
			if touched[i].Mass() != touched[j].Mass() {
				return touched[i].Mass() > touched[j].Mass()
			}
			return touched[i].ID < touched[j].ID
		})
		survivor = touched[0]
	}

	e.stats = MergeStats{Touched: len(touched), Components: len(comps), Cells: len(set)}

	for _, b := range touched {
		e.reg.remove(b.ID)
	}

	if len(comps) == 0 {
		if survivor != nil {
			e.log.Debugf("body %d erased completely (%d bodies touched)", survivor.ID, len(touched))
		}
		return None
	}

	built := e.build(comps, survivor)
	e.pushBuilt(built)

	if e.log.DebugEnabled() {
		e.log.Debugf("stamp rebuilt %d touched bodies into %d (primary %d, %d cells)",
			len(touched), len(built), built[0].ID, len(set))
	}
	return built[0].ID
}

// build creates one body per component. The first component inherits the
// survivor's id; the others get fresh ids. All of them take the survivor's
// velocity and static flag. A nil survivor yields fresh, resting bodies.
func (e *Engine) build(comps []component, survivor *Body) []*Body {
	built := make([]*Body, len(comps))
	for i, c := range comps {
		var id BodyID
		if i == 0 && survivor != nil {
			id = survivor.ID
		} else {
			id = e.reg.allocID()
		}

		b := newBody(id, c.minX, c.minY, c.maxX-c.minX+1, c.maxY-c.minY+1)
		for _, cell := range c.cells {
			b.SetLocal(cell[0]-c.minX, cell[1]-c.minY, true)
		}
		if survivor != nil {
			b.Vel = survivor.Vel
			b.Static = survivor.Static
		}
		built[i] = b
	}
	return built
}

// pushBuilt inserts fragments first and the primary body last, so it ends up on top.
func (e *Engine) pushBuilt(built []*Body) {
	if len(built) == 0 {
		return
	}
	for _, b := range built[1:] {
		e.reg.push(b)
	}
	e.reg.push(built[0])
}

// labelComponents splits set into 4-connected components, largest first.
// Cells are visited in (y, x) order and equal sizes keep first-seen order.
func labelComponents(set map[cellCoord]struct{}) []component {
	if len(set) == 0 {
		return nil
	}

	order := make([]cellCoord, 0, len(set))
	for c := range set {
		order = append(order, c)
	}
	sort.Slice(order, func(i, j int) bool {
		if order[i][1] != order[j][1] {
			return order[i][1] < order[j][1]
		}
		return order[i][0] < order[j][0]
	})

	visited := make(map[cellCoord]bool, len(set))
	neighbors := [4]cellCoord{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}

	var comps []component
	var stack []cellCoord
	for _, start := range order {
		if visited[start] {
			continue
		}

		c := component{minX: start[0], maxX: start[0], minY: start[1], maxY: start[1]}
		visited[start] = true
		stack = append(stack[:0], start)

		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			c.cells = append(c.cells, cur)
			c.minX = min(c.minX, cur[0])
			c.maxX = max(c.maxX, cur[0])
			c.minY = min(c.minY, cur[1])
			c.maxY = max(c.maxY, cur[1])

			for _, d := range neighbors {
				n := cellCoord{cur[0] + d[0], cur[1] + d[1]}
				if visited[n] {
					continue
				}
				if _, ok := set[n]; !ok {
					continue
				}
				visited[n] = true
				stack = append(stack, n)
			}
		}
		comps = append(comps, c)
	}

	sort.SliceStable(comps, func(i, j int) bool {
		return len(comps[i].cells) > len(comps[j].cells)
	})
	return comps
}

// HitTest returns the topmost body with a solid cell at the world point, or None.
func (e *Engine) HitTest(px, py float64) BodyID {
	bodies := e.reg.bodies
	for i := len(bodies) - 1; i >= 0; i-- {
		b := bodies[i]
		if !b.AABB().Contains(mgl64.Vec2{px, py}) {
			continue
		}
		if b.GetLocal(b.PointToLocal(px, py)) {
			return b.ID
		}
	}
	return None
}
