package analysis

import (
	"image"
	"sort"

	"github.com/gekko3d/gridbody"
	"github.com/gekko3d/gridbody/occupancy"
)

// Loop is a closed rectilinear boundary through cell corners. Points are the
// corners only; the closing segment from the last point back to the first is
// implied. Outer boundaries run clockwise on screen (y down) with the solid
// cells on the right; holes run the other way.
type Loop struct {
	Points []image.Point
}

// Area returns the signed enclosed area in cells: positive for outer
// boundaries, negative for holes.
func (l Loop) Area() int {
	n := len(l.Points)
	sum := 0
	for i, p := range l.Points {
		q := l.Points[(i+1)%n]
		sum += p.X*q.Y - q.X*p.Y
	}
	return sum / 2
}

func (l Loop) IsHole() bool {
	return l.Area() < 0
}

func (l Loop) Translate(dx, dy int) Loop {
	pts := make([]image.Point, len(l.Points))
	d := image.Pt(dx, dy)
	for i, p := range l.Points {
		pts[i] = p.Add(d)
	}
	return Loop{Points: pts}
}

type edge struct {
	from, to image.Point
}

func (e edge) dir() image.Point {
	return e.to.Sub(e.from)
}

// TraceContours returns every boundary loop of g in local cell space, ordered
// by their top-left corner. Diagonally touching cells are not connected and
// get separate loops.
func TraceContours(g *occupancy.Grid) []Loop {
	var edges []edge
	out := make(map[image.Point][]int)
	add := func(a, b image.Point) {
		out[a] = append(out[a], len(edges))
		edges = append(edges, edge{a, b})
	}

	g.ForEach(func(x, y int) {
		if !g.Get(x, y-1) {
			add(image.Pt(x, y), image.Pt(x+1, y))
		}
		if !g.Get(x+1, y) {
			add(image.Pt(x+1, y), image.Pt(x+1, y+1))
		}
		if !g.Get(x, y+1) {
			add(image.Pt(x+1, y+1), image.Pt(x, y+1))
		}
		if !g.Get(x-1, y) {
			add(image.Pt(x, y+1), image.Pt(x, y))
		}
	})
	if len(edges) == 0 {
		return nil
	}

	order := make([]int, len(edges))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, b := edges[order[i]].from, edges[order[j]].from
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})

	visited := make([]bool, len(edges))
	var loops []Loop
	for _, start := range order {
		if visited[start] {
			continue
		}
		var pts []image.Point
		cur := start
		for {
			visited[cur] = true
			pts = append(pts, edges[cur].from)
			next := nextEdge(edges, out[edges[cur].to], edges[cur])
			if next < 0 || next == start || visited[next] {
				break
			}
			cur = next
		}
		loops = append(loops, Loop{Points: dropCollinear(pts)})
	}
	return loops
}

// nextEdge picks the continuation at a corner. Where two loops meet at a
// diagonal, the right turn keeps to the current cell.
func nextEdge(edges []edge, candidates []int, in edge) int {
	switch len(candidates) {
	case 0:
		return -1
	case 1:
		return candidates[0]
	}
	d := in.dir()
	right := image.Pt(-d.Y, d.X)
	for _, c := range candidates {
		if edges[c].dir() == right {
			return c
		}
	}
	return candidates[0]
}

func dropCollinear(pts []image.Point) []image.Point {
	n := len(pts)
	if n < 3 {
		return pts
	}
	out := make([]image.Point, 0, n)
	for i, p := range pts {
		prev := pts[(i+n-1)%n]
		next := pts[(i+1)%n]
		a, b := p.Sub(prev), next.Sub(p)
		if a.X*b.Y-a.Y*b.X == 0 {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Contours returns the boundary loops of b in world cell coordinates.
func Contours(b *gridbody.Body) []Loop {
	return translateLoops(TraceContours(b.Cells()), b)
}

func translateLoops(local []Loop, b *gridbody.Body) []Loop {
	if len(local) == 0 {
		return nil
	}
	ox, oy := b.LocalToWorld(0, 0)
	out := make([]Loop, len(local))
	for i, l := range local {
		out[i] = l.Translate(ox, oy)
	}
	return out
}
