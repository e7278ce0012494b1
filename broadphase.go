package gridbody

import (
	"math"
	"sort"
)

// SpatialHash buckets AABBs into square cells so the solver only compares
// bodies that share a bucket. Entries are registry indices.
type SpatialHash struct {
	cellSize float64
	cells    map[[2]int][]int
}

func NewSpatialHash(cellSize float64) *SpatialHash {
	return &SpatialHash{
		cellSize: cellSize,
		cells:    make(map[[2]int][]int),
	}
}

func (h *SpatialHash) Clear() {
	clear(h.cells)
}

func (h *SpatialHash) cellRange(box AABB) (x0, y0, x1, y1 int) {
	x0, y0 = h.cellIndex(box.Min.X()), h.cellIndex(box.Min.Y())
	x1, y1 = h.cellIndex(box.Max.X()), h.cellIndex(box.Max.Y())
	return
}

func (h *SpatialHash) cellIndex(v float64) int {
	return int(math.Floor(v / h.cellSize))
}

func (h *SpatialHash) Insert(idx int, box AABB) {
	x0, y0, x1, y1 := h.cellRange(box)
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			key := [2]int{x, y}
			h.cells[key] = append(h.cells[key], idx)
		}
	}
}

// Query returns the distinct indices sharing a bucket with box, ascending.
func (h *SpatialHash) Query(box AABB) []int {
	x0, y0, x1, y1 := h.cellRange(box)
	seen := make(map[int]struct{})
	var out []int
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			for _, idx := range h.cells[[2]int{x, y}] {
				if _, ok := seen[idx]; ok {
					continue
				}
				seen[idx] = struct{}{}
				out = append(out, idx)
			}
		}
	}
	sort.Ints(out)
	return out
}

// Pairs returns every distinct (i, j), i < j, that shares at least one bucket,
// in lexicographic order. Sharing a bucket does not imply AABB overlap.
func (h *SpatialHash) Pairs() [][2]int {
	seen := make(map[[2]int]struct{})
	var out [][2]int
	for _, bucket := range h.cells {
		for a := 0; a < len(bucket); a++ {
			for b := a + 1; b < len(bucket); b++ {
				p := [2]int{bucket[a], bucket[b]}
				if p[0] > p[1] {
					p[0], p[1] = p[1], p[0]
				}
				if p[0] == p[1] {
					continue
				}
				if _, ok := seen[p]; ok {
					continue
				}
				seen[p] = struct{}{}
				out = append(out, p)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i][0] != out[j][0] {
			return out[i][0] < out[j][0]
		}
		return out[i][1] < out[j][1]
	})
	return out
}
