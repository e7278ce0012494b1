package occupancy

import (
	"sort"
)

const (
	TileSize  = 128
	TileCells = TileSize * TileSize
)

// TileKey addresses a tile in tile coordinates (local cell / TileSize, floored).
type TileKey [2]int

type Tile struct {
	TX, TY int

	occ   [TileCells]uint8
	count int
	dirty bool
}

func NewTile(tx, ty int) *Tile {
	return &Tile{TX: tx, TY: ty, dirty: true}
}

func (t *Tile) Key() TileKey {
	return TileKey{t.TX, t.TY}
}

// Count returns the number of solid cells in the tile.
func (t *Tile) Count() int {
	return t.count
}

func (t *Tile) IsEmpty() bool {
	return t.count == 0
}

// Dirty reports whether the tile changed since the last ClearDirty. Renderers
// use it to invalidate cached images.
func (t *Tile) Dirty() bool {
	return t.dirty
}

func (t *Tile) ClearDirty() {
	t.dirty = false
}

// Get returns the cell at in-tile coordinates. Coordinates outside the tile are empty.
func (t *Tile) Get(ix, iy int) bool {
	if ix < 0 || iy < 0 || ix >= TileSize || iy >= TileSize {
		return false
	}
	return t.occ[iy*TileSize+ix] != 0
}

// set writes a cell and returns +1, -1 or 0 depending on the solid count transition.
func (t *Tile) set(ix, iy int, solid bool) int {
	idx := iy*TileSize + ix
	prev := t.occ[idx] != 0
	if prev == solid {
		return 0
	}
	t.dirty = true
	if solid {
		t.occ[idx] = 1
		t.count++
		return 1
	}
	t.occ[idx] = 0
	t.count--
	return -1
}

// Cells exposes the raw row-major occupancy buffer (0 or 1 per cell). Callers must not modify it.
func (t *Tile) Cells() []uint8 {
	return t.occ[:]
}

func (t *Tile) Copy() *Tile {
	newT := *t
	newT.dirty = true
	return &newT
}

// Grid is a sparse map of tiles addressed in local cell coordinates. Tiles are
// allocated on the first solid write and dropped as soon as they become empty.
type Grid struct {
	tiles map[TileKey]*Tile
	count int
}

func NewGrid() *Grid {
	return &Grid{
		tiles: make(map[TileKey]*Tile),
	}
}

// Split converts a local coordinate into tile coordinates and the in-tile offset.
func Split(lx, ly int) (tx, ty, ix, iy int) {
	tx, ix = floorDiv(lx, TileSize)
	ty, iy = floorDiv(ly, TileSize)
	return
}

func floorDiv(v, d int) (q, r int) {
	q, r = v/d, v%d
	if r < 0 {
		r += d
		q--
	}
	return q, r
}

// Count returns the total number of solid cells.
func (g *Grid) Count() int {
	return g.count
}

func (g *Grid) TileCount() int {
	return len(g.tiles)
}

func (g *Grid) Tile(tx, ty int) *Tile {
	return g.tiles[TileKey{tx, ty}]
}

func (g *Grid) Get(lx, ly int) bool {
	tx, ty, ix, iy := Split(lx, ly)
	t, ok := g.tiles[TileKey{tx, ty}]
	if !ok {
		return false
	}
	return t.Get(ix, iy)
}

// Set writes a cell and returns the change in solid count (+1, -1 or 0).
func (g *Grid) Set(lx, ly int, solid bool) int {
	tx, ty, ix, iy := Split(lx, ly)
	key := TileKey{tx, ty}

	t, ok := g.tiles[key]
	if !ok {
		if !solid {
			return 0
		}
		t = NewTile(tx, ty)
		g.tiles[key] = t
	}

	delta := t.set(ix, iy, solid)
	g.count += delta
	if t.IsEmpty() {
		delete(g.tiles, key)
	}
	return delta
}

// Tiles returns the tiles ordered by (TY, TX).
func (g *Grid) Tiles() []*Tile {
	out := make([]*Tile, 0, len(g.tiles))
	for _, t := range g.tiles {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TY != out[j].TY {
			return out[i].TY < out[j].TY
		}
		return out[i].TX < out[j].TX
	})
	return out
}

// ForEach visits every solid cell in local coordinates, tile by tile.
func (g *Grid) ForEach(fn func(lx, ly int)) {
	for _, t := range g.Tiles() {
		baseX, baseY := t.TX*TileSize, t.TY*TileSize
		for i, v := range t.occ {
			if v == 0 {
				continue
			}
			fn(baseX+i%TileSize, baseY+i/TileSize)
		}
	}
}

// Bounds returns the tight local bounds of the solid cells as [minX, maxX] x [minY, maxY].
// ok is false for an empty grid.
func (g *Grid) Bounds() (minX, minY, maxX, maxY int, ok bool) {
	g.ForEach(func(lx, ly int) {
		if !ok {
			minX, maxX, minY, maxY = lx, lx, ly, ly
			ok = true
			return
		}
		minX = min(minX, lx)
		maxX = max(maxX, lx)
		minY = min(minY, ly)
		maxY = max(maxY, ly)
	})
	return
}

func (g *Grid) Copy() *Grid {
	newG := NewGrid()
	newG.count = g.count
	for k, t := range g.tiles {
		newG.tiles[k] = t.Copy()
	}
	return newG
}
