// Package render rasterizes bodies into images. It only reads body state and
// owns nothing but a cache of per-tile masks.
package render

import (
	"image"
	"image/color"
	"math"

	"github.com/gekko3d/gridbody"
	"github.com/gekko3d/gridbody/occupancy"
	"golang.org/x/image/draw"
)

// Camera maps world cells to pixels: pixel = (world - (X, Y)) * Zoom.
type Camera struct {
	X, Y float64
	Zoom float64
}

func (c Camera) zoom() float64 {
	if c.Zoom <= 0 {
		return 1
	}
	return c.Zoom
}

// ToScreen converts a world point to a pixel position.
func (c Camera) ToScreen(wx, wy float64) (int, int) {
	z := c.zoom()
	return int(math.Floor((wx - c.X) * z)), int(math.Floor((wy - c.Y) * z))
}

var (
	Background  = color.RGBA{0x14, 0x16, 0x1c, 0xff}
	GroundColor = color.RGBA{0x3b, 0x2f, 0x25, 0xff}
	StaticColor = color.RGBA{0x80, 0x80, 0x88, 0xff}

	palette = []color.RGBA{
		{0xe0, 0x6c, 0x4f, 0xff},
		{0x4f, 0xa3, 0xe0, 0xff},
		{0x8c, 0xd0, 0x5a, 0xff},
		{0xe0, 0xc1, 0x4f, 0xff},
		{0xb0, 0x6c, 0xe0, 0xff},
		{0x4f, 0xd6, 0xc4, 0xff},
	}
)

// BodyColor picks a stable color from the body id; static bodies are grey.
func BodyColor(b *gridbody.Body) color.RGBA {
	if b.Static {
		return StaticColor
	}
	return palette[int(b.ID)%len(palette)]
}

type cachedTile struct {
	mask  *image.Alpha
	frame uint64
}

// Renderer keeps one alpha mask per live tile and rebuilds it only when the
// tile reports itself dirty.
type Renderer struct {
	tiles   map[*occupancy.Tile]*cachedTile
	frame   uint64
	rebuilt int
}

func NewRenderer() *Renderer {
	return &Renderer{tiles: make(map[*occupancy.Tile]*cachedTile)}
}

// CachedTiles is the number of tile masks currently held.
func (r *Renderer) CachedTiles() int {
	return len(r.tiles)
}

// Rebuilt is the number of masks rebuilt during the last Draw.
func (r *Renderer) Rebuilt() int {
	return r.rebuilt
}

func (r *Renderer) mask(t *occupancy.Tile) *image.Alpha {
	ct, ok := r.tiles[t]
	if !ok {
		ct = &cachedTile{mask: image.NewAlpha(image.Rect(0, 0, occupancy.TileSize, occupancy.TileSize))}
		r.tiles[t] = ct
	}
	ct.frame = r.frame
	if ok && !t.Dirty() {
		return ct.mask
	}

	for i, v := range t.Cells() {
		if v != 0 {
			ct.mask.Pix[i] = 0xff
		} else {
			ct.mask.Pix[i] = 0
		}
	}
	t.ClearDirty()
	r.rebuilt++
	return ct.mask
}

// Clear fills dst with the background color.
func (r *Renderer) Clear(dst draw.Image) {
	draw.Draw(dst, dst.Bounds(), image.NewUniform(Background), image.Point{}, draw.Src)
}

// DrawGround fills everything below floorY.
func (r *Renderer) DrawGround(dst draw.Image, floorY float64, cam Camera) {
	b := dst.Bounds()
	_, py := cam.ToScreen(0, floorY)
	rect := image.Rect(b.Min.X, py, b.Max.X, b.Max.Y).Intersect(b)
	if rect.Empty() {
		return
	}
	draw.Draw(dst, rect, image.NewUniform(GroundColor), image.Point{}, draw.Src)
}

// Draw paints bodies back to front. Tile masks are scaled with nearest
// neighbour sampling so cells stay crisp at any zoom. Masks of tiles that were
// not drawn are dropped afterwards.
func (r *Renderer) Draw(dst draw.Image, bodies []*gridbody.Body, cam Camera) {
	r.frame++
	r.rebuilt = 0
	z := cam.zoom()
	bounds := dst.Bounds()

	for _, b := range bodies {
		src := image.NewUniform(BodyColor(b))
		ox, oy := b.LocalToWorld(0, 0)
		for _, t := range b.Cells().Tiles() {
			wx := float64(ox + t.TX*occupancy.TileSize)
			wy := float64(oy + t.TY*occupancy.TileSize)
			x0, y0 := cam.ToScreen(wx, wy)
			x1, y1 := cam.ToScreen(wx+occupancy.TileSize, wy+occupancy.TileSize)
			dr := image.Rect(x0, y0, x1, y1)
			if dr.Empty() || !dr.Overlaps(bounds) {
				// Keep the mask alive even when off screen.
				if ct, ok := r.tiles[t]; ok {
					ct.frame = r.frame
				}
				continue
			}

			mask := r.mask(t)
			if z == 1 {
				draw.DrawMask(dst, dr, src, image.Point{}, mask, image.Point{}, draw.Over)
				continue
			}
			scaled := image.NewAlpha(dr)
			draw.NearestNeighbor.Scale(scaled, dr, mask, mask.Bounds(), draw.Src, nil)
			draw.DrawMask(dst, dr, src, image.Point{}, scaled, dr.Min, draw.Over)
		}
	}

	for t, ct := range r.tiles {
		if ct.frame != r.frame {
			delete(r.tiles, t)
		}
	}
}
