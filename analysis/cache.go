package analysis

import (
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/gekko3d/gridbody"
	"github.com/go-gl/mathgl/mgl64"
)

const shapeTTL = 10 * time.Minute

// Shape is the cached local-space analysis of one body revision. It is shared
// between readers and must not be modified.
type Shape struct {
	Mass     int
	Centroid mgl64.Vec2
	Loops    []Loop
}

// Cache memoizes shapes per (body id, revision). Bodies that only move keep
// hitting the same entry; any cell edit produces a new revision and a miss.
type Cache struct {
	shapes *ristretto.Cache[string, *Shape]
}

// NewCache creates a cache bounded by maxCost, counted in contour points.
func NewCache(maxCost int64) (*Cache, error) {
	if maxCost <= 0 {
		return nil, fmt.Errorf("analysis: cache cost must be positive, got %d", maxCost)
	}
	shapes, err := ristretto.NewCache(&ristretto.Config[string, *Shape]{
		NumCounters: 100_000,
		MaxCost:     maxCost,
		BufferItems: 64,
		Metrics:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("analysis: create cache: %w", err)
	}
	return &Cache{shapes: shapes}, nil
}

func shapeKey(b *gridbody.Body) string {
	return fmt.Sprintf("%d|%d", b.ID, b.Revision())
}

// Shape returns the local-space analysis of b, computing it on a miss.
func (c *Cache) Shape(b *gridbody.Body) *Shape {
	key := shapeKey(b)
	if s, ok := c.shapes.Get(key); ok {
		return s
	}

	s := &Shape{Mass: b.Mass(), Loops: TraceContours(b.Cells())}
	s.Centroid, _ = LocalCentroid(b.Cells())

	cost := int64(1)
	for _, l := range s.Loops {
		cost += int64(len(l.Points))
	}
	c.shapes.SetWithTTL(key, s, cost, shapeTTL)
	c.shapes.Wait()
	return s
}

// Centroid is the cached equivalent of the package-level Centroid.
func (c *Cache) Centroid(b *gridbody.Body) mgl64.Vec2 {
	s := c.Shape(b)
	if s.Mass == 0 {
		return b.AABB().Center()
	}
	return s.Centroid.Add(origin(b))
}

// Contours is the cached equivalent of the package-level Contours.
func (c *Cache) Contours(b *gridbody.Body) []Loop {
	return translateLoops(c.Shape(b).Loops, b)
}

// Hits reports the number of cache hits so far.
func (c *Cache) Hits() uint64 {
	return c.shapes.Metrics.Hits()
}

func (c *Cache) Close() {
	c.shapes.Close()
}
