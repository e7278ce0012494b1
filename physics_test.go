package gridbody

import (
	"bytes"
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDt = 1.0 / 60.0

func newTestWorld(t *testing.T, floorY float64, mutate func(*SolverConfig)) *World {
	t.Helper()
	cfg := DefaultSolverConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	w, err := NewWorld(FlatGround{Y: floorY}, WithSolverConfig(cfg))
	require.NoError(t, err)
	return w
}

func TestNewSolverRequiresGround(t *testing.T) {
	_, err := NewSolver(DefaultSolverConfig(), nil, nil)
	assert.ErrorIs(t, err, ErrNoGround)

	_, err = NewWorld(nil)
	assert.ErrorIs(t, err, ErrNoGround)
}

func TestSolverConfigValidate(t *testing.T) {
	require.NoError(t, DefaultSolverConfig().Validate())

	bad := []func(*SolverConfig){
		func(c *SolverConfig) { c.Iterations = 0 },
		func(c *SolverConfig) { c.Slop = -1 },
		func(c *SolverConfig) { c.PosCorrection = 0 },
		func(c *SolverConfig) { c.PosCorrection = 1.5 },
		func(c *SolverConfig) { c.MaxSeparation = 0 },
		func(c *SolverConfig) { c.Restitution = 2 },
		func(c *SolverConfig) { c.NarrowPhaseMaxArea = -1 },
		func(c *SolverConfig) { c.StuckTicks = 0 },
		func(c *SolverConfig) { c.NudgeDistance = 0 },
		func(c *SolverConfig) { c.Gravity = mgl64.Vec2{math.NaN(), 0} },
		func(c *SolverConfig) { c.BroadPhaseCell = 0 },
	}
	for i, mutate := range bad {
		cfg := DefaultSolverConfig()
		mutate(&cfg)
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig, "case %d", i)

		_, err := NewSolver(cfg, FlatGround{}, nil)
		assert.ErrorIs(t, err, ErrInvalidConfig, "case %d", i)
	}
}

func TestStepIgnoresBadDt(t *testing.T) {
	w := newTestWorld(t, 100, nil)
	id := mustWorldStamp(t, w, RectStamp(0, 0, 4, 4))

	for _, dt := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		w.Step(dt)
	}
	pos, _ := w.GetBodyPos(id)
	assert.Equal(t, mgl64.Vec2{0, 0}, pos)
}

func mustWorldStamp(t *testing.T, w *World, s Stamp) BodyID {
	t.Helper()
	id, err := w.ApplyStamp(s)
	require.NoError(t, err)
	require.NotEqual(t, None, id)
	return id
}

func TestPhysicsIntegration(t *testing.T) {
	w := newTestWorld(t, 1000, nil)
	id := mustWorldStamp(t, w, RectStamp(0, 0, 4, 4))

	for i := 0; i < 10; i++ {
		w.Step(testDt)
	}

	b := w.Body(id)
	if b.Pos.Y() <= 0 {
		t.Errorf("Body should have fallen, but Y = %f", b.Pos.Y())
	}
	if b.Vel.Y() <= 0 {
		t.Errorf("Body should be moving down, but VY = %f", b.Vel.Y())
	}
	assert.Equal(t, 0.0, b.Pos.X())
	assert.Equal(t, b.Pos, b.AABB().Min, "AABB follows the body")
}

func TestFallAndRest(t *testing.T) {
	const floorY = 100.0
	w := newTestWorld(t, floorY, nil)
	id := mustWorldStamp(t, w, RectStamp(0, 0, 10, 10))

	for i := 0; i < 300; i++ {
		w.Step(testDt)
	}

	b := w.Body(id)
	bottom := b.Pos.Y() + float64(b.H)
	assert.InDelta(t, floorY, bottom, w.Solver().Config().Slop)
	assert.Equal(t, 0.0, b.Vel.Y())
}

func TestStaticBodyNeverMoves(t *testing.T) {
	w := newTestWorld(t, 100, nil)
	// The wall is thicker than the box travels in one tick at impact (about 4.4
	// cells), so the contact is resolved against its top face.
	wall := mustWorldStamp(t, w, RectStamp(0, 50, 20, 20))
	require.True(t, w.SetBodyStatic(wall, true))
	box := mustWorldStamp(t, w, RectStamp(5, 30, 10, 4))

	for i := 0; i < 200; i++ {
		w.Step(testDt)
	}

	pos, ok := w.GetBodyPos(wall)
	require.True(t, ok)
	assert.Equal(t, mgl64.Vec2{0, 50}, pos)
	assert.Equal(t, mgl64.Vec2{}, w.Body(wall).Vel)

	// The box lands on the wall instead of the floor.
	b := w.Body(box)
	assert.Less(t, b.Pos.Y()+float64(b.H), 52.0)
	assert.False(t, NarrowPhase(w.Body(wall), b, 0).Depth > 1)
}

func TestGroundNonPenetration(t *testing.T) {
	const floorY = 200.0
	w := newTestWorld(t, floorY, nil)
	rng := rand.New(rand.NewSource(3))

	for i := 0; i < 25; i++ {
		s := RectStamp(rng.Intn(150), rng.Intn(120), 2+rng.Intn(12), 2+rng.Intn(12))
		_, err := w.ApplyStamp(s)
		require.NoError(t, err)
	}
	for _, b := range w.ListBodies() {
		b.Vel = mgl64.Vec2{float64(rng.Intn(200) - 100), float64(rng.Intn(200) - 100)}
	}

	for tick := 0; tick < 240; tick++ {
		w.Step(testDt)
		for _, b := range w.ListBodies() {
			if !b.IsDynamic() {
				continue
			}
			require.LessOrEqual(t, b.Pos.Y()+float64(b.H), floorY+1e-9, "tick %d body %d", tick, b.ID)
			require.False(t, math.IsNaN(b.Pos.X()) || math.IsNaN(b.Pos.Y()))
		}
	}
}

func TestHorizontalSeparation(t *testing.T) {
	w := newTestWorld(t, 100, func(c *SolverConfig) { c.Gravity = mgl64.Vec2{} })
	a := mustWorldStamp(t, w, RectStamp(0, 90, 10, 10))
	b := mustWorldStamp(t, w, RectStamp(20, 90, 10, 10))
	require.True(t, w.SetBodyPos(b, 8, 90))

	stats := w.Step(testDt)
	assert.Positive(t, stats.Contacts)

	ba, bb := w.Body(a), w.Body(b)
	assert.Less(t, ba.Pos.X(), 0.0)
	assert.Greater(t, bb.Pos.X(), 8.0)
	assert.InDelta(t, -ba.Pos.X(), bb.Pos.X()-8, 1e-9, "equal masses share the correction")
	assert.Equal(t, 90.0, ba.Pos.Y())
	assert.False(t, NarrowPhase(ba, bb, 0).Hit)
}

func TestStaticBodyTakesNoCorrection(t *testing.T) {
	w := newTestWorld(t, 100, func(c *SolverConfig) { c.Gravity = mgl64.Vec2{} })
	a := mustWorldStamp(t, w, RectStamp(0, 90, 10, 10))
	b := mustWorldStamp(t, w, RectStamp(20, 90, 10, 10))
	w.SetBodyStatic(a, true)
	w.SetBodyPos(b, 8, 90)

	w.Step(testDt)

	assert.Equal(t, mgl64.Vec2{0, 90}, w.Body(a).Pos)
	assert.GreaterOrEqual(t, w.Body(b).Pos.X(), 9.0)
	assert.False(t, NarrowPhase(w.Body(a), w.Body(b), 0).Hit)
}

func TestClosingVelocityCancelled(t *testing.T) {
	for _, tc := range []struct {
		restitution float64
		want        float64
	}{
		{0, 0},
		{0.5, 30},
	} {
		w := newTestWorld(t, 1000, func(c *SolverConfig) {
			c.Gravity = mgl64.Vec2{}
			c.Restitution = tc.restitution
		})
		wall := mustWorldStamp(t, w, RectStamp(0, 0, 10, 10))
		w.SetBodyStatic(wall, true)
		box := mustWorldStamp(t, w, RectStamp(20, 0, 10, 10))
		w.SetBodyPos(box, 9, 0)
		w.SetBodyVelocity(box, -60, 0)

		w.Step(testDt)

		assert.InDelta(t, tc.want, w.Body(box).Vel.X(), 1e-9, "restitution %v", tc.restitution)
		assert.Equal(t, 0.0, w.Body(box).Vel.Y())
	}
}

func TestStackedBodiesRestOnEachOther(t *testing.T) {
	const floorY = 100.0
	w := newTestWorld(t, floorY, nil)
	lower := mustWorldStamp(t, w, RectStamp(0, 90, 10, 10))
	upper := mustWorldStamp(t, w, RectStamp(0, 40, 10, 10))

	for i := 0; i < 300; i++ {
		w.Step(testDt)
	}

	lb, ub := w.Body(lower), w.Body(upper)
	assert.InDelta(t, floorY, lb.Pos.Y()+float64(lb.H), 1e-9)
	assert.Less(t, ub.Pos.Y(), lb.Pos.Y(), "upper body stays on top")
	assert.LessOrEqual(t, ub.Pos.Y()+float64(ub.H), lb.Pos.Y()+1, "at most one row of overlap")
}

func TestAreaCapSkipsPair(t *testing.T) {
	w := newTestWorld(t, 1000, func(c *SolverConfig) {
		c.Gravity = mgl64.Vec2{}
		c.NarrowPhaseMaxArea = 4
	})
	a := mustWorldStamp(t, w, RectStamp(0, 0, 10, 10))
	b := mustWorldStamp(t, w, RectStamp(20, 0, 10, 10))
	w.SetBodyPos(b, 5, 0)

	stats := w.Step(testDt)
	assert.Positive(t, stats.Aborted)
	assert.Zero(t, stats.Contacts)
	assert.Equal(t, mgl64.Vec2{0, 0}, w.Body(a).Pos)
	assert.Equal(t, mgl64.Vec2{5, 0}, w.Body(b).Pos)
}

func TestSnapToGrid(t *testing.T) {
	w := newTestWorld(t, 1000, func(c *SolverConfig) { c.SnapToGrid = true })
	id := mustWorldStamp(t, w, RectStamp(0, 0, 3, 3))

	for i := 0; i < 20; i++ {
		w.Step(testDt)
		pos, _ := w.GetBodyPos(id)
		require.Equal(t, math.Round(pos.Y()), pos.Y())
	}
}

func TestStuckPairIsNudged(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultSolverConfig()
	cfg.Gravity = mgl64.Vec2{}
	cfg.PosCorrection = 0.01
	cfg.MaxSeparation = 0.001
	cfg.StuckTicks = 3

	w, err := NewWorld(FlatGround{Y: 1000}, WithSolverConfig(cfg),
		WithLogger(NewLoggerWithOutput("solver", false, &buf)))
	require.NoError(t, err)

	floor := mustWorldStamp(t, w, RectStamp(0, 10, 10, 10))
	w.SetBodyStatic(floor, true)
	box := mustWorldStamp(t, w, RectStamp(50, 0, 10, 10))
	w.SetBodyPos(box, 0, 5)

	nudges := 0
	for i := 0; i < 2; i++ {
		nudges += w.Step(testDt).Nudges
	}
	assert.Zero(t, nudges)

	nudges += w.Step(testDt).Nudges
	assert.Equal(t, 1, nudges)
	assert.Less(t, w.Body(box).Pos.Y(), 4.1)
	assert.Contains(t, buf.String(), "nudging")
}

func TestStuckPairsAreNudgedInIDOrder(t *testing.T) {
	cfg := DefaultSolverConfig()
	cfg.StuckTicks = 1

	for run := 0; run < 20; run++ {
		var buf bytes.Buffer
		s, err := NewSolver(cfg, FlatGround{Y: 1000}, NewLoggerWithOutput("solver", false, &buf))
		require.NoError(t, err)

		reg := NewRegistry()
		for i := 1; i <= 6; i++ {
			reg.push(rectBody(BodyID(i), 0, 20*i, 4, 4))
		}
		unresolved := map[pairKey]float64{
			makePairKey(6, 5): 2,
			makePairKey(1, 2): 2,
			makePairKey(4, 3): 2,
		}

		require.Equal(t, 3, s.releaseStuck(reg, unresolved, 1000))

		out := buf.String()
		first := strings.Index(out, "bodies 1 and 2")
		second := strings.Index(out, "bodies 3 and 4")
		third := strings.Index(out, "bodies 5 and 6")
		require.True(t, first >= 0 && second >= 0 && third >= 0, out)
		assert.Less(t, first, second)
		assert.Less(t, second, third)
	}
}
