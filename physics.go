package gridbody

import (
	"fmt"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
)

// Ground supplies the static floor plane bodies rest on. Y grows downwards.
type Ground interface {
	FloorY() float64
}

// FlatGround is a floor at a fixed height.
type FlatGround struct {
	Y float64
}

func (g FlatGround) FloorY() float64 { return g.Y }

// WorldGround places the floor at the terrain fill line of a world of the given size.
type WorldGround struct {
	Width, Height int
}

func (g WorldGround) FloorY() float64 { return math.Floor(float64(g.Height) / 2) }

type SolverConfig struct {
	// Gravity in cells per second squared.
	Gravity mgl64.Vec2 `mapstructure:"gravity"`
	// Iterations of the body-body pass per step.
	Iterations int `mapstructure:"iterations"`
	// Slop is the penetration depth that is tolerated without correction.
	Slop float64 `mapstructure:"slop"`
	// PosCorrection is the fraction of the remaining depth removed per pass (0..1].
	PosCorrection float64 `mapstructure:"pos_correction"`
	// MaxSeparation caps a single pair correction.
	MaxSeparation float64 `mapstructure:"max_separation"`
	// Restitution scales the normal impulse; 0 is fully inelastic.
	Restitution float64 `mapstructure:"restitution"`
	// SnapToGrid rounds positions to whole cells after every positional change.
	SnapToGrid bool `mapstructure:"snap_to_grid"`
	// NarrowPhaseMaxArea skips pairs whose AABB intersection covers more cells (0 = no cap).
	NarrowPhaseMaxArea int `mapstructure:"narrow_phase_max_area"`
	// StuckTicks is how many ticks a pair may overlap without progress before it is nudged.
	StuckTicks int `mapstructure:"stuck_ticks"`
	// NudgeDistance is the vertical push applied to a stuck pair.
	NudgeDistance float64 `mapstructure:"nudge_distance"`
	// BroadPhaseCell is the bucket size of the pair search hash, in cells.
	BroadPhaseCell float64 `mapstructure:"broad_phase_cell"`
}

func DefaultSolverConfig() SolverConfig {
	return SolverConfig{
		Gravity:            mgl64.Vec2{0, 2000},
		Iterations:         4,
		Slop:               0.5,
		PosCorrection:      0.8,
		MaxSeparation:      64,
		Restitution:        0,
		SnapToGrid:         false,
		NarrowPhaseMaxArea: 1 << 20,
		StuckTicks:         8,
		NudgeDistance:      1,
		BroadPhaseCell:     64,
	}
}

func (c SolverConfig) Validate() error {
	switch {
	case c.Iterations < 1:
		return fmt.Errorf("%w: iterations must be >= 1, got %d", ErrInvalidConfig, c.Iterations)
	case c.Slop < 0:
		return fmt.Errorf("%w: slop must be >= 0, got %g", ErrInvalidConfig, c.Slop)
	case c.PosCorrection <= 0 || c.PosCorrection > 1:
		return fmt.Errorf("%w: pos_correction must be in (0,1], got %g", ErrInvalidConfig, c.PosCorrection)
	case c.MaxSeparation <= 0:
		return fmt.Errorf("%w: max_separation must be > 0, got %g", ErrInvalidConfig, c.MaxSeparation)
	case c.Restitution < 0 || c.Restitution > 1:
		return fmt.Errorf("%w: restitution must be in [0,1], got %g", ErrInvalidConfig, c.Restitution)
	case c.NarrowPhaseMaxArea < 0:
		return fmt.Errorf("%w: narrow_phase_max_area must be >= 0", ErrInvalidConfig)
	case c.StuckTicks < 1:
		return fmt.Errorf("%w: stuck_ticks must be >= 1, got %d", ErrInvalidConfig, c.StuckTicks)
	case c.NudgeDistance <= 0:
		return fmt.Errorf("%w: nudge_distance must be > 0, got %g", ErrInvalidConfig, c.NudgeDistance)
	case !(c.BroadPhaseCell > 0):
		return fmt.Errorf("%w: broad_phase_cell must be > 0, got %g", ErrInvalidConfig, c.BroadPhaseCell)
	}
	if math.IsNaN(c.Gravity.X()) || math.IsNaN(c.Gravity.Y()) {
		return fmt.Errorf("%w: gravity is NaN", ErrInvalidConfig)
	}
	return nil
}

// StepStats summarizes one solver tick.
type StepStats struct {
	Pairs    int // pairs passing the AABB broad-phase
	Contacts int // pairs with confirmed cell overlap
	Aborted  int // pairs skipped by the narrow-phase area cap
	Nudges   int
}

type pairKey [2]BodyID

func makePairKey(a, b BodyID) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{a, b}
}

type stuckState struct {
	depth float64
	ticks int
}

type Solver struct {
	cfg    SolverConfig
	ground Ground
	log    Logger
	broad  *SpatialHash
	stuck  map[pairKey]stuckState
}

func NewSolver(cfg SolverConfig, ground Ground, log Logger) (*Solver, error) {
	if ground == nil {
		return nil, ErrNoGround
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = NewNopLogger()
	}
	return &Solver{
		cfg:    cfg,
		ground: ground,
		log:    log,
		broad:  NewSpatialHash(cfg.BroadPhaseCell),
		stuck:  make(map[pairKey]stuckState),
	}, nil
}

func (s *Solver) Config() SolverConfig {
	return s.cfg
}

// Step advances the registry by dt seconds: integrate, clamp to the ground, then
// Iterations passes of body-body correction each followed by another ground clamp.
func (s *Solver) Step(reg *Registry, dt float64) StepStats {
	var stats StepStats
	if dt <= 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return stats
	}

	bodies := reg.bodies
	floorY := s.ground.FloorY()

	// 1. Integrate
	for _, b := range bodies {
		if !b.IsDynamic() {
			continue
		}
		b.Vel = b.Vel.Add(s.cfg.Gravity.Mul(dt))
		disp := b.Vel.Mul(dt)
		if math.IsNaN(disp.Len()) || math.IsInf(disp.Len(), 0) {
			b.Vel = mgl64.Vec2{}
			continue
		}
		b.Pos = b.Pos.Add(disp)
		s.snap(b)
		b.UpdateAABB()
	}

	// 2. Ground
	for _, b := range bodies {
		s.collideGround(b, floorY)
	}

	// 3. Body-body passes
	var unresolved map[pairKey]float64
	last := s.cfg.Iterations - 1
	for iter := 0; iter <= last; iter++ {
		for _, p := range s.candidatePairs(bodies) {
			a, b := bodies[p[0]], bodies[p[1]]
			if !a.IsDynamic() && !b.IsDynamic() {
				continue
			}
			if !a.AABB().Overlaps(b.AABB()) {
				continue
			}
			stats.Pairs++

			c := NarrowPhase(a, b, s.cfg.NarrowPhaseMaxArea)
			if c.Aborted {
				stats.Aborted++
				continue
			}
			if !c.Hit {
				continue
			}
			stats.Contacts++

			if iter == last && c.Depth > s.cfg.Slop {
				if unresolved == nil {
					unresolved = make(map[pairKey]float64)
				}
				unresolved[makePairKey(a.ID, b.ID)] = c.Depth
			}
			s.resolve(a, b, c)
		}

		for _, b := range bodies {
			s.collideGround(b, floorY)
		}
	}

	stats.Nudges = s.releaseStuck(reg, unresolved, floorY)
	return stats
}

// candidatePairs hashes the bodies at their current positions. Pairs are
// listed in registry order so a pass is deterministic.
func (s *Solver) candidatePairs(bodies []*Body) [][2]int {
	s.broad.Clear()
	for i, b := range bodies {
		s.broad.Insert(i, b.AABB())
	}
	return s.broad.Pairs()
}

func (s *Solver) snap(b *Body) {
	if !s.cfg.SnapToGrid {
		return
	}
	b.Pos = mgl64.Vec2{math.Round(b.Pos.X()), math.Round(b.Pos.Y())}
}

// collideGround pushes a dynamic body up out of the floor and kills downward velocity.
func (s *Solver) collideGround(b *Body, floorY float64) {
	if !b.IsDynamic() {
		return
	}
	pen := b.Pos.Y() + float64(b.H) - floorY
	if pen <= 0 {
		return
	}
	b.Pos[1] -= pen
	if b.Vel.Y() > 0 {
		b.Vel[1] = 0
	}
	b.UpdateAABB()
}

// resolve separates a confirmed contact by inverse mass and removes the closing
// normal velocity. Static bodies never change.
func (s *Solver) resolve(a, b *Body, c Contact) {
	invA, invB := a.InvMass(), b.InvMass()
	invSum := invA + invB
	if invSum <= 0 {
		return
	}

	corr := math.Max(0, c.Depth-s.cfg.Slop) * s.cfg.PosCorrection
	corr = math.Min(corr, s.cfg.MaxSeparation)
	if corr > 0 {
		if invA > 0 {
			a.Pos = a.Pos.Sub(c.Normal.Mul(corr * invA / invSum))
			s.snap(a)
			a.UpdateAABB()
		}
		if invB > 0 {
			b.Pos = b.Pos.Add(c.Normal.Mul(corr * invB / invSum))
			s.snap(b)
			b.UpdateAABB()
		}
	}

	relN := b.Vel.Sub(a.Vel).Dot(c.Normal)
	if relN >= 0 {
		return
	}
	j := -(1 + s.cfg.Restitution) * relN / invSum
	if invA > 0 {
		a.Vel = a.Vel.Sub(c.Normal.Mul(j * invA))
	}
	if invB > 0 {
		b.Vel = b.Vel.Add(c.Normal.Mul(j * invB))
	}
}

// releaseStuck tracks pairs that end a tick still overlapping. A pair whose depth
// has not shrunk for StuckTicks ticks gets a vertical nudge so the bodies make progress.
func (s *Solver) releaseStuck(reg *Registry, unresolved map[pairKey]float64, floorY float64) int {
	for key := range s.stuck {
		if _, ok := unresolved[key]; !ok {
			delete(s.stuck, key)
		}
	}

	keys := make([]pairKey, 0, len(unresolved))
	for key := range unresolved {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i][0] != keys[j][0] {
			return keys[i][0] < keys[j][0]
		}
		return keys[i][1] < keys[j][1]
	})

	nudges := 0
	for _, key := range keys {
		depth := unresolved[key]
		st, seen := s.stuck[key]
		if seen && depth < st.depth {
			st.ticks = 0
		} else {
			st.ticks++
		}
		st.depth = depth

		if st.ticks < s.cfg.StuckTicks {
			s.stuck[key] = st
			continue
		}
		delete(s.stuck, key)

		a, b := reg.Get(key[0]), reg.Get(key[1])
		if a == nil || b == nil {
			continue
		}
		if s.nudge(a, b, floorY) {
			nudges++
			s.log.Warnf("bodies %d and %d overlapped %.0f cells for %d ticks, nudging apart",
				a.ID, b.ID, depth, s.cfg.StuckTicks)
		}
	}
	return nudges
}

// nudge moves one body of the pair vertically away from the other: the upper body
// up when both are dynamic, otherwise the dynamic one.
func (s *Solver) nudge(a, b *Body, floorY float64) bool {
	upper, lower := a, b
	if b.AABB().Center().Y() < a.AABB().Center().Y() {
		upper, lower = b, a
	}

	switch {
	case upper.IsDynamic():
		upper.Pos[1] -= s.cfg.NudgeDistance
		upper.UpdateAABB()
	case lower.IsDynamic():
		lower.Pos[1] += s.cfg.NudgeDistance
		lower.UpdateAABB()
		s.collideGround(lower, floorY)
	default:
		return false
	}
	return true
}
