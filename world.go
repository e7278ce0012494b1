package gridbody

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

// World ties the registry, the merge/split engine and the solver together and is
// the surface renderers and input layers talk to. It is not safe for concurrent
// use; readers should take their snapshots between steps.
type World struct {
	id     uuid.UUID
	reg    *Registry
	engine *Engine
	solver *Solver
	log    Logger
}

type WorldOption func(*worldOptions)

type worldOptions struct {
	cfg SolverConfig
	log Logger
	id  uuid.UUID
}

func WithSolverConfig(cfg SolverConfig) WorldOption {
	return func(o *worldOptions) { o.cfg = cfg }
}

func WithLogger(log Logger) WorldOption {
	return func(o *worldOptions) { o.log = log }
}

// WithID fixes the session id instead of generating a random one.
func WithID(id uuid.UUID) WorldOption {
	return func(o *worldOptions) { o.id = id }
}

// NewWorld builds a world on top of the given ground. A nil ground is a
// configuration error, not a silent floor at zero.
func NewWorld(ground Ground, opts ...WorldOption) (*World, error) {
	o := worldOptions{cfg: DefaultSolverConfig()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = NewNopLogger()
	}
	if o.id == uuid.Nil {
		o.id = uuid.New()
	}

	solver, err := NewSolver(o.cfg, ground, o.log)
	if err != nil {
		return nil, err
	}

	reg := NewRegistry()
	w := &World{
		id:     o.id,
		reg:    reg,
		engine: NewEngine(reg, o.log),
		solver: solver,
		log:    o.log,
	}
	w.log.Debugf("world %s created, floor at %.1f", w.id, ground.FloorY())
	return w, nil
}

func (w *World) ID() uuid.UUID {
	return w.id
}

func (w *World) Registry() *Registry {
	return w.reg
}

func (w *World) Solver() *Solver {
	return w.solver
}

func (w *World) ApplyStamp(s Stamp) (BodyID, error) {
	return w.engine.ApplyStamp(s)
}

func (w *World) EraseStamp(s Stamp) (BodyID, error) {
	return w.engine.EraseStamp(s)
}

func (w *World) LastMergeStats() MergeStats {
	return w.engine.LastStats()
}

func (w *World) Step(dt float64) StepStats {
	return w.solver.Step(w.reg, dt)
}

// ListBodies returns the bodies in draw order (last is topmost).
func (w *World) ListBodies() []*Body {
	return w.reg.Bodies()
}

func (w *World) Body(id BodyID) *Body {
	return w.reg.Get(id)
}

func (w *World) HasSolidAtWorld(b *Body, wx, wy int) bool {
	return b.HasSolidAtWorld(wx, wy)
}

func (w *World) ForEachSolidCell(b *Body, fn func(wx, wy int)) {
	b.ForEachSolidCell(fn)
}

func (w *World) GetBodyPos(id BodyID) (mgl64.Vec2, bool) {
	b := w.reg.Get(id)
	if b == nil {
		return mgl64.Vec2{}, false
	}
	return b.Pos, true
}

func (w *World) SetBodyPos(id BodyID, x, y float64) bool {
	b := w.reg.Get(id)
	if b == nil {
		return false
	}
	b.SetPos(x, y)
	return true
}

// GetBodyMass returns 0 for unknown ids.
func (w *World) GetBodyMass(id BodyID) int {
	b := w.reg.Get(id)
	if b == nil {
		return 0
	}
	return b.Mass()
}

func (w *World) SetBodyVelocity(id BodyID, vx, vy float64) bool {
	b := w.reg.Get(id)
	if b == nil {
		return false
	}
	b.Vel = mgl64.Vec2{vx, vy}
	return true
}

// SetBodyStatic pins a body in place (zero inverse mass) or releases it.
func (w *World) SetBodyStatic(id BodyID, static bool) bool {
	b := w.reg.Get(id)
	if b == nil {
		return false
	}
	b.Static = static
	if static {
		b.Vel = mgl64.Vec2{}
	}
	return true
}

// HitTest returns the topmost body with a solid cell under the point.
func (w *World) HitTest(px, py float64) BodyID {
	return w.engine.HitTest(px, py)
}

// BringToFront moves a body to the top of the draw/selection order.
func (w *World) BringToFront(id BodyID) bool {
	return w.reg.MoveToTop(id)
}
