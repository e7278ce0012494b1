package main

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gekko3d/gridbody"
	"github.com/gekko3d/gridbody/analysis"
	"github.com/gekko3d/gridbody/render"
	"github.com/google/uuid"
)

// outlineColor tints body contours drawn over the cell masks.
var outlineColor = color.NRGBA{R: 255, G: 255, B: 255, A: 64}

type Summary struct {
	RunID    uuid.UUID
	Ticks    int
	Bodies   int
	Mass     int
	Frames   int
	Contacts int
	Aborted  int
	Nudges   int

	// ShapeHits counts shape cache hits while drawing frames.
	ShapeHits uint64
}

// Sim drives one scenario: scheduled stamps, fixed-step solver ticks and
// optional PNG frames under <output_dir>/<run id>.
type Sim struct {
	cfg      Config
	log      gridbody.Logger
	world    *gridbody.World
	renderer *render.Renderer
	shapes   *analysis.Cache
	runDir   string
	dt       float64

	pending []StampSpec
	tick    int
	summary Summary
}

func NewSim(cfg Config, log gridbody.Logger) (*Sim, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = gridbody.NewNopLogger()
	}
	runID := uuid.New()
	if dl, ok := log.(*gridbody.DefaultLogger); ok {
		log = dl.With("run", runID.String())
	}

	ground := gridbody.WorldGround{Width: cfg.World.Width, Height: cfg.World.Height}
	world, err := gridbody.NewWorld(ground,
		gridbody.WithID(runID),
		gridbody.WithSolverConfig(cfg.Solver),
		gridbody.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("create world: %w", err)
	}

	shapes, err := analysis.NewCache(1 << 20)
	if err != nil {
		return nil, err
	}

	pending := append([]StampSpec(nil), cfg.Stamps...)
	sort.SliceStable(pending, func(i, j int) bool { return pending[i].Tick < pending[j].Tick })

	return &Sim{
		cfg:      cfg,
		log:      log,
		world:    world,
		renderer: render.NewRenderer(),
		shapes:   shapes,
		runDir:   filepath.Join(cfg.OutputDir, world.ID().String()),
		dt:       1.0 / float64(cfg.TickRate),
		pending:  pending,
		summary:  Summary{RunID: world.ID()},
	}, nil
}

func (s *Sim) World() *gridbody.World {
	return s.world
}

func (s *Sim) RunDir() string {
	return s.runDir
}

func (s *Sim) Close() {
	s.shapes.Close()
}

// Tick applies the stamps scheduled for the current tick, advances the solver
// once and writes a frame when one is due.
func (s *Sim) Tick() error {
	for len(s.pending) > 0 && s.pending[0].Tick <= s.tick {
		if err := s.applyStamp(s.pending[0]); err != nil {
			return err
		}
		s.pending = s.pending[1:]
	}

	st := s.world.Step(s.dt)
	s.summary.Contacts += st.Contacts
	s.summary.Aborted += st.Aborted
	s.summary.Nudges += st.Nudges
	s.tick++

	if every := s.cfg.Frames.Every; every > 0 && s.tick%every == 0 {
		if err := s.writeFrame(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sim) applyStamp(spec StampSpec) error {
	st, err := spec.Stamp()
	if err != nil {
		return err
	}

	var id gridbody.BodyID
	if spec.Erase {
		id, err = s.world.EraseStamp(st)
	} else {
		id, err = s.world.ApplyStamp(st)
	}
	if err != nil {
		return fmt.Errorf("tick %d: %w", s.tick, err)
	}

	ms := s.world.LastMergeStats()
	s.log.Debugf("tick %d: %s stamp at (%d,%d) -> body %d (touched %d, components %d, cells %d)",
		s.tick, spec.Kind, spec.X, spec.Y, id, ms.Touched, ms.Components, ms.Cells)

	if id == gridbody.None || spec.Erase {
		return nil
	}
	if spec.Static {
		s.world.SetBodyStatic(id, true)
	} else if spec.VX != 0 || spec.VY != 0 {
		s.world.SetBodyVelocity(id, spec.VX, spec.VY)
	}
	return nil
}

func (s *Sim) writeFrame() error {
	fc := s.cfg.Frames
	img := image.NewRGBA(image.Rect(0, 0, fc.Width, fc.Height))
	cam := render.Camera{X: fc.CamX, Y: fc.CamY, Zoom: fc.Zoom}
	floorY := gridbody.WorldGround{Width: s.cfg.World.Width, Height: s.cfg.World.Height}.FloorY()

	s.renderer.Clear(img)
	s.renderer.DrawGround(img, floorY, cam)
	bodies := s.world.ListBodies()
	s.renderer.Draw(img, bodies, cam)

	if fc.Outlines {
		for _, b := range bodies {
			render.FillLoops(img, s.shapes.Contours(b), cam, outlineColor)
		}
	}

	if fc.Labels {
		for _, b := range bodies {
			c := s.shapes.Centroid(b)
			x, y := cam.ToScreen(c.X(), c.Y())
			text := fmt.Sprintf("%d", b.ID)
			render.DrawLabel(img, x-render.LabelWidth(text)/2, y+4, text, color.White)
		}
	}

	if err := os.MkdirAll(s.runDir, 0o755); err != nil {
		return fmt.Errorf("create run dir: %w", err)
	}
	name := filepath.Join(s.runDir, fmt.Sprintf("frame_%05d.png", s.tick))
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("create frame: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode frame %s: %w", name, err)
	}
	s.summary.Frames++
	return f.Close()
}

// Run executes the configured number of ticks. In realtime mode ticks are paced
// by a fixed-step clock; otherwise they run back to back.
func (s *Sim) Run(ctx context.Context) (Summary, error) {
	s.log.Infof("run %s: %d ticks at %d Hz, %d stamps", s.summary.RunID, s.cfg.Ticks, s.cfg.TickRate, len(s.pending))
	start := time.Now()

	var err error
	if s.cfg.Realtime {
		err = s.runRealtime(ctx)
	} else {
		for s.tick < s.cfg.Ticks && err == nil {
			if err = ctx.Err(); err != nil {
				break
			}
			err = s.Tick()
		}
	}

	bodies := s.world.ListBodies()
	s.summary.Ticks = s.tick
	s.summary.Bodies = len(bodies)
	s.summary.Mass = s.world.Registry().TotalMass()
	s.summary.ShapeHits = s.shapes.Hits()
	s.log.Infof("run %s finished after %d ticks in %s: %d bodies, mass %d, %d frames, %d nudges, %d shape cache hits",
		s.summary.RunID, s.tick, time.Since(start).Round(time.Millisecond),
		s.summary.Bodies, s.summary.Mass, s.summary.Frames, s.summary.Nudges, s.summary.ShapeHits)
	return s.summary, err
}

func (s *Sim) runRealtime(ctx context.Context) error {
	step := time.Second / time.Duration(s.cfg.TickRate)
	clock := NewClock(time.Now(), step, 5)
	ticker := time.NewTicker(step)
	defer ticker.Stop()

	for s.tick < s.cfg.Ticks {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			for n := clock.Advance(now); n > 0 && s.tick < s.cfg.Ticks; n-- {
				if err := s.Tick(); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
