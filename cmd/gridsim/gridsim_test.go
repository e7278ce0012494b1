package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gekko3d/gridbody"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFile(t *testing.T) {
	cfg, err := LoadConfig("testdata/scene.yaml")
	require.NoError(t, err)

	assert.Equal(t, WorldConfig{Width: 400, Height: 200}, cfg.World)
	assert.Equal(t, 120, cfg.Ticks)
	assert.Equal(t, mgl64.Vec2{0, 500}, cfg.Solver.Gravity)
	assert.Equal(t, 6, cfg.Solver.Iterations)
	assert.Equal(t, 0.25, cfg.Solver.Restitution)
	assert.Equal(t, gridbody.DefaultSolverConfig().Slop, cfg.Solver.Slop, "unset keys keep defaults")
	assert.Equal(t, 0.5, cfg.Frames.Zoom)
	assert.True(t, cfg.Frames.Outlines)

	require.Len(t, cfg.Stamps, 4)
	assert.True(t, cfg.Stamps[0].Static)
	assert.Equal(t, "circle", cfg.Stamps[2].Kind)
	assert.Equal(t, -30.0, cfg.Stamps[2].VX)
	assert.True(t, cfg.Stamps[3].Erase)
	assert.Equal(t, 30, cfg.Stamps[3].Tick)
}

func TestLoadConfigDefaultsAndEnv(t *testing.T) {
	t.Setenv("GRIDSIM_TICKS", "7")
	t.Setenv("GRIDSIM_LOG_DEBUG", "true")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Ticks)
	assert.True(t, cfg.Log.Debug)
	assert.Equal(t, DefaultConfig().World, cfg.World)
}

func TestLoadConfigRejectsBadStamp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("stamps:\n  - kind: triangle\n"), 0o644))

	_, err := LoadConfig(path)
	assert.ErrorIs(t, err, gridbody.ErrInvalidConfig)
}

func TestLoadConfigRejectsBadSolver(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("solver:\n  iterations: 0\n"), 0o644))

	_, err := LoadConfig(path)
	assert.ErrorIs(t, err, gridbody.ErrInvalidConfig)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestClockFixedSteps(t *testing.T) {
	start := time.Unix(0, 0)
	c := NewClock(start, 10*time.Millisecond, 5)

	assert.Equal(t, 2, c.Advance(start.Add(25*time.Millisecond)))
	assert.Equal(t, 25*time.Millisecond, c.Dt)
	assert.Equal(t, 1, c.Advance(start.Add(30*time.Millisecond)))
	assert.Equal(t, 0, c.Advance(start.Add(35*time.Millisecond)))

	// A stall is capped and the backlog dropped.
	assert.Equal(t, 5, c.Advance(start.Add(2*time.Second)))
	assert.Equal(t, 0, c.Advance(start.Add(2*time.Second+5*time.Millisecond)))

	// Time going backwards never produces steps.
	assert.Equal(t, 0, c.Advance(start))
	assert.Equal(t, time.Duration(0), c.Dt)
}

func testConfig(t *testing.T) Config {
	t.Helper()
	cfg, err := LoadConfig("testdata/scene.yaml")
	require.NoError(t, err)
	cfg.OutputDir = t.TempDir()
	return cfg
}

func TestSimRunScenario(t *testing.T) {
	cfg := testConfig(t)
	sim, err := NewSim(cfg, nil)
	require.NoError(t, err)
	defer sim.Close()

	sum, err := sim.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 120, sum.Ticks)
	assert.Equal(t, 2, sum.Frames)
	assert.Equal(t, sim.World().ID(), sum.RunID)

	// The erase at tick 30 cuts both the platform and the box in two.
	assert.Equal(t, 5, sum.Bodies)
	circle := gridbody.CircleStamp(60, 20, 6).SolidCount()
	assert.Equal(t, 792+48+circle, sum.Mass)

	for _, name := range []string{"frame_00060.png", "frame_00120.png"} {
		_, err := os.Stat(filepath.Join(sim.RunDir(), name))
		assert.NoError(t, err, name)
	}

	static := 0
	for _, b := range sim.World().ListBodies() {
		if b.Static {
			static++
			assert.Equal(t, 90.0, b.Pos.Y())
		}
	}
	assert.Equal(t, 2, static, "platform fragments stay static")

	// The box keeps its id on its larger right half and stays dynamic.
	box := sim.World().Body(2)
	require.NotNil(t, box)
	assert.False(t, box.Static)
	assert.Equal(t, 32, box.Mass())

	// Labels and outlines read the same cached shapes.
	assert.Positive(t, sum.ShapeHits)
}

func TestSimLoggerCarriesRunID(t *testing.T) {
	var buf bytes.Buffer
	cfg := testConfig(t)
	cfg.Ticks = 1

	sim, err := NewSim(cfg, gridbody.NewLoggerWithOutput("gridsim", false, &buf))
	require.NoError(t, err)
	defer sim.Close()

	sum, err := sim.Run(context.Background())
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "run="+sum.RunID.String())
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, loadDotEnv(filepath.Join(dir, "missing.env")))

	good := filepath.Join(dir, "good.env")
	require.NoError(t, os.WriteFile(good, []byte("GRIDSIM_DOTENV_CHECK=1\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("GRIDSIM_DOTENV_CHECK") })
	require.NoError(t, loadDotEnv(good))
	assert.Equal(t, "1", os.Getenv("GRIDSIM_DOTENV_CHECK"))

	// A directory exists but cannot be parsed as an env file.
	assert.Error(t, loadDotEnv(dir))
}

func TestSimStopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	sim, err := NewSim(cfg, nil)
	require.NoError(t, err)
	defer sim.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum, err := sim.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, sum.Ticks)
}

func TestSimRealtime(t *testing.T) {
	cfg := testConfig(t)
	cfg.Realtime = true
	cfg.Ticks = 3
	cfg.TickRate = 200
	cfg.Frames.Every = 0

	sim, err := NewSim(cfg, nil)
	require.NoError(t, err)
	defer sim.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sum, err := sim.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Ticks)
	assert.Zero(t, sum.Frames)
}
