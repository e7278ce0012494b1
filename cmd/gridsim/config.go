package main

import (
	"fmt"
	"strings"

	"github.com/gekko3d/gridbody"
	"github.com/spf13/viper"
)

type WorldConfig struct {
	Width  int `mapstructure:"width"`
	Height int `mapstructure:"height"`
}

type FrameConfig struct {
	// Every writes a frame each N ticks; 0 disables frames.
	Every  int     `mapstructure:"every"`
	Width  int     `mapstructure:"width"`
	Height int     `mapstructure:"height"`
	Zoom   float64 `mapstructure:"zoom"`
	CamX   float64 `mapstructure:"cam_x"`
	CamY   float64 `mapstructure:"cam_y"`
	Labels bool    `mapstructure:"labels"`

	// Outlines fills each body's traced contour on top of its cells.
	Outlines bool `mapstructure:"outlines"`
}

type LogConfig struct {
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	Debug      bool   `mapstructure:"debug"`
}

// StampSpec schedules one stamp or erase at a given tick.
type StampSpec struct {
	Tick   int     `mapstructure:"tick"`
	Kind   string  `mapstructure:"kind"`
	X      int     `mapstructure:"x"`
	Y      int     `mapstructure:"y"`
	W      int     `mapstructure:"w"`
	H      int     `mapstructure:"h"`
	R      int     `mapstructure:"r"`
	Erase  bool    `mapstructure:"erase"`
	Static bool    `mapstructure:"static"`
	VX     float64 `mapstructure:"vx"`
	VY     float64 `mapstructure:"vy"`
}

func (s StampSpec) Stamp() (gridbody.Stamp, error) {
	switch strings.ToLower(s.Kind) {
	case "rect", "":
		return gridbody.RectStamp(s.X, s.Y, s.W, s.H), nil
	case "circle":
		return gridbody.CircleStamp(float64(s.X), float64(s.Y), float64(s.R)), nil
	}
	return gridbody.Stamp{}, fmt.Errorf("%w: unknown stamp kind %q", gridbody.ErrInvalidConfig, s.Kind)
}

type Config struct {
	World     WorldConfig           `mapstructure:"world"`
	Solver    gridbody.SolverConfig `mapstructure:"solver"`
	Ticks     int                   `mapstructure:"ticks"`
	TickRate  int                   `mapstructure:"tick_rate"`
	Realtime  bool                  `mapstructure:"realtime"`
	OutputDir string                `mapstructure:"output_dir"`
	Frames    FrameConfig           `mapstructure:"frames"`
	Log       LogConfig             `mapstructure:"log"`
	Stamps    []StampSpec           `mapstructure:"stamps"`
}

func DefaultConfig() Config {
	return Config{
		World:     WorldConfig{Width: 2000, Height: 2000},
		Solver:    gridbody.DefaultSolverConfig(),
		Ticks:     600,
		TickRate:  60,
		OutputDir: "out",
		Frames:    FrameConfig{Every: 0, Width: 640, Height: 480, Zoom: 1, Labels: true},
		Log:       LogConfig{MaxSizeMB: 10, MaxBackups: 3},
	}
}

// LoadConfig reads a YAML/JSON/TOML file on top of the defaults. Scalar keys can
// be overridden from the environment, e.g. GRIDSIM_TICKS or GRIDSIM_LOG_DEBUG.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetEnvPrefix("gridsim")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range []string{"ticks", "tick_rate", "realtime", "output_dir", "log.debug", "log.file", "frames.every"} {
		if err := v.BindEnv(key); err != nil {
			return cfg, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch {
	case c.World.Height <= 0 || c.World.Width <= 0:
		return fmt.Errorf("%w: world size must be positive", gridbody.ErrInvalidConfig)
	case c.Ticks < 0:
		return fmt.Errorf("%w: ticks must be >= 0", gridbody.ErrInvalidConfig)
	case c.TickRate <= 0:
		return fmt.Errorf("%w: tick_rate must be positive", gridbody.ErrInvalidConfig)
	case c.Frames.Every < 0:
		return fmt.Errorf("%w: frames.every must be >= 0", gridbody.ErrInvalidConfig)
	case c.Frames.Every > 0 && (c.Frames.Width <= 0 || c.Frames.Height <= 0):
		return fmt.Errorf("%w: frame size must be positive", gridbody.ErrInvalidConfig)
	}
	if err := c.Solver.Validate(); err != nil {
		return err
	}
	for i, s := range c.Stamps {
		if _, err := s.Stamp(); err != nil {
			return fmt.Errorf("stamps[%d]: %w", i, err)
		}
		if s.Tick < 0 {
			return fmt.Errorf("%w: stamps[%d]: tick must be >= 0", gridbody.ErrInvalidConfig, i)
		}
	}
	return nil
}
