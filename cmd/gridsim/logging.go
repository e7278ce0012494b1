package main

import (
	"io"
	"os"

	"github.com/gekko3d/gridbody"
	"gopkg.in/natefinch/lumberjack.v2"
)

// newLogger writes to stderr and, when a log file is configured, to a rotated file.
func newLogger(cfg LogConfig) (*gridbody.DefaultLogger, io.Closer) {
	if cfg.File == "" {
		return gridbody.NewDefaultLogger("gridsim", cfg.Debug), nopCloser{}
	}
	file := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		Compress:   true,
	}
	out := io.MultiWriter(os.Stderr, file)
	return gridbody.NewLoggerWithOutput("gridsim", cfg.Debug, out), file
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
