package gridbody

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

type Logger interface {
	DebugEnabled() bool
	SetDebug(enabled bool)
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type DefaultLogger struct {
	mu    sync.Mutex
	debug bool
	entry *logrus.Entry
}

// NewDefaultLogger logs to stderr through logrus with an optional component prefix.
func NewDefaultLogger(prefix string, debug bool) *DefaultLogger {
	return NewLoggerWithOutput(prefix, debug, os.Stderr)
}

func NewLoggerWithOutput(prefix string, debug bool, out io.Writer) *DefaultLogger {
	base := logrus.New()
	base.SetOutput(out)
	base.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.000000",
	})
	base.SetLevel(logrus.InfoLevel)
	if debug {
		base.SetLevel(logrus.DebugLevel)
	}

	entry := logrus.NewEntry(base)
	if prefix != "" {
		entry = entry.WithField("component", prefix)
	}
	return &DefaultLogger{debug: debug, entry: entry}
}

// With returns a logger sharing the same sink with an extra structured field.
func (l *DefaultLogger) With(key string, value any) *DefaultLogger {
	l.mu.Lock()
	defer l.mu.Unlock()
	return &DefaultLogger{debug: l.debug, entry: l.entry.WithField(key, value)}
}

func (l *DefaultLogger) DebugEnabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.debug
}

func (l *DefaultLogger) SetDebug(enabled bool) {
	l.mu.Lock()
	l.debug = enabled
	if enabled {
		l.entry.Logger.SetLevel(logrus.DebugLevel)
	} else {
		l.entry.Logger.SetLevel(logrus.InfoLevel)
	}
	l.mu.Unlock()
}

func (l *DefaultLogger) Debugf(format string, args ...any) {
	l.entry.Debugf(format, args...)
}

func (l *DefaultLogger) Infof(format string, args ...any) {
	l.entry.Infof(format, args...)
}

func (l *DefaultLogger) Warnf(format string, args ...any) {
	l.entry.Warnf(format, args...)
}

func (l *DefaultLogger) Errorf(format string, args ...any) {
	l.entry.Errorf(format, args...)
}

// Nop logger

type nopLogger struct{}

func NewNopLogger() Logger { return &nopLogger{} }
func (n *nopLogger) DebugEnabled() bool                { return false }
func (n *nopLogger) SetDebug(enabled bool)             {}
func (n *nopLogger) Debugf(format string, args ...any) {}
func (n *nopLogger) Infof(format string, args ...any)  {}
func (n *nopLogger) Warnf(format string, args ...any)  {}
func (n *nopLogger) Errorf(format string, args ...any) {}
