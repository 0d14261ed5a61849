// Package log wraps logrus with the key/value logger every package of the
// tool takes.
package log

import (
	"io"
	"os"

	"github.com/netrixframework/smtkit/config"
	"github.com/sirupsen/logrus"
)

// LogParams are the fields attached by With
type LogParams map[string]interface{}

// Logger is a logrus entry with a fixed set of fields. Loggers derived with
// With share the output and level of the one they came from.
type Logger struct {
	entry *logrus.Entry
	// set on a root logger that owns its log file
	closer io.Closer
}

// DefaultLogger is the process wide logger. It discards everything until Init.
var DefaultLogger = NewNop()

// NewLogger builds a logger from c. Entries are appended to c.Path when the
// file can be opened and go to stderr otherwise.
func NewLogger(c config.LogConfig) *Logger {
	base := logrus.New()
	base.SetOutput(os.Stderr)
	if c.Format == "json" {
		base.SetFormatter(&logrus.JSONFormatter{})
	} else {
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	l := &Logger{entry: logrus.NewEntry(base)}
	l.SetLevel(c.Level)
	if c.Path == "" {
		return l
	}
	f, err := os.OpenFile(c.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		l.With(LogParams{"path": c.Path, "error": err.Error()}).Warn("Could not open log file, using stderr")
		return l
	}
	base.SetOutput(f)
	l.closer = f
	return l
}

// NewNop returns a logger that discards everything
func NewNop() *Logger {
	base := logrus.New()
	base.SetOutput(io.Discard)
	base.SetLevel(logrus.PanicLevel)
	return &Logger{entry: logrus.NewEntry(base)}
}

// With returns a child logger carrying params on every entry
func (l *Logger) With(params LogParams) *Logger {
	return &Logger{entry: l.entry.WithFields(logrus.Fields(params))}
}

func (l *Logger) Debug(s string) { l.entry.Debug(s) }
func (l *Logger) Info(s string)  { l.entry.Info(s) }
func (l *Logger) Warn(s string)  { l.entry.Warn(s) }
func (l *Logger) Error(s string) { l.entry.Error(s) }

// Fatal logs s and exits with status 1
func (l *Logger) Fatal(s string) { l.entry.Fatal(s) }

// SetLevel changes the level of l and of every logger sharing its output.
// Unknown level names are ignored.
func (l *Logger) SetLevel(level string) {
	if parsed, err := logrus.ParseLevel(level); err == nil {
		l.entry.Logger.SetLevel(parsed)
	}
}

// Destroy closes the log file, if l owns one
func (l *Logger) Destroy() {
	if l.closer != nil {
		l.closer.Close()
		l.closer = nil
	}
}

// Init replaces DefaultLogger with one built from c
func Init(c config.LogConfig) {
	DefaultLogger = NewLogger(c)
}

// Destroy closes the file of DefaultLogger
func Destroy() {
	DefaultLogger.Destroy()
}

// With derives from DefaultLogger
func With(params LogParams) *Logger {
	return DefaultLogger.With(params)
}

// Info logs with DefaultLogger
func Info(s string) {
	DefaultLogger.Info(s)
}

// Warn logs with DefaultLogger
func Warn(s string) {
	DefaultLogger.Warn(s)
}

// Error logs with DefaultLogger
func Error(s string) {
	DefaultLogger.Error(s)
}
