// Package observability provides the logging facade used across the
// edit-session core. Components accept a Logger and default to NopLogger;
// the host application decides where log output goes.
package observability

import (
	"fmt"
	"os"
)

// Logger is the structured logging interface accepted by all components.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	With(fields ...Field) Logger
}

// Field is a typed key/value pair attached to a log entry.
type Field interface {
	Key() string
	Value() interface{}
}

type stringField struct{ key, val string }

func (f stringField) Key() string        { return f.key }
func (f stringField) Value() interface{} { return f.val }

type intField struct {
	key string
	val int
}

func (f intField) Key() string        { return f.key }
func (f intField) Value() interface{} { return f.val }

type float64Field struct {
	key string
	val float64
}

func (f float64Field) Key() string        { return f.key }
func (f float64Field) Value() interface{} { return f.val }

type errorField struct {
	key string
	err error
}

func (f errorField) Key() string        { return f.key }
func (f errorField) Value() interface{} { return f.err }

func String(key, value string) Field          { return stringField{key, value} }
func Int(key string, value int) Field         { return intField{key, value} }
func Float64(key string, value float64) Field { return float64Field{key, value} }
func Error(key string, err error) Field       { return errorField{key, err} }

// NopLogger discards everything. It is the default for every component.
type NopLogger struct{}

func (NopLogger) Debug(string, ...Field) {}
func (NopLogger) Info(string, ...Field)  {}
func (NopLogger) Warn(string, ...Field)  {}
func (NopLogger) Error(string, ...Field) {}
func (NopLogger) With(...Field) Logger   { return NopLogger{} }

// stderrLogger writes one line per entry to standard error.
type stderrLogger struct {
	fields []Field
}

// NewStderrLogger returns a logger printing to standard error, used by
// the command-line tool's verbose mode.
func NewStderrLogger() Logger { return &stderrLogger{} }

func (l *stderrLogger) emit(level, msg string, fields []Field) {
	fmt.Fprintf(os.Stderr, "%s %s", level, msg)
	for _, f := range append(l.fields, fields...) {
		fmt.Fprintf(os.Stderr, " %s=%v", f.Key(), f.Value())
	}
	fmt.Fprintln(os.Stderr)
}

func (l *stderrLogger) Debug(msg string, fields ...Field) { l.emit("DEBUG", msg, fields) }
func (l *stderrLogger) Info(msg string, fields ...Field)  { l.emit("INFO", msg, fields) }
func (l *stderrLogger) Warn(msg string, fields ...Field)  { l.emit("WARN", msg, fields) }
func (l *stderrLogger) Error(msg string, fields ...Field) { l.emit("ERROR", msg, fields) }

func (l *stderrLogger) With(fields ...Field) Logger {
	return &stderrLogger{fields: append(append([]Field(nil), l.fields...), fields...)}
}

// Standard metric names emitted around the export pipeline.
const (
	MetricLoadTime        = "pdfedit.load.duration"
	MetricExportTime      = "pdfedit.export.duration"
	MetricPageCount       = "pdfedit.pages.count"
	MetricAnnotationCount = "pdfedit.annotations.count"
	MetricExportBytes     = "pdfedit.export.bytes"
)
