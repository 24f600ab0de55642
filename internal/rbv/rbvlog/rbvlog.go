// Package rbvlog provides level-tagged, single-line diagnostic logging for
// rbv's CLI and harness, writing to stderr the same way the rest of this
// codebase reports diagnostics: plain fmt formatting, no structured log
// payloads.
package rbvlog

import (
	"fmt"
	"io"
	"os"
	"time"
)

// Level orders log severity, lowest first.
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Warn:
		return "WARN"
	case Error:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger writes level-tagged lines to an io.Writer, filtering anything
// below its configured minimum level.
type Logger struct {
	out io.Writer
	min Level
	now func() time.Time
}

// New returns a Logger writing to w, filtering below min.
func New(w io.Writer, min Level) *Logger {
	return &Logger{out: w, min: min, now: time.Now}
}

// Default returns a Logger writing to os.Stderr at Info level, the level
// every rbvbench command uses.
func Default() *Logger {
	return New(os.Stderr, Info)
}

func (l *Logger) log(level Level, format string, args ...any) {
	if l == nil || level < l.min {
		return
	}
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(l.out, "%s [%s] %s\n", l.now().UTC().Format(time.RFC3339), level, msg)
}

func (l *Logger) Debugf(format string, args ...any) { l.log(Debug, format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.log(Info, format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.log(Warn, format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.log(Error, format, args...) }
