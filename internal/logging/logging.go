// Package logging provides the leveled diagnostic output used throughout
// tini. It is a package-level singleton, not a logger value threaded
// through every component, because the whole program has exactly one
// verbosity setting, set once from argument parsing and read everywhere
// else.
package logging

import (
	"fmt"
	"os"
	"sync/atomic"
)

// Level identifies a diagnostic category. Higher levels are more verbose.
type Level int32

const (
	Fatal Level = iota
	Warn
	Info
	Debug
	Trace
)

// MaxVerbosity is the highest level reachable by repeating -v.
const MaxVerbosity = int(Trace)

var level atomic.Int32

// SetLevel sets the process-wide verbosity. Values above Trace are
// clamped.
func SetLevel(v int) {
	if v > MaxVerbosity {
		v = MaxVerbosity
	}
	if v < int(Fatal) {
		v = int(Fatal)
	}
	level.Store(int32(v))
}

func enabled(l Level) bool {
	return int32(l) <= level.Load()
}

// Enabled reports whether diagnostics at level l would currently be
// printed. Useful for callers that want to skip computing an expensive
// argument (e.g. a procfs walk) when nothing would print it.
func Enabled(l Level) bool {
	return enabled(l)
}

func (l Level) tag() string {
	switch l {
	case Fatal:
		return "[fatal]"
	case Warn:
		return "[warn]"
	case Info:
		return "[info]"
	case Debug:
		return "[debug]"
	case Trace:
		return "[trace]"
	default:
		return "[?]"
	}
}

func (l Level) out() *os.File {
	if l <= Warn {
		return os.Stderr
	}
	return os.Stdout
}

func logf(l Level, format string, v ...any) {
	if !enabled(l) {
		return
	}
	fmt.Fprintf(l.out(), "%s %s\n", l.tag(), fmt.Sprintf(format, v...))
}

// Fatalf always prints, regardless of verbosity, then the caller is
// expected to exit. It does not call os.Exit itself so callers can
// control the exit path (e.g. run deferred cleanup first).
func Fatalf(format string, v ...any) {
	fmt.Fprintf(os.Stderr, "%s %s\n", Fatal.tag(), fmt.Sprintf(format, v...))
}

// Warnf prints at verbosity >= 1.
func Warnf(format string, v ...any) { logf(Warn, format, v...) }

// Infof prints at verbosity >= 2.
func Infof(format string, v ...any) { logf(Info, format, v...) }

// Debugf prints at verbosity >= 3.
func Debugf(format string, v ...any) { logf(Debug, format, v...) }

// Tracef prints at verbosity >= 4.
func Tracef(format string, v ...any) { logf(Trace, format, v...) }
