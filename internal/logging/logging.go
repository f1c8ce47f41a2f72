// Package logging provides the injected logging sink used by the cache,
// parser, and orchestrator subsystems. The source codebase this was
// distilled from reaches for a process-global logger; that design note
// (§9) asks for the opposite: every component that wants to log takes a
// *Sink at construction, and nothing in this package holds mutable
// process-wide state.
package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Level orders log severity from most to least verbose.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Sink is the minimal logging surface every subsystem is handed. Callers
// construct one with NewSink and pass it down through Cache Store,
// Orchestrator, and stage handler constructors.
type Sink struct {
	mu       sync.Mutex
	w        io.Writer
	minLevel Level
}

// NewSink creates a Sink writing to w. A nil w discards everything, which
// is useful for tests that don't care about log output.
func NewSink(w io.Writer, minLevel Level) *Sink {
	if w == nil {
		w = io.Discard
	}
	return &Sink{w: w, minLevel: minLevel}
}

// Discard is a Sink that drops every message. A nil *Sink also drops
// every message, since Log returns early on a nil receiver.
func Discard() *Sink {
	return NewSink(io.Discard, LevelError+1)
}

// Stderr returns a Sink writing to os.Stderr at the given level.
func Stderr(minLevel Level) *Sink {
	return NewSink(os.Stderr, minLevel)
}

func (s *Sink) Log(level Level, component, format string, args ...interface{}) {
	if s == nil || level < s.minLevel {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ts := time.Now().Format(time.RFC3339)
	fmt.Fprintf(s.w, "%s [%s:%s] %s\n", ts, level, component, fmt.Sprintf(format, args...))
}

func (s *Sink) Debugf(component, format string, args ...interface{}) {
	s.Log(LevelDebug, component, format, args...)
}

func (s *Sink) Infof(component, format string, args ...interface{}) {
	s.Log(LevelInfo, component, format, args...)
}

func (s *Sink) Warnf(component, format string, args ...interface{}) {
	s.Log(LevelWarn, component, format, args...)
}

func (s *Sink) Errorf(component, format string, args ...interface{}) {
	s.Log(LevelError, component, format, args...)
}
