// Package status carries human-readable progress and error notices from the
// playback core to whatever displays them.
package status

import (
	"fmt"
	"log/slog"
	"sync"
)

// Sink receives status messages. Implementations must be safe for use from
// any goroutine.
type Sink interface {
	Report(msg string)
}

// Func adapts a function to the Sink interface. The function must be safe for
// concurrent use.
type Func func(msg string)

// Report calls f(msg)
func (f Func) Report(msg string) { f(msg) }

// Reportf formats a message and reports it to sink. A nil sink discards it.
func Reportf(sink Sink, format string, args ...any) {
	if sink == nil {
		return
	}
	sink.Report(fmt.Sprintf(format, args...))
}

// Discard drops every message
var Discard Sink = Func(func(string) {})

// Log writes status messages to a slog logger
type Log struct {
	Logger *slog.Logger
}

// NewLog returns a Log sink writing through the default logger
func NewLog() *Log {
	return &Log{Logger: slog.With("component", "status")}
}

// Report logs msg at info level
func (l *Log) Report(msg string) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info(msg)
}

// Recorder keeps every reported message in order
type Recorder struct {
	mu       sync.Mutex
	messages []string
}

// Report appends msg
func (r *Recorder) Report(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
}

// Messages returns a copy of the recorded messages
func (r *Recorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.messages))
	copy(out, r.messages)
	return out
}

// Len returns the number of recorded messages
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

// Multi fans a message out to several sinks
type Multi []Sink

// Report forwards msg to every sink in order
func (m Multi) Report(msg string) {
	for _, s := range m {
		if s != nil {
			s.Report(msg)
		}
	}
}
