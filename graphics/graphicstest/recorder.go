// Package graphicstest captures the records logged through graphics.Logger so
// tests can assert on reported errors.
package graphicstest

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"dynamik/graphics"
)

// Recorder is a slog.Handler keeping every record. Attributes added with
// Logger.With are not retained.
type Recorder struct {
	mu      sync.Mutex
	records []slog.Record
}

func (r *Recorder) Enabled(context.Context, slog.Level) bool { return true }

func (r *Recorder) Handle(_ context.Context, rec slog.Record) error {
	r.mu.Lock()
	r.records = append(r.records, rec.Clone())
	r.mu.Unlock()
	return nil
}

func (r *Recorder) WithAttrs([]slog.Attr) slog.Handler { return r }
func (r *Recorder) WithGroup(string) slog.Handler      { return r }

// Count returns the number of records logged at exactly level.
func (r *Recorder) Count(level slog.Level) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, rec := range r.records {
		if rec.Level == level {
			n++
		}
	}
	return n
}

// Messages returns the messages logged at exactly level, in order.
func (r *Recorder) Messages(level slog.Level) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, rec := range r.records {
		if rec.Level == level {
			out = append(out, rec.Message)
		}
	}
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	r.records = nil
	r.mu.Unlock()
}

// CaptureLogs routes graphics.Logger to a new Recorder until the test ends.
// Tests using it must not run in parallel.
func CaptureLogs(t testing.TB) *Recorder {
	t.Helper()
	prev := graphics.Logger()
	rec := &Recorder{}
	graphics.SetLogger(slog.New(rec))
	t.Cleanup(func() { graphics.SetLogger(prev) })
	return rec
}
