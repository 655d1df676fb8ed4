package logging

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

const (
	defaultSuppressWindow = time.Second
	maxTrackedRecords     = 1024
)

// SuppressHandler wraps a slog.Handler and swallows records identical to
// one already emitted within the window. Identity is computed over level,
// message and attributes; timestamps are excluded, so a burst of the same
// warning collapses into one line. When a suppressed record surfaces again
// after the window, the emitted line carries a "suppressed" attribute with
// the number of swallowed repeats.
type SuppressHandler struct {
	handler slog.Handler
	window  time.Duration

	mu   *sync.Mutex
	seen map[uint64]*suppressEntry

	now func() time.Time // test seam
}

type suppressEntry struct {
	emitted time.Time
	repeats int
}

// NewSuppressHandler wraps handler with the default window.
func NewSuppressHandler(handler slog.Handler) *SuppressHandler {
	return NewSuppressHandlerWindow(handler, defaultSuppressWindow)
}

// NewSuppressHandlerWindow wraps handler with an explicit window.
func NewSuppressHandlerWindow(handler slog.Handler, window time.Duration) *SuppressHandler {
	return &SuppressHandler{
		handler: handler,
		window:  window,
		mu:      &sync.Mutex{},
		seen:    make(map[uint64]*suppressEntry),
		now:     time.Now,
	}
}

// Enabled delegates to the wrapped handler.
func (h *SuppressHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle emits the record unless an identical one was emitted within the
// window.
func (h *SuppressHandler) Handle(ctx context.Context, r slog.Record) error {
	key := hashRecord(r)
	now := h.now()

	h.mu.Lock()
	entry, ok := h.seen[key]
	if ok && now.Sub(entry.emitted) < h.window {
		entry.repeats++
		h.mu.Unlock()
		return nil
	}

	var repeats int
	if ok {
		repeats = entry.repeats
	}
	if len(h.seen) >= maxTrackedRecords {
		h.evictStale(now)
	}
	h.seen[key] = &suppressEntry{emitted: now}
	h.mu.Unlock()

	if repeats > 0 {
		r = r.Clone()
		r.AddAttrs(slog.Int("suppressed", repeats))
	}
	return h.handler.Handle(ctx, r)
}

// WithAttrs shares the suppression state: the same message logged through
// a derived logger still counts as a repeat.
func (h *SuppressHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &SuppressHandler{
		handler: h.handler.WithAttrs(attrs),
		window:  h.window,
		mu:      h.mu,
		seen:    h.seen,
		now:     h.now,
	}
}

// WithGroup shares the suppression state, like WithAttrs.
func (h *SuppressHandler) WithGroup(name string) slog.Handler {
	return &SuppressHandler{
		handler: h.handler.WithGroup(name),
		window:  h.window,
		mu:      h.mu,
		seen:    h.seen,
		now:     h.now,
	}
}

// evictStale is called with mu held.
func (h *SuppressHandler) evictStale(now time.Time) {
	for k, e := range h.seen {
		if now.Sub(e.emitted) >= h.window {
			delete(h.seen, k)
		}
	}
}

// hashRecord fingerprints a record's content, excluding the timestamp.
func hashRecord(r slog.Record) uint64 {
	d := xxhash.New()
	fmt.Fprintf(d, "%d\x00%s", r.Level, r.Message)
	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(d, "\x00%s=%v", a.Key, a.Value.Any())
		return true
	})
	return d.Sum64()
}
