package analyzer

import (
	"context"
	"sync/atomic"
)

// ProgressFunc is called when a step of an analysis completes. done is the
// number of finished steps, total the expected count, and step names the
// step that just finished.
type ProgressFunc func(done, total int, step string)

// Tracker counts finished steps and forwards them to a callback.
// It is safe for concurrent use.
type Tracker struct {
	total    atomic.Int32
	done     atomic.Int32
	callback ProgressFunc
}

// NewTracker creates a tracker. callback may be nil.
func NewTracker(callback ProgressFunc) *Tracker {
	return &Tracker{callback: callback}
}

// Add raises the expected step count by n.
func (t *Tracker) Add(n int) {
	t.total.Add(int32(n))
}

// SetTotal replaces the expected step count.
func (t *Tracker) SetTotal(n int) {
	t.total.Store(int32(n))
}

// Step marks one step as finished.
func (t *Tracker) Step(name string) {
	done := int(t.done.Add(1))
	if t.callback != nil {
		t.callback(done, int(t.total.Load()), name)
	}
}

// Done returns the number of finished steps.
func (t *Tracker) Done() int {
	return int(t.done.Load())
}

// Total returns the expected step count.
func (t *Tracker) Total() int {
	return int(t.total.Load())
}

type trackerKey struct{}

// WithTracker attaches t to ctx.
func WithTracker(ctx context.Context, t *Tracker) context.Context {
	return context.WithValue(ctx, trackerKey{}, t)
}

// TrackerFromContext returns the tracker attached to ctx, or nil.
func TrackerFromContext(ctx context.Context) *Tracker {
	if t, ok := ctx.Value(trackerKey{}).(*Tracker); ok {
		return t
	}
	return nil
}
