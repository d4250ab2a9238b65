// Package fileproc provides concurrent unit processing utilities.
package fileproc

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/sourcegraph/conc/pool"
)

// ProcessingError represents an error that occurred while processing a unit.
type ProcessingError struct {
	Path string
	Err  error
}

func (e ProcessingError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e ProcessingError) Unwrap() error { return e.Err }

// ProcessingErrors collects multiple unit processing errors.
type ProcessingErrors struct {
	Errors []ProcessingError
	mu     sync.Mutex
}

// Add appends an error to the collection (thread-safe).
func (e *ProcessingErrors) Add(path string, err error) {
	e.mu.Lock()
	e.Errors = append(e.Errors, ProcessingError{Path: path, Err: err})
	e.mu.Unlock()
}

// HasErrors returns true if any errors were collected.
func (e *ProcessingErrors) HasErrors() bool {
	if e == nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.Errors) > 0
}

// Error implements the error interface.
func (e *ProcessingErrors) Error() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d units failed to process (first: %v)", len(e.Errors), e.Errors[0])
}

// DefaultWorkerMultiplier is the multiplier applied to NumCPU for worker count.
const DefaultWorkerMultiplier = 2

// ProgressFunc is called after each item is processed.
type ProgressFunc func()

// Workers returns n, or 2x NumCPU when n <= 0.
func Workers(n int) int {
	if n <= 0 {
		return runtime.NumCPU() * DefaultWorkerMultiplier
	}
	return n
}

// Outcome is the result of processing one item.
type Outcome[T any] struct {
	Value T
	Err   error
}

// MapIndexed processes items in parallel and returns one outcome per item
// in input order. Item errors are stored in their outcome and never stop
// the pool. Items not started before ctx is cancelled get ctx.Err().
// If maxWorkers is <= 0, defaults to 2x NumCPU.
func MapIndexed[I, T any](ctx context.Context, items []I, maxWorkers int, fn func(context.Context, I) (T, error), onProgress ProgressFunc) []Outcome[T] {
	if len(items) == 0 {
		return nil
	}

	// Indexed assignment keeps order without a results mutex.
	outcomes := make([]Outcome[T], len(items))

	p := pool.New().WithMaxGoroutines(Workers(maxWorkers)).WithContext(ctx)
	for i, item := range items {
		p.Go(func(ctx context.Context) error {
			defer func() {
				if onProgress != nil {
					onProgress()
				}
			}()

			if err := ctx.Err(); err != nil {
				outcomes[i].Err = err
				return nil
			}

			v, err := fn(ctx, item)
			outcomes[i] = Outcome[T]{Value: v, Err: err}
			return nil
		})
	}
	_ = p.Wait()

	return outcomes
}

// CollectErrors gathers failed outcomes, naming each with name(item).
// Returns nil when every item succeeded.
func CollectErrors[I, T any](items []I, outcomes []Outcome[T], name func(I) string) *ProcessingErrors {
	errs := &ProcessingErrors{}
	for i, o := range outcomes {
		if o.Err != nil {
			errs.Add(name(items[i]), o.Err)
		}
	}
	if !errs.HasErrors() {
		return nil
	}
	return errs
}
