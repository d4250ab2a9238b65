// Package reachability computes which methods can be reached from the entry
// points of a frozen call graph.
package reachability

import (
	"errors"
	"fmt"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/panbanda/deadwood/pkg/analyzer/callgraph"
	"github.com/panbanda/deadwood/pkg/analyzer/entrypoint"
	"github.com/panbanda/deadwood/pkg/models"
)

// Mode selects how entry points are combined.
type Mode string

const (
	// ModeUnion marks everything reachable from any entry point.
	ModeUnion Mode = "union"
	// ModeSimple searches from a single entry point only.
	ModeSimple Mode = "simple"
)

// String returns the string representation.
func (m Mode) String() string {
	return string(m)
}

// ErrInvalidMode is returned by ParseMode for unknown names.
var ErrInvalidMode = errors.New("invalid reachability mode")

// ParseMode parses a mode name. The empty string means ModeUnion.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeUnion, "":
		return ModeUnion, nil
	case ModeSimple:
		return ModeSimple, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// Result is the outcome of one reachability pass.
type Result struct {
	Mode Mode
	// Roots are the entry points the search started from.
	Roots []string
	// Reachable holds the reachable method keys, sorted.
	Reachable []string
	// Dead holds the unreachable methods that may be reported, by key.
	Dead []*models.Method
	// Excluded holds unreachable methods that are never reported.
	Excluded []string
	Warnings []models.Warning

	reachable *roaring.Bitmap
}

// IsReachable reports whether key was reached.
func (r *Result) IsReachable(g *callgraph.Graph, key string) bool {
	n, ok := g.Node(key)
	if !ok {
		return false
	}
	return r.reachable.Contains(n.ID())
}

// DeadKeys returns the keys of the dead methods.
func (r *Result) DeadKeys() []string {
	keys := make([]string, len(r.Dead))
	for i, m := range r.Dead {
		keys[i] = m.Key()
	}
	return keys
}

// Engine runs reachability over a call graph.
type Engine struct {
	mode Mode
}

// NewEngine creates an engine for mode.
func NewEngine(mode Mode) *Engine {
	if mode == "" {
		mode = ModeUnion
	}
	return &Engine{mode: mode}
}

// Run freezes g and classifies every node. Static initializers, synthetic
// and bridge methods, and anything ctx excludes are never reported dead.
// Without entry points every other method is dead and a warning is added.
func (e *Engine) Run(g *callgraph.Graph, entries []string, ctx *entrypoint.Context) *Result {
	g.Freeze()
	if ctx == nil {
		ctx = entrypoint.NewContext()
	}

	res := &Result{Mode: e.mode}
	roots := append([]string(nil), entries...)
	sort.Strings(roots)
	if e.mode == ModeSimple && len(roots) > 1 {
		roots = roots[:1]
	}
	res.Roots = roots

	if len(roots) == 0 {
		res.Warnings = append(res.Warnings, models.Warning{
			Code:    models.WarningNoEntryPoints,
			Message: fmt.Sprintf("no entry points found; all %d methods are provisionally dead", g.Len()),
		})
	}

	res.reachable = g.ReachableSet(roots...)
	res.Reachable = g.Keys(res.reachable)

	for _, n := range g.Nodes() {
		if res.reachable.Contains(n.ID()) {
			continue
		}
		if isSpecial(n.Method, ctx) {
			res.Excluded = append(res.Excluded, n.Key())
			continue
		}
		res.Dead = append(res.Dead, n.Method)
	}
	sort.Slice(res.Dead, func(i, j int) bool { return res.Dead[i].Key() < res.Dead[j].Key() })
	sort.Strings(res.Excluded)
	return res
}

func isSpecial(m *models.Method, ctx *entrypoint.Context) bool {
	return m.IsClinit() || m.IsSynthetic() || m.IsBridge() || ctx.ShouldExcludeFromDead(m)
}

// TransitiveClosure returns, for every method reachable from key, its
// direct callees. Methods with no callees map to an empty slice.
func TransitiveClosure(g *callgraph.Graph, key string) map[string][]string {
	closure := make(map[string][]string)
	for _, k := range g.ReachableFrom(key) {
		closure[k] = append([]string{}, g.Outgoing(k)...)
	}
	return closure
}
