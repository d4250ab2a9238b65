// Package deadcode runs the whole-program dead code pipeline:
// build_call_graph -> resolve_entry_points -> link_reflection ->
// mark_reachable -> find_dead_blocks -> track_fields -> aggregate.
package deadcode

import (
	"context"
	"fmt"

	"github.com/panbanda/deadwood/pkg/analyzer"
	"github.com/panbanda/deadwood/pkg/analyzer/callgraph"
	"github.com/panbanda/deadwood/pkg/analyzer/cfg"
	"github.com/panbanda/deadwood/pkg/analyzer/entrypoint"
	"github.com/panbanda/deadwood/pkg/analyzer/fields"
	"github.com/panbanda/deadwood/pkg/analyzer/reachability"
	"github.com/panbanda/deadwood/pkg/analyzer/reflection"
	"github.com/panbanda/deadwood/pkg/models"
	"github.com/panbanda/deadwood/pkg/program"
)

// Analyzer finds unreachable methods, unused fields and dead instructions.
type Analyzer struct {
	mode       reachability.Mode
	policies   []entrypoint.Policy
	strategy   reflection.Strategy
	deadBlocks bool
	cycles     bool
}

// Compile-time check that Analyzer implements analyzer.ProgramAnalyzer.
var _ analyzer.ProgramAnalyzer[*models.Report] = (*Analyzer)(nil)

// Option is a functional option for configuring Analyzer.
type Option func(*Analyzer)

// WithMode sets how entry points are combined.
func WithMode(mode reachability.Mode) Option {
	return func(a *Analyzer) {
		if mode != "" {
			a.mode = mode
		}
	}
}

// WithPolicies replaces the entry point policies. An empty set means no
// method is an entry point.
func WithPolicies(policies ...entrypoint.Policy) Option {
	return func(a *Analyzer) {
		a.policies = policies
	}
}

// WithStrategy sets the reflection linking strategy.
func WithStrategy(s reflection.Strategy) Option {
	return func(a *Analyzer) {
		if s != nil {
			a.strategy = s
		}
	}
}

// WithDeadBlocks toggles unreachable instruction detection.
func WithDeadBlocks(enabled bool) Option {
	return func(a *Analyzer) {
		a.deadBlocks = enabled
	}
}

// WithCycles toggles reporting of recursive dead clusters.
func WithCycles(enabled bool) Option {
	return func(a *Analyzer) {
		a.cycles = enabled
	}
}

// New creates an analyzer with union mode, every built-in entry point
// policy and the name-matching reflection heuristic.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		mode:       reachability.ModeUnion,
		policies:   entrypoint.DefaultPolicies(),
		strategy:   reflection.NameHeuristic{},
		deadBlocks: true,
		cycles:     true,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze runs every phase in order over prog. Field usage flags on prog
// are updated as a side effect.
func (a *Analyzer) Analyze(ctx context.Context, prog *program.Program) (*models.Report, error) {
	tracker := analyzer.TrackerFromContext(ctx)
	if tracker != nil {
		tracker.Add(len(Phases))
	}
	step := func(name string) error {
		if tracker != nil {
			tracker.Step(name)
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		return nil
	}

	methods := prog.Methods()

	// Phase 1: static call edges
	g := callgraph.FromProgram(methods)
	if err := step(PhaseCallGraph); err != nil {
		return nil, err
	}

	// Phase 2: entry points, before reflective edges change in-degrees
	entries := entrypoint.NewResolver(a.policies...).Resolve(g)
	if err := step(PhaseEntryPoints); err != nil {
		return nil, err
	}

	// Phase 3: heuristic reflective edges
	linkStats, err := reflection.NewLinker(a.strategy).Link(g, methods)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", PhaseReflection, err)
	}
	if err := step(PhaseReflection); err != nil {
		return nil, err
	}

	// Phase 4: reachability freezes the graph
	reach := reachability.NewEngine(a.mode).Run(g, entries.Keys, entries.Context)
	var cycles [][]string
	if a.cycles {
		cycles = g.Cycles(reach.DeadKeys())
	}
	if err := step(PhaseReachability); err != nil {
		return nil, err
	}

	// Phase 5: unreachable instructions inside live methods
	var blocks map[string][]int
	if a.deadBlocks {
		blocks = cfg.NewDetector().Detect(liveMethods(g, reach))
	}
	if err := step(PhaseDeadBlocks); err != nil {
		return nil, err
	}

	// Phase 6: field usage over the whole program
	usage := fields.NewTracker(prog.Classes())
	usage.Scan(prog.Classes())
	if err := step(PhaseFields); err != nil {
		return nil, err
	}

	warnings := append([]models.Warning(nil), reach.Warnings...)
	failures := decodeFailures(prog)
	if len(failures) > 0 {
		warnings = append(warnings, models.Warning{
			Code:    models.WarningDecodeFailures,
			Message: fmt.Sprintf("%d unit(s) could not be decoded and were skipped", len(failures)),
		})
	}

	report := Aggregate(Inputs{
		Mode:            string(a.mode),
		TotalClasses:    len(prog.Classes()),
		TotalMethods:    len(methods),
		TotalFields:     usage.Len(),
		ReachableCount:  len(reach.Reachable),
		DeadMethods:     reach.Dead,
		DeadFields:      usage.DeadFields(),
		DeadBlocks:      blocks,
		DeadCycles:      cycles,
		EntryPoints:     entries.Entries(g),
		ReflectionSites: reflection.Sites(methods),
		ReflectionCalls: prog.ReflectionCallCount(),
		HeuristicEdges:  linkStats.EdgesAdded,
		FieldStats:      usage.Stats(),
		Warnings:        warnings,
		DecodeFailures:  failures,
	})
	if err := step(PhaseAggregate); err != nil {
		return nil, err
	}
	return report, nil
}

// liveMethods returns the reachable methods in graph order.
func liveMethods(g *callgraph.Graph, reach *reachability.Result) []*models.Method {
	var out []*models.Method
	for _, n := range g.Nodes() {
		if reach.IsReachable(g, n.Key()) {
			out = append(out, n.Method)
		}
	}
	return out
}

func decodeFailures(prog *program.Program) []models.DecodeFailure {
	var out []models.DecodeFailure
	for _, f := range prog.Failures() {
		msg := "unknown error"
		if f.Err != nil {
			msg = f.Err.Error()
		}
		out = append(out, models.DecodeFailure{Unit: f.Unit, Message: msg})
	}
	return out
}
