package deadcode

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/panbanda/deadwood/pkg/analyzer/callgraph"
	"github.com/panbanda/deadwood/pkg/analyzer/cfg"
	"github.com/panbanda/deadwood/pkg/analyzer/entrypoint"
	"github.com/panbanda/deadwood/pkg/analyzer/reachability"
	"github.com/panbanda/deadwood/pkg/analyzer/reflection"
	"github.com/panbanda/deadwood/pkg/models"
	"github.com/panbanda/deadwood/pkg/program"
)

// ErrUnknownMethod is returned by Explain for a key the program does not
// declare.
var ErrUnknownMethod = errors.New("unknown method")

// Explanation describes how one method relates to the entry points.
type Explanation struct {
	Method    string `json:"method" toon:"method"`
	Reachable bool   `json:"reachable" toon:"reachable"`
	// Excluded is set for unreachable methods that are never reported,
	// such as static initializers.
	Excluded      bool     `json:"excluded,omitempty" toon:"excluded"`
	EntryPolicies []string `json:"entry_policies,omitempty" toon:"entry_policies"`
	// Path is a shortest call chain from an entry point to the method.
	Path    []string            `json:"path,omitempty" toon:"path"`
	Callers []string            `json:"callers" toon:"callers"`
	Callees map[string][]string `json:"callees" toon:"callees"`

	BlockStarts []int                     `json:"block_starts,omitempty" toon:"block_starts"`
	DeadRanges  []models.InstructionRange `json:"dead_ranges,omitempty" toon:"dead_ranges"`
	DeadDetails []string                  `json:"dead_details,omitempty" toon:"dead_details"`
}

// Explain runs the graph phases and reports the reachability, callers,
// transitive callees and control flow of the method with the given key.
func (a *Analyzer) Explain(ctx context.Context, prog *program.Program, key string) (*Explanation, error) {
	m, ok := prog.Method(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, key)
	}

	methods := prog.Methods()
	g := callgraph.FromProgram(methods)
	entries := entrypoint.NewResolver(a.policies...).Resolve(g)
	if _, err := reflection.NewLinker(a.strategy).Link(g, methods); err != nil {
		return nil, fmt.Errorf("%s: %w", PhaseReflection, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	reach := reachability.NewEngine(a.mode).Run(g, entries.Keys, entries.Context)

	ex := &Explanation{
		Method:        key,
		Reachable:     reach.IsReachable(g, key),
		EntryPolicies: append([]string(nil), entries.Policies[key]...),
		Callers:       g.Incoming(key),
		Callees:       reachability.TransitiveClosure(g, key),
	}
	if ex.Reachable {
		ex.Path = shortestPath(g, reach.Roots, key)
	} else {
		i := sort.SearchStrings(reach.Excluded, key)
		ex.Excluded = i < len(reach.Excluded) && reach.Excluded[i] == key
	}

	flow := cfg.Build(m)
	ex.BlockStarts = flow.BlockStarts()
	if ex.Reachable {
		dead := flow.Unreachable()
		ex.DeadRanges = cfg.Ranges(dead)
		ex.DeadDetails = cfg.Describe(m, dead)
	}
	return ex, nil
}

// shortestPath finds a shortest call chain from any root to target.
func shortestPath(g *callgraph.Graph, roots []string, target string) []string {
	prev := make(map[string]string)
	seen := make(map[string]bool, len(roots))
	queue := make([]string, 0, len(roots))
	for _, r := range roots {
		if !seen[r] {
			seen[r] = true
			queue = append(queue, r)
		}
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == target {
			path := []string{cur}
			for p, ok := prev[cur]; ok; p, ok = prev[p] {
				path = append(path, p)
			}
			for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
				path[i], path[j] = path[j], path[i]
			}
			return path
		}
		for _, next := range g.Outgoing(cur) {
			if !seen[next] {
				seen[next] = true
				prev[next] = cur
				queue = append(queue, next)
			}
		}
	}
	return nil
}
