// Package reflection adds heuristic call edges for reflective dispatch.
//
// The linker does not track values. It pairs the string literals of a
// method with the reflective calls it makes and links every method whose
// class or name matches, so it may add edges that never happen at runtime.
package reflection

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/panbanda/deadwood/pkg/analyzer/callgraph"
	"github.com/panbanda/deadwood/pkg/models"
)

// Strategy names.
const (
	StrategyNames = "names"
	StrategyNone  = "none"
)

// Edge is a candidate caller -> callee edge.
type Edge struct {
	From string
	To   string
	Kind models.ReflectionKind
}

// Strategy turns the reflective calls of one method into candidate edges.
type Strategy interface {
	Name() string
	Candidates(m *models.Method, idx *Index) []Edge
}

// StrategyByName returns a built-in strategy.
func StrategyByName(name string) (Strategy, error) {
	switch name {
	case StrategyNames, "":
		return NameHeuristic{}, nil
	case StrategyNone:
		return None{}, nil
	default:
		return nil, fmt.Errorf("unknown reflection strategy %q (valid: %s, %s)", name, StrategyNames, StrategyNone)
	}
}

// Index is a program-wide method lookup.
type Index struct {
	byClass map[string][]string
	byName  map[string][]string
	names   []string
}

// NewIndex indexes methods by owning class and by simple name.
func NewIndex(methods []*models.Method) *Index {
	idx := &Index{
		byClass: make(map[string][]string),
		byName:  make(map[string][]string),
	}
	for _, m := range methods {
		key := m.Key()
		idx.byClass[m.Owner] = append(idx.byClass[m.Owner], key)
		if _, ok := idx.byName[m.Name]; !ok {
			idx.names = append(idx.names, m.Name)
		}
		idx.byName[m.Name] = append(idx.byName[m.Name], key)
	}
	sort.Strings(idx.names)
	return idx
}

// ClassMethods returns the methods declared by class.
func (i *Index) ClassMethods(class string) []string { return i.byClass[class] }

// Named returns the methods called exactly name.
func (i *Index) Named(name string) []string { return i.byName[name] }

// NamedLike returns the methods whose name equals or contains fragment.
func (i *Index) NamedLike(fragment string) []string {
	var out []string
	for _, name := range i.names {
		if strings.Contains(name, fragment) {
			out = append(out, i.byName[name]...)
		}
	}
	return out
}

var (
	identifierRE    = regexp.MustCompile(`^[a-zA-Z_$][a-zA-Z\d_$]*$`)
	qualifiedNameRE = regexp.MustCompile(`^[a-zA-Z_$][a-zA-Z\d_$]*(\.[a-zA-Z_$][a-zA-Z\d_$]*)*$`)
	constantNameRE  = regexp.MustCompile(`^[A-Z_]+$`)
)

// LooksLikeClassName reports whether s may name a class: it contains a path
// separator, or it is a dotted identifier sequence.
func LooksLikeClassName(s string) bool {
	if strings.Contains(s, "/") {
		return true
	}
	return strings.Contains(s, ".") && qualifiedNameRE.MatchString(s)
}

// LooksLikeMethodName reports whether s is a plain identifier.
func LooksLikeMethodName(s string) bool {
	return identifierRE.MatchString(s)
}

// NameHeuristic matches string literals against class and method names.
type NameHeuristic struct{}

func (NameHeuristic) Name() string { return StrategyNames }

func (NameHeuristic) Candidates(m *models.Method, idx *Index) []Edge {
	from := m.Key()
	var edges []Edge
	add := func(kind models.ReflectionKind, targets []string) {
		for _, to := range targets {
			edges = append(edges, Edge{From: from, To: to, Kind: kind})
		}
	}

	for _, call := range m.ReflectiveCalls {
		for _, lit := range m.Strings {
			switch call.Kind {
			case models.ReflectClassForName:
				if LooksLikeClassName(lit) {
					add(call.Kind, idx.ClassMethods(strings.ReplaceAll(lit, "/", ".")))
				}
			case models.ReflectGetMethod:
				// All-caps literals are usually constants, not method names.
				if LooksLikeMethodName(lit) && !constantNameRE.MatchString(lit) {
					add(call.Kind, idx.NamedLike(lit))
				}
			case models.ReflectMethodInvoke:
				if LooksLikeMethodName(lit) {
					add(call.Kind, idx.Named(lit))
				}
			}
		}
	}
	return edges
}

// None never links anything.
type None struct{}

func (None) Name() string { return StrategyNone }

func (None) Candidates(*models.Method, *Index) []Edge { return nil }

// Stats summarizes one linking pass.
type Stats struct {
	Methods    int `json:"methods"`
	Records    int `json:"records"`
	Candidates int `json:"candidates"`
	EdgesAdded int `json:"edges_added"`
}

// Linker applies a strategy to a call graph.
type Linker struct {
	strategy Strategy
}

// NewLinker creates a linker. A nil strategy means NameHeuristic.
func NewLinker(s Strategy) *Linker {
	if s == nil {
		s = NameHeuristic{}
	}
	return &Linker{strategy: s}
}

// Link adds the candidate edges of every method with reflective calls.
func (l *Linker) Link(g *callgraph.Graph, methods []*models.Method) (Stats, error) {
	var stats Stats
	idx := NewIndex(methods)
	for _, m := range methods {
		if len(m.ReflectiveCalls) == 0 {
			continue
		}
		stats.Methods++
		stats.Records += len(m.ReflectiveCalls)
		for _, e := range l.strategy.Candidates(m, idx) {
			stats.Candidates++
			added, err := g.AddCall(e.From, e.To)
			if err != nil {
				return stats, fmt.Errorf("link %s -> %s: %w", e.From, e.To, err)
			}
			if added {
				stats.EdgesAdded++
			}
		}
	}
	return stats, nil
}

// Sites lists the reflective call records of methods for reporting.
func Sites(methods []*models.Method) []models.ReflectionSite {
	var out []models.ReflectionSite
	for _, m := range methods {
		for _, rc := range m.ReflectiveCalls {
			out = append(out, models.ReflectionSite{
				Method: m.Key(),
				Kind:   rc.Kind,
				Target: rc.Owner + "." + rc.Name,
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Method < out[j].Method })
	return out
}
