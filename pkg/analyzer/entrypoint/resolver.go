package entrypoint

import (
	"sort"

	"github.com/panbanda/deadwood/pkg/analyzer/callgraph"
	"github.com/panbanda/deadwood/pkg/models"
)

// Context carries entry-point facts to later phases.
type Context struct {
	classesWithMain map[string]struct{}
}

// NewContext creates an empty context.
func NewContext() *Context {
	return &Context{classesWithMain: make(map[string]struct{})}
}

// MarkMainClass records that class declares a main method.
func (c *Context) MarkMainClass(class string) {
	c.classesWithMain[class] = struct{}{}
}

// HasMain reports whether class declares a main method.
func (c *Context) HasMain(class string) bool {
	_, ok := c.classesWithMain[class]
	return ok
}

// MainClasses returns the sorted classes that declare a main method.
func (c *Context) MainClasses() []string {
	out := make([]string, 0, len(c.classesWithMain))
	for k := range c.classesWithMain {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ShouldExcludeFromDead reports whether m is never reported dead: static
// initializers, and constructors of classes with a main method.
func (c *Context) ShouldExcludeFromDead(m *models.Method) bool {
	if m.IsClinit() {
		return true
	}
	return m.IsInit() && c.HasMain(m.Owner)
}

// Result is the outcome of entry-point resolution.
type Result struct {
	// Keys holds the entry point keys, sorted.
	Keys []string
	// Policies maps each entry point to the policies that accepted it.
	Policies map[string][]string
	Context  *Context
}

// Entries returns the entry points with their owners and policies.
func (r *Result) Entries(g *callgraph.Graph) []models.EntryPoint {
	out := make([]models.EntryPoint, 0, len(r.Keys))
	for _, k := range r.Keys {
		ep := models.EntryPoint{Key: k, Policies: append([]string(nil), r.Policies[k]...)}
		if n, ok := g.Node(k); ok {
			ep.Owner = n.Method.Owner
		}
		out = append(out, ep)
	}
	return out
}

// Resolver applies a set of policies to a call graph.
type Resolver struct {
	policies []Policy
}

// NewResolver creates a resolver applying policies in the given order.
// With no policies nothing is an entry point.
func NewResolver(policies ...Policy) *Resolver {
	return &Resolver{policies: policies}
}

// Resolve records the classes with a main method, then runs each policy
// over every node in order.
func (r *Resolver) Resolve(g *callgraph.Graph) *Result {
	res := &Result{
		Policies: make(map[string][]string),
		Context:  NewContext(),
	}
	for _, n := range g.Nodes() {
		if IsMain(n.Method) {
			res.Context.MarkMainClass(n.Method.Owner)
		}
	}
	for _, p := range r.policies {
		for _, n := range g.Nodes() {
			if p.IsEntry(n, res.Context) {
				key := n.Key()
				res.Policies[key] = append(res.Policies[key], p.Name())
			}
		}
	}
	res.Keys = make([]string, 0, len(res.Policies))
	for k := range res.Policies {
		res.Keys = append(res.Keys, k)
	}
	sort.Strings(res.Keys)
	return res
}
