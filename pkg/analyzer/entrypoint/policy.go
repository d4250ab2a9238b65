// Package entrypoint decides which methods are roots of the reachability
// analysis.
package entrypoint

import (
	"fmt"
	"strings"

	"github.com/panbanda/deadwood/pkg/analyzer/callgraph"
	"github.com/panbanda/deadwood/pkg/models"
)

// MainDescriptor is the descriptor of a program main method.
const MainDescriptor = "([Ljava/lang/String;)V"

// Policy names.
const (
	PolicyMain            = "main"
	PolicyTest            = "test"
	PolicyStaticUtility   = "static-utility"
	PolicyMainConstructor = "main-constructor"
)

// Policy is one entry-point heuristic.
type Policy interface {
	Name() string
	IsEntry(n *callgraph.Node, ctx *Context) bool
}

// DefaultPolicies returns every built-in policy in evaluation order.
func DefaultPolicies() []Policy {
	return []Policy{
		MainPolicy{},
		TestPolicy{},
		StaticUtilityPolicy{},
		MainConstructorPolicy{},
	}
}

// PolicyNames lists the built-in policy names in evaluation order.
func PolicyNames() []string {
	policies := DefaultPolicies()
	names := make([]string, len(policies))
	for i, p := range policies {
		names[i] = p.Name()
	}
	return names
}

// PolicyByName returns the built-in policy with the given name.
func PolicyByName(name string) (Policy, bool) {
	for _, p := range DefaultPolicies() {
		if p.Name() == name {
			return p, true
		}
	}
	return nil, false
}

// PoliciesByName resolves names to policies in built-in evaluation order.
func PoliciesByName(names []string) ([]Policy, error) {
	want := make(map[string]bool, len(names))
	for _, name := range names {
		if _, ok := PolicyByName(name); !ok {
			return nil, fmt.Errorf("unknown entry point policy %q (valid: %s)", name, strings.Join(PolicyNames(), ", "))
		}
		want[name] = true
	}
	var out []Policy
	for _, p := range DefaultPolicies() {
		if want[p.Name()] {
			out = append(out, p)
		}
	}
	return out, nil
}

// MainPolicy accepts public static main(String[]) methods.
type MainPolicy struct{}

func (MainPolicy) Name() string { return PolicyMain }

func (MainPolicy) IsEntry(n *callgraph.Node, _ *Context) bool {
	return IsMain(n.Method)
}

// IsMain reports whether m is a program main method.
func IsMain(m *models.Method) bool {
	return m.Name == "main" &&
		m.Descriptor == MainDescriptor &&
		m.IsPublic() &&
		m.IsStatic()
}

// TestPolicy accepts methods named like test cases or fixtures. It looks
// at names only.
type TestPolicy struct{}

func (TestPolicy) Name() string { return PolicyTest }

func (TestPolicy) IsEntry(n *callgraph.Node, _ *Context) bool {
	return IsTestMethod(n.Method.Name)
}

var fixtureNames = map[string]bool{
	"setUp":    true,
	"tearDown": true,
	"before":   true,
	"after":    true,
}

// IsTestMethod reports whether name looks like a test or fixture method.
func IsTestMethod(name string) bool {
	return strings.HasPrefix(name, "test") ||
		strings.HasSuffix(name, "Test") ||
		fixtureNames[name]
}

// StaticUtilityPolicy accepts public static methods nobody in the program
// calls. It must run before reflective edges are linked.
type StaticUtilityPolicy struct{}

func (StaticUtilityPolicy) Name() string { return PolicyStaticUtility }

func (StaticUtilityPolicy) IsEntry(n *callgraph.Node, _ *Context) bool {
	m := n.Method
	if !m.IsPublic() || !m.IsStatic() {
		return false
	}
	if m.IsInit() || m.IsClinit() {
		return false
	}
	if strings.HasPrefix(m.Name, "lambda$") || strings.Contains(m.Name, "$") {
		return false
	}
	return n.InDegree() == 0
}

// MainConstructorPolicy accepts constructors of classes that declare a
// main method.
type MainConstructorPolicy struct{}

func (MainConstructorPolicy) Name() string { return PolicyMainConstructor }

func (MainConstructorPolicy) IsEntry(n *callgraph.Node, ctx *Context) bool {
	return n.Method.IsInit() && ctx.HasMain(n.Method.Owner)
}
