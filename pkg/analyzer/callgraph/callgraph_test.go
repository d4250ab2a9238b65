package callgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panbanda/deadwood/pkg/models"
)

func method(owner, name string) *models.Method {
	return &models.Method{Owner: owner, Name: name, Descriptor: "()V", Access: models.AccPublic}
}

func call(callee string) models.Instruction {
	return models.Instruction{Opcode: 182, Tag: models.TagMethodCall, Ref: callee}
}

func TestAddMethodIsIdempotent(t *testing.T) {
	g := New()
	m := method("A", "f")
	first := g.AddMethod(m)
	second := g.AddMethod(method("A", "f"))

	assert.Same(t, first, second)
	assert.Equal(t, 1, g.Len())
}

func TestAddCallRequiresBothEndpoints(t *testing.T) {
	g := New()
	g.AddMethod(method("A", "f"))
	g.AddMethod(method("A", "g"))

	added, err := g.AddCall("A.f()V", "A.g()V")
	require.NoError(t, err)
	assert.True(t, added)

	tests := []struct {
		name           string
		caller, callee string
	}{
		{"unknown callee", "A.f()V", "java.lang.Object.<init>()V"},
		{"unknown caller", "B.h()V", "A.g()V"},
		{"duplicate edge", "A.f()V", "A.g()V"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			added, err := g.AddCall(tt.caller, tt.callee)
			require.NoError(t, err)
			assert.False(t, added)
		})
	}

	assert.Equal(t, 1, g.EdgeCount())
	assert.Equal(t, []string{"A.g()V"}, g.Outgoing("A.f()V"))
	assert.Equal(t, []string{"A.f()V"}, g.Incoming("A.g()V"))
	assert.Empty(t, g.Incoming("A.f()V"))
}

func TestEdgesAreSymmetric(t *testing.T) {
	methods := []*models.Method{method("A", "a"), method("A", "b"), method("A", "c")}
	methods[0].Instructions = []models.Instruction{call("A.b()V"), call("A.c()V"), call("X.y()V")}
	methods[1].Instructions = []models.Instruction{call("A.c()V")}
	g := FromProgram(methods)

	for _, n := range g.Nodes() {
		for _, callee := range g.Outgoing(n.Key()) {
			assert.Contains(t, g.Incoming(callee), n.Key())
		}
		for _, caller := range g.Incoming(n.Key()) {
			assert.Contains(t, g.Outgoing(caller), n.Key())
		}
	}
	assert.Equal(t, 3, g.EdgeCount())
}

func TestReachableFromTerminatesOnCycles(t *testing.T) {
	methods := []*models.Method{method("A", "a"), method("A", "b"), method("A", "c"), method("A", "d")}
	methods[0].Instructions = []models.Instruction{call("A.b()V")}
	methods[1].Instructions = []models.Instruction{call("A.c()V")}
	methods[2].Instructions = []models.Instruction{call("A.a()V")}
	g := FromProgram(methods)

	assert.Equal(t, []string{"A.a()V", "A.b()V", "A.c()V"}, g.ReachableFrom("A.b()V"))
	assert.Equal(t, []string{"A.d()V"}, g.ReachableFrom("A.d()V"))
	assert.Nil(t, g.ReachableFrom("missing"))
}

func TestReachableSetIsUnionOfSources(t *testing.T) {
	methods := []*models.Method{method("A", "a"), method("A", "b"), method("B", "x"), method("B", "y")}
	methods[0].Instructions = []models.Instruction{call("A.b()V")}
	methods[2].Instructions = []models.Instruction{call("B.y()V")}
	g := FromProgram(methods)

	union := g.Keys(g.ReachableSet("A.a()V", "B.x()V", "nope"))
	assert.Equal(t, []string{"A.a()V", "A.b()V", "B.x()V", "B.y()V"}, union)
}

func TestFreezeRejectsEdges(t *testing.T) {
	g := New()
	g.AddMethod(method("A", "f"))
	g.AddMethod(method("A", "g"))
	g.Freeze()

	added, err := g.AddCall("A.f()V", "A.g()V")
	assert.ErrorIs(t, err, ErrFrozen)
	assert.False(t, added)
	assert.True(t, g.Frozen())
}

func TestCycles(t *testing.T) {
	methods := []*models.Method{
		method("A", "a"), method("A", "b"), method("A", "c"),
		method("A", "self"), method("A", "leaf"),
	}
	methods[0].Instructions = []models.Instruction{call("A.b()V")}
	methods[1].Instructions = []models.Instruction{call("A.a()V"), call("A.leaf()V")}
	methods[2].Instructions = []models.Instruction{call("A.a()V")}
	methods[3].Instructions = []models.Instruction{call("A.self()V")}
	g := FromProgram(methods)

	keys := []string{"A.a()V", "A.b()V", "A.c()V", "A.self()V", "A.leaf()V"}
	assert.Equal(t, [][]string{
		{"A.a()V", "A.b()V"},
		{"A.self()V"},
	}, g.Cycles(keys))

	// Restricting to a subset breaks the a<->b cluster.
	assert.Empty(t, g.Cycles([]string{"A.a()V", "A.c()V"}))
	assert.Nil(t, g.Cycles(nil))
}
