package cfg

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/panbanda/deadwood/pkg/models"
)

const (
	opIconst0   = 3
	opGetstatic = 178
	opLdc       = 18
	opInvoke    = 182
	opIfeq      = 153
	opGoto      = 167
	opReturn    = 177
)

func body(ins ...models.Instruction) *models.Method {
	for i := range ins {
		ins[i].Index = i
	}
	return &models.Method{Owner: "A", Name: "f", Descriptor: "()V", Instructions: ins}
}

func other(op int) models.Instruction {
	return models.Instruction{Opcode: op, Tag: models.TagOther}
}

func ret() models.Instruction {
	return models.Instruction{Opcode: opReturn, Tag: models.TagOther, Terminal: true}
}

func jump(op, target int, unconditional bool) models.Instruction {
	return models.Instruction{Opcode: op, Tag: models.TagControlFlow, JumpTarget: target, JumpResolved: true, Terminal: unconditional}
}

func TestStraightLineHasNoDeadCode(t *testing.T) {
	m := body(other(opIconst0), other(opLdc), other(opInvoke), ret())
	g := Build(m)

	assert.Empty(t, g.Unreachable())
	assert.Equal(t, []int{0, 1, 2, 3}, g.Reachable(0))
	for i := 0; i < 3; i++ {
		assert.Contains(t, g.Successors(i), i+1)
	}
	assert.Empty(t, g.Successors(3))
}

func TestUnconditionalJumpSkipsCode(t *testing.T) {
	// 0: push, 1: goto 3, 2: print "dead", 3: return
	m := body(other(opIconst0), jump(opGoto, 3, true), other(opGetstatic), ret())
	g := Build(m)

	assert.Equal(t, []int{2}, g.Unreachable())
	assert.Equal(t, []int{0, 2, 3}, g.BlockStarts())
}

func TestConditionalJumpKeepsFallThrough(t *testing.T) {
	m := body(other(opIconst0), jump(opIfeq, 3, false), other(opGetstatic), ret())
	g := Build(m)

	assert.Empty(t, g.Unreachable())
	assert.ElementsMatch(t, []int{2, 3}, g.Successors(1))
}

func TestCodeAfterReturnIsDead(t *testing.T) {
	m := body(other(opIconst0), ret(), other(opGetstatic), other(opInvoke), ret())
	assert.Equal(t, []int{2, 3, 4}, Build(m).Unreachable())
}

func TestUnresolvedJumpFallsThrough(t *testing.T) {
	unresolved := models.Instruction{Opcode: opGoto, Tag: models.TagControlFlow, Terminal: true}
	m := body(other(opIconst0), unresolved, other(opGetstatic), ret())
	g := Build(m)

	assert.Empty(t, g.Unreachable())
	assert.Equal(t, []int{2}, g.Successors(1))
}

func TestOutOfRangeTargetIsIgnored(t *testing.T) {
	m := body(other(opIconst0), jump(opGoto, 42, true), other(opGetstatic), ret())
	g := Build(m)

	assert.Empty(t, g.Unreachable())
	assert.Equal(t, []int{2}, g.Successors(1))
}

func TestBackwardJumpLoop(t *testing.T) {
	// 0: nop, 1: ifeq 3, 2: goto 0, 3: return, 4: dead
	m := body(other(0), jump(opIfeq, 3, false), jump(opGoto, 0, true), ret(), other(opIconst0))
	g := Build(m)

	assert.Equal(t, []int{4}, g.Unreachable())
	assert.Equal(t, []int{0, 1, 2, 3}, g.Reachable(2))
}

func TestEmptyBody(t *testing.T) {
	g := Build(body())
	assert.Zero(t, g.Len())
	assert.Empty(t, g.Unreachable())
	assert.Empty(t, g.Reachable(0))
	assert.Nil(t, g.Successors(0))
}

func TestRanges(t *testing.T) {
	assert.Nil(t, Ranges(nil))
	assert.Equal(t, []models.InstructionRange{{Start: 2, End: 2}}, Ranges([]int{2}))
	assert.Equal(t, []models.InstructionRange{
		{Start: 1, End: 3},
		{Start: 7, End: 7},
		{Start: 9, End: 10},
	}, Ranges([]int{10, 1, 2, 3, 7, 9, 3}))
}

func TestDescribe(t *testing.T) {
	m := body(other(opIconst0), ret(), other(opGetstatic))
	assert.Equal(t, []string{"Instruction 2: opcode=178, tag=other"}, Describe(m, []int{2, 99}))
}

func TestDetectOnlyReportsMethodsWithDeadCode(t *testing.T) {
	clean := body(other(opIconst0), ret())
	clean.Name = "clean"
	dirty := body(ret(), other(opIconst0))
	dirty.Name = "dirty"

	d := NewDetector()
	got := d.Detect([]*models.Method{clean, dirty})
	assert.Equal(t, map[string][]int{"A.dirty()V": {1}}, got)

	// Running twice gives the same answer.
	assert.Equal(t, got, d.Detect([]*models.Method{clean, dirty}))
}
