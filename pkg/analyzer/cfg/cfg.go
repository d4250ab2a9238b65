// Package cfg builds instruction-level control flow graphs and finds
// instructions that cannot execute.
package cfg

import (
	"fmt"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/panbanda/deadwood/pkg/models"
)

// Graph is the control flow graph of one method body. Nodes are
// instruction indices.
type Graph struct {
	method string
	size   int
	succ   [][]int
	starts *roaring.Bitmap
}

// Build constructs the control flow graph of m.
//
// Every instruction falls through to the next one unless it is terminal.
// A control-flow instruction with an in-range resolved target also jumps
// there; one without a usable target keeps its fall-through edge.
func Build(m *models.Method) *Graph {
	n := len(m.Instructions)
	g := &Graph{
		method: m.Key(),
		size:   n,
		succ:   make([][]int, n),
		starts: roaring.New(),
	}
	if n == 0 {
		return g
	}
	g.starts.Add(0)

	for i, in := range m.Instructions {
		target, resolved := in.Jump()
		if resolved && (target < 0 || target >= n) {
			resolved = false
		}

		fallsThrough := !in.Terminal
		if in.Tag == models.TagControlFlow && !resolved {
			fallsThrough = true
		}
		if fallsThrough && i < n-1 {
			g.succ[i] = append(g.succ[i], i+1)
		}
		if resolved && (!fallsThrough || target != i+1) {
			g.succ[i] = append(g.succ[i], target)
		}

		if in.Tag == models.TagControlFlow || in.Terminal {
			if i+1 < n {
				g.starts.Add(uint32(i + 1))
			}
		}
		if resolved {
			g.starts.Add(uint32(target))
		}
	}
	return g
}

// Method returns the key of the method the graph was built for.
func (g *Graph) Method() string { return g.method }

// Len returns the number of instructions.
func (g *Graph) Len() int { return g.size }

// Successors returns the successor indices of instruction i.
func (g *Graph) Successors(i int) []int {
	if i < 0 || i >= g.size {
		return nil
	}
	return g.succ[i]
}

// Reachable returns the sorted indices reachable from start.
func (g *Graph) Reachable(start int) []int {
	return toInts(g.reach(start))
}

// Unreachable returns the sorted indices not reachable from instruction 0.
func (g *Graph) Unreachable() []int {
	if g.size == 0 {
		return nil
	}
	all := roaring.New()
	all.AddRange(0, uint64(g.size))
	all.AndNot(g.reach(0))
	return toInts(all)
}

// BlockStarts returns the sorted basic block leaders.
func (g *Graph) BlockStarts() []int {
	return toInts(g.starts)
}

func (g *Graph) reach(start int) *roaring.Bitmap {
	visited := roaring.New()
	if start < 0 || start >= g.size {
		return visited
	}
	visited.Add(uint32(start))
	queue := []int{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range g.succ[cur] {
			if visited.CheckedAdd(uint32(next)) {
				queue = append(queue, next)
			}
		}
	}
	return visited
}

func toInts(bm *roaring.Bitmap) []int {
	if bm.IsEmpty() {
		return nil
	}
	out := make([]int, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		out = append(out, int(it.Next()))
	}
	return out
}

// Ranges groups sorted indices into contiguous inclusive runs.
func Ranges(indices []int) []models.InstructionRange {
	if len(indices) == 0 {
		return nil
	}
	sorted := append([]int(nil), indices...)
	sort.Ints(sorted)

	var out []models.InstructionRange
	cur := models.InstructionRange{Start: sorted[0], End: sorted[0]}
	for _, idx := range sorted[1:] {
		if idx == cur.End {
			continue
		}
		if idx == cur.End+1 {
			cur.End = idx
			continue
		}
		out = append(out, cur)
		cur = models.InstructionRange{Start: idx, End: idx}
	}
	return append(out, cur)
}

// Describe renders one line per dead instruction of m.
func Describe(m *models.Method, indices []int) []string {
	out := make([]string, 0, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= len(m.Instructions) {
			continue
		}
		in := m.Instructions[idx]
		out = append(out, fmt.Sprintf("Instruction %d: opcode=%d, tag=%s", idx, in.Opcode, in.Tag))
	}
	return out
}

// Detector finds unreachable instructions in method bodies.
type Detector struct{}

// NewDetector creates a detector.
func NewDetector() *Detector {
	return &Detector{}
}

// Detect maps each method with unreachable instructions to their sorted
// indices. Methods without any are left out.
func (d *Detector) Detect(methods []*models.Method) map[string][]int {
	out := make(map[string][]int)
	for _, m := range methods {
		if dead := Build(m).Unreachable(); len(dead) > 0 {
			out[m.Key()] = dead
		}
	}
	return out
}
