package callgraph

import (
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Cycles returns the recursive clusters of the subgraph induced by keys:
// strongly connected components with more than one method, and single
// methods that call themselves. Each cluster is sorted, and clusters are
// ordered by their first key.
func (g *Graph) Cycles(keys []string) [][]string {
	members := g.IDs(keys)
	if members.IsEmpty() {
		return nil
	}

	dg := simple.NewDirectedGraph()
	it := members.Iterator()
	for it.HasNext() {
		dg.AddNode(simple.Node(int64(it.Next())))
	}

	var selfLoops []uint32
	it = members.Iterator()
	for it.HasNext() {
		id := it.Next()
		out := g.nodes[id].out.Iterator()
		for out.HasNext() {
			to := out.Next()
			if to == id {
				selfLoops = append(selfLoops, id)
				continue
			}
			if !members.Contains(to) {
				continue
			}
			dg.SetEdge(dg.NewEdge(simple.Node(int64(id)), simple.Node(int64(to))))
		}
	}

	var clusters [][]string
	seen := make(map[uint32]bool)
	for _, scc := range topo.TarjanSCC(dg) {
		if len(scc) < 2 {
			continue
		}
		cluster := make([]string, 0, len(scc))
		for _, n := range scc {
			id := uint32(n.ID())
			seen[id] = true
			cluster = append(cluster, g.nodes[id].Key())
		}
		sort.Strings(cluster)
		clusters = append(clusters, cluster)
	}
	for _, id := range selfLoops {
		if !seen[id] {
			clusters = append(clusters, []string{g.nodes[id].Key()})
		}
	}

	sort.Slice(clusters, func(i, j int) bool { return clusters[i][0] < clusters[j][0] })
	return clusters
}
