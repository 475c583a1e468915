// Package analytics offers read-only bulk views built strictly on top
// of pkg/graph's public façade — it never reaches into the storage,
// key-index, or adjacency internals directly, since nothing about
// "summarize a graph" needs slot-level access.
package analytics

import "github.com/knotdb/knot/pkg/graph"

// SubgraphResult is a standalone in-memory view of the nodes and edges
// discovered by BFS from a set of seeds.
type SubgraphResult struct {
	Nodes []graph.NodeView
	Edges []graph.EdgeView
}

// Subgraph walks outward from every key in seeds by at most depth
// outgoing-edge hops, via breadth-first search over g's Neighbors, and
// returns every node visited plus every edge between two visited
// nodes. A seed that doesn't name a live node is silently skipped. A
// depth of 0 returns just the seeds themselves and the edges among them.
func Subgraph(g *graph.Graph, seeds []string, depth int) (SubgraphResult, error) {
	visited := make(map[string]bool)
	frontier := make([]string, 0, len(seeds))

	for _, key := range seeds {
		if visited[key] {
			continue
		}
		if !g.HasNode(key) {
			continue
		}
		visited[key] = true
		frontier = append(frontier, key)
	}

	for hop := 0; hop < depth && len(frontier) > 0; hop++ {
		var next []string
		for _, key := range frontier {
			for target := range g.Neighbors(key) {
				if visited[target] {
					continue
				}
				visited[target] = true
				next = append(next, target)
			}
		}
		frontier = next
	}

	var result SubgraphResult
	for key := range visited {
		n, err := g.GetNode(key)
		if err != nil {
			return SubgraphResult{}, err
		}
		result.Nodes = append(result.Nodes, n)
	}
	for key := range visited {
		for target := range g.Neighbors(key) {
			if !visited[target] {
				continue
			}
			e, err := g.GetEdge(key, target)
			if err != nil {
				return SubgraphResult{}, err
			}
			result.Edges = append(result.Edges, e)
		}
	}
	return result, nil
}

// AdjacencyMatrix builds a dense adjacency matrix over keys, in the
// order given: entry [i][j] is 1 if there is an edge from keys[i] to
// keys[j], 0 otherwise. Keys that don't name a live node contribute an
// all-zero row and column, the way a matrix-oriented consumer expects
// rather than an error, since a missing node simply has no edges.
func AdjacencyMatrix(g *graph.Graph, keys []string) [][]float64 {
	index := make(map[string]int, len(keys))
	for i, key := range keys {
		index[key] = i
	}

	m := make([][]float64, len(keys))
	for i := range m {
		m[i] = make([]float64, len(keys))
	}

	for i, key := range keys {
		for target := range g.Neighbors(key) {
			if j, ok := index[target]; ok {
				m[i][j] = 1
			}
		}
	}
	return m
}
