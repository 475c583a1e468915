package analytics

import (
	"path/filepath"
	"testing"

	"github.com/knotdb/knot/pkg/graph"
)

func buildTestGraph(t *testing.T) *graph.Graph {
	t.Helper()
	path := filepath.Join(t.TempDir(), "analytics.knot")
	g, err := graph.Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	t.Cleanup(func() { g.Close() })

	for _, key := range []string{"a", "b", "c", "d"} {
		if _, err := g.AddNode(key, nil); err != nil {
			t.Fatalf("AddNode(%q) failed: %v", key, err)
		}
	}
	edges := [][2]string{{"a", "b"}, {"b", "c"}, {"a", "d"}}
	for _, e := range edges {
		if err := g.AddEdge(e[0], e[1], nil); err != nil {
			t.Fatalf("AddEdge(%v) failed: %v", e, err)
		}
	}
	return g
}

func TestSubgraphAtDepthZeroKeepsOnlyInducedEdges(t *testing.T) {
	g := buildTestGraph(t)

	sub, err := Subgraph(g, []string{"a", "b", "c"}, 0)
	if err != nil {
		t.Fatalf("Subgraph failed: %v", err)
	}
	if len(sub.Nodes) != 3 {
		t.Fatalf("expected 3 nodes, got %d", len(sub.Nodes))
	}
	if len(sub.Edges) != 2 {
		t.Fatalf("expected 2 induced edges (a->b, b->c), got %d", len(sub.Edges))
	}
}

func TestSubgraphSkipsMissingSeeds(t *testing.T) {
	g := buildTestGraph(t)

	sub, err := Subgraph(g, []string{"a", "ghost"}, 0)
	if err != nil {
		t.Fatalf("Subgraph failed: %v", err)
	}
	if len(sub.Nodes) != 1 {
		t.Fatalf("expected 1 node (ghost skipped), got %d", len(sub.Nodes))
	}
}

func TestSubgraphExpandsByDepth(t *testing.T) {
	g := buildTestGraph(t)

	sub, err := Subgraph(g, []string{"a"}, 1)
	if err != nil {
		t.Fatalf("Subgraph failed: %v", err)
	}
	// a, plus its direct neighbors b and d.
	if len(sub.Nodes) != 3 {
		t.Fatalf("expected 3 nodes at depth 1, got %d", len(sub.Nodes))
	}
	if len(sub.Edges) != 2 {
		t.Fatalf("expected 2 edges (a->b, a->d) at depth 1, got %d", len(sub.Edges))
	}
}

func TestAdjacencyMatrixMarksEdges(t *testing.T) {
	g := buildTestGraph(t)
	keys := []string{"a", "b", "c", "d"}

	m := AdjacencyMatrix(g, keys)
	if m[0][1] == 0 {
		t.Errorf("expected a->b to be marked")
	}
	if m[1][2] == 0 {
		t.Errorf("expected b->c to be marked")
	}
	if m[0][3] == 0 {
		t.Errorf("expected a->d to be marked")
	}
	if m[0][2] != 0 {
		t.Errorf("did not expect a->c to be marked")
	}
}
