package graph

import (
	"path/filepath"
	"testing"

	"github.com/knotdb/knot/internal/hashing"
	"github.com/knotdb/knot/pkg/knoterr"
	"github.com/knotdb/knot/pkg/options"
)

func openTestGraph(t *testing.T, fns ...options.OptionFunc) *Graph {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.knot")
	g, err := Create(path, fns...)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	t.Cleanup(func() { g.Close() })
	return g
}

func TestAddNodeGetNodeRoundTrip(t *testing.T) {
	g := openTestGraph(t)

	id, err := g.AddNode("alice", []byte("attrs-a"))
	if err != nil {
		t.Fatalf("AddNode failed: %v", err)
	}
	if id == 0 {
		t.Fatalf("expected a nonzero node id")
	}

	got, err := g.GetNode("alice")
	if err != nil {
		t.Fatalf("GetNode failed: %v", err)
	}
	if got.ID != id {
		t.Errorf("ID = %d, want %d", got.ID, id)
	}
	if got.Key != "alice" {
		t.Errorf("Key = %q, want %q", got.Key, "alice")
	}
}

func TestGetNodeMissingIsNotFound(t *testing.T) {
	g := openTestGraph(t)

	if _, err := g.GetNode("nobody"); knoterr.CodeOf(err) != knoterr.CodeNotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestSetNodeOverwritesAttrs(t *testing.T) {
	g := openTestGraph(t, options.WithNodeAttrSize(uint16(len("new-attrs"))))
	mustAddNode(t, g, "alice")

	if err := g.SetNode("alice", []byte("new-attrs")); err != nil {
		t.Fatalf("SetNode failed: %v", err)
	}
	got, err := g.GetNode("alice")
	if err != nil {
		t.Fatalf("GetNode failed: %v", err)
	}
	if string(got.Attrs) != "new-attrs" {
		t.Fatalf("Attrs = %q, want %q", got.Attrs, "new-attrs")
	}
}

func TestSetNodeMissingIsNotFound(t *testing.T) {
	g := openTestGraph(t)
	if err := g.SetNode("nobody", nil); knoterr.CodeOf(err) != knoterr.CodeNotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestAddNodeRejectsDuplicateKey(t *testing.T) {
	g := openTestGraph(t)

	if _, err := g.AddNode("bob", nil); err != nil {
		t.Fatalf("AddNode failed: %v", err)
	}
	if _, err := g.AddNode("bob", nil); knoterr.CodeOf(err) != knoterr.CodeAlreadyExists {
		t.Fatalf("expected AlreadyExists, got %v", err)
	}
}

func TestAddNodeRejectsOverlongKey(t *testing.T) {
	g := openTestGraph(t, options.WithMaxKeyLen(4))

	if _, err := g.AddNode("toolong", nil); knoterr.CodeOf(err) != knoterr.CodeKeyTooLong {
		t.Fatalf("expected KeyTooLong, got %v", err)
	}
}

func TestHasNodeReflectsAddNode(t *testing.T) {
	g := openTestGraph(t)

	if g.HasNode("ghost") {
		t.Fatalf("expected ghost to be absent")
	}

	if _, err := g.AddNode("ghost", nil); err != nil {
		t.Fatalf("AddNode failed: %v", err)
	}
	if !g.HasNode("ghost") {
		t.Fatalf("expected ghost to be present")
	}
}

func TestRemoveNodeThenLookupMisses(t *testing.T) {
	g := openTestGraph(t)

	if _, err := g.AddNode("carl", nil); err != nil {
		t.Fatalf("AddNode failed: %v", err)
	}
	if err := g.RemoveNode("carl"); err != nil {
		t.Fatalf("RemoveNode failed: %v", err)
	}
	if g.HasNode("carl") {
		t.Fatalf("expected carl to be gone")
	}
}

func TestRemoveNodeMissingIsNotFound(t *testing.T) {
	g := openTestGraph(t)

	if err := g.RemoveNode("nobody"); knoterr.CodeOf(err) != knoterr.CodeNotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestAddEdgeAndHasEdge(t *testing.T) {
	g := openTestGraph(t)

	mustAddNode(t, g, "a")
	mustAddNode(t, g, "b")

	if err := g.AddEdge("a", "b", []byte("follows")); err != nil {
		t.Fatalf("AddEdge failed: %v", err)
	}
	if !g.HasEdge("a", "b") {
		t.Fatalf("expected edge a->b to exist")
	}
	if g.HasEdge("b", "a") {
		t.Fatalf("did not expect reverse edge b->a to exist")
	}
}

func TestGetEdgeRoundTrip(t *testing.T) {
	g := openTestGraph(t, options.WithEdgeAttrSize(uint16(len("follows"))))
	mustAddNode(t, g, "a")
	mustAddNode(t, g, "b")
	if err := g.AddEdge("a", "b", []byte("follows")); err != nil {
		t.Fatalf("AddEdge failed: %v", err)
	}

	e, err := g.GetEdge("a", "b")
	if err != nil {
		t.Fatalf("GetEdge failed: %v", err)
	}
	if e.Source != "a" || e.Target != "b" {
		t.Fatalf("GetEdge = %+v, want source=a target=b", e)
	}
	if string(e.Attrs) != "follows" {
		t.Fatalf("Attrs = %q, want %q", e.Attrs, "follows")
	}
}

func TestGetEdgeMissingIsNotFound(t *testing.T) {
	g := openTestGraph(t)
	mustAddNode(t, g, "a")
	mustAddNode(t, g, "b")

	if _, err := g.GetEdge("a", "b"); knoterr.CodeOf(err) != knoterr.CodeNotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestSetEdgeOverwritesAttrs(t *testing.T) {
	g := openTestGraph(t, options.WithEdgeAttrSize(uint16(len("new"))))
	mustAddNode(t, g, "a")
	mustAddNode(t, g, "b")
	if err := g.AddEdge("a", "b", []byte("old")); err != nil {
		t.Fatalf("AddEdge failed: %v", err)
	}
	if err := g.SetEdge("a", "b", []byte("new")); err != nil {
		t.Fatalf("SetEdge failed: %v", err)
	}
	e, err := g.GetEdge("a", "b")
	if err != nil {
		t.Fatalf("GetEdge failed: %v", err)
	}
	if string(e.Attrs) != "new" {
		t.Fatalf("Attrs = %q, want %q", e.Attrs, "new")
	}
}

func TestSetEdgeMissingIsNotFound(t *testing.T) {
	g := openTestGraph(t)
	mustAddNode(t, g, "a")
	mustAddNode(t, g, "b")
	if err := g.SetEdge("a", "b", nil); knoterr.CodeOf(err) != knoterr.CodeNotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestAddEdgeMissingEndpointIsNotFound(t *testing.T) {
	g := openTestGraph(t)
	mustAddNode(t, g, "a")

	if err := g.AddEdge("a", "missing", nil); knoterr.CodeOf(err) != knoterr.CodeNotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestAddEdgeRejectsDuplicate(t *testing.T) {
	g := openTestGraph(t)
	mustAddNode(t, g, "a")
	mustAddNode(t, g, "b")

	if err := g.AddEdge("a", "b", nil); err != nil {
		t.Fatalf("AddEdge failed: %v", err)
	}
	if err := g.AddEdge("a", "b", nil); knoterr.CodeOf(err) != knoterr.CodeAlreadyExists {
		t.Fatalf("expected AlreadyExists, got %v", err)
	}
}

func TestRemoveEdgeThenHasEdgeMisses(t *testing.T) {
	g := openTestGraph(t)
	mustAddNode(t, g, "a")
	mustAddNode(t, g, "b")
	if err := g.AddEdge("a", "b", nil); err != nil {
		t.Fatalf("AddEdge failed: %v", err)
	}
	if err := g.RemoveEdge("a", "b"); err != nil {
		t.Fatalf("RemoveEdge failed: %v", err)
	}
	if g.HasEdge("a", "b") {
		t.Fatalf("expected edge to be gone")
	}
}

func TestRemoveNodeCascadesIncidentEdges(t *testing.T) {
	g := openTestGraph(t)
	mustAddNode(t, g, "a")
	mustAddNode(t, g, "b")
	mustAddNode(t, g, "c")

	if err := g.AddEdge("a", "b", nil); err != nil {
		t.Fatalf("AddEdge a->b failed: %v", err)
	}
	if err := g.AddEdge("c", "a", nil); err != nil {
		t.Fatalf("AddEdge c->a failed: %v", err)
	}

	if err := g.RemoveNode("a"); err != nil {
		t.Fatalf("RemoveNode failed: %v", err)
	}

	if g.HasEdge("a", "b") {
		t.Fatalf("expected a->b to be gone once a is removed")
	}
	if g.HasEdge("c", "a") {
		t.Fatalf("expected c->a to be gone once a is removed")
	}
	// b and c survive with no dangling reference to a.
	if !g.HasNode("b") {
		t.Fatalf("expected b to survive")
	}
	if !g.HasNode("c") {
		t.Fatalf("expected c to survive")
	}
}

func TestNeighborsAreOrderedAndComplete(t *testing.T) {
	g := openTestGraph(t)
	mustAddNode(t, g, "hub")
	targets := []string{"p1", "p2", "p3", "p4", "p5"}
	for _, tgt := range targets {
		mustAddNode(t, g, tgt)
		if err := g.AddEdge("hub", tgt, nil); err != nil {
			t.Fatalf("AddEdge hub->%s failed: %v", tgt, err)
		}
	}

	seen := map[string]bool{}
	var order []uint64
	for key := range g.Neighbors("hub") {
		seen[key] = true
		order = append(order, hashing.EdgeOrder(hashing.Order([]byte(key))))
	}
	if len(seen) != len(targets) {
		t.Fatalf("expected %d neighbors, saw %d", len(targets), len(seen))
	}
	for i := 1; i < len(order); i++ {
		if order[i-1] > order[i] {
			t.Fatalf("Neighbors not in ascending order: %v", order)
		}
	}
}

func TestNeighborsEarlyStop(t *testing.T) {
	g := openTestGraph(t)
	mustAddNode(t, g, "hub")
	for _, tgt := range []string{"x1", "x2", "x3"} {
		mustAddNode(t, g, tgt)
		if err := g.AddEdge("hub", tgt, nil); err != nil {
			t.Fatalf("AddEdge failed: %v", err)
		}
	}

	count := 0
	for range g.Neighbors("hub") {
		count++
		break
	}
	if count != 1 {
		t.Fatalf("expected early stop after 1 iteration, got %d", count)
	}
}

func TestNeighborsIsRestartable(t *testing.T) {
	g := openTestGraph(t)
	mustAddNode(t, g, "hub")
	mustAddNode(t, g, "leaf")
	if err := g.AddEdge("hub", "leaf", nil); err != nil {
		t.Fatalf("AddEdge failed: %v", err)
	}

	seq := g.Neighbors("hub")
	first := 0
	for range seq {
		first++
	}
	second := 0
	for range seq {
		second++
	}
	if first != 1 || second != 1 {
		t.Fatalf("expected both ranges to see 1 neighbor, got %d then %d", first, second)
	}
}

func TestPredecessorsMirrorsNeighbors(t *testing.T) {
	g := openTestGraph(t)
	mustAddNode(t, g, "hub")
	for _, src := range []string{"s1", "s2", "s3"} {
		mustAddNode(t, g, src)
		if err := g.AddEdge(src, "hub", nil); err != nil {
			t.Fatalf("AddEdge failed: %v", err)
		}
	}

	seen := map[string]bool{}
	for key := range g.Predecessors("hub") {
		seen[key] = true
	}
	if len(seen) != 3 {
		t.Fatalf("expected 3 predecessors, saw %d", len(seen))
	}
}

func TestNodesAndEdgesIterateEverything(t *testing.T) {
	g := openTestGraph(t)
	mustAddNode(t, g, "a")
	mustAddNode(t, g, "b")
	mustAddNode(t, g, "c")
	if err := g.AddEdge("a", "b", nil); err != nil {
		t.Fatalf("AddEdge failed: %v", err)
	}
	if err := g.AddEdge("b", "c", nil); err != nil {
		t.Fatalf("AddEdge failed: %v", err)
	}

	nodeCount := 0
	for range g.Nodes() {
		nodeCount++
	}
	if nodeCount != 3 {
		t.Fatalf("expected 3 nodes, got %d", nodeCount)
	}

	edgeCount := 0
	for range g.Edges() {
		edgeCount++
	}
	if edgeCount != 2 {
		t.Fatalf("expected 2 edges, got %d", edgeCount)
	}
}

func TestNodeCountAndEdgeCountTrackLiveCounts(t *testing.T) {
	g := openTestGraph(t)
	mustAddNode(t, g, "a")
	mustAddNode(t, g, "b")
	if err := g.AddEdge("a", "b", nil); err != nil {
		t.Fatalf("AddEdge failed: %v", err)
	}

	if n := g.NodeCount(); n != 2 {
		t.Errorf("NodeCount = %d, want 2", n)
	}
	if n := g.EdgeCount(); n != 1 {
		t.Errorf("EdgeCount = %d, want 1", n)
	}

	if err := g.RemoveEdge("a", "b"); err != nil {
		t.Fatalf("RemoveEdge failed: %v", err)
	}
	if n := g.EdgeCount(); n != 0 {
		t.Errorf("EdgeCount after removal = %d, want 0", n)
	}
}

func TestReadOnlyGraphRejectsMutation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ro.knot")
	g, err := Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := g.AddNode("a", nil); err != nil {
		t.Fatalf("AddNode failed: %v", err)
	}
	if err := g.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	ro, err := Open(path, ModeReadOnly)
	if err != nil {
		t.Fatalf("Open read-only failed: %v", err)
	}
	defer ro.Close()

	if _, err := ro.AddNode("b", nil); knoterr.CodeOf(err) != knoterr.CodeReadOnly {
		t.Fatalf("expected ReadOnly, got %v", err)
	}
}

func TestCloseAndReopenPreservesGraph(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persist.knot")
	g, err := Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	mustAddNode(t, g, "durable")
	if err := g.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := Open(path, ModeReadWrite)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer reopened.Close()

	if !reopened.HasNode("durable") {
		t.Fatalf("expected durable to survive a close/reopen cycle")
	}
}

func mustAddNode(t *testing.T, g *Graph, key string) {
	t.Helper()
	if _, err := g.AddNode(key, nil); err != nil {
		t.Fatalf("AddNode(%q) failed: %v", key, err)
	}
}
