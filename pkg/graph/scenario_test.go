package graph

import (
	"bytes"
	"encoding/hex"
	"math"
	"math/rand"
	"testing"

	"github.com/knotdb/knot/internal/record"
)

// depthOf walks bucket-tree slot from root down to target, following
// the same (KeyHash, Key) ordering ordindex threads the key index
// through, and reports how many slots lie on the path — 1 if target is
// itself the bucket root.
func depthOf(t *testing.T, g *Graph, bucket uint32, targetSlot uint64, targetHash uint64, targetKey []byte) int {
	t.Helper()
	cur, err := g.sf.BucketPointer(bucket)
	if err != nil {
		t.Fatalf("BucketPointer: %v", err)
	}
	depth := 0
	for cur != 0 {
		depth++
		if cur == targetSlot {
			return depth
		}
		buf, err := g.sf.ReadSlot(cur)
		if err != nil {
			t.Fatalf("ReadSlot: %v", err)
		}
		n := record.DecodeNode(buf, g.layout)
		if targetHash != n.KeyHash {
			if targetHash < n.KeyHash {
				cur = n.Left
			} else {
				cur = n.Right
			}
			continue
		}
		if bytes.Compare(targetKey, n.Key) < 0 {
			cur = n.Left
		} else {
			cur = n.Right
		}
	}
	t.Fatalf("slot %d unreachable from bucket %d root", targetSlot, bucket)
	return 0
}

// TestBulkInsertAtScaleKeepsBucketTreesShallow inserts 10,000 nodes
// with random 20-byte keys into a table_size=1024 graph, confirms
// every key round-trips, that a full scan sees exactly 10,000 distinct
// keys, and that the resulting bucket trees stay within
// 2*log2(n/T)+4 average depth.
func TestBulkInsertAtScaleKeepsBucketTreesShallow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping scale test in -short mode")
	}

	const n = 10000
	const tableSize = 1024

	g := openTestGraph(t)
	if g.TableSize() != tableSize {
		t.Fatalf("expected default table size %d, got %d", tableSize, g.TableSize())
	}

	rng := rand.New(rand.NewSource(1))
	keys := make([]string, 0, n)
	seen := make(map[string]bool, n)
	for len(keys) < n {
		raw := make([]byte, 20)
		rng.Read(raw)
		key := hex.EncodeToString(raw)
		if seen[key] {
			continue
		}
		seen[key] = true
		keys = append(keys, key)
		if _, err := g.AddNode(key, nil); err != nil {
			t.Fatalf("AddNode(%q) failed: %v", key, err)
		}
	}

	for _, key := range keys {
		if !g.HasNode(key) {
			t.Fatalf("key %q not retrievable after bulk insert", key)
		}
	}

	distinct := make(map[string]bool, n)
	for node := range g.Nodes() {
		distinct[node.Key] = true
	}
	if len(distinct) != n {
		t.Fatalf("expected %d distinct keys from a full scan, got %d", n, len(distinct))
	}

	var totalDepth int64
	for _, key := range keys {
		slot, ok, err := g.ki.Lookup([]byte(key))
		if err != nil || !ok {
			t.Fatalf("Lookup(%q): ok=%v err=%v", key, ok, err)
		}
		buf, err := g.sf.ReadSlot(slot)
		if err != nil {
			t.Fatalf("ReadSlot: %v", err)
		}
		node := record.DecodeNode(buf, g.layout)
		bucket := g.ki.Bucket([]byte(key))
		totalDepth += int64(depthOf(t, g, bucket, slot, node.KeyHash, node.Key))
	}
	avgDepth := float64(totalDepth) / float64(n)
	bound := 2*math.Log2(float64(n)/float64(tableSize)) + 4
	if avgDepth > bound {
		t.Fatalf("average bucket-tree depth %.2f exceeds bound %.2f", avgDepth, bound)
	}
}
