// Package keyindex implements the hash-partitioned key index: T
// bucket-rooted binary search trees, one per `hash1(key) mod T`
// partition, each ordered by `hash2(key)` with a byte-lexicographic
// key tiebreak. It is a thin adapter over internal/ordindex's generic
// tree algorithm, supplying the bucket directory as the per-partition
// root store and the node's own key bytes as the tiebreak.
package keyindex

import (
	"github.com/knotdb/knot/internal/hashing"
	"github.com/knotdb/knot/internal/ordindex"
)

// NodeAccessor reads and rewrites a node slot's key-BST Left/Right
// fields, keyed by slot index.
type NodeAccessor interface {
	Get(slot uint64) (key []byte, left, right uint64, err error)
	SetLeft(slot uint64, child uint64) error
	SetRight(slot uint64, child uint64) error
}

// BucketDirectory is the T-entry pointer table bucket roots live in.
type BucketDirectory interface {
	BucketPointer(i uint32) (uint64, error)
	SetBucketPointer(i uint32, slot uint64) error
}

// Index is the hash-partitioned key index over a fixed table size.
type Index struct {
	acc       NodeAccessor
	tableSize uint32
	bucketTree map[uint32]*ordindex.Tree
	dir       BucketDirectory
}

// New wraps a bucket directory and node accessor into a key index over
// tableSize buckets.
func New(dir BucketDirectory, acc NodeAccessor, tableSize uint32) *Index {
	return &Index{
		acc:        acc,
		tableSize:  tableSize,
		bucketTree: make(map[uint32]*ordindex.Tree, tableSize),
		dir:        dir,
	}
}

// Bucket returns hash1(key) mod T, the partition key routes to.
func (idx *Index) Bucket(key []byte) uint32 {
	return uint32(hashing.Bucket(key) % uint64(idx.tableSize))
}

func (idx *Index) treeFor(bucket uint32) *ordindex.Tree {
	if t, ok := idx.bucketTree[bucket]; ok {
		return t
	}
	t := ordindex.New(bucketRoot{dir: idx.dir, bucket: bucket}, nodeAdapter{idx.acc})
	idx.bucketTree[bucket] = t
	return t
}

// Lookup finds the slot holding key, if any.
func (idx *Index) Lookup(key []byte) (uint64, bool, error) {
	bucket := idx.Bucket(key)
	return idx.treeFor(bucket).Find(hashing.Order(key), key)
}

// Insert links slot (already populated with its own key) into the
// bucket tree for key. The caller must have already verified key is
// absent via Lookup; Insert does not check for duplicates.
func (idx *Index) Insert(slot uint64, key []byte) error {
	bucket := idx.Bucket(key)
	return idx.treeFor(bucket).Insert(slot, hashing.Order(key), key)
}

// Remove detaches the slot holding key from its bucket tree. See
// ordindex.Tree.Remove for the splice-the-successor-in-place semantics:
// removed is always the slot holding key, the one the caller should
// free once its adjacency trees are drained.
func (idx *Index) Remove(key []byte) (removed uint64, successor uint64, ok bool, err error) {
	bucket := idx.Bucket(key)
	return idx.treeFor(bucket).Remove(hashing.Order(key), key)
}

// bucketRoot adapts one bucket-directory slot to ordindex.RootStore.
type bucketRoot struct {
	dir    BucketDirectory
	bucket uint32
}

func (b bucketRoot) Root() (uint64, error)     { return b.dir.BucketPointer(b.bucket) }
func (b bucketRoot) SetRoot(slot uint64) error { return b.dir.SetBucketPointer(b.bucket, slot) }

// nodeAdapter adapts NodeAccessor to ordindex.Accessor, supplying the
// node's key bytes as the Entry's Order/Tiebreak source.
type nodeAdapter struct {
	acc NodeAccessor
}

func (a nodeAdapter) Get(slot uint64) (ordindex.Entry, error) {
	key, left, right, err := a.acc.Get(slot)
	if err != nil {
		return ordindex.Entry{}, err
	}
	return ordindex.Entry{
		Slot:     slot,
		Order:    hashing.Order(key),
		Tiebreak: key,
		Left:     left,
		Right:    right,
	}, nil
}

func (a nodeAdapter) SetLeft(slot uint64, child uint64) error  { return a.acc.SetLeft(slot, child) }
func (a nodeAdapter) SetRight(slot uint64, child uint64) error { return a.acc.SetRight(slot, child) }
