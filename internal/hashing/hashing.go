// Package hashing supplies the two independent hash functions the key
// index and adjacency trees are built on: hash1 routes a key to a bucket,
// hash2 orders it within the bucket's tree. Keeping them in one small
// package makes it obvious everywhere else in the engine that "the hash"
// is never a single function — using only one would correlate bucket
// assignment with in-bucket tree shape, which is exactly what the
// two-hash design in spec.md §4.3 exists to avoid.
package hashing

import "hash/fnv"

// seed1/seed2 are arbitrary distinct salts mixed into the FNV state before
// hashing so hash1 and hash2 diverge even for keys that happen to collide
// under plain FNV-1a.
var (
	seed1 = []byte{0x4b, 0x4e, 0x54, 0x31} // "KNT1"
	seed2 = []byte{0x4b, 0x4e, 0x54, 0x32} // "KNT2"
)

// Bucket computes the primary hash used to route a key to one of the T
// key-index buckets (primary = hash1(key) mod T).
func Bucket(key []byte) uint64 {
	h := fnv.New64a()
	h.Write(seed1)
	h.Write(key)
	return h.Sum64()
}

// Order computes the secondary hash used to position a node within its
// bucket's binary search tree. It is deliberately a different hash family
// seed than Bucket, then run through an avalanche finalizer so that two
// keys landing in the same bucket do not also end up with correlated
// sibling order.
func Order(key []byte) uint64 {
	h := fnv.New64a()
	h.Write(seed2)
	h.Write(key)
	return finalize(h.Sum64())
}

// EdgeOrder computes the ordering hash for an adjacency-tree entry. Per
// spec.md §4.4 this must be a function of the *peer's* key-hash alone (the
// opposite endpoint for the tree in question), so that looking up an edge
// requires only knowing the peer's key. peerOrder is that peer's Order(key).
func EdgeOrder(peerOrder uint64) uint64 {
	return finalize(peerOrder ^ edgeSalt)
}

const edgeSalt uint64 = 0x9e3779b97f4a7c15

// finalize is a 64-bit avalanche mixer (the splitmix64 finalizer /
// Murmur3-style fmix64 construction referenced by hash-tree
// implementations in this space) used to decorrelate derived hashes from
// their inputs.
func finalize(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
