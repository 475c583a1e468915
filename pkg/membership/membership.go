// Package membership provides read-accelerating structures that are
// never persisted and always safe to throw away and rebuild: a bloom
// filter over node keys, consulted by HasNode before paying for a
// bucket-tree walk. It keeps no count of how many walks it has saved.
package membership

import (
	"github.com/bits-and-blooms/bloom/v3"
)

// Filter wraps a bloom.BloomFilter sized for an expected node count
// and a target false-positive rate.
type Filter struct {
	bf *bloom.BloomFilter
}

// New builds a Filter sized for expectedNodes entries at the given
// false-positive rate (e.g. 0.01 for 1%).
func New(expectedNodes uint, falsePositiveRate float64) *Filter {
	return &Filter{bf: bloom.NewWithEstimates(expectedNodes, falsePositiveRate)}
}

// Add records key as present. Called whenever a node is inserted.
func (f *Filter) Add(key []byte) {
	f.bf.Add(key)
}

// MaybeContains reports whether key might be a live node's key. A
// false answer is definitive — the key is absent; a true answer only
// means the caller must still check the key index.
func (f *Filter) MaybeContains(key []byte) bool {
	return f.bf.Test(key)
}

// Rebuild replaces the filter's contents by re-adding every key a
// forward scan yields, sized to hint entries. Called once after Open,
// since a bloom filter is never itself persisted.
func Rebuild(hint uint, falsePositiveRate float64, keys func(yield func([]byte) bool)) *Filter {
	f := New(hint, falsePositiveRate)
	keys(func(k []byte) bool {
		f.Add(k)
		return true
	})
	return f
}
