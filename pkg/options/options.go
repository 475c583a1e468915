// Package options provides the functional-options configuration for
// opening or creating a graph: the fixed creation-time dimensions
// (table size, max key length, attribute sizes) and the runtime
// knobs (advisory locking, logging, read-only mode). It follows the
// ignite database's OptionFunc pattern, scaled to this store's
// much smaller parameter set.
package options

import "go.uber.org/zap"

// Options holds every knob pkg/graph.Open/Create accepts.
type Options struct {
	// TableSize is T, the number of hash-partitioned key-index
	// buckets. Fixed at creation; ignored (and read back from the
	// header) when opening an existing graph.
	TableSize uint32

	// MaxKeyLen is L, the fixed width of the zero-padded key field.
	// Fixed at creation.
	MaxKeyLen uint16

	// NodeAttrSize and EdgeAttrSize are the fixed-width user-attribute
	// blobs appended to every node/edge record. Fixed at creation.
	NodeAttrSize uint16
	EdgeAttrSize uint16

	// ReadOnly opens the graph file without write access; any mutating
	// operation returns knoterr.ReadOnly.
	ReadOnly bool

	// AdvisoryLock takes an OS advisory file lock (flock) for the
	// duration a read-write graph is open, guarding against a second process
	// opening the same file read-write concurrently.
	AdvisoryLock bool

	// Logger receives structured diagnostic events. Defaults to a
	// no-op logger if unset.
	Logger *zap.SugaredLogger
}

// OptionFunc modifies an in-progress Options value.
type OptionFunc func(*Options)

// WithTableSize overrides the default bucket count at creation time.
func WithTableSize(t uint32) OptionFunc {
	return func(o *Options) {
		if t > 0 {
			o.TableSize = t
		}
	}
}

// WithMaxKeyLen overrides the default maximum key length at creation time.
func WithMaxKeyLen(l uint16) OptionFunc {
	return func(o *Options) {
		if l > 0 {
			o.MaxKeyLen = l
		}
	}
}

// WithNodeAttrSize sets the fixed-width node attribute blob size.
func WithNodeAttrSize(n uint16) OptionFunc {
	return func(o *Options) { o.NodeAttrSize = n }
}

// WithEdgeAttrSize sets the fixed-width edge attribute blob size.
func WithEdgeAttrSize(n uint16) OptionFunc {
	return func(o *Options) { o.EdgeAttrSize = n }
}

// WithReadOnly opens the graph for reads only.
func WithReadOnly() OptionFunc {
	return func(o *Options) { o.ReadOnly = true }
}

// WithAdvisoryLock takes an OS advisory lock for the life of the graph.
func WithAdvisoryLock() OptionFunc {
	return func(o *Options) { o.AdvisoryLock = true }
}

// WithLogger sets the logger the graph reports diagnostic events to.
func WithLogger(logger *zap.SugaredLogger) OptionFunc {
	return func(o *Options) {
		if logger != nil {
			o.Logger = logger
		}
	}
}

// New builds an Options value from defaults overridden by fns, in order.
func New(fns ...OptionFunc) Options {
	o := NewDefaultOptions()
	for _, fn := range fns {
		fn(&o)
	}
	return o
}
