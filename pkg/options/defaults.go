package options

import "go.uber.org/zap"

const (
	// DefaultTableSize is T for a freshly-created graph with no
	// WithTableSize override: enough buckets to keep early bucket
	// chains short without wasting much directory space for small graphs.
	DefaultTableSize uint32 = 1024

	// DefaultMaxKeyLen is L, the zero-padded key field width, chosen to
	// comfortably hold typical identifier-shaped keys.
	DefaultMaxKeyLen uint16 = 64
)

var defaultOptions = Options{
	TableSize: DefaultTableSize,
	MaxKeyLen: DefaultMaxKeyLen,
	Logger:    zap.NewNop().Sugar(),
}

// NewDefaultOptions returns the baseline Options every Open/Create call
// starts from before user-supplied OptionFuncs are applied.
func NewDefaultOptions() Options {
	o := defaultOptions
	return o
}
