// Package logging builds the zap.SugaredLogger every package in this
// module accepts through pkg/options.WithLogger, mirroring how the
// teacher corpus's engine threads a single *zap.SugaredLogger through
// its Config rather than each package constructing its own.
package logging

import "go.uber.org/zap"

// Mode selects a logging preset.
type Mode int

const (
	// Production emits structured JSON at info level and above.
	Production Mode = iota
	// Development emits human-readable, colorized console output at
	// debug level and above, with caller and stack info on errors.
	Development
	// NoOp discards everything; the default when no logger is configured.
	NoOp
)

// New builds a *zap.SugaredLogger for the given mode.
func New(mode Mode) (*zap.SugaredLogger, error) {
	switch mode {
	case Development:
		l, err := zap.NewDevelopment()
		if err != nil {
			return nil, err
		}
		return l.Sugar(), nil
	case NoOp:
		return zap.NewNop().Sugar(), nil
	default:
		l, err := zap.NewProduction()
		if err != nil {
			return nil, err
		}
		return l.Sugar(), nil
	}
}
