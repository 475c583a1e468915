package graph

import (
	"io"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"

	"github.com/knotdb/knot/pkg/knoterr"
)

// Snapshot copies the graph's current on-disk contents to destPath,
// becoming visible at destPath all at once rather than partway through
// a long copy — a reader opening destPath either sees the file from
// before the snapshot started or the whole thing, never a torn middle.
func (g *Graph) Snapshot(destPath string) error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if err := g.sf.Sync(); err != nil {
		return err
	}

	src, err := os.Open(g.sf.Path())
	if err != nil {
		return knoterr.IO(err, "opening graph file for snapshot").WithDetail("path", g.sf.Path())
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return knoterr.IO(err, "creating snapshot destination directory").WithDetail("path", destPath)
	}

	if err := atomic.WriteFile(destPath, io.Reader(src)); err != nil {
		return knoterr.IO(err, "writing snapshot atomically").WithDetail("path", destPath)
	}
	return nil
}
