package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/knotdb/knot/pkg/graph"
	"github.com/knotdb/knot/pkg/knoterr"
	"github.com/knotdb/knot/pkg/options"
)

type commandFunc func(cfg Config, in io.Reader, out, errOut io.Writer, args []string) error

var commands = map[string]commandFunc{
	"create":   cmdCreate,
	"put-node": cmdPutNode,
	"put-edge": cmdPutEdge,
	"rm-node":  cmdRmNode,
	"rm-edge":  cmdRmEdge,
	"get-node": cmdGetNode,
	"has-edge": cmdHasEdge,
	"dump":     cmdDump,
	"check":    cmdCheck,
	"snapshot": cmdSnapshot,
	"shell":    cmdShell,
}

func optionsFromConfig(cfg Config) []options.OptionFunc {
	var fns []options.OptionFunc
	if cfg.TableSize > 0 {
		fns = append(fns, options.WithTableSize(cfg.TableSize))
	}
	if cfg.MaxKeyLen > 0 {
		fns = append(fns, options.WithMaxKeyLen(cfg.MaxKeyLen))
	}
	if cfg.NodeAttrSize > 0 {
		fns = append(fns, options.WithNodeAttrSize(cfg.NodeAttrSize))
	}
	if cfg.EdgeAttrSize > 0 {
		fns = append(fns, options.WithEdgeAttrSize(cfg.EdgeAttrSize))
	}
	if cfg.AdvisoryLock {
		fns = append(fns, options.WithAdvisoryLock())
	}
	return fns
}

func requireArgs(args []string, n int, usage string) error {
	if len(args) < n {
		return fmt.Errorf("usage: %s", usage)
	}
	return nil
}

func cmdCreate(cfg Config, in io.Reader, out, errOut io.Writer, args []string) error {
	if err := requireArgs(args, 1, "knot create <path>"); err != nil {
		return err
	}
	g, err := graph.Create(args[0], optionsFromConfig(cfg)...)
	if err != nil {
		return err
	}
	defer g.Close()
	fmt.Fprintln(out, "created", args[0])
	return nil
}

func cmdPutNode(cfg Config, in io.Reader, out, errOut io.Writer, args []string) error {
	if err := requireArgs(args, 2, "knot put-node <path> <key> [attrs]"); err != nil {
		return err
	}
	g, err := graph.Open(args[0], graph.ModeReadWrite, optionsFromConfig(cfg)...)
	if err != nil {
		return err
	}
	defer g.Close()

	var attrs []byte
	if len(args) > 2 {
		attrs = []byte(args[2])
	}
	id, err := g.AddNode(args[1], attrs)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, id)
	return nil
}

func cmdPutEdge(cfg Config, in io.Reader, out, errOut io.Writer, args []string) error {
	if err := requireArgs(args, 3, "knot put-edge <path> <src> <dst>"); err != nil {
		return err
	}
	g, err := graph.Open(args[0], graph.ModeReadWrite, optionsFromConfig(cfg)...)
	if err != nil {
		return err
	}
	defer g.Close()

	var attrs []byte
	if len(args) > 3 {
		attrs = []byte(args[3])
	}
	return g.AddEdge(args[1], args[2], attrs)
}

func cmdRmNode(cfg Config, in io.Reader, out, errOut io.Writer, args []string) error {
	if err := requireArgs(args, 2, "knot rm-node <path> <key>"); err != nil {
		return err
	}
	g, err := graph.Open(args[0], graph.ModeReadWrite, optionsFromConfig(cfg)...)
	if err != nil {
		return err
	}
	defer g.Close()
	return g.RemoveNode(args[1])
}

func cmdRmEdge(cfg Config, in io.Reader, out, errOut io.Writer, args []string) error {
	if err := requireArgs(args, 3, "knot rm-edge <path> <src> <dst>"); err != nil {
		return err
	}
	g, err := graph.Open(args[0], graph.ModeReadWrite, optionsFromConfig(cfg)...)
	if err != nil {
		return err
	}
	defer g.Close()
	return g.RemoveEdge(args[1], args[2])
}

func cmdGetNode(cfg Config, in io.Reader, out, errOut io.Writer, args []string) error {
	if err := requireArgs(args, 2, "knot get-node <path> <key>"); err != nil {
		return err
	}
	g, err := graph.Open(args[0], graph.ModeReadOnly, optionsFromConfig(cfg)...)
	if err != nil {
		return err
	}
	defer g.Close()

	n, err := g.GetNode(args[1])
	if err != nil {
		if knoterr.CodeOf(err) == knoterr.CodeNotFound {
			fmt.Fprintln(out, "not found")
			return nil
		}
		return err
	}
	fmt.Fprintf(out, "id=%d key=%s attrs=%s\n", n.ID, n.Key, n.Attrs)
	return nil
}

func cmdHasEdge(cfg Config, in io.Reader, out, errOut io.Writer, args []string) error {
	if err := requireArgs(args, 3, "knot has-edge <path> <src> <dst>"); err != nil {
		return err
	}
	g, err := graph.Open(args[0], graph.ModeReadOnly, optionsFromConfig(cfg)...)
	if err != nil {
		return err
	}
	defer g.Close()

	ok := g.HasEdge(args[1], args[2])
	fmt.Fprintln(out, ok)
	if !ok {
		return errors.New("edge not found")
	}
	return nil
}

func cmdDump(cfg Config, in io.Reader, out, errOut io.Writer, args []string) error {
	if err := requireArgs(args, 1, "knot dump <path>"); err != nil {
		return err
	}
	g, err := graph.Open(args[0], graph.ModeReadOnly, optionsFromConfig(cfg)...)
	if err != nil {
		return err
	}
	defer g.Close()

	fmt.Fprintln(out, "nodes:")
	for n := range g.Nodes() {
		fmt.Fprintf(out, "  id=%d key=%s\n", n.ID, n.Key)
	}
	fmt.Fprintln(out, "edges:")
	for e := range g.Edges() {
		fmt.Fprintf(out, "  %s -> %s (type %d)\n", e.Source, e.Target, e.TypeTag)
	}
	return nil
}

func cmdCheck(cfg Config, in io.Reader, out, errOut io.Writer, args []string) error {
	if err := requireArgs(args, 1, "knot check <path>"); err != nil {
		return err
	}
	g, err := graph.Open(args[0], graph.ModeReadOnly, optionsFromConfig(cfg)...)
	if err != nil {
		return err
	}
	defer g.Close()

	if err := g.Check(); err != nil {
		return err
	}
	fmt.Fprintln(out, "ok")
	return nil
}

func cmdSnapshot(cfg Config, in io.Reader, out, errOut io.Writer, args []string) error {
	if err := requireArgs(args, 2, "knot snapshot <path> <dest>"); err != nil {
		return err
	}
	g, err := graph.Open(args[0], graph.ModeReadOnly, optionsFromConfig(cfg)...)
	if err != nil {
		return err
	}
	defer g.Close()

	if err := g.Snapshot(args[1]); err != nil {
		return err
	}
	fmt.Fprintln(out, "snapshot written to", args[1])
	return nil
}
