package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/peterh/liner"

	"github.com/knotdb/knot/pkg/graph"
	"github.com/knotdb/knot/pkg/knoterr"
)

// cmdShell opens path and drops into an interactive REPL that accepts
// the node/edge, dump and check verbs of the one-shot subcommands, minus
// the path argument, plus help and quit/exit. It has no create,
// snapshot or shell verb.
func cmdShell(cfg Config, in io.Reader, out, errOut io.Writer, args []string) error {
	if err := requireArgs(args, 1, "knot shell <path>"); err != nil {
		return err
	}
	g, err := graph.Open(args[0], graph.ModeReadWrite, optionsFromConfig(cfg)...)
	if err != nil {
		return err
	}
	defer g.Close()

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	fmt.Fprintln(out, "knot shell —", args[0], "(type 'help' for commands, 'quit' to leave)")
	for {
		input, err := line.Prompt("knot> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				return nil
			}
			return err
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if shouldExit(input, out) {
			return nil
		}
		if err := dispatchShellLine(g, out, input); err != nil {
			fmt.Fprintln(errOut, "error:", err)
		}
	}
}

func shouldExit(input string, out io.Writer) bool {
	switch input {
	case "quit", "exit":
		return true
	case "help":
		fmt.Fprintln(out, "put-node <key> [attrs] | put-edge <src> <dst> [attrs] | rm-node <key> | rm-edge <src> <dst> | get-node <key> | has-edge <src> <dst> | dump | check | quit")
	}
	return false
}

func dispatchShellLine(g *graph.Graph, out io.Writer, input string) error {
	fields := strings.Fields(input)
	verb, fields := fields[0], fields[1:]

	switch verb {
	case "help":
		return nil
	case "put-node":
		if len(fields) < 1 {
			return fmt.Errorf("usage: put-node <key> [attrs]")
		}
		var attrs []byte
		if len(fields) > 1 {
			attrs = []byte(strings.Join(fields[1:], " "))
		}
		id, err := g.AddNode(fields[0], attrs)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, id)
	case "put-edge":
		if len(fields) < 2 {
			return fmt.Errorf("usage: put-edge <src> <dst> [attrs]")
		}
		var attrs []byte
		if len(fields) > 2 {
			attrs = []byte(strings.Join(fields[2:], " "))
		}
		return g.AddEdge(fields[0], fields[1], attrs)
	case "rm-node":
		if len(fields) < 1 {
			return fmt.Errorf("usage: rm-node <key>")
		}
		return g.RemoveNode(fields[0])
	case "rm-edge":
		if len(fields) < 2 {
			return fmt.Errorf("usage: rm-edge <src> <dst>")
		}
		return g.RemoveEdge(fields[0], fields[1])
	case "get-node":
		if len(fields) < 1 {
			return fmt.Errorf("usage: get-node <key>")
		}
		n, err := g.GetNode(fields[0])
		if err != nil {
			if knoterr.CodeOf(err) == knoterr.CodeNotFound {
				fmt.Fprintln(out, "not found")
				return nil
			}
			return err
		}
		fmt.Fprintf(out, "id=%d key=%s attrs=%s\n", n.ID, n.Key, n.Attrs)
	case "has-edge":
		if len(fields) < 2 {
			return fmt.Errorf("usage: has-edge <src> <dst>")
		}
		fmt.Fprintln(out, g.HasEdge(fields[0], fields[1]))
	case "dump":
		for n := range g.Nodes() {
			fmt.Fprintf(out, "  id=%d key=%s\n", n.ID, n.Key)
		}
		for e := range g.Edges() {
			fmt.Fprintf(out, "  %s -> %s (type %d)\n", e.Source, e.Target, e.TypeTag)
		}
	case "check":
		if err := g.Check(); err != nil {
			return err
		}
		fmt.Fprintln(out, "ok")
	default:
		return fmt.Errorf("unknown command %q (try 'help')", verb)
	}
	return nil
}
