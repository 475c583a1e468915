// Command knot is a small CLI over pkg/graph: enough to create a
// graph file, poke at it with one-shot node/edge subcommands, dump or
// check its contents, snapshot it, or drop into an interactive shell.
package main

import (
	"fmt"
	"io"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/knotdb/knot/pkg/knoterr"
)

func main() {
	os.Exit(run(os.Args, os.Stdin, os.Stdout, os.Stderr))
}

const usage = `knot - an embedded directed graph store

Usage: knot [--config file] <command> [args]

Commands:
  create <path>                      create a new graph file
  put-node <path> <key> [attrs]      insert a node
  put-edge <path> <src> <dst> [attrs] insert a directed edge
  rm-node <path> <key>               remove a node and its incident edges
  rm-edge <path> <src> <dst>         remove a directed edge
  get-node <path> <key>              print a node's attrs
  has-edge <path> <src> <dst>        check whether an edge exists
  dump <path>                        print every node and edge
  check <path>                       verify internal consistency
  snapshot <path> <dest>             atomically copy the graph file
  shell <path>                       interactive REPL over one graph

Global flags:
  -c, --config <file>   JSONC file of creation-time defaults

Exit codes: 0 success, 1 usage error, 2 store error.
`

func run(args []string, in io.Reader, out, errOut io.Writer) int {
	flags := flag.NewFlagSet("knot", flag.ContinueOnError)
	flags.SetOutput(errOut)
	flags.SetInterspersed(false)
	configPath := flags.StringP("config", "c", "", "JSONC config file of creation-time defaults")

	if err := flags.Parse(args[1:]); err != nil {
		return 1
	}
	rest := flags.Args()
	if len(rest) == 0 {
		fmt.Fprint(out, usage)
		return 0
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}

	name, cmdArgs := rest[0], rest[1:]
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintln(errOut, "error: unknown command:", name)
		fmt.Fprint(errOut, usage)
		return 1
	}
	if err := cmd(cfg, in, out, errOut, cmdArgs); err != nil {
		fmt.Fprintln(errOut, "error:", err)
		if knoterr.CodeOf(err) != "" {
			return 2
		}
		return 1
	}
	return 0
}
