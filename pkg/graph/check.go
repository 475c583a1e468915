package graph

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/knotdb/knot/internal/record"
)

// edgeKey is the (source slot, target slot) pair a parallel-edge scan
// keys on.
type edgeKey struct{ source, target uint64 }

// Check walks every live slot and verifies the cross-structure
// invariants pkg/graph otherwise only maintains incrementally: every
// edge's endpoints name occupied node slots, no two edge slots share
// the same (source, target) pair, every edge is reachable from both
// its source's out-tree and its target's in-tree, every node slot a
// forward scan finds is reached through the key index at that same slot
// under its own key, and the header's live counts match what the scan actually
// finds. It never stops at the first problem — every check runs, and
// every failure is reported, via multierr.
func (g *Graph) Check() error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var errs error
	var nodeSlots, edgeSlots uint64

	if err := g.walkAllNodeSlots(func(slot uint64) bool {
		nodeSlots++
		buf, err := g.sf.ReadSlot(slot)
		if err != nil {
			errs = multierr.Append(errs, err)
			return true
		}
		n := record.DecodeNode(buf, g.layout)
		if n.Self != slot {
			errs = multierr.Append(errs, fmt.Errorf("node at slot %d has Self=%d", slot, n.Self))
		}
		found, ok, err := g.ki.Lookup(n.Key)
		if err != nil {
			errs = multierr.Append(errs, err)
		} else if !ok {
			errs = multierr.Append(errs, fmt.Errorf("node at slot %d (key %q) is not reachable from the key index", slot, n.Key))
		} else if found != slot {
			errs = multierr.Append(errs, fmt.Errorf("key index routes %q to slot %d, not %d", n.Key, found, slot))
		}
		return true
	}); err != nil {
		errs = multierr.Append(errs, err)
	}

	seenPairs := make(map[edgeKey]uint64)
	if err := g.walkAllEdgeSlots(func(slot uint64) bool {
		edgeSlots++
		buf, err := g.sf.ReadSlot(slot)
		if err != nil {
			errs = multierr.Append(errs, err)
			return true
		}
		e := record.DecodeEdge(buf, g.layout)
		if !g.sf.IsOccupied(e.Source) {
			errs = multierr.Append(errs, fmt.Errorf("edge at slot %d has a source slot %d that is not occupied", slot, e.Source))
		}
		if !g.sf.IsOccupied(e.Target) {
			errs = multierr.Append(errs, fmt.Errorf("edge at slot %d has a target slot %d that is not occupied", slot, e.Target))
		}

		key := edgeKey{e.Source, e.Target}
		if other, dup := seenPairs[key]; dup {
			errs = multierr.Append(errs, fmt.Errorf("edges at slots %d and %d both connect source %d to target %d", other, slot, e.Source, e.Target))
		} else {
			seenPairs[key] = slot
		}

		foundOut := false
		if err := g.adj.WalkOut(e.Source, func(outSlot uint64) bool {
			if outSlot == slot {
				foundOut = true
				return false
			}
			return true
		}); err != nil {
			errs = multierr.Append(errs, err)
		} else if !foundOut {
			errs = multierr.Append(errs, fmt.Errorf("edge at slot %d is not reachable from source %d's out-tree", slot, e.Source))
		}

		foundIn := false
		if err := g.adj.WalkIn(e.Target, func(inSlot uint64) bool {
			if inSlot == slot {
				foundIn = true
				return false
			}
			return true
		}); err != nil {
			errs = multierr.Append(errs, err)
		} else if !foundIn {
			errs = multierr.Append(errs, fmt.Errorf("edge at slot %d is not reachable from target %d's in-tree", slot, e.Target))
		}

		return true
	}); err != nil {
		errs = multierr.Append(errs, err)
	}

	h := g.sf.Header()
	if h.NodeCount != nodeSlots {
		errs = multierr.Append(errs, fmt.Errorf("header node count %d does not match %d live node slots", h.NodeCount, nodeSlots))
	}
	if h.EdgeCount != edgeSlots {
		errs = multierr.Append(errs, fmt.Errorf("header edge count %d does not match %d live edge slots", h.EdgeCount, edgeSlots))
	}

	return errs
}
