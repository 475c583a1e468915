// Package adjacency implements the per-node outgoing and incoming
// adjacency trees: two binary search trees threaded through the same
// pool of edge slots, one rooted at the source node's OutHead (edges
// ordered by their OutOrder, a value derived from the target's key) and
// one rooted at the target node's InHead (ordered by their InOrder, a
// value derived from the source's key).
//
// An edge slot is a member of exactly two trees at once, each threaded
// through its own dedicated Left/Right field pair (OutLeft/OutRight
// for the out-tree, InLeft/InRight for the in-tree) — so splicing a
// successor during deletion in one tree only ever rewrites that tree's
// own field pair and never disturbs the other tree the same slot
// belongs to.
package adjacency

import (
	"encoding/binary"

	"github.com/knotdb/knot/internal/ordindex"
	"github.com/knotdb/knot/pkg/knoterr"
)

// EdgeAccessor reads and rewrites one edge slot's endpoints, ordering
// fields, and both child-pointer pairs.
type EdgeAccessor interface {
	Get(slot uint64) (source, target, outOrder, inOrder, outLeft, outRight, inLeft, inRight uint64, err error)
	SetOutLeft(slot uint64, child uint64) error
	SetOutRight(slot uint64, child uint64) error
	SetInLeft(slot uint64, child uint64) error
	SetInRight(slot uint64, child uint64) error
}

// NodeRootAccessor reads and rewrites a node slot's adjacency tree
// roots (its OutHead and InHead fields).
type NodeRootAccessor interface {
	OutHead(nodeSlot uint64) (uint64, error)
	SetOutHead(nodeSlot uint64, edgeSlot uint64) error
	InHead(nodeSlot uint64) (uint64, error)
	SetInHead(nodeSlot uint64, edgeSlot uint64) error
}

// Index owns both per-node adjacency forests over a shared pool of
// edge slots.
type Index struct {
	edges EdgeAccessor
	nodes NodeRootAccessor
}

// New wraps edge and node-root accessors into an adjacency index.
func New(edges EdgeAccessor, nodes NodeRootAccessor) *Index {
	return &Index{edges: edges, nodes: nodes}
}

func tiebreak(slot uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, slot)
	return b
}

func (idx *Index) outTree(sourceSlot uint64) *ordindex.Tree {
	return ordindex.New(outRoot{idx.nodes, sourceSlot}, outAccessor{idx.edges})
}

func (idx *Index) inTree(targetSlot uint64) *ordindex.Tree {
	return ordindex.New(inRoot{idx.nodes, targetSlot}, inAccessor{idx.edges})
}

// InsertEdge links edgeSlot — already populated with Source=sourceSlot,
// Target=targetSlot, OutOrder=targetOrder, InOrder=sourceOrder — into
// both the source's out-tree and the target's in-tree. The caller must
// have already verified no parallel edge of the same type exists.
func (idx *Index) InsertEdge(sourceSlot, targetSlot, edgeSlot uint64, sourceOrder, targetOrder uint64) error {
	if err := idx.outTree(sourceSlot).Insert(edgeSlot, targetOrder, tiebreak(targetSlot)); err != nil {
		return err
	}
	return idx.inTree(targetSlot).Insert(edgeSlot, sourceOrder, tiebreak(sourceSlot))
}

// LookupEdge finds the edge slot from sourceSlot to targetSlot, if any,
// by walking the source's out-tree.
func (idx *Index) LookupEdge(sourceSlot, targetSlot uint64, targetOrder uint64) (uint64, bool, error) {
	return idx.outTree(sourceSlot).Find(targetOrder, tiebreak(targetSlot))
}

// RemoveEdge detaches the edge from sourceSlot to targetSlot from both
// trees it belongs to. It is the caller's responsibility to free the
// returned slot once both detachments succeed — neither tree's
// splicing ever needs it, since each only rewrites its own field pair
// on whichever *other* edge happens to be its entry's successor.
func (idx *Index) RemoveEdge(sourceSlot, targetSlot uint64, sourceOrder, targetOrder uint64) (uint64, error) {
	removedOut, _, ok, err := idx.outTree(sourceSlot).Remove(targetOrder, tiebreak(targetSlot))
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	removedIn, _, ok, err := idx.inTree(targetSlot).Remove(sourceOrder, tiebreak(sourceSlot))
	if err != nil {
		return 0, err
	}
	if !ok || removedIn != removedOut {
		return 0, knoterr.Corrupted("edge present in out-tree but missing from its in-tree").
			WithDetail("source", sourceSlot).WithDetail("target", targetSlot)
	}
	return removedOut, nil
}

// WalkOut performs an in-order traversal of sourceSlot's outgoing
// edges, ordered by OutOrder.
func (idx *Index) WalkOut(sourceSlot uint64, yield func(edgeSlot uint64) bool) error {
	return idx.outTree(sourceSlot).Walk(yield)
}

// WalkIn performs an in-order traversal of targetSlot's incoming
// edges, ordered by InOrder.
func (idx *Index) WalkIn(targetSlot uint64, yield func(edgeSlot uint64) bool) error {
	return idx.inTree(targetSlot).Walk(yield)
}

// outRoot adapts a node's OutHead field to ordindex.RootStore.
type outRoot struct {
	nodes NodeRootAccessor
	node  uint64
}

func (r outRoot) Root() (uint64, error)     { return r.nodes.OutHead(r.node) }
func (r outRoot) SetRoot(slot uint64) error { return r.nodes.SetOutHead(r.node, slot) }

// inRoot adapts a node's InHead field to ordindex.RootStore.
type inRoot struct {
	nodes NodeRootAccessor
	node  uint64
}

func (r inRoot) Root() (uint64, error)     { return r.nodes.InHead(r.node) }
func (r inRoot) SetRoot(slot uint64) error { return r.nodes.SetInHead(r.node, slot) }

// outAccessor adapts EdgeAccessor to ordindex.Accessor over the
// OutLeft/OutRight field pair, ordered by OutOrder.
type outAccessor struct{ edges EdgeAccessor }

func (a outAccessor) Get(slot uint64) (ordindex.Entry, error) {
	source, target, outOrder, _, outLeft, outRight, _, _, err := a.edges.Get(slot)
	if err != nil {
		return ordindex.Entry{}, err
	}
	_ = source
	return ordindex.Entry{
		Slot:     slot,
		Order:    outOrder,
		Tiebreak: tiebreak(target),
		Left:     outLeft,
		Right:    outRight,
	}, nil
}

func (a outAccessor) SetLeft(slot uint64, child uint64) error  { return a.edges.SetOutLeft(slot, child) }
func (a outAccessor) SetRight(slot uint64, child uint64) error { return a.edges.SetOutRight(slot, child) }

// inAccessor adapts EdgeAccessor to ordindex.Accessor over the
// InLeft/InRight field pair, ordered by InOrder.
type inAccessor struct{ edges EdgeAccessor }

func (a inAccessor) Get(slot uint64) (ordindex.Entry, error) {
	source, _, _, inOrder, _, _, inLeft, inRight, err := a.edges.Get(slot)
	if err != nil {
		return ordindex.Entry{}, err
	}
	return ordindex.Entry{
		Slot:     slot,
		Order:    inOrder,
		Tiebreak: tiebreak(source),
		Left:     inLeft,
		Right:    inRight,
	}, nil
}

func (a inAccessor) SetLeft(slot uint64, child uint64) error  { return a.edges.SetInLeft(slot, child) }
func (a inAccessor) SetRight(slot uint64, child uint64) error { return a.edges.SetInRight(slot, child) }
