package graph

import (
	"github.com/knotdb/knot/internal/record"
	"github.com/knotdb/knot/internal/slotfile"
)

// nodeAccessor adapts a slotfile.File to keyindex.NodeAccessor,
// reading and rewriting a node slot's key-BST Left/Right fields.
type nodeAccessor struct {
	sf     *slotfile.File
	layout record.Layout
}

func (a nodeAccessor) Get(slot uint64) ([]byte, uint64, uint64, error) {
	buf, err := a.sf.ReadSlot(slot)
	if err != nil {
		return nil, 0, 0, err
	}
	n := record.DecodeNode(buf, a.layout)
	return n.Key, n.Left, n.Right, nil
}

func (a nodeAccessor) SetLeft(slot uint64, child uint64) error {
	return a.mutate(slot, func(n *record.Node) { n.Left = child })
}

func (a nodeAccessor) SetRight(slot uint64, child uint64) error {
	return a.mutate(slot, func(n *record.Node) { n.Right = child })
}

func (a nodeAccessor) mutate(slot uint64, fn func(*record.Node)) error {
	buf, err := a.sf.ReadSlot(slot)
	if err != nil {
		return err
	}
	n := record.DecodeNode(buf, a.layout)
	fn(&n)
	out := make([]byte, a.sf.RecordSize())
	record.EncodeNode(out, a.layout, n)
	return a.sf.WriteSlot(slot, out)
}

// nodeRootAccessor adapts a slotfile.File to adjacency.NodeRootAccessor,
// reading and rewriting a node slot's OutHead/InHead fields.
type nodeRootAccessor struct {
	sf     *slotfile.File
	layout record.Layout
}

func (a nodeRootAccessor) OutHead(node uint64) (uint64, error) {
	buf, err := a.sf.ReadSlot(node)
	if err != nil {
		return 0, err
	}
	return record.DecodeNode(buf, a.layout).OutHead, nil
}

func (a nodeRootAccessor) SetOutHead(node uint64, edge uint64) error {
	return nodeAccessor(a).mutate(node, func(n *record.Node) { n.OutHead = edge })
}

func (a nodeRootAccessor) InHead(node uint64) (uint64, error) {
	buf, err := a.sf.ReadSlot(node)
	if err != nil {
		return 0, err
	}
	return record.DecodeNode(buf, a.layout).InHead, nil
}

func (a nodeRootAccessor) SetInHead(node uint64, edge uint64) error {
	return nodeAccessor(a).mutate(node, func(n *record.Node) { n.InHead = edge })
}

// edgeAccessor adapts a slotfile.File to adjacency.EdgeAccessor.
type edgeAccessor struct {
	sf     *slotfile.File
	layout record.Layout
}

func (a edgeAccessor) Get(slot uint64) (source, target, outOrder, inOrder, outLeft, outRight, inLeft, inRight uint64, err error) {
	buf, err := a.sf.ReadSlot(slot)
	if err != nil {
		return 0, 0, 0, 0, 0, 0, 0, 0, err
	}
	e := record.DecodeEdge(buf, a.layout)
	return e.Source, e.Target, e.OutOrder, e.InOrder, e.OutLeft, e.OutRight, e.InLeft, e.InRight, nil
}

func (a edgeAccessor) SetOutLeft(slot uint64, child uint64) error {
	return a.mutate(slot, func(e *record.Edge) { e.OutLeft = child })
}

func (a edgeAccessor) SetOutRight(slot uint64, child uint64) error {
	return a.mutate(slot, func(e *record.Edge) { e.OutRight = child })
}

func (a edgeAccessor) SetInLeft(slot uint64, child uint64) error {
	return a.mutate(slot, func(e *record.Edge) { e.InLeft = child })
}

func (a edgeAccessor) SetInRight(slot uint64, child uint64) error {
	return a.mutate(slot, func(e *record.Edge) { e.InRight = child })
}

func (a edgeAccessor) mutate(slot uint64, fn func(*record.Edge)) error {
	buf, err := a.sf.ReadSlot(slot)
	if err != nil {
		return err
	}
	e := record.DecodeEdge(buf, a.layout)
	fn(&e)
	out := make([]byte, a.sf.RecordSize())
	record.EncodeEdge(out, a.layout, e)
	return a.sf.WriteSlot(slot, out)
}
