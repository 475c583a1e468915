// Package record defines the fixed-size on-disk layout for every kind of
// slot the engine writes — header, node, edge, tombstone — and the
// encode/decode routines that translate between that layout and Go
// values. It has no notion of files, trees, or the graph; it only knows
// how to turn bytes at a fixed offset into a typed view and back, the way
// the teacher's BNode type turns a page into typed field accessors.
package record

import "encoding/binary"

// Kind identifies which of the four slot shapes a given record holds.
// Slot 0 is always the Header and is never tagged with a Kind byte; every
// slot from index 1 onward starts with one.
type Kind byte

const (
	KindTombstone Kind = 0
	KindNode      Kind = 1
	KindEdge      Kind = 2
)

// Fixed field offsets within a Node slot (after the 1-byte Kind).
const (
	nodeOffID      = 1
	nodeOffSelf    = nodeOffID + 8
	nodeOffLeft    = nodeOffSelf + 8
	nodeOffRight   = nodeOffLeft + 8
	nodeOffHash    = nodeOffRight + 8
	nodeOffOutHead = nodeOffHash + 8
	nodeOffInHead  = nodeOffOutHead + 8
	nodeOffKey     = nodeOffInHead + 8
	// NodePrefixSize is the size of every Node field up to but excluding
	// the key bytes and any user attributes.
	NodePrefixSize = nodeOffKey
)

// Fixed field offsets within an Edge slot (after the 1-byte Kind).
//
// An edge lives in two trees at once: the source node's out-tree
// (ordered by a hash derived from the target's key) and the target
// node's in-tree (ordered by a hash derived from the source's key).
// Those two orderings are
// generally different numbers, so the edge carries two order fields
// and two independent child-pointer pairs — OutLeft/OutRight thread
// the out-tree, InLeft/InRight thread the in-tree, and neither tree's
// deletion logic ever touches the other pair.
const (
	edgeOffSource   = 1
	edgeOffTarget   = edgeOffSource + 8
	edgeOffOutOrder = edgeOffTarget + 8
	edgeOffInOrder  = edgeOffOutOrder + 8
	edgeOffOutLeft  = edgeOffInOrder + 8
	edgeOffOutRight = edgeOffOutLeft + 8
	edgeOffInLeft   = edgeOffOutRight + 8
	edgeOffInRight  = edgeOffInLeft + 8
	edgeOffTypeTag  = edgeOffInRight + 8
	// EdgePrefixSize is the full fixed size of an Edge record, excluding
	// user attributes (an edge carries no variable-length field).
	EdgePrefixSize = edgeOffTypeTag + 2
)

// TombstoneSize is the full fixed size of a Tombstone record: Kind byte
// plus the forward freelist pointer.
const TombstoneSize = 1 + 8

// Layout describes the dimensions fixed at file-creation time: maximum
// key length, and the attribute blob sizes appended after the fixed
// node/edge prefixes. RecordSize is derived from these via Layout.RecordSize.
type Layout struct {
	MaxKeyLen    uint16
	NodeAttrSize uint16
	EdgeAttrSize uint16
}

// RecordSize returns the uniform slot size every record in the file is
// padded to — the max of node, edge, and tombstone sizes including
// attributes, per spec.md §4.1. Uniformity lets the freelist recycle a
// slot across record kinds.
func (l Layout) RecordSize() uint32 {
	nodeSize := uint32(NodePrefixSize) + uint32(l.MaxKeyLen) + uint32(l.NodeAttrSize)
	edgeSize := uint32(EdgePrefixSize) + uint32(l.EdgeAttrSize)
	size := nodeSize
	if edgeSize > size {
		size = edgeSize
	}
	if TombstoneSize > size {
		size = uint32(TombstoneSize)
	}
	return size
}

// Node is a decoded view of a Node slot's fixed fields. Attrs is the raw
// user-attribute tail, never interpreted by this package.
type Node struct {
	ID       uint64
	Self     uint64 // the slot's own position, written for self-description
	Left     uint64 // key-BST left child slot, 0 = nil
	Right    uint64 // key-BST right child slot, 0 = nil
	KeyHash  uint64 // secondary hash used for in-bucket ordering
	OutHead  uint64 // root of the outgoing adjacency tree, 0 = nil
	InHead   uint64 // root of the incoming adjacency tree, 0 = nil
	Key      []byte // up to MaxKeyLen bytes, not zero-padded in this view
	Attrs    []byte
}

// Edge is a decoded view of an Edge slot's fixed fields.
type Edge struct {
	Source   uint64
	Target   uint64
	OutOrder uint64 // edge-order hash of the target's key; orders the source's out-tree
	InOrder  uint64 // edge-order hash of the source's key; orders the target's in-tree
	OutLeft  uint64
	OutRight uint64
	InLeft   uint64
	InRight  uint64
	TypeTag  uint16
	Attrs    []byte
}

// KindOf reads the discriminator byte of a non-header slot.
func KindOf(buf []byte) Kind {
	return Kind(buf[0])
}

// EncodeNode writes n into buf according to layout. buf must be at least
// layout.RecordSize() bytes; any bytes beyond the encoded fields are
// zeroed, including key padding beyond len(n.Key).
func EncodeNode(buf []byte, layout Layout, n Node) {
	clear(buf)
	buf[0] = byte(KindNode)
	binary.LittleEndian.PutUint64(buf[nodeOffID:], n.ID)
	binary.LittleEndian.PutUint64(buf[nodeOffSelf:], n.Self)
	binary.LittleEndian.PutUint64(buf[nodeOffLeft:], n.Left)
	binary.LittleEndian.PutUint64(buf[nodeOffRight:], n.Right)
	binary.LittleEndian.PutUint64(buf[nodeOffHash:], n.KeyHash)
	binary.LittleEndian.PutUint64(buf[nodeOffOutHead:], n.OutHead)
	binary.LittleEndian.PutUint64(buf[nodeOffInHead:], n.InHead)
	copy(buf[nodeOffKey:], n.Key) // remaining bytes up to MaxKeyLen stay zero (clear above)
	attrOff := int(nodeOffKey) + int(layout.MaxKeyLen)
	copy(buf[attrOff:], n.Attrs)
}

// DecodeNode reads a Node view out of buf, which must have been produced
// by EncodeNode under the same layout. The key is trimmed at the first
// zero byte, per spec.md §4.1.
func DecodeNode(buf []byte, layout Layout) Node {
	raw := buf[nodeOffKey : int(nodeOffKey)+int(layout.MaxKeyLen)]
	n := 0
	for n < len(raw) && raw[n] != 0 {
		n++
	}
	key := make([]byte, n)
	copy(key, raw[:n])
	attrOff := int(nodeOffKey) + int(layout.MaxKeyLen)
	var attrs []byte
	if layout.NodeAttrSize > 0 {
		attrs = make([]byte, layout.NodeAttrSize)
		copy(attrs, buf[attrOff:attrOff+int(layout.NodeAttrSize)])
	}
	return Node{
		ID:      binary.LittleEndian.Uint64(buf[nodeOffID:]),
		Self:    binary.LittleEndian.Uint64(buf[nodeOffSelf:]),
		Left:    binary.LittleEndian.Uint64(buf[nodeOffLeft:]),
		Right:   binary.LittleEndian.Uint64(buf[nodeOffRight:]),
		KeyHash: binary.LittleEndian.Uint64(buf[nodeOffHash:]),
		OutHead: binary.LittleEndian.Uint64(buf[nodeOffOutHead:]),
		InHead:  binary.LittleEndian.Uint64(buf[nodeOffInHead:]),
		Key:     key,
		Attrs:   attrs,
	}
}

// EncodeEdge writes e into buf according to layout.
func EncodeEdge(buf []byte, layout Layout, e Edge) {
	clear(buf)
	buf[0] = byte(KindEdge)
	binary.LittleEndian.PutUint64(buf[edgeOffSource:], e.Source)
	binary.LittleEndian.PutUint64(buf[edgeOffTarget:], e.Target)
	binary.LittleEndian.PutUint64(buf[edgeOffOutOrder:], e.OutOrder)
	binary.LittleEndian.PutUint64(buf[edgeOffInOrder:], e.InOrder)
	binary.LittleEndian.PutUint64(buf[edgeOffOutLeft:], e.OutLeft)
	binary.LittleEndian.PutUint64(buf[edgeOffOutRight:], e.OutRight)
	binary.LittleEndian.PutUint64(buf[edgeOffInLeft:], e.InLeft)
	binary.LittleEndian.PutUint64(buf[edgeOffInRight:], e.InRight)
	binary.LittleEndian.PutUint16(buf[edgeOffTypeTag:], e.TypeTag)
	copy(buf[EdgePrefixSize:], e.Attrs)
}

// DecodeEdge reads an Edge view out of buf.
func DecodeEdge(buf []byte, layout Layout) Edge {
	var attrs []byte
	if layout.EdgeAttrSize > 0 {
		attrs = make([]byte, layout.EdgeAttrSize)
		copy(attrs, buf[EdgePrefixSize:int(EdgePrefixSize)+int(layout.EdgeAttrSize)])
	}
	return Edge{
		Source:   binary.LittleEndian.Uint64(buf[edgeOffSource:]),
		Target:   binary.LittleEndian.Uint64(buf[edgeOffTarget:]),
		OutOrder: binary.LittleEndian.Uint64(buf[edgeOffOutOrder:]),
		InOrder:  binary.LittleEndian.Uint64(buf[edgeOffInOrder:]),
		OutLeft:  binary.LittleEndian.Uint64(buf[edgeOffOutLeft:]),
		OutRight: binary.LittleEndian.Uint64(buf[edgeOffOutRight:]),
		InLeft:   binary.LittleEndian.Uint64(buf[edgeOffInLeft:]),
		InRight:  binary.LittleEndian.Uint64(buf[edgeOffInRight:]),
		TypeTag:  binary.LittleEndian.Uint16(buf[edgeOffTypeTag:]),
		Attrs:    attrs,
	}
}

// EncodeTombstone writes a tombstone slot pointing at next (0 = end of list).
func EncodeTombstone(buf []byte, next uint64) {
	clear(buf)
	buf[0] = byte(KindTombstone)
	binary.LittleEndian.PutUint64(buf[1:], next)
}

// DecodeTombstoneNext reads the forward freelist pointer out of a
// tombstone slot.
func DecodeTombstoneNext(buf []byte) uint64 {
	return binary.LittleEndian.Uint64(buf[1:])
}

// KeyEqual compares a stored, zero-padded key field against a candidate
// key, per spec.md §4.1: "equality compares only up to the first zero
// byte."
func KeyEqual(stored []byte, candidate []byte) bool {
	n := 0
	for n < len(stored) && stored[n] != 0 {
		n++
	}
	return n == len(candidate) && string(stored[:n]) == string(candidate)
}
