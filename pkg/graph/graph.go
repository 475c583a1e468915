// Package graph is the public façade: the single entry point that
// composes internal/slotfile, internal/keyindex, and
// internal/adjacency into add/remove/query operations that maintain
// the cross-structure invariants none of those packages know about on
// their own — a node's key-index entry, its two adjacency trees, and
// every edge incident to it all have to change together or not at all.
package graph

import (
	"fmt"
	"iter"
	"sync"

	"go.uber.org/zap"

	"github.com/knotdb/knot/internal/adjacency"
	"github.com/knotdb/knot/internal/hashing"
	"github.com/knotdb/knot/internal/keyindex"
	"github.com/knotdb/knot/internal/record"
	"github.com/knotdb/knot/internal/slotfile"
	"github.com/knotdb/knot/pkg/filesys"
	"github.com/knotdb/knot/pkg/knoterr"
	"github.com/knotdb/knot/pkg/membership"
	"github.com/knotdb/knot/pkg/options"
)

// NodeView is the user-facing view of a stored node.
type NodeView struct {
	ID    uint64
	Key   string
	Attrs []byte
}

// EdgeView is the user-facing view of one directed edge. TypeTag
// carries the edge's small user-defined type discriminator; the
// public façade never sets it to anything but zero — AddEdge/SetEdge
// don't expose a parameter for it, matching the published API
// surface, but it still round-trips on read for forward compatibility.
type EdgeView struct {
	Source  string
	Target  string
	TypeTag uint16
	Attrs   []byte
}

// Mode selects how Open attaches to an existing file.
type Mode int

const (
	// ModeReadWrite opens the file for both reads and writes.
	ModeReadWrite Mode = iota
	// ModeReadOnly opens the file read-only; every mutating method
	// fails with knoterr.ReadOnly.
	ModeReadOnly
)

// Graph is an open, single-file directed graph store. Its lifecycle
// is Closed -> Open{mode} -> Closed: Create or Open produces a live
// handle in the requested mode, and Close retires it for good — a
// closed Graph must not be reused.
type Graph struct {
	mu sync.RWMutex

	sf  *slotfile.File
	ki  *keyindex.Index
	adj *adjacency.Index

	layout record.Layout
	bloom  *membership.Filter
	log    *zap.SugaredLogger
	opts   options.Options
	locked bool
}

// Create initializes a brand-new graph file at path.
func Create(path string, fns ...options.OptionFunc) (*Graph, error) {
	opts := options.New(fns...)
	layout := record.Layout{
		MaxKeyLen:    opts.MaxKeyLen,
		NodeAttrSize: opts.NodeAttrSize,
		EdgeAttrSize: opts.EdgeAttrSize,
	}

	sf, err := slotfile.Create(path, opts.TableSize, layout)
	if err != nil {
		return nil, err
	}
	g := newGraph(sf, layout, opts)
	if opts.AdvisoryLock {
		if err := filesys.Lock(sf.Fd()); err != nil {
			sf.Close()
			return nil, knoterr.IO(err, "taking advisory lock").WithDetail("path", path)
		}
		g.locked = true
	}
	g.log.Infow("graph created", "path", path, "table_size", opts.TableSize)
	return g, nil
}

// Open opens an existing graph file at path in the given mode.
func Open(path string, mode Mode, fns ...options.OptionFunc) (*Graph, error) {
	if mode == ModeReadOnly {
		fns = append([]options.OptionFunc{options.WithReadOnly()}, fns...)
	}
	opts := options.New(fns...)

	sf, err := slotfile.Open(path, opts.ReadOnly)
	if err != nil {
		return nil, err
	}
	layout := sf.Layout()
	g := newGraph(sf, layout, opts)

	if opts.AdvisoryLock && !opts.ReadOnly {
		if err := filesys.Lock(sf.Fd()); err != nil {
			sf.Close()
			return nil, knoterr.IO(err, "taking advisory lock").WithDetail("path", path)
		}
		g.locked = true
	}

	if err := g.rebuildBloom(); err != nil {
		sf.Close()
		return nil, err
	}
	g.log.Infow("graph opened", "path", path, "mode", mode, "nodes", sf.Header().NodeCount, "edges", sf.Header().EdgeCount)
	return g, nil
}

func newGraph(sf *slotfile.File, layout record.Layout, opts options.Options) *Graph {
	return &Graph{
		sf:     sf,
		ki:     keyindex.New(sf, nodeAccessor{sf, layout}, sf.TableSize()),
		adj:    adjacency.New(edgeAccessor{sf, layout}, nodeRootAccessor{sf, layout}),
		layout: layout,
		bloom:  membership.New(1024, 0.01),
		log:    opts.Logger,
		opts:   opts,
	}
}

func (g *Graph) rebuildBloom() error {
	hint := g.sf.Header().NodeCount
	if hint == 0 {
		hint = 1
	}
	var walkErr error
	f := membership.Rebuild(uint(hint), 0.01, func(yield func([]byte) bool) {
		walkErr = g.walkAllNodeSlots(func(slot uint64) bool {
			buf, err := g.sf.ReadSlot(slot)
			if err != nil {
				walkErr = err
				return false
			}
			n := record.DecodeNode(buf, g.layout)
			return yield(n.Key)
		})
	})
	if walkErr != nil {
		return walkErr
	}
	g.bloom = f
	return nil
}

// walkAllNodeSlots visits every occupied slot that holds a Node record
// by forward-scanning the tail, since the key index's bucket trees
// don't by themselves expose a cheap "all nodes" order.
func (g *Graph) walkAllNodeSlots(yield func(slot uint64) bool) error {
	tail := g.sf.Header().NextTail
	for slot := uint64(1); slot < tail; slot++ {
		if !g.sf.IsOccupied(slot) {
			continue
		}
		buf, err := g.sf.ReadSlot(slot)
		if err != nil {
			return err
		}
		if record.KindOf(buf) != record.KindNode {
			continue
		}
		if !yield(slot) {
			return nil
		}
	}
	return nil
}

func (g *Graph) walkAllEdgeSlots(yield func(slot uint64) bool) error {
	tail := g.sf.Header().NextTail
	for slot := uint64(1); slot < tail; slot++ {
		if !g.sf.IsOccupied(slot) {
			continue
		}
		buf, err := g.sf.ReadSlot(slot)
		if err != nil {
			return err
		}
		if record.KindOf(buf) != record.KindEdge {
			continue
		}
		if !yield(slot) {
			return nil
		}
	}
	return nil
}

func (g *Graph) validateKey(key []byte) error {
	if len(key) == 0 {
		return knoterr.New(knoterr.CodeKeyTooLong, "key must not be empty")
	}
	if len(key) > int(g.layout.MaxKeyLen) {
		return knoterr.KeyTooLong(fmt.Sprintf("key length %d exceeds max %d", len(key), g.layout.MaxKeyLen))
	}
	return nil
}

// AddNode inserts a new node under key with attrs, returning its
// auto-assigned id. Fails with knoterr.AlreadyExists if key is already
// present, or knoterr.KeyTooLong if key doesn't fit the fixed field.
func (g *Graph) AddNode(key string, attrs []byte) (uint64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	keyBytes := []byte(key)
	if err := g.validateKey(keyBytes); err != nil {
		return 0, err
	}
	if _, found, err := g.ki.Lookup(keyBytes); err != nil {
		return 0, err
	} else if found {
		return 0, knoterr.AlreadyExists("node key already exists").WithDetail("key", key)
	}

	slot, err := g.sf.Allocate()
	if err != nil {
		return 0, err
	}
	id, err := g.sf.NextNodeID()
	if err != nil {
		return 0, err
	}

	n := record.Node{
		ID:      id,
		Self:    slot,
		KeyHash: hashing.Order(keyBytes),
		Key:     keyBytes,
		Attrs:   attrs,
	}
	buf := make([]byte, g.sf.RecordSize())
	record.EncodeNode(buf, g.layout, n)
	if err := g.sf.WriteSlot(slot, buf); err != nil {
		return 0, err
	}
	if err := g.ki.Insert(slot, keyBytes); err != nil {
		return 0, err
	}
	if err := g.sf.AdjustCounts(1, 0); err != nil {
		return 0, err
	}
	g.bloom.Add(keyBytes)
	g.log.Debugw("node added", "key", key, "id", id, "slot", slot)
	return id, nil
}

// SetNode overwrites the attrs of the node stored under key, leaving
// its id and key untouched. Fails with knoterr.NotFound if key is
// absent.
func (g *Graph) SetNode(key string, attrs []byte) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	slot, found, err := g.ki.Lookup([]byte(key))
	if err != nil {
		return err
	}
	if !found {
		return knoterr.NotFound("node key not found").WithDetail("key", key)
	}
	buf, err := g.sf.ReadSlot(slot)
	if err != nil {
		return err
	}
	n := record.DecodeNode(buf, g.layout)
	n.Attrs = attrs
	out := make([]byte, g.sf.RecordSize())
	record.EncodeNode(out, g.layout, n)
	return g.sf.WriteSlot(slot, out)
}

// GetNode returns the node stored under key, or knoterr.NotFound if
// no such node exists.
func (g *Graph) GetNode(key string) (NodeView, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.getNode(key)
}

func (g *Graph) getNode(key string) (NodeView, error) {
	keyBytes := []byte(key)
	if !g.bloom.MaybeContains(keyBytes) {
		return NodeView{}, knoterr.NotFound("node key not found").WithDetail("key", key)
	}
	slot, found, err := g.ki.Lookup(keyBytes)
	if err != nil {
		return NodeView{}, err
	}
	if !found {
		return NodeView{}, knoterr.NotFound("node key not found").WithDetail("key", key)
	}
	buf, err := g.sf.ReadSlot(slot)
	if err != nil {
		return NodeView{}, err
	}
	n := record.DecodeNode(buf, g.layout)
	return NodeView{ID: n.ID, Key: string(n.Key), Attrs: n.Attrs}, nil
}

// HasNode reports whether key names a live node. An I/O error while
// consulting the index is logged and reported as absence, since this
// method's signature leaves no room to surface it.
func (g *Graph) HasNode(key string) bool {
	_, err := g.GetNode(key)
	if err != nil && knoterr.CodeOf(err) != knoterr.CodeNotFound {
		g.log.Warnw("HasNode swallowed an error", "key", key, "error", err)
	}
	return err == nil
}

// RemoveNode deletes the node stored under key along with every edge
// incident to it, in either direction.
func (g *Graph) RemoveNode(key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	keyBytes := []byte(key)
	slot, found, err := g.ki.Lookup(keyBytes)
	if err != nil {
		return err
	}
	if !found {
		return knoterr.NotFound("node key not found").WithDetail("key", key)
	}

	if err := g.drainOutgoing(slot); err != nil {
		return err
	}
	if err := g.drainIncoming(slot); err != nil {
		return err
	}

	removed, _, ok, err := g.ki.Remove(keyBytes)
	if err != nil {
		return err
	}
	if !ok {
		return knoterr.Corrupted("node vanished from key index mid-removal").WithDetail("key", key)
	}
	if err := g.sf.Free(removed); err != nil {
		return err
	}
	if err := g.sf.AdjustCounts(-1, 0); err != nil {
		return err
	}
	g.log.Debugw("node removed", "key", key, "slot", removed)
	return nil
}

func (g *Graph) drainOutgoing(sourceSlot uint64) error {
	for {
		var first uint64
		if err := g.adj.WalkOut(sourceSlot, func(slot uint64) bool {
			first = slot
			return false
		}); err != nil {
			return err
		}
		if first == 0 {
			return nil
		}
		buf, err := g.sf.ReadSlot(first)
		if err != nil {
			return err
		}
		e := record.DecodeEdge(buf, g.layout)
		if err := g.removeEdgeSlot(e.Source, e.Target, e.InOrder, e.OutOrder, first); err != nil {
			return err
		}
	}
}

func (g *Graph) drainIncoming(targetSlot uint64) error {
	for {
		var first uint64
		if err := g.adj.WalkIn(targetSlot, func(slot uint64) bool {
			first = slot
			return false
		}); err != nil {
			return err
		}
		if first == 0 {
			return nil
		}
		buf, err := g.sf.ReadSlot(first)
		if err != nil {
			return err
		}
		e := record.DecodeEdge(buf, g.layout)
		if err := g.removeEdgeSlot(e.Source, e.Target, e.InOrder, e.OutOrder, first); err != nil {
			return err
		}
	}
}

func (g *Graph) removeEdgeSlot(sourceSlot, targetSlot, sourceOrder, targetOrder, edgeSlot uint64) error {
	removed, err := g.adj.RemoveEdge(sourceSlot, targetSlot, sourceOrder, targetOrder)
	if err != nil {
		return err
	}
	if removed == 0 {
		return knoterr.Corrupted("edge vanished from adjacency trees mid-removal")
	}
	if err := g.sf.Free(removed); err != nil {
		return err
	}
	return g.sf.AdjustCounts(0, -1)
}

// AddEdge inserts a directed edge from src to dst with the given
// attrs. Fails with knoterr.NotFound if either endpoint is absent, or
// knoterr.AlreadyExists if the same (src, dst) edge already exists.
func (g *Graph) AddEdge(src, dst string, attrs []byte) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	srcBytes, dstBytes := []byte(src), []byte(dst)

	sourceSlot, found, err := g.ki.Lookup(srcBytes)
	if err != nil {
		return err
	}
	if !found {
		return knoterr.NotFound("source node not found").WithDetail("key", src)
	}
	targetSlot, found, err := g.ki.Lookup(dstBytes)
	if err != nil {
		return err
	}
	if !found {
		return knoterr.NotFound("target node not found").WithDetail("key", dst)
	}

	sourceOrder := hashing.EdgeOrder(hashing.Order(srcBytes))
	targetOrder := hashing.EdgeOrder(hashing.Order(dstBytes))

	if _, found, err := g.adj.LookupEdge(sourceSlot, targetSlot, targetOrder); err != nil {
		return err
	} else if found {
		return knoterr.AlreadyExists("edge already exists").
			WithDetail("source", src).WithDetail("target", dst)
	}

	slot, err := g.sf.Allocate()
	if err != nil {
		return err
	}
	e := record.Edge{
		Source:   sourceSlot,
		Target:   targetSlot,
		OutOrder: targetOrder,
		InOrder:  sourceOrder,
		Attrs:    attrs,
	}
	buf := make([]byte, g.sf.RecordSize())
	record.EncodeEdge(buf, g.layout, e)
	if err := g.sf.WriteSlot(slot, buf); err != nil {
		return err
	}
	if err := g.adj.InsertEdge(sourceSlot, targetSlot, slot, sourceOrder, targetOrder); err != nil {
		return err
	}
	if err := g.sf.AdjustCounts(0, 1); err != nil {
		return err
	}
	g.log.Debugw("edge added", "source", src, "target", dst, "slot", slot)
	return nil
}

// SetEdge overwrites the attrs of the edge from src to dst, leaving
// its endpoints and type tag untouched. Fails with knoterr.NotFound if
// no such edge exists.
func (g *Graph) SetEdge(src, dst string, attrs []byte) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	sourceSlot, found, err := g.ki.Lookup([]byte(src))
	if err != nil {
		return err
	}
	if !found {
		return knoterr.NotFound("source node not found").WithDetail("key", src)
	}
	targetSlot, found, err := g.ki.Lookup([]byte(dst))
	if err != nil {
		return err
	}
	if !found {
		return knoterr.NotFound("target node not found").WithDetail("key", dst)
	}

	edgeSlot, found, err := g.adj.LookupEdge(sourceSlot, targetSlot, hashing.EdgeOrder(hashing.Order([]byte(dst))))
	if err != nil {
		return err
	}
	if !found {
		return knoterr.NotFound("edge not found").WithDetail("source", src).WithDetail("target", dst)
	}
	buf, err := g.sf.ReadSlot(edgeSlot)
	if err != nil {
		return err
	}
	e := record.DecodeEdge(buf, g.layout)
	e.Attrs = attrs
	out := make([]byte, g.sf.RecordSize())
	record.EncodeEdge(out, g.layout, e)
	return g.sf.WriteSlot(edgeSlot, out)
}

// RemoveEdge deletes the directed edge from src to dst.
func (g *Graph) RemoveEdge(src, dst string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	srcBytes, dstBytes := []byte(src), []byte(dst)

	sourceSlot, found, err := g.ki.Lookup(srcBytes)
	if err != nil {
		return err
	}
	if !found {
		return knoterr.NotFound("source node not found").WithDetail("key", src)
	}
	targetSlot, found, err := g.ki.Lookup(dstBytes)
	if err != nil {
		return err
	}
	if !found {
		return knoterr.NotFound("target node not found").WithDetail("key", dst)
	}

	sourceOrder := hashing.EdgeOrder(hashing.Order(srcBytes))
	targetOrder := hashing.EdgeOrder(hashing.Order(dstBytes))

	removed, err := g.adj.RemoveEdge(sourceSlot, targetSlot, sourceOrder, targetOrder)
	if err != nil {
		return err
	}
	if removed == 0 {
		return knoterr.NotFound("edge not found").WithDetail("source", src).WithDetail("target", dst)
	}
	if err := g.sf.Free(removed); err != nil {
		return err
	}
	return g.sf.AdjustCounts(0, -1)
}

// HasEdge reports whether a directed edge from src to dst exists. An
// I/O error while consulting the index is logged and reported as
// absence, since this method's signature leaves no room to surface
// it.
func (g *Graph) HasEdge(src, dst string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	sourceSlot, found, err := g.ki.Lookup([]byte(src))
	if err != nil {
		g.log.Warnw("HasEdge swallowed an error", "source", src, "target", dst, "error", err)
		return false
	}
	if !found {
		return false
	}
	targetSlot, found, err := g.ki.Lookup([]byte(dst))
	if err != nil {
		g.log.Warnw("HasEdge swallowed an error", "source", src, "target", dst, "error", err)
		return false
	}
	if !found {
		return false
	}
	_, ok, err := g.adj.LookupEdge(sourceSlot, targetSlot, hashing.EdgeOrder(hashing.Order([]byte(dst))))
	if err != nil {
		g.log.Warnw("HasEdge swallowed an error", "source", src, "target", dst, "error", err)
		return false
	}
	return ok
}

// GetEdge returns the edge from src to dst, or knoterr.NotFound if no
// such edge exists.
func (g *Graph) GetEdge(src, dst string) (EdgeView, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	sourceSlot, found, err := g.ki.Lookup([]byte(src))
	if err != nil {
		return EdgeView{}, err
	}
	if !found {
		return EdgeView{}, knoterr.NotFound("source node not found").WithDetail("key", src)
	}
	targetSlot, found, err := g.ki.Lookup([]byte(dst))
	if err != nil {
		return EdgeView{}, err
	}
	if !found {
		return EdgeView{}, knoterr.NotFound("target node not found").WithDetail("key", dst)
	}
	edgeSlot, found, err := g.adj.LookupEdge(sourceSlot, targetSlot, hashing.EdgeOrder(hashing.Order([]byte(dst))))
	if err != nil {
		return EdgeView{}, err
	}
	if !found {
		return EdgeView{}, knoterr.NotFound("edge not found").WithDetail("source", src).WithDetail("target", dst)
	}
	view, ok, err := g.decodeEdgeAsUser(edgeSlot)
	if err != nil {
		return EdgeView{}, err
	}
	if !ok {
		return EdgeView{}, knoterr.Corrupted("edge endpoint missing on read")
	}
	return view, nil
}

// Neighbors returns, in ascending order of the edge-order hash derived
// from the target's key, the keys reachable by one outgoing edge from key. The sequence is
// restartable: ranging over it twice re-walks the tree from scratch.
func (g *Graph) Neighbors(key string) iter.Seq[string] {
	return func(yield func(string) bool) {
		g.mu.RLock()
		defer g.mu.RUnlock()

		slot, found, err := g.ki.Lookup([]byte(key))
		if err != nil || !found {
			if err != nil {
				g.log.Warnw("Neighbors stopped early on an error", "key", key, "error", err)
			}
			return
		}
		g.adj.WalkOut(slot, func(edgeSlot uint64) bool {
			view, ok, err := g.decodeEdgeAsUser(edgeSlot)
			if err != nil {
				g.log.Warnw("Neighbors stopped early on an error", "key", key, "error", err)
				return false
			}
			if !ok {
				return true
			}
			return yield(view.Target)
		})
	}
}

// Predecessors returns, in ascending order of the edge-order hash
// derived from the source's key, the keys with one outgoing edge into key.
func (g *Graph) Predecessors(key string) iter.Seq[string] {
	return func(yield func(string) bool) {
		g.mu.RLock()
		defer g.mu.RUnlock()

		slot, found, err := g.ki.Lookup([]byte(key))
		if err != nil || !found {
			if err != nil {
				g.log.Warnw("Predecessors stopped early on an error", "key", key, "error", err)
			}
			return
		}
		g.adj.WalkIn(slot, func(edgeSlot uint64) bool {
			view, ok, err := g.decodeEdgeAsUser(edgeSlot)
			if err != nil {
				g.log.Warnw("Predecessors stopped early on an error", "key", key, "error", err)
				return false
			}
			if !ok {
				return true
			}
			return yield(view.Source)
		})
	}
}

func (g *Graph) decodeEdgeAsUser(edgeSlot uint64) (EdgeView, bool, error) {
	buf, err := g.sf.ReadSlot(edgeSlot)
	if err != nil {
		return EdgeView{}, false, err
	}
	e := record.DecodeEdge(buf, g.layout)
	sourceBuf, err := g.sf.ReadSlot(e.Source)
	if err != nil {
		return EdgeView{}, false, err
	}
	targetBuf, err := g.sf.ReadSlot(e.Target)
	if err != nil {
		return EdgeView{}, false, err
	}
	source := record.DecodeNode(sourceBuf, g.layout)
	target := record.DecodeNode(targetBuf, g.layout)
	return EdgeView{
		Source:  string(source.Key),
		Target:  string(target.Key),
		TypeTag: e.TypeTag,
		Attrs:   e.Attrs,
	}, true, nil
}

// Nodes returns every live node, in slot order.
func (g *Graph) Nodes() iter.Seq[NodeView] {
	return func(yield func(NodeView) bool) {
		g.mu.RLock()
		defer g.mu.RUnlock()

		g.walkAllNodeSlots(func(slot uint64) bool {
			buf, err := g.sf.ReadSlot(slot)
			if err != nil {
				g.log.Warnw("Nodes stopped early on an error", "error", err)
				return false
			}
			n := record.DecodeNode(buf, g.layout)
			return yield(NodeView{ID: n.ID, Key: string(n.Key), Attrs: n.Attrs})
		})
	}
}

// Edges returns every live edge, in slot order.
func (g *Graph) Edges() iter.Seq[EdgeView] {
	return func(yield func(EdgeView) bool) {
		g.mu.RLock()
		defer g.mu.RUnlock()

		g.walkAllEdgeSlots(func(slot uint64) bool {
			view, ok, err := g.decodeEdgeAsUser(slot)
			if err != nil {
				g.log.Warnw("Edges stopped early on an error", "error", err)
				return false
			}
			if !ok {
				return true
			}
			return yield(view)
		})
	}
}

// NodeCount reports the live node count from the header (O(1)).
func (g *Graph) NodeCount() uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.sf.Header().NodeCount
}

// EdgeCount reports the live edge count from the header (O(1)).
func (g *Graph) EdgeCount() uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.sf.Header().EdgeCount
}

// TableSize reports the number of buckets in the key index.
func (g *Graph) TableSize() uint32 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.sf.Header().TableSize
}

// Flush syncs outstanding writes to stable storage.
func (g *Graph) Flush() error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.sf.Sync()
}

// Close releases the underlying file handle, along with the advisory
// lock if one was taken.
func (g *Graph) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.locked {
		if err := filesys.Unlock(g.sf.Fd()); err != nil {
			g.log.Warnw("failed to release advisory lock", "error", err)
		}
	}
	return g.sf.Close()
}
