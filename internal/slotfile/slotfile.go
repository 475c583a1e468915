// Package slotfile provides thread-safe, fixed-size-record access to the
// single on-disk file a graph lives in. It knows nothing about nodes,
// edges, or keys — only slots: the header at index 0, and a tail of
// uniformly-sized records addressed by index, some live and some free.
// It is the direct descendant of the teacher's pkg/storage, generalized
// from a flat byte-offset API to a slot-indexed one and given a freelist.
package slotfile

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"sync"

	"github.com/bits-and-blooms/bitset"

	"github.com/knotdb/knot/internal/record"
	"github.com/knotdb/knot/pkg/knoterr"
)

// File is a thread-safe, slot-indexed view over a single on-disk graph
// file. Slot 0 is the header; slots 1..tail-1 are fixed-size node, edge,
// or tombstone records.
type File struct {
	mu sync.RWMutex

	f    *os.File
	path string

	header     record.Header
	layout     record.Layout
	recordSize int64

	// occupied tracks which slots (1-indexed, bit i == slot i) currently
	// hold a live node or edge record. Rebuilt on Open by a single
	// forward scan and kept in sync on every Allocate/Free; never
	// persisted, since the freelist chain and NextTail already
	// reconstruct it.
	occupied *bitset.BitSet

	readOnly bool
}

// Create initializes a brand-new slot file at path with the given table
// size and record layout, and returns it open for read-write use. It
// fails with knoterr.AlreadyExists if a file is already there.
func Create(path string, tableSize uint32, layout record.Layout) (*File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, knoterr.IO(err, "creating parent directory").WithDetail("path", path)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, knoterr.AlreadyExists("graph file already exists").WithDetail("path", path)
		}
		return nil, knoterr.IO(err, "creating graph file").WithDetail("path", path)
	}

	h := record.Header{
		TableSize: tableSize,
		Layout:    layout,
	}
	sf := &File{
		f:          f,
		path:       path,
		header:     h,
		layout:     layout,
		recordSize: int64(layout.RecordSize()),
		occupied:   bitset.New(0),
	}
	if err := sf.writeInitialLayout(); err != nil {
		f.Close()
		os.Remove(path)
		return nil, err
	}
	return sf, nil
}

// Open opens an existing slot file, validating its header and
// rebuilding the in-memory occupancy bitset with a single forward scan.
func Open(path string, readOnly bool) (*File, error) {
	flag := os.O_RDWR
	if readOnly {
		flag = os.O_RDONLY
	}
	f, err := os.OpenFile(path, flag, 0o644)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, knoterr.NotFound("graph file does not exist").WithDetail("path", path)
		}
		return nil, knoterr.IO(err, "opening graph file").WithDetail("path", path)
	}

	hdrBuf := make([]byte, record.HeaderSize)
	if _, err := f.ReadAt(hdrBuf, 0); err != nil {
		f.Close()
		return nil, knoterr.IO(err, "reading header")
	}
	h, ok := record.DecodeHeader(hdrBuf)
	if !ok {
		f.Close()
		return nil, knoterr.Corrupted("header magic or version mismatch").WithDetail("path", path)
	}

	sf := &File{
		f:          f,
		path:       path,
		header:     h,
		layout:     h.Layout,
		recordSize: int64(h.Layout.RecordSize()),
		occupied:   bitset.New(uint(h.NextTail)),
		readOnly:   readOnly,
	}
	if err := sf.rebuildOccupancy(); err != nil {
		f.Close()
		return nil, err
	}
	return sf, nil
}

func (sf *File) writeInitialLayout() error {
	hdrBuf := make([]byte, record.HeaderSize)
	record.EncodeHeader(hdrBuf, sf.header)
	if _, err := sf.f.WriteAt(hdrBuf, 0); err != nil {
		return knoterr.IO(err, "writing header")
	}

	dir := make([]byte, int64(sf.header.TableSize)*record.PointerSize)
	if _, err := sf.f.WriteAt(dir, record.BucketDirOffset); err != nil {
		return knoterr.IO(err, "writing bucket directory")
	}
	sf.header.NextTail = 1
	return sf.flushHeaderLocked()
}

// rebuildOccupancy walks every live slot the tail cursor and freelist
// chain imply, marking the tombstoned ones and leaving the rest set.
func (sf *File) rebuildOccupancy() error {
	for i := uint64(1); i < sf.header.NextTail; i++ {
		sf.occupied.Set(uint(i))
	}
	next := sf.header.FreelistHead
	for next != 0 {
		sf.occupied.Clear(uint(next))
		buf := make([]byte, sf.recordSize)
		if _, err := sf.f.ReadAt(buf, sf.slotOffset(next)); err != nil {
			return knoterr.IO(err, "walking freelist during open")
		}
		if record.KindOf(buf) != record.KindTombstone {
			return knoterr.Corrupted("freelist entry is not a tombstone").WithDetail("slot", next)
		}
		next = record.DecodeTombstoneNext(buf)
	}
	return nil
}

func (sf *File) slotOffset(slot uint64) int64 {
	return record.SlotsOffset(sf.header.TableSize) + int64(slot-1)*sf.recordSize
}

// Layout returns the fixed record layout this file was created with.
func (sf *File) Layout() record.Layout { return sf.layout }

// RecordSize returns the uniform on-disk size of every slot.
func (sf *File) RecordSize() int64 { return sf.recordSize }

// Header returns a copy of the current in-memory header.
func (sf *File) Header() record.Header {
	sf.mu.RLock()
	defer sf.mu.RUnlock()
	return sf.header
}

// Allocate reserves a slot — reusing the freelist head if one exists,
// otherwise growing the file by one record at the tail — and returns
// its index. The caller is responsible for writing a live record into
// it before releasing any lock that would let it be observed.
func (sf *File) Allocate() (uint64, error) {
	sf.mu.Lock()
	defer sf.mu.Unlock()
	if sf.readOnly {
		return 0, knoterr.ReadOnly("cannot allocate in a read-only graph")
	}

	if sf.header.FreelistHead != 0 {
		slot := sf.header.FreelistHead
		buf := make([]byte, sf.recordSize)
		if _, err := sf.f.ReadAt(buf, sf.slotOffset(slot)); err != nil {
			return 0, knoterr.IO(err, "reading freelist head").WithDetail("slot", slot)
		}
		sf.header.FreelistHead = record.DecodeTombstoneNext(buf)
		sf.occupied.Set(uint(slot))
		if err := sf.flushHeaderLocked(); err != nil {
			return 0, err
		}
		return slot, nil
	}

	slot := sf.header.NextTail
	sf.header.NextTail++
	sf.occupied.Set(uint(slot))
	if err := sf.flushHeaderLocked(); err != nil {
		return 0, err
	}
	return slot, nil
}

// Free writes a tombstone into slot and prepends it to the freelist,
// making it eligible for reuse by a future Allocate.
func (sf *File) Free(slot uint64) error {
	sf.mu.Lock()
	defer sf.mu.Unlock()
	if sf.readOnly {
		return knoterr.ReadOnly("cannot free a slot in a read-only graph")
	}

	buf := make([]byte, sf.recordSize)
	record.EncodeTombstone(buf, sf.header.FreelistHead)
	if _, err := sf.f.WriteAt(buf, sf.slotOffset(slot)); err != nil {
		return knoterr.IO(err, "writing tombstone").WithDetail("slot", slot)
	}
	sf.header.FreelistHead = slot
	sf.occupied.Clear(uint(slot))
	return sf.flushHeaderLocked()
}

// ReadSlot reads the raw bytes of slot into a freshly-allocated buffer.
func (sf *File) ReadSlot(slot uint64) ([]byte, error) {
	sf.mu.RLock()
	defer sf.mu.RUnlock()
	buf := make([]byte, sf.recordSize)
	if _, err := sf.f.ReadAt(buf, sf.slotOffset(slot)); err != nil {
		return nil, knoterr.IO(err, "reading slot").WithDetail("slot", slot)
	}
	return buf, nil
}

// WriteSlot overwrites slot with buf, which must be exactly RecordSize
// bytes (callers pad via record.Encode*).
func (sf *File) WriteSlot(slot uint64, buf []byte) error {
	sf.mu.Lock()
	defer sf.mu.Unlock()
	if sf.readOnly {
		return knoterr.ReadOnly("cannot write a slot in a read-only graph")
	}
	if int64(len(buf)) != sf.recordSize {
		return knoterr.Corrupted("slot buffer does not match record size").
			WithDetail("slot", slot).WithDetail("len", len(buf)).WithDetail("want", sf.recordSize)
	}
	if _, err := sf.f.WriteAt(buf, sf.slotOffset(slot)); err != nil {
		return knoterr.IO(err, "writing slot").WithDetail("slot", slot)
	}
	return nil
}

// IsOccupied reports whether slot currently holds a live node or edge.
func (sf *File) IsOccupied(slot uint64) bool {
	sf.mu.RLock()
	defer sf.mu.RUnlock()
	return sf.occupied.Test(uint(slot))
}

// OccupiedCount returns the number of live (non-free, non-header) slots.
func (sf *File) OccupiedCount() uint64 {
	sf.mu.RLock()
	defer sf.mu.RUnlock()
	return uint64(sf.occupied.Count())
}

// BucketPointer reads bucket directory entry i (0-indexed).
func (sf *File) BucketPointer(i uint32) (uint64, error) {
	sf.mu.RLock()
	defer sf.mu.RUnlock()
	buf := make([]byte, record.PointerSize)
	off := int64(record.BucketDirOffset) + int64(i)*record.PointerSize
	if _, err := sf.f.ReadAt(buf, off); err != nil {
		return 0, knoterr.IO(err, "reading bucket pointer").WithDetail("bucket", i)
	}
	return binary.LittleEndian.Uint64(buf), nil
}

// SetBucketPointer writes bucket directory entry i.
func (sf *File) SetBucketPointer(i uint32, slot uint64) error {
	sf.mu.Lock()
	defer sf.mu.Unlock()
	if sf.readOnly {
		return knoterr.ReadOnly("cannot modify bucket directory in a read-only graph")
	}
	buf := make([]byte, record.PointerSize)
	binary.LittleEndian.PutUint64(buf, slot)
	off := int64(record.BucketDirOffset) + int64(i)*record.PointerSize
	if _, err := sf.f.WriteAt(buf, off); err != nil {
		return knoterr.IO(err, "writing bucket pointer").WithDetail("bucket", i)
	}
	return nil
}

// NextNodeID atomically allocates and returns the next auto-incrementing
// node id, starting at 1.
func (sf *File) NextNodeID() (uint64, error) {
	sf.mu.Lock()
	defer sf.mu.Unlock()
	if sf.readOnly {
		return 0, knoterr.ReadOnly("cannot allocate a node id in a read-only graph")
	}
	sf.header.NextNodeID++
	id := sf.header.NextNodeID
	if err := sf.flushHeaderLocked(); err != nil {
		return 0, err
	}
	return id, nil
}

// AdjustCounts applies deltas to the header's live node/edge counts.
func (sf *File) AdjustCounts(nodeDelta, edgeDelta int64) error {
	sf.mu.Lock()
	defer sf.mu.Unlock()
	sf.header.NodeCount = uint64(int64(sf.header.NodeCount) + nodeDelta)
	sf.header.EdgeCount = uint64(int64(sf.header.EdgeCount) + edgeDelta)
	return sf.flushHeaderLocked()
}

func (sf *File) flushHeaderLocked() error {
	buf := make([]byte, record.HeaderSize)
	record.EncodeHeader(buf, sf.header)
	if _, err := sf.f.WriteAt(buf, 0); err != nil {
		return knoterr.IO(err, "flushing header")
	}
	return nil
}

// Sync flushes the OS file buffers to stable storage.
func (sf *File) Sync() error {
	sf.mu.Lock()
	defer sf.mu.Unlock()
	if sf.readOnly {
		return nil
	}
	if err := sf.f.Sync(); err != nil {
		return knoterr.IO(err, "syncing graph file")
	}
	return nil
}

// Close releases the underlying file descriptor.
func (sf *File) Close() error {
	sf.mu.Lock()
	defer sf.mu.Unlock()
	if err := sf.f.Close(); err != nil {
		return knoterr.IO(err, "closing graph file")
	}
	return nil
}

// Path returns the filesystem path this slot file was opened from.
func (sf *File) Path() string { return sf.path }

// Fd returns the underlying file descriptor, for callers that want to
// take an advisory lock on it (see pkg/filesys.Lock).
func (sf *File) Fd() uintptr { return sf.f.Fd() }

// TableSize returns T, the fixed number of key-index buckets.
func (sf *File) TableSize() uint32 { return sf.header.TableSize }
