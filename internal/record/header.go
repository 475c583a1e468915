package record

import "encoding/binary"

// Magic identifies a knot graph file; Version is the on-disk format tag.
const (
	Magic   uint32 = 0x4b4e4f54 // "KNOT"
	Version uint32 = 1
)

// Header field offsets (slot 0). The header is singleton metadata per
// spec.md §3: counts, the next node id, the tail allocation cursor, the
// fixed creation-time parameters, and the freelist head.
const (
	hdrOffMagic        = 0
	hdrOffVersion      = hdrOffMagic + 4
	hdrOffNodeCount    = hdrOffVersion + 4
	hdrOffEdgeCount    = hdrOffNodeCount + 8
	hdrOffNextNodeID   = hdrOffEdgeCount + 8
	hdrOffNextTail     = hdrOffNextNodeID + 8
	hdrOffFreelistHead = hdrOffNextTail + 8
	hdrOffTableSize    = hdrOffFreelistHead + 8
	hdrOffMaxKeyLen    = hdrOffTableSize + 4
	hdrOffNodeAttrSize = hdrOffMaxKeyLen + 2
	hdrOffEdgeAttrSize = hdrOffNodeAttrSize + 2
	hdrOffRecordSize   = hdrOffEdgeAttrSize + 2
	// HeaderSize is the fixed size of slot 0, with room reserved for
	// future header fields without shifting the bucket directory that
	// immediately follows it.
	HeaderSize = 128
)

// Header mirrors the singleton slot-0 metadata record.
type Header struct {
	NodeCount    uint64
	EdgeCount    uint64
	NextNodeID   uint64 // next value handed out by the auto-incrementing node id counter
	NextTail     uint64 // next unused slot index at the tail of the file
	FreelistHead uint64 // head of the tombstone freelist, 0 = empty
	TableSize    uint32 // T: number of key-index buckets, fixed at creation
	Layout       Layout
}

// EncodeHeader writes h into buf, which must be at least HeaderSize bytes.
func EncodeHeader(buf []byte, h Header) {
	clear(buf[:HeaderSize])
	binary.LittleEndian.PutUint32(buf[hdrOffMagic:], Magic)
	binary.LittleEndian.PutUint32(buf[hdrOffVersion:], Version)
	binary.LittleEndian.PutUint64(buf[hdrOffNodeCount:], h.NodeCount)
	binary.LittleEndian.PutUint64(buf[hdrOffEdgeCount:], h.EdgeCount)
	binary.LittleEndian.PutUint64(buf[hdrOffNextNodeID:], h.NextNodeID)
	binary.LittleEndian.PutUint64(buf[hdrOffNextTail:], h.NextTail)
	binary.LittleEndian.PutUint64(buf[hdrOffFreelistHead:], h.FreelistHead)
	binary.LittleEndian.PutUint32(buf[hdrOffTableSize:], h.TableSize)
	binary.LittleEndian.PutUint16(buf[hdrOffMaxKeyLen:], h.Layout.MaxKeyLen)
	binary.LittleEndian.PutUint16(buf[hdrOffNodeAttrSize:], h.Layout.NodeAttrSize)
	binary.LittleEndian.PutUint16(buf[hdrOffEdgeAttrSize:], h.Layout.EdgeAttrSize)
	binary.LittleEndian.PutUint32(buf[hdrOffRecordSize:], h.Layout.RecordSize())
}

// DecodeHeader reads a Header out of buf. It returns ok=false if the magic
// or version does not match, in which case the caller should surface
// knoterr.Corrupted.
func DecodeHeader(buf []byte) (h Header, ok bool) {
	if binary.LittleEndian.Uint32(buf[hdrOffMagic:]) != Magic {
		return Header{}, false
	}
	if binary.LittleEndian.Uint32(buf[hdrOffVersion:]) != Version {
		return Header{}, false
	}
	h.NodeCount = binary.LittleEndian.Uint64(buf[hdrOffNodeCount:])
	h.EdgeCount = binary.LittleEndian.Uint64(buf[hdrOffEdgeCount:])
	h.NextNodeID = binary.LittleEndian.Uint64(buf[hdrOffNextNodeID:])
	h.NextTail = binary.LittleEndian.Uint64(buf[hdrOffNextTail:])
	h.FreelistHead = binary.LittleEndian.Uint64(buf[hdrOffFreelistHead:])
	h.TableSize = binary.LittleEndian.Uint32(buf[hdrOffTableSize:])
	h.Layout.MaxKeyLen = binary.LittleEndian.Uint16(buf[hdrOffMaxKeyLen:])
	h.Layout.NodeAttrSize = binary.LittleEndian.Uint16(buf[hdrOffNodeAttrSize:])
	h.Layout.EdgeAttrSize = binary.LittleEndian.Uint16(buf[hdrOffEdgeAttrSize:])
	return h, true
}

// BucketDirOffset is the byte offset of the T-entry bucket directory,
// immediately following the header per spec.md §6.
const BucketDirOffset = HeaderSize

// PointerSize is the width of one bucket-directory entry (a slot index).
const PointerSize = 8

// SlotsOffset returns the byte offset where slot 1 begins, given a table
// size T: header, then T pointer-sized directory entries.
func SlotsOffset(tableSize uint32) int64 {
	return int64(BucketDirOffset) + int64(tableSize)*int64(PointerSize)
}
