package slotfile

import (
	"path/filepath"
	"testing"

	"github.com/knotdb/knot/internal/record"
)

func testLayout() record.Layout {
	return record.Layout{MaxKeyLen: 16, NodeAttrSize: 0, EdgeAttrSize: 0}
}

func TestCreateOpenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "g.knot")

	sf, err := Create(path, 8, testLayout())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := sf.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(path, false)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer reopened.Close()

	if reopened.TableSize() != 8 {
		t.Fatalf("expected table size 8, got %d", reopened.TableSize())
	}
}

func TestCreateRejectsExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "g.knot")
	sf, err := Create(path, 4, testLayout())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	sf.Close()

	if _, err := Create(path, 4, testLayout()); err == nil {
		t.Fatal("expected AlreadyExists creating over an existing file")
	}
}

func TestAllocateWriteReadSlot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "g.knot")
	sf, err := Create(path, 4, testLayout())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer sf.Close()

	slot, err := sf.Allocate()
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if slot != 1 {
		t.Fatalf("expected first allocation to be slot 1, got %d", slot)
	}
	if !sf.IsOccupied(slot) {
		t.Fatal("expected newly-allocated slot to be occupied")
	}

	buf := make([]byte, sf.RecordSize())
	record.EncodeNode(buf, sf.Layout(), record.Node{ID: 1, Self: slot, Key: []byte("alice")})
	if err := sf.WriteSlot(slot, buf); err != nil {
		t.Fatalf("WriteSlot: %v", err)
	}

	got, err := sf.ReadSlot(slot)
	if err != nil {
		t.Fatalf("ReadSlot: %v", err)
	}
	n := record.DecodeNode(got, sf.Layout())
	if n.ID != 1 || string(n.Key) != "alice" {
		t.Fatalf("unexpected decoded node: %+v", n)
	}
}

func TestFreeAndReallocate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "g.knot")
	sf, err := Create(path, 4, testLayout())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer sf.Close()

	a, _ := sf.Allocate()
	b, _ := sf.Allocate()
	if err := sf.Free(a); err != nil {
		t.Fatalf("Free: %v", err)
	}
	if sf.IsOccupied(a) {
		t.Fatal("expected freed slot to no longer be occupied")
	}

	c, err := sf.Allocate()
	if err != nil {
		t.Fatalf("Allocate after free: %v", err)
	}
	if c != a {
		t.Fatalf("expected freelist reuse to return slot %d, got %d", a, c)
	}
	if b == c {
		t.Fatal("b and c should be distinct slots")
	}
}

func TestBucketPointerRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "g.knot")
	sf, err := Create(path, 4, testLayout())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer sf.Close()

	if err := sf.SetBucketPointer(2, 99); err != nil {
		t.Fatalf("SetBucketPointer: %v", err)
	}
	got, err := sf.BucketPointer(2)
	if err != nil {
		t.Fatalf("BucketPointer: %v", err)
	}
	if got != 99 {
		t.Fatalf("expected bucket pointer 99, got %d", got)
	}
}

func TestOccupancyRebuiltOnOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "g.knot")
	sf, err := Create(path, 4, testLayout())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	a, _ := sf.Allocate()
	b, _ := sf.Allocate()
	sf.Free(a)
	sf.Close()

	reopened, err := Open(path, false)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer reopened.Close()

	if reopened.IsOccupied(a) {
		t.Fatal("freed slot should remain unoccupied after reopen")
	}
	if !reopened.IsOccupied(b) {
		t.Fatal("live slot should remain occupied after reopen")
	}
}

func TestOpenRejectsCorruptHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "g.knot")
	sf, err := Create(path, 4, testLayout())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	sf.Close()

	if err := corruptMagic(path); err != nil {
		t.Fatalf("corruptMagic: %v", err)
	}
	if _, err := Open(path, false); err == nil {
		t.Fatal("expected Open to reject a corrupted header")
	}
}

func TestNextNodeIDIncrements(t *testing.T) {
	path := filepath.Join(t.TempDir(), "g.knot")
	sf, err := Create(path, 4, testLayout())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer sf.Close()

	first, err := sf.NextNodeID()
	if err != nil {
		t.Fatalf("NextNodeID: %v", err)
	}
	second, err := sf.NextNodeID()
	if err != nil {
		t.Fatalf("NextNodeID: %v", err)
	}
	if second != first+1 {
		t.Fatalf("expected sequential ids, got %d then %d", first, second)
	}
}
