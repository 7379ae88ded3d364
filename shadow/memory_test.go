package shadow

import (
	"bytes"
	"testing"

	"github.com/wnxd/tracedbg/arch"
)

func testMap(t *testing.T) *MemoryMap[uint32] {
	t.Helper()
	m, err := NewMemoryMap(
		[]arch.Block[uint32]{
			{Base: 0x8000_0000, Size: 0x1000},
			{Base: 0x9000_0000, Size: 0x1000},
		},
		[]arch.Block[uint32]{{Base: 0x8001_0000, Size: 0x100}},
	)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestMemoryReadWrite(t *testing.T) {
	m := testMap(t)
	data := []byte{0x13, 0x05, 0xa0, 0x02}
	if err := m.Write(0x8000_0000, data); err != nil {
		t.Fatal(err)
	}
	got, err := m.Read(0x8000_0000, 4)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("Read = %x, want %x", got, data)
	}
}

func TestMemoryBlockOffsets(t *testing.T) {
	m := testMap(t)
	m.Write(0x9000_0ffc, []byte{0xaa, 0xbb, 0xcc, 0xdd})
	got, err := m.Read(0x9000_0ffc, 4)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte{0xaa, 0xbb, 0xcc, 0xdd}) {
		t.Errorf("second block Read = %x", got)
	}
	// the backing buffer is contiguous across blocks
	if len(m.Buffer()) != 0x2000 {
		t.Errorf("Buffer() length = %#x, want 0x2000", len(m.Buffer()))
	}
}

func TestMemoryIO(t *testing.T) {
	m := testMap(t)
	if err := m.Write(0x8001_0004, []byte{0x5a}); err != nil {
		t.Fatal(err)
	}
	got, err := m.Read(0x8001_0004, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got[0] != 0x5a {
		t.Errorf("io byte = %#x, want 0x5a", got[0])
	}
	// unwritten bytes inside an MMIO block read as zero
	got, err = m.Read(0x8001_0008, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got[0] != 0 {
		t.Errorf("unwritten io byte = %#x, want 0", got[0])
	}
}

func TestMemoryUnmapped(t *testing.T) {
	m := testMap(t)
	if _, err := m.Read(0x1000, 4); err != ErrUnmappedAddress {
		t.Errorf("Read unmapped: err = %v, want %v", err, ErrUnmappedAddress)
	}
	// writes to unmapped space fall back to the sparse map
	if err := m.Write(0x1000, []byte{1}); err != nil {
		t.Fatal(err)
	}
	got, err := m.Read(0x1000, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got[0] != 1 {
		t.Errorf("sparse byte = %#x, want 1", got[0])
	}
}

func TestMemoryLoadStore(t *testing.T) {
	m := testMap(t)
	if err := Store(m, uint32(0x8000_0010), uint32(0x0102_0304)); err != nil {
		t.Fatal(err)
	}
	v, err := Load[uint32](m, uint32(0x8000_0010))
	if err != nil {
		t.Fatal(err)
	}
	if v != 0x0102_0304 {
		t.Errorf("Load = %#x, want 0x01020304", v)
	}
	b, _ := m.Read(0x8000_0010, 4)
	if !bytes.Equal(b, []byte{0x04, 0x03, 0x02, 0x01}) {
		t.Errorf("stored bytes = %x, want little-endian order", b)
	}
}
