package shadow

import (
	"unsafe"

	"github.com/wnxd/tracedbg/arch"
	"golang.org/x/exp/constraints"
)

// MemoryMap backs the RAM-like blocks of an address map with one
// contiguous buffer and the MMIO blocks with a sparse byte map. RAM takes
// precedence when an access spans both categories.
type MemoryMap[XLEN arch.Word] struct {
	mem []arch.Block[XLEN]
	off []int // cumulative buffer offset per mem block
	buf []byte
	io  []arch.Block[XLEN]
	spr map[XLEN]byte
}

func NewMemoryMap[XLEN arch.Word](mem, io []arch.Block[XLEN]) (*MemoryMap[XLEN], error) {
	align := XLEN(arch.WordBytes[XLEN]())
	for i, b := range append(append([]arch.Block[XLEN]{}, mem...), io...) {
		if arch.Align(b.Base, align) != b.Base || arch.Align(b.Size, align) != b.Size {
			return nil, &arch.ConfigError{Reason: "unaligned block", Block: i}
		}
	}
	m := &MemoryMap[XLEN]{
		mem: mem,
		io:  io,
		off: make([]int, len(mem)),
		spr: make(map[XLEN]byte),
	}
	var total int
	for i, b := range mem {
		m.off[i] = total
		total += int(b.Size)
	}
	m.buf = make([]byte, total)
	return m, nil
}

// block returns the mem block index covering addr, or -1.
func (m *MemoryMap[XLEN]) block(addr XLEN) int {
	for i, b := range m.mem {
		if b.Contains(addr) {
			return i
		}
	}
	return -1
}

func (m *MemoryMap[XLEN]) inIO(addr XLEN) bool {
	for _, b := range m.io {
		if b.Contains(addr) {
			return true
		}
	}
	return false
}

// Mapped reports whether addr belongs to either category.
func (m *MemoryMap[XLEN]) Mapped(addr XLEN) bool {
	return m.block(addr) >= 0 || m.inIO(addr)
}

// Read returns size bytes starting at addr. A range fully inside one RAM
// block is a view into the backing buffer; anything else is assembled
// byte by byte, RAM first, then the sparse MMIO map.
func (m *MemoryMap[XLEN]) Read(addr XLEN, size int) ([]byte, error) {
	if i := m.block(addr); i >= 0 {
		b := m.mem[i]
		off := m.off[i] + int(addr-b.Base)
		if int(addr-b.Base)+size <= int(b.Size) {
			return m.buf[off : off+size], nil
		}
	}
	out := make([]byte, size)
	for n := 0; n < size; n++ {
		a := addr + XLEN(n)
		if i := m.block(a); i >= 0 {
			out[n] = m.buf[m.off[i]+int(a-m.mem[i].Base)]
		} else if v, ok := m.spr[a]; ok {
			out[n] = v
		} else if !m.inIO(a) {
			return nil, ErrUnmappedAddress
		}
	}
	return out, nil
}

// Write stores data starting at addr. Bytes outside every RAM block fall
// back to the sparse MMIO map, creating entries.
func (m *MemoryMap[XLEN]) Write(addr XLEN, data []byte) error {
	for n := range data {
		a := addr + XLEN(n)
		if i := m.block(a); i >= 0 {
			m.buf[m.off[i]+int(a-m.mem[i].Base)] = data[n]
		} else {
			m.spr[a] = data[n]
		}
	}
	return nil
}

// Buffer exposes the contiguous RAM backing store, used by snapshots.
func (m *MemoryMap[XLEN]) Buffer() []byte {
	return m.buf
}

// Load reads one typed value, used during trace application.
func Load[T constraints.Unsigned, XLEN arch.Word](m *MemoryMap[XLEN], addr XLEN) (T, error) {
	var v T
	b, err := m.Read(addr, int(unsafe.Sizeof(v)))
	if err != nil {
		return 0, err
	}
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | T(b[i])
	}
	return v, nil
}

// Store writes one typed value, used during trace application.
func Store[T constraints.Unsigned, XLEN arch.Word](m *MemoryMap[XLEN], addr XLEN, v T) error {
	b := make([]byte, unsafe.Sizeof(v))
	for i := range b {
		b[i] = byte(v)
		v >>= 8
	}
	return m.Write(addr, b)
}
