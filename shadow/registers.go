package shadow

import (
	"encoding/binary"

	"github.com/wnxd/tracedbg/arch"
)

// Bank selects one of the per-core register files.
type Bank int

const (
	GPR Bank = iota
	PC
	FPR
	VEC
	CSR
	MEM // diagnostics only, not a register bank
)

func (b Bank) String() string {
	switch b {
	case GPR:
		return "gpr"
	case PC:
		return "pc"
	case FPR:
		return "fpr"
	case VEC:
		return "vec"
	case CSR:
		return "csr"
	case MEM:
		return "mem"
	}
	return "?"
}

// RegisterFile holds the architectural registers of one core. The DUT view
// addresses registers by (bank, index); the debugger view is a flat
// enumeration concatenating the visible banks in the fixed order
// GPR, PC, FPR, VEC, visible CSR.
type RegisterFile[XLEN arch.Word] struct {
	gpr []XLEN
	pc  XLEN
	fpr []uint64
	vec [][]byte
	csr map[uint16]XLEN

	visible   []uint16 // visible CSR indices, ascending
	flenBytes int
	vlenBytes int
}

func NewRegisterFile[XLEN arch.Word](core *arch.Core[XLEN], flen, vlen int) *RegisterFile[XLEN] {
	rf := &RegisterFile[XLEN]{
		gpr:     make([]XLEN, core.Ext.NGPR()),
		csr:     make(map[uint16]XLEN),
		visible: core.CSR.Indices(),
	}
	if core.Ext.F {
		rf.fpr = make([]uint64, 32)
		rf.flenBytes = flen / 8
	}
	if core.Ext.V {
		rf.vec = make([][]byte, 32)
		rf.vlenBytes = vlen / 8
		for i := range rf.vec {
			rf.vec[i] = make([]byte, rf.vlenBytes)
		}
	}
	return rf
}

////////////////////////////////////////
// DUT view
////////////////////////////////////////

// Exchange replaces a scalar register and returns the previous value.
// Writes to gpr[0] are dropped, the register stays hardwired to zero.
func (rf *RegisterFile[XLEN]) Exchange(bank Bank, index int, value uint64) (uint64, error) {
	switch bank {
	case GPR:
		if index >= len(rf.gpr) {
			return 0, ErrUnknownRegister
		}
		old := uint64(rf.gpr[index])
		if index != 0 {
			rf.gpr[index] = XLEN(value)
		}
		return old, nil
	case PC:
		old := uint64(rf.pc)
		rf.pc = XLEN(value)
		return old, nil
	case FPR:
		if index >= len(rf.fpr) {
			return 0, ErrUnknownRegister
		}
		old := rf.fpr[index]
		rf.fpr[index] = value
		return old, nil
	case CSR:
		if index >= 4096 {
			return 0, ErrUnknownRegister
		}
		old := uint64(rf.csr[uint16(index)])
		rf.csr[uint16(index)] = XLEN(value)
		return old, nil
	}
	return 0, ErrUnknownRegister
}

// Read returns the current value of a scalar register.
func (rf *RegisterFile[XLEN]) Read(bank Bank, index int) (uint64, error) {
	switch bank {
	case GPR:
		if index >= len(rf.gpr) {
			return 0, ErrUnknownRegister
		}
		return uint64(rf.gpr[index]), nil
	case PC:
		return uint64(rf.pc), nil
	case FPR:
		if index >= len(rf.fpr) {
			return 0, ErrUnknownRegister
		}
		return rf.fpr[index], nil
	case CSR:
		if index >= 4096 {
			return 0, ErrUnknownRegister
		}
		return uint64(rf.csr[uint16(index)]), nil
	}
	return 0, ErrUnknownRegister
}

// ExchangeVec replaces a vector register and returns the previous value.
func (rf *RegisterFile[XLEN]) ExchangeVec(index int, value []byte) ([]byte, error) {
	if index >= len(rf.vec) {
		return nil, ErrUnknownRegister
	}
	old := rf.vec[index]
	v := make([]byte, rf.vlenBytes)
	copy(v, value)
	rf.vec[index] = v
	return old, nil
}

func (rf *RegisterFile[XLEN]) ReadVec(index int) ([]byte, error) {
	if index >= len(rf.vec) {
		return nil, ErrUnknownRegister
	}
	return rf.vec[index], nil
}

// PC returns the program counter.
func (rf *RegisterFile[XLEN]) PC() XLEN {
	return rf.pc
}

func (rf *RegisterFile[XLEN]) SetPC(pc XLEN) {
	rf.pc = pc
}

////////////////////////////////////////
// debugger view
////////////////////////////////////////

// slot describes one entry of the flat register enumeration.
type slot struct {
	bank  Bank
	index int
	size  int
}

func (rf *RegisterFile[XLEN]) slots() []slot {
	xb := arch.WordBytes[XLEN]()
	slots := make([]slot, 0, len(rf.gpr)+1+len(rf.fpr)+len(rf.vec)+len(rf.visible))
	for i := range rf.gpr {
		slots = append(slots, slot{GPR, i, xb})
	}
	slots = append(slots, slot{PC, 0, xb})
	for i := range rf.fpr {
		slots = append(slots, slot{FPR, i, rf.flenBytes})
	}
	for i := range rf.vec {
		slots = append(slots, slot{VEC, i, rf.vlenBytes})
	}
	for _, idx := range rf.visible {
		slots = append(slots, slot{CSR, int(idx), xb})
	}
	return slots
}

// Len returns the number of slots in the debugger view.
func (rf *RegisterFile[XLEN]) Len() int {
	return len(rf.gpr) + 1 + len(rf.fpr) + len(rf.vec) + len(rf.visible)
}

// Size returns the byte length of the flat register image.
func (rf *RegisterFile[XLEN]) Size() int {
	var size int
	for _, s := range rf.slots() {
		size += s.size
	}
	return size
}

func (rf *RegisterFile[XLEN]) slotBytes(s slot) []byte {
	b := make([]byte, s.size)
	switch s.bank {
	case VEC:
		copy(b, rf.vec[s.index])
	default:
		v, _ := rf.Read(s.bank, s.index)
		putLE(b, v)
	}
	return b
}

func (rf *RegisterFile[XLEN]) setSlot(s slot, b []byte) {
	switch s.bank {
	case VEC:
		rf.ExchangeVec(s.index, b)
	default:
		rf.Exchange(s.bank, s.index, getLE(b))
	}
}

// ReadAll returns the canonical little-endian register image.
func (rf *RegisterFile[XLEN]) ReadAll() []byte {
	buf := make([]byte, 0, rf.Size())
	for _, s := range rf.slots() {
		buf = append(buf, rf.slotBytes(s)...)
	}
	return buf
}

// WriteAll accepts the canonical register image. The length must match
// exactly.
func (rf *RegisterFile[XLEN]) WriteAll(image []byte) error {
	if len(image) != rf.Size() {
		return ErrMalformedImage
	}
	var off int
	for _, s := range rf.slots() {
		rf.setSlot(s, image[off:off+s.size])
		off += s.size
	}
	return nil
}

// ReadOne returns the bytes of a single slot of the debugger view.
func (rf *RegisterFile[XLEN]) ReadOne(index int) ([]byte, error) {
	slots := rf.slots()
	if index < 0 || index >= len(slots) {
		return nil, ErrUnknownRegister
	}
	return rf.slotBytes(slots[index]), nil
}

// WriteOne replaces a single slot of the debugger view.
func (rf *RegisterFile[XLEN]) WriteOne(index int, b []byte) error {
	slots := rf.slots()
	if index < 0 || index >= len(slots) {
		return ErrUnknownRegister
	}
	if len(b) != slots[index].size {
		return ErrMalformedImage
	}
	rf.setSlot(slots[index], b)
	return nil
}

func putLE(b []byte, v uint64) {
	switch len(b) {
	case 4:
		binary.LittleEndian.PutUint32(b, uint32(v))
	case 8:
		binary.LittleEndian.PutUint64(b, v)
	}
}

func getLE(b []byte) uint64 {
	switch len(b) {
	case 4:
		return uint64(binary.LittleEndian.Uint32(b))
	case 8:
		return binary.LittleEndian.Uint64(b)
	}
	return 0
}
