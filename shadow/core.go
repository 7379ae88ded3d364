package shadow

import (
	"bytes"

	"github.com/wnxd/tracedbg/arch"
)

// Core is the shadow of one CPU core: its register file, core local
// memory map and core bound points.
type Core[XLEN arch.Word] struct {
	Reg    *RegisterFile[XLEN]
	Mem    *MemoryMap[XLEN]
	Points *PointSet[XLEN]

	shared *MemoryMap[XLEN] // system memory, fallback for core misses

	cnt int            // instructions applied on this core
	ret *Retired[XLEN] // most recently applied record
	pcs []XLEN         // program counter before each applied record
}

func newCore[XLEN arch.Word](cfg *arch.Core[XLEN], flen, vlen int, shared *MemoryMap[XLEN]) (*Core[XLEN], error) {
	mem, err := NewMemoryMap(cfg.Mem, cfg.IO)
	if err != nil {
		return nil, err
	}
	return &Core[XLEN]{
		Reg:    NewRegisterFile(cfg, flen, vlen),
		Mem:    mem,
		Points: NewPointSet[XLEN](),
		shared: shared,
	}, nil
}

// Count returns the number of instructions currently applied on the core.
func (c *Core[XLEN]) Count() int {
	return c.cnt
}

// Retired returns the most recently applied record, or nil.
func (c *Core[XLEN]) Retired() *Retired[XLEN] {
	return c.ret
}

// route picks the memory map responsible for addr: the core local map
// when it covers the address, the shared system map otherwise.
func (c *Core[XLEN]) route(addr XLEN) *MemoryMap[XLEN] {
	if c.Mem.Mapped(addr) || c.shared == nil {
		return c.Mem
	}
	return c.shared
}

// MemRead reads through the core local map with system fallback.
func (c *Core[XLEN]) MemRead(addr XLEN, size int) ([]byte, error) {
	return c.route(addr).Read(addr, size)
}

// MemWrite writes through the core local map with system fallback.
func (c *Core[XLEN]) MemWrite(addr XLEN, data []byte) error {
	return c.route(addr).Write(addr, data)
}

// Apply commits one retired record to the shadow. Every register
// write-back is checked against the recorded prior value first. The
// returned slice holds the memory bytes overwritten by a store, for the
// reverse direction.
func (c *Core[XLEN]) Apply(ret *Retired[XLEN]) ([]byte, error) {
	for _, g := range ret.Gpr {
		cur, err := c.Reg.Read(GPR, int(g.Idx))
		if err != nil {
			return nil, err
		}
		if cur != uint64(g.Rdt) {
			return nil, &CorruptionError{Bank: GPR, Index: int(g.Idx), Want: uint64(g.Rdt), Have: cur}
		}
		c.Reg.Exchange(GPR, int(g.Idx), uint64(g.Wdt))
	}
	for _, f := range ret.Fpr {
		cur, err := c.Reg.Read(FPR, int(f.Idx))
		if err != nil {
			return nil, err
		}
		if cur != f.Rdt {
			return nil, &CorruptionError{Bank: FPR, Index: int(f.Idx), Want: f.Rdt, Have: cur}
		}
		c.Reg.Exchange(FPR, int(f.Idx), f.Wdt)
	}
	for _, v := range ret.Vec {
		cur, err := c.Reg.ReadVec(int(v.Idx))
		if err != nil {
			return nil, err
		}
		if !bytes.Equal(cur, v.Rdt) {
			return nil, &CorruptionError{Bank: VEC, Index: int(v.Idx)}
		}
		c.Reg.ExchangeVec(int(v.Idx), v.Wdt)
	}
	for _, r := range ret.Csr {
		cur, err := c.Reg.Read(CSR, int(r.Idx))
		if err != nil {
			return nil, err
		}
		if cur != uint64(r.Rdt) {
			return nil, &CorruptionError{Bank: CSR, Index: int(r.Idx), Want: uint64(r.Rdt), Have: cur}
		}
		c.Reg.Exchange(CSR, int(r.Idx), uint64(r.Wdt))
	}
	var undo []byte
	if len(ret.Lsu.Wdt) > 0 {
		prior, err := c.MemRead(ret.Lsu.Adr, len(ret.Lsu.Wdt))
		if err == ErrUnmappedAddress {
			// the store creates sparse entries; they read as zero once undone
			prior, err = make([]byte, len(ret.Lsu.Wdt)), nil
		}
		if err != nil {
			return nil, err
		}
		undo = append(undo, prior...)
		if err := c.MemWrite(ret.Lsu.Adr, ret.Lsu.Wdt); err != nil {
			return nil, err
		}
	}
	c.pcs = append(c.pcs, c.Reg.PC())
	c.Reg.SetPC(ret.Ifu.Pcn)
	c.cnt++
	c.ret = ret
	return undo, nil
}

// Unapply reverses one retired record. Current values must equal the
// recorded write data, and are replaced with the prior values; undo is
// the memory image saved by Apply.
func (c *Core[XLEN]) Unapply(ret *Retired[XLEN], undo []byte) error {
	for _, g := range ret.Gpr {
		cur, err := c.Reg.Read(GPR, int(g.Idx))
		if err != nil {
			return err
		}
		// gpr[0] write-backs were dropped on apply
		if g.Idx != 0 && cur != uint64(g.Wdt) {
			return &CorruptionError{Bank: GPR, Index: int(g.Idx), Want: uint64(g.Wdt), Have: cur}
		}
		c.Reg.Exchange(GPR, int(g.Idx), uint64(g.Rdt))
	}
	for _, f := range ret.Fpr {
		cur, err := c.Reg.Read(FPR, int(f.Idx))
		if err != nil {
			return err
		}
		if cur != f.Wdt {
			return &CorruptionError{Bank: FPR, Index: int(f.Idx), Want: f.Wdt, Have: cur}
		}
		c.Reg.Exchange(FPR, int(f.Idx), f.Rdt)
	}
	for _, v := range ret.Vec {
		cur, err := c.Reg.ReadVec(int(v.Idx))
		if err != nil {
			return err
		}
		if !bytes.Equal(cur, v.Wdt) {
			return &CorruptionError{Bank: VEC, Index: int(v.Idx)}
		}
		c.Reg.ExchangeVec(int(v.Idx), v.Rdt)
	}
	for _, r := range ret.Csr {
		cur, err := c.Reg.Read(CSR, int(r.Idx))
		if err != nil {
			return err
		}
		if cur != uint64(r.Wdt) {
			return &CorruptionError{Bank: CSR, Index: int(r.Idx), Want: uint64(r.Wdt), Have: cur}
		}
		c.Reg.Exchange(CSR, int(r.Idx), uint64(r.Rdt))
	}
	if len(ret.Lsu.Wdt) > 0 {
		cur, err := c.MemRead(ret.Lsu.Adr, len(ret.Lsu.Wdt))
		if err != nil {
			return err
		}
		if !bytes.Equal(cur, ret.Lsu.Wdt) {
			return &CorruptionError{Bank: MEM, Index: int(ret.Lsu.Adr)}
		}
		if err := c.MemWrite(ret.Lsu.Adr, undo); err != nil {
			return err
		}
	}
	if n := len(c.pcs); n > 0 {
		c.Reg.SetPC(c.pcs[n-1])
		c.pcs = c.pcs[:n-1]
	} else {
		c.Reg.SetPC(ret.Ifu.Adr)
	}
	c.cnt--
	c.ret = ret
	return nil
}
