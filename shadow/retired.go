package shadow

import "github.com/wnxd/tracedbg/arch"

// RetiredIfu is the instruction fetch part of a retired record.
type RetiredIfu[XLEN arch.Word] struct {
	Adr XLEN   // instruction address (current PC)
	Pcn XLEN   // next PC
	Rdt []byte // instruction bytes
	Ill bool   // illegal instruction
}

// RetiredGpr is one GPR write-back: prior value and new value.
type RetiredGpr[XLEN arch.Word] struct {
	Idx uint8
	Rdt XLEN
	Wdt XLEN
}

// RetiredFpr is one FPR write-back. Values are FLEN wide, stored in the
// low bits.
type RetiredFpr struct {
	Idx uint8
	Rdt uint64
	Wdt uint64
}

// RetiredVec is one vector register write-back, VLEN/8 bytes per value.
type RetiredVec struct {
	Idx uint8
	Rdt []byte
	Wdt []byte
}

// RetiredCsr is one CSR write-back.
type RetiredCsr[XLEN arch.Word] struct {
	Idx uint16
	Rdt XLEN
	Wdt XLEN
}

// RetiredLsu is the data access of a retired record. Empty Rdt means no
// load, empty Wdt means no store; the access size is the slice length.
type RetiredLsu[XLEN arch.Word] struct {
	Adr XLEN
	Rdt []byte
	Wdt []byte
}

// Retired is one committed instruction as reported by the simulator.
type Retired[XLEN arch.Word] struct {
	Hart uint8 // core the instruction retired on
	Ifu  RetiredIfu[XLEN]
	Gpr  []RetiredGpr[XLEN]
	Fpr  []RetiredFpr
	Vec  []RetiredVec
	Csr  []RetiredCsr[XLEN]
	Lsu  RetiredLsu[XLEN]
}
