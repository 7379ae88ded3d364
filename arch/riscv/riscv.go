package riscv

import (
	"bytes"

	"github.com/wnxd/tracedbg/arch"
)

// Unconditional breakpoint traps, little-endian instruction bytes.
var (
	ebreak  = []byte{0x73, 0x00, 0x10, 0x00} // 32'h00100073
	cebreak = []byte{0x02, 0x90}             // 16'h9002
)

var abiName = []string{
	"zero", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"s0", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
	"a6", "a7", "s2", "s3", "s4", "s5", "s6", "s7",
	"s8", "s9", "s10", "s11", "t3", "t4", "t5", "t6",
}

type adapter struct {
	arch arch.Arch
}

func init() {
	arch.Register(arch.ARCH_RISCV32, adapter{arch.ARCH_RISCV32})
	arch.Register(arch.ARCH_RISCV64, adapter{arch.ARCH_RISCV64})
}

func (a adapter) Arch() arch.Arch {
	return a.arch
}

func (a adapter) IsSoftBreak(inst []byte) bool {
	if len(inst) >= 4 && bytes.Equal(inst[:4], ebreak) {
		return true
	}
	// compressed encodings have the two low bits clear of 2'b11
	return len(inst) >= 2 && inst[0]&3 != 3 && bytes.Equal(inst[:2], cebreak)
}

func (a adapter) RegName(index int) string {
	if index < len(abiName) {
		return abiName[index]
	}
	if index == len(abiName) {
		return "pc"
	}
	return ""
}
