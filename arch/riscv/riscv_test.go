package riscv

import (
	"testing"

	"github.com/wnxd/tracedbg/arch"
)

func TestRegistered(t *testing.T) {
	for _, a := range []arch.Arch{arch.ARCH_RISCV32, arch.ARCH_RISCV64} {
		if _, ok := arch.Lookup(a); !ok {
			t.Errorf("arch %v not registered", a)
		}
	}
}

func TestIsSoftBreak(t *testing.T) {
	adapter, _ := arch.Lookup(arch.ARCH_RISCV32)
	tests := []struct {
		name string
		inst []byte
		want bool
	}{
		{"ebreak", []byte{0x73, 0x00, 0x10, 0x00}, true},
		{"c.ebreak", []byte{0x02, 0x90}, true},
		{"addi", []byte{0x13, 0x05, 0xa0, 0x02}, false},
		{"ecall", []byte{0x73, 0x00, 0x00, 0x00}, false},
		{"c.nop", []byte{0x01, 0x00}, false},
		{"short", []byte{0x73}, false},
		{"empty", nil, false},
	}
	for _, tt := range tests {
		if got := adapter.IsSoftBreak(tt.inst); got != tt.want {
			t.Errorf("%s: IsSoftBreak = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestRegName(t *testing.T) {
	adapter, _ := arch.Lookup(arch.ARCH_RISCV32)
	tests := []struct {
		index int
		want  string
	}{
		{0, "zero"},
		{1, "ra"},
		{2, "sp"},
		{10, "a0"},
		{31, "t6"},
		{32, "pc"},
		{33, ""},
	}
	for _, tt := range tests {
		if got := adapter.RegName(tt.index); got != tt.want {
			t.Errorf("RegName(%d) = %q, want %q", tt.index, got, tt.want)
		}
	}
}
