package server

import (
	"path/filepath"
	"testing"

	"github.com/wnxd/tracedbg/arch"
	_ "github.com/wnxd/tracedbg/arch/riscv"
	"github.com/wnxd/tracedbg/socket"
)

func testConfig() *arch.Config[uint32] {
	return &arch.Config[uint32]{
		Arch: arch.ARCH_RISCV32,
		Core: []arch.Core[uint32]{{
			Mem: []arch.Block[uint32]{{Base: 0x8000_0000, Size: 0x1000}},
		}},
	}
}

func TestNew(t *testing.T) {
	srv, err := New(testConfig(), Options{
		Network: socket.Unix,
		Addr:    filepath.Join(t.TempDir(), "unix-socket"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if srv.Shadow() == nil {
		t.Error("Shadow() = nil")
	}
	if err := srv.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestNewBadInput(t *testing.T) {
	_, err := New(testConfig(), Options{
		Network: socket.Unix,
		Addr:    filepath.Join(t.TempDir(), "unix-socket"),
		Input:   filepath.Join(t.TempDir(), "missing.bin"),
	})
	if err == nil {
		t.Fatal("missing trace input accepted")
	}
}

func TestNewBadConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Core[0].Mem[0].Base = 0x8000_0001
	if _, err := New(cfg, Options{Network: socket.Unix, Addr: "unix-socket"}); err == nil {
		t.Fatal("unaligned configuration accepted")
	}
}
