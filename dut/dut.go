// Package dut is the interface to the live simulated device. The shadow
// is the default source of truth; these callbacks exist so the operator
// can redirect register and memory reads to the running simulator, and
// so reset and waveform requests reach it.
package dut

import "errors"

var ErrNotAttached = errors.New("no simulator attached")

// DUT is the narrow capability surface the simulator exposes. Register
// indices follow the flat debugger enumeration.
type DUT interface {
	RegRead(index int) (uint64, error)
	RegWrite(index int, value uint64) error
	MemRead(addr uint64, size int) ([]byte, error)
	MemWrite(addr uint64, data []byte) error
	ResetAssert() error
	ResetRelease() error
	WaveformDump(on bool) error
}

// Headless is the stand-in when the server replays a recorded trace
// with no simulator attached. Writes are accepted and dropped; reads
// fail so misdirected sourcing is visible to the operator.
type Headless struct{}

func (Headless) RegRead(index int) (uint64, error) {
	return 0, ErrNotAttached
}

func (Headless) RegWrite(index int, value uint64) error {
	return nil
}

func (Headless) MemRead(addr uint64, size int) ([]byte, error) {
	return nil, ErrNotAttached
}

func (Headless) MemWrite(addr uint64, data []byte) error {
	return nil
}

func (Headless) ResetAssert() error {
	return nil
}

func (Headless) ResetRelease() error {
	return nil
}

func (Headless) WaveformDump(on bool) error {
	return nil
}
