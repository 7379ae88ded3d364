package rsp

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/wnxd/tracedbg/arch"
	_ "github.com/wnxd/tracedbg/arch/riscv"
	"github.com/wnxd/tracedbg/shadow"
)

func testConfig() *arch.Config[uint32] {
	return &arch.Config[uint32]{
		Arch: arch.ARCH_RISCV32,
		Core: []arch.Core[uint32]{{
			Mem: []arch.Block[uint32]{{Base: 0x8000_0000, Size: 0x1_0000}},
			IO:  []arch.Block[uint32]{{Base: 0x8001_0000, Size: 0x100}},
		}},
		Mem: []arch.Block[uint32]{{Base: 0x8002_0000, Size: 0x1000}},
		IO:  []arch.Block[uint32]{{Base: 0x8003_0000, Size: 0x100}},
	}
}

func testProtocol(t *testing.T, trc []shadow.Retired[uint32]) (*Protocol[uint32], *testConn) {
	t.Helper()
	shd, err := shadow.NewSystem(testConfig())
	if err != nil {
		t.Fatal(err)
	}
	shd.LoadTrace(trc)
	f, conn := testFramer()
	log := logrus.New()
	log.SetOutput(io.Discard)
	p := NewProtocol(f, shd, nil, logrus.NewEntry(log))
	return p, conn
}

// exchange feeds one framed packet through Parse and returns the reply
// payload. Acknowledgement handling is exercised when enabled.
func exchange(t *testing.T, p *Protocol[uint32], conn *testConn, payload string) string {
	t.Helper()
	conn.in.WriteString(frame(payload))
	if p.state.Acknowledge {
		conn.in.WriteString("+") // future ack for the reply
	}
	req, err := p.f.Rx(p.state.Acknowledge)
	if err != nil {
		t.Fatalf("Rx(%q): %v", payload, err)
	}
	if err := p.Parse(req); err != nil {
		t.Fatalf("Parse(%q): %v", payload, err)
	}
	reply := conn.out.String()
	conn.out.Reset()
	reply = strings.TrimPrefix(reply, "+")
	if len(reply) < 4 || reply[0] != '$' || reply[len(reply)-3] != '#' {
		t.Fatalf("reply %q is not a frame", reply)
	}
	return reply[1 : len(reply)-3]
}

func noAck(p *Protocol[uint32]) {
	p.state.Acknowledge = false
}

func retiredAt(adr uint32) shadow.Retired[uint32] {
	return shadow.Retired[uint32]{
		Ifu: shadow.RetiredIfu[uint32]{Adr: adr, Pcn: adr + 4, Rdt: []byte{0x13, 0, 0, 0}},
	}
}

func TestReadAllRegistersZero(t *testing.T) {
	p, conn := testProtocol(t, nil)
	noAck(p)
	reply := exchange(t, p, conn, "g")
	want := strings.Repeat("00000000", 33) // 32 gpr + pc
	if reply != want {
		t.Errorf("g reply = %q, want %d zeros", reply, len(want))
	}
}

func TestMemoryRead(t *testing.T) {
	p, conn := testProtocol(t, nil)
	noAck(p)
	p.shd.MemWrite(0x8000_0000, []byte{0x13, 0x05, 0xa0, 0x02})
	reply := exchange(t, p, conn, "m80000000,4")
	if reply != "1305a002" {
		t.Errorf("m reply = %q, want 1305a002", reply)
	}
}

func TestMemoryWriteReadBack(t *testing.T) {
	p, conn := testProtocol(t, nil)
	noAck(p)
	if reply := exchange(t, p, conn, "M80000000,2:beef"); reply != "OK" {
		t.Fatalf("M reply = %q, want OK", reply)
	}
	if reply := exchange(t, p, conn, "m80000000,2"); reply != "beef" {
		t.Errorf("m reply = %q, want beef", reply)
	}
}

func TestHwbreakContinue(t *testing.T) {
	trc := []shadow.Retired[uint32]{
		retiredAt(0x8000_00f8),
		retiredAt(0x8000_00fc),
		retiredAt(0x8000_0100),
		retiredAt(0x8000_0104),
	}
	p, conn := testProtocol(t, trc)
	noAck(p)
	if reply := exchange(t, p, conn, "Z1,80000100,4"); reply != "OK" {
		t.Fatalf("Z reply = %q, want OK", reply)
	}
	if reply := exchange(t, p, conn, "c"); reply != "T05hwbreak:;" {
		t.Errorf("c reply = %q, want T05hwbreak:;", reply)
	}
	if p.shd.Cursor() != 3 {
		t.Errorf("cursor = %d, want 3", p.shd.Cursor())
	}
}

func TestReverseStepAtBegin(t *testing.T) {
	p, conn := testProtocol(t, []shadow.Retired[uint32]{retiredAt(0x8000_0000)})
	noAck(p)
	if reply := exchange(t, p, conn, "bs"); reply != "T05replaylog:begin;" {
		t.Errorf("bs reply = %q, want T05replaylog:begin;", reply)
	}
	if p.shd.Cursor() != 0 {
		t.Errorf("cursor = %d, want 0", p.shd.Cursor())
	}
}

func TestStepForward(t *testing.T) {
	trc := []shadow.Retired[uint32]{retiredAt(0x8000_0000), retiredAt(0x8000_0004)}
	p, conn := testProtocol(t, trc)
	noAck(p)
	if reply := exchange(t, p, conn, "s"); reply != "T05" {
		t.Errorf("s reply = %q, want T05", reply)
	}
	if p.shd.Cursor() != 1 {
		t.Errorf("cursor = %d, want 1", p.shd.Cursor())
	}
	// stepping past the end reports the replay log edge
	exchange(t, p, conn, "s")
	if reply := exchange(t, p, conn, "s"); reply != "T05replaylog:end;" {
		t.Errorf("s reply at end = %q, want T05replaylog:end;", reply)
	}
}

func TestQSupportedAndNoAckMode(t *testing.T) {
	p, conn := testProtocol(t, nil)
	reply := exchange(t, p, conn, "qSupported:multiprocess+;swbreak+;hwbreak+;xmlRegisters=i386")
	for _, want := range []string{"swbreak+", "hwbreak+", "ReverseStep+", "ReverseContinue+", "QStartNoAckMode+", "multiprocess-", "error-message+"} {
		if !strings.Contains(reply, want) {
			t.Errorf("qSupported reply %q missing %q", reply, want)
		}
	}
	if strings.HasSuffix(reply, ";") {
		t.Errorf("qSupported reply has a trailing semicolon: %q", reply)
	}
	if p.featClient["multiprocess"] != "+" || p.featClient["xmlRegisters"] != "i386" {
		t.Errorf("client features not recorded: %v", p.featClient)
	}
	if reply := exchange(t, p, conn, "QStartNoAckMode"); reply != "OK" {
		t.Fatalf("QStartNoAckMode reply = %q, want OK", reply)
	}
	if p.state.Acknowledge {
		t.Fatal("acknowledgements still enabled")
	}
	// no standalone +/- may appear after the switch
	conn.in.WriteString(frame("?"))
	req, _ := p.f.Rx(false)
	p.Parse(req)
	out := conn.out.String()
	if strings.HasPrefix(out, "+") || strings.HasPrefix(out, "-") {
		t.Errorf("control byte emitted in no-ack mode: %q", out)
	}
}

func TestStopReplyThreadFields(t *testing.T) {
	p, conn := testProtocol(t, nil)
	noAck(p)
	exchange(t, p, conn, "qSupported:multiprocess+")
	reply := exchange(t, p, conn, "?")
	if !strings.Contains(reply, "thread:p1.1;") || !strings.Contains(reply, "core:0;") {
		t.Errorf("? reply = %q, want thread and core fields", reply)
	}
}

func TestSignalInfoInitial(t *testing.T) {
	p, conn := testProtocol(t, nil)
	noAck(p)
	if reply := exchange(t, p, conn, "?"); reply != "T05" {
		t.Errorf("? reply = %q, want T05", reply)
	}
}

func TestWatchStopReply(t *testing.T) {
	trc := []shadow.Retired[uint32]{
		{
			Ifu: shadow.RetiredIfu[uint32]{Adr: 0x8000_0000, Pcn: 0x8000_0004, Rdt: []byte{0x23, 0x20, 0, 0}},
			Lsu: shadow.RetiredLsu[uint32]{Adr: 0x8000_2000, Wdt: []byte{1, 2}},
		},
	}
	p, conn := testProtocol(t, trc)
	noAck(p)
	exchange(t, p, conn, "Z2,80002000,2")
	if reply := exchange(t, p, conn, "c"); reply != "T05watch:80002000;" {
		t.Errorf("c reply = %q, want T05watch:80002000;", reply)
	}
}

func TestRegisterReadWriteOne(t *testing.T) {
	p, conn := testProtocol(t, nil)
	noAck(p)
	if reply := exchange(t, p, conn, "P5=efbeadde"); reply != "OK" {
		t.Fatalf("P reply = %q, want OK", reply)
	}
	if reply := exchange(t, p, conn, "p5"); reply != "efbeadde" {
		t.Errorf("p reply = %q, want efbeadde", reply)
	}
	if v, _ := p.shd.Current().Reg.Read(shadow.GPR, 5); v != 0xdeadbeef {
		t.Errorf("gpr[5] = %#x, want 0xdeadbeef", v)
	}
}

func TestRegisterWriteAll(t *testing.T) {
	p, conn := testProtocol(t, nil)
	noAck(p)
	image := strings.Repeat("00", 4) + "01000000" + strings.Repeat("00", 30*4) + "00100080"
	if reply := exchange(t, p, conn, "G"+image); reply != "OK" {
		t.Fatalf("G reply = %q, want OK", reply)
	}
	if v, _ := p.shd.Current().Reg.Read(shadow.GPR, 1); v != 1 {
		t.Errorf("gpr[1] = %#x, want 1", v)
	}
	if pc := p.shd.Current().Reg.PC(); pc != 0x8000_1000 {
		t.Errorf("pc = %#x, want 0x80001000", pc)
	}
	if reply := exchange(t, p, conn, "g"); reply != image {
		t.Errorf("g reply = %q, want the written image", reply)
	}
}

func TestUnknownRegisterError(t *testing.T) {
	p, conn := testProtocol(t, nil)
	noAck(p)
	reply := exchange(t, p, conn, "p63")
	if !strings.HasPrefix(reply, "E") {
		t.Errorf("p63 reply = %q, want an error", reply)
	}
}

func TestUnmappedMemoryError(t *testing.T) {
	p, conn := testProtocol(t, nil)
	noAck(p)
	if reply := exchange(t, p, conn, "m1000,4"); reply != "E02" {
		t.Errorf("m unmapped reply = %q, want E02", reply)
	}
	// after error-message+ the reply carries hex text
	exchange(t, p, conn, "qSupported:error-message+")
	reply := exchange(t, p, conn, "m1000,4")
	if !strings.HasPrefix(reply, "E.") {
		t.Errorf("m unmapped reply = %q, want E.<hex-text>", reply)
	}
}

func TestUnsupportedCommand(t *testing.T) {
	p, conn := testProtocol(t, nil)
	noAck(p)
	if reply := exchange(t, p, conn, "x80000000,4"); reply != "" {
		t.Errorf("x reply = %q, want empty", reply)
	}
	if reply := exchange(t, p, conn, "T1"); reply != "" {
		t.Errorf("T reply = %q, want empty", reply)
	}
}

func TestThreadInfo(t *testing.T) {
	p, conn := testProtocol(t, nil)
	noAck(p)
	if reply := exchange(t, p, conn, "qfThreadInfo"); reply != "m1" {
		t.Errorf("qfThreadInfo reply = %q, want m1", reply)
	}
	if reply := exchange(t, p, conn, "qsThreadInfo"); reply != "l" {
		t.Errorf("qsThreadInfo reply = %q, want l", reply)
	}
	if reply := exchange(t, p, conn, "qC"); reply != "QC1" {
		t.Errorf("qC reply = %q, want QC1", reply)
	}
	if reply := exchange(t, p, conn, "Hg1"); reply != "OK" {
		t.Errorf("Hg1 reply = %q, want OK", reply)
	}
	if reply := exchange(t, p, conn, "Hc-1"); reply != "OK" {
		t.Errorf("Hc-1 reply = %q, want OK", reply)
	}
}

func TestMonitorCommands(t *testing.T) {
	p, conn := testProtocol(t, nil)
	noAck(p)
	rcmd := func(line string) string {
		t.Helper()
		reply := exchange(t, p, conn, "qRcmd,"+fmt.Sprintf("%x", line))
		text, err := hexToBin(reply)
		if err != nil {
			t.Fatalf("qRcmd reply %q is not hex", reply)
		}
		return string(text)
	}
	if out := rcmd("set register=dut"); !strings.Contains(out, "DUT") {
		t.Errorf("reply = %q", out)
	}
	if !p.state.DutRegister {
		t.Error("register sourcing flag not set")
	}
	rcmd("set register=shadow")
	if p.state.DutRegister {
		t.Error("register sourcing flag not cleared")
	}
	rcmd("set memory=dut")
	if !p.state.DutMemory {
		t.Error("memory sourcing flag not set")
	}
	rcmd("set memory=shadow")
	if out := rcmd("help"); !strings.Contains(out, "monitor commands") {
		t.Errorf("help reply = %q", out)
	}
	if out := rcmd("set bogus"); !strings.Contains(out, "not recognised") {
		t.Errorf("unknown command reply = %q", out)
	}
	rcmd("set remote log on")
	if !p.state.RemoteLog {
		t.Error("remote log flag not set")
	}
	rcmd("set remote log off")
}

func TestVCont(t *testing.T) {
	trc := []shadow.Retired[uint32]{retiredAt(0x8000_0000), retiredAt(0x8000_0004)}
	p, conn := testProtocol(t, trc)
	noAck(p)
	if reply := exchange(t, p, conn, "vCont?"); reply != "vCont;c;C;s;S" {
		t.Errorf("vCont? reply = %q", reply)
	}
	if reply := exchange(t, p, conn, "vCont;s:1"); reply != "T05" {
		t.Errorf("vCont;s reply = %q, want T05", reply)
	}
	if reply := exchange(t, p, conn, "vCont;c"); reply != "T05replaylog:end;" {
		t.Errorf("vCont;c reply = %q, want T05replaylog:end;", reply)
	}
}

func TestDetachAndKill(t *testing.T) {
	p, conn := testProtocol(t, nil)
	noAck(p)
	conn.in.WriteString(frame("D"))
	req, _ := p.f.Rx(false)
	if err := p.Parse(req); err != ErrDetach {
		t.Errorf("D: err = %v, want %v", err, ErrDetach)
	}
	if got := conn.out.String(); got != "$OK#9a" {
		t.Errorf("D reply = %q, want $OK#9a", got)
	}
	conn.out.Reset()
	conn.in.WriteString(frame("k"))
	req, _ = p.f.Rx(false)
	if err := p.Parse(req); err != ErrKill {
		t.Errorf("k: err = %v, want %v", err, ErrKill)
	}
}

func TestExtendedMode(t *testing.T) {
	p, conn := testProtocol(t, nil)
	noAck(p)
	if reply := exchange(t, p, conn, "!"); reply != "OK" {
		t.Errorf("! reply = %q, want OK", reply)
	}
	if !p.state.Extended {
		t.Error("extended flag not set")
	}
}

func TestInterruptPacket(t *testing.T) {
	p, conn := testProtocol(t, nil)
	noAck(p)
	conn.in.Write([]byte{0x03})
	req, err := p.f.Rx(false)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Parse(req); err != nil {
		t.Fatal(err)
	}
	out := conn.out.String()
	if !strings.Contains(out, "T02") {
		t.Errorf("interrupt reply = %q, want a SIGINT stop", out)
	}
}
