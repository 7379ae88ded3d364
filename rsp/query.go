package rsp

import (
	"fmt"
	"strconv"
	"strings"
)

// serverFeatures is the feature list advertised in the qSupported reply.
var serverFeatures = []string{
	"PacketSize=4096",
	"swbreak+",
	"hwbreak+",
	"error-message+",
	"ReverseStep+",
	"ReverseContinue+",
	"QStartNoAckMode+",
	"multiprocess-",
	"binary-upload-",
}

func (p *Protocol[XLEN]) query(pkt string) error {
	// the monitor payload follows a comma, not the usual colon
	if hexLine, ok := strings.CutPrefix(pkt, "qRcmd,"); ok {
		return p.queryMonitor(hexLine)
	}
	name, args, _ := strings.Cut(pkt, ":")
	switch name {
	case "qSupported":
		return p.querySupported(args)
	case "QStartNoAckMode":
		if err := p.tx("OK"); err != nil {
			return err
		}
		p.state.Acknowledge = false
		return nil
	case "qfThreadInfo":
		ids := make([]string, len(p.shd.Cores))
		for i := range p.shd.Cores {
			ids[i] = p.formatThread(i)
		}
		return p.tx("m" + strings.Join(ids, ","))
	case "qsThreadInfo":
		return p.tx("l")
	case "qC":
		return p.tx("QC" + p.formatThread(p.shd.CurrentIndex()))
	case "qAttached":
		return p.tx("1")
	case "qOffsets":
		return p.tx("Text=0;Data=0;Bss=0")
	}
	return p.tx("")
}

// querySupported stores the client's feature list and answers with the
// server's own.
func (p *Protocol[XLEN]) querySupported(args string) error {
	for _, feat := range strings.Split(args, ";") {
		if feat == "" {
			continue
		}
		if name, value, ok := strings.Cut(feat, "="); ok {
			p.featClient[name] = value
			continue
		}
		switch feat[len(feat)-1] {
		case '+', '-', '?':
			p.featClient[feat[:len(feat)-1]] = string(feat[len(feat)-1])
		default:
			p.featClient[feat] = "+"
		}
	}
	return p.tx(strings.Join(serverFeatures, ";"))
}

// multiprocess reports whether the multiprocess extension was negotiated.
func (p *Protocol[XLEN]) multiprocess() bool {
	return p.featClient["multiprocess"] == "+"
}

// formatThread renders a thread-id: one thread per core, 1-based.
func (p *Protocol[XLEN]) formatThread(core int) string {
	if p.multiprocess() {
		return fmt.Sprintf("p1.%x", core+1)
	}
	return fmt.Sprintf("%x", core+1)
}

// parseThread accepts both the bare and the multiprocess thread-id form
// and returns the 1-based thread, 0 for "any" and -1 for "all".
func (p *Protocol[XLEN]) parseThread(s string) (int, error) {
	if rest, ok := strings.CutPrefix(s, "p"); ok {
		_, tid, ok := strings.Cut(rest, ".")
		if !ok {
			return 0, ErrMalformedPacket
		}
		s = tid
	}
	v, err := strconv.ParseInt(s, 16, 32)
	if err != nil {
		return 0, ErrMalformedPacket
	}
	return int(v), nil
}

// thread handles the Hg/Hc thread selection packets.
func (p *Protocol[XLEN]) thread(pkt string) error {
	if len(pkt) < 2 {
		return p.errorReply(ErrMalformedPacket)
	}
	tid, err := p.parseThread(pkt[2:])
	if err != nil {
		return p.errorReply(err)
	}
	if tid > 0 {
		if err := p.shd.Select(tid - 1); err != nil {
			return p.errorReply(err)
		}
	}
	return p.tx("OK")
}

////////////////////////////////////////
// monitor sub-language
////////////////////////////////////////

const monitorHelp = `monitor commands:
  set remote log on|off     protocol trace to stderr
  set waveform dump on|off  advise the simulator to dump waveforms
  set register=dut|shadow   source of register reads
  set memory=dut|shadow     source of memory reads
  reset assert              request DUT reset assertion
  reset release             request DUT reset release
  help                      this text
`

// queryMonitor runs one operator command tunnelled inside qRcmd. The
// reply is the hex-encoded console text.
func (p *Protocol[XLEN]) queryMonitor(hexLine string) error {
	raw, err := hexToBin(hexLine)
	if err != nil {
		return p.errorReply(err)
	}
	line := strings.TrimSpace(string(raw))
	switch line {
	case "set remote log on":
		p.state.RemoteLog = true
		p.f.SetWireLog(true)
		return p.monitorReply("remote protocol logging on\n")
	case "set remote log off":
		p.state.RemoteLog = false
		p.f.SetWireLog(false)
		return p.monitorReply("remote protocol logging off\n")
	case "set waveform dump on":
		p.dut.WaveformDump(true)
		return p.monitorReply("waveform dump on\n")
	case "set waveform dump off":
		p.dut.WaveformDump(false)
		return p.monitorReply("waveform dump off\n")
	case "set register=dut":
		p.state.DutRegister = true
		return p.monitorReply("register reads sourced from DUT\n")
	case "set register=shadow":
		p.state.DutRegister = false
		return p.monitorReply("register reads sourced from shadow\n")
	case "set memory=dut":
		p.state.DutMemory = true
		return p.monitorReply("memory reads sourced from DUT\n")
	case "set memory=shadow":
		p.state.DutMemory = false
		return p.monitorReply("memory reads sourced from shadow\n")
	case "reset assert":
		p.dut.ResetAssert()
		return p.monitorReply("reset asserted\n")
	case "reset release":
		p.dut.ResetRelease()
		return p.monitorReply("reset released\n")
	case "help":
		return p.monitorReply(monitorHelp)
	}
	return p.monitorReply(fmt.Sprintf("monitor command not recognised: %q\n", line))
}

func (p *Protocol[XLEN]) monitorReply(text string) error {
	return p.tx(binToHex([]byte(text)))
}

////////////////////////////////////////
// verbose command family
////////////////////////////////////////

func (p *Protocol[XLEN]) verbose(pkt string) error {
	switch {
	case pkt == "vCont?":
		return p.tx("vCont;c;C;s;S")
	case strings.HasPrefix(pkt, "vCont;"):
		return p.vCont(pkt[len("vCont;"):])
	case pkt == "vCtrlC":
		p.interruptStop()
		return p.tx("OK")
	}
	return p.tx("")
}

// vCont executes the first resume action; the replay has a single
// inferior, so thread-specific actions collapse onto it.
func (p *Protocol[XLEN]) vCont(actions string) error {
	action, _, _ := strings.Cut(actions, ";")
	action, _, _ = strings.Cut(action, ":")
	if action == "" {
		return p.errorReply(ErrMalformedPacket)
	}
	switch action[0] {
	case 'c', 'C':
		return p.runContinue(action)
	case 's', 'S':
		return p.runStep(action)
	}
	return p.tx("")
}
