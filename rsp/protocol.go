package rsp

import (
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/wnxd/tracedbg/arch"
	"github.com/wnxd/tracedbg/dut"
	"github.com/wnxd/tracedbg/shadow"
)

// State is the per-connection server state.
type State struct {
	Acknowledge bool
	Extended    bool
	DutRegister bool // register reads go to the live DUT
	DutMemory   bool // memory reads go to the live DUT
	RemoteLog   bool
}

// Protocol parses decoded payloads and routes them to handlers. Handlers
// read or mutate the shadow and reply through the Framer.
type Protocol[XLEN arch.Word] struct {
	f   *Framer
	shd *shadow.System[XLEN]
	dut dut.DUT
	log *logrus.Entry

	state      State
	featClient map[string]string
}

func NewProtocol[XLEN arch.Word](f *Framer, shd *shadow.System[XLEN], d dut.DUT, log *logrus.Entry) *Protocol[XLEN] {
	if d == nil {
		d = dut.Headless{}
	}
	return &Protocol[XLEN]{
		f:   f,
		shd: shd,
		dut: d,
		log: log,
		state: State{
			Acknowledge: true,
		},
		featClient: make(map[string]string),
	}
}

// State returns the connection state, for the serving loop.
func (p *Protocol[XLEN]) State() *State {
	return &p.state
}

func (p *Protocol[XLEN]) tx(payload string) error {
	return p.f.Tx([]byte(payload), p.state.Acknowledge)
}

// Parse dispatches one decoded payload. ErrDetach and ErrKill bubble to
// the serving loop; a returned *shadow.CorruptionError is fatal.
func (p *Protocol[XLEN]) Parse(payload []byte) error {
	if len(payload) == 0 {
		return p.tx("")
	}
	if payload[0] == interrupt {
		return p.interrupted()
	}
	pkt := string(payload)
	switch payload[0] {
	case 'm':
		return p.memRead(pkt)
	case 'M':
		return p.memWrite(pkt)
	case 'g':
		return p.regReadAll()
	case 'G':
		return p.regWriteAll(pkt)
	case 'p':
		return p.regReadOne(pkt)
	case 'P':
		return p.regWriteOne(pkt)
	case 's', 'S':
		return p.runStep(pkt)
	case 'c', 'C':
		return p.runContinue(pkt)
	case 'b':
		return p.runBackward(pkt)
	case '?':
		return p.signalInfo()
	case 'q', 'Q':
		return p.query(pkt)
	case 'v':
		return p.verbose(pkt)
	case 'z':
		return p.pointRemove(pkt)
	case 'Z':
		return p.pointInsert(pkt)
	case 'H':
		return p.thread(pkt)
	case '!':
		return p.extended()
	case 'R':
		return p.reset()
	case 'D':
		return p.detach()
	case 'k':
		return ErrKill
	}
	// unsupported commands get the empty reply; not an error
	p.log.Debugf("unsupported command %q", pkt)
	return p.tx("")
}

////////////////////////////////////////
// memory access (hexadecimal)
////////////////////////////////////////

func (p *Protocol[XLEN]) memRead(pkt string) error {
	adr, lenStr, ok := strings.Cut(pkt[1:], ",")
	if !ok {
		return p.errorReply(ErrMalformedPacket)
	}
	addr, err := parseWord[XLEN](adr)
	if err != nil {
		return p.errorReply(err)
	}
	size, err := parseUint(lenStr)
	if err != nil {
		return p.errorReply(err)
	}
	var data []byte
	if p.state.DutMemory {
		data, err = p.dut.MemRead(uint64(addr), int(size))
	} else {
		data, err = p.shd.MemRead(addr, int(size))
	}
	if err != nil {
		return p.errorReply(err)
	}
	return p.tx(binToHex(data))
}

func (p *Protocol[XLEN]) memWrite(pkt string) error {
	head, hexData, ok := strings.Cut(pkt[1:], ":")
	if !ok {
		return p.errorReply(ErrMalformedPacket)
	}
	adr, lenStr, ok := strings.Cut(head, ",")
	if !ok {
		return p.errorReply(ErrMalformedPacket)
	}
	addr, err := parseWord[XLEN](adr)
	if err != nil {
		return p.errorReply(err)
	}
	size, err := parseUint(lenStr)
	if err != nil {
		return p.errorReply(err)
	}
	data, err := hexToBin(hexData)
	if err != nil || uint64(len(data)) != size {
		return p.errorReply(ErrMalformedPacket)
	}
	// writes always reach both the shadow and the DUT
	if err := p.shd.MemWrite(addr, data); err != nil {
		return p.errorReply(err)
	}
	p.dut.MemWrite(uint64(addr), data)
	return p.tx("OK")
}

////////////////////////////////////////
// register access
////////////////////////////////////////

// regBytes reads one debugger-view slot from the selected source. Wide
// slots (vector registers) always come from the shadow.
func (p *Protocol[XLEN]) regBytes(index int) ([]byte, error) {
	b, err := p.shd.Current().Reg.ReadOne(index)
	if err != nil {
		return nil, err
	}
	if p.state.DutRegister && len(b) <= 8 {
		v, err := p.dut.RegRead(index)
		if err != nil {
			return nil, err
		}
		return leBytes(v, len(b)), nil
	}
	return b, nil
}

func (p *Protocol[XLEN]) regReadAll() error {
	reg := p.shd.Current().Reg
	var sb strings.Builder
	for i := 0; i < reg.Len(); i++ {
		b, err := p.regBytes(i)
		if err != nil {
			return p.errorReply(err)
		}
		sb.WriteString(binToHex(b))
	}
	return p.tx(sb.String())
}

func (p *Protocol[XLEN]) regWriteAll(pkt string) error {
	image, err := hexToBin(pkt[1:])
	if err != nil {
		return p.errorReply(err)
	}
	reg := p.shd.Current().Reg
	if err := reg.WriteAll(image); err != nil {
		return p.errorReply(err)
	}
	// mirror scalar slots into the DUT
	for i := 0; i < reg.Len(); i++ {
		if b, err := reg.ReadOne(i); err == nil && len(b) <= 8 {
			p.dut.RegWrite(i, leValue(b))
		}
	}
	return p.tx("OK")
}

func (p *Protocol[XLEN]) regReadOne(pkt string) error {
	index, err := parseUint(pkt[1:])
	if err != nil {
		return p.errorReply(err)
	}
	b, err := p.regBytes(int(index))
	if err != nil {
		return p.errorReply(err)
	}
	return p.tx(binToHex(b))
}

func (p *Protocol[XLEN]) regWriteOne(pkt string) error {
	idxStr, valStr, ok := strings.Cut(pkt[1:], "=")
	if !ok {
		return p.errorReply(ErrMalformedPacket)
	}
	index, err := parseUint(idxStr)
	if err != nil {
		return p.errorReply(err)
	}
	b, err := hexToBin(valStr)
	if err != nil {
		return p.errorReply(err)
	}
	reg := p.shd.Current().Reg
	if err := reg.WriteOne(int(index), b); err != nil {
		return p.errorReply(err)
	}
	if len(b) <= 8 {
		p.dut.RegWrite(int(index), leValue(b))
	}
	return p.tx("OK")
}

////////////////////////////////////////
// forward/reverse step/continue
////////////////////////////////////////

func (p *Protocol[XLEN]) runStep(pkt string) error {
	// the optional resume address and signal are ignored: execution
	// comes from the trace
	stop, err := p.shd.StepForward(1)
	if err != nil {
		return err
	}
	return p.tx(p.stopReply(stop))
}

func (p *Protocol[XLEN]) runContinue(pkt string) error {
	stop, err := p.shd.ContinueForward(p.f.Interrupted)
	if err != nil {
		return err
	}
	return p.tx(p.stopReply(stop))
}

func (p *Protocol[XLEN]) runBackward(pkt string) error {
	var (
		stop shadow.Stop[XLEN]
		err  error
	)
	switch pkt {
	case "bs":
		stop, err = p.shd.StepReverse(1)
	case "bc":
		stop, err = p.shd.ContinueReverse(p.f.Interrupted)
	default:
		return p.tx("")
	}
	if err != nil {
		return err
	}
	return p.tx(p.stopReply(stop))
}

func (p *Protocol[XLEN]) signalInfo() error {
	return p.tx(p.stopReply(p.shd.LastStop()))
}

func (p *Protocol[XLEN]) interrupted() error {
	stop := shadow.Stop[XLEN]{Signal: shadow.SIGINT, Reason: shadow.ReasonNone, Core: p.shd.CurrentIndex()}
	return p.tx(p.stopReply(stop))
}

////////////////////////////////////////
// breakpoints/watchpoints
////////////////////////////////////////

func (p *Protocol[XLEN]) parsePoint(pkt string) (shadow.PointType, XLEN, uint, error) {
	fields := strings.Split(pkt[1:], ",")
	if len(fields) != 3 {
		return 0, 0, 0, ErrMalformedPacket
	}
	typ, err := parseUint(fields[0])
	if err != nil || typ > uint64(shadow.Awatch) {
		return 0, 0, 0, ErrMalformedPacket
	}
	addr, err := parseWord[XLEN](fields[1])
	if err != nil {
		return 0, 0, 0, err
	}
	kind, err := parseUint(fields[2])
	if err != nil {
		return 0, 0, 0, err
	}
	return shadow.PointType(typ), addr, uint(kind), nil
}

func (p *Protocol[XLEN]) pointInsert(pkt string) error {
	typ, addr, kind, err := p.parsePoint(pkt)
	if err != nil {
		return p.errorReply(err)
	}
	p.shd.Current().Points.Insert(typ, addr, kind)
	return p.tx("OK")
}

func (p *Protocol[XLEN]) pointRemove(pkt string) error {
	typ, addr, kind, err := p.parsePoint(pkt)
	if err != nil {
		return p.errorReply(err)
	}
	// removing an absent point reports success
	p.shd.Current().Points.Remove(typ, addr, kind)
	return p.tx("OK")
}

////////////////////////////////////////
// extended/reset/detach/kill
////////////////////////////////////////

func (p *Protocol[XLEN]) extended() error {
	p.state.Extended = true
	return p.tx("OK")
}

func (p *Protocol[XLEN]) reset() error {
	// perform the DUT reset sequence; the restart packet has no reply
	p.dut.ResetAssert()
	p.dut.ResetRelease()
	return nil
}

func (p *Protocol[XLEN]) detach() error {
	if err := p.tx("OK"); err != nil {
		return err
	}
	return ErrDetach
}
