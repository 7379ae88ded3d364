package server

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/wnxd/tracedbg/arch"
	"github.com/wnxd/tracedbg/dut"
	"github.com/wnxd/tracedbg/shadow"
	"github.com/wnxd/tracedbg/socket"
	"github.com/wnxd/tracedbg/trace"
)

// Options selects the listening endpoint and the trace files.
type Options struct {
	Network socket.Network // socket.TCP or socket.Unix
	Addr    string
	Input   string // trace input file
	Output  string // processed-trace output file
	Verbose bool
	Debug   bool
	DUT     dut.DUT
}

// Server owns the shadow system and serves one debugger client at a
// time over the remote serial protocol.
type Server[XLEN arch.Word] struct {
	opts Options
	shd  *shadow.System[XLEN]
	sock *socket.Socket
	out  *trace.Writer[XLEN]
	log  *logrus.Logger
}

func New[XLEN arch.Word](cfg *arch.Config[XLEN], opts Options) (*Server[XLEN], error) {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	switch {
	case opts.Debug:
		log.SetLevel(logrus.DebugLevel)
	case opts.Verbose:
		log.SetLevel(logrus.InfoLevel)
	default:
		log.SetLevel(logrus.WarnLevel)
	}

	shd, err := shadow.NewSystem(cfg)
	if err != nil {
		return nil, err
	}
	s := &Server[XLEN]{
		opts: opts,
		shd:  shd,
		sock: socket.New(opts.Network),
		log:  log,
	}
	if opts.Input != "" {
		trc, err := trace.Load[XLEN](opts.Input)
		if err != nil {
			return nil, err
		}
		shd.LoadTrace(trc)
		log.WithFields(logrus.Fields{"file": opts.Input, "records": len(trc)}).Info("trace loaded")
	}
	if opts.Output != "" {
		out, err := trace.Create[XLEN](opts.Output)
		if err != nil {
			return nil, err
		}
		s.out = out
		shd.Observer = out.Append
	}
	if err := s.sock.Bind(opts.Addr); err != nil {
		return nil, err
	}
	return s, nil
}

// Shadow exposes the shadow system, e.g. for snapshot restore before Run.
func (s *Server[XLEN]) Shadow() *shadow.System[XLEN] {
	return s.shd
}

// Run accepts debugger connections until the client kills the server or
// a fatal error surfaces. Detaching preserves the shadow state and
// returns to accept.
func (s *Server[XLEN]) Run() error {
	if err := s.sock.Listen(); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"net": s.opts.Network, "addr": s.sock.Addr()}).Info("listening")
	for {
		conn, err := s.sock.Accept()
		if err != nil {
			return err
		}
		s.log.WithField("peer", conn.RemoteAddr()).Info("client connected")
		err = s.session(conn)
		conn.Close()
		switch {
		case err == nil:
			continue
		case isDetach(err):
			s.log.Info("client detached")
			continue
		case isKill(err):
			s.log.Info("killed by client")
			return nil
		case isLost(err):
			s.log.Info("connection lost")
			continue
		default:
			return err
		}
	}
}

func (s *Server[XLEN]) Close() error {
	err := s.sock.Close()
	if s.out != nil {
		if cerr := s.out.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
