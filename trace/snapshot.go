package trace

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/wnxd/tracedbg/arch"
	"github.com/wnxd/tracedbg/shadow"
)

var ErrSnapshot = errors.New("snapshot image truncated")

// SaveSnapshot persists the shadow state: 8 bytes of simulation time,
// 8 bytes of trace position, then per core the canonical register image
// and the core RAM buffer, then the system RAM buffer. The layout is
// positional; loading requires the same configuration.
func SaveSnapshot[XLEN arch.Word](w io.Writer, s *shadow.System[XLEN]) error {
	var hdr [16]byte
	binary.LittleEndian.PutUint64(hdr[0:8], s.Time())
	binary.LittleEndian.PutUint64(hdr[8:16], uint64(s.Cursor()))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	for _, core := range s.Cores {
		if _, err := w.Write(core.Reg.ReadAll()); err != nil {
			return err
		}
		if _, err := w.Write(core.Mem.Buffer()); err != nil {
			return err
		}
	}
	_, err := w.Write(s.Mem.Buffer())
	return err
}

// LoadSnapshot restores state saved by SaveSnapshot and rebases the
// trace cursor to the saved position.
func LoadSnapshot[XLEN arch.Word](r io.Reader, s *shadow.System[XLEN]) error {
	var hdr [16]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return ErrSnapshot
	}
	s.SetTime(binary.LittleEndian.Uint64(hdr[0:8]))
	cursor := binary.LittleEndian.Uint64(hdr[8:16])
	for _, core := range s.Cores {
		image := make([]byte, core.Reg.Size())
		if _, err := io.ReadFull(r, image); err != nil {
			return ErrSnapshot
		}
		if err := core.Reg.WriteAll(image); err != nil {
			return err
		}
		if _, err := io.ReadFull(r, core.Mem.Buffer()); err != nil {
			return ErrSnapshot
		}
	}
	if _, err := io.ReadFull(r, s.Mem.Buffer()); err != nil {
		return ErrSnapshot
	}
	return s.Rebase(int(cursor))
}
