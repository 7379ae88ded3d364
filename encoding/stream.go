package encoding

import (
	"encoding/binary"
	"io"
)

// stream carries one direction of a codec run plus scratch space.
type stream struct {
	r       io.Reader
	w       io.Writer
	scratch [8]byte
}

func (s *stream) write(b []byte) error {
	_, err := s.w.Write(b)
	return err
}

func (s *stream) read(b []byte) error {
	_, err := io.ReadFull(s.r, b)
	return err
}

func (s *stream) writeUint(v uint64, size int) error {
	binary.LittleEndian.PutUint64(s.scratch[:8], v)
	return s.write(s.scratch[:size])
}

func (s *stream) readUint(size int) (uint64, error) {
	for i := range s.scratch {
		s.scratch[i] = 0
	}
	if err := s.read(s.scratch[:size]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(s.scratch[:8]), nil
}
