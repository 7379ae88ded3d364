package trace

import (
	"bufio"
	"io"
	"os"

	"github.com/wnxd/tracedbg/arch"
	"github.com/wnxd/tracedbg/encoding"
	"github.com/wnxd/tracedbg/shadow"
)

// Writer appends retired records to the processed-trace output.
type Writer[XLEN arch.Word] struct {
	bw *bufio.Writer
	c  io.Closer
}

// Create opens the processed-trace output file, truncating an existing
// one.
func Create[XLEN arch.Word](path string) (*Writer[XLEN], error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &Writer[XLEN]{bw: bufio.NewWriter(f), c: f}, nil
}

// NewWriter wraps an arbitrary stream.
func NewWriter[XLEN arch.Word](w io.Writer) *Writer[XLEN] {
	return &Writer[XLEN]{bw: bufio.NewWriter(w)}
}

// Append serializes one record.
func (w *Writer[XLEN]) Append(ret *shadow.Retired[XLEN]) error {
	return encoding.Encode(w.bw, ret)
}

func (w *Writer[XLEN]) Close() error {
	err := w.bw.Flush()
	if w.c != nil {
		if cerr := w.c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
