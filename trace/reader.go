// Package trace reads and writes the on-disk forms of the retired
// instruction stream: the simulator trace input, the processed-trace
// output and state snapshots.
package trace

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/wnxd/tracedbg/arch"
	"github.com/wnxd/tracedbg/encoding"
	"github.com/wnxd/tracedbg/shadow"
)

// Read materialises the whole trace queue from r. The input is a
// sequence of serialized retired records in commit order.
func Read[XLEN arch.Word](r io.Reader) ([]shadow.Retired[XLEN], error) {
	br := bufio.NewReader(r)
	var trc []shadow.Retired[XLEN]
	for {
		if _, err := br.Peek(1); err == io.EOF {
			return trc, nil
		}
		var ret shadow.Retired[XLEN]
		if err := encoding.Decode(br, &ret); err != nil {
			return nil, fmt.Errorf("trace record %d: %w", len(trc), err)
		}
		trc = append(trc, ret)
	}
}

// Load reads the trace queue from a file.
func Load[XLEN arch.Word](path string) ([]shadow.Retired[XLEN], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read[XLEN](f)
}
