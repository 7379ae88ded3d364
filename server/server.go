// Package server is the public surface of the debug server: a
// constructor over the internal implementation, configured with the
// architectural description and the endpoint/trace options.
package server

import (
	"github.com/wnxd/tracedbg/arch"
	internal "github.com/wnxd/tracedbg/internal/server"
	"github.com/wnxd/tracedbg/shadow"
)

// Options selects the listening endpoint and the trace files.
type Options = internal.Options

// Server serves one debugger client at a time over the remote serial
// protocol until killed.
type Server[XLEN arch.Word] interface {
	Run() error
	Close() error
	// Shadow exposes the shadow system, e.g. for snapshot restore
	// before Run.
	Shadow() *shadow.System[XLEN]
}

// New validates the configuration, loads the trace input and prepares
// the listening endpoint.
func New[XLEN arch.Word](cfg *arch.Config[XLEN], opts Options) (Server[XLEN], error) {
	return internal.New(cfg, opts)
}
