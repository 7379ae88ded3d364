// Tracedbg is a CPU debug server for recorded HDL simulations. It
// replays a retired-instruction trace behind the GDB remote serial
// protocol, supporting forward and reverse step and continue.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/wnxd/tracedbg/arch"
	_ "github.com/wnxd/tracedbg/arch/riscv"
	"github.com/wnxd/tracedbg/server"
	"github.com/wnxd/tracedbg/socket"
)

// Xlen fixes the address word of the target build.
type Xlen = uint32

// defaultConfig describes the single-core RV32 target: one local RAM
// and MMIO window per core plus a shared pair.
func defaultConfig() *arch.Config[Xlen] {
	return &arch.Config[Xlen]{
		Arch: arch.ARCH_RISCV32,
		Core: []arch.Core[Xlen]{{
			Mem: []arch.Block[Xlen]{{Base: 0x8000_0000, Size: 0x0001_0000}},
			IO:  []arch.Block[Xlen]{{Base: 0x8001_0000, Size: 0x0001_0000}},
		}},
		Mem: []arch.Block[Xlen]{{Base: 0x8002_0000, Size: 0x0001_0000}},
		IO:  []arch.Block[Xlen]{{Base: 0x8003_0000, Size: 0x0001_0000}},
	}
}

func main() {
	var (
		verbose  bool
		debug    bool
		port     uint16
		unixPath string
		input    string
		output   string
	)

	root := &cobra.Command{
		Use:           "tracedbg",
		Short:         "CPU debug server for recorded HDL simulations",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := server.Options{
				Network: socket.Unix,
				Addr:    unixPath,
				Input:   input,
				Output:  output,
				Verbose: verbose,
				Debug:   debug,
			}
			if cmd.Flags().Changed("port") {
				if cmd.Flags().Changed("socket") {
					return fmt.Errorf("--port and --socket are mutually exclusive")
				}
				opts.Network = socket.TCP
				opts.Addr = fmt.Sprintf(":%d", port)
			}
			srv, err := server.New(defaultConfig(), opts)
			if err != nil {
				return err
			}
			defer srv.Close()
			return srv.Run()
		},
	}
	root.Flags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	root.Flags().BoolVarP(&debug, "debug", "d", false, "enable debugging (protocol trace)")
	root.Flags().Uint16VarP(&port, "port", "p", 1234, "TCP port")
	root.Flags().StringVarP(&unixPath, "socket", "s", "unix-socket", "UNIX socket path")
	root.Flags().StringVarP(&input, "input", "i", "", "HDL simulation trace record input file name")
	root.Flags().StringVarP(&output, "output", "o", "", "processed trace output file name")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "tracedbg:", err)
		os.Exit(1)
	}
}
