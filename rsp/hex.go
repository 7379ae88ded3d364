package rsp

import (
	"encoding/hex"
	"strconv"

	"github.com/wnxd/tracedbg/arch"
)

// parseWord parses a fixed or variable width hex field into the address
// word. Hex is accepted case-insensitively.
func parseWord[XLEN arch.Word](s string) (XLEN, error) {
	v, err := strconv.ParseUint(s, 16, arch.WordBytes[XLEN]()*8)
	if err != nil {
		return 0, ErrMalformedPacket
	}
	return XLEN(v), nil
}

func parseUint(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, ErrMalformedPacket
	}
	return v, nil
}

// binToHex encodes bytes in memory order, lowercase.
func binToHex(b []byte) string {
	return hex.EncodeToString(b)
}

func hexToBin(s string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, ErrMalformedPacket
	}
	return b, nil
}

// leBytes returns value as size little-endian bytes.
func leBytes(v uint64, size int) []byte {
	b := make([]byte, size)
	for i := range b {
		b[i] = byte(v)
		v >>= 8
	}
	return b
}

func leValue(b []byte) uint64 {
	var v uint64
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}
