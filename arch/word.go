package arch

import (
	"unsafe"

	"golang.org/x/exp/constraints"
)

// Word is the address word of the target, fixed when the server is built.
type Word interface {
	~uint32 | ~uint64
}

// WordBytes returns sizeof(XLEN).
func WordBytes[XLEN Word]() int {
	var w XLEN
	return int(unsafe.Sizeof(w))
}

func Align[I constraints.Integer](a, b I) I {
	return (a + b - 1) &^ (b - 1)
}
