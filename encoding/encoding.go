// Package encoding is a little-endian binary codec for the fixed-layout
// record types exchanged with the simulator: trace records, snapshots and
// the processed-trace output. Handlers are built per type on first use
// and cached.
package encoding

import (
	"io"
	"reflect"
	"sync"
	"unsafe"

	"github.com/modern-go/reflect2"
)

type handler = func(*stream, unsafe.Pointer) error

var (
	encodeProcess sync.Map
	decodeProcess sync.Map
)

// Encode writes val to w. val may be a value or a pointer to one.
func Encode(w io.Writer, val any) error {
	typ := reflect.TypeOf(val)
	ptr := reflect2.PtrOf(val)
	if typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	return getHandler(&encodeProcess, typ, encode)(&stream{w: w}, ptr)
}

// Decode reads a value from r into the pointer val.
func Decode(r io.Reader, val any) error {
	typ := reflect.TypeOf(val)
	if typ.Kind() != reflect.Pointer {
		return ErrNotPointer
	}
	return getHandler(&decodeProcess, typ.Elem(), decode)(&stream{r: r}, reflect2.PtrOf(val))
}

func getHandler(cache *sync.Map, typ reflect.Type, build func(reflect.Type) handler) handler {
	if v, ok := cache.Load(typ); ok {
		return v.(handler)
	}
	h := build(typ)
	cache.Store(typ, h)
	return h
}
