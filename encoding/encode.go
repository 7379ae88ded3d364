package encoding

import (
	"reflect"
	"unsafe"

	"github.com/modern-go/reflect2"
)

func encode(typ reflect.Type) handler {
	switch typ.Kind() {
	case reflect.Bool:
		return func(s *stream, ptr unsafe.Pointer) error {
			var v uint64
			if *(*bool)(ptr) {
				v = 1
			}
			return s.writeUint(v, 1)
		}
	case reflect.Uint8, reflect.Int8:
		return encodeUint(typ, 1)
	case reflect.Uint16, reflect.Int16:
		return encodeUint(typ, 2)
	case reflect.Uint32, reflect.Int32, reflect.Float32:
		return encodeUint(typ, 4)
	case reflect.Uint64, reflect.Int64, reflect.Float64:
		return encodeUint(typ, 8)
	case reflect.Array:
		return encodeArray(typ)
	case reflect.Slice:
		return encodeSlice(typ)
	case reflect.Struct:
		return encodeStruct(typ)
	}
	panic("encoding: unsupported type " + typ.String())
}

func encodeUint(typ reflect.Type, size int) handler {
	switch size {
	case 1:
		return func(s *stream, ptr unsafe.Pointer) error {
			return s.writeUint(uint64(*(*uint8)(ptr)), 1)
		}
	case 2:
		return func(s *stream, ptr unsafe.Pointer) error {
			return s.writeUint(uint64(*(*uint16)(ptr)), 2)
		}
	case 4:
		return func(s *stream, ptr unsafe.Pointer) error {
			return s.writeUint(uint64(*(*uint32)(ptr)), 4)
		}
	default:
		return func(s *stream, ptr unsafe.Pointer) error {
			return s.writeUint(*(*uint64)(ptr), 8)
		}
	}
}

func encodeArray(typ reflect.Type) handler {
	count := typ.Len()
	elem := encode(typ.Elem())
	elemSize := typ.Elem().Size()
	return func(s *stream, ptr unsafe.Pointer) error {
		for i := 0; i < count; i++ {
			if err := elem(s, unsafe.Add(ptr, uintptr(i)*elemSize)); err != nil {
				return err
			}
		}
		return nil
	}
}

// encodeSlice emits a 32 bit element count followed by the elements.
func encodeSlice(typ reflect.Type) handler {
	if typ.Elem().Kind() == reflect.Uint8 {
		return func(s *stream, ptr unsafe.Pointer) error {
			b := *(*[]byte)(ptr)
			if err := s.writeUint(uint64(len(b)), 4); err != nil {
				return err
			}
			return s.write(b)
		}
	}
	st := reflect2.Type2(typ).(reflect2.SliceType)
	elem := encode(typ.Elem())
	return func(s *stream, ptr unsafe.Pointer) error {
		n := st.UnsafeLengthOf(ptr)
		if err := s.writeUint(uint64(n), 4); err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			if err := elem(s, st.UnsafeGetIndex(ptr, i)); err != nil {
				return err
			}
		}
		return nil
	}
}

func encodeStruct(typ reflect.Type) handler {
	type field struct {
		handler handler
		offset  uintptr
	}
	fields := make([]field, 0, typ.NumField())
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		if f.Tag.Get("encoding") == "ignore" {
			continue
		}
		fields = append(fields, field{encode(f.Type), f.Offset})
	}
	return func(s *stream, ptr unsafe.Pointer) error {
		for _, f := range fields {
			if err := f.handler(s, unsafe.Add(ptr, f.offset)); err != nil {
				return err
			}
		}
		return nil
	}
}
