package encoding

import (
	"reflect"
	"unsafe"

	"github.com/modern-go/reflect2"
)

// maxElems bounds decoded element counts so a corrupt length prefix
// cannot drive allocation.
const maxElems = 1 << 24

func decode(typ reflect.Type) handler {
	switch typ.Kind() {
	case reflect.Bool:
		return func(s *stream, ptr unsafe.Pointer) error {
			v, err := s.readUint(1)
			if err != nil {
				return err
			}
			*(*bool)(ptr) = v != 0
			return nil
		}
	case reflect.Uint8, reflect.Int8:
		return decodeUint(1)
	case reflect.Uint16, reflect.Int16:
		return decodeUint(2)
	case reflect.Uint32, reflect.Int32, reflect.Float32:
		return decodeUint(4)
	case reflect.Uint64, reflect.Int64, reflect.Float64:
		return decodeUint(8)
	case reflect.Array:
		return decodeArray(typ)
	case reflect.Slice:
		return decodeSlice(typ)
	case reflect.Struct:
		return decodeStruct(typ)
	}
	panic("encoding: unsupported type " + typ.String())
}

func decodeUint(size int) handler {
	switch size {
	case 1:
		return func(s *stream, ptr unsafe.Pointer) error {
			v, err := s.readUint(1)
			*(*uint8)(ptr) = uint8(v)
			return err
		}
	case 2:
		return func(s *stream, ptr unsafe.Pointer) error {
			v, err := s.readUint(2)
			*(*uint16)(ptr) = uint16(v)
			return err
		}
	case 4:
		return func(s *stream, ptr unsafe.Pointer) error {
			v, err := s.readUint(4)
			*(*uint32)(ptr) = uint32(v)
			return err
		}
	default:
		return func(s *stream, ptr unsafe.Pointer) error {
			v, err := s.readUint(8)
			*(*uint64)(ptr) = v
			return err
		}
	}
}

func decodeArray(typ reflect.Type) handler {
	count := typ.Len()
	elem := decode(typ.Elem())
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

func decodeSlice(typ reflect.Type) handler {
	st := reflect2.Type2(typ).(reflect2.SliceType)
	if typ.Elem().Kind() == reflect.Uint8 {
		return func(s *stream, ptr unsafe.Pointer) error {
			n, err := s.readUint(4)
			if err != nil {
				return err
			}
			if n > maxElems {
				return ErrLength
			}
			b := make([]byte, n)
			if err := s.read(b); err != nil {
				return err
			}
			*(*[]byte)(ptr) = b
			return nil
		}
	}
	elem := decode(typ.Elem())
	return func(s *stream, ptr unsafe.Pointer) error {
		n, err := s.readUint(4)
		if err != nil {
			return err
		}
		if n > maxElems {
			return ErrLength
		}
		slice := st.UnsafeMakeSlice(int(n), int(n))
		for i := 0; i < int(n); i++ {
			if err := elem(s, st.UnsafeGetIndex(slice, i)); err != nil {
				return err
			}
		}
		st.UnsafeSet(ptr, slice)
		return nil
	}
}

func decodeStruct(typ reflect.Type) handler {
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
		fields = append(fields, field{decode(f.Type), f.Offset})
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
