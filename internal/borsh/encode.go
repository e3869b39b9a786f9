package borsh

import (
	"encoding/binary"
	"fmt"
	"reflect"
)

// Marshaler lets a type override the default reflection-driven
// encoding, the way Block's Rust BorshSerialize impl hand-writes a
// tuple that omits a derived field. MarshalBorsh must append the
// encoding of the receiver to out and return the result.
type Marshaler interface {
	MarshalBorsh(out []byte) ([]byte, error)
}

func encodeValue(out []byte, v reflect.Value) ([]byte, error) {
	// Option<T> nil-check happens before the Marshaler hook below: a nil
	// *T with a value-receiver MarshalBorsh still satisfies Marshaler,
	// and calling it would dereference the nil pointer.
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return append(out, 0), nil
		}
		out = append(out, 1)
		return encodeValue(out, v.Elem())
	}

	if v.CanInterface() {
		if m, ok := v.Interface().(Marshaler); ok {
			return m.MarshalBorsh(out)
		}
	}

	switch v.Kind() {
	case reflect.Bool:
		if v.Bool() {
			return append(out, 1), nil
		}
		return append(out, 0), nil

	case reflect.Uint8:
		return append(out, byte(v.Uint())), nil
	case reflect.Uint16:
		var b [2]byte
		binary.LittleEndian.PutUint16(b[:], uint16(v.Uint()))
		return append(out, b[:]...), nil
	case reflect.Uint32:
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], uint32(v.Uint()))
		return append(out, b[:]...), nil
	case reflect.Uint64, reflect.Uint:
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], v.Uint())
		return append(out, b[:]...), nil

	case reflect.String:
		return encodeBytesWithLen(out, []byte(v.String())), nil

	case reflect.Array:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			b := make([]byte, v.Len())
			reflect.Copy(reflect.ValueOf(b), v)
			return append(out, b...), nil
		}
		for i := 0; i < v.Len(); i++ {
			var err error
			out, err = encodeValue(out, v.Index(i))
			if err != nil {
				return nil, err
			}
		}
		return out, nil

	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return encodeBytesWithLen(out, v.Bytes()), nil
		}
		out = encodeUint32(out, uint32(v.Len()))
		for i := 0; i < v.Len(); i++ {
			var err error
			out, err = encodeValue(out, v.Index(i))
			if err != nil {
				return nil, err
			}
		}
		return out, nil

	case reflect.Struct:
		return encodeStruct(out, v)

	default:
		return nil, fmt.Errorf("borsh: unsupported kind %s for encoding", v.Kind())
	}
}

func encodeStruct(out []byte, v reflect.Value) ([]byte, error) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" {
			continue // unexported
		}
		if tag, ok := f.Tag.Lookup("borsh"); ok && tag == "-" {
			continue
		}
		var err error
		out, err = encodeValue(out, v.Field(i))
		if err != nil {
			return nil, fmt.Errorf("borsh: field %s: %w", f.Name, err)
		}
	}
	return out, nil
}

func encodeUint32(out []byte, n uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], n)
	return append(out, b[:]...)
}

func encodeBytesWithLen(out []byte, b []byte) []byte {
	out = encodeUint32(out, uint32(len(b)))
	return append(out, b...)
}
