package borsh

import (
	"encoding/binary"
	"fmt"
	"reflect"

	"github.com/composable-guest/guestchain/xerrors"
)

// Unmarshaler is the decode-side counterpart of Marshaler: it consumes
// a prefix of data and returns what's left.
type Unmarshaler interface {
	UnmarshalBorsh(data []byte) (rest []byte, err error)
}

func decodeValue(data []byte, v reflect.Value) ([]byte, error) {
	if v.Kind() == reflect.Ptr {
		if len(data) < 1 {
			return nil, xerrors.ErrBadWireFormat
		}
		present, rest := data[0], data[1:]
		switch present {
		case 0:
			v.Set(reflect.Zero(v.Type()))
			return rest, nil
		case 1:
			elem := reflect.New(v.Type().Elem())
			rest, err := decodeValue(rest, elem.Elem())
			if err != nil {
				return nil, err
			}
			v.Set(elem)
			return rest, nil
		default:
			return nil, xerrors.ErrBadWireFormat
		}
	}

	if v.CanAddr() && v.Addr().CanInterface() {
		if u, ok := v.Addr().Interface().(Unmarshaler); ok {
			return u.UnmarshalBorsh(data)
		}
	}

	switch v.Kind() {
	case reflect.Bool:
		if len(data) < 1 {
			return nil, xerrors.ErrBadWireFormat
		}
		if data[0] != 0 && data[0] != 1 {
			return nil, xerrors.ErrBadWireFormat
		}
		v.SetBool(data[0] == 1)
		return data[1:], nil

	case reflect.Uint8:
		if len(data) < 1 {
			return nil, xerrors.ErrBadWireFormat
		}
		v.SetUint(uint64(data[0]))
		return data[1:], nil
	case reflect.Uint16:
		if len(data) < 2 {
			return nil, xerrors.ErrBadWireFormat
		}
		v.SetUint(uint64(binary.LittleEndian.Uint16(data[:2])))
		return data[2:], nil
	case reflect.Uint32:
		if len(data) < 4 {
			return nil, xerrors.ErrBadWireFormat
		}
		v.SetUint(uint64(binary.LittleEndian.Uint32(data[:4])))
		return data[4:], nil
	case reflect.Uint64, reflect.Uint:
		if len(data) < 8 {
			return nil, xerrors.ErrBadWireFormat
		}
		v.SetUint(binary.LittleEndian.Uint64(data[:8]))
		return data[8:], nil

	case reflect.String:
		b, rest, err := decodeBytesWithLen(data)
		if err != nil {
			return nil, err
		}
		v.SetString(string(b))
		return rest, nil

	case reflect.Array:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			n := v.Len()
			if len(data) < n {
				return nil, xerrors.ErrBadWireFormat
			}
			reflect.Copy(v, reflect.ValueOf(data[:n]))
			return data[n:], nil
		}
		rest := data
		for i := 0; i < v.Len(); i++ {
			var err error
			rest, err = decodeValue(rest, v.Index(i))
			if err != nil {
				return nil, err
			}
		}
		return rest, nil

	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			b, rest, err := decodeBytesWithLen(data)
			if err != nil {
				return nil, err
			}
			v.SetBytes(b)
			return rest, nil
		}
		if len(data) < 4 {
			return nil, xerrors.ErrBadWireFormat
		}
		n := binary.LittleEndian.Uint32(data[:4])
		rest := data[4:]
		out := reflect.MakeSlice(v.Type(), 0, int(n))
		for i := uint32(0); i < n; i++ {
			elem := reflect.New(v.Type().Elem()).Elem()
			var err error
			rest, err = decodeValue(rest, elem)
			if err != nil {
				return nil, err
			}
			out = reflect.Append(out, elem)
		}
		v.Set(out)
		return rest, nil

	case reflect.Struct:
		return decodeStruct(data, v)

	default:
		return nil, fmt.Errorf("borsh: unsupported kind %s for decoding", v.Kind())
	}
}

func decodeStruct(data []byte, v reflect.Value) ([]byte, error) {
	t := v.Type()
	rest := data
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" {
			continue
		}
		if tag, ok := f.Tag.Lookup("borsh"); ok && tag == "-" {
			continue
		}
		var err error
		rest, err = decodeValue(rest, v.Field(i))
		if err != nil {
			return nil, fmt.Errorf("borsh: field %s: %w", f.Name, err)
		}
	}
	return rest, nil
}

func decodeBytesWithLen(data []byte) ([]byte, []byte, error) {
	if len(data) < 4 {
		return nil, nil, xerrors.ErrBadWireFormat
	}
	n := binary.LittleEndian.Uint32(data[:4])
	data = data[4:]
	if uint64(len(data)) < uint64(n) {
		return nil, nil, xerrors.ErrBadWireFormat
	}
	b := make([]byte, n)
	copy(b, data[:n])
	return b, data[n:], nil
}
