// Package borsh implements the subset of the Borsh binary format this
// module needs to serialise block headers, fingerprints, consensus
// states, and the persisted account layouts: fixed-width little-endian
// integers, byte arrays, length-prefixed byte slices and strings,
// structs (walked by reflection field order, exported fields only),
// slices of encodable elements, and pointers used as Borsh's `Option<T>`.
//
// The encode/decode split and the reflection-driven struct walk mirror
// the RLP codec this package was adapted from; the wire rules themselves (little-endian,
// u32 length prefixes, a one-byte Option discriminant) are Borsh's, not
// RLP's, since Borsh is what the on-chain account layout requires.
package borsh

import (
	"reflect"

	"github.com/composable-guest/guestchain/xerrors"
)

// Marshal returns the Borsh encoding of val.
func Marshal(val interface{}) ([]byte, error) {
	var out []byte
	out, err := encodeValue(out, reflect.ValueOf(val))
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Unmarshal decodes Borsh-encoded data into the value pointed to by val,
// which must be a non-nil pointer. It errors if data contains trailing
// bytes the decoder did not consume, so callers can rely on Unmarshal
// fully validating a buffer's shape.
func Unmarshal(data []byte, val interface{}) error {
	rv := reflect.ValueOf(val)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		panic("borsh: Unmarshal requires a non-nil pointer")
	}
	rest, err := decodeValue(data, rv.Elem())
	if err != nil {
		return err
	}
	if len(rest) != 0 {
		return xerrors.ErrBadWireFormat
	}
	return nil
}

// NewDecoder wraps data for decoding several consecutive values out of
// the same buffer, mirroring how a persisted account's layout packs
// several top-level structs back to back.
type Decoder struct {
	data []byte
}

func NewDecoder(data []byte) *Decoder { return &Decoder{data: data} }

func (d *Decoder) Decode(val interface{}) error {
	rv := reflect.ValueOf(val)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		panic("borsh: Decode requires a non-nil pointer")
	}
	rest, err := decodeValue(d.data, rv.Elem())
	if err != nil {
		return err
	}
	d.data = rest
	return nil
}

func (d *Decoder) Remaining() int { return len(d.data) }
