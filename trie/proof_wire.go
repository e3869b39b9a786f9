package trie

import (
	"encoding/binary"

	"github.com/composable-guest/guestchain/bits"
	"github.com/composable-guest/guestchain/xerrors"
)

// Wire tags. Items and Actuals share one tag byte space so a negative
// proof's leading element can be either, exactly as the in-memory Proof
// does: the high bit marks an Actual.
//
// This repository's Branch item/Actual never distinguishes a "value"
// sibling from a "node" sibling the way the spec's tag table allows —
// in this trie's node model a Branch's children are always references to
// nodes (which may themselves be Value nodes), never a bare value hash,
// so that extra bit of the original tag space has no state to carry here
// and is left unused. See DESIGN.md.
const (
	tagItemBranch    = byte(0x00)
	tagItemValue     = byte(0x40)
	tagItemExtension = byte(0x20) // bit 0x01 carries bit 8 of the length

	tagActualBranch       = byte(0x80)
	tagActualExtension    = byte(0x84)
	tagActualLookupKeyLeft = byte(0x86)
)

// Marshal serialises proof into the compact wire format: a 16-bit header
// (length, positive bit), an optional Actual, then the Item list.
func (p Proof) Marshal() []byte {
	var out []byte
	header := uint16(len(p.Items)) << 1
	if p.Positive {
		header |= 1
	}
	var hdr [2]byte
	binary.BigEndian.PutUint16(hdr[:], header)
	out = append(out, hdr[:]...)

	if !p.Positive && p.Actual != nil {
		out = append(out, marshalActual(p.Actual)...)
	}
	for _, it := range p.Items {
		out = append(out, marshalItem(it)...)
	}
	return out
}

func marshalActual(a *Actual) []byte {
	switch a.Kind {
	case actualBranch:
		out := make([]byte, 1+32+32)
		out[0] = tagActualBranch
		copy(out[1:33], a.Left[:])
		copy(out[33:65], a.Right[:])
		return out
	case actualExtension:
		packedLen := (int(a.ExtOffset) + int(a.ExtBits) + 7) / 8
		out := make([]byte, 1+1+2+2+packedLen+32)
		out[0] = tagActualExtension
		out[1] = a.ExtOffset
		binary.BigEndian.PutUint16(out[2:4], a.ExtBits)
		binary.BigEndian.PutUint16(out[4:6], a.BitsRemaining)
		copy(out[6:6+packedLen], a.EncodedKey)
		copy(out[6+packedLen:6+packedLen+32], a.Child[:])
		return out
	case actualLookupKeyLeft:
		out := make([]byte, 1+2+32)
		out[0] = tagActualLookupKeyLeft
		binary.BigEndian.PutUint16(out[1:3], a.LeftoverBits)
		copy(out[3:35], a.ValueHash[:])
		return out
	default:
		panic("trie: unknown actual kind")
	}
}

func marshalItem(it Item) []byte {
	switch it.Kind {
	case itemBranch:
		out := make([]byte, 1+32)
		out[0] = tagItemBranch
		copy(out[1:], it.Sibling[:])
		return out
	case itemValue:
		out := make([]byte, 1+32)
		out[0] = tagItemValue
		copy(out[1:], it.OtherHash[:])
		return out
	case itemExtension:
		tag := tagItemExtension
		if it.Bits&0x100 != 0 {
			tag |= 0x01
		}
		out := make([]byte, 2)
		out[0] = tag
		out[1] = byte(it.Bits)
		return out
	default:
		panic("trie: unknown item kind")
	}
}

// Unmarshal reverses Marshal. It never panics on malformed input: every
// truncation or bad tag is reported as xerrors.ErrBadProof/ErrBadWireFormat.
func Unmarshal(data []byte) (Proof, error) {
	if len(data) < 2 {
		return Proof{}, xerrors.ErrBadWireFormat
	}
	header := binary.BigEndian.Uint16(data[0:2])
	positive := header&1 != 0
	count := int(header >> 1)
	data = data[2:]

	var p Proof
	p.Positive = positive

	if !positive && len(data) > 0 && data[0]&0x80 != 0 {
		actual, rest, err := unmarshalActual(data)
		if err != nil {
			return Proof{}, err
		}
		p.Actual = actual
		data = rest
	}

	p.Items = make([]Item, 0, count)
	for i := 0; i < count; i++ {
		item, rest, err := unmarshalItem(data)
		if err != nil {
			return Proof{}, err
		}
		p.Items = append(p.Items, item)
		data = rest
	}
	if len(data) != 0 {
		return Proof{}, xerrors.ErrBadWireFormat
	}
	return p, nil
}

func unmarshalActual(data []byte) (*Actual, []byte, error) {
	if len(data) < 1 {
		return nil, nil, xerrors.ErrBadWireFormat
	}
	switch data[0] {
	case tagActualBranch:
		if len(data) < 1+64 {
			return nil, nil, xerrors.ErrBadWireFormat
		}
		a := &Actual{Kind: actualBranch}
		copy(a.Left[:], data[1:33])
		copy(a.Right[:], data[33:65])
		return a, data[65:], nil
	case tagActualExtension:
		if len(data) < 6 {
			return nil, nil, xerrors.ErrBadWireFormat
		}
		extOffset := data[1]
		extBits := binary.BigEndian.Uint16(data[2:4])
		bitsRemaining := binary.BigEndian.Uint16(data[4:6])
		if extBits == 0 || extBits > bits.MaxExtKeyBits {
			return nil, nil, xerrors.ErrBadProof
		}
		if extOffset >= 8 {
			return nil, nil, xerrors.ErrBadProof
		}
		packedLen := (int(extOffset) + int(extBits) + 7) / 8
		need := 6 + packedLen + 32
		if len(data) < need {
			return nil, nil, xerrors.ErrBadWireFormat
		}
		a := &Actual{
			Kind:          actualExtension,
			ExtOffset:     extOffset,
			ExtBits:       extBits,
			BitsRemaining: bitsRemaining,
			EncodedKey:    append([]byte(nil), data[6:6+packedLen]...),
		}
		copy(a.Child[:], data[6+packedLen:need])
		return a, data[need:], nil
	case tagActualLookupKeyLeft:
		if len(data) < 1+2+32 {
			return nil, nil, xerrors.ErrBadWireFormat
		}
		a := &Actual{Kind: actualLookupKeyLeft, LeftoverBits: binary.BigEndian.Uint16(data[1:3])}
		copy(a.ValueHash[:], data[3:35])
		return a, data[35:], nil
	default:
		return nil, nil, xerrors.ErrBadWireFormat
	}
}

func unmarshalItem(data []byte) (Item, []byte, error) {
	if len(data) < 1 {
		return Item{}, nil, xerrors.ErrBadWireFormat
	}
	tag := data[0] &^ 0x01
	switch tag {
	case tagItemBranch:
		if len(data) < 1+32 {
			return Item{}, nil, xerrors.ErrBadWireFormat
		}
		it := Item{Kind: itemBranch}
		copy(it.Sibling[:], data[1:33])
		return it, data[33:], nil
	case tagItemValue:
		if len(data) < 1+32 {
			return Item{}, nil, xerrors.ErrBadWireFormat
		}
		it := Item{Kind: itemValue}
		copy(it.OtherHash[:], data[1:33])
		return it, data[33:], nil
	case tagItemExtension:
		if len(data) < 2 {
			return Item{}, nil, xerrors.ErrBadWireFormat
		}
		length := uint16(data[1])
		if data[0]&0x01 != 0 {
			length |= 0x100
		}
		if length == 0 || length > bits.MaxExtKeyBits {
			return Item{}, nil, xerrors.ErrBadProof
		}
		return Item{Kind: itemExtension, Bits: length}, data[2:], nil
	default:
		return Item{}, nil, xerrors.ErrBadWireFormat
	}
}
