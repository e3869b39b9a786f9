package pathkeys

import "github.com/composable-guest/guestchain/xerrors"

// maxPortIDLen is the longest PortId this trie key scheme can represent:
// 12 six-bit values pack exactly into the 9-byte port_key, so a longer
// id has nowhere left to go.
const maxPortIDLen = 12

// portKeyLen is the fixed size of an encoded port id (12 * 6 bits).
const portKeyLen = 9

// PortKey is a PortId's fixed 9-byte trie representation.
type PortKey [portKeyLen]byte

// base64Alphabet is the standard base64 alphabet order (A-Za-z0-9+/),
// used here purely as a dense 6-bit encoding table rather than for
// actual base64 framing: each PortId character contributes one 6-bit
// index, and 12 of those indices pack into the 9-byte PortKey.
const base64Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

// slashValue is the 6-bit value used to pad a PortId shorter than 12
// characters out to full width ("slash-padding", spec §4.9): it is the
// alphabet's '/' entry, a character PortId itself may never contain.
const slashValue = 63

var base64Index [256]int8

func init() {
	for i := range base64Index {
		base64Index[i] = -1
	}
	for i := 0; i < len(base64Alphabet); i++ {
		base64Index[base64Alphabet[i]] = int8(i)
	}
}

// EncodePortID validates and encodes a PortId into its fixed 9-byte
// trie representation (spec §4.9). The id must be 1-12 alphanumeric
// characters; '+' and '/' are rejected even though they appear in the
// encoding alphabet, since '/' is reserved for padding and accepting
// either would make the encoding ambiguous.
func EncodePortID(portID string) (PortKey, error) {
	var key PortKey
	if len(portID) == 0 || len(portID) > maxPortIDLen {
		return key, xerrors.ErrBadIdentifier
	}

	values := make([]int, maxPortIDLen)
	for i := 0; i < maxPortIDLen; i++ {
		if i < len(portID) {
			c := portID[i]
			if !isAlphanumeric(c) {
				return key, xerrors.ErrBadIdentifier
			}
			values[i] = int(base64Index[c])
		} else {
			values[i] = slashValue
		}
	}

	packSixBitValues(key[:], values)
	return key, nil
}

// DecodePortID recovers the PortId string EncodePortID produced, for
// display or re-derivation purposes. Trailing slash-padding characters
// are trimmed since a valid PortId can never itself end in '/'.
func DecodePortID(key PortKey) (string, error) {
	values := unpackSixBitValues(key[:], maxPortIDLen)

	end := maxPortIDLen
	for end > 0 && values[end-1] == slashValue {
		end--
	}

	out := make([]byte, end)
	for i := 0; i < end; i++ {
		v := values[i]
		if v < 0 || v >= len(base64Alphabet) {
			return "", xerrors.ErrBadWireFormat
		}
		out[i] = base64Alphabet[v]
	}
	return string(out), nil
}

func isAlphanumeric(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z':
		return true
	case c >= 'a' && c <= 'z':
		return true
	case c >= '0' && c <= '9':
		return true
	default:
		return false
	}
}

// packSixBitValues packs n six-bit values MSB-first into out, where
// len(out)*8 == n*6. acc holds only the not-yet-emitted low accBits
// bits between iterations; it is masked down after every byte emitted
// so it cannot grow past the 9-byte PortKey width this is used for.
func packSixBitValues(out []byte, values []int) {
	var acc uint32
	accBits := uint(0)
	outIdx := 0
	for _, v := range values {
		acc = acc<<6 | uint32(v)
		accBits += 6
		for accBits >= 8 {
			accBits -= 8
			out[outIdx] = byte(acc >> accBits)
			outIdx++
			acc &= (1 << accBits) - 1
		}
	}
}

// unpackSixBitValues is the inverse of packSixBitValues.
func unpackSixBitValues(in []byte, n int) []int {
	out := make([]int, n)
	var acc uint32
	accBits := uint(0)
	inIdx := 0
	for i := 0; i < n; i++ {
		for accBits < 6 {
			acc = acc<<8 | uint32(in[inIdx])
			inIdx++
			accBits += 8
		}
		accBits -= 6
		out[i] = int((acc >> accBits) & 0x3f)
		acc &= (1 << accBits) - 1
	}
	return out
}
