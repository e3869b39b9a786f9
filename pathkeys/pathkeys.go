// Package pathkeys maps IBC paths to trie keys (spec §4.9): each path
// family gets a single-byte tag discriminant followed by a big-endian
// encoding of its identifiers, so that keys sort the way the numeric
// identifiers they encode do. This mirrors trie-ids/src/path_info.rs's
// TryFrom<ibc::path::Path> impls, expressed as a set of constructor
// functions rather than a From impl per path type.
package pathkeys

import (
	"encoding/binary"
	"strconv"
	"strings"

	"github.com/composable-guest/guestchain/xerrors"
)

// Tag discriminates the path families a trie key can belong to.
type Tag uint8

const (
	TagClientState          Tag = 0
	TagClientConsensusState Tag = 1
	TagConnection           Tag = 2
	TagChannelEnd           Tag = 3
	TagNextSequence         Tag = 4
	TagCommitment           Tag = 5
	TagReceipt              Tag = 6
	TagAck                  Tag = 7
)

// SequenceKind distinguishes the three applications of a NextSequence
// path, which all map to the same trie key (spec §4.9) and so must be
// told apart some other way by a caller that cares which one it asked
// for.
type SequenceKind int

const (
	SequenceSend SequenceKind = iota
	SequenceRecv
	SequenceAck
)

// Key is a constructed trie key: the wire bytes actually written to or
// looked up in the trie.
type Key []byte

// PathInfo is what parsing an IBC path into a trie key yields (mirrors
// path_info.rs's PathInfo struct): the key itself, plus the client id
// the key was derived from (client/consensus-state paths only, since
// the key compresses the id down to its counter) and the sequence kind
// (next-sequence paths only, since Send/Recv/Ack share one key).
type PathInfo struct {
	Key       Key
	ClientID  string
	HasClient bool
	SeqKind   SequenceKind
	HasSeq    bool
}

func putU32BE(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

func putU64BE(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

// parseIdx parses an identifier of the form "<type>-<counter>", e.g.
// "07-tendermint-3" or "connection-4", returning the counter. Only the
// numeric suffix after the final hyphen is kept; the type prefix exists
// only for human readability and carries no information the key needs.
func parseIdx(id string) (uint32, error) {
	i := strings.LastIndexByte(id, '-')
	if i < 0 || i == len(id)-1 {
		return 0, xerrors.ErrBadIdentifier
	}
	n, err := strconv.ParseUint(id[i+1:], 10, 32)
	if err != nil {
		return 0, xerrors.ErrBadIdentifier
	}
	return uint32(n), nil
}

// ForClientState builds the key for a ClientState(client) path: tag 0
// followed by the client's counter.
func ForClientState(clientID string) (PathInfo, error) {
	idx, err := parseIdx(clientID)
	if err != nil {
		return PathInfo{}, err
	}
	key := append([]byte{byte(TagClientState)}, putU32BE(idx)...)
	return PathInfo{Key: key, ClientID: clientID, HasClient: true}, nil
}

// ForClientConsensusState builds the key for a
// ClientConsensusState(client, rev_no, rev_h) path: tag 1, the client's
// counter, then the revision number and height.
func ForClientConsensusState(clientID string, revisionNumber, revisionHeight uint64) (PathInfo, error) {
	idx, err := parseIdx(clientID)
	if err != nil {
		return PathInfo{}, err
	}
	key := append([]byte{byte(TagClientConsensusState)}, putU32BE(idx)...)
	key = append(key, putU64BE(revisionNumber)...)
	key = append(key, putU64BE(revisionHeight)...)
	return PathInfo{Key: key, ClientID: clientID, HasClient: true}, nil
}

// ForConnection builds the key for a Connection(conn) path: tag 2
// followed by the connection's counter.
func ForConnection(connectionID string) (PathInfo, error) {
	idx, err := parseIdx(connectionID)
	if err != nil {
		return PathInfo{}, err
	}
	key := append([]byte{byte(TagConnection)}, putU32BE(idx)...)
	return PathInfo{Key: key}, nil
}

// ForChannelEnd builds the key for a ChannelEnd(port, chan) path: tag 3,
// the port's 9-byte encoding, then the channel's counter.
func ForChannelEnd(portID, channelID string) (PathInfo, error) {
	return withChannel(TagChannelEnd, portID, channelID)
}

// ForNextSequence builds the key shared by the Send/Recv/Ack
// next-sequence paths: tag 4, the port's 9-byte encoding, then the
// channel's counter. kind records which of the three sequence numbers
// the caller actually asked for, since the key alone cannot.
func ForNextSequence(kind SequenceKind, portID, channelID string) (PathInfo, error) {
	info, err := withChannel(TagNextSequence, portID, channelID)
	if err != nil {
		return PathInfo{}, err
	}
	info.SeqKind = kind
	info.HasSeq = true
	return info, nil
}

// ForCommitment builds the key for a Commitment(port, chan, seq) path.
func ForCommitment(portID, channelID string, sequence uint64) (PathInfo, error) {
	return withSeq(TagCommitment, portID, channelID, sequence)
}

// ForReceipt builds the key for a Receipt(port, chan, seq) path.
func ForReceipt(portID, channelID string, sequence uint64) (PathInfo, error) {
	return withSeq(TagReceipt, portID, channelID, sequence)
}

// ForAck builds the key for an Ack(port, chan, seq) path.
func ForAck(portID, channelID string, sequence uint64) (PathInfo, error) {
	return withSeq(TagAck, portID, channelID, sequence)
}

func withChannel(tag Tag, portID, channelID string) (PathInfo, error) {
	portKey, err := EncodePortID(portID)
	if err != nil {
		return PathInfo{}, err
	}
	chanIdx, err := parseIdx(channelID)
	if err != nil {
		return PathInfo{}, err
	}
	key := append([]byte{byte(tag)}, portKey[:]...)
	key = append(key, putU32BE(chanIdx)...)
	return PathInfo{Key: key}, nil
}

func withSeq(tag Tag, portID, channelID string, sequence uint64) (PathInfo, error) {
	info, err := withChannel(tag, portID, channelID)
	if err != nil {
		return PathInfo{}, err
	}
	info.Key = append(info.Key, putU64BE(sequence)...)
	return info, nil
}

// NeedsClientMixing reports whether paths tagged t store their trie
// value digest-mixed with the client id (spec §4.9): tags 0 and 1 both
// begin with a client counter that alone does not disambiguate which
// client id produced it, so the stored digest additionally commits to
// the full id.
func (t Tag) NeedsClientMixing() bool {
	return t == TagClientState || t == TagClientConsensusState
}

// MixClientDigestInput returns the bytes digest(client_id ‖ 0x30 ‖
// value) is computed over for a tag-0/tag-1 path (spec §4.9); value is
// whatever would otherwise be hashed directly to produce the trie's
// stored value digest.
func MixClientDigestInput(clientID string, value []byte) []byte {
	out := make([]byte, 0, len(clientID)+1+len(value))
	out = append(out, []byte(clientID)...)
	out = append(out, 0x30)
	out = append(out, value...)
	return out
}

// EncodeNextSequenceValue builds the 32-byte value Send/Recv/Ack
// next-sequence numbers share in the trie (spec §4.9):
// be(send) ‖ be(recv) ‖ be(ack) ‖ 0⁸.
func EncodeNextSequenceValue(send, recv, ack uint64) [32]byte {
	var out [32]byte
	binary.BigEndian.PutUint64(out[0:8], send)
	binary.BigEndian.PutUint64(out[8:16], recv)
	binary.BigEndian.PutUint64(out[16:24], ack)
	return out
}

// DecodeNextSequenceValue is the inverse of EncodeNextSequenceValue.
func DecodeNextSequenceValue(value [32]byte) (send, recv, ack uint64) {
	send = binary.BigEndian.Uint64(value[0:8])
	recv = binary.BigEndian.Uint64(value[8:16])
	ack = binary.BigEndian.Uint64(value[16:24])
	return
}
