package trie

import (
	"encoding/binary"

	"github.com/VictoriaMetrics/fastcache"

	"github.com/composable-guest/guestchain/bits"
)

// VerifiedCache memoises the outcome of Verify against a given (root, key,
// expectedHash, proof) tuple, so a light client re-checking the same proof
// (e.g. a relayer resubmitting within a block) skips re-hashing the whole
// path. It never affects correctness: a cache miss always falls through to
// a real Verify call.
type VerifiedCache struct {
	c *fastcache.Cache
}

// NewVerifiedCache creates a cache capped at maxBytes of backing memory.
func NewVerifiedCache(maxBytes int) *VerifiedCache {
	return &VerifiedCache{c: fastcache.New(maxBytes)}
}

// Verify behaves exactly like the package-level Verify, consulting and
// populating the cache around it.
func (vc *VerifiedCache) Verify(root Hash, key bits.Slice, expectedHash Hash, proof Proof) (bool, error) {
	k := cacheKey(root, key, expectedHash, proof)
	if buf, ok := vc.c.HasGet(nil, k); ok && len(buf) == 1 {
		return buf[0] == 1, nil
	}
	ok, err := Verify(root, key, expectedHash, proof)
	if err != nil {
		// Errors (malformed proofs) are cheap to re-detect and not worth
		// caching; only cache a definite accept/reject.
		return ok, err
	}
	var v [1]byte
	if ok {
		v[0] = 1
	}
	vc.c.Set(k, v[:])
	return ok, nil
}

// cacheKey folds the verification inputs into one byte slice. Items and
// the Actual are included via Marshal so any wire-level difference (even
// one that happens to verify the same way) gets its own cache entry —
// simpler and safer than trying to canonicalise a Proof by hand.
func cacheKey(root Hash, key bits.Slice, expectedHash Hash, proof Proof) []byte {
	packedKey := key.Packed()
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], key.Length)

	out := make([]byte, 0, 32+2+len(packedKey)+32+64)
	out = append(out, root[:]...)
	out = append(out, lenBuf[:]...)
	out = append(out, packedKey...)
	out = append(out, expectedHash[:]...)
	out = append(out, proof.Marshal()...)
	return out
}
