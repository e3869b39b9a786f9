package hostglue

import "github.com/composable-guest/guestchain/xerrors"

// HostTimeNs converts a sysvar-style Unix-seconds timestamp (the form a
// host runtime's clock sysvar reports) into the non-zero nanosecond
// timestamp the chain manager and light client operate on (spec.md
// §4.10). A non-positive unixSeconds is rejected rather than silently
// clamped, since block generation and header verification both treat a
// zero timestamp as "never happened."
func HostTimeNs(unixSeconds int64) (uint64, error) {
	if unixSeconds <= 0 {
		return 0, xerrors.ErrBadHostTimestamp
	}
	return uint64(unixSeconds) * 1_000_000_000, nil
}
