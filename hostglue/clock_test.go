package hostglue

import "testing"

func TestHostTimeNs(t *testing.T) {
	got, err := HostTimeNs(1700000000)
	if err != nil {
		t.Fatalf("HostTimeNs: %v", err)
	}
	want := uint64(1700000000) * 1_000_000_000
	if got != want {
		t.Fatalf("HostTimeNs = %d, want %d", got, want)
	}
}

func TestHostTimeNsRejectsNonPositive(t *testing.T) {
	for _, s := range []int64{0, -1} {
		if _, err := HostTimeNs(s); err == nil {
			t.Fatalf("HostTimeNs(%d) should have failed", s)
		}
	}
}
