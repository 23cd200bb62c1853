package roundtrip

import (
	"errors"
	"testing"
)

func TestParseSyncPolicy(t *testing.T) {
	tests := []struct {
		in   string
		want SyncPolicy
	}{
		{"", SyncNone},
		{"none", SyncNone},
		{"NONE", SyncNone},
		{"each", SyncEach},
		{" each ", SyncEach},
		{"every:1", SyncEach},
		{"every:5", SyncEvery(5)},
		{"every:100", SyncEvery(100)},
	}
	for _, tt := range tests {
		got, err := ParseSyncPolicy(tt.in)
		if err != nil {
			t.Errorf("ParseSyncPolicy(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseSyncPolicy(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseSyncPolicyInvalid(t *testing.T) {
	for _, in := range []string{"always", "every", "every:", "every:0", "every:-1", "every:x", "3"} {
		if _, err := ParseSyncPolicy(in); !errors.Is(err, ErrInvalidSyncPolicy) {
			t.Errorf("ParseSyncPolicy(%q) error = %v, want ErrInvalidSyncPolicy", in, err)
		}
	}
}

func TestSyncPolicyString(t *testing.T) {
	tests := []struct {
		p    SyncPolicy
		want string
	}{
		{SyncNone, "none"},
		{SyncEach, "each"},
		{SyncEvery(3), "every:3"},
	}
	for _, tt := range tests {
		if got := tt.p.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
		back, err := ParseSyncPolicy(tt.want)
		if err != nil || back != tt.p {
			t.Errorf("ParseSyncPolicy(%q) = %v, %v; want %v", tt.want, back, err, tt.p)
		}
	}
}

func TestSyncPolicyWaitAfter(t *testing.T) {
	every3 := SyncEvery(3)
	var got []int
	for i := 1; i <= 10; i++ {
		if every3.WaitAfter(i) {
			got = append(got, i)
		}
	}
	if len(got) != 3 || got[0] != 3 || got[1] != 6 || got[2] != 9 {
		t.Errorf("every:3 waits after %v, want [3 6 9]", got)
	}

	for i := 0; i <= 10; i++ {
		if SyncNone.WaitAfter(i) {
			t.Errorf("none waits after %d", i)
		}
	}
	if SyncEach.WaitAfter(0) {
		t.Error("each waits after dispatch 0")
	}
}

func TestSyncPolicyWaits(t *testing.T) {
	tests := []struct {
		p          SyncPolicy
		iterations int
		want       int
	}{
		{SyncNone, 100, 0},
		{SyncEach, 10, 10},
		{SyncEvery(3), 10, 3},
		{SyncEvery(10), 10, 1},
		{SyncEvery(11), 10, 0},
		{SyncEach, 0, 0},
	}
	for _, tt := range tests {
		if got := tt.p.Waits(tt.iterations); got != tt.want {
			t.Errorf("%v.Waits(%d) = %d, want %d", tt.p, tt.iterations, got, tt.want)
		}
	}
}

func TestSyncPolicyText(t *testing.T) {
	var p SyncPolicy
	if err := p.UnmarshalText([]byte("every:4")); err != nil {
		t.Fatal(err)
	}
	if p != SyncEvery(4) {
		t.Errorf("UnmarshalText = %v, want every:4", p)
	}
	b, err := p.MarshalText()
	if err != nil || string(b) != "every:4" {
		t.Errorf("MarshalText = %q, %v", b, err)
	}
	if err := p.UnmarshalText([]byte("sometimes")); err == nil {
		t.Error("UnmarshalText accepted an invalid policy")
	}
}
