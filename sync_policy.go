package roundtrip

import (
	"fmt"
	"strconv"
	"strings"
)

// SyncPolicy decides where completion waits go in the dispatch loop.
//
// The zero value inserts none: dispatches are ordered only by queue
// submission order.
type SyncPolicy struct {
	// Every is the number of dispatches between waits. Zero disables waits.
	Every int
}

// Common policies.
var (
	// SyncNone relies on submission order alone.
	SyncNone = SyncPolicy{}

	// SyncEach waits for the device after every dispatch.
	SyncEach = SyncPolicy{Every: 1}
)

// SyncEvery returns a policy that waits after every n dispatches.
func SyncEvery(n int) SyncPolicy {
	return SyncPolicy{Every: n}
}

// WaitAfter reports whether a wait follows dispatch i (1-based).
func (p SyncPolicy) WaitAfter(i int) bool {
	return p.Every > 0 && i > 0 && i%p.Every == 0
}

// Waits returns how many waits the policy inserts over iterations dispatches.
func (p SyncPolicy) Waits(iterations int) int {
	if p.Every <= 0 || iterations <= 0 {
		return 0
	}
	return iterations / p.Every
}

// String formats the policy as accepted by ParseSyncPolicy.
func (p SyncPolicy) String() string {
	switch {
	case p.Every <= 0:
		return "none"
	case p.Every == 1:
		return "each"
	default:
		return "every:" + strconv.Itoa(p.Every)
	}
}

// ParseSyncPolicy parses "none", "each" or "every:N" with N >= 1.
// The empty string is "none".
func ParseSyncPolicy(s string) (SyncPolicy, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "", "none":
		return SyncNone, nil
	case "each":
		return SyncEach, nil
	}

	rest, ok := strings.CutPrefix(s, "every:")
	if !ok {
		return SyncNone, fmt.Errorf("%w: %q", ErrInvalidSyncPolicy, s)
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 1 {
		return SyncNone, fmt.Errorf("%w: %q: want every:N with N >= 1", ErrInvalidSyncPolicy, s)
	}
	return SyncEvery(n), nil
}

// MarshalText implements encoding.TextMarshaler.
func (p SyncPolicy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *SyncPolicy) UnmarshalText(text []byte) error {
	parsed, err := ParseSyncPolicy(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
