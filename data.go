package roundtrip

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/roundtrip/gpucore"
)

// NewData returns the host payload: entries zero-valued words.
func NewData(entries int) []uint32 {
	if entries <= 0 {
		return nil
	}
	return make([]uint32, entries)
}

// EncodeWords serializes words in native byte order.
func EncodeWords(words []uint32) []byte {
	b := make([]byte, len(words)*gpucore.WordSize)
	for i, w := range words {
		binary.NativeEndian.PutUint32(b[i*gpucore.WordSize:], w)
	}
	return b
}

// DecodeWords reinterprets b as native-endian words.
// The length of b must be a multiple of 4.
func DecodeWords(b []byte) ([]uint32, error) {
	if len(b)%gpucore.WordSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a whole number of words", ErrSizeMismatch, len(b))
	}
	words := make([]uint32, len(b)/gpucore.WordSize)
	for i := range words {
		words[i] = binary.NativeEndian.Uint32(b[i*gpucore.WordSize:])
	}
	return words, nil
}

// countMismatches returns how many words differ from want.
func countMismatches(words []uint32, want uint32) int {
	n := 0
	for _, w := range words {
		if w != want {
			n++
		}
	}
	return n
}
