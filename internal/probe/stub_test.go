//go:build !rust

package probe

import (
	"errors"
	"testing"

	"github.com/gogpu/roundtrip/gpucore"
)

func TestNativeUnavailable(t *testing.T) {
	if Available() {
		t.Fatal("Available() = true without the rust tag")
	}
	if _, err := Native(gpucore.PowerPreferenceDefault); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Native() error = %v, want ErrUnavailable", err)
	}
}
