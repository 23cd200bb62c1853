package roundtrip

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// BackendFactory creates a fresh Backend for one run.
type BackendFactory func() Backend

// DeviceProviderAware is an optional interface for backends that can run on a
// GPU device owned by an external provider (e.g., a gogpu window).
// When SetDeviceProvider is called, the backend reuses the provided device
// instead of opening its own, and never destroys it.
type DeviceProviderAware interface {
	SetDeviceProvider(provider any) error
}

var (
	registryMu sync.RWMutex
	registry   = map[string]BackendFactory{}
)

// RegisterBackend makes a backend available under name.
// Registering a name again replaces the previous factory.
//
// Typical usage from a backend file:
//
//	func init() {
//	    roundtrip.RegisterBackend("hal", func() roundtrip.Backend { return gpu.New() })
//	}
func RegisterBackend(name string, factory BackendFactory) error {
	if name == "" {
		return errors.New("roundtrip: backend name must not be empty")
	}
	if factory == nil {
		return errors.New("roundtrip: backend factory must not be nil")
	}
	registryMu.Lock()
	registry[name] = factory
	registryMu.Unlock()
	return nil
}

// Backends returns the registered backend names in sorted order.
func Backends() []string {
	registryMu.RLock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	registryMu.RUnlock()
	sort.Strings(names)
	return names
}

// lookupBackend returns the factory registered under name.
func lookupBackend(name string) (BackendFactory, error) {
	registryMu.RLock()
	f, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (registered: %v)", ErrUnknownBackend, name, Backends())
	}
	return f, nil
}

// loggerSetter is implemented by backends that accept a logger.
type loggerSetter interface {
	SetLogger(*slog.Logger)
}

// propagateLogger passes the logger to a backend if it implements the
// loggerSetter interface.
func propagateLogger(b Backend, l *slog.Logger) {
	if ls, ok := b.(loggerSetter); ok {
		ls.SetLogger(l)
	}
}
