package osext

import (
	"fmt"
	"sync"

	"logovm/vm"
)

// Constructor builds an extension instance over an already-configured
// machine, given the raw extension-init blob parsed out of the executable
// by the loader. Constructors install their interrupt handlers as a side
// effect of construction.
type Constructor func(m *vm.Machine, initBlob []byte) (Extension, error)

// Extension is the minimal surface the runtime needs from an installed OS
// extension; everything else (interrupt wiring) already happened inside the
// Constructor.
type Extension interface {
	// Name returns the extension's registered name, for diagnostics.
	Name() string
}

var (
	registryMu sync.Mutex
	registry   = map[string]Constructor{}
)

// Register adds name to the extension registry. Per spec.md §9's design
// note, registration is an explicit call made by the entry point before
// loading a program, not a hidden side effect of importing a package.
func Register(name string, ctor Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = ctor
}

// Lookup returns the constructor registered under name, or an error
// wrapping ErrInvalidOS if no such extension was registered.
func Lookup(name string) (Constructor, error) {
	registryMu.Lock()
	defer registryMu.Unlock()
	ctor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("osext: unknown os %q: %w", name, ErrInvalidOS)
	}
	return ctor, nil
}
