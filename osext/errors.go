// Package osext provides the OS-extension registry and the base LogoOS
// extension (console I/O). Extensions are constructed after the machine and
// its program are in place; they install interrupt handlers that capture a
// reference to the machine and nothing else.
package osext

import "errors"

// OS-init error kinds (spec.md §7).
var (
	// ErrInvalidOS is returned when the requested/embedded OS name is
	// unknown to the registry, or an extension's own version check fails.
	ErrInvalidOS = errors.New("osext: invalid or unsupported os")
	// ErrExtensionError covers an extension failing at run time, such as
	// TurtleOS being unable to create its image file at shutdown. (An INTR
	// outside the fixed 16-slot table is vm.ErrInvalidCommand instead.)
	ErrExtensionError = errors.New("osext: extension error")
)
