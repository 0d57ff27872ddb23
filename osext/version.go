package osext

import "fmt"

// checkVersion enforces the same "(major,minor) <= (wantMajor,wantMinor)"
// rule the loader applies to the file format, but scoped to one extension's
// own version (spec.md §7: InvalidOS covers "unknown or version-mismatched
// extension").
func checkVersion(major, minor, wantMajor, wantMinor uint8) error {
	if major > wantMajor || (major == wantMajor && minor > wantMinor) {
		return fmt.Errorf("osext: requires os version <= %d.%d, got %d.%d: %w",
			wantMajor, wantMinor, major, minor, ErrInvalidOS)
	}
	return nil
}
