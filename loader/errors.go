// Package loader turns a raw byte stream into a ready-to-run program image:
// extension-init blob, code vector, data vector, and debug-symbol vector.
// It knows the container framing (magic, version, section marks); it knows
// nothing about opcode semantics or OS extensions.
package loader

import "errors"

// File/format error kinds (spec.md §7). InvalidLogoFile covers every
// decoding failure (bad magic, bad section marks, unknown data tag, and
// also truncated reads and invalid UTF-8 from binfmt.Reader, which are
// reported as InvalidLogoFile rather than as binfmt's own errors);
// VersionTooNew is raised when a program's version exceeds this VM's.
var (
	ErrInvalidLogoFile = errors.New("loader: invalid logovm file")
	ErrVersionTooNew   = errors.New("loader: program version is newer than this vm")
)
