package vm

// VersionMajor and VersionMinor identify this VM's bytecode-format version.
// A loaded program's own major.minor must be lexicographically <= this pair
// (spec.md invariant 5).
const (
	VersionMajor = 0
	VersionMinor = 2
)
