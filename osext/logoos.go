package osext

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"logovm/binfmt"
	"logovm/vm"
)

// LogoOSVersionMajor/Minor is the version this extension implements.
const (
	LogoOSVersionMajor = 0
	LogoOSVersionMinor = 2
)

// LogoOS is the base console-I/O extension: interrupt 0 is a shutdown
// no-op, 1 is WRITE, 2 is READ.
type LogoOS struct {
	machine *vm.Machine
	osname  string
}

// NewLogoOS parses the extension-init blob (osname, major, minor), installs
// LogoOS's interrupts into m, and returns the extension. Returns an error
// wrapping ErrInvalidOS if osname isn't "LogoOS" or the requested version
// exceeds what this extension implements.
func NewLogoOS(m *vm.Machine, initBlob []byte) (Extension, error) {
	rec, err := binfmt.NewReader(initBlob).ParseRecord([]binfmt.Field{
		{Name: "osname", Type: binfmt.TypeCString},
		{Name: "major", Type: binfmt.TypeU8},
		{Name: "minor", Type: binfmt.TypeU8},
	})
	if err != nil {
		return nil, fmt.Errorf("osext: parsing LogoOS init: %w", ErrInvalidOS)
	}
	osname := rec["osname"].(string)
	if osname != "LogoOS" {
		return nil, fmt.Errorf("osext: unsupported os %q: %w", osname, ErrInvalidOS)
	}
	if err := checkVersion(rec["major"].(uint8), rec["minor"].(uint8), LogoOSVersionMajor, LogoOSVersionMinor); err != nil {
		return nil, err
	}

	os := &LogoOS{machine: m, osname: osname}
	InstallConsoleInterrupts(m)
	return os, nil
}

// Name returns "LogoOS".
func (os *LogoOS) Name() string { return os.osname }

// InstallConsoleInterrupts wires the shutdown-no-op/WRITE/READ triple into
// slots 0/1/2. It is exported so TurtleOS (which extends LogoOS per
// spec.md §4.6) can reuse it without going through LogoOS's own osname
// check, then override slot 0 with its own image-saving shutdown.
func InstallConsoleInterrupts(m *vm.Machine) {
	m.SetInterrupt(0, func(*vm.Machine) error { return nil })
	m.SetInterrupt(1, writeInterrupt)
	m.SetInterrupt(2, readInterrupt)
}

// writeInterrupt implements interrupt 1: pop count n, then pop n Values,
// and print their text forms concatenated in original push order (the pops
// happen LIFO, so the popped slice must be reversed before printing),
// interpreting \n and \t escape sequences in the result.
func writeInterrupt(m *vm.Machine) error {
	nv, err := m.Memory().Pop()
	if err != nil {
		return err
	}
	if nv.Kind() != vm.KindInt {
		return vm.ErrTypeMismatch
	}
	n := nv.Int64()
	if n < 0 {
		return vm.ErrTypeMismatch
	}
	parts := make([]string, n)
	for i := int64(0); i < n; i++ {
		v, err := m.Memory().Pop()
		if err != nil {
			return err
		}
		parts[n-1-i] = v.Text()
	}
	text := strings.Join(parts, "")
	text = interpretEscapes(text)
	fmt.Fprint(m.Console().Out, text)
	return nil
}

// interpretEscapes turns literal backslash-n / backslash-t sequences into
// real newline/tab characters, per spec.md §4.5's WRITE description.
func interpretEscapes(s string) string {
	s = strings.ReplaceAll(s, `\n`, "\n")
	s = strings.ReplaceAll(s, `\t`, "\t")
	return s
}

// readInterrupt implements interrupt 2: read one line from the input
// stream and auto-convert it to int, then float, then leave as string.
func readInterrupt(m *vm.Machine) error {
	scanner := bufio.NewScanner(m.Console().In)
	line := ""
	if scanner.Scan() {
		line = scanner.Text()
	}
	return m.Memory().Push(Autoconvert(line))
}

// Autoconvert mirrors DataTranslator.autoconvert: try int64, then float64,
// else keep the raw string.
func Autoconvert(s string) vm.Value {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return vm.Int(i)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return vm.Float(f)
	}
	return vm.Str(s)
}
