// Command logovm runs a compiled LogoVM executable image.
package main

import (
	"flag"
	"fmt"
	"os"
	"runtime/debug"

	"logovm/binfmt"
	"logovm/loader"
	"logovm/osext"
	"logovm/turtleos"
	"logovm/vm"
)

const usage = "usage: logovm [--version] [-d|--debug]... [-o|--osname NAME] PROGRAM\n"

// debugCount implements flag.Value so -d/--debug can be repeated to raise
// the debug level, the way the original CLI's argparse count action did.
type debugCount int

func (d *debugCount) String() string { return fmt.Sprintf("%d", int(*d)) }
func (d *debugCount) Set(string) error {
	*d++
	return nil
}
func (d *debugCount) IsBoolFlag() bool { return true }

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("logovm", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() { fmt.Fprint(os.Stderr, usage) }

	var showVersion bool
	var osname string
	var debugLevel debugCount
	fs.BoolVar(&showVersion, "version", false, "print the vm version and exit")
	fs.StringVar(&osname, "o", "", "os extension name override")
	fs.StringVar(&osname, "osname", "", "os extension name override")
	fs.Var(&debugLevel, "d", "raise debug/trace level (repeatable)")
	fs.Var(&debugLevel, "debug", "raise debug/trace level (repeatable)")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if showVersion {
		fmt.Printf("logovm %d.%d\n", vm.VersionMajor, vm.VersionMinor)
		return 0
	}

	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}
	programPath := fs.Arg(0)

	osext.Register("LogoOS", osext.NewLogoOS)
	osext.Register("TurtleOS", turtleos.New)

	buf, err := os.ReadFile(programPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logovm: %v\n", err)
		return 1
	}

	prog, err := loader.Load(buf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logovm: %v\n", err)
		return 1
	}

	if osname == "" {
		osname, err = peekOSName(prog.ExtInit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "logovm: %v\n", err)
			return 1
		}
	}

	mem := vm.NewMemory(len(prog.Data), 0)
	for i, v := range prog.Data {
		_ = mem.SetHeap(uint64(i), v)
	}
	mem.SetDebug(prog.Debug)

	console := vm.Console{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}
	machine := vm.New(prog.Code, mem, console, nil)

	ctor, err := osext.Lookup(osname)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logovm: %v\n", err)
		return 1
	}
	if _, err := ctor(machine, prog.ExtInit); err != nil {
		fmt.Fprintf(os.Stderr, "logovm: %v\n", err)
		return 1
	}

	if int(debugLevel) > 0 {
		runInteractive(machine)
		return 0
	}

	// Disable the garbage collector during the hot execution loop, the way the teacher's
	// RunProgram does around its own dispatch loop; restore it afterward.
	old := debug.SetGCPercent(-1)
	machine.Run()
	debug.SetGCPercent(old)

	return 0
}

// peekOSName reads just the leading osname field out of an extension-init
// blob without fully parsing it, so main can resolve a registry entry
// before handing the blob to that entry's own constructor.
func peekOSName(extInit []byte) (string, error) {
	if len(extInit) == 0 {
		return "", fmt.Errorf("logovm: no os specified and program carries no extension header")
	}
	name, err := binfmt.NewReader(extInit).ReadCString()
	if err != nil {
		return "", fmt.Errorf("logovm: reading osname from extension header: %w", err)
	}
	return name, nil
}
