package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"logovm/vm"
)

// runInteractive single-steps machine under operator control: 'n' (or
// Enter) executes one instruction, 'r' frees it to run to completion, 'q'
// quits immediately. When stdin is a terminal it reads raw keypresses;
// otherwise it falls back to line-buffered commands so piping a command
// script still works.
func runInteractive(m *vm.Machine) {
	m.Prime()
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		runInteractiveRaw(m, fd)
	} else {
		runInteractiveLines(m)
	}
	if err := m.Shutdown(); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
}

func printPrompt(m *vm.Machine) {
	pc := m.PC() + 1
	var instr string
	if pc >= 0 && int(pc) < len(m.Code()) {
		instr = m.Code()[pc].String()
	} else {
		instr = "<end>"
	}
	fmt.Fprintf(os.Stderr, "[pc=%d] %s (n=step r=run q=quit) ", pc, instr)
}

func runInteractiveRaw(m *vm.Machine, fd int) {
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logovm: debug mode: %v\n", err)
		runInteractiveLines(m)
		return
	}
	defer term.Restore(fd, oldState)

	buf := make([]byte, 1)
	for m.Running() {
		printPrompt(m)
		n, err := os.Stdin.Read(buf)
		if n == 0 || err != nil {
			fmt.Fprintln(os.Stderr)
			return
		}
		fmt.Fprintln(os.Stderr)
		switch buf[0] {
		case 'q', 'Q', 3: // 3 = Ctrl-C
			return
		case 'r', 'R':
			runFree(m)
			return
		default:
			if err := m.Step(); err != nil {
				fmt.Fprintln(os.Stderr, err)
				return
			}
		}
	}
}

func runInteractiveLines(m *vm.Machine) {
	scanner := bufio.NewScanner(os.Stdin)
	for m.Running() {
		printPrompt(m)
		if !scanner.Scan() {
			fmt.Fprintln(os.Stderr)
			return
		}
		cmd := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(cmd) {
		case "q", "quit":
			return
		case "r", "run":
			runFree(m)
			return
		default:
			if err := m.Step(); err != nil {
				fmt.Fprintln(os.Stderr, err)
				return
			}
		}
	}
}

func runFree(m *vm.Machine) {
	for m.Running() {
		if err := m.Step(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return
		}
	}
}
