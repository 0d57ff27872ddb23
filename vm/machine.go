package vm

import (
	"fmt"
	"io"
)

// Flag bit positions within the machine's flag word (spec.md §3: "6 defined
// flags: PEN, DRAW, VERR, reserved, EXC; LSB unused"). Bit 0 is left unused
// so that a freshly zeroed flag word reads as "nothing set" without any bit
// carrying meaning by its absence.
const (
	FlagPen      = 1 // whether drawing operations deposit pixels
	FlagDraw     = 2 // at least one pixel written since last clear
	FlagVerr     = 3 // a pixel write hit a channel mismatch
	FlagReserved = 4 // unused, reserved for future extensions
	FlagExc      = 5 // a recoverable runtime exception was signaled
)

// NumRegisters is the general-register count; the last register (index 7)
// doubles as the program counter.
const NumRegisters = 8

// PCRegister is the index of the register aliased as PC.
const PCRegister = NumRegisters - 1

// NumInterrupts is the fixed size of the interrupt table.
const NumInterrupts = 16

// InterruptHandler is one installed interrupt: given the machine, it may
// read/write any machine state and return an error to abort execution.
type InterruptHandler func(m *Machine) error

// Console groups the three standard streams a program's interrupts talk to.
type Console struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// Machine is the LogoVM execution engine: registers, flags, call stack,
// operand stack/heap (via Memory), interrupt table, and the code vector it
// steps through. Extensions are wired in by installing closures into the
// interrupt table; Machine itself knows nothing about LogoOS or TurtleOS.
type Machine struct {
	regs  [NumRegisters]int64
	flags uint64

	running   bool
	callStack []int64

	mem  *Memory
	code []Instruction

	interrupts [NumInterrupts]InterruptHandler

	console Console

	rand func() float64
}

// New constructs a Machine over the given code and memory, with console
// streams wired to the given triple. rand supplies RAND's uniform float
// source; passing nil selects a default backed by math/rand.
func New(code []Instruction, mem *Memory, console Console, rand func() float64) *Machine {
	if rand == nil {
		rand = defaultRand
	}
	m := &Machine{
		mem:     mem,
		code:    code,
		console: console,
		rand:    rand,
	}
	return m
}

// Memory exposes the machine's stack/heap/debug vector to extensions; their
// interrupt handlers use it to pop arguments off and push results onto the
// operand stack.
func (m *Machine) Memory() *Memory { return m.mem }

// Console returns the machine's standard-stream triple.
func (m *Machine) Console() Console { return m.console }

// Register reads general register i (0..7, 7 being PC).
func (m *Machine) Register(i int) int64 { return m.regs[i] }

// SetRegister writes general register i.
func (m *Machine) SetRegister(i int, v int64) { m.regs[i] = v }

// PC returns the current program counter.
func (m *Machine) PC() int64 { return m.regs[PCRegister] }

// SetPC sets the program counter directly.
func (m *Machine) SetPC(v int64) { m.regs[PCRegister] = v }

// SetFlag sets bit n of the flag word.
func (m *Machine) SetFlag(n uint64) { m.flags |= 1 << n }

// UnsetFlag clears bit n of the flag word.
func (m *Machine) UnsetFlag(n uint64) { m.flags &^= 1 << n }

// IsFlagSet reports whether bit n of the flag word is set.
func (m *Machine) IsFlagSet(n uint64) bool { return m.flags&(1<<n) != 0 }

// SetInterrupt installs h as the handler for interrupt slot n. Extensions
// call this during construction to wire their handlers in; an unfilled
// slot behaves as a no-op per spec.md invariant 3.
func (m *Machine) SetInterrupt(n int, h InterruptHandler) {
	m.interrupts[n] = h
}

// PushCall pushes a return address onto the call stack.
func (m *Machine) PushCall(addr int64) { m.callStack = append(m.callStack, addr) }

// PopCall pops a return address off the call stack; ok is false if empty.
func (m *Machine) PopCall() (addr int64, ok bool) {
	if len(m.callStack) == 0 {
		return 0, false
	}
	top := len(m.callStack) - 1
	addr = m.callStack[top]
	m.callStack = m.callStack[:top]
	return addr, true
}

// CallStack returns a snapshot of the call stack, deepest-call-last, for
// error reporting.
func (m *Machine) CallStack() []int64 {
	out := make([]int64, len(m.callStack))
	copy(out, m.callStack)
	return out
}

// Running reports whether the execution loop should keep stepping.
func (m *Machine) Running() bool { return m.running }

// Halt clears the running flag; called by the HALT opcode handler.
func (m *Machine) Halt() { m.running = false }

// Code returns the loaded instruction vector.
func (m *Machine) Code() []Instruction { return m.code }

func (m *Machine) fail(err error) error {
	return &RuntimeError{PC: m.PC(), Err: err, CallStack: m.CallStack()}
}

// Run executes the loaded program from PC=-1 until HALT clears running or
// a runtime error occurs, then fires the shutdown interrupt (slot 0)
// regardless of how the loop ended. It mirrors the teacher's run loop:
// errors are printed to the error console (with the call stack, if
// non-empty) rather than propagated past this call, matching spec.md §4.4's
// "print message ... and terminate execution; re-raising is not required."
func (m *Machine) Run() {
	m.regs[PCRegister] = -1
	m.running = true
	for m.running {
		m.regs[PCRegister]++
		pc := m.regs[PCRegister]
		if pc < 0 || int(pc) >= len(m.code) {
			m.reportError(m.fail(ErrInvalidAddress))
			break
		}
		instr := m.code[pc]
		if err := m.dispatch(instr); err != nil {
			m.reportError(m.fail(err))
			break
		}
	}
	if h := m.interrupts[0]; h != nil {
		if err := h(m); err != nil {
			m.reportError(m.fail(err))
		}
	}
}

func (m *Machine) reportError(err error) {
	fmt.Fprintln(m.console.Err, err)
	if re, ok := err.(*RuntimeError); ok && len(re.CallStack) > 0 {
		fmt.Fprint(m.console.Err, "call stack:")
		for _, addr := range re.CallStack {
			fmt.Fprintf(m.console.Err, " %d", addr)
		}
		fmt.Fprintln(m.console.Err)
	}
}

// Step executes exactly one instruction at the current PC+1 (used by the
// interactive debugger). Callers are responsible for the PC=-1/running=true
// priming Run does automatically.
func (m *Machine) Step() error {
	m.regs[PCRegister]++
	pc := m.regs[PCRegister]
	if pc < 0 || int(pc) >= len(m.code) {
		return m.fail(ErrInvalidAddress)
	}
	instr := m.code[pc]
	if err := m.dispatch(instr); err != nil {
		return m.fail(err)
	}
	return nil
}

// Prime sets the machine up to begin single-stepping, equivalent to the
// first half of Run's setup.
func (m *Machine) Prime() {
	m.regs[PCRegister] = -1
	m.running = true
}

// Shutdown invokes the shutdown interrupt (slot 0), if installed. Exposed
// separately from Run so the debugger can trigger it after a manual HALT
// or an aborted session.
func (m *Machine) Shutdown() error {
	if h := m.interrupts[0]; h != nil {
		return h(m)
	}
	return nil
}
