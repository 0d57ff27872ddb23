package osext

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"logovm/vm"
)

func assert(t *testing.T, cond bool, format string, args ...any) {
	if !cond {
		t.Fatalf(fmt.Sprintf("%v %s", cond, format), args...)
	}
}

func runLogoOSProgram(t *testing.T, code []vm.Instruction, data []vm.Value, input string) string {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	mem := vm.NewMemory(len(data), 0)
	for i, v := range data {
		assert(t, mem.SetHeap(uint64(i), v) == nil, "seeding data[%d] failed", i)
	}
	console := vm.Console{In: strings.NewReader(input), Out: out, Err: errOut}
	m := vm.New(code, mem, console, nil)

	initBlob := encodeLogoOSInit(t, "LogoOS", 0, 2)
	_, err := NewLogoOS(m, initBlob)
	assert(t, err == nil, "NewLogoOS failed: %v", err)

	m.Run()
	assert(t, errOut.Len() == 0, "unexpected error output: %s", errOut.String())
	return out.String()
}

func encodeLogoOSInit(t *testing.T, osname string, major, minor uint8) []byte {
	var buf []byte
	buf = append(buf, []byte(osname)...)
	buf = append(buf, 0)
	buf = append(buf, major, minor)
	return buf
}

func TestHelloScenario(t *testing.T) {
	code := []vm.Instruction{
		{Op: vm.Load, ArgU64: 0},
		{Op: vm.Pushi, ArgI64: 1},
		{Op: vm.Intr, ArgU64: 1},
		{Op: vm.Halt},
	}
	data := []vm.Value{vm.Str("Hello World!\n")}
	got := runLogoOSProgram(t, code, data, "")
	assert(t, got == "Hello World!\n", "hello scenario mismatch: %q", got)
}

func TestHello2Scenario(t *testing.T) {
	code := []vm.Instruction{
		{Op: vm.Pushs, ArgStr: "Hello World!\n"},
		{Op: vm.Pushi, ArgI64: 1},
		{Op: vm.Intr, ArgU64: 1},
		{Op: vm.Halt},
	}
	got := runLogoOSProgram(t, code, nil, "")
	assert(t, got == "Hello World!\n", "hello2 scenario mismatch: %q", got)
}

func TestSwapScenario(t *testing.T) {
	code := []vm.Instruction{
		{Op: vm.Pushi, ArgI64: 2},
		{Op: vm.Pushi, ArgI64: 3},
		{Op: vm.Swap},
		{Op: vm.Sub},
		{Op: vm.Pushi, ArgI64: 1},
		{Op: vm.Intr, ArgU64: 1},
		{Op: vm.Halt},
	}
	got := runLogoOSProgram(t, code, nil, "")
	assert(t, got == "1", "swap scenario mismatch: %q", got)
}

func TestCircleAreaScenario(t *testing.T) {
	code := []vm.Instruction{
		{Op: vm.Pushs, ArgStr: "Circle ray: "},
		{Op: vm.Pushi, ArgI64: 1},
		{Op: vm.Intr, ArgU64: 1},
		{Op: vm.Intr, ArgU64: 2},
		{Op: vm.Pushi, ArgI64: 2},
		{Op: vm.Pow},
		{Op: vm.Load, ArgU64: 0},
		{Op: vm.Mul},
		{Op: vm.Pushs, ArgStr: "Circle area: "},
		{Op: vm.Swap},
		{Op: vm.Pushs, ArgStr: "\n"},
		{Op: vm.Pushi, ArgI64: 3},
		{Op: vm.Intr, ArgU64: 1},
		{Op: vm.Halt},
	}
	data := []vm.Value{vm.Float(3.141592)}
	got := runLogoOSProgram(t, code, data, "5\n")
	assert(t, got == "Circle ray: Circle area: 78.5398\n", "circle_area scenario mismatch: %q", got)
}

func TestNewLogoOSRejectsWrongName(t *testing.T) {
	mem := vm.NewMemory(0, 0)
	console := vm.Console{In: strings.NewReader(""), Out: &bytes.Buffer{}, Err: &bytes.Buffer{}}
	m := vm.New(nil, mem, console, nil)
	_, err := NewLogoOS(m, encodeLogoOSInit(t, "NotAnOS", 0, 2))
	assert(t, err != nil, "expected an error for a wrong os name")
}
