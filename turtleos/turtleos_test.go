package turtleos

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"logovm/binfmt"
	"logovm/osext"
	"logovm/vm"
)

func assert(t *testing.T, cond bool, format string, args ...any) {
	if !cond {
		t.Fatalf(fmt.Sprintf("%v %s", cond, format), args...)
	}
}

func encodeTurtleInit(osname string, width, height uint16) []byte {
	w := binfmt.NewWriter()
	w.WriteCString(osname)
	w.WriteU8(VersionMajor)
	w.WriteU8(VersionMinor)
	w.WriteU16LE(width)
	w.WriteU16LE(height)
	w.WriteU16LE(0)
	w.WriteU16LE(0)
	w.WriteU16LE(0)
	w.WriteU8(1) // imageformat: PGM
	return w.Bytes()
}

func newTurtleMachine(t *testing.T, code []vm.Instruction, width, height uint16) (*vm.Machine, *TurtleOS) {
	out := &bytes.Buffer{}
	mem := vm.NewMemory(0, 0)
	console := vm.Console{In: strings.NewReader(""), Out: out, Err: &bytes.Buffer{}}
	m := vm.New(code, mem, console, nil)
	ext, err := New(m, encodeTurtleInit("TurtleOS", width, height))
	assert(t, err == nil, "New(TurtleOS) failed: %v", err)
	return m, ext.(*TurtleOS)
}

func squareMoveToCode(print3 bool) []vm.Instruction {
	code := []vm.Instruction{
		{Op: vm.Pushi, ArgI64: 9}, {Op: vm.Pushi, ArgI64: 0}, {Op: vm.Intr, ArgU64: 5},
		{Op: vm.Pushi, ArgI64: 9}, {Op: vm.Pushi, ArgI64: 9}, {Op: vm.Intr, ArgU64: 5},
		{Op: vm.Pushi, ArgI64: 0}, {Op: vm.Pushi, ArgI64: 9}, {Op: vm.Intr, ArgU64: 5},
		{Op: vm.Pushi, ArgI64: 0}, {Op: vm.Pushi, ArgI64: 0}, {Op: vm.Intr, ArgU64: 5},
	}
	if print3 {
		code = append(code,
			vm.Instruction{Op: vm.Intr, ArgU64: 6},
			vm.Instruction{Op: vm.Pushi, ArgI64: 3},
			vm.Instruction{Op: vm.Intr, ArgU64: 1},
		)
	}
	code = append(code, vm.Instruction{Op: vm.Halt})
	return code
}

func TestSquareScenarioViaMoveTo(t *testing.T) {
	code := squareMoveToCode(true)
	m, turtle := newTurtleMachine(t, code, 10, 10)
	out := m.Console().Out.(*bytes.Buffer)
	m.Run()
	assert(t, out.String() == "000.0", "square scenario output mismatch: got %q", out.String())

	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			onBorder := x == 0 || x == 9 || y == 0 || y == 9
			want := byte(0)
			if onBorder {
				want = 255
			}
			assert(t, turtle.fb.At(x, y) == want, "pixel (%d,%d): got %d want %d", x, y, turtle.fb.At(x, y), want)
		}
	}
}

func squareMoveCode() []vm.Instruction {
	angles := []float64{0, 270, 180, 90}
	var code []vm.Instruction
	for _, a := range angles {
		code = append(code,
			vm.Instruction{Op: vm.Pushi, ArgI64: 10},
			vm.Instruction{Op: vm.Pushd, ArgF64: a},
			vm.Instruction{Op: vm.Intr, ArgU64: 4},
		)
	}
	code = append(code,
		vm.Instruction{Op: vm.Intr, ArgU64: 6},
		vm.Instruction{Op: vm.Pushi, ArgI64: 3},
		vm.Instruction{Op: vm.Intr, ArgU64: 1},
		vm.Instruction{Op: vm.Halt},
	)
	return code
}

func TestSquareScenarioViaMove(t *testing.T) {
	code := squareMoveCode()
	m, turtle := newTurtleMachine(t, code, 10, 10)
	out := m.Console().Out.(*bytes.Buffer)
	m.Run()
	assert(t, out.String() == "0090.0", "square2 scenario output mismatch: got %q", out.String())
	_ = turtle
}

func TestPenGatingLeavesFramebufferUntouched(t *testing.T) {
	code := []vm.Instruction{
		{Op: vm.Unsetf, ArgU64: vm.FlagPen},
		{Op: vm.Pushi, ArgI64: 5}, {Op: vm.Pushi, ArgI64: 5}, {Op: vm.Intr, ArgU64: 5},
		{Op: vm.Pushi, ArgI64: 20}, {Op: vm.Pushd, ArgF64: 0}, {Op: vm.Intr, ArgU64: 4},
		{Op: vm.Pushi, ArgI64: 5}, {Op: vm.Pushi, ArgI64: 5}, {Op: vm.Intr, ArgU64: 3},
		{Op: vm.Halt},
	}
	m, turtle := newTurtleMachine(t, code, 10, 10)
	m.Run()
	assert(t, !m.IsFlagSet(vm.FlagDraw), "DRAW must stay false while PEN is unset")
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			assert(t, turtle.fb.At(x, y) == 0, "pixel (%d,%d) modified despite PEN unset", x, y)
		}
	}
}

func TestShutdownSkipsImageSaveWhenNoDrawing(t *testing.T) {
	code := []vm.Instruction{{Op: vm.Halt}}
	m, turtle := newTurtleMachine(t, code, 4, 4)
	turtle.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	m.Run()
	_, statErr := os.Stat(turtle.now().Format("20060102-150405") + ".pgm")
	assert(t, statErr != nil, "no image file should be written when DRAW is unset")
}

var _ osext.Extension = (*TurtleOS)(nil)
