package vm

import (
	"bytes"
	"fmt"
	"testing"
)

func assert(t *testing.T, cond bool, format string, args ...any) {
	if !cond {
		t.Fatalf(fmt.Sprintf("%v %s", cond, format), args...)
	}
}

func newTestMachine(code []Instruction, heapSize int) (*Machine, *bytes.Buffer, *bytes.Buffer) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	mem := NewMemory(heapSize, 0)
	console := Console{In: bytes.NewReader(nil), Out: out, Err: errOut}
	m := New(code, mem, console, func() float64 { return 0.5 })
	return m, out, errOut
}

func TestStackBoundsOverflowAndUnderflow(t *testing.T) {
	mem := NewMemory(0, 4)
	for i := 0; i < 4; i++ {
		assert(t, mem.Push(Int(int64(i))) == nil, "push %d should not fail", i)
	}
	assert(t, mem.Push(Int(99)) == ErrStackOverflow, "5th push should overflow")

	empty := NewMemory(0, 4)
	_, err := empty.Pop()
	assert(t, err == ErrEmptyStack, "pop on empty stack should signal ErrEmptyStack")
}

func TestJumpConvention(t *testing.T) {
	code := []Instruction{
		{Op: Jp, ArgU64: 2},
		{Op: Halt},
		{Op: Pushi, ArgI64: 7},
		{Op: Halt},
	}
	m, _, _ := newTestMachine(code, 0)
	m.Run()
	v, err := m.Memory().Pop()
	assert(t, err == nil, "expected a pushed value after jump, got err %v", err)
	assert(t, v.Kind() == KindInt && v.Int64() == 7, "expected PUSHI 7 to have executed at the jump target")
}

func TestCmpBranchComposition(t *testing.T) {
	code := []Instruction{
		{Op: Pushi, ArgI64: 3},
		{Op: Pushi, ArgI64: 3},
		{Op: Cmp},
		{Op: Jz, ArgU64: 6},
		{Op: Pushi, ArgI64: 0},
		{Op: Halt},
		{Op: Pushi, ArgI64: 1},
		{Op: Halt},
	}
	m, _, _ := newTestMachine(code, 0)
	m.Run()
	v, err := m.Memory().Pop()
	assert(t, err == nil, "unexpected error popping result: %v", err)
	assert(t, v.Int64() == 1, "equal operands should take the JZ branch")
}

func TestIDivIdentity(t *testing.T) {
	cases := [][2]int64{{7, 2}, {-7, 2}, {7, -2}, {-7, -2}}
	for _, c := range cases {
		a, b := c[0], c[1]
		code := []Instruction{
			{Op: Pushi, ArgI64: a},
			{Op: Pushi, ArgI64: b},
			{Op: IDiv},
			{Op: Halt},
		}
		m, _, _ := newTestMachine(code, 0)
		m.Run()
		quot, err := m.Memory().Pop()
		assert(t, err == nil, "idiv(%d,%d): pop quotient: %v", a, b, err)
		rem, err := m.Memory().Pop()
		assert(t, err == nil, "idiv(%d,%d): pop remainder: %v", a, b, err)
		assert(t, a == quot.Int64()*b+rem.Int64(),
			"idiv(%d,%d): a != q*b+r (q=%d r=%d)", a, b, quot.Int64(), rem.Int64())
	}
}

func TestDivIsTrueDivisionNotAdd(t *testing.T) {
	code := []Instruction{
		{Op: Pushi, ArgI64: 7},
		{Op: Pushi, ArgI64: 2},
		{Op: Div},
		{Op: Halt},
	}
	m, _, _ := newTestMachine(code, 0)
	m.Run()
	v, err := m.Memory().Pop()
	assert(t, err == nil, "unexpected error: %v", err)
	assert(t, v.Kind() == KindFloat && v.Float64() == 3.5, "DIV must be true division, got %#v", v)
}

func TestCodeVectorKeepsInstructionArgs(t *testing.T) {
	code := []Instruction{
		{Op: Pushi, ArgI64: -5},
		{Op: Pushd, ArgF64: 2.5},
		{Op: Pushs, ArgStr: "hi"},
		{Op: Halt},
	}
	m, _, _ := newTestMachine(code, 4)
	assert(t, len(m.Code()) == 4, "expected 4 instructions, got %d", len(m.Code()))
	assert(t, m.Code()[0].Op == Pushi && m.Code()[0].ArgI64 == -5, "instruction 0 mismatch")
	assert(t, m.Code()[1].Op == Pushd && m.Code()[1].ArgF64 == 2.5, "instruction 1 mismatch")
	assert(t, m.Code()[2].Op == Pushs && m.Code()[2].ArgStr == "hi", "instruction 2 mismatch")
}

func TestFlagsSetUnsetIsSet(t *testing.T) {
	code := []Instruction{
		{Op: Setf, ArgU64: FlagPen},
		{Op: Issetf, ArgU64: FlagPen},
		{Op: Unsetf, ArgU64: FlagPen},
		{Op: Issetf, ArgU64: FlagPen},
		{Op: Halt},
	}
	m, _, _ := newTestMachine(code, 0)
	m.Run()
	assert(t, m.Register(0) == 0, "PEN should read unset after UNSETF, got R0=%d", m.Register(0))
}

func TestSkipzSkipsExactlyOneInstruction(t *testing.T) {
	code := []Instruction{
		{Op: Pushi, ArgI64: 3},
		{Op: Pushi, ArgI64: 3},
		{Op: Cmp},
		{Op: Skipz},
		{Op: Pushi, ArgI64: 99}, // skipped when R0==0
		{Op: Pushi, ArgI64: 1},
		{Op: Halt},
	}
	m, _, _ := newTestMachine(code, 0)
	m.Run()
	v, err := m.Memory().Pop()
	assert(t, err == nil, "unexpected error: %v", err)
	assert(t, v.Int64() == 1, "SKIPZ should skip exactly the next instruction, got %d", v.Int64())
	assert(t, m.Memory().Depth() == 0, "only one value should have been pushed, stack has depth %d", m.Memory().Depth())
}

func TestSkipnzSkipsExactlyOneInstruction(t *testing.T) {
	code := []Instruction{
		{Op: Pushi, ArgI64: 3},
		{Op: Pushi, ArgI64: 4},
		{Op: Cmp},
		{Op: Skipnz},
		{Op: Pushi, ArgI64: 99}, // skipped when R0!=0
		{Op: Pushi, ArgI64: 1},
		{Op: Halt},
	}
	m, _, _ := newTestMachine(code, 0)
	m.Run()
	v, err := m.Memory().Pop()
	assert(t, err == nil, "unexpected error: %v", err)
	assert(t, v.Int64() == 1, "SKIPNZ should skip exactly the next instruction, got %d", v.Int64())
	assert(t, m.Memory().Depth() == 0, "only one value should have been pushed, stack has depth %d", m.Memory().Depth())
}

func TestJrLandsExactlyAtOffset(t *testing.T) {
	code := []Instruction{
		{Op: Jr, ArgI64: 3},
		{Op: Pushi, ArgI64: 99},
		{Op: Halt},
		{Op: Pushi, ArgI64: 7},
		{Op: Halt},
	}
	m, _, _ := newTestMachine(code, 0)
	m.Run()
	v, err := m.Memory().Pop()
	assert(t, err == nil, "unexpected error: %v", err)
	assert(t, v.Kind() == KindInt && v.Int64() == 7, "JR by 3 from instruction 0 must land on instruction 3, got %#v", v)
}

func TestSwapAndSub(t *testing.T) {
	code := []Instruction{
		{Op: Pushi, ArgI64: 2},
		{Op: Pushi, ArgI64: 3},
		{Op: Swap},
		{Op: Sub},
		{Op: Halt},
	}
	m, _, _ := newTestMachine(code, 0)
	m.Run()
	v, err := m.Memory().Pop()
	assert(t, err == nil, "unexpected error: %v", err)
	assert(t, v.Int64() == 1, "expected 3-2=1, got %d", v.Int64())
}
