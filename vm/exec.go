package vm

import (
	"math"
	"math/rand"
	"strings"
)

func defaultRand() float64 { return rand.Float64() }

// dispatch executes one decoded instruction. It is the sole place that
// knows how each opcode manipulates machine state; Run and Step both funnel
// through it so single-stepping and free-running behave identically.
func (m *Machine) dispatch(in Instruction) error {
	switch in.Op {
	case Nop:
		return nil
	case Halt:
		m.Halt()
		return nil
	case Ret:
		addr, ok := m.PopCall()
		if !ok {
			return ErrInvalidAddress
		}
		m.SetPC(addr)
		return nil
	case Rand:
		return m.mem.Push(Float(m.rand()))
	case Skipz:
		if m.Register(0) == 0 {
			m.SetPC(m.PC() + 1)
		}
		return nil
	case Skipnz:
		if m.Register(0) != 0 {
			m.SetPC(m.PC() + 1)
		}
		return nil

	case Pop:
		_, err := m.mem.Pop()
		return err
	case Dup:
		v, err := m.mem.Peek()
		if err != nil {
			return err
		}
		return m.mem.Push(v)
	case ToInt:
		return m.unary(toInt)
	case ToFlt:
		return m.unary(toFloat)
	case ToStr:
		return m.unary(toStr)
	case Abs:
		return m.unary(absValue)
	case Not:
		return m.unary(notValue)
	case Swap:
		a, err := m.mem.Pop()
		if err != nil {
			return err
		}
		b, err := m.mem.Pop()
		if err != nil {
			return err
		}
		if err := m.mem.Push(a); err != nil {
			return err
		}
		return m.mem.Push(b)
	case Cmp:
		rhs, err := m.mem.Pop()
		if err != nil {
			return err
		}
		lhs, err := m.mem.Pop()
		if err != nil {
			return err
		}
		c, err := compareValues(lhs, rhs)
		if err != nil {
			return err
		}
		m.SetRegister(0, int64(c))
		return nil

	case Add:
		return m.binaryNumeric(addValues)
	case Sub:
		return m.binaryNumeric(subValues)
	case Mul:
		return m.binaryNumeric(mulValues)
	case Div:
		return m.binaryNumeric(divValues)
	case IDiv:
		return m.idiv()
	case Pow:
		return m.binaryNumeric(powValues)

	case And:
		return m.binaryInt(func(a, b int64) int64 { return a & b })
	case Or:
		return m.binaryInt(func(a, b int64) int64 { return a | b })
	case Xor:
		return m.binaryInt(func(a, b int64) int64 { return a ^ b })
	case Shr:
		return m.binaryInt(func(a, b int64) int64 { return int64(uint64(a) >> uint(b&63)) })
	case Shl:
		return m.binaryInt(func(a, b int64) int64 { return a << uint(b&63) })
	case Rolr:
		return m.unaryInt(func(a int64) int64 {
			u := uint64(a)
			return int64(u>>1 | u<<63)
		})

	case Cat:
		return m.cat()
	case Schop:
		return m.schop()
	case Soff:
		return m.soff()

	case Load:
		v, err := m.mem.GetHeap(in.ArgU64)
		if err != nil {
			return err
		}
		return m.mem.Push(v)
	case Jp:
		m.SetPC(int64(in.ArgU64) - 1)
		return nil
	case Jless:
		if m.Register(0) < 0 {
			m.SetPC(int64(in.ArgU64) - 1)
		}
		return nil
	case Jmore:
		if m.Register(0) > 0 {
			m.SetPC(int64(in.ArgU64) - 1)
		}
		return nil
	case Jz:
		if m.Register(0) == 0 {
			m.SetPC(int64(in.ArgU64) - 1)
		}
		return nil
	case Jnz:
		if m.Register(0) != 0 {
			m.SetPC(int64(in.ArgU64) - 1)
		}
		return nil
	case Call:
		m.PushCall(m.PC())
		m.SetPC(int64(in.ArgU64) - 1)
		return nil
	case Store:
		v, err := m.mem.Pop()
		if err != nil {
			return err
		}
		return m.mem.SetHeap(in.ArgU64, v)

	case Setf:
		m.SetFlag(in.ArgU64)
		return nil
	case Unsetf:
		m.UnsetFlag(in.ArgU64)
		return nil
	case Issetf:
		if m.IsFlagSet(in.ArgU64) {
			m.SetRegister(0, 1)
		} else {
			m.SetRegister(0, 0)
		}
		return nil
	case Intr:
		if in.ArgU64 >= NumInterrupts {
			return ErrInvalidCommand
		}
		h := m.interrupts[in.ArgU64]
		if h == nil {
			return nil
		}
		return h(m)

	case Pushi:
		return m.mem.Push(Int(in.ArgI64))
	case Jr:
		m.SetPC(m.PC() + in.ArgI64 - 1)
		return nil
	case Pushd:
		return m.mem.Push(Float(in.ArgF64))
	case Pushs:
		return m.mem.Push(Str(in.ArgStr))

	default:
		return ErrInvalidCommand
	}
}

func (m *Machine) unary(f func(Value) (Value, error)) error {
	v, err := m.mem.Pop()
	if err != nil {
		return err
	}
	r, err := f(v)
	if err != nil {
		return err
	}
	return m.mem.Push(r)
}

func (m *Machine) unaryInt(f func(int64) int64) error {
	v, err := m.mem.Pop()
	if err != nil {
		return err
	}
	if v.Kind() != KindInt {
		return ErrTypeMismatch
	}
	return m.mem.Push(Int(f(v.Int64())))
}

func (m *Machine) binaryNumeric(f func(lhs, rhs Value) (Value, error)) error {
	rhs, err := m.mem.Pop()
	if err != nil {
		return err
	}
	lhs, err := m.mem.Pop()
	if err != nil {
		return err
	}
	r, err := f(lhs, rhs)
	if err != nil {
		return err
	}
	return m.mem.Push(r)
}

func (m *Machine) binaryInt(f func(a, b int64) int64) error {
	rhs, err := m.mem.Pop()
	if err != nil {
		return err
	}
	lhs, err := m.mem.Pop()
	if err != nil {
		return err
	}
	if lhs.Kind() != KindInt || rhs.Kind() != KindInt {
		return ErrTypeMismatch
	}
	return m.mem.Push(Int(f(lhs.Int64(), rhs.Int64())))
}

func (m *Machine) idiv() error {
	rhs, err := m.mem.Pop()
	if err != nil {
		return err
	}
	lhs, err := m.mem.Pop()
	if err != nil {
		return err
	}
	if lhs.Kind() != KindInt || rhs.Kind() != KindInt {
		return ErrTypeMismatch
	}
	a, b := lhs.Int64(), rhs.Int64()
	if b == 0 {
		return ErrTypeMismatch
	}
	q := floorDiv(a, b)
	r := a - q*b
	if err := m.mem.Push(Int(r)); err != nil {
		return err
	}
	return m.mem.Push(Int(q))
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func (m *Machine) cat() error {
	rhs, err := m.mem.Pop()
	if err != nil {
		return err
	}
	lhs, err := m.mem.Pop()
	if err != nil {
		return err
	}
	if lhs.Kind() != KindString || rhs.Kind() != KindString {
		return ErrTypeMismatch
	}
	return m.mem.Push(Str(lhs.String() + rhs.String()))
}

func (m *Machine) schop() error {
	nv, err := m.mem.Pop()
	if err != nil {
		return err
	}
	sv, err := m.mem.Pop()
	if err != nil {
		return err
	}
	if nv.Kind() != KindInt || sv.Kind() != KindString {
		return ErrTypeMismatch
	}
	s := sv.String()
	n := nv.Int64()
	if n < 0 || int(n) >= len(s) {
		return ErrInvalidAddress
	}
	if err := m.mem.Push(Str(s[n:])); err != nil {
		return err
	}
	return m.mem.Push(Str(s[:n]))
}

func (m *Machine) soff() error {
	nv, err := m.mem.Pop()
	if err != nil {
		return err
	}
	sv, err := m.mem.Pop()
	if err != nil {
		return err
	}
	if nv.Kind() != KindInt || sv.Kind() != KindString {
		return ErrTypeMismatch
	}
	s := sv.String()
	n := nv.Int64()
	if n < 0 || int(n) >= len(s) {
		return ErrInvalidAddress
	}
	return m.mem.Push(Str(string(s[n])))
}

func toInt(v Value) (Value, error) {
	switch v.Kind() {
	case KindInt:
		return v, nil
	case KindFloat:
		return Int(int64(v.Float64())), nil
	default:
		return Value{}, ErrTypeMismatch
	}
}

func toFloat(v Value) (Value, error) {
	switch v.Kind() {
	case KindFloat:
		return v, nil
	case KindInt:
		return Float(float64(v.Int64())), nil
	default:
		return Value{}, ErrTypeMismatch
	}
}

func toStr(v Value) (Value, error) {
	return Str(v.Text()), nil
}

func absValue(v Value) (Value, error) {
	switch v.Kind() {
	case KindInt:
		n := v.Int64()
		if n < 0 {
			n = -n
		}
		return Int(n), nil
	case KindFloat:
		return Float(math.Abs(v.Float64())), nil
	default:
		return Value{}, ErrTypeMismatch
	}
}

func notValue(v Value) (Value, error) {
	if v.Kind() != KindInt {
		return Value{}, ErrTypeMismatch
	}
	return Int(^v.Int64()), nil
}

func addValues(lhs, rhs Value) (Value, error) {
	if !lhs.IsNumeric() || !rhs.IsNumeric() {
		return Value{}, ErrTypeMismatch
	}
	if lhs.Kind() == KindInt && rhs.Kind() == KindInt {
		return Int(lhs.Int64() + rhs.Int64()), nil
	}
	return Float(lhs.AsFloat64() + rhs.AsFloat64()), nil
}

func subValues(lhs, rhs Value) (Value, error) {
	if !lhs.IsNumeric() || !rhs.IsNumeric() {
		return Value{}, ErrTypeMismatch
	}
	if lhs.Kind() == KindInt && rhs.Kind() == KindInt {
		return Int(lhs.Int64() - rhs.Int64()), nil
	}
	return Float(lhs.AsFloat64() - rhs.AsFloat64()), nil
}

func mulValues(lhs, rhs Value) (Value, error) {
	if !lhs.IsNumeric() || !rhs.IsNumeric() {
		return Value{}, ErrTypeMismatch
	}
	if lhs.Kind() == KindInt && rhs.Kind() == KindInt {
		return Int(lhs.Int64() * rhs.Int64()), nil
	}
	return Float(lhs.AsFloat64() * rhs.AsFloat64()), nil
}

// divValues implements DIV as true division. The original machine.py wires
// opcode 33 to the same handler as ADD; that is a dispatch-table bug, and
// this VM implements the documented semantics (true division) instead.
func divValues(lhs, rhs Value) (Value, error) {
	if !lhs.IsNumeric() || !rhs.IsNumeric() {
		return Value{}, ErrTypeMismatch
	}
	return Float(lhs.AsFloat64() / rhs.AsFloat64()), nil
}

func powValues(lhs, rhs Value) (Value, error) {
	if !lhs.IsNumeric() || !rhs.IsNumeric() {
		return Value{}, ErrTypeMismatch
	}
	base, exp := lhs.AsFloat64(), rhs.AsFloat64()
	r := math.Pow(base, exp)
	if math.IsNaN(r) {
		return Value{}, ErrTypeMismatch
	}
	if lhs.Kind() == KindInt && rhs.Kind() == KindInt && exp >= 0 {
		return Int(int64(r)), nil
	}
	return Float(r), nil
}

func compareValues(lhs, rhs Value) (int, error) {
	switch {
	case lhs.IsNumeric() && rhs.IsNumeric():
		a, b := lhs.AsFloat64(), rhs.AsFloat64()
		switch {
		case a < b:
			return -1, nil
		case a > b:
			return 1, nil
		default:
			return 0, nil
		}
	case lhs.Kind() == KindString && rhs.Kind() == KindString:
		return strings.Compare(lhs.String(), rhs.String()), nil
	default:
		return 0, ErrTypeMismatch
	}
}
