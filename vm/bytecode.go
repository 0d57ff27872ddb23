package vm

/*
LogoVM bytecode (spec.md §4.4).

Opcodes are partitioned by numeric range; the range alone determines the
decoded argument's width, which is why the loader can decode a flat
instruction stream without a side table:

	0-127   no argument
	128-159 one u64 (address/index)
	160-191 one i64
	192-223 one f64
	224-253 one UTF-8 cstring
	254     reserved
	255     extension escape (not yet defined)

This mirrors the teacher's range-keyed instruction decoding, just with
LogoVM's five argument kinds instead of the teacher's single 32-bit
immediate.
*/

// Bytecode identifies a LogoVM opcode.
type Bytecode byte

const (
	Nop    Bytecode = 0
	Halt   Bytecode = 1
	Ret    Bytecode = 2
	Rand   Bytecode = 3
	Skipz  Bytecode = 6
	Skipnz Bytecode = 7

	Pop   Bytecode = 8
	Dup   Bytecode = 9
	ToInt Bytecode = 10
	ToFlt Bytecode = 11
	ToStr Bytecode = 12
	Abs   Bytecode = 16
	Not   Bytecode = 17
	Swap  Bytecode = 24
	Cmp   Bytecode = 25
	Add   Bytecode = 30
	Sub   Bytecode = 31
	Mul   Bytecode = 32
	Div   Bytecode = 33
	IDiv  Bytecode = 34
	Pow   Bytecode = 35
	And   Bytecode = 41
	Or    Bytecode = 42
	Xor   Bytecode = 43
	Shr   Bytecode = 44
	Shl   Bytecode = 45
	Rolr  Bytecode = 46
	Cat   Bytecode = 125
	Schop Bytecode = 126
	Soff  Bytecode = 127

	Load  Bytecode = 128
	Jp    Bytecode = 129
	Jless Bytecode = 130
	Jmore Bytecode = 131
	Jz    Bytecode = 132
	Jnz   Bytecode = 133
	Call  Bytecode = 134
	Store Bytecode = 140

	Setf   Bytecode = 156
	Unsetf Bytecode = 157
	Issetf Bytecode = 158
	Intr   Bytecode = 159

	Pushi Bytecode = 160
	Jr    Bytecode = 161

	Pushd Bytecode = 192

	Pushs Bytecode = 224
)

// ArgKind identifies the typed argument (if any) an opcode decodes.
type ArgKind byte

const (
	ArgNone ArgKind = iota
	ArgU64
	ArgI64
	ArgF64
	ArgString
)

// ArgKindFor returns the argument kind an opcode's numeric range implies.
// Range 254 (reserved) and 255 (extension escape) decode as ArgNone because
// neither is assigned a meaning by spec.md; a program that uses them fails
// opcode dispatch with ErrInvalidCommand instead of silently misreading the
// following bytes.
func ArgKindFor(op Bytecode) ArgKind {
	switch {
	case op < 128:
		return ArgNone
	case op < 160:
		return ArgU64
	case op < 192:
		return ArgI64
	case op < 224:
		return ArgF64
	case op < 254:
		return ArgString
	default:
		return ArgNone
	}
}

var opcodeNames = map[Bytecode]string{
	Nop: "NOP", Halt: "HALT", Ret: "RET", Rand: "RAND",
	Skipz: "SKIPZ", Skipnz: "SKIPNZ",
	Pop: "POP", Dup: "DUP", ToInt: "INT", ToFlt: "FLOAT", ToStr: "STRING",
	Abs: "ABS", Not: "NOT", Swap: "SWAP", Cmp: "CMP",
	Add: "ADD", Sub: "SUB", Mul: "MUL", Div: "DIV", IDiv: "IDIV", Pow: "POW",
	And: "AND", Or: "OR", Xor: "XOR", Shr: "SHR", Shl: "SHL", Rolr: "ROLR",
	Cat: "CAT", Schop: "SCHOP", Soff: "SOFF",
	Load: "LOAD", Jp: "JP", Jless: "JLESS", Jmore: "JMORE", Jz: "JZ", Jnz: "JNZ",
	Call: "CALL", Store: "STORE",
	Setf: "SETF", Unsetf: "UNSETF", Issetf: "ISSETF", Intr: "INTR",
	Pushi: "PUSHI", Jr: "JR", Pushd: "PUSHD", Pushs: "PUSHS",
}

// String renders the opcode mnemonic, falling back to "?unknown?" the same
// way the teacher's Bytecode.String does for codes with no table entry.
func (b Bytecode) String() string {
	if s, ok := opcodeNames[b]; ok {
		return s
	}
	return "?unknown?"
}

// Instruction is one decoded opcode plus its optional typed argument.
// At most one of the Arg* fields is meaningful, selected by ArgKindFor(Op)
// (none for ArgNone opcodes).
type Instruction struct {
	Op     Bytecode
	ArgU64 uint64
	ArgI64 int64
	ArgF64 float64
	ArgStr string
}

// String renders an instruction for tracing/debug output, in the style of
// the teacher's Instruction.String (mnemonic, then argument if present).
func (in Instruction) String() string {
	switch ArgKindFor(in.Op) {
	case ArgU64:
		return in.Op.String() + " " + Int(int64(in.ArgU64)).Text()
	case ArgI64:
		return in.Op.String() + " " + Int(in.ArgI64).Text()
	case ArgF64:
		return in.Op.String() + " " + Float(in.ArgF64).Text()
	case ArgString:
		return in.Op.String() + " \"" + in.ArgStr + "\""
	default:
		return in.Op.String()
	}
}
