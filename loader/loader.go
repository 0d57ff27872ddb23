package loader

import (
	"fmt"

	"logovm/binfmt"
	"logovm/vm"
)

// Program is the decoded, ready-to-install contents of an executable image.
type Program struct {
	// ExtInit is the raw extension-init blob (nil if the file carried none).
	// It is handed to the extension registry unmodified; the loader does not
	// interpret its contents beyond reading its declared length.
	ExtInit []byte
	Code    []vm.Instruction
	Data    []vm.Value
	Debug   []string
}

const (
	magic = "LOGO"
)

// Load decodes buf into a Program, validating the magic, version, and
// section framing described in spec.md §4.2/§6.
func Load(buf []byte) (*Program, error) {
	r := binfmt.NewReader(buf)

	mark, err := r.ReadExact(len(magic))
	if err != nil || string(mark) != magic {
		return nil, fmt.Errorf("loader: bad magic: %w", ErrInvalidLogoFile)
	}

	major, err := r.ReadU8()
	if err != nil {
		return nil, fmt.Errorf("loader: reading version: %w", ErrInvalidLogoFile)
	}
	minor, err := r.ReadU8()
	if err != nil {
		return nil, fmt.Errorf("loader: reading version: %w", ErrInvalidLogoFile)
	}
	if versionExceeds(major, minor, vm.VersionMajor, vm.VersionMinor) {
		return nil, fmt.Errorf("loader: file version %d.%d: %w", major, minor, ErrVersionTooNew)
	}

	extHdrSize, err := r.ReadU16LE()
	if err != nil {
		return nil, fmt.Errorf("loader: reading ext header size: %w", ErrInvalidLogoFile)
	}
	var extInit []byte
	if extHdrSize > 0 {
		extInit, err = r.ReadExact(int(extHdrSize))
		if err != nil {
			return nil, fmt.Errorf("loader: reading ext header: %w", ErrInvalidLogoFile)
		}
	}

	if err := expectMark(r, ".CODE"); err != nil {
		return nil, err
	}
	codeSize, err := r.ReadU64LE()
	if err != nil {
		return nil, fmt.Errorf("loader: reading code size: %w", ErrInvalidLogoFile)
	}
	codeBytes, err := r.ReadExact(int(codeSize))
	if err != nil {
		return nil, fmt.Errorf("loader: reading code bytes: %w", ErrInvalidLogoFile)
	}
	code, err := decodeCode(codeBytes)
	if err != nil {
		return nil, err
	}

	var data []vm.Value
	var debug []string
	if r.Len() > 0 {
		if err := expectMark(r, ".DATA"); err != nil {
			return nil, err
		}
		dataSize, err := r.ReadU64LE()
		if err != nil {
			return nil, fmt.Errorf("loader: reading data size: %w", ErrInvalidLogoFile)
		}
		dataBytes, err := r.ReadExact(int(dataSize))
		if err != nil {
			return nil, fmt.Errorf("loader: reading data bytes: %w", ErrInvalidLogoFile)
		}
		data, err = decodeData(dataBytes)
		if err != nil {
			return nil, err
		}
	}

	if r.Len() > 0 {
		if err := expectMark(r, ".DBUG"); err != nil {
			return nil, err
		}
		dbgSize, err := r.ReadU64LE()
		if err != nil {
			return nil, fmt.Errorf("loader: reading debug size: %w", ErrInvalidLogoFile)
		}
		dbgBytes, err := r.ReadExact(int(dbgSize))
		if err != nil {
			return nil, fmt.Errorf("loader: reading debug bytes: %w", ErrInvalidLogoFile)
		}
		debug, err = decodeDebug(dbgBytes)
		if err != nil {
			return nil, err
		}
	}

	if r.Len() > 0 {
		return nil, fmt.Errorf("loader: %d unknown trailing bytes: %w", r.Len(), ErrInvalidLogoFile)
	}

	return &Program{ExtInit: extInit, Code: code, Data: data, Debug: debug}, nil
}

// versionExceeds reports whether (major,minor) is lexicographically greater
// than (vmMajor,vmMinor), i.e. the file requires a newer VM than this one.
func versionExceeds(major, minor, vmMajor, vmMinor uint8) bool {
	if major != vmMajor {
		return major > vmMajor
	}
	return minor > vmMinor
}

func expectMark(r *binfmt.Reader, mark string) error {
	got, err := r.ReadExact(len(mark))
	if err != nil || string(got) != mark {
		return fmt.Errorf("loader: expected mark %q: %w", mark, ErrInvalidLogoFile)
	}
	return nil
}

// decodeCode walks a flat opcode+argument byte stream, using each opcode's
// numeric range to determine the argument width per spec.md §4.4.
func decodeCode(buf []byte) ([]vm.Instruction, error) {
	r := binfmt.NewReader(buf)
	var out []vm.Instruction
	for r.Len() > 0 {
		opByte, err := r.ReadU8()
		if err != nil {
			return nil, fmt.Errorf("loader: reading opcode: %w", ErrInvalidLogoFile)
		}
		op := vm.Bytecode(opByte)
		in := vm.Instruction{Op: op}
		switch vm.ArgKindFor(op) {
		case vm.ArgU64:
			in.ArgU64, err = r.ReadU64LE()
		case vm.ArgI64:
			in.ArgI64, err = r.ReadI64LE()
		case vm.ArgF64:
			in.ArgF64, err = r.ReadF64LE()
		case vm.ArgString:
			in.ArgStr, err = r.ReadCString()
		}
		if err != nil {
			return nil, fmt.Errorf("loader: decoding argument for %s: %w", op, ErrInvalidLogoFile)
		}
		out = append(out, in)
	}
	return out, nil
}

// decodeData reads a sequence of <tag:u8><payload> entries, tag in
// {'i','d','s'}, into Values.
func decodeData(buf []byte) ([]vm.Value, error) {
	r := binfmt.NewReader(buf)
	var out []vm.Value
	for r.Len() > 0 {
		tag, err := r.ReadU8()
		if err != nil {
			return nil, fmt.Errorf("loader: reading data tag: %w", ErrInvalidLogoFile)
		}
		switch tag {
		case 'i':
			v, err := r.ReadI64LE()
			if err != nil {
				return nil, fmt.Errorf("loader: reading int datum: %w", ErrInvalidLogoFile)
			}
			out = append(out, vm.Int(v))
		case 'd':
			v, err := r.ReadF64LE()
			if err != nil {
				return nil, fmt.Errorf("loader: reading float datum: %w", ErrInvalidLogoFile)
			}
			out = append(out, vm.Float(v))
		case 's':
			v, err := r.ReadCString()
			if err != nil {
				return nil, fmt.Errorf("loader: reading string datum: %w", ErrInvalidLogoFile)
			}
			out = append(out, vm.Str(v))
		default:
			return nil, fmt.Errorf("loader: unknown data tag %q: %w", tag, ErrInvalidLogoFile)
		}
	}
	return out, nil
}

// decodeDebug reads a sequence of <tag:u8><cstring> entries. The tag echoes
// the corresponding data entry's tag but the payload is always a cstring
// naming the source-level symbol.
func decodeDebug(buf []byte) ([]string, error) {
	r := binfmt.NewReader(buf)
	var out []string
	for r.Len() > 0 {
		if _, err := r.ReadU8(); err != nil {
			return nil, fmt.Errorf("loader: reading debug tag: %w", ErrInvalidLogoFile)
		}
		s, err := r.ReadCString()
		if err != nil {
			return nil, fmt.Errorf("loader: reading debug symbol: %w", ErrInvalidLogoFile)
		}
		out = append(out, s)
	}
	return out, nil
}
