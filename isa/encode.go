package isa

import (
	"github.com/ezrec/avrasm/device"
)

// Range limits of the encodable fields.
const (
	RELATIVE_MIN     = -2048
	RELATIVE_MAX     = 2047
	BRANCH_MIN       = -64
	BRANCH_MAX       = 63
	ABSOLUTE_MAX     = (1 << 22) - 1
	IMMEDIATE8_MIN   = -128
	IMMEDIATE8_MAX   = 255
	DISPLACEMENT_MAX = 63
	IO_MAX           = 63
	IO_BIT_MAX       = 31
)

// encoder carries the state of a single instruction encoding.
type encoder struct {
	desc *Descriptor
	ops  []Operand
	prof *device.Profile
	pc   int
}

// rangeCheck validates value of operand n (0-based) against [min, max].
func (enc *encoder) rangeCheck(n int, value, min, max int64) (err error) {
	if value < min || value > max {
		err = &ErrRange{Mnemonic: enc.desc.Mnemonic, Operand: n + 1, Value: value, Min: min, Max: max}
	}
	return
}

// reg returns register operand n, checked against [min, max].
func (enc *encoder) reg(n int, min, max int) (reg uint16, err error) {
	r := enc.ops[n].Reg
	err = enc.rangeCheck(n, int64(r), int64(min), int64(max))
	reg = uint16(r)
	return
}

// value returns value operand n, checked against [min, max].
func (enc *encoder) value(n int, min, max int64) (value int64, err error) {
	value = enc.ops[n].Value
	err = enc.rangeCheck(n, value, min, max)
	return
}

// displacement returns the word displacement from the next instruction to
// the target in operand n, checked against [min, max].
func (enc *encoder) displacement(n int, min, max int64) (disp int64, err error) {
	disp = enc.ops[n].Value - int64(enc.pc+1)
	if disp < min || disp > max {
		err = &ErrRange{Mnemonic: enc.desc.Mnemonic, Operand: n + 1, Value: disp, Min: min, Max: max}
	}
	return
}

// pair packs a 5-bit destination and 5-bit source register.
func pair(op, rd, rr uint16) uint16 {
	return op | (rd&0x1f)<<4 | (rr&0x10)<<5 | (rr & 0x0f)
}

// immediate packs an upper register and an 8-bit constant.
func immediate(op, rd uint16, k uint16) uint16 {
	return op | (k&0xf0)<<4 | (rd-16)<<4 | (k & 0x0f)
}

// ioAddress packs a 6-bit I/O address split around the register field.
func ioAddress(op, r, a uint16) uint16 {
	return op | (a&0x30)<<5 | (r&0x1f)<<4 | (a & 0x0f)
}

// qbits spreads a 6-bit displacement over the ldd/std fields.
func qbits(q uint16) uint16 {
	return (q&0x20)<<8 | (q&0x18)<<7 | (q & 0x07)
}

// indirectBase maps an index register and sub-mode to its ld opcode.
// st opcodes are the same with 0x0200 set.
var indirectBase = map[IndexReg]map[IndexMode]uint16{
	INDEX_X: {
		MODE_PLAIN:          0x900c,
		MODE_POST_INCREMENT: 0x900d,
		MODE_PRE_DECREMENT:  0x900e,
	},
	INDEX_Y: {
		MODE_PLAIN:          0x8008,
		MODE_POST_INCREMENT: 0x9009,
		MODE_PRE_DECREMENT:  0x900a,
		MODE_DISPLACEMENT:   0x8008,
	},
	INDEX_Z: {
		MODE_PLAIN:          0x8000,
		MODE_POST_INCREMENT: 0x9001,
		MODE_PRE_DECREMENT:  0x9002,
		MODE_DISPLACEMENT:   0x8000,
	},
}

// indirect encodes an ld/st style access through index operand n with data register operand r.
func (enc *encoder) indirect(n, r int) (words []uint16, err error) {
	rd, err := enc.reg(r, 0, 31)
	if err != nil {
		return
	}
	op := enc.ops[n]
	word := indirectBase[op.Index][op.Mode] | enc.desc.Opcode | rd<<4
	if op.Mode == MODE_DISPLACEMENT {
		var q int64
		q, err = enc.value(n, 0, DISPLACEMENT_MAX)
		if err != nil {
			return
		}
		word |= qbits(uint16(q))
	}
	words = []uint16{word}
	return
}

// indexGates returns the capabilities an index operand requires.
func indexGates(op Operand) (caps []device.Capability) {
	switch op.Index {
	case INDEX_X:
		caps = append(caps, device.CAP_XREG)
	case INDEX_Y:
		caps = append(caps, device.CAP_YREG)
	}
	if op.Mode == MODE_DISPLACEMENT {
		caps = append(caps, device.CAP_DISPLACEMENT)
	}
	return
}

// indexAccepts describes a set of legal index register sub-modes.
type indexAccepts struct {
	want  string
	legal func(op Operand) bool
}

var (
	anyIndex = indexAccepts{
		want: "X, X+, -X, Y, Y+, -Y, Y+q, Z, Z+, -Z or Z+q",
		legal: func(op Operand) bool {
			_, ok := indirectBase[op.Index][op.Mode]
			return ok
		},
	}
	displacementIndex = indexAccepts{
		want: "Y+q or Z+q",
		legal: func(op Operand) bool {
			return op.Index != INDEX_X && op.Mode == MODE_DISPLACEMENT
		},
	}
	programIndex = indexAccepts{
		want: "Z or Z+",
		legal: func(op Operand) bool {
			return op.Index == INDEX_Z && (op.Mode == MODE_PLAIN || op.Mode == MODE_POST_INCREMENT)
		},
	}
	plainZ = indexAccepts{
		want: "Z",
		legal: func(op Operand) bool {
			return op.Index == INDEX_Z && op.Mode == MODE_PLAIN
		},
	}
	postIncrementZ = indexAccepts{
		want: "Z+",
		legal: func(op Operand) bool {
			return op.Index == INDEX_Z && op.Mode == MODE_POST_INCREMENT
		},
	}
)

// rule is the shape and encoding of a category.
type rule struct {
	shape  []OperandKind
	index  *indexAccepts // Legal sub-modes for the index operand, if any.
	words  int
	encode func(enc *encoder) (words []uint16, err error)
}

const (
	reg = OPERAND_REGISTER
	val = OPERAND_VALUE
	idx = OPERAND_INDEX
)

func shape(kinds ...OperandKind) []OperandKind {
	return kinds
}

var rules = map[Category]rule{
	CAT_IMPLIED: {
		words: 1,
		encode: func(enc *encoder) ([]uint16, error) {
			return []uint16{enc.desc.Opcode}, nil
		},
	},
	CAT_REGISTER: {
		shape: shape(reg),
		words: 1,
		encode: func(enc *encoder) (words []uint16, err error) {
			rd, err := enc.reg(0, 0, 31)
			words = []uint16{enc.desc.Opcode | rd<<4}
			return
		},
	},
	CAT_REGISTER_TWICE: {
		shape: shape(reg),
		words: 1,
		encode: func(enc *encoder) (words []uint16, err error) {
			rd, err := enc.reg(0, 0, 31)
			words = []uint16{pair(enc.desc.Opcode, rd, rd)}
			return
		},
	},
	CAT_UPPER_REGISTER: {
		shape: shape(reg),
		words: 1,
		encode: func(enc *encoder) (words []uint16, err error) {
			rd, err := enc.reg(0, 16, 31)
			words = []uint16{enc.desc.Opcode | (rd-16)<<4}
			return
		},
	},
	CAT_REGISTER_PAIR: {
		shape: shape(reg, reg),
		words: 1,
		encode: func(enc *encoder) (words []uint16, err error) {
			rd, err := enc.reg(0, 0, 31)
			if err != nil {
				return
			}
			rr, err := enc.reg(1, 0, 31)
			words = []uint16{pair(enc.desc.Opcode, rd, rr)}
			return
		},
	},
	CAT_UPPER_PAIR: {
		shape: shape(reg, reg),
		words: 1,
		encode: func(enc *encoder) (words []uint16, err error) {
			rd, err := enc.reg(0, 16, 31)
			if err != nil {
				return
			}
			rr, err := enc.reg(1, 16, 31)
			words = []uint16{enc.desc.Opcode | (rd-16)<<4 | (rr - 16)}
			return
		},
	},
	CAT_MID_PAIR: {
		shape: shape(reg, reg),
		words: 1,
		encode: func(enc *encoder) (words []uint16, err error) {
			rd, err := enc.reg(0, 16, 23)
			if err != nil {
				return
			}
			rr, err := enc.reg(1, 16, 23)
			words = []uint16{enc.desc.Opcode | (rd-16)<<4 | (rr - 16)}
			return
		},
	},
	CAT_WORD_PAIR: {
		shape: shape(reg, reg),
		words: 1,
		encode: func(enc *encoder) (words []uint16, err error) {
			var regs [2]uint16
			for n := range regs {
				regs[n], err = enc.reg(n, 0, 30)
				if err != nil {
					return
				}
				if regs[n]&1 != 0 {
					err = &ErrRange{Mnemonic: enc.desc.Mnemonic, Operand: n + 1, Value: int64(regs[n]), Min: 0, Max: 30}
					return
				}
			}
			words = []uint16{enc.desc.Opcode | (regs[0]/2)<<4 | (regs[1] / 2)}
			return
		},
	},
	CAT_IMMEDIATE: {
		shape: shape(reg, val),
		words: 1,
		encode: func(enc *encoder) (words []uint16, err error) {
			rd, err := enc.reg(0, 16, 31)
			if err != nil {
				return
			}
			k, err := enc.value(1, IMMEDIATE8_MIN, IMMEDIATE8_MAX)
			words = []uint16{immediate(enc.desc.Opcode, rd, uint16(k)&0xff)}
			return
		},
	},
	CAT_INVERTED_IMMEDIATE: {
		shape: shape(reg, val),
		words: 1,
		encode: func(enc *encoder) (words []uint16, err error) {
			rd, err := enc.reg(0, 16, 31)
			if err != nil {
				return
			}
			k, err := enc.value(1, IMMEDIATE8_MIN, IMMEDIATE8_MAX)
			words = []uint16{immediate(enc.desc.Opcode, rd, ^uint16(k)&0xff)}
			return
		},
	},
	CAT_WORD_IMMEDIATE: {
		shape: shape(reg, val),
		words: 1,
		encode: func(enc *encoder) (words []uint16, err error) {
			rd, err := enc.reg(0, 24, 30)
			if err != nil {
				return
			}
			if rd&1 != 0 {
				err = &ErrRange{Mnemonic: enc.desc.Mnemonic, Operand: 1, Value: int64(rd), Min: 24, Max: 30}
				return
			}
			k, err := enc.value(1, 0, 63)
			kw := uint16(k)
			words = []uint16{enc.desc.Opcode | (kw&0x30)<<2 | ((rd-24)/2)<<4 | (kw & 0x0f)}
			return
		},
	},
	CAT_RELATIVE: {
		shape: shape(val),
		words: 1,
		encode: func(enc *encoder) (words []uint16, err error) {
			k, err := enc.displacement(0, RELATIVE_MIN, RELATIVE_MAX)
			words = []uint16{enc.desc.Opcode | uint16(k)&0x0fff}
			return
		},
	},
	CAT_BRANCH: {
		shape: shape(val),
		words: 1,
		encode: func(enc *encoder) (words []uint16, err error) {
			k, err := enc.displacement(0, BRANCH_MIN, BRANCH_MAX)
			words = []uint16{enc.desc.Opcode | (uint16(k)&0x7f)<<3}
			return
		},
	},
	CAT_BIT_BRANCH: {
		shape: shape(val, val),
		words: 1,
		encode: func(enc *encoder) (words []uint16, err error) {
			s, err := enc.value(0, 0, 7)
			if err != nil {
				return
			}
			k, err := enc.displacement(1, BRANCH_MIN, BRANCH_MAX)
			words = []uint16{enc.desc.Opcode | (uint16(k)&0x7f)<<3 | uint16(s)}
			return
		},
	},
	CAT_ABSOLUTE: {
		shape: shape(val),
		words: 2,
		encode: func(enc *encoder) (words []uint16, err error) {
			k, err := enc.value(0, 0, ABSOLUTE_MAX)
			high := uint16(k>>16) & 0x3f
			words = []uint16{enc.desc.Opcode | (high&0x3e)<<3 | (high & 0x01), uint16(k & 0xffff)}
			return
		},
	},
	CAT_INDIRECT_LOAD: {
		shape: shape(reg, idx),
		index: &anyIndex,
		words: 1,
		encode: func(enc *encoder) ([]uint16, error) {
			return enc.indirect(1, 0)
		},
	},
	CAT_INDIRECT_STORE: {
		shape: shape(idx, reg),
		index: &anyIndex,
		words: 1,
		encode: func(enc *encoder) ([]uint16, error) {
			return enc.indirect(0, 1)
		},
	},
	CAT_DISPLACEMENT_LOAD: {
		shape: shape(reg, idx),
		index: &displacementIndex,
		words: 1,
		encode: func(enc *encoder) ([]uint16, error) {
			return enc.indirect(1, 0)
		},
	},
	CAT_DISPLACEMENT_STORE: {
		shape: shape(idx, reg),
		index: &displacementIndex,
		words: 1,
		encode: func(enc *encoder) ([]uint16, error) {
			return enc.indirect(0, 1)
		},
	},
	CAT_PROGRAM_LOAD: {
		shape: shape(reg, idx),
		index: &programIndex,
		words: 1,
		encode: func(enc *encoder) (words []uint16, err error) {
			rd, err := enc.reg(0, 0, 31)
			word := enc.desc.Opcode | rd<<4
			if enc.ops[1].Mode == MODE_POST_INCREMENT {
				word |= 1
			}
			words = []uint16{word}
			return
		},
	},
	CAT_DIRECT_LOAD: {
		shape: shape(reg, val),
		words: 2,
		encode: func(enc *encoder) (words []uint16, err error) {
			rd, err := enc.reg(0, 0, 31)
			if err != nil {
				return
			}
			k, err := enc.value(1, 0, int64(enc.prof.MaxDataAddress()))
			words = []uint16{enc.desc.Opcode | rd<<4, uint16(k)}
			return
		},
	},
	CAT_DIRECT_STORE: {
		shape: shape(val, reg),
		words: 2,
		encode: func(enc *encoder) (words []uint16, err error) {
			k, err := enc.value(0, 0, int64(enc.prof.MaxDataAddress()))
			if err != nil {
				return
			}
			rr, err := enc.reg(1, 0, 31)
			words = []uint16{enc.desc.Opcode | rr<<4, uint16(k)}
			return
		},
	},
	CAT_ATOMIC: {
		shape: shape(idx, reg),
		index: &plainZ,
		words: 1,
		encode: func(enc *encoder) (words []uint16, err error) {
			rd, err := enc.reg(1, 0, 31)
			words = []uint16{enc.desc.Opcode | rd<<4}
			return
		},
	},
	CAT_IO_READ: {
		shape: shape(reg, val),
		words: 1,
		encode: func(enc *encoder) (words []uint16, err error) {
			rd, err := enc.reg(0, 0, 31)
			if err != nil {
				return
			}
			a, err := enc.value(1, 0, IO_MAX)
			words = []uint16{ioAddress(enc.desc.Opcode, rd, uint16(a))}
			return
		},
	},
	CAT_IO_WRITE: {
		shape: shape(val, reg),
		words: 1,
		encode: func(enc *encoder) (words []uint16, err error) {
			a, err := enc.value(0, 0, IO_MAX)
			if err != nil {
				return
			}
			rr, err := enc.reg(1, 0, 31)
			words = []uint16{ioAddress(enc.desc.Opcode, rr, uint16(a))}
			return
		},
	},
	CAT_IO_BIT: {
		shape: shape(val, val),
		words: 1,
		encode: func(enc *encoder) (words []uint16, err error) {
			a, err := enc.value(0, 0, IO_BIT_MAX)
			if err != nil {
				return
			}
			b, err := enc.value(1, 0, 7)
			words = []uint16{enc.desc.Opcode | uint16(a)<<3 | uint16(b)}
			return
		},
	},
	CAT_REGISTER_BIT: {
		shape: shape(reg, val),
		words: 1,
		encode: func(enc *encoder) (words []uint16, err error) {
			rd, err := enc.reg(0, 0, 31)
			if err != nil {
				return
			}
			b, err := enc.value(1, 0, 7)
			words = []uint16{enc.desc.Opcode | rd<<4 | uint16(b)}
			return
		},
	},
	CAT_STATUS_BIT: {
		shape: shape(val),
		words: 1,
		encode: func(enc *encoder) (words []uint16, err error) {
			s, err := enc.value(0, 0, 7)
			words = []uint16{enc.desc.Opcode | uint16(s)<<4}
			return
		},
	},
	CAT_DES_ROUND: {
		shape: shape(val),
		words: 1,
		encode: func(enc *encoder) (words []uint16, err error) {
			k, err := enc.value(0, 0, 15)
			words = []uint16{enc.desc.Opcode | uint16(k)<<4}
			return
		},
	},
	CAT_SPM_POST_INCREMENT: {
		shape: shape(idx),
		index: &postIncrementZ,
		words: 1,
		encode: func(enc *encoder) ([]uint16, error) {
			return []uint16{enc.desc.Opcode}, nil
		},
	},
}

// CheckShape validates the operand count and addressing shapes of a form.
func CheckShape(desc *Descriptor, ops []Operand) (err error) {
	form := rules[desc.Category]

	if len(ops) != len(form.shape) {
		err = &ErrOperandCount{Mnemonic: desc.Mnemonic, Count: len(ops)}
		return
	}

	for n, kind := range form.shape {
		op := ops[n]
		if op.Kind != kind {
			want := kind.String()
			if kind == OPERAND_INDEX && form.index != nil {
				want = form.index.want
			}
			err = &ErrShape{Mnemonic: desc.Mnemonic, Operand: n + 1, Want: want}
			return
		}
		if kind == OPERAND_INDEX && !form.index.legal(op) {
			err = &ErrShape{Mnemonic: desc.Mnemonic, Operand: n + 1, Want: form.index.want}
			return
		}
	}

	return
}

// gates returns every capability the form and its operands need.
func gates(desc *Descriptor, ops []Operand) (caps []device.Capability) {
	caps = append(caps, desc.Caps...)
	for _, op := range ops {
		if op.Kind == OPERAND_INDEX {
			caps = append(caps, indexGates(op)...)
		}
	}
	return
}

// CheckCapability validates that the device implements the form and its addressing modes.
func CheckCapability(desc *Descriptor, ops []Operand, prof *device.Profile) (err error) {
	var missing []device.Capability
	for _, c := range gates(desc, ops) {
		if !prof.Has(c) {
			missing = append(missing, c)
		}
	}

	if len(missing) != 0 {
		err = &ErrCapability{Mnemonic: desc.Mnemonic, Device: prof.Name, Missing: missing}
	}
	return
}

// Encode converts a form and its operands to machine words.
//
// Checks run in order: operand count, addressing shape, numeric range and
// device capability. The first failing check is returned.
func Encode(desc *Descriptor, ops []Operand, prof *device.Profile, pc int) (words []uint16, err error) {
	err = CheckShape(desc, ops)
	if err != nil {
		return
	}

	enc := &encoder{desc: desc, ops: ops, prof: prof, pc: pc}
	words, err = rules[desc.Category].encode(enc)
	if err != nil {
		words = nil
		return
	}

	err = CheckCapability(desc, ops, prof)
	if err != nil {
		words = nil
		return
	}

	return
}
