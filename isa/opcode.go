// Package isa holds the AVR instruction descriptors and the encoder that turns
// a descriptor plus classified operands into machine words.
//
// Encoding is dispatched by operand category, never by mnemonic: every mnemonic
// maps to one or more descriptors (forms distinguished by operand count), and
// every category owns an operand shape and an encoding rule.
package isa

import (
	"fmt"

	"github.com/ezrec/avrasm/device"
	"github.com/ezrec/avrasm/internal"
)

// Category is the operand shape of an instruction, which selects its encoding rule.
type Category int

const (
	CAT_IMPLIED              = Category(iota) // implied
	CAT_REGISTER                              // register
	CAT_REGISTER_TWICE                        // register-twice
	CAT_UPPER_REGISTER                        // upper-register
	CAT_REGISTER_PAIR                         // register-pair
	CAT_UPPER_PAIR                            // upper-pair
	CAT_MID_PAIR                              // mid-pair
	CAT_WORD_PAIR                             // word-pair
	CAT_IMMEDIATE                             // immediate
	CAT_INVERTED_IMMEDIATE                    // inverted-immediate
	CAT_WORD_IMMEDIATE                        // word-immediate
	CAT_RELATIVE                              // relative
	CAT_BRANCH                                // branch
	CAT_BIT_BRANCH                            // bit-branch
	CAT_ABSOLUTE                              // absolute
	CAT_INDIRECT_LOAD                         // indirect-load
	CAT_INDIRECT_STORE                        // indirect-store
	CAT_DISPLACEMENT_LOAD                     // displacement-load
	CAT_DISPLACEMENT_STORE                    // displacement-store
	CAT_PROGRAM_LOAD                          // program-load
	CAT_DIRECT_LOAD                           // direct-load
	CAT_DIRECT_STORE                          // direct-store
	CAT_ATOMIC                                // atomic
	CAT_IO_READ                               // io-read
	CAT_IO_WRITE                              // io-write
	CAT_IO_BIT                                // io-bit
	CAT_REGISTER_BIT                          // register-bit
	CAT_STATUS_BIT                            // status-bit
	CAT_DES_ROUND                             // des-round
	CAT_SPM_POST_INCREMENT                    // spm-post-increment
)

var categoryName = [...]string{
	"implied", "register", "register-twice", "upper-register", "register-pair",
	"upper-pair", "mid-pair", "word-pair", "immediate", "inverted-immediate",
	"word-immediate", "relative", "branch", "bit-branch", "absolute",
	"indirect-load", "indirect-store", "displacement-load", "displacement-store",
	"program-load", "direct-load", "direct-store", "atomic", "io-read", "io-write",
	"io-bit", "register-bit", "status-bit", "des-round", "spm-post-increment",
}

func (cat Category) String() string {
	if int(cat) < len(categoryName) {
		return categoryName[cat]
	}
	return fmt.Sprintf("Category(%d)", int(cat))
}

// Descriptor is the static description of one instruction form.
type Descriptor struct {
	Mnemonic string
	Category Category
	Opcode   uint16              // Base opcode bit pattern.
	Caps     []device.Capability // Required capability gates.
}

// Operands returns the number of operands the form takes.
func (desc *Descriptor) Operands() int {
	return len(rules[desc.Category].shape)
}

// Size returns the encoded size of the form in words.
func (desc *Descriptor) Size() int {
	return rules[desc.Category].words
}

func (desc *Descriptor) String() string {
	return fmt.Sprintf("%v/%v(%#04x)", desc.Mnemonic, desc.Category, desc.Opcode)
}

func d(mnemonic string, cat Category, opcode uint16, caps ...device.Capability) *Descriptor {
	return &Descriptor{Mnemonic: mnemonic, Category: cat, Opcode: opcode, Caps: caps}
}

var descriptors = []*Descriptor{
	d("nop", CAT_IMPLIED, 0x0000),
	d("sec", CAT_IMPLIED, 0x9408),
	d("sez", CAT_IMPLIED, 0x9418),
	d("sen", CAT_IMPLIED, 0x9428),
	d("sev", CAT_IMPLIED, 0x9438),
	d("ses", CAT_IMPLIED, 0x9448),
	d("seh", CAT_IMPLIED, 0x9458),
	d("set", CAT_IMPLIED, 0x9468),
	d("sei", CAT_IMPLIED, 0x9478),
	d("clc", CAT_IMPLIED, 0x9488),
	d("clz", CAT_IMPLIED, 0x9498),
	d("cln", CAT_IMPLIED, 0x94a8),
	d("clv", CAT_IMPLIED, 0x94b8),
	d("cls", CAT_IMPLIED, 0x94c8),
	d("clh", CAT_IMPLIED, 0x94d8),
	d("clt", CAT_IMPLIED, 0x94e8),
	d("cli", CAT_IMPLIED, 0x94f8),
	d("ret", CAT_IMPLIED, 0x9508),
	d("reti", CAT_IMPLIED, 0x9518),
	d("sleep", CAT_IMPLIED, 0x9588),
	d("break", CAT_IMPLIED, 0x9598, device.CAP_BREAK),
	d("wdr", CAT_IMPLIED, 0x95a8),
	d("ijmp", CAT_IMPLIED, 0x9409),
	d("icall", CAT_IMPLIED, 0x9509),
	d("eijmp", CAT_IMPLIED, 0x9419, device.CAP_EIJMP),
	d("eicall", CAT_IMPLIED, 0x9519, device.CAP_EICALL),
	d("spm", CAT_IMPLIED, 0x95e8, device.CAP_SPM),
	d("lpm", CAT_IMPLIED, 0x95c8, device.CAP_LPM),
	d("elpm", CAT_IMPLIED, 0x95d8, device.CAP_ELPM),

	d("com", CAT_REGISTER, 0x9400),
	d("neg", CAT_REGISTER, 0x9401),
	d("swap", CAT_REGISTER, 0x9402),
	d("inc", CAT_REGISTER, 0x9403),
	d("asr", CAT_REGISTER, 0x9405),
	d("lsr", CAT_REGISTER, 0x9406),
	d("ror", CAT_REGISTER, 0x9407),
	d("dec", CAT_REGISTER, 0x940a),
	d("push", CAT_REGISTER, 0x920f, device.CAP_STACK),
	d("pop", CAT_REGISTER, 0x900f, device.CAP_STACK),

	d("tst", CAT_REGISTER_TWICE, 0x2000),
	d("clr", CAT_REGISTER_TWICE, 0x2400),
	d("lsl", CAT_REGISTER_TWICE, 0x0c00),
	d("rol", CAT_REGISTER_TWICE, 0x1c00),

	d("ser", CAT_UPPER_REGISTER, 0xef0f),

	d("cpc", CAT_REGISTER_PAIR, 0x0400),
	d("sbc", CAT_REGISTER_PAIR, 0x0800),
	d("add", CAT_REGISTER_PAIR, 0x0c00),
	d("cpse", CAT_REGISTER_PAIR, 0x1000),
	d("cp", CAT_REGISTER_PAIR, 0x1400),
	d("sub", CAT_REGISTER_PAIR, 0x1800),
	d("adc", CAT_REGISTER_PAIR, 0x1c00),
	d("and", CAT_REGISTER_PAIR, 0x2000),
	d("eor", CAT_REGISTER_PAIR, 0x2400),
	d("or", CAT_REGISTER_PAIR, 0x2800),
	d("mov", CAT_REGISTER_PAIR, 0x2c00),
	d("mul", CAT_REGISTER_PAIR, 0x9c00, device.CAP_MUL),

	d("muls", CAT_UPPER_PAIR, 0x0200, device.CAP_MUL),
	d("mulsu", CAT_MID_PAIR, 0x0300, device.CAP_MUL),
	d("fmul", CAT_MID_PAIR, 0x0308, device.CAP_MUL),
	d("fmuls", CAT_MID_PAIR, 0x0380, device.CAP_MUL),
	d("fmulsu", CAT_MID_PAIR, 0x0388, device.CAP_MUL),
	d("movw", CAT_WORD_PAIR, 0x0100, device.CAP_MOVW),

	d("cpi", CAT_IMMEDIATE, 0x3000),
	d("sbci", CAT_IMMEDIATE, 0x4000),
	d("subi", CAT_IMMEDIATE, 0x5000),
	d("ori", CAT_IMMEDIATE, 0x6000),
	d("sbr", CAT_IMMEDIATE, 0x6000),
	d("andi", CAT_IMMEDIATE, 0x7000),
	d("ldi", CAT_IMMEDIATE, 0xe000),
	d("cbr", CAT_INVERTED_IMMEDIATE, 0x7000),

	d("adiw", CAT_WORD_IMMEDIATE, 0x9600, device.CAP_WORD_IMMEDIATE),
	d("sbiw", CAT_WORD_IMMEDIATE, 0x9700, device.CAP_WORD_IMMEDIATE),

	d("rjmp", CAT_RELATIVE, 0xc000),
	d("rcall", CAT_RELATIVE, 0xd000),

	d("brcs", CAT_BRANCH, 0xf000),
	d("brlo", CAT_BRANCH, 0xf000),
	d("breq", CAT_BRANCH, 0xf001),
	d("brmi", CAT_BRANCH, 0xf002),
	d("brvs", CAT_BRANCH, 0xf003),
	d("brlt", CAT_BRANCH, 0xf004),
	d("brhs", CAT_BRANCH, 0xf005),
	d("brts", CAT_BRANCH, 0xf006),
	d("brie", CAT_BRANCH, 0xf007),
	d("brcc", CAT_BRANCH, 0xf400),
	d("brsh", CAT_BRANCH, 0xf400),
	d("brne", CAT_BRANCH, 0xf401),
	d("brpl", CAT_BRANCH, 0xf402),
	d("brvc", CAT_BRANCH, 0xf403),
	d("brge", CAT_BRANCH, 0xf404),
	d("brhc", CAT_BRANCH, 0xf405),
	d("brtc", CAT_BRANCH, 0xf406),
	d("brid", CAT_BRANCH, 0xf407),
	d("brbs", CAT_BIT_BRANCH, 0xf000),
	d("brbc", CAT_BIT_BRANCH, 0xf400),

	d("jmp", CAT_ABSOLUTE, 0x940c, device.CAP_JMP),
	d("call", CAT_ABSOLUTE, 0x940e, device.CAP_CALL),

	d("ld", CAT_INDIRECT_LOAD, 0x0000),
	d("st", CAT_INDIRECT_STORE, 0x0200),
	d("ldd", CAT_DISPLACEMENT_LOAD, 0x0000),
	d("std", CAT_DISPLACEMENT_STORE, 0x0200),
	d("lpm", CAT_PROGRAM_LOAD, 0x9004, device.CAP_LPMX),
	d("elpm", CAT_PROGRAM_LOAD, 0x9006, device.CAP_ELPMX),

	d("lds", CAT_DIRECT_LOAD, 0x9000, device.CAP_DIRECT),
	d("sts", CAT_DIRECT_STORE, 0x9200, device.CAP_DIRECT),

	d("xch", CAT_ATOMIC, 0x9204, device.CAP_RMW),
	d("las", CAT_ATOMIC, 0x9205, device.CAP_RMW),
	d("lac", CAT_ATOMIC, 0x9206, device.CAP_RMW),
	d("lat", CAT_ATOMIC, 0x9207, device.CAP_RMW),

	d("in", CAT_IO_READ, 0xb000),
	d("out", CAT_IO_WRITE, 0xb800),

	d("cbi", CAT_IO_BIT, 0x9800),
	d("sbic", CAT_IO_BIT, 0x9900),
	d("sbi", CAT_IO_BIT, 0x9a00),
	d("sbis", CAT_IO_BIT, 0x9b00),

	d("bld", CAT_REGISTER_BIT, 0xf800),
	d("bst", CAT_REGISTER_BIT, 0xfa00),
	d("sbrc", CAT_REGISTER_BIT, 0xfc00),
	d("sbrs", CAT_REGISTER_BIT, 0xfe00),

	d("bset", CAT_STATUS_BIT, 0x9408),
	d("bclr", CAT_STATUS_BIT, 0x9488),

	d("des", CAT_DES_ROUND, 0x940b, device.CAP_DES),
	d("spm", CAT_SPM_POST_INCREMENT, 0x95f8, device.CAP_ESPM),
}

// mnemonicMap maps a folded mnemonic to its forms, built once.
var mnemonicMap = func() map[string][]*Descriptor {
	m := make(map[string][]*Descriptor, len(descriptors))
	for _, desc := range descriptors {
		m[desc.Mnemonic] = append(m[desc.Mnemonic], desc)
	}
	return m
}()

// Lookup returns every form of a mnemonic.
func Lookup(mnemonic string) (forms []*Descriptor, ok bool) {
	forms, ok = mnemonicMap[internal.Fold(mnemonic)]
	return
}

// IsMnemonic returns true if the name is an instruction mnemonic.
func IsMnemonic(name string) (ok bool) {
	_, ok = Lookup(name)
	return
}

// Select finds the form of a mnemonic that takes count operands.
func Select(mnemonic string, count int) (desc *Descriptor, err error) {
	forms, ok := Lookup(mnemonic)
	if !ok {
		err = ErrMnemonic(mnemonic)
		return
	}

	for _, form := range forms {
		if form.Operands() == count {
			desc = form
			return
		}
	}

	err = &ErrOperandCount{Mnemonic: forms[0].Mnemonic, Count: count}
	return
}

// Mnemonics returns the number of distinct mnemonics known.
func Mnemonics() int {
	return len(mnemonicMap)
}
