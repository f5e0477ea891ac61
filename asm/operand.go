package asm

import (
	"strconv"

	"github.com/ezrec/avrasm/diag"
	"github.com/ezrec/avrasm/internal"
	"github.com/ezrec/avrasm/isa"
)

var indexNames = map[string]isa.IndexReg{
	"x": isa.INDEX_X,
	"y": isa.INDEX_Y,
	"z": isa.INDEX_Z,
}

// registerNumber parses `r0` through `r31`.
func registerNumber(name string) (reg int, ok bool) {
	name = internal.Fold(name)
	if len(name) < 2 || len(name) > 3 || name[0] != 'r' {
		return
	}
	for _, c := range name[1:] {
		if c < '0' || c > '9' {
			return
		}
	}
	reg, err := strconv.Atoi(name[1:])
	ok = err == nil && reg < 32
	return
}

// register resolves a register name or `.def` alias.
func (asm *Assembler) register(name string) (reg int, ok bool) {
	reg, ok = registerNumber(name)
	if !ok {
		reg, ok = asm.aliases[internal.Fold(name)]
	}
	return
}

// indexRegister resolves a lone `X`, `Y` or `Z`.
func indexRegister(tok Token) (ir isa.IndexReg, ok bool) {
	if tok.Kind != TOKEN_IDENT {
		return
	}
	ir, ok = indexNames[internal.Fold(tok.Text)]
	return
}

// operand classifies the tokens of one operand.
func (asm *Assembler) operand(tokens []Token) (op isa.Operand, err error) {
	if len(tokens) == 1 && tokens[0].Kind == TOKEN_IDENT {
		if reg, ok := asm.register(tokens[0].Text); ok {
			op = isa.Register(reg)
			return
		}
		if ir, ok := indexRegister(tokens[0]); ok {
			op = isa.Index(ir, isa.MODE_PLAIN, 0)
			return
		}
	}

	// -X
	if len(tokens) == 2 && tokens[0].Is("-") {
		if ir, ok := indexRegister(tokens[1]); ok {
			op = isa.Index(ir, isa.MODE_PRE_DECREMENT, 0)
			return
		}
	}

	// X+ and Y+q
	if len(tokens) >= 2 && tokens[1].Is("+") {
		if ir, ok := indexRegister(tokens[0]); ok {
			if len(tokens) == 2 {
				op = isa.Index(ir, isa.MODE_POST_INCREMENT, 0)
				return
			}
			var disp int64
			disp, _, err = Evaluate(tokens[2:], asm, false)
			op = isa.Index(ir, isa.MODE_DISPLACEMENT, disp)
			return
		}
	}

	for _, tok := range tokens {
		if tok.Kind != TOKEN_IDENT {
			continue
		}
		if _, ok := asm.register(tok.Text); ok && len(tokens) > 1 {
			err = diag.Errorf(diag.ErrSyntax, "register %v in expression", tok)
			return
		}
	}

	value, _, err := Evaluate(tokens, asm, false)
	op = isa.Value(value)
	return
}

// operands classifies every operand of an instruction.
func (asm *Assembler) operands(args [][]Token) (ops []isa.Operand, err error) {
	ops = make([]isa.Operand, len(args))
	for n, tokens := range args {
		ops[n], err = asm.operand(tokens)
		if err != nil {
			return
		}
	}
	return
}
