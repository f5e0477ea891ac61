package isa

import (
	"fmt"
)

// OperandKind is the syntactic shape of a parsed operand.
type OperandKind int

const (
	OPERAND_REGISTER = OperandKind(0) // register
	OPERAND_VALUE    = OperandKind(1) // value
	OPERAND_INDEX    = OperandKind(2) // index
)

var operandKindName = [...]string{"register", "value", "index"}

func (kind OperandKind) String() string {
	if int(kind) < len(operandKindName) {
		return operandKindName[kind]
	}
	return fmt.Sprintf("OperandKind(%d)", int(kind))
}

// IndexReg is one of the three pointer registers.
type IndexReg int

const (
	INDEX_X = IndexReg(0) // X
	INDEX_Y = IndexReg(1) // Y
	INDEX_Z = IndexReg(2) // Z
)

var indexRegName = [...]string{"X", "Y", "Z"}

func (ir IndexReg) String() string {
	if int(ir) < len(indexRegName) {
		return indexRegName[ir]
	}
	return fmt.Sprintf("IndexReg(%d)", int(ir))
}

// IndexMode is the addressing sub-mode applied to an index register.
type IndexMode int

const (
	MODE_PLAIN          = IndexMode(0) // X
	MODE_POST_INCREMENT = IndexMode(1) // X+
	MODE_PRE_DECREMENT  = IndexMode(2) // -X
	MODE_DISPLACEMENT   = IndexMode(3) // X+q
)

// Operand is a single classified operand of an instruction.
type Operand struct {
	Kind  OperandKind
	Reg   int       // Register number, for OPERAND_REGISTER.
	Index IndexReg  // Pointer register, for OPERAND_INDEX.
	Mode  IndexMode // Sub-mode, for OPERAND_INDEX.
	Value int64     // Value, or displacement for MODE_DISPLACEMENT.
}

// Register creates a register operand.
func Register(reg int) Operand {
	return Operand{Kind: OPERAND_REGISTER, Reg: reg}
}

// Value creates a value operand.
func Value(value int64) Operand {
	return Operand{Kind: OPERAND_VALUE, Value: value}
}

// Index creates an index register operand.
func Index(ir IndexReg, mode IndexMode, disp int64) Operand {
	return Operand{Kind: OPERAND_INDEX, Index: ir, Mode: mode, Value: disp}
}

func (op Operand) String() string {
	switch op.Kind {
	case OPERAND_REGISTER:
		return fmt.Sprintf("r%d", op.Reg)
	case OPERAND_INDEX:
		switch op.Mode {
		case MODE_POST_INCREMENT:
			return op.Index.String() + "+"
		case MODE_PRE_DECREMENT:
			return "-" + op.Index.String()
		case MODE_DISPLACEMENT:
			return fmt.Sprintf("%v+%d", op.Index, op.Value)
		}
		return op.Index.String()
	}
	return fmt.Sprintf("%d", op.Value)
}
