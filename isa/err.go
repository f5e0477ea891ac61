package isa

import (
	"strings"

	"github.com/ezrec/avrasm/device"
	"github.com/ezrec/avrasm/diag"
	"github.com/ezrec/avrasm/translate"
)

var f = translate.From

// ErrMnemonic reports an unknown mnemonic.
type ErrMnemonic string

func (err ErrMnemonic) Error() string {
	return f("unknown mnemonic %v", string(err))
}

func (err ErrMnemonic) Is(target error) bool {
	return target == diag.ErrUnknownMnemonic
}

// ErrOperandCount reports a mnemonic used with an unsupported operand count.
type ErrOperandCount struct {
	Mnemonic string
	Count    int
}

func (err *ErrOperandCount) Error() string {
	return f("%v does not take %d operand(s)", err.Mnemonic, err.Count)
}

func (err *ErrOperandCount) Is(target error) bool {
	return target == diag.ErrOperandShape
}

// ErrShape reports an operand of the wrong addressing shape.
type ErrShape struct {
	Mnemonic string
	Operand  int // 1-based operand position.
	Want     string
}

func (err *ErrShape) Error() string {
	return f("%v operand %d must be %v", err.Mnemonic, err.Operand, err.Want)
}

func (err *ErrShape) Is(target error) bool {
	return target == diag.ErrOperandShape
}

// ErrRange reports an operand value outside of its encodable range.
type ErrRange struct {
	Mnemonic string
	Operand  int // 1-based operand position.
	Value    int64
	Min, Max int64
}

func (err *ErrRange) Error() string {
	return f("%v operand %d value %d out of range [%d, %d]", err.Mnemonic, err.Operand, err.Value, err.Min, err.Max)
}

func (err *ErrRange) Is(target error) bool {
	return target == diag.ErrOperandRange
}

// ErrCapability reports an instruction or addressing mode a device lacks.
type ErrCapability struct {
	Mnemonic string
	Device   string
	Missing  []device.Capability
}

func (err *ErrCapability) Error() string {
	var names []string
	for _, c := range err.Missing {
		names = append(names, string(c))
	}
	return f("%v not supported by %v (needs %v)", err.Mnemonic, err.Device, strings.Join(names, ","))
}

func (err *ErrCapability) Is(target error) bool {
	return target == diag.ErrDeviceCapability
}
