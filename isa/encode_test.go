package isa

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/avrasm/device"
	"github.com/ezrec/avrasm/diag"
)

func profile(t *testing.T, name string) *device.Profile {
	prof, _, ok := device.Builtin().Lookup(name)
	if !ok {
		t.Fatalf("no device %v", name)
	}
	return prof
}

func TestEncode(t *testing.T) {
	assert := assert.New(t)

	prof := device.Builtin().Default()

	r := Register
	v := Value
	x := func(ir IndexReg, mode IndexMode, disp int64) Operand { return Index(ir, mode, disp) }

	table := []struct {
		mnemonic string
		ops      []Operand
		pc       int
		words    []uint16
	}{
		{"nop", nil, 0, []uint16{0x0000}},
		{"ret", nil, 0, []uint16{0x9508}},
		{"sei", nil, 0, []uint16{0x9478}},
		{"inc", []Operand{r(16)}, 0, []uint16{0x9503}},
		{"push", []Operand{r(31)}, 0, []uint16{0x93ff}},
		{"clr", []Operand{r(1)}, 0, []uint16{0x2411}},
		{"lsl", []Operand{r(24)}, 0, []uint16{0x0f88}},
		{"ser", []Operand{r(16)}, 0, []uint16{0xef0f}},
		{"add", []Operand{r(1), r(2)}, 0, []uint16{0x0c12}},
		{"mov", []Operand{r(31), r(17)}, 0, []uint16{0x2ff1}},
		{"mul", []Operand{r(0), r(31)}, 0, []uint16{0x9e0f}},
		{"muls", []Operand{r(16), r(17)}, 0, []uint16{0x0201}},
		{"fmul", []Operand{r(23), r(16)}, 0, []uint16{0x0378}},
		{"movw", []Operand{r(30), r(24)}, 0, []uint16{0x01fc}},
		{"ldi", []Operand{r(16), v(0xff)}, 0, []uint16{0xef0f}},
		{"ldi", []Operand{r(17), v(-1)}, 0, []uint16{0xef1f}},
		{"ldi", []Operand{r(20), v(0x5a)}, 0, []uint16{0xe54a}},
		{"cbr", []Operand{r(16), v(0x0f)}, 0, []uint16{0x7f00}},
		{"adiw", []Operand{r(24), v(1)}, 0, []uint16{0x9601}},
		{"sbiw", []Operand{r(30), v(63)}, 0, []uint16{0x97ff}},
		{"rjmp", []Operand{v(0)}, 0, []uint16{0xcfff}},
		{"rjmp", []Operand{v(2)}, 0, []uint16{0xc001}},
		{"rcall", []Operand{v(2048)}, 0, []uint16{0xd7ff}},
		{"breq", []Operand{v(0)}, 0, []uint16{0xf3f9}},
		{"brne", []Operand{v(65)}, 1, []uint16{0xf5f9}},
		{"brbs", []Operand{v(1), v(0)}, 0, []uint16{0xf3f9}},
		{"jmp", []Operand{v(0)}, 0, []uint16{0x940c, 0x0000}},
		{"call", []Operand{v(0x3fffff)}, 0, []uint16{0x95ff, 0xffff}},
		{"jmp", []Operand{v(0x12345)}, 0, []uint16{0x940d, 0x2345}},
		{"ld", []Operand{r(0), x(INDEX_X, MODE_PLAIN, 0)}, 0, []uint16{0x900c}},
		{"ld", []Operand{r(1), x(INDEX_X, MODE_POST_INCREMENT, 0)}, 0, []uint16{0x901d}},
		{"ld", []Operand{r(2), x(INDEX_Y, MODE_PRE_DECREMENT, 0)}, 0, []uint16{0x902a}},
		{"ld", []Operand{r(3), x(INDEX_Z, MODE_PLAIN, 0)}, 0, []uint16{0x8030}},
		{"st", []Operand{x(INDEX_Z, MODE_POST_INCREMENT, 0), r(4)}, 0, []uint16{0x9241}},
		{"st", []Operand{x(INDEX_X, MODE_PLAIN, 0), r(16)}, 0, []uint16{0x930c}},
		{"ldd", []Operand{r(5), x(INDEX_Y, MODE_DISPLACEMENT, 63)}, 0, []uint16{0xac5f}},
		{"std", []Operand{x(INDEX_Z, MODE_DISPLACEMENT, 1), r(6)}, 0, []uint16{0x8261}},
		{"lpm", nil, 0, []uint16{0x95c8}},
		{"lpm", []Operand{r(16), x(INDEX_Z, MODE_PLAIN, 0)}, 0, []uint16{0x9104}},
		{"lpm", []Operand{r(16), x(INDEX_Z, MODE_POST_INCREMENT, 0)}, 0, []uint16{0x9105}},
		{"elpm", []Operand{r(0), x(INDEX_Z, MODE_POST_INCREMENT, 0)}, 0, []uint16{0x9007}},
		{"spm", nil, 0, []uint16{0x95e8}},
		{"spm", []Operand{x(INDEX_Z, MODE_POST_INCREMENT, 0)}, 0, []uint16{0x95f8}},
		{"lds", []Operand{r(16), v(0x100)}, 0, []uint16{0x9100, 0x0100}},
		{"sts", []Operand{v(0xffff), r(1)}, 0, []uint16{0x9210, 0xffff}},
		{"xch", []Operand{x(INDEX_Z, MODE_PLAIN, 0), r(2)}, 0, []uint16{0x9224}},
		{"in", []Operand{r(16), v(0x3f)}, 0, []uint16{0xb70f}},
		{"out", []Operand{v(0x3e), r(29)}, 0, []uint16{0xbfde}},
		{"sbi", []Operand{v(0x1f), v(7)}, 0, []uint16{0x9aff}},
		{"cbi", []Operand{v(5), v(0)}, 0, []uint16{0x9828}},
		{"bst", []Operand{r(1), v(3)}, 0, []uint16{0xfa13}},
		{"sbrs", []Operand{r(31), v(7)}, 0, []uint16{0xfff7}},
		{"bset", []Operand{v(7)}, 0, []uint16{0x9478}},
		{"bclr", []Operand{v(0)}, 0, []uint16{0x9488}},
		{"des", []Operand{v(15)}, 0, []uint16{0x94fb}},
	}

	for _, entry := range table {
		desc, err := Select(entry.mnemonic, len(entry.ops))
		if !assert.NoError(err, entry.mnemonic) {
			continue
		}
		assert.Equal(len(entry.words), desc.Size(), "%v %v", entry.mnemonic, entry.ops)
		words, err := Encode(desc, entry.ops, prof, entry.pc)
		if assert.NoError(err, "%v %v", entry.mnemonic, entry.ops) {
			assert.Equal(entry.words, words, "%v %v", entry.mnemonic, entry.ops)
		}
	}
}

func TestEncodeErrors(t *testing.T) {
	assert := assert.New(t)

	def := device.Builtin().Default()
	tiny := profile(t, "ATtiny10")
	mega8 := profile(t, "ATmega8")
	s1200 := profile(t, "AT90S1200")
	mega := profile(t, "ATmega2560")

	r := Register
	v := Value
	x := func(ir IndexReg, mode IndexMode, disp int64) Operand { return Index(ir, mode, disp) }

	table := []struct {
		mnemonic string
		ops      []Operand
		prof     *device.Profile
		target   error
	}{
		{"ldi", []Operand{r(15), v(0)}, def, diag.ErrOperandRange},
		{"ldi", []Operand{r(16), v(256)}, def, diag.ErrOperandRange},
		{"ldi", []Operand{r(16), v(-129)}, def, diag.ErrOperandRange},
		{"ldi", []Operand{v(16), v(1)}, def, diag.ErrOperandShape},
		{"adiw", []Operand{r(25), v(1)}, def, diag.ErrOperandRange},
		{"adiw", []Operand{r(24), v(64)}, def, diag.ErrOperandRange},
		{"movw", []Operand{r(1), r(2)}, def, diag.ErrOperandRange},
		{"muls", []Operand{r(15), r(16)}, def, diag.ErrOperandRange},
		{"fmul", []Operand{r(16), r(24)}, def, diag.ErrOperandRange},
		{"rjmp", []Operand{v(2049)}, def, diag.ErrOperandRange},
		{"breq", []Operand{v(65)}, def, diag.ErrOperandRange},
		{"breq", []Operand{v(-64)}, def, diag.ErrOperandRange},
		{"jmp", []Operand{v(1 << 22)}, def, diag.ErrOperandRange},
		{"in", []Operand{r(0), v(64)}, def, diag.ErrOperandRange},
		{"sbi", []Operand{v(32), v(0)}, def, diag.ErrOperandRange},
		{"sbi", []Operand{v(0), v(8)}, def, diag.ErrOperandRange},
		{"ld", []Operand{r(0), x(INDEX_X, MODE_DISPLACEMENT, 1)}, def, diag.ErrOperandShape},
		{"ldd", []Operand{r(0), x(INDEX_Y, MODE_PLAIN, 0)}, def, diag.ErrOperandShape},
		{"ldd", []Operand{r(0), x(INDEX_Y, MODE_DISPLACEMENT, 64)}, def, diag.ErrOperandRange},
		{"lpm", []Operand{r(0), x(INDEX_Y, MODE_PLAIN, 0)}, def, diag.ErrOperandShape},
		{"lpm", []Operand{r(0), x(INDEX_Z, MODE_PRE_DECREMENT, 0)}, def, diag.ErrOperandShape},
		{"xch", []Operand{x(INDEX_X, MODE_PLAIN, 0), r(0)}, def, diag.ErrOperandShape},
		{"xch", []Operand{x(INDEX_Z, MODE_PLAIN, 0), r(0)}, mega, diag.ErrDeviceCapability},
		{"des", []Operand{v(1)}, mega, diag.ErrDeviceCapability},
		{"des", []Operand{v(16)}, def, diag.ErrOperandRange},
		{"spm", []Operand{x(INDEX_Z, MODE_POST_INCREMENT, 0)}, mega, diag.ErrDeviceCapability},
		{"spm", nil, mega, nil},
		{"mul", []Operand{r(0), r(1)}, tiny, diag.ErrDeviceCapability},
		{"jmp", []Operand{v(0)}, mega8, diag.ErrDeviceCapability},
		{"call", []Operand{v(0)}, mega8, diag.ErrDeviceCapability},
		{"adiw", []Operand{r(24), v(1)}, tiny, diag.ErrDeviceCapability},
		{"ldd", []Operand{r(16), x(INDEX_Y, MODE_DISPLACEMENT, 1)}, tiny, diag.ErrDeviceCapability},
		{"ld", []Operand{r(16), x(INDEX_X, MODE_PLAIN, 0)}, s1200, diag.ErrDeviceCapability},
		{"ld", []Operand{r(16), x(INDEX_Z, MODE_PLAIN, 0)}, s1200, nil},
		{"lds", []Operand{r(16), v(0x5f)}, tiny, nil},
		{"lds", []Operand{r(16), v(0x60)}, tiny, diag.ErrOperandRange},
		{"sts", []Operand{v(-1), r(16)}, def, diag.ErrOperandRange},
		{"lds", []Operand{r(16), v(0x10000)}, def, diag.ErrOperandRange},
	}

	for _, entry := range table {
		desc, err := Select(entry.mnemonic, len(entry.ops))
		if !assert.NoError(err, entry.mnemonic) {
			continue
		}
		words, err := Encode(desc, entry.ops, entry.prof, 0)
		if entry.target == nil {
			assert.NoError(err, "%v %v", entry.mnemonic, entry.ops)
			continue
		}
		assert.Nil(words, "%v %v", entry.mnemonic, entry.ops)
		assert.True(errors.Is(err, entry.target), "%v %v: %v", entry.mnemonic, entry.ops, err)
	}
}

func TestEncodeOrder(t *testing.T) {
	assert := assert.New(t)

	tiny := profile(t, "ATtiny10")

	// Range is reported before capability.
	desc, err := Select("mul", 2)
	assert.NoError(err)
	_, err = Encode(desc, []Operand{Register(0), Register(32)}, tiny, 0)
	assert.True(errors.Is(err, diag.ErrOperandRange), err)

	// Shape is reported before range.
	desc, err = Select("ldi", 2)
	assert.NoError(err)
	_, err = Encode(desc, []Operand{Register(0), Register(1)}, tiny, 0)
	assert.True(errors.Is(err, diag.ErrOperandShape), err)

	var capErr *ErrCapability
	desc, _ = Select("jmp", 1)
	_, err = Encode(desc, []Operand{Value(0)}, profile(t, "ATmega8"), 0)
	if assert.True(errors.As(err, &capErr)) {
		assert.Equal([]device.Capability{device.CAP_JMP}, capErr.Missing)
	}
}

func TestSelect(t *testing.T) {
	assert := assert.New(t)

	desc, err := Select("LPM", 0)
	assert.NoError(err)
	assert.Equal(CAT_IMPLIED, desc.Category)

	desc, err = Select("lpm", 2)
	assert.NoError(err)
	assert.Equal(CAT_PROGRAM_LOAD, desc.Category)

	_, err = Select("lpm", 1)
	assert.True(errors.Is(err, diag.ErrOperandShape))

	_, err = Select("frob", 0)
	assert.True(errors.Is(err, diag.ErrUnknownMnemonic))
	assert.Equal(diag.KIND_UNKNOWN_MNEMONIC, diag.KindOf(err))

	assert.True(IsMnemonic("Sbiw"))
	assert.False(IsMnemonic("sbiww"))
	assert.Greater(Mnemonics(), 100)
}
