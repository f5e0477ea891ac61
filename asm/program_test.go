package asm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgram(t *testing.T) {
	assert := assert.New(t)

	prog := &Program{}
	assert.Equal(0, len(prog.Binary()))

	prog.Emit(SEGMENT_CODE, 0, []byte{0x02, 0xe4})
	prog.Emit(SEGMENT_CODE, 2, []byte{0x08, 0x95, 0xff, 0xcf})
	prog.Emit(SEGMENT_EEPROM, 3, []byte{'A', 'B'})

	assert.Equal([]uint16{0xe402, 0x9508, 0xcfff}, prog.Binary())
	assert.Equal(6, prog.Size(SEGMENT_CODE))
	assert.Equal(2, prog.Size(SEGMENT_EEPROM))
	assert.Equal(0, prog.Size(SEGMENT_DATA))

	addrs := []int{}
	for addr := range prog.Words() {
		addrs = append(addrs, addr)
	}
	assert.Equal([]int{0, 2, 3}, addrs)

	image := map[int]byte{}
	for addr, b := range prog.Bytes(SEGMENT_EEPROM) {
		image[addr] = b
	}
	assert.Equal(map[int]byte{3: 'A', 4: 'B'}, image)
}

func TestProgram_Overwrite(t *testing.T) {
	assert := assert.New(t)

	data := []byte{0x00, 0x00}

	prog := &Program{}
	prog.Emit(SEGMENT_CODE, 0, data)
	data[0] = 0x55
	prog.Emit(SEGMENT_CODE, 0, []byte{0x08})

	assert.Equal([]uint16{0x0008}, prog.Binary())
}
