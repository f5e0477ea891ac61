package ihex

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func image(data map[int]byte) func(yield func(int, byte) bool) {
	return func(yield func(int, byte) bool) {
		for addr := range 1 << 17 {
			b, ok := data[addr]
			if ok && !yield(addr, b) {
				return
			}
		}
	}
}

func TestWrite(t *testing.T) {
	assert := assert.New(t)

	table := []struct {
		data   map[int]byte
		output []string
	}{
		{
			data:   map[int]byte{},
			output: []string{":00000001FF"},
		},
		{
			data: map[int]byte{0: 0x01, 1: 0x02, 2: 0x03, 3: 0x04},
			output: []string{
				":0400000001020304F2",
				":00000001FF",
			},
		},
		{
			data: map[int]byte{0: 0x0c, 1: 0x94, 5: 0xff},
			output: []string{
				":020000000C945E",
				":01000500FFFB",
				":00000001FF",
			},
		},
		{
			data: map[int]byte{0x10000: 0xaa},
			output: []string{
				":020000040001F9",
				":01000000AA55",
				":00000001FF",
			},
		},
	}

	for _, entry := range table {
		var out strings.Builder
		err := Write(&out, image(entry.data))
		assert.NoError(err)
		assert.Equal(strings.Join(entry.output, "\n")+"\n", out.String())
	}
}

func TestWriteSplit(t *testing.T) {
	assert := assert.New(t)

	data := map[int]byte{}
	for n := range 20 {
		data[0xfff8+n] = byte(n)
	}

	var out strings.Builder
	err := Write(&out, image(data))
	assert.NoError(err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if assert.Equal(4, len(lines)) {
		assert.Equal(":08FFF8000001020304050607E5", lines[0])
		assert.Equal(":020000040001F9", lines[1])
		assert.True(strings.HasPrefix(lines[2], ":0C000000"))
		assert.Equal(":00000001FF", lines[3])
	}
}

func TestPut(t *testing.T) {
	assert := assert.New(t)

	var out strings.Builder
	hw := NewWriter(&out)
	assert.Equal(ErrAddress(-1), hw.Put(-1, 0))
	for n := range RECORD_SIZE + 1 {
		assert.NoError(hw.Put(0x100+n, 0))
	}
	assert.NoError(hw.Close())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if assert.Equal(3, len(lines)) {
		assert.True(strings.HasPrefix(lines[0], ":10010000"))
		assert.True(strings.HasPrefix(lines[1], ":01011000"))
	}
}
