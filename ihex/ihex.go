// Package ihex writes Intel HEX images.
package ihex

import (
	"bufio"
	"fmt"
	"io"
	"iter"
)

const (
	RECORD_SIZE = 16         // Maximum data bytes per record.
	ADDRESS_MAX = 0xffffffff // Highest address reachable with extended linear records.
)

// Record types.
const (
	RECORD_DATA            = 0x00
	RECORD_EOF             = 0x01
	RECORD_EXTENDED_LINEAR = 0x04
)

const segmentSize = 0x10000

// Writer emits Intel HEX records.
type Writer struct {
	w     *bufio.Writer
	upper int // Current extended linear address.

	base int // Address of the pending record.
	data []byte
}

// NewWriter creates a Writer on w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// record writes a single record.
func (hw *Writer) record(kind byte, addr uint16, data []byte) (err error) {
	sum := byte(len(data)) + byte(addr>>8) + byte(addr) + kind
	for _, b := range data {
		sum += b
	}

	_, err = fmt.Fprintf(hw.w, ":%02X%04X%02X%X%02X\n", len(data), addr, kind, data, -sum)
	return
}

// flush writes the pending data record.
func (hw *Writer) flush() (err error) {
	if len(hw.data) == 0 {
		return
	}

	upper := hw.base >> 16
	if upper != hw.upper {
		err = hw.record(RECORD_EXTENDED_LINEAR, 0, []byte{byte(upper >> 8), byte(upper)})
		if err != nil {
			return
		}
		hw.upper = upper
	}

	err = hw.record(RECORD_DATA, uint16(hw.base), hw.data)
	hw.data = hw.data[:0]
	return
}

// Put adds one byte at addr. Bytes at consecutive addresses share records.
func (hw *Writer) Put(addr int, b byte) (err error) {
	if addr < 0 || int64(addr) > ADDRESS_MAX {
		err = ErrAddress(addr)
		return
	}

	end := hw.base + len(hw.data)
	if len(hw.data) == RECORD_SIZE || addr != end || (len(hw.data) > 0 && addr%segmentSize == 0) {
		err = hw.flush()
		if err != nil {
			return
		}
	}
	if len(hw.data) == 0 {
		hw.base = addr
	}

	hw.data = append(hw.data, b)
	return
}

// Close writes the pending data and the end of file record.
func (hw *Writer) Close() (err error) {
	err = hw.flush()
	if err != nil {
		return
	}

	err = hw.record(RECORD_EOF, 0, nil)
	if err != nil {
		return
	}

	return hw.w.Flush()
}

// Write encodes every address and byte of image, in order, followed by the
// end of file record.
func Write(w io.Writer, image iter.Seq2[int, byte]) (err error) {
	hw := NewWriter(w)
	for addr, b := range image {
		err = hw.Put(addr, b)
		if err != nil {
			return
		}
	}

	return hw.Close()
}
