package asm

import (
	"iter"
	"slices"
)

// Emitter receives the final encoded output of the second pass.
// Code segment addresses are word addresses; data is little endian.
type Emitter interface {
	Emit(seg Segment, addr int, data []byte)
}

// Chunk is one emitted item.
type Chunk struct {
	Segment Segment
	Address int // Address in segment units.
	Data    []byte
}

// Program collects the emitted output of an assembly run.
type Program struct {
	Chunks []Chunk
}

var _ Emitter = (*Program)(nil)

// Emit appends a chunk.
func (prog *Program) Emit(seg Segment, addr int, data []byte) {
	prog.Chunks = append(prog.Chunks, Chunk{Segment: seg, Address: addr, Data: slices.Clone(data)})
}

// Bytes iterates the byte address and value of every emitted byte of a segment,
// in address order. Later chunks overwrite earlier ones.
func (prog *Program) Bytes(seg Segment) iter.Seq2[int, byte] {
	image := map[int]byte{}
	for _, chunk := range prog.Chunks {
		if chunk.Segment != seg {
			continue
		}
		base := chunk.Address * seg.Unit()
		for n, b := range chunk.Data {
			image[base+n] = b
		}
	}

	return func(yield func(addr int, b byte) bool) {
		addrs := make([]int, 0, len(image))
		for addr := range image {
			addrs = append(addrs, addr)
		}
		slices.Sort(addrs)
		for _, addr := range addrs {
			if !yield(addr, image[addr]) {
				return
			}
		}
	}
}

// Words iterates the word address and value of every emitted code word.
func (prog *Program) Words() iter.Seq2[int, uint16] {
	return func(yield func(addr int, word uint16) bool) {
		addr, word := -1, uint16(0)
		for at, b := range prog.Bytes(SEGMENT_CODE) {
			if at/2 != addr {
				if addr >= 0 && !yield(addr, word) {
					return
				}
				addr, word = at/2, 0
			}
			word |= uint16(b) << (8 * (at & 1))
		}
		if addr >= 0 {
			yield(addr, word)
		}
	}
}

// Binary returns the code segment as a word slice.
func (prog *Program) Binary() (words []uint16) {
	for _, word := range prog.Words() {
		words = append(words, word)
	}
	return
}

// Size returns the number of bytes emitted to a segment.
func (prog *Program) Size(seg Segment) (size int) {
	for _, chunk := range prog.Chunks {
		if chunk.Segment == seg {
			size += len(chunk.Data)
		}
	}
	return
}
