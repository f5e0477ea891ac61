package asm

import (
	"fmt"
)

// Segment is one of the independent memory regions.
type Segment int

const (
	SEGMENT_CODE   = Segment(0) // cseg
	SEGMENT_DATA   = Segment(1) // dseg
	SEGMENT_EEPROM = Segment(2) // eseg
)

// SEGMENT_COUNT is the number of memory regions.
const SEGMENT_COUNT = 3

var segmentName = [...]string{"cseg", "dseg", "eseg"}

func (seg Segment) String() string {
	if int(seg) < len(segmentName) {
		return segmentName[seg]
	}
	return fmt.Sprintf("Segment(%d)", int(seg))
}

// Unit returns the number of bytes addressed by one program counter step.
func (seg Segment) Unit() int {
	if seg == SEGMENT_CODE {
		return 2
	}
	return 1
}

// counter is the program counter of a segment.
type counter struct {
	pc   int // Current address, in segment units.
	high int // Highest address reached.
}

func (ctr *counter) advance(size int) {
	ctr.pc += size
	ctr.high = max(ctr.high, ctr.pc)
}

func (ctr *counter) origin(pc int) {
	ctr.pc = pc
	ctr.high = max(ctr.high, pc)
}
