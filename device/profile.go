// Package device describes the AVR target devices: memory geometry and the
// capability gates that decide which instructions and addressing modes are legal.
package device

import (
	"fmt"
	"strings"
)

// DATA_ADDRESS_MAX is the last byte address reachable by a 16-bit direct data address.
const DATA_ADDRESS_MAX = 0xffff

// Profile is the immutable capability record of a target device.
type Profile struct {
	Name       string       // Device name, as written in `.device`.
	FlashSize  int          // Flash size in words.
	RAMStart   int          // First byte address of data memory.
	RAMSize    int          // Data memory size in bytes.
	EEPROMSize int          // EEPROM size in bytes.
	Caps       Capabilities // Capability gates.
}

// Has returns true if the device supports the capability.
func (prof *Profile) Has(c Capability) bool {
	return prof.Caps.Has(c)
}

// Reduced returns true if the device is a reduced core variant.
func (prof *Profile) Reduced() bool {
	return prof.Caps.Has(CAP_REDUCED_CORE)
}

// DataEnd returns the first byte address past data memory.
func (prof *Profile) DataEnd() int {
	return prof.RAMStart + prof.RAMSize
}

// MaxDataAddress returns the highest address accepted for direct data addressing.
// The I/O space below RAMStart is always addressable.
func (prof *Profile) MaxDataAddress() int {
	if prof.Reduced() {
		end := prof.DataEnd() - 1
		if end < 0 {
			end = 0
		}
		return end
	}

	return DATA_ADDRESS_MAX
}

// Symbol returns the `__NAME__` pseudo symbol name of the device.
func (prof *Profile) Symbol() string {
	return "__" + strings.ToUpper(prof.Name) + "__"
}

func (prof *Profile) String() string {
	return fmt.Sprintf("%v flash=%dw ram=%#x+%d eeprom=%d caps=%v",
		prof.Name, prof.FlashSize, prof.RAMStart, prof.RAMSize, prof.EEPROMSize,
		strings.Join(prof.Caps.Names(), ","))
}
