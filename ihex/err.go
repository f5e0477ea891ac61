package ihex

import (
	"github.com/ezrec/avrasm/translate"
)

var f = translate.From

// ErrAddress reports an address outside of the 32-bit linear address space.
type ErrAddress int

func (err ErrAddress) Error() string {
	return f("address %#x out of range for Intel HEX", int(err))
}
