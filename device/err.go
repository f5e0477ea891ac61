package device

import (
	"errors"

	"github.com/ezrec/avrasm/translate"
)

var f = translate.From

var (
	ErrDeviceUnknown    = errors.New(f("device unknown"))
	ErrDeviceDefinition = errors.New(f("device definition invalid"))
	ErrCapabilityName   = errors.New(f("capability name unknown"))
)

// ErrUnknown reports an unknown device name.
type ErrUnknown string

func (err ErrUnknown) Error() string {
	return f("device %v unknown", string(err))
}

func (err ErrUnknown) Is(target error) bool {
	return target == ErrDeviceUnknown
}
