// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package device

import (
	"slices"

	"github.com/pkg/errors"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// LoadStarlark runs a device description script and adds the devices it
// declares to the catalog.
//
// The script calls the predeclared `device()` builtin once per device:
//
//	device(name="ATmega8", flash=4096, ram_start=0x60, ram_size=1024, eeprom=512,
//	       lacks=["jmp", "call"])
//
// An optional `base` names an already known device whose capabilities are the
// starting point, `lacks` removes capabilities and `adds` adds them. Without a
// base the device starts from every standard capability.
//
// src is passed to starlark, so it may be nil to read filename from disk.
func (cat *Catalog) LoadStarlark(filename string, src any) (profs []*Profile, err error) {
	builtin := func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (value starlark.Value, err error) {
		var name, base string
		var flash, ram_start, ram_size, eeprom int
		var lacks, adds *starlark.List

		err = starlark.UnpackArgs(b.Name(), args, kwargs,
			"name", &name,
			"flash", &flash,
			"ram_start?", &ram_start,
			"ram_size?", &ram_size,
			"eeprom?", &eeprom,
			"base?", &base,
			"lacks?", &lacks,
			"adds?", &adds,
		)
		if err != nil {
			return
		}

		if len(name) == 0 || flash <= 0 || ram_start < 0 || ram_size < 0 || eeprom < 0 {
			err = errors.Wrapf(ErrDeviceDefinition, "device %q", name)
			return
		}

		caps := AllCapabilities().Without(extensions...)
		if len(base) != 0 {
			parent, _, ok := cat.Lookup(base)
			if !ok {
				err = ErrUnknown(base)
				return
			}
			caps = parent.Caps
		}

		remove, err := capabilityList(lacks)
		if err != nil {
			return
		}
		add, err := capabilityList(adds)
		if err != nil {
			return
		}

		prof := &Profile{
			Name:       name,
			FlashSize:  flash,
			RAMStart:   ram_start,
			RAMSize:    ram_size,
			EEPROMSize: eeprom,
			Caps:       caps.Without(remove...).With(add...),
		}
		cat.Add(prof)
		profs = append(profs, prof)

		value = starlark.None
		return
	}

	thread := &starlark.Thread{Name: filename}
	opts := syntax.FileOptions{}
	predeclared := starlark.StringDict{
		"device": starlark.NewBuiltin("device", builtin),
	}

	_, err = starlark.ExecFileOptions(&opts, thread, filename, src, predeclared)
	if err != nil {
		err = errors.Wrapf(err, "%v", filename)
		return
	}

	return
}

// capabilityList converts a starlark list of names to known capabilities.
func capabilityList(list *starlark.List) (caps []Capability, err error) {
	if list == nil {
		return
	}

	known := append(slices.Clone(allGates), CAP_REDUCED_CORE)
	for n := range list.Len() {
		name, ok := starlark.AsString(list.Index(n))
		if !ok {
			err = errors.Wrapf(ErrCapabilityName, "%v", list.Index(n))
			return
		}
		c := Capability(name)
		if !slices.Contains(known, c) {
			err = errors.Wrapf(ErrCapabilityName, "%q", name)
			return
		}
		caps = append(caps, c)
	}

	return
}
