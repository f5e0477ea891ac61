package device

import (
	"maps"
	"slices"
)

// Capability names a single instruction or addressing mode gate.
type Capability string

const (
	CAP_MUL            = Capability("mul")    // mul, muls, mulsu, fmul*
	CAP_JMP            = Capability("jmp")    // 22-bit absolute jump
	CAP_CALL           = Capability("call")   // 22-bit absolute call
	CAP_LPM            = Capability("lpm")    // lpm (implied r0, Z)
	CAP_LPMX           = Capability("lpmx")   // lpm Rd, Z / Z+
	CAP_ELPM           = Capability("elpm")   // elpm (implied r0, Z)
	CAP_ELPMX          = Capability("elpmx")  // elpm Rd, Z / Z+
	CAP_SPM            = Capability("spm")    // spm
	CAP_ESPM           = Capability("espm")   // spm Z+
	CAP_MOVW           = Capability("movw")   // movw
	CAP_BREAK          = Capability("break")  // break
	CAP_EIJMP          = Capability("eijmp")  // eijmp
	CAP_EICALL         = Capability("eicall") // eicall
	CAP_XREG           = Capability("xreg")   // X index register
	CAP_YREG           = Capability("yreg")   // Y index register
	CAP_DISPLACEMENT   = Capability("ldd")    // Y+q, Z+q displacement
	CAP_WORD_IMMEDIATE = Capability("adiw")   // adiw, sbiw
	CAP_DIRECT         = Capability("lds")    // lds, sts
	CAP_STACK          = Capability("stack")  // push, pop
	CAP_RMW            = Capability("rmw")    // xch, las, lac, lat
	CAP_DES            = Capability("des")    // des
	CAP_REDUCED_CORE   = Capability("avr8l")  // Reduced core, restricted data space
)

// allGates lists every capability that gates an instruction.
var allGates = []Capability{
	CAP_MUL, CAP_JMP, CAP_CALL, CAP_LPM, CAP_LPMX, CAP_ELPM, CAP_ELPMX,
	CAP_SPM, CAP_ESPM, CAP_MOVW, CAP_BREAK, CAP_EIJMP, CAP_EICALL,
	CAP_XREG, CAP_YREG, CAP_DISPLACEMENT, CAP_WORD_IMMEDIATE, CAP_DIRECT,
	CAP_STACK, CAP_RMW, CAP_DES,
}

// Capabilities is an open set of capability gates.
type Capabilities map[Capability]struct{}

// NewCapabilities creates a set from a list of capabilities.
func NewCapabilities(caps ...Capability) Capabilities {
	set := make(Capabilities, len(caps))
	for _, c := range caps {
		set[c] = struct{}{}
	}
	return set
}

// AllCapabilities returns a set with every known instruction gate.
func AllCapabilities() Capabilities {
	return NewCapabilities(allGates...)
}

// Has returns true if the capability is in the set.
func (caps Capabilities) Has(c Capability) (ok bool) {
	_, ok = caps[c]
	return
}

// With returns a copy of the set including the listed capabilities.
func (caps Capabilities) With(add ...Capability) Capabilities {
	set := maps.Clone(caps)
	if set == nil {
		set = Capabilities{}
	}
	for _, c := range add {
		set[c] = struct{}{}
	}
	return set
}

// Without returns a copy of the set excluding the listed capabilities.
func (caps Capabilities) Without(remove ...Capability) Capabilities {
	set := maps.Clone(caps)
	if set == nil {
		set = Capabilities{}
	}
	for _, c := range remove {
		delete(set, c)
	}
	return set
}

// Names returns the sorted capability names.
func (caps Capabilities) Names() (names []string) {
	for c := range caps {
		names = append(names, string(c))
	}
	slices.Sort(names)
	return
}
