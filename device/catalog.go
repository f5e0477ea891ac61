package device

import (
	"slices"
	"strings"
)

// group lists the capability differences of a device from a full-featured part.
type group struct {
	remove []Capability
	add    []Capability
}

func lacks(caps ...Capability) group {
	return group{remove: caps}
}

var (
	noMul    = lacks(CAP_MUL)
	noJmp    = lacks(CAP_JMP, CAP_CALL)
	noLpm    = lacks(CAP_LPM, CAP_LPMX)
	noLpmX   = lacks(CAP_LPMX)
	noElpm   = lacks(CAP_ELPM, CAP_ELPMX)
	noElpmX  = lacks(CAP_ELPMX)
	noSpm    = lacks(CAP_SPM)
	noEspm   = lacks(CAP_ESPM)
	noMovw   = lacks(CAP_MOVW)
	noBreak  = lacks(CAP_BREAK)
	noEicall = lacks(CAP_EICALL)
	noEijmp  = lacks(CAP_EIJMP)
	noXreg   = lacks(CAP_XREG)
	noYreg   = lacks(CAP_YREG)
	tinyCore = lacks(CAP_DIRECT, CAP_STACK, CAP_WORD_IMMEDIATE, CAP_DISPLACEMENT)

	reducedCore = group{
		remove: []Capability{CAP_WORD_IMMEDIATE, CAP_DISPLACEMENT},
		add:    []Capability{CAP_REDUCED_CORE},
	}
)

// Instruction set extensions no catalog part other than DEFAULT implements.
var extensions = []Capability{CAP_RMW, CAP_DES}

// without builds the capability set of a device differing by the listed groups.
func without(groups ...group) (caps Capabilities) {
	caps = AllCapabilities().Without(extensions...)
	for _, g := range groups {
		caps = caps.Without(g.remove...).With(g.add...)
	}
	return
}

type catalogRow struct {
	name       string
	flashSize  int
	ramStart   int
	ramSize    int
	eepromSize int
	caps       Capabilities
}

// Flash sizes are in words.
var catalogRows = []catalogRow{
	{"ATtiny4", 256, 0x040, 32, 0, without(noMul, noJmp, noLpm, noElpm, noSpm, noEspm, noMovw, noBreak, noEicall, noEijmp, reducedCore)},
	{"ATtiny5", 256, 0x040, 32, 0, without(noMul, noJmp, noLpm, noElpm, noSpm, noEspm, noMovw, noBreak, noEicall, noEijmp, reducedCore)},
	{"ATtiny9", 512, 0x040, 32, 0, without(noMul, noJmp, noLpm, noElpm, noSpm, noEspm, noMovw, noBreak, noEicall, noEijmp, reducedCore)},
	{"ATtiny10", 512, 0x040, 32, 0, without(noMul, noJmp, noLpm, noElpm, noSpm, noEspm, noMovw, noBreak, noEicall, noEijmp, reducedCore)},
	{"ATtiny11", 512, 0x000, 0, 0, without(noMul, noJmp, tinyCore, noXreg, noYreg, noLpmX, noElpm, noSpm, noEspm, noMovw, noBreak, noEicall, noEijmp)},
	{"ATtiny12", 512, 0x000, 0, 64, without(noMul, noJmp, tinyCore, noXreg, noYreg, noLpmX, noElpm, noSpm, noEspm, noMovw, noBreak, noEicall, noEijmp)},
	{"ATtiny13", 512, 0x060, 64, 64, without(noMul, noJmp, noElpm, noEspm, noEicall, noEijmp)},
	{"ATtiny13A", 512, 0x060, 64, 64, without(noMul, noJmp, noElpm, noEspm, noEicall, noEijmp)},
	{"ATtiny15", 512, 0x000, 0, 64, without(noMul, noJmp, noXreg, noYreg, noLpmX, noElpm, noSpm, noEspm, noMovw, noBreak, noEicall, noEijmp, tinyCore)},
	{"ATtiny20", 1024, 0x040, 128, 0, without(noMul, noJmp, noEijmp, noEicall, noMovw, noLpm, noElpm, noSpm, noEspm, noBreak, reducedCore)},
	{"ATtiny22", 1024, 0x060, 128, 128, without(noMul, noJmp, noLpmX, noElpm, noSpm, noEspm, noMovw, noBreak, noEicall, noEijmp)},
	{"ATtiny24", 1024, 0x060, 128, 128, without(noMul, noJmp, noElpm, noEspm, noEicall, noEijmp)},
	{"ATtiny24A", 1024, 0x060, 128, 128, without(noMul, noJmp, noElpm, noEspm, noEicall, noEijmp)},
	{"ATtiny25", 1024, 0x060, 128, 128, without(noMul, noJmp, noElpm, noEspm, noEicall, noEijmp)},
	{"ATtiny26", 1024, 0x060, 128, 128, without(noMul, noJmp, noElpm, noSpm, noEspm, noMovw, noBreak, noEicall, noEijmp)},
	{"ATtiny28", 1024, 0x000, 0, 0, without(noMul, noJmp, tinyCore, noXreg, noYreg, noLpmX, noElpm, noSpm, noEspm, noMovw, noBreak, noEicall, noEijmp)},
	{"ATtiny44", 2048, 0x060, 256, 256, without(noMul, noJmp, noElpm, noEspm, noEicall, noEijmp)},
	{"ATtiny44A", 2048, 0x060, 256, 256, without(noMul, noJmp, noElpm, noEspm, noEicall, noEijmp)},
	{"ATtiny45", 2048, 0x060, 256, 256, without(noMul, noJmp, noElpm, noEspm, noEicall, noEijmp)},
	{"ATtiny48", 2048, 0x100, 256, 64, without(noMul, noJmp, noElpm, noEspm, noEicall, noEijmp)},
	{"ATtiny84", 4096, 0x060, 512, 512, without(noMul, noJmp, noElpm, noEspm, noEicall, noEijmp)},
	{"ATtiny85", 4096, 0x060, 512, 512, without(noMul, noJmp, noElpm, noEspm, noEicall, noEijmp)},
	{"ATtiny88", 4096, 0x100, 512, 64, without(noMul, noJmp, noElpm, noEspm, noEicall, noEijmp)},
	{"ATtiny261A", 1024, 0x060, 128, 128, without(noMul, noJmp, noElpm, noEspm, noEicall, noEijmp)},
	{"ATtiny461A", 2048, 0x060, 256, 256, without(noMul, noJmp, noElpm, noEspm, noEicall, noEijmp)},
	{"ATtiny861A", 4096, 0x060, 512, 512, without(noMul, noJmp, noElpm, noEspm, noEicall, noEijmp)},
	{"ATtiny2313", 1024, 0x060, 128, 128, without(noMul, noJmp, noElpm, noEspm, noEicall, noEijmp)},
	{"ATtiny2313A", 1024, 0x060, 128, 128, without(noMul, noJmp, noElpm, noEspm, noEicall, noEijmp)},
	{"ATtiny4313", 2048, 0x060, 256, 256, without(noMul, noJmp, noElpm, noEspm, noEicall, noEijmp)},
	{"AT90S1200", 512, 0x000, 0, 64, without(noMul, noJmp, tinyCore, noXreg, noYreg, noLpm, noElpm, noSpm, noEspm, noMovw, noBreak, noEicall, noEijmp)},
	{"AT90S2313", 1024, 0x060, 128, 128, without(noMul, noJmp, noLpmX, noElpm, noSpm, noEspm, noMovw, noBreak, noEicall, noEijmp)},
	{"AT90S2323", 1024, 0x060, 128, 128, without(noMul, noJmp, noLpmX, noElpm, noSpm, noEspm, noMovw, noBreak, noEicall, noEijmp)},
	{"AT90S2333", 1024, 0x060, 128, 128, without(noMul, noJmp, noLpmX, noElpm, noSpm, noEspm, noMovw, noBreak, noEicall, noEijmp)},
	{"AT90S2343", 1024, 0x060, 128, 128, without(noMul, noJmp, noLpmX, noElpm, noSpm, noEspm, noMovw, noBreak, noEicall, noEijmp)},
	{"AT90S4414", 2048, 0x060, 256, 256, without(noMul, noJmp, noLpmX, noElpm, noSpm, noEspm, noMovw, noBreak, noEicall, noEijmp)},
	{"AT90S4433", 2048, 0x060, 128, 256, without(noMul, noJmp, noLpmX, noElpm, noSpm, noEspm, noMovw, noBreak, noEicall, noEijmp)},
	{"AT90S4434", 2048, 0x060, 256, 256, without(noMul, noJmp, noLpmX, noElpm, noSpm, noEspm, noMovw, noBreak, noEicall, noEijmp)},
	{"AT90S8515", 4096, 0x060, 512, 512, without(noMul, noJmp, noLpmX, noElpm, noSpm, noEspm, noMovw, noBreak, noEicall, noEijmp)},
	{"AT90C8534", 4096, 0x060, 256, 512, without(noMul, noJmp, noLpmX, noElpm, noSpm, noEspm, noMovw, noBreak, noEicall, noEijmp)},
	{"AT90S8535", 4096, 0x060, 512, 512, without(noMul, noJmp, noLpmX, noElpm, noSpm, noEspm, noMovw, noBreak, noEicall, noEijmp)},
	{"ATmega8", 4096, 0x060, 1024, 512, without(noJmp, noEicall, noEijmp, noElpm, noEspm)},
	{"ATmega8A", 4096, 0x060, 1024, 512, without(noJmp, noEicall, noEijmp, noElpm, noEspm)},
	{"ATmega161", 8192, 0x060, 1024, 512, without(noEicall, noEijmp, noElpm, noEspm)},
	{"ATmega162", 8192, 0x100, 1024, 512, without(noEicall, noEijmp, noElpm, noEspm)},
	{"ATmega163", 8192, 0x060, 1024, 512, without(noEicall, noEijmp, noElpm, noEspm)},
	{"ATmega16", 8192, 0x060, 1024, 512, without(noEicall, noEijmp, noElpm, noEspm)},
	{"ATmega323", 16384, 0x060, 2048, 1024, without(noEicall, noEijmp, noElpm, noEspm)},
	{"ATmega32", 16384, 0x060, 2048, 1024, without(noEicall, noEijmp, noElpm, noEspm)},
	{"ATmega603", 32768, 0x060, 4096, 2048, without(noEicall, noEijmp, noMul, noMovw, noLpmX, noElpm, noSpm, noEspm, noBreak)},
	{"ATmega103", 65536, 0x060, 4096, 4096, without(noEicall, noEijmp, noMul, noMovw, noLpmX, noElpmX, noSpm, noEspm, noBreak)},
	{"ATmega104", 65536, 0x060, 4096, 4096, without(noEicall, noEijmp, noEspm)},
	{"ATmega128", 65536, 0x100, 4096, 4096, without(noEicall, noEijmp, noEspm)},
	{"ATmega128A", 65536, 0x100, 4096, 4096, without(noEicall, noEijmp, noEspm)},
	{"ATmega48", 2048, 0x100, 512, 256, without(noEicall, noEijmp, noElpm, noEspm)},
	{"ATmega48A", 2048, 0x100, 512, 256, without(noEicall, noEijmp, noElpm, noEspm)},
	{"ATmega48P", 2048, 0x100, 512, 256, without(noEicall, noEijmp, noElpm, noEspm)},
	{"ATmega48PA", 2048, 0x100, 512, 256, without(noEicall, noEijmp, noElpm, noEspm)},
	{"ATmega88", 4096, 0x100, 1024, 512, without(noEicall, noEijmp, noElpm, noEspm)},
	{"ATmega88A", 4096, 0x100, 1024, 512, without(noEicall, noEijmp, noElpm, noEspm)},
	{"ATmega88P", 4096, 0x100, 1024, 512, without(noEicall, noEijmp, noElpm, noEspm)},
	{"ATmega88PA", 4096, 0x100, 1024, 512, without(noEicall, noEijmp, noElpm, noEspm)},
	{"ATmega168", 8192, 0x100, 1024, 512, without(noEicall, noEijmp, noElpm, noEspm)},
	{"ATmega168A", 8192, 0x100, 1024, 512, without(noEicall, noEijmp, noElpm, noEspm)},
	{"ATmega168P", 8192, 0x100, 1024, 512, without(noEicall, noEijmp, noElpm, noEspm)},
	{"ATmega168PA", 8192, 0x100, 1024, 512, without(noEicall, noEijmp, noElpm, noEspm)},
	{"ATmega169", 8192, 0x100, 1024, 512, without(noEicall, noEijmp, noElpm, noEspm)},
	{"ATmega169A", 8192, 0x100, 1024, 512, without(noEicall, noEijmp, noElpm, noEspm)},
	{"ATmega169P", 8192, 0x100, 1024, 512, without(noEicall, noEijmp, noElpm, noEspm)},
	{"ATmega169PA", 8192, 0x100, 1024, 512, without(noEicall, noEijmp, noElpm, noEspm)},
	{"ATmega328", 16384, 0x100, 2048, 1024, without(noEicall, noEijmp, noElpm, noEspm)},
	{"ATmega328P", 16384, 0x100, 2048, 1024, without(noEicall, noEijmp, noElpm, noEspm)},
	{"ATmega328PB", 16384, 0x100, 2048, 1024, without(noEicall, noEijmp, noElpm, noEspm)},
	{"ATmega32U4", 16384, 0x100, 2560, 1024, without(noEicall, noEijmp, noElpm, noEspm)},
	{"ATmega8515", 8192, 0x060, 512, 512, without(noEicall, noEijmp, noElpm, noEspm)},
	{"ATmega1280", 65536, 0x200, 8192, 4096, without(noEicall, noEijmp, noEspm)},
	{"ATmega164P", 8192, 0x100, 1024, 512, without(noEicall, noEijmp, noElpm, noEspm)},
	{"ATmega164PA", 8192, 0x100, 1024, 512, without(noEicall, noEijmp, noElpm, noEspm)},
	{"ATmega324A", 16384, 0x100, 2048, 1024, without(noEicall, noEijmp, noElpm, noEspm)},
	{"ATmega324P", 16384, 0x100, 2048, 1024, without(noEicall, noEijmp, noElpm, noEspm)},
	{"ATmega324PA", 16384, 0x100, 2048, 1024, without(noEicall, noEijmp, noElpm, noEspm)},
	{"ATmega644", 32768, 0x100, 4096, 2048, without(noEicall, noEijmp, noElpm, noEspm)},
	{"ATmega644P", 32768, 0x100, 4096, 2096, without(noEicall, noEijmp, noElpm, noEspm)},
	{"ATmega644PA", 32768, 0x100, 4096, 2096, without(noEicall, noEijmp, noElpm, noEspm)},
	{"ATmega1284P", 65536, 0x100, 16384, 4096, without(noEicall, noEijmp, noEspm)},
	{"ATmega1284PA", 65536, 0x100, 16384, 4096, without(noEicall, noEijmp, noEspm)},
	{"ATmega2560", 131072, 0x200, 8192, 4096, without(noEspm)},
	{"ATmega2561", 131072, 0x200, 8192, 4096, without(noEspm)},
	{"ATmega4809", 24000, 0x2800, 6000, 256, without(noElpm, noEspm, noEicall, noEijmp)},
	{"AT94K", 8192, 0x060, 16384, 0, without(noElpm, noSpm, noEspm, noBreak, noEicall, noEijmp)},
}

// DEFAULT_NAME is the name of the permissive default device.
const DEFAULT_NAME = "DEFAULT"

// Catalog is an ordered list of device profiles. A profile's index in the
// catalog is its `__DEVICE__` value; index 0 is the DEFAULT device.
type Catalog struct {
	Profiles []*Profile
}

// Builtin returns a fresh copy of the built-in device catalog.
func Builtin() (cat *Catalog) {
	cat = &Catalog{}
	cat.Profiles = append(cat.Profiles, &Profile{
		Name:       DEFAULT_NAME,
		FlashSize:  4194304,
		RAMStart:   0x60,
		RAMSize:    8388608,
		EEPROMSize: 65536,
		Caps:       AllCapabilities(),
	})
	for _, row := range catalogRows {
		cat.Profiles = append(cat.Profiles, &Profile{
			Name:       row.name,
			FlashSize:  row.flashSize,
			RAMStart:   row.ramStart,
			RAMSize:    row.ramSize,
			EEPROMSize: row.eepromSize,
			Caps:       row.caps,
		})
	}
	return
}

// Default returns the DEFAULT device profile.
func (cat *Catalog) Default() *Profile {
	return cat.Profiles[0]
}

// Lookup finds a device by case insensitive name.
func (cat *Catalog) Lookup(name string) (prof *Profile, index int, ok bool) {
	index = slices.IndexFunc(cat.Profiles, func(p *Profile) bool {
		return strings.EqualFold(p.Name, name)
	})
	if index < 0 {
		return
	}

	prof = cat.Profiles[index]
	ok = true
	return
}

// Add appends or replaces profiles by name.
func (cat *Catalog) Add(profs ...*Profile) {
	for _, prof := range profs {
		_, index, ok := cat.Lookup(prof.Name)
		if ok {
			cat.Profiles[index] = prof
			continue
		}
		cat.Profiles = append(cat.Profiles, prof)
	}
}
