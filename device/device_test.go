package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCatalogLookup(t *testing.T) {
	assert := assert.New(t)

	cat := Builtin()

	prof, index, ok := cat.Lookup("atmega328p")
	assert.True(ok)
	assert.Equal("ATmega328P", prof.Name)
	assert.Equal(16384, prof.FlashSize)
	assert.Equal(0x100, prof.RAMStart)
	assert.Equal(2048, prof.RAMSize)
	assert.Equal(1024, prof.EEPROMSize)
	assert.Greater(index, 0)

	_, _, ok = cat.Lookup("ATnothing")
	assert.False(ok)

	def := cat.Default()
	assert.Equal(DEFAULT_NAME, def.Name)
	for _, c := range allGates {
		assert.True(def.Has(c), c)
	}
	assert.False(def.Reduced())
}

func TestCatalogCapabilities(t *testing.T) {
	assert := assert.New(t)

	cat := Builtin()

	table := []struct {
		name string
		has  []Capability
		lack []Capability
	}{
		{"ATmega8", []Capability{CAP_MUL, CAP_MOVW, CAP_LPMX, CAP_XREG}, []Capability{CAP_JMP, CAP_CALL, CAP_ELPM, CAP_RMW}},
		{"ATmega2560", []Capability{CAP_JMP, CAP_CALL, CAP_EIJMP, CAP_ELPMX}, []Capability{CAP_ESPM, CAP_DES}},
		{"ATtiny13", []Capability{CAP_LPMX, CAP_MOVW}, []Capability{CAP_MUL, CAP_JMP}},
		{"ATtiny10", []Capability{CAP_DIRECT, CAP_REDUCED_CORE}, []Capability{CAP_WORD_IMMEDIATE, CAP_DISPLACEMENT, CAP_LPM}},
		{"AT90S1200", nil, []Capability{CAP_XREG, CAP_YREG, CAP_DIRECT, CAP_STACK, CAP_LPM}},
		{"ATmega103", []Capability{CAP_ELPM}, []Capability{CAP_ELPMX, CAP_LPMX}},
	}

	for _, entry := range table {
		prof, _, ok := cat.Lookup(entry.name)
		if !assert.True(ok, entry.name) {
			continue
		}
		for _, c := range entry.has {
			assert.True(prof.Has(c), "%v %v", entry.name, c)
		}
		for _, c := range entry.lack {
			assert.False(prof.Has(c), "%v %v", entry.name, c)
		}
	}
}

func TestProfileMaxDataAddress(t *testing.T) {
	assert := assert.New(t)

	cat := Builtin()

	prof, _, _ := cat.Lookup("ATmega328P")
	assert.Equal(0xffff, prof.MaxDataAddress())

	prof, _, _ = cat.Lookup("ATtiny10")
	assert.Equal(0x5f, prof.MaxDataAddress())
	assert.Equal("__ATTINY10__", prof.Symbol())
}

func TestCapabilitiesSet(t *testing.T) {
	assert := assert.New(t)

	caps := NewCapabilities(CAP_MUL)
	more := caps.With(CAP_JMP, "future")
	assert.False(caps.Has(CAP_JMP))
	assert.True(more.Has("future"))
	assert.Equal([]string{"future", "jmp", "mul"}, more.Names())

	less := more.Without(CAP_MUL)
	assert.True(more.Has(CAP_MUL))
	assert.False(less.Has(CAP_MUL))

	var empty Capabilities
	assert.False(empty.Has(CAP_MUL))
	assert.True(empty.With(CAP_MUL).Has(CAP_MUL))
}

func TestLoadStarlark(t *testing.T) {
	assert := assert.New(t)

	cat := Builtin()
	count := len(cat.Profiles)

	script := `
device(name="ATbench", flash=2048, ram_start=0x60, ram_size=256, eeprom=128, lacks=["mul", "jmp"])
device(name="ATbench2", flash=4096, base="ATbench", adds=["rmw"])
device(name="ATmega8", flash=8192, base="ATmega8")
`
	profs, err := cat.LoadStarlark("bench.star", script)
	assert.NoError(err)
	assert.Equal(3, len(profs))
	assert.Equal(count+2, len(cat.Profiles))

	prof, _, ok := cat.Lookup("atbench")
	assert.True(ok)
	assert.False(prof.Has(CAP_MUL))
	assert.False(prof.Has(CAP_JMP))
	assert.True(prof.Has(CAP_CALL))
	assert.False(prof.Has(CAP_RMW))

	prof, _, _ = cat.Lookup("ATbench2")
	assert.True(prof.Has(CAP_RMW))
	assert.False(prof.Has(CAP_MUL))
	assert.Equal(0, prof.RAMSize)

	prof, _, _ = cat.Lookup("ATmega8")
	assert.Equal(8192, prof.FlashSize)
}

func TestLoadStarlarkErrors(t *testing.T) {
	assert := assert.New(t)

	table := []string{
		`device(name="X", flash=0)`,
		`device(name="X", flash=10, lacks=["warp"])`,
		`device(name="X", flash=10, base="nothing")`,
		`device(flash=10)`,
		`device(name="X", flash=10, lacks=[1])`,
		`syntax error here`,
	}

	for _, script := range table {
		cat := Builtin()
		_, err := cat.LoadStarlark("bad.star", script)
		assert.Error(err, script)
	}
}
