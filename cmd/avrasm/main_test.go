package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"

	"github.com/ezrec/avrasm/device"
	"github.com/ezrec/avrasm/diag"
	"github.com/ezrec/avrasm/isa"
)

func TestParseDefine(t *testing.T) {
	assert := assert.New(t)

	table := []struct {
		def   string
		name  string
		value int64
		ok    bool
	}{
		{"DEBUG", "DEBUG", 1, true},
		{"F_CPU=16000000", "F_CPU", 16000000, true},
		{"MASK=0x1f", "MASK", 0x1f, true},
		{"MASK=$1f", "MASK", 0x1f, true},
		{"NEG=-3", "NEG", -3, true},
		{"=3", "", 0, false},
		{"BAD=zz", "", 0, false},
	}

	for _, entry := range table {
		name, value, err := parseDefine(entry.def)
		if !entry.ok {
			assert.Error(err, entry.def)
			continue
		}
		assert.NoError(err, entry.def)
		assert.Equal(entry.name, name)
		assert.Equal(entry.value, value)
	}
}

func TestListDevices(t *testing.T) {
	assert := assert.New(t)

	var out strings.Builder
	listDevices(&out, device.Builtin())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Equal(len(device.Builtin().Profiles)+2, len(lines))
	assert.True(strings.HasPrefix(lines[1], device.DEFAULT_NAME))
	assert.Equal(fmt.Sprintf("%d instruction mnemonics", isa.Mnemonics()), lines[len(lines)-1])
}

func TestPrinter(t *testing.T) {
	assert := assert.New(t)

	d := diag.Diagnostic{Severity: diag.SEVERITY_WARNING, File: "a.asm", Line: 2, Message: "odd"}

	var out strings.Builder
	(&printer{w: &out}).Report(d)
	assert.Equal("a.asm:2: warning: odd\n", out.String())

	out.Reset()
	(&printer{w: &out, color: true}).Report(d)
	assert.Equal("\x1b[33ma.asm:2: warning: odd\x1b[0m\n", out.String())
}

func TestRun(t *testing.T) {
	assert := assert.New(t)

	dir := t.TempDir()
	source := filepath.Join(dir, "blink.asm")
	assert.NoError(os.MkdirAll(filepath.Join(dir, "inc"), 0o755))
	assert.NoError(os.WriteFile(filepath.Join(dir, "inc", "defs.inc"), []byte(".equ VALUE = 5\n"), 0o644))
	assert.NoError(os.WriteFile(source, []byte(strings.Join([]string{
		`.include "inc/defs.inc"`,
		"        ldi r16, VALUE",
		".eseg",
		"        .db 1",
	}, "\n")), 0o644))

	opt := &options{}
	err := opt.run(&cobra.Command{}, []string{source})
	assert.NoError(err)

	flash, err := os.ReadFile(filepath.Join(dir, "blink.hex"))
	assert.NoError(err)
	assert.Equal(":0200000005E019\n:00000001FF\n", string(flash))

	eeprom, err := os.ReadFile(filepath.Join(dir, "blink.eep.hex"))
	assert.NoError(err)
	assert.Equal(":0100000001FE\n:00000001FF\n", string(eeprom))

	opt = &options{defines: []string{"=1"}}
	assert.Error(opt.run(&cobra.Command{}, []string{source}))
}
