// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/golang/glog"
	"github.com/k0kubun/pp/v3"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ezrec/avrasm/asm"
	"github.com/ezrec/avrasm/device"
	"github.com/ezrec/avrasm/diag"
	"github.com/ezrec/avrasm/ihex"
	"github.com/ezrec/avrasm/isa"
	"github.com/ezrec/avrasm/translate"
)

// options are the command line settings.
type options struct {
	device      string
	defines     []string
	maxErrors   int
	macroDepth  int
	includeDirs []string
	output      string
	eeprom      string
	devices     string
	listDevices bool
	dumpSymbols bool
	lang        string
}

// hostFS opens slash separated paths of the host file system.
type hostFS struct{}

func (hostFS) Open(name string) (fs.File, error) {
	return os.Open(filepath.FromSlash(name))
}

// printer is the diagnostic sink of the command.
type printer struct {
	w     io.Writer
	color bool
}

var severityColor = map[diag.Severity]string{
	diag.SEVERITY_INFO:     "\x1b[36m",
	diag.SEVERITY_WARNING:  "\x1b[33m",
	diag.SEVERITY_ERROR:    "\x1b[31m",
	diag.SEVERITY_INTERNAL: "\x1b[35m",
}

func (p *printer) Report(d diag.Diagnostic) {
	text := d.String()
	if p.color {
		text = severityColor[d.Severity] + text + "\x1b[0m"
	}
	fmt.Fprintln(p.w, text)
}

// parseDefine parses a `NAME=VALUE` definition. A missing value is 1.
func parseDefine(def string) (name string, value int64, err error) {
	name, text, ok := strings.Cut(def, "=")
	if len(name) == 0 {
		err = errors.Errorf("-D %q: missing name", def)
		return
	}

	value = 1
	if !ok {
		return
	}

	if strings.HasPrefix(text, "$") {
		value, err = strconv.ParseInt(text[1:], 16, 64)
	} else {
		value, err = strconv.ParseInt(text, 0, 64)
	}
	if err != nil {
		err = errors.Wrapf(err, "-D %v", def)
	}
	return
}

// catalog returns the built-in devices plus those of the --devices script.
func (opt *options) catalog() (cat *device.Catalog, err error) {
	cat = device.Builtin()
	if len(opt.devices) == 0 {
		return
	}

	profs, err := cat.LoadStarlark(opt.devices, nil)
	if err != nil {
		return
	}

	glog.V(1).Infof("%v: %d device(s)", opt.devices, len(profs))
	return
}

func listDevices(w io.Writer, cat *device.Catalog) {
	fmt.Fprintf(w, "%-14s %8s %8s %8s %8s  %s\n", "DEVICE", "FLASH", "RAM", "RAMSIZE", "EEPROM", "CAPABILITIES")
	for _, prof := range cat.Profiles {
		fmt.Fprintf(w, "%-14s %8d %#8x %8d %8d  %s\n",
			prof.Name, prof.FlashSize, prof.RAMStart, prof.RAMSize, prof.EEPROMSize,
			strings.Join(prof.Caps.Names(), ","))
	}
	fmt.Fprintf(w, "%d instruction mnemonics\n", isa.Mnemonics())
}

// writeHex writes one segment of a program as an Intel HEX file.
func writeHex(name string, prog *asm.Program, seg asm.Segment) (err error) {
	ouf, err := os.Create(name)
	if err != nil {
		return
	}
	defer ouf.Close()

	err = ihex.Write(ouf, prog.Bytes(seg))
	if err != nil {
		err = errors.Wrapf(err, "%v", name)
		return
	}

	return ouf.Close()
}

func (opt *options) run(cmd *cobra.Command, args []string) (err error) {
	color := term.IsTerminal(int(os.Stderr.Fd()))

	cat, err := opt.catalog()
	if err != nil {
		return
	}

	if opt.listDevices {
		listDevices(cmd.OutOrStdout(), cat)
		return
	}

	if len(args) != 1 {
		err = errors.New(f("exactly one source file expected"))
		return
	}
	source := args[0]

	config := asm.Config{
		Device:      opt.device,
		Predefine:   map[string]int64{},
		MaxErrors:   opt.maxErrors,
		MacroDepth:  opt.macroDepth,
		Devices:     cat,
		IncludeDirs: opt.includeDirs,
		Sink:        &printer{w: os.Stderr, color: color},
	}
	for _, def := range opt.defines {
		var name string
		var value int64
		name, value, err = parseDefine(def)
		if err != nil {
			return
		}
		config.Predefine[name] = value
	}
	for n, dir := range config.IncludeDirs {
		config.IncludeDirs[n] = filepath.ToSlash(dir)
	}

	assembler := &asm.Assembler{Config: config}
	prog, err := assembler.Assemble(hostFS{}, filepath.ToSlash(source))

	if opt.dumpSymbols && assembler.Symbols() != nil {
		dump := pp.New()
		dump.SetOutput(cmd.OutOrStdout())
		dump.SetColoringEnabled(color)
		dump.Println(assembler.Symbols())
	}

	if err != nil {
		return
	}

	base := strings.TrimSuffix(source, filepath.Ext(source))
	output := opt.output
	if len(output) == 0 {
		output = base + ".hex"
	}
	err = writeHex(output, prog, asm.SEGMENT_CODE)
	if err != nil {
		return
	}

	eeprom := opt.eeprom
	if len(eeprom) == 0 && prog.Size(asm.SEGMENT_EEPROM) > 0 {
		eeprom = base + ".eep.hex"
	}
	if len(eeprom) != 0 {
		err = writeHex(eeprom, prog, asm.SEGMENT_EEPROM)
		if err != nil {
			return
		}
	}

	glog.V(1).Infof("%v: %d byte(s) flash, %d byte(s) eeprom", source,
		prog.Size(asm.SEGMENT_CODE), prog.Size(asm.SEGMENT_EEPROM))
	return
}

var f = translate.From

func main() {
	opt := &options{}

	root := &cobra.Command{
		Use:   "avrasm [flags] source.asm",
		Short: "AVR macro assembler",
		Long: `Avrasm assembles an AVR assembly source file in two passes and writes
the flash image, and any EEPROM data, as Intel HEX files.

Device capabilities decide which instructions and addressing modes are
accepted. Extra devices may be described with a Starlark script that calls
device(name=..., flash=..., ram_start=..., ram_size=..., eeprom=..., lacks=[...]).
`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) (err error) {
			if len(opt.lang) != 0 {
				err = translate.SetLanguage(opt.lang)
			}
			return
		},
		RunE: opt.run,
	}

	flags := root.Flags()
	flags.StringVar(&opt.device, "device", "", "target device (default DEFAULT, or the .device directive)")
	flags.StringArrayVarP(&opt.defines, "define", "D", nil, "predefine NAME=VALUE")
	flags.IntVar(&opt.maxErrors, "max-errors", 0, "stop after this many errors (0 is unlimited)")
	flags.IntVar(&opt.macroDepth, "macro-depth", asm.MACRO_DEPTH_LIMIT, "maximum macro nesting depth")
	flags.StringArrayVarP(&opt.includeDirs, "include", "I", nil, "additional include directory")
	flags.StringVarP(&opt.output, "output", "o", "", "flash Intel HEX output (default source.hex)")
	flags.StringVarP(&opt.eeprom, "eeprom", "e", "", "EEPROM Intel HEX output (default source.eep.hex)")
	flags.StringVar(&opt.devices, "devices", "", "Starlark device description script")
	flags.BoolVar(&opt.listDevices, "list-devices", false, "list the known devices and exit")
	flags.BoolVar(&opt.dumpSymbols, "dump-symbols", false, "print the symbol table")
	root.PersistentFlags().StringVar(&opt.lang, "lang", "", "message language (BCP 47 tag)")

	// glog flags: -v, -logtostderr, ...
	root.PersistentFlags().AddGoFlagSet(flag.CommandLine)
	_ = flag.CommandLine.Parse(nil)

	err := root.Execute()
	glog.Flush()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v: %v\n", root.Name(), err)
		os.Exit(1)
	}
}
