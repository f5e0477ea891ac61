// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package asm

import (
	"io/fs"
	"iter"
	"maps"

	"github.com/golang/glog"

	"github.com/ezrec/avrasm/device"
	"github.com/ezrec/avrasm/diag"
	"github.com/ezrec/avrasm/internal"
)

// Config holds the plain values that parameterize a run.
type Config struct {
	Device      string           // Device name. Empty selects DEFAULT until a `.device` directive.
	Predefine   map[string]int64 // Constants defined before the first line.
	MaxErrors   int              // Abort after this many errors; 0 is unlimited.
	MacroDepth  int              // Maximum macro nesting; 0 is MACRO_DEPTH_LIMIT.
	Devices     *device.Catalog  // Device catalog; nil is the built-in catalog.
	IncludeDirs []string         // Extra directories searched by `.include`.
	Sink        diag.Sink        // Receives diagnostics as they are reported.
	Emitter     Emitter          // Receives the second pass output, in addition to the Program.
}

// LineTrace is the program counter footprint of one source line.
type LineTrace struct {
	File    string
	Line    int
	Segment Segment
	PC      int // Address on entry, in segment units.
	Bytes   int // Bytes occupied.
}

// cond is the state of one conditional assembly block.
type cond struct {
	parent   bool // Enclosing block is active.
	active   bool // Lines are assembled.
	taken    bool // A branch of this block has been active.
	elseSeen bool
}

type diagKey struct {
	file    string
	line    int
	message string
}

// Assembler is a two pass macro assembler for the AVR instruction set.
type Assembler struct {
	Config      Config
	Diagnostics diag.List // Every diagnostic reported.

	predefine map[string]int64

	catalog   *device.Catalog
	prof      *device.Profile
	profIndex int
	deviceSet bool // A device was chosen by configuration or `.device`.

	fsys  fs.FS
	top   string
	cache map[string][]sourceLine

	pass     int
	symbols  *SymbolTable
	baseline *SymbolTable // Frozen symbols of the first pass.
	aliases  map[string]int
	macros   map[string]*Macro
	defining *Macro
	discard  bool // Skipping an inactive macro definition.

	conds        Stack[*cond]
	frames       Stack[*frame]
	macroDepth   int
	includeDepth int
	nextID       int

	seg      Segment
	counters [SEGMENT_COUNT]counter

	traces      [2][]LineTrace
	invocations [2][]invocation
	seen        map[diagKey]bool
	errors      int

	prog *Program
}

var _ Scope = (*Assembler)(nil)

// Predefine defines a constant before assembly starts.
func (asm *Assembler) Predefine(name string, value int64) {
	if asm.predefine == nil {
		asm.predefine = map[string]int64{name: value}
	} else {
		asm.predefine[name] = value
	}
}

// Device returns the device profile in effect.
func (asm *Assembler) Device() *device.Profile {
	return asm.prof
}

// Symbols returns the final symbols of the run, ordered by name.
func (asm *Assembler) Symbols() []*Symbol {
	if asm.symbols == nil {
		return nil
	}
	return asm.symbols.Symbols()
}

// Trace returns the line footprints recorded in a pass (1 or 2).
func (asm *Assembler) Trace(pass int) []LineTrace {
	return asm.traces[pass-1]
}

// Errors returns the number of failing diagnostics reported.
func (asm *Assembler) Errors() int {
	return asm.errors
}

// Assemble runs both passes over the named file of fsys.
// Diagnostics are kept in Diagnostics and sent to the configured sink; the
// error is non-nil if any failing diagnostic was reported.
func (asm *Assembler) Assemble(fsys fs.FS, name string) (prog *Program, err error) {
	err = asm.setup(fsys, name)
	if err != nil {
		return
	}

	for pass := 1; pass <= 2; pass++ {
		err = asm.runPass(pass)
		if err != nil {
			prog = asm.prog
			return
		}
		if pass == 1 {
			asm.baseline = asm.symbols.Clone()
		}
	}

	glog.V(1).Infof("%v: %d error(s), %d word(s) of code", name, asm.errors, asm.prog.Size(SEGMENT_CODE)/2)

	prog = asm.prog
	if asm.errors > 0 {
		err = ErrFailed(asm.errors)
	}
	return
}

// setup resets the run state.
func (asm *Assembler) setup(fsys fs.FS, name string) (err error) {
	asm.catalog = asm.Config.Devices
	if asm.catalog == nil {
		asm.catalog = device.Builtin()
	}

	asm.fsys = fsys
	asm.top = name
	asm.cache = map[string][]sourceLine{}
	asm.traces = [2][]LineTrace{}
	asm.invocations = [2][]invocation{}
	asm.seen = map[diagKey]bool{}
	asm.errors = 0
	asm.baseline = nil
	asm.Diagnostics = diag.List{}
	asm.prog = &Program{}

	if asm.Config.Device != "" {
		_, _, ok := asm.catalog.Lookup(asm.Config.Device)
		if !ok {
			err = device.ErrUnknown(asm.Config.Device)
			return
		}
	}

	return
}

// resetDevice selects the configured device, or DEFAULT.
func (asm *Assembler) resetDevice() {
	asm.prof, asm.profIndex, asm.deviceSet = asm.catalog.Default(), 0, false
	if asm.Config.Device != "" {
		asm.prof, asm.profIndex, _ = asm.catalog.Lookup(asm.Config.Device)
		asm.deviceSet = true
	}
}

// startPass resets the per pass state.
func (asm *Assembler) startPass(pass int) {
	asm.pass = pass
	asm.symbols = NewSymbolTable()
	asm.aliases = map[string]int{}
	asm.macros = map[string]*Macro{}
	asm.defining = nil
	asm.discard = false
	asm.conds.Reset()
	asm.frames.Reset()
	asm.macroDepth = 0
	asm.includeDepth = 0
	asm.nextID = 0
	asm.traces[pass-1] = nil
	asm.invocations[pass-1] = nil

	asm.resetDevice()

	asm.seg = SEGMENT_CODE
	asm.counters = [SEGMENT_COUNT]counter{}
	asm.counters[SEGMENT_DATA].origin(asm.prof.RAMStart)
}

// deviceConstants iterates the `__NAME__` constant of every catalog device.
func (asm *Assembler) deviceConstants() iter.Seq2[string, int64] {
	return func(yield func(string, int64) bool) {
		for n, prof := range asm.catalog.Profiles {
			if !yield(prof.Symbol(), int64(n)) {
				return
			}
		}
	}
}

// predefines merges the configured and programmatic predefined constants.
func (asm *Assembler) predefines() map[string]int64 {
	defs := maps.Clone(asm.Config.Predefine)
	if defs == nil {
		defs = map[string]int64{}
	}
	maps.Copy(defs, asm.predefine)
	return defs
}

// predefineSymbols defines the device and configured symbols of a pass.
func (asm *Assembler) predefineSymbols() (err error) {
	for name, value := range internal.IterSeq2Concat(asm.deviceConstants(), maps.All(asm.predefines())) {
		derr := asm.symbols.Define(Symbol{Name: name, Kind: SYMBOL_CONSTANT, Value: value})
		if derr != nil {
			err = asm.report(diag.FromError(asm.top, 0, derr))
			if err != nil {
				return
			}
		}
	}

	asm.setDeviceVariables()
	return
}

// setDeviceVariables describes the selected device.
func (asm *Assembler) setDeviceVariables() {
	vars := []struct {
		name  string
		value int
	}{
		{"__DEVICE__", asm.profIndex},
		{"__FLASH_SIZE__", asm.prof.FlashSize},
		{"__EEPROM_SIZE__", asm.prof.EEPROMSize},
		{"__RAM_SIZE__", asm.prof.RAMSize},
	}
	for _, v := range vars {
		// A predefined constant of the same name wins.
		_ = asm.symbols.Set(v.name, int64(v.value), false)
	}
}

// report delivers a diagnostic, dropping second pass repeats of first pass
// diagnostics. The returned error aborts the run when the error cap is reached.
func (asm *Assembler) report(d diag.Diagnostic) (err error) {
	key := diagKey{file: d.File, line: d.Line, message: d.Message}
	if asm.pass == 2 && asm.seen[key] {
		return
	}
	if asm.pass == 1 {
		asm.seen[key] = true
	}

	asm.deliver(d)

	if d.Severity.Failing() {
		asm.errors++
		if asm.Config.MaxErrors > 0 && asm.errors >= asm.Config.MaxErrors {
			err = diag.Errorf(diag.ErrMaxDiagnostics, "%d error(s)", asm.errors)
			asm.deliver(diag.FromError(d.File, d.Line, err))
		}
	}

	return
}

func (asm *Assembler) deliver(d diag.Diagnostic) {
	asm.Diagnostics.Report(d)
	if asm.Config.Sink != nil {
		asm.Config.Sink.Report(d)
	}
}

// notice reports a non failing diagnostic for a line.
func (asm *Assembler) notice(sl sourceLine, sev diag.Severity, message string) {
	_ = asm.report(diag.Diagnostic{
		Severity: sev,
		Kind:     diag.KIND_OTHER,
		File:     sl.file,
		Line:     sl.line,
		Message:  message,
	})
}

// current returns the program counter of the active segment.
func (asm *Assembler) current() *counter {
	return &asm.counters[asm.seg]
}

// emit sends second pass output to the program and the configured emitter.
func (asm *Assembler) emit(seg Segment, addr int, data []byte) {
	if asm.pass != 2 || len(data) == 0 {
		return
	}
	asm.prog.Emit(seg, addr, data)
	if asm.Config.Emitter != nil {
		asm.Config.Emitter.Emit(seg, addr, data)
	}
}

// trace records the footprint of a line, comparing it with the first pass.
func (asm *Assembler) trace(sl sourceLine, seg Segment, pc int, bytes int) (err error) {
	lt := LineTrace{File: sl.file, Line: sl.line, Segment: seg, PC: pc, Bytes: bytes}

	index := len(asm.traces[asm.pass-1])
	asm.traces[asm.pass-1] = append(asm.traces[asm.pass-1], lt)

	if asm.pass == 1 {
		return
	}

	first := asm.traces[0]
	if index >= len(first) {
		err = &ErrConsistency{What: f("line footprint %d", index), First: f("none"), Second: lt.String()}
		return
	}
	if first[index] != lt {
		err = &ErrConsistency{What: f("line footprint %d", index), First: first[index].String(), Second: lt.String()}
	}
	return
}

func (lt LineTrace) String() string {
	return f("%v:%d %v@%#x+%d", lt.File, lt.Line, lt.Segment, lt.PC, lt.Bytes)
}

// Resolve implements Scope.
//
// Strict resolution only sees non provisional symbols defined so far in the
// current pass, which gives the same answer in both passes. Otherwise the
// first pass defers unknown symbols with a placeholder, and the second pass
// falls back to the frozen first pass symbols for forward references.
func (asm *Assembler) Resolve(name string, strict bool) (value int64, resolved bool, err error) {
	if sym, ok := asm.symbols.Lookup(name); ok {
		if strict && sym.Provisional {
			err = ErrProvisional(name)
			return
		}
		value, resolved = sym.Value, !sym.Provisional
		return
	}

	if !strict {
		if asm.pass == 1 {
			return
		}
		if sym, ok := asm.baseline.Lookup(name); ok {
			value, resolved = sym.Value, true
			return
		}
	}

	err = ErrUndefined(name)
	return
}

// PC implements Scope.
func (asm *Assembler) PC() int64 {
	return int64(asm.current().pc)
}

// Defined implements Scope.
func (asm *Assembler) Defined(name string) (ok bool) {
	_, ok = asm.symbols.Lookup(name)
	return
}

// defineSymbol defines a label or constant, checking it against the first pass.
func (asm *Assembler) defineSymbol(sym Symbol) (err error) {
	err = asm.symbols.Define(sym)
	if err != nil {
		return
	}

	if asm.pass == 1 || sym.Provisional || sym.Kind == SYMBOL_VARIABLE {
		return
	}

	old, ok := asm.baseline.Lookup(sym.Name)
	if !ok || old.Provisional || old.Kind != sym.Kind {
		return
	}
	if old.Value != sym.Value || old.Segment != sym.Segment {
		err = &ErrConsistency{What: f("%v %v", sym.Kind, sym.Name), First: old.String(), Second: sym.String()}
	}
	return
}

// selectDevice applies a `.device` directive.
func (asm *Assembler) selectDevice(name string) (err error) {
	prof, index, ok := asm.catalog.Lookup(name)
	if !ok {
		err = device.ErrUnknown(name)
		return
	}

	if asm.deviceSet {
		if prof != asm.prof {
			err = diag.Errorf(diag.ErrDuplicateSymbol, "device already %v", asm.prof.Name)
		}
		return
	}

	data := &asm.counters[SEGMENT_DATA]
	if data.pc == asm.prof.RAMStart && data.high == asm.prof.RAMStart {
		*data = counter{}
		data.origin(prof.RAMStart)
	}

	asm.prof, asm.profIndex, asm.deviceSet = prof, index, true
	asm.setDeviceVariables()

	glog.V(1).Infof("device %v", prof)
	return
}

// checkSegments reports segments grown past the device memories.
func (asm *Assembler) checkSegments() (err error) {
	limits := []struct {
		seg   Segment
		limit int
	}{
		{SEGMENT_CODE, asm.prof.FlashSize},
		{SEGMENT_DATA, asm.prof.DataEnd()},
		{SEGMENT_EEPROM, asm.prof.EEPROMSize},
	}

	for _, lim := range limits {
		high := asm.counters[lim.seg].high
		if high <= lim.limit {
			continue
		}
		overflow := diag.Errorf(diag.ErrOperandRange, "%v overflow: %#x exceeds %v size %#x", lim.seg, high, asm.prof.Name, lim.limit)
		err = asm.report(diag.FromError(asm.top, 0, overflow))
		if err != nil {
			return
		}
	}

	return
}
