package asm

import (
	"errors"
	"io/fs"
	"path"
	"strings"

	"github.com/golang/glog"

	"github.com/ezrec/avrasm/diag"
	"github.com/ezrec/avrasm/internal"
	"github.com/ezrec/avrasm/isa"
)

const (
	INCLUDE_DEPTH_LIMIT = 32 // Maximum `.include` nesting depth.
)

// sourceLine is one tokenized line of a file or macro body.
type sourceLine struct {
	file   string
	line   int
	text   string
	tokens []Token
	err    error // Tokenizer error.
}

// frame is an open source file or an in progress macro expansion.
type frame struct {
	file    string
	lines   []sourceLine
	next    int
	include bool   // Opened by `.include`.
	macro   *Macro // Expanding macro, or nil for a file.
	id      int
	args    [][]Token
	conds   int // Conditional depth when opened.
}

// line is the statement structure of a source line.
type line struct {
	label string
	name  string
	args  []Token
}

// parseLine splits tokens into an optional label, a name and its arguments.
func parseLine(tokens []Token) (ln line, err error) {
	if len(tokens) >= 2 && tokens[0].Kind == TOKEN_IDENT && tokens[1].Is(":") {
		ln.label = tokens[0].Text
		tokens = tokens[2:]
	}

	if len(tokens) == 0 {
		return
	}

	if tokens[0].Kind != TOKEN_IDENT {
		err = diag.Errorf(diag.ErrSyntax, "expected mnemonic or directive, found %v", tokens[0])
		return
	}

	ln.name = tokens[0].Text
	ln.args = tokens[1:]
	return
}

// load reads and tokenizes a source file, once per run.
func (asm *Assembler) load(name string) (lines []sourceLine, err error) {
	lines, ok := asm.cache[name]
	if ok {
		return
	}

	data, err := fs.ReadFile(asm.fsys, name)
	if err != nil {
		err = &ErrInclude{Name: name, Err: err}
		return
	}

	for n, text := range strings.Split(string(data), "\n") {
		text = strings.TrimSuffix(text, "\r")
		tokens, terr := Tokenize(text)
		lines = append(lines, sourceLine{file: name, line: n + 1, text: text, tokens: tokens, err: terr})
	}

	asm.cache[name] = lines
	return
}

// runPass assembles the top file once.
func (asm *Assembler) runPass(pass int) (err error) {
	glog.V(1).Infof("Beginning pass %d", pass)

	asm.startPass(pass)

	err = asm.predefineSymbols()
	if err != nil {
		return
	}

	lines, err := asm.load(asm.top)
	if err != nil {
		asm.deliver(diag.FromError(asm.top, 0, err))
		asm.errors++
		return
	}
	asm.pushFrame(&frame{file: asm.top, lines: lines})

	for {
		fr, ok := asm.frames.Peek()
		if !ok {
			break
		}
		if fr.next >= len(fr.lines) {
			err = asm.endFrame()
			if err != nil {
				return
			}
			continue
		}

		sl := fr.lines[fr.next]
		fr.next++
		if fr.macro != nil {
			sl = fr.macro.expand(sl, fr.args, fr.id)
		}

		err = asm.step(sl)
		if err != nil {
			return
		}
	}

	return asm.endPass()
}

// pushFrame opens a file or macro expansion at the current conditional depth.
func (asm *Assembler) pushFrame(fr *frame) {
	fr.conds = asm.conds.Len()
	asm.frames.Push(fr)
}

// endFrame closes a frame whose lines are exhausted. A macro body must
// close every conditional block it opens.
func (asm *Assembler) endFrame() (err error) {
	fr := asm.popFrame()
	if fr == nil || fr.macro == nil || asm.conds.Len() <= fr.conds {
		return
	}

	open := asm.conds.Len() - fr.conds
	asm.conds.Truncate(fr.conds)

	lerr := diag.Errorf(diag.ErrStructural, "macro %v ends with %d .if block(s) without .endif", fr.macro.Name, open)
	err = asm.report(diag.FromError(fr.macro.File, fr.macro.Line, lerr))
	if err == nil {
		err = lerr
	}
	return
}

// popFrame closes the innermost file or macro expansion.
func (asm *Assembler) popFrame() (fr *frame) {
	fr, ok := asm.frames.Pop()
	if !ok {
		return
	}
	switch {
	case fr.macro != nil:
		asm.macroDepth--
	case fr.include:
		asm.includeDepth--
	}
	return
}

// endPass runs the checks due at the end of input.
func (asm *Assembler) endPass() (err error) {
	fail := func(err error) error {
		if abort := asm.report(diag.FromError(asm.top, 0, err)); abort != nil {
			return abort
		}
		return err
	}

	if asm.defining != nil && !asm.discard {
		return fail(diag.Errorf(diag.ErrStructural, "macro %v has no .endm", asm.defining.Name))
	}
	if !asm.conds.Empty() {
		return fail(diag.Errorf(diag.ErrStructural, "%d .if block(s) without .endif", asm.conds.Len()))
	}

	if asm.pass == 1 {
		return
	}

	if len(asm.traces[1]) != len(asm.traces[0]) {
		return fail(&ErrConsistency{What: f("line footprint count"), First: f("%d", len(asm.traces[0])), Second: f("%d", len(asm.traces[1]))})
	}
	if len(asm.invocations[1]) != len(asm.invocations[0]) {
		return fail(&ErrConsistency{What: f("macro invocation count"), First: f("%d", len(asm.invocations[0])), Second: f("%d", len(asm.invocations[1]))})
	}

	return asm.checkSegments()
}

// step assembles one line. The returned error ends the run.
func (asm *Assembler) step(sl sourceLine) (err error) {
	if glog.V(2) {
		glog.Infof("%v:%d: %v", sl.file, sl.line, sl.text)
	}

	lerr := asm.line(sl)
	if lerr == nil {
		return
	}

	err = asm.report(diag.FromError(sl.file, sl.line, lerr))
	if err == nil && diag.IsFatal(lerr) {
		err = lerr
	}
	return
}

// active returns true if lines are being assembled.
func (asm *Assembler) active() bool {
	c, ok := asm.conds.Peek()
	return !ok || c.active
}

// line dispatches a line to the conditional, macro, directive or instruction handlers.
func (asm *Assembler) line(sl sourceLine) (err error) {
	if asm.defining != nil {
		return asm.collect(sl)
	}

	if sl.err != nil {
		if asm.active() {
			err = sl.err
		}
		return
	}

	ln, err := parseLine(sl.tokens)
	if err != nil {
		if !asm.active() {
			err = nil
		}
		return
	}

	name := internal.Fold(ln.name)
	dir, isDirective := directives[name]

	if isDirective && dir.conditional {
		if ln.label != "" && asm.active() {
			err = diag.Errorf(diag.ErrSyntax, "label %v on %v", ln.label, ln.name)
			return
		}
		return dir.handler(asm, sl, &ln)
	}

	if !asm.active() {
		if name == ".macro" {
			asm.defining = &Macro{File: sl.file, Line: sl.line}
			asm.discard = true
		}
		return
	}

	var lerr error
	if ln.label != "" {
		lerr = asm.defineSymbol(Symbol{
			Name:    ln.label,
			Kind:    SYMBOL_LABEL,
			Value:   int64(asm.current().pc),
			Segment: asm.seg,
		})
		if lerr != nil && diag.IsFatal(lerr) {
			return lerr
		}
	}

	switch {
	case ln.name == "":
	case isDirective:
		err = dir.handler(asm, sl, &ln)
	case asm.macros[name] != nil:
		err = asm.invoke(sl, asm.macros[name], ln.args)
	case strings.HasPrefix(name, "."):
		err = ErrDirective(ln.name)
	default:
		err = asm.instruction(sl, &ln)
	}

	if lerr != nil && (err == nil || !diag.IsFatal(err)) {
		err = lerr
	}
	return
}

// collect adds a line to the macro being defined.
func (asm *Assembler) collect(sl sourceLine) (err error) {
	if sl.err == nil {
		ln, perr := parseLine(sl.tokens)
		if perr == nil {
			switch internal.Fold(ln.name) {
			case ".endm", ".endmacro":
				if asm.discard {
					asm.defining, asm.discard = nil, false
					return
				}
				return asm.finishMacro()
			case ".macro":
				if !asm.discard {
					err = diag.Errorf(diag.ErrStructural, ".macro inside macro %v", asm.defining.Name)
				}
				return
			}
		}
	}

	if !asm.discard {
		asm.defining.addLine(sl)
	}
	return
}

// instruction assembles a machine instruction. The program counter advances
// by the size of the selected form even when the operands are in error.
func (asm *Assembler) instruction(sl sourceLine, ln *line) (err error) {
	args, err := splitOperands(ln.args)
	if err != nil {
		return
	}

	desc, err := isa.Select(ln.name, len(args))
	if err != nil {
		return
	}

	if asm.seg != SEGMENT_CODE {
		err = diag.Errorf(diag.ErrSyntax, "instruction %v outside of the code segment", ln.name)
		return
	}

	ctr := asm.current()
	pc := ctr.pc
	size := desc.Size()

	defer func() {
		terr := asm.trace(sl, SEGMENT_CODE, pc, size*2)
		ctr.advance(size)
		if terr != nil {
			err = terr
		}
	}()

	ops, err := asm.operands(args)
	if err != nil {
		return
	}

	if asm.pass == 1 {
		return isa.CheckShape(desc, ops)
	}

	words, err := isa.Encode(desc, ops, asm.prof, pc)
	if err != nil {
		return
	}

	data := make([]byte, 0, len(words)*2)
	for _, word := range words {
		data = append(data, byte(word), byte(word>>8))
	}
	asm.emit(SEGMENT_CODE, pc, data)

	return
}

// include opens a source file relative to the including file or the include directories.
func (asm *Assembler) include(sl sourceLine, name string) (err error) {
	if asm.includeDepth+1 > INCLUDE_DEPTH_LIMIT {
		err = diag.Errorf(diag.ErrRecursionLimit, "include depth exceeds %d", INCLUDE_DEPTH_LIMIT)
		return
	}

	candidates := []string{name}
	if !path.IsAbs(name) {
		candidates = []string{path.Join(path.Dir(sl.file), name)}
		for _, dir := range asm.Config.IncludeDirs {
			candidates = append(candidates, path.Join(dir, name))
		}
		candidates = append(candidates, path.Clean(name))
	}

	var lines []sourceLine
	for _, candidate := range candidates {
		lines, err = asm.load(candidate)
		if err == nil {
			asm.includeDepth++
			asm.pushFrame(&frame{file: candidate, lines: lines, include: true})
			return
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return
		}
	}

	err = &ErrInclude{Name: name, Err: fs.ErrNotExist}
	return
}

// exit closes the innermost source file, and any macro expansions within it.
// Conditional blocks opened since the file was opened are discarded.
func (asm *Assembler) exit() {
	for {
		fr := asm.popFrame()
		if fr == nil {
			return
		}
		if fr.macro == nil {
			asm.conds.Truncate(fr.conds)
			return
		}
	}
}
