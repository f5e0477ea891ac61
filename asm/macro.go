package asm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/golang/glog"

	"github.com/ezrec/avrasm/diag"
	"github.com/ezrec/avrasm/internal"
	"github.com/ezrec/avrasm/isa"
)

const (
	MACRO_DEPTH_LIMIT = 256 // Default maximum macro nesting depth.
)

// Macro is an immutable macro definition.
type Macro struct {
	Name    string
	File    string       // File of the definition.
	Line    int          // Line of the `.macro` directive.
	Formals []string     // Named parameters, if any.
	Body    []sourceLine // Raw body lines.
	Locals  map[string]bool
}

// addLine appends a body line, recording the labels it declares.
func (mac *Macro) addLine(sl sourceLine) {
	mac.Body = append(mac.Body, sl)
	if sl.err == nil && len(sl.tokens) >= 2 && sl.tokens[0].Kind == TOKEN_IDENT && sl.tokens[1].Is(":") {
		if mac.Locals == nil {
			mac.Locals = map[string]bool{}
		}
		mac.Locals[internal.Fold(sl.tokens[0].Text)] = true
	}
}

// formal returns the position of a named parameter.
func (mac *Macro) formal(name string) (n int, ok bool) {
	name = internal.Fold(name)
	for n, formal := range mac.Formals {
		if internal.Fold(formal) == name {
			return n, true
		}
	}
	return
}

// expand substitutes the arguments and local label names of one body line.
func (mac *Macro) expand(sl sourceLine, args [][]Token, id int) (out sourceLine) {
	out = sl
	if sl.err != nil {
		return
	}

	out.tokens = make([]Token, 0, len(sl.tokens))
	for _, tok := range sl.tokens {
		if tok.Kind != TOKEN_IDENT {
			out.tokens = append(out.tokens, tok)
			continue
		}
		if strings.HasPrefix(tok.Text, "@") {
			n, _ := strconv.Atoi(tok.Text[1:])
			if n >= len(args) {
				out.err = diag.Errorf(diag.ErrOperandShape, "macro %v has no argument %v", mac.Name, tok)
				return
			}
			out.tokens = append(out.tokens, args[n]...)
			continue
		}
		if n, ok := mac.formal(tok.Text); ok {
			out.tokens = append(out.tokens, args[n]...)
			continue
		}
		if mac.Locals[internal.Fold(tok.Text)] {
			tok.Text = fmt.Sprintf("%v@%d", tok.Text, id)
		}
		out.tokens = append(out.tokens, tok)
	}

	return
}

// invocation records where and how a macro was expanded.
type invocation struct {
	File string
	Line int
	Name string
	Args []string
}

func (inv invocation) String() string {
	return fmt.Sprintf("%v:%d %v %v", inv.File, inv.Line, inv.Name, strings.Join(inv.Args, ", "))
}

func (inv invocation) equal(other invocation) bool {
	if inv.File != other.File || inv.Line != other.Line || inv.Name != other.Name || len(inv.Args) != len(other.Args) {
		return false
	}
	for n := range inv.Args {
		if inv.Args[n] != other.Args[n] {
			return false
		}
	}
	return true
}

// defineMacro starts collecting a macro body.
func (asm *Assembler) defineMacro(sl sourceLine, ln *line) (err error) {
	if len(ln.args) == 0 || ln.args[0].Kind != TOKEN_IDENT {
		err = diag.Errorf(diag.ErrSyntax, ".macro needs a name")
		return
	}

	mac := &Macro{Name: ln.args[0].Text, File: sl.file, Line: sl.line}
	if isa.IsMnemonic(mac.Name) {
		asm.notice(sl, diag.SEVERITY_WARNING, f("macro %v hides the %v instruction", mac.Name, internal.Fold(mac.Name)))
	}
	for _, tok := range ln.args[1:] {
		switch {
		case tok.Is(","):
		case tok.Kind == TOKEN_IDENT:
			mac.Formals = append(mac.Formals, tok.Text)
		default:
			err = diag.Errorf(diag.ErrSyntax, "bad macro parameter %v", tok)
			return
		}
	}

	asm.defining = mac
	return
}

// finishMacro registers the macro being collected.
func (asm *Assembler) finishMacro() (err error) {
	mac := asm.defining
	asm.defining = nil

	key := internal.Fold(mac.Name)
	if _, ok := asm.macros[key]; ok {
		err = &ErrDuplicate{Name: mac.Name, Kind: SYMBOL_MACRO, Previous: SYMBOL_MACRO}
		return
	}
	asm.macros[key] = mac
	return
}

// invoke pushes an expansion frame for a macro call.
func (asm *Assembler) invoke(sl sourceLine, mac *Macro, tokens []Token) (err error) {
	args, err := splitOperands(tokens)
	if err != nil {
		return
	}

	if len(mac.Formals) > 0 && len(args) != len(mac.Formals) {
		err = diag.Errorf(diag.ErrOperandShape, "macro %v takes %d argument(s), not %d", mac.Name, len(mac.Formals), len(args))
		return
	}

	depth := asm.macroDepth + 1
	if depth > asm.depthLimit() {
		err = &ErrRecursion{Macro: mac.Name, Depth: depth, Limit: asm.depthLimit()}
		return
	}

	inv := invocation{File: sl.file, Line: sl.line, Name: internal.Fold(mac.Name)}
	for _, arg := range args {
		inv.Args = append(inv.Args, joinTokens(arg))
	}
	err = asm.checkInvocation(inv)
	if err != nil {
		return
	}

	id := asm.nextID
	asm.nextID++

	if glog.V(3) {
		glog.Infof("%v:%d: expand %v#%d depth %d", sl.file, sl.line, mac.Name, id, depth)
	}

	asm.macroDepth = depth
	asm.pushFrame(&frame{
		file:  mac.File,
		lines: mac.Body,
		macro: mac,
		id:    id,
		args:  args,
	})

	return
}

// checkInvocation compares an invocation with the same ordinal of the first pass.
func (asm *Assembler) checkInvocation(inv invocation) (err error) {
	index := len(asm.invocations[asm.pass-1])
	asm.invocations[asm.pass-1] = append(asm.invocations[asm.pass-1], inv)

	if asm.pass == 1 {
		return
	}

	first := asm.invocations[0]
	if index >= len(first) {
		err = &ErrConsistency{What: f("macro invocation %d", index), First: f("none"), Second: inv.String()}
		return
	}
	if !first[index].equal(inv) {
		err = &ErrConsistency{What: f("macro invocation %d", index), First: first[index].String(), Second: inv.String()}
	}
	return
}

func (asm *Assembler) depthLimit() int {
	if asm.Config.MacroDepth > 0 {
		return asm.Config.MacroDepth
	}
	return MACRO_DEPTH_LIMIT
}
