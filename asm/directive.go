package asm

import (
	"errors"
	"math"

	"github.com/ezrec/avrasm/diag"
	"github.com/ezrec/avrasm/internal"
)

// directive is the handler of an assembler directive.
type directive struct {
	conditional bool // Handled even inside an inactive conditional block.
	handler     func(asm *Assembler, sl sourceLine, ln *line) error
}

// directives maps a folded directive name to its handler.
var directives map[string]directive

func init() {
	directives = map[string]directive{
		".if":     {conditional: true, handler: (*Assembler).dirIf},
		".ifdef":  {conditional: true, handler: (*Assembler).dirIfdef},
		".ifndef": {conditional: true, handler: (*Assembler).dirIfdef},
		".elif":   {conditional: true, handler: (*Assembler).dirElif},
		".else":   {conditional: true, handler: (*Assembler).dirElse},
		".endif":  {conditional: true, handler: (*Assembler).dirEndif},

		".equ":      {handler: (*Assembler).dirEqu},
		".set":      {handler: (*Assembler).dirSet},
		".def":      {handler: (*Assembler).dirDef},
		".undef":    {handler: (*Assembler).dirUndef},
		".cseg":     {handler: (*Assembler).dirSegment},
		".dseg":     {handler: (*Assembler).dirSegment},
		".eseg":     {handler: (*Assembler).dirSegment},
		".org":      {handler: (*Assembler).dirOrg},
		".db":       {handler: (*Assembler).dirData},
		".dw":       {handler: (*Assembler).dirData},
		".dd":       {handler: (*Assembler).dirData},
		".dq":       {handler: (*Assembler).dirData},
		".byte":     {handler: (*Assembler).dirByte},
		".macro":    {handler: (*Assembler).dirMacro},
		".endm":     {handler: (*Assembler).dirEndm},
		".endmacro": {handler: (*Assembler).dirEndm},
		".include":  {handler: (*Assembler).dirInclude},
		".exit":     {handler: (*Assembler).dirExit},
		".device":   {handler: (*Assembler).dirDevice},
		".error":    {handler: (*Assembler).dirMessage},
		".warning":  {handler: (*Assembler).dirMessage},
		".message":  {handler: (*Assembler).dirMessage},

		".list":      {handler: (*Assembler).dirNothing},
		".nolist":    {handler: (*Assembler).dirNothing},
		".listmac":   {handler: (*Assembler).dirNothing},
		".overlap":   {handler: (*Assembler).dirNothing},
		".nooverlap": {handler: (*Assembler).dirNothing},
	}
}

var segmentDirective = map[string]Segment{
	".cseg": SEGMENT_CODE,
	".dseg": SEGMENT_DATA,
	".eseg": SEGMENT_EEPROM,
}

var dataWidth = map[string]int{
	".db": 1,
	".dw": 2,
	".dd": 4,
	".dq": 8,
}

// strict evaluates an expression whose value decides the layout of later lines.
func (asm *Assembler) strict(tokens []Token) (value int64, err error) {
	value, _, err = Evaluate(tokens, asm, true)
	return
}

// condition evaluates a conditional expression. Unresolved symbols abort the run.
func (asm *Assembler) condition(tokens []Token) (value bool, err error) {
	v, err := asm.strict(tokens)
	if err != nil && errors.Is(err, diag.ErrUnresolvedSymbol) {
		err = &diag.ErrAbort{Err: err}
	}
	value = v != 0
	return
}

func noArguments(ln *line) (err error) {
	if len(ln.args) != 0 {
		err = diag.Errorf(diag.ErrSyntax, "%v takes no arguments", ln.name)
	}
	return
}

// symbolArgument returns the single identifier argument of a directive.
func symbolArgument(ln *line) (name string, err error) {
	if len(ln.args) != 1 || ln.args[0].Kind != TOKEN_IDENT {
		err = diag.Errorf(diag.ErrSyntax, "%v needs a name", ln.name)
		return
	}
	name = ln.args[0].Text
	return
}

// stringArgument returns the single string argument of a directive.
func stringArgument(ln *line) (text string, err error) {
	if len(ln.args) != 1 || ln.args[0].Kind != TOKEN_STRING {
		err = diag.Errorf(diag.ErrSyntax, "%v needs a string", ln.name)
		return
	}
	text = ln.args[0].Str
	return
}

// assignment splits `NAME = expression`.
func assignment(ln *line) (name string, expr []Token, err error) {
	if len(ln.args) < 3 || ln.args[0].Kind != TOKEN_IDENT || !ln.args[1].Is("=") {
		err = diag.Errorf(diag.ErrSyntax, "%v needs NAME = value", ln.name)
		return
	}
	name, expr = ln.args[0].Text, ln.args[2:]
	return
}

func (asm *Assembler) dirIf(sl sourceLine, ln *line) (err error) {
	c := &cond{parent: asm.active()}
	asm.conds.Push(c)
	if !c.parent {
		return
	}

	c.active, err = asm.condition(ln.args)
	if err != nil {
		c.active = false
	}
	c.taken = c.active
	return
}

func (asm *Assembler) dirIfdef(sl sourceLine, ln *line) (err error) {
	c := &cond{parent: asm.active()}
	asm.conds.Push(c)
	if !c.parent {
		return
	}

	name, err := symbolArgument(ln)
	if err != nil {
		return
	}

	c.active = asm.Defined(name) == (internal.Fold(ln.name) == ".ifdef")
	c.taken = c.active
	return
}

func (asm *Assembler) dirElif(sl sourceLine, ln *line) (err error) {
	c, ok := asm.conds.Peek()
	if !ok {
		err = diag.Errorf(diag.ErrStructural, ".elif without .if")
		return
	}
	if c.elseSeen {
		err = diag.Errorf(diag.ErrStructural, ".elif after .else")
		return
	}

	c.active = false
	if !c.parent || c.taken {
		return
	}

	c.active, err = asm.condition(ln.args)
	if err != nil {
		c.active = false
	}
	c.taken = c.active
	return
}

func (asm *Assembler) dirElse(sl sourceLine, ln *line) (err error) {
	c, ok := asm.conds.Peek()
	if !ok {
		err = diag.Errorf(diag.ErrStructural, ".else without .if")
		return
	}
	if c.elseSeen {
		err = diag.Errorf(diag.ErrStructural, "second .else")
		return
	}

	c.elseSeen = true
	c.active = c.parent && !c.taken
	c.taken = true
	return
}

func (asm *Assembler) dirEndif(sl sourceLine, ln *line) (err error) {
	_, ok := asm.conds.Pop()
	if !ok {
		err = diag.Errorf(diag.ErrStructural, ".endif without .if")
	}
	return
}

func (asm *Assembler) dirEqu(sl sourceLine, ln *line) (err error) {
	name, expr, err := assignment(ln)
	if err != nil {
		return
	}

	value, resolved, err := Evaluate(expr, asm, false)
	if err != nil {
		return
	}

	return asm.defineSymbol(Symbol{Name: name, Kind: SYMBOL_CONSTANT, Value: value, Provisional: !resolved})
}

func (asm *Assembler) dirSet(sl sourceLine, ln *line) (err error) {
	name, expr, err := assignment(ln)
	if err != nil {
		return
	}

	value, resolved, err := Evaluate(expr, asm, false)
	if err != nil {
		return
	}

	return asm.symbols.Set(name, value, !resolved)
}

func (asm *Assembler) dirDef(sl sourceLine, ln *line) (err error) {
	name, expr, err := assignment(ln)
	if err != nil {
		return
	}

	if len(expr) != 1 || expr[0].Kind != TOKEN_IDENT {
		err = diag.Errorf(diag.ErrOperandShape, ".def %v needs a register", name)
		return
	}

	reg, ok := asm.register(expr[0].Text)
	if !ok {
		err = diag.Errorf(diag.ErrOperandShape, "%v is not a register", expr[0])
		return
	}

	asm.aliases[internal.Fold(name)] = reg
	return
}

func (asm *Assembler) dirUndef(sl sourceLine, ln *line) (err error) {
	name, err := symbolArgument(ln)
	if err != nil {
		return
	}

	delete(asm.aliases, internal.Fold(name))
	return
}

func (asm *Assembler) dirSegment(sl sourceLine, ln *line) (err error) {
	err = noArguments(ln)
	if err != nil {
		return
	}

	asm.seg = segmentDirective[internal.Fold(ln.name)]
	return
}

func (asm *Assembler) dirOrg(sl sourceLine, ln *line) (err error) {
	value, err := asm.strict(ln.args)
	if err != nil {
		return
	}

	if value < 0 || value > math.MaxInt32 {
		err = diag.Errorf(diag.ErrOperandRange, ".org %d out of range", value)
		return
	}

	asm.current().origin(int(value))
	return asm.trace(sl, asm.seg, int(value), 0)
}

// dataRange checks that a value fits an item of width bytes, signed or unsigned.
func dataRange(width int, value int64) (err error) {
	if width >= 8 {
		return
	}
	bits := uint(width * 8)
	lo, hi := -int64(1)<<(bits-1), int64(1)<<bits-1
	if value < lo || value > hi {
		err = diag.Errorf(diag.ErrOperandRange, "value %d does not fit in %d byte(s)", value, width)
	}
	return
}

func (asm *Assembler) dirData(sl sourceLine, ln *line) (err error) {
	name := internal.Fold(ln.name)
	width := dataWidth[name]

	items, err := splitOperands(ln.args)
	if err != nil {
		return
	}
	if len(items) == 0 {
		err = diag.Errorf(diag.ErrSyntax, "%v needs a value", ln.name)
		return
	}

	if asm.seg == SEGMENT_DATA {
		err = diag.Errorf(diag.ErrSyntax, "%v not allowed in dseg, use .byte", ln.name)
		return
	}

	var data []byte
	for _, item := range items {
		if width == 1 && len(item) == 1 && item[0].Kind == TOKEN_STRING {
			data = append(data, item[0].Str...)
			continue
		}

		value, resolved, verr := Evaluate(item, asm, false)
		if verr == nil && resolved {
			verr = dataRange(width, value)
		}
		if verr != nil && err == nil {
			err = verr
		}
		for n := range width {
			data = append(data, byte(value>>(8*n)))
		}
	}

	if asm.seg == SEGMENT_CODE && len(data)%2 != 0 {
		data = append(data, 0)
		asm.notice(sl, diag.SEVERITY_WARNING, f("%v: odd number of bytes padded with 0", ln.name))
	}

	ctr := asm.current()
	pc := ctr.pc
	terr := asm.trace(sl, asm.seg, pc, len(data))
	if terr != nil {
		return terr
	}

	asm.emit(asm.seg, pc, data)
	ctr.advance(len(data) / asm.seg.Unit())
	return
}

func (asm *Assembler) dirByte(sl sourceLine, ln *line) (err error) {
	if asm.seg == SEGMENT_CODE {
		err = diag.Errorf(diag.ErrSyntax, ".byte not allowed in cseg")
		return
	}

	size, err := asm.strict(ln.args)
	if err != nil {
		return
	}
	if size < 0 || size > math.MaxInt32 {
		err = diag.Errorf(diag.ErrOperandRange, ".byte %d out of range", size)
		return
	}

	ctr := asm.current()
	err = asm.trace(sl, asm.seg, ctr.pc, int(size))
	ctr.advance(int(size))
	return
}

func (asm *Assembler) dirMacro(sl sourceLine, ln *line) (err error) {
	return asm.defineMacro(sl, ln)
}

func (asm *Assembler) dirEndm(sl sourceLine, ln *line) (err error) {
	return diag.Errorf(diag.ErrStructural, "%v without .macro", ln.name)
}

func (asm *Assembler) dirInclude(sl sourceLine, ln *line) (err error) {
	name, err := stringArgument(ln)
	if err != nil {
		return
	}

	return asm.include(sl, name)
}

func (asm *Assembler) dirExit(sl sourceLine, ln *line) (err error) {
	if len(ln.args) > 0 {
		var value int64
		value, err = asm.strict(ln.args)
		if err != nil || value == 0 {
			return
		}
	}

	asm.exit()
	return
}

func (asm *Assembler) dirDevice(sl sourceLine, ln *line) (err error) {
	name, err := symbolArgument(ln)
	if err != nil {
		return
	}

	return asm.selectDevice(name)
}

func (asm *Assembler) dirMessage(sl sourceLine, ln *line) (err error) {
	text, err := stringArgument(ln)
	if err != nil {
		return
	}

	switch internal.Fold(ln.name) {
	case ".error":
		err = ErrUserMessage(text)
	case ".warning":
		asm.notice(sl, diag.SEVERITY_WARNING, text)
	default:
		asm.notice(sl, diag.SEVERITY_INFO, text)
	}
	return
}

func (asm *Assembler) dirNothing(sl sourceLine, ln *line) (err error) {
	return
}
