package asm

import (
	"math"
	"math/bits"

	"github.com/ezrec/avrasm/diag"
	"github.com/ezrec/avrasm/internal"
)

// Scope resolves the names an expression refers to.
type Scope interface {
	// Resolve returns the value of a symbol. A nil error with resolved
	// false is a placeholder for a symbol that may be defined later.
	Resolve(name string, strict bool) (value int64, resolved bool, err error)
	// PC returns the program counter of the active segment.
	PC() int64
	// Defined returns true if the symbol has been defined so far in this pass.
	Defined(name string) bool
}

// PC_SYMBOL is the pseudo symbol naming the current program counter.
const PC_SYMBOL = "pc"

// function is a builtin expression function of one argument.
type function func(x int64) (int64, error)

func byteOf(shift uint) function {
	return func(x int64) (int64, error) {
		return (x >> shift) & 0xff, nil
	}
}

var functions = map[string]function{
	"low":   byteOf(0),
	"high":  byteOf(8),
	"byte1": byteOf(0),
	"byte2": byteOf(8),
	"byte3": byteOf(16),
	"byte4": byteOf(24),
	"lwrd": func(x int64) (int64, error) {
		return x & 0xffff, nil
	},
	"hwrd": func(x int64) (int64, error) {
		return (x >> 16) & 0xffff, nil
	},
	"page": func(x int64) (int64, error) {
		return (x >> 16) & 0x3f, nil
	},
	"exp2": func(x int64) (int64, error) {
		if x < 0 || x > 62 {
			return 0, diag.Errorf(diag.ErrOperandRange, "EXP2(%d) out of range", x)
		}
		return 1 << x, nil
	},
	"log2": func(x int64) (int64, error) {
		if x <= 0 {
			return 0, diag.Errorf(diag.ErrOperandRange, "LOG2(%d) undefined", x)
		}
		return int64(63 - bits.LeadingZeros64(uint64(x))), nil
	},
	"abs": func(x int64) (int64, error) {
		if x == math.MinInt64 {
			return 0, errOverflow
		}
		if x < 0 {
			x = -x
		}
		return x, nil
	},
}

var errOverflow = diag.Errorf(diag.ErrOperandRange, "arithmetic overflow")

// binary operator precedence, lowest first.
var precedence = [][]string{
	{"||"},
	{"&&"},
	{"|"},
	{"^"},
	{"&"},
	{"==", "!="},
	{"<", "<=", ">", ">="},
	{"<<", ">>"},
	{"+", "-"},
	{"*", "/", "%"},
}

// evaluator is a precedence climbing parser that evaluates as it parses.
type evaluator struct {
	scope      Scope
	strict     bool
	tokens     []Token
	pos        int
	unresolved bool // A placeholder value was used.
}

// Evaluate parses and evaluates an expression. When strict is false the
// scope may supply placeholders for forward references; resolved reports
// whether any were used.
func Evaluate(tokens []Token, scope Scope, strict bool) (value int64, resolved bool, err error) {
	if len(tokens) == 0 {
		err = diag.Errorf(diag.ErrSyntax, "missing expression")
		return
	}

	ev := &evaluator{scope: scope, strict: strict, tokens: tokens}
	value, err = ev.binary(0)
	if err != nil {
		return
	}

	if ev.pos != len(tokens) {
		err = diag.Errorf(diag.ErrSyntax, "unexpected %v in expression", tokens[ev.pos])
		return
	}

	resolved = !ev.unresolved
	return
}

func (ev *evaluator) peek() (tok Token, ok bool) {
	if ev.pos < len(ev.tokens) {
		tok, ok = ev.tokens[ev.pos], true
	}
	return
}

func (ev *evaluator) next() (tok Token, err error) {
	tok, ok := ev.peek()
	if !ok {
		err = diag.Errorf(diag.ErrSyntax, "unexpected end of expression")
		return
	}
	ev.pos++
	return
}

func (ev *evaluator) expect(op string) (err error) {
	tok, err := ev.next()
	if err == nil && !tok.Is(op) {
		err = diag.Errorf(diag.ErrSyntax, "expected %v, found %v", op, tok)
	}
	return
}

// binary parses the operators at precedence level and above.
func (ev *evaluator) binary(level int) (value int64, err error) {
	if level == len(precedence) {
		return ev.unary()
	}

	value, err = ev.binary(level + 1)
	if err != nil {
		return
	}

	for {
		tok, ok := ev.peek()
		if !ok || tok.Kind != TOKEN_OPERATOR || !contains(precedence[level], tok.Text) {
			return
		}
		ev.pos++

		var rhs int64
		rhs, err = ev.binary(level + 1)
		if err != nil {
			return
		}

		value, err = ev.apply(tok.Text, value, rhs)
		if err != nil {
			return
		}
	}
}

func contains(ops []string, op string) bool {
	for _, o := range ops {
		if o == op {
			return true
		}
	}
	return false
}

func boolValue(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// apply evaluates a binary operator, reporting overflow and division by zero.
// Placeholder operands suppress those errors since their values are not final.
func (ev *evaluator) apply(op string, a, b int64) (value int64, err error) {
	overflow := false
	switch op {
	case "||":
		value = boolValue(a != 0 || b != 0)
	case "&&":
		value = boolValue(a != 0 && b != 0)
	case "|":
		value = a | b
	case "^":
		value = a ^ b
	case "&":
		value = a & b
	case "==":
		value = boolValue(a == b)
	case "!=":
		value = boolValue(a != b)
	case "<":
		value = boolValue(a < b)
	case "<=":
		value = boolValue(a <= b)
	case ">":
		value = boolValue(a > b)
	case ">=":
		value = boolValue(a >= b)
	case "<<":
		if b < 0 || b > 63 {
			overflow = true
			break
		}
		value = a << b
		overflow = value>>b != a
	case ">>":
		if b < 0 || b > 63 {
			overflow = true
			break
		}
		value = a >> b
	case "+":
		value = a + b
		overflow = (b > 0 && value < a) || (b < 0 && value > a)
	case "-":
		value = a - b
		overflow = (b < 0 && value < a) || (b > 0 && value > a)
	case "*":
		value = a * b
		overflow = a != 0 && (value/a != b || (a == -1 && b == math.MinInt64))
	case "/", "%":
		if b == 0 {
			if !ev.unresolved {
				err = diag.Errorf(diag.ErrSyntax, "division by zero")
			}
			return
		}
		if a == math.MinInt64 && b == -1 {
			overflow = true
			break
		}
		if op == "/" {
			value = a / b
		} else {
			value = a % b
		}
	}

	if overflow {
		value = 0
		if !ev.unresolved {
			err = errOverflow
		}
	}

	return
}

func (ev *evaluator) unary() (value int64, err error) {
	tok, err := ev.next()
	if err != nil {
		return
	}

	if tok.Kind == TOKEN_OPERATOR {
		switch tok.Text {
		case "+":
			return ev.unary()
		case "-":
			value, err = ev.unary()
			if err == nil && value == math.MinInt64 {
				value = 0
				if !ev.unresolved {
					err = errOverflow
				}
			}
			value = -value
			return
		case "~":
			value, err = ev.unary()
			value = ^value
			return
		case "!":
			value, err = ev.unary()
			value = boolValue(value == 0)
			return
		case "(":
			value, err = ev.binary(0)
			if err == nil {
				err = ev.expect(")")
			}
			return
		}
		err = diag.Errorf(diag.ErrSyntax, "unexpected %v in expression", tok)
		return
	}

	switch tok.Kind {
	case TOKEN_NUMBER:
		value = tok.Value
	case TOKEN_STRING:
		if len(tok.Str) != 1 {
			err = diag.Errorf(diag.ErrSyntax, "string %v in expression", tok)
			return
		}
		value = int64(tok.Str[0])
	case TOKEN_IDENT:
		value, err = ev.identifier(tok)
	}

	return
}

// identifier evaluates a symbol reference or function call.
func (ev *evaluator) identifier(tok Token) (value int64, err error) {
	name := internal.Fold(tok.Text)

	next, ok := ev.peek()
	if ok && next.Is("(") {
		if name == "defined" {
			return ev.defined()
		}
		fn, ok := functions[name]
		if !ok {
			err = diag.Errorf(diag.ErrSyntax, "unknown function %v", tok)
			return
		}
		ev.pos++
		var arg int64
		arg, err = ev.binary(0)
		if err != nil {
			return
		}
		err = ev.expect(")")
		if err != nil {
			return
		}
		value, err = fn(arg)
		if err != nil && ev.unresolved {
			value, err = 0, nil
		}
		return
	}

	if name == PC_SYMBOL {
		value = ev.scope.PC()
		return
	}

	value, resolved, err := ev.scope.Resolve(tok.Text, ev.strict)
	if !resolved {
		ev.unresolved = true
	}
	return
}

// defined evaluates `DEFINED(name)`.
func (ev *evaluator) defined() (value int64, err error) {
	ev.pos++
	tok, err := ev.next()
	if err != nil {
		return
	}
	if tok.Kind != TOKEN_IDENT {
		err = diag.Errorf(diag.ErrSyntax, "DEFINED needs a symbol name")
		return
	}
	err = ev.expect(")")
	if err != nil {
		return
	}
	value = boolValue(ev.scope.Defined(tok.Text))
	return
}
