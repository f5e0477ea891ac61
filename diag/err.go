package diag

import (
	"errors"

	"github.com/ezrec/avrasm/translate"
)

var f = translate.From

var (
	ErrSyntax           = errors.New(f("syntax error"))
	ErrUnknownMnemonic  = errors.New(f("unknown mnemonic or directive"))
	ErrDuplicateSymbol  = errors.New(f("duplicate symbol"))
	ErrUnresolvedSymbol = errors.New(f("unresolved symbol"))
	ErrOperandShape     = errors.New(f("operand shape"))
	ErrOperandRange     = errors.New(f("operand out of range"))
	ErrDeviceCapability = errors.New(f("not supported by device"))
	ErrRecursionLimit   = errors.New(f("macro recursion limit exceeded"))
	ErrStructural       = errors.New(f("structural directive error"))
	ErrPassConsistency  = errors.New(f("pass consistency error"))
	ErrMaxDiagnostics   = errors.New(f("maximum number of errors reached"))
	ErrUser             = errors.New(f("user error"))
)

// Kind classifies a diagnostic.
type Kind int

const (
	KIND_OTHER = Kind(iota)
	KIND_SYNTAX
	KIND_UNKNOWN_MNEMONIC
	KIND_DUPLICATE_SYMBOL
	KIND_UNRESOLVED_SYMBOL
	KIND_OPERAND_SHAPE
	KIND_OPERAND_RANGE
	KIND_DEVICE_CAPABILITY
	KIND_RECURSION_LIMIT
	KIND_STRUCTURAL
	KIND_PASS_CONSISTENCY
	KIND_MAX_DIAGNOSTICS
	KIND_USER
)

var kindSentinel = []struct {
	kind Kind
	err  error
	name string
}{
	{KIND_PASS_CONSISTENCY, ErrPassConsistency, "PassConsistencyError"},
	{KIND_MAX_DIAGNOSTICS, ErrMaxDiagnostics, "MaxDiagnosticsExceeded"},
	{KIND_STRUCTURAL, ErrStructural, "StructuralDirectiveError"},
	{KIND_RECURSION_LIMIT, ErrRecursionLimit, "RecursionLimitExceeded"},
	{KIND_UNRESOLVED_SYMBOL, ErrUnresolvedSymbol, "UnresolvedSymbol"},
	{KIND_DUPLICATE_SYMBOL, ErrDuplicateSymbol, "DuplicateSymbol"},
	{KIND_DEVICE_CAPABILITY, ErrDeviceCapability, "DeviceCapabilityError"},
	{KIND_OPERAND_RANGE, ErrOperandRange, "OperandRangeError"},
	{KIND_OPERAND_SHAPE, ErrOperandShape, "OperandShapeError"},
	{KIND_UNKNOWN_MNEMONIC, ErrUnknownMnemonic, "UnknownMnemonicOrDirective"},
	{KIND_SYNTAX, ErrSyntax, "SyntaxError"},
	{KIND_USER, ErrUser, "UserError"},
}

// KindOf finds the taxonomy kind of an error.
func KindOf(err error) Kind {
	for _, ks := range kindSentinel {
		if errors.Is(err, ks.err) {
			return ks.kind
		}
	}

	return KIND_OTHER
}

// String returns the taxonomy name of the kind.
func (kind Kind) String() string {
	for _, ks := range kindSentinel {
		if ks.kind == kind {
			return ks.name
		}
	}

	return "Error"
}

// Fatal returns true if the kind aborts an assembly run.
func (kind Kind) Fatal() bool {
	switch kind {
	case KIND_STRUCTURAL, KIND_PASS_CONSISTENCY, KIND_MAX_DIAGNOSTICS:
		return true
	}

	return false
}

// ErrDetail attaches a detailed message to a taxonomy sentinel.
type ErrDetail struct {
	Err    error
	Detail string
}

func (err *ErrDetail) Error() string {
	return f("%v: %v", err.Err, err.Detail)
}

func (err *ErrDetail) Unwrap() error {
	return err.Err
}

// Errorf creates a detailed error of the given taxonomy sentinel.
func Errorf(sentinel error, format string, args ...any) error {
	return &ErrDetail{Err: sentinel, Detail: f(format, args...)}
}

// ErrAbort marks an otherwise per-line error as fatal to the run.
type ErrAbort struct {
	Err error
}

func (err *ErrAbort) Error() string {
	return err.Err.Error()
}

func (err *ErrAbort) Unwrap() error {
	return err.Err
}

// IsFatal returns true if the error must abort the assembly run.
func IsFatal(err error) bool {
	var abort *ErrAbort
	if errors.As(err, &abort) {
		return true
	}

	return KindOf(err).Fatal()
}
