package asm

import (
	"github.com/ezrec/avrasm/diag"
	"github.com/ezrec/avrasm/translate"
)

var f = translate.From

// ErrUndefined reports a symbol without a usable value.
type ErrUndefined string

func (err ErrUndefined) Error() string {
	return f("symbol %v is not defined", string(err))
}

func (err ErrUndefined) Is(target error) bool {
	return target == diag.ErrUnresolvedSymbol
}

// ErrProvisional reports a symbol whose value depends on a forward reference.
type ErrProvisional string

func (err ErrProvisional) Error() string {
	return f("symbol %v depends on a forward reference", string(err))
}

func (err ErrProvisional) Is(target error) bool {
	return target == diag.ErrUnresolvedSymbol
}

// ErrDuplicate reports a symbol redefinition.
type ErrDuplicate struct {
	Name     string
	Kind     SymbolKind
	Previous SymbolKind
}

func (err *ErrDuplicate) Error() string {
	if err.Kind == err.Previous {
		return f("%v %v already defined", err.Kind, err.Name)
	}
	return f("%v %v already defined as a %v", err.Kind, err.Name, err.Previous)
}

func (err *ErrDuplicate) Is(target error) bool {
	return target == diag.ErrDuplicateSymbol
}

// ErrRecursion reports a macro expansion nested too deeply.
type ErrRecursion struct {
	Macro string
	Depth int
	Limit int
}

func (err *ErrRecursion) Error() string {
	return f("macro %v expansion depth %d exceeds %d", err.Macro, err.Depth, err.Limit)
}

func (err *ErrRecursion) Is(target error) bool {
	return target == diag.ErrRecursionLimit
}

// ErrConsistency reports a divergence between the first and second pass.
type ErrConsistency struct {
	What   string
	First  string
	Second string
}

func (err *ErrConsistency) Error() string {
	return f("%v differs between passes: %v then %v", err.What, err.First, err.Second)
}

func (err *ErrConsistency) Is(target error) bool {
	return target == diag.ErrPassConsistency
}

// ErrDirective reports an unknown directive.
type ErrDirective string

func (err ErrDirective) Error() string {
	return f("unknown directive %v", string(err))
}

func (err ErrDirective) Is(target error) bool {
	return target == diag.ErrUnknownMnemonic
}

// ErrInclude reports a source file that could not be read.
type ErrInclude struct {
	Name string
	Err  error
}

func (err *ErrInclude) Error() string {
	return f("cannot read %v: %v", err.Name, err.Err)
}

func (err *ErrInclude) Unwrap() error {
	return err.Err
}

// ErrUserMessage is raised by `.error`.
type ErrUserMessage string

func (err ErrUserMessage) Error() string {
	return string(err)
}

func (err ErrUserMessage) Is(target error) bool {
	return target == diag.ErrUser
}

// ErrFailed is returned by a run that reported errors.
type ErrFailed int

func (err ErrFailed) Error() string {
	return f("assembly failed with %d error(s)", int(err))
}
