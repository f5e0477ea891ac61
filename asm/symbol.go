package asm

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/ezrec/avrasm/internal"
)

// SymbolKind is the namespace of a symbol.
type SymbolKind int

const (
	SYMBOL_LABEL    = SymbolKind(0) // label
	SYMBOL_CONSTANT = SymbolKind(1) // constant
	SYMBOL_VARIABLE = SymbolKind(2) // variable
	SYMBOL_MACRO    = SymbolKind(3) // macro
)

var symbolKindName = [...]string{"label", "constant", "variable", "macro"}

func (kind SymbolKind) String() string {
	if int(kind) < len(symbolKindName) {
		return symbolKindName[kind]
	}
	return fmt.Sprintf("SymbolKind(%d)", int(kind))
}

// Symbol is a named value.
type Symbol struct {
	Name        string // Name as first written.
	Kind        SymbolKind
	Value       int64
	Segment     Segment // Segment of a label.
	Provisional bool    // Value depends on a symbol unresolved when it was defined.
}

func (sym *Symbol) String() string {
	text := fmt.Sprintf("%v %v = %#x", sym.Kind, sym.Name, sym.Value)
	if sym.Kind == SYMBOL_LABEL {
		text += " (" + sym.Segment.String() + ")"
	}
	if sym.Provisional {
		text += " ?"
	}
	return text
}

// SymbolTable is a case insensitive store of labels, constants and variables.
type SymbolTable struct {
	symbols map[string]*Symbol
}

// NewSymbolTable creates an empty table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{symbols: make(map[string]*Symbol)}
}

// Define adds a label or constant. A constant may be restated with an
// identical value; any other redefinition is an ErrDuplicate.
func (st *SymbolTable) Define(sym Symbol) (err error) {
	if sym.Kind == SYMBOL_VARIABLE {
		return st.Set(sym.Name, sym.Value, sym.Provisional)
	}

	key := internal.Fold(sym.Name)

	old, ok := st.symbols[key]
	if ok {
		same := old.Kind == sym.Kind && old.Kind == SYMBOL_CONSTANT &&
			old.Value == sym.Value && old.Provisional == sym.Provisional
		if !same {
			err = &ErrDuplicate{Name: sym.Name, Kind: sym.Kind, Previous: old.Kind}
		}
		return
	}

	st.symbols[key] = &sym
	return
}

// Set binds or rebinds a variable. It fails only if the name is already a
// label or constant.
func (st *SymbolTable) Set(name string, value int64, provisional bool) (err error) {
	key := internal.Fold(name)

	old, ok := st.symbols[key]
	if ok && old.Kind != SYMBOL_VARIABLE {
		err = &ErrDuplicate{Name: name, Kind: SYMBOL_VARIABLE, Previous: old.Kind}
		return
	}

	if ok {
		old.Value = value
		old.Provisional = provisional
		return
	}

	st.symbols[key] = &Symbol{Name: name, Kind: SYMBOL_VARIABLE, Value: value, Provisional: provisional}
	return
}

// Lookup finds a symbol by case insensitive name.
func (st *SymbolTable) Lookup(name string) (sym *Symbol, ok bool) {
	sym, ok = st.symbols[internal.Fold(name)]
	return
}

// Len returns the number of symbols.
func (st *SymbolTable) Len() int {
	return len(st.symbols)
}

// Symbols returns every symbol, ordered by folded name.
func (st *SymbolTable) Symbols() (syms []*Symbol) {
	for _, key := range slices.Sorted(maps.Keys(st.symbols)) {
		syms = append(syms, st.symbols[key])
	}
	return
}

// Clone returns a deep copy of the table.
func (st *SymbolTable) Clone() *SymbolTable {
	clone := NewSymbolTable()
	for key, sym := range st.symbols {
		copied := *sym
		clone.symbols[key] = &copied
	}
	return clone
}

func (st *SymbolTable) String() string {
	var lines []string
	for _, sym := range st.Symbols() {
		lines = append(lines, sym.String())
	}
	return strings.Join(lines, "\n")
}
