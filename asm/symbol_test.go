package asm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/avrasm/diag"
)

func TestSymbolTable(t *testing.T) {
	assert := assert.New(t)

	st := NewSymbolTable()
	assert.Equal(0, st.Len())

	assert.NoError(st.Define(Symbol{Name: "Loop", Kind: SYMBOL_LABEL, Value: 4, Segment: SEGMENT_CODE}))
	assert.NoError(st.Define(Symbol{Name: "SIZE", Kind: SYMBOL_CONSTANT, Value: 16}))

	sym, ok := st.Lookup("LOOP")
	assert.True(ok)
	assert.Equal("Loop", sym.Name)
	assert.Equal(int64(4), sym.Value)

	// Restating a constant with the same value is allowed.
	assert.NoError(st.Define(Symbol{Name: "size", Kind: SYMBOL_CONSTANT, Value: 16}))

	err := st.Define(Symbol{Name: "size", Kind: SYMBOL_CONSTANT, Value: 17})
	assert.True(errors.Is(err, diag.ErrDuplicateSymbol))

	err = st.Define(Symbol{Name: "loop", Kind: SYMBOL_LABEL, Value: 4})
	assert.True(errors.Is(err, diag.ErrDuplicateSymbol))

	err = st.Define(Symbol{Name: "loop", Kind: SYMBOL_CONSTANT, Value: 4})
	var dup *ErrDuplicate
	assert.True(errors.As(err, &dup))
	assert.Equal(SYMBOL_LABEL, dup.Previous)

	assert.Equal(2, st.Len())
}

func TestSymbolTable_Set(t *testing.T) {
	assert := assert.New(t)

	st := NewSymbolTable()
	assert.NoError(st.Set("n", 1, false))
	assert.NoError(st.Set("N", 2, true))

	sym, ok := st.Lookup("n")
	assert.True(ok)
	assert.Equal(SYMBOL_VARIABLE, sym.Kind)
	assert.Equal(int64(2), sym.Value)
	assert.True(sym.Provisional)

	assert.NoError(st.Define(Symbol{Name: "n", Kind: SYMBOL_VARIABLE, Value: 3}))
	assert.Equal(int64(3), sym.Value)

	assert.NoError(st.Define(Symbol{Name: "k", Kind: SYMBOL_CONSTANT, Value: 1}))
	err := st.Set("k", 2, false)
	assert.True(errors.Is(err, diag.ErrDuplicateSymbol))

	err = st.Define(Symbol{Name: "n", Kind: SYMBOL_LABEL})
	assert.True(errors.Is(err, diag.ErrDuplicateSymbol))
}

func TestSymbolTable_Clone(t *testing.T) {
	assert := assert.New(t)

	st := NewSymbolTable()
	assert.NoError(st.Define(Symbol{Name: "b", Kind: SYMBOL_LABEL, Value: 2}))
	assert.NoError(st.Define(Symbol{Name: "A", Kind: SYMBOL_CONSTANT, Value: 1}))
	assert.NoError(st.Set("c", 3, false))

	clone := st.Clone()
	assert.NoError(st.Set("c", 4, false))

	sym, ok := clone.Lookup("c")
	assert.True(ok)
	assert.Equal(int64(3), sym.Value)

	names := []string{}
	for _, sym := range clone.Symbols() {
		names = append(names, sym.Name)
	}
	assert.Equal([]string{"A", "b", "c"}, names)

	assert.Equal("constant A = 0x1\nlabel b = 0x2 (cseg)\nvariable c = 0x3", clone.String())
}
