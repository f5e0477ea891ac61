package asm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/avrasm/diag"
	"github.com/ezrec/avrasm/internal"
)

type testScope map[string]int64

func (scope testScope) Resolve(name string, strict bool) (value int64, resolved bool, err error) {
	value, resolved = scope[internal.Fold(name)]
	if !resolved && strict {
		err = ErrUndefined(name)
	}
	return
}

func (scope testScope) PC() int64 {
	return 0x100
}

func (scope testScope) Defined(name string) (ok bool) {
	_, ok = scope[internal.Fold(name)]
	return
}

func TestTokenize(t *testing.T) {
	assert := assert.New(t)

	tokens, err := Tokenize("loop: ldi r16, 'a' ; comment")
	assert.NoError(err)
	assert.Equal(6, len(tokens))
	assert.Equal(TOKEN_IDENT, tokens[0].Kind)
	assert.True(tokens[1].Is(":"))
	assert.Equal("r16", tokens[3].Text)
	assert.True(tokens[4].Is(","))
	assert.Equal(TOKEN_NUMBER, tokens[5].Kind)
	assert.Equal(int64('a'), tokens[5].Value)

	tokens, err = Tokenize(`.db "a\tb", $ff, 0x10 // trailing`)
	assert.NoError(err)
	assert.Equal(6, len(tokens))
	assert.Equal(".db", tokens[0].Text)
	assert.Equal(TOKEN_STRING, tokens[1].Kind)
	assert.Equal("a\tb", tokens[1].Str)
	assert.Equal(int64(0xff), tokens[3].Value)
	assert.Equal(int64(0x10), tokens[5].Value)

	tokens, err = Tokenize("a<<=b>>c")
	assert.NoError(err)
	texts := []string{}
	for _, tok := range tokens {
		texts = append(texts, tok.Text)
	}
	assert.Equal([]string{"a", "<<", "=", "b", ">>", "c"}, texts)

	tokens, err = Tokenize("  ldi @0, @12")
	assert.NoError(err)
	assert.Equal("@0", tokens[1].Text)
	assert.Equal("@12", tokens[3].Text)

	tokens, err = Tokenize("")
	assert.NoError(err)
	assert.Equal(0, len(tokens))
}

func TestTokenizeErrors(t *testing.T) {
	assert := assert.New(t)

	table := []struct {
		text string
		err  error
	}{
		{"ldi r16, 99999999999999999999", diag.ErrOperandRange},
		{"ldi r16, 0x", diag.ErrSyntax},
		{"ldi r16, 12ab", diag.ErrSyntax},
		{`.db "open`, diag.ErrSyntax},
		{"ldi r16, 'ab'", diag.ErrSyntax},
		{`.db "\q"`, diag.ErrSyntax},
		{"nop @", diag.ErrSyntax},
		{"nop #", diag.ErrSyntax},
	}

	for _, entry := range table {
		_, err := Tokenize(entry.text)
		assert.True(errors.Is(err, entry.err), "%v: %v", entry.text, err)
	}
}

func TestSplitOperands(t *testing.T) {
	assert := assert.New(t)

	tokens, _ := Tokenize("r16, low(a + (b, c)), 3")
	ops, err := splitOperands(tokens)
	assert.NoError(err)
	assert.Equal(3, len(ops))
	assert.Equal("low ( a + ( b , c ) )", joinTokens(ops[1]))

	tokens, _ = Tokenize("r16, , 3")
	_, err = splitOperands(tokens)
	assert.True(errors.Is(err, diag.ErrSyntax))

	tokens, _ = Tokenize("r16,")
	_, err = splitOperands(tokens)
	assert.True(errors.Is(err, diag.ErrSyntax))

	ops, err = splitOperands(nil)
	assert.NoError(err)
	assert.Equal(0, len(ops))
}

func TestEvaluate(t *testing.T) {
	assert := assert.New(t)

	scope := testScope{"foo": 21, "size": 0x1234}

	table := []struct {
		text  string
		value int64
	}{
		{"1 + 2*3", 7},
		{"(5-2)<<1", 6},
		{"10 / 3", 3},
		{"7 % 4", 3},
		{"-1", -1},
		{"~0", -1},
		{"!5", 0},
		{"!0", 1},
		{"0x10 | 1", 17},
		{"0b101 ^ 1", 4},
		{"6 & 3", 2},
		{"1 == 1 && 2 > 1", 1},
		{"1 != 1 || 2 <= 1", 0},
		{"3 >= 3", 1},
		{"1 < 2 == 1", 1},
		{"foo * 2", 42},
		{"FOO", 21},
		{"pc + 1", 0x101},
		{"'A'", 65},
		{"high(size)", 0x12},
		{"low(size)", 0x34},
		{"byte3(0x123456)", 0x12},
		{"byte4(0x12345678)", 0x12},
		{"lwrd(0x12345678)", 0x5678},
		{"hwrd(0x12345678)", 0x1234},
		{"page(0x3f0000)", 0x3f},
		{"exp2(4)", 16},
		{"log2(1024)", 10},
		{"abs(-5)", 5},
		{"DEFINED(foo)", 1},
		{"defined(bar)", 0},
		{"-8 >> 1", -4},
	}

	for _, entry := range table {
		tokens, err := Tokenize(entry.text)
		if !assert.NoError(err, entry.text) {
			continue
		}
		value, resolved, err := Evaluate(tokens, scope, true)
		assert.NoError(err, entry.text)
		assert.True(resolved, entry.text)
		assert.Equal(entry.value, value, entry.text)
	}
}

func TestEvaluateErrors(t *testing.T) {
	assert := assert.New(t)

	scope := testScope{"foo": 21}

	table := []struct {
		text string
		err  error
	}{
		{"", diag.ErrSyntax},
		{"1 +", diag.ErrSyntax},
		{"(1", diag.ErrSyntax},
		{"1 2", diag.ErrSyntax},
		{"1 / 0", diag.ErrSyntax},
		{"1 % 0", diag.ErrSyntax},
		{"0x7fffffffffffffff + 1", diag.ErrOperandRange},
		{"-0x7fffffffffffffff - 2", diag.ErrOperandRange},
		{"0x4000000000000000 * 2", diag.ErrOperandRange},
		{"1 << 64", diag.ErrOperandRange},
		{"exp2(63)", diag.ErrOperandRange},
		{"log2(0)", diag.ErrOperandRange},
		{"nothing(1)", diag.ErrSyntax},
		{`"ab"`, diag.ErrSyntax},
		{"bar + 1", diag.ErrUnresolvedSymbol},
	}

	for _, entry := range table {
		tokens, err := Tokenize(entry.text)
		if !assert.NoError(err, entry.text) {
			continue
		}
		_, _, err = Evaluate(tokens, scope, true)
		assert.True(errors.Is(err, entry.err), "%v: %v", entry.text, err)
	}
}

func TestEvaluatePlaceholder(t *testing.T) {
	assert := assert.New(t)

	scope := testScope{"foo": 21}

	table := []string{
		"bar + 1",
		"bar / 0",
		"0x7fffffffffffffff + bar + 1",
		"exp2(bar - 1)",
	}

	for _, text := range table {
		tokens, err := Tokenize(text)
		if !assert.NoError(err, text) {
			continue
		}
		_, resolved, err := Evaluate(tokens, scope, false)
		assert.NoError(err, text)
		assert.False(resolved, text)
	}
}
