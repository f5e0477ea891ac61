package asm

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ezrec/avrasm/diag"
)

// TokenKind is the lexical class of a token.
type TokenKind int

const (
	TOKEN_IDENT    = TokenKind(0) // identifier
	TOKEN_NUMBER   = TokenKind(1) // number
	TOKEN_STRING   = TokenKind(2) // string
	TOKEN_OPERATOR = TokenKind(3) // operator
)

var tokenKindName = [...]string{"identifier", "number", "string", "operator"}

func (kind TokenKind) String() string {
	if int(kind) < len(tokenKindName) {
		return tokenKindName[kind]
	}
	return fmt.Sprintf("TokenKind(%d)", int(kind))
}

// Token is a single lexical element of a source line.
type Token struct {
	Kind  TokenKind
	Text  string // Source spelling.
	Value int64  // Value of a number or character literal.
	Str   string // Decoded contents of a string literal.
}

func (tok Token) String() string {
	return tok.Text
}

// Is returns true if the token is the given operator.
func (tok Token) Is(op string) bool {
	return tok.Kind == TOKEN_OPERATOR && tok.Text == op
}

// operators lists the multi-character operators first, so that they match greedily.
var operators = []string{
	"<<", ">>", "<=", ">=", "==", "!=", "&&", "||",
	"+", "-", "*", "/", "%", "&", "|", "^", "~", "!", "<", ">", "(", ")", ",", "=", ":",
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '.' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// parseNumber converts a numeric literal, reporting values outside of the
// 64-bit working range.
func parseNumber(text string) (value int64, err error) {
	digits, base := text, 0
	if strings.HasPrefix(text, "$") {
		digits, base = text[1:], 16
	}

	value, err = strconv.ParseInt(digits, base, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			err = diag.Errorf(diag.ErrOperandRange, "number %v overflows 64 bits", text)
		} else {
			err = diag.Errorf(diag.ErrSyntax, "malformed number %v", text)
		}
	}
	return
}

// unescape decodes one, possibly escaped, character at the start of text.
func unescape(text string) (c byte, n int, err error) {
	if len(text) == 0 {
		err = diag.Errorf(diag.ErrSyntax, "unterminated literal")
		return
	}
	if text[0] != '\\' {
		c, n = text[0], 1
		return
	}
	if len(text) < 2 {
		err = diag.Errorf(diag.ErrSyntax, "unterminated escape")
		return
	}
	n = 2
	switch text[1] {
	case 'n':
		c = '\n'
	case 'r':
		c = '\r'
	case 't':
		c = '\t'
	case '0':
		c = 0
	case 'e':
		c = 0x1b
	case '\\', '\'', '"':
		c = text[1]
	default:
		err = diag.Errorf(diag.ErrSyntax, "unknown escape \\%c", text[1])
	}
	return
}

// Tokenize splits a source line into tokens. Comments start with `;` or `//`.
func Tokenize(text string) (tokens []Token, err error) {
	pos := 0
	for pos < len(text) {
		c := text[pos]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\f':
			pos++
		case c == ';' || strings.HasPrefix(text[pos:], "//"):
			return
		case isDigit(c) || (c == '$' && pos+1 < len(text) && isHexDigit(text[pos+1])):
			end := pos + 1
			for end < len(text) && isIdentChar(text[end]) {
				end++
			}
			word := text[pos:end]
			var value int64
			value, err = parseNumber(word)
			if err != nil {
				return
			}
			tokens = append(tokens, Token{Kind: TOKEN_NUMBER, Text: word, Value: value})
			pos = end
		case c == '@':
			end := pos + 1
			for end < len(text) && isDigit(text[end]) {
				end++
			}
			if end == pos+1 {
				err = diag.Errorf(diag.ErrSyntax, "@ must be followed by an argument number")
				return
			}
			tokens = append(tokens, Token{Kind: TOKEN_IDENT, Text: text[pos:end]})
			pos = end
		case isIdentStart(c):
			end := pos + 1
			for end < len(text) && isIdentChar(text[end]) {
				end++
			}
			tokens = append(tokens, Token{Kind: TOKEN_IDENT, Text: text[pos:end]})
			pos = end
		case c == '\'':
			var ch byte
			var n int
			ch, n, err = unescape(text[pos+1:])
			if err != nil {
				return
			}
			end := pos + 1 + n
			if end >= len(text) || text[end] != '\'' {
				err = diag.Errorf(diag.ErrSyntax, "unterminated character literal")
				return
			}
			tokens = append(tokens, Token{Kind: TOKEN_NUMBER, Text: text[pos : end+1], Value: int64(ch)})
			pos = end + 1
		case c == '"':
			var str []byte
			end := pos + 1
			for {
				if end >= len(text) {
					err = diag.Errorf(diag.ErrSyntax, "unterminated string")
					return
				}
				if text[end] == '"' {
					break
				}
				var ch byte
				var n int
				ch, n, err = unescape(text[end:])
				if err != nil {
					return
				}
				str = append(str, ch)
				end += n
			}
			tokens = append(tokens, Token{Kind: TOKEN_STRING, Text: text[pos : end+1], Str: string(str)})
			pos = end + 1
		default:
			matched := false
			for _, op := range operators {
				if strings.HasPrefix(text[pos:], op) {
					tokens = append(tokens, Token{Kind: TOKEN_OPERATOR, Text: op})
					pos += len(op)
					matched = true
					break
				}
			}
			if !matched {
				err = diag.Errorf(diag.ErrSyntax, "unexpected character %q", c)
				return
			}
		}
	}

	return
}

// splitOperands splits tokens on top level commas.
func splitOperands(tokens []Token) (operands [][]Token, err error) {
	if len(tokens) == 0 {
		return
	}

	depth := 0
	start := 0
	for n, tok := range tokens {
		switch {
		case tok.Is("("):
			depth++
		case tok.Is(")"):
			depth--
		case tok.Is(",") && depth == 0:
			if n == start {
				err = diag.Errorf(diag.ErrSyntax, "empty operand")
				return
			}
			operands = append(operands, tokens[start:n])
			start = n + 1
		}
	}

	if start == len(tokens) {
		err = diag.Errorf(diag.ErrSyntax, "empty operand")
		return
	}
	operands = append(operands, tokens[start:])

	return
}

// joinTokens rebuilds a canonical text for a token sequence.
func joinTokens(tokens []Token) string {
	words := make([]string, len(tokens))
	for n, tok := range tokens {
		words[n] = tok.Text
	}
	return strings.Join(words, " ")
}
