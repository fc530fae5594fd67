package parser

import "fmt"

// TokenType classifies a lexical token of a boolean query.
type TokenType int

const (
	TokenEnd TokenType = iota
	TokenTerm
	TokenAnd
	TokenOr
	TokenNot
	TokenLParen
	TokenRParen
)

func (t TokenType) String() string {
	switch t {
	case TokenEnd:
		return "end of query"
	case TokenTerm:
		return "term"
	case TokenAnd:
		return "'&&'"
	case TokenOr:
		return "'||'"
	case TokenNot:
		return "'!'"
	case TokenLParen:
		return "'('"
	case TokenRParen:
		return "')'"
	default:
		return fmt.Sprintf("token(%d)", int(t))
	}
}

// Token is one lexeme. Offset is its byte position in the query.
type Token struct {
	Type   TokenType
	Value  string
	Offset int
}

// Lexer splits a query into tokens. A single '&' or '|' that is not part of
// a pair is dropped.
type Lexer struct {
	input string
	pos   int
}

func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

// Next returns the next token, or TokenEnd once the input is exhausted.
func (l *Lexer) Next() Token {
	for {
		for l.pos < len(l.input) && isSpace(l.input[l.pos]) {
			l.pos++
		}
		if l.pos >= len(l.input) {
			return Token{Type: TokenEnd, Offset: len(l.input)}
		}

		start := l.pos
		switch c := l.input[l.pos]; c {
		case '(':
			l.pos++
			return Token{Type: TokenLParen, Value: "(", Offset: start}
		case ')':
			l.pos++
			return Token{Type: TokenRParen, Value: ")", Offset: start}
		case '!':
			l.pos++
			return Token{Type: TokenNot, Value: "!", Offset: start}
		case '&', '|':
			if l.pos+1 < len(l.input) && l.input[l.pos+1] == c {
				l.pos += 2
				if c == '&' {
					return Token{Type: TokenAnd, Value: "&&", Offset: start}
				}
				return Token{Type: TokenOr, Value: "||", Offset: start}
			}
			l.pos++
			continue
		}

		for l.pos < len(l.input) && !isDelimiter(l.input[l.pos]) {
			l.pos++
		}
		return Token{Type: TokenTerm, Value: l.input[start:l.pos], Offset: start}
	}
}

// Tokens lexes the whole query, excluding the final TokenEnd.
func Tokens(query string) []Token {
	l := NewLexer(query)
	var out []Token
	for tok := l.Next(); tok.Type != TokenEnd; tok = l.Next() {
		out = append(out, tok)
	}
	return out
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}

func isDelimiter(c byte) bool {
	switch c {
	case '(', ')', '!', '&', '|':
		return true
	}
	return isSpace(c)
}
