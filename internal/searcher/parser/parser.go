// Package parser turns a boolean query string into an expression tree.
//
// Grammar:
//
//	expression := term (("&&" | "||") term)*
//	term       := "!" term | factor
//	factor     := "(" expression ")" | TERM
//
// "&&" and "||" share one precedence level and associate to the left, so
// "a || b && c" means "(a || b) && c". Anything after a complete expression
// is ignored.
package parser

import (
	"fmt"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/boolean-search/pkg/errors"
)

// SyntaxError reports where a query stopped making sense.
type SyntaxError struct {
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at offset %d: %s", e.Offset, e.Msg)
}

func (e *SyntaxError) Unwrap() error {
	return apperrors.ErrSyntax
}

// IsBoolean reports whether query uses any operator or parenthesis. Queries
// that do not are answered as a single-term lookup.
func IsBoolean(query string) bool {
	return strings.ContainsAny(query, "&|!()")
}

type parser struct {
	lex *Lexer
	cur Token
}

// Parse builds the expression tree of query.
func Parse(query string) (Node, error) {
	p := &parser{lex: NewLexer(query)}
	p.advance()
	return p.expression()
}

func (p *parser) advance() {
	p.cur = p.lex.Next()
}

func (p *parser) expression() (Node, error) {
	left, err := p.term()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == TokenAnd || p.cur.Type == TokenOr {
		op := p.cur.Type
		p.advance()
		right, err := p.term()
		if err != nil {
			return nil, err
		}
		if op == TokenAnd {
			left = And{Left: left, Right: right}
		} else {
			left = Or{Left: left, Right: right}
		}
	}
	return left, nil
}

func (p *parser) term() (Node, error) {
	if p.cur.Type == TokenNot {
		p.advance()
		operand, err := p.term()
		if err != nil {
			return nil, err
		}
		return Not{Operand: operand}, nil
	}
	return p.factor()
}

func (p *parser) factor() (Node, error) {
	switch p.cur.Type {
	case TokenLParen:
		p.advance()
		n, err := p.expression()
		if err != nil {
			return nil, err
		}
		if p.cur.Type != TokenRParen {
			return nil, &SyntaxError{Offset: p.cur.Offset, Msg: fmt.Sprintf("expected ')', found %s", p.cur.Type)}
		}
		p.advance()
		return n, nil
	case TokenTerm:
		n := Term{Value: p.cur.Value}
		p.advance()
		return n, nil
	default:
		return nil, &SyntaxError{Offset: p.cur.Offset, Msg: fmt.Sprintf("unexpected %s", p.cur.Type)}
	}
}
