//
// Copyright (c) 2024 Markku Rossi
//
// All rights reserved.
//

package library

import (
	"unicode"

	"github.com/markkurossi/techmap/truth"
	"github.com/pkg/errors"
)

// ErrSyntax is returned for malformed cell function expressions.
var ErrSyntax = errors.New("syntax error")

type tokenType int

const (
	tIdent tokenType = iota
	tConst0
	tConst1
	tNot
	tPostNot
	tAnd
	tOr
	tXor
	tLParen
	tRParen
	tEOF
)

type token struct {
	t    tokenType
	text string
	pos  int
}

func tokenize(input string) ([]token, error) {
	var tokens []token
	runes := []rune(input)

	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '!' || r == '~':
			tokens = append(tokens, token{t: tNot, pos: i})
			i++
		case r == '\'':
			tokens = append(tokens, token{t: tPostNot, pos: i})
			i++
		case r == '*' || r == '&':
			tokens = append(tokens, token{t: tAnd, pos: i})
			i++
		case r == '+' || r == '|':
			tokens = append(tokens, token{t: tOr, pos: i})
			i++
		case r == '^':
			tokens = append(tokens, token{t: tXor, pos: i})
			i++
		case r == '(':
			tokens = append(tokens, token{t: tLParen, pos: i})
			i++
		case r == ')':
			tokens = append(tokens, token{t: tRParen, pos: i})
			i++
		case r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r):
			start := i
			for i < len(runes) && (runes[i] == '_' || runes[i] == '[' ||
				runes[i] == ']' || unicode.IsLetter(runes[i]) ||
				unicode.IsDigit(runes[i])) {
				i++
			}
			text := string(runes[start:i])
			switch text {
			case "0", "CONST0":
				tokens = append(tokens, token{t: tConst0, text: text, pos: start})
			case "1", "CONST1":
				tokens = append(tokens, token{t: tConst1, text: text, pos: start})
			default:
				if unicode.IsDigit(runes[start]) {
					return nil, errors.Wrapf(ErrSyntax, "%d: invalid identifier '%s'",
						start, text)
				}
				tokens = append(tokens, token{t: tIdent, text: text, pos: start})
			}
		default:
			return nil, errors.Wrapf(ErrSyntax, "%d: unexpected character '%c'", i, r)
		}
	}
	tokens = append(tokens, token{t: tEOF, pos: len(runes)})
	return tokens, nil
}

type exprParser struct {
	tokens []token
	pos    int
	vars   map[string]int
	n      int
}

// ParseExpr parses the Boolean expression and returns its truth
// table. The variables are numbered in the order of the names
// argument; if names is empty, they are numbered in the order of
// their first occurrence. The function returns the variable names in
// their numbering order.
//
// The syntax follows the genlib conventions: '!' and a postfix apostrophe
// for negation, '*' and '&' for AND, '^' for XOR, and '+' and '|' for
// OR, in the increasing order of precedence.
func ParseExpr(input string, names []string) (truth.Table, []string, error) {
	tokens, err := tokenize(input)
	if err != nil {
		return truth.Table{}, nil, err
	}
	vars := make(map[string]int)
	order := append([]string(nil), names...)
	for i, name := range names {
		vars[name] = i
	}
	for _, t := range tokens {
		if t.t != tIdent {
			continue
		}
		if _, ok := vars[t.text]; ok {
			continue
		}
		if len(names) > 0 {
			return truth.Table{}, nil,
				errors.Wrapf(ErrSyntax, "%d: unknown pin '%s'", t.pos, t.text)
		}
		vars[t.text] = len(order)
		order = append(order, t.text)
	}
	if len(order) > truth.MaxVars {
		return truth.Table{}, nil,
			errors.Wrapf(ErrSyntax, "too many variables: %d",
				len(order))
	}
	p := &exprParser{
		tokens: tokens,
		vars:   vars,
		n:      len(order),
	}
	result, err := p.parseOr()
	if err != nil {
		return truth.Table{}, nil, err
	}
	if p.peek().t != tEOF {
		return truth.Table{}, nil,
			errors.Wrapf(ErrSyntax, "%d: unexpected input", p.peek().pos)
	}
	return result, order, nil
}

func (p *exprParser) peek() token {
	return p.tokens[p.pos]
}

func (p *exprParser) next() token {
	t := p.tokens[p.pos]
	if t.t != tEOF {
		p.pos++
	}
	return t
}

func (p *exprParser) parseOr() (truth.Table, error) {
	left, err := p.parseXor()
	if err != nil {
		return left, err
	}
	for p.peek().t == tOr {
		p.next()
		right, err := p.parseXor()
		if err != nil {
			return left, err
		}
		left = left.Or(right)
	}
	return left, nil
}

func (p *exprParser) parseXor() (truth.Table, error) {
	left, err := p.parseAnd()
	if err != nil {
		return left, err
	}
	for p.peek().t == tXor {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return left, err
		}
		left = left.Xor(right)
	}
	return left, nil
}

func (p *exprParser) parseAnd() (truth.Table, error) {
	left, err := p.parseUnary()
	if err != nil {
		return left, err
	}
	for {
		switch p.peek().t {
		case tAnd:
			p.next()
		case tIdent, tNot, tLParen, tConst0, tConst1:
			// Juxtaposition.
		default:
			return left, nil
		}
		right, err := p.parseUnary()
		if err != nil {
			return left, err
		}
		left = left.And(right)
	}
}

func (p *exprParser) parseUnary() (truth.Table, error) {
	if p.peek().t == tNot {
		p.next()
		t, err := p.parseUnary()
		if err != nil {
			return t, err
		}
		return t.Not(), nil
	}
	t, err := p.parsePrimary()
	if err != nil {
		return t, err
	}
	for p.peek().t == tPostNot {
		p.next()
		t = t.Not()
	}
	return t, nil
}

func (p *exprParser) parsePrimary() (truth.Table, error) {
	t := p.next()
	switch t.t {
	case tIdent:
		return truth.Var(p.vars[t.text], p.n), nil
	case tConst0:
		return truth.Const(false, p.n), nil
	case tConst1:
		return truth.Const(true, p.n), nil
	case tLParen:
		result, err := p.parseOr()
		if err != nil {
			return result, err
		}
		if p.next().t != tRParen {
			return result, errors.Wrapf(ErrSyntax, "%d: expected ')'", t.pos)
		}
		return result, nil
	default:
		return truth.Table{}, errors.Wrapf(ErrSyntax, "%d: unexpected token", t.pos)
	}
}
