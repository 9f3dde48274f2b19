package filter

import (
	"fmt"
	"strings"
)

// ParseError reports where and why an expression was rejected.
type ParseError struct {
	// Position is the byte offset of the offending token.
	Position int
	Message  string
}

func (e ParseError) Error() string {
	return fmt.Sprintf("parse error at %d: %s", e.Position, e.Message)
}

type parser struct {
	items []item
	cur   int
}

// Parse parses src into an expression over the run history columns. Errors
// are ParseError values.
func Parse(src []byte) (Expression, error) {
	items, err := tokenize(src)
	if err != nil {
		return nil, err
	}

	p := &parser{items: items}
	expr, err := p.expression()
	if err != nil {
		return nil, err
	}
	if err := p.expect(eol); err != nil {
		return nil, err
	}
	return expr, nil
}

func (p *parser) peek() item { return p.items[p.cur] }

func (p *parser) advance() item {
	it := p.items[p.cur]
	if it.tok != eol {
		p.cur++
	}
	return it
}

func (p *parser) expect(tok Token) error {
	if it := p.peek(); it.tok != tok {
		return p.errorf(it, "expected %s instead of %s", tok, it.tok)
	}
	return nil
}

func (p *parser) errorf(at item, format string, args ...any) error {
	return ParseError{at.pos, fmt.Sprintf(format, args...)}
}

// expression: term ( "or" term )*
func (p *parser) expression() (Expression, error) {
	return p.binary(or, p.term)
}

// term: factor ( "and" factor )*
func (p *parser) term() (Expression, error) {
	return p.binary(and, p.factor)
}

// binary folds operands joined by op to the left.
func (p *parser) binary(op Token, operand func() (Expression, error)) (Expression, error) {
	left, err := operand()
	if err != nil {
		return nil, err
	}
	for p.peek().tok == op {
		p.advance()
		right, err := operand()
		if err != nil {
			return nil, err
		}
		left = &binaryExpression{Left: left, Op: op, Right: right}
	}
	return left, nil
}

// factor: equality | "(" expression ")"
func (p *parser) factor() (Expression, error) {
	if p.peek().tok != lbracket {
		return p.equality()
	}

	p.advance()
	expr, err := p.expression()
	if err != nil {
		return nil, err
	}
	if err := p.expect(rbracket); err != nil {
		return nil, err
	}
	p.advance()
	return expr, nil
}

// equality: IDENTIFIER operator value
func (p *parser) equality() (Expression, error) {
	if err := p.expect(identifier); err != nil {
		return nil, err
	}
	field := p.advance()
	column, found := lookupColumn(field.val)
	if !found {
		return nil, p.errorf(field, "unknown field %q", field.val)
	}

	op := p.advance()
	if !op.tok.isComparison() {
		return nil, p.errorf(op, "expected operator instead of %s", op.tok)
	}

	switch next := p.peek(); {
	case op.tok.isMatch() && next.tok != regexLit:
		return nil, p.errorf(next, "%s expects a regex instead of %s", op.tok, next.tok)
	case !op.tok.isMatch() && next.tok == regexLit:
		return nil, p.errorf(next, "%s does not take a regex, match with ~ or !~", op.tok)
	}

	right, err := p.value()
	if err != nil {
		return nil, err
	}
	return &binaryExpression{
		Left:  &columnExpression{Name: field.val, Column: column},
		Op:    op.tok,
		Right: right,
	}, nil
}

func (p *parser) value() (Expression, error) {
	it := p.advance()
	switch it.tok {
	case stringLit:
		return &stringExpression{Value: it.val}, nil
	case boolean:
		return &booleanExpression{Value: strings.EqualFold(it.val, "true")}, nil
	case number:
		n, err := newNumberExpression(it.pos, it.val)
		if err != nil {
			return nil, err
		}
		return n, nil
	case regexLit:
		r, err := newRegexExpression(it.pos, it.val)
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, p.errorf(it, "expected value instead of %s", it.tok)
	}
}
