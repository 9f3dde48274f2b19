package filter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

type DurationUnit int

const (
	NoUnit DurationUnit = iota
	Millisecond
	Second
	Minute
	Hour
)

func (u DurationUnit) String() string {
	switch u {
	case Millisecond:
		return "ms"
	case Second:
		return "s"
	case Minute:
		return "m"
	case Hour:
		return "h"
	case NoUnit:
		return ""
	default:
		return "unknown"
	}
}

// milliseconds is the baseline; durations are stored in ms.
func (u DurationUnit) milliseconds() float64 {
	switch u {
	case Second:
		return float64(time.Second / time.Millisecond)
	case Minute:
		return float64(time.Minute / time.Millisecond)
	case Hour:
		return float64(time.Hour / time.Millisecond)
	default:
		return 1
	}
}

// Expression is the abstract syntax tree for any expression.
type Expression interface {
	String() string
	Sql() string
}

// binaryExpression is an expression like "a = b" or "a and b".
type binaryExpression struct {
	Left  Expression
	Op    Token
	Right Expression
}

func (e *binaryExpression) String() string {
	return fmt.Sprintf("(%s %s %s)", e.Left.String(), e.Op.String(), e.Right.String())
}

func (e *binaryExpression) Sql() string {
	switch e.Op {
	case like:
		return fmt.Sprintf("regexp_matches(%s, %s)", e.Left.Sql(), e.Right.Sql())
	case notLike:
		return fmt.Sprintf("NOT regexp_matches(%s, %s)", e.Left.Sql(), e.Right.Sql())
	default:
		return fmt.Sprintf("(%s %s %s)", e.Left.Sql(), e.Op.Sql(), e.Right.Sql())
	}
}

// stringExpression is a literal string like 'health-wait'.
type stringExpression struct {
	Value string
}

func (e *stringExpression) String() string {
	return strconv.Quote(e.Value)
}

func (e *stringExpression) Sql() string {
	return quote(e.Value)
}

// columnExpression is an identifier already resolved to its column.
type columnExpression struct {
	Name   string
	Column string
}

func (c *columnExpression) String() string {
	return c.Name
}

func (c *columnExpression) Sql() string {
	return c.Column
}

// booleanExpression is a boolean literal (true or false).
type booleanExpression struct {
	Value bool
}

func (b *booleanExpression) String() string {
	return strconv.FormatBool(b.Value)
}

func (b *booleanExpression) Sql() string {
	if b.Value {
		return "TRUE"
	}
	return "FALSE"
}

// regexExpression is a regex literal like /pattern/.
type regexExpression struct {
	Pattern string
}

func newRegexExpression(pos int, pattern string) (*regexExpression, error) {
	if _, err := regexp.Compile(pattern); err != nil {
		return nil, ParseError{pos, fmt.Sprintf("invalid regex: %s", err)}
	}
	return &regexExpression{Pattern: pattern}, nil
}

func (r *regexExpression) String() string {
	return fmt.Sprintf("/%s/", r.Pattern)
}

func (r *regexExpression) Sql() string {
	return quote(r.Pattern)
}

// numberExpression is a plain number, or a duration when Unit is set.
type numberExpression struct {
	Value float64
	Unit  DurationUnit
}

func newNumberExpression(pos int, val string) (*numberExpression, error) {
	digits := strings.TrimRight(val, "smh")
	n := &numberExpression{}

	switch val[len(digits):] {
	case "":
		n.Unit = NoUnit
	case "ms":
		n.Unit = Millisecond
	case "s":
		n.Unit = Second
	case "m":
		n.Unit = Minute
	case "h":
		n.Unit = Hour
	default:
		return nil, ParseError{pos, fmt.Sprintf("unknown duration unit in %q", val)}
	}

	v, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return nil, ParseError{pos, fmt.Sprintf("invalid number %q", val)}
	}
	n.Value = v
	return n, nil
}

func (n *numberExpression) String() string {
	return strconv.FormatFloat(n.Value, 'f', -1, 64) + n.Unit.String()
}

func (n *numberExpression) Sql() string {
	return strconv.FormatFloat(n.Value*n.Unit.milliseconds(), 'f', -1, 64)
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
