package filter

import (
	"bytes"
	"strings"
)

// item is one lexed token and its offset in the source.
type item struct {
	pos int
	tok Token
	val string
}

// tokenize splits src into items. The last item is always eol.
func tokenize(src []byte) ([]item, error) {
	var items []item

	i := 0
	for {
		for i < len(src) && isSpace(src[i]) {
			i++
		}
		if i == len(src) {
			return append(items, item{pos: i, tok: eol}), nil
		}

		start := i
		c := src[i]

		switch {
		case isLetter(c):
			for i < len(src) && (isLetter(src[i]) || src[i] == '.') {
				i++
			}
			word := string(src[start:i])
			tok, found := keywords[strings.ToLower(word)]
			if !found {
				tok = identifier
			}
			items = append(items, item{pos: start, tok: tok, val: word})

		case isDigit(c):
			end, err := scanNumber(src, start)
			if err != nil {
				return nil, err
			}
			items = append(items, item{pos: start, tok: number, val: string(src[start:end])})
			i = end

		case c == '\'' || c == '"':
			end := bytes.IndexByte(src[start+1:], c)
			if end < 0 {
				return nil, ParseError{start, "unclosed string"}
			}
			if end == 0 {
				return nil, ParseError{start, "empty string"}
			}
			items = append(items, item{pos: start, tok: stringLit, val: string(src[start+1 : start+1+end])})
			i = start + end + 2

		case c == '/':
			pattern, end, err := scanRegex(src, start)
			if err != nil {
				return nil, err
			}
			items = append(items, item{pos: start, tok: regexLit, val: pattern})
			i = end

		default:
			tok, width := scanSymbol(src[start:])
			if tok == illegal {
				return nil, ParseError{start, "unexpected char"}
			}
			items = append(items, item{pos: start, tok: tok})
			i += width
		}
	}
}

// scanNumber returns the end of the number starting at start, including an
// optional duration unit.
func scanNumber(src []byte, start int) (int, error) {
	i, dots := start, 0
	for i < len(src) && (isDigit(src[i]) || src[i] == '.') {
		if src[i] == '.' {
			dots++
		}
		i++
	}
	if dots > 1 {
		return 0, ParseError{start, "malformed number"}
	}
	for i < len(src) && strings.IndexByte("msh", src[i]) >= 0 {
		i++
	}
	if i < len(src) && isLetter(src[i]) {
		return 0, ParseError{start, "malformed duration unit"}
	}
	return i, nil
}

// scanRegex reads a /pattern/ literal. A slash inside the pattern is written
// as \/.
func scanRegex(src []byte, start int) (string, int, error) {
	var b strings.Builder
	for i := start + 1; i < len(src); i++ {
		switch {
		case src[i] == '/':
			return b.String(), i + 1, nil
		case src[i] == '\\' && i+1 < len(src) && src[i+1] == '/':
			b.WriteByte('/')
			i++
		default:
			b.WriteByte(src[i])
		}
	}
	return "", 0, ParseError{start, "unclosed regex"}
}

func scanSymbol(src []byte) (Token, int) {
	for _, s := range symbols {
		if bytes.HasPrefix(src, []byte(s.text)) {
			return s.tok, len(s.text)
		}
	}
	return illegal, 0
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
