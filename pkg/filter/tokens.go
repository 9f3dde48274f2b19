package filter

type Token int

const (
	illegal Token = iota
	eol
	and
	or
	equal
	notEqual
	less
	lte
	greater
	gte
	like
	notLike
	lbracket
	rbracket
	stringLit
	regexLit
	number
	identifier
	boolean
)

var tokenNames = [...]string{
	illegal:    "illegal",
	eol:        "end of expression",
	and:        "and",
	or:         "or",
	equal:      "=",
	notEqual:   "!=",
	less:       "<",
	lte:        "<=",
	greater:    ">",
	gte:        ">=",
	like:       "~",
	notLike:    "!~",
	lbracket:   "(",
	rbracket:   ")",
	stringLit:  "string",
	regexLit:   "regex",
	number:     "number",
	identifier: "identifier",
	boolean:    "boolean",
}

func (t Token) String() string {
	if t < 0 || int(t) >= len(tokenNames) {
		return "unknown"
	}
	return tokenNames[t]
}

// Sql returns the SQL spelling of a logical or comparison operator.
func (t Token) Sql() string {
	switch t {
	case and:
		return "AND"
	case or:
		return "OR"
	case equal, notEqual, less, lte, greater, gte:
		return t.String()
	default:
		return ""
	}
}

func (t Token) isComparison() bool {
	return t >= equal && t <= notLike
}

func (t Token) isMatch() bool {
	return t == like || t == notLike
}

// symbols maps the operator spellings to their tokens, longest first where
// one is a prefix of another.
var symbols = []struct {
	text string
	tok  Token
}{
	{"!=", notEqual},
	{"!~", notLike},
	{"<=", lte},
	{">=", gte},
	{"=", equal},
	{"<", less},
	{">", greater},
	{"~", like},
	{"(", lbracket},
	{")", rbracket},
}

var keywords = map[string]Token{
	"and":   and,
	"or":    or,
	"true":  boolean,
	"false": boolean,
}
