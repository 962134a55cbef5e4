// Package condition implements the small rule language used in form schemas
// for declarative visibility, required, disabled and validation rules.
//
// A rule source is a list of clauses separated by semicolons:
//
//	[_value!=null&&_value!='']:true;[_required=true]:false
//
// Each clause holds a condition in brackets and a return value after the
// colon. Atoms inside a condition are joined with && or , (conjunction); ||
// starts a new alternative group. The first clause with a matching group
// determines the result.
package condition

import (
	"strconv"
	"strings"
)

// Operator is a comparison operator of an atom.
type Operator string

const (
	OpEqual        Operator = "="
	OpNotEqual     Operator = "!="
	OpGreater      Operator = ">"
	OpLess         Operator = "<"
	OpGreaterEqual Operator = ">="
	OpLessEqual    Operator = "<="
)

// Kind is the type of a right-hand literal.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindDate
)

// Pseudo-variables available on the left side of an atom.
const (
	VarValue    = "_value"
	VarRequired = "_required"
	VarDisabled = "_disabled"
)

// Literal is the parsed right-hand side of an atom.
type Literal struct {
	Kind   Kind
	Raw    string
	Bool   bool
	Number float64
	String string
}

// Atom is a single comparison: Left Op Right.
type Atom struct {
	Left  string
	Op    Operator
	Right Literal
	// IsDate marks atoms whose sides are compared as dates.
	IsDate bool
	// Invalid atoms could not be parsed and always evaluate to false.
	Invalid bool
}

// Rule is one clause of a condition source: a disjunction of conjunctions
// and the value returned when it matches.
type Rule struct {
	Groups [][]Atom
	Return string
}

// Parse parses a condition source into rules. Parse never fails; malformed
// atoms are kept and marked invalid.
func Parse(source string) []Rule {
	var rules []Rule
	for _, clause := range splitTop(source, ";") {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			continue
		}
		rules = append(rules, parseClause(clause))
	}
	return rules
}

func parseClause(clause string) Rule {
	cond, ret := clause, "true"
	if strings.HasPrefix(clause, "[") {
		if end := closingBracket(clause); end > 0 {
			cond = clause[1:end]
			rest := strings.TrimSpace(clause[end+1:])
			if strings.HasPrefix(rest, ":") {
				ret = unquote(strings.TrimSpace(rest[1:]))
			} else if rest != "" {
				ret = unquote(rest)
			}
		} else {
			cond = clause[1:]
		}
	}

	var rule Rule
	rule.Return = ret
	for _, alt := range splitTop(cond, "||") {
		var group []Atom
		for _, src := range splitTop(alt, "&&", ",") {
			if strings.TrimSpace(src) == "" {
				continue
			}
			group = append(group, parseAtom(src))
		}
		if len(group) == 0 {
			group = []Atom{{Invalid: true}}
		}
		rule.Groups = append(rule.Groups, group)
	}
	return rule
}

func parseAtom(src string) Atom {
	idx, op := findOperator(src)
	if idx < 0 {
		return Atom{Left: strings.TrimSpace(src), Invalid: true}
	}
	left := unquote(strings.TrimSpace(src[:idx]))
	if left == "" {
		return Atom{Op: op, Invalid: true}
	}
	width := len(op)
	if op == OpEqual && strings.HasPrefix(src[idx:], "==") {
		width = 2
	}
	right := parseLiteral(strings.TrimSpace(src[idx+width:]))
	return Atom{
		Left:   left,
		Op:     op,
		Right:  right,
		IsDate: right.Kind == KindDate,
	}
}

// findOperator returns the byte offset and operator of the first comparison
// operator outside quotes, or -1.
func findOperator(s string) (int, Operator) {
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
			continue
		}
		var next byte
		if i+1 < len(s) {
			next = s[i+1]
		}
		switch c {
		case '\'', '"':
			quote = c
		case '!':
			if next == '=' {
				return i, OpNotEqual
			}
			return -1, ""
		case '>':
			if next == '=' {
				return i, OpGreaterEqual
			}
			return i, OpGreater
		case '<':
			if next == '=' {
				return i, OpLessEqual
			}
			return i, OpLess
		case '=':
			return i, OpEqual
		}
	}
	return -1, ""
}

func parseLiteral(raw string) Literal {
	lit := Literal{Raw: raw}
	lower := strings.ToLower(raw)
	switch {
	case lower == "null" || lower == "undefined":
		lit.Kind = KindNull
	case lower == "true" || lower == "false":
		lit.Kind = KindBool
		lit.Bool = lower == "true"
	case isQuoted(raw):
		lit.Kind = KindString
		lit.String = unquote(raw)
	case strings.HasPrefix(lower, "date(") && strings.HasSuffix(raw, ")"):
		lit.Kind = KindDate
		lit.String = unquote(strings.TrimSpace(raw[5 : len(raw)-1]))
	default:
		if n, err := strconv.ParseFloat(raw, 64); err == nil && isFinite(n) {
			lit.Kind = KindNumber
			lit.Number = n
		} else {
			lit.Kind = KindString
			lit.String = raw
		}
	}
	return lit
}

// splitTop splits s on any of seps, ignoring separators inside quotes or
// brackets.
func splitTop(s string, seps ...string) []string {
	var parts []string
	var quote byte
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
			continue
		case '[', '(':
			depth++
			continue
		case ']', ')':
			if depth > 0 {
				depth--
			}
			continue
		}
		if depth > 0 {
			continue
		}
		for _, sep := range seps {
			if strings.HasPrefix(s[i:], sep) {
				parts = append(parts, s[start:i])
				i += len(sep) - 1
				start = i + 1
				break
			}
		}
	}
	return append(parts, s[start:])
}

// closingBracket returns the index of the bracket closing s[0], or -1.
func closingBracket(s string) int {
	var quote byte
	depth := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func isQuoted(s string) bool {
	return len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0]
}

func unquote(s string) string {
	if !isQuoted(s) {
		return s
	}
	inner := s[1 : len(s)-1]
	if !strings.Contains(inner, `\`) {
		return inner
	}
	var b strings.Builder
	for i := 0; i < len(inner); i++ {
		if inner[i] == '\\' && i+1 < len(inner) {
			i++
		}
		b.WriteByte(inner[i])
	}
	return b.String()
}
