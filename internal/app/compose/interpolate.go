package compose

import (
	"fmt"
	"strings"
)

// LookupFunc resolves a variable; ok is false when the variable is unset.
type LookupFunc func(name string) (value string, ok bool)

// Interpolate substitutes $VAR, ${VAR}, ${VAR:-default}, ${VAR-default}, ${VAR:?err}, ${VAR?err},
// ${VAR:+alt} and ${VAR+alt} in s. "$$" is a literal "$".
func Interpolate(s string, lookup LookupFunc) (string, error) {
	if !strings.Contains(s, "$") {
		return s, nil
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '$' || i+1 == len(s) {
			b.WriteByte(c)
			continue
		}
		next := s[i+1]
		switch {
		case next == '$':
			b.WriteByte('$')
			i++
		case next == '{':
			end := closingBrace(s, i+2)
			if end < 0 {
				return "", fmt.Errorf("unterminated variable in %q", s)
			}
			v, err := expand(s[i+2:end], lookup)
			if err != nil {
				return "", err
			}
			b.WriteString(v)
			i = end
		case isNameStart(next):
			j := i + 1
			for j < len(s) && isNameChar(s[j]) {
				j++
			}
			v, _ := lookup(s[i+1 : j])
			b.WriteString(v)
			i = j - 1
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), nil
}

// closingBrace finds the brace closing the expression starting at from, honouring nested ${...}.
func closingBrace(s string, from int) int {
	depth := 1
	for i := from; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func expand(expr string, lookup LookupFunc) (string, error) {
	n := 0
	for n < len(expr) && isNameChar(expr[n]) {
		n++
	}
	name, rest := expr[:n], expr[n:]
	if name == "" || !isNameStart(name[0]) {
		return "", fmt.Errorf("invalid variable name in ${%s}", expr)
	}
	value, set := lookup(name)
	if rest == "" {
		return value, nil
	}
	op, arg := rest[:1], rest[1:]
	colon := false
	if op == ":" && len(rest) > 1 {
		colon = true
		op, arg = rest[1:2], rest[2:]
	}
	// with a colon, an empty value counts as unset
	present := set && (!colon || value != "")
	switch op {
	case "-":
		if present {
			return value, nil
		}
		return Interpolate(arg, lookup)
	case "?":
		if present {
			return value, nil
		}
		msg, err := Interpolate(arg, lookup)
		if err != nil {
			return "", err
		}
		if msg == "" {
			msg = "is not set"
		}
		return "", fmt.Errorf("required variable %s: %s", name, msg)
	case "+":
		if present {
			return Interpolate(arg, lookup)
		}
		return "", nil
	}
	return "", fmt.Errorf("invalid substitution ${%s}", expr)
}

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isNameChar(c byte) bool {
	return isNameStart(c) || (c >= '0' && c <= '9')
}
