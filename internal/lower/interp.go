package lower

import (
	"fmt"
	"strings"
)

// Interpolator resolves the two substitution forms an LLVM-body snippet can
// contain: `$name` (a bare static binding, pasted as its printed form —
// type name, integer/float literal, identifier, or qualified name) and
// `${expr}` (an arbitrary static expression, evaluated then pasted the same
// way). Concrete evaluation is supplied by the caller; this package only
// owns the tokenizer (spec.md §9, "a small, well-defined sublanguage...
// implement with a two-state tokenizer").
type Interpolator interface {
	ResolveName(name string) (string, error)
	ResolveExpr(expr string) (string, error)
}

// Interpolate expands every `$name` and `${expr}` occurrence in text using
// interp, returning the assembled source ready for the backend's textual
// IR parser. A literal `$$` escapes to a single `$`.
func Interpolate(text string, interp Interpolator) (string, error) {
	var out strings.Builder
	i := 0
	for i < len(text) {
		c := text[i]
		if c != '$' {
			out.WriteByte(c)
			i++
			continue
		}
		if i+1 >= len(text) {
			return "", fmt.Errorf("lower: dangling '$' at end of llvm-body snippet")
		}
		switch next := text[i+1]; {
		case next == '$':
			out.WriteByte('$')
			i += 2
		case next == '{':
			end := matchBrace(text, i+2)
			if end < 0 {
				return "", fmt.Errorf("lower: unterminated '${' starting at offset %d", i)
			}
			expr := text[i+2 : end]
			resolved, err := interp.ResolveExpr(expr)
			if err != nil {
				return "", err
			}
			out.WriteString(resolved)
			i = end + 1
		case isIdentStart(next):
			end := i + 1
			for end < len(text) && isIdentCont(text[end]) {
				end++
			}
			name := text[i+1 : end]
			resolved, err := interp.ResolveName(name)
			if err != nil {
				return "", err
			}
			out.WriteString(resolved)
			i = end
		default:
			return "", fmt.Errorf("lower: '$' not followed by identifier, '{', or '$' at offset %d", i)
		}
	}
	return out.String(), nil
}

// matchBrace returns the index of the '}' matching the '{' implicitly
// opened at start-1, accounting for nested braces (an embedded expression
// can itself contain a brace-delimited sub-block); -1 if unterminated.
func matchBrace(text string, start int) int {
	depth := 1
	for i := start; i < len(text); i++ {
		switch text[i] {
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

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentCont(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9') || c == '.'
}
