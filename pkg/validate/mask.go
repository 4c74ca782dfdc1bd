package validate

import "strings"

// maskSource blanks out every character that is part of a string
// literal, a regex literal or a comment, replacing it with a space, so
// that the rule table only ever matches live code. Newlines are
// preserved to keep reported line numbers accurate.
//
// Template literals are blanked too, except for `${...}` interpolation
// spans, which are code and are scanned as such (including nested
// template literals inside an interpolation).
//
// Regex literals are recognized by position: a `/` is a regex start
// when the preceding significant code character cannot end an operand
// (so `a / b` stays division). A `/` after an identifier is always
// read as division, which misses `return /re/`; acceptable for a
// defense-in-depth pass, where a missed literal only blanks less.
func maskSource(src string) string {
	const (
		stCode = iota
		stLineComment
		stBlockComment
		stSingle
		stDouble
		stTemplate
		stRegex
	)

	out := []byte(src)
	blank := func(i int) {
		if out[i] != '\n' {
			out[i] = ' '
		}
	}

	st := stCode
	// Brace depths of open `${` interpolation frames. Non-empty means
	// the innermost code frame belongs to a template literal.
	var interp []int
	// Last significant code byte; 0 at start of input.
	var prev byte
	// Inside a regex character class, `/` does not terminate.
	inClass := false

	i := 0
	for i < len(src) {
		c := src[i]
		var next byte
		if i+1 < len(src) {
			next = src[i+1]
		}

		switch st {
		case stCode:
			switch {
			case c == '/' && next == '/':
				blank(i)
				blank(i + 1)
				st = stLineComment
				i += 2
			case c == '/' && next == '*':
				blank(i)
				blank(i + 1)
				st = stBlockComment
				i += 2
			case c == '/' && regexStart(prev):
				blank(i)
				st = stRegex
				inClass = false
				i++
			case c == '\'':
				blank(i)
				st = stSingle
				i++
			case c == '"':
				blank(i)
				st = stDouble
				i++
			case c == '`':
				blank(i)
				st = stTemplate
				i++
			case c == '{':
				if n := len(interp); n > 0 {
					interp[n-1]++
				}
				prev = c
				i++
			case c == '}':
				if n := len(interp); n > 0 {
					if interp[n-1] == 0 {
						// End of a ${...} span: back inside the literal.
						interp = interp[:n-1]
						blank(i)
						st = stTemplate
					} else {
						interp[n-1]--
					}
				}
				prev = c
				i++
			default:
				if c != ' ' && c != '\t' && c != '\n' && c != '\r' {
					prev = c
				}
				i++
			}

		case stLineComment:
			if c == '\n' {
				st = stCode
			} else {
				blank(i)
			}
			i++

		case stBlockComment:
			if c == '*' && next == '/' {
				blank(i)
				blank(i + 1)
				st = stCode
				i += 2
			} else {
				blank(i)
				i++
			}

		case stSingle, stDouble:
			quote := byte('\'')
			if st == stDouble {
				quote = '"'
			}
			switch {
			case c == '\\' && i+1 < len(src):
				blank(i)
				blank(i + 1)
				i += 2
			case c == quote:
				blank(i)
				st = stCode
				prev = '"' // an operand: a following / is division
				i++
			case c == '\n':
				// Unterminated literal; treat the rest as code again.
				st = stCode
				i++
			default:
				blank(i)
				i++
			}

		case stTemplate:
			switch {
			case c == '\\' && i+1 < len(src):
				blank(i)
				blank(i + 1)
				i += 2
			case c == '`':
				blank(i)
				st = stCode
				prev = '"'
				i++
			case c == '$' && next == '{':
				blank(i)
				blank(i + 1)
				interp = append(interp, 0)
				st = stCode
				prev = '('
				i += 2
			default:
				blank(i)
				i++
			}

		case stRegex:
			switch {
			case c == '\\' && i+1 < len(src):
				blank(i)
				blank(i + 1)
				i += 2
			case c == '[':
				inClass = true
				blank(i)
				i++
			case c == ']':
				inClass = false
				blank(i)
				i++
			case c == '/' && !inClass:
				blank(i)
				st = stCode
				prev = '"'
				i++
			case c == '\n':
				// Regex literals cannot span lines; unterminated means
				// this was division after all.
				st = stCode
				i++
			default:
				blank(i)
				i++
			}
		}
	}

	return string(out)
}

// regexStart reports whether a `/` seen after prev begins a regex
// literal rather than a division. True at the start of input and after
// any character that cannot close an operand.
func regexStart(prev byte) bool {
	if prev == 0 {
		return true
	}
	return strings.IndexByte("(=,:[!&|?{};+-*%~^<>", prev) >= 0
}
