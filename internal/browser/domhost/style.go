package domhost

import "strings"

// styleDecl is one property of an inline style attribute.
type styleDecl struct {
	prop  string
	value string
}

// parseInlineStyle scans a style attribute into declarations. Quoted values
// and url(...) groups may contain separators, so the scan is character-wise
// rather than a split.
func parseInlineStyle(s string) []styleDecl {
	var (
		decls []styleDecl
		start int
	)
	flush := func(end int) {
		chunk := s[start:end]
		start = end + 1
		prop, value, ok := strings.Cut(chunk, ":")
		if !ok {
			return
		}
		prop = strings.ToLower(strings.TrimSpace(prop))
		value = strings.ToLower(strings.TrimSpace(value))
		if prop == "" || value == "" {
			return
		}
		decls = append(decls, styleDecl{prop: prop, value: value})
	}

	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\'', '"':
			i = skipQuoted(s, i)
		case '(':
			i = skipGroup(s, i)
		case ';':
			flush(i)
		}
	}
	flush(len(s))
	return decls
}

// skipQuoted returns the index of the closing quote, honoring backslash
// escapes, or the end of the string.
func skipQuoted(s string, open int) int {
	quote := s[open]
	for i := open + 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case quote:
			return i
		}
	}
	return len(s) - 1
}

// skipGroup returns the index of the parenthesis closing the group opened at
// open, or the end of the string.
func skipGroup(s string, open int) int {
	depth := 1
	for i := open + 1; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		case '\'', '"':
			i = skipQuoted(s, i)
		}
	}
	return len(s) - 1
}
