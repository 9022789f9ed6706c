package alerts

import (
	"strings"
	"unicode"
)

const allowedPunct = ".,:;!?'-_/$%&+#@="

// Sanitize strips characters that break downstream renderers (markdown, push
// clients, chat embeds). Letters, digits, spaces and a small punctuation set
// are kept; every bracket becomes a parenthesis; whitespace runs collapse.
func Sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	space := false
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			space = true
			continue
		case r == '(' || r == '[' || r == '{':
			r = '('
		case r == ')' || r == ']' || r == '}':
			r = ')'
		case unicode.IsLetter(r) || unicode.IsDigit(r):
		case strings.ContainsRune(allowedPunct, r):
		default:
			continue
		}

		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}

	return b.String()
}
