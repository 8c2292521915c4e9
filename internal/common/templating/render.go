// Package templating renders the {{key}} placeholder templates used for
// proposals and broker correspondence.
package templating

import (
	"fmt"
	"strings"
)

// Render substitutes {{key}} placeholders from data in one left-to-right
// pass over tmpl. Substituted values are never rescanned, so a value that
// itself contains {{...}} is emitted verbatim. Unknown placeholders render
// as empty; an unterminated {{ is kept as text.
func Render(tmpl string, data map[string]interface{}) string {
	var b strings.Builder
	b.Grow(len(tmpl))

	rest := tmpl
	for {
		start := strings.Index(rest, "{{")
		if start == -1 {
			b.WriteString(rest)
			break
		}
		end := strings.Index(rest[start+2:], "}}")
		if end == -1 {
			b.WriteString(rest)
			break
		}

		b.WriteString(rest[:start])
		key := strings.TrimSpace(rest[start+2 : start+2+end])
		b.WriteString(format(data[key]))
		rest = rest[start+2+end+2:]
	}
	return b.String()
}

func format(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	default:
		return fmt.Sprintf("%v", x)
	}
}
