package sanitize

import "strings"

// The entities Escape emits. An ampersand that already begins one of
// these is left alone so that escaping an already-escaped string is a
// no-op.
var entities = []string{"&amp;", "&lt;", "&gt;", "&quot;", "&#39;"}

// Escape replaces HTML-significant characters in user-supplied display
// strings with entities. Unlike html.EscapeString it is idempotent:
// Escape(Escape(x)) == Escape(x) for any x. Every player name and
// pronoun string passes through here before leaving the server.
func Escape(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '&':
			if startsEntity(s[i:]) {
				b.WriteByte(c)
				continue
			}
			b.WriteString("&amp;")
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '"':
			b.WriteString("&quot;")
		case '\'':
			b.WriteString("&#39;")
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func startsEntity(s string) bool {
	for _, e := range entities {
		if strings.HasPrefix(s, e) {
			return true
		}
	}
	return false
}
