package common

import "strings"

// HasAny returns true if s contains any of the substrings, ignoring case.
func HasAny(s string, subs ...string) bool {
	s = strings.ToLower(s)
	for _, sub := range subs {
		if strings.Contains(s, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}

// RedactParam replaces the value of query parameter param in rawURL with
// mask. The mask is inserted verbatim so log lines stay readable.
func RedactParam(rawURL, param, mask string) string {
	prefix := param + "="
	var b strings.Builder
	b.Grow(len(rawURL))

	rest := rawURL
	for {
		i := indexParam(rest, prefix)
		if i < 0 {
			b.WriteString(rest)
			return b.String()
		}
		b.WriteString(rest[:i+len(prefix)])
		b.WriteString(mask)
		rest = rest[i+len(prefix):]
		if j := strings.IndexAny(rest, "&#"); j >= 0 {
			rest = rest[j:]
		} else {
			rest = ""
		}
	}
}

// indexParam finds prefix at the start of a query component.
func indexParam(s, prefix string) int {
	off := 0
	for {
		i := strings.Index(s[off:], prefix)
		if i < 0 {
			return -1
		}
		i += off
		if i > 0 && (s[i-1] == '?' || s[i-1] == '&') {
			return i
		}
		off = i + len(prefix)
	}
}
