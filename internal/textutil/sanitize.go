package textutil

import (
	"strings"
	"unicode"
)

// FileToken turns an identifier into a lowercase file name stem. Letters and
// digits of any script are kept along with '-' and '_'; runs of anything else
// collapse to a single underscore. Empty results become "unknown".
func FileToken(value string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.TrimSpace(value) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_':
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(unicode.ToLower(r))
		default:
			pendingSep = true
		}
	}
	out := strings.Trim(b.String(), "_-")
	if out == "" {
		return "unknown"
	}
	return out
}
