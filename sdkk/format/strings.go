package format

import (
	"bytes"
	"unicode/utf8"
)

// putFixedString stores s into dst as NUL-padded UTF-8. Content longer
// than len(dst)-1 bytes is cut back to the nearest rune boundary, so a
// multi-byte sequence is never split. The final byte is always NUL.
func putFixedString(dst []byte, s string) {
	max := len(dst) - 1
	if len(s) > max {
		for max > 0 && !utf8.RuneStart(s[max]) {
			max--
		}
		s = s[:max]
	}
	n := copy(dst, s)
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
}

// fixedString returns the content of a NUL-padded field: everything up to
// the first NUL. Whatever sits after the terminator is ignored.
func fixedString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
