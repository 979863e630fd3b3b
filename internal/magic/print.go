package magic

import (
	"fmt"
	"io"
	"strings"
)

// ShowStr writes s to w with C-style backslash escapes for any
// non-printable byte — the inverse of decodeEscapes's unescaping. Useful
// for debug logging of fetched string values and rule literals.
func ShowStr(w io.Writer, s []byte) {
	for _, c := range s {
		if c >= 32 && c <= 126 {
			fmt.Fprintf(w, "%c", c)
			continue
		}
		switch c {
		case '\a':
			io.WriteString(w, `\a`)
		case '\b':
			io.WriteString(w, `\b`)
		case '\f':
			io.WriteString(w, `\f`)
		case '\n':
			io.WriteString(w, `\n`)
		case '\r':
			io.WriteString(w, `\r`)
		case '\t':
			io.WriteString(w, `\t`)
		case '\v':
			io.WriteString(w, `\v`)
		default:
			fmt.Fprintf(w, "\\%03o", c)
		}
	}
}

// ShowStrString is the string-returning convenience form of ShowStr.
func ShowStrString(s []byte) string {
	var b strings.Builder
	ShowStr(&b, s)
	return b.String()
}
