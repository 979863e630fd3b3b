package magic

// MaskFlags is the 16-bit bitset attached to string comparisons. Bit
// positions are assigned by maskFlagChars, mirroring the single-character
// mask syntax of the rule grammar.
type MaskFlags uint16

const (
	CompactWhitespace MaskFlags = 1 << iota
	CompactOptionalWhitespace
	IgnoreLowercase
	IgnoreUppercase
	RegexOffsetStart
	BinTest
	TextTest
	Trim
	PStringLen1LE
	PStringLen2BE
	PStringLen2LE
	PStringLen4BE
	PStringLen4LE
	PStringLenIncludesItself
	IndirectRelative
)

// pstringLenFlags is every flag covered by the "exactly one of five may
// be set" invariant, excluding PStringLenIncludesItself which is additive
// rather than exclusive.
const pstringLenFlags = PStringLen1LE | PStringLen2BE | PStringLen2LE | PStringLen4BE | PStringLen4LE

// maskFlagChars is the single-character mapping table the mask syntax
// uses: "WwcCsbtTBHhLlJr" assigns bit positions to characters. The parser
// (parser.go) consumes these one at a time after the '/' separator.
var maskFlagChars = map[byte]MaskFlags{
	'W': CompactWhitespace,
	'w': CompactOptionalWhitespace,
	'c': IgnoreLowercase,
	'C': IgnoreUppercase,
	's': RegexOffsetStart,
	'b': BinTest,
	't': TextTest,
	'T': Trim,
	'B': PStringLen1LE,
	'H': PStringLen2BE,
	'h': PStringLen2LE,
	'L': PStringLen4BE,
	'l': PStringLen4LE,
	'J': PStringLenIncludesItself,
	'r': IndirectRelative,
}

// Set applies the flag named by c, first clearing the other four
// pstring-length flags if c selects one of them: setting any
// pstring-length-* flag clears the others before setting, except
// pstring-length-includes-itself, which is additive.
func (m *MaskFlags) Set(c byte) bool {
	flag, ok := maskFlagChars[c]
	if !ok {
		return false
	}
	if flag&pstringLenFlags != 0 {
		*m &^= pstringLenFlags
	}
	*m |= flag
	return true
}

func (m MaskFlags) Has(flag MaskFlags) bool { return m&flag != 0 }

// PStringPrefixWidth returns the byte width of the pstring length prefix
// selected by m, defaulting to 1 (the classic Pascal-string prefix) when
// no pstring-length flag is set.
func (m MaskFlags) PStringPrefixWidth() int {
	switch {
	case m.Has(PStringLen2BE), m.Has(PStringLen2LE):
		return 2
	case m.Has(PStringLen4BE), m.Has(PStringLen4LE):
		return 4
	default:
		return 1
	}
}

// PStringPrefixLittleEndian reports whether the pstring length prefix should be
// read little-endian; only meaningful when the width is >1.
func (m MaskFlags) PStringPrefixLittleEndian() bool {
	return m.Has(PStringLen2LE) || m.Has(PStringLen4LE)
}
