// Package detector evaluates a loaded rule database against a seekable
// byte source: walking each candidate entry's line tree, fetching and
// casting the typed value each line names, comparing it against the
// line's relation, and assembling the description of whichever entry
// matches with the greatest strength.
package detector

import (
	"bytes"
	"regexp"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/fileclass/gomagic/internal/magic"
	"github.com/fileclass/gomagic/internal/streambuf"
)

// defaultScanWindow bounds how far a search/regex type will look past its
// starting offset when the rule line did not name an explicit range. Real
// rule files almost always supply one; this only guards the few that
// don't from scanning an entire large file one byte at a time.
const defaultScanWindow = 8192

// MatchContext carries the per-entry-attempt state Evaluate and fetchValue
// thread through a line tree: the buffered source, the offset continuation
// lines resolve "relative to", and the indirect pointer currently in
// scope while an indirect action's right-hand side is evaluated.
type MatchContext struct {
	buf *streambuf.Buffer

	relativeBase int64
}

// Evaluate resolves an offset Expression to the absolute byte position it
// names, recursing through Absolute/Relative/Indirect wrapping per their
// construction invariants in internal/magic/expr.go.
func (ctx *MatchContext) Evaluate(e magic.Expression) (int64, error) {
	switch e.Kind {
	case magic.ExprVal:
		return e.Literal.Int64(), nil

	case magic.ExprAbsolute:
		base, err := ctx.Evaluate(*e.Inner)
		if err != nil {
			return 0, err
		}
		return ctx.applyAction(base, e.Action)

	case magic.ExprRelative:
		base, err := ctx.Evaluate(*e.Inner)
		if err != nil {
			return 0, err
		}
		return ctx.applyAction(ctx.relativeBase+base, e.Action)

	case magic.ExprIndirect:
		base, err := ctx.Evaluate(*e.Inner)
		if err != nil {
			return 0, err
		}
		fetched, err := ctx.fetchNumeric(e.Indirect, base)
		if err != nil {
			return 0, err
		}
		v := fetched.Int64()
		if e.Indirect.Unsigned {
			v = int64(fetched.Uint64())
		}
		if e.IndirectFlags.Has(magic.IndirectRelative) {
			// The fetched pointer was written relative (`&` inside the
			// parens): resolve it against the enclosing line's match
			// position rather than treating it as absolute.
			v += ctx.relativeBase
		}
		if e.Action == nil || e.Action.Num == nil {
			return v, nil
		}

		// The action's right-hand side addresses relative to the
		// indirect pointer just fetched, not the enclosing line's
		// relativeBase — existing rule databases depend on this. Save
		// and restore relativeBase around the RHS evaluation rather than
		// mutating it without discipline, since the buffer position it
		// implies is shared, non-reentrant state.
		prevBase := ctx.relativeBase
		ctx.relativeBase = v
		rhs, err := ctx.Evaluate(e.Action.Num.Val)
		ctx.relativeBase = prevBase
		if err != nil {
			return 0, err
		}

		result, ok := magic.Reduce(e.Action.Num.Op, uint64(v), uint64(rhs))
		if !ok {
			return 0, ErrNonMatch
		}
		return int64(result), nil
	}
	return 0, ErrNonMatch
}

func (ctx *MatchContext) applyAction(base int64, action *magic.Action) (int64, error) {
	if action == nil || action.Num == nil {
		return base, nil
	}
	rhs, err := ctx.Evaluate(action.Num.Val)
	if err != nil {
		return 0, err
	}
	result, ok := magic.Reduce(action.Num.Op, uint64(base), uint64(rhs))
	if !ok {
		return 0, ErrNonMatch
	}
	return int64(result), nil
}

// fetchNumeric reads a fixed-width scalar at off and casts it per t,
// translating out-of-range seeks and short reads to ErrNonMatch and
// genuine reader failures to *MatchIoError.
func (ctx *MatchContext) fetchNumeric(t magic.SignValType, off int64) (magic.Value, error) {
	if err := ctx.buf.SeekRelative(streambuf.SeekTarget{Kind: streambuf.SeekStart, Offset: off}); err != nil {
		return magic.Value{}, ErrNonMatch
	}
	size := t.Type.SizeInBytes()
	if size == 0 {
		return magic.Value{}, ErrNonMatch
	}
	raw, err := ctx.buf.CastAt(size)
	if err != nil {
		if err == streambuf.ErrBufferTooSmall {
			return magic.Value{}, ErrNonMatch
		}
		return magic.Value{}, &MatchIoError{Offset: off, Reason: err.Error()}
	}
	v, ok := magic.CastFromBytes(t, raw)
	if !ok {
		return magic.Value{}, ErrNonMatch
	}
	return v, nil
}

// fetchValue reads the comparison value a MagicLine names at off, applies
// its numeric mask if any, and reports the offset immediately past the
// bytes consumed (used as the relativeBase continuation lines see).
func (ctx *MatchContext) fetchValue(off int64, line *magic.MagicLine) (magic.Value, int64, error) {
	t := line.CompareType
	if t.Type.IsString() {
		return ctx.fetchString(off, line)
	}

	v, err := ctx.fetchNumeric(t, off)
	if err != nil {
		return magic.Value{}, 0, err
	}
	if line.Mask != nil && line.Mask.Num != nil {
		rhs, err := ctx.Evaluate(line.Mask.Num.Val)
		if err != nil {
			return magic.Value{}, 0, err
		}
		masked, ok := magic.Reduce(line.Mask.Num.Op, v.Uint64(), uint64(rhs))
		if !ok {
			return magic.Value{}, 0, ErrNonMatch
		}
		v = magic.IntValue(v.Width(), t.Unsigned, masked)
	}
	return v, off + int64(t.Type.SizeInBytes()), nil
}

// fetchString reads the bytes a string-class comparison type names,
// decoding wide-character encodings and pstring length prefixes as
// needed, and scanning a bounded window for search/regex types.
func (ctx *MatchContext) fetchString(off int64, line *magic.MagicLine) (magic.Value, int64, error) {
	var flags magic.MaskFlags
	rangeLen := uint64(0)
	if line.Mask != nil && line.Mask.Str != nil {
		flags = line.Mask.Str.Flags
		rangeLen = line.Mask.Str.Range
	}

	switch line.CompareType.Type {
	case magic.PString:
		return ctx.fetchPString(off, flags)

	case magic.BeString16, magic.LeString16:
		return ctx.fetchWideString(off, line)

	case magic.Search:
		return ctx.fetchSearch(off, line, flags, rangeLen)

	case magic.Regex:
		return ctx.fetchRegex(off, line, rangeLen)

	default: // String, Octal and any other plain byte-oriented type
		n := stringCompareLen(line)
		if err := ctx.buf.SeekRelative(streambuf.SeekTarget{Kind: streambuf.SeekStart, Offset: off}); err != nil {
			return magic.Value{}, 0, &MatchIoError{Offset: off, Reason: err.Error()}
		}
		raw, err := ctx.buf.CastAt(n)
		if err != nil {
			if err == streambuf.ErrBufferTooSmall {
				return magic.Value{}, 0, ErrNonMatch
			}
			return magic.Value{}, 0, &MatchIoError{Offset: off, Reason: err.Error()}
		}
		return magic.BytesValue(raw), off + int64(n), nil
	}
}

// stringCompareLen picks how many bytes a plain string fetch reads: the
// pattern's own length when the relation supplies one, otherwise a short
// default wide enough for a wildcard ('x') line to still log something
// sensible.
func stringCompareLen(line *magic.MagicLine) int {
	if line.Relation != nil && line.Relation.Value.Kind() == magic.KindBytes {
		return len(line.Relation.Value.Bytes())
	}
	return 32
}

func (ctx *MatchContext) fetchPString(off int64, flags magic.MaskFlags) (magic.Value, int64, error) {
	width := flags.PStringPrefixWidth()
	if err := ctx.buf.SeekRelative(streambuf.SeekTarget{Kind: streambuf.SeekStart, Offset: off}); err != nil {
		return magic.Value{}, 0, &MatchIoError{Offset: off, Reason: err.Error()}
	}
	prefix, err := ctx.buf.CastAt(width)
	if err != nil {
		if err == streambuf.ErrBufferTooSmall {
			return magic.Value{}, 0, ErrNonMatch
		}
		return magic.Value{}, 0, &MatchIoError{Offset: off, Reason: err.Error()}
	}
	t := magic.SignValType{Unsigned: true, Type: widthToValType(width, flags.PStringPrefixLittleEndian())}
	lenVal, ok := magic.CastFromBytes(t, prefix)
	if !ok {
		return magic.Value{}, 0, ErrNonMatch
	}
	n := int(lenVal.Uint64())
	if flags.Has(magic.PStringLenIncludesItself) {
		n -= width
	}
	if n < 0 {
		return magic.Value{}, 0, ErrNonMatch
	}

	if err := ctx.buf.SeekRelative(streambuf.SeekTarget{Kind: streambuf.SeekStart, Offset: off + int64(width)}); err != nil {
		return magic.Value{}, 0, &MatchIoError{Offset: off, Reason: err.Error()}
	}
	body, err := ctx.buf.CastAt(n)
	if err != nil {
		if err == streambuf.ErrBufferTooSmall {
			return magic.Value{}, 0, ErrNonMatch
		}
		return magic.Value{}, 0, &MatchIoError{Offset: off, Reason: err.Error()}
	}
	return magic.BytesValue(body), off + int64(width) + int64(n), nil
}

func widthToValType(width int, little bool) magic.ValType {
	switch width {
	case 2:
		if little {
			return magic.LeShort
		}
		return magic.BeShort
	case 4:
		if little {
			return magic.LeLong
		}
		return magic.BeLong
	default:
		return magic.Byte
	}
}

func (ctx *MatchContext) fetchWideString(off int64, line *magic.MagicLine) (magic.Value, int64, error) {
	n := stringCompareLen(line) * 2
	if err := ctx.buf.SeekRelative(streambuf.SeekTarget{Kind: streambuf.SeekStart, Offset: off}); err != nil {
		return magic.Value{}, 0, &MatchIoError{Offset: off, Reason: err.Error()}
	}
	raw, err := ctx.buf.CastAt(n)
	if err != nil {
		if err == streambuf.ErrBufferTooSmall {
			return magic.Value{}, 0, ErrNonMatch
		}
		return magic.Value{}, 0, &MatchIoError{Offset: off, Reason: err.Error()}
	}

	endian := unicode.BigEndian
	if line.CompareType.Type == magic.LeString16 {
		endian = unicode.LittleEndian
	}
	decoded, _, err := transform.Bytes(unicode.UTF16(endian, unicode.IgnoreBOM).NewDecoder(), raw)
	if err != nil || !utf8.Valid(decoded) {
		return magic.Value{}, 0, ErrNonMatch
	}
	return magic.BytesValue(decoded), off + int64(n), nil
}

func (ctx *MatchContext) fetchSearch(off int64, line *magic.MagicLine, flags magic.MaskFlags, rangeLen uint64) (magic.Value, int64, error) {
	if line.Relation == nil || line.Relation.Value.Kind() != magic.KindBytes {
		return magic.Value{}, 0, ErrNonMatch
	}
	window := scanWindow(rangeLen)
	if err := ctx.buf.SeekRelative(streambuf.SeekTarget{Kind: streambuf.SeekStart, Offset: off}); err != nil {
		return magic.Value{}, 0, &MatchIoError{Offset: off, Reason: err.Error()}
	}
	raw, err := ctx.buf.CastAt(window)
	if err != nil && err != streambuf.ErrBufferTooSmall {
		return magic.Value{}, 0, &MatchIoError{Offset: off, Reason: err.Error()}
	}
	pattern := normalizeBytes(line.Relation.Value.Bytes(), flags)
	hay := normalizeBytes(raw, flags)
	idx := bytes.Index(hay, pattern)
	if idx < 0 {
		return magic.Value{}, 0, ErrNonMatch
	}
	// Normalization can change length (whitespace compaction); re-slice
	// the untouched raw buffer assuming the common case of no
	// normalizing flags, which covers the vast majority of search rules.
	end := idx + len(pattern)
	if end > len(raw) {
		end = len(raw)
	}
	return magic.BytesValue(raw[idx:end]), off + int64(end), nil
}

func (ctx *MatchContext) fetchRegex(off int64, line *magic.MagicLine, rangeLen uint64) (magic.Value, int64, error) {
	if line.Relation == nil || line.Relation.Value.Kind() != magic.KindBytes {
		return magic.Value{}, 0, ErrNonMatch
	}
	window := scanWindow(rangeLen)
	if err := ctx.buf.SeekRelative(streambuf.SeekTarget{Kind: streambuf.SeekStart, Offset: off}); err != nil {
		return magic.Value{}, 0, &MatchIoError{Offset: off, Reason: err.Error()}
	}
	raw, err := ctx.buf.CastAt(window)
	if err != nil && err != streambuf.ErrBufferTooSmall {
		return magic.Value{}, 0, &MatchIoError{Offset: off, Reason: err.Error()}
	}
	re, err := regexp.Compile(string(line.Relation.Value.Bytes()))
	if err != nil {
		return magic.Value{}, 0, ErrNonMatch
	}
	loc := re.FindIndex(raw)
	if loc == nil {
		return magic.Value{}, 0, ErrNonMatch
	}
	return magic.BytesValue(raw[loc[0]:loc[1]]), off + int64(loc[1]), nil
}

func scanWindow(rangeLen uint64) int {
	if rangeLen > 0 && rangeLen < defaultScanWindow {
		return int(rangeLen)
	}
	return defaultScanWindow
}

// normalizeBytes applies the whitespace/case mask flags shared by search
// and plain string comparisons.
func normalizeBytes(b []byte, flags magic.MaskFlags) []byte {
	if flags == 0 {
		return b
	}
	out := make([]byte, 0, len(b))
	lastSpace := false
	for _, c := range b {
		if flags.Has(magic.IgnoreLowercase) && c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		if flags.Has(magic.IgnoreUppercase) && c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		isSpace := c == ' ' || c == '\t'
		if isSpace && (flags.Has(magic.CompactWhitespace) || flags.Has(magic.CompactOptionalWhitespace)) {
			if lastSpace {
				continue
			}
			lastSpace = true
			out = append(out, ' ')
			continue
		}
		lastSpace = false
		out = append(out, c)
	}
	if flags.Has(magic.Trim) {
		out = bytes.TrimRight(out, " \t")
	}
	return out
}

// compare applies a MagicLine's relation to its fetched value. A nil
// Relation is the grammar's wildcard: always matches.
func compare(fetched magic.Value, line *magic.MagicLine) bool {
	rel := line.Relation
	if rel == nil {
		return true
	}
	if fetched.Kind() == magic.KindBytes {
		var flags magic.MaskFlags
		if line.Mask != nil && line.Mask.Str != nil {
			flags = line.Mask.Str.Flags
		}
		return bytes.Equal(normalizeBytes(fetched.Bytes(), flags), normalizeBytes(rel.Value.Bytes(), flags))
	}

	lhs, rhs := fetched.Uint64(), rel.Value.Uint64()
	switch rel.Op {
	case magic.OpEq:
		return lhs == rhs
	case magic.OpXor:
		return lhs != rhs
	case magic.OpAnd:
		return lhs&rhs == rhs
	case magic.OpLt:
		if fetched.Kind() == magic.KindSignedInt {
			return fetched.Int64() < rel.Value.Int64()
		}
		return lhs < rhs
	case magic.OpGt:
		if fetched.Kind() == magic.KindSignedInt {
			return fetched.Int64() > rel.Value.Int64()
		}
		return lhs > rhs
	}
	return false
}

// MatchRecord is the accumulated result of one entry matching: every
// matched line's formatted description in tree order, plus whatever aux
// metadata those lines carried.
type MatchRecord struct {
	Entry       *magic.MagicEntry
	Description string
	Mime        string
	Apple       string
	Exts        []string
}

// MatchEntry attempts entry against buf starting at baseOffset (almost
// always 0). It reports (nil, nil) when the entry's root line does not
// match, a populated *MatchRecord when it does, and an error only for a
// genuine I/O failure partway through — never for an ordinary non-match.
func MatchEntry(buf *streambuf.Buffer, baseOffset int64, entry *magic.MagicEntry) (*MatchRecord, error) {
	ctx := &MatchContext{buf: buf, relativeBase: baseOffset}
	rec := &MatchRecord{Entry: entry}
	matched, err := ctx.matchNode(entry, 0, rec)
	if err != nil {
		return nil, err
	}
	if !matched {
		return nil, nil
	}
	return rec, nil
}

func (ctx *MatchContext) matchNode(entry *magic.MagicEntry, idx int, rec *MatchRecord) (bool, error) {
	line := entry.Line(idx)

	off, err := ctx.Evaluate(line.Expr)
	if err != nil {
		if _, ok := err.(*MatchIoError); ok {
			return false, err
		}
		return false, nil
	}

	fetched, end, err := ctx.fetchValue(off, line)
	if err != nil {
		if _, ok := err.(*MatchIoError); ok {
			return false, err
		}
		return false, nil
	}

	if !compare(fetched, line) {
		return false, nil
	}

	rec.Description += line.FormattedDescription()
	if line.Aux != nil {
		if line.Aux.Mime != "" {
			rec.Mime = line.Aux.Mime
		}
		if line.Aux.Apple != "" {
			rec.Apple = line.Aux.Apple
		}
		rec.Exts = append(rec.Exts, line.Aux.Exts...)
	}

	prevBase := ctx.relativeBase
	ctx.relativeBase = end
	for _, child := range entry.Children(idx) {
		childMatched, err := ctx.matchNode(entry, child, rec)
		if err != nil {
			ctx.relativeBase = prevBase
			return false, err
		}
		_ = childMatched
	}
	ctx.relativeBase = prevBase

	return true, nil
}
