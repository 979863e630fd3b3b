package magic

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// LineKind classifies a raw text line before the rule grammar runs.
type LineKind int

const (
	LineComment LineKind = iota
	LineBlank
	LineAux
	LineRule
)

// ClassifyLine implements the grammar's pre-filter: an empty line is
// LineBlank, '#'-prefixed lines are comments, '!:' lines are auxiliary, and lines
// starting with '>', a digit, '&' or '(' are rule lines. Anything else is
// reported as a comment so the loader simply skips it rather than
// failing the file.
func ClassifyLine(raw string) LineKind {
	trimmed := strings.TrimRight(raw, "\r")
	if len(trimmed) == 0 {
		return LineBlank
	}
	if trimmed[0] == '#' {
		return LineComment
	}
	if strings.HasPrefix(trimmed, "!:") {
		return LineAux
	}
	switch trimmed[0] {
	case '>', '&', '(':
		return LineRule
	default:
		if isDigit(trimmed[0]) {
			return LineRule
		}
	}
	return LineComment
}

// ParseAuxLine splits a `!:kind payload` line into its kind and payload.
func ParseAuxLine(raw string) (kind, payload string, err error) {
	raw = strings.TrimRight(raw, "\r\n")
	if !strings.HasPrefix(raw, "!:") {
		return "", "", errors.Errorf("not an aux line: %q", raw)
	}
	rest := raw[2:]
	i := 0
	for i < len(rest) && !isSpace(rest[i]) {
		i++
	}
	kind = rest[:i]
	payload = strings.TrimLeft(rest[i:], " \t")
	return kind, payload, nil
}

func isSpace(c byte) bool { return c == ' ' || c == '\t' }

// scanner is a simple cursor over a rule line's text, used by the
// hand-written recursive-descent parser below.
type scanner struct {
	s   string
	pos int
}

func (sc *scanner) eof() bool { return sc.pos >= len(sc.s) }

func (sc *scanner) peek() byte {
	if sc.eof() {
		return 0
	}
	return sc.s[sc.pos]
}

func (sc *scanner) next() byte {
	c := sc.peek()
	sc.pos++
	return c
}

func (sc *scanner) skipSpaces() {
	for !sc.eof() && isSpace(sc.peek()) {
		sc.pos++
	}
}

func (sc *scanner) rest() string { return sc.s[sc.pos:] }

// ParseRuleLine parses one rule-shaped line into a MagicLine.
func ParseRuleLine(raw string) (*MagicLine, error) {
	raw = strings.TrimRight(raw, "\r\n")
	sc := &scanner{s: raw}

	depth := uint32(0)
	for sc.peek() == '>' {
		depth++
		sc.pos++
	}

	offset, err := parseOffset(sc)
	if err != nil {
		return nil, errors.Wrap(err, "offset")
	}

	sc.skipSpaces()
	if sc.eof() {
		return nil, errors.New("missing type field")
	}

	signType, err := parseTypeField(sc)
	if err != nil {
		return nil, errors.Wrap(err, "type")
	}

	mask, err := parseMask(sc, signType.Type)
	if err != nil {
		return nil, errors.Wrap(err, "mask")
	}

	sc.skipSpaces()
	if sc.eof() {
		return nil, errors.New("missing relation field")
	}

	relation, err := parseRelation(sc, signType.Type)
	if err != nil {
		return nil, errors.Wrap(err, "relation")
	}

	sc.skipSpaces()
	desc, noSpace, typeCode := parseDescription(sc.rest())

	ml := &MagicLine{
		Depth:          depth,
		Expr:           offset,
		CompareType:    signType,
		Relation:       relation,
		Description:    desc,
		NoLeadingSpace: noSpace,
		TypeCode:       typeCode,
		Mask:           mask,
	}
	return ml, nil
}

// parseOffset implements offset_binop := offset_atom (val_op value)?
func parseOffset(sc *scanner) (Expression, error) {
	atom, err := parseOffsetAtom(sc)
	if err != nil {
		return Expression{}, err
	}
	if op, ok := ParseValOp(sc.peek()); ok {
		sc.next()
		val, err := parseIntLiteral(sc)
		if err != nil {
			return Expression{}, errors.Wrap(err, "offset arithmetic operand")
		}
		return AbsoluteExpr(atom, &Action{Num: &NumAction{Op: op, Val: ValExpr(val)}}), nil
	}
	return atom, nil
}

// parseOffsetAtom implements:
//
//	offset_atom := '(' offset_atom ofs_type? ofs_action? ')'
//	             | '&' offset_atom
//	             | value
func parseOffsetAtom(sc *scanner) (Expression, error) {
	switch sc.peek() {
	case '&':
		sc.next()
		inner, err := parseOffsetAtom(sc)
		if err != nil {
			return Expression{}, err
		}
		return RelativeExpr(inner, nil), nil

	case '(':
		sc.next()
		inner, err := parseOffsetAtom(sc)
		if err != nil {
			return Expression{}, err
		}

		var typ *SignValType
		if sc.peek() == '.' || sc.peek() == ',' {
			unsigned := sc.peek() == '.'
			sc.next()
			if sc.eof() {
				return Expression{}, errors.New("missing indirect type character")
			}
			c := sc.next()
			t, ok := oneCharTypes[c]
			if !ok {
				return Expression{}, errors.Errorf("unknown indirect type character %q", c)
			}
			typ = &SignValType{Unsigned: unsigned, Type: t}
		}

		var action *Action
		if op, ok := ParseValOp(sc.peek()); ok {
			sc.next()
			rhs, err := parseOffset(sc)
			if err != nil {
				return Expression{}, errors.Wrap(err, "indirect action")
			}
			action = &Action{Num: &NumAction{Op: op, Val: rhs}}
		}

		if sc.peek() != ')' {
			return Expression{}, errors.Errorf("expected ')' at %q", sc.rest())
		}
		sc.next()

		expr := IndirectExpr(typ, inner, action)
		if inner.Kind == ExprRelative {
			// The indirect's own base was written relative (`&inner`
			// inside the parens): the pointer this indirect fetches is
			// itself relative to the enclosing line's match position,
			// same as the explicit 'r' mask flag would mark it.
			expr.IndirectFlags |= IndirectRelative
		}
		return expr, nil

	default:
		v, err := parseIntLiteral(sc)
		if err != nil {
			return Expression{}, err
		}
		return ValExpr(v), nil
	}
}

// parseIntLiteral parses a decimal or 0x-hex integer, with optional
// leading sign, stopping at the first byte that isn't part of the
// number.
func parseIntLiteral(sc *scanner) (Value, error) {
	start := sc.pos
	if sc.peek() == '-' || sc.peek() == '+' {
		sc.next()
	}
	if sc.peek() == '0' && (sc.peekAt(1) == 'x' || sc.peekAt(1) == 'X') {
		sc.pos += 2
		for isHexDigit(sc.peek()) {
			sc.pos++
		}
	} else {
		for isDigit(sc.peek()) {
			sc.pos++
		}
	}
	tok := sc.s[start:sc.pos]
	if tok == "" || tok == "-" || tok == "+" {
		return Value{}, errors.Errorf("expected integer at %q", sc.s[start:])
	}
	n, err := strconv.ParseInt(tok, 0, 64)
	if err != nil {
		// Wider than int64 (e.g. a large unsigned hex literal): parse as
		// uint64 and carry the raw bit pattern.
		u, uerr := strconv.ParseUint(strings.TrimPrefix(tok, "+"), 0, 64)
		if uerr != nil {
			return Value{}, errors.Wrapf(err, "invalid integer literal %q", tok)
		}
		return IntValue(64, true, u), nil
	}
	return IntValue(64, false, uint64(n)), nil
}

func (sc *scanner) peekAt(offset int) byte {
	if sc.pos+offset >= len(sc.s) {
		return 0
	}
	return sc.s[sc.pos+offset]
}

// parseTypeField implements: type := 'u'? ident.
func parseTypeField(sc *scanner) (SignValType, error) {
	start := sc.pos
	for !sc.eof() && (isAlnum(sc.peek())) {
		sc.pos++
	}
	tok := sc.s[start:sc.pos]
	if tok == "" {
		return SignValType{}, errors.Errorf("expected a type name at %q", sc.rest())
	}

	if t, ok := ParseValType(tok); ok {
		return SignValType{Unsigned: false, Type: t}, nil
	}
	if len(tok) > 1 && tok[0] == 'u' {
		if t, ok := ParseValType(tok[1:]); ok {
			return SignValType{Unsigned: true, Type: t}, nil
		}
	}
	return SignValType{}, errors.Errorf("unknown type %q", tok)
}

func isAlnum(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// parseMask implements the mask production:
//
//	mask := '/' str_mask | val_op value type_suffix?
func parseMask(sc *scanner, t ValType) (*Action, error) {
	if t.IsString() {
		if sc.peek() != '/' {
			return nil, nil
		}
		var flags MaskFlags
		var rang uint64
		haveRange := false
		for sc.peek() == '/' {
			sc.next()
			if isDigit(sc.peek()) {
				start := sc.pos
				for isDigit(sc.peek()) {
					sc.pos++
				}
				n, err := strconv.ParseUint(sc.s[start:sc.pos], 10, 64)
				if err != nil {
					return nil, errors.Wrap(err, "string mask range")
				}
				rang = n
				haveRange = true
				continue
			}
			for !sc.eof() && sc.peek() != '/' && !isSpace(sc.peek()) {
				c := sc.next()
				if !flags.Set(c) {
					return nil, errors.Errorf("unknown string mask flag %q", c)
				}
			}
		}
		if !haveRange && flags == 0 {
			return nil, nil
		}
		return &Action{Str: &StrAction{Flags: flags, Range: rang}}, nil
	}

	op, ok := ParseValOp(sc.peek())
	if !ok {
		return nil, nil
	}
	sc.next()
	val, err := parseIntLiteral(sc)
	if err != nil {
		return nil, errors.Wrap(err, "numeric mask operand")
	}
	// Eat a trailing size-modifier suffix, if present (e.g. a stray
	// width letter some rule files attach); it carries no semantic
	// value for this parser.
	for isAlnum(sc.peek()) {
		sc.pos++
	}
	return &Action{Num: &NumAction{Op: op, Val: ValExpr(val)}}, nil
}

// parseRelation implements:
//
//	relation := 'x' (lookahead: whitespace or EOL)
//	          | cmp_op? WS? literal
func parseRelation(sc *scanner, t ValType) (*Relation, error) {
	if sc.peek() == 'x' && (sc.peekAt(1) == 0 || isSpace(sc.peekAt(1))) {
		sc.next()
		return nil, nil
	}

	op := OpEq
	if o, ok := ParseCmpOp(sc.peek()); ok {
		op = o
		sc.next()
	}
	sc.skipSpaces()

	if t.IsString() {
		decoded, n := decodeEscapes(sc.rest())
		sc.pos += n
		return &Relation{Op: op, Value: BytesValue(decoded)}, nil
	}

	val, err := parseNumericLiteral(sc)
	if err != nil {
		return nil, err
	}
	return &Relation{Op: op, Value: val}, nil
}

// parseNumericLiteral parses the numeric-type relation literal: signed
// decimal, 0x-hex, or a float.
func parseNumericLiteral(sc *scanner) (Value, error) {
	start := sc.pos
	if sc.peek() == '-' || sc.peek() == '+' {
		sc.pos++
	}
	isFloat := false
	if sc.peek() == '0' && (sc.peekAt(1) == 'x' || sc.peekAt(1) == 'X') {
		sc.pos += 2
		for isHexDigit(sc.peek()) {
			sc.pos++
		}
	} else {
		for isDigit(sc.peek()) {
			sc.pos++
		}
		if sc.peek() == '.' {
			isFloat = true
			sc.pos++
			for isDigit(sc.peek()) {
				sc.pos++
			}
		}
	}
	tok := sc.s[start:sc.pos]
	if tok == "" {
		return Value{}, errors.Errorf("expected a numeric literal at %q", sc.rest())
	}
	if isFloat {
		f, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return Value{}, errors.Wrapf(err, "invalid float literal %q", tok)
		}
		return FloatValue(64, f), nil
	}
	n, err := strconv.ParseInt(tok, 0, 64)
	if err != nil {
		u, uerr := strconv.ParseUint(strings.TrimPrefix(tok, "+"), 0, 64)
		if uerr != nil {
			return Value{}, errors.Wrapf(err, "invalid integer literal %q", tok)
		}
		return IntValue(64, true, u), nil
	}
	return IntValue(64, false, uint64(n)), nil
}

// parseDescription implements the desc production, including the
// leading-space sentinel and the trailing `|typecode`.
func parseDescription(rest string) (desc string, noSpace bool, typeCode int) {
	if strings.HasPrefix(rest, "\b") {
		noSpace = true
		rest = rest[1:]
	} else if strings.HasPrefix(rest, "\\b") {
		noSpace = true
		rest = rest[2:]
	}

	body := rest
	if idx := unescapedPipe(rest); idx >= 0 {
		body = rest[:idx]
		if code, err := strconv.Atoi(strings.TrimSpace(rest[idx+1:])); err == nil {
			typeCode = code
		}
	}
	return body, noSpace, typeCode
}

func unescapedPipe(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] == '|' && (i == 0 || s[i-1] != '\\') {
			return i
		}
	}
	return -1
}
