package magic

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// computeStrength implements the strength heuristic: a base of 20, a term from the root line's comparison value, a term from
// its relation operator, and then the entry's `!:strength` factor applied
// as an integer arithmetic reduction.
func computeStrength(e *MagicEntry) int {
	if e == nil || len(e.nodes) == 0 {
		return 1
	}

	root := e.Root()
	base := 20
	base += valueStrengthDelta(root)
	base += operatorStrengthDelta(root)

	if e.Factor == nil {
		return base
	}
	return applyStrengthFactor(base, e.Factor)
}

// valueStrengthDelta is the Δ-from-type-class term of the strength table.
func valueStrengthDelta(l *MagicLine) int {
	t := l.CompareType.Type
	switch {
	case t.IsI8():
		return 10
	case t.IsI16():
		return 20
	case t.IsI32():
		return 40
	case t.IsI64():
		return 80
	case t == String || t == PString:
		return 10 * literalLength(l)
	case t == BeString16 || t == LeString16:
		return 10 * (literalLength(l) / 2)
	case t == Search:
		if n := literalLength(l); n > 10 {
			return n
		}
		return 10
	case t == Regex, t == Der:
		return 10
	default:
		return 0
	}
}

// literalLength returns the byte length of the comparison literal, used
// for the string-class strength deltas.
func literalLength(l *MagicLine) int {
	if l.Relation == nil {
		return 0
	}
	return len(l.Relation.Value.Bytes())
}

// operatorStrengthDelta is the Δ-from-relation-operator term of the
// strength table.
func operatorStrengthDelta(l *MagicLine) int {
	if l.Relation == nil {
		// Wildcard 'x' relation: no operator term.
		return 0
	}
	switch l.Relation.Op {
	case OpEq:
		return 10
	case OpLt, OpGt:
		return -20
	case OpAnd, OpXor:
		return -10
	default:
		return 0
	}
}

// applyStrengthFactor applies the entry's `!:strength` factor to base
// using truncating integer arithmetic; any operator other than
// {+,-,*,/} collapses strength to 1.
func applyStrengthFactor(base int, f *AuxStrength) int {
	val := int(f.Val)
	switch f.Op {
	case '+':
		return base + val
	case '-':
		return base - val
	case '*':
		return base * val
	case '/':
		if val == 0 {
			return 1
		}
		return base / val
	default:
		return 1
	}
}

// parseStrengthFactor parses an `!:strength` payload of the form
// "<op><value>", e.g. "+10", "*2".
func parseStrengthFactor(payload string) (op byte, val uint32, err error) {
	payload = strings.TrimSpace(payload)
	if len(payload) < 2 {
		return 0, 0, errors.Errorf("malformed strength factor %q", payload)
	}
	op = payload[0]
	switch op {
	case '+', '-', '*', '/':
	default:
		return 0, 0, errors.Errorf("unknown strength operator %q", payload[:1])
	}
	n, err := strconv.ParseUint(strings.TrimSpace(payload[1:]), 10, 32)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "invalid strength value in %q", payload)
	}
	return op, uint32(n), nil
}
