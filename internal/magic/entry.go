package magic

import (
	"strings"

	"github.com/pkg/errors"
)

// Builder accumulates rule lines and `!:` aux lines into a single
// MagicEntry tree, grouping consecutive lines by continuation depth. A
// Builder is single-use: call Build once the next line would start a new
// entry (depth 0 and rule-line shaped) or the file is exhausted.
type Builder struct {
	nodes  []node
	last   int // handle of the most recently added line, -1 if empty
	factor *AuxStrength
}

// NewBuilder returns an empty Builder ready to accept its entry's root
// line.
func NewBuilder() *Builder {
	return &Builder{last: -1}
}

// Empty reports whether any rule line has been added yet. Empty builders
// are discarded by the file loader rather than turned into zero-line
// entries.
func (b *Builder) Empty() bool { return len(b.nodes) == 0 }

// AddLine appends a parsed rule line to the entry being built. The first
// line added must be at depth 0 and becomes the entry's root; every
// subsequent line is attached as a child of the nearest preceding line
// one continuation level shallower.
func (b *Builder) AddLine(ml MagicLine) error {
	if len(b.nodes) == 0 {
		if ml.Depth != 0 {
			return errors.Errorf("first rule line of an entry must be depth 0, got depth %d", ml.Depth)
		}
		b.nodes = append(b.nodes, node{line: ml, parent: -1})
		b.last = 0
		return nil
	}
	if ml.Depth == 0 {
		return errors.New("depth-0 line starts a new entry, not a continuation")
	}

	parent := b.last
	for parent != -1 && b.nodes[parent].line.Depth != ml.Depth-1 {
		parent = b.nodes[parent].parent
	}
	if parent == -1 {
		return errors.Errorf("no ancestor at continuation depth %d for a line at depth %d", ml.Depth-1, ml.Depth)
	}

	idx := len(b.nodes)
	b.nodes = append(b.nodes, node{line: ml, parent: parent})
	b.nodes[parent].children = append(b.nodes[parent].children, idx)
	b.last = idx
	return nil
}

// aux line kinds, from the grammar `!:kind payload`.
const (
	auxMime     = "mime"
	auxApple    = "apple"
	auxExt      = "ext"
	auxStrength = "strength"
)

const (
	mimeCharset  = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz+-*/.$?:{}"
	appleCharset = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz+-./!?"
	extCharset   = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz+-,/!@?_$"
)

func allBytesIn(s, charset string) bool {
	for i := 0; i < len(s); i++ {
		if !strings.ContainsRune(charset, rune(s[i])) {
			return false
		}
	}
	return true
}

// AttachAux parses one `!:kind payload` line and attaches it to the most
// recently added rule line, or — for `!:strength` — to the builder's
// strength factor. Only the first `!:strength` line in an entry is
// honored; later ones are silently ignored.
func (b *Builder) AttachAux(kind, payload string) error {
	if b.last == -1 {
		return errors.New("aux line with no preceding rule line")
	}

	switch kind {
	case auxMime:
		if !allBytesIn(payload, mimeCharset) {
			return errors.Errorf("invalid character in mime aux %q", payload)
		}
		aux := b.currentAux()
		aux.Mime = payload
	case auxApple:
		if !allBytesIn(payload, appleCharset) {
			return errors.Errorf("invalid character in apple aux %q", payload)
		}
		aux := b.currentAux()
		aux.Apple = payload
	case auxExt:
		if !allBytesIn(payload, extCharset) {
			return errors.Errorf("invalid character in ext aux %q", payload)
		}
		aux := b.currentAux()
		aux.Exts = strings.Split(payload, "/")
	case auxStrength:
		if b.factor != nil {
			return nil
		}
		op, val, err := parseStrengthFactor(payload)
		if err != nil {
			return err
		}
		b.factor = &AuxStrength{Op: op, Val: val}
	default:
		return errors.Errorf("unknown aux kind %q", kind)
	}
	return nil
}

func (b *Builder) currentAux() *Aux {
	ml := &b.nodes[b.last].line
	if ml.Aux == nil {
		ml.Aux = &Aux{}
	}
	return ml.Aux
}

// Build finalizes the accumulated lines into a sealed MagicEntry and
// computes its strength (strength.go). Returns nil if no rule line was
// ever added.
func (b *Builder) Build() *MagicEntry {
	if len(b.nodes) == 0 {
		return nil
	}
	e := &MagicEntry{nodes: b.nodes, Factor: b.factor}
	e.Strength = computeStrength(e)
	return e
}
