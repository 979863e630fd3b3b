package magic

// Relation is a MagicLine's comparison against the fetched value: compare
// using Op against Value. A nil *Relation on MagicLine means the grammar's
// wildcard relation 'x' — match any value, no comparison performed.
type Relation struct {
	Op    Operator
	Value Value
}

// Aux holds the auxiliary metadata a rule line can accumulate from `!:`
// lines that follow it. Unlike a strict sum type, a single rule line
// commonly carries more than one of these at once (e.g. both a mime type
// and an extension list), so they are fields on one struct rather than a
// tagged union.
type Aux struct {
	Mime  string
	Apple string
	Exts  []string
}

// AuxStrength is the `!:strength` factor: an operator from {+,-,*,/} and
// the operand to apply it with.
type AuxStrength struct {
	Op  byte // '+', '-', '*', '/'; any other value collapses strength to 1
	Val uint32
}

// MagicLine is a single parsed rule line: its continuation depth, its
// offset expression tree, the type the comparison value is fetched and
// cast as, the relation to apply, its description, optional aux metadata
// and a printf type-code hint.
type MagicLine struct {
	Depth       uint32
	Expr        Expression
	CompareType SignValType
	Relation    *Relation
	Description string
	Aux         *Aux
	TypeCode    int

	// NoLeadingSpace is set when the description sentinel (0x08 or the
	// literal two-byte `\b`) suppressed the canonical leading space.
	NoLeadingSpace bool

	// Mask is the modifier applied to the fetched value before
	// comparison: for numeric types, an arithmetic reduction; for string
	// types, MaskFlags.
	Mask *Action
}

// FormattedDescription returns the description with the canonical leading
// space applied, unless NoLeadingSpace suppressed it.
func (l *MagicLine) FormattedDescription() string {
	if l.NoLeadingSpace || l.Description == "" {
		return l.Description
	}
	return " " + l.Description
}

// node is the arena representation of a line inside a MagicEntry's tree:
// nodes are addressed by integer handle rather than owning pointers, to
// sidestep the parent/child ownership cycle a pointer-based tree would
// have.
type node struct {
	line     MagicLine
	parent   int // -1 for the root
	children []int
}

// MagicEntry is the root of a tree of MagicLines plus an optional
// strength factor. Lines are stored flat in an arena addressed by index;
// index 0 is always the entry's root line.
type MagicEntry struct {
	nodes    []node
	Factor   *AuxStrength
	Strength int
}

// NumLines reports how many lines (root + continuations) the entry holds.
func (e *MagicEntry) NumLines() int { return len(e.nodes) }

// Line returns the MagicLine at handle i.
func (e *MagicEntry) Line(i int) *MagicLine { return &e.nodes[i].line }

// Parent returns the handle of i's parent, or -1 if i is the root.
func (e *MagicEntry) Parent(i int) int { return e.nodes[i].parent }

// Children returns the handles of i's direct children, in the order they
// were appended.
func (e *MagicEntry) Children(i int) []int { return e.nodes[i].children }

// Root returns the entry's root line (handle 0).
func (e *MagicEntry) Root() *MagicLine { return &e.nodes[0].line }
