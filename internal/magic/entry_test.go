package magic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustLine(t *testing.T, raw string) MagicLine {
	t.Helper()
	ml, err := ParseRuleLine(raw)
	require.NoError(t, err)
	return *ml
}

func TestBuilderTreeShape(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddLine(mustLine(t, "0\tstring\t\\x7fELF\tELF")))
	require.NoError(t, b.AddLine(mustLine(t, ">4\tbyte\t1\t32-bit")))
	require.NoError(t, b.AddLine(mustLine(t, ">4\tbyte\t2\t64-bit")))
	require.NoError(t, b.AddLine(mustLine(t, ">>5\tbyte\t1\tLE")))

	e := b.Build()
	require.NotNil(t, e)
	assert.Equal(t, 4, e.NumLines())
	assert.Equal(t, -1, e.Parent(0))
	assert.Len(t, e.Children(0), 2)
	// The depth-2 line attaches under the second depth-1 sibling, its
	// nearest preceding ancestor one level shallower.
	assert.Equal(t, 2, e.Parent(3))
}

func TestBuilderRejectsNonZeroFirstLine(t *testing.T) {
	b := NewBuilder()
	err := b.AddLine(mustLine(t, ">4\tbyte\t1\tfoo"))
	assert.Error(t, err)
}

func TestAttachAuxMimeAndStrength(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddLine(mustLine(t, "0\tstring\tfoo\tfoo file")))
	require.NoError(t, b.AttachAux(auxMime, "text/plain"))
	require.NoError(t, b.AttachAux(auxStrength, "+10"))

	e := b.Build()
	require.NotNil(t, e)
	require.NotNil(t, e.Root().Aux)
	assert.Equal(t, "text/plain", e.Root().Aux.Mime)
	require.NotNil(t, e.Factor)
	assert.Equal(t, byte('+'), e.Factor.Op)
	assert.Equal(t, uint32(10), e.Factor.Val)
}

func TestAttachAuxOnlyFirstStrengthHonored(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddLine(mustLine(t, "0\tstring\tfoo\tfoo file")))
	require.NoError(t, b.AttachAux(auxStrength, "+10"))
	require.NoError(t, b.AttachAux(auxStrength, "*5"))

	e := b.Build()
	require.NotNil(t, e.Factor)
	assert.Equal(t, byte('+'), e.Factor.Op)
}

func TestStrengthOrderingAcrossTypeWidths(t *testing.T) {
	byteEntry := NewBuilder()
	require.NoError(t, byteEntry.AddLine(mustLine(t, "0\tbyte\t1\tnarrow")))
	quadEntry := NewBuilder()
	require.NoError(t, quadEntry.AddLine(mustLine(t, "0\tquad\t1\twide")))

	be := byteEntry.Build()
	qe := quadEntry.Build()
	assert.Less(t, be.Strength, qe.Strength)
}

func TestDatabaseStableSortByStrength(t *testing.T) {
	b1 := NewBuilder()
	require.NoError(t, b1.AddLine(mustLine(t, "0\tbyte\t1\ta")))
	b2 := NewBuilder()
	require.NoError(t, b2.AddLine(mustLine(t, "0\tquad\t1\tb")))
	b3 := NewBuilder()
	require.NoError(t, b3.AddLine(mustLine(t, "0\tbyte\t2\tc")))

	db := NewDatabase([]*MagicEntry{b1.Build(), b2.Build(), b3.Build()})
	require.Len(t, db.Entries, 3)
	assert.LessOrEqual(t, db.Entries[0].Strength, db.Entries[1].Strength)
	assert.LessOrEqual(t, db.Entries[1].Strength, db.Entries[2].Strength)
	// Ties (a, c both byte-width) keep encounter order.
	assert.Equal(t, "a", db.Entries[0].Root().FormattedDescription()[1:])
	assert.Equal(t, "c", db.Entries[1].Root().FormattedDescription()[1:])
}
