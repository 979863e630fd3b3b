package detector

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fileclass/gomagic/internal/magic"
	"github.com/fileclass/gomagic/internal/streambuf"
)

func buildEntry(t *testing.T, lines ...string) *magic.MagicEntry {
	t.Helper()
	b := magic.NewBuilder()
	for _, raw := range lines {
		ml, err := magic.ParseRuleLine(raw)
		require.NoError(t, err)
		require.NoError(t, b.AddLine(*ml))
	}
	e := b.Build()
	require.NotNil(t, e)
	return e
}

func newBuf(t *testing.T, data []byte) *streambuf.Buffer {
	t.Helper()
	buf, err := streambuf.New(bytes.NewReader(data))
	require.NoError(t, err)
	return buf
}

// Scenario 1: an unanchored literal never matches, whichever offset it's
// compared at — string comparisons are always anchored at the named
// offset, never a substring search.
func TestMatchAnchoredStringMiss(t *testing.T) {
	entry := buildEntry(t, `0	string	PDF-	PDF document`)
	data := []byte("%PDF-1.4")
	rec, err := MatchEntry(newBuf(t, data), 0, entry)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

// Scenario 2: a correctly anchored literal matches and produces the
// canonical leading-space description.
func TestMatchAnchoredStringHit(t *testing.T) {
	entry := buildEntry(t, `0	string	%PDF-	PDF document`)
	data := []byte("%PDF-1.4")
	rec, err := MatchEntry(newBuf(t, data), 0, entry)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, " PDF document", rec.Description)
	assert.Equal(t, 80, entry.Strength)
}

// Scenario 3: a fixed-width numeric comparison with no continuations.
func TestMatchNumericLiteral(t *testing.T) {
	entry := buildEntry(t, `0	belong	0xCAFEBABE	Java class`)
	data := []byte{0xCA, 0xFE, 0xBA, 0xBE, 0x00, 0x00, 0x00, 0x34}
	rec, err := MatchEntry(newBuf(t, data), 0, entry)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, " Java class", rec.Description)
}

// Scenario 4: a matched continuation line appends its own description.
func TestMatchContinuationDescends(t *testing.T) {
	entry := buildEntry(t,
		`0	belong	0xCAFEBABE	Java class`,
		`>6	beshort	x	version`,
	)
	data := []byte{0xCA, 0xFE, 0xBA, 0xBE, 0x00, 0x00, 0x00, 0x34}
	rec, err := MatchEntry(newBuf(t, data), 0, entry)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, " Java class version", rec.Description)
}

// Scenario 5: a numeric mask is applied to the fetched value before the
// relation is tested.
func TestMatchNumericMask(t *testing.T) {
	entry := buildEntry(t, `0	ulelong&0xFF00	=0x1200	tagged`)
	data := []byte{0xAB, 0x12, 0xCD, 0xEF}
	rec, err := MatchEntry(newBuf(t, data), 0, entry)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, " tagged", rec.Description)
}

// Scenario 6: an indirect offset whose action pushes the pointer past the
// end of the data is a non-match; removing the action and reading
// directly at the indirect pointer matches.
func TestMatchIndirectOffset(t *testing.T) {
	data := []byte{0x00, 0x00, 0x00, 0x04, 0x7F, 0x00, 0x00, 0x00}

	missEntry := buildEntry(t, `(0.L+4)	ubyte	=0x7F	marker`)
	rec, err := MatchEntry(newBuf(t, data), 0, missEntry)
	require.NoError(t, err)
	assert.Nil(t, rec)

	hitEntry := buildEntry(t, `(0.L)	ubyte	=0x7F	marker`)
	rec, err = MatchEntry(newBuf(t, data), 0, hitEntry)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, " marker", rec.Description)
}

func TestMatchWildcardRelationAlwaysMatches(t *testing.T) {
	entry := buildEntry(t, `0	byte	x	any byte present`)
	rec, err := MatchEntry(newBuf(t, []byte{0x01}), 0, entry)
	require.NoError(t, err)
	require.NotNil(t, rec)
}

func TestMatchNoMatchOnShortInput(t *testing.T) {
	entry := buildEntry(t, `0	belong	0xCAFEBABE	Java class`)
	rec, err := MatchEntry(newBuf(t, []byte{0xCA, 0xFE}), 0, entry)
	require.NoError(t, err)
	assert.Nil(t, rec)
}
