package magic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyLine(t *testing.T) {
	assert.Equal(t, LineBlank, ClassifyLine(""))
	assert.Equal(t, LineComment, ClassifyLine("# a comment"))
	assert.Equal(t, LineAux, ClassifyLine("!:mime text/plain"))
	assert.Equal(t, LineRule, ClassifyLine("0\tstring\tfoo\tbar"))
	assert.Equal(t, LineRule, ClassifyLine(">4\tbyte\tx\tbar"))
	assert.Equal(t, LineRule, ClassifyLine("&0\tbyte\tx\tbar"))
}

func TestParseAuxLine(t *testing.T) {
	kind, payload, err := ParseAuxLine("!:mime\ttext/plain")
	require.NoError(t, err)
	assert.Equal(t, "mime", kind)
	assert.Equal(t, "text/plain", payload)
}

func TestParseRuleLineSimple(t *testing.T) {
	ml, err := ParseRuleLine("0\tstring\t\\x7fELF\tELF executable")
	require.NoError(t, err)
	assert.Equal(t, uint32(0), ml.Depth)
	assert.Equal(t, String, ml.CompareType.Type)
	require.NotNil(t, ml.Relation)
	assert.Equal(t, []byte{0x7f, 'E', 'L', 'F'}, ml.Relation.Value.Bytes())
	assert.Equal(t, " ELF executable", ml.FormattedDescription())
}

func TestParseRuleLineContinuation(t *testing.T) {
	ml, err := ParseRuleLine(">>4\tbelong\t0x12345678\tversion")
	require.NoError(t, err)
	assert.Equal(t, uint32(2), ml.Depth)
	assert.Equal(t, BeLong, ml.CompareType.Type)
	assert.Equal(t, uint64(0x12345678), ml.Relation.Value.Uint64())
}

func TestParseRuleLineWildcardRelation(t *testing.T) {
	ml, err := ParseRuleLine("0\tbyte\tx\tany byte")
	require.NoError(t, err)
	assert.Nil(t, ml.Relation)
}

func TestParseTypeFieldUnsignedPrefix(t *testing.T) {
	sc := &scanner{s: "ulong"}
	st, err := parseTypeField(sc)
	require.NoError(t, err)
	assert.True(t, st.Unsigned)
	assert.Equal(t, Long, st.Type)
}

func TestParseTypeFieldUsePseudoType(t *testing.T) {
	// "use" begins with 'u' but must resolve directly, not as u+"se".
	sc := &scanner{s: "use"}
	st, err := parseTypeField(sc)
	require.NoError(t, err)
	assert.False(t, st.Unsigned)
	assert.Equal(t, Use, st.Type)
}

func TestParseIndirectOffset(t *testing.T) {
	e, err := parseOffset(&scanner{s: "(0.l+4)"})
	require.NoError(t, err)
	assert.Equal(t, ExprIndirect, e.Kind)
	assert.Equal(t, LeLong, e.Indirect.Type)
	assert.True(t, e.Indirect.Unsigned)
	require.NotNil(t, e.Action)
	require.NotNil(t, e.Action.Num)
	assert.Equal(t, OpAdd, e.Action.Num.Op)
}

func TestParseMaskStringFlags(t *testing.T) {
	action, err := parseMask(&scanner{s: "/Wc"}, String)
	require.NoError(t, err)
	require.NotNil(t, action.Str)
	assert.True(t, action.Str.Flags.Has(CompactWhitespace))
	assert.True(t, action.Str.Flags.Has(IgnoreLowercase))
}
