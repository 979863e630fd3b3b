package magic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressedStringsRoundTrip(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddLine(mustLine(t, "0\tstring\t%PDF-\tPDF document")))
	require.NoError(t, b.AttachAux(auxMime, "application/pdf"))
	require.NoError(t, b.AttachAux(auxExt, "pdf"))
	e := b.Build()
	require.NotNil(t, e)

	cs := BuildCompressedStrings([]*MagicEntry{e})
	require.NotNil(t, cs)

	for _, s := range []string{"PDF document", "application/pdf", "pdf"} {
		assert.Equal(t, s, cs.Decode(cs.Encode(s)))
	}
}

func TestCompressedStringsNilTableIsIdentity(t *testing.T) {
	var cs *CompressedStrings
	assert.Equal(t, []byte("hello"), cs.Encode("hello"))
	assert.Equal(t, "hello", cs.Decode([]byte("hello")))
}

func TestBuildCompressedStringsEmptyReturnsNil(t *testing.T) {
	assert.Nil(t, BuildCompressedStrings(nil))
}

func TestDatabaseDescriptionReadsThroughTrainedTable(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddLine(mustLine(t, "0\tstring\t%PDF-\tPDF document")))
	e := b.Build()
	require.NotNil(t, e)

	db := NewDatabase([]*MagicEntry{e})
	db.Compress()
	require.NotNil(t, db.Strings)

	assert.Equal(t, e.Root().FormattedDescription(), db.Description(e))
}

func TestDatabaseDescriptionFallsBackWhenUncompressed(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddLine(mustLine(t, "0\tstring\tfoo\tfoo file")))
	e := b.Build()
	require.NotNil(t, e)

	db := NewDatabase([]*MagicEntry{e})
	assert.Equal(t, e.Root().FormattedDescription(), db.Description(e))
}
