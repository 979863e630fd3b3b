package streambuf

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCastAtReadsAtPosition(t *testing.T) {
	buf, err := New(bytes.NewReader([]byte("hello world")))
	require.NoError(t, err)

	got, err := buf.CastAt(5)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)
}

func TestSeekRelativeKinds(t *testing.T) {
	buf, err := New(bytes.NewReader([]byte("0123456789")))
	require.NoError(t, err)

	require.NoError(t, buf.SeekRelative(SeekTarget{Kind: SeekStart, Offset: 3}))
	got, err := buf.CastAt(2)
	require.NoError(t, err)
	assert.Equal(t, []byte("34"), got)

	require.NoError(t, buf.SeekRelative(SeekTarget{Kind: SeekCurrent, Offset: 2}))
	got, err = buf.CastAt(2)
	require.NoError(t, err)
	assert.Equal(t, []byte("56"), got)

	require.NoError(t, buf.SeekRelative(SeekTarget{Kind: SeekEnd, Offset: -1}))
	got, err = buf.CastAt(1)
	require.NoError(t, err)
	assert.Equal(t, []byte("9"), got)
}

func TestCastAtPastEndReturnsSentinel(t *testing.T) {
	buf, err := New(bytes.NewReader([]byte("abc")))
	require.NoError(t, err)

	require.NoError(t, buf.SeekRelative(SeekTarget{Kind: SeekStart, Offset: 1}))
	_, err = buf.CastAt(10)
	assert.ErrorIs(t, err, ErrBufferTooSmall)
}

func TestLenCachesAndRestoresPosition(t *testing.T) {
	buf, err := New(bytes.NewReader([]byte("abcdef")))
	require.NoError(t, err)

	require.NoError(t, buf.SeekRelative(SeekTarget{Kind: SeekStart, Offset: 2}))
	n, err := buf.Len()
	require.NoError(t, err)
	assert.EqualValues(t, 6, n)
	assert.EqualValues(t, 2, buf.Position())
}
