package detector

import (
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectASCIIPlainText(t *testing.T) {
	desc, ok := DetectASCII(newBuf(t, []byte("hello\nworld\n")), nil)
	assert.True(t, ok)
	assert.Equal(t, "ASCII text", desc)
}

func TestDetectASCIIRejectsBinary(t *testing.T) {
	_, ok := DetectASCII(newBuf(t, []byte{0x00, 0x01, 0x02}), nil)
	assert.False(t, ok)
}

func TestDetectJSONObject(t *testing.T) {
	desc, ok := DetectJSON(newBuf(t, []byte(`{"a": [1, 2, 3]}`)), nil)
	assert.True(t, ok)
	assert.Equal(t, "JSON text data", desc)
}

func TestDetectJSONRejectsTruncated(t *testing.T) {
	_, ok := DetectJSON(newBuf(t, []byte(`{"a": `)), nil)
	assert.False(t, ok)
}

func TestDetectJSONRejectsPlainText(t *testing.T) {
	_, ok := DetectJSON(newBuf(t, []byte("just some words")), nil)
	assert.False(t, ok)
}

// buildTarBlock assembles a minimal 512-byte ustar header with a correct
// checksum, the way a real archive writer would compute one: sum the block
// with the checksum field blanked to spaces, then format that sum in place.
func buildTarBlock(t *testing.T) []byte {
	t.Helper()
	block := make([]byte, 512)
	copy(block[0:100], "file.txt")
	copy(block[tarMagicOffset:], "ustar\x0000")
	for i := tarChecksumOffset; i < tarChecksumOffset+tarChecksumLen; i++ {
		block[i] = ' '
	}
	sum := 0
	for _, b := range block {
		sum += int(b)
	}
	chk := fmt.Sprintf("%06o\x00 ", sum)
	require.Len(t, chk, tarChecksumLen)
	copy(block[tarChecksumOffset:], chk)
	return block
}

func TestDetectTarValidHeader(t *testing.T) {
	desc, ok := DetectTar(newBuf(t, buildTarBlock(t)), nil)
	assert.True(t, ok)
	assert.Equal(t, "POSIX tar archive", desc)
}

func TestDetectTarRejectsBadChecksum(t *testing.T) {
	block := buildTarBlock(t)
	block[0] ^= 0xFF // corrupt a data byte without touching the checksum
	_, ok := DetectTar(newBuf(t, block), nil)
	assert.False(t, ok)
}

func TestDetectTarRejectsShortInput(t *testing.T) {
	_, ok := DetectTar(newBuf(t, []byte("too short")), nil)
	assert.False(t, ok)
}

type fakeFileInfo struct {
	os.FileInfo
	mode os.FileMode
}

func (f fakeFileInfo) Mode() os.FileMode { return f.mode }

func TestDetectFilesystemDirectory(t *testing.T) {
	desc, ok := DetectFilesystem(nil, fakeFileInfo{mode: os.ModeDir})
	assert.True(t, ok)
	assert.Equal(t, "directory", desc)
}

func TestDetectFilesystemSymlink(t *testing.T) {
	desc, ok := DetectFilesystem(nil, fakeFileInfo{mode: os.ModeSymlink})
	assert.True(t, ok)
	assert.Equal(t, "symbolic link", desc)
}

func TestDetectFilesystemCharDevice(t *testing.T) {
	desc, ok := DetectFilesystem(nil, fakeFileInfo{mode: os.ModeDevice | os.ModeCharDevice})
	assert.True(t, ok)
	assert.Equal(t, "character special file", desc)
}

func TestDetectFilesystemRegularFileDeclines(t *testing.T) {
	_, ok := DetectFilesystem(nil, fakeFileInfo{mode: 0})
	assert.False(t, ok)
}
