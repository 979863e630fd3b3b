package detector

import (
	"bytes"
	"encoding/json"
	"io/fs"
	"unicode/utf8"

	"github.com/fileclass/gomagic/internal/streambuf"
)

// sniffWindow bounds how many leading bytes the structural classifiers
// look at. None of ASCII/JSON/tar detection needs the whole file, and
// capping this keeps them cheap even against a multi-gigabyte source.
const sniffWindow = 4096

// DetectASCII reports whether the source's opening bytes are all valid
// UTF-8 text with no NUL bytes and no control characters outside the
// common whitespace set. Identify tries it last, after the magic database
// and the tar and JSON classifiers, as the broadest catch-all.
func DetectASCII(buf *streambuf.Buffer, _ fs.FileInfo) (string, bool) {
	raw, err := peek(buf)
	if err != nil || len(raw) == 0 {
		return "", false
	}
	if !utf8.Valid(raw) {
		return "", false
	}
	for _, b := range raw {
		if b == '\n' || b == '\r' || b == '\t' {
			continue
		}
		if b < 0x20 || b == 0x7f {
			return "", false
		}
	}
	return "ASCII text", true
}

// DetectJSON reports whether the source decodes as a single JSON value
// (object, array, string, number, bool or null) using encoding/json's own
// validator rather than a hand-rolled brace-matcher.
func DetectJSON(buf *streambuf.Buffer, _ fs.FileInfo) (string, bool) {
	raw, err := peek(buf)
	if err != nil || len(raw) == 0 {
		return "", false
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "", false
	}
	switch trimmed[0] {
	case '{', '[', '"', '-', 't', 'f', 'n', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
	default:
		return "", false
	}
	if !json.Valid(trimmed) {
		return "", false
	}
	return "JSON text data", true
}

// tarMagicOffset locates the ustar magic string at offset 257 inside a
// 512-byte tar header block; tarChecksumOffset/tarChecksumLen locate the octal
// checksum field that validates the rest of the block actually is one.
const (
	tarMagicOffset    = 257
	tarChecksumOffset = 148
	tarChecksumLen    = 8
)

// DetectTar reports whether the source begins with a valid ustar header
// block: the "ustar" magic at its conventional offset and a checksum
// field whose value matches a sum over the block with checksum bytes
// treated as spaces (the algorithm POSIX tar implementations use to
// validate a header without trusting any other field first).
func DetectTar(buf *streambuf.Buffer, _ fs.FileInfo) (string, bool) {
	if err := buf.SeekRelative(streambuf.SeekTarget{Kind: streambuf.SeekStart, Offset: 0}); err != nil {
		return "", false
	}
	block, err := buf.CastAt(512)
	if err != nil {
		return "", false
	}
	if !bytes.HasPrefix(block[tarMagicOffset:], []byte("ustar")) {
		return "", false
	}

	want, ok := parseOctalField(block[tarChecksumOffset : tarChecksumOffset+tarChecksumLen])
	if !ok {
		return "", false
	}
	sum := 0
	for i, b := range block {
		if i >= tarChecksumOffset && i < tarChecksumOffset+tarChecksumLen {
			b = ' '
		}
		sum += int(b)
	}
	if sum != want {
		return "", false
	}
	return "POSIX tar archive", true
}

func parseOctalField(b []byte) (int, bool) {
	n := 0
	seenDigit := false
	for _, c := range b {
		if c == 0 || c == ' ' {
			if seenDigit {
				break
			}
			continue
		}
		if c < '0' || c > '7' {
			return 0, false
		}
		n = n*8 + int(c-'0')
		seenDigit = true
	}
	return n, seenDigit
}

// DetectFilesystem reports a description derived purely from directory
// entry metadata, for sources the caller can stat but has no byte
// content for (named pipes, sockets, block/char devices, directories).
// It never touches buf.
func DetectFilesystem(_ *streambuf.Buffer, info fs.FileInfo) (string, bool) {
	if info == nil {
		return "", false
	}
	mode := info.Mode()
	switch {
	case mode.IsDir():
		return "directory", true
	case mode&fs.ModeSymlink != 0:
		return "symbolic link", true
	case mode&fs.ModeNamedPipe != 0:
		return "fifo (named pipe)", true
	case mode&fs.ModeSocket != 0:
		return "socket", true
	case mode&fs.ModeDevice != 0:
		if mode&fs.ModeCharDevice != 0 {
			return "character special file", true
		}
		return "block special file", true
	}
	return "", false
}

func peek(buf *streambuf.Buffer) ([]byte, error) {
	if err := buf.SeekRelative(streambuf.SeekTarget{Kind: streambuf.SeekStart, Offset: 0}); err != nil {
		return nil, err
	}
	raw, err := buf.CastAt(sniffWindow)
	if err != nil {
		if err == streambuf.ErrBufferTooSmall {
			length, lerr := buf.Len()
			if lerr != nil {
				return nil, lerr
			}
			if length == 0 {
				return nil, nil
			}
			return buf.CastAt(int(length))
		}
		return nil, err
	}
	return raw, nil
}
