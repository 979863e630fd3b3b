// Package streambuf implements the position-tracked, buffered seekable
// source the match engine reads bytes through.
package streambuf

import (
	"io"

	"github.com/pkg/errors"
)

// windowSize is how much of the stream Buffer keeps resident around the
// current position before it needs to re-fill from the underlying
// io.ReadSeeker.
const windowSize = 64 * 1024

// ErrBufferTooSmall is returned by CastAt when the requested view would
// not fit inside the buffered region — typically because the requested
// offset is at or past end-of-stream. Callers in internal/detector treat
// this as "this line does not match" rather than an I/O failure: a read
// underflow or seek past end aborts the current line only, not the
// whole entry.
var ErrBufferTooSmall = errors.New("streambuf: buffer too small")

// SeekKind selects how a SeekTarget's Offset is interpreted.
type SeekKind int

const (
	SeekStart SeekKind = iota
	SeekEnd
	SeekCurrent
)

// SeekTarget names an absolute, end-relative or current-relative byte
// position.
type SeekTarget struct {
	Kind   SeekKind
	Offset int64
}

// Buffer wraps any io.ReadSeeker with a position-tracked read window
// supporting position queries, length queries, relative seeks and
// bounds-checked typed reads.
type Buffer struct {
	r io.ReadSeeker

	data     []byte
	winStart int64 // absolute offset of data[0]
	valid    int   // bytes of data actually holding stream content

	pos int64
	len int64
	haveLen bool
}

// New wraps r. The position starts at whatever r's current offset is
// (callers typically pass a stream already at 0).
func New(r io.ReadSeeker) (*Buffer, error) {
	pos, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, errors.Wrap(err, "streambuf: initial position")
	}
	return &Buffer{r: r, pos: pos, winStart: -1}, nil
}

// Position returns the current byte offset from the start of the stream.
func (b *Buffer) Position() int64 { return b.pos }

// Len returns the stream's total length, seeking to the end and restoring
// the underlying reader's position.
func (b *Buffer) Len() (int64, error) {
	if b.haveLen {
		return b.len, nil
	}
	cur, err := b.r.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, errors.Wrap(err, "streambuf: save position")
	}
	end, err := b.r.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, errors.Wrap(err, "streambuf: seek end")
	}
	if _, err := b.r.Seek(cur, io.SeekStart); err != nil {
		return 0, errors.Wrap(err, "streambuf: restore position")
	}
	b.len = end
	b.haveLen = true
	return end, nil
}

// SeekRelative moves the current position to t, interpreted as absolute,
// end-relative or current-relative per t.Kind, and performs a
// buffer-efficient relative seek: if the destination still falls inside
// the resident window, only the cursor moves; otherwise the window is
// dropped and refilled lazily on the next CastAt.
func (b *Buffer) SeekRelative(t SeekTarget) error {
	var abs int64
	switch t.Kind {
	case SeekStart:
		abs = t.Offset
	case SeekEnd:
		ln, err := b.Len()
		if err != nil {
			return err
		}
		abs = ln + t.Offset
	case SeekCurrent:
		abs = b.pos + t.Offset
	default:
		return errors.Errorf("streambuf: unknown seek kind %d", t.Kind)
	}
	if abs < 0 {
		return errors.Errorf("streambuf: negative offset %d", abs)
	}
	b.pos = abs
	return nil
}

// CastAt fills the internal buffer so that it covers [Position, Position+n)
// if possible, and returns a view into it of exactly n bytes. The
// returned slice aliases Buffer's internal storage and is only valid
// until the next call that moves or refills the window (SeekRelative
// past the resident window, or another CastAt); callers that need to
// retain the bytes must copy them first.
func (b *Buffer) CastAt(n int) ([]byte, error) {
	if n < 0 {
		return nil, errors.New("streambuf: negative size")
	}
	if !b.covers(b.pos, n) {
		if err := b.fill(b.pos); err != nil {
			return nil, err
		}
	}
	if !b.covers(b.pos, n) {
		return nil, ErrBufferTooSmall
	}
	off := int(b.pos - b.winStart)
	return b.data[off : off+n], nil
}

func (b *Buffer) covers(pos int64, n int) bool {
	if b.winStart < 0 {
		return false
	}
	if pos < b.winStart {
		return false
	}
	off := pos - b.winStart
	return off+int64(n) <= int64(b.valid)
}

func (b *Buffer) fill(at int64) error {
	if _, err := b.r.Seek(at, io.SeekStart); err != nil {
		return errors.Wrap(err, "streambuf: seek")
	}
	if cap(b.data) < windowSize {
		b.data = make([]byte, windowSize)
	}
	b.data = b.data[:windowSize]
	n, err := io.ReadFull(b.r, b.data)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return errors.Wrap(err, "streambuf: read")
	}
	b.winStart = at
	b.valid = n
	return nil
}
