package detector

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrNonMatch is the internal sentinel for "this line's expression or
// fetch failed in a way that just means it doesn't match, not an error":
// arithmetic overflow or divide-by-zero, read underflow, seek past end,
// or malformed UTF-16 decode. MatchEntry never returns it to its caller;
// it only ever decides "this line didn't match" with it.
var ErrNonMatch = errors.New("detector: non-match")

// MatchIoError reports a genuine I/O failure from the underlying stream
// encountered mid-match. Unlike ErrNonMatch, this aborts the current
// entry and MatchEntry returns it to its caller; Identify then stops and
// returns it without trying the remaining entries.
type MatchIoError struct {
	Offset int64
	Reason string
}

func (e *MatchIoError) Error() string {
	return fmt.Sprintf("match I/O error at offset %d: %s", e.Offset, e.Reason)
}
