package detector

import (
	"io/fs"

	"github.com/fileclass/gomagic/internal/magic"
	"github.com/fileclass/gomagic/internal/streambuf"
)

// Result is what callers outside this package see: the description and
// aux metadata produced by whichever detection method won.
type Result struct {
	Description string
	Mime        string
	Apple       string
	Exts        []string
}

// fallbackClassifiers run only once the magic database has failed to
// match anything, in fixed priority: tar and JSON both require
// re-reading the sniffed window under a specific lens, ASCII is the
// broadest and cheapest catch-all, tried last.
var fallbackClassifiers = []func(*streambuf.Buffer, fs.FileInfo) (string, bool){
	DetectTar,
	DetectJSON,
	DetectASCII,
}

// Identify tries the magic database first (highest strength first),
// falling back to the fixed-priority structural classifiers only when no
// database entry matches. DetectFilesystem runs before either: it needs
// no byte access at all, and a source with no readable bytes (a
// directory, a device node) cannot be handed to the database or the
// other classifiers in the first place. info may be nil when the caller
// has no fs.FileInfo (e.g. identifying an in-memory byte source);
// DetectFilesystem is skipped in that case.
func Identify(buf *streambuf.Buffer, info fs.FileInfo, db *magic.Database) (*Result, error) {
	if desc, ok := DetectFilesystem(buf, info); ok {
		return &Result{Description: desc}, nil
	}

	if db != nil {
		// db.Entries is sorted ascending by strength (internal/magic's
		// loader); walk it back to front so the most specific rule with
		// the highest strength gets first refusal.
		for i := len(db.Entries) - 1; i >= 0; i-- {
			entry := db.Entries[i]
			rec, err := MatchEntry(buf, 0, entry)
			if err != nil {
				if _, ok := err.(*MatchIoError); ok {
					return nil, err
				}
				continue
			}
			if rec == nil {
				continue
			}
			return &Result{
				Description: rec.Description,
				Mime:        rec.Mime,
				Apple:       rec.Apple,
				Exts:        rec.Exts,
			}, nil
		}
	}

	for _, classify := range fallbackClassifiers {
		if desc, ok := classify(buf, info); ok {
			return &Result{Description: desc}, nil
		}
	}

	return &Result{Description: "data"}, nil
}
