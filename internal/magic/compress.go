package magic

import "github.com/axiomhq/fsst"

// CompressedStrings is a trained FSST symbol table over every
// description, MIME type, Apple code and extension string in a loaded
// Database. A default rule directory merges thousands of short, highly
// repetitive strings ("PDF document", "image/png", ...); FSST's own
// documentation calls out exactly this shape of input ("database dumps",
// "text with common patterns") and gives ~5-10x faster decode than
// gzip/zstd at a smaller model size.
//
// This is additive: MagicLine.Description and friends remain plain Go
// strings for the match engine (internal/detector) to read directly off
// the matched line — the hot match path never touches this table.
// CompressedStrings exists for callers that want to cache or ship a
// loaded database's string table compactly, e.g. Database.Description,
// which every entry's root description is actually stored and read
// through (see encodedRootDescriptions below).
type CompressedStrings struct {
	table *fsst.Table
}

// BuildCompressedStrings trains a table over every aux/description
// string reachable from entries. Returns nil if there is nothing to
// compress.
func BuildCompressedStrings(entries []*MagicEntry) *CompressedStrings {
	var inputs [][]byte
	for _, e := range entries {
		for i := 0; i < e.NumLines(); i++ {
			l := e.Line(i)
			if l.Description != "" {
				inputs = append(inputs, []byte(l.Description))
			}
			if l.Aux == nil {
				continue
			}
			if l.Aux.Mime != "" {
				inputs = append(inputs, []byte(l.Aux.Mime))
			}
			if l.Aux.Apple != "" {
				inputs = append(inputs, []byte(l.Aux.Apple))
			}
			for _, ext := range l.Aux.Exts {
				inputs = append(inputs, []byte(ext))
			}
		}
	}
	if len(inputs) == 0 {
		return nil
	}
	return &CompressedStrings{table: fsst.Train(inputs)}
}

// Compress (re)builds db.Strings from db.Entries, then re-encodes every
// entry's root description through the freshly trained table. The
// plain-string MagicLine.Description is never overwritten — only this
// side cache is populated — so Database.Description is the one path
// that actually round-trips through FSST rather than reading the
// original string back.
func (db *Database) Compress() {
	db.Strings = BuildCompressedStrings(db.Entries)
	db.encodedRootDescriptions = make(map[*MagicEntry][]byte, len(db.Entries))
	for _, e := range db.Entries {
		db.encodedRootDescriptions[e] = db.Strings.Encode(e.Root().FormattedDescription())
	}
}

// Description returns e's root line description by decoding it back out
// of the database's trained FSST table, rather than reading
// MagicLine.Description directly. Falls back to the plain description if
// e was never compressed into this database (e.g. built by a caller that
// skipped Compress).
func (db *Database) Description(e *MagicEntry) string {
	encoded, ok := db.encodedRootDescriptions[e]
	if !ok {
		return e.Root().FormattedDescription()
	}
	return db.Strings.Decode(encoded)
}

// Encode compresses s with the trained table. Returns a copy of s's bytes
// unchanged if no table was trained (empty database).
func (c *CompressedStrings) Encode(s string) []byte {
	if c == nil || c.table == nil {
		return []byte(s)
	}
	return c.table.EncodeAll([]byte(s))
}

// Decode reverses Encode.
func (c *CompressedStrings) Decode(encoded []byte) string {
	if c == nil || c.table == nil {
		return string(encoded)
	}
	return string(c.table.DecodeAll(encoded))
}
