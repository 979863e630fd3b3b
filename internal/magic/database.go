package magic

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// Database is a read-only, loaded rule set: every MagicEntry parsed from
// one or more rule files, stable-sorted by ascending strength. Once built
// it may be shared across concurrent match invocations: Database itself
// is never mutated after loading.
type Database struct {
	Entries []*MagicEntry
	Strings *CompressedStrings

	// encodedRootDescriptions caches each entry's root description
	// encoded through Strings, populated by Compress. Description reads
	// back through it instead of the plain MagicLine.Description field.
	encodedRootDescriptions map[*MagicEntry][]byte
}

// NewDatabase stable-sorts entries by ascending strength and wraps them.
// Ties keep their original (file, then line-encounter) order.
func NewDatabase(entries []*MagicEntry) *Database {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Strength < entries[j].Strength
	})
	return &Database{Entries: entries}
}

// loadEntries reads text lines from r and segments them into entries. A
// read error mid-file is recorded as an IoError and, since the
// underlying reader cannot be trusted to make further progress, ends the
// scan for this file only — files already merged into the caller's
// database are unaffected.
func loadEntries(r io.Reader, filename string) ([]*MagicEntry, []error) {
	reader := bufio.NewReader(r)
	var entries []*MagicEntry
	var errs []error
	builder := NewBuilder()
	lineNo := 0

	flush := func() {
		if e := builder.Build(); e != nil {
			entries = append(entries, e)
		}
		builder = NewBuilder()
	}

	for {
		line, err := reader.ReadString('\n')
		if len(line) > 0 {
			lineNo++
			switch ClassifyLine(line) {
			case LineBlank, LineComment:
				// Comments and blank lines never close or interrupt the
				// entry currently being built.
			case LineAux:
				kind, payload, perr := ParseAuxLine(line)
				if perr != nil {
					errs = append(errs, &ParseError{File: filename, Line: lineNo, Reason: perr.Error()})
					continue
				}
				if builder.Empty() {
					continue
				}
				if aerr := builder.AttachAux(kind, payload); aerr != nil {
					errs = append(errs, &ParseError{File: filename, Line: lineNo, Reason: aerr.Error()})
				}
			case LineRule:
				ml, perr := ParseRuleLine(line)
				if perr != nil {
					errs = append(errs, &ParseError{File: filename, Line: lineNo, Reason: perr.Error()})
					continue
				}
				if ml.Depth == 0 && !builder.Empty() {
					flush()
				}
				if aerr := builder.AddLine(*ml); aerr != nil {
					errs = append(errs, &ParseError{File: filename, Line: lineNo, Reason: aerr.Error()})
				}
			}
		}
		if err != nil {
			if err != io.EOF {
				errs = append(errs, &IoError{File: filename, Reason: err.Error()})
			}
			break
		}
	}

	flush()
	return entries, errs
}

// LoadFile parses a single rule file into a Database.
func LoadFile(path string) (*Database, []error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, []error{&IoError{File: path, Reason: err.Error()}}
	}
	defer f.Close()

	entries, errs := loadEntries(f, path)
	db := NewDatabase(entries)
	db.Compress()
	return db, errs
}

// LoadDirectory loads every regular file in dir as a rule file and merges
// the results into one Database. Files that cannot be read are skipped;
// their IoError is included in the returned slice alongside any
// ParseErrors, and loading continues with the rest of the directory.
func LoadDirectory(dir string) (*Database, []error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, []error{&IoError{File: dir, Reason: err.Error()}}
	}

	var all []*MagicEntry
	var errs []error
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		info, err := de.Info()
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		path := filepath.Join(dir, de.Name())
		f, err := os.Open(path)
		if err != nil {
			errs = append(errs, &IoError{File: path, Reason: err.Error()})
			continue
		}
		entries, fileErrs := loadEntries(f, path)
		f.Close()
		all = append(all, entries...)
		errs = append(errs, fileErrs...)
	}

	db := NewDatabase(all)
	db.Compress()
	return db, errs
}

// DefaultMagicDirectory is the conventional rule directory.
const DefaultMagicDirectory = "/usr/share/file/magic"
