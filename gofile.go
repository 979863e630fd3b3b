// Package gomagic provides a pure Go implementation of the Unix file
// command's rule-based type detection: a magic(5) rule parser and a
// streaming match engine, with no cgo dependency on libmagic.
package gomagic

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/fileclass/gomagic/internal/detector"
	"github.com/fileclass/gomagic/internal/magic"
	"github.com/fileclass/gomagic/internal/streambuf"
)

// File is a configured type detector: a loaded rule database plus the
// options controlling how files are opened and reported.
type File struct {
	database *magic.Database
	options  Options
}

// Options configures detector behavior.
type Options struct {
	MagicFiles     []string // Custom magic files to load; defaults to DefaultMagicDirectory
	FollowSymlinks bool     // Follow symbolic links when identifying by path
	KeepGoing      bool     // Stored but not read: Identify and IdentifyFile always stop at the first matching entry
}

// New creates a File detector loaded from the default magic directory.
func New() (*File, error) {
	return NewWithOptions(Options{})
}

// NewWithOptions creates a File detector with custom options.
func NewWithOptions(opts Options) (*File, error) {
	var db *magic.Database
	var errs []error

	if len(opts.MagicFiles) > 0 {
		var entries []*magic.MagicEntry
		for _, path := range opts.MagicFiles {
			fileDB, fileErrs := magic.LoadFile(path)
			errs = append(errs, fileErrs...)
			if fileDB != nil {
				entries = append(entries, fileDB.Entries...)
			}
		}
		db = magic.NewDatabase(entries)
		db.Compress()
	} else {
		var loadErrs []error
		db, loadErrs = magic.LoadDirectory(magic.DefaultMagicDirectory)
		errs = append(errs, loadErrs...)
	}

	if db == nil || len(db.Entries) == 0 {
		if len(errs) > 0 {
			return nil, errors.Wrap(errs[0], "gomagic: failed to load any magic rules")
		}
		return nil, errors.New("gomagic: no magic rules loaded")
	}

	return &File{database: db, options: opts}, nil
}

// IdentifyFile identifies the type of the file at path, handling
// directories, symlinks and special files without ever opening them for
// byte-level reading.
func (f *File) IdentifyFile(path string) (string, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return "", errors.Wrapf(err, "gomagic: cannot stat %s", path)
	}

	if info.Mode()&os.ModeSymlink != 0 && !f.options.FollowSymlinks {
		target, _ := os.Readlink(path)
		if target != "" {
			return fmt.Sprintf("symbolic link to %s", target), nil
		}
		return "symbolic link", nil
	}
	if info.Mode()&os.ModeSymlink != 0 {
		info, err = os.Stat(path)
		if err != nil {
			return "", errors.Wrapf(err, "gomagic: cannot stat %s", path)
		}
	}

	if result, ok := detector.DetectFilesystem(nil, info); ok {
		return result, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return "", errors.Wrapf(err, "gomagic: cannot open %s", path)
	}
	defer file.Close()

	return f.identify(file, info)
}

// Identify identifies the type of data read from r. r must support
// seeking so the match engine can revisit earlier offsets (e.g. an
// *os.File, or a seekable wrapper around an in-memory buffer).
func (f *File) Identify(r io.ReadSeeker) (string, error) {
	return f.identify(r, nil)
}

func (f *File) identify(r io.ReadSeeker, info os.FileInfo) (string, error) {
	buf, err := streambuf.New(r)
	if err != nil {
		return "", errors.Wrap(err, "gomagic: failed to open source")
	}

	result, err := detector.Identify(buf, info, f.database)
	if err != nil {
		return "", errors.Wrap(err, "gomagic: identification failed")
	}
	return result.Description, nil
}

// GetDatabase returns the loaded magic database.
func (f *File) GetDatabase() *magic.Database {
	return f.database
}

// ListMagic returns every loaded entry's description annotated with its
// computed strength, in the ascending order the database stores them.
func (f *File) ListMagic() []string {
	out := make([]string, 0, len(f.database.Entries))
	for _, e := range f.database.Entries {
		out = append(out, fmt.Sprintf("Strength = %3d: %s", e.Strength, f.database.Description(e)))
	}
	return out
}
