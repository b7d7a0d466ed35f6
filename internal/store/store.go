// Package store keeps downloaded documents in a single flat directory.
// A file's presence under its final name means the download completed.
package store

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/mfenderov/doccorpus/pkg/models"
	"github.com/spf13/afero"
)

// partSuffix marks files still being written.
const partSuffix = ".part"

var (
	ErrExists      = errors.New("store: file already exists")
	ErrNotExist    = errors.New("store: directory does not exist")
	ErrInvalidName = errors.New("store: invalid filename")
)

// Store is a directory of downloaded document files.
type Store struct {
	fs  afero.Fs
	dir string
}

// New returns a Store rooted at dir, creating the directory if needed.
func New(fsys afero.Fs, dir string) (*Store, error) {
	exists, err := afero.DirExists(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to check directory %s: %w", dir, err)
	}
	if !exists {
		if err := fsys.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		slog.Info("created download directory", "dir", dir)
	}
	return &Store{fs: fsys, dir: dir}, nil
}

// Open returns a Store for an existing directory. A missing directory
// is reported as ErrNotExist.
func Open(fsys afero.Fs, dir string) (*Store, error) {
	exists, err := afero.DirExists(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to check directory %s: %w", dir, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotExist, dir)
	}
	return &Store{fs: fsys, dir: dir}, nil
}

// Dir returns the store's directory.
func (s *Store) Dir() string {
	return s.dir
}

// Fs returns the underlying filesystem.
func (s *Store) Fs() afero.Fs {
	return s.fs
}

// Path returns the full path for filename.
func (s *Store) Path(filename string) string {
	return filepath.Join(s.dir, filename)
}

// Has reports whether a completed file named filename is present.
func (s *Store) Has(filename string) (bool, error) {
	if err := validName(filename); err != nil {
		return false, err
	}
	ok, err := afero.Exists(s.fs, s.Path(filename))
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", filename, err)
	}
	return ok, nil
}

// Put writes r under filename. The bytes go to a ".part" file first and
// are renamed into place once fully written, so readers never see a
// truncated document under its final name. Existing files are never
// overwritten.
func (s *Store) Put(filename string, r io.Reader) (int64, error) {
	if err := validName(filename); err != nil {
		return 0, err
	}
	exists, err := s.Has(filename)
	if err != nil {
		return 0, err
	}
	if exists {
		return 0, fmt.Errorf("%w: %s", ErrExists, filename)
	}

	final := s.Path(filename)
	tmp := final + partSuffix

	f, err := s.fs.Create(tmp)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", tmp, err)
	}

	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		s.fs.Remove(tmp)
		return 0, fmt.Errorf("failed to write %s: %w", filename, err)
	}

	if err := s.fs.Rename(tmp, final); err != nil {
		s.fs.Remove(tmp)
		return 0, fmt.Errorf("failed to finalize %s: %w", filename, err)
	}

	return n, nil
}

// Open opens a stored file for reading.
func (s *Store) Open(filename string) (afero.File, error) {
	if err := validName(filename); err != nil {
		return nil, err
	}
	return s.fs.Open(s.Path(filename))
}

// List returns the records whose name ends in ext (case-insensitive),
// in directory order (sorted by name). Unfinished ".part" files and
// subdirectories are skipped.
func (s *Store) List(ext string) ([]models.DownloadRecord, error) {
	entries, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotExist, s.dir)
		}
		return nil, fmt.Errorf("failed to read directory %s: %w", s.dir, err)
	}

	ext = strings.ToLower(ext)
	var records []models.DownloadRecord
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(strings.ToLower(name), ext) {
			continue
		}
		records = append(records, models.DownloadRecord{Filename: name, Size: e.Size()})
	}
	return records, nil
}

func validName(filename string) error {
	if filename == "" || filename == "." || filename == ".." ||
		strings.ContainsAny(filename, `/\`) || strings.HasSuffix(filename, partSuffix) {
		return fmt.Errorf("%w: %q", ErrInvalidName, filename)
	}
	return nil
}
