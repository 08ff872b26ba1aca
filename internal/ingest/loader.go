// Package ingest reads configuration documents from a directory tree into a
// raw forest of ordered maps, lists and scalars.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"runtime"
	"slices"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"golang.org/x/sync/errgroup"
)

// InitFile is read before every other file of its directory.
const InitFile = "__init__.yml"

// ErrNotDirectory is returned when the load root is not a directory.
var ErrNotDirectory = errors.New("not a directory")

// FileError reports a file that could not be decoded.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string { return fmt.Sprintf("decode %s: %v", e.Path, e.Err) }
func (e *FileError) Unwrap() error { return e.Err }

// FileErrors returns the per-file errors joined into err by Load. It
// returns nil when err is nil or is a failure of the whole load.
func FileErrors(err error) []error {
	if err == nil {
		return nil
	}
	errs := []error{err}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs = joined.Unwrap()
	}
	var out []error
	for _, e := range errs {
		var fe *FileError
		if !errors.As(e, &fe) {
			return nil
		}
		out = append(out, e)
	}
	return out
}

// Loader walks a filesystem and decodes every document it finds.
type Loader struct {
	fs      billy.Filesystem
	logger  *slog.Logger
	workers int
}

// Option configures a Loader.
type Option func(*Loader)

func WithLogger(l *slog.Logger) Option {
	return func(ld *Loader) {
		if l != nil {
			ld.logger = l
		}
	}
}

// WithWorkers bounds the number of files decoded concurrently.
func WithWorkers(n int) Option {
	return func(ld *Loader) {
		if n > 0 {
			ld.workers = n
		}
	}
}

func NewLoader(fs billy.Filesystem, opts ...Option) *Loader {
	ld := &Loader{
		fs:      fs,
		logger:  slog.Default(),
		workers: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(ld)
	}
	return ld
}

// LoadDir loads every document below dir on the host filesystem.
func LoadDir(ctx context.Context, dir string, opts ...Option) ([]any, error) {
	return NewLoader(osfs.New(dir), opts...).Load(ctx, "/")
}

// Load returns the documents below root in walk order: per directory the
// init file first, the other files in name order, then each subdirectory.
// Files are decoded in parallel; the order of the result does not depend on
// decode timing.
//
// A file that fails to decode is logged and skipped. The documents of every
// other file are still returned, together with the *FileError of each
// skipped file joined into err (see FileErrors).
func (ld *Loader) Load(ctx context.Context, root string) ([]any, error) {
	info, err := ld.fs.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("load %s: %w", root, ErrNotDirectory)
	}

	files, err := ld.walk(root, nil)
	if err != nil {
		return nil, err
	}

	docs := make([][]any, len(files))
	failed := make([]error, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(ld.workers)
	for i, file := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			d, err := ld.decodeFile(file)
			if err != nil {
				ld.logger.Error("document file skipped", "path", file, "err", err)
				failed[i] = &FileError{Path: file, Err: err}
				return nil
			}
			docs[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var forest []any
	for _, d := range docs {
		forest = append(forest, d...)
	}
	ld.logger.Debug("documents loaded", "root", root, "files", len(files), "documents", len(forest))
	return forest, errors.Join(failed...)
}

// walk lists the loadable files below dir. seen holds the directories on the
// current path so that a symlink cycle is entered only once.
func (ld *Loader) walk(dir string, seen []string) ([]string, error) {
	if slices.Contains(seen, ld.realPath(dir)) {
		ld.logger.Warn("symlink cycle skipped", "dir", dir)
		return nil, nil
	}
	seen = append(seen, ld.realPath(dir))

	entries, err := ld.fs.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	var files, dirs []string
	slices.SortFunc(entries, func(a, b os.FileInfo) int { return strings.Compare(a.Name(), b.Name()) })
	for _, e := range entries {
		p := path.Join(dir, e.Name())
		if e.Mode()&os.ModeSymlink != 0 {
			target, err := ld.fs.Stat(p)
			if err != nil {
				ld.logger.Warn("dangling symlink skipped", "path", p, "err", err)
				continue
			}
			if target.IsDir() {
				// Walk the target itself so nested paths never cross a link.
				dirs = append(dirs, ld.realPath(p))
				continue
			}
			e = target
		}
		switch {
		case e.IsDir():
			dirs = append(dirs, p)
		case loadable(p):
			files = append(files, p)
		}
	}
	slices.SortFunc(files, func(a, b string) int {
		ai, bi := path.Base(a) == InitFile, path.Base(b) == InitFile
		switch {
		case ai && !bi:
			return -1
		case bi && !ai:
			return 1
		}
		return strings.Compare(a, b)
	})

	for _, d := range dirs {
		sub, err := ld.walk(d, seen)
		if err != nil {
			return nil, err
		}
		files = append(files, sub...)
	}
	return files, nil
}

// realPath resolves symlinks of p where the filesystem supports it.
func (ld *Loader) realPath(p string) string {
	link, err := ld.fs.Readlink(p)
	if err != nil {
		return path.Clean(p)
	}
	if !path.IsAbs(link) {
		link = path.Join(path.Dir(p), link)
	}
	return path.Clean(link)
}

func loadable(p string) bool {
	switch path.Ext(p) {
	case ".yml", ".yaml", ".db":
		return true
	}
	return false
}

func (ld *Loader) decodeFile(p string) ([]any, error) {
	ld.logger.Debug("reading document file", "path", p)
	if path.Ext(p) == ".db" {
		return ld.loadSnapshot(p)
	}
	f, err := ld.fs.Open(p)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }() // read-only
	return DecodeYAML(f)
}

// loadSnapshot copies a .db file out of the filesystem so the SQLite driver
// can open it, then reads its records.
func (ld *Loader) loadSnapshot(p string) ([]any, error) {
	src, err := ld.fs.Open(p)
	if err != nil {
		return nil, err
	}
	defer func() { _ = src.Close() }()

	tmp, err := os.CreateTemp("", "tangodb-*.db")
	if err != nil {
		return nil, fmt.Errorf("stage: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := io.Copy(tmp, src); err != nil {
		_ = tmp.Close()
		return nil, fmt.Errorf("stage: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("stage: %w", err)
	}
	return LoadSQLite(tmp.Name())
}
