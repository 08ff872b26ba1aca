// Package watch reloads the database when its document tree changes.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/agentic-research/tangodb/internal/datasource"
	"github.com/agentic-research/tangodb/internal/dbapi"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last change before a reload.
const DefaultDebounce = 250 * time.Millisecond

// LoadFunc builds a fresh data source from the document tree.
type LoadFunc func(ctx context.Context) (*datasource.Source, error)

// Watcher swaps the data source of a database whenever the watched tree
// settles after a change. A failed load keeps the current source.
type Watcher struct {
	root     string
	db       *dbapi.Database
	load     LoadFunc
	debounce time.Duration
	logger   *slog.Logger
	onSwap   func(*datasource.Source)
}

// Option configures a Watcher.
type Option func(*Watcher)

func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// OnSwap registers a hook called with every newly installed source, before
// the old one is dropped. Use it to attach a saver.
func OnSwap(fn func(*datasource.Source)) Option {
	return func(w *Watcher) { w.onSwap = fn }
}

func New(root string, db *dbapi.Database, load LoadFunc, opts ...Option) *Watcher {
	w := &Watcher{
		root:     root,
		db:       db,
		load:     load,
		debounce: DefaultDebounce,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Reload loads the tree once and swaps it in.
func (w *Watcher) Reload(ctx context.Context) error {
	src, err := w.load(ctx)
	if err != nil {
		w.logger.Error("reload failed, keeping current configuration", "root", w.root, "err", err)
		return err
	}
	if w.onSwap != nil {
		w.onSwap(src)
	}
	w.db.Swap(src)
	return nil
}

// Run watches root until ctx is done. Changes are batched; the tree is
// reloaded once per quiet period.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = fw.Close() }()

	if err := addRecursive(fw, w.root); err != nil {
		return err
	}
	w.logger.Info("watching for changes", "root", w.root, "debounce", w.debounce)

	var (
		timer   *time.Timer
		timerC  <-chan time.Time
		pending int
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := addRecursive(fw, ev.Name); err != nil {
						w.logger.Warn("cannot watch new directory", "dir", ev.Name, "err", err)
					}
				}
			}
			if !relevant(ev) {
				continue
			}
			pending++
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "err", err)
		case <-timerC:
			timer, timerC = nil, nil
			w.logger.Info("documents changed, reloading", "events", pending)
			pending = 0
			_ = w.Reload(ctx)
		}
	}
}

func relevant(ev fsnotify.Event) bool {
	if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
		return false
	}
	switch strings.ToLower(filepath.Ext(ev.Name)) {
	case ".yml", ".yaml", ".db":
		return true
	case "":
		// Removed or renamed directories.
		return ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)
	}
	return false
}

// addRecursive watches root and every directory below it, following
// symlinks the way the loader does.
func addRecursive(fw *fsnotify.Watcher, root string) error {
	seen := map[string]bool{}
	var walk func(dir string) error
	walk = func(dir string) error {
		resolved, err := filepath.EvalSymlinks(dir)
		if err != nil {
			return nil
		}
		if seen[resolved] {
			return nil
		}
		seen[resolved] = true
		if err := fw.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return fmt.Errorf("read dir %s: %w", dir, err)
		}
		for _, e := range entries {
			p := filepath.Join(dir, e.Name())
			info, err := os.Stat(p)
			if err != nil || !info.IsDir() {
				continue
			}
			if err := walk(p); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(root)
}
