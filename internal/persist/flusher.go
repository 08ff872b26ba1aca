package persist

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/agentic-research/tangodb/internal/datasource"
	"github.com/agentic-research/tangodb/internal/dbapi"
	"github.com/agentic-research/tangodb/internal/graph"
)

// Flusher is the graph.Saver of a live database. Save only marks the
// database dirty; a coalescing goroutine takes a read-locked copy of the
// records at most once per tick and writes the snapshot outside the lock.
//
// Call Start to begin coalescing and Close to stop it with a final flush.
type Flusher struct {
	db     *dbapi.Database
	path   string
	logger *slog.Logger

	mu       sync.Mutex
	dirty    bool
	flushErr error // last flush error, readable via LastError()
	last     Meta
	tick     *time.Ticker
	stopCh   chan struct{}
	stopped  bool

	// flushing serializes snapshot writes.
	flushing sync.Mutex
}

var _ graph.Saver = (*Flusher)(nil)

// NewFlusher creates a flusher writing snapshots of db to path.
func NewFlusher(db *dbapi.Database, path string, logger *slog.Logger) *Flusher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Flusher{
		db:     db,
		path:   path,
		logger: logger,
		stopCh: make(chan struct{}),
	}
}

// Save implements graph.Saver.
func (f *Flusher) Save(*graph.Node) error {
	f.RequestFlush()
	return nil
}

// Start begins the coalescing goroutine that flushes at most once per
// interval when dirty. Safe to call multiple times.
func (f *Flusher) Start(interval time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tick != nil || f.stopped {
		return
	}
	f.tick = time.NewTicker(interval)
	go f.coalesceLoop()
}

func (f *Flusher) coalesceLoop() {
	for {
		select {
		case <-f.tick.C:
			f.mu.Lock()
			if !f.dirty {
				f.mu.Unlock()
				continue
			}
			f.dirty = false
			f.mu.Unlock()
			if err := f.flush(); err != nil {
				f.logger.Error("snapshot flush failed", "path", f.path, "err", err)
			}
		case <-f.stopCh:
			return
		}
	}
}

// RequestFlush marks the flusher dirty. Non-blocking.
func (f *Flusher) RequestFlush() {
	f.mu.Lock()
	f.dirty = true
	f.mu.Unlock()
}

// FlushNow writes a snapshot synchronously.
func (f *Flusher) FlushNow() error {
	f.mu.Lock()
	f.dirty = false
	f.mu.Unlock()
	return f.flush()
}

// LastError returns the error of the last flush, or nil if it succeeded.
func (f *Flusher) LastError() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.flushErr
}

// Last returns the metadata of the last snapshot written.
func (f *Flusher) Last() Meta {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

// Close stops the coalescing goroutine and flushes once more if dirty.
func (f *Flusher) Close() error {
	f.mu.Lock()
	if f.stopped {
		f.mu.Unlock()
		return nil
	}
	f.stopped = true
	wasDirty := f.dirty
	f.dirty = false
	if f.tick != nil {
		f.tick.Stop()
		close(f.stopCh)
	}
	f.mu.Unlock()

	if wasDirty {
		return f.flush()
	}
	return nil
}

func (f *Flusher) flush() error {
	f.flushing.Lock()
	defer f.flushing.Unlock()

	var (
		records  []any
		identity string
	)
	_ = f.db.View(func(s *datasource.Source) error {
		records = Records(s)
		identity = s.Identity()
		return nil
	})

	meta, err := Write(context.Background(), f.path, identity, records)

	f.mu.Lock()
	f.flushErr = err
	if err == nil {
		f.last = meta
	}
	f.mu.Unlock()
	if err != nil {
		return err
	}
	f.logger.Debug("snapshot written", "path", f.path, "generation", meta.Generation, "records", meta.Records)
	return nil
}
