// Package dbapi is the query/mutation facade answering the DataBaseds
// command set against a datasource.Source.
package dbapi

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/agentic-research/tangodb/api"
	"github.com/agentic-research/tangodb/internal/datasource"
	"github.com/agentic-research/tangodb/internal/graph"
)

// StartTimeLayout formats the start-time of exported devices.
const StartTimeLayout = "2006-01-02 15:04:05.000000"

// Database serializes every call against one data source. Lookups take the
// read lock, mutations the write lock, so multi-index updates are observed
// atomically.
type Database struct {
	mu      sync.RWMutex
	src     *datasource.Source
	logger  *slog.Logger
	metrics *Metrics
	now     func() time.Time
}

// Option configures a Database.
type Option func(*Database)

func WithLogger(l *slog.Logger) Option {
	return func(db *Database) {
		if l != nil {
			db.logger = l
		}
	}
}

// WithMetrics records call counts and latencies into m.
func WithMetrics(m *Metrics) Option {
	return func(db *Database) { db.metrics = m }
}

// WithClock overrides the clock used for export start times.
func WithClock(now func() time.Time) Option {
	return func(db *Database) { db.now = now }
}

func New(src *datasource.Source, opts ...Option) *Database {
	db := &Database{
		src:    src,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(db)
	}
	db.metrics.observeSource(src)
	return db
}

// Swap replaces the data source and returns the previous one. The runtime
// side tables of the old source (exported devices, attribute aliases and
// attribute properties) are adopted by src. In-flight calls finish against
// the old source.
func (db *Database) Swap(src *datasource.Source) *datasource.Source {
	db.mu.Lock()
	defer db.mu.Unlock()
	old := db.src
	src.Adopt(old)
	db.src = src
	db.metrics.observeSource(src)
	db.logger.Info("data source swapped", "entities", src.Entities().Len(), "problems", len(src.Problems()))
	return old
}

// View runs fn under the read lock. fn must not retain nodes after it
// returns.
func (db *Database) View(fn func(*datasource.Source) error) error {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return fn(db.src)
}

func (db *Database) read(op string, fn func(*datasource.Source) error) error {
	start := time.Now()
	db.mu.RLock()
	err := fn(db.src)
	db.mu.RUnlock()
	db.observe(op, start, err)
	return err
}

func (db *Database) write(op string, fn func(*datasource.Source) error) error {
	start := time.Now()
	db.mu.Lock()
	err := fn(db.src)
	db.mu.Unlock()
	db.observe(op, start, err)
	return err
}

func (db *Database) observe(op string, start time.Time, err error) {
	elapsed := time.Since(start)
	db.metrics.observeCall(op, elapsed, err)
	if err != nil {
		db.logger.Debug("call failed", "op", op, "duration", elapsed, "err", err)
		return
	}
	db.logger.Debug("call", "op", op, "duration", elapsed)
}

// save hands n to the persistence hook. A failing hook is logged; the
// mutation itself has already been applied.
func (db *Database) save(op string, n *graph.Node) {
	if n == nil {
		return
	}
	if err := n.Save(); err != nil {
		db.logger.Warn("save failed", "op", op, "err", err)
	}
}

func (db *Database) unsupported(op string, args ...any) {
	db.logger.Warn("not implemented", append([]any{"op", op}, args...)...)
}

// resultOf classifies err for the metrics result label.
func resultOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, api.ErrNotFound):
		return "not_found"
	case errors.Is(err, api.ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, api.ErrMalformed):
		return "malformed"
	case errors.Is(err, api.ErrUnsupported):
		return "unsupported"
	default:
		return "error"
	}
}

func notFound(op, entity string) error {
	return api.NotFound(op, graph.Normalize(entity))
}

func incorrectArgs(op, entity string) error {
	return &api.Error{Op: op, Entity: graph.Normalize(entity), Reason: api.ReasonIncorrectArguments, Err: api.ErrNotFound}
}
