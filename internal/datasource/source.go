// Package datasource turns a loaded document forest into the indexed node
// tree served by the database facade.
package datasource

import (
	"log/slog"

	"github.com/agentic-research/tangodb/internal/graph"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Names used by the bootstrap entry and the implicit server class.
const (
	DatabaseServer = "DataBaseds"
	DatabaseClass  = "DataBase"
	ServerClass    = "DServer"
	DServerPrefix  = "dserver/"
)

// Option configures a Source.
type Option func(*Source)

// WithLogger sets the logger used for load problems.
func WithLogger(l *slog.Logger) Option {
	return func(s *Source) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSaver installs the persistence hook called by Node.Save.
func WithSaver(saver graph.Saver) Option {
	return func(s *Source) { s.arena.SetSaver(saver) }
}

// WithProblems records problems found before classification, such as
// document files the loader had to skip.
func WithProblems(errs ...error) Option {
	return func(s *Source) { s.problems = append(s.problems, errs...) }
}

// Source holds the node arena, the three name indices and the runtime side
// tables. It is not safe for concurrent use; the facade serializes access.
type Source struct {
	identity string
	logger   *slog.Logger

	arena    *graph.Arena
	servers  *graph.Index // "<executable>/<instance>"
	entities *graph.Index // device name, dserver/<executable>/<instance>, device alias
	classes  *graph.Index

	forest    []any
	synthetic map[graph.Handle]bool
	problems  []error

	exported        *orderedmap.OrderedMap[string, ExportInfo]
	classAttributes *orderedmap.OrderedMap[string, *graph.Node] // "<class>.<attribute>"
	attrProps       map[string]*graph.Node                      // device -> attribute -> properties
	attrAliases     *orderedmap.OrderedMap[string, AttributeAlias]
}

// New wraps the forest, classifies every document and bootstraps the
// database's own server under identity. Problems found while classifying
// are logged and available from Problems; they never fail the load.
func New(forest []any, identity string, opts ...Option) *Source {
	s := &Source{
		identity:        identity,
		logger:          slog.Default(),
		arena:           graph.NewArena(),
		synthetic:       make(map[graph.Handle]bool),
		exported:        orderedmap.New[string, ExportInfo](),
		classAttributes: orderedmap.New[string, *graph.Node](),
		attrProps:       make(map[string]*graph.Node),
		attrAliases:     orderedmap.New[string, AttributeAlias](),
	}
	s.servers = graph.NewIndex(s.arena)
	s.entities = graph.NewIndex(s.arena)
	s.classes = graph.NewIndex(s.arena)
	for _, opt := range opts {
		opt(s)
	}

	s.forest = make([]any, 0, len(forest))
	for _, doc := range forest {
		if doc == nil {
			continue
		}
		wrapped := s.arena.Wrap(doc)
		s.arena.Warm(wrapped)
		s.forest = append(s.forest, wrapped)
	}
	for _, doc := range s.forest {
		s.classify(doc)
	}
	s.bootstrap()
	s.logger.Debug("data source loaded",
		"identity", identity,
		"servers", s.servers.Len(),
		"entities", s.entities.Len(),
		"classes", s.classes.Len(),
		"problems", len(s.problems))
	return s
}

func (s *Source) Identity() string        { return s.identity }
func (s *Source) Logger() *slog.Logger    { return s.logger }
func (s *Source) Arena() *graph.Arena     { return s.arena }
func (s *Source) Servers() *graph.Index   { return s.servers }
func (s *Source) Entities() *graph.Index  { return s.entities }
func (s *Source) Classes() *graph.Index   { return s.classes }
func (s *Source) Forest() []any           { return s.forest }
func (s *Source) Problems() []error       { return s.problems }
func (s *Source) SetSaver(sv graph.Saver) { s.arena.SetSaver(sv) }

// Synthetic reports whether n was created by bootstrap rather than loaded.
func (s *Source) Synthetic(n *graph.Node) bool {
	return n != nil && s.synthetic[n.Handle()]
}

func (s *Source) report(err error) {
	s.logger.Error("classify", "err", err)
	s.problems = append(s.problems, err)
}
