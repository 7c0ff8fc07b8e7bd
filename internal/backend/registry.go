package backend

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/kalambet/pdfqa/internal/config"
	"github.com/kalambet/pdfqa/internal/engine"
	"github.com/kalambet/pdfqa/internal/splitter"
	"github.com/kalambet/pdfqa/internal/vectorstore"
)

// Backend names.
const (
	Dict   = "dict"
	Simple = "simple"
	SQLite = "sqlite"
)

// ErrUnknownBackend is returned by Registry.Get for a name with no backend.
var ErrUnknownBackend = errors.New("unknown backend")

var aliases = map[string]string{
	"langchain":  Dict,
	"llamaindex": Simple,
}

// Registry holds the backends of a process, created once at startup.
type Registry struct {
	backends map[string]Backend
	def      string
}

// NewRegistry builds the dict and simple backends and, when db is non-nil,
// the sqlite backend. All of them share e and the chunking settings of cfg.
func NewRegistry(cfg config.Config, e engine.Engine, db *sql.DB, logger *slog.Logger) (*Registry, error) {
	split, err := splitter.New(cfg.Chunking.Strategy, cfg.Chunking.Size, cfg.Chunking.Overlap)
	if err != nil {
		return nil, err
	}
	opts := Options{
		Splitter:         split,
		MetadataChunk:    cfg.Ingest.MetadataChunk,
		EmbedConcurrency: cfg.Ingest.EmbedConcurrency,
		TopK:             cfg.Retrieval.TopK,
		Logger:           logger,
	}

	r := &Registry{backends: make(map[string]Backend)}
	r.Register(New(Dict, e, vectorstore.NewDictStore(), opts))
	r.Register(New(Simple, e, vectorstore.NewSimpleStore(), opts))
	if db != nil {
		r.Register(New(SQLite, e, vectorstore.NewSQLiteStore(db), opts))
	}

	def := resolve(cfg.Backend.Default)
	if def == "" {
		def = Dict
	}
	if _, ok := r.backends[def]; !ok {
		return nil, fmt.Errorf("default backend %q: %w", cfg.Backend.Default, ErrUnknownBackend)
	}
	r.def = def
	return r, nil
}

// Register adds b under its name, replacing any previous backend. The first
// registered backend becomes the default until another is chosen.
func (r *Registry) Register(b Backend) {
	if r.backends == nil {
		r.backends = make(map[string]Backend)
	}
	if len(r.backends) == 0 && r.def == "" {
		r.def = b.Name()
	}
	r.backends[b.Name()] = b
}

// Get returns the backend called name, case-insensitively and through the
// aliases. An empty name selects the default backend.
func (r *Registry) Get(name string) (Backend, error) {
	key := resolve(name)
	if key == "" {
		key = r.def
	}
	b, ok := r.backends[key]
	if !ok {
		return nil, fmt.Errorf("%w %q (available: %s)", ErrUnknownBackend, name, strings.Join(r.Names(), ", "))
	}
	return b, nil
}

// Default returns the name of the default backend.
func (r *Registry) Default() string { return r.def }

// Names returns the registered backend names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.backends))
	for n := range r.backends {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func resolve(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if a, ok := aliases[name]; ok {
		return a
	}
	return name
}
