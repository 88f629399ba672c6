package source

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"sort"
	"sync"

	"github.com/feral-file/ff-alert-indexer/internal/adapter"
	"github.com/feral-file/ff-alert-indexer/internal/domain"
)

// Source type names understood by the factory
const (
	TypeMock = "mock"
	TypeFile = "file"
	TypeNATS = "nats"
)

// Source defines the interface of an alert source the ingestion pipeline pulls from.
//
// Fetch yields raw alerts lazily. An error wrapping domain.ErrValidation concerns
// a single record and the sequence continues; any other error ends the sequence.
//
//go:generate mockgen -source=source.go -destination=../mocks/source.go -package=mocks -mock_names=Source=MockSource,CursorStore=MockCursorStore
type Source interface {
	// Name identifies the source in runs, metrics and cursors
	Name() string
	// Connect prepares the source; failures wrap domain.ErrSourceUnavailable
	Connect(ctx context.Context) error
	// Fetch yields at most limit raw alerts, or all available alerts when limit is 0
	Fetch(ctx context.Context, limit int) iter.Seq2[domain.RawAlert, error]
	// Close releases the source; calling it more than once is safe
	Close() error
}

// CursorStore persists resume positions of sources
type CursorStore interface {
	GetSourceCursor(ctx context.Context, source string) (string, error)
	SetSourceCursor(ctx context.Context, source string, cursor string) error
}

// Config selects and configures one source
type Config struct {
	Type string
	Mock MockConfig
	File FileConfig
	NATS NATSConfig
}

// Deps are the collaborators sources are built with
type Deps struct {
	FileSystem adapter.FileSystem
	NatsJS     adapter.NatsJetStream
	Cursors    CursorStore
	Clock      adapter.Clock
}

// Constructor builds a source from its configuration
type Constructor func(cfg Config, deps Deps) (Source, error)

// Factory resolves source type names to constructors. It is built once at
// startup and only read afterwards.
type Factory struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
}

// NewFactory creates an empty factory
func NewFactory() *Factory {
	return &Factory{constructors: make(map[string]Constructor)}
}

// NewDefaultFactory creates a factory with the mock, file and nats sources registered
func NewDefaultFactory() *Factory {
	f := NewFactory()
	_ = f.Register(TypeMock, func(cfg Config, deps Deps) (Source, error) {
		return NewMockSource(cfg.Mock, deps.Clock), nil
	})
	_ = f.Register(TypeFile, func(cfg Config, deps Deps) (Source, error) {
		return NewFileSource(cfg.File, deps.FileSystem)
	})
	_ = f.Register(TypeNATS, func(cfg Config, deps Deps) (Source, error) {
		return NewNATSSource(cfg.NATS, deps.NatsJS, deps.Cursors)
	})
	return f
}

// Register adds a constructor under a type name
func (f *Factory) Register(name string, constructor Constructor) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if name == "" || constructor == nil {
		return fmt.Errorf("source type name and constructor are required")
	}
	if _, ok := f.constructors[name]; ok {
		return fmt.Errorf("source type %q already registered", name)
	}
	f.constructors[name] = constructor
	return nil
}

// Create builds the source selected by cfg.Type
func (f *Factory) Create(cfg Config, deps Deps) (Source, error) {
	f.mu.RLock()
	constructor, ok := f.constructors[cfg.Type]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown source type %q (available: %v)", cfg.Type, f.Types())
	}

	if deps.FileSystem == nil {
		deps.FileSystem = adapter.NewFileSystem()
	}
	if deps.NatsJS == nil {
		deps.NatsJS = adapter.NewNatsJetStream()
	}
	if deps.Clock == nil {
		deps.Clock = adapter.NewClock()
	}

	return constructor(cfg, deps)
}

// Types lists the registered type names in order
func (f *Factory) Types() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	names := make([]string, 0, len(f.constructors))
	for name := range f.constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether a type name is registered
func (f *Factory) Has(name string) bool {
	return slices.Contains(f.Types(), name)
}

// errorSeq yields a single error
func errorSeq(err error) iter.Seq2[domain.RawAlert, error] {
	return func(yield func(domain.RawAlert, error) bool) {
		yield(nil, err)
	}
}

func notConnected(name string) error {
	return fmt.Errorf("%w: source %s is not connected", domain.ErrSourceUnavailable, name)
}
