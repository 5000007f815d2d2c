package policy

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"sync"
	"sync/atomic"

	"github.com/doeshing/agentguard/assets"
	"github.com/doeshing/agentguard/internal/domain"
)

// EmbeddedSource names documents compiled from the built-in defaults.
const EmbeddedSource = "embedded defaults"

// Loader produces a freshly compiled rule document.
type Loader interface {
	Load(ctx context.Context) (*domain.RuleDocument, error)
}

// FileSource loads a rule document from disk. When the file does not exist
// and Fallback is set, the fallback bytes are compiled instead.
type FileSource struct {
	Path     string
	Fallback []byte
	Options  []Option
}

// NewFileSource builds a source that falls back to the embedded defaults.
func NewFileSource(path string, opts ...Option) FileSource {
	return FileSource{Path: path, Fallback: assets.DefaultRulesYAML, Options: opts}
}

// Load implements Loader.
func (s FileSource) Load(ctx context.Context) (*domain.RuleDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && s.Fallback != nil {
			return Parse(s.Fallback, EmbeddedSource, s.Options...)
		}
		return nil, &ConfigError{Source: s.Path, Index: -1, Err: err}
	}
	return Parse(data, s.Path, s.Options...)
}

// UsesFallback reports whether Load would serve the embedded defaults.
func (s FileSource) UsesFallback() bool {
	_, err := os.Stat(s.Path)
	return errors.Is(err, fs.ErrNotExist) && s.Fallback != nil
}

// Store holds the rule document in effect. Readers take a snapshot with
// Current and keep using it; Reload builds a new document and swaps the
// pointer, so an in-flight evaluation never sees a half-updated rule set.
type Store struct {
	current atomic.Pointer[domain.RuleDocument]
	loader  Loader
	mu      sync.Mutex
}

// NewStore loads the first document. A load failure is returned as is and
// no store is built.
func NewStore(ctx context.Context, loader Loader) (*Store, error) {
	doc, err := loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	s := &Store{loader: loader}
	s.current.Store(doc)
	return s, nil
}

// NewStaticStore wraps an already compiled document. Reload keeps it.
func NewStaticStore(doc *domain.RuleDocument) *Store {
	s := &Store{}
	s.current.Store(doc)
	return s
}

// Current returns the document snapshot in effect.
func (s *Store) Current() *domain.RuleDocument {
	return s.current.Load()
}

// Swap installs doc and returns the previous document.
func (s *Store) Swap(doc *domain.RuleDocument) *domain.RuleDocument {
	return s.current.Swap(doc)
}

// Reload re-reads the source. On failure the previous document stays in
// effect and the error is returned.
func (s *Store) Reload(ctx context.Context) (*domain.RuleDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loader == nil {
		return s.Current(), nil
	}
	doc, err := s.loader.Load(ctx)
	if err != nil {
		return s.Current(), err
	}
	s.current.Store(doc)
	return doc, nil
}
