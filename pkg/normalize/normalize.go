// Package normalize parses source text into the language-agnostic node model.
// One adapter per language plugs into a registry; the rest of the pipeline
// never sees language-specific syntax.
package normalize

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/Sumatoshi-tech/codedrift/pkg/node"
)

// Language names the source language of a file.
type Language string

// Supported languages.
const (
	LangPython     Language = "python"
	LangJavaScript Language = "javascript"
	LangPHP        Language = "php"
)

// ErrUnsupportedLanguage is returned when no adapter is registered for the
// requested language.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// ParseError reports a per-file parse failure. It is recoverable: the file's
// syntactic, semantic, and behavioral layers are skipped, but a structural
// marker event is still emitted and sibling files are unaffected.
type ParseError struct {
	Path string
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s:%d: %s", e.Path, e.Line, e.Msg)
}

// LanguageNormalizer parses one language's source text into a node tree.
// Implementations must be safe for concurrent use; every Parse call owns its
// own tree-sitter parser instance from a pool.
type LanguageNormalizer interface {
	Language() Language
	Extensions() []string
	Parse(ctx context.Context, text []byte, path string) (*node.Node, error)
}

// Registry dispatches parse requests by language.
type Registry struct {
	mu       sync.RWMutex
	adapters map[Language]LanguageNormalizer
}

// NewRegistry creates a registry with all built-in language adapters.
func NewRegistry() *Registry {
	reg := &Registry{adapters: make(map[Language]LanguageNormalizer)}

	reg.Register(newAdapter(pythonSpec()))
	reg.Register(newAdapter(javascriptSpec()))
	reg.Register(newAdapter(phpSpec()))

	return reg
}

// Register adds or replaces the adapter for its language.
func (r *Registry) Register(adapter LanguageNormalizer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.adapters[adapter.Language()] = adapter
}

// Supported reports whether an adapter exists for the language.
func (r *Registry) Supported(lang Language) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.adapters[lang]

	return ok
}

// Languages returns the registered languages in sorted order.
func (r *Registry) Languages() []Language {
	r.mu.RLock()
	defer r.mu.RUnlock()

	langs := make([]Language, 0, len(r.adapters))
	for lang := range r.adapters {
		langs = append(langs, lang)
	}

	sort.Slice(langs, func(i, j int) bool { return langs[i] < langs[j] })

	return langs
}

// Parse normalizes source text into a node tree using the adapter registered
// for the language. The returned tree is immutable.
func (r *Registry) Parse(ctx context.Context, text []byte, path string, lang Language) (*node.Node, error) {
	r.mu.RLock()
	adapter, ok := r.adapters[lang]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, lang)
	}

	return adapter.Parse(ctx, text, path)
}
