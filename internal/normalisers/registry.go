package normalisers

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driven"
	"github.com/custodia-labs/ragstore/internal/normalisers/html"
	"github.com/custodia-labs/ragstore/internal/normalisers/markdown"
	"github.com/custodia-labs/ragstore/internal/normalisers/pdf"
	"github.com/custodia-labs/ragstore/internal/normalisers/plaintext"
)

// Ensure Registry implements the interface.
var _ driven.Normaliser = (*Registry)(nil)

// Registry dispatches to the normaliser registered for a file's extension.
// The first normaliser registered for an extension wins.
type Registry struct {
	byExt map[string]driven.Normaliser
}

// NewRegistry creates a registry over the given normalisers.
func NewRegistry(normalisers ...driven.Normaliser) *Registry {
	r := &Registry{byExt: make(map[string]driven.Normaliser)}
	for _, n := range normalisers {
		for _, ext := range n.SupportedExtensions() {
			ext = strings.ToLower(ext)
			if _, ok := r.byExt[ext]; !ok {
				r.byExt[ext] = n
			}
		}
	}
	return r
}

// Default returns a registry with the markdown, HTML, PDF and plain text normalisers.
func Default() *Registry {
	return NewRegistry(markdown.New(), html.New(), pdf.New(), plaintext.New())
}

// SupportedExtensions returns every registered extension in sorted order.
func (r *Registry) SupportedExtensions() []string {
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Supports reports whether a normaliser is registered for path's extension.
func (r *Registry) Supports(path string) bool {
	_, ok := r.lookup(path)
	return ok
}

// Normalise converts raw using the normaliser registered for path.
func (r *Registry) Normalise(ctx context.Context, path string, raw []byte) (string, error) {
	n, ok := r.lookup(path)
	if !ok {
		return "", fmt.Errorf("%w: no normaliser for %q", domain.ErrInvalidParameter, filepath.Base(path))
	}
	return n.Normalise(ctx, path, raw)
}

func (r *Registry) lookup(path string) (driven.Normaliser, bool) {
	n, ok := r.byExt[strings.ToLower(filepath.Ext(path))]
	return n, ok
}
