// Package pdf provides a Normaliser for PDF documents.
// Text is extracted page by page; pages are separated by a blank line.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// pageSeparator joins the text of consecutive pages.
const pageSeparator = "\n\n"

// Normaliser handles PDF documents.
type Normaliser struct{}

// New creates a new PDF normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedExtensions returns the file extensions this normaliser handles.
func (n *Normaliser) SupportedExtensions() []string {
	return []string{".pdf"}
}

// Supports reports whether path has a PDF extension.
func (n *Normaliser) Supports(path string) bool {
	return slices.Contains(n.SupportedExtensions(), strings.ToLower(filepath.Ext(path)))
}

// Normalise extracts the text of every page. Pages without text are skipped.
func (n *Normaliser) Normalise(ctx context.Context, path string, raw []byte) (text string, err error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("%w: %s: malformed PDF: %v", domain.ErrInvalidParameter, filepath.Base(path), r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", fmt.Errorf("%w: %s: failed to parse PDF: %w", domain.ErrInvalidParameter, filepath.Base(path), err)
	}

	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("%w: %s: page %d: %w", domain.ErrInvalidParameter, filepath.Base(path), i, err)
		}
		if content = strings.TrimSpace(content); content != "" {
			pages = append(pages, content)
		}
	}
	return strings.Join(pages, pageSeparator), nil
}
