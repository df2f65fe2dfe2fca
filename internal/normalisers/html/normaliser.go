package html

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/custodia-labs/ragstore/internal/core/ports/driven"
	"github.com/custodia-labs/ragstore/internal/normalisers/plaintext"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles HTML documents.
type Normaliser struct{}

// New creates a new HTML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedExtensions returns the file extensions this normaliser handles.
func (n *Normaliser) SupportedExtensions() []string {
	return []string{".html", ".htm", ".xhtml"}
}

// Supports reports whether path has an HTML extension.
func (n *Normaliser) Supports(path string) bool {
	return slices.Contains(n.SupportedExtensions(), strings.ToLower(filepath.Ext(path)))
}

// Normalise extracts readable text from an HTML document.
// The page title, when present, becomes the first line.
func (n *Normaliser) Normalise(ctx context.Context, _ string, raw []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	content, err := plaintext.Decode(raw)
	if err != nil {
		return "", err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	title := documentTitle(doc)
	text := documentText(doc)

	if title == "" || strings.HasPrefix(text, title) {
		return text, nil
	}
	if text == "" {
		return title, nil
	}
	return title + "\n\n" + text, nil
}

// blockElements start and end on their own line.
var blockElements = map[string]bool{
	"p": true, "div": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"li": true, "tr": true, "blockquote": true, "pre": true, "table": true,
	"section": true, "article": true, "br": true, "hr": true,
}

var multiSpaces = regexp.MustCompile(`[ \t\r\f]+`)

// extractHTMLTitle returns the <title> text of content, or "" when absent.
func extractHTMLTitle(content string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return ""
	}
	return documentTitle(doc)
}

// stripHTML removes markup from content and returns the readable text.
func stripHTML(content string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return ""
	}
	return documentText(doc)
}

func documentTitle(doc *goquery.Document) string {
	return strings.TrimSpace(doc.Find("title").First().Text())
}

// documentText renders the visible text of doc, one block element per line.
// It mutates doc by removing non-content elements.
func documentText(doc *goquery.Document) string {
	doc.Find("head, script, style, noscript, svg, template").Remove()

	var b strings.Builder
	writeText(&b, doc.Selection)

	content := multiSpaces.ReplaceAllString(b.String(), " ")
	lines := strings.Split(content, "\n")
	result := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			result = append(result, line)
		}
	}
	return strings.Join(result, "\n")
}

func writeText(b *strings.Builder, sel *goquery.Selection) {
	sel.Contents().Each(func(_ int, s *goquery.Selection) {
		switch name := goquery.NodeName(s); name {
		case "#text":
			b.WriteString(s.Text())
		case "#comment", "img":
		default:
			block := blockElements[name]
			if block {
				b.WriteByte('\n')
			}
			writeText(b, s)
			if block {
				b.WriteByte('\n')
			}
		}
	})
}
