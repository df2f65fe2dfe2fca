package plaintext

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/custodia-labs/ragstore/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles plain text documents.
type Normaliser struct{}

// New creates a new plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedExtensions returns the file extensions this normaliser handles.
func (n *Normaliser) SupportedExtensions() []string {
	return []string{
		".txt",
		".text",
		".rst",
		".csv",
		".json",
		".yaml",
		".yml",
		".toml",
		".go",
		".py",
	}
}

// Supports reports whether path has a plain text extension.
func (n *Normaliser) Supports(path string) bool {
	return slices.Contains(n.SupportedExtensions(), strings.ToLower(filepath.Ext(path)))
}

// Normalise decodes raw as text.
func (n *Normaliser) Normalise(ctx context.Context, _ string, raw []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return Decode(raw)
}

// Decode returns raw as a string. Valid UTF-8 is used as-is; anything else
// is decoded as Latin-1. NUL bytes are dropped.
func Decode(raw []byte) (string, error) {
	raw = trimBOM(raw)
	if !utf8.Valid(raw) {
		decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
		if err != nil {
			return "", fmt.Errorf("decode latin-1: %w", err)
		}
		raw = decoded
	}
	return strings.ReplaceAll(string(raw), "\x00", ""), nil
}

func trimBOM(raw []byte) []byte {
	if len(raw) >= 3 && raw[0] == 0xEF && raw[1] == 0xBB && raw[2] == 0xBF {
		return raw[3:]
	}
	return raw
}
