package driven

import "context"

// Normaliser turns raw file bytes into plain text.
type Normaliser interface {
	// SupportedExtensions returns lower-case file extensions including the dot.
	SupportedExtensions() []string

	// Supports reports whether path has a supported extension.
	Supports(path string) bool

	// Normalise decodes raw into text.
	Normalise(ctx context.Context, path string, raw []byte) (string, error)
}
