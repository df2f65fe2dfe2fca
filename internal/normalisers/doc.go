// Package normalisers provides implementations of the Normaliser interface
// for the document formats ragstore can ingest. Each normaliser knows how to
// extract text from files with particular extensions.
//
// Registry combines them and picks a normaliser by file extension.
package normalisers
