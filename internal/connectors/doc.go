// Package connectors provides document sources for ingestion.
// Each connector knows how to enumerate and watch documents in a
// specific kind of location.
//
// Only the filesystem connector exists today; it implements
// driven.DocumentSource.
package connectors
