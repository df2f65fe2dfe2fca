// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Index Storage
//
// A persisted index is three files that must agree:
//
//   - VectorIndex: The vector file (flat, exact search)
//   - SidecarStore: Position-aligned chunk metadata and the document registry (SQLite)
//   - ManifestStore: The build parameters (TOML)
//
// # Pipeline Interfaces
//
//   - EmbeddingService: Text to vectors (local, Ollama, OpenAI)
//   - Chunker: Splits documents into deterministic chunks
//   - DocumentSource: Enumerates and watches documents (filesystem)
//   - Normaliser: Turns file bytes into text
//   - ConfigStore: Application configuration
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or normaliser package
package driven
