// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data to the local filesystem as TOML.
//
// Adapters:
//   - ConfigStore: Application configuration (~/.ragstore/config.toml)
//   - ManifestStore: Index manifests (<data>/index-v1/manifest.toml)
package file
