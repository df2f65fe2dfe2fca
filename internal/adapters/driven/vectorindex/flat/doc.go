// Package flat provides an exact, brute-force vector index.
// It implements the driven.VectorIndex interface.
//
// Distances use the github.com/viant/vec/search kernels. The index is
// persisted as a single binary file:
//
//	magic "RSVI" | version u16 | metric | dimensions u32 | count u32
//	count x (id | dimensions x float32)
//	crc32 (IEEE) of everything above
//
// Strings are length-prefixed (u16). All integers are little-endian.
package flat
