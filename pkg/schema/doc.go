// Package schema defines the fixed-width, byte-exact key and value
// encodings persisted by the volume store (§4.2 and §6 "Persisted byte
// layouts" of the specification). All multi-byte numeric fields use the
// endianness spec.md mandates: keys use big-endian so that lexicographic
// byte order matches numeric order (enabling range scans), values use
// little-endian for cheap zero-copy decoding on the hot commit/read path.
package schema
