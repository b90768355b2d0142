// Package graph defines the flat, JSON-compatible representation of a
// serialized value graph.
//
// A Graph is an ordered array of content records plus the index of the root
// record. Records refer to each other only by index, so shared references and
// cycles in the original value graph become repeated or backward indices here.
//
// This package contains the data model, the wire format, canonical hashing
// and validation. It knows nothing about the script engine; encoding and
// decoding of live values live in internal/codec.
//
// Key invariants:
//   - every index referenced by a record is in [0, len(Data))
//   - Refs and Descriptions of one record never share a name
//   - attribute order is insertion order on the wire
package graph
