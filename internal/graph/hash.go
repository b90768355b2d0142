package graph

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainGraph prefixes graph content IDs.
// Version suffix enables future algorithm migration.
const DomainGraph = "capsule/graph/v1"

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ID computes the content-addressed ID of g.
// Two graphs share an ID exactly when their canonical forms match, which
// includes record order and attribute order.
func ID(g *Graph) (string, error) {
	canonical, err := MarshalCanonical(g)
	if err != nil {
		return "", fmt.Errorf("ID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainGraph, canonical), nil
}

// MustID is like ID but panics on error.
// Use only for graphs produced by the encoder, which are always canonicalizable.
func MustID(g *Graph) string {
	id, err := ID(g)
	if err != nil {
		panic(err)
	}
	return id
}
