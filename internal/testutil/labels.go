package testutil

import (
	"fmt"
	"sync"
)

// SequenceLabels hands out predictable graph labels (prefix-1, prefix-2,
// ...) in place of the random UUIDs the CLI uses when no label is given.
type SequenceLabels struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceLabels creates a label source. An empty prefix defaults to
// "test-graph".
func NewSequenceLabels(prefix string) *SequenceLabels {
	if prefix == "" {
		prefix = "test-graph"
	}
	return &SequenceLabels{prefix: prefix}
}

// Generate returns the next label.
func (s *SequenceLabels) Generate() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("%s-%d", s.prefix, s.n)
}
