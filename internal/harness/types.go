package harness

import "github.com/roach88/capsule/internal/graph"

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: every assertion held.
	Pass bool `json:"pass"`

	// ID is the content ID of the graph under test.
	ID string `json:"id"`

	// Wire is the indented wire payload of the graph under test.
	Wire string `json:"wire"`

	// Records counts the graph's records by kind.
	Records map[graph.Kind]int `json:"records"`

	// DecodeError is the error code decoding failed with, if it failed.
	DecodeError graph.ErrorCode `json:"decode_error,omitempty"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Records: make(map[graph.Kind]int),
		Errors:  []string{},
	}
}

// AddError adds an assertion failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Total returns the number of records in the graph.
func (r *Result) Total() int {
	n := 0
	for _, c := range r.Records {
		n += c
	}
	return n
}
