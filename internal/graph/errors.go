package graph

import (
	"errors"
	"fmt"
)

// DeserializationError represents a failure to turn a graph back into a
// live value. It is fatal to the decode call that raised it; no partial
// value is returned alongside it.
type DeserializationError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Index is the record being decoded, or -1 when not tied to a record.
	Index int

	// Kind is the offending record kind (unrecognized kind errors).
	Kind string

	// Name is the offending builtin name (unknown builtin errors).
	Name string

	// Err is the underlying engine or parse error, if any.
	Err error
}

// ErrorCode categorizes deserialization errors.
type ErrorCode string

const (
	// ErrCodeUnknownBuiltin indicates a builtin name missing from the registry.
	ErrCodeUnknownBuiltin ErrorCode = "UNKNOWN_BUILTIN"

	// ErrCodeUnrecognizedKind indicates a record kind outside the seven known tags.
	ErrCodeUnrecognizedKind ErrorCode = "UNRECOGNIZED_KIND"

	// ErrCodeInvalidIndex indicates a reference outside the data array.
	ErrCodeInvalidIndex ErrorCode = "INVALID_INDEX"

	// ErrCodeSynthesisFailed indicates source text (function source, date
	// or regex literal) that the engine could not compile or evaluate.
	ErrCodeSynthesisFailed ErrorCode = "SYNTHESIS_FAILED"

	// ErrCodePrototypeCycle indicates object records whose prototype
	// links loop back on themselves.
	ErrCodePrototypeCycle ErrorCode = "PROTOTYPE_CYCLE"
)

// Error implements the error interface.
func (e *DeserializationError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Index >= 0 {
		msg = fmt.Sprintf("%s (record=%d)", msg, e.Index)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *DeserializationError) Unwrap() error {
	return e.Err
}

// NewUnknownBuiltinError creates an error for a builtin name absent from the registry.
func NewUnknownBuiltinError(index int, name string) *DeserializationError {
	return &DeserializationError{
		Code:    ErrCodeUnknownBuiltin,
		Message: fmt.Sprintf("unknown builtin %q", name),
		Index:   index,
		Name:    name,
	}
}

// NewUnrecognizedKindError creates an error for an unknown record kind.
func NewUnrecognizedKindError(index int, kind string) *DeserializationError {
	return &DeserializationError{
		Code:    ErrCodeUnrecognizedKind,
		Message: fmt.Sprintf("unrecognized record kind %q", kind),
		Index:   index,
		Kind:    kind,
	}
}

// NewInvalidIndexError creates an error for an out-of-range reference.
func NewInvalidIndexError(index, size int) *DeserializationError {
	return &DeserializationError{
		Code:    ErrCodeInvalidIndex,
		Message: fmt.Sprintf("index %d out of range [0, %d)", index, size),
		Index:   index,
	}
}

// NewSynthesisError wraps an engine failure while rebuilding a value from
// its source text.
func NewSynthesisError(index int, err error) *DeserializationError {
	return &DeserializationError{
		Code:    ErrCodeSynthesisFailed,
		Message: "cannot synthesize value from source text",
		Index:   index,
		Err:     err,
	}
}

// NewPrototypeCycleError creates an error for an object whose prototype
// chain runs into loop.
func NewPrototypeCycleError(index int, loop []int) *DeserializationError {
	return &DeserializationError{
		Code:    ErrCodePrototypeCycle,
		Message: fmt.Sprintf("prototype chain loops through records %v", loop),
		Index:   index,
	}
}

func hasCode(err error, code ErrorCode) bool {
	var de *DeserializationError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// IsUnknownBuiltin returns true if err is an unknown builtin error.
// Uses errors.As to handle wrapped errors.
func IsUnknownBuiltin(err error) bool { return hasCode(err, ErrCodeUnknownBuiltin) }

// IsUnrecognizedKind returns true if err is an unrecognized kind error.
func IsUnrecognizedKind(err error) bool { return hasCode(err, ErrCodeUnrecognizedKind) }

// IsInvalidIndex returns true if err is an out-of-range index error.
func IsInvalidIndex(err error) bool { return hasCode(err, ErrCodeInvalidIndex) }

// IsSynthesisFailure returns true if err is a function synthesis error.
func IsSynthesisFailure(err error) bool { return hasCode(err, ErrCodeSynthesisFailed) }

// IsPrototypeCycle returns true if err is a prototype cycle error.
func IsPrototypeCycle(err error) bool { return hasCode(err, ErrCodePrototypeCycle) }
