package graph

import (
	_ "embed"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaCUE string

// Validation error codes (E200-E299)
const (
	ErrRootOutOfRange     = "E201" // root index outside data
	ErrRefOutOfRange      = "E202" // referenced index outside data
	ErrAttributeOverlap   = "E203" // name present in both refs and descriptions
	ErrEmptyDescriptor    = "E204" // descriptor with neither accessor nor value
	ErrUnfilledRecord     = "E205" // reserved slot never filled
	ErrSchemaViolation    = "E206" // payload does not match the wire schema
	ErrMalformedPayload   = "E207" // payload is not JSON
	ErrUnrecognizedRecord = "E208" // record kind outside the known set
	ErrPrototypeCycle     = "E209" // object prototype links form a loop
)

// ValidationError describes one structural problem in a graph.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks the structural invariants of g.
// Returns all errors found (does not fail-fast).
func Validate(g *Graph) []ValidationError {
	var errs []ValidationError
	n := len(g.Data)

	if g.Root < 0 || g.Root >= n {
		errs = append(errs, ValidationError{
			Field:   "root",
			Message: fmt.Sprintf("root %d out of range [0, %d)", g.Root, n),
			Code:    ErrRootOutOfRange,
		})
	}

	checkRef := func(field string, idx int) {
		if idx < 0 || idx >= n {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("index %d out of range [0, %d)", idx, n),
				Code:    ErrRefOutOfRange,
			})
		}
	}

	for i, r := range g.Data {
		base := fmt.Sprintf("data[%d]", i)
		switch rec := r.(type) {
		case nil:
			errs = append(errs, ValidationError{
				Field:   base,
				Message: "record slot was reserved but never filled",
				Code:    ErrUnfilledRecord,
			})
		case Array:
			for j, idx := range rec.Refs {
				checkRef(fmt.Sprintf("%s.refs[%d]", base, j), idx)
			}
		case Object:
			checkRef(base+".prototype", rec.Prototype)
			if loop := PrototypeLoop(g, i); len(loop) > 0 && loop[0] == i {
				errs = append(errs, ValidationError{
					Field:   base + ".prototype",
					Message: fmt.Sprintf("prototype chain loops through records %v", loop),
					Code:    ErrPrototypeCycle,
				})
			}
			errs = append(errs, validateAttrs(base, rec.Refs, rec.Descriptions, checkRef)...)
		case Function:
			checkRef(base+".closure", rec.Closure)
			checkRef(base+".prototype", rec.Prototype)
			errs = append(errs, validateAttrs(base, rec.Refs, rec.Descriptions, checkRef)...)
		}
	}

	return errs
}

func validateAttrs(base string, refs *Attrs, descs *Descriptors, checkRef func(string, int)) []ValidationError {
	var errs []ValidationError

	for name, idx := range refs.All() {
		checkRef(fmt.Sprintf("%s.refs[%q]", base, name), idx)
		if descs.Has(name) {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s.descriptions[%q]", base, name),
				Message: "attribute appears in both refs and descriptions",
				Code:    ErrAttributeOverlap,
			})
		}
	}

	for name, d := range descs.All() {
		field := fmt.Sprintf("%s.descriptions[%q]", base, name)
		if !d.IsAccessor() && d.Value == nil {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: "descriptor has neither get/set nor value",
				Code:    ErrEmptyDescriptor,
			})
		}
		if d.Get != nil {
			checkRef(field+".get", *d.Get)
		}
		if d.Set != nil {
			checkRef(field+".set", *d.Set)
		}
		if d.Value != nil {
			checkRef(field+".value", *d.Value)
		}
	}

	return errs
}

// PrototypeLoop follows prototype links from the object record at idx
// for as long as they lead to object records. It returns the records of
// the loop the chain runs into, starting at the first repeated one, or
// nil when the chain ends.
func PrototypeLoop(g *Graph, idx int) []int {
	seen := make(map[int]int)
	var path []int
	for {
		rec, err := g.At(idx)
		if err != nil {
			return nil
		}
		obj, ok := rec.(Object)
		if !ok {
			return nil
		}
		if at, ok := seen[idx]; ok {
			return path[at:]
		}
		seen[idx] = len(path)
		path = append(path, idx)
		idx = obj.Prototype
	}
}

// CheckIndices returns an INVALID_INDEX error for the first reference
// outside the data array, or nil.
func CheckIndices(g *Graph) error {
	n := len(g.Data)
	if g.Root < 0 || g.Root >= n {
		return NewInvalidIndexError(g.Root, n)
	}
	for _, r := range g.Data {
		for _, idx := range Children(r) {
			if idx < 0 || idx >= n {
				return NewInvalidIndexError(idx, n)
			}
		}
	}
	return nil
}

// ValidateJSON checks a wire payload against the embedded CUE schema and,
// when the shape is valid, against the structural invariants of Validate.
func ValidateJSON(data []byte) []ValidationError {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		// The schema is embedded; failing to compile it is a build defect.
		panic(fmt.Sprintf("graph: invalid embedded schema: %v", err))
	}

	payload := ctx.CompileBytes(data, cue.Filename("graph.json"))
	if err := payload.Err(); err != nil {
		return []ValidationError{{
			Field:   "payload",
			Message: err.Error(),
			Code:    ErrMalformedPayload,
		}}
	}

	def := schema.LookupPath(cue.ParsePath("#Graph"))
	if err := def.Unify(payload).Validate(cue.Concrete(true)); err != nil {
		return schemaErrors(err)
	}

	g, err := Unmarshal(data)
	if err != nil {
		code := ErrMalformedPayload
		if IsUnrecognizedKind(err) {
			code = ErrUnrecognizedRecord
		}
		return []ValidationError{{Field: "payload", Message: err.Error(), Code: code}}
	}
	return Validate(g)
}

// schemaErrors flattens CUE errors into validation errors keyed by path.
func schemaErrors(err error) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool)

	for _, e := range cueerrors.Errors(err) {
		field := strings.Join(e.Path(), ".")
		if field == "" {
			field = "payload"
		}
		format, args := e.Msg()
		msg := fmt.Sprintf(format, args...)

		key := field + "\x00" + msg
		if seen[key] {
			continue
		}
		seen[key] = true

		errs = append(errs, ValidationError{
			Field:   field,
			Message: msg,
			Code:    ErrSchemaViolation,
		})
	}
	return errs
}
