package pipeline

import (
	"errors"

	"github.com/m-mizutani/goerr/v2"
)

var (
	// ErrSchemaViolation is returned when caller input does not satisfy the
	// flow's input schema. The caller can fix it; it is never retried.
	ErrSchemaViolation = goerr.New("schema violation")

	// ErrBinding is an internal contract breach while rendering a prompt.
	ErrBinding = goerr.New("binding error")

	// ErrGeneration is returned when the completion service is unreachable,
	// errors or times out. Retryable by the caller.
	ErrGeneration = goerr.New("generation error")

	// ErrOutputSchemaViolation is returned when the completion service
	// replied with a shape other than the declared output schema.
	ErrOutputSchemaViolation = goerr.New("output schema violation")

	// ErrRiskMismatch is an output schema violation where the generated
	// document does not carry the risk values computed before the call.
	ErrRiskMismatch = goerr.Wrap(ErrOutputSchemaViolation, "generated risk values do not match computed values")
)

// Kind classifies pipeline errors so that callers can tell bad input from
// a failing or misbehaving completion service.
type Kind string

const (
	KindSchemaViolation       Kind = "schema_violation"
	KindBinding               Kind = "binding_error"
	KindGeneration            Kind = "generation_error"
	KindOutputSchemaViolation Kind = "output_schema_violation"
	KindUnknown               Kind = "unknown"
)

func (k Kind) String() string {
	return string(k)
}

// Retryable reports whether the same request may succeed when sent again
func (k Kind) Retryable() bool {
	return k == KindGeneration
}

// Classify returns the Kind of err
func Classify(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSchemaViolation):
		return KindSchemaViolation
	case errors.Is(err, ErrOutputSchemaViolation):
		return KindOutputSchemaViolation
	case errors.Is(err, ErrBinding):
		return KindBinding
	case errors.Is(err, ErrGeneration):
		return KindGeneration
	default:
		return KindUnknown
	}
}

// Keys of goerr values attached to pipeline errors
const (
	ValueSchema     = "schema"
	ValuePath       = "path"
	ValueConstraint = "constraint"
	ValueStage      = "stage"
	ValueFlow       = "flow"
)

// Detail is the structured context attached to a pipeline error
type Detail struct {
	Flow       string `json:"flow,omitempty"`
	Stage      Stage  `json:"stage,omitempty"`
	Schema     string `json:"schema,omitempty"`
	Path       string `json:"path,omitempty"`
	Constraint string `json:"constraint,omitempty"`
}

// DetailOf collects the pipeline values carried anywhere in err's chain.
// The outermost value wins when a key appears more than once.
func DetailOf(err error) Detail {
	var d Detail
	for e := err; e != nil; e = errors.Unwrap(e) {
		ge, ok := e.(*goerr.Error)
		if !ok {
			continue
		}
		values := ge.Values()
		setString(&d.Flow, values[ValueFlow])
		setString(&d.Schema, values[ValueSchema])
		setString(&d.Path, values[ValuePath])
		setString(&d.Constraint, values[ValueConstraint])
		if d.Stage == "" {
			if s, ok := values[ValueStage].(Stage); ok {
				d.Stage = s
			}
		}
	}
	return d
}

func setString(dst *string, v any) {
	if *dst != "" {
		return
	}
	if s, ok := v.(string); ok {
		*dst = s
	}
}
