package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"text/template"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/safetydocs/pkg/utils/logging"
)

// Stage is a state of one flow run
type Stage string

const (
	StageIdle            Stage = "idle"
	StageValidating      Stage = "validating"
	StageComputing       Stage = "computing"
	StageBinding         Stage = "binding"
	StageInvoking        Stage = "invoking"
	StageValidatedOutput Stage = "validated_output"
	StageFailed          Stage = "failed"
)

func (s Stage) String() string {
	return string(s)
}

// Terminal reports whether no further transition follows s
func (s Stage) Terminal() bool {
	return s == StageValidatedOutput || s == StageFailed
}

// Env holds the values the caller injects into a run. Nothing inside the
// pipeline reads the clock; GeneratedAt is the only notion of "now".
type Env struct {
	GeneratedAt time.Time
	Language    string
}

// Date returns GeneratedAt as YYYY-MM-DD
func (e Env) Date() string {
	if e.GeneratedAt.IsZero() {
		return ""
	}
	return e.GeneratedAt.Format(time.DateOnly)
}

// StageHook observes stage transitions of a run
type StageHook func(ctx context.Context, flow string, stage Stage)

// Pipeline holds the shared, read-only collaborators of every flow
type Pipeline struct {
	registry *SchemaRegistry
	invoker  Invoker
	hooks    []StageHook
}

type Option func(*Pipeline)

// WithStageHook adds a hook called on every stage transition
func WithStageHook(hook StageHook) Option {
	return func(p *Pipeline) {
		p.hooks = append(p.hooks, hook)
	}
}

func New(registry *SchemaRegistry, invoker Invoker, opts ...Option) *Pipeline {
	p := &Pipeline{
		registry: registry,
		invoker:  invoker,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Registry returns the schema registry
func (p *Pipeline) Registry() *SchemaRegistry {
	return p.registry
}

// Invoker returns the completion invoker
func (p *Pipeline) Invoker() Invoker {
	return p.invoker
}

func (p *Pipeline) enter(ctx context.Context, flow string, stage Stage) {
	logging.From(ctx).Debug("flow stage", "flow", flow, "stage", stage)
	for _, hook := range p.hooks {
		hook(ctx, flow, stage)
	}
}

// Flow is one document type's configuration of the pipeline. In is the
// decoded request, Data is what the template binds, Out is the result.
type Flow[In, Data, Out any] struct {
	Name        string
	InputSchema string
	Output      OutputSpec
	Template    *template.Template

	// Prepare computes Data from validated input. Required.
	Prepare func(ctx context.Context, env Env, in In) (Data, error)
	// Guard rejects Data the template cannot render. Optional.
	Guard func(data Data) error
	// Result builds Out from the validated reply. Required.
	Result func(data Data, out Output) (Out, error)
	// Verify cross-checks Out against Data. Optional.
	Verify func(data Data, out Out) error
}

// Decode validates raw against the input schema and decodes it. It runs
// only the validating stage and never reaches the invoker.
func (f *Flow[In, Data, Out]) Decode(p *Pipeline, raw []byte) (In, error) {
	var in In
	doc, err := p.registry.decodeValid(f.InputSchema, raw, ErrSchemaViolation)
	if err != nil {
		return in, err
	}

	normalized, err := json.Marshal(integralNumbers(doc))
	if err != nil {
		return in, goerr.Wrap(err, "failed to re-encode request", goerr.V(ValueSchema, f.InputSchema))
	}
	if err := json.Unmarshal(normalized, &in); err != nil {
		path := "/"
		var te *json.UnmarshalTypeError
		if errors.As(err, &te) && te.Field != "" {
			path = "/" + strings.ReplaceAll(te.Field, ".", "/")
		}
		return in, goerr.Wrap(ErrSchemaViolation, "failed to decode request",
			goerr.V(ValueSchema, f.InputSchema),
			goerr.V(ValuePath, path),
			goerr.V(ValueConstraint, err.Error()),
		)
	}
	return in, nil
}

// Check validates raw without preparing, binding or invoking anything
func (f *Flow[In, Data, Out]) Check(p *Pipeline, raw []byte) error {
	_, err := f.Decode(p, raw)
	return err
}

// Render runs every stage up to binding and returns the prompt text
func (f *Flow[In, Data, Out]) Render(ctx context.Context, p *Pipeline, env Env, raw []byte) (string, error) {
	_, prompt, err := f.render(ctx, p, env, raw)
	if err != nil {
		p.enter(ctx, f.Name, StageFailed)
		return "", err
	}
	return prompt, nil
}

func (f *Flow[In, Data, Out]) render(ctx context.Context, p *Pipeline, env Env, raw []byte) (Data, string, error) {
	var data Data

	p.enter(ctx, f.Name, StageValidating)
	in, err := f.Decode(p, raw)
	if err != nil {
		return data, "", f.fail(err, StageValidating, "invalid request")
	}

	p.enter(ctx, f.Name, StageComputing)
	data, err = f.Prepare(ctx, env, in)
	if err != nil {
		return data, "", f.fail(err, StageComputing, "failed to prepare request")
	}

	p.enter(ctx, f.Name, StageBinding)
	if f.Guard != nil {
		if err := f.Guard(data); err != nil {
			return data, "", f.fail(err, StageBinding, "request cannot be bound")
		}
	}
	prompt, err := Bind(f.Template, data)
	if err != nil {
		return data, "", f.fail(err, StageBinding, "failed to bind prompt")
	}

	return data, prompt, nil
}

// Run executes one pass of the flow: validate, compute, bind, invoke and
// validate the reply. Any failure ends the run; nothing partial is returned.
func (f *Flow[In, Data, Out]) Run(ctx context.Context, p *Pipeline, env Env, raw []byte) (Out, error) {
	var zero Out
	p.enter(ctx, f.Name, StageIdle)

	data, prompt, err := f.render(ctx, p, env, raw)
	if err != nil {
		p.enter(ctx, f.Name, StageFailed)
		return zero, err
	}

	p.enter(ctx, f.Name, StageInvoking)
	reply, err := p.invoker.Invoke(ctx, prompt, f.Output)
	if err != nil {
		p.enter(ctx, f.Name, StageFailed)
		return zero, f.fail(err, StageInvoking, "completion failed")
	}

	out, err := ValidateOutput(p.registry, f.Output, reply)
	if err != nil {
		p.enter(ctx, f.Name, StageFailed)
		return zero, f.fail(err, StageInvoking, "completion returned an invalid reply")
	}

	result, err := f.Result(data, out)
	if err != nil {
		p.enter(ctx, f.Name, StageFailed)
		return zero, f.fail(err, StageInvoking, "failed to build result")
	}

	if f.Verify != nil {
		if err := f.Verify(data, result); err != nil {
			p.enter(ctx, f.Name, StageFailed)
			return zero, f.fail(err, StageInvoking, "completion reply failed verification")
		}
	}

	p.enter(ctx, f.Name, StageValidatedOutput)
	return result, nil
}

func (f *Flow[In, Data, Out]) fail(err error, stage Stage, msg string) error {
	return goerr.Wrap(err, msg,
		goerr.V(ValueFlow, f.Name),
		goerr.V(ValueStage, stage),
	)
}
