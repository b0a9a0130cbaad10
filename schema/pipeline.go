package schema

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/tlipoca9/zodgen/validation"
)

const tracerName = "github.com/tlipoca9/zodgen/schema"

// Failure records a source that could not be turned into a schema.
type Failure struct {
	Class string
	Err   error
}

func (f Failure) Error() string { return f.Class + ": " + f.Err.Error() }

func (f Failure) Unwrap() error { return f.Err }

// Result is the outcome of a pipeline run.
type Result struct {
	Schemas  []Assembled
	Files    []OutputFile
	Failures []Failure
}

// Err aggregates the failures, or returns nil when every source succeeded.
func (r *Result) Err() error {
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}
	return utilerrors.NewAggregate(errs)
}

// Pipeline runs extraction, assembly and writing over a batch of sources.
type Pipeline struct {
	resolver  *validation.Resolver
	assembler *Assembler
	writer    []WriterOption
	tracer    trace.Tracer
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithResolver sets the validation resolver.
func WithResolver(r *validation.Resolver) PipelineOption {
	return func(p *Pipeline) { p.resolver = r }
}

// WithAssembler sets the assembler.
func WithAssembler(a *Assembler) PipelineOption {
	return func(p *Pipeline) { p.assembler = a }
}

// WithWriterOptions sets the options of the writer created per run.
func WithWriterOptions(opts ...WriterOption) PipelineOption {
	return func(p *Pipeline) { p.writer = append(p.writer, opts...) }
}

// WithTracer sets the tracer. The global provider's tracer is the default.
func WithTracer(t trace.Tracer) PipelineOption {
	return func(p *Pipeline) { p.tracer = t }
}

// NewPipeline returns a pipeline with default components.
func NewPipeline(opts ...PipelineOption) *Pipeline {
	p := &Pipeline{}
	for _, opt := range opts {
		opt(p)
	}
	if p.resolver == nil {
		p.resolver = validation.NewResolver()
	}
	if p.assembler == nil {
		p.assembler = NewAssembler()
	}
	if p.tracer == nil {
		p.tracer = otel.Tracer(tracerName)
	}
	return p
}

// Run processes every source. A failing source is recorded in the result and
// does not stop the batch. Run returns an error only when no schema could be
// produced.
func (p *Pipeline) Run(ctx context.Context, sources []Source) (*Result, error) {
	res := &Result{}

	var extracted []ExtractedSchemaData
	for _, src := range sources {
		data, err := p.extract(ctx, src)
		if err != nil {
			res.Failures = append(res.Failures, Failure{Class: classOf(src), Err: err})
			continue
		}
		extracted = append(extracted, data)
	}

	consts := make(map[string]string, len(extracted))
	for _, d := range extracted {
		consts[classKey(d)] = p.assembler.ConstName(d.Name)
	}

	w := NewWriter(p.writer...)
	for _, d := range extracted {
		s, err := p.assemble(ctx, d, consts)
		if err != nil {
			res.Failures = append(res.Failures, Failure{Class: classKey(d), Err: err})
			continue
		}
		if err := w.Add(s); err != nil {
			res.Failures = append(res.Failures, Failure{Class: classKey(d), Err: err})
		}
	}
	res.Schemas = w.Ordered()

	_, span := p.tracer.Start(ctx, "zodgen.write",
		trace.WithAttributes(attribute.Int("zodgen.schemas", len(res.Schemas))))
	defer span.End()
	files, err := w.Files()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if agg := res.Err(); agg != nil {
			return res, fmt.Errorf("%w: %w", err, agg)
		}
		return res, err
	}
	res.Files = files
	return res, nil
}

func (p *Pipeline) extract(ctx context.Context, src Source) (data ExtractedSchemaData, err error) {
	_, span := p.tracer.Start(ctx, "zodgen.extract",
		trace.WithAttributes(attribute.String("zodgen.class", classOf(src))))
	defer span.End()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during extraction: %v", r)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()
	return Extract(src, p.resolver)
}

func (p *Pipeline) assemble(ctx context.Context, d ExtractedSchemaData, consts map[string]string) (s Assembled, err error) {
	_, span := p.tracer.Start(ctx, "zodgen.assemble",
		trace.WithAttributes(attribute.String("zodgen.class", classKey(d))))
	defer span.End()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during assembly: %v", r)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()
	expr, err := p.assembler.Assemble(d, consts)
	if err != nil {
		return Assembled{}, err
	}
	return Assembled{
		Data:     d,
		Const:    p.assembler.ConstName(d.Name),
		TypeName: p.assembler.TypeName(d.Name),
		Expr:     expr,
	}, nil
}

func classOf(src Source) string {
	if src.Class != "" {
		return src.Class
	}
	return src.Name
}
