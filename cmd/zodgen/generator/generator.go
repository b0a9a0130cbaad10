// Package generator discovers zodgen schemas in Go packages and rule
// manifests and registers the generated TypeScript files.
package generator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tlipoca9/zodgen/genkit"
	"github.com/tlipoca9/zodgen/rules"
	"github.com/tlipoca9/zodgen/schema"
	"github.com/tlipoca9/zodgen/validation"
	"github.com/tlipoca9/zodgen/zod"
)

// ToolName is the name of this tool, used in annotations.
const ToolName = "zodgen"

// Error codes for diagnostics.
const (
	ErrCodeInvalidKind       = "E001"
	ErrCodeInvalidMessage    = "E002"
	ErrCodeUnknownAnnotation = "W001"
	ErrCodeUnsupportedType   = "W002"
	ErrCodeNoFields          = "W003"
	ErrCodeUntaggedField     = "W004"
)

// ErrInvalidAnnotations is returned when scanning found error diagnostics.
// Nothing is generated in that case.
var ErrInvalidAnnotations = errors.New("invalid zodgen annotations")

// Generator turns annotated Go types and manifest sources into Zod schemas.
type Generator struct {
	cfg     *genkit.Config
	sources []schema.Source
	scan    bool
	result  *schema.Result
}

// Option configures a Generator.
type Option func(*Generator)

// WithConfig sets the configuration. The defaults apply without it.
func WithConfig(cfg *genkit.Config) Option {
	return func(g *Generator) { g.cfg = cfg }
}

// WithSources adds sources that do not come from Go packages, e.g. a manifest.
func WithSources(srcs ...schema.Source) Option {
	return func(g *Generator) { g.sources = append(g.sources, srcs...) }
}

// WithoutScan ignores annotated Go types.
func WithoutScan() Option {
	return func(g *Generator) { g.scan = false }
}

// New creates a new Generator.
func New(opts ...Option) *Generator {
	g := &Generator{cfg: genkit.DefaultConfig(), scan: true}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Name returns the tool name.
func (g *Generator) Name() string {
	return ToolName
}

// Result returns the outcome of the last run, or nil.
func (g *Generator) Result() *schema.Result {
	return g.result
}

// Validate implements genkit.ValidatableTool.
func (g *Generator) Validate(gen *genkit.Generator, _ *genkit.Logger) []genkit.Diagnostic {
	if !g.scan {
		return nil
	}
	_, diags := NewScanner(gen).Scan()
	return diags
}

// Run implements genkit.Tool.
func (g *Generator) Run(gen *genkit.Generator, log *genkit.Logger) error {
	return g.RunContext(context.Background(), gen, log)
}

// RunContext discovers sources, generates schemas and registers the output
// files on gen. Failing classes are logged; the run fails only when no
// schema could be generated or an annotation is invalid.
func (g *Generator) RunContext(ctx context.Context, gen *genkit.Generator, log *genkit.Logger) error {
	srcs := append([]schema.Source(nil), g.sources...)
	if g.scan {
		scanner := NewScanner(gen)
		found, diags := scanner.Scan()
		for _, d := range diags {
			switch d.Severity {
			case genkit.DiagnosticError:
				log.Error("%s[%s] %s: %s", d.Tool, d.Code, d.Location(), d.Message)
			case genkit.DiagnosticWarning:
				log.Warn("%s: %s", d.Location(), d.Message)
			}
		}
		if scanner.HasErrors() {
			return ErrInvalidAnnotations
		}
		for _, pkg := range gen.Packages {
			var names []string
			for _, s := range found {
				if s.Package == pkg.PkgPath {
					names = append(names, s.Name)
				}
			}
			if len(names) == 0 {
				continue
			}
			log.Find("Found %v schema(s) in %v", len(names), pkg.PkgPath)
			for _, n := range names {
				log.Item("%v", n)
			}
		}
		for _, s := range found {
			srcs = append(srcs, s.Source)
		}
	}
	if len(srcs) == 0 {
		return nil
	}

	p, err := g.Pipeline()
	if err != nil {
		return err
	}
	rules.DefaultAnalyzer.Reset()
	res, err := p.Run(ctx, srcs)
	g.result = res
	if res != nil {
		for _, f := range res.Failures {
			log.Fail(f.Class, f.Err)
		}
	}
	if err != nil {
		return err
	}

	dir := g.outputDir()
	for _, f := range res.Files {
		out := gen.NewGeneratedFile(filepath.Join(dir, f.Name))
		_, _ = out.Write(f.Content)
	}
	return nil
}

// outputDir is the directory generated files are placed in: the output
// itself in split mode, its parent otherwise.
func (g *Generator) outputDir() string {
	if mode, _ := schema.ParseMode(g.cfg.Mode); mode == schema.ModeSplit {
		return g.cfg.Output
	}
	return filepath.Dir(g.cfg.Output)
}

// Pipeline builds the schema pipeline described by the configuration.
func (g *Generator) Pipeline() (*schema.Pipeline, error) {
	cfg := g.cfg
	localizer, err := LoadLocale(cfg.LangDir, cfg.Locale)
	if err != nil {
		return nil, err
	}

	prober := validation.DefaultProber()
	if t := cfg.Probe.Threshold; t > 0 && t != 0.5 {
		prober = validation.NewProber(validation.WithThreshold(t))
	}
	resolver := validation.NewResolver(
		validation.WithLocalizer(localizer),
		validation.WithProber(prober),
		validation.WithAttributes(cfg.Attributes),
	)

	registry := zod.DefaultRegistry()
	for _, c := range cfg.CustomRules {
		mode, err := zod.ParseFragmentMode(c.Mode)
		if err != nil {
			return nil, fmt.Errorf("custom rule %q: %w", c.Name, err)
		}
		if c.Name == "" || c.Code == "" {
			return nil, fmt.Errorf("custom rule %q: name and code are required", c.Name)
		}
		registry.RegisterCustom(zod.FragmentRule{Rule: c.Name, Mode: mode, Code: c.Code, Order: c.Priority})
	}

	suffix := cfg.TypeSuffix
	if suffix == "" {
		suffix = schema.DefaultTypeSuffix
	}
	mode, err := schema.ParseMode(cfg.Mode)
	if err != nil {
		return nil, err
	}
	writer := []schema.WriterOption{schema.WithMode(mode), schema.WithNamespace(cfg.Namespace)}
	if cfg.Header != "" {
		writer = append(writer, schema.WithHeader(cfg.Header))
	}
	if mode == schema.ModeSingle && cfg.Output != "" {
		writer = append(writer, schema.WithFilename(filepath.Base(cfg.Output)))
	}

	assembler := schema.NewAssembler(schema.WithRegistry(registry), schema.WithTypeSuffix(suffix))
	return schema.NewPipeline(
		schema.WithResolver(resolver),
		schema.WithAssembler(assembler),
		schema.WithWriterOptions(writer...),
	), nil
}

// LoadLocale returns the English messages overlaid with <dir>/<locale>.yaml.
// A missing file is an error unless the locale is English.
func LoadLocale(dir, locale string) (*validation.Translator, error) {
	t := validation.English().Clone()
	if locale == "" || dir == "" {
		return t, nil
	}
	path := filepath.Join(dir, locale+".yaml")
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) && locale == "en" {
		return t, nil
	}
	if err != nil {
		return nil, fmt.Errorf("locale %s: %w", locale, err)
	}
	defer f.Close() //nolint:errcheck
	if err := t.Load(f); err != nil {
		return nil, fmt.Errorf("locale %s: %w", path, err)
	}
	return t, nil
}
