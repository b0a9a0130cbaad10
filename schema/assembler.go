package schema

import (
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/tlipoca9/zodgen/validation"
	"github.com/tlipoca9/zodgen/zod"
)

// DefaultTypeSuffix is appended to schema names to form constant names.
const DefaultTypeSuffix = "Schema"

// Assembler renders extracted schemas as z.object expressions.
type Assembler struct {
	registry *zod.Registry
	suffix   string
	indent   string
}

// AssemblerOption configures an Assembler.
type AssemblerOption func(*Assembler)

// WithRegistry sets the handler registry used to build properties.
func WithRegistry(r *zod.Registry) AssemblerOption {
	return func(a *Assembler) { a.registry = r }
}

// WithTypeSuffix sets the suffix of schema constants.
func WithTypeSuffix(s string) AssemblerOption {
	return func(a *Assembler) { a.suffix = s }
}

// NewAssembler returns an assembler using the default registry.
func NewAssembler(opts ...AssemblerOption) *Assembler {
	a := &Assembler{suffix: DefaultTypeSuffix, indent: "  "}
	for _, opt := range opts {
		opt(a)
	}
	if a.registry == nil {
		a.registry = zod.DefaultRegistry()
	}
	return a
}

// ConstName returns the constant name of a schema.
func (a *Assembler) ConstName(name string) string {
	return name + a.suffix
}

// TypeName returns the name of the inferred type. TypeScript keeps types and
// values apart, so it may equal the constant name.
func (a *Assembler) TypeName(name string) string {
	return name
}

// Assemble renders data. consts maps dependency classes to their constant
// names; unknown classes fall back to the last identifier of the class.
func (a *Assembler) Assemble(data ExtractedSchemaData, consts map[string]string) (string, error) {
	constFor := func(class string) string {
		if class == "" {
			return ""
		}
		if c, ok := consts[class]; ok {
			return c
		}
		return a.ConstName(lastIdent(class))
	}

	type entry struct{ key, expr string }
	var entries []entry
	declared := sets.New[string]()
	for _, p := range data.Properties {
		b, err := a.registry.Build(zod.Property{
			Name:        p.Name,
			Validations: p.Validations,
			Optional:    p.Optional,
			Ref:         constFor(p.Ref),
			ItemRef:     constFor(p.ItemRef),
			EnumRef:     p.EnumRef,
		})
		if err != nil {
			return "", fmt.Errorf("schema %s: %w", data.Name, err)
		}
		entries = append(entries, entry{p.Name, b.Build()})
		declared.Insert(p.Name)
	}

	body, refs := a.refinements(data)
	for _, ref := range refs {
		if top := topLevel(ref); !declared.Has(top) {
			declared.Insert(top)
			entries = append(entries, entry{top, "z.any().optional()"})
		}
	}

	w := &jsWriter{indent: a.indent}
	if len(entries) == 0 {
		w.P("z.object({})")
	} else {
		w.P("z.object({")
		w.In()
		for _, e := range entries {
			w.P(zod.PropertyKey(e.key), ": ", e.expr, ",")
		}
		w.Out()
		w.P("})")
	}
	if len(body) > 0 {
		w.Append(".superRefine((data, ctx) => {")
		w.In()
		for _, line := range body {
			w.P(line)
		}
		w.Out()
		w.P("})")
	}
	return w.String(), nil
}

// refinements renders the body of the superRefine callback and lists the
// root-level fields it reads. Top-level checks come first, then one forEach
// per array prefix in order of first use.
func (a *Assembler) refinements(data ExtractedSchemaData) (body, refs []string) {
	top := &jsWriter{indent: a.indent}
	loops := map[string]*jsWriter{}
	var order []string
	seenRef := sets.New[string]()

	var walk func(set *validation.Set)
	walk = func(set *validation.Set) {
		if set == nil {
			return
		}
		for _, v := range set.Validations {
			fn, ok := refinements[strings.ToLower(v.Rule)]
			if !ok {
				continue
			}
			s, rel, ok := scopeOf(set.Field)
			if !ok {
				continue
			}
			t := s.target(rel)
			c, ok := fn(s, t, rel, v)
			if !ok {
				continue
			}
			w := top
			if s.prefix != "" {
				if w = loops[s.prefix]; w == nil {
					w = &jsWriter{indent: a.indent, depth: 1}
					loops[s.prefix] = w
					order = append(order, s.prefix)
				}
			}
			writeCheck(w, c, v.Message, s.path(rel))
			for _, r := range c.refs {
				if !seenRef.Has(r) {
					seenRef.Insert(r)
					refs = append(refs, r)
				}
			}
		}
		for _, c := range set.Properties {
			walk(c)
		}
		for _, c := range set.ObjectProperties {
			walk(c)
		}
		walk(set.Nested)
	}
	for _, p := range data.Properties {
		walk(p.Validations)
	}

	body = top.Lines()
	for _, prefix := range order {
		body = append(body, "("+Accessor(dataRoot, prefix)+" ?? []).forEach((item, i) => {")
		body = append(body, loops[prefix].Lines()...)
		body = append(body, "});")
	}
	return body, refs
}

// scopeOf places a field: plain fields refine at the top level, items.*.qty
// inside a forEach over items. Anything else has no scope.
func scopeOf(field string) (scope, string, bool) {
	if !hasWildcard(field) {
		return scope{}, field, true
	}
	if prefix, rest, ok := splitWildcard(field); ok {
		return scope{prefix: prefix}, rest, true
	}
	return scope{}, "", false
}

func writeCheck(w *jsWriter, c check, message, path string) {
	issue := "ctx.addIssue({ code: \"custom\", "
	if message != "" {
		issue += "message: " + zod.Quote(message) + ", "
	}
	issue += "path: " + path + " });"

	if c.guard != "" {
		w.P("if (", c.guard, ") {")
		w.In()
	}
	w.P("if (", c.cond, ") {")
	w.In()
	w.P(issue)
	w.Out()
	w.P("}")
	if c.guard != "" {
		w.Out()
		w.P("}")
	}
}

func lastIdent(class string) string {
	if i := strings.LastIndexAny(class, "./"); i >= 0 {
		return class[i+1:]
	}
	return class
}

// jsWriter accumulates indented lines of JavaScript.
type jsWriter struct {
	lines  []string
	indent string
	depth  int
}

// P writes one line at the current depth.
func (w *jsWriter) P(parts ...string) {
	w.lines = append(w.lines, strings.Repeat(w.indent, w.depth)+strings.Join(parts, ""))
}

// Append continues the last line.
func (w *jsWriter) Append(s string) {
	if len(w.lines) == 0 {
		w.P(s)
		return
	}
	w.lines[len(w.lines)-1] += s
}

func (w *jsWriter) In()  { w.depth++ }
func (w *jsWriter) Out() { w.depth-- }

func (w *jsWriter) Lines() []string { return w.lines }

func (w *jsWriter) String() string { return strings.Join(w.lines, "\n") }
