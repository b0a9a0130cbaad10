package schema

import (
	"fmt"
	"path"
	"slices"
	"strings"

	"k8s.io/apimachinery/pkg/util/sets"
)

// DefaultHeader starts every generated file.
const DefaultHeader = "// Code generated by zodgen. DO NOT EDIT."

// Mode selects the output layout.
type Mode string

const (
	// ModeSingle writes every schema to one file.
	ModeSingle Mode = "single"
	// ModeSplit writes one file per schema.
	ModeSplit Mode = "split"
)

// ParseMode parses single or split. An empty string is single.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeSingle, nil
	case ModeSingle, ModeSplit:
		return m, nil
	}
	return "", fmt.Errorf("invalid output mode %q: want single or split", s)
}

// Assembled is a rendered schema ready for output.
type Assembled struct {
	Data     ExtractedSchemaData
	Const    string
	TypeName string
	Expr     string
}

// OutputFile is one generated file. Name is relative to the output location.
type OutputFile struct {
	Name    string
	Content []byte
}

// Writer orders schemas by dependency and serializes them.
type Writer struct {
	mode      Mode
	namespace string
	header    string
	filename  string
	schemas   []Assembled
	byClass   map[string]int
	deps      map[string][]string
	// claimed maps schema names and constants to the class declaring them.
	claimed map[string]string
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithMode sets the output layout.
func WithMode(m Mode) WriterOption { return func(w *Writer) { w.mode = m } }

// WithNamespace wraps single-file output in export namespace <ns> { ... }.
func WithNamespace(ns string) WriterOption { return func(w *Writer) { w.namespace = ns } }

// WithHeader replaces the generated-code header comment.
func WithHeader(h string) WriterOption { return func(w *Writer) { w.header = h } }

// WithFilename sets the single-mode file name.
func WithFilename(name string) WriterOption { return func(w *Writer) { w.filename = name } }

// NewWriter returns a single-file writer.
func NewWriter(opts ...WriterOption) *Writer {
	w := &Writer{
		mode:     ModeSingle,
		header:   DefaultHeader,
		filename: "schemas.ts",
		byClass:  map[string]int{},
		deps:     map[string][]string{},
		claimed:  map[string]string{},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Add records a schema and its dependencies. A later schema of the same
// class replaces the earlier one. Names and constants are unique across
// classes; a clash returns ErrDuplicateSchema and leaves w unchanged.
func (w *Writer) Add(s Assembled) error {
	key := classKey(s.Data)
	ids := []string{nameID(s), constID(s)}
	for _, id := range ids {
		if owner, ok := w.claimed[id]; ok && owner != key {
			return fmt.Errorf("%w: %s is already declared by %s", ErrDuplicateSchema, id, owner)
		}
	}
	w.deps[key] = slices.Clone(s.Data.Dependencies)
	if i, ok := w.byClass[key]; ok {
		delete(w.claimed, nameID(w.schemas[i]))
		delete(w.claimed, constID(w.schemas[i]))
		w.schemas[i] = s
	} else {
		w.byClass[key] = len(w.schemas)
		w.schemas = append(w.schemas, s)
	}
	for _, id := range ids {
		w.claimed[id] = key
	}
	return nil
}

func nameID(s Assembled) string  { return "schema " + s.Data.Name }
func constID(s Assembled) string { return "const " + s.Const }

func classKey(d ExtractedSchemaData) string {
	if d.Class != "" {
		return d.Class
	}
	return d.Name
}

// Ordered returns the schemas with dependencies before dependents. Schemas
// otherwise keep insertion order. Dependencies on unknown classes are
// ignored; a cycle is emitted in visit order.
func (w *Writer) Ordered() []Assembled {
	out := make([]Assembled, 0, len(w.schemas))
	visited := sets.New[string]()
	var visit func(key string)
	visit = func(key string) {
		if visited.Has(key) {
			return
		}
		visited.Insert(key)
		for _, dep := range w.deps[key] {
			if _, ok := w.byClass[dep]; ok {
				visit(dep)
			}
		}
		out = append(out, w.schemas[w.byClass[key]])
	}
	for _, s := range w.schemas {
		visit(classKey(s.Data))
	}
	return out
}

// Files renders the output files.
func (w *Writer) Files() ([]OutputFile, error) {
	ordered := w.Ordered()
	if len(ordered) == 0 {
		return nil, ErrEmptySchema
	}
	if w.mode == ModeSplit {
		return w.split(ordered), nil
	}
	return []OutputFile{{Name: w.filename, Content: []byte(w.single(ordered))}}, nil
}

func (w *Writer) preamble(sb *strings.Builder) {
	if w.header != "" {
		sb.WriteString(w.header)
		sb.WriteString("\n\n")
	}
	sb.WriteString(`import { z } from "zod";`)
	sb.WriteString("\n")
}

func (w *Writer) single(ordered []Assembled) string {
	var sb strings.Builder
	w.preamble(&sb)
	indent := ""
	if w.namespace != "" {
		sb.WriteString("\nexport namespace " + w.namespace + " {\n")
		indent = "  "
	}
	for i, s := range ordered {
		if i > 0 || w.namespace == "" {
			sb.WriteString("\n")
		}
		sb.WriteString(indentLines(declaration(s), indent))
		sb.WriteString("\n")
	}
	if w.namespace != "" {
		sb.WriteString("}\n")
	}
	return sb.String()
}

func (w *Writer) split(ordered []Assembled) []OutputFile {
	consts := map[string]Assembled{}
	for _, s := range ordered {
		consts[classKey(s.Data)] = s
	}
	files := make([]OutputFile, 0, len(ordered))
	for _, s := range ordered {
		var sb strings.Builder
		w.preamble(&sb)
		for _, dep := range s.Data.Dependencies {
			d, ok := consts[dep]
			if !ok || dep == classKey(s.Data) {
				continue
			}
			sb.WriteString("import { " + d.Const + " } from \"./" + d.Data.Name + "\";\n")
		}
		sb.WriteString("\n")
		sb.WriteString(declaration(s))
		sb.WriteString("\n")
		files = append(files, OutputFile{Name: path.Clean(s.Data.Name + ".ts"), Content: []byte(sb.String())})
	}
	return files
}

// declaration renders the exported constant and its inferred type.
func declaration(s Assembled) string {
	return "export const " + s.Const + " = " + s.Expr + ";\n" +
		"export type " + s.TypeName + " = z.infer<typeof " + s.Const + ">;"
}

func indentLines(s, indent string) string {
	if indent == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = indent + l
		}
	}
	return strings.Join(lines, "\n")
}
