package genkit

import (
	"fmt"
	"go/token"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// DiagnosticSeverity is "error", "warning" or "info".
type DiagnosticSeverity string

const (
	DiagnosticError   DiagnosticSeverity = "error"
	DiagnosticWarning DiagnosticSeverity = "warning"
	DiagnosticInfo    DiagnosticSeverity = "info"
)

// Diagnostic is a problem found while scanning sources, tagged with a
// stable code such as "W001" so editors can match on it.
type Diagnostic struct {
	Severity DiagnosticSeverity `json:"severity"`
	Message  string             `json:"message"`
	File     string             `json:"file,omitempty"`
	Line     int                `json:"line,omitempty"`
	Column   int                `json:"column,omitempty"`
	Tool     string             `json:"tool"`
	Code     string             `json:"code,omitempty"`
}

// Location renders file:line:col, or "" without a file.
func (d Diagnostic) Location() string {
	if d.File == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d:%d", d.File, d.Line, d.Column)
}

// DryRunResult is what --dry-run reports instead of writing files.
type DryRunResult struct {
	Success bool `json:"success"`
	// Files maps output paths to the head of their content.
	Files       map[string]string `json:"files,omitempty"`
	Diagnostics []Diagnostic      `json:"diagnostics,omitempty"`
	Stats       DryRunStats       `json:"stats"`
}

// DryRunStats are the counters of a DryRunResult.
type DryRunStats struct {
	PackagesLoaded int `json:"packagesLoaded"`
	SchemasFound   int `json:"schemasFound"`
	FilesGenerated int `json:"filesGenerated"`
	ErrorCount     int `json:"errorCount"`
	WarningCount   int `json:"warningCount"`
}

// AddDiagnostic records d. Any error marks the run as failed.
func (r *DryRunResult) AddDiagnostic(d Diagnostic) {
	switch d.Severity {
	case DiagnosticError:
		r.Success = false
		r.Stats.ErrorCount++
	case DiagnosticWarning:
		r.Stats.WarningCount++
	}
	r.Diagnostics = append(r.Diagnostics, d)
}

// AddPreview stores the head of a generated file.
func (r *DryRunResult) AddPreview(name string, content []byte, limit int) {
	if r.Files == nil {
		r.Files = make(map[string]string)
	}
	preview := string(content)
	if limit > 0 && len(preview) > limit {
		preview = preview[:limit] + "\n... (truncated)"
	}
	r.Files[name] = preview
	r.Stats.FilesGenerated = len(r.Files)
}

// DiagnosticCollector accumulates the diagnostics of one scan.
type DiagnosticCollector struct {
	tool  string
	items []Diagnostic
}

func NewDiagnosticCollector(tool string) *DiagnosticCollector {
	return &DiagnosticCollector{tool: tool}
}

func (c *DiagnosticCollector) add(sev DiagnosticSeverity, code string, pos token.Position, msg string) {
	c.items = append(c.items, Diagnostic{
		Severity: sev,
		Message:  msg,
		File:     pos.Filename,
		Line:     pos.Line,
		Column:   pos.Column,
		Tool:     c.tool,
		Code:     code,
	})
}

// Errorf records an error at pos.
func (c *DiagnosticCollector) Errorf(code string, pos token.Position, format string, args ...any) {
	c.add(DiagnosticError, code, pos, fmt.Sprintf(format, args...))
}

// Warningf records a warning at pos.
func (c *DiagnosticCollector) Warningf(code string, pos token.Position, format string, args ...any) {
	c.add(DiagnosticWarning, code, pos, fmt.Sprintf(format, args...))
}

// Collect returns the diagnostics in the order they were recorded.
func (c *DiagnosticCollector) Collect() []Diagnostic {
	return c.items
}

// HasErrors reports whether an error was recorded.
func (c *DiagnosticCollector) HasErrors() bool {
	return slices.ContainsFunc(c.items, func(d Diagnostic) bool {
		return d.Severity == DiagnosticError
	})
}

// Annotation is a parsed comment annotation of the form tool:@name or
// tool:@name(arg, key=value, "quoted, arg").
type Annotation struct {
	Tool  string            // tool name, e.g. "zodgen"
	Name  string            // annotation name, e.g. "schema"
	Args  map[string]string // key=value args
	Flags []string          // positional args without =
	Raw   string
}

// Has checks if the annotation has a flag or arg (case-sensitive).
func (a *Annotation) Has(name string) bool {
	if _, ok := a.Args[name]; ok {
		return true
	}
	for _, f := range a.Flags {
		if f == name {
			return true
		}
	}
	return false
}

// Get returns an arg value or empty string.
func (a *Annotation) Get(name string) string {
	return a.Args[name]
}

// GetOr returns an arg value or the default.
func (a *Annotation) GetOr(name, def string) string {
	if v, ok := a.Args[name]; ok {
		return v
	}
	return def
}

// Flag returns the i-th positional argument or "".
func (a *Annotation) Flag(i int) string {
	if i < 0 || i >= len(a.Flags) {
		return ""
	}
	return a.Flags[i]
}

var annotationStart = regexp.MustCompile(`(\w+):@([\w.]+)`)

// ParseAnnotations extracts annotations from a doc comment. Arguments may
// contain quoted strings with commas and parentheses.
func ParseAnnotations(doc string) []*Annotation {
	var annotations []*Annotation
	for _, loc := range annotationStart.FindAllStringSubmatchIndex(doc, -1) {
		ann := &Annotation{
			Tool: doc[loc[2]:loc[3]],
			Name: doc[loc[4]:loc[5]],
			Args: make(map[string]string),
			Raw:  doc[loc[0]:loc[1]],
		}
		if end := loc[1]; end < len(doc) && doc[end] == '(' {
			if args, n, ok := scanArgs(doc[end+1:]); ok {
				ann.Raw = doc[loc[0] : end+1+n]
				for _, arg := range args {
					ann.addArg(arg)
				}
			}
		}
		annotations = append(annotations, ann)
	}
	return annotations
}

func (a *Annotation) addArg(arg string) {
	if key, val, ok := cutUnquoted(arg, '='); ok && isWord(strings.TrimSpace(key)) {
		a.Args[strings.TrimSpace(key)] = unquote(strings.TrimSpace(val))
		return
	}
	a.Flags = append(a.Flags, unquote(arg))
}

// scanArgs splits the argument list up to the closing parenthesis. It
// returns the arguments and the number of bytes consumed including ")".
func scanArgs(s string) (args []string, n int, ok bool) {
	var cur strings.Builder
	var quote byte
	depth := 0
	flush := func() {
		if arg := strings.TrimSpace(cur.String()); arg != "" {
			args = append(args, arg)
		}
		cur.Reset()
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			cur.WriteByte(c)
			if c == '\\' && quote == '"' && i+1 < len(s) {
				i++
				cur.WriteByte(s[i])
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'' || c == '`':
			quote = c
			cur.WriteByte(c)
		case c == '(':
			depth++
			cur.WriteByte(c)
		case c == ')' && depth > 0:
			depth--
			cur.WriteByte(c)
		case c == ')':
			flush()
			return args, i + 1, true
		case c == ',' && depth == 0:
			flush()
		case c == '\n':
			return nil, 0, false
		default:
			cur.WriteByte(c)
		}
	}
	return nil, 0, false
}

func cutUnquoted(s string, sep byte) (before, after string, found bool) {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"', '\'', '`':
			return s, "", false
		case sep:
			return s[:i], s[i+1:], true
		}
	}
	return s, "", false
}

func isWord(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r != '_' && r != '-' && (r < '0' || r > '9') && (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}

func unquote(s string) string {
	if len(s) < 2 {
		return s
	}
	switch s[0] {
	case '"', '`':
		if u, err := strconv.Unquote(s); err == nil {
			return u
		}
	case '\'':
		if s[len(s)-1] == '\'' {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// HasAnnotation checks if doc contains a specific annotation.
func HasAnnotation(doc, tool, name string) bool {
	return GetAnnotation(doc, tool, name) != nil
}

// GetAnnotation returns the first annotation with the given tool and name.
func GetAnnotation(doc, tool, name string) *Annotation {
	return Annotations(ParseAnnotations(doc)).Get(tool, name)
}

// Annotations is a slice of annotations with helper methods.
type Annotations []*Annotation

// ParseDoc parses all annotations from a doc comment.
func ParseDoc(doc string) Annotations {
	return ParseAnnotations(doc)
}

// Has checks if any annotation with the tool and name exists.
func (a Annotations) Has(tool, name string) bool {
	return a.Get(tool, name) != nil
}

// Get returns the first annotation with the tool and name.
func (a Annotations) Get(tool, name string) *Annotation {
	for _, ann := range a {
		if ann.Tool == tool && ann.Name == name {
			return ann
		}
	}
	return nil
}

// All returns every annotation with the tool and name.
func (a Annotations) All(tool, name string) []*Annotation {
	var out []*Annotation
	for _, ann := range a {
		if ann.Tool == tool && ann.Name == name {
			out = append(out, ann)
		}
	}
	return out
}
