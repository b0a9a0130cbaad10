// Package zod builds Zod schema expressions from resolved validation sets.
//
// A Builder accumulates an ordered call chain for one value. Handlers pick
// the builder for a property and feed it every resolved rule:
//
//	reg := zod.DefaultRegistry()
//	b, err := reg.Build(zod.Property{Name: "name", Validations: set})
//	expr := b.Build() // z.string().trim().min(1, "...").max(255, "...")
package zod

import (
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tlipoca9/zodgen/validation"
)

// Builder accumulates the Zod expression of one value.
type Builder interface {
	// Apply translates one rule. It reports false when the builder has no
	// translation for it; such rules are skipped.
	Apply(v validation.ResolvedValidation) bool
	// AddRule appends a rendered fragment such as .max(3).
	AddRule(fragment string)
	// ReplaceRule drops every fragment of the given kind, then appends fragment.
	ReplaceRule(kind, fragment string)
	SetField(name string)
	SetNullable(nullable bool)
	SetOptional(optional bool)
	// SetBase overrides the base expression.
	SetBase(expr string)
	// Chain returns the rendered fragments in order.
	Chain() []string
	Build() string
}

type part struct {
	kind string
	code string
}

// chain is the call-chain state shared by all builders.
type chain struct {
	field    string
	parts    []part
	base     string
	nullable bool
	optional bool
}

func (c *chain) AddRule(fragment string) {
	c.parts = append(c.parts, part{code: fragment})
}

// ReplaceRule removes fragments tagged with kind or containing ".kind(" and
// appends the new one.
func (c *chain) ReplaceRule(kind, fragment string) {
	marker := "." + kind + "("
	kept := c.parts[:0]
	for _, p := range c.parts {
		if p.kind == kind || strings.Contains(p.code, marker) {
			continue
		}
		kept = append(kept, p)
	}
	c.parts = append(kept, part{kind: kind, code: fragment})
}

func (c *chain) SetField(name string) { c.field = name }
func (c *chain) SetNullable(n bool)   { c.nullable = n }
func (c *chain) SetOptional(o bool)   { c.optional = o }
func (c *chain) SetBase(expr string)  { c.base = expr }
func (c *chain) Field() string        { return c.field }
func (c *chain) IsNullable() bool     { return c.nullable }
func (c *chain) IsOptional() bool     { return c.optional }

func (c *chain) hasKind(k string) bool {
	return slices.ContainsFunc(c.parts, func(p part) bool { return p.kind == k })
}

func (c *chain) Chain() []string {
	out := make([]string, len(c.parts))
	for i, p := range c.parts {
		out[i] = p.code
	}
	return out
}

// render joins base, chain and the nullable/optional suffixes, nullable first.
func (c *chain) render(base string) string {
	var sb strings.Builder
	if c.base != "" {
		sb.WriteString(c.base)
	} else {
		sb.WriteString(base)
	}
	for _, p := range c.parts {
		sb.WriteString(p.code)
	}
	if c.nullable {
		sb.WriteString(".nullable()")
	}
	if c.optional {
		sb.WriteString(".optional()")
	}
	return sb.String()
}

type ruleFunc[B any] func(b B, v validation.ResolvedValidation) bool

// ruleTable maps rule names to their translation on one builder type.
type ruleTable[B any] map[string]ruleFunc[B]

func (t ruleTable[B]) apply(b B, v validation.ResolvedValidation) bool {
	fn, ok := t[strings.ToLower(v.Rule)]
	if !ok {
		return false
	}
	return fn(b, v)
}

func (t ruleTable[B]) names() []string {
	out := make([]string, 0, len(t))
	for k := range t {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// passthrough rules are accepted by every builder without output: presence
// markers and checks only a server can run.
var passthrough = map[string]bool{
	"nullable":               true,
	"sometimes":              true,
	"bail":                   true,
	"present":                true,
	"exclude":                true,
	"unique":                 true,
	"exists":                 true,
	"current_password":       true,
	"password_uncompromised": true,
}

// IsPassthrough reports whether a rule is accepted everywhere without output.
func IsPassthrough(rule string) bool {
	return passthrough[strings.ToLower(rule)]
}

func applyRule[B any](t ruleTable[B], b B, v validation.ResolvedValidation) bool {
	if IsPassthrough(v.Rule) {
		return true
	}
	return t.apply(b, v)
}

// noop accepts a rule without emitting anything.
func noop[B any](B, validation.ResolvedValidation) bool { return true }

// Quote renders s as a JavaScript string literal.
func Quote(s string) string {
	b, err := json.MarshalNoEscape(s)
	if err != nil {
		return strconv.Quote(s)
	}
	return string(b)
}

// QuoteList renders a JavaScript array of string literals.
func QuoteList(values []string) string {
	q := make([]string, len(values))
	for i, v := range values {
		q[i] = Quote(v)
	}
	return "[" + strings.Join(q, ",") + "]"
}

// call renders .method(args, "msg").
func call(method, args, msg string) string {
	switch {
	case msg == "":
		return "." + method + "(" + args + ")"
	case args == "":
		return "." + method + "(" + Quote(msg) + ")"
	}
	return "." + method + "(" + args + ", " + Quote(msg) + ")"
}

func refine(predicate, msg string) string {
	return call("refine", predicate, msg)
}

// num formats a number without trailing zeros.
func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func isInt(f float64) bool {
	return f == float64(int64(f))
}

// errorOption renders a Zod v4 params object whose error callback returns
// requiredMsg for missing input and typeMsg otherwise. Either may be empty, in
// which case Zod's default message is kept.
func errorOption(missing, requiredMsg, typeMsg string) string {
	if requiredMsg == "" && typeMsg == "" {
		return ""
	}
	r, t := "undefined", "undefined"
	if requiredMsg != "" {
		r = Quote(requiredMsg)
	}
	if typeMsg != "" {
		t = Quote(typeMsg)
	}
	return "{ error: (iss) => (" + missing + " ? " + r + " : " + t + ") }"
}

const (
	missingInput   = "iss.input == null"
	missingOrBlank = `iss.input == null || iss.input === ""`
)

var identPattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// IsIdentifier reports whether s can be used as a bare JavaScript property name.
func IsIdentifier(s string) bool {
	return identPattern.MatchString(s)
}

// PropertyKey renders an object-literal key, quoting it when needed.
func PropertyKey(s string) string {
	if IsIdentifier(s) {
		return s
	}
	return Quote(s)
}
