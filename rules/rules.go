// Package rules declares Laravel-style validation rule-sets and normalizes them
// into canonical rule strings.
//
// A rule-set is an ordered list of fields, each carrying a rule source:
//
//	rules.Set{
//	    {Name: "name", Rules: "required|string|max:255"},
//	    {Name: "password", Rules: []any{"string", rules.Password().Min(8).MixedCase()}},
//	    {Name: "tracking", Rules: []any{rules.RequiredIf(func(r rules.Request) bool {
//	        return r.Input("status") == "shipped"
//	    })}},
//	}
//
// Rule sources may be pipe-joined strings, lists, rule objects implementing
// Expander or fmt.Stringer, and conditional predicates.
package rules

import (
	"sort"
	"strings"
)

// RawRule is a single parsed rule token.
type RawRule struct {
	Name       string
	Parameters []string
	Message    string
}

// String renders the rule back into its canonical token form.
func (r RawRule) String() string {
	if len(r.Parameters) == 0 {
		return r.Name
	}
	if IsPatternRule(r.Name) {
		return r.Name + ":" + r.Parameters[0]
	}
	return r.Name + ":" + joinParameters(r.Parameters)
}

// Field is one entry of an ordered rule-set.
type Field struct {
	Name  string
	Rules any
}

// Set is an ordered rule-set.
type Set []Field

// FromMap builds a Set from a map, ordering fields by name so that output is stable.
func FromMap(m map[string]any) Set {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	set := make(Set, 0, len(names))
	for _, name := range names {
		set = append(set, Field{Name: name, Rules: m[name]})
	}
	return set
}

// Get returns the rule source of a field.
func (s Set) Get(name string) (any, bool) {
	for _, f := range s {
		if f.Name == name {
			return f.Rules, true
		}
	}
	return nil, false
}

// Names returns field names in declaration order.
func (s Set) Names() []string {
	names := make([]string, len(s))
	for i, f := range s {
		names[i] = f.Name
	}
	return names
}

// Expander is implemented by composite rule objects that stand for several atomic rules.
type Expander interface {
	Expand() []string
}

// Request exposes submitted input to conditional predicates.
type Request interface {
	Input(field string) any
}

// Predicate decides whether a conditional rule applies to a request.
type Predicate func(r Request) bool

type emptyRequest struct{}

func (emptyRequest) Input(string) any { return nil }

// In restricts a field to the given values.
func In(values ...any) *ListRule { return &ListRule{name: "in", values: values} }

// NotIn rejects the given values.
func NotIn(values ...any) *ListRule { return &ListRule{name: "not_in", values: values} }

// ListRule is a rule whose parameters are a value list.
type ListRule struct {
	name   string
	values []any
}

func (r *ListRule) String() string {
	params := make([]string, 0, len(r.values))
	for _, v := range r.values {
		params = append(params, scalarString(v))
	}
	return RawRule{Name: r.name, Parameters: params}.String()
}

// Unique marks a server-only uniqueness check.
func Unique(table string, column ...string) *ServerRule {
	return &ServerRule{name: "unique", params: append([]string{table}, column...)}
}

// Exists marks a server-only existence check.
func Exists(table string, column ...string) *ServerRule {
	return &ServerRule{name: "exists", params: append([]string{table}, column...)}
}

// ServerRule is a rule that needs server-side resources and has no client translation.
type ServerRule struct {
	name   string
	params []string
}

func (r *ServerRule) String() string {
	return RawRule{Name: r.name, Parameters: r.params}.String()
}

// joinParameters joins parameters with commas, quoting values that need it.
func joinParameters(params []string) string {
	quoted := make([]string, len(params))
	for i, p := range params {
		if strings.ContainsAny(p, ",\"") {
			p = `"` + strings.ReplaceAll(p, `"`, `""`) + `"`
		}
		quoted[i] = p
	}
	return strings.Join(quoted, ",")
}
