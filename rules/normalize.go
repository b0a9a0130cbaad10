package rules

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"
)

// Normalizer turns heterogeneous rule sources into canonical rule tokens.
type Normalizer struct {
	analyzer *Analyzer
}

// NewNormalizer creates a Normalizer that resolves conditional predicates with the given analyzer.
// A nil analyzer uses DefaultAnalyzer.
func NewNormalizer(a *Analyzer) *Normalizer {
	if a == nil {
		a = DefaultAnalyzer
	}
	return &Normalizer{analyzer: a}
}

var defaultNormalizer = NewNormalizer(nil)

// Normalize returns the pipe-joined canonical rule string for a rule source.
func Normalize(rule any) string { return defaultNormalizer.Normalize(rule) }

// Tokens returns the canonical rule tokens for a rule source.
func Tokens(rule any) []string { return defaultNormalizer.Tokens(rule) }

// NormalizeList returns the parsed rules for a rule source.
func NormalizeList(rule any) []RawRule { return defaultNormalizer.NormalizeList(rule) }

// Normalize returns the pipe-joined canonical rule string. String input passes through unchanged.
func (n *Normalizer) Normalize(rule any) string {
	if s, ok := rule.(string); ok {
		return s
	}
	return strings.Join(n.Tokens(rule), "|")
}

// NormalizeList parses every canonical token of a rule source.
func (n *Normalizer) NormalizeList(rule any) []RawRule {
	tokens := n.Tokens(rule)
	out := make([]RawRule, 0, len(tokens))
	for _, tok := range tokens {
		out = append(out, ParseToken(tok))
	}
	return out
}

// Tokens flattens a rule source into canonical tokens. Elements that are neither
// strings nor rule objects are dropped.
func (n *Normalizer) Tokens(rule any) []string {
	switch r := rule.(type) {
	case nil:
		return nil
	case string:
		return SplitRules(r)
	case []string:
		var out []string
		for _, s := range r {
			out = append(out, SplitRules(s)...)
		}
		return out
	case []any:
		var out []string
		for _, elem := range r {
			out = append(out, n.Tokens(elem)...)
		}
		return out
	case *Conditional:
		if r == nil {
			return nil
		}
		if s := n.analyzer.NormalizeConditional(r.Predicate, r.Base, r.Keyword); s != "" {
			return []string{s}
		}
		return nil
	}
	return n.objectTokens(rule)
}

func (n *Normalizer) objectTokens(rule any) (tokens []string) {
	v := reflect.ValueOf(rule)
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		var out []string
		for i := 0; i < v.Len(); i++ {
			out = append(out, n.Tokens(v.Index(i).Interface())...)
		}
		return out
	case reflect.Pointer, reflect.Struct, reflect.Interface:
	default:
		return nil
	}

	defer func() {
		if recover() != nil {
			tokens = []string{markerFor(rule)}
		}
	}()

	switch r := rule.(type) {
	case Expander:
		return r.Expand()
	case fmt.Stringer:
		if v.Kind() == reflect.Pointer && v.IsNil() {
			return []string{markerFor(rule)}
		}
		return SplitRules(r.String())
	}
	return []string{markerFor(rule)}
}

// markerFor derives the generic rule name of an object from its type name,
// e.g. *Uppercase -> "uppercase", *PasswordRule -> "password".
func markerFor(rule any) string {
	t := reflect.TypeOf(rule)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Name() == "" {
		return "custom"
	}
	name := SnakeCase(t.Name())
	if trimmed := strings.TrimSuffix(name, "_rule"); trimmed != "" {
		name = trimmed
	}
	return name
}

// SnakeCase converts a Go identifier to snake_case.
func SnakeCase(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1]) ||
				(i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
