// Package validation resolves canonical rule tokens into typed validation sets
// with localized messages and an inferred base type.
package validation

import (
	"strconv"
	"strings"

	"github.com/tlipoca9/zodgen/rules"
)

// TypeTag is the inferred base type of a field.
type TypeTag string

const (
	TypeString  TypeTag = "string"
	TypeNumber  TypeTag = "number"
	TypeBoolean TypeTag = "boolean"
	TypeArray   TypeTag = "array"
	TypeEmail   TypeTag = "email"
	TypeURL     TypeTag = "url"
	TypeUUID    TypeTag = "uuid"
	TypeULID    TypeTag = "ulid"
	TypeIP      TypeTag = "ip"
	TypeJSON    TypeTag = "json"
	TypeDate    TypeTag = "date"
	TypeFile    TypeTag = "file"
	TypeImage   TypeTag = "image"
)

const enumPrefix = "enum:"

// EnumType builds the enum tag for a value list.
func EnumType(values []string) TypeTag {
	return TypeTag(rules.RawRule{Name: "enum", Parameters: values}.String())
}

// IsEnum reports whether t is an enum tag.
func (t TypeTag) IsEnum() bool { return strings.HasPrefix(string(t), enumPrefix) }

// EnumValues returns the values of an enum tag.
func (t TypeTag) EnumValues() []string {
	if !t.IsEnum() {
		return nil
	}
	return rules.ParseToken(string(t)).Parameters
}

// ResolvedValidation is one applied rule with its parameters and message.
// Message is empty when no message could be resolved.
type ResolvedValidation struct {
	Rule       string
	Parameters []any
	Message    string
	IsRequired bool
	IsNullable bool
}

// Param returns the i-th parameter or nil.
func (v ResolvedValidation) Param(i int) any {
	if i < 0 || i >= len(v.Parameters) {
		return nil
	}
	return v.Parameters[i]
}

// StringParam returns the i-th parameter formatted as a string.
func (v ResolvedValidation) StringParam(i int) string {
	return FormatParam(v.Param(i))
}

// StringParams returns every parameter formatted as a string.
func (v ResolvedValidation) StringParams() []string {
	out := make([]string, len(v.Parameters))
	for i, p := range v.Parameters {
		out[i] = FormatParam(p)
	}
	return out
}

// NumberParam returns the i-th parameter as a number.
func (v ResolvedValidation) NumberParam(i int) (float64, bool) {
	switch p := v.Param(i).(type) {
	case int64:
		return float64(p), true
	case float64:
		return p, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		return f, err == nil
	}
	return 0, false
}

// FormatParam formats a parameter without trailing zeros.
func FormatParam(p any) string {
	switch x := p.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return ""
}

// coerceParam turns numeric strings into int64 or float64.
func coerceParam(s string) any {
	t := strings.TrimSpace(s)
	if i, err := strconv.ParseInt(t, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(t, 64); err == nil && !strings.ContainsAny(t, "xXpPnN") {
		return f
	}
	return s
}

// Set is the resolved validation of one field.
//
// Array sets carry either Nested (rules of field.*) or ObjectProperties
// (field.*.sub shapes), never both. Properties holds the children of a dotted
// object key such as address.city.
type Set struct {
	Field            string
	Key              string
	Validations      []ResolvedValidation
	Type             TypeTag
	Required         bool
	Nullable         bool
	Nested           *Set
	ObjectProperties []*Set
	Properties       []*Set
}

// Get returns the first validation with the given rule name, case-insensitively.
func (s *Set) Get(rule string) (ResolvedValidation, bool) {
	if s == nil {
		return ResolvedValidation{}, false
	}
	for _, v := range s.Validations {
		if strings.EqualFold(v.Rule, rule) {
			return v, true
		}
	}
	return ResolvedValidation{}, false
}

// Has reports whether the set contains the rule.
func (s *Set) Has(rule string) bool {
	_, ok := s.Get(rule)
	return ok
}

// HasAny reports whether the set contains any of the rules.
func (s *Set) HasAny(rules ...string) bool {
	for _, r := range rules {
		if s.Has(r) {
			return true
		}
	}
	return false
}

// HasPrefix reports whether any rule name starts with prefix.
func (s *Set) HasPrefix(prefix string) bool {
	if s == nil {
		return false
	}
	for _, v := range s.Validations {
		if strings.HasPrefix(strings.ToLower(v.Rule), prefix) {
			return true
		}
	}
	return false
}

// Rules lists rule names in order.
func (s *Set) Rules() []string {
	out := make([]string, len(s.Validations))
	for i, v := range s.Validations {
		out[i] = v.Rule
	}
	return out
}

// IsArray reports whether the set describes an array of items.
func (s *Set) IsArray() bool {
	return s != nil && (s.Nested != nil || len(s.ObjectProperties) > 0 || s.Type == TypeArray)
}

// IsObject reports whether the set describes a nested object.
func (s *Set) IsObject() bool {
	return s != nil && len(s.Properties) > 0
}
