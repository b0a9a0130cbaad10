package rules

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// PasswordRule is a composite password policy.
type PasswordRule struct {
	min           int
	max           int
	letters       bool
	mixedCase     bool
	numbers       bool
	symbols       bool
	uncompromised bool
}

// Password returns an empty password policy.
func Password() *PasswordRule { return &PasswordRule{} }

// DefaultPassword returns the policy used when an application configures none: at least eight characters.
func DefaultPassword() *PasswordRule { return &PasswordRule{min: 8} }

func (p *PasswordRule) Min(n int) *PasswordRule      { p.min = n; return p }
func (p *PasswordRule) Max(n int) *PasswordRule      { p.max = n; return p }
func (p *PasswordRule) Letters() *PasswordRule       { p.letters = true; return p }
func (p *PasswordRule) MixedCase() *PasswordRule     { p.mixedCase = true; return p }
func (p *PasswordRule) Numbers() *PasswordRule       { p.numbers = true; return p }
func (p *PasswordRule) Symbols() *PasswordRule       { p.symbols = true; return p }
func (p *PasswordRule) Uncompromised() *PasswordRule { p.uncompromised = true; return p }

// Expand implements Expander.
func (p *PasswordRule) Expand() []string {
	if p == nil {
		return []string{"password"}
	}
	var out []string
	if p.min > 0 {
		out = append(out, "min:"+strconv.Itoa(p.min))
	}
	if p.max > 0 {
		out = append(out, "max:"+strconv.Itoa(p.max))
	}
	if p.letters {
		out = append(out, "password_letters")
	}
	if p.mixedCase {
		out = append(out, "password_mixed")
	}
	if p.numbers {
		out = append(out, "password_numbers")
	}
	if p.symbols {
		out = append(out, "password_symbols")
	}
	if p.uncompromised {
		out = append(out, "password_uncompromised")
	}
	if len(out) == 0 {
		return []string{"password"}
	}
	return out
}

// EnumMember is one member of an enumeration. Value is nil for members without a scalar value.
type EnumMember struct {
	Name  string
	Value any
}

// EnumRule checks membership in an enumeration, optionally restricted to a subset.
type EnumRule struct {
	typeName string
	members  []EnumMember
	only     []any
	except   []any
}

// Enum builds an enumeration rule from explicit members.
func Enum(typeName string, members ...EnumMember) *EnumRule {
	return &EnumRule{typeName: typeName, members: members}
}

// EnumOf builds an enumeration rule from typed constants. Member names come from
// fmt.Stringer when the type implements it.
func EnumOf[T any](values ...T) *EnumRule {
	e := &EnumRule{typeName: reflect.TypeFor[T]().Name()}
	for _, v := range values {
		m := EnumMember{Name: fmt.Sprint(v), Value: underlyingScalar(reflect.ValueOf(v))}
		if s, ok := any(v).(fmt.Stringer); ok {
			m.Name = s.String()
		}
		e.members = append(e.members, m)
	}
	return e
}

// Only restricts the rule to the given members, matched by value or name.
func (e *EnumRule) Only(values ...any) *EnumRule {
	e.only = append(e.only, values...)
	return e
}

// Except excludes the given members, matched by value or name.
func (e *EnumRule) Except(values ...any) *EnumRule {
	e.except = append(e.except, values...)
	return e
}

// TypeName returns the enumeration's type name.
func (e *EnumRule) TypeName() string { return e.typeName }

// Values lists the scalar value (or name) of each allowed member.
func (e *EnumRule) Values() []string {
	var out []string
	for _, m := range e.members {
		if len(e.only) > 0 && !matchesMember(m, e.only) {
			continue
		}
		if matchesMember(m, e.except) {
			continue
		}
		out = append(out, memberValue(m))
	}
	return out
}

// Expand implements Expander.
func (e *EnumRule) Expand() []string {
	if e == nil {
		return []string{"enum"}
	}
	values := e.Values()
	restricted := len(e.only) > 0 || len(e.except) > 0
	switch {
	case restricted:
		return []string{RawRule{Name: "in", Parameters: values}.String()}
	case len(values) > 0:
		return []string{RawRule{Name: "enum", Parameters: values}.String()}
	default:
		return []string{"enum"}
	}
}

func memberValue(m EnumMember) string {
	if m.Value == nil {
		return m.Name
	}
	return scalarString(m.Value)
}

func matchesMember(m EnumMember, set []any) bool {
	for _, v := range set {
		s := scalarString(underlyingScalar(reflect.ValueOf(v)))
		if s == m.Name || s == memberValue(m) {
			return true
		}
		if str, ok := v.(fmt.Stringer); ok && str.String() == m.Name {
			return true
		}
	}
	return false
}

// underlyingScalar unwraps named scalar types to their basic kind.
func underlyingScalar(v reflect.Value) any {
	if !v.IsValid() {
		return nil
	}
	switch v.Kind() {
	case reflect.String:
		return v.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint()
	case reflect.Float32, reflect.Float64:
		return v.Float()
	case reflect.Bool:
		return v.Bool()
	}
	return fmt.Sprint(v.Interface())
}

func scalarString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		if x {
			return "1"
		}
		return "0"
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

// DimensionsRule constrains image dimensions.
type DimensionsRule struct {
	constraints []string
}

// Dimensions returns an empty image-dimension constraint.
func Dimensions() *DimensionsRule { return &DimensionsRule{} }

func (d *DimensionsRule) set(key string, v any) *DimensionsRule {
	d.constraints = append(d.constraints, key+"="+scalarString(v))
	return d
}

func (d *DimensionsRule) Width(n int) *DimensionsRule     { return d.set("width", n) }
func (d *DimensionsRule) Height(n int) *DimensionsRule    { return d.set("height", n) }
func (d *DimensionsRule) MinWidth(n int) *DimensionsRule  { return d.set("min_width", n) }
func (d *DimensionsRule) MaxWidth(n int) *DimensionsRule  { return d.set("max_width", n) }
func (d *DimensionsRule) MinHeight(n int) *DimensionsRule { return d.set("min_height", n) }
func (d *DimensionsRule) MaxHeight(n int) *DimensionsRule { return d.set("max_height", n) }

// Ratio constrains width/height, e.g. Ratio(3, 2).
func (d *DimensionsRule) Ratio(w, h int) *DimensionsRule {
	d.constraints = append(d.constraints, fmt.Sprintf("ratio=%d/%d", w, h))
	return d
}

func (d *DimensionsRule) String() string {
	if len(d.constraints) == 0 {
		return "dimensions"
	}
	return "dimensions:" + strings.Join(d.constraints, ",")
}

// Conditional is a rule that only applies when a predicate holds.
type Conditional struct {
	Predicate any
	Base      string
	Keyword   string
}

// RequiredIf makes a field required when the predicate holds.
// The predicate may be a bool, a Predicate, func(Request) bool or func() bool.
func RequiredIf(predicate any) *Conditional {
	return &Conditional{Predicate: predicate, Base: "required", Keyword: "required_if"}
}

// ProhibitedIf forbids a field when the predicate holds.
func ProhibitedIf(predicate any) *Conditional {
	return &Conditional{Predicate: predicate, Base: "prohibited", Keyword: "prohibited_if"}
}

// ExcludeIf drops a field from validated data when the predicate holds.
func ExcludeIf(predicate any) *Conditional {
	return &Conditional{Predicate: predicate, Base: "exclude", Keyword: "exclude_if"}
}

// Expand implements Expander using the shared analyzer.
func (c *Conditional) Expand() []string {
	if s := DefaultAnalyzer.NormalizeConditional(c.Predicate, c.Base, c.Keyword); s != "" {
		return []string{s}
	}
	return nil
}
