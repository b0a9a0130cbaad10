package validation

import (
	"slices"
	"strings"
	"sync"
)

// Arity describes how a rule consumes its parameters.
type Arity int

const (
	// ArityNone rules take no parameters; any given are dropped.
	ArityNone Arity = iota
	// ArityOne rules take a single parameter, coerced to a number when numeric.
	ArityOne
	// ArityList rules keep their parameters as an ordered list of strings.
	ArityList
	// ArityPattern rules keep their single parameter verbatim.
	ArityPattern
)

func (a Arity) String() string {
	switch a {
	case ArityOne:
		return "one"
	case ArityList:
		return "list"
	case ArityPattern:
		return "pattern"
	}
	return "none"
}

// RuleSpec describes one known rule.
type RuleSpec struct {
	Name  string
	Arity Arity
	// Sized rules have one message per value kind (string, numeric, array, file).
	Sized bool
	// Params names the placeholders filled by leading parameters, without the colon.
	Params []string
	// Rest names the placeholder that receives the remaining parameters joined by ", ".
	Rest string
	// FieldParam marks the first parameter as another field's name.
	FieldParam bool
}

// Catalog is the set of rules the resolver knows by name.
type Catalog struct {
	mu    sync.RWMutex
	specs map[string]RuleSpec
}

// NewCatalog returns a catalog holding the given specs.
func NewCatalog(specs ...RuleSpec) *Catalog {
	c := &Catalog{specs: make(map[string]RuleSpec, len(specs))}
	for _, s := range specs {
		c.Register(s)
	}
	return c
}

var (
	defaultCatalog     *Catalog
	defaultCatalogOnce sync.Once
)

// DefaultCatalog returns the built-in rule catalog. It is built once.
func DefaultCatalog() *Catalog {
	defaultCatalogOnce.Do(func() {
		defaultCatalog = NewCatalog(builtinRules...)
	})
	return defaultCatalog
}

// Register adds or replaces a rule spec.
func (c *Catalog) Register(spec RuleSpec) {
	c.mu.Lock()
	defer c.mu.Unlock()
	spec.Name = strings.ToLower(spec.Name)
	c.specs[spec.Name] = spec
}

// Lookup returns the spec of a rule.
func (c *Catalog) Lookup(name string) (RuleSpec, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.specs[strings.ToLower(name)]
	return s, ok
}

// Names returns all rule names, sorted.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.specs))
	for n := range c.specs {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Clone returns an independent copy, for callers that register their own rules.
func (c *Catalog) Clone() *Catalog {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := &Catalog{specs: make(map[string]RuleSpec, len(c.specs))}
	for k, v := range c.specs {
		out.specs[k] = v
	}
	return out
}

var builtinRules = []RuleSpec{
	{Name: "accepted"},
	{Name: "accepted_if", Arity: ArityList, Params: []string{"other"}, Rest: "value", FieldParam: true},
	{Name: "active_url"},
	{Name: "after", Arity: ArityOne, Params: []string{"date"}},
	{Name: "after_or_equal", Arity: ArityOne, Params: []string{"date"}},
	{Name: "alpha", Arity: ArityList},
	{Name: "alpha_dash", Arity: ArityList},
	{Name: "alpha_num", Arity: ArityList},
	{Name: "array", Arity: ArityList, Rest: "values"},
	{Name: "ascii"},
	{Name: "bail"},
	{Name: "before", Arity: ArityOne, Params: []string{"date"}},
	{Name: "before_or_equal", Arity: ArityOne, Params: []string{"date"}},
	{Name: "between", Arity: ArityList, Sized: true, Params: []string{"min", "max"}},
	{Name: "boolean"},
	{Name: "bool"},
	{Name: "confirmed", Arity: ArityOne},
	{Name: "contains", Arity: ArityList, Rest: "values"},
	{Name: "current_password", Arity: ArityOne},
	{Name: "date"},
	{Name: "date_equals", Arity: ArityOne, Params: []string{"date"}},
	{Name: "date_format", Arity: ArityList, Rest: "format"},
	{Name: "decimal", Arity: ArityList, Rest: "decimal"},
	{Name: "declined"},
	{Name: "declined_if", Arity: ArityList, Params: []string{"other"}, Rest: "value", FieldParam: true},
	{Name: "different", Arity: ArityOne, Params: []string{"other"}, FieldParam: true},
	{Name: "digits", Arity: ArityOne, Params: []string{"digits"}},
	{Name: "digits_between", Arity: ArityList, Params: []string{"min", "max"}},
	{Name: "dimensions", Arity: ArityList},
	{Name: "distinct", Arity: ArityList},
	{Name: "doesnt_end_with", Arity: ArityList, Rest: "values"},
	{Name: "doesnt_start_with", Arity: ArityList, Rest: "values"},
	{Name: "email", Arity: ArityList},
	{Name: "ends_with", Arity: ArityList, Rest: "values"},
	{Name: "enum", Arity: ArityList},
	{Name: "exclude"},
	{Name: "exclude_if", Arity: ArityList},
	{Name: "exclude_unless", Arity: ArityList},
	{Name: "exclude_with", Arity: ArityOne},
	{Name: "exclude_without", Arity: ArityOne},
	{Name: "exists", Arity: ArityList},
	{Name: "extensions", Arity: ArityList, Rest: "values"},
	{Name: "file"},
	{Name: "filled"},
	{Name: "gt", Arity: ArityOne, Sized: true, Params: []string{"value"}},
	{Name: "gte", Arity: ArityOne, Sized: true, Params: []string{"value"}},
	{Name: "hex_color"},
	{Name: "image", Arity: ArityList},
	{Name: "in", Arity: ArityList},
	{Name: "in_array", Arity: ArityOne, Params: []string{"other"}, FieldParam: true},
	{Name: "integer", Arity: ArityList},
	{Name: "ip"},
	{Name: "ipv4"},
	{Name: "ipv6"},
	{Name: "json"},
	{Name: "length", Arity: ArityOne, Sized: true, Params: []string{"size"}},
	{Name: "list"},
	{Name: "lowercase"},
	{Name: "lt", Arity: ArityOne, Sized: true, Params: []string{"value"}},
	{Name: "lte", Arity: ArityOne, Sized: true, Params: []string{"value"}},
	{Name: "mac_address"},
	{Name: "max", Arity: ArityOne, Sized: true, Params: []string{"max"}},
	{Name: "max_digits", Arity: ArityOne, Params: []string{"max"}},
	{Name: "mimes", Arity: ArityList, Rest: "values"},
	{Name: "mimetypes", Arity: ArityList, Rest: "values"},
	{Name: "min", Arity: ArityOne, Sized: true, Params: []string{"min"}},
	{Name: "min_digits", Arity: ArityOne, Params: []string{"min"}},
	{Name: "missing"},
	{Name: "missing_if", Arity: ArityList, Params: []string{"other"}, Rest: "value", FieldParam: true},
	{Name: "missing_unless", Arity: ArityList, Params: []string{"other"}, Rest: "value", FieldParam: true},
	{Name: "missing_with", Arity: ArityList, Rest: "values"},
	{Name: "missing_with_all", Arity: ArityList, Rest: "values"},
	{Name: "multiple_of", Arity: ArityOne, Params: []string{"value"}},
	{Name: "not_in", Arity: ArityList},
	{Name: "not_regex", Arity: ArityPattern},
	{Name: "nullable"},
	{Name: "numeric"},
	{Name: "password"},
	{Name: "password_letters"},
	{Name: "password_mixed"},
	{Name: "password_numbers"},
	{Name: "password_symbols"},
	{Name: "password_uncompromised"},
	{Name: "present"},
	{Name: "present_if", Arity: ArityList, Params: []string{"other"}, Rest: "value", FieldParam: true},
	{Name: "present_unless", Arity: ArityList, Params: []string{"other"}, Rest: "value", FieldParam: true},
	{Name: "present_with", Arity: ArityList, Rest: "values"},
	{Name: "present_with_all", Arity: ArityList, Rest: "values"},
	{Name: "prohibited"},
	{Name: "prohibited_if", Arity: ArityList, Params: []string{"other"}, Rest: "value", FieldParam: true},
	{Name: "prohibited_unless", Arity: ArityList, Params: []string{"other"}, Rest: "values", FieldParam: true},
	{Name: "prohibits", Arity: ArityList, Rest: "other"},
	{Name: "regex", Arity: ArityPattern},
	{Name: "required"},
	{Name: "required_array_keys", Arity: ArityList, Rest: "values"},
	{Name: "required_if", Arity: ArityList, Params: []string{"other"}, Rest: "value", FieldParam: true},
	{Name: "required_if_accepted", Arity: ArityOne, Params: []string{"other"}, FieldParam: true},
	{Name: "required_if_declined", Arity: ArityOne, Params: []string{"other"}, FieldParam: true},
	{Name: "required_unless", Arity: ArityList, Params: []string{"other"}, Rest: "values", FieldParam: true},
	{Name: "required_with", Arity: ArityList, Rest: "values"},
	{Name: "required_with_all", Arity: ArityList, Rest: "values"},
	{Name: "required_without", Arity: ArityList, Rest: "values"},
	{Name: "required_without_all", Arity: ArityList, Rest: "values"},
	{Name: "same", Arity: ArityOne, Params: []string{"other"}, FieldParam: true},
	{Name: "size", Arity: ArityOne, Sized: true, Params: []string{"size"}},
	{Name: "sometimes"},
	{Name: "starts_with", Arity: ArityList, Rest: "values"},
	{Name: "string"},
	{Name: "timezone", Arity: ArityList},
	{Name: "ulid"},
	{Name: "unique", Arity: ArityList},
	{Name: "uppercase"},
	{Name: "url", Arity: ArityList},
	{Name: "uuid", Arity: ArityOne},
}
