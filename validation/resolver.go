package validation

import (
	"strings"

	"github.com/tlipoca9/zodgen/rules"
)

// Resolver turns canonical rules into validation sets. It is safe for
// concurrent use once built.
type Resolver struct {
	catalog    *Catalog
	localizer  Localizer
	normalizer *rules.Normalizer
	prober     *Prober
	messages   map[string]string
	attributes map[string]string
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithCatalog sets the rule catalog.
func WithCatalog(c *Catalog) Option { return func(r *Resolver) { r.catalog = c } }

// WithLocalizer sets the message localizer. A nil localizer disables templates.
func WithLocalizer(l Localizer) Option { return func(r *Resolver) { r.localizer = l } }

// WithNormalizer sets the normalizer used for non-string rule sources.
func WithNormalizer(n *rules.Normalizer) Option { return func(r *Resolver) { r.normalizer = n } }

// WithProber sets the slow-path type prober.
func WithProber(p *Prober) Option { return func(r *Resolver) { r.prober = p } }

// WithMessages adds custom messages keyed by field.rule, field.*.rule or rule.
func WithMessages(m map[string]string) Option {
	return func(r *Resolver) {
		for k, v := range m {
			r.messages[k] = v
		}
	}
}

// WithAttributes adds display names for fields.
func WithAttributes(m map[string]string) Option {
	return func(r *Resolver) {
		for k, v := range m {
			r.attributes[k] = v
		}
	}
}

// NewResolver returns a resolver using the default catalog and the English
// messages unless overridden.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		catalog:    DefaultCatalog(),
		localizer:  English(),
		normalizer: rules.NewNormalizer(nil),
		prober:     DefaultProber(),
		messages:   make(map[string]string),
		attributes: make(map[string]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// With returns a copy of r with extra options applied.
func (r *Resolver) With(opts ...Option) *Resolver {
	c := *r
	c.messages = make(map[string]string, len(r.messages))
	for k, v := range r.messages {
		c.messages[k] = v
	}
	c.attributes = make(map[string]string, len(r.attributes))
	for k, v := range r.attributes {
		c.attributes[k] = v
	}
	for _, opt := range opts {
		opt(&c)
	}
	return &c
}

// Catalog returns the rule catalog in use.
func (r *Resolver) Catalog() *Catalog { return r.catalog }

// Resolve resolves one field. source is any rule source the normalizer accepts.
func (r *Resolver) Resolve(field string, source any) *Set {
	return r.resolveTokens(field, lastSegment(field), r.normalizer.Tokens(source))
}

func (r *Resolver) resolveTokens(field, key string, tokens []string) *Set {
	set := &Set{Field: field, Key: key}
	specs := make([]RuleSpec, 0, len(tokens))
	for _, tok := range tokens {
		raw := rules.ParseToken(tok)
		if raw.Name == "" {
			continue
		}
		spec, known := r.catalog.Lookup(raw.Name)
		if !known {
			spec = RuleSpec{Name: raw.Name, Arity: ArityNone}
			if len(raw.Parameters) > 0 {
				spec.Arity = ArityList
			}
		}
		v := ResolvedValidation{
			Rule:       raw.Name,
			Parameters: coerceParams(spec, known, raw.Parameters),
			IsRequired: raw.Name == "required",
			IsNullable: raw.Name == "nullable",
		}
		set.Required = set.Required || v.IsRequired
		set.Nullable = set.Nullable || v.IsNullable
		set.Validations = append(set.Validations, v)
		specs = append(specs, spec)
	}
	set.Type = r.InferType(set)
	for i := range set.Validations {
		set.Validations[i].Message = r.message(set, set.Validations[i], specs[i])
	}
	return set
}

func coerceParams(spec RuleSpec, known bool, params []string) []any {
	if len(params) == 0 {
		return nil
	}
	switch spec.Arity {
	case ArityNone:
		return nil
	case ArityPattern:
		return []any{strings.Join(params, ",")}
	case ArityOne:
		return []any{coerceParam(params[0])}
	}
	if !known && len(params) == 1 {
		return []any{coerceParam(params[0])}
	}
	out := make([]any, len(params))
	for i, p := range params {
		out[i] = p
	}
	return out
}

// ResolveAll resolves a rule set, grouping wildcard and dotted keys under their
// parent: items.* becomes Nested, items.*.name an ObjectProperties entry and
// address.city a Properties entry. Top-level order follows first appearance.
func (r *Resolver) ResolveAll(set rules.Set) []*Set {
	root := &node{}
	for _, f := range set {
		n := root
		for _, seg := range strings.Split(f.Name, ".") {
			n = n.child(seg)
		}
		n.tokens = append(n.tokens, r.normalizer.Tokens(f.Rules)...)
	}
	out := make([]*Set, 0, len(root.order))
	for _, c := range root.order {
		out = append(out, r.resolveNode(c.name, c))
	}
	return out
}

type node struct {
	name     string
	tokens   []string
	wildcard *node
	children map[string]*node
	order    []*node
}

func (n *node) child(seg string) *node {
	if seg == "*" {
		if n.wildcard == nil {
			n.wildcard = &node{name: "*"}
		}
		return n.wildcard
	}
	if c, ok := n.children[seg]; ok {
		return c
	}
	if n.children == nil {
		n.children = make(map[string]*node)
	}
	c := &node{name: seg}
	n.children[seg] = c
	n.order = append(n.order, c)
	return c
}

func (r *Resolver) resolveNode(path string, n *node) *Set {
	set := r.resolveTokens(path, n.name, n.tokens)
	if w := n.wildcard; w != nil {
		set.Type = TypeArray
		if len(w.order) > 0 {
			for _, c := range w.order {
				set.ObjectProperties = append(set.ObjectProperties, r.resolveNode(path+".*."+c.name, c))
			}
		} else {
			set.Nested = r.resolveNode(path+".*", w)
		}
		r.remessage(set)
	}
	for _, c := range n.order {
		set.Properties = append(set.Properties, r.resolveNode(path+"."+c.name, c))
	}
	return set
}

// remessage recomputes messages after the type was forced, since sized
// messages depend on it.
func (r *Resolver) remessage(set *Set) {
	for i, v := range set.Validations {
		spec, ok := r.catalog.Lookup(v.Rule)
		if !ok || !spec.Sized {
			continue
		}
		set.Validations[i].Message = r.message(set, v, spec)
	}
}

// message resolves the message of one rule, or "" when none exists.
func (r *Resolver) message(set *Set, v ResolvedValidation, spec RuleSpec) string {
	for _, key := range r.customKeys(set.Field, v.Rule) {
		if m, ok := r.messages[key]; ok && m != "" {
			return Replace(m, r.placeholders(set, v, spec))
		}
	}
	if r.localizer == nil {
		return ""
	}
	replace := r.placeholders(set, v, spec)
	keys := []string{"validation.custom." + set.Field + "." + v.Rule}
	if spec.Sized {
		keys = append(keys, "validation."+v.Rule+"."+sizeKind(set.Type))
	}
	keys = append(keys, "validation."+v.Rule)
	for _, key := range keys {
		if m, ok := r.localizer.Translate(key, replace); ok && m != key {
			return m
		}
	}
	return ""
}

// customKeys lists lookup keys from most to least specific.
func (r *Resolver) customKeys(field, rule string) []string {
	keys := []string{field + "." + rule}
	if w := wildcardKey(field); w != field {
		keys = append(keys, w+"."+rule)
	}
	return append(keys, rule)
}

// wildcardKey replaces numeric path segments with *.
func wildcardKey(field string) string {
	segs := strings.Split(field, ".")
	for i, s := range segs {
		if s != "" && strings.Trim(s, "0123456789") == "" {
			segs[i] = "*"
		}
	}
	return strings.Join(segs, ".")
}

func (r *Resolver) placeholders(set *Set, v ResolvedValidation, spec RuleSpec) map[string]string {
	params := v.StringParams()
	replace := map[string]string{"attribute": r.Attribute(set.Field)}
	for i, name := range spec.Params {
		if i >= len(params) {
			break
		}
		val := params[i]
		if i == 0 && spec.FieldParam {
			val = r.Attribute(val)
		}
		replace[name] = val
	}
	if spec.Rest != "" && len(params) > len(spec.Params) {
		rest := params[len(spec.Params):]
		if spec.Rest == "other" || (spec.Rest == "values" && isFieldList(v.Rule)) {
			for i, p := range rest {
				rest[i] = r.Attribute(p)
			}
		}
		replace[spec.Rest] = strings.Join(rest, ", ")
	}
	if v.Rule == "in" || v.Rule == "not_in" {
		replace["values"] = strings.Join(params, ", ")
	}
	return replace
}

func isFieldList(rule string) bool {
	return strings.HasPrefix(rule, "required_with") ||
		strings.HasPrefix(rule, "missing_with") ||
		strings.HasPrefix(rule, "present_with")
}

// Attribute returns the display name of a field.
func (r *Resolver) Attribute(field string) string {
	if a, ok := r.attributes[field]; ok {
		return a
	}
	if a, ok := r.attributes[wildcardKey(field)]; ok {
		return a
	}
	if r.localizer != nil {
		key := "validation.attributes." + field
		if a, ok := r.localizer.Translate(key, nil); ok && a != key {
			return a
		}
	}
	return Humanize(field)
}

func sizeKind(t TypeTag) string {
	switch t {
	case TypeNumber:
		return "numeric"
	case TypeArray:
		return "array"
	case TypeFile, TypeImage:
		return "file"
	}
	return "string"
}

func lastSegment(field string) string {
	segs := strings.Split(field, ".")
	for i := len(segs) - 1; i >= 0; i-- {
		if segs[i] != "*" {
			return segs[i]
		}
	}
	return field
}
