package zod

import (
	"strings"

	"github.com/tlipoca9/zodgen/validation"
)

// ObjectReferenceBuilder renders a reference to another named schema.
type ObjectReferenceBuilder struct {
	chain
	ref string
}

func NewObjectReferenceBuilder(ref string) *ObjectReferenceBuilder {
	return &ObjectReferenceBuilder{ref: ref}
}

func (b *ObjectReferenceBuilder) Ref() string { return b.ref }

// Apply accepts presence rules only; a referenced schema carries its own rules.
func (b *ObjectReferenceBuilder) Apply(v validation.ResolvedValidation) bool {
	return applyRule(markerRules[*ObjectReferenceBuilder](), b, v)
}

func (b *ObjectReferenceBuilder) Build() string {
	return b.render(b.ref)
}

// ObjectProperty is one key of an inline object.
type ObjectProperty struct {
	Key     string
	Builder Builder
}

// InlineObjectBuilder renders z.object({ ... }) from nested property builders.
type InlineObjectBuilder struct {
	chain
	props []ObjectProperty
}

func NewInlineObjectBuilder() *InlineObjectBuilder {
	return &InlineObjectBuilder{}
}

// Add appends a property; keys keep insertion order.
func (b *InlineObjectBuilder) Add(key string, builder Builder) {
	b.props = append(b.props, ObjectProperty{Key: key, Builder: builder})
}

func (b *InlineObjectBuilder) Properties() []ObjectProperty { return b.props }

func (b *InlineObjectBuilder) Apply(v validation.ResolvedValidation) bool {
	return applyRule(markerRules[*InlineObjectBuilder](), b, v)
}

func (b *InlineObjectBuilder) Build() string {
	if len(b.props) == 0 {
		return b.render("z.object({})")
	}
	var sb strings.Builder
	sb.WriteString("z.object({ ")
	for i, p := range b.props {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(PropertyKey(p.Key))
		sb.WriteString(": ")
		sb.WriteString(p.Builder.Build())
	}
	sb.WriteString(" })")
	return b.render(sb.String())
}

// AnyBuilder renders z.any(). It is used for values nothing else can describe,
// such as recursion past the inline depth.
type AnyBuilder struct {
	chain
}

func NewAnyBuilder() *AnyBuilder { return &AnyBuilder{} }

func (b *AnyBuilder) Apply(v validation.ResolvedValidation) bool {
	return applyRule(markerRules[*AnyBuilder](), b, v)
}

func (b *AnyBuilder) Build() string { return b.render("z.any()") }

func markerRules[B any]() ruleTable[B] {
	return ruleTable[B]{
		"required": noop[B],
		"filled":   noop[B],
		"array":    noop[B],
	}
}
