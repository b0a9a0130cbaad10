// Package schema assembles resolved rule sets into Zod object schemas and
// writes them out as TypeScript modules.
//
// A run goes through three phases: Extract turns a Source into
// ExtractedSchemaData, the Assembler renders each schema expression with its
// cross-field refinements, and the Writer orders schemas by dependency and
// produces the output files. Pipeline wires the phases together.
package schema

import (
	"errors"
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/tlipoca9/zodgen/rules"
	"github.com/tlipoca9/zodgen/validation"
)

// ErrEmptySchema is returned when a run produced no schema at all.
var ErrEmptySchema = errors.New("no schema generated")

// ErrDuplicateSchema is returned when two classes map to the same schema
// name or constant.
var ErrDuplicateSchema = errors.New("duplicate schema")

// Kind is the kind of declaration a schema was extracted from.
type Kind string

const (
	KindFormRequest Kind = "form-request"
	KindPlainClass  Kind = "plain-class"
	KindDataObject  Kind = "data-object"
)

// Source is one rule set to turn into a schema.
type Source struct {
	// Name is the schema name; the constant is Name plus the type suffix.
	Name string
	// Class identifies the declaration, e.g. example.com/app/forms.CreateUser.
	Class string
	Kind  Kind
	Rules rules.Set
	// Messages are custom messages keyed by field.rule or rule.
	Messages map[string]string
	// Attributes are display names keyed by field.
	Attributes map[string]string
	// Refs maps a field to the class of the schema it embeds.
	Refs map[string]string
	// ItemRefs maps an array field to the class of its item schema.
	ItemRefs map[string]string
	// EnumRefs maps a field to an expression holding its enum values.
	EnumRefs map[string]string
	// Optional lists fields that may be absent regardless of their rules.
	Optional []string
}

// PropertyData is one top-level property of an extracted schema.
type PropertyData struct {
	Name        string
	Optional    bool
	Validations *validation.Set
	Ref         string
	ItemRef     string
	EnumRef     string
}

// ExtractedSchemaData is one schema unit ready for assembly.
type ExtractedSchemaData struct {
	Name         string
	Class        string
	Kind         Kind
	Properties   []PropertyData
	Dependencies []string
}

// Extract resolves the rules of src into schema data. Properties keep the
// order of src.Rules; dependencies keep first-reference order.
func Extract(src Source, resolver *validation.Resolver) (ExtractedSchemaData, error) {
	if strings.TrimSpace(src.Name) == "" {
		return ExtractedSchemaData{}, fmt.Errorf("source %q has no schema name", src.Class)
	}
	if resolver == nil {
		resolver = validation.NewResolver()
	}
	var opts []validation.Option
	if len(src.Messages) > 0 {
		opts = append(opts, validation.WithMessages(src.Messages))
	}
	if len(src.Attributes) > 0 {
		opts = append(opts, validation.WithAttributes(src.Attributes))
	}
	if len(opts) > 0 {
		resolver = resolver.With(opts...)
	}

	data := ExtractedSchemaData{
		Name:  src.Name,
		Class: src.Class,
		Kind:  src.Kind,
	}
	if data.Kind == "" {
		data.Kind = KindFormRequest
	}
	forced := sets.New(src.Optional...)
	seen := sets.New[string]()
	for _, set := range resolver.ResolveAll(src.Rules) {
		p := PropertyData{
			Name:        set.Field,
			Optional:    forced.Has(set.Field) || isOptional(set),
			Validations: set,
			Ref:         src.Refs[set.Field],
			ItemRef:     src.ItemRefs[set.Field],
			EnumRef:     src.EnumRefs[set.Field],
		}
		for _, dep := range []string{p.Ref, p.ItemRef} {
			if dep != "" && !seen.Has(dep) {
				seen.Insert(dep)
				data.Dependencies = append(data.Dependencies, dep)
			}
		}
		data.Properties = append(data.Properties, p)
	}
	return data, nil
}

// isOptional reports whether a field may be absent: it is not required, or
// it is only validated when present.
func isOptional(set *validation.Set) bool {
	return !set.Required || set.Has("sometimes")
}
