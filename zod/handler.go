package zod

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/tlipoca9/zodgen/validation"
)

// ErrNoHandler is returned when no handler accepts a property. The universal
// handler makes it unreachable unless it was left out of the registry.
var ErrNoHandler = errors.New("no handler for property")

// Handler priorities. Higher priorities are consulted first; use 5 or 10
// point gaps between built-ins for custom handlers.
const (
	PriorityEnum            = 100
	PriorityEmail           = 90
	PriorityPassword        = 85
	PriorityURL             = 80
	PriorityFile            = 75
	PriorityBoolean         = 70
	PriorityNumber          = 60
	PriorityArray           = 50
	PriorityObjectReference = 40
	PriorityInlineObject    = 30
	PriorityString          = 10
	PriorityUniversal       = 0
)

// Property is one field of a schema as seen by the handlers.
type Property struct {
	Name        string
	Validations *validation.Set
	Optional    bool
	// Ref names another schema constant this property points to.
	Ref string
	// ItemRef names the schema constant of each array item.
	ItemRef string
	// EnumRef is an external expression holding the enum values.
	EnumRef string
}

func (p Property) set() *validation.Set {
	if p.Validations == nil {
		return &validation.Set{Field: p.Name, Type: validation.TypeString}
	}
	return p.Validations
}

// Type returns the inferred type, defaulting to string.
func (p Property) Type() validation.TypeTag {
	if t := p.set().Type; t != "" {
		return t
	}
	return validation.TypeString
}

// Handler picks and prepares a builder for a property.
type Handler interface {
	Name() string
	Priority() int
	// CanHandle reports whether the handler accepts the inferred type.
	CanHandle(t validation.TypeTag) bool
	// CanHandleProperty reports a property-level match, e.g. an explicit
	// email rule. Property matches win over type matches.
	CanHandleProperty(p Property) bool
	Handle(p Property, reg *Registry) (Builder, error)
}

// Registry holds handlers sorted by descending priority and the custom rules
// applied to every builder.
type Registry struct {
	mu       sync.RWMutex
	handlers []Handler
	custom   []CustomRule
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// DefaultRegistry returns a new registry holding the built-in handlers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.RegisterMany(
		EnumHandler{},
		EmailHandler{},
		PasswordHandler{},
		URLHandler{},
		FileHandler{},
		BooleanHandler{},
		NumberHandler{},
		ArrayHandler{},
		ObjectReferenceHandler{},
		InlineObjectHandler{},
		StringHandler{},
		UniversalHandler{},
	)
	return r
}

// Register adds a handler. Handlers of equal priority keep registration order.
func (r *Registry) Register(h Handler) {
	r.RegisterMany(h)
}

// RegisterMany adds handlers.
func (r *Registry) RegisterMany(hs ...Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = append(r.handlers, hs...)
	slices.SortStableFunc(r.handlers, func(a, b Handler) int {
		return b.Priority() - a.Priority()
	})
}

// RegisterCustom adds custom rules. They are consulted before the builder's
// own translation, highest priority first.
func (r *Registry) RegisterCustom(rules ...CustomRule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.custom = append(r.custom, rules...)
	slices.SortStableFunc(r.custom, func(a, b CustomRule) int {
		return b.Priority() - a.Priority()
	})
}

// Handlers returns the handlers in consultation order.
func (r *Registry) Handlers() []Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.handlers)
}

// HandlerFor returns the first handler matching the property. Every handler's
// property-level check runs before any type-level check.
func (r *Registry) HandlerFor(p Property) (Handler, error) {
	hs := r.Handlers()
	for _, h := range hs {
		if h.CanHandleProperty(p) {
			return h, nil
		}
	}
	t := p.Type()
	for _, h := range hs {
		if h.CanHandle(t) {
			return h, nil
		}
	}
	return nil, fmt.Errorf("%w: field %q type %q", ErrNoHandler, p.Name, t)
}

// Build resolves the handler for p and returns its populated builder.
func (r *Registry) Build(p Property) (Builder, error) {
	h, err := r.HandlerFor(p)
	if err != nil {
		return nil, err
	}
	b, err := h.Handle(p, r)
	if err != nil {
		return nil, fmt.Errorf("handler %s: field %q: %w", h.Name(), p.Name, err)
	}
	return b, nil
}

// customFor returns the first custom rule matching rule.
func (r *Registry) customFor(rule string) CustomRule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.custom {
		if c.Matches(rule) {
			return c
		}
	}
	return nil
}

// configure sets field context and flags, then feeds every rule to b. A
// matching custom rule takes precedence; rules b cannot translate are skipped.
func (r *Registry) configure(b Builder, p Property) Builder {
	set := p.set()
	b.SetField(p.Name)
	b.SetNullable(set.Nullable)
	b.SetOptional(p.Optional)
	for _, v := range set.Validations {
		if c := r.customFor(v.Rule); c != nil {
			frag := c.Render(v.StringParams(), v.Message)
			if frag.Mode == ModeReplace {
				b.SetBase(frag.Code)
			} else {
				b.AddRule(frag.Code)
			}
			continue
		}
		b.Apply(v)
	}
	return b
}

// NewBuilderFor returns an empty builder for an inferred type.
func NewBuilderFor(t validation.TypeTag) Builder {
	switch {
	case t.IsEnum():
		return NewEnumBuilder(t.EnumValues())
	case t == validation.TypeEmail:
		return NewEmailBuilder()
	case t == validation.TypeURL:
		return NewURLBuilder()
	case t == validation.TypeNumber:
		return NewNumberBuilder()
	case t == validation.TypeBoolean:
		return NewBooleanBuilder()
	case t == validation.TypeArray:
		return NewArrayBuilder()
	case t == validation.TypeFile, t == validation.TypeImage:
		return NewFileBuilder()
	}
	return NewStringBuilder()
}

type EnumHandler struct{}

func (EnumHandler) Name() string                        { return "enum" }
func (EnumHandler) Priority() int                       { return PriorityEnum }
func (EnumHandler) CanHandle(t validation.TypeTag) bool { return t.IsEnum() }
func (h EnumHandler) CanHandleProperty(p Property) bool {
	return p.EnumRef != "" || h.CanHandle(p.Type())
}
func (EnumHandler) Handle(p Property, r *Registry) (Builder, error) {
	if p.EnumRef != "" {
		return r.configure(NewEnumRefBuilder(p.EnumRef), p), nil
	}
	return r.configure(NewEnumBuilder(p.Type().EnumValues()), p), nil
}

type EmailHandler struct{}

func (EmailHandler) Name() string                        { return "email" }
func (EmailHandler) Priority() int                       { return PriorityEmail }
func (EmailHandler) CanHandle(t validation.TypeTag) bool { return t == validation.TypeEmail }
func (EmailHandler) CanHandleProperty(p Property) bool {
	return scalar(p) && p.set().Has("email")
}
func (EmailHandler) Handle(p Property, r *Registry) (Builder, error) {
	return r.configure(NewEmailBuilder(), p), nil
}

type PasswordHandler struct{}

func (PasswordHandler) Name() string                      { return "password" }
func (PasswordHandler) Priority() int                     { return PriorityPassword }
func (PasswordHandler) CanHandle(validation.TypeTag) bool { return false }
func (PasswordHandler) CanHandleProperty(p Property) bool {
	return scalar(p) && slices.ContainsFunc(p.set().Rules(), IsPasswordRule)
}
func (PasswordHandler) Handle(p Property, r *Registry) (Builder, error) {
	return r.configure(NewPasswordBuilder(), p), nil
}

type URLHandler struct{}

func (URLHandler) Name() string                        { return "url" }
func (URLHandler) Priority() int                       { return PriorityURL }
func (URLHandler) CanHandle(t validation.TypeTag) bool { return t == validation.TypeURL }
func (URLHandler) CanHandleProperty(p Property) bool {
	return scalar(p) && p.set().HasAny("url", "active_url")
}
func (URLHandler) Handle(p Property, r *Registry) (Builder, error) {
	return r.configure(NewURLBuilder(), p), nil
}

type FileHandler struct{}

func (FileHandler) Name() string  { return "file" }
func (FileHandler) Priority() int { return PriorityFile }
func (FileHandler) CanHandle(t validation.TypeTag) bool {
	return t == validation.TypeFile || t == validation.TypeImage
}
func (FileHandler) CanHandleProperty(p Property) bool {
	return scalar(p) && p.set().HasAny("file", "image", "mimes", "mimetypes", "extensions", "dimensions")
}
func (FileHandler) Handle(p Property, r *Registry) (Builder, error) {
	return r.configure(NewFileBuilder(), p), nil
}

type BooleanHandler struct{}

func (BooleanHandler) Name() string                        { return "boolean" }
func (BooleanHandler) Priority() int                       { return PriorityBoolean }
func (BooleanHandler) CanHandle(t validation.TypeTag) bool { return t == validation.TypeBoolean }
func (BooleanHandler) CanHandleProperty(p Property) bool {
	return scalar(p) && p.set().HasAny("boolean", "bool")
}
func (BooleanHandler) Handle(p Property, r *Registry) (Builder, error) {
	return r.configure(NewBooleanBuilder(), p), nil
}

type NumberHandler struct{}

func (NumberHandler) Name() string                        { return "number" }
func (NumberHandler) Priority() int                       { return PriorityNumber }
func (NumberHandler) CanHandle(t validation.TypeTag) bool { return t == validation.TypeNumber }
func (NumberHandler) CanHandleProperty(p Property) bool {
	return scalar(p) && p.set().HasAny("integer", "numeric")
}
func (NumberHandler) Handle(p Property, r *Registry) (Builder, error) {
	return r.configure(NewNumberBuilder(), p), nil
}

// ArrayHandler builds arrays whose items come from a schema reference, the
// field.*.key object shape, or the field.* rules, in that order.
type ArrayHandler struct{}

func (ArrayHandler) Name() string                        { return "array" }
func (ArrayHandler) Priority() int                       { return PriorityArray }
func (ArrayHandler) CanHandle(t validation.TypeTag) bool { return t == validation.TypeArray }
func (ArrayHandler) CanHandleProperty(p Property) bool {
	return p.ItemRef != "" || p.set().IsArray()
}
func (ArrayHandler) Handle(p Property, r *Registry) (Builder, error) {
	b := NewArrayBuilder()
	set := p.set()
	switch {
	case p.ItemRef != "":
		b.SetItemBuilder(NewObjectReferenceBuilder(p.ItemRef))
	case len(set.ObjectProperties) > 0:
		obj, err := r.inlineObject(set.ObjectProperties)
		if err != nil {
			return nil, err
		}
		b.SetItemBuilder(obj)
	case set.Nested != nil:
		item, err := r.Build(Property{Name: set.Nested.Field, Validations: set.Nested})
		if err != nil {
			return nil, err
		}
		b.SetItemBuilder(item)
	}
	return r.configure(b, p), nil
}

type ObjectReferenceHandler struct{}

func (ObjectReferenceHandler) Name() string                      { return "object_reference" }
func (ObjectReferenceHandler) Priority() int                     { return PriorityObjectReference }
func (ObjectReferenceHandler) CanHandle(validation.TypeTag) bool { return false }
func (ObjectReferenceHandler) CanHandleProperty(p Property) bool { return p.Ref != "" }
func (ObjectReferenceHandler) Handle(p Property, r *Registry) (Builder, error) {
	return r.configure(NewObjectReferenceBuilder(p.Ref), p), nil
}

// InlineObjectHandler renders dotted keys (address.city) as a nested object.
type InlineObjectHandler struct{}

func (InlineObjectHandler) Name() string                      { return "inline_object" }
func (InlineObjectHandler) Priority() int                     { return PriorityInlineObject }
func (InlineObjectHandler) CanHandle(validation.TypeTag) bool { return false }
func (InlineObjectHandler) CanHandleProperty(p Property) bool { return p.set().IsObject() }
func (InlineObjectHandler) Handle(p Property, r *Registry) (Builder, error) {
	obj, err := r.inlineObject(p.set().Properties)
	if err != nil {
		return nil, err
	}
	return r.configure(obj, p), nil
}

func (r *Registry) inlineObject(children []*validation.Set) (*InlineObjectBuilder, error) {
	obj := NewInlineObjectBuilder()
	for _, child := range children {
		b, err := r.Build(Property{Name: child.Field, Validations: child, Optional: !child.Required})
		if err != nil {
			return nil, err
		}
		obj.Add(child.Key, b)
	}
	return obj, nil
}

type StringHandler struct{}

func (StringHandler) Name() string  { return "string" }
func (StringHandler) Priority() int { return PriorityString }
func (StringHandler) CanHandle(t validation.TypeTag) bool {
	switch t {
	case validation.TypeString, validation.TypeUUID, validation.TypeULID,
		validation.TypeIP, validation.TypeJSON, validation.TypeDate:
		return true
	}
	return false
}
func (StringHandler) CanHandleProperty(Property) bool { return false }
func (StringHandler) Handle(p Property, r *Registry) (Builder, error) {
	return r.configure(NewStringBuilder(), p), nil
}

// UniversalHandler matches every property and picks the builder from the
// inferred type.
type UniversalHandler struct{}

func (UniversalHandler) Name() string                      { return "universal" }
func (UniversalHandler) Priority() int                     { return PriorityUniversal }
func (UniversalHandler) CanHandle(validation.TypeTag) bool { return true }
func (UniversalHandler) CanHandleProperty(Property) bool   { return false }
func (UniversalHandler) Handle(p Property, r *Registry) (Builder, error) {
	return r.configure(NewBuilderFor(p.Type()), p), nil
}

// scalar reports whether p is neither an array nor a nested object.
func scalar(p Property) bool {
	set := p.set()
	return p.Ref == "" && p.ItemRef == "" && !set.IsArray() && !set.IsObject()
}
