package generator

import (
	"go/constant"
	"go/token"
	"go/types"
	"slices"
	"strings"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/tlipoca9/zodgen/genkit"
	"github.com/tlipoca9/zodgen/rules"
	"github.com/tlipoca9/zodgen/schema"
)

// maxInlineDepth bounds how deep plain structs are inlined as nested objects.
const maxInlineDepth = 3

// fieldAnnotations are the annotations zodgen understands on fields.
var fieldAnnotations = sets.New("message", "optional", "ignore")

// typeRules are rules that fix a field's type; Go type hints are not added
// next to them.
var typeRules = sets.New(
	"string", "integer", "numeric", "decimal", "boolean", "bool", "array", "list",
	"date", "date_format", "email", "url", "active_url", "uuid", "ulid", "ip", "ipv4",
	"ipv6", "json", "file", "image", "mimes", "mimetypes", "in", "enum",
)

// Found is a source discovered in a Go package.
type Found struct {
	schema.Source
	Package string
	Pos     token.Position
}

// Scanner discovers zodgen:@schema types in loaded packages.
type Scanner struct {
	gen       *genkit.Generator
	packages  map[string]*genkit.Package
	annotated map[string]*genkit.Type
	diags     *genkit.DiagnosticCollector
}

// NewScanner indexes the annotated types of gen.
func NewScanner(gen *genkit.Generator) *Scanner {
	s := &Scanner{
		gen:       gen,
		packages:  make(map[string]*genkit.Package),
		annotated: make(map[string]*genkit.Type),
		diags:     genkit.NewDiagnosticCollector(ToolName),
	}
	for _, pkg := range gen.Packages {
		s.packages[pkg.PkgPath] = pkg
		for _, typ := range pkg.Types {
			if isSchema(typ) {
				s.annotated[typ.QualifiedName()] = typ
			}
		}
	}
	return s
}

func isSchema(typ *genkit.Type) bool {
	return genkit.HasAnnotation(typ.Doc, ToolName, "schema")
}

// Scan returns the sources in package and declaration order, with the
// diagnostics found on the way.
func (s *Scanner) Scan() ([]Found, []genkit.Diagnostic) {
	var found []Found
	for _, pkg := range s.gen.Packages {
		for _, typ := range pkg.Types {
			if !isSchema(typ) {
				continue
			}
			if typ.Object == nil {
				continue
			}
			if _, ok := typ.Object.Underlying().(*types.Struct); !ok {
				s.diags.Warningf(ErrCodeUnsupportedType, typ.Pos,
					"zodgen:@schema on %s ignored: not a struct", typ.Name)
				continue
			}
			found = append(found, Found{Source: s.source(typ), Package: pkg.PkgPath, Pos: typ.Pos})
		}
	}
	return found, s.diags.Collect()
}

// HasErrors reports whether the last Scan recorded an error diagnostic.
func (s *Scanner) HasErrors() bool {
	return s.diags.HasErrors()
}

// sourceBuilder accumulates one schema source.
type sourceBuilder struct {
	src  schema.Source
	self string
}

func (b *sourceBuilder) add(field, rule string) {
	b.src.Rules = append(b.src.Rules, rules.Field{Name: field, Rules: rule})
}

func (s *Scanner) source(typ *genkit.Type) schema.Source {
	ann := genkit.GetAnnotation(typ.Doc, ToolName, "schema")
	b := &sourceBuilder{
		self: typ.QualifiedName(),
		src: schema.Source{
			Name:       ann.GetOr("name", typ.Name),
			Class:      typ.QualifiedName(),
			Messages:   map[string]string{},
			Attributes: map[string]string{},
			Refs:       map[string]string{},
			ItemRefs:   map[string]string{},
		},
	}
	s.fields(b, "", typ.Fields, 0)
	if len(b.src.Rules) == 0 {
		s.diags.Warningf(ErrCodeNoFields, typ.Pos, "schema %s has no exported fields", typ.Name)
	}

	b.src.Kind = schema.KindFormRequest
	if len(b.src.Refs) > 0 || len(b.src.ItemRefs) > 0 {
		b.src.Kind = schema.KindDataObject
	}
	if k := ann.Get("kind"); k != "" {
		switch kind := schema.Kind(k); kind {
		case schema.KindFormRequest, schema.KindPlainClass, schema.KindDataObject:
			b.src.Kind = kind
		default:
			s.diags.Errorf(ErrCodeInvalidKind, typ.Pos, "unknown schema kind %q on %s", k, typ.Name)
		}
	}
	return b.src
}

func (s *Scanner) fields(b *sourceBuilder, prefix string, fields []*genkit.Field, depth int) {
	for _, f := range fields {
		if f.Embedded {
			if t := s.structType(f.GoType); t != nil {
				s.fields(b, prefix, t.Fields, depth)
			}
			continue
		}
		if !token.IsExported(f.Name) {
			continue
		}
		s.field(b, prefix, f, depth)
	}
}

func (s *Scanner) field(b *sourceBuilder, prefix string, f *genkit.Field, depth int) {
	anns := genkit.ParseDoc(f.Doc + "\n" + f.Comment)
	for _, a := range anns {
		if a.Tool == ToolName && !fieldAnnotations.Has(a.Name) {
			s.diags.Warningf(ErrCodeUnknownAnnotation, f.Pos, "unknown annotation %s", a.Raw)
		}
	}
	if anns.Has(ToolName, "ignore") {
		return
	}
	name, omitempty, ok := jsonName(f)
	if !ok {
		return
	}
	if jsonTag, _ := f.Lookup("json"); strings.Split(jsonTag, ",")[0] == "" && name != f.Name {
		s.diags.Warningf(ErrCodeUntaggedField, f.Pos,
			"field %s has no json name: keyed as %q, encoding/json would use %q", f.Name, name, f.Name)
	}
	key := prefix + name

	tag, _ := f.Lookup("rules")
	each, hasEach := f.Lookup("each")
	names := ruleNames(tag)

	t := f.GoType
	pointer := false
	if p, ok := t.(*types.Pointer); ok {
		t, pointer = p.Elem(), true
	}
	if depth > 0 && s.isSelf(b, t) {
		return
	}

	rule := tag
	if t != nil {
		h := s.hint(b, key, t, names, hasEach, depth, f.Pos)
		if h != "" && !names.HasAny(sets.List(typeRules)...) {
			rule = joinRules(rule, h)
		}
	}
	b.add(key, rule)
	if hasEach {
		b.add(key+".*", each)
	}

	for _, m := range anns.All(ToolName, "message") {
		if m.Flag(0) == "" || m.Flag(1) == "" {
			s.diags.Errorf(ErrCodeInvalidMessage, f.Pos,
				"zodgen:@message needs a rule and a text on %s", f.Name)
			continue
		}
		b.src.Messages[key+"."+m.Flag(0)] = m.Flag(1)
	}
	if anns.Has(ToolName, "optional") || ((pointer || omitempty) && !names.Has("required")) {
		if prefix == "" {
			b.src.Optional = append(b.src.Optional, key)
		}
	}
}

// hint derives a rule from the Go type of a field and records references.
// It returns "" when the type adds nothing.
func (s *Scanner) hint(
	b *sourceBuilder,
	key string,
	t types.Type,
	names sets.Set[string],
	hasEach bool,
	depth int,
	pos token.Position,
) string {
	t = types.Unalias(t)
	if isTime(t) {
		return "date"
	}
	if named, ok := t.(*types.Named); ok {
		if class := qualified(named); class != "" {
			if typ, ok := s.annotated[class]; ok {
				if class == b.self {
					s.fields(b, key+".", typ.Fields, maxInlineDepth)
					return ""
				}
				b.src.Refs[key] = class
				return ""
			}
		}
		if values := s.enumValues(named); len(values) > 0 && !names.HasAny("in", "enum") {
			return inRule(values)
		}
		if customJSON(named) {
			return ""
		}
		if typ := s.structType(named); typ != nil {
			if depth < maxInlineDepth {
				s.fields(b, key+".", typ.Fields, depth+1)
			}
			return ""
		}
	}

	switch u := t.Underlying().(type) {
	case *types.Basic:
		return basicHint(u)
	case *types.Slice:
		if elem, ok := u.Elem().Underlying().(*types.Basic); ok && elem.Kind() == types.Byte {
			return ""
		}
		s.itemHint(b, key, u.Elem(), hasEach, depth)
		return "array"
	case *types.Array:
		s.itemHint(b, key, u.Elem(), hasEach, depth)
		return "array"
	case *types.Struct:
		if len(names) == 0 {
			s.diags.Warningf(ErrCodeUnsupportedType, pos, "anonymous struct field %s has no rules", key)
		}
	default:
		if len(names) == 0 {
			s.diags.Warningf(ErrCodeUnsupportedType, pos, "field %s of type %s has no rules", key, t)
		}
	}
	return ""
}

// itemHint records the item schema of a slice: a reference for annotated
// structs, otherwise a scalar rule on key.* unless each already sets one.
func (s *Scanner) itemHint(b *sourceBuilder, key string, elem types.Type, hasEach bool, depth int) {
	if p, ok := elem.(*types.Pointer); ok {
		elem = p.Elem()
	}
	elem = types.Unalias(elem)
	if named, ok := elem.(*types.Named); ok {
		if class := qualified(named); class != "" {
			if _, ok := s.annotated[class]; ok && class != b.self {
				b.src.ItemRefs[key] = class
				return
			}
		}
	}
	if hasEach {
		return
	}
	if isTime(elem) {
		b.add(key+".*", "date")
		return
	}
	if named, ok := elem.(*types.Named); ok {
		if values := s.enumValues(named); len(values) > 0 {
			b.add(key+".*", inRule(values))
			return
		}
	}
	if basic, ok := elem.Underlying().(*types.Basic); ok {
		if h := basicHint(basic); h != "" {
			b.add(key+".*", h)
		}
		return
	}
	if named, ok := elem.(*types.Named); ok {
		if typ := s.structType(named); typ != nil && depth < maxInlineDepth {
			s.fields(b, key+".*.", typ.Fields, depth+1)
		}
	}
}

// customJSON reports whether a type controls its own encoding, e.g. uuid.UUID
// or decimal types. Their Go shape says nothing about the JSON value.
func customJSON(named *types.Named) bool {
	ms := types.NewMethodSet(types.NewPointer(named))
	for _, m := range []string{"MarshalJSON", "MarshalText"} {
		if ms.Lookup(named.Obj().Pkg(), m) != nil {
			return true
		}
	}
	return false
}

// isSelf reports whether t is the type the schema is generated for.
func (s *Scanner) isSelf(b *sourceBuilder, t types.Type) bool {
	named, ok := t.(*types.Named)
	return ok && qualified(named) == b.self
}

func basicHint(b *types.Basic) string {
	info := b.Info()
	switch {
	case info&types.IsBoolean != 0:
		return "boolean"
	case info&types.IsInteger != 0:
		return "integer"
	case info&types.IsFloat != 0:
		return "numeric"
	}
	return ""
}

// structType returns the loaded declaration of a named struct type.
func (s *Scanner) structType(t types.Type) *genkit.Type {
	if p, ok := t.(*types.Pointer); ok {
		t = p.Elem()
	}
	named, ok := t.(*types.Named)
	if !ok {
		return nil
	}
	if _, ok := named.Underlying().(*types.Struct); !ok {
		return nil
	}
	obj := named.Obj()
	if obj.Pkg() == nil {
		return nil
	}
	pkg, ok := s.packages[obj.Pkg().Path()]
	if !ok {
		return nil
	}
	return pkg.Type(obj.Name())
}

// enumValues lists the constants of a named scalar type in declaration
// order.
func (s *Scanner) enumValues(named *types.Named) []string {
	if _, ok := named.Underlying().(*types.Basic); !ok {
		return nil
	}
	obj := named.Obj()
	if obj.Pkg() == nil {
		return nil
	}
	if pkg, ok := s.packages[obj.Pkg().Path()]; ok {
		if e := pkg.Enum(obj.Name()); e != nil {
			values := make([]string, 0, len(e.Values))
			for _, v := range e.Values {
				values = append(values, v.Value)
			}
			return values
		}
	}

	scope := obj.Pkg().Scope()
	var consts []*types.Const
	for _, n := range scope.Names() {
		if c, ok := scope.Lookup(n).(*types.Const); ok && c.Exported() && types.Identical(c.Type(), named) {
			consts = append(consts, c)
		}
	}
	slices.SortFunc(consts, func(a, b *types.Const) int { return int(a.Pos() - b.Pos()) })
	values := make([]string, len(consts))
	for i, c := range consts {
		values[i] = constantText(c.Val())
	}
	return values
}

// inRule renders an in rule, quoting values the CSV reader would split.
func inRule(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		if strings.ContainsAny(v, ",\"") {
			v = `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
		}
		quoted[i] = v
	}
	return "in:" + strings.Join(quoted, ",")
}

func constantText(v constant.Value) string {
	if v.Kind() == constant.String {
		return constant.StringVal(v)
	}
	return v.ExactString()
}

func qualified(named *types.Named) string {
	obj := named.Obj()
	if obj.Pkg() == nil {
		return ""
	}
	return obj.Pkg().Path() + "." + obj.Name()
}

func isTime(t types.Type) bool {
	named, ok := t.(*types.Named)
	if !ok || named.Obj().Pkg() == nil {
		return false
	}
	return named.Obj().Pkg().Path() == "time" && named.Obj().Name() == "Time"
}

// jsonName returns the serialized key of a field. ok is false for json:"-".
func jsonName(f *genkit.Field) (name string, omitempty, ok bool) {
	tag, has := f.Lookup("json")
	if !has {
		return rules.SnakeCase(f.Name), false, true
	}
	name, opts, _ := strings.Cut(tag, ",")
	if name == "-" && opts == "" {
		return "", false, false
	}
	if name == "" {
		name = rules.SnakeCase(f.Name)
	}
	return name, slices.Contains(strings.Split(opts, ","), "omitempty"), true
}

func ruleNames(tag string) sets.Set[string] {
	names := sets.New[string]()
	for _, tok := range rules.SplitRules(tag) {
		if raw := rules.ParseToken(tok); raw.Name != "" {
			names.Insert(strings.ToLower(raw.Name))
		}
	}
	return names
}

func joinRules(a, b string) string {
	if a == "" {
		return b
	}
	return a + "|" + b
}
