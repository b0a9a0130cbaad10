package rules

import (
	"go/ast"
	"go/constant"
	"go/token"
	"reflect"
	"runtime"
	"strconv"
	"strings"

	"k8s.io/apimachinery/pkg/util/sets"
)

// accessorMethods are the request methods recognized as reading a field's input.
var accessorMethods = map[string]bool{
	"Input":  true,
	"Get":    true,
	"String": true,
	"Value":  true,
}

// Extraction is the compared field and value set recovered from a predicate.
type Extraction struct {
	Field  string
	Values []string
}

// Rule renders the extraction as a conditional rule token, e.g. required_if:status,shipped.
func (e Extraction) Rule(keyword string) string {
	return RawRule{Name: keyword, Parameters: append([]string{e.Field}, e.Values...)}.String()
}

// NormalizeConditional turns a conditional predicate into a rule string.
// A bool yields base or "". A function is first analyzed statically; when that
// fails it is invoked with an empty request and yields base if it returns true.
// The result is "" when the rule is inactive.
func (a *Analyzer) NormalizeConditional(predicate any, base, keyword string) string {
	switch p := predicate.(type) {
	case nil:
		return ""
	case bool:
		if p {
			return base
		}
		return ""
	}
	if ext, ok := a.Extract(predicate); ok {
		return ext.Rule(keyword)
	}
	if Evaluate(predicate) {
		return base
	}
	return ""
}

// NormalizeConditional uses DefaultAnalyzer.
func NormalizeConditional(predicate any, base, keyword string) string {
	return DefaultAnalyzer.NormalizeConditional(predicate, base, keyword)
}

// Extract statically analyzes a predicate function. It locates the function's
// source through the runtime symbol table.
func (a *Analyzer) Extract(predicate any) (Extraction, bool) {
	v := reflect.ValueOf(predicate)
	if v.Kind() != reflect.Func || v.IsNil() {
		return Extraction{}, false
	}
	fn := runtime.FuncForPC(v.Pointer())
	if fn == nil {
		return Extraction{}, false
	}
	file, line := fn.FileLine(fn.Entry())
	return a.ExtractAt(file, line)
}

// ExtractAt analyzes the predicate whose func keyword sits on the given line of path.
func (a *Analyzer) ExtractAt(path string, line int) (Extraction, bool) {
	src := a.source(path)
	if src == nil {
		return Extraction{}, false
	}
	expr, param, ok := a.predicateAt(src, line)
	if !ok {
		return Extraction{}, false
	}
	x := &extractor{a: a, src: src, param: param}
	ext, ok := x.condition(expr)
	if !ok {
		return Extraction{}, false
	}
	seen := sets.New[string]()
	values := make([]string, 0, len(ext.Values))
	for _, v := range ext.Values {
		if v == "" || seen.Has(v) {
			continue
		}
		seen.Insert(v)
		values = append(values, v)
	}
	if ext.Field == "" || len(values) == 0 {
		return Extraction{}, false
	}
	ext.Values = values
	return ext, true
}

// Evaluate invokes a predicate with an empty request. Panics and non-bool
// results count as false.
func Evaluate(predicate any) (result bool) {
	defer func() {
		if recover() != nil {
			result = false
		}
	}()
	switch p := predicate.(type) {
	case bool:
		return p
	case Predicate:
		return p(emptyRequest{})
	case func(Request) bool:
		return p(emptyRequest{})
	case func() bool:
		return p()
	}
	v := reflect.ValueOf(predicate)
	if v.Kind() != reflect.Func || v.IsNil() {
		return false
	}
	t := v.Type()
	if t.NumOut() != 1 || t.Out(0).Kind() != reflect.Bool || t.NumIn() > 1 || t.IsVariadic() {
		return false
	}
	var args []reflect.Value
	if t.NumIn() == 1 {
		in := t.In(0)
		if reflect.TypeOf(emptyRequest{}).AssignableTo(in) {
			args = append(args, reflect.ValueOf(emptyRequest{}))
		} else {
			args = append(args, reflect.Zero(in))
		}
	}
	return v.Call(args)[0].Bool()
}

// extractor walks one predicate expression.
type extractor struct {
	a     *Analyzer
	src   *sourceFile
	param string
}

func (x *extractor) condition(e ast.Expr) (Extraction, bool) {
	switch n := unparen(e).(type) {
	case *ast.BinaryExpr:
		switch n.Op {
		case token.EQL:
			if field, ok := x.accessor(n.X); ok {
				return x.compare(field, n.Y)
			}
			if field, ok := x.accessor(n.Y); ok {
				return x.compare(field, n.X)
			}
		case token.LOR:
			left, ok := x.condition(n.X)
			if !ok {
				return Extraction{}, false
			}
			right, ok := x.condition(n.Y)
			if !ok || right.Field != left.Field {
				return Extraction{}, false
			}
			return Extraction{Field: left.Field, Values: append(left.Values, right.Values...)}, true
		}
	case *ast.CallExpr:
		if x.isFunc(n.Fun, "slices", "Contains") && len(n.Args) == 2 {
			field, ok := x.accessor(n.Args[1])
			if !ok {
				return Extraction{}, false
			}
			list, ok := unparen(n.Args[0]).(*ast.CompositeLit)
			if !ok {
				return Extraction{}, false
			}
			ext := Extraction{Field: field}
			for _, elt := range list.Elts {
				v, ok := x.literal(elt)
				if !ok {
					return Extraction{}, false
				}
				ext.Values = append(ext.Values, constantString(v))
			}
			return ext, true
		}
	}
	return Extraction{}, false
}

func (x *extractor) compare(field string, rhs ast.Expr) (Extraction, bool) {
	v, ok := x.literal(rhs)
	if !ok {
		return Extraction{}, false
	}
	return Extraction{Field: field, Values: []string{constantString(v)}}, true
}

// accessor recognizes reads of a request field: r.Input("f"), r.Get("f"),
// r.Input("f").(string), fmt.Sprint(r.Input("f")) and r.Field selectors.
func (x *extractor) accessor(e ast.Expr) (string, bool) {
	if x.param == "" || x.param == "_" {
		return "", false
	}
	switch n := unparen(e).(type) {
	case *ast.TypeAssertExpr:
		return x.accessor(n.X)
	case *ast.CallExpr:
		if x.isFunc(n.Fun, "fmt", "Sprint") && len(n.Args) == 1 {
			return x.accessor(n.Args[0])
		}
		sel, ok := n.Fun.(*ast.SelectorExpr)
		if !ok || !x.isParam(sel.X) || !accessorMethods[sel.Sel.Name] || len(n.Args) != 1 {
			return "", false
		}
		v, ok := x.literal(n.Args[0])
		if !ok || v.Kind() != constant.String {
			return "", false
		}
		return constant.StringVal(v), true
	case *ast.SelectorExpr:
		if x.isParam(n.X) {
			return SnakeCase(n.Sel.Name), true
		}
	}
	return "", false
}

func (x *extractor) isParam(e ast.Expr) bool {
	id, ok := e.(*ast.Ident)
	return ok && id.Name == x.param
}

// isFunc reports whether fun is pkg.name for an import of pkg in the predicate's file.
func (x *extractor) isFunc(fun ast.Expr, pkg, name string) bool {
	sel, ok := fun.(*ast.SelectorExpr)
	if !ok || sel.Sel.Name != name {
		return false
	}
	id, ok := sel.X.(*ast.Ident)
	if !ok {
		return false
	}
	path, ok := x.src.imports[id.Name]
	return ok && (path == pkg || strings.HasSuffix(path, "/"+pkg))
}

// literal resolves an expression to a constant, the way the compiler would for
// constant expressions.
func (x *extractor) literal(e ast.Expr) (constant.Value, bool) {
	return x.a.constExpr(x.src, unparen(e), -1)
}

func unparen(e ast.Expr) ast.Expr {
	for {
		p, ok := e.(*ast.ParenExpr)
		if !ok {
			return e
		}
		e = p.X
	}
}

// constantString formats a resolved literal as a rule parameter.
func constantString(v constant.Value) string {
	switch v.Kind() {
	case constant.String:
		return constant.StringVal(v)
	case constant.Bool:
		return strconv.FormatBool(constant.BoolVal(v))
	case constant.Int:
		return v.ExactString()
	case constant.Float:
		if f, ok := constant.Float64Val(v); ok {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
		return v.String()
	}
	return v.ExactString()
}
