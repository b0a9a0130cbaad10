package rules

import (
	"go/ast"
	"go/constant"
	"go/parser"
	"go/token"
	"go/types"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/tools/go/packages"
	"k8s.io/apimachinery/pkg/util/sets"
)

const (
	maxSliceLines    = 12
	maxStripAttempts = 6
	trailingDelims   = ")]};,"
)

var (
	paramPattern  = regexp.MustCompile(`func\s*\(\s*(\w+)`)
	returnPattern = regexp.MustCompile(`\breturn\b`)
	basicTypes    = sets.New(
		"string", "bool", "byte", "rune",
		"int", "int8", "int16", "int32", "int64",
		"uint", "uint8", "uint16", "uint32", "uint64", "uintptr",
		"float32", "float64",
	)
)

// DefaultAnalyzer backs the package-level helpers and rule objects.
var DefaultAnalyzer = NewAnalyzer()

// Analyzer recovers field comparisons from predicate source. Parsed files,
// constant scopes and imported packages are cached until Reset.
type Analyzer struct {
	mu     sync.Mutex
	fset   *token.FileSet
	files  map[string]*sourceFile
	scopes map[string]*constScope
	pkgs   map[string]*types.Package
}

// NewAnalyzer creates an Analyzer with empty caches.
func NewAnalyzer() *Analyzer {
	a := &Analyzer{}
	a.Reset()
	return a
}

// Reset drops every cached file, scope and package.
func (a *Analyzer) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.fset = token.NewFileSet()
	a.files = make(map[string]*sourceFile)
	a.scopes = make(map[string]*constScope)
	a.pkgs = make(map[string]*types.Package)
}

// sourceFile is one parsed Go file. file is nil when the file does not parse;
// imports are still read from the import block in that case. Positions in
// file resolve against fset, which Reset does not touch.
type sourceFile struct {
	fset    *token.FileSet
	path    string
	dir     string
	pkgName string
	src     []byte
	file    *ast.File
	imports map[string]string
}

func (a *Analyzer) source(filename string) *sourceFile {
	a.mu.Lock()
	sf, cached := a.files[filename]
	fset := a.fset
	a.mu.Unlock()
	if cached {
		return sf
	}

	src, err := os.ReadFile(filename)
	if err == nil {
		sf = &sourceFile{
			fset:    fset,
			path:    filename,
			dir:     filepath.Dir(filename),
			src:     src,
			imports: make(map[string]string),
		}
		header := sf.parse(fset)
		if header != nil {
			sf.pkgName = header.Name.Name
			for _, imp := range header.Imports {
				p, _ := strconv.Unquote(imp.Path.Value)
				alias := path.Base(p)
				if imp.Name != nil {
					alias = imp.Name.Name
				}
				sf.imports[alias] = p
			}
		}
	}

	a.mu.Lock()
	a.files[filename] = sf
	a.mu.Unlock()
	return sf
}

// parse parses the whole file, falling back to the import block alone.
func (sf *sourceFile) parse(fset *token.FileSet) *ast.File {
	f, err := parser.ParseFile(fset, sf.path, sf.src, parser.SkipObjectResolution)
	if err == nil {
		sf.file = f
		return f
	}
	f, err = parser.ParseFile(fset, sf.path, sf.src, parser.ImportsOnly)
	if err != nil {
		return nil
	}
	return f
}

// predicateAt returns the returned expression of the single-statement function
// whose func keyword is on line, and the name of its first parameter.
func (a *Analyzer) predicateAt(sf *sourceFile, line int) (ast.Expr, string, bool) {
	if sf.file == nil {
		return sliceAt(sf.src, line)
	}
	type candidate struct {
		typ  *ast.FuncType
		body *ast.BlockStmt
	}
	var found []candidate
	ast.Inspect(sf.file, func(n ast.Node) bool {
		switch fn := n.(type) {
		case *ast.FuncLit:
			if sf.fset.Position(fn.Type.Func).Line == line {
				found = append(found, candidate{fn.Type, fn.Body})
			}
		case *ast.FuncDecl:
			if fn.Body != nil && fn.Type.Func.IsValid() && sf.fset.Position(fn.Type.Func).Line == line {
				found = append(found, candidate{fn.Type, fn.Body})
			}
		}
		return true
	})
	if len(found) != 1 {
		return nil, "", false
	}
	body := found[0].body
	if body == nil || len(body.List) != 1 {
		return nil, "", false
	}
	ret, ok := body.List[0].(*ast.ReturnStmt)
	if !ok || len(ret.Results) != 1 {
		return nil, "", false
	}
	return ret.Results[0], firstParam(found[0].typ), true
}

func firstParam(ft *ast.FuncType) string {
	if ft.Params == nil || len(ft.Params.List) == 0 || len(ft.Params.List[0].Names) == 0 {
		return ""
	}
	return ft.Params.List[0].Names[0].Name
}

// sliceAt recovers a predicate from raw text: the expression after the first
// return keyword following line, with trailing delimiters stripped one at a
// time until it parses.
func sliceAt(src []byte, line int) (ast.Expr, string, bool) {
	lines := strings.Split(string(src), "\n")
	if line < 1 || line > len(lines) {
		return nil, "", false
	}
	text := strings.Join(lines[line-1:min(len(lines), line-1+maxSliceLines)], "\n")
	loc := returnPattern.FindStringIndex(text)
	if loc == nil {
		return nil, "", false
	}
	param := ""
	if m := paramPattern.FindStringSubmatch(text[:loc[0]]); m != nil {
		param = m[1]
	}
	expr := text[loc[1]:]
	if nl := strings.IndexByte(expr, '\n'); nl >= 0 {
		expr = expr[:nl]
	}
	expr = strings.TrimSpace(expr)
	for attempt := 0; attempt <= maxStripAttempts && expr != ""; attempt++ {
		if e, err := parser.ParseExpr(expr); err == nil {
			return e, param, true
		}
		last := expr[len(expr)-1]
		if !strings.ContainsRune(trailingDelims, rune(last)) {
			break
		}
		expr = strings.TrimSpace(expr[:len(expr)-1])
	}
	return nil, "", false
}

// constScope holds the package-level constants and type names of one package directory.
type constScope struct {
	decls     map[string]constDecl
	typeNames sets.Set[string]
	values    map[string]constant.Value
	resolving sets.Set[string]
}

type constDecl struct {
	expr ast.Expr
	iota int
	file *sourceFile
}

func (a *Analyzer) scopeFor(sf *sourceFile) *constScope {
	key := sf.dir + "\x00" + sf.pkgName
	a.mu.Lock()
	scope, ok := a.scopes[key]
	a.mu.Unlock()
	if ok {
		return scope
	}

	scope = &constScope{
		decls:     make(map[string]constDecl),
		typeNames: sets.New[string](),
		values:    make(map[string]constant.Value),
		resolving: sets.New[string](),
	}
	entries, _ := os.ReadDir(sf.dir)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".go") {
			continue
		}
		other := a.source(filepath.Join(sf.dir, entry.Name()))
		if other == nil || other.file == nil || other.pkgName != sf.pkgName {
			continue
		}
		scope.collect(other)
	}

	a.mu.Lock()
	a.scopes[key] = scope
	a.mu.Unlock()
	return scope
}

func (s *constScope) collect(sf *sourceFile) {
	for _, decl := range sf.file.Decls {
		gd, ok := decl.(*ast.GenDecl)
		if !ok {
			continue
		}
		switch gd.Tok {
		case token.TYPE:
			for _, spec := range gd.Specs {
				s.typeNames.Insert(spec.(*ast.TypeSpec).Name.Name)
			}
		case token.CONST:
			var last []ast.Expr
			for i, spec := range gd.Specs {
				vs := spec.(*ast.ValueSpec)
				exprs := vs.Values
				if len(exprs) == 0 {
					exprs = last
				} else {
					last = exprs
				}
				for j, name := range vs.Names {
					if j < len(exprs) && name.Name != "_" {
						s.decls[name.Name] = constDecl{expr: exprs[j], iota: i, file: sf}
					}
				}
			}
		}
	}
}

// constExpr evaluates a constant expression. iota is -1 outside const declarations.
func (a *Analyzer) constExpr(sf *sourceFile, e ast.Expr, iota int) (v constant.Value, ok bool) {
	defer func() {
		if recover() != nil {
			v, ok = nil, false
		}
	}()

	switch n := e.(type) {
	case *ast.ParenExpr:
		return a.constExpr(sf, n.X, iota)
	case *ast.BasicLit:
		v := constant.MakeFromLiteral(n.Value, n.Kind, 0)
		return v, v.Kind() != constant.Unknown
	case *ast.Ident:
		switch n.Name {
		case "true", "false":
			return constant.MakeBool(n.Name == "true"), true
		case "iota":
			if iota >= 0 {
				return constant.MakeInt64(int64(iota)), true
			}
			return nil, false
		}
		return a.localConst(sf, n.Name)
	case *ast.SelectorExpr:
		id, ok := n.X.(*ast.Ident)
		if !ok {
			return nil, false
		}
		importPath, ok := sf.imports[id.Name]
		if !ok {
			return nil, false
		}
		return a.importedConst(sf.dir, importPath, n.Sel.Name)
	case *ast.UnaryExpr:
		x, ok := a.constExpr(sf, n.X, iota)
		if !ok {
			return nil, false
		}
		switch n.Op {
		case token.ADD, token.SUB, token.XOR, token.NOT:
			return constant.UnaryOp(n.Op, x, 0), true
		}
	case *ast.BinaryExpr:
		x, ok := a.constExpr(sf, n.X, iota)
		if !ok {
			return nil, false
		}
		y, ok := a.constExpr(sf, n.Y, iota)
		if !ok {
			return nil, false
		}
		switch n.Op {
		case token.SHL, token.SHR:
			s, ok := constant.Uint64Val(constant.ToInt(y))
			if !ok {
				return nil, false
			}
			return constant.Shift(x, n.Op, uint(s)), true
		case token.EQL, token.NEQ, token.LSS, token.LEQ, token.GTR, token.GEQ:
			return constant.MakeBool(constant.Compare(x, n.Op, y)), true
		case token.QUO:
			if x.Kind() == constant.Int && y.Kind() == constant.Int {
				return constant.BinaryOp(x, token.QUO_ASSIGN, y), true
			}
			return constant.BinaryOp(x, n.Op, y), true
		case token.ADD, token.SUB, token.MUL, token.REM,
			token.AND, token.OR, token.XOR, token.AND_NOT, token.LAND, token.LOR:
			return constant.BinaryOp(x, n.Op, y), true
		}
	case *ast.CallExpr:
		if len(n.Args) == 1 && a.isConversion(sf, n.Fun) {
			return a.constExpr(sf, n.Args[0], iota)
		}
	}
	return nil, false
}

func (a *Analyzer) localConst(sf *sourceFile, name string) (constant.Value, bool) {
	if sf.file == nil && sf.pkgName == "" {
		return nil, false
	}
	scope := a.scopeFor(sf)
	if v, ok := scope.values[name]; ok {
		return v, true
	}
	decl, ok := scope.decls[name]
	if !ok || scope.resolving.Has(name) {
		return nil, false
	}
	scope.resolving.Insert(name)
	defer scope.resolving.Delete(name)
	v, ok := a.constExpr(decl.file, decl.expr, decl.iota)
	if ok {
		scope.values[name] = v
	}
	return v, ok
}

func (a *Analyzer) importedConst(dir, importPath, name string) (constant.Value, bool) {
	pkg := a.loadPackage(dir, importPath)
	if pkg == nil {
		return nil, false
	}
	c, ok := pkg.Scope().Lookup(name).(*types.Const)
	if !ok {
		return nil, false
	}
	return c.Val(), true
}

// isConversion reports whether fun names a type, making fun(x) a conversion.
func (a *Analyzer) isConversion(sf *sourceFile, fun ast.Expr) bool {
	switch f := unparen(fun).(type) {
	case *ast.Ident:
		if basicTypes.Has(f.Name) {
			return true
		}
		return sf.pkgName != "" && a.scopeFor(sf).typeNames.Has(f.Name)
	case *ast.SelectorExpr:
		id, ok := f.X.(*ast.Ident)
		if !ok {
			return false
		}
		importPath, ok := sf.imports[id.Name]
		if !ok {
			return false
		}
		pkg := a.loadPackage(sf.dir, importPath)
		if pkg == nil {
			return false
		}
		_, ok = pkg.Scope().Lookup(f.Sel.Name).(*types.TypeName)
		return ok
	}
	return false
}

// loadPackage type-checks an imported package once per analyzer lifetime.
func (a *Analyzer) loadPackage(dir, importPath string) *types.Package {
	a.mu.Lock()
	pkg, ok := a.pkgs[importPath]
	a.mu.Unlock()
	if ok {
		return pkg
	}
	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedTypes,
		Dir:  dir,
	}
	loaded, err := packages.Load(cfg, importPath)
	if err == nil && len(loaded) == 1 && len(loaded[0].Errors) == 0 {
		pkg = loaded[0].Types
	}
	a.mu.Lock()
	a.pkgs[importPath] = pkg
	a.mu.Unlock()
	return pkg
}
