// Package genkit is the loading and writing half of zodgen: it type-checks
// Go packages into annotated declarations and buffers the TypeScript files
// generated from them, writing only files whose content changed.
//
//	gen := genkit.New(genkit.Options{IgnoreGeneratedFiles: true})
//	if err := gen.Load("./forms/..."); err != nil {
//		return err
//	}
//	for _, pkg := range gen.Packages {
//		for _, typ := range pkg.Types {
//			// typ.Doc carries zodgen:@schema annotations
//		}
//	}
//	out := gen.NewGeneratedFile("web/schemas.ts")
//	out.P(`import { z } from "zod";`)
//	written, err := gen.Write()
package genkit

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/constant"
	"go/token"
	"go/types"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"golang.org/x/tools/go/packages"
)

// Generator loads packages and collects the files to generate.
type Generator struct {
	Packages []*Package
	Fset     *token.FileSet

	files []*GeneratedFile
	opts  Options
}

// Options tune package loading.
type Options struct {
	// Tags are passed to the build system as -tags.
	Tags []string

	// Dir resolves relative patterns. The process working directory is
	// used when empty.
	Dir string

	// IgnoreGeneratedFiles skips files starting with "// Code generated",
	// including their load errors.
	IgnoreGeneratedFiles bool
}

// New returns an empty Generator. Only the first Options value is used.
func New(opts ...Options) *Generator {
	g := &Generator{Fset: token.NewFileSet()}
	if len(opts) > 0 {
		g.opts = opts[0]
	}
	return g
}

// Load loads packages matching the given patterns, e.g. "./...", "./forms"
// or ".".
func (g *Generator) Load(patterns ...string) error {
	cfg := &packages.Config{
		Mode: packages.NeedName |
			packages.NeedFiles |
			packages.NeedImports |
			packages.NeedTypes |
			packages.NeedSyntax |
			packages.NeedTypesInfo,
		Fset:       g.Fset,
		Dir:        g.opts.Dir,
		BuildFlags: buildFlags(g.opts.Tags),
	}

	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return fmt.Errorf("load packages: %w", err)
	}

	var errs []error
	for _, pkg := range pkgs {
		for _, e := range pkg.Errors {
			if !g.ignoredError(e) {
				errs = append(errs, e)
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("package errors: %v", errs)
	}

	for _, pkg := range pkgs {
		g.Packages = append(g.Packages, g.buildPackage(pkg))
	}
	return nil
}

// ignoredError reports whether e points into a generated file that is
// being ignored. The position may be in e.Pos or embedded in e.Msg.
func (g *Generator) ignoredError(e packages.Error) bool {
	if !g.opts.IgnoreGeneratedFiles {
		return false
	}
	for _, s := range append([]string{e.Pos}, strings.Split(e.Msg, "\n")...) {
		if name := goFileIn(s); name != "" && isGeneratedFile(g.resolve(name)) {
			return true
		}
	}
	return false
}

// goFileIn extracts the file name of a "file.go:line:col" position.
func goFileIn(s string) string {
	i := strings.Index(s, ".go:")
	if i < 0 {
		return ""
	}
	return strings.TrimSpace(s[:i+3])
}

func (g *Generator) resolve(filename string) string {
	if filepath.IsAbs(filename) {
		return filename
	}
	if g.opts.Dir != "" {
		return filepath.Join(g.opts.Dir, filename)
	}
	if abs, err := filepath.Abs(filename); err == nil {
		return abs
	}
	return filename
}

// isGeneratedFile checks if a file starts with "// Code generated".
func isGeneratedFile(filename string) bool {
	f, err := os.Open(filename)
	if err != nil {
		return false
	}
	defer f.Close() //nolint:errcheck

	buf := make([]byte, 64)
	n, _ := f.Read(buf)
	return bytes.HasPrefix(buf[:n], []byte("// Code generated"))
}

// NewGeneratedFile registers a file to be generated. A later file with the
// same name replaces the earlier one.
func (g *Generator) NewGeneratedFile(filename string) *GeneratedFile {
	gf := &GeneratedFile{filename: filename}
	for i, f := range g.files {
		if f.filename == filename {
			g.files[i] = gf
			return gf
		}
	}
	g.files = append(g.files, gf)
	return gf
}

// Files returns the registered files in creation order.
func (g *Generator) Files() []*GeneratedFile { return g.files }

// Write writes the generated files and returns the paths written. Files
// whose content on disk is already identical are left untouched.
func (g *Generator) Write() ([]string, error) {
	var written []string
	for _, gf := range g.files {
		content := gf.Content()
		if old, err := os.ReadFile(gf.filename); err == nil && bytes.Equal(old, content) {
			continue
		}
		dir := filepath.Dir(gf.filename)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return written, fmt.Errorf("create dir %s: %w", dir, err)
		}
		if err := os.WriteFile(gf.filename, content, 0o644); err != nil {
			return written, fmt.Errorf("write %s: %w", gf.filename, err)
		}
		written = append(written, gf.filename)
	}
	return written, nil
}

// DryRun returns the generated content keyed by file name without writing.
func (g *Generator) DryRun() map[string][]byte {
	result := make(map[string][]byte, len(g.files))
	for _, gf := range g.files {
		result[gf.filename] = gf.Content()
	}
	return result
}

// GeneratedFile is a text file to be generated.
type GeneratedFile struct {
	filename string
	buf      bytes.Buffer
}

// P prints a line. Arguments are concatenated without spaces.
func (g *GeneratedFile) P(v ...any) {
	for _, x := range v {
		switch x := x.(type) {
		case string:
			g.buf.WriteString(x)
		case []byte:
			g.buf.Write(x)
		default:
			fmt.Fprint(&g.buf, x)
		}
	}
	g.buf.WriteByte('\n')
}

// Write implements io.Writer.
func (g *GeneratedFile) Write(p []byte) (int, error) { return g.buf.Write(p) }

// Content returns the file content with exactly one trailing newline.
func (g *GeneratedFile) Content() []byte {
	b := bytes.TrimRight(g.buf.Bytes(), "\n")
	if len(b) == 0 {
		return nil
	}
	return append(bytes.Clone(b), '\n')
}

func (g *Generator) buildPackage(pkg *packages.Package) *Package {
	p := &Package{
		Name:      pkg.Name,
		PkgPath:   pkg.PkgPath,
		Dir:       pkgDir(pkg),
		Fset:      g.Fset,
		TypesPkg:  pkg.Types,
		TypesInfo: pkg.TypesInfo,
	}
	for _, f := range pkg.GoFiles {
		if !g.ignoredFile(f) {
			p.GoFiles = append(p.GoFiles, f)
		}
	}
	for _, file := range pkg.Syntax {
		if file != nil && !g.ignoredFile(g.Fset.Position(file.Pos()).Filename) {
			p.Syntax = append(p.Syntax, file)
		}
	}

	byName := make(map[string]*Type)
	for _, file := range p.Syntax {
		g.extractTypes(p, file, byName)
	}
	for _, file := range p.Syntax {
		g.extractEnums(p, file, byName)
	}
	return p
}

func (g *Generator) ignoredFile(filename string) bool {
	return g.opts.IgnoreGeneratedFiles && isGeneratedFile(filename)
}

func (g *Generator) extractTypes(pkg *Package, file *ast.File, byName map[string]*Type) {
	for _, decl := range file.Decls {
		gd, ok := decl.(*ast.GenDecl)
		if !ok || gd.Tok != token.TYPE {
			continue
		}
		for _, spec := range gd.Specs {
			ts := spec.(*ast.TypeSpec)
			doc := ts.Doc
			if doc == nil && len(gd.Specs) == 1 {
				doc = gd.Doc
			}
			typ := &Type{
				Name:     ts.Name.Name,
				Doc:      docText(doc),
				Pkg:      pkg,
				TypeSpec: ts,
				Pos:      g.Fset.Position(ts.Name.Pos()),
			}
			if pkg.TypesInfo != nil {
				if obj := pkg.TypesInfo.Defs[ts.Name]; obj != nil {
					typ.Object = obj.Type()
				}
			}
			if st, ok := ts.Type.(*ast.StructType); ok {
				typ.Fields = g.extractFields(pkg, st)
			}
			pkg.Types = append(pkg.Types, typ)
			byName[typ.Name] = typ
		}
	}
}

func (g *Generator) extractFields(pkg *Package, st *ast.StructType) []*Field {
	var fields []*Field
	for _, f := range st.Fields.List {
		var goType types.Type
		if pkg.TypesInfo != nil {
			goType = pkg.TypesInfo.TypeOf(f.Type)
		}
		base := Field{
			Type:     types.ExprString(f.Type),
			TypeExpr: f.Type,
			GoType:   goType,
			Doc:      docText(f.Doc),
			Comment:  commentText(f.Comment),
		}
		if f.Tag != nil {
			base.Tag = f.Tag.Value
		}
		if len(f.Names) == 0 {
			field := base
			field.Name = strings.TrimPrefix(types.ExprString(f.Type), "*")
			if i := strings.LastIndex(field.Name, "."); i >= 0 {
				field.Name = field.Name[i+1:]
			}
			field.Embedded = true
			field.Pos = g.Fset.Position(f.Type.Pos())
			fields = append(fields, &field)
			continue
		}
		for _, name := range f.Names {
			field := base
			field.Name = name.Name
			field.Pos = g.Fset.Position(name.Pos())
			fields = append(fields, &field)
		}
	}
	return fields
}

// extractEnums groups typed constants by their named type. Values are the
// constant values as computed by the type checker when available.
func (g *Generator) extractEnums(pkg *Package, file *ast.File, byName map[string]*Type) {
	for _, decl := range file.Decls {
		gd, ok := decl.(*ast.GenDecl)
		if !ok || gd.Tok != token.CONST {
			continue
		}
		var current string
		for _, spec := range gd.Specs {
			vs := spec.(*ast.ValueSpec)
			if vs.Type != nil {
				current = types.ExprString(vs.Type)
			} else if len(vs.Values) > 0 {
				current = ""
			}
			typ, ok := byName[current]
			if current == "" || !ok {
				continue
			}
			enum := pkg.enum(typ)
			for i, name := range vs.Names {
				if name.Name == "_" {
					continue
				}
				ev := &EnumValue{
					Name:    name.Name,
					Doc:     docText(vs.Doc),
					Comment: commentText(vs.Comment),
					Pos:     g.Fset.Position(name.Pos()),
				}
				if i < len(vs.Values) {
					ev.Value = types.ExprString(vs.Values[i])
				}
				if pkg.TypesInfo != nil {
					if c, ok := pkg.TypesInfo.Defs[name].(*types.Const); ok {
						ev.Value = constantText(c.Val())
					}
				}
				enum.Values = append(enum.Values, ev)
			}
		}
	}
}

func (p *Package) enum(typ *Type) *Enum {
	for _, e := range p.Enums {
		if e.Name == typ.Name {
			return e
		}
	}
	e := &Enum{Name: typ.Name, Doc: typ.Doc, Pkg: p}
	if typ.Object != nil {
		e.UnderlyingType = typ.Object.Underlying().String()
	}
	p.Enums = append(p.Enums, e)
	return e
}

// Package is a type-checked package with its declarations extracted.
// Files marked "// Code generated" are left out when ignored.
type Package struct {
	Name      string
	PkgPath   string
	Dir       string
	GoFiles   []string
	Fset      *token.FileSet
	TypesPkg  *types.Package
	TypesInfo *types.Info
	Syntax    []*ast.File
	Types     []*Type
	Enums     []*Enum
}

// Type returns the type declared with name, or nil.
func (p *Package) Type(name string) *Type {
	for _, t := range p.Types {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// Enum returns the enum of the named type, or nil.
func (p *Package) Enum(name string) *Enum {
	for _, e := range p.Enums {
		if e.Name == name {
			return e
		}
	}
	return nil
}

// Type is a named type declared in a package.
type Type struct {
	Name     string
	Doc      string
	Pkg      *Package
	Fields   []*Field
	TypeSpec *ast.TypeSpec
	// Object is the checked type, nil when type information is missing.
	Object types.Type
	Pos    token.Position
}

// QualifiedName returns the import path qualified type name.
func (t *Type) QualifiedName() string {
	return t.Pkg.PkgPath + "." + t.Name
}

// Field is one struct field. Embedded fields are named after their type.
type Field struct {
	Name     string
	Type     string
	TypeExpr ast.Expr
	GoType   types.Type
	Tag      string
	Doc      string
	Comment  string
	Embedded bool
	Pos      token.Position
}

// Lookup returns the value of a struct tag key.
func (f *Field) Lookup(key string) (string, bool) {
	return reflect.StructTag(strings.Trim(f.Tag, "`")).Lookup(key)
}

// Enum collects the constants declared with a named type, in source order.
type Enum struct {
	Name           string
	Doc            string
	Pkg            *Package
	UnderlyingType string
	Values         []*EnumValue
}

// EnumValue is one typed constant. Value is the checked constant when
// available, else the source expression.
type EnumValue struct {
	Name    string
	Value   string
	Doc     string
	Comment string
	Pos     token.Position
}

func buildFlags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	return []string{"-tags=" + strings.Join(tags, ",")}
}

func pkgDir(pkg *packages.Package) string {
	if len(pkg.GoFiles) > 0 {
		return filepath.Dir(pkg.GoFiles[0])
	}
	return ""
}

func docText(cg *ast.CommentGroup) string {
	if cg == nil {
		return ""
	}
	return cg.Text()
}

func commentText(cg *ast.CommentGroup) string {
	if cg == nil {
		return ""
	}
	return strings.TrimSpace(cg.Text())
}

// constantText renders strings unquoted and everything else exactly.
func constantText(v constant.Value) string {
	if v.Kind() == constant.String {
		return constant.StringVal(v)
	}
	return v.ExactString()
}
