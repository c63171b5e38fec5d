package unit

import (
	"errors"
	"go/ast"
	"go/parser"
	"go/scanner"
	"go/token"
	"go/types"
	"reflect"
	"strconv"
	"strings"
)

// ColumnTag is the struct tag key that names the source column of a field.
const ColumnTag = "col"

// Field describes one struct field of a descriptor type.
type Field struct {
	Name string
	// Type is the Go type expression, e.g. "float32", "[]byte", "image.Image".
	Type string
	// Column is the value of the `col` struct tag, if any.
	Column   string
	Exported bool
}

// Method describes a method declared on a descriptor type.
type Method struct {
	Name    string
	Params  []string
	Results []string
	Pointer bool
}

// TypeDesc is the static shape of one top-level type.
type TypeDesc struct {
	Name     string
	Struct   bool
	Fields   []Field
	Methods  []Method
	Line     int
	Exported bool
}

// Method returns the method called name.
func (t TypeDesc) Method(name string) (Method, bool) {
	for _, m := range t.Methods {
		if m.Name == name {
			return m, true
		}
	}
	return Method{}, false
}

// Field returns the field called name.
func (t TypeDesc) Field(name string) (Field, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Descriptor is the static view of a descriptor source file.
type Descriptor struct {
	Package string
	Imports []string
	Types   []TypeDesc
	Vars    []string
}

// Type returns the descriptor type called name.
func (d *Descriptor) Type(name string) (TypeDesc, bool) {
	for _, t := range d.Types {
		if t.Name == name {
			return t, true
		}
	}
	return TypeDesc{}, false
}

// Describe parses src and extracts its types, methods and package vars.
// Syntax errors are reported as a CompilationError.
func Describe(filename string, src []byte) (*Descriptor, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, filename, src, parser.AllErrors|parser.SkipObjectResolution)
	if err != nil {
		return nil, syntaxError(filename, err)
	}
	d := &Descriptor{Package: f.Name.Name}
	for _, imp := range f.Imports {
		if p, err := strconv.Unquote(imp.Path.Value); err == nil {
			d.Imports = append(d.Imports, p)
		}
	}
	index := map[string]int{}
	var methods []*ast.FuncDecl
	for _, decl := range f.Decls {
		switch decl := decl.(type) {
		case *ast.GenDecl:
			for _, spec := range decl.Specs {
				switch spec := spec.(type) {
				case *ast.TypeSpec:
					td := TypeDesc{
						Name:     spec.Name.Name,
						Line:     fset.Position(spec.Pos()).Line,
						Exported: spec.Name.IsExported(),
					}
					if st, ok := spec.Type.(*ast.StructType); ok {
						td.Struct = true
						td.Fields = structFields(st)
					}
					index[td.Name] = len(d.Types)
					d.Types = append(d.Types, td)
				case *ast.ValueSpec:
					if decl.Tok != token.VAR {
						continue
					}
					for _, n := range spec.Names {
						d.Vars = append(d.Vars, n.Name)
					}
				}
			}
		case *ast.FuncDecl:
			if decl.Recv != nil && len(decl.Recv.List) == 1 {
				methods = append(methods, decl)
			}
		}
	}
	// methods may be declared before their receiver type
	for _, fd := range methods {
		recv, ptr := receiverName(fd.Recv.List[0].Type)
		i, ok := index[recv]
		if !ok {
			continue
		}
		d.Types[i].Methods = append(d.Types[i].Methods, Method{
			Name:    fd.Name.Name,
			Params:  fieldTypes(fd.Type.Params),
			Results: fieldTypes(fd.Type.Results),
			Pointer: ptr,
		})
	}
	return d, nil
}

func structFields(st *ast.StructType) []Field {
	var out []Field
	for _, fl := range st.Fields.List {
		typ := types.ExprString(fl.Type)
		var col string
		if fl.Tag != nil {
			if raw, err := strconv.Unquote(fl.Tag.Value); err == nil {
				col = reflect.StructTag(raw).Get(ColumnTag)
			}
		}
		if len(fl.Names) == 0 {
			// embedded field
			name, _ := receiverName(fl.Type)
			if i := strings.LastIndex(name, "."); i >= 0 {
				name = name[i+1:]
			}
			out = append(out, Field{Name: name, Type: typ, Column: col, Exported: ast.IsExported(name)})
			continue
		}
		for _, n := range fl.Names {
			out = append(out, Field{Name: n.Name, Type: typ, Column: col, Exported: n.IsExported()})
		}
	}
	return out
}

func fieldTypes(fl *ast.FieldList) []string {
	if fl == nil {
		return nil
	}
	var out []string
	for _, f := range fl.List {
		typ := types.ExprString(f.Type)
		n := len(f.Names)
		if n == 0 {
			n = 1
		}
		for i := 0; i < n; i++ {
			out = append(out, typ)
		}
	}
	return out
}

func receiverName(expr ast.Expr) (name string, pointer bool) {
	if star, ok := expr.(*ast.StarExpr); ok {
		expr, pointer = star.X, true
	}
	switch e := expr.(type) {
	case *ast.IndexExpr:
		expr = e.X
	case *ast.IndexListExpr:
		expr = e.X
	}
	return types.ExprString(expr), pointer
}

func syntaxError(filename string, err error) error {
	ce := &CompilationError{File: filename}
	var list scanner.ErrorList
	if errors.As(err, &list) {
		for _, e := range list {
			ce.Diagnostics = append(ce.Diagnostics, Diagnostic{Line: e.Pos.Line, Column: e.Pos.Column, Message: e.Msg})
		}
		return ce
	}
	ce.Diagnostics = []Diagnostic{{Message: err.Error()}}
	return ce
}
