package model

import (
	"go/ast"
	"go/parser"
	"go/types"
	"sync"

	"github.com/calumari/fluentgen/internal/naming"
)

// TypeRef is a Go type expression as it is written in generated code. Its
// structural description is computed from the expression on first use.
type TypeRef struct {
	Expr string
	desc func() typeDesc
}

type typeDesc struct {
	name  string
	elem  string
	slice bool
}

// Type returns a TypeRef for expr.
func Type(expr string) TypeRef {
	return TypeRef{Expr: expr, desc: sync.OnceValue(func() typeDesc { return describe(expr) })}
}

// Named returns a TypeRef for expr whose simple name is fixed to name, for
// substituted parameter types that should key by what they produce.
func Named(expr, name string) TypeRef {
	return TypeRef{Expr: expr, desc: func() typeDesc { return typeDesc{name: name} }}
}

func (t TypeRef) describe() typeDesc {
	if t.desc == nil {
		return describe(t.Expr)
	}
	return t.desc()
}

// SimpleName is the name the type contributes to a structural key: package
// qualifiers and type arguments are dropped, pointers are transparent.
func (t TypeRef) SimpleName() string { return t.describe().name }

// Elem returns the element type expression when t is a slice.
func (t TypeRef) Elem() (string, bool) {
	d := t.describe()
	return d.elem, d.slice
}

func (t TypeRef) String() string { return t.Expr }

func describe(expr string) typeDesc {
	x, err := parser.ParseExpr(expr)
	if err != nil {
		return typeDesc{name: naming.Capitalize(naming.Ident(expr))}
	}
	d := typeDesc{name: simpleName(x)}
	if at, ok := x.(*ast.ArrayType); ok && at.Len == nil {
		d.slice = true
		d.elem = types.ExprString(at.Elt)
	}
	return d
}

func simpleName(x ast.Expr) string {
	switch x := x.(type) {
	case *ast.Ident:
		return naming.Capitalize(x.Name)
	case *ast.SelectorExpr:
		return naming.Capitalize(x.Sel.Name)
	case *ast.StarExpr:
		return simpleName(x.X)
	case *ast.ParenExpr:
		return simpleName(x.X)
	case *ast.IndexExpr:
		return simpleName(x.X)
	case *ast.IndexListExpr:
		return simpleName(x.X)
	case *ast.ArrayType:
		if x.Len == nil {
			return simpleName(x.Elt) + "Slice"
		}
		return simpleName(x.Elt) + "Array"
	case *ast.Ellipsis:
		return simpleName(x.Elt) + "Slice"
	case *ast.MapType:
		return simpleName(x.Key) + simpleName(x.Value) + "Map"
	case *ast.ChanType:
		return simpleName(x.Value) + "Chan"
	case *ast.FuncType:
		return "Func"
	case *ast.InterfaceType:
		return "Any"
	case *ast.StructType:
		return "Struct"
	}
	return "Type"
}
