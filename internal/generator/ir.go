package generator

import (
	"io"

	"github.com/calumari/fluentgen/internal/host"
	"github.com/calumari/fluentgen/internal/parser"
)

// This file houses the render IR: the flattened, fully named view of one
// declaration's graph that templates turn into source.

// node kinds for template-driven method bodies
const (
	nodeKindCall   = "call"
	nodeKindNext   = "next"
	nodeKindInto   = "into"
	nodeKindAssign = "assign"
	nodeKindValue  = "value"
)

// Config holds the settings of one generator run.
type Config struct {
	// Dir is the package directory declarations are read from, and the base
	// of a relative Decl.
	Dir string `validate:"required"`
	// Decl, when set, names a YAML declaration file read instead of the Go
	// sources in Dir.
	Decl string
	// Types restricts generation to these declarations.
	Types []string `validate:"dive,required"`
	// Suffix is appended to the snake-cased class name to form file names.
	Suffix string `validate:"required,endswith=.go"`
	// OutDir receives the generated files; defaults to Dir.
	OutDir string
	// Dump prints the render model of every declaration to stdout.
	Dump bool
	// Command and Version are recorded in the generated file header.
	Command string
	Version string
	// Parallelism bounds concurrently processed declarations; 0 is unbounded.
	Parallelism int `validate:"gte=0"`
}

// Options control generation for an already loaded package.
type Options struct {
	Suffix      string `validate:"required,endswith=.go"`
	Command     string
	Version     string
	Parallelism int `validate:"gte=0"`
	// ModulePath is passed to the formatter.
	ModulePath string
	// Dump receives the render model of every declaration when set.
	Dump io.Writer
	// Plugins handle nested parameters; nil means the builder plugin.
	Plugins []parser.Plugin
}

// fileModel is the root template model for a generated file.
type fileModel struct {
	Package    string
	Source     string
	Command    string
	Version    string
	Imports    []host.Import
	Constants  []constantModel
	Factory    factoryModel
	Interfaces []interfaceModel
	Delegate   *delegateModel
}

// constantModel is a singleton constant word of the sentence.
type constantModel struct {
	Word string
	Type string
	Var  string
}

// factoryModel is the constructor of the root implementation.
type factoryModel struct {
	Name       string
	Doc        string
	TypeParams string
	Params     []paramModel
	Result     string
	Body       []codeNode
}

// interfaceModel is one generated interface and its implementation struct.
type interfaceModel struct {
	Name       string
	ImplName   string
	Receiver   string
	Doc        string
	TypeParams string
	TypeArgs   string
	Fields     []paramModel
	Methods    []methodModel
}

// methodModel is one method of a generated interface.
type methodModel struct {
	Name   string
	Doc    string
	Params []paramModel
	Result string
	Body   []codeNode
}

// paramModel is a lightweight view of a parameter or field for templates.
type paramModel struct {
	Name string
	Type string
}

// delegateModel describes the delegate wrapper forwarding the root keywords.
type delegateModel struct {
	Delegator  string
	Func       string
	Struct     string
	Method     string
	Receiver   string
	RootName   string
	Root       string
	TypeParams string
	TypeArgs   string
	Assert     bool
	Methods    []methodModel
}

// codeNode is an IR node used by templates to emit method bodies.
type codeNode struct {
	Kind string
	// Return prefixes a call with return.
	Return bool
	// Expr is the called function or method expression.
	Expr   string
	Args   []string
	Spread bool
	// Type is the composite literal type of next and into nodes.
	Type   string
	Fields []fieldValue
	// Field and Deref place an into node's call result in the literal.
	Field string
	Deref bool
	// Dest, Src and Recv describe assignments and returned values.
	Dest string
	Src  string
	Recv string
}

// fieldValue is one element of a composite literal.
type fieldValue struct {
	Name  string
	Value string
}
