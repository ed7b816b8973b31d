// Package host describes the declarations a DSL is generated from, independent
// of where they were read: Go sources or a YAML declaration file.
package host

import (
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/calumari/fluentgen/internal/model"
)

// Kind selects the generator variant for a declaration.
type Kind int

const (
	// KindDSL generates a sentence DSL over an interface.
	KindDSL Kind = iota
	// KindBuilder generates a builder over a struct.
	KindBuilder
)

func (k Kind) String() string {
	if k == KindBuilder {
		return "builder"
	}
	return "dsl"
}

// ErrNotFound is returned when a referenced type is not declared.
var ErrNotFound = errors.New("not found")

// Package is one unit of declarations sharing a Go package and an annotation
// catalog.
type Package struct {
	Name         string
	Path         string
	Dir          string
	Catalog      *Catalog
	Declarations []*Declaration
	// Scope lists package-level names hand-written in the output package.
	// Generated code must not redeclare them.
	Scope []string

	structs map[string]func() (*Declaration, error)
}

// Import is a package a declaration's type expressions refer to.
type Import struct {
	Name string `yaml:"name" validate:"omitempty,goident"`
	Path string `yaml:"path" validate:"required"`
}

// Declaration is one host type to generate for.
type Declaration struct {
	Kind Kind
	Name string
	Pos  string
	// Receiver is the type expression of the host instance, type arguments
	// included.
	Receiver    string
	TypeParams  []model.TypeParam
	Config      Config
	Annotations []Annotation
	Methods     []Method
	// Fields are the settable fields of a builder struct.
	Fields  []Field
	Imports []Import
	// Err is set when the declaration could not be read. Such declarations
	// are reported as failed without being parsed.
	Err error
}

// Method is a host method, a static host function or a builder constructor.
type Method struct {
	Name string
	// Target is what the generated code calls: the method name, or the
	// package-qualified function.
	Target      string
	Static      bool
	Params      []Parameter
	Results     []string
	Variadic    bool
	Annotations []Annotation
	Pos         string
}

// Parameter is one host method parameter.
type Parameter struct {
	Name        string
	Type        string
	Annotations []Annotation
}

// Field is an exported struct field a builder can set.
type Field struct {
	Name string
	Type string
}

// Annotation is one use of an annotation, by name.
type Annotation struct {
	Name string
	Pos  string
}

// Annotations turns names into annotations without positions.
func Annotations(names ...string) []Annotation {
	out := make([]Annotation, 0, len(names))
	for _, n := range names {
		out = append(out, Annotation{Name: strings.TrimPrefix(n, "@")})
	}
	return out
}

// DefineStruct makes a struct available for nested builder generation. build
// runs at most once, on first lookup.
func (p *Package) DefineStruct(name string, build func() (*Declaration, error)) {
	if p.structs == nil {
		p.structs = make(map[string]func() (*Declaration, error))
	}
	p.structs[name] = sync.OnceValues(build)
}

// Struct returns the builder declaration for the named struct.
func (p *Package) Struct(name string) (*Declaration, error) {
	build, ok := p.structs[name]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "struct %s", name)
	}
	return build()
}

// Structs lists the names of structs available for nested generation.
func (p *Package) Structs() []string {
	names := make([]string, 0, len(p.structs))
	for n := range p.structs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the declaration named name.
func (p *Package) Lookup(name string) (*Declaration, bool) {
	for _, d := range p.Declarations {
		if d.Name == name {
			return d, true
		}
	}
	return nil, false
}
