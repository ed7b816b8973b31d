package host

import (
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/calumari/fluentgen/internal/model"
)

type document struct {
	Package      string           `yaml:"package" validate:"required,goident"`
	Path         string           `yaml:"path"`
	Imports      []Import         `yaml:"imports" validate:"dive"`
	Annotations  []annotationDoc  `yaml:"annotations" validate:"dive"`
	Declarations []declarationDoc `yaml:"declarations" validate:"required,min=1,dive"`
}

type annotationDoc struct {
	Name    string   `yaml:"name" validate:"required"`
	Kind    string   `yaml:"kind" validate:"required"`
	Aliases []string `yaml:"aliases"`
	Count   int      `yaml:"count"`
}

type declarationDoc struct {
	Name         string            `yaml:"name" validate:"required,goident"`
	Kind         string            `yaml:"kind" validate:"omitempty,oneof=dsl builder"`
	Receiver     string            `yaml:"receiver"`
	TypeParams   []typeParamDoc    `yaml:"typeParams" validate:"dive"`
	Options      map[string]string `yaml:"options"`
	Annotations  []string          `yaml:"annotations"`
	Methods      []methodDoc       `yaml:"methods" validate:"dive"`
	Fields       []fieldDoc        `yaml:"fields" validate:"dive"`
	Constructors []methodDoc       `yaml:"constructors" validate:"dive"`
}

type typeParamDoc struct {
	Name       string `yaml:"name" validate:"required,goident"`
	Constraint string `yaml:"constraint"`
}

type methodDoc struct {
	Name        string     `yaml:"name" validate:"required,goident"`
	Static      bool       `yaml:"static"`
	Params      []paramDoc `yaml:"params" validate:"dive"`
	Results     []string   `yaml:"results"`
	Variadic    bool       `yaml:"variadic"`
	Annotations []string   `yaml:"annotations"`
}

type paramDoc struct {
	Name        string   `yaml:"name" validate:"required"`
	Type        string   `yaml:"type" validate:"required"`
	Annotations []string `yaml:"annotations"`
}

type fieldDoc struct {
	Name string `yaml:"name" validate:"required,goident"`
	Type string `yaml:"type" validate:"required"`
}

// LoadYAML reads a declaration file. Unknown keys are rejected.
func LoadYAML(r io.Reader, source string) (*Package, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.Wrapf(err, "decode %s", source)
	}
	if err := validate.Struct(doc); err != nil {
		return nil, errors.Wrapf(err, "validate %s", source)
	}

	pkg := &Package{Name: doc.Package, Path: doc.Path, Catalog: NewCatalog()}
	for _, a := range doc.Annotations {
		count := ""
		if a.Count != 0 {
			count = strconv.Itoa(a.Count)
		}
		pkg.Catalog.Define(a.Name, []string{a.Kind}, a.Aliases, count)
	}

	for i, d := range doc.Declarations {
		decl, err := d.declaration(doc.Imports)
		if err != nil {
			return nil, errors.Wrapf(err, "%s: declarations[%d]", source, i)
		}
		decl.Pos = source + ":" + d.Name
		pkg.Declarations = append(pkg.Declarations, decl)
		if decl.Kind == KindBuilder {
			pkg.DefineStruct(decl.Name, func() (*Declaration, error) { return decl, nil })
		}
	}
	return pkg, nil
}

func (d declarationDoc) declaration(imports []Import) (*Declaration, error) {
	kind := KindDSL
	if d.Kind == "builder" {
		kind = KindBuilder
	}
	values := map[string][]string{}
	for k, v := range d.Options {
		values[k] = []string{v}
	}
	cfg, err := DecodeConfig(kind, d.Name, values)
	if err != nil {
		return nil, err
	}

	decl := &Declaration{
		Kind:        kind,
		Name:        d.Name,
		Receiver:    d.Receiver,
		Config:      cfg,
		Annotations: Annotations(d.Annotations...),
		Imports:     imports,
	}
	var args []string
	for _, tp := range d.TypeParams {
		constraint := tp.Constraint
		if constraint == "" {
			constraint = "any"
		}
		decl.TypeParams = append(decl.TypeParams, model.TypeParam{Name: tp.Name, Constraint: constraint})
		args = append(args, tp.Name)
	}
	if decl.Receiver == "" {
		decl.Receiver = d.Name
		if len(args) > 0 {
			decl.Receiver += "[" + strings.Join(args, ", ") + "]"
		}
	}

	methods := d.Methods
	if kind == KindBuilder {
		methods = d.Constructors
	}
	for _, m := range methods {
		hm := Method{
			Name:        m.Name,
			Target:      m.Name,
			Static:      m.Static || kind == KindBuilder,
			Results:     m.Results,
			Variadic:    m.Variadic,
			Annotations: Annotations(m.Annotations...),
		}
		for _, p := range m.Params {
			hm.Params = append(hm.Params, Parameter{Name: p.Name, Type: p.Type, Annotations: Annotations(p.Annotations...)})
		}
		decl.Methods = append(decl.Methods, hm)
	}
	for _, f := range d.Fields {
		decl.Fields = append(decl.Fields, Field{Name: f.Name, Type: f.Type})
	}
	return decl, nil
}
