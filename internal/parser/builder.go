package parser

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/calumari/fluentgen/internal/grammar"
	"github.com/calumari/fluentgen/internal/host"
	"github.com/calumari/fluentgen/internal/model"
	"github.com/calumari/fluentgen/internal/naming"
)

// BuilderName is the nested type holding the object under construction.
const BuilderName = "Builder"

// parseBuilder builds the DSL over a struct's constructors and fields. Each
// constructor becomes a chain with one keyword per parameter. Settable fields
// (or a choice of constructors) end those chains in a builder with one method
// per field and Build; without constructors the root is the builder.
func (p *Parser) parseBuilder(pkg *host.Package, decl *host.Declaration) (*Result, error) {
	if len(decl.TypeParams) > 0 {
		return nil, errors.Wrapf(model.ErrUnsupported, "builder %s has type parameters", decl.Name)
	}

	g := model.NewGraph(packageOf(pkg, decl), decl.Config.ClassName, nil)
	w := &walker{p: p, pkg: pkg, decl: decl, m: grammar.New(g), res: &Result{Decl: decl, Graph: g}}
	object := model.Param{Name: "object", Type: model.Type(decl.Receiver)}

	var ctors []host.Method
	for _, c := range decl.Methods {
		switch {
		case len(c.Params) == 0:
			w.diagnose(c.Pos, errors.Errorf("constructor %s takes no parameters and is not part of the sentence", c.Name))
		case len(c.Results) != 1 || strings.TrimPrefix(c.Results[0], "*") != decl.Receiver:
			w.diagnose(c.Pos, errors.Errorf("constructor %s does not return %s", c.Name, decl.Receiver))
		default:
			ctors = append(ctors, c)
		}
	}
	if len(ctors) == 0 && len(decl.Fields) == 0 {
		return nil, errors.Wrapf(model.ErrUnsupported, "%s has neither constructors nor exported fields", decl.Name)
	}

	builder := model.NoType
	switch {
	case len(ctors) == 0:
		builder = g.Root
	case len(decl.Fields) > 0 || len(ctors) > 1:
		builder = g.Nest(g.Root, BuilderName)
	}
	if builder != model.NoType {
		g.Type(builder).State = []model.Param{object}
	}

	for _, c := range ctors {
		s := grammar.Start(g.Root)
		var err error
		for i, hp := range c.Params {
			param := w.param(i, hp)
			if s, err = w.m.Run(s, grammar.Keyword(param.Name, nil, 0), grammar.Parameter(param)); err != nil {
				return nil, errors.Wrapf(err, "%s.%s", decl.Name, c.Name)
			}
		}
		b := &model.Binding{
			Kind:     model.BindFunc,
			Target:   c.Target,
			Arity:    len(c.Params),
			Variadic: c.Variadic,
			Results:  []model.TypeRef{model.Type(c.Results[0])},
		}
		if b.Target == "" {
			b.Target = c.Name
		}
		if builder != model.NoType {
			b.Into = builder
			b.Deref = strings.HasPrefix(c.Results[0], "*")
		}
		if _, err = w.m.Step(s, grammar.Bind(b)); err != nil {
			return nil, errors.Wrapf(err, "%s.%s", decl.Name, c.Name)
		}
	}

	if builder == model.NoType {
		return w.res, nil
	}
	for _, f := range decl.Fields {
		field := model.Param{Name: naming.Ident(naming.LowerCamel(f.Name)), Type: model.Type(f.Type)}
		if field.Name == "" {
			field.Name = "v"
		}
		_, err := w.m.Run(grammar.Start(builder),
			grammar.Keyword(f.Name, nil, 0),
			grammar.Parameter(field),
			grammar.Bind(&model.Binding{Kind: model.BindField, Target: f.Name, Arity: 1}),
		)
		if err != nil {
			return nil, errors.Wrapf(err, "%s.%s", decl.Name, f.Name)
		}
	}
	_, err := w.m.Run(grammar.Start(builder),
		grammar.Keyword("build", nil, 0),
		grammar.Bind(&model.Binding{Kind: model.BindValue, Target: object.Name, Results: []model.TypeRef{object.Type}}),
	)
	if err != nil {
		return nil, errors.Wrap(err, decl.Name)
	}
	return w.res, nil
}
