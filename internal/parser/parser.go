// Package parser walks host declarations and feeds them, token by token, to
// the grammar state machine, producing one model graph per declaration.
package parser

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/calumari/fluentgen/internal/grammar"
	"github.com/calumari/fluentgen/internal/host"
	"github.com/calumari/fluentgen/internal/model"
	"github.com/calumari/fluentgen/internal/naming"
)

// Diagnostic reports a part of a declaration that was skipped.
type Diagnostic struct {
	Declaration string
	Pos         string
	Err         error
}

func (d Diagnostic) Error() string {
	if d.Pos != "" {
		return fmt.Sprintf("%s: %s: %v", d.Pos, d.Declaration, d.Err)
	}
	return fmt.Sprintf("%s: %v", d.Declaration, d.Err)
}

func (d Diagnostic) Unwrap() error { return d.Err }

// Result is the parsed form of one declaration.
type Result struct {
	Decl        *host.Declaration
	Graph       *model.Graph
	Diagnostics []Diagnostic
	// Requires lists declarations plugins need generated alongside, in
	// first-use order.
	Requires []*host.Declaration
}

func (r *Result) require(d *host.Declaration) {
	for _, have := range r.Requires {
		if have.Name == d.Name {
			return
		}
	}
	r.Requires = append(r.Requires, d)
}

// Parser turns declarations into graphs.
type Parser struct {
	Plugins []Plugin
}

// New returns a parser using plugins for nested parameters, in order.
func New(plugins ...Plugin) *Parser { return &Parser{Plugins: plugins} }

// Parse builds the graph for decl. An error means the whole declaration is
// unusable; recoverable problems are reported as diagnostics on the result.
func (p *Parser) Parse(pkg *host.Package, decl *host.Declaration) (*Result, error) {
	if decl.Kind == host.KindBuilder {
		return p.parseBuilder(pkg, decl)
	}
	return p.parseDSL(pkg, decl)
}

func packageOf(pkg *host.Package, decl *host.Declaration) string {
	if decl.Config.PackageName != "" {
		return decl.Config.PackageName
	}
	return pkg.Name
}

type walker struct {
	p    *Parser
	pkg  *host.Package
	decl *host.Declaration
	m    *grammar.Machine
	res  *Result
}

func (w *walker) diagnose(pos string, err error) {
	w.res.Diagnostics = append(w.res.Diagnostics, Diagnostic{Declaration: w.decl.Name, Pos: pos, Err: err})
}

func (p *Parser) parseDSL(pkg *host.Package, decl *host.Declaration) (*Result, error) {
	cfg := decl.Config
	g := model.NewGraph(packageOf(pkg, decl), cfg.ClassName, decl.TypeParams)
	g.Receiver = &model.Param{Name: cfg.ParameterName, Type: model.Type(decl.Receiver)}

	w := &walker{p: p, pkg: pkg, decl: decl, m: grammar.New(g), res: &Result{Decl: decl, Graph: g}}

	prefix, nested, err := w.annotations(grammar.Start(g.Root), decl.Annotations, true)
	if err != nil {
		return nil, errors.Wrap(err, decl.Name)
	}
	if nested != "" {
		w.diagnose(decl.Pos, errors.Errorf("nested annotation @%s only applies to parameters", nested))
	}

	for _, hm := range decl.Methods {
		if err := w.method(prefix, hm); err != nil {
			return nil, errors.Wrapf(err, "%s.%s", decl.Name, hm.Name)
		}
	}
	return w.res, nil
}

func (w *walker) method(prefix grammar.State, hm host.Method) error {
	s, err := w.m.Step(prefix, grammar.Method(hm.Name))
	if err != nil {
		return err
	}
	for i, hp := range hm.Params {
		var nested string
		if s, nested, err = w.annotations(s, hp.Annotations, false); err != nil {
			return err
		}
		param := w.param(i, hp)
		if nested != "" {
			param = w.substitute(hm, param)
		}
		if s, err = w.m.Step(s, grammar.Parameter(param)); err != nil {
			return err
		}
	}
	s, nested, err := w.annotations(s, hm.Annotations, false)
	if err != nil {
		return err
	}
	if nested != "" {
		w.diagnose(hm.Pos, errors.Errorf("nested annotation @%s only applies to parameters", nested))
	}
	_, err = w.m.Step(s, grammar.Bind(binding(hm)))
	return err
}

// annotations applies each annotation's token. It returns the name of a nested
// annotation among them, if any, so the caller can route the next parameter
// to the plugins. Declaration annotations have no parameters to consume, so
// parametrized keywords among them are plain keywords there.
func (w *walker) annotations(s grammar.State, anns []host.Annotation, decl bool) (grammar.State, string, error) {
	var nested string
	for _, a := range anns {
		meta, err := w.pkg.Catalog.Resolve(a.Name)
		if err != nil {
			w.diagnose(a.Pos, err)
			continue
		}
		var tok grammar.Token
		switch meta.Role {
		case host.RoleKeyword:
			count := meta.Count
			if decl && count > 0 {
				w.diagnose(a.Pos, errors.Errorf("keyword @%s takes %d parameters and is used as a plain keyword on the declaration", meta.Name, count))
				count = 0
			}
			tok = grammar.Keyword(meta.Name, meta.Aliases, count)
		case host.RoleConstant:
			tok = grammar.Constant(meta.Name)
		case host.RoleNested:
			nested = meta.Name
			continue
		default:
			tok = grammar.Annotation(meta.Name)
		}
		if s, err = w.m.Step(s, tok); err != nil {
			return s, nested, err
		}
	}
	return s, nested, nil
}

func (w *walker) param(i int, hp host.Parameter) model.Param {
	name := naming.Ident(hp.Name)
	if name == "" {
		name = fmt.Sprintf("p%d", i)
	}
	return model.Param{Name: name, Type: model.Type(hp.Type)}
}

// substitute offers p to the plugins; the first that handles it wins.
func (w *walker) substitute(hm host.Method, p model.Param) model.Param {
	for _, plugin := range w.p.Plugins {
		sub, requires, ok, err := plugin.Substitute(w.pkg, p)
		if err != nil {
			w.diagnose(hm.Pos, errors.Wrapf(err, "plugin %s on parameter %s", plugin.Name(), p.Name))
			return p
		}
		if ok {
			if requires != nil {
				w.res.require(requires)
			}
			return sub
		}
	}
	w.diagnose(hm.Pos, errors.Errorf("no plugin generates a DSL for parameter %s of type %s", p.Name, p.Type))
	return p
}

func binding(hm host.Method) *model.Binding {
	b := &model.Binding{
		Kind:     model.BindMethod,
		Target:   hm.Target,
		Arity:    len(hm.Params),
		Variadic: hm.Variadic,
	}
	if hm.Static {
		b.Kind = model.BindFunc
	}
	if b.Target == "" {
		b.Target = hm.Name
	}
	for _, r := range hm.Results {
		b.Results = append(b.Results, model.Type(r))
	}
	return b
}
