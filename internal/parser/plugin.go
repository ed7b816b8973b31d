package parser

import (
	"fmt"
	"go/token"

	"github.com/pkg/errors"

	"github.com/calumari/fluentgen/internal/host"
	"github.com/calumari/fluentgen/internal/model"
)

// Plugin generates a DSL for a parameter marked with a nested annotation and
// substitutes the parameter the sentence exposes.
type Plugin interface {
	Name() string
	// Substitute returns the parameter to expose instead of p and the
	// declaration to generate for it. ok is false when the plugin does not
	// handle p.
	Substitute(pkg *host.Package, p model.Param) (sub model.Param, requires *host.Declaration, ok bool, err error)
}

// BuilderPlugin exposes a struct parameter as a function over the struct's
// builder DSL: a parameter of type Order becomes func(OrderWith) Order, and
// the forwarded value is that function applied to a new OrderWith.
type BuilderPlugin struct{}

func (BuilderPlugin) Name() string { return "builder" }

func (BuilderPlugin) Substitute(pkg *host.Package, p model.Param) (model.Param, *host.Declaration, bool, error) {
	name := p.Type.Expr
	if !token.IsIdentifier(name) {
		return p, nil, false, nil
	}
	decl, err := pkg.Struct(name)
	if errors.Is(err, host.ErrNotFound) {
		return p, nil, false, nil
	}
	if err != nil {
		return p, nil, false, err
	}
	if len(decl.TypeParams) > 0 {
		return p, nil, false, errors.Wrapf(model.ErrUnsupported, "struct %s has type parameters", name)
	}
	cls := decl.Config.ClassName
	sub := model.Param{
		Name:  p.Name,
		Type:  model.Named(fmt.Sprintf("func(%s) %s", cls, name), cls),
		Apply: decl.Config.FactoryMethod,
	}
	return sub, decl, true, nil
}
