package source

import (
	"go/ast"
	"go/token"
	"go/types"
	"strings"

	"github.com/pkg/errors"

	"github.com/calumari/fluentgen/internal/host"
	"github.com/calumari/fluentgen/internal/model"
)

func (l *loader) dsl(s typeSpec, tags map[string][]string, annotations []string) *host.Declaration {
	name := s.spec.Name.Name
	decl := &host.Declaration{Kind: host.KindDSL, Name: name, Pos: l.pos(s.spec.Pos())}
	decl.Annotations = annotate(annotations, decl.Pos)

	cfg, err := host.DecodeConfig(host.KindDSL, name, host.Options(tags, tagDSL))
	decl.Config = cfg
	if err != nil {
		decl.Err = err
		return decl
	}
	named, err := l.named(s)
	if err != nil {
		decl.Err = err
		return decl
	}
	iface, ok := named.Underlying().(*types.Interface)
	astIface, astOK := s.spec.Type.(*ast.InterfaceType)
	if !ok || !astOK {
		decl.Err = errors.Wrapf(model.ErrUnsupported, "%s is tagged %s but is not an interface", name, tagDSL)
		return decl
	}

	q := newQualifier(l.opts.OutputPath)
	decl.TypeParams, decl.Receiver = receiver(q, named)

	// Declared methods keep their source order; the type checker sorts them.
	seen := map[string]bool{}
	for _, field := range astIface.Methods.List {
		ft, ok := field.Type.(*ast.FuncType)
		if !ok {
			continue
		}
		for _, n := range field.Names {
			fn, ok := l.p.TypesInfo.Defs[n].(*types.Func)
			if !ok {
				continue
			}
			seen[fn.Name()] = true
			decl.Methods = append(decl.Methods, l.method(q, s.file, fn, ft, field.Doc))
		}
	}
	// Embedded interfaces contribute their methods after the declared ones.
	for i := 0; i < iface.NumMethods(); i++ {
		fn := iface.Method(i)
		if seen[fn.Name()] {
			continue
		}
		decl.Methods = append(decl.Methods, l.method(q, nil, fn, nil, nil))
	}

	for _, fd := range l.statics[name] {
		fn, ok := l.p.TypesInfo.Defs[fd.Name].(*types.Func)
		if !ok {
			continue
		}
		m := l.method(q, l.files[fd], fn, fd.Type, fd.Doc)
		m.Static = true
		m.Target = objectName(q, fn)
		decl.Methods = append(decl.Methods, m)
	}

	decl.Imports = q.list()
	return decl
}

func (l *loader) builder(s typeSpec, tags map[string][]string) *host.Declaration {
	name := s.spec.Name.Name
	decl := &host.Declaration{Kind: host.KindBuilder, Name: name, Pos: l.pos(s.spec.Pos())}

	cfg, err := host.DecodeConfig(host.KindBuilder, name, host.Options(tags, tagBuilder))
	decl.Config = cfg
	if err != nil {
		decl.Err = err
		return decl
	}
	named, err := l.named(s)
	if err != nil {
		decl.Err = err
		return decl
	}
	st, ok := named.Underlying().(*types.Struct)
	if !ok {
		decl.Err = errors.Wrapf(model.ErrUnsupported, "%s is not a struct", name)
		return decl
	}

	q := newQualifier(l.opts.OutputPath)
	decl.TypeParams, decl.Receiver = receiver(q, named)

	for i := 0; i < st.NumFields(); i++ {
		f := st.Field(i)
		if !f.Exported() || f.Embedded() {
			continue
		}
		decl.Fields = append(decl.Fields, host.Field{Name: f.Name(), Type: q.typeString(f.Type())})
	}

	for _, fd := range l.funcs {
		if !strings.HasPrefix(fd.Name.Name, "New"+name) {
			continue
		}
		fn, ok := l.p.TypesInfo.Defs[fd.Name].(*types.Func)
		if !ok || !constructs(fn, named) {
			continue
		}
		m := l.method(q, l.files[fd], fn, fd.Type, fd.Doc)
		m.Static = true
		m.Target = objectName(q, fn)
		decl.Methods = append(decl.Methods, m)
	}

	decl.Imports = q.list()
	return decl
}

// constructs reports whether fn returns exactly one value of type named or a
// pointer to it.
func constructs(fn *types.Func, named *types.Named) bool {
	sig := fn.Type().(*types.Signature)
	if sig.Results().Len() != 1 {
		return false
	}
	t := types.Unalias(sig.Results().At(0).Type())
	if ptr, ok := t.(*types.Pointer); ok {
		t = ptr.Elem()
	}
	return types.Identical(t, named)
}

func (l *loader) method(q *qualifier, file *ast.File, fn *types.Func, ft *ast.FuncType, doc *ast.CommentGroup) host.Method {
	sig := fn.Type().(*types.Signature)
	m := host.Method{
		Name:     fn.Name(),
		Target:   fn.Name(),
		Variadic: sig.Variadic(),
		Pos:      l.pos(fn.Pos()),
	}
	_, anns, _ := host.CommentTags(commentLines(doc))
	m.Annotations = annotate(anns, m.Pos)

	var comments []annotated
	if file != nil && ft != nil {
		comments = paramComments(file, ft)
	}
	for i := 0; i < sig.Params().Len(); i++ {
		v := sig.Params().At(i)
		p := host.Parameter{Name: v.Name(), Type: q.typeString(v.Type())}
		if i < len(comments) {
			p.Annotations = annotate(comments[i].names, l.pos(comments[i].pos))
		}
		m.Params = append(m.Params, p)
	}
	for i := 0; i < sig.Results().Len(); i++ {
		m.Results = append(m.Results, q.typeString(sig.Results().At(i).Type()))
	}
	return m
}

type annotated struct {
	names []string
	pos   token.Pos
}

// paramComments returns, for each parameter in order, the annotations written
// in comments between the previous parameter and its name.
func paramComments(file *ast.File, ft *ast.FuncType) []annotated {
	var out []annotated
	prev := ft.Params.Opening
	for _, field := range ft.Params.List {
		if len(field.Names) == 0 {
			out = append(out, between(file, prev, field.Type.Pos()))
			prev = field.End()
			continue
		}
		for _, id := range field.Names {
			out = append(out, between(file, prev, id.Pos()))
			prev = id.End()
		}
		prev = field.End()
	}
	return out
}

func between(file *ast.File, from, to token.Pos) annotated {
	a := annotated{pos: to}
	for _, g := range file.Comments {
		if g.End() <= from {
			continue
		}
		if g.Pos() >= to {
			break
		}
		for _, c := range g.List {
			if c.Pos() > from && c.End() <= to {
				a.names = append(a.names, host.ParseAnnotations(commentText(c.Text))...)
			}
		}
	}
	return a
}

func commentText(s string) string {
	if rest, ok := strings.CutPrefix(s, "//"); ok {
		return rest
	}
	return strings.TrimSuffix(strings.TrimPrefix(s, "/*"), "*/")
}

func annotate(names []string, pos string) []host.Annotation {
	out := host.Annotations(names...)
	for i := range out {
		out[i].Pos = pos
	}
	return out
}

func receiver(q *qualifier, named *types.Named) ([]model.TypeParam, string) {
	recv := objectName(q, named.Obj())
	tps := named.TypeParams()
	if tps.Len() == 0 {
		return nil, recv
	}
	params := make([]model.TypeParam, 0, tps.Len())
	args := make([]string, 0, tps.Len())
	for i := 0; i < tps.Len(); i++ {
		tp := tps.At(i)
		params = append(params, model.TypeParam{Name: tp.Obj().Name(), Constraint: q.typeString(tp.Constraint())})
		args = append(args, tp.Obj().Name())
	}
	return params, recv + "[" + strings.Join(args, ", ") + "]"
}

func objectName(q *qualifier, obj types.Object) string {
	if p := q.qualify(obj.Pkg()); p != "" {
		return p + "." + obj.Name()
	}
	return obj.Name()
}
