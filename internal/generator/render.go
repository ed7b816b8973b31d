package generator

import (
	"fmt"
	"slices"
	"strings"

	"github.com/calumari/fluentgen/internal/host"
	"github.com/calumari/fluentgen/internal/model"
	"github.com/calumari/fluentgen/internal/naming"
	"github.com/calumari/fluentgen/internal/parser"
)

const (
	delegatorField = "Delegator"
	defaultRecv    = "d"
)

// flattener names every node of a graph and builds the render IR. Names are
// claimed in a fixed order (root, types depth first, constants, delegate,
// implementations) so output is deterministic.
type flattener struct {
	g    *model.Graph
	decl *host.Declaration
	cfg  host.Config
	reg  *naming.Registry

	typeParams string
	typeArgs   string
	recvField  string

	order   []model.TypeID
	ifaces  map[model.TypeID]string
	impls   map[model.TypeID]string
	methods map[model.MethodID]string
	aliases map[model.MethodID][]string
	consts  map[string]constantModel
}

func flatten(pkg *host.Package, res *parser.Result) *fileModel {
	f := &flattener{
		g:       res.Graph,
		decl:    res.Decl,
		cfg:     res.Decl.Config,
		ifaces:  map[model.TypeID]string{},
		impls:   map[model.TypeID]string{},
		methods: map[model.MethodID]string{},
		aliases: map[model.MethodID][]string{},
		consts:  map[string]constantModel{},
	}
	reserved := slices.Clone(pkg.Scope)
	for _, d := range pkg.Declarations {
		reserved = append(reserved, d.Name)
	}
	for _, imp := range res.Decl.Imports {
		if imp.Name != "" {
			reserved = append(reserved, imp.Name)
		} else {
			reserved = append(reserved, imp.Path[strings.LastIndex(imp.Path, "/")+1:])
		}
	}
	f.reg = naming.NewRegistry(reserved...)
	f.typeParams, f.typeArgs = typeParamLists(f.g.Type(f.g.Root).TypeParams)
	if f.g.Receiver != nil {
		f.recvField = f.g.Receiver.Name
	}

	f.nameTypes()
	return f.file()
}

func typeParamLists(tps []model.TypeParam) (string, string) {
	if len(tps) == 0 {
		return "", ""
	}
	decl := make([]string, len(tps))
	args := make([]string, len(tps))
	for i, tp := range tps {
		decl[i] = tp.Name + " " + tp.Constraint
		args[i] = tp.Name
	}
	return "[" + strings.Join(decl, ", ") + "]", "[" + strings.Join(args, ", ") + "]"
}

// nameTypes visits the graph depth first from the root, rendering each type
// once, and claims every generated identifier.
func (f *flattener) nameTypes() {
	seen := map[model.TypeID]bool{}
	var visit func(id model.TypeID)
	visit = func(id model.TypeID) {
		if seen[id] {
			return
		}
		seen[id] = true
		t := f.g.Type(id)
		if id == f.g.Root {
			f.ifaces[id] = f.reg.Claim(f.cfg.ClassName)
		} else {
			f.ifaces[id] = f.reg.Claim(f.ifaces[t.Parent] + t.Name)
		}
		f.order = append(f.order, id)
		for _, m := range t.MethodNodes() {
			if !m.Terminal() {
				visit(m.Type().Node)
			}
		}
		for _, n := range t.Nested {
			visit(n)
		}
	}
	visit(f.g.Root)

	cls := f.ifaces[f.g.Root]
	for _, word := range f.g.Type(f.g.Root).Constants {
		name := naming.Capitalize(word)
		f.consts[word] = constantModel{
			Word: word,
			Type: f.reg.Claim(cls + name + "Constant"),
			Var:  f.reg.Claim(cls + name),
		}
	}

	for _, id := range f.order {
		f.impls[id] = f.reg.Claim(naming.LowerFirst(f.ifaces[id]))
		f.nameMethods(id)
	}
}

// nameMethods gives each method its capitalized keyword, falling back to the
// structural key when two methods of one interface share a keyword. Aliases
// are named after every canonical method has its name.
func (f *flattener) nameMethods(id model.TypeID) {
	var mreg *naming.Registry
	if id == f.g.Root && f.g.Receiver != nil {
		mreg = naming.NewRegistry(delegatorField)
	} else {
		mreg = naming.NewRegistry()
	}
	ms := f.g.Type(id).MethodNodes()
	for _, m := range ms {
		name := naming.Capitalize(m.Name)
		if mreg.Taken(name) {
			name = m.Key
		}
		f.methods[m.ID] = mreg.Claim(name)
	}
	for _, m := range ms {
		for _, a := range m.Aliases {
			f.aliases[m.ID] = append(f.aliases[m.ID], mreg.Claim(naming.Capitalize(a)))
		}
	}
}

func (f *flattener) file() *fileModel {
	root := f.g.Type(f.g.Root)
	fm := &fileModel{
		Package: root.Package,
		Source:  f.decl.Name,
		Imports: f.decl.Imports,
	}
	for _, word := range root.Constants {
		fm.Constants = append(fm.Constants, f.consts[word])
	}
	fm.Factory = f.factory()
	for _, id := range f.order {
		fm.Interfaces = append(fm.Interfaces, f.iface(id))
	}
	if f.g.Receiver != nil {
		fm.Delegate = f.delegate(fm.Interfaces[0])
	}
	return fm
}

func (f *flattener) factory() factoryModel {
	root := f.g.Root
	fac := factoryModel{
		Name:       f.cfg.FactoryMethod,
		TypeParams: f.typeParams,
		Result:     f.ifaces[root] + f.typeArgs,
		Body:       []codeNode{{Kind: nodeKindNext, Type: f.impls[root] + f.typeArgs}},
	}
	if f.g.Receiver == nil {
		fac.Doc = fmt.Sprintf("%s starts building a %s.", fac.Name, f.decl.Receiver)
		return fac
	}
	fac.Doc = fmt.Sprintf("%s starts a sentence forwarding to %s.", fac.Name, f.recvField)
	fac.Params = []paramModel{{Name: f.recvField, Type: f.g.Receiver.Type.Expr}}
	fac.Body[0].Fields = []fieldValue{{Name: f.recvField, Value: f.recvField}}
	return fac
}

// slot is a path parameter stored by an implementation struct.
type slot struct {
	name  string
	param model.Param
}

// slots returns the forwarded path parameters of id with their field names.
// The slots of a type extend the slots of its parent, so field names agree
// along a sentence.
func (f *flattener) slots(id model.TypeID) []slot {
	var params []model.Param
	for _, p := range f.g.Path(id) {
		if !p.IsConstant() {
			params = append(params, p)
		}
	}
	names := make([]string, len(params))
	for i, p := range params {
		names[i] = fieldName(p.Name)
	}
	names = naming.Unique(names, f.recvField, "object")
	out := make([]slot, len(params))
	for i, p := range params {
		out[i] = slot{name: names[i], param: p}
	}
	return out
}

func fieldName(s string) string {
	if n := naming.Ident(naming.LowerCamel(s)); n != "" {
		return n
	}
	return "v"
}

func (f *flattener) fields(id model.TypeID) []paramModel {
	var out []paramModel
	if f.g.Receiver != nil {
		out = append(out, paramModel{Name: f.recvField, Type: f.g.Receiver.Type.Expr})
	}
	for _, s := range f.slots(id) {
		out = append(out, paramModel{Name: s.name, Type: s.param.Type.Expr})
	}
	for _, p := range f.g.Type(id).State {
		out = append(out, paramModel{Name: p.Name, Type: p.Type.Expr})
	}
	return out
}

// receiverName picks a method receiver no parameter of ms shadows.
func receiverName(ms []methodModel) string {
	var taken []string
	for _, m := range ms {
		for _, p := range m.Params {
			taken = append(taken, p.Name)
		}
	}
	return naming.NewRegistry(taken...).Claim(defaultRecv)
}

func (f *flattener) iface(id model.TypeID) interfaceModel {
	t := f.g.Type(id)
	im := interfaceModel{
		Name:       f.ifaces[id],
		ImplName:   f.impls[id],
		TypeParams: f.typeParams,
		TypeArgs:   f.typeArgs,
		Fields:     f.fields(id),
	}
	switch {
	case id == f.g.Root && f.g.Receiver != nil:
		im.Doc = fmt.Sprintf("%s is a fluent sentence over %s.", im.Name, f.decl.Receiver)
	case id == f.g.Root:
		im.Doc = fmt.Sprintf("%s builds a %s.", im.Name, f.decl.Receiver)
	case len(t.State) > 0:
		im.Doc = fmt.Sprintf("%s sets the fields of a %s before Build.", im.Name, f.decl.Receiver)
	default:
		im.Doc = fmt.Sprintf("%s continues a sentence after %s.", im.Name, f.methods[t.Via])
	}

	ms := t.MethodNodes()
	for _, m := range ms {
		im.Methods = append(im.Methods, methodModel{Name: f.methods[m.ID], Params: f.params(m), Result: f.result(m)})
	}
	im.Receiver = receiverName(im.Methods)

	var aliases []methodModel
	for i, m := range ms {
		canon := &im.Methods[i]
		canon.Doc, canon.Body = f.body(id, im.Receiver, m)
		for _, a := range f.aliases[m.ID] {
			aliases = append(aliases, f.alias(im.Receiver, a, canon, m))
		}
	}
	im.Methods = append(im.Methods, aliases...)
	return im
}

func (f *flattener) params(m *model.MethodNode) []paramModel {
	out := make([]paramModel, len(m.Params))
	for i, p := range m.Params {
		switch {
		case p.IsConstant():
			out[i] = paramModel{Name: "_", Type: f.consts[p.Constant].Type}
		case f.variadic(m, i):
			elem, _ := p.Type.Elem()
			out[i] = paramModel{Name: p.Name, Type: "..." + elem}
		default:
			out[i] = paramModel{Name: p.Name, Type: p.Type.Expr}
		}
	}
	return out
}

// variadic reports whether parameter i of m renders as variadic: it is the
// last parameter, a slice, and the declaration uses varargs.
func (f *flattener) variadic(m *model.MethodNode, i int) bool {
	if !f.cfg.UseVarargs || i != len(m.Params)-1 {
		return false
	}
	p := m.Params[i]
	if p.IsConstant() || p.Apply != "" {
		return false
	}
	_, ok := p.Type.Elem()
	return ok
}

func (f *flattener) result(m *model.MethodNode) string {
	ret := m.Type()
	if ret.Node != model.NoType {
		return f.ifaces[ret.Node] + f.typeArgs
	}
	switch len(ret.Results) {
	case 0:
		return ""
	case 1:
		return ret.Results[0].Expr
	}
	rs := make([]string, len(ret.Results))
	for i, r := range ret.Results {
		rs[i] = r.Expr
	}
	return "(" + strings.Join(rs, ", ") + ")"
}

// arg is the forwarded expression of a parameter: its value, or for a
// builder function the result of applying it to a fresh builder.
func arg(expr string, p model.Param) string {
	if p.Apply != "" {
		return expr + "(" + p.Apply + "())"
	}
	return expr
}

func (f *flattener) body(id model.TypeID, recv string, m *model.MethodNode) (string, []codeNode) {
	name := f.methods[m.ID]
	own := func() (vals []string, params []model.Param) {
		for _, p := range m.Params {
			if !p.IsConstant() {
				vals = append(vals, p.Name)
				params = append(params, p)
			}
		}
		return
	}

	b := m.Binding
	if b == nil {
		child := m.Type().Node
		node := codeNode{Kind: nodeKindNext, Type: f.impls[child] + f.typeArgs}
		if f.g.Receiver != nil {
			node.Fields = append(node.Fields, fieldValue{Name: f.recvField, Value: recv + "." + f.recvField})
		}
		parent := f.slots(id)
		vals, _ := own()
		for i, s := range f.slots(child) {
			var v string
			if i < len(parent) {
				v = recv + "." + parent[i].name
			} else {
				v = vals[i-len(parent)]
			}
			node.Fields = append(node.Fields, fieldValue{Name: s.name, Value: v})
		}
		doc := fmt.Sprintf("%s does not end the sentence; continue with %s.", name, f.ifaces[child])
		return doc, []codeNode{node}
	}

	var args []string
	for _, s := range f.slots(id) {
		args = append(args, arg(recv+"."+s.name, s.param))
	}
	vals, params := own()
	for i, v := range vals {
		args = append(args, arg(v, params[i]))
	}
	spread := b.Variadic && len(args) > 0

	switch b.Kind {
	case model.BindField:
		object := f.g.Type(m.Owner).State[0].Name
		return fmt.Sprintf("%s sets %s.", name, b.Target), []codeNode{{
			Kind: nodeKindAssign,
			Dest: recv + "." + object + "." + b.Target,
			Src:  args[len(args)-1],
			Recv: recv,
		}}
	case model.BindValue:
		return fmt.Sprintf("%s returns the built %s.", name, f.result(m)), []codeNode{{
			Kind: nodeKindValue,
			Src:  recv + "." + b.Target,
		}}
	case model.BindFunc:
		if b.Into != model.NoType {
			return fmt.Sprintf("%s calls %s and continues with %s.", name, b.Target, f.ifaces[b.Into]), []codeNode{{
				Kind:   nodeKindInto,
				Type:   f.impls[b.Into] + f.typeArgs,
				Field:  f.g.Type(b.Into).State[0].Name,
				Deref:  b.Deref,
				Expr:   b.Target,
				Args:   args,
				Spread: spread,
			}}
		}
		return fmt.Sprintf("%s ends the sentence, calling %s.", name, b.Target), []codeNode{{
			Kind:   nodeKindCall,
			Return: len(b.Results) > 0,
			Expr:   b.Target,
			Args:   args,
			Spread: spread,
		}}
	}
	return fmt.Sprintf("%s ends the sentence, calling %s.%s.", name, f.recvField, b.Target), []codeNode{{
		Kind:   nodeKindCall,
		Return: len(b.Results) > 0,
		Expr:   recv + "." + f.recvField + "." + b.Target,
		Args:   args,
		Spread: spread,
	}}
}

// forward calls expr with the parameters of a rendered method, passing the
// singleton for constant parameters.
func (f *flattener) forward(expr string, mm *methodModel, m *model.MethodNode) codeNode {
	node := codeNode{Kind: nodeKindCall, Return: mm.Result != "", Expr: expr}
	for i, p := range mm.Params {
		if m.Params[i].IsConstant() {
			node.Args = append(node.Args, f.consts[m.Params[i].Constant].Var)
			continue
		}
		node.Args = append(node.Args, p.Name)
		node.Spread = strings.HasPrefix(p.Type, "...")
	}
	return node
}

func (f *flattener) alias(recv, name string, canon *methodModel, m *model.MethodNode) methodModel {
	return methodModel{
		Name:   name,
		Doc:    fmt.Sprintf("%s is an alias of %s.", name, canon.Name),
		Params: canon.Params,
		Result: canon.Result,
		Body:   []codeNode{f.forward(recv+"."+canon.Name, canon, m)},
	}
}

func (f *flattener) delegate(root interfaceModel) *delegateModel {
	cls := root.Name
	d := &delegateModel{
		Delegator:  f.reg.Claim(cls + "Delegator"),
		Func:       f.reg.Claim(cls + "DelegatorFunc"),
		Struct:     f.reg.Claim(cls + "Delegate"),
		Method:     f.cfg.DelegateMethod,
		RootName:   cls,
		Root:       cls + f.typeArgs,
		TypeParams: f.typeParams,
		TypeArgs:   f.typeArgs,
		Assert:     f.typeArgs == "",
	}
	d.Receiver = receiverName(root.Methods)

	rootMethods := f.g.Type(f.g.Root).MethodNodes()
	byName := map[string]*model.MethodNode{}
	for i := range rootMethods {
		byName[root.Methods[i].Name] = rootMethods[i]
	}
	for i := range root.Methods {
		mm := root.Methods[i]
		m, ok := byName[mm.Name]
		if !ok {
			// aliases forward like their canonical method
			m = f.canonicalOf(rootMethods, mm.Name)
		}
		target := d.Receiver + "." + delegatorField + "." + d.Method + "()." + mm.Name
		d.Methods = append(d.Methods, methodModel{
			Name:   mm.Name,
			Doc:    fmt.Sprintf("%s forwards to the delegated %s.", mm.Name, cls),
			Params: mm.Params,
			Result: mm.Result,
			Body:   []codeNode{f.forward(target, &mm, m)},
		})
	}
	return d
}

func (f *flattener) canonicalOf(ms []*model.MethodNode, alias string) *model.MethodNode {
	for _, m := range ms {
		for _, a := range f.aliases[m.ID] {
			if a == alias {
				return m
			}
		}
	}
	return nil
}
