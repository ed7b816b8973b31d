// Package model is the intermediate representation of a generated DSL: an
// arena of type and method nodes forming a trie keyed by structural keys.
package model

import (
	"slices"

	"github.com/pkg/errors"
)

// TypeID addresses a TypeNode in its Graph. The zero value is no type.
type TypeID int

// MethodID addresses a MethodNode in its Graph. The zero value is no method.
type MethodID int

const (
	NoType   TypeID   = 0
	NoMethod MethodID = 0
)

// TypeParam is a type parameter of the host declaration, carried by every
// generated type.
type TypeParam struct {
	Name       string
	Constraint string
}

// Param is one parameter of a generated method.
type Param struct {
	Name string
	Type TypeRef
	// Constant names the singleton constant this parameter stands for; such
	// parameters carry no value and are never forwarded.
	Constant string
	// Apply names a factory; the parameter is a function that receives the
	// factory's result and its return value is what gets forwarded.
	Apply string
}

// IsConstant reports whether p is a constant parameter.
func (p Param) IsConstant() bool { return p.Constant != "" }

// TypeNode is one generated type: the DSL root, one trie level, or an explicit
// nested type such as a builder.
type TypeNode struct {
	ID         TypeID
	Package    string
	Name       string
	TypeParams []TypeParam
	Parent     TypeID
	// Via is the method whose return type this node is.
	Via MethodID
	// Methods in first-seen order.
	Methods []MethodID
	Nested  []TypeID
	// Constants registered on the root, in first-seen order.
	Constants []string
	// State is carried by the implementation in addition to the path
	// parameters, e.g. the object a builder fills in.
	State []Param

	graph *Graph
	index map[string]MethodID
}

// MethodNode is one fluent step.
type MethodNode struct {
	ID      MethodID
	Owner   TypeID
	Key     string
	Name    string
	Aliases []string
	Params  []Param
	// Binding is nil for non-terminal methods.
	Binding *Binding

	next TypeID
}

// Return is a method's result: a generated type, or the host target's results.
type Return struct {
	Node    TypeID
	Results []TypeRef
}

// Graph owns all nodes of one DSL.
type Graph struct {
	Root TypeID
	// Receiver is the host instance terminal methods call; nil for builders.
	Receiver *Param

	types   []*TypeNode
	methods []*MethodNode
	consts  map[string]bool
}

// NewGraph returns a graph with a root type.
func NewGraph(pkg, name string, typeParams []TypeParam) *Graph {
	g := &Graph{consts: make(map[string]bool)}
	g.Root = g.newType(name, NoType, NoMethod)
	root := g.Type(g.Root)
	root.Package = pkg
	root.TypeParams = slices.Clone(typeParams)
	return g
}

func (g *Graph) newType(name string, parent TypeID, via MethodID) TypeID {
	t := &TypeNode{
		ID:     TypeID(len(g.types) + 1),
		Name:   name,
		Parent: parent,
		Via:    via,
		graph:  g,
		index:  make(map[string]MethodID),
	}
	if p := g.Type(parent); p != nil {
		t.Package = p.Package
		t.TypeParams = p.TypeParams
	}
	g.types = append(g.types, t)
	return t.ID
}

// Type returns the node for id, or nil.
func (g *Graph) Type(id TypeID) *TypeNode {
	if id <= NoType || int(id) > len(g.types) {
		return nil
	}
	return g.types[id-1]
}

// Method returns the node for id, or nil.
func (g *Graph) Method(id MethodID) *MethodNode {
	if id <= NoMethod || int(id) > len(g.methods) {
		return nil
	}
	return g.methods[id-1]
}

// Types returns every type in creation order.
func (g *Graph) Types() []*TypeNode { return slices.Clone(g.types) }

// Nest registers an explicit nested type under owner. It is not reachable by
// any structural key.
func (g *Graph) Nest(owner TypeID, name string) TypeID {
	id := g.newType(name, owner, NoMethod)
	if o := g.Type(owner); o != nil {
		o.Nested = append(o.Nested, id)
	}
	return id
}

// Constant returns the parameter standing for the named constant, registering
// it on the root the first time.
func (g *Graph) Constant(name string) Param {
	if !g.consts[name] {
		g.consts[name] = true
		root := g.Type(g.Root)
		root.Constants = append(root.Constants, name)
	}
	return Param{Name: name, Type: Type(name), Constant: name}
}

// Path returns the parameters accumulated from the root down to id.
func (g *Graph) Path(id TypeID) []Param {
	var chain [][]Param
	for t := g.Type(id); t != nil && t.Via != NoMethod; {
		m := g.Method(t.Via)
		chain = append(chain, m.Params)
		t = g.Type(m.Owner)
	}
	slices.Reverse(chain)
	return slices.Concat(chain...)
}

// MethodNodes returns t's methods in first-seen order.
func (t *TypeNode) MethodNodes() []*MethodNode {
	out := make([]*MethodNode, len(t.Methods))
	for i, id := range t.Methods {
		out[i] = t.graph.Method(id)
	}
	return out
}

// Lookup returns the method registered under key.
func (t *TypeNode) Lookup(key string) (*MethodNode, bool) {
	id, ok := t.index[key]
	if !ok {
		return nil, false
	}
	return t.graph.Method(id), true
}

// Add fetches the method registered under key or creates it. A new unbound
// method gets a fresh child type; a bound one ends the branch.
func (t *TypeNode) Add(key, name string, aliases []string, params []Param, b *Binding) (*MethodNode, error) {
	if m, ok := t.Lookup(key); ok {
		if err := m.compatible(params, b); err != nil {
			return nil, errors.Wrapf(err, "%s.%s", t.Name, key)
		}
		return m, nil
	}
	g := t.graph
	m := &MethodNode{
		ID:      MethodID(len(g.methods) + 1),
		Owner:   t.ID,
		Key:     key,
		Name:    name,
		Aliases: slices.Clone(aliases),
		Params:  slices.Clone(params),
		Binding: b,
	}
	g.methods = append(g.methods, m)
	t.index[key] = m.ID
	t.Methods = append(t.Methods, m.ID)
	if b == nil {
		m.next = g.newType(key, t.ID, m.ID)
	}
	return m, nil
}

func (m *MethodNode) compatible(params []Param, b *Binding) error {
	if len(params) != len(m.Params) {
		return errors.Wrapf(ErrKeyCollision, "%d parameters against %d", len(params), len(m.Params))
	}
	for i, p := range params {
		q := m.Params[i]
		if p.Type.Expr != q.Type.Expr || p.IsConstant() != q.IsConstant() || p.Apply != q.Apply {
			return errors.Wrapf(ErrKeyCollision, "parameter %d is %s, previously %s", i, p.Type, q.Type)
		}
	}
	if !m.Binding.Same(b) {
		return errors.Wrapf(ErrBindingConflict, "%s, previously %s", b, m.Binding)
	}
	return nil
}

// Type is the bound target's result if m is terminal, otherwise the child type.
func (m *MethodNode) Type() Return {
	b := m.Binding
	if b == nil {
		return Return{Node: m.next}
	}
	switch {
	case b.Kind == BindField:
		return Return{Node: m.Owner}
	case b.Kind == BindFunc && b.Into != NoType:
		return Return{Node: b.Into}
	}
	return Return{Results: b.Results}
}

// Terminal reports whether m ends a sentence.
func (m *MethodNode) Terminal() bool { return m.Binding != nil }
