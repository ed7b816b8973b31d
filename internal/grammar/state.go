// Package grammar turns the token stream of one host method into edges of the
// DSL trie.
//
// A State is one of Initial, Keyword or Decide. States are values: every
// transition returns a new State and never changes the one it was given, so a
// prefix state built from declaration-level keywords can be reused for every
// method of the declaration.
package grammar

import (
	"fmt"
	"slices"
	"strings"

	"github.com/pkg/errors"

	"github.com/calumari/fluentgen/internal/model"
	"github.com/calumari/fluentgen/internal/naming"
)

// Kind is the variant of a State.
type Kind int

const (
	// StateInitial waits for the first keyword or method.
	StateInitial Kind = iota
	// StateKeyword accumulates the parameters of a keyword.
	StateKeyword
	// StateDecide holds the method name as a provisional keyword until the
	// next token shows whether it is used.
	StateDecide
)

func (k Kind) String() string {
	switch k {
	case StateInitial:
		return "initial"
	case StateKeyword:
		return "keyword"
	case StateDecide:
		return "decide"
	}
	return "unknown"
}

// State is a position in the trie plus the keyword being read there.
type State struct {
	kind    Kind
	cursor  model.TypeID
	name    string
	aliases []string
	params  []model.Param
	pending int
}

// Start returns the initial state at cursor.
func Start(cursor model.TypeID) State { return State{kind: StateInitial, cursor: cursor} }

func (s State) String() string {
	if s.kind == StateInitial {
		return fmt.Sprintf("initial@%d", s.cursor)
	}
	return fmt.Sprintf("%s(%s/%d)@%d", s.kind, s.name, len(s.params), s.cursor)
}

func (s State) with(p model.Param) State {
	s.params = append(slices.Clip(s.params), p)
	if s.pending > 0 {
		s.pending--
	}
	return s
}

func (s State) materialize() State {
	s.kind = StateKeyword
	return s
}

func fresh(cursor model.TypeID, tok Token) State {
	return State{kind: StateKeyword, cursor: cursor, name: tok.Name, aliases: tok.Aliases, pending: tok.Count}
}

// Key is the structural key of a keyword with the given parameters.
func Key(name string, params []model.Param) string {
	var b strings.Builder
	b.WriteString(naming.Capitalize(name))
	for _, p := range params {
		b.WriteString(naming.Capitalize(p.Type.SimpleName()))
	}
	return b.String()
}

// Machine applies tokens to states, committing keywords into its graph.
type Machine struct {
	g *model.Graph
}

// New returns a machine building into g.
func New(g *model.Graph) *Machine { return &Machine{g: g} }

// Run applies toks in order starting from s.
func (m *Machine) Run(s State, toks ...Token) (State, error) {
	var err error
	for _, tok := range toks {
		if s, err = m.Step(s, tok); err != nil {
			return s, err
		}
	}
	return s, nil
}

// Step applies one token.
func (m *Machine) Step(s State, tok Token) (State, error) {
	switch tok.Kind {
	case TokMethod:
		return m.method(s, tok.Name)
	case TokKeyword:
		return m.keyword(s, tok)
	case TokParameter:
		return m.parameter(s, tok.Param), nil
	case TokConstant:
		return m.constant(s, tok.Name), nil
	case TokAnnotation:
		return s, nil
	case TokBind:
		return m.bind(s, tok.Binding)
	}
	return s, errors.Errorf("unknown token %d", tok.Kind)
}

func (m *Machine) method(s State, name string) (State, error) {
	switch s.kind {
	case StateKeyword:
		if s.pending > 0 {
			return s, errors.Wrapf(model.ErrArity, "keyword %q is missing %d parameters before method %s", s.name, s.pending, name)
		}
		fallthrough
	case StateDecide:
		next, err := m.commit(s, nil)
		if err != nil {
			return s, err
		}
		return State{kind: StateDecide, cursor: next, name: name}, nil
	}
	return State{kind: StateDecide, cursor: s.cursor, name: name}, nil
}

func (m *Machine) keyword(s State, tok Token) (State, error) {
	switch s.kind {
	case StateKeyword:
		if s.pending > 0 {
			return m.constant(s, tok.Name), nil
		}
		next, err := m.commit(s, nil)
		if err != nil {
			return s, err
		}
		return fresh(next, tok), nil
	}
	// Decide drops its provisional name and starts over at the same depth.
	return fresh(s.cursor, tok), nil
}

func (m *Machine) parameter(s State, p model.Param) State {
	switch s.kind {
	case StateKeyword:
		return s.with(p)
	case StateDecide:
		return s.materialize().with(p)
	}
	return s
}

func (m *Machine) constant(s State, name string) State {
	switch s.kind {
	case StateKeyword:
		return s.with(m.g.Constant(name))
	case StateDecide:
		return s.materialize().with(m.g.Constant(name))
	}
	return s
}

func (m *Machine) bind(s State, b *model.Binding) (State, error) {
	switch s.kind {
	case StateInitial:
		return s, nil
	case StateDecide:
		s = s.materialize()
	}
	if s.pending > 0 {
		return s, errors.Wrapf(model.ErrArity, "keyword %q is missing %d parameters", s.name, s.pending)
	}
	if _, err := m.commit(s, b); err != nil {
		return s, err
	}
	return State{}, nil
}

// commit adds the keyword at the cursor and returns the position after it.
func (m *Machine) commit(s State, b *model.Binding) (model.TypeID, error) {
	t := m.g.Type(s.cursor)
	if t == nil {
		return model.NoType, errors.Errorf("keyword %q has no position in the sentence", s.name)
	}
	if b != nil {
		n := forwarded(m.g.Path(s.cursor)) + forwarded(s.params)
		if n != b.Arity {
			return model.NoType, errors.Wrapf(model.ErrArity, "keyword %q forwards %d parameters to %s, which takes %d", s.name, n, b.Target, b.Arity)
		}
	}
	mn, err := t.Add(Key(s.name, s.params), s.name, s.aliases, s.params, b)
	if err != nil {
		return model.NoType, err
	}
	return mn.Type().Node, nil
}

func forwarded(params []model.Param) int {
	n := 0
	for _, p := range params {
		if !p.IsConstant() {
			n++
		}
	}
	return n
}
