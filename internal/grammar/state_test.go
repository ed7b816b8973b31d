package grammar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calumari/fluentgen/internal/model"
)

func param(name, typ string) model.Param { return model.Param{Name: name, Type: model.Type(typ)} }

func call(target string, arity int) *model.Binding {
	return &model.Binding{Kind: model.BindMethod, Target: target, Arity: arity}
}

// methodsOf returns the keys registered directly under id.
func methodsOf(g *model.Graph, id model.TypeID) []string {
	var keys []string
	for _, m := range g.Type(id).MethodNodes() {
		keys = append(keys, m.Key)
	}
	return keys
}

func child(t *testing.T, g *model.Graph, id model.TypeID, key string) *model.MethodNode {
	t.Helper()
	m, ok := g.Type(id).Lookup(key)
	require.True(t, ok, "missing %s under %s (have %v)", key, g.Type(id).Name, methodsOf(g, id))
	return m
}

func TestKey(t *testing.T) {
	assert.Equal(t, "MustSeeOrderWithString", Key("mustSeeOrderWith", []model.Param{param("orderID", "string")}))
	assert.Equal(t, "MustSeeInt64Duration", Key("mustSee", []model.Param{param("v", "int64"), param("u", "time.Duration")}))
	assert.Equal(t, "With", Key("with", nil))
}

func TestStep(t *testing.T) {
	t.Run("initial ignores parameters constants and binds", func(t *testing.T) {
		g := model.NewGraph("bdd", "AutomationDsl", nil)
		m := New(g)
		s, err := m.Run(Start(g.Root), Parameter(param("x", "int")), Constant("order"), Annotation("deprecated"), Bind(call("X", 1)))
		require.NoError(t, err)
		assert.Equal(t, StateInitial, s.kind)
		assert.Empty(t, g.Type(g.Root).Methods)
		assert.Empty(t, g.Type(g.Root).Constants)
	})

	t.Run("method name becomes the keyword when a parameter comes first", func(t *testing.T) {
		g := model.NewGraph("bdd", "AutomationDsl", nil)
		m := New(g)
		s, err := m.Run(Start(g.Root), Method("Copy"))
		require.NoError(t, err)
		assert.Equal(t, StateDecide, s.kind)

		s, err = m.Step(s, Parameter(param("value", "string")))
		require.NoError(t, err)
		assert.Equal(t, StateKeyword, s.kind)
		assert.Equal(t, "Copy", s.name)

		_, err = m.Step(s, Bind(call("Copy", 1)))
		require.NoError(t, err)
		copyM := child(t, g, g.Root, "CopyString")
		assert.True(t, copyM.Terminal())
	})

	t.Run("explicit keyword replaces the method name at the same depth", func(t *testing.T) {
		g := model.NewGraph("bdd", "AutomationDsl", nil)
		m := New(g)
		_, err := m.Run(Start(g.Root),
			Method("InjectOrder"),
			Keyword("injects", nil, 0), Parameter(param("order", "string")),
			Keyword("into", nil, 0), Parameter(param("destination", "string")),
			Bind(call("InjectOrder", 2)),
		)
		require.NoError(t, err)
		assert.Equal(t, []string{"InjectsString"}, methodsOf(g, g.Root))
		injects := child(t, g, g.Root, "InjectsString")
		assert.False(t, injects.Terminal())
		into := child(t, g, injects.Type().Node, "IntoString")
		assert.Equal(t, "InjectOrder", into.Binding.Target)
	})

	t.Run("parameterless method binds its own name", func(t *testing.T) {
		g := model.NewGraph("bdd", "AutomationDsl", nil)
		m := New(g)
		_, err := m.Run(Start(g.Root), Method("EmptyMethod"), Bind(call("EmptyMethod", 0)))
		require.NoError(t, err)
		assert.True(t, child(t, g, g.Root, "EmptyMethod").Terminal())
	})

	t.Run("states are values", func(t *testing.T) {
		g := model.NewGraph("bdd", "AutomationDsl", nil)
		m := New(g)
		prefix, err := m.Run(Start(g.Root), Keyword("with", nil, 0))
		require.NoError(t, err)

		a, err := m.Run(prefix, Method("A"), Parameter(param("x", "int")))
		require.NoError(t, err)
		b, err := m.Run(prefix, Method("B"), Parameter(param("y", "string")))
		require.NoError(t, err)

		assert.Equal(t, StateKeyword, prefix.kind)
		assert.Empty(t, prefix.params)
		assert.Len(t, a.params, 1)
		assert.Equal(t, "y", b.params[0].Name)
		assert.Equal(t, []string{"With"}, methodsOf(g, g.Root), "prefix keyword committed once")
	})

	t.Run("zero parameter keywords chain", func(t *testing.T) {
		g := model.NewGraph("bdd", "AutomationDsl", nil)
		m := New(g)
		_, err := m.Run(Start(g.Root), Keyword("with", nil, 0), Method("Run"), Keyword("now", nil, 0), Bind(call("Run", 0)))
		require.NoError(t, err)
		with := child(t, g, g.Root, "With")
		now := child(t, g, with.Type().Node, "Now")
		assert.True(t, now.Terminal())
	})

	t.Run("constants are singleton parameters", func(t *testing.T) {
		g := model.NewGraph("bdd", "AutomationDsl", nil)
		m := New(g)
		_, err := m.Run(Start(g.Root), Method("Verify"), Keyword("mustSee", nil, 0), Constant("order"), Parameter(param("id", "string")), Bind(call("Verify", 1)))
		require.NoError(t, err)
		_, err = m.Run(Start(g.Root), Method("Check"), Keyword("check", nil, 0), Constant("order"), Bind(call("Check", 0)))
		require.NoError(t, err)

		assert.Equal(t, []string{"order"}, g.Type(g.Root).Constants)
		v := child(t, g, g.Root, "MustSeeOrderString")
		assert.True(t, v.Params[0].IsConstant())
	})

	t.Run("parametrized keyword consumes following keywords as constants", func(t *testing.T) {
		g := model.NewGraph("bdd", "AutomationDsl", nil)
		m := New(g)
		_, err := m.Run(Start(g.Root),
			Method("Place"),
			Keyword("place", nil, 2), Keyword("order", nil, 0), Parameter(param("id", "string")),
			Keyword("at", nil, 0), Parameter(param("price", "float64")),
			Bind(call("Place", 2)),
		)
		require.NoError(t, err)
		place := child(t, g, g.Root, "PlaceOrderString")
		require.Len(t, place.Params, 2)
		assert.Equal(t, "order", place.Params[0].Constant)
		at := child(t, g, place.Type().Node, "AtFloat64")
		assert.True(t, at.Terminal())
	})

	t.Run("arity shortfall fails", func(t *testing.T) {
		g := model.NewGraph("bdd", "AutomationDsl", nil)
		m := New(g)
		_, err := m.Run(Start(g.Root), Method("Place"), Keyword("place", nil, 2), Parameter(param("id", "string")), Bind(call("Place", 1)))
		assert.ErrorIs(t, err, model.ErrArity)

		prefix, err := m.Run(Start(g.Root), Keyword("with", nil, 1))
		require.NoError(t, err)
		_, err = m.Step(prefix, Method("Run"))
		assert.ErrorIs(t, err, model.ErrArity)
	})

	t.Run("binding arity must match forwarded parameters", func(t *testing.T) {
		g := model.NewGraph("bdd", "AutomationDsl", nil)
		m := New(g)
		_, err := m.Run(Start(g.Root), Method("Run"), Parameter(param("a", "int")), Bind(call("Run", 2)))
		assert.ErrorIs(t, err, model.ErrArity)
	})

	t.Run("shared keywords dedup by parameter types", func(t *testing.T) {
		g := model.NewGraph("bdd", "AutomationDsl", nil)
		m := New(g)
		_, err := m.Run(Start(g.Root), Method("VerifyOrder"),
			Keyword("mustSee", nil, 0), Parameter(param("order", "string")),
			Keyword("in", nil, 0), Parameter(param("destination", "string")),
			Bind(call("VerifyOrder", 2)))
		require.NoError(t, err)
		_, err = m.Run(Start(g.Root), Method("VerifyMessage"),
			Keyword("mustSee", nil, 0), Parameter(param("message", "string")),
			Keyword("within", nil, 0), Parameter(param("seconds", "int")),
			Bind(call("VerifyMessage", 2)))
		require.NoError(t, err)
		_, err = m.Run(Start(g.Root), Method("VerifyTime"),
			Keyword("mustSee", nil, 0), Parameter(param("value", "int64")), Parameter(param("unit", "time.Duration")),
			Bind(call("VerifyTime", 2)))
		require.NoError(t, err)

		assert.Equal(t, []string{"MustSeeString", "MustSeeInt64Duration"}, methodsOf(g, g.Root))
		shared := child(t, g, g.Root, "MustSeeString")
		assert.Equal(t, []string{"InString", "WithinInt"}, methodsOf(g, shared.Type().Node))
	})

	t.Run("aliases are kept on the method", func(t *testing.T) {
		g := model.NewGraph("bdd", "AutomationDsl", nil)
		m := New(g)
		_, err := m.Run(Start(g.Root), Method("Do"), Keyword("when", []string{"Given", "and"}, 0), Parameter(param("x", "int")), Bind(call("Do", 1)))
		require.NoError(t, err)
		assert.Equal(t, []string{"Given", "and"}, child(t, g, g.Root, "WhenInt").Aliases)
	})
}
