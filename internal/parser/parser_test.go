package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calumari/fluentgen/internal/host"
	"github.com/calumari/fluentgen/internal/model"
)

func newPackage(t *testing.T, define func(c *host.Catalog)) *host.Package {
	t.Helper()
	pkg := &host.Package{Name: "bdd", Catalog: host.NewCatalog()}
	if define != nil {
		define(pkg.Catalog)
	}
	return pkg
}

func declare(t *testing.T, kind host.Kind, name string, methods ...host.Method) *host.Declaration {
	t.Helper()
	cfg, err := host.DecodeConfig(kind, name, nil)
	require.NoError(t, err)
	return &host.Declaration{Kind: kind, Name: name, Receiver: name, Config: cfg, Methods: methods}
}

func param(name, typ string, annotations ...string) host.Parameter {
	return host.Parameter{Name: name, Type: typ, Annotations: host.Annotations(annotations...)}
}

func method(name string, params ...host.Parameter) host.Method {
	return host.Method{Name: name, Target: name, Params: params}
}

func keys(g *model.Graph, id model.TypeID) []string {
	var out []string
	for _, m := range g.Type(id).MethodNodes() {
		out = append(out, m.Key)
	}
	return out
}

func lookup(t *testing.T, g *model.Graph, id model.TypeID, key string) *model.MethodNode {
	t.Helper()
	m, ok := g.Type(id).Lookup(key)
	require.True(t, ok, "missing %s, have %v", key, keys(g, id))
	return m
}

func TestParseDSL(t *testing.T) {
	t.Run("annotated parameters form a chain bound to the host method", func(t *testing.T) {
		pkg := newPackage(t, nil)
		decl := declare(t, host.KindDSL, "Automation",
			method("VerifyOrder",
				param("orderID", "string", "mustSeeOrderWith"),
				param("orderCheck", "Check[string]", "and"),
			),
		)

		res, err := New().Parse(pkg, decl)
		require.NoError(t, err)
		require.Empty(t, res.Diagnostics)

		g := res.Graph
		assert.Equal(t, "AutomationDsl", g.Type(g.Root).Name)
		require.NotNil(t, g.Receiver)
		assert.Equal(t, "impl", g.Receiver.Name)

		first := lookup(t, g, g.Root, "MustSeeOrderWithString")
		assert.False(t, first.Terminal())
		next := first.Type().Node

		and := lookup(t, g, next, "AndCheck")
		require.True(t, and.Terminal())
		assert.Equal(t, model.BindMethod, and.Binding.Kind)
		assert.Equal(t, "VerifyOrder", and.Binding.Target)
		assert.Equal(t, 2, and.Binding.Arity)
		assert.Equal(t, []string{"orderID", "orderCheck"}, names(g.Path(next), and.Params))
	})

	t.Run("methods without shared keywords form independent chains", func(t *testing.T) {
		pkg := newPackage(t, nil)
		decl := declare(t, host.KindDSL, "Automation",
			method("InjectOrder", param("order", "string", "injects"), param("destination", "string", "into")),
			method("VerifyOrder", param("order", "string", "mustSee"), param("destination", "string", "in")),
		)

		res, err := New().Parse(pkg, decl)
		require.NoError(t, err)
		g := res.Graph
		assert.Equal(t, []string{"InjectsString", "MustSeeString"}, keys(g, g.Root))
		into := lookup(t, g, lookup(t, g, g.Root, "InjectsString").Type().Node, "IntoString")
		assert.Equal(t, "InjectOrder", into.Binding.Target)
		in := lookup(t, g, lookup(t, g, g.Root, "MustSeeString").Type().Node, "InString")
		assert.Equal(t, "VerifyOrder", in.Binding.Target)
	})

	t.Run("shared prefixes are merged", func(t *testing.T) {
		pkg := newPackage(t, nil)
		decl := declare(t, host.KindDSL, "Automation",
			method("PlaceBuy", param("symbol", "string", "place"), param("qty", "int", "buy")),
			method("PlaceSell", param("symbol", "string", "place"), param("qty", "int", "sell")),
		)

		res, err := New().Parse(pkg, decl)
		require.NoError(t, err)
		g := res.Graph
		assert.Equal(t, []string{"PlaceString"}, keys(g, g.Root))
		assert.Equal(t, []string{"BuyInt", "SellInt"}, keys(g, lookup(t, g, g.Root, "PlaceString").Type().Node))
	})

	t.Run("keyword aliases", func(t *testing.T) {
		pkg := newPackage(t, func(c *host.Catalog) {
			c.Define("When", []string{"keyword"}, []string{"Given", "and"}, "")
		})
		decl := declare(t, host.KindDSL, "Automation", method("Buy", param("price", "float64", "when")))

		res, err := New().Parse(pkg, decl)
		require.NoError(t, err)
		when := lookup(t, res.Graph, res.Graph.Root, "WhenFloat64")
		assert.Equal(t, []string{"Given", "and"}, when.Aliases)
	})

	t.Run("declaration annotations prefix every method", func(t *testing.T) {
		pkg := newPackage(t, nil)
		decl := declare(t, host.KindDSL, "Automation",
			method("Copy", param("value", "string")),
			method("Reset"),
		)
		decl.Annotations = host.Annotations("@with")

		res, err := New().Parse(pkg, decl)
		require.NoError(t, err)
		g := res.Graph
		assert.Equal(t, []string{"With"}, keys(g, g.Root))
		with := lookup(t, g, g.Root, "With")
		assert.Equal(t, []string{"CopyString", "Reset"}, keys(g, with.Type().Node))
		assert.Equal(t, 0, lookup(t, g, with.Type().Node, "Reset").Binding.Arity)
	})

	t.Run("constants are registered once and not forwarded", func(t *testing.T) {
		pkg := newPackage(t, func(c *host.Catalog) {
			c.Define("order", []string{"constant"}, nil, "")
		})
		decl := declare(t, host.KindDSL, "Automation",
			method("InjectOrder", param("value", "string", "injects", "order")),
			method("RemoveOrder", param("value", "string", "removes", "order")),
		)

		res, err := New().Parse(pkg, decl)
		require.NoError(t, err)
		g := res.Graph
		assert.Equal(t, []string{"order"}, g.Type(g.Root).Constants)
		injects := lookup(t, g, g.Root, "InjectsOrderString")
		require.Len(t, injects.Params, 2)
		assert.True(t, injects.Params[0].IsConstant())
		assert.Equal(t, 1, injects.Binding.Arity)
	})

	t.Run("parametrized keyword consumes the following keyword as a constant", func(t *testing.T) {
		pkg := newPackage(t, func(c *host.Catalog) {
			c.Define("place", []string{"keyword"}, nil, "1")
		})
		decl := declare(t, host.KindDSL, "Automation",
			method("PlaceLimit", param("price", "float64", "place", "limit")),
		)

		res, err := New().Parse(pkg, decl)
		require.NoError(t, err)
		g := res.Graph
		m := lookup(t, g, g.Root, "PlaceLimitFloat64")
		assert.Equal(t, "limit", m.Params[0].Constant)
		assert.Equal(t, []string{"limit"}, g.Type(g.Root).Constants)
	})

	t.Run("static functions are bound as functions", func(t *testing.T) {
		pkg := newPackage(t, nil)
		gen := method("Generate", param("salt", "string", "generate"))
		gen.Static = true
		gen.Target = "Generate"
		gen.Results = []string{"int"}
		decl := declare(t, host.KindDSL, "Automation", gen)

		res, err := New().Parse(pkg, decl)
		require.NoError(t, err)
		m := lookup(t, res.Graph, res.Graph.Root, "GenerateString")
		assert.Equal(t, model.BindFunc, m.Binding.Kind)
		assert.Equal(t, "int", m.Type().Results[0].Expr)
	})

	t.Run("unnamed parameters are numbered", func(t *testing.T) {
		pkg := newPackage(t, nil)
		decl := declare(t, host.KindDSL, "Automation", method("Send", param("", "string"), param("_", "int")))

		res, err := New().Parse(pkg, decl)
		require.NoError(t, err)
		m := lookup(t, res.Graph, res.Graph.Root, "SendStringInt")
		assert.Equal(t, "p0", m.Params[0].Name)
		assert.Equal(t, "p1", m.Params[1].Name)
	})
}

func names(groups ...[]model.Param) []string {
	var out []string
	for _, ps := range groups {
		for _, p := range ps {
			out = append(out, p.Name)
		}
	}
	return out
}

func TestParseDSLDiagnostics(t *testing.T) {
	t.Run("invalid annotation is skipped", func(t *testing.T) {
		pkg := newPackage(t, func(c *host.Catalog) {
			c.Define("broken", []string{"keyword", "constant"}, nil, "")
		})
		decl := declare(t, host.KindDSL, "Automation", method("Send", param("v", "string", "broken")))

		res, err := New().Parse(pkg, decl)
		require.NoError(t, err)
		require.Len(t, res.Diagnostics, 1)
		assert.ErrorIs(t, res.Diagnostics[0], host.ErrInvalidAnnotation)
		lookup(t, res.Graph, res.Graph.Root, "SendString")
	})

	t.Run("nested parameter without a plugin keeps its type", func(t *testing.T) {
		pkg := newPackage(t, func(c *host.Catalog) {
			c.Define("dsl", []string{"nested"}, nil, "")
		})
		decl := declare(t, host.KindDSL, "Automation", method("Place", param("order", "Order", "dsl")))

		res, err := New().Parse(pkg, decl)
		require.NoError(t, err)
		require.Len(t, res.Diagnostics, 1)
		lookup(t, res.Graph, res.Graph.Root, "PlaceOrder")
		assert.Empty(t, res.Requires)
	})

	t.Run("parametrized keyword on the declaration is a plain keyword", func(t *testing.T) {
		pkg := newPackage(t, func(c *host.Catalog) {
			c.Define("When", []string{"keyword"}, nil, "1")
		})
		decl := declare(t, host.KindDSL, "Automation", method("Buy", param("price", "float64", "when")))
		decl.Annotations = host.Annotations("@when")

		res, err := New().Parse(pkg, decl)
		require.NoError(t, err)
		require.Len(t, res.Diagnostics, 1)
		assert.Contains(t, res.Diagnostics[0].Error(), "plain keyword")

		g := res.Graph
		assert.Equal(t, []string{"When"}, keys(g, g.Root))
		when := lookup(t, g, g.Root, "When")
		assert.Empty(t, when.Params)
		buy := lookup(t, g, when.Type().Node, "WhenFloat64")
		require.True(t, buy.Terminal())
		assert.Equal(t, "Buy", buy.Binding.Target)
	})
}

func TestParseDSLFailures(t *testing.T) {
	for name, c := range map[string]struct {
		define  func(c *host.Catalog)
		methods []host.Method
		want    error
	}{
		"parametrized keyword missing parameters": {
			define: func(c *host.Catalog) { c.Define("place", []string{"keyword"}, nil, "2") },
			methods: []host.Method{
				method("Place", param("price", "float64", "place")),
			},
			want: model.ErrArity,
		},
		"one key bound to two methods": {
			methods: []host.Method{
				method("Start", param("v", "string", "go")),
				method("Run", param("v", "string", "go")),
			},
			want: model.ErrBindingConflict,
		},
		"one key both terminal and not": {
			methods: []host.Method{
				method("Start", param("v", "string", "go")),
				method("Run", param("v", "string", "go"), param("n", "int", "times")),
			},
			want: model.ErrBindingConflict,
		},
		"one key with different parameter types": {
			methods: []host.Method{
				method("Start", param("v", "time.Duration", "wait"), param("n", "int", "then")),
				method("Run", param("v", "Duration", "wait"), param("n", "string", "then")),
			},
			want: model.ErrKeyCollision,
		},
	} {
		t.Run(name, func(t *testing.T) {
			pkg := newPackage(t, c.define)
			_, err := New().Parse(pkg, declare(t, host.KindDSL, "Automation", c.methods...))
			require.Error(t, err)
			assert.ErrorIs(t, err, c.want)
			assert.Contains(t, err.Error(), "Automation")
		})
	}
}

func order(t *testing.T, ctors []host.Method, fields ...host.Field) *host.Declaration {
	t.Helper()
	decl := declare(t, host.KindBuilder, "Order", ctors...)
	decl.Fields = fields
	return decl
}

func ctor(name, result string, params ...host.Parameter) host.Method {
	return host.Method{Name: name, Target: name, Static: true, Params: params, Results: []string{result}}
}

func TestParseBuilder(t *testing.T) {
	t.Run("constructor chain ends in the builder", func(t *testing.T) {
		decl := order(t,
			[]host.Method{ctor("NewOrder", "*Order", param("id", "string"), param("qty", "int"))},
			host.Field{Name: "Price", Type: "float64"},
			host.Field{Name: "Side", Type: "string"},
		)
		res, err := New().Parse(newPackage(t, nil), decl)
		require.NoError(t, err)

		g := res.Graph
		assert.Nil(t, g.Receiver)
		root := g.Type(g.Root)
		assert.Equal(t, "OrderWith", root.Name)
		require.Len(t, root.Nested, 1)
		builder := g.Type(root.Nested[0])
		assert.Equal(t, "Builder", builder.Name)
		assert.Equal(t, "object", builder.State[0].Name)

		id := lookup(t, g, g.Root, "IdString")
		qty := lookup(t, g, id.Type().Node, "QtyInt")
		require.True(t, qty.Terminal())
		assert.Equal(t, model.BindFunc, qty.Binding.Kind)
		assert.Equal(t, builder.ID, qty.Binding.Into)
		assert.True(t, qty.Binding.Deref)
		assert.Equal(t, builder.ID, qty.Type().Node)

		assert.Equal(t, []string{"PriceFloat64", "SideString", "Build"}, keys(g, builder.ID))
		price := lookup(t, g, builder.ID, "PriceFloat64")
		assert.Equal(t, model.BindField, price.Binding.Kind)
		assert.Equal(t, "price", price.Params[0].Name)
		assert.Equal(t, builder.ID, price.Type().Node)
		build := lookup(t, g, builder.ID, "Build")
		assert.Equal(t, "Order", build.Type().Results[0].Expr)
	})

	t.Run("single constructor without fields returns its value", func(t *testing.T) {
		decl := order(t, []host.Method{ctor("NewOrder", "Order", param("id", "string"))})
		res, err := New().Parse(newPackage(t, nil), decl)
		require.NoError(t, err)

		g := res.Graph
		assert.Empty(t, g.Type(g.Root).Nested)
		id := lookup(t, g, g.Root, "IdString")
		assert.Equal(t, model.NoType, id.Binding.Into)
		assert.Equal(t, "Order", id.Type().Results[0].Expr)
	})

	t.Run("fields without constructors make the root the builder", func(t *testing.T) {
		decl := order(t, nil, host.Field{Name: "ID", Type: "string"})
		res, err := New().Parse(newPackage(t, nil), decl)
		require.NoError(t, err)

		g := res.Graph
		assert.Equal(t, []string{"IDString", "Build"}, keys(g, g.Root))
		assert.Equal(t, "id", lookup(t, g, g.Root, "IDString").Params[0].Name)
		assert.Len(t, g.Type(g.Root).State, 1)
	})

	t.Run("unusable constructors are diagnosed", func(t *testing.T) {
		decl := order(t,
			[]host.Method{ctor("NewEmpty", "Order"), ctor("NewOther", "Trade", param("id", "string"))},
			host.Field{Name: "Price", Type: "float64"},
		)
		res, err := New().Parse(newPackage(t, nil), decl)
		require.NoError(t, err)
		assert.Len(t, res.Diagnostics, 2)
		assert.Equal(t, []string{"PriceFloat64", "Build"}, keys(res.Graph, res.Graph.Root))
	})

	t.Run("nothing to build", func(t *testing.T) {
		_, err := New().Parse(newPackage(t, nil), order(t, nil))
		assert.ErrorIs(t, err, model.ErrUnsupported)
	})

	t.Run("type parameters are unsupported", func(t *testing.T) {
		decl := order(t, nil, host.Field{Name: "Price", Type: "T"})
		decl.TypeParams = []model.TypeParam{{Name: "T", Constraint: "any"}}
		_, err := New().Parse(newPackage(t, nil), decl)
		assert.ErrorIs(t, err, model.ErrUnsupported)
	})
}

func TestBuilderPlugin(t *testing.T) {
	newOrderPackage := func(t *testing.T) (*host.Package, *host.Declaration) {
		pkg := newPackage(t, func(c *host.Catalog) {
			c.Define("dsl", []string{"nested"}, nil, "")
		})
		decl := order(t, nil, host.Field{Name: "Price", Type: "float64"})
		pkg.DefineStruct("Order", func() (*host.Declaration, error) { return decl, nil })
		return pkg, decl
	}

	t.Run("struct parameter becomes a builder function", func(t *testing.T) {
		pkg, orderDecl := newOrderPackage(t)
		decl := declare(t, host.KindDSL, "Automation",
			method("Place", param("order", "Order", "dsl")),
			method("Amend", param("order", "Order", "dsl")),
		)

		res, err := New(BuilderPlugin{}).Parse(pkg, decl)
		require.NoError(t, err)
		require.Empty(t, res.Diagnostics)

		m := lookup(t, res.Graph, res.Graph.Root, "PlaceOrderWith")
		p := m.Params[0]
		assert.Equal(t, "func(OrderWith) Order", p.Type.Expr)
		assert.Equal(t, "NewOrderWith", p.Apply)
		assert.Equal(t, []*host.Declaration{orderDecl}, res.Requires)
	})

	t.Run("other types are left to the next plugin", func(t *testing.T) {
		pkg, _ := newOrderPackage(t)
		for _, typ := range []string{"*Order", "Trade", "[]Order"} {
			sub, requires, ok, err := BuilderPlugin{}.Substitute(pkg, model.Param{Name: "o", Type: model.Type(typ)})
			require.NoError(t, err, typ)
			assert.False(t, ok, typ)
			assert.Nil(t, requires, typ)
			assert.Equal(t, typ, sub.Type.Expr)
		}
	})
}
