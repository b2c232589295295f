package params_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rlch/pyhints"
	"github.com/rlch/pyhints/params"
	"github.com/rlch/pyhints/pyhintstest"
)

// call builds a call with arguments at offsets 10, 20, 30, ...
func call(callee string, args ...*pyhints.Expr) *pyhints.Expr {
	for i, a := range args {
		a.Offset = 10 * (i + 1)
	}

	return pyhintstest.Call(pyhintstest.Ref(callee), args...)
}

func labels(hints []pyhints.Hint) []string {
	out := make([]string, len(hints))
	for i, h := range hints {
		out[i] = h.Label(false)
	}

	return out
}

func resolve(t *testing.T, oracle *pyhintstest.Oracle, settings pyhints.Settings, c *pyhints.Expr, def *pyhints.Definition) []string {
	t.Helper()

	if def != nil {
		oracle.Callees[c] = []*pyhints.Definition{def}
	}

	hints, err := params.New(oracle, settings).Hints(c)
	require.NoError(t, err)

	return labels(hints)
}

func TestHints(t *testing.T) {
	t.Parallel()

	varargs := pyhints.Param{Name: "args", Kind: pyhints.ParamVarPositional}
	kwargs := pyhints.Param{Name: "kwargs", Kind: pyhints.ParamVarKeyword}

	tests := []struct {
		name string
		call *pyhints.Expr
		def  *pyhints.Definition
		want []string
	}{
		{
			name: "positional",
			call: call("f", pyhintstest.Lit(pyhints.LiteralInt, "1"), pyhintstest.Lit(pyhints.LiteralInt, "2")),
			def:  pyhintstest.Function("f", pyhintstest.P("first"), pyhintstest.P("second")),
			want: []string{"first:", "second:"},
		},
		{
			name: "argument named like parameter",
			call: call("f", pyhintstest.Ref("first"), pyhintstest.Lit(pyhints.LiteralInt, "2")),
			def:  pyhintstest.Function("f", pyhintstest.P("first"), pyhintstest.P("second")),
			want: []string{"second:"},
		},
		{
			name: "case-insensitive match",
			call: call("f", pyhintstest.Ref("First"), pyhintstest.Ref("other")),
			def:  pyhintstest.Function("f", pyhintstest.P("first"), pyhintstest.P("second")),
			want: []string{"second:"},
		},
		{
			name: "overlap hidden",
			call: call("f", pyhintstest.Ref("user_name"), pyhintstest.Ref("x")),
			def:  pyhintstest.Function("f", pyhintstest.P("name"), pyhintstest.P("value")),
			want: []string{"value:"},
		},
		{
			name: "short and dunder names",
			call: call("f", pyhintstest.Ref("a"), pyhintstest.Ref("b"), pyhintstest.Ref("c")),
			def:  pyhintstest.Function("f", pyhintstest.P("x"), pyhintstest.P("__secret"), pyhintstest.P("third")),
			want: []string{"third:"},
		},
		{
			name: "single parameter",
			call: call("f", pyhintstest.Lit(pyhints.LiteralInt, "1")),
			def:  pyhintstest.Function("f", pyhintstest.P("value")),
			want: []string{},
		},
		{
			name: "single variadic parameter",
			call: call("f", pyhintstest.Lit(pyhints.LiteralInt, "1"), pyhintstest.Lit(pyhints.LiteralInt, "2")),
			def:  pyhintstest.Function("f", varargs),
			want: []string{"...args:"},
		},
		{
			name: "variadic stops pairing",
			call: call("f", pyhintstest.Ref("a1"), pyhintstest.Ref("a2"), pyhintstest.Ref("a3")),
			def:  pyhintstest.Function("f", pyhintstest.P("head"), varargs, pyhintstest.P("tail")),
			want: []string{"head:", "...args:"},
		},
		{
			name: "kwargs stops pairing",
			call: call("f", pyhintstest.Ref("a1"), pyhintstest.Ref("a2")),
			def:  pyhintstest.Function("f", pyhintstest.P("head"), kwargs),
			want: []string{"head:"},
		},
		{
			name: "keyword argument stops pairing",
			call: call("f",
				pyhintstest.Lit(pyhints.LiteralInt, "1"),
				&pyhints.Expr{Kind: pyhints.ExprKeywordArg, Name: "second"},
				pyhintstest.Lit(pyhints.LiteralInt, "3"),
			),
			def:  pyhintstest.Function("f", pyhintstest.P("first"), pyhintstest.P("second"), pyhintstest.P("third")),
			want: []string{"first:"},
		},
		{
			name: "self and markers skipped",
			call: call("obj.method", pyhintstest.Lit(pyhints.LiteralInt, "1"), pyhintstest.Lit(pyhints.LiteralInt, "2")),
			def: pyhintstest.Function("method",
				pyhints.Param{Name: "self", Self: true},
				pyhintstest.P("left"),
				pyhints.Param{Kind: pyhints.ParamSlash},
				pyhintstest.P("right"),
			),
			want: []string{"left:", "right:"},
		},
		{
			name: "subscription key",
			call: call("f",
				&pyhints.Expr{
					Kind:     pyhints.ExprSubscript,
					Operand:  pyhintstest.Ref("d"),
					Elements: []*pyhints.Expr{{Kind: pyhints.ExprLiteral, Literal: pyhints.LiteralString, Name: "name"}},
				},
				pyhintstest.Ref("x"),
			),
			def:  pyhintstest.Function("f", pyhintstest.P("name"), pyhintstest.P("age")),
			want: []string{"age:"},
		},
		{
			name: "builtin callee",
			call: call("max", pyhintstest.Ref("a"), pyhintstest.Ref("b")),
			def: &pyhints.Definition{
				Kind: pyhints.DefFunction, Name: "max", File: "builtins.pyi",
				Params: []pyhints.Param{pyhintstest.P("arg1"), pyhintstest.P("arg2")},
			},
			want: []string{},
		},
		{
			name: "unresolved callee",
			call: call("unknown", pyhintstest.Ref("a"), pyhintstest.Ref("b")),
			want: []string{},
		},
		{
			name: "no arguments",
			call: call("f"),
			def:  pyhintstest.Function("f", pyhintstest.P("first"), pyhintstest.P("second")),
			want: []string{},
		},
		{
			name: "single unpacking argument",
			call: call("f", &pyhints.Expr{Kind: pyhints.ExprStarArg, Operator: "*", Operand: pyhintstest.Ref("xs")}),
			def:  pyhintstest.Function("f", pyhintstest.P("first"), pyhintstest.P("second")),
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := resolve(t, pyhintstest.NewOracle(), pyhints.DefaultSettings(), tt.call, tt.def)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Hints() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestHintOffsets(t *testing.T) {
	t.Parallel()

	oracle := pyhintstest.NewOracle()
	c := call("f", pyhintstest.Lit(pyhints.LiteralInt, "1"), pyhintstest.Lit(pyhints.LiteralInt, "2"))
	oracle.Callees[c] = []*pyhints.Definition{pyhintstest.Function("f", pyhintstest.P("first"), pyhintstest.P("second"))}

	hints, err := params.New(oracle, pyhints.DefaultSettings()).Hints(c)
	require.NoError(t, err)
	require.Len(t, hints, 2)

	assert.Equal(t, 10, hints[0].Offset)
	assert.Equal(t, 20, hints[1].Offset)
	assert.True(t, hints[0].Before)
	assert.Equal(t, pyhints.HintParameter, hints[0].Kind)
}

func TestClassConstructors(t *testing.T) {
	t.Parallel()

	args := func() *pyhints.Expr {
		return call("A", pyhintstest.Lit(pyhints.LiteralInt, "1"), pyhintstest.Lit(pyhints.LiteralInt, "2"))
	}

	t.Run("own initializer", func(t *testing.T) {
		t.Parallel()

		class := pyhintstest.UserClass("A")
		class.Initializer = pyhintstest.Function("__init__", pyhints.Param{Name: "self", Self: true}, pyhintstest.P("width"), pyhintstest.P("height"))
		class.Initializer.Owner = class
		class.Attributes = []pyhints.Param{pyhintstest.P("ignored"), pyhintstest.P("fields")}

		got := resolve(t, pyhintstest.NewOracle(), pyhints.DefaultSettings(), args(), class)
		assert.Equal(t, []string{"width:", "height:"}, got)
	})

	t.Run("dataclass attributes", func(t *testing.T) {
		t.Parallel()

		class := pyhintstest.UserClass("A")
		class.Attributes = []pyhints.Param{pyhintstest.P("name"), pyhintstest.P("age")}

		got := resolve(t, pyhintstest.NewOracle(), pyhints.DefaultSettings(), args(), class)
		assert.Equal(t, []string{"name:", "age:"}, got)
	})

	t.Run("inherited empty initializer", func(t *testing.T) {
		t.Parallel()

		base := pyhintstest.UserClass("Base")
		class := pyhintstest.UserClass("A")
		class.Initializer = pyhintstest.Function("__init__", pyhints.Param{Name: "self", Self: true})
		class.Initializer.Owner = base
		class.Attributes = []pyhints.Param{pyhintstest.P("name"), pyhintstest.P("age")}

		got := resolve(t, pyhintstest.NewOracle(), pyhints.DefaultSettings(), args(), class)
		assert.Equal(t, []string{"name:", "age:"}, got)
	})

	t.Run("inherited initializer", func(t *testing.T) {
		t.Parallel()

		base := pyhintstest.UserClass("Base")
		class := pyhintstest.UserClass("A")
		class.Initializer = pyhintstest.Function("__init__", pyhints.Param{Name: "self", Self: true}, pyhintstest.P("left"), pyhintstest.P("right"))
		class.Initializer.Owner = base
		class.Attributes = []pyhints.Param{pyhintstest.P("name"), pyhintstest.P("age")}

		got := resolve(t, pyhintstest.NewOracle(), pyhints.DefaultSettings(), args(), class)
		assert.Equal(t, []string{"left:", "right:"}, got)
	})

	t.Run("inherited empty initializer falls back to call operator", func(t *testing.T) {
		t.Parallel()

		base := pyhintstest.UserClass("Base")
		class := pyhintstest.UserClass("A")
		class.Initializer = pyhintstest.Function("__init__", pyhints.Param{Name: "self", Self: true})
		class.Initializer.Owner = base
		class.CallOperator = pyhintstest.Function("__call__", pyhints.Param{Name: "self", Self: true}, pyhintstest.P("left"), pyhintstest.P("right"))

		got := resolve(t, pyhintstest.NewOracle(), pyhints.DefaultSettings(), args(), class)
		assert.Equal(t, []string{"left:", "right:"}, got)
	})

	t.Run("call operator", func(t *testing.T) {
		t.Parallel()

		class := pyhintstest.UserClass("A")
		class.CallOperator = pyhintstest.Function("__call__", pyhints.Param{Name: "self", Self: true}, pyhintstest.P("left"), pyhintstest.P("right"))

		got := resolve(t, pyhintstest.NewOracle(), pyhints.DefaultSettings(), args(), class)
		assert.Equal(t, []string{"left:", "right:"}, got)
	})

	t.Run("disabled", func(t *testing.T) {
		t.Parallel()

		class := pyhintstest.UserClass("A")
		class.Attributes = []pyhints.Param{pyhintstest.P("name"), pyhintstest.P("age")}

		settings := pyhints.DefaultSettings()
		settings.ShowClassConstructorHints = false

		assert.Empty(t, resolve(t, pyhintstest.NewOracle(), settings, args(), class))
	})
}

func TestLambdas(t *testing.T) {
	t.Parallel()

	lambda := &pyhints.Definition{Kind: pyhints.DefLambda, Params: []pyhints.Param{pyhintstest.P("left"), pyhintstest.P("right")}}
	target := &pyhints.Definition{Kind: pyhints.DefTarget, Name: "add", Lambda: lambda}

	c := call("add", pyhintstest.Lit(pyhints.LiteralInt, "1"), pyhintstest.Lit(pyhints.LiteralInt, "2"))
	assert.Equal(t, []string{"left:", "right:"}, resolve(t, pyhintstest.NewOracle(), pyhints.DefaultSettings(), c, target))

	settings := pyhints.DefaultSettings()
	settings.ShowLambdaHints = false
	c = call("add", pyhintstest.Lit(pyhints.LiteralInt, "1"), pyhintstest.Lit(pyhints.LiteralInt, "2"))
	assert.Empty(t, resolve(t, pyhintstest.NewOracle(), settings, c, target))
}

func TestDecoratorCalls(t *testing.T) {
	t.Parallel()

	c := call("route", pyhintstest.Lit(pyhints.LiteralString, `"/"`), pyhintstest.Lit(pyhints.LiteralString, `"GET"`))
	c.Decorator = true

	assert.Empty(t, resolve(t, pyhintstest.NewOracle(), pyhints.DefaultSettings(), c, pyhintstest.Function("route", pyhintstest.P("path"), pyhintstest.P("method"))))
}

func TestOverlapSetting(t *testing.T) {
	t.Parallel()

	settings := pyhints.DefaultSettings()
	settings.HideOverlappingParameterNames = false

	c := call("f", pyhintstest.Ref("user_name"), pyhintstest.Ref("x"))
	got := resolve(t, pyhintstest.NewOracle(), settings, c, pyhintstest.Function("f", pyhintstest.P("name"), pyhintstest.P("value")))
	assert.Equal(t, []string{"name:", "value:"}, got)
}

func TestSignature(t *testing.T) {
	t.Parallel()

	oracle := pyhintstest.NewOracle()
	c := call("greet", pyhintstest.Lit(pyhints.LiteralString, "'bob'"))
	oracle.Callees[c] = []*pyhints.Definition{pyhintstest.Function("greet", pyhintstest.P("name"))}

	settings := pyhints.DefaultSettings()
	settings.ShowFunctionCallHints = false

	def, got, err := params.New(oracle, settings).Signature(c)
	require.NoError(t, err)
	require.NotNil(t, def)
	assert.Equal(t, "greet", def.Name)
	assert.Equal(t, []pyhints.Param{pyhintstest.P("name")}, got)

	class := pyhintstest.UserClass("A")
	class.Initializer = pyhintstest.Function("__init__", pyhints.Param{Name: "self", Self: true}, pyhintstest.P("width"))
	class.Initializer.Owner = class

	c = call("A")
	oracle.Callees[c] = []*pyhints.Definition{class}

	_, got, err = params.New(oracle, settings).Signature(c)
	require.NoError(t, err)
	assert.Equal(t, []pyhints.Param{pyhintstest.P("width")}, got)
}
