package collect_test

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rlch/pyhints"
	"github.com/rlch/pyhints/collect"
	"github.com/rlch/pyhints/pyhintstest"
)

type source struct {
	sites []*pyhints.Site
	calls []*pyhints.Expr
}

func (s source) Sites() []*pyhints.Site { return s.sites }
func (s source) Calls() []*pyhints.Expr { return s.calls }

type rendered struct {
	Kind   pyhints.HintKind
	Label  string
	Offset int
}

func summarize(hints []pyhints.Hint) []rendered {
	out := make([]rendered, len(hints))
	for i, h := range hints {
		out[i] = rendered{Kind: h.Kind, Label: h.Label(false), Offset: h.Offset}
	}

	return out
}

func TestAll(t *testing.T) {
	t.Parallel()

	oracle := pyhintstest.NewOracle()

	getInt := pyhintstest.Call(pyhintstest.Ref("get_int"))
	x := pyhintstest.Variable("x", getInt)
	x.HintOffset = 1
	oracle.Sites[x] = pyhintstest.Builtin("int")

	y := pyhintstest.Variable("y", pyhintstest.Lit(pyhints.LiteralInt, "1"))
	y.HintOffset = 20
	oracle.Sites[y] = pyhintstest.Builtin("int")

	fn := &pyhints.Site{Kind: pyhints.SiteFunction, Name: "get_int", HintOffset: 40}
	oracle.Sites[fn] = pyhintstest.Builtin("int")

	arg1 := pyhintstest.Lit(pyhints.LiteralInt, "1")
	arg1.Offset = 30
	arg2 := pyhintstest.Lit(pyhints.LiteralInt, "2")
	arg2.Offset = 33
	add := pyhintstest.Call(pyhintstest.Ref("add"), arg1, arg2)
	oracle.Callees[add] = []*pyhints.Definition{
		pyhintstest.Function("add", pyhintstest.P("left"), pyhintstest.P("right")),
	}

	c := collect.New(oracle, pyhints.DefaultSettings(), nil)
	got := summarize(c.All(source{sites: []*pyhints.Site{fn, y, x}, calls: []*pyhints.Expr{add}}))

	want := []rendered{
		{Kind: pyhints.HintVariableType, Label: ": int", Offset: 1},
		{Kind: pyhints.HintParameter, Label: "left:", Offset: 30},
		{Kind: pyhints.HintParameter, Label: "right:", Offset: 33},
		{Kind: pyhints.HintReturnType, Label: "-> int", Offset: 40},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("All() mismatch (-want +got):\n%s", diff)
	}
}

func TestSettingsDisableHints(t *testing.T) {
	t.Parallel()

	oracle := pyhintstest.NewOracle()

	x := pyhintstest.Variable("x", pyhintstest.Call(pyhintstest.Ref("f")))
	oracle.Sites[x] = pyhintstest.Builtin("int")

	fn := &pyhints.Site{Kind: pyhints.SiteFunction, Name: "f"}
	oracle.Sites[fn] = pyhintstest.Builtin("int")

	settings := pyhints.DefaultSettings()
	settings.ShowGeneralVariableTypeHints = false
	settings.ShowFunctionReturnTypeHints = false

	c := collect.New(oracle, settings, nil)
	assert.Empty(t, c.All(source{sites: []*pyhints.Site{x, fn}}))
}

// panicking panics on every type lookup.
type panicking struct {
	*pyhintstest.Oracle
}

func (panicking) TypeOf(*pyhints.Site) (pyhints.Type, error) { //nolint:ireturn
	panic("index corrupted")
}

func TestPanicsAreContained(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	oracle := panicking{pyhintstest.NewOracle()}

	c := collect.New(oracle, pyhints.DefaultSettings(), zap.New(core))

	sites := []*pyhints.Site{pyhintstest.Variable("x", nil), pyhintstest.Variable("y", nil)}

	var hints []pyhints.Hint

	require.NotPanics(t, func() {
		hints = c.Variables(sites)
	})
	assert.Empty(t, hints)
	assert.Equal(t, 2, logs.FilterMessage("Skipping element").Len())
	assert.Equal(t, zapcore.WarnLevel, logs.All()[0].Level)
}

func TestOracleErrorsSkipElement(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	oracle := pyhintstest.NewOracle()
	oracle.Err = fmt.Errorf("%w: document changed", pyhints.ErrStale)

	c := collect.New(oracle, pyhints.DefaultSettings(), zap.New(core))
	assert.Empty(t, c.Variables([]*pyhints.Site{pyhintstest.Variable("x", nil)}))

	entries := logs.FilterMessage("Skipping element").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
}

func TestSuppressedHintsAreLogged(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	oracle := pyhintstest.NewOracle()

	x := pyhintstest.Variable("x", pyhintstest.Lit(pyhints.LiteralInt, "1"))
	oracle.Sites[x] = pyhintstest.Builtin("int")

	c := collect.New(oracle, pyhints.DefaultSettings(), zap.New(core))
	assert.Empty(t, c.Variables([]*pyhints.Site{x}))

	entries := logs.FilterMessage("Hint suppressed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "empty-literal", entries[0].ContextMap()["rule"])
}

func TestFromConfig(t *testing.T) {
	t.Parallel()

	cfg, err := pyhints.ParseConfig([]byte(`
hints:
  types:
    returns: false
suppress:
  - when: Name == "ignored"
`))
	require.NoError(t, err)

	oracle := pyhintstest.NewOracle()
	c, err := collect.FromConfig(cfg, oracle, "main.py", nil)
	require.NoError(t, err)

	ignored := pyhintstest.Variable("ignored", pyhintstest.Call(pyhintstest.Ref("f")))
	kept := pyhintstest.Variable("kept", pyhintstest.Call(pyhintstest.Ref("f")))
	oracle.Sites[ignored] = pyhintstest.Builtin("int")
	oracle.Sites[kept] = pyhintstest.Builtin("int")

	fn := &pyhints.Site{Kind: pyhints.SiteFunction, Name: "f"}
	oracle.Sites[fn] = pyhintstest.Builtin("int")

	hints := c.All(source{sites: []*pyhints.Site{ignored, kept, fn}})
	require.Len(t, hints, 1)
	assert.Equal(t, ": int", hints[0].Label(false))
}
