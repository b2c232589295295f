package suppress_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rlch/pyhints"
	"github.com/rlch/pyhints/pyhintstest"
	"github.com/rlch/pyhints/suppress"
)

func TestCompileRule(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		when string
		site *pyhints.Site
		typ  pyhints.Type
		want bool
	}{
		{
			name: "name prefix",
			when: `Name startsWith "tmp_"`,
			site: pyhintstest.Variable("tmp_x", pyhintstest.Ref("y")),
			typ:  pyhintstest.Builtin("int"),
			want: true,
		},
		{
			name: "type match",
			when: `Type matches "^Mock"`,
			site: pyhintstest.Variable("m", pyhintstest.Call(pyhintstest.Ref("MagicMock"))),
			typ:  pyhintstest.Class("MockObject"),
			want: true,
		},
		{
			name: "value kind",
			when: `ValueKind == "call" && Scope == "module"`,
			site: pyhintstest.Variable("x", pyhintstest.Ref("y")),
			typ:  pyhintstest.Builtin("int"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rule, err := suppress.CompileRule(pyhints.RuleConfig{When: tt.when}, 0)
			require.NoError(t, err)
			assert.Equal(t, "user-rule-1", rule.Name)

			oracle := pyhintstest.NewOracle()
			chain := &suppress.Chain{Oracle: oracle, Variables: []*suppress.Rule{rule}}

			suppressed, err := chain.ResolveType(tt.site, tt.typ)
			require.NoError(t, err)
			assert.Equal(t, tt.want, suppressed)
		})
	}
}

func TestCompileRuleErrors(t *testing.T) {
	t.Parallel()

	_, err := suppress.CompileRule(pyhints.RuleConfig{Name: "blank", When: "  "}, 0)
	require.ErrorIs(t, err, suppress.ErrEmptyRule)

	_, err = suppress.CompileRule(pyhints.RuleConfig{When: `Nmae == "x"`}, 0)
	require.Error(t, err)

	_, err = suppress.CompileRule(pyhints.RuleConfig{When: `Name`}, 0)
	require.Error(t, err)
}

func TestFromConfig(t *testing.T) {
	t.Parallel()

	cfg, err := pyhints.ParseConfig([]byte(`
suppress:
  - name: no-loop-vars
    when: Scope == "loop"
`))
	require.NoError(t, err)

	oracle := pyhintstest.NewOracle()
	chain, err := suppress.FromConfig(cfg, oracle, "main.py")
	require.NoError(t, err)

	site := pyhintstest.Variable("i", nil)
	site.Scope = pyhints.ScopeLoop
	oracle.Sites[site] = pyhintstest.Builtin("int")

	rule, err := chain.Explain(site)
	require.NoError(t, err)
	assert.Equal(t, "no-loop-vars", rule)
}

func TestConfiguredRulesReachFunctions(t *testing.T) {
	t.Parallel()

	cfg, err := pyhints.ParseConfig([]byte(`
suppress:
  - name: private-returns
    when: Function && Name startsWith "_"
`))
	require.NoError(t, err)

	oracle := pyhintstest.NewOracle()
	chain, err := suppress.FromConfig(cfg, oracle, "main.py")
	require.NoError(t, err)

	private := &pyhints.Site{Kind: pyhints.SiteFunction, Name: "_helper"}
	oracle.Sites[private] = pyhintstest.Builtin("int")

	rule, err := chain.Explain(private)
	require.NoError(t, err)
	assert.Equal(t, "private-returns", rule)

	call := pyhintstest.Call(pyhintstest.Ref("get_int"))
	oracle.Callees[call] = []*pyhints.Definition{pyhintstest.Function("get_int")}
	variable := pyhintstest.Variable("_cache", call)
	oracle.Sites[variable] = pyhintstest.Builtin("int")

	rule, err = chain.Explain(variable)
	require.NoError(t, err)
	assert.Empty(t, rule)
}
