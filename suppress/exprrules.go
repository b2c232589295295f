package suppress

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"

	"github.com/rlch/pyhints"
)

// ErrEmptyRule is returned for configured rules without an expression.
var ErrEmptyRule = errors.New("rule has no expression")

// ErrRuleNotBool is returned when a rule expression yields a non-boolean.
var ErrRuleNotBool = errors.New("rule did not return a boolean")

// Env builds the expression environment for a rule evaluation.
//
//	Name       binding name
//	Type       canonical type string ("Unknown" when absent)
//	Scope      module, class, function, except, comprehension or loop
//	Qualified  attribute target
//	Annotated  explicit annotation or type comment
//	Function   function signature rather than variable
//	Value      source text of the assigned value
//	ValueKind  call, literal, list, reference, ...
func Env(c *Context) map[string]any {
	value, kind := "", ""
	if v := c.Value(); v != nil {
		value, kind = v.Text, v.Kind.String()
	}

	return map[string]any{
		"Name":      c.Site.Name,
		"Type":      pyhints.TypeString(c.Type),
		"Scope":     c.Site.Scope.String(),
		"Qualified": c.Site.Qualified,
		"Annotated": c.Site.Annotated || c.Site.TypeComment,
		"Function":  c.Site.Kind == pyhints.SiteFunction,
		"Value":     value,
		"ValueKind": kind,
	}
}

// envTemplate declares the variable types for compilation.
var envTemplate = map[string]any{
	"Name":      "",
	"Type":      "",
	"Scope":     "",
	"Qualified": false,
	"Annotated": false,
	"Function":  false,
	"Value":     "",
	"ValueKind": "",
}

// CompileRule compiles a configured rule. The expression is checked against
// the environment at load time so typos fail early.
func CompileRule(cfg pyhints.RuleConfig, index int) (*Rule, error) {
	when := strings.TrimSpace(cfg.When)
	if when == "" {
		return nil, fmt.Errorf("%w: %s", ErrEmptyRule, ruleName(cfg, index))
	}

	program, err := expr.Compile(when, expr.Env(envTemplate), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile rule %s: %w", ruleName(cfg, index), err)
	}

	name := ruleName(cfg, index)

	return &Rule{
		Name: name,
		Doc:  when,
		Run: func(c *Context) bool {
			output, err := expr.Run(program, Env(c))
			if err != nil {
				c.Fail(fmt.Errorf("evaluate rule %s: %w", name, err))

				return false
			}

			suppressed, ok := output.(bool)
			if !ok {
				c.Fail(fmt.Errorf("%w: %s returned %T", ErrRuleNotBool, name, output))

				return false
			}

			return suppressed
		},
	}, nil
}

// CompileRules compiles every configured rule, stopping at the first error.
func CompileRules(cfgs []pyhints.RuleConfig) ([]*Rule, error) {
	rules := make([]*Rule, 0, len(cfgs))

	for i, cfg := range cfgs {
		rule, err := CompileRule(cfg, i)
		if err != nil {
			return nil, err
		}

		rules = append(rules, rule)
	}

	return rules, nil
}

func ruleName(cfg pyhints.RuleConfig, index int) string {
	if cfg.Name != "" {
		return cfg.Name
	}

	return "user-rule-" + strconv.Itoa(index+1)
}

// FromConfig builds a chain with the built-in rules plus the configured
// ones, using the settings for path.
func FromConfig(cfg *pyhints.Config, oracle pyhints.Oracle, path string) (*Chain, error) {
	chain := NewChain(oracle, cfg.SettingsFor(path))

	rules, err := CompileRules(cfg.Suppress)
	if err != nil {
		return nil, err
	}

	chain.Add(rules...)

	return chain, nil
}
