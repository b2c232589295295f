// Package suppress decides whether an inferred type hint is worth showing.
//
// A Chain holds an ordered list of named rules. A hint is suppressed when
// any rule votes to suppress it. Rules that need to ask "would this be
// shown otherwise?" evaluate the chain again with themselves excluded.
package suppress

import (
	"errors"

	"github.com/rlch/pyhints"
)

// MaxDepth bounds recursive chain evaluation. Deeper evaluations suppress.
const MaxDepth = 16

// Rule is a named suppression predicate.
type Rule struct {
	// Name is a short identifier, used for exclusion and in logs.
	Name string

	// Doc is a brief description of what the rule suppresses.
	Doc string

	// Run reports whether the hint described by c should be suppressed.
	Run func(c *Context) bool
}

// Chain evaluates suppression rules against binding sites.
type Chain struct {
	Oracle   pyhints.Oracle
	Settings pyhints.Settings

	// Variables are the rules for variable sites, Functions for function
	// signatures.
	Variables []*Rule
	Functions []*Rule
}

// NewChain returns a chain with the built-in rules.
func NewChain(oracle pyhints.Oracle, settings pyhints.Settings) *Chain {
	return &Chain{
		Oracle:    oracle,
		Settings:  settings,
		Variables: VariableRules(),
		Functions: FunctionRules(),
	}
}

// Add appends rules evaluated for both variable and function sites. Rules
// that only apply to one kind test the Function flag of their context.
func (ch *Chain) Add(rules ...*Rule) {
	ch.Variables = append(ch.Variables, rules...)
	ch.Functions = append(ch.Functions, rules...)
}

// Resolve fetches the type of site from the oracle and reports whether its
// hint is suppressed. Oracle errors met on the way are joined and returned;
// the caller should then drop the element.
func (ch *Chain) Resolve(site *pyhints.Site) (bool, error) {
	rule, err := ch.Explain(site)

	return rule != "", err
}

// Explain is Resolve returning the name of the first suppressing rule, or
// "" when the hint is shown.
func (ch *Chain) Explain(site *pyhints.Site) (string, error) {
	typ, err := ch.Oracle.TypeOf(site)
	if err != nil {
		return "", err
	}

	return ch.ExplainType(site, typ)
}

// ResolveType is Resolve with an explicit type.
func (ch *Chain) ResolveType(site *pyhints.Site, typ pyhints.Type) (bool, error) {
	rule, err := ch.ExplainType(site, typ)

	return rule != "", err
}

// ExplainType is Explain with an explicit type.
func (ch *Chain) ExplainType(site *pyhints.Site, typ pyhints.Type) (string, error) {
	ev := &evaluation{chain: ch}
	rule := ev.run(site, typ, nil, 0)

	return rule, errors.Join(ev.errs...)
}

func (ch *Chain) rulesFor(site *pyhints.Site) []*Rule {
	if site.Kind == pyhints.SiteFunction {
		return ch.Functions
	}

	return ch.Variables
}

// evaluation carries the errors recorded during one Resolve call.
type evaluation struct {
	chain *Chain
	errs  []error
}

// depthRule names the verdict given when recursion runs too deep.
const depthRule = "max-depth"

func (ev *evaluation) run(site *pyhints.Site, typ pyhints.Type, exclude map[string]bool, depth int) string {
	if depth > MaxDepth {
		return depthRule
	}

	c := &Context{
		Site:     site,
		Type:     typ,
		Settings: ev.chain.Settings,
		ev:       ev,
		exclude:  exclude,
		depth:    depth,
	}

	for _, r := range ev.chain.rulesFor(site) {
		if exclude[r.Name] {
			continue
		}

		if r.Run(c) {
			return r.Name
		}
	}

	return ""
}

func (ev *evaluation) record(err error) {
	if err != nil {
		ev.errs = append(ev.errs, err)
	}
}

// Context is what a rule sees: the site, its type and access to the
// oracle. Oracle errors are recorded rather than returned.
type Context struct {
	Site     *pyhints.Site
	Type     pyhints.Type
	Settings pyhints.Settings

	ev      *evaluation
	exclude map[string]bool
	depth   int
}

// Value returns the assigned value with parentheses stripped.
func (c *Context) Value() *pyhints.Expr {
	return pyhints.Peel(c.Site.Value)
}

// Shown evaluates the chain for site and typ with rule and every rule
// already excluded in c left out, and reports whether the hint survives.
func (c *Context) Shown(site *pyhints.Site, typ pyhints.Type, rule string) bool {
	exclude := make(map[string]bool, len(c.exclude)+1)
	for name := range c.exclude {
		exclude[name] = true
	}

	exclude[rule] = true

	return c.ev.run(site, typ, exclude, c.depth+1) == ""
}

// ExprType asks the oracle for the type of e.
func (c *Context) ExprType(e *pyhints.Expr) pyhints.Type {
	typ, err := c.ev.chain.Oracle.ExprType(e)
	c.ev.record(err)

	return typ
}

// ResolveCallee asks the oracle what the call's callee resolves to.
func (c *Context) ResolveCallee(call *pyhints.Expr) *pyhints.Definition {
	def, err := c.ev.chain.Oracle.ResolveCallee(call)
	c.ev.record(err)

	return def
}

// ResolveReference asks the oracle what a reference resolves to.
func (c *Context) ResolveReference(ref *pyhints.Expr) *pyhints.Definition {
	def, err := c.ev.chain.Oracle.ResolveReference(ref)
	c.ev.record(err)

	return def
}

// Fail records an error, which makes the caller drop the element.
func (c *Context) Fail(err error) {
	c.ev.record(err)
}
