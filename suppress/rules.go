package suppress

import (
	"errors"
	"strings"

	"github.com/rlch/pyhints"
)

// VariableRules returns the built-in rules for variable binding sites.
func VariableRules() []*Rule {
	return []*Rule{
		// Site shape.
		placeholderNameRule,
		qualifiedTargetRule,
		explicitAnnotationRule,
		exceptClauseRule,
		classAttributeRule,

		// Type shape.
		unknownTypeRule,
		unionRule,
		tupleRule,
		typeVarRule,
		typingAliasRule,

		// Value shape.
		constructorCallRule,
		literalBranchesRule,
		comprehensionRule,
		emptyLiteralRule,
		setConstructorRule,
		aliasRule,
		globalsCallRule,
		unaryOperandRule,
	}
}

// FunctionRules returns the built-in rules for function return hints.
func FunctionRules() []*Rule {
	return []*Rule{
		placeholderNameRule,
		explicitAnnotationRule,
		unknownTypeRule,
		noneReturnRule,
	}
}

// Rule names that other rules refer to.
const (
	RuleUnion           = "union"
	RuleConstructorCall = "constructor-call"
	RuleAlias           = "alias"
)

// ----------------------------------------------------------------------------
// Rule: placeholder-name
// ----------------------------------------------------------------------------

var placeholderNameRule = &Rule{
	Name: "placeholder-name",
	Doc:  "Suppresses bindings named _.",
	Run: func(c *Context) bool {
		return c.Site.Name == "_"
	},
}

// ----------------------------------------------------------------------------
// Rule: qualified-target
// ----------------------------------------------------------------------------

var qualifiedTargetRule = &Rule{
	Name: "qualified-target",
	Doc:  "Suppresses attribute targets such as self.x = ...",
	Run: func(c *Context) bool {
		return c.Site.Qualified
	},
}

// ----------------------------------------------------------------------------
// Rule: explicit-annotation
// ----------------------------------------------------------------------------

var explicitAnnotationRule = &Rule{
	Name: "explicit-annotation",
	Doc:  "Suppresses bindings that already carry an annotation or type comment.",
	Run: func(c *Context) bool {
		return c.Site.Annotated || c.Site.TypeComment
	},
}

// ----------------------------------------------------------------------------
// Rule: except-clause
// ----------------------------------------------------------------------------

var exceptClauseRule = &Rule{
	Name: "except-clause",
	Doc:  "Suppresses bindings inside except clauses.",
	Run: func(c *Context) bool {
		return c.Site.Scope == pyhints.ScopeExcept
	},
}

// ----------------------------------------------------------------------------
// Rule: class-attribute
// ----------------------------------------------------------------------------

var classAttributeRule = &Rule{
	Name: "class-attribute",
	Doc:  "Suppresses class body bindings when class attribute hints are off.",
	Run: func(c *Context) bool {
		return c.Site.Scope == pyhints.ScopeClass && !c.Settings.ShowClassAttributeTypeHints
	},
}

// ----------------------------------------------------------------------------
// Rule: unknown-type
// ----------------------------------------------------------------------------

var unknownTypeRule = &Rule{
	Name: "unknown-type",
	Doc:  "Suppresses unknown types and unions of only unknown or None members.",
	Run: func(c *Context) bool {
		return uninformative(c.Type)
	},
}

func uninformative(typ pyhints.Type) bool {
	if pyhints.IsUnknown(typ) {
		return true
	}

	u, ok := typ.(*pyhints.UnionType)
	if !ok {
		return false
	}

	for _, m := range u.Members {
		if !pyhints.IsUnknown(m) && !pyhints.IsNone(m) {
			return false
		}
	}

	return true
}

// ----------------------------------------------------------------------------
// Rule: union
// ----------------------------------------------------------------------------

var unionRule = &Rule{
	Name: RuleUnion,
	Doc:  "Suppresses unions none of whose members would be shown on their own.",
	Run: func(c *Context) bool {
		u, ok := c.Type.(*pyhints.UnionType)
		if !ok {
			return false
		}

		for _, m := range u.Members {
			if c.Shown(c.Site, m, RuleUnion) {
				return false
			}
		}

		return true
	},
}

// ----------------------------------------------------------------------------
// Rule: tuple
// ----------------------------------------------------------------------------

var tupleRule = &Rule{
	Name: "tuple",
	Doc:  "Suppresses tuples without element types and tuple literals of literals.",
	Run: func(c *Context) bool {
		t, ok := c.Type.(*pyhints.TupleType)
		if !ok {
			return false
		}

		if len(pyhints.KnownElements(t.Elements)) == 0 {
			return true
		}

		v := c.Value()
		if v == nil || v.Kind != pyhints.ExprTuple {
			return false
		}

		for _, e := range v.Elements {
			if !pyhints.IsLiteral(e) {
				return false
			}
		}

		return true
	},
}

// ----------------------------------------------------------------------------
// Rule: type-var
// ----------------------------------------------------------------------------

var typeVarRule = &Rule{
	Name: "type-var",
	Doc:  "Suppresses values whose own type is an unbound type variable.",
	Run: func(c *Context) bool {
		v := c.Value()
		if v == nil {
			return false
		}

		_, ok := c.ExprType(v).(*pyhints.TypeVarType)

		return ok
	},
}

// ----------------------------------------------------------------------------
// Rule: typing-alias
// ----------------------------------------------------------------------------

var typingAliasRule = &Rule{
	Name: "typing-alias",
	Doc:  "Suppresses aliases of typing constructs such as T = Optional[int].",
	Run: func(c *Context) bool {
		v := c.Value()
		if v != nil {
			switch v.Kind {
			case pyhints.ExprCall, pyhints.ExprAwait:
				return false
			case pyhints.ExprSubscript:
				if def := c.ResolveReference(rootOperand(v)); def != nil {
					return inTyping(def.QualifiedName)
				}
			case pyhints.ExprRef, pyhints.ExprAttribute:
				if def := c.ResolveReference(v); def != nil {
					return inTyping(def.QualifiedName)
				}
			}
		}

		cls, ok := c.Type.(*pyhints.ClassType)

		return ok && inTyping(cls.QualifiedName)
	},
}

func rootOperand(e *pyhints.Expr) *pyhints.Expr {
	for e.Kind == pyhints.ExprSubscript && e.Operand != nil {
		e = pyhints.Peel(e.Operand)
	}

	return e
}

func inTyping(qualified string) bool {
	return strings.HasPrefix(qualified, "typing.") || strings.HasPrefix(qualified, "typing_extensions.")
}

// ----------------------------------------------------------------------------
// Rule: constructor-call
// ----------------------------------------------------------------------------

var setConstructors = map[string]bool{"set": true, "frozenset": true}

var constructorCallRule = &Rule{
	Name: RuleConstructorCall,
	Doc:  "Suppresses builtin and function-backed constructor calls such as x = list().",
	Run: func(c *Context) bool {
		v := c.Value()
		if v == nil || v.Kind != pyhints.ExprCall {
			return false
		}

		def := c.ResolveCallee(v)
		if def == nil {
			return false
		}

		var backed bool

		switch def.Kind {
		case pyhints.DefClass:
			// set-constructor owns these.
			if setConstructors[def.Name] {
				return false
			}

			backed = def.Builtin
		case pyhints.DefFunction:
			cls, ok := c.Type.(*pyhints.ClassType)
			backed = ok && def.Owner != nil && !cls.Definition && cls.Name == def.Owner.Name
		default:
			return false
		}

		return backed && c.Shown(c.Site, c.Type, RuleConstructorCall)
	},
}

// ----------------------------------------------------------------------------
// Rule: literal-branches
// ----------------------------------------------------------------------------

var literalBranchesRule = &Rule{
	Name: "literal-branches",
	Doc:  "Suppresses conditional and binary values whose operands are both literals or both class constructions.",
	Run: func(c *Context) bool {
		v := c.Value()
		if v == nil {
			return false
		}

		switch v.Kind {
		case pyhints.ExprConditional, pyhints.ExprBoolOp, pyhints.ExprBinary:
		default:
			return false
		}

		left, right := pyhints.Peel(v.Left), pyhints.Peel(v.Right)
		if left == nil || right == nil {
			return false
		}

		if pyhints.IsLiteral(left) && pyhints.IsLiteral(right) {
			return true
		}

		if left.Kind == pyhints.ExprCall && right.Kind == pyhints.ExprCall {
			return constructs(c, left) && constructs(c, right)
		}

		return false
	},
}

func constructs(c *Context, call *pyhints.Expr) bool {
	def := c.ResolveCallee(call)

	return def != nil && def.Kind == pyhints.DefClass
}

// ----------------------------------------------------------------------------
// Rule: comprehension
// ----------------------------------------------------------------------------

var comprehensionRule = &Rule{
	Name: "comprehension",
	Doc:  "Suppresses set and dict comprehensions, and list comprehensions of unknown elements.",
	Run: func(c *Context) bool {
		v := c.Value()
		if v == nil {
			return false
		}

		switch v.Kind {
		case pyhints.ExprSetComp, pyhints.ExprDictComp:
			return true
		case pyhints.ExprListComp, pyhints.ExprGenerator:
			coll, ok := c.Type.(*pyhints.CollectionType)

			return ok && len(pyhints.KnownElements(coll.Elements)) == 0
		default:
			return false
		}
	},
}

// ----------------------------------------------------------------------------
// Rule: empty-literal
// ----------------------------------------------------------------------------

var emptyLiteralRule = &Rule{
	Name: "empty-literal",
	Doc:  "Suppresses scalar literals, empty containers and dicts of literal values.",
	Run: func(c *Context) bool {
		v := c.Value()
		if !pyhints.IsLiteral(v) {
			return false
		}

		elems, err := pyhints.SequenceElements(v)
		if errors.Is(err, pyhints.ErrNotSequence) {
			return true
		}

		if len(elems) == 0 {
			return true
		}

		return v.Kind == pyhints.ExprDict && literalValues(elems)
	},
}

func literalValues(entries []*pyhints.Expr) bool {
	for _, kv := range entries {
		if kv.Kind != pyhints.ExprKeyValue || !pyhints.IsLiteral(kv.Right) {
			return false
		}
	}

	return true
}

// ----------------------------------------------------------------------------
// Rule: set-constructor
// ----------------------------------------------------------------------------

var setConstructorRule = &Rule{
	Name: "set-constructor",
	Doc:  "Suppresses set() and frozenset() calls without known element types.",
	Run: func(c *Context) bool {
		v := c.Value()
		if v == nil || v.Kind != pyhints.ExprCall || pyhints.IsNone(c.Type) {
			return false
		}

		def := c.ResolveCallee(v)
		if def == nil || def.Kind != pyhints.DefClass || !setConstructors[def.Name] {
			return false
		}

		coll, ok := c.Type.(*pyhints.CollectionType)

		return !ok || !coll.Builtin || len(pyhints.KnownElements(coll.Elements)) == 0
	},
}

// ----------------------------------------------------------------------------
// Rule: alias
// ----------------------------------------------------------------------------

var aliasRule = &Rule{
	Name: RuleAlias,
	Doc:  "Suppresses y = x when the hint would be suppressed at the definition of x.",
	Run: func(c *Context) bool {
		v := c.Value()
		if v == nil || (v.Kind != pyhints.ExprRef && v.Kind != pyhints.ExprAttribute) {
			return false
		}

		def := c.ResolveReference(v)
		if def == nil || def.Kind != pyhints.DefTarget || def.Site == nil || def.Site == c.Site {
			return false
		}

		return !c.Shown(def.Site, c.Type, RuleAlias)
	},
}

// ----------------------------------------------------------------------------
// Rule: globals-call
// ----------------------------------------------------------------------------

var scopeIntrospection = map[string]bool{"globals": true, "locals": true}

var globalsCallRule = &Rule{
	Name: "globals-call",
	Doc:  "Suppresses the results of globals() and locals().",
	Run: func(c *Context) bool {
		v := c.Value()
		if v == nil || v.Kind != pyhints.ExprCall {
			return false
		}

		callee := pyhints.Peel(v.Callee)

		return callee != nil && callee.Kind == pyhints.ExprRef && scopeIntrospection[callee.Name]
	},
}

// ----------------------------------------------------------------------------
// Rule: unary-operand
// ----------------------------------------------------------------------------

var unaryOperandRule = &Rule{
	Name: "unary-operand",
	Doc:  "Suppresses prefix expressions such as -1 and not x; await falls through to the site checks.",
	Run: func(c *Context) bool {
		v := c.Value()
		if v == nil {
			return false
		}

		switch v.Kind {
		case pyhints.ExprUnary:
			return true
		case pyhints.ExprAwait:
			return c.Site.Name == "_" || c.Site.Qualified || c.Site.Annotated ||
				c.Site.TypeComment || uninformative(c.Type)
		default:
			return false
		}
	},
}

// ----------------------------------------------------------------------------
// Rule: none-return
// ----------------------------------------------------------------------------

var noneReturnRule = &Rule{
	Name: "none-return",
	Doc:  "Suppresses return hints of functions that return None.",
	Run: func(c *Context) bool {
		return pyhints.IsNone(c.Type)
	},
}
