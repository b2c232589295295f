package pyhints

import "strings"

// SiteKind distinguishes variable bindings from function signatures.
type SiteKind int

// Site kinds.
const (
	SiteVariable SiteKind = iota
	SiteFunction
)

// ScopeKind is the kind of scope enclosing a binding.
type ScopeKind int

// Scope kinds.
const (
	ScopeModule ScopeKind = iota
	ScopeClass
	ScopeFunction
	ScopeExcept
	ScopeComprehension
	ScopeLoop
)

var scopeNames = map[ScopeKind]string{
	ScopeModule:        "module",
	ScopeClass:         "class",
	ScopeFunction:      "function",
	ScopeExcept:        "except",
	ScopeComprehension: "comprehension",
	ScopeLoop:          "loop",
}

func (k ScopeKind) String() string {
	if name, ok := scopeNames[k]; ok {
		return name
	}

	return "unknown"
}

// Site is a binding site: a variable assignment target or a function
// signature.
type Site struct {
	Kind SiteKind
	Name string

	// Qualified is set for attribute targets such as obj.attr.
	Qualified bool
	// Annotated is set when the target carries an explicit annotation.
	Annotated bool
	// TypeComment is set when a "# type:" comment annotates the binding.
	TypeComment bool

	Scope ScopeKind

	// Value is the assigned expression. Nil for loop targets, unpacked
	// targets and function sites.
	Value *Expr

	// Offset and End delimit the name in the source.
	Offset int
	End    int
	// HintOffset is where a type hint is placed: after the target for
	// variables, after the parameter list for functions.
	HintOffset int

	// Async and Generator describe function sites.
	Async     bool
	Generator bool
}

// ExprKind classifies expressions the engines care about.
type ExprKind int

// Expression kinds.
const (
	ExprOther ExprKind = iota
	ExprLiteral
	ExprList
	ExprSet
	ExprDict
	ExprTuple
	ExprKeyValue
	ExprCall
	ExprRef
	ExprAttribute
	ExprConditional
	ExprBoolOp
	ExprBinary
	ExprUnary
	ExprAwait
	ExprSubscript
	ExprListComp
	ExprSetComp
	ExprDictComp
	ExprGenerator
	ExprLambda
	ExprParen
	ExprKeywordArg
	ExprStarArg
)

var exprNames = map[ExprKind]string{
	ExprOther:       "other",
	ExprLiteral:     "literal",
	ExprList:        "list",
	ExprSet:         "set",
	ExprDict:        "dict",
	ExprTuple:       "tuple",
	ExprKeyValue:    "pair",
	ExprCall:        "call",
	ExprRef:         "reference",
	ExprAttribute:   "attribute",
	ExprConditional: "conditional",
	ExprBoolOp:      "boolean",
	ExprBinary:      "binary",
	ExprUnary:       "unary",
	ExprAwait:       "await",
	ExprSubscript:   "subscript",
	ExprListComp:    "list-comprehension",
	ExprSetComp:     "set-comprehension",
	ExprDictComp:    "dict-comprehension",
	ExprGenerator:   "generator",
	ExprLambda:      "lambda",
	ExprParen:       "parenthesized",
	ExprKeywordArg:  "keyword-argument",
	ExprStarArg:     "star-argument",
}

func (k ExprKind) String() string {
	if name, ok := exprNames[k]; ok {
		return name
	}

	return "unknown"
}

// LiteralKind is the kind of a scalar literal.
type LiteralKind int

// Literal kinds.
const (
	LiteralNone LiteralKind = iota
	LiteralInt
	LiteralFloat
	LiteralComplex
	LiteralString
	LiteralBytes
	LiteralBool
	LiteralEllipsis
)

// Expr is a node of an expression tree.
//
// Field use by kind:
//   - Literal: Literal, Text (for strings, Name holds the unquoted value)
//   - List, Set, Dict, Tuple: Elements (dict entries are KeyValue nodes)
//   - KeyValue: Left (key), Right (value)
//   - Call: Callee, Elements (arguments), Decorator
//   - Ref: Name
//   - Attribute: Operand (object), Name (attribute)
//   - Conditional: Left (true part), Right (false part), Operand (test)
//   - BoolOp, Binary: Left, Right, Operator
//   - Unary, Await, Paren: Operand, Operator
//   - Subscript: Operand (value), Elements (index)
//   - comprehensions: Operand (element, or key-value for dicts)
//   - KeywordArg: Name, Operand; StarArg: Operator ("*" or "**"), Operand
type Expr struct {
	Kind     ExprKind
	Text     string
	Name     string
	Literal  LiteralKind
	Operator string

	Callee   *Expr
	Left     *Expr
	Right    *Expr
	Operand  *Expr
	Elements []*Expr

	// Decorator is set for calls used as decorators.
	Decorator bool

	Offset int
	End    int
}

// Peel strips enclosing parentheses.
func Peel(e *Expr) *Expr {
	for e != nil && e.Kind == ExprParen && e.Operand != nil {
		e = e.Operand
	}

	return e
}

// IsLiteral reports whether e is a literal: a scalar literal, a sequence
// literal (list, set, dict, tuple) or a set comprehension.
func IsLiteral(e *Expr) bool {
	e = Peel(e)
	if e == nil {
		return false
	}

	switch e.Kind {
	case ExprLiteral, ExprList, ExprSet, ExprDict, ExprTuple, ExprSetComp:
		return true
	default:
		return false
	}
}

// IsComprehension reports whether e is a comprehension or generator.
func IsComprehension(e *Expr) bool {
	e = Peel(e)
	if e == nil {
		return false
	}

	switch e.Kind {
	case ExprListComp, ExprSetComp, ExprDictComp, ExprGenerator:
		return true
	default:
		return false
	}
}

// SequenceElements returns the elements of a sequence literal. Anything
// else fails with ErrNotSequence.
func SequenceElements(e *Expr) ([]*Expr, error) {
	e = Peel(e)
	if e == nil {
		return nil, ErrNotSequence
	}

	switch e.Kind {
	case ExprList, ExprSet, ExprDict, ExprTuple:
		return e.Elements, nil
	default:
		return nil, ErrNotSequence
	}
}

// ParamKind classifies formal parameters.
type ParamKind int

// Parameter kinds.
const (
	ParamPositional ParamKind = iota
	ParamVarPositional
	ParamVarKeyword
	// ParamSlash is the "/" positional-only marker.
	ParamSlash
	// ParamStar is the bare "*" keyword-only marker.
	ParamStar
)

// Param is a formal parameter, or a class attribute standing in for one.
type Param struct {
	Name       string
	Annotation string
	Kind       ParamKind
	Self       bool
	HasDefault bool
}

// IsMarker reports whether p is a "/" or "*" separator.
func (p Param) IsMarker() bool {
	return p.Kind == ParamSlash || p.Kind == ParamStar
}

// Presentable formats p as it appears in a callable hint.
func (p Param) Presentable() string {
	switch p.Kind {
	case ParamVarPositional:
		return "*" + p.Name
	case ParamVarKeyword:
		return "**" + p.Name
	case ParamSlash:
		return "/"
	case ParamStar:
		return "*"
	}

	if p.Annotation != "" {
		return p.Name + ": " + p.Annotation
	}

	return p.Name
}

// FormatParams renders a parameter list for a function, skipping self and
// separator markers.
func FormatParams(params []Param) string {
	parts := make([]string, 0, len(params))

	for _, p := range params {
		if p.Self || p.IsMarker() {
			continue
		}

		parts = append(parts, p.Presentable())
	}

	return "(" + strings.Join(parts, ", ") + ")"
}
