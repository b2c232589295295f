package pysource

import (
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/rlch/pyhints"
)

// expr converts an expression node. Every expression is registered with
// the scope it is evaluated in, and every call is collected.
func (x *extractor) expr(n *sitter.Node, fr frame) *pyhints.Expr {
	if n == nil {
		return nil
	}

	e := &pyhints.Expr{
		Text:   x.text(n),
		Offset: int(n.StartByte()),
		End:    int(n.EndByte()),
	}
	x.f.exprScope[e] = fr.scope

	switch n.Type() {
	case "integer", "float":
		e.Kind = pyhints.ExprLiteral
		e.Literal = numberKind(n.Type(), e.Text)
	case "string", "concatenated_string":
		e.Kind = pyhints.ExprLiteral
		e.Literal, e.Name = stringLiteral(e.Text)
		x.interpolations(n, fr)
	case "true", "false":
		e.Kind = pyhints.ExprLiteral
		e.Literal = pyhints.LiteralBool
	case "none":
		e.Kind = pyhints.ExprLiteral
		e.Literal = pyhints.LiteralNone
	case "ellipsis":
		e.Kind = pyhints.ExprLiteral
		e.Literal = pyhints.LiteralEllipsis
	case "list", "set", "tuple", "expression_list", "dictionary":
		e.Kind = sequenceKinds[n.Type()]
		e.Elements = x.exprs(namedChildren(n), fr)
	case "pair":
		e.Kind = pyhints.ExprKeyValue
		e.Left = x.expr(n.ChildByFieldName("key"), fr)
		e.Right = x.expr(n.ChildByFieldName("value"), fr)
	case "parenthesized_expression":
		e.Kind = pyhints.ExprParen
		e.Operand = x.expr(firstNamed(n), fr)
	case "identifier":
		e.Kind = pyhints.ExprRef
		e.Name = e.Text
	case "attribute":
		e.Kind = pyhints.ExprAttribute
		e.Operand = x.expr(n.ChildByFieldName("object"), fr)
		e.Name = x.text(n.ChildByFieldName("attribute"))
	case "subscript":
		e.Kind = pyhints.ExprSubscript

		children := namedChildren(n)
		if len(children) > 0 {
			e.Operand = x.expr(children[0], fr)
			e.Elements = x.exprs(children[1:], fr)
		}
	case "call":
		x.call(n, e, fr)
	case "conditional_expression":
		e.Kind = pyhints.ExprConditional

		children := namedChildren(n)
		if len(children) == 3 {
			e.Left = x.expr(children[0], fr)
			e.Operand = x.expr(children[1], fr)
			e.Right = x.expr(children[2], fr)
		}
	case "boolean_operator", "binary_operator":
		e.Kind = pyhints.ExprBinary
		if n.Type() == "boolean_operator" {
			e.Kind = pyhints.ExprBoolOp
		}

		e.Left = x.expr(n.ChildByFieldName("left"), fr)
		e.Right = x.expr(n.ChildByFieldName("right"), fr)
		e.Operator = x.text(n.ChildByFieldName("operator"))
	case "comparison_operator":
		e.Kind = pyhints.ExprBinary
		e.Operator = comparisonOperator(n)

		children := namedChildren(n)
		if len(children) >= 2 {
			e.Left = x.expr(children[0], fr)
			e.Right = x.expr(children[1], fr)
			x.exprs(children[2:], fr)
		}
	case "unary_operator":
		e.Kind = pyhints.ExprUnary
		e.Operator = x.text(n.ChildByFieldName("operator"))
		e.Operand = x.expr(n.ChildByFieldName("argument"), fr)
	case "not_operator":
		e.Kind = pyhints.ExprUnary
		e.Operator = "not"
		e.Operand = x.expr(n.ChildByFieldName("argument"), fr)
	case "await":
		e.Kind = pyhints.ExprAwait
		e.Operator = "await"
		e.Operand = x.expr(firstNamed(n), fr)
	case "list_comprehension", "set_comprehension", "dictionary_comprehension", "generator_expression":
		x.comprehension(n, e, fr)
	case "lambda":
		x.lambda(n, e, fr)
	case "keyword_argument":
		e.Kind = pyhints.ExprKeywordArg
		e.Name = x.text(n.ChildByFieldName("name"))
		e.Operand = x.expr(n.ChildByFieldName("value"), fr)
	case "list_splat", "dictionary_splat":
		e.Kind = pyhints.ExprStarArg
		e.Operator = "*"
		if n.Type() == "dictionary_splat" {
			e.Operator = "**"
		}

		e.Operand = x.expr(firstNamed(n), fr)
	case "named_expression":
		name := n.ChildByFieldName("name")
		e.Name = x.text(name)
		e.Operand = x.expr(n.ChildByFieldName("value"), fr)

		if name != nil {
			target := fr.scope
			for target.kind == scopeComprehension && target.parent != nil {
				target = target.parent
			}

			target.bind(&binding{name: e.Name, offset: int(name.StartByte()), value: e.Operand})
		}
	case "yield":
		x.yield(n, e, fr)
	default:
		x.generic(n, fr)
	}

	return e
}

var sequenceKinds = map[string]pyhints.ExprKind{
	"list":            pyhints.ExprList,
	"set":             pyhints.ExprSet,
	"tuple":           pyhints.ExprTuple,
	"expression_list": pyhints.ExprTuple,
	"dictionary":      pyhints.ExprDict,
}

// interpolations visits the replacement fields of f-strings.
func (x *extractor) interpolations(n *sitter.Node, fr frame) {
	for _, child := range namedChildren(n) {
		switch child.Type() {
		case "interpolation":
			x.generic(child, fr)
		case "string":
			x.interpolations(child, fr)
		}
	}
}

func (x *extractor) exprs(nodes []*sitter.Node, fr frame) []*pyhints.Expr {
	out := make([]*pyhints.Expr, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, x.expr(n, fr))
	}

	return out
}

func numberKind(typ, text string) pyhints.LiteralKind {
	switch {
	case strings.HasSuffix(text, "j"), strings.HasSuffix(text, "J"):
		return pyhints.LiteralComplex
	case typ == "float":
		return pyhints.LiteralFloat
	default:
		return pyhints.LiteralInt
	}
}

// stringLiteral classifies a string literal by its prefix and returns its
// unquoted value.
func stringLiteral(text string) (pyhints.LiteralKind, string) {
	i := strings.IndexAny(text, `"'`)
	if i < 0 {
		return pyhints.LiteralString, text
	}

	kind := pyhints.LiteralString
	if strings.ContainsAny(text[:i], "bB") {
		kind = pyhints.LiteralBytes
	}

	body := text[i:]

	for _, quote := range []string{`"""`, `'''`, `"`, `'`} {
		if len(body) >= 2*len(quote) && strings.HasPrefix(body, quote) && strings.HasSuffix(body, quote) {
			return kind, body[len(quote) : len(body)-len(quote)]
		}
	}

	return kind, body
}

func comparisonOperator(n *sitter.Node) string {
	var ops []string

	for _, child := range allChildren(n) {
		if !child.IsNamed() {
			ops = append(ops, child.Type())
		}
	}

	return strings.Join(ops, " ")
}

func (x *extractor) call(n *sitter.Node, e *pyhints.Expr, fr frame) {
	e.Kind = pyhints.ExprCall
	e.Callee = x.expr(n.ChildByFieldName("function"), fr)

	args := n.ChildByFieldName("arguments")
	switch {
	case args == nil:
	case args.Type() == "generator_expression":
		e.Elements = []*pyhints.Expr{x.expr(args, fr)}
	default:
		e.Elements = x.exprs(namedChildren(args), fr)
	}

	x.f.calls = append(x.f.calls, e)
}

func (x *extractor) yield(n *sitter.Node, e *pyhints.Expr, fr frame) {
	e.Kind = pyhints.ExprOther
	e.Operator = "yield"

	from := hasChild(n, "from")
	if from {
		e.Operator = "yield from"
	}

	if child := firstNamed(n); child != nil {
		e.Operand = x.expr(child, fr)
	}

	if fr.fn == nil || fr.fn.lambda {
		return
	}

	fr.fn.generator = true
	if from {
		fr.fn.yieldFroms = append(fr.fn.yieldFroms, e.Operand)
	} else {
		fr.fn.yields = append(fr.fn.yields, e.Operand)
	}
}

var comprehensionKinds = map[string]pyhints.ExprKind{
	"list_comprehension":       pyhints.ExprListComp,
	"set_comprehension":        pyhints.ExprSetComp,
	"dictionary_comprehension": pyhints.ExprDictComp,
	"generator_expression":     pyhints.ExprGenerator,
}

// comprehension converts a comprehension. The first iterable is evaluated
// in the enclosing scope, everything else in the comprehension's own.
func (x *extractor) comprehension(n *sitter.Node, e *pyhints.Expr, fr frame) {
	e.Kind = comprehensionKinds[n.Type()]

	inner := frame{
		scope: newScope(scopeComprehension, fr.scope, x.f, fr.scope.qualifier),
		fn:    fr.fn,
	}

	first := true

	for _, clause := range namedChildren(n) {
		switch clause.Type() {
		case "for_in_clause":
			src := inner
			if first {
				src = fr
			}

			first = false

			iter := x.expr(clause.ChildByFieldName("right"), src)
			x.bindTarget(clause.ChildByFieldName("left"), target{iter: iter, kind: pyhints.ScopeComprehension}, nil, inner)
		case "if_clause":
			x.generic(clause, inner)
		}
	}

	e.Operand = x.expr(n.ChildByFieldName("body"), inner)
}

func (x *extractor) lambda(n *sitter.Node, e *pyhints.Expr, fr frame) {
	e.Kind = pyhints.ExprLambda

	fn := &function{lambda: true, stub: x.f.stub}
	fn.def = &pyhints.Definition{
		Kind:          pyhints.DefLambda,
		Name:          "lambda",
		QualifiedName: fr.scope.qualify("<lambda>"),
		File:          filepath.Base(x.f.Path),
		Decl:          x.f.decl("lambda", e.Offset),
	}
	fn.scope = newScope(scopeLambda, fr.scope, x.f, fn.def.QualifiedName)
	fn.scope.fn = fn

	if params := n.ChildByFieldName("parameters"); params != nil {
		x.parameters(params, fn, fr)
	} else {
		fn.def.Params = []pyhints.Param{}
	}

	fn.body = x.expr(n.ChildByFieldName("body"), frame{scope: fn.scope, fn: fn})
	x.f.lambdas[e] = fn
	x.f.functions[fn.def] = fn
}
