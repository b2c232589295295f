// Package params produces parameter-name hints for call sites.
package params

import (
	"strings"

	"github.com/rlch/pyhints"
)

// ForbiddenFiles are stub files whose callables never get parameter hints.
var ForbiddenFiles = []string{"builtins.pyi", "typing.pyi"}

// Resolver pairs call arguments with the parameters of the callee.
type Resolver struct {
	Oracle   pyhints.Oracle
	Settings pyhints.Settings
}

// New returns a resolver.
func New(oracle pyhints.Oracle, settings pyhints.Settings) *Resolver {
	return &Resolver{Oracle: oracle, Settings: settings}
}

// Hints returns the parameter hints for call, in argument order.
func (r *Resolver) Hints(call *pyhints.Expr) ([]pyhints.Hint, error) {
	params, err := r.Parameters(call)
	if err != nil || len(params) == 0 {
		return nil, err
	}

	return r.pair(params, call.Elements), nil
}

// Parameters resolves the parameters the call's positional arguments
// bind to, with self and separator markers removed. It returns nil when
// the call gets no hints at all.
func (r *Resolver) Parameters(call *pyhints.Expr) ([]pyhints.Param, error) {
	if call == nil || call.Kind != pyhints.ExprCall || call.Decorator {
		return nil, nil
	}

	args := call.Elements
	if len(args) == 0 || (len(args) == 1 && args[0].Kind == pyhints.ExprStarArg) {
		return nil, nil
	}

	def, err := r.callee(call)
	if err != nil || def == nil || def.InFile(ForbiddenFiles...) {
		return nil, err
	}

	var params []pyhints.Param

	switch def.Kind {
	case pyhints.DefTarget, pyhints.DefLambda:
		if !r.Settings.ShowLambdaHints {
			return nil, nil
		}

		lambda := def
		if def.Kind == pyhints.DefTarget {
			lambda = def.Lambda
		}

		if lambda == nil {
			return nil, nil
		}

		params = filter(lambda.Params)
	case pyhints.DefClass:
		if !r.Settings.ShowClassConstructorHints {
			return nil, nil
		}

		entry, attrs := constructor(def)
		if entry != nil && entry.InFile(ForbiddenFiles...) {
			return nil, nil
		}

		if entry != nil {
			params = filter(entry.Params)
		}

		if len(params) == 0 {
			params = filter(attrs)
		}
	case pyhints.DefFunction:
		if !r.Settings.ShowFunctionCallHints {
			return nil, nil
		}

		params = filter(def.Params)
	default:
		return nil, nil
	}

	if len(params) == 0 {
		return nil, nil
	}

	// A lone parameter is obvious unless it is *args.
	if len(params) == 1 && params[0].Kind != pyhints.ParamVarPositional {
		return nil, nil
	}

	return params, nil
}

// callee resolves the call, falling back to the most specific candidate
// when the oracle cannot pick one.
func (r *Resolver) callee(call *pyhints.Expr) (*pyhints.Definition, error) {
	def, err := r.Oracle.ResolveCallee(call)
	if err != nil || def != nil {
		return def, err
	}

	defs, err := r.Oracle.MultiResolveCallee(call)
	if err != nil || len(defs) == 0 {
		return nil, err
	}

	return defs[0], nil
}

// constructor picks what a class call binds to: an initializer declared on
// the class itself wins; otherwise the class attributes stand in when the
// inherited initializer takes nothing; otherwise the inherited
// initializer; otherwise __call__.
func constructor(class *pyhints.Definition) (*pyhints.Definition, []pyhints.Param) {
	init := class.Initializer
	if init != nil && sameClass(init.Owner, class) {
		return init, nil
	}

	if init != nil && len(filter(init.Params)) > 0 {
		return init, class.Attributes
	}

	if len(class.Attributes) > 0 {
		return init, class.Attributes
	}

	return class.CallOperator, nil
}

func sameClass(a, b *pyhints.Definition) bool {
	if a == nil || b == nil {
		return false
	}

	if a == b {
		return true
	}

	return a.QualifiedName != "" && a.QualifiedName == b.QualifiedName
}

func filter(params []pyhints.Param) []pyhints.Param {
	out := make([]pyhints.Param, 0, len(params))

	for _, p := range params {
		if p.Self || p.IsMarker() {
			continue
		}

		out = append(out, p)
	}

	return out
}

func (r *Resolver) pair(params []pyhints.Param, args []*pyhints.Expr) []pyhints.Hint {
	var hints []pyhints.Hint

	for i, p := range params {
		if i >= len(args) {
			break
		}

		arg := args[i]
		if arg.Kind == pyhints.ExprKeywordArg || arg.Kind == pyhints.ExprStarArg {
			break
		}

		switch p.Kind {
		case pyhints.ParamVarPositional:
			return append(hints, hint("..."+p.Name, arg))
		case pyhints.ParamVarKeyword:
			return hints
		}

		if r.visible(p.Name, arg) {
			hints = append(hints, hint(p.Name, arg))
		}
	}

	return hints
}

func hint(text string, arg *pyhints.Expr) pyhints.Hint {
	return pyhints.Hint{Kind: pyhints.HintParameter, Text: text, Offset: arg.Offset, Before: true}
}

// visible reports whether the name of a parameter adds anything next to arg.
func (r *Resolver) visible(name string, arg *pyhints.Expr) bool {
	if len(name) < 2 || strings.HasPrefix(name, "__") {
		return false
	}

	argName := strings.ToLower(ArgumentName(arg))
	if argName == "" {
		return true
	}

	name = strings.ToLower(name)
	if r.Settings.HideOverlappingParameterNames && strings.Contains(argName, name) {
		return false
	}

	return name != argName
}

// ArgumentName returns the name an argument is known by: the referenced
// name, the attribute name, or the string key of a subscription.
func ArgumentName(arg *pyhints.Expr) string {
	arg = pyhints.Peel(arg)
	if arg == nil {
		return ""
	}

	switch arg.Kind {
	case pyhints.ExprRef, pyhints.ExprAttribute:
		return arg.Name
	case pyhints.ExprSubscript:
		for _, key := range arg.Elements {
			if key.Kind == pyhints.ExprLiteral && key.Literal == pyhints.LiteralString {
				return key.Name
			}
		}

		if root := pyhints.Peel(arg.Operand); root != nil && root.Kind == pyhints.ExprRef {
			return root.Name
		}
	}

	return ""
}

// Signature resolves the callee of call and the parameters a caller
// supplies, ignoring the hint settings. Classes report their constructor.
func (r *Resolver) Signature(call *pyhints.Expr) (*pyhints.Definition, []pyhints.Param, error) {
	if call == nil || call.Kind != pyhints.ExprCall {
		return nil, nil, nil
	}

	def, err := r.callee(call)
	if err != nil || def == nil {
		return nil, nil, err
	}

	switch def.Kind {
	case pyhints.DefTarget:
		if def.Lambda == nil {
			return nil, nil, nil
		}

		return def, filter(def.Lambda.Params), nil
	case pyhints.DefClass:
		entry, attrs := constructor(def)
		if entry != nil && len(filter(entry.Params)) > 0 {
			return def, filter(entry.Params), nil
		}

		return def, filter(attrs), nil
	case pyhints.DefFunction, pyhints.DefLambda:
		return def, filter(def.Params), nil
	default:
		return nil, nil, nil
	}
}
